package config

// Kafka is only read when product events are enabled.
type Kafka struct {
	Addresses []string `env:"KAFKA_ADDRESSES" envSeparator:","`
	Group     string   `env:"KAFKA_GROUP" envDefault:"inventory-api"`
	ClientID  string   `env:"KAFKA_CLIENT_ID" envDefault:"inventory-api"`
}
