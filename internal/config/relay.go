package config

import "time"

// Relay controls how pending outbox messages are drained to Kafka.
type Relay struct {
	BatchSize uint32        `env:"RELAY_BATCH_SIZE" envDefault:"100"`
	Interval  time.Duration `env:"RELAY_INTERVAL" envDefault:"1s"`

	// Concurrency bounds in-flight produce calls per batch. Zero means unbounded.
	Concurrency int `env:"RELAY_CONCURRENCY" envDefault:"16"`
	// ProduceTimeout bounds a single produce call. Zero disables the timeout.
	ProduceTimeout time.Duration `env:"RELAY_PRODUCE_TIMEOUT" envDefault:"10s"`
}
