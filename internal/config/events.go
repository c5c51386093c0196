package config

// Events toggles recording of product change events in the outbox.
type Events struct {
	Enabled bool `env:"EVENTS_ENABLED" envDefault:"false"`
}
