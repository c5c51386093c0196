package config

// Otel configures tracing. Spans are only exported when CollectorURL is set.
type Otel struct {
	ServiceName   string  `env:"OTEL_SERVICE_NAME" envDefault:"inventory-api"`
	CollectorURL  string  `env:"OTEL_COLLECTOR_URL"`
	Insecure      bool    `env:"OTEL_INSECURE"`
	CollectorAuth string  `env:"OTEL_COLLECTOR_AUTH"`
	TraceIDRatio  float64 `env:"OTEL_TRACE_ID_RATIO" envDefault:"1"`

	K8sPodName   string `env:"K8S_POD_NAME"`
	K8sNamespace string `env:"K8S_NAMESPACE"`
}
