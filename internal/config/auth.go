package config

import "time"

// Auth configures validation of bearer access tokens issued by the external
// identity provider.
type Auth struct {
	// Authority is the issuer URL. Its OIDC discovery document supplies the JWKS location.
	Authority string `env:"AUTH_AUTHORITY,required"`
	Audience  string `env:"AUTH_AUDIENCE" envDefault:"api1"`
	TokenType string `env:"AUTH_TOKEN_TYPE" envDefault:"at+jwt"`

	// JWKSURL skips discovery when set.
	JWKSURL string `env:"AUTH_JWKS_URL"`

	RequireHTTPSMetadata bool          `env:"AUTH_REQUIRE_HTTPS_METADATA" envDefault:"false"`
	ClockSkew            time.Duration `env:"AUTH_CLOCK_SKEW" envDefault:"5m"`
	DiscoveryTimeout     time.Duration `env:"AUTH_DISCOVERY_TIMEOUT" envDefault:"10s"`
}
