package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"github.com/tuanvumaihuynh/inventory-api/internal/config"
)

var (
	ErrMissingToken     = errors.New("missing bearer token")
	ErrInvalidToken     = errors.New("invalid bearer token")
	ErrInvalidTokenType = errors.New("unexpected token type")
)

// ValidMethods are the signing algorithms accepted for access tokens.
var ValidMethods = []string{"RS256", "RS384", "RS512", "PS256", "ES256", "ES384"}

// Claims are the claims of a validated access token.
type Claims struct {
	jwt.RegisteredClaims

	ClientID string           `json:"client_id,omitempty"`
	Scope    jwt.ClaimStrings `json:"scope,omitempty"`
}

// Verifier validates bearer access tokens.
type Verifier struct {
	parser     *jwt.Parser
	keyfunc    jwt.Keyfunc
	tokenTypes []string
}

// NewVerifier creates a verifier resolving signing keys with keyfunc. The
// issuer is expected to equal cfg.Authority without a trailing slash.
func NewVerifier(cfg config.Auth, keyfunc jwt.Keyfunc) *Verifier {
	return newVerifier(cfg, normalizeAuthority(cfg.Authority), keyfunc)
}

func newVerifier(cfg config.Auth, issuer string, keyfunc jwt.Keyfunc) *Verifier {
	parser := jwt.NewParser(
		jwt.WithValidMethods(ValidMethods),
		jwt.WithIssuer(issuer),
		jwt.WithAudience(cfg.Audience),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(cfg.ClockSkew),
	)

	tokenType := strings.ToLower(cfg.TokenType)
	tokenTypes := []string{tokenType}
	if !strings.HasPrefix(tokenType, "application/") {
		tokenTypes = append(tokenTypes, "application/"+tokenType)
	}

	return &Verifier{
		parser:     parser,
		keyfunc:    keyfunc,
		tokenTypes: tokenTypes,
	}
}

// NewJWKSVerifier creates a verifier backed by the issuer's JWKS. The JWKS URL
// comes from cfg.JWKSURL or from the authority's discovery document. Keys are
// refreshed in the background until ctx is done. When the discovery document
// is used, its issuer is the expected token issuer.
func NewJWKSVerifier(ctx context.Context, cfg config.Auth) (*Verifier, error) {
	issuer := normalizeAuthority(cfg.Authority)
	jwksURL := cfg.JWKSURL
	if jwksURL == "" {
		discoveryCtx, cancel := context.WithTimeout(ctx, cfg.DiscoveryTimeout)
		defer cancel()

		doc, err := Discover(discoveryCtx, cfg.Authority, cfg.RequireHTTPSMetadata)
		if err != nil {
			return nil, fmt.Errorf("discover %s: %w", cfg.Authority, err)
		}
		if normalizeAuthority(doc.Issuer) != issuer {
			return nil, fmt.Errorf("discovered issuer %q does not match authority %q", doc.Issuer, cfg.Authority)
		}
		issuer = doc.Issuer
		jwksURL = doc.JWKSURI
	}

	if cfg.RequireHTTPSMetadata && !strings.HasPrefix(jwksURL, "https://") {
		return nil, fmt.Errorf("jwks url %q: %w", jwksURL, ErrInsecureMetadata)
	}

	k, err := keyfunc.NewDefaultCtx(ctx, []string{jwksURL})
	if err != nil {
		return nil, fmt.Errorf("create jwks keyfunc: %w", err)
	}

	return newVerifier(cfg, issuer, k.Keyfunc), nil
}

// Verify parses rawToken and validates its signature, issuer, audience,
// lifetime and token type.
func (v *Verifier) Verify(ctx context.Context, rawToken string) (Claims, error) {
	_, span := otel.Tracer("auth").Start(ctx, "auth.Verify")
	defer span.End()

	if rawToken == "" {
		span.SetStatus(codes.Error, ErrMissingToken.Error())
		return Claims{}, ErrMissingToken
	}

	var claims Claims
	token, err := v.parser.ParseWithClaims(rawToken, &claims, v.keyfunc)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "parse token")
		return Claims{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	typ, _ := token.Header["typ"].(string)
	if !v.acceptsType(typ) {
		span.SetStatus(codes.Error, ErrInvalidTokenType.Error())
		return Claims{}, fmt.Errorf("%w: %w %q", ErrInvalidToken, ErrInvalidTokenType, typ)
	}

	return claims, nil
}

func (v *Verifier) acceptsType(typ string) bool {
	typ = strings.ToLower(typ)
	for _, t := range v.tokenTypes {
		if typ == t {
			return true
		}
	}
	return false
}

func normalizeAuthority(authority string) string {
	return strings.TrimSuffix(authority, "/")
}
