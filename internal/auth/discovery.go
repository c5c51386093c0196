package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const discoveryPath = "/.well-known/openid-configuration"

var ErrInsecureMetadata = errors.New("metadata address must use https")

// DiscoveryDocument holds the fields of an OpenID provider configuration
// needed to validate access tokens.
type DiscoveryDocument struct {
	Issuer  string `json:"issuer"`
	JWKSURI string `json:"jwks_uri"`
}

// Discover fetches the OpenID provider configuration of authority.
func Discover(ctx context.Context, authority string, requireHTTPS bool) (DiscoveryDocument, error) {
	authority = normalizeAuthority(authority)
	if requireHTTPS && !strings.HasPrefix(authority, "https://") {
		return DiscoveryDocument{}, ErrInsecureMetadata
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, authority+discoveryPath, nil)
	if err != nil {
		return DiscoveryDocument{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return DiscoveryDocument{}, fmt.Errorf("fetch discovery document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		//nolint:errcheck
		io.Copy(io.Discard, resp.Body)
		return DiscoveryDocument{}, fmt.Errorf("fetch discovery document: unexpected status %d", resp.StatusCode)
	}

	var doc DiscoveryDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return DiscoveryDocument{}, fmt.Errorf("decode discovery document: %w", err)
	}

	if doc.JWKSURI == "" {
		return DiscoveryDocument{}, errors.New("discovery document has no jwks_uri")
	}

	return doc, nil
}
