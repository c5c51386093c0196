package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/tuanvumaihuynh/inventory-api/internal/apperr"
	"github.com/tuanvumaihuynh/inventory-api/internal/auth"
	"github.com/tuanvumaihuynh/inventory-api/internal/http/apierr"
)

type TokenVerifier interface {
	Verify(ctx context.Context, rawToken string) (auth.Claims, error)
}

// Authenticate rejects requests without a valid bearer access token with 401
// and stores the token claims in the request context.
func Authenticate(verifier TokenVerifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := verifier.Verify(r.Context(), bearerToken(r))
			if err != nil {
				challenge := "Bearer"
				if !errors.Is(err, auth.ErrMissingToken) {
					challenge = `Bearer error="invalid_token"`
				}

				logger.InfoContext(r.Context(), "unauthenticated request",
					slog.String("path", r.URL.Path),
					slog.Any("error", err),
				)

				w.Header().Set("WWW-Authenticate", challenge)
				if err := writeError(w, apierr.New(apperr.UnauthorizedErr)); err != nil {
					logger.WarnContext(r.Context(), "error encoding error response", slog.Any("error", err))
				}
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.NewContext(r.Context(), claims)))
		})
	}
}

func bearerToken(r *http.Request) string {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
