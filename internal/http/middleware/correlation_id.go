package middleware

import (
	"net/http"

	"github.com/tuanvumaihuynh/inventory-api/pkg/correlationid"
)

// maxCorrelationIDLen bounds client supplied IDs before they reach logs and
// message headers.
const maxCorrelationIDLen = 128

// CorrelationID reuses the X-Correlation-ID request header or generates a new
// ID, echoes it on the response and stores it in the request context.
func CorrelationID() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(correlationid.Header)
			if id == "" || len(id) > maxCorrelationIDLen {
				id = correlationid.New()
			}

			w.Header().Set(correlationid.Header, id)
			next.ServeHTTP(w, r.WithContext(correlationid.NewContext(r.Context(), id)))
		})
	}
}
