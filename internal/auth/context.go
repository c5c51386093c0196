package auth

import "context"

type claimsCtxKey struct{}

func NewContext(ctx context.Context, claims Claims) context.Context {
	return context.WithValue(ctx, claimsCtxKey{}, claims)
}

// ClaimsFromContext returns the claims of the authenticated caller, if any.
func ClaimsFromContext(ctx context.Context) (Claims, bool) {
	claims, ok := ctx.Value(claimsCtxKey{}).(Claims)
	return claims, ok
}
