package access

import "context"

// Principal is the authenticated actor of a request. The zero value is
// anonymous.
type Principal struct {
	UserID int64
	Email  string
	Role   Role
}

// Anonymous is the principal of requests without a valid bearer token.
var Anonymous = Principal{}

func (p Principal) Authenticated() bool { return p.UserID != 0 }

// Is reports whether p is the user identified by userID.
func (p Principal) Is(userID int64) bool {
	return p.Authenticated() && p.UserID == userID
}

type ctxKey struct{}

// WithPrincipal stores p in ctx. Only the HTTP edge calls this.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

// FromContext returns the principal stored in ctx, or Anonymous.
func FromContext(ctx context.Context) Principal {
	if p, ok := ctx.Value(ctxKey{}).(Principal); ok {
		return p
	}
	return Anonymous
}
