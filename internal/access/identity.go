// Package access decides what an authenticated account may see and do.
// Every store call receives the acting Identity explicitly.
package access

import (
	"context"

	"github.com/ovaphlow/pitchfork/service-plaques-go/internal/apperr"
)

type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

func (r Role) Valid() bool { return r == RoleAdmin || r == RoleUser }

// Identity is the acting account of a request.
type Identity struct {
	AccountID string `json:"id"`
	Matricule string `json:"matricule"`
	Role      Role   `json:"role"`
	Province  string `json:"province"`
}

func (id Identity) IsAdmin() bool { return id.Role == RoleAdmin }

type ctxKeyIdentity struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKeyIdentity{}, id)
}

// FromContext returns the identity stored by the auth middleware.
func FromContext(ctx context.Context) (Identity, error) {
	id, ok := ctx.Value(ctxKeyIdentity{}).(Identity)
	if !ok {
		return Identity{}, apperr.ErrAuthentication
	}
	return id, nil
}
