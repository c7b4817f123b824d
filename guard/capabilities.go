package guard

import (
	"context"

	"github.com/jrsteele09/go-admin-auth/session"
)

const RoleAdmin = "admin"

// PermissionPolicy answers HasPermission. It must be a pure function of the state.
type PermissionPolicy func(s session.State, permission string) bool

// AdminPermissionPolicy grants every permission to an authenticated admin and nothing
// to anyone else.
func AdminPermissionPolicy(s session.State, _ string) bool {
	return s.IsAuthenticated && s.Role() == RoleAdmin
}

// Capabilities is the synchronous capability check handed to guarded content.
type Capabilities struct {
	state      session.State
	permission PermissionPolicy
}

func NewCapabilities(s session.State, permission PermissionPolicy) Capabilities {
	if permission == nil {
		permission = AdminPermissionPolicy
	}
	return Capabilities{state: s, permission: permission}
}

func (c Capabilities) RequireRole(role string) bool {
	return c.state.IsAuthenticated && c.state.Role() == role
}

func (c Capabilities) HasPermission(permission string) bool {
	return c.permission(c.state, permission)
}

func (c Capabilities) IsAuthenticated() bool {
	return c.state.IsAuthenticated
}

// Username is the signed in user's name, or "".
func (c Capabilities) Username() string {
	if c.state.User == nil {
		return ""
	}
	return c.state.User.Username
}

func (c Capabilities) Role() string {
	return c.state.Role()
}

type capabilitiesKey struct{}

func WithCapabilities(ctx context.Context, c Capabilities) context.Context {
	return context.WithValue(ctx, capabilitiesKey{}, c)
}

// CapabilitiesFrom returns the capabilities stored by the guard middleware. Outside a
// guarded request it returns capabilities that deny everything.
func CapabilitiesFrom(ctx context.Context) Capabilities {
	if c, ok := ctx.Value(capabilitiesKey{}).(Capabilities); ok {
		return c
	}
	return NewCapabilities(session.State{}, nil)
}
