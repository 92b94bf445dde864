// ABOUTME: UserContext produced by each authentication and its permission set
// ABOUTME: Provides WithUser/FromContext for propagating the identity through a tool call

package auth

import (
	"context"
	"sort"
)

// PermissionSet holds the capability names granted to a user.
type PermissionSet map[string]struct{}

// NewPermissionSet builds a set from a list of capability names.
func NewPermissionSet(perms ...string) PermissionSet {
	set := make(PermissionSet, len(perms))
	for _, p := range perms {
		set[p] = struct{}{}
	}
	return set
}

// Names returns the capabilities in sorted order.
func (s PermissionSet) Names() []string {
	out := make([]string, 0, len(s))
	for p := range s {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// UserContext is the identity resolved by one authentication round trip.
// It is never cached between tool invocations.
type UserContext struct {
	UserID      string // user.firebaseUid from the authentication response
	OrgID       string
	Role        int
	Permissions PermissionSet
	AccessToken string // short-lived, used for write procedures
}

// userContextKey is the key type for storing UserContext in context.Context.
type userContextKey struct{}

// WithUser returns a new context with the UserContext attached.
func WithUser(ctx context.Context, uc *UserContext) context.Context {
	return context.WithValue(ctx, userContextKey{}, uc)
}

// FromContext retrieves the UserContext from the context, returning nil if not present.
func FromContext(ctx context.Context) *UserContext {
	uc, _ := ctx.Value(userContextKey{}).(*UserContext)
	return uc
}
