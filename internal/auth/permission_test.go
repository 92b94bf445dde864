package auth

import (
	"errors"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasPermission(t *testing.T) {
	granted := NewPermissionSet(PermViewAssignedTasks, PermManageLocations)

	assert.True(t, HasPermission(granted, PermViewAssignedTasks))
	assert.True(t, HasPermission(granted, PermManageLocations))
	assert.False(t, HasPermission(granted, PermViewAllTasks))
	assert.False(t, HasPermission(nil, PermViewAllTasks))
}

func TestRequireAny(t *testing.T) {
	uc := &UserContext{Permissions: NewPermissionSet(PermViewAllTasks)}

	assert.NoError(t, RequireAny(uc, PermViewAssignedTasks, PermViewAllTasks))

	err := RequireAny(uc, PermViewAllLocations, PermManageLocations)
	var authzErr *AuthorizationError
	require.True(t, errors.As(err, &authzErr))
	assert.Equal(t, []string{PermViewAllLocations, PermManageLocations}, authzErr.Required)
	assert.Contains(t, err.Error(), "view_all_locations, manage_locations")
}

func TestRequireAny_NilUser(t *testing.T) {
	var authzErr *AuthorizationError
	assert.True(t, errors.As(RequireAny(nil, PermViewAllTasks), &authzErr))
}

func TestPermissionSet_Names(t *testing.T) {
	set := NewPermissionSet("b", "a", "c", "a")
	assert.Equal(t, []string{"a", "b", "c"}, set.Names())
}

// TestRequireAnyProperties checks the gate is exactly "any required is granted".
func TestRequireAnyProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	capability := gen.OneConstOf(
		PermViewAssignedTasks, PermViewAllTasks, PermViewAllLocations,
		PermManageLocations, PermCompleteTasks,
	)

	properties.Property("gate passes iff intersection is non-empty", prop.ForAll(
		func(granted, required []string) bool {
			uc := &UserContext{Permissions: NewPermissionSet(granted...)}
			want := false
			for _, r := range required {
				for _, g := range granted {
					if r == g {
						want = true
					}
				}
			}
			return (RequireAny(uc, required...) == nil) == want
		},
		gen.SliceOf(capability),
		gen.SliceOf(capability),
	))

	properties.Property("gate never mutates the granted set", prop.ForAll(
		func(granted, required []string) bool {
			uc := &UserContext{Permissions: NewPermissionSet(granted...)}
			before := uc.Permissions.Names()
			_ = RequireAny(uc, required...)
			after := uc.Permissions.Names()
			if len(before) != len(after) {
				return false
			}
			for i := range before {
				if before[i] != after[i] {
					return false
				}
			}
			return true
		},
		gen.SliceOf(capability),
		gen.SliceOf(capability),
	))

	properties.TestingRun(t)
}
