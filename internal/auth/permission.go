// ABOUTME: Permission gate checked before any data procedure is called
// ABOUTME: Pure set membership; a tool passes when any one of its capabilities is held

package auth

import (
	"fmt"
	"strings"
)

// Capability names issued by the backend.
const (
	PermViewAssignedTasks = "view_assigned_tasks"
	PermViewAllTasks      = "view_all_tasks"
	PermViewAllLocations  = "view_all_locations"
	PermManageLocations   = "manage_locations"
	PermCompleteTasks     = "complete_tasks"
)

// AuthorizationError reports an authenticated user lacking every required capability.
type AuthorizationError struct {
	Required []string
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("permission denied: requires one of %s", strings.Join(e.Required, ", "))
}

// HasPermission reports whether required is in granted.
func HasPermission(granted PermissionSet, required string) bool {
	_, ok := granted[required]
	return ok
}

// RequireAny returns nil if uc holds at least one of the required capabilities,
// otherwise an *AuthorizationError.
func RequireAny(uc *UserContext, required ...string) error {
	if uc != nil {
		for _, r := range required {
			if HasPermission(uc.Permissions, r) {
				return nil
			}
		}
	}
	return &AuthorizationError{Required: required}
}
