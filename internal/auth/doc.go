// Package auth resolves the configured identity into a UserContext and gates
// tool operations on the capabilities it carries.
//
// # Authentication
//
// Authenticator.Authenticate makes one call to the backend's authentication
// procedure with {userId, orgId}. A response of the form
//
//	{"success": true,
//	 "user": {"firebaseUid": "...", "orgId": "...", "role": 2, "permissions": ["view_all_tasks"]},
//	 "firebaseToken": "..."}
//
// becomes a UserContext. Anything else is an *AuthenticationError. The result
// is never cached: every tool invocation authenticates again, so permission
// changes on the backend apply to the very next call.
//
// # Permission Gate
//
// RequireAny passes when the user holds at least one of the listed
// capabilities and otherwise returns an *AuthorizationError. Tools call it
// before issuing their data request.
//
// # Tokens
//
// Access tokens are only ever logged through Redact. InspectToken reads JWT
// claims without verification to report expiry on the diagnostic stream.
package auth
