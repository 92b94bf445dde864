// ABOUTME: Authenticator exchanging configured identifiers for a UserContext
// ABOUTME: One remote round trip per tool invocation; results are never memoized

package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/2389/fieldtask-mcp/internal/config"
	"github.com/2389/fieldtask-mcp/internal/rpc"
)

// AuthenticationError reports a failed or unsuccessful authentication round trip.
// Err carries the underlying cause when there is one (e.g. *rpc.RemoteCallError).
type AuthenticationError struct {
	Reason string
	Err    error
}

func (e *AuthenticationError) Error() string {
	return "authentication failed: " + e.Reason
}

func (e *AuthenticationError) Unwrap() error { return e.Err }

type authRequest struct {
	UserID string `json:"userId"`
	OrgID  string `json:"orgId"`
}

type authResponse struct {
	Success       *bool     `json:"success"`
	User          *authUser `json:"user"`
	FirebaseToken string    `json:"firebaseToken"`
}

type authUser struct {
	FirebaseUID string   `json:"firebaseUid"`
	OrgID       string   `json:"orgId"`
	Role        int      `json:"role"`
	Permissions []string `json:"permissions"`
}

// Authenticator resolves Credentials into a fresh UserContext.
type Authenticator struct {
	invoker   rpc.Invoker
	procedure string
	logger    *slog.Logger
	now       func() time.Time
}

// NewAuthenticator creates an Authenticator calling procedure through invoker.
func NewAuthenticator(invoker rpc.Invoker, procedure string, logger *slog.Logger) *Authenticator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Authenticator{
		invoker:   invoker,
		procedure: procedure,
		logger:    logger,
		now:       time.Now,
	}
}

// Authenticate calls the authentication procedure with {userId, orgId}.
// The durable token is not part of the payload.
func (a *Authenticator) Authenticate(ctx context.Context, creds config.Credentials) (*UserContext, error) {
	raw, err := a.invoker.Invoke(ctx, a.procedure, authRequest{
		UserID: creds.UserID,
		OrgID:  creds.OrgID,
	})
	if err != nil {
		var rce *rpc.RemoteCallError
		if errors.As(err, &rce) {
			return nil, &AuthenticationError{Reason: fmt.Sprintf("backend returned status %d", rce.StatusCode), Err: err}
		}
		return nil, &AuthenticationError{Reason: "authentication service unreachable", Err: err}
	}

	var resp authResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, &AuthenticationError{Reason: "malformed authentication response", Err: err}
	}

	if resp.Success == nil || !*resp.Success {
		return nil, &AuthenticationError{Reason: "backend reported unsuccessful authentication"}
	}
	if resp.User == nil || resp.User.FirebaseUID == "" {
		return nil, &AuthenticationError{Reason: "authentication response missing user"}
	}

	orgID := resp.User.OrgID
	if orgID == "" {
		orgID = creds.OrgID
	}

	uc := &UserContext{
		UserID:      resp.User.FirebaseUID,
		OrgID:       orgID,
		Role:        resp.User.Role,
		Permissions: NewPermissionSet(resp.User.Permissions...),
		AccessToken: resp.FirebaseToken,
	}

	a.logAccessToken(uc)

	return uc, nil
}

func (a *Authenticator) logAccessToken(uc *UserContext) {
	attrs := []any{
		"user_id", uc.UserID,
		"org_id", uc.OrgID,
		"role", uc.Role,
		"permissions", uc.Permissions.Names(),
	}

	if uc.AccessToken == "" {
		a.logger.Debug("authenticated without access token", attrs...)
		return
	}

	attrs = append(attrs, "access_token", Redact(uc.AccessToken))
	info, err := InspectToken(uc.AccessToken)
	if err != nil {
		a.logger.Debug("authenticated", append(attrs, "token_claims", err.Error())...)
		return
	}

	attrs = append(attrs, "token_expires_in", info.ExpiresAt.Sub(a.now()).Round(time.Second))
	if !info.ExpiresAt.After(a.now()) {
		a.logger.Warn("backend issued an already expired access token", attrs...)
		return
	}
	a.logger.Debug("authenticated", attrs...)
}
