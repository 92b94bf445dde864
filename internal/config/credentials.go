// ABOUTME: Credential loading from the process environment
// ABOUTME: Fails fast with ConfigurationError before any network call is attempted

package config

import (
	"fmt"
	"os"
	"strings"
)

// Environment variables holding the credentials. All three are required.
const (
	EnvToken  = "FIELDTASK_TOKEN"
	EnvOrgID  = "FIELDTASK_ORG_ID"
	EnvUserID = "FIELDTASK_USER_ID"
)

// ConfigurationError reports a required configuration value that is missing or empty.
type ConfigurationError struct {
	Variable string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: required environment variable %s is not set", e.Variable)
}

// Credentials identify the single user/org this process acts for.
// They are loaded once at startup and never modified.
type Credentials struct {
	Token  string
	OrgID  string
	UserID string
}

// String keeps the durable token out of logs.
func (c Credentials) String() string {
	return fmt.Sprintf("Credentials{OrgID:%s UserID:%s Token:%s}", c.OrgID, c.UserID, maskToken(c.Token))
}

// LookupFunc matches os.LookupEnv so tests can supply a fixed environment.
type LookupFunc func(key string) (string, bool)

// LoadCredentials reads the three credential variables using lookup.
// A nil lookup reads the real process environment.
func LoadCredentials(lookup LookupFunc) (Credentials, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}

	get := func(key string) (string, error) {
		v, ok := lookup(key)
		v = strings.TrimSpace(v)
		if !ok || v == "" {
			return "", &ConfigurationError{Variable: key}
		}
		return v, nil
	}

	token, err := get(EnvToken)
	if err != nil {
		return Credentials{}, err
	}
	orgID, err := get(EnvOrgID)
	if err != nil {
		return Credentials{}, err
	}
	userID, err := get(EnvUserID)
	if err != nil {
		return Credentials{}, err
	}

	return Credentials{Token: token, OrgID: orgID, UserID: userID}, nil
}

func maskToken(token string) string {
	if len(token) <= 8 {
		return "***"
	}
	return token[:4] + "..." + token[len(token)-4:]
}
