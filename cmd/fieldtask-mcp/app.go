// ABOUTME: Wiring of config, credentials, backend clients and the tool registry
// ABOUTME: Also holds the operator subcommands that reuse the same wiring

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/2389/fieldtask-mcp/internal/auth"
	"github.com/2389/fieldtask-mcp/internal/config"
	"github.com/2389/fieldtask-mcp/internal/fieldops"
	"github.com/2389/fieldtask-mcp/internal/logging"
	"github.com/2389/fieldtask-mcp/internal/rpc"
	"github.com/2389/fieldtask-mcp/internal/tools"
)

type app struct {
	configPath string
	cfg        *config.Config
	creds      config.Credentials
	logger     *slog.Logger
	auth       *auth.Authenticator
	field      *fieldops.Client
	registry   *tools.Registry
}

// resolveConfigPath returns the --config flag value, falling back to $FIELDTASK_CONFIG.
func resolveConfigPath(opts *options) string {
	if opts.configPath != "" {
		return opts.configPath
	}
	if v, ok := opts.lookup(config.EnvConfigPath); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

// newApp loads configuration and credentials and builds every collaborator.
// A missing credential variable is returned as *config.ConfigurationError.
func newApp(opts *options) (*app, error) {
	path := resolveConfigPath(opts)

	cfg, err := config.Load(path, opts.lookup)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	logger := logging.New(cfg.Logging, opts.stderr)

	creds, err := config.LoadCredentials(opts.lookup)
	if err != nil {
		return nil, err
	}

	rc, err := rpc.NewClient(rpc.Config{BaseURL: cfg.Backend.BaseURL, Logger: logger})
	if err != nil {
		return nil, fmt.Errorf("creating backend client: %w", err)
	}

	procs := cfg.Backend.Procedures
	authenticator := auth.NewAuthenticator(rc, procs.Authenticate, logger)
	field := fieldops.NewClient(rc, fieldops.Procedures{
		Tasks:        procs.Tasks,
		Locations:    procs.Locations,
		CompleteTask: procs.CompleteTask,
	}, logger)

	registry, err := tools.NewDefaultRegistry(tools.Deps{
		Auth:        authenticator,
		Field:       field,
		Credentials: creds,
		Logger:      logger,
	})
	if err != nil {
		return nil, fmt.Errorf("registering tools: %w", err)
	}

	return &app{
		configPath: path,
		cfg:        cfg,
		creds:      creds,
		logger:     logger,
		auth:       authenticator,
		field:      field,
		registry:   registry,
	}, nil
}

func runTools(opts *options) error {
	a, err := newApp(opts)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(opts.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(a.registry.List())
}

func runWhoami(ctx context.Context, opts *options) error {
	a, err := newApp(opts)
	if err != nil {
		return err
	}

	uc, err := a.auth.Authenticate(ctx, a.creds)
	if err != nil {
		return err
	}

	fmt.Fprintf(opts.stdout, "User:         %s\n", uc.UserID)
	fmt.Fprintf(opts.stdout, "Organization: %s\n", uc.OrgID)
	fmt.Fprintf(opts.stdout, "Role:         %d\n", uc.Role)
	fmt.Fprintf(opts.stdout, "Permissions:  %s\n", strings.Join(uc.Permissions.Names(), ", "))

	if uc.AccessToken == "" {
		fmt.Fprintln(opts.stdout, "Access token: (none)")
		return nil
	}
	fmt.Fprintf(opts.stdout, "Access token: %s\n", auth.Redact(uc.AccessToken))
	if info, err := auth.InspectToken(uc.AccessToken); err == nil {
		fmt.Fprintf(opts.stdout, "Expires:      %s (in %s)\n",
			info.ExpiresAt.Format(time.RFC3339), time.Until(info.ExpiresAt).Round(time.Second))
	}
	return nil
}

func runComplete(ctx context.Context, opts *options, taskID, notes string) error {
	a, err := newApp(opts)
	if err != nil {
		return err
	}

	uc, err := a.auth.Authenticate(ctx, a.creds)
	if err != nil {
		return err
	}
	if err := auth.RequireAny(uc, auth.PermCompleteTasks); err != nil {
		return err
	}

	outcome, err := a.field.CompleteTask(ctx, fieldops.CompletionRequest{
		TaskID:          taskID,
		CompletionNotes: notes,
		UserID:          uc.UserID,
		AccessToken:     uc.AccessToken,
	})
	if err != nil {
		return err
	}
	if !outcome.Success {
		return errors.New(outcome.Message)
	}

	fmt.Fprintln(opts.stdout, outcome.Message)
	return nil
}
