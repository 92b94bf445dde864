// ABOUTME: Entry point for fieldtask-mcp, the MCP adapter for the field-service backend
// ABOUTME: Serves tools over stdio by default; operator subcommands for diagnostics

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/2389/fieldtask-mcp/internal/config"
	"github.com/2389/fieldtask-mcp/internal/mcp"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
  __ _      _     _ _            _
 / _(_) ___| | __| | |_ __ _ ___| | __
| |_| |/ _ \ |/ _' | __/ _' / __| |/ /
|  _| |  __/ | (_| | || (_| \__ \   <
|_| |_|\___|_|\__,_|\__\__,_|___/_|\_\
`

// options carries process-level inputs so commands can run against fakes in tests.
type options struct {
	configPath string
	lookup     config.LookupFunc
	stdin      io.Reader
	stdout     io.Writer
	stderr     io.Writer
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	opts := &options{
		lookup: os.LookupEnv,
		stdin:  os.Stdin,
		stdout: os.Stdout,
		stderr: os.Stderr,
	}

	if err := newRootCommand(opts).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand(opts *options) *cobra.Command {
	root := &cobra.Command{
		Use:           "fieldtask-mcp",
		Short:         "MCP server exposing field-service tasks and locations",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to a YAML or TOML config file (default $"+config.EnvConfigPath+")")

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Serve MCP over stdin/stdout (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), opts)
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "tools",
		Short: "Print the advertised tool definitions as JSON",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runTools(opts)
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "whoami",
		Short: "Authenticate with the configured credentials and show the resulting identity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWhoami(cmd.Context(), opts)
		},
	})

	var notes string
	completeCmd := &cobra.Command{
		Use:   "complete TASK_ID",
		Short: "Mark a task complete",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runComplete(cmd.Context(), opts, args[0], notes)
		},
	}
	completeCmd.Flags().StringVar(&notes, "notes", "", "completion notes")
	root.AddCommand(completeCmd)

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Fprintf(opts.stdout, "fieldtask-mcp %s\n", version)
		},
	})

	return root
}

func runServe(ctx context.Context, opts *options) error {
	// stdout is the protocol channel; everything human-facing goes to stderr.
	cyan := color.New(color.FgCyan)
	gray := color.New(color.FgHiBlack)
	green := color.New(color.FgGreen)

	cyan.Fprint(opts.stderr, banner)
	gray.Fprintf(opts.stderr, "    version: %s\n\n", version)

	a, err := newApp(opts)
	if err != nil {
		return err
	}

	green.Fprint(opts.stderr, "    ▶ ")
	fmt.Fprintf(opts.stderr, "Config:   %s\n", displayPath(a.configPath))
	green.Fprint(opts.stderr, "    ▶ ")
	fmt.Fprintf(opts.stderr, "Backend:  %s\n", a.cfg.Backend.BaseURL)
	green.Fprint(opts.stderr, "    ▶ ")
	fmt.Fprintf(opts.stderr, "Identity: %s\n\n", a.creds)

	server, err := mcp.NewServer(mcp.Config{
		Tools:   a.registry,
		Logger:  a.logger,
		Name:    a.cfg.Server.Name,
		Version: version,
	})
	if err != nil {
		return fmt.Errorf("creating MCP server: %w", err)
	}

	a.logger.Info("fieldtask-mcp ready",
		"tools", len(a.registry.List()),
		"base_url", a.cfg.Backend.BaseURL,
	)

	err = server.Run(ctx, opts.stdin, opts.stdout)
	if errors.Is(err, context.Canceled) {
		a.logger.Info("shutting down")
		return nil
	}
	return err
}

func displayPath(p string) string {
	if p == "" {
		return "(defaults)"
	}
	return p
}
