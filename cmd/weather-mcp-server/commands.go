// file: cmd/weather-mcp-server/commands.go
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"

	"github.com/cockroachdb/errors"
	"github.com/marekdano/weather-mcp-server/internal/config"
	"github.com/marekdano/weather-mcp-server/internal/logging"
	"github.com/marekdano/weather-mcp-server/internal/secrets"
	"github.com/marekdano/weather-mcp-server/internal/server"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	serve := newServeCmd(opts)

	root := &cobra.Command{
		Use:           "weather-mcp-server",
		Short:         "MCP server exposing add, getWeather and a greeting resource over HTTP",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          serve.RunE,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to YAML configuration file")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error); overrides configuration")

	root.AddCommand(serve, newAPIKeyCmd(), newVersionCmd())
	return root
}

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP HTTP listener",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, opts)
		},
	}
}

func runServe(ctx context.Context, opts *rootOptions) error {
	logging.SetupDefaultLogger(firstNonEmpty(opts.logLevel, "info"))
	logger := logging.GetLogger("main")

	cfg, err := config.Load(config.Options{
		Path: opts.configPath,
		Keys: secrets.NewKeyringStore(logging.GetLogger("secrets")),
	})
	if err != nil {
		logger.Error("Failed to load configuration.", "error", fmt.Sprintf("%+v", err))
		return err
	}
	if opts.logLevel == "" {
		logging.SetLevel(logging.ParseLevel(cfg.Logging.Level))
	}

	logger.Info("Starting weather MCP server.",
		"version", Version,
		"commit", commitHash,
		"config_path", opts.configPath,
		"api_key_source", cfg.APIKeySource)

	srv, err := server.New(cfg, logging.GetLogger("server"))
	if err != nil {
		logger.Error("Failed to build server.", "error", fmt.Sprintf("%+v", err))
		return err
	}
	if err := srv.Run(ctx); err != nil {
		logger.Error("Server failed.", "error", fmt.Sprintf("%+v", err))
		return err
	}
	return nil
}

func newAPIKeyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apikey",
		Short: "Manage the OpenWeatherMap API key stored in the OS keyring",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set [key]",
		Short: "Store the API key; reads it from stdin when not given",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := keyFromArgs(args, cmd.InOrStdin())
			if err != nil {
				return err
			}
			if err := secrets.NewKeyringStore(logging.GetLogger("secrets")).SaveAPIKey(key); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "API key stored in system keyring.")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete",
		Short: "Remove the stored API key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := secrets.NewKeyringStore(logging.GetLogger("secrets")).DeleteAPIKey(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "API key removed from system keyring.")
			return nil
		},
	})
	return cmd
}

func keyFromArgs(args []string, in io.Reader) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", errors.Wrap(err, "failed to read API key from stdin")
	}
	return strings.TrimSpace(line), nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "weather-mcp-server %s (commit %s, built %s)\n", Version, commitHash, buildDate)
		},
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
