package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hallway-dev/hallway/pkg/server"
	"github.com/hallway-dev/hallway/pkg/state"
)

func serveCmd() *cobra.Command {
	var (
		configPath string
		httpAddr   string
		tcpAddr    string
		logLevel   string
		logJSON    bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the server",
		Long: `Start the hallway server.

Listens for WebSocket clients on the HTTP address and for raw TCP
clients on the TCP address. Sessions and rooms declared in the config
file are created before the listeners open.

Examples:
  hallwayd serve
  hallwayd serve --config=hallway.yaml
  hallwayd serve --http=:8080 --tcp=""`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configPath, httpAddr, tcpAddr, logLevel, logJSON)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to YAML config file")
	cmd.Flags().StringVar(&httpAddr, "http", "", "HTTP listen address override")
	cmd.Flags().StringVar(&tcpAddr, "tcp", "", "TCP listen address override (empty string in config disables)")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	cmd.Flags().BoolVar(&logJSON, "log-json", false, "Emit logs as JSON")

	return cmd
}

func runServe(configPath, httpAddr, tcpAddr, logLevel string, logJSON bool) error {
	cfg := server.DefaultConfig()
	if configPath != "" {
		loaded, err := server.LoadConfig(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if httpAddr != "" {
		cfg.HTTPAddr = httpAddr
	}
	if tcpAddr != "" {
		cfg.TCPAddr = tcpAddr
	}

	logger, err := newLogger(logLevel, logJSON)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	registry := state.NewRegistry(cfg.MaxUsers, logger)
	if err := server.BootstrapSessions(registry, cfg.Sessions); err != nil {
		return err
	}

	srv, err := server.New(cfg, registry, logger, nil)
	if err != nil {
		return err
	}
	if err := srv.Start(); err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("shutting down on signal", "signal", sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(ctx)
}

func newLogger(level string, asJSON bool) (*slog.Logger, error) {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		return nil, fmt.Errorf("unknown log level %q", level)
	}

	opts := &slog.HandlerOptions{Level: lvl}
	if asJSON {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts)), nil
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts)), nil
}
