package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/go-delivery-console/console"
	"github.com/jrsteele09/go-delivery-console/internal/config"
	"github.com/jrsteele09/go-delivery-console/server"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

// NewServeCmd starts the navigation shell
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the console's navigation shell over HTTP",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
	cmd.Flags().String("addr", "", "Listen address (default from PORT)")
	cmd.Flags().Bool("circuit-breaker", false, "Stop calling the backend after repeated failures")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cfg := config.New()
	addr, _ := cmd.Flags().GetString("addr")
	if addr == "" {
		addr = cfg.GetPort()
	}
	breaker, _ := cmd.Flags().GetBool("circuit-breaker")

	repos, closeRepos, err := console.OpenRepos(ctx, cfg)
	if err != nil {
		return fmt.Errorf("opening credential store: %w", err)
	}
	defer func() {
		if err := closeRepos(); err != nil {
			log.Warn().Err(err).Msg("Failed to close credential store")
		}
	}()

	settings := console.SettingsFrom(cfg)
	settings.CircuitBreaker = breaker
	shell, err := server.New(cfg, settings, repos)
	if err != nil {
		return err
	}
	defer shell.Close()

	displayAppname(cfg.GetAppName())
	httpServer := &http.Server{Addr: addr, Handler: shell, ReadHeaderTimeout: 10 * time.Second}

	errs := make(chan error, 1)
	go func() {
		errs <- listenAndServe(httpServer)
	}()

	select {
	case err := <-errs:
		return err
	case <-waitForStopSignal(ctx):
	}
	return shutdown(httpServer)
}

func listenAndServe(server *http.Server) error {
	log.Info().Str("addr", server.Addr).Msg("Server listening")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal(ctx context.Context) <-chan struct{} {
	stop := make(chan struct{})
	go func() {
		defer close(stop)
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(sig)
		select {
		case <-sig:
		case <-ctx.Done():
		}
	}()
	return stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	log.Info().Msg("Server stopped")
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
