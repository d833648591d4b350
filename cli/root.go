// Package cli holds the deliveryctl commands. Every command opens the same persisted credential
// store, so a login survives between invocations.
package cli

import (
	"context"
	"fmt"

	"github.com/jrsteele09/go-delivery-console/auth"
	"github.com/jrsteele09/go-delivery-console/console"
	"github.com/jrsteele09/go-delivery-console/internal/config"
	"github.com/jrsteele09/go-delivery-console/internal/logging"
	"github.com/spf13/cobra"
)

const defaultNamespace = "cli"

// ExitError carries the process exit code for a failed command
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string {
	return e.Message
}

const (
	exitFailure       = 1
	exitNotSignedIn   = 2
	exitAuthRejected  = 3
	exitBackendFailed = 4
)

func exitError(code int, format string, args ...any) *ExitError {
	return &ExitError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// NewRootCmd builds the full command tree
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "deliveryctl",
		Short:        "Delivery console session tool",
		Long:         "deliveryctl signs in to the delivery backend, keeps the session between runs and checks page access.",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			cfg := config.New()
			level := cfg.GetLogLevel()
			if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
				level = "debug"
			}
			logging.ConfigureWriter(cmd.ErrOrStderr(), level, cfg.GetEnv())
		},
	}
	root.PersistentFlags().String("namespace", defaultNamespace, "Credential namespace, one signed-in user per namespace")
	root.PersistentFlags().Bool("verbose", false, "Enable debug logging")

	root.AddCommand(NewServeCmd())
	root.AddCommand(NewLoginCmd())
	root.AddCommand(NewLogoutCmd())
	root.AddCommand(NewStatusCmd())
	root.AddCommand(NewRefreshCmd())
	root.AddCommand(NewAccessCmd())
	root.AddCommand(NewDeliveriesCmd())
	root.AddCommand(NewTrackCmd())
	root.AddCommand(NewDeliveryCmd())
	root.AddCommand(NewDriverCmd())
	root.AddCommand(NewVehicleCmd())
	return root
}

// openConsole builds a console over the configured credential store. The returned func tears it
// down and releases the store.
func openConsole(ctx context.Context, cmd *cobra.Command) (*console.Console, func(), error) {
	cfg := config.New()
	repos, closeRepos, err := console.OpenRepos(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("opening credential store: %w", err)
	}
	namespace, _ := cmd.Flags().GetString("namespace")
	if namespace == "" {
		namespace = defaultNamespace
	}

	c, err := console.New(console.SettingsFrom(cfg), repos(namespace), console.WithSessionID(namespace))
	if err != nil {
		_ = closeRepos()
		return nil, nil, err
	}
	return c, func() {
		c.Teardown()
		_ = closeRepos()
	}, nil
}

// authExit maps a controller error onto a user facing exit error
func authExit(err error) *ExitError {
	switch auth.Kind(err) {
	case auth.KindValidationFailure:
		return exitError(exitFailure, "%v", err)
	case auth.KindInvalidCredentials:
		return exitError(exitAuthRejected, "invalid email or password")
	case auth.KindAccountSuspended:
		return exitError(exitAuthRejected, "account is suspended or inactive")
	case auth.KindUnauthorized:
		return exitError(exitNotSignedIn, "session expired, sign in again")
	case auth.KindNetworkFailure:
		return exitError(exitBackendFailed, "unable to reach the server: %v", err)
	default:
		return exitError(exitFailure, "%v", err)
	}
}
