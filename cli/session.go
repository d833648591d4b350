package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

const passwordEnvVar = "DELIVERYCTL_PASSWORD"

func NewLoginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session",
		Args:  cobra.NoArgs,
		RunE:  runLogin,
	}
	cmd.Flags().String("email", "", "Account email")
	cmd.Flags().String("password", "", "Account password (visible to other users, prefer --password-stdin or "+passwordEnvVar+")")
	cmd.Flags().Bool("password-stdin", false, "Read the password from the first line of stdin")
	cmd.MarkFlagsMutuallyExclusive("password", "password-stdin")
	return cmd
}

func runLogin(cmd *cobra.Command, _ []string) error {
	email, _ := cmd.Flags().GetString("email")
	password, err := loginPassword(cmd)
	if err != nil {
		return exitError(exitFailure, "%v", err)
	}
	ctx := cmd.Context()

	c, closeConsole, err := openConsole(ctx, cmd)
	if err != nil {
		return err
	}
	defer closeConsole()

	user, err := c.Auth.Login(ctx, email, password)
	if err != nil {
		return authExit(err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s (%s)\n", user.Email, user.Role)
	return nil
}

// loginPassword takes the password from stdin, the --password flag or the environment, in that order.
func loginPassword(cmd *cobra.Command) (string, error) {
	if fromStdin, _ := cmd.Flags().GetBool("password-stdin"); fromStdin {
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", fmt.Errorf("reading password from stdin: %w", err)
		}
		return strings.TrimRight(line, "\r\n"), nil
	}
	if cmd.Flags().Changed("password") {
		password, _ := cmd.Flags().GetString("password")
		return password, nil
	}
	return os.Getenv(passwordEnvVar), nil
}

func NewLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			c, closeConsole, err := openConsole(ctx, cmd)
			if err != nil {
				return err
			}
			defer closeConsole()

			c.Auth.Logout(ctx)
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
			return nil
		},
	}
}

// NewStatusCmd restores the stored session and confirms it with the backend
func NewStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the signed in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			c, closeConsole, err := openConsole(ctx, cmd)
			if err != nil {
				return err
			}
			defer closeConsole()

			if !c.Init(ctx) {
				return exitError(exitNotSignedIn, "not signed in")
			}
			u := c.Session.Snapshot().User
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "User:   %s <%s>\n", u.FullName(), u.Email)
			fmt.Fprintf(out, "Role:   %s\n", u.Role)
			fmt.Fprintf(out, "Status: %s\n", u.Status)
			fmt.Fprintf(out, "Server: %s\n", c.Client.BaseURL())
			return nil
		},
	}
}

func NewRefreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Exchange the stored refresh token for a new token pair",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			c, closeConsole, err := openConsole(ctx, cmd)
			if err != nil {
				return err
			}
			defer closeConsole()

			if err := c.Auth.RefreshToken(ctx); err != nil {
				return authExit(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Token refreshed")
			return nil
		},
	}
}

// NewAccessCmd reports what the console would do when navigating to a path
func NewAccessCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "access <path>",
		Short: "Show the route guard decision for a path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c, closeConsole, err := openConsole(ctx, cmd)
			if err != nil {
				return err
			}
			defer closeConsole()

			c.Init(ctx)
			d := c.Resolve(args[0])
			if d.Location != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s\n", d.Verdict, d.Location)
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), d.Verdict)
			return nil
		},
	}
}
