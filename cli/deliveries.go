package cli

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"text/tabwriter"

	"github.com/jrsteele09/go-delivery-console/api"
	"github.com/jrsteele09/go-delivery-console/console"
	"github.com/jrsteele09/go-delivery-console/deliverymodel"
	"github.com/spf13/cobra"
)

func NewDeliveriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deliveries",
		Short: "List deliveries visible to the signed in user",
		Args:  cobra.NoArgs,
		RunE:  runDeliveries,
	}
	cmd.Flags().String("status", "", "Filter by delivery status, e.g. IN_TRANSIT")
	cmd.Flags().String("driver", "", "Filter by driver ID")
	cmd.Flags().String("city", "", "Filter by pickup or delivery city")
	return cmd
}

func runDeliveries(cmd *cobra.Command, _ []string) error {
	status, _ := cmd.Flags().GetString("status")
	driver, _ := cmd.Flags().GetString("driver")
	city, _ := cmd.Flags().GetString("city")
	ctx := cmd.Context()

	c, closeConsole, err := openConsole(ctx, cmd)
	if err != nil {
		return err
	}
	defer closeConsole()

	if err := c.Auth.EnsureFreshToken(ctx); err != nil {
		return authExit(err)
	}
	deliveries, err := c.Client.ListDeliveries(ctx, deliverymodel.DeliveryFilters{
		Status:   deliverymodel.DeliveryStatus(strings.ToUpper(status)),
		DriverID: driver,
		City:     city,
	})
	if err != nil {
		return dataExit(c, err)
	}
	return printDeliveries(cmd.OutOrStdout(), deliveries)
}

// NewTrackCmd looks up a delivery by tracking number. No sign in is needed.
func NewTrackCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "track <number>",
		Short: "Track a delivery",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c, closeConsole, err := openConsole(ctx, cmd)
			if err != nil {
				return err
			}
			defer closeConsole()

			d, err := c.Client.TrackDelivery(ctx, args[0])
			if err != nil {
				if api.StatusCode(err) == http.StatusNotFound {
					return exitError(exitFailure, "no delivery with tracking number %s", args[0])
				}
				return dataExit(c, err)
			}
			printDelivery(cmd.OutOrStdout(), d)
			return nil
		},
	}
}

func printDelivery(out io.Writer, d *deliverymodel.Delivery) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "Tracking:\t%s\n", d.TrackingNumber)
	fmt.Fprintf(w, "Status:\t%s\n", d.Status)
	fmt.Fprintf(w, "From:\t%s, %s\n", d.PickupAddress, d.PickupCity)
	fmt.Fprintf(w, "To:\t%s, %s\n", d.DeliveryAddress, d.DeliveryCity)
	if d.Status.Terminal() {
		fmt.Fprintf(w, "Completed:\t%s\n", dash(d.DeliveryTime))
	}
	_ = w.Flush()
}

// dataExit reports a failed data call. A rejected session has already been cleared by the console.
func dataExit(c *console.Console, err error) *ExitError {
	if _, signedOut := c.TakeRedirect(); signedOut || errors.Is(err, api.ErrUnauthorized) {
		return exitError(exitNotSignedIn, "session expired, sign in again")
	}
	if errors.Is(err, api.ErrNetworkFailure) {
		return exitError(exitBackendFailed, "unable to reach the server: %v", err)
	}
	return exitError(exitBackendFailed, "request failed: %v", err)
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
