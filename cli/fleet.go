package cli

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"text/tabwriter"

	"github.com/jrsteele09/go-delivery-console/api"
	"github.com/jrsteele09/go-delivery-console/auth"
	"github.com/jrsteele09/go-delivery-console/console"
	"github.com/jrsteele09/go-delivery-console/deliverymodel"
	"github.com/jrsteele09/go-delivery-console/internal/utils"
	"github.com/spf13/cobra"
)

// signedIn runs fn against the stored session after refreshing a token that is about to expire.
func signedIn(cmd *cobra.Command, fn func(ctx context.Context, c *console.Console) error) error {
	ctx := cmd.Context()
	c, closeConsole, err := openConsole(ctx, cmd)
	if err != nil {
		return err
	}
	defer closeConsole()

	if err := c.Auth.EnsureFreshToken(ctx); err != nil {
		return authExit(err)
	}
	if err := fn(ctx, c); err != nil {
		if api.StatusCode(err) == http.StatusNotFound {
			return exitError(exitFailure, "not found: %v", err)
		}
		return dataExit(c, err)
	}
	return nil
}

func NewDeliveryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delivery",
		Short: "Look up and manage single deliveries",
	}
	cmd.AddCommand(newDeliveryGetCmd())
	cmd.AddCommand(newDeliveryCreateCmd())
	cmd.AddCommand(newDeliveryStatusCmd())
	cmd.AddCommand(newDeliveryAssignCmd())
	cmd.AddCommand(newDeliveryByStatusCmd())
	cmd.AddCommand(newDeliveryByDriverCmd())
	return cmd
}

func newDeliveryGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <number>",
		Short: "Show a delivery",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return signedIn(cmd, func(ctx context.Context, c *console.Console) error {
				d, err := c.Client.GetDelivery(ctx, args[0])
				if err != nil {
					return err
				}
				printDelivery(cmd.OutOrStdout(), d)
				return nil
			})
		},
	}
}

func newDeliveryCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a delivery",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var req deliverymodel.CreateDeliveryRequest
			req.CustomerName, _ = cmd.Flags().GetString("customer")
			req.CustomerPhone, _ = cmd.Flags().GetString("phone")
			req.PickupAddress, _ = cmd.Flags().GetString("pickup")
			req.PickupCity, _ = cmd.Flags().GetString("pickup-city")
			req.DeliveryAddress, _ = cmd.Flags().GetString("dropoff")
			req.DeliveryCity, _ = cmd.Flags().GetString("dropoff-city")
			req.Weight, _ = cmd.Flags().GetFloat64("weight")
			req.Price, _ = cmd.Flags().GetFloat64("price")
			req.Notes, _ = cmd.Flags().GetString("notes")
			if err := auth.Validate(&req); err != nil {
				return exitError(exitFailure, "%v", err)
			}

			return signedIn(cmd, func(ctx context.Context, c *console.Console) error {
				d, err := c.Client.CreateDelivery(ctx, req)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", d.TrackingNumber)
				return nil
			})
		},
	}
	cmd.Flags().String("customer", "", "Customer name")
	cmd.Flags().String("phone", "", "Customer phone")
	cmd.Flags().String("pickup", "", "Pickup address")
	cmd.Flags().String("pickup-city", "", "Pickup city")
	cmd.Flags().String("dropoff", "", "Delivery address")
	cmd.Flags().String("dropoff-city", "", "Delivery city")
	cmd.Flags().Float64("weight", 0, "Parcel weight in kg")
	cmd.Flags().Float64("price", 0, "Price")
	cmd.Flags().String("notes", "", "Notes for the driver")
	return cmd
}

func newDeliveryStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status <number> <status>",
		Short: "Change a delivery's status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			notes, _ := cmd.Flags().GetString("notes")
			req := deliverymodel.UpdateDeliveryStatusRequest{
				Status: deliverymodel.DeliveryStatus(strings.ToUpper(args[1])),
				Notes:  notes,
			}
			return signedIn(cmd, func(ctx context.Context, c *console.Console) error {
				d, err := c.Client.UpdateDeliveryStatus(ctx, args[0], req)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", d.TrackingNumber, d.Status)
				return nil
			})
		},
	}
	cmd.Flags().String("notes", "", "Notes recorded with the change")
	return cmd
}

func newDeliveryAssignCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "assign <number>",
		Short: "Assign a delivery to a driver and vehicle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var params deliverymodel.AssignParams
			params.DriverID, _ = cmd.Flags().GetString("driver")
			params.VehicleID, _ = cmd.Flags().GetString("vehicle")
			return signedIn(cmd, func(ctx context.Context, c *console.Console) error {
				d, err := c.Client.AssignDelivery(ctx, args[0], params)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s assigned to %s (vehicle %s)\n", d.TrackingNumber, d.DriverID, dash(d.VehicleID))
				return nil
			})
		},
	}
	cmd.Flags().String("driver", "", "Driver ID")
	cmd.Flags().String("vehicle", "", "Vehicle ID")
	_ = cmd.MarkFlagRequired("driver")
	return cmd
}

func newDeliveryByStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "by-status <status>",
		Short: "List deliveries in a status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return signedIn(cmd, func(ctx context.Context, c *console.Console) error {
				deliveries, err := c.Client.DeliveriesByStatus(ctx, deliverymodel.DeliveryStatus(strings.ToUpper(args[0])))
				if err != nil {
					return err
				}
				return printDeliveries(cmd.OutOrStdout(), deliveries)
			})
		},
	}
}

func newDeliveryByDriverCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "by-driver <driverId>",
		Short: "List a driver's deliveries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return signedIn(cmd, func(ctx context.Context, c *console.Console) error {
				deliveries, err := c.Client.DeliveriesByDriver(ctx, args[0])
				if err != nil {
					return err
				}
				return printDeliveries(cmd.OutOrStdout(), deliveries)
			})
		},
	}
}

func NewDriverCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "driver",
		Short: "Look up and manage drivers",
	}
	cmd.AddCommand(newDriverListCmd())
	cmd.AddCommand(newDriverGetCmd())
	cmd.AddCommand(newDriverStatusCmd())
	cmd.AddCommand(newDriverLocateCmd())
	return cmd
}

func newDriverListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List drivers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			status, _ := cmd.Flags().GetString("status")
			city, _ := cmd.Flags().GetString("city")
			available, _ := cmd.Flags().GetBool("available")
			return signedIn(cmd, func(ctx context.Context, c *console.Console) error {
				var (
					drivers []deliverymodel.Driver
					err     error
				)
				if available && status == "" && city == "" {
					drivers, err = c.Client.AvailableDrivers(ctx)
				} else {
					filters := deliverymodel.DriverFilters{
						Status: deliverymodel.DriverStatus(strings.ToUpper(status)),
						City:   city,
					}
					if cmd.Flags().Changed("available") {
						filters.Available = utils.Ptr(available)
					}
					drivers, err = c.Client.ListDrivers(ctx, filters)
				}
				if err != nil {
					return err
				}

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "DRIVER\tNAME\tSTATUS\tLOCATION")
				for _, d := range drivers {
					fmt.Fprintf(w, "%s\t%s %s\t%s\t%s\n", d.DriverID, d.FirstName, d.LastName, d.Status, dash(d.CurrentLocation))
				}
				return w.Flush()
			})
		},
	}
	cmd.Flags().String("status", "", "Filter by driver status, e.g. AVAILABLE")
	cmd.Flags().String("city", "", "Filter by city")
	cmd.Flags().Bool("available", false, "Only drivers available for work")
	return cmd
}

func newDriverGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <driverId>",
		Short: "Show a driver",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return signedIn(cmd, func(ctx context.Context, c *console.Console) error {
				d, err := c.Client.GetDriver(ctx, args[0])
				if err != nil {
					return err
				}
				printDriver(cmd.OutOrStdout(), d)
				return nil
			})
		},
	}
}

func newDriverStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <driverId> <status>",
		Short: "Change a driver's status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return signedIn(cmd, func(ctx context.Context, c *console.Console) error {
				d, err := c.Client.UpdateDriverStatus(ctx, args[0], deliverymodel.DriverStatus(strings.ToUpper(args[1])))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", d.DriverID, d.Status)
				return nil
			})
		},
	}
}

func newDriverLocateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "locate <driverId>",
		Short: "Record a driver's position",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var loc deliverymodel.Coordinates
			loc.Latitude, _ = cmd.Flags().GetFloat64("lat")
			loc.Longitude, _ = cmd.Flags().GetFloat64("lng")
			if err := auth.Validate(&loc); err != nil {
				return exitError(exitFailure, "%v", err)
			}
			return signedIn(cmd, func(ctx context.Context, c *console.Console) error {
				d, err := c.Client.UpdateDriverLocation(ctx, args[0], loc)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s located at %s\n", d.DriverID, dash(d.CurrentLocation))
				return nil
			})
		},
	}
	cmd.Flags().Float64("lat", 0, "Latitude")
	cmd.Flags().Float64("lng", 0, "Longitude")
	cmd.MarkFlagsRequiredTogether("lat", "lng")
	_ = cmd.MarkFlagRequired("lat")
	return cmd
}

func NewVehicleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vehicle",
		Short: "Look up and manage vehicles",
	}
	cmd.AddCommand(newVehicleListCmd())
	cmd.AddCommand(newVehicleGetCmd())
	cmd.AddCommand(newVehicleStatusCmd())
	return cmd
}

func newVehicleListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List vehicles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			available, _ := cmd.Flags().GetBool("available")
			return signedIn(cmd, func(ctx context.Context, c *console.Console) error {
				var (
					vehicles []deliverymodel.Vehicle
					err      error
				)
				if available {
					vehicles, err = c.Client.AvailableVehicles(ctx)
				} else {
					vehicles, err = c.Client.ListVehicles(ctx)
				}
				if err != nil {
					return err
				}

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "VEHICLE\tTYPE\tPLATE\tSTATUS\tDRIVER")
				for _, v := range vehicles {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", v.VehicleID, v.Type, dash(v.LicensePlate), v.Status, dash(v.DriverID))
				}
				return w.Flush()
			})
		},
	}
	cmd.Flags().Bool("available", false, "Only vehicles available for use")
	return cmd
}

func newVehicleGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <vehicleId>",
		Short: "Show a vehicle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return signedIn(cmd, func(ctx context.Context, c *console.Console) error {
				v, err := c.Client.GetVehicle(ctx, args[0])
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintf(w, "Vehicle:\t%s\n", v.VehicleID)
				fmt.Fprintf(w, "Type:\t%s\n", v.Type)
				fmt.Fprintf(w, "Make:\t%s %s\n", v.Brand, v.Model)
				fmt.Fprintf(w, "Plate:\t%s\n", dash(v.LicensePlate))
				fmt.Fprintf(w, "Status:\t%s\n", v.Status)
				return w.Flush()
			})
		},
	}
}

func newVehicleStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <vehicleId> <status>",
		Short: "Change a vehicle's status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return signedIn(cmd, func(ctx context.Context, c *console.Console) error {
				v, err := c.Client.UpdateVehicleStatus(ctx, args[0], deliverymodel.VehicleStatus(strings.ToUpper(args[1])))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", v.VehicleID, v.Status)
				return nil
			})
		},
	}
}

func printDeliveries(out io.Writer, deliveries []deliverymodel.Delivery) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TRACKING\tSTATUS\tCUSTOMER\tFROM\tTO\tDRIVER")
	for _, d := range deliveries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", d.TrackingNumber, d.Status, d.CustomerName, d.PickupCity, d.DeliveryCity, dash(d.DriverID))
	}
	return w.Flush()
}

func printDriver(out io.Writer, d *deliverymodel.Driver) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "Driver:\t%s\n", d.DriverID)
	fmt.Fprintf(w, "Name:\t%s %s\n", d.FirstName, d.LastName)
	fmt.Fprintf(w, "Status:\t%s\n", d.Status)
	fmt.Fprintf(w, "Location:\t%s\n", dash(d.CurrentLocation))
	_ = w.Flush()
}
