package app

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

func newVehiclesCommand(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "vehicles",
		Aliases: []string{"ls"},
		Short:   "List the tracked vehicles",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, closeFn, err := o.dial()
			if err != nil {
				return err
			}
			defer closeFn()

			ctx, cancel := o.callContext(cmd.Context())
			defer cancel()

			list, err := client.ListVehicles(ctx, &emptypb.Empty{})
			if err != nil {
				return fmt.Errorf("failed to list vehicles: %w", err)
			}

			rows := make([]map[string]any, 0, len(list.GetValues()))
			for _, v := range list.GetValues() {
				rows = append(rows, v.GetStructValue().AsMap())
			}

			p, err := newPrinter(o.output)
			if err != nil {
				return err
			}
			return p.PrintVehicles(cmd.OutOrStdout(), rows)
		},
	}
}

func newVehicleCommand(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "vehicle <bus-id>",
		Short: "Show the live state of one vehicle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid bus id %q", args[0])
			}

			client, closeFn, err := o.dial()
			if err != nil {
				return err
			}
			defer closeFn()

			ctx, cancel := o.callContext(cmd.Context())
			defer cancel()

			v, err := client.GetVehicle(ctx, wrapperspb.Int64(id))
			if err != nil {
				return fmt.Errorf("failed to get vehicle %d: %w", id, err)
			}

			p, err := newPrinter(o.output)
			if err != nil {
				return err
			}
			return p.PrintVehicle(cmd.OutOrStdout(), v.AsMap())
		},
	}
}
