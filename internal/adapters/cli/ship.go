package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	shipqueries "github.com/orbitalmachines/astrogator/internal/application/ship/queries"
)

// NewShipCommand groups per-ship operations and queries.
func NewShipCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ship",
		Short: "Ship operations and queries",
	}

	cmd.AddCommand(newShipListCommand())
	cmd.AddCommand(newShipGetCommand())
	cmd.AddCommand(newShipNavigateCommand())
	cmd.AddCommand(newShipDockCommand())
	cmd.AddCommand(newShipOrbitCommand())
	cmd.AddCommand(newShipRefuelCommand())

	return cmd
}

func newShipListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the player's ships",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := resolveIdentity()
			if err != nil {
				return err
			}

			ctx, cancel := commandContext()
			defer cancel()

			ships, err := NewDaemonClient(socketPath).ListShips(ctx, id)
			if err != nil {
				return err
			}

			if verbose {
				printJSON(ships)
				return nil
			}

			if len(ships) == 0 {
				fmt.Println("No ships found")
				return nil
			}

			fmt.Printf("%-16s %-14s %-12s %-8s %-10s %-10s %s\n",
				"SHIP", "LOCATION", "STATUS", "MODE", "FUEL", "CARGO", "CONTAINER")
			for _, ship := range ships {
				fmt.Printf("%-16s %-14s %-12s %-8s %4d/%-5d %4d/%-5d %s\n",
					ship.ShipSymbol, ship.Location, ship.NavStatus, ship.FlightMode,
					ship.FuelCurrent, ship.FuelCapacity,
					ship.CargoUnits, ship.CargoCapacity,
					ship.ContainerID)
			}
			return nil
		},
	}
}

func newShipGetCommand() *cobra.Command {
	var shipSymbol string

	cmd := &cobra.Command{
		Use:   "get",
		Short: "Show one ship in detail",
		RunE: func(cmd *cobra.Command, args []string) error {
			if shipSymbol == "" {
				return usageErrorf("--ship flag is required")
			}
			id, err := resolveIdentity()
			if err != nil {
				return err
			}

			ctx, cancel := commandContext()
			defer cancel()

			ship, err := NewDaemonClient(socketPath).GetShip(ctx, id, shipSymbol)
			if err != nil {
				return err
			}

			if verbose {
				printJSON(ship)
				return nil
			}

			printShipDetail(ship)
			return nil
		},
	}

	cmd.Flags().StringVar(&shipSymbol, "ship", "", "Ship symbol (required)")
	return cmd
}

func printShipDetail(ship *shipqueries.ShipDTO) {
	fmt.Printf("Ship %s\n", ship.ShipSymbol)
	fmt.Printf("  Location:    %s (%s)\n", ship.Location, ship.SystemSymbol)
	fmt.Printf("  Status:      %s\n", ship.NavStatus)
	fmt.Printf("  Flight mode: %s\n", ship.FlightMode)
	fmt.Printf("  Fuel:        %d/%d\n", ship.FuelCurrent, ship.FuelCapacity)
	fmt.Printf("  Cargo:       %d/%d\n", ship.CargoUnits, ship.CargoCapacity)
	if ship.FrameSymbol != "" {
		fmt.Printf("  Frame:       %s\n", ship.FrameSymbol)
	}
	if ship.Role != "" {
		fmt.Printf("  Role:        %s\n", ship.Role)
	}
	if ship.ArrivalTime != nil {
		fmt.Printf("  Arrival:     %s\n", ship.ArrivalTime.Format("15:04:05"))
	}
	if ship.ContainerID != "" {
		fmt.Printf("  Container:   %s\n", ship.ContainerID)
	}
	for _, item := range ship.Cargo {
		fmt.Printf("    %-20s %d\n", item.Symbol, item.Units)
	}
}

func newShipNavigateCommand() *cobra.Command {
	var shipSymbol, destination string

	cmd := &cobra.Command{
		Use:   "navigate",
		Short: "Route a ship to a waypoint",
		Long: `Route a ship to a destination waypoint. The daemon plans the route
(including refuel stops and flight mode changes) and flies it in the
background; the command returns the container id immediately.

Example:
  astro ship navigate --ship AGENT-1 --destination X1-GZ7-B1`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if shipSymbol == "" || destination == "" {
				return usageErrorf("--ship and --destination flags are required")
			}
			id, err := resolveIdentity()
			if err != nil {
				return err
			}

			ctx, cancel := commandContext()
			defer cancel()

			result, err := NewDaemonClient(socketPath).Navigate(ctx, id, shipSymbol, destination)
			if err != nil {
				return err
			}

			printLaunch("Navigation", result)
			fmt.Printf("  Ship:         %s\n", shipSymbol)
			fmt.Printf("  Destination:  %s\n", destination)
			return nil
		},
	}

	cmd.Flags().StringVar(&shipSymbol, "ship", "", "Ship symbol (required)")
	cmd.Flags().StringVar(&destination, "destination", "", "Destination waypoint symbol (required)")
	return cmd
}

func newShipDockCommand() *cobra.Command {
	var shipSymbol string

	cmd := &cobra.Command{
		Use:   "dock",
		Short: "Dock a ship at its current location",
		RunE: func(cmd *cobra.Command, args []string) error {
			if shipSymbol == "" {
				return usageErrorf("--ship flag is required")
			}
			id, err := resolveIdentity()
			if err != nil {
				return err
			}

			ctx, cancel := commandContext()
			defer cancel()

			result, err := NewDaemonClient(socketPath).Dock(ctx, id, shipSymbol)
			if err != nil {
				return err
			}

			printLaunch("Dock", result)
			fmt.Printf("  Ship:         %s\n", shipSymbol)
			return nil
		},
	}

	cmd.Flags().StringVar(&shipSymbol, "ship", "", "Ship symbol (required)")
	return cmd
}

func newShipOrbitCommand() *cobra.Command {
	var shipSymbol string

	cmd := &cobra.Command{
		Use:   "orbit",
		Short: "Move a ship into orbit",
		RunE: func(cmd *cobra.Command, args []string) error {
			if shipSymbol == "" {
				return usageErrorf("--ship flag is required")
			}
			id, err := resolveIdentity()
			if err != nil {
				return err
			}

			ctx, cancel := commandContext()
			defer cancel()

			result, err := NewDaemonClient(socketPath).Orbit(ctx, id, shipSymbol)
			if err != nil {
				return err
			}

			printLaunch("Orbit", result)
			fmt.Printf("  Ship:         %s\n", shipSymbol)
			return nil
		},
	}

	cmd.Flags().StringVar(&shipSymbol, "ship", "", "Ship symbol (required)")
	return cmd
}

func newShipRefuelCommand() *cobra.Command {
	var shipSymbol string
	var units int

	cmd := &cobra.Command{
		Use:   "refuel",
		Short: "Refuel a docked ship",
		Long: `Refuel a ship at its current market. Without --units the tank is
filled; fuel purchases are booked to the ledger.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if shipSymbol == "" {
				return usageErrorf("--ship flag is required")
			}
			id, err := resolveIdentity()
			if err != nil {
				return err
			}

			var unitsArg *int
			if units > 0 {
				unitsArg = &units
			}

			ctx, cancel := commandContext()
			defer cancel()

			result, err := NewDaemonClient(socketPath).Refuel(ctx, id, shipSymbol, unitsArg)
			if err != nil {
				return err
			}

			printLaunch("Refuel", result)
			fmt.Printf("  Ship:         %s\n", shipSymbol)
			return nil
		},
	}

	cmd.Flags().StringVar(&shipSymbol, "ship", "", "Ship symbol (required)")
	cmd.Flags().IntVar(&units, "units", 0, "Fuel units to buy (default: fill the tank)")
	return cmd
}
