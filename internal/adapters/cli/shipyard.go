package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// NewShipyardCommand groups shipyard queries and purchases.
func NewShipyardCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shipyard",
		Short: "Shipyard listings and ship purchases",
	}

	cmd.AddCommand(newShipyardListingsCommand())
	cmd.AddCommand(newShipyardPurchaseCommand())
	cmd.AddCommand(newShipyardBatchCommand())

	return cmd
}

func newShipyardListingsCommand() *cobra.Command {
	var waypoint string

	cmd := &cobra.Command{
		Use:   "listings",
		Short: "Show what a shipyard sells",
		RunE: func(cmd *cobra.Command, args []string) error {
			if waypoint == "" {
				return usageErrorf("--waypoint flag is required")
			}
			id, err := resolveIdentity()
			if err != nil {
				return err
			}

			ctx, cancel := commandContext()
			defer cancel()

			yard, err := NewDaemonClient(socketPath).ShipyardListings(ctx, id, waypoint)
			if err != nil {
				return err
			}

			if verbose {
				printJSON(yard)
				return nil
			}

			fmt.Printf("Shipyard %s\n", yard.Symbol)
			if len(yard.Listings) == 0 {
				fmt.Printf("  No live listings (sells: %s)\n", strings.Join(yard.ShipTypes, ", "))
				return nil
			}
			fmt.Printf("  %-24s %-12s %s\n", "TYPE", "PRICE", "NAME")
			for _, listing := range yard.Listings {
				fmt.Printf("  %-24s %-12s %s\n",
					listing.ShipType, formatCredits(listing.PurchasePrice), listing.Name)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&waypoint, "waypoint", "", "Shipyard waypoint symbol (required)")
	return cmd
}

func newShipyardPurchaseCommand() *cobra.Command {
	var ship, shipType, waypoint string

	cmd := &cobra.Command{
		Use:   "purchase",
		Short: "Buy one ship",
		Long: `Launch a purchase container: the named ship flies to the shipyard
(nearest one selling the type unless --waypoint pins it), docks and buys.

Example:
  astro shipyard purchase --ship AGENT-1 --type SHIP_PROBE`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if ship == "" || shipType == "" {
				return usageErrorf("--ship and --type flags are required")
			}
			id, err := resolveIdentity()
			if err != nil {
				return err
			}

			ctx, cancel := commandContext()
			defer cancel()

			result, err := NewDaemonClient(socketPath).ShipyardPurchase(ctx, id, ship, shipType, waypoint)
			if err != nil {
				return err
			}

			printLaunch("Ship purchase", result)
			fmt.Printf("  Ship:         %s\n", ship)
			fmt.Printf("  Type:         %s\n", shipType)
			return nil
		},
	}

	cmd.Flags().StringVar(&ship, "ship", "", "Ship that travels to the shipyard (required)")
	cmd.Flags().StringVar(&shipType, "type", "", "Ship type to buy, e.g. SHIP_PROBE (required)")
	cmd.Flags().StringVar(&waypoint, "waypoint", "", "Pin a specific shipyard waypoint")
	return cmd
}

func newShipyardBatchCommand() *cobra.Command {
	var ship, shipType, waypoint string
	var quantity, maxBudget int

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Buy several ships under a budget cap",
		Long: `Buy up to --quantity ships of a type, stopping early when the budget
runs out. Each purchase is booked to the ledger.

Example:
  astro shipyard batch --ship AGENT-1 --type SHIP_PROBE --quantity 3 --budget 300000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if ship == "" || shipType == "" {
				return usageErrorf("--ship and --type flags are required")
			}
			if quantity < 1 || maxBudget < 1 {
				return usageErrorf("--quantity and --budget must be positive")
			}
			id, err := resolveIdentity()
			if err != nil {
				return err
			}

			ctx, cancel := commandContext()
			defer cancel()

			result, err := NewDaemonClient(socketPath).ShipyardBatchPurchase(ctx, id, ship, shipType, quantity, maxBudget, waypoint)
			if err != nil {
				return err
			}

			printLaunch("Batch purchase", result)
			fmt.Printf("  Ship:         %s\n", ship)
			fmt.Printf("  Type:         %s x%d\n", shipType, quantity)
			fmt.Printf("  Budget:       %s\n", formatCredits(maxBudget))
			return nil
		},
	}

	cmd.Flags().StringVar(&ship, "ship", "", "Ship that travels to the shipyard (required)")
	cmd.Flags().StringVar(&shipType, "type", "", "Ship type to buy (required)")
	cmd.Flags().IntVar(&quantity, "quantity", 1, "How many ships to buy")
	cmd.Flags().IntVar(&maxBudget, "budget", 0, "Credit ceiling for the whole batch (required)")
	cmd.Flags().StringVar(&waypoint, "waypoint", "", "Pin a specific shipyard waypoint")
	return cmd
}
