package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewMarketCommand groups market data queries.
func NewMarketCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "market",
		Short: "Stored market data",
	}

	cmd.AddCommand(newMarketDataCommand())

	return cmd
}

func newMarketDataCommand() *cobra.Command {
	var waypoint string

	cmd := &cobra.Command{
		Use:   "data",
		Short: "Show the stored snapshot of a market",
		Long: `Show the last scouted snapshot of a market. Snapshots older than the
staleness threshold are flagged; send a scout to refresh them.`,
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

			market, err := NewDaemonClient(socketPath).GetMarketData(ctx, id, waypoint)
			if err != nil {
				return err
			}

			if verbose {
				printJSON(market)
				return nil
			}

			staleness := ""
			if market.Stale {
				staleness = "  (STALE)"
			}
			fmt.Printf("Market %s — updated %s ago%s\n",
				market.WaypointSymbol, formatAge(market.LastUpdated), staleness)
			fmt.Printf("  %-20s %8s %8s %8s %-10s %s\n",
				"GOOD", "BUY", "SELL", "VOLUME", "SUPPLY", "ACTIVITY")
			for _, good := range market.Goods {
				supply, activity := "-", "-"
				if good.Supply != nil {
					supply = *good.Supply
				}
				if good.Activity != nil {
					activity = *good.Activity
				}
				fmt.Printf("  %-20s %8d %8d %8d %-10s %s\n",
					good.Symbol, good.SellPrice, good.PurchasePrice, good.TradeVolume,
					supply, activity)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&waypoint, "waypoint", "", "Market waypoint symbol (required)")
	return cmd
}
