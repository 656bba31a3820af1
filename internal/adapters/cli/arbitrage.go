package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewArbitrageCommand groups the trading workflows.
func NewArbitrageCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "arbitrage",
		Short: "Buy-low/sell-high trading",
	}

	cmd.AddCommand(newArbitrageRunCommand())
	cmd.AddCommand(newArbitrageOpportunitiesCommand())

	return cmd
}

func newArbitrageRunCommand() *cobra.Command {
	var ship, system string
	var minMargin float64
	var iterations int

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the arbitrage loop on a ship",
		Long: `Launch an arbitrage container. Each iteration picks the best
opportunity from stored market snapshots, hauls one cargo hold from the
buy market to the sell market and books both legs to the ledger. A quiet
market idles the iteration instead of failing it.

Example:
  astro arbitrage run --ship HAULER-1 --system X1-GZ7 --min-margin 8`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if ship == "" || system == "" {
				return usageErrorf("--ship and --system flags are required")
			}
			id, err := resolveIdentity()
			if err != nil {
				return err
			}

			ctx, cancel := commandContext()
			defer cancel()

			result, err := NewDaemonClient(socketPath).Arbitrage(ctx, id, ship, system, minMargin, iterations)
			if err != nil {
				return err
			}

			printLaunch("Arbitrage", result)
			fmt.Printf("  Ship:         %s\n", ship)
			fmt.Printf("  System:       %s\n", system)
			return nil
		},
	}

	cmd.Flags().StringVar(&ship, "ship", "", "Ship symbol (required)")
	cmd.Flags().StringVar(&system, "system", "", "System symbol (required)")
	cmd.Flags().Float64Var(&minMargin, "min-margin", 0, "Minimum profit margin in percent (default 5)")
	cmd.Flags().IntVar(&iterations, "iterations", 0, "Trades to run (0 = run forever)")
	return cmd
}

func newArbitrageOpportunitiesCommand() *cobra.Command {
	var system string
	var capacity, limit int
	var minMargin float64

	cmd := &cobra.Command{
		Use:   "opportunities",
		Short: "List scored opportunities from stored market data",
		RunE: func(cmd *cobra.Command, args []string) error {
			if system == "" {
				return usageErrorf("--system flag is required")
			}
			id, err := resolveIdentity()
			if err != nil {
				return err
			}

			ctx, cancel := commandContext()
			defer cancel()

			opportunities, err := NewDaemonClient(socketPath).ArbitrageOpportunities(ctx, id, system, capacity, minMargin, limit)
			if err != nil {
				return err
			}

			if verbose {
				printJSON(opportunities)
				return nil
			}

			if len(opportunities) == 0 {
				fmt.Println("No opportunities above the margin threshold. Keep scouting.")
				return nil
			}

			fmt.Printf("%-18s %-14s %-14s %8s %8s %8s %9s %8s\n",
				"GOOD", "BUY AT", "SELL AT", "BUY", "SELL", "MARGIN", "EST", "SCORE")
			for _, opp := range opportunities {
				fmt.Printf("%-18s %-14s %-14s %8d %8d %7.1f%% %9s %8.1f\n",
					opp.Good, opp.BuyMarket, opp.SellMarket,
					opp.BuyPrice, opp.SellPrice, opp.ProfitMargin,
					formatCredits(opp.EstimatedProfit), opp.Score)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&system, "system", "", "System symbol (required)")
	cmd.Flags().IntVar(&capacity, "capacity", 0, "Cargo capacity for profit estimates (default 40)")
	cmd.Flags().Float64Var(&minMargin, "min-margin", 0, "Minimum profit margin in percent (default 5)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Max opportunities to show (default 10)")
	return cmd
}
