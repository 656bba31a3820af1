package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

// NewLedgerCommand groups the financial ledger queries.
func NewLedgerCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Financial ledger queries",
	}

	cmd.AddCommand(newLedgerTransactionsCommand())
	cmd.AddCommand(newLedgerProfitLossCommand())
	cmd.AddCommand(newLedgerCashFlowCommand())

	return cmd
}

// optionalString maps an empty flag to nil.
func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func newLedgerTransactionsCommand() *cobra.Command {
	var startDate, endDate, category, txType, containerID, shipSymbol string
	var limit, offset int

	cmd := &cobra.Command{
		Use:   "transactions",
		Short: "List ledger transactions",
		Long: `List ledger transactions, newest first. Dates are RFC3339
(2026-01-02T00:00:00Z).

Example:
  astro ledger transactions --category trading --limit 20`,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := resolveIdentity()
			if err != nil {
				return err
			}

			ctx, cancel := commandContext()
			defer cancel()

			result, err := NewDaemonClient(socketPath).LedgerTransactions(ctx, id, TransactionFilter{
				StartDate:   optionalString(startDate),
				EndDate:     optionalString(endDate),
				Category:    optionalString(category),
				Type:        optionalString(txType),
				ContainerID: optionalString(containerID),
				ShipSymbol:  optionalString(shipSymbol),
				Limit:       limit,
				Offset:      offset,
			})
			if err != nil {
				return err
			}

			if verbose {
				printJSON(result)
				return nil
			}

			if len(result.Transactions) == 0 {
				fmt.Println("No transactions found")
				return nil
			}

			fmt.Printf("%-20s %-10s %-12s %-18s %10s %12s\n",
				"TIMESTAMP", "TYPE", "CATEGORY", "GOOD", "AMOUNT", "BALANCE")
			for _, tx := range result.Transactions {
				good := tx.GoodSymbol
				if good == "" {
					good = "-"
				}
				fmt.Printf("%-20s %-10s %-12s %-18s %10s %12s\n",
					tx.Timestamp.Format("2006-01-02 15:04:05"),
					tx.Type, tx.Category, good,
					formatCredits(tx.Amount), formatCredits(tx.BalanceAfter))
			}
			fmt.Printf("\n%d of %d transaction(s)\n", len(result.Transactions), result.Total)
			return nil
		},
	}

	cmd.Flags().StringVar(&startDate, "start", "", "Start date (RFC3339)")
	cmd.Flags().StringVar(&endDate, "end", "", "End date (RFC3339)")
	cmd.Flags().StringVar(&category, "category", "", "Filter by category (trading, contracts, fuel, ...)")
	cmd.Flags().StringVar(&txType, "type", "", "Filter by type (income, expense)")
	cmd.Flags().StringVar(&containerID, "container", "", "Filter by container id")
	cmd.Flags().StringVar(&shipSymbol, "ship", "", "Filter by ship symbol")
	cmd.Flags().IntVar(&limit, "limit", 50, "Max rows")
	cmd.Flags().IntVar(&offset, "offset", 0, "Rows to skip")
	return cmd
}

func newLedgerProfitLossCommand() *cobra.Command {
	var startDate, endDate string

	cmd := &cobra.Command{
		Use:   "profit-loss",
		Short: "Profit and loss statement",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := resolveIdentity()
			if err != nil {
				return err
			}

			ctx, cancel := commandContext()
			defer cancel()

			result, err := NewDaemonClient(socketPath).LedgerProfitLoss(ctx, id,
				optionalString(startDate), optionalString(endDate))
			if err != nil {
				return err
			}

			if verbose {
				printJSON(result)
				return nil
			}

			fmt.Printf("Profit & Loss — %s\n\n", result.Period)
			fmt.Printf("Revenue:   %12s\n", formatCredits(result.TotalRevenue))
			printBreakdown(result.RevenueBreakdown)
			fmt.Printf("Expenses:  %12s\n", formatCredits(result.TotalExpenses))
			printBreakdown(result.ExpenseBreakdown)
			fmt.Printf("Net:       %12s\n", formatCredits(result.NetProfit))
			return nil
		},
	}

	cmd.Flags().StringVar(&startDate, "start", "", "Start date (RFC3339)")
	cmd.Flags().StringVar(&endDate, "end", "", "End date (RFC3339)")
	return cmd
}

func printBreakdown(byCategory map[string]int) {
	categories := make([]string, 0, len(byCategory))
	for category := range byCategory {
		categories = append(categories, category)
	}
	sort.Strings(categories)
	for _, category := range categories {
		fmt.Printf("  %-16s %12s\n", category, formatCredits(byCategory[category]))
	}
}

func newLedgerCashFlowCommand() *cobra.Command {
	var startDate, endDate, groupBy string

	cmd := &cobra.Command{
		Use:   "cash-flow",
		Short: "Cash flow by category",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := resolveIdentity()
			if err != nil {
				return err
			}

			ctx, cancel := commandContext()
			defer cancel()

			result, err := NewDaemonClient(socketPath).LedgerCashFlow(ctx, id,
				optionalString(startDate), optionalString(endDate), groupBy)
			if err != nil {
				return err
			}

			if verbose {
				printJSON(result)
				return nil
			}

			fmt.Printf("Cash flow — %s\n\n", result.Period)
			fmt.Printf("%-16s %12s %12s %12s %6s\n",
				"CATEGORY", "INFLOW", "OUTFLOW", "NET", "TXNS")
			for _, row := range result.Categories {
				fmt.Printf("%-16s %12s %12s %12s %6d\n",
					row.Category,
					formatCredits(row.TotalInflow), formatCredits(row.TotalOutflow),
					formatCredits(row.NetFlow), row.Transactions)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&startDate, "start", "", "Start date (RFC3339)")
	cmd.Flags().StringVar(&endDate, "end", "", "End date (RFC3339)")
	cmd.Flags().StringVar(&groupBy, "group-by", "", "Grouping (category)")
	return cmd
}
