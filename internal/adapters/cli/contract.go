package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewContractCommand groups contract workflows.
func NewContractCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "contract",
		Short: "Contract workflows",
	}

	cmd.AddCommand(newContractRunCommand())

	return cmd
}

func newContractRunCommand() *cobra.Command {
	var ship string
	var iterations int

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the negotiate-deliver-fulfill loop on a ship",
		Long: `Launch a contract workflow container: negotiate a contract at the
ship's location, evaluate its profitability, then buy, haul and deliver
until fulfilled. Unprofitable contracts are fulfilled at a loss only when
the ship is already committed.

Example:
  astro contract run --ship AGENT-1 --iterations 5`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if ship == "" {
				return usageErrorf("--ship flag is required")
			}
			id, err := resolveIdentity()
			if err != nil {
				return err
			}

			ctx, cancel := commandContext()
			defer cancel()

			result, err := NewDaemonClient(socketPath).ContractWorkflow(ctx, id, ship, iterations)
			if err != nil {
				return err
			}

			printLaunch("Contract workflow", result)
			fmt.Printf("  Ship:         %s\n", ship)
			return nil
		},
	}

	cmd.Flags().StringVar(&ship, "ship", "", "Ship symbol (required)")
	cmd.Flags().IntVar(&iterations, "iterations", 0, "Contracts to run (0 = run forever)")
	return cmd
}
