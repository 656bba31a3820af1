package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"
)

// NewScoutCommand groups the market scouting workflows.
func NewScoutCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scout",
		Short: "Market scouting workflows",
	}

	cmd.AddCommand(newScoutMarketsCommand())
	cmd.AddCommand(newScoutTourCommand())
	cmd.AddCommand(newScoutFleetCommand())

	return cmd
}

func newScoutMarketsCommand() *cobra.Command {
	var ships []string
	var system string
	var markets []string
	var iterations int

	cmd := &cobra.Command{
		Use:   "markets",
		Short: "Partition markets across a scouting fleet",
		Long: `Split a system's markets across the given ships by travel cost and
launch one tour container per ship. Without --markets every charted
marketplace in the system is covered.

Example:
  astro scout markets --system X1-GZ7 --ship SCOUT-1 --ship SCOUT-2`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(ships) == 0 || system == "" {
				return usageErrorf("--system and at least one --ship flag are required")
			}
			id, err := resolveIdentity()
			if err != nil {
				return err
			}

			ctx, cancel := commandContext()
			defer cancel()

			result, err := NewDaemonClient(socketPath).ScoutMarkets(ctx, id, ships, system, markets, iterations)
			if err != nil {
				return err
			}

			if verbose {
				printJSON(result)
				return nil
			}
			printScoutResult(result)
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&ships, "ship", nil, "Scout ship symbol (repeatable)")
	cmd.Flags().StringVar(&system, "system", "", "System symbol (required)")
	cmd.Flags().StringArrayVar(&markets, "markets", nil, "Market waypoints to cover (default: all in system)")
	cmd.Flags().IntVar(&iterations, "iterations", 0, "Tour laps per ship (0 = run forever)")
	return cmd
}

func newScoutTourCommand() *cobra.Command {
	var ship string
	var markets []string
	var iterations int

	cmd := &cobra.Command{
		Use:   "tour",
		Short: "Send one ship on a market tour",
		Long: `Launch a tour container that cycles one ship through the listed
markets, refreshing each snapshot on arrival.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if ship == "" || len(markets) == 0 {
				return usageErrorf("--ship and at least one --market flag are required")
			}
			id, err := resolveIdentity()
			if err != nil {
				return err
			}

			ctx, cancel := commandContext()
			defer cancel()

			result, err := NewDaemonClient(socketPath).ScoutTour(ctx, id, ship, markets, iterations)
			if err != nil {
				return err
			}

			printLaunch("Scout tour", result)
			fmt.Printf("  Ship:         %s\n", ship)
			fmt.Printf("  Markets:      %s\n", strings.Join(markets, ", "))
			return nil
		},
	}

	cmd.Flags().StringVar(&ship, "ship", "", "Ship symbol (required)")
	cmd.Flags().StringArrayVar(&markets, "market", nil, "Market waypoint to visit (repeatable)")
	cmd.Flags().IntVar(&iterations, "iterations", 0, "Tour laps (0 = run forever)")
	return cmd
}

func newScoutFleetCommand() *cobra.Command {
	var system string

	cmd := &cobra.Command{
		Use:   "fleet",
		Short: "Assign every idle probe to scouting duty",
		Long: `Find the player's idle probes and spread the system's markets across
them. Probes already touring keep their assignments.`,
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

			result, err := NewDaemonClient(socketPath).AssignScoutingFleet(ctx, id, system)
			if err != nil {
				return err
			}

			if verbose {
				printJSON(result)
				return nil
			}
			printScoutResult(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&system, "system", "", "System symbol (required)")
	return cmd
}

func printScoutResult(result *ScoutResult) {
	fmt.Printf("✓ Scouting assigned across %d container(s)\n", len(result.ContainerIDs))

	ships := make([]string, 0, len(result.Assignments))
	for ship := range result.Assignments {
		ships = append(ships, ship)
	}
	sort.Strings(ships)
	for _, ship := range ships {
		fmt.Printf("  %-16s %s\n", ship, strings.Join(result.Assignments[ship], ", "))
	}
	if len(result.ReusedContainers) > 0 {
		fmt.Printf("  Reused: %s\n", strings.Join(result.ReusedContainers, ", "))
	}
}
