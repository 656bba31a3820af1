package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewPlayerCommand groups player registration and listing.
func NewPlayerCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "player",
		Short: "Player registration and listing",
	}

	cmd.AddCommand(newPlayerRegisterCommand())
	cmd.AddCommand(newPlayerListCommand())

	return cmd
}

func newPlayerRegisterCommand() *cobra.Command {
	var agent, faction, token string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register a player with the daemon",
		Long: `Register a player. With --token an existing agent's token is stored;
without it the daemon registers a new agent with the game first.

Example:
  astro player register --agent MYAGENT --faction COSMIC`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if agent == "" {
				return usageErrorf("--agent flag is required")
			}
			if faction == "" && token == "" {
				return usageErrorf("either --faction (new agent) or --token (existing agent) is required")
			}

			ctx, cancel := commandContext()
			defer cancel()

			player, err := NewDaemonClient(socketPath).RegisterPlayer(ctx, agent, faction, token)
			if err != nil {
				return err
			}

			fmt.Println("✓ Player registered")
			fmt.Printf("  ID:      %d\n", player.ID)
			fmt.Printf("  Agent:   %s\n", player.AgentSymbol)
			if player.Headquarters != "" {
				fmt.Printf("  HQ:      %s\n", player.Headquarters)
			}
			fmt.Printf("  Credits: %s\n", formatCredits(player.Credits))
			return nil
		},
	}

	cmd.Flags().StringVar(&agent, "agent", "", "Agent symbol (required)")
	cmd.Flags().StringVar(&faction, "faction", "", "Starting faction for a new agent")
	cmd.Flags().StringVar(&token, "token", "", "API token of an existing agent")
	return cmd
}

func newPlayerListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered players",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext()
			defer cancel()

			players, err := NewDaemonClient(socketPath).ListPlayers(ctx)
			if err != nil {
				return err
			}

			if verbose {
				printJSON(players)
				return nil
			}

			if len(players) == 0 {
				fmt.Println("No players registered")
				return nil
			}

			fmt.Printf("%-5s %-14s %-14s %12s %s\n", "ID", "AGENT", "HQ", "CREDITS", "FACTION")
			for _, player := range players {
				fmt.Printf("%-5d %-14s %-14s %12s %s\n",
					player.ID, player.AgentSymbol, player.Headquarters,
					formatCredits(player.Credits), player.Faction)
			}
			return nil
		},
	}
}
