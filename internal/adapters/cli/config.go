package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/orbitalmachines/astrogator/internal/infrastructure/config"
)

// NewConfigCommand manages the user's CLI defaults (~/.astrogator/config.json).
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage CLI defaults",
	}

	cmd.AddCommand(newConfigSetPlayerCommand())
	cmd.AddCommand(newConfigShowCommand())
	cmd.AddCommand(newConfigClearCommand())

	return cmd
}

func newConfigSetPlayerCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set-player <player-id|agent-symbol>",
		Short: "Set the default player for all commands",
		Long: `Set the default player so commands no longer need --player-id or
--agent. A numeric argument is stored as a player id, anything else as an
agent symbol.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			handler, err := config.NewUserConfigHandler()
			if err != nil {
				return err
			}

			if id, convErr := strconv.Atoi(args[0]); convErr == nil {
				if id <= 0 {
					return usageErrorf("player id must be positive")
				}
				if err := handler.SetDefaultPlayer(id); err != nil {
					return err
				}
				fmt.Printf("✓ Default player set to id %d\n", id)
				return nil
			}

			if err := handler.SetDefaultAgent(args[0]); err != nil {
				return err
			}
			fmt.Printf("✓ Default agent set to %s\n", args[0])
			return nil
		},
	}
}

func newConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the current CLI defaults",
		RunE: func(cmd *cobra.Command, args []string) error {
			handler, err := config.NewUserConfigHandler()
			if err != nil {
				return err
			}
			userCfg, err := handler.Load()
			if err != nil {
				return err
			}

			fmt.Printf("Config file: %s\n", handler.GetConfigPath())
			switch {
			case userCfg.DefaultPlayerID != nil:
				fmt.Printf("Default player id: %d\n", *userCfg.DefaultPlayerID)
			case userCfg.DefaultAgent != "":
				fmt.Printf("Default agent: %s\n", userCfg.DefaultAgent)
			default:
				fmt.Println("No default player set")
			}
			return nil
		},
	}
}

func newConfigClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Clear the default player",
		RunE: func(cmd *cobra.Command, args []string) error {
			handler, err := config.NewUserConfigHandler()
			if err != nil {
				return err
			}
			if err := handler.ClearDefaultPlayer(); err != nil {
				return err
			}
			fmt.Println("✓ Defaults cleared")
			return nil
		},
	}
}
