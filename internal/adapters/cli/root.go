package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/orbitalmachines/astrogator/internal/domain/shared"
)

var (
	// Global flags
	socketPath  string
	playerID    int
	agentSymbol string
	verbose     bool
)

// Exit codes. Scripts branch on these, so they are part of the CLI contract.
const (
	exitOK             = 0
	exitError          = 1
	exitUsage          = 2
	exitPlayerNotFound = 3
)

// usageError marks a failure the caller can fix by correcting the invocation.
type usageError struct{ msg string }

func (e usageError) Error() string { return e.msg }

func usageErrorf(format string, args ...interface{}) error {
	return usageError{msg: fmt.Sprintf(format, args...)}
}

// NewRootCommand builds the astro command tree.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "astro",
		Short: "Astrogator CLI - talk to the astrogator daemon",
		Long: `Astrogator CLI drives your fleet through the astrogator daemon.
Every subcommand opens one connection on the daemon's unix socket, sends a
single request and prints the reply.

Examples:
  astro ship navigate --ship AGENT-1 --destination X1-GZ7-B1
  astro ship dock --ship AGENT-1
  astro scout fleet --system X1-GZ7
  astro arbitrage run --ship AGENT-1 --system X1-GZ7
  astro shipyard listings --waypoint X1-GZ7-A1
  astro ledger profit-loss
  astro container ps
  astro container logs <container-id>`,
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}

	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return usageError{msg: err.Error()}
	})

	rootCmd.PersistentFlags().StringVar(&socketPath, "socket", defaultSocketPath(),
		"Path to the daemon unix socket")
	rootCmd.PersistentFlags().IntVar(&playerID, "player-id", 0,
		"Player ID (alternative to --agent)")
	rootCmd.PersistentFlags().StringVar(&agentSymbol, "agent", "",
		"Agent symbol (alternative to --player-id)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"Print raw responses as JSON")

	rootCmd.AddCommand(NewConfigCommand())
	rootCmd.AddCommand(NewPlayerCommand())
	rootCmd.AddCommand(NewShipCommand())
	rootCmd.AddCommand(NewShipyardCommand())
	rootCmd.AddCommand(NewScoutCommand())
	rootCmd.AddCommand(NewMarketCommand())
	rootCmd.AddCommand(NewContractCommand())
	rootCmd.AddCommand(NewArbitrageCommand())
	rootCmd.AddCommand(NewLedgerCommand())
	rootCmd.AddCommand(NewContainerCommand())
	rootCmd.AddCommand(NewHealthCommand())

	return rootCmd
}

func defaultSocketPath() string {
	if path := os.Getenv("ASTRO_SOCKET"); path != "" {
		return path
	}
	return "/tmp/astrogator-daemon.sock"
}

// Execute runs the root command and maps the failure onto an exit code.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)

		var usage usageError
		switch {
		case errors.As(err, &usage):
			os.Exit(exitUsage)
		case shared.IsCode(err, shared.ErrPlayerNotFound):
			os.Exit(exitPlayerNotFound)
		case shared.IsCode(err, shared.ErrRemoteUnavailable):
			fmt.Fprintln(os.Stderr, "Is the daemon running? Start it with astrogator-daemon.")
			os.Exit(exitError)
		default:
			os.Exit(exitError)
		}
	}
}
