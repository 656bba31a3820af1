package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// NewHealthCommand reports daemon liveness and recovery counters.
func NewHealthCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check daemon health",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext()
			defer cancel()

			report, err := NewDaemonClient(socketPath).Health(ctx)
			if err != nil {
				return err
			}

			if verbose {
				printJSON(report)
				return nil
			}

			fmt.Printf("Daemon %s (%s)\n", report.Status, report.Version)
			fmt.Printf("  Socket:     %s\n", report.SocketPath)
			fmt.Printf("  Uptime:     %s\n", (time.Duration(report.UptimeSeconds) * time.Second).String())
			fmt.Printf("  Containers: %d active / %d total\n", report.ActiveContainers, report.TotalContainers)
			fmt.Printf("  Goroutines: %d\n", report.Goroutines)
			if report.Recovery.StaleLocksReleased > 0 || report.Recovery.StuckShipsDetected > 0 {
				fmt.Printf("  Recovery:   %d stale locks released, %d stuck ships\n",
					report.Recovery.StaleLocksReleased, report.Recovery.StuckShipsDetected)
			}
			return nil
		},
	}
}
