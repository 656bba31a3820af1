package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewContainerCommand groups container lifecycle management.
func NewContainerCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "container",
		Short: "Manage workflow containers",
	}

	cmd.AddCommand(newContainerListCommand())
	cmd.AddCommand(newContainerInspectCommand())
	cmd.AddCommand(newContainerStopCommand())
	cmd.AddCommand(newContainerRemoveCommand())
	cmd.AddCommand(newContainerLogsCommand())

	return cmd
}

func newContainerListCommand() *cobra.Command {
	var status, kind, shipSymbol string

	cmd := &cobra.Command{
		Use:     "ps",
		Aliases: []string{"list"},
		Short:   "List containers",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := resolveIdentity()
			if err != nil {
				return err
			}

			ctx, cancel := commandContext()
			defer cancel()

			containers, err := NewDaemonClient(socketPath).ListContainers(ctx, id, status, kind, shipSymbol)
			if err != nil {
				return err
			}

			if verbose {
				printJSON(containers)
				return nil
			}

			if len(containers) == 0 {
				fmt.Println("No containers")
				return nil
			}

			fmt.Printf("%-36s %-20s %-14s %-10s %-10s %s\n",
				"CONTAINER ID", "KIND", "SHIP", "STATUS", "ITERATION", "AGE")
			for _, c := range containers {
				iteration := fmt.Sprintf("%d", c.Iteration)
				if c.MaxIterations > 0 {
					iteration = fmt.Sprintf("%d/%d", c.Iteration, c.MaxIterations)
				}
				fmt.Printf("%-36s %-20s %-14s %-10s %-10s %s\n",
					c.ID, c.Kind, c.ShipSymbol, c.Status, iteration, formatAge(c.CreatedAt))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "Filter by status (RUNNING, COMPLETED, FAILED, ...)")
	cmd.Flags().StringVar(&kind, "kind", "", "Filter by container kind")
	cmd.Flags().StringVar(&shipSymbol, "ship", "", "Filter by ship symbol")
	return cmd
}

func newContainerInspectCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <container-id>",
		Short: "Show one container in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := resolveIdentity()
			if err != nil {
				return err
			}

			ctx, cancel := commandContext()
			defer cancel()

			c, err := NewDaemonClient(socketPath).InspectContainer(ctx, id, args[0])
			if err != nil {
				return err
			}

			if verbose {
				printJSON(c)
				return nil
			}

			fmt.Printf("Container %s\n", c.ID)
			fmt.Printf("  Kind:       %s\n", c.Kind)
			fmt.Printf("  Status:     %s\n", c.Status)
			if c.ShipSymbol != "" {
				fmt.Printf("  Ship:       %s\n", c.ShipSymbol)
			}
			if c.MaxIterations > 0 {
				fmt.Printf("  Iteration:  %d/%d\n", c.Iteration, c.MaxIterations)
			} else {
				fmt.Printf("  Iteration:  %d\n", c.Iteration)
			}
			fmt.Printf("  Restarts:   %d\n", c.RestartCount)
			fmt.Printf("  Created:    %s\n", c.CreatedAt.Format("2006-01-02 15:04:05"))
			if c.StartedAt != nil {
				fmt.Printf("  Started:    %s\n", c.StartedAt.Format("2006-01-02 15:04:05"))
			}
			if c.StoppedAt != nil {
				fmt.Printf("  Stopped:    %s\n", c.StoppedAt.Format("2006-01-02 15:04:05"))
			}
			if c.LastError != "" {
				fmt.Printf("  Last error: %s\n", c.LastError)
			}
			for key, value := range c.Metadata {
				fmt.Printf("    %s: %v\n", key, value)
			}
			return nil
		},
	}
}

func newContainerStopCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stop <container-id>",
		Short: "Stop a running container",
		Long: `Ask the daemon to stop a container. The command returns as soon as
the stop is registered; the container finishes its current step, releases
its ship and goes to STOPPED.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := resolveIdentity()
			if err != nil {
				return err
			}

			ctx, cancel := commandContext()
			defer cancel()

			if err := NewDaemonClient(socketPath).StopContainer(ctx, id, args[0]); err != nil {
				return err
			}
			fmt.Printf("✓ Stopping %s\n", args[0])
			return nil
		},
	}
}

func newContainerRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "rm <container-id>",
		Aliases: []string{"remove"},
		Short:   "Remove a terminal container",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := resolveIdentity()
			if err != nil {
				return err
			}

			ctx, cancel := commandContext()
			defer cancel()

			if err := NewDaemonClient(socketPath).RemoveContainer(ctx, id, args[0]); err != nil {
				return err
			}
			fmt.Printf("✓ Removed %s\n", args[0])
			return nil
		},
	}
}

func newContainerLogsCommand() *cobra.Command {
	var limit int
	var level, since string

	cmd := &cobra.Command{
		Use:   "logs <container-id>",
		Short: "Show a container's logs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := resolveIdentity()
			if err != nil {
				return err
			}

			ctx, cancel := commandContext()
			defer cancel()

			logs, err := NewDaemonClient(socketPath).ContainerLogs(ctx, id, args[0], limit,
				optionalString(level), optionalString(since))
			if err != nil {
				return err
			}

			if verbose {
				printJSON(logs)
				return nil
			}

			// The daemon returns newest first; print oldest first like a log file.
			for i := len(logs) - 1; i >= 0; i-- {
				entry := logs[i]
				fmt.Printf("%s [%s] %s\n",
					entry.Timestamp.Format("2006-01-02 15:04:05"), entry.Level, entry.Message)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 100, "Max log lines")
	cmd.Flags().StringVar(&level, "level", "", "Filter by level (INFO, WARN, ERROR)")
	cmd.Flags().StringVar(&since, "since", "", "Only lines after this time (RFC3339)")
	return cmd
}
