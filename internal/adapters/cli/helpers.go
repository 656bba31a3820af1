package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/orbitalmachines/astrogator/internal/infrastructure/config"
)

// resolveIdentity picks the player a command acts for.
// Priority: --player-id / --agent flags, then the user config defaults.
func resolveIdentity() (Identity, error) {
	if playerID > 0 {
		id := playerID
		return Identity{PlayerID: &id}, nil
	}
	if agentSymbol != "" {
		return Identity{AgentSymbol: agentSymbol}, nil
	}

	handler, err := config.NewUserConfigHandler()
	if err != nil {
		return Identity{}, fmt.Errorf("no player specified and user config unavailable: %w", err)
	}
	userCfg, err := handler.Load()
	if err != nil {
		return Identity{}, fmt.Errorf("no player specified and user config unreadable: %w", err)
	}

	if userCfg.DefaultPlayerID != nil {
		return Identity{PlayerID: userCfg.DefaultPlayerID}, nil
	}
	if userCfg.DefaultAgent != "" {
		return Identity{AgentSymbol: userCfg.DefaultAgent}, nil
	}

	return Identity{}, usageErrorf("no player specified: use --player-id or --agent, or set a default with 'astro config set-player'")
}

// printJSON dumps a response verbatim; used by every command under -v.
func printJSON(v interface{}) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to render response: %v\n", err)
		return
	}
	fmt.Println(string(data))
}

// printLaunch reports an accepted container intent.
func printLaunch(verb string, result *LaunchResult) {
	if result.Reused {
		fmt.Printf("✓ %s already running\n", verb)
	} else {
		fmt.Printf("✓ %s started\n", verb)
	}
	fmt.Printf("  Container ID: %s\n", result.ContainerID)
}

// formatAge renders a duration since t compactly ("2m", "3h", "5d").
func formatAge(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	}
}

// formatCredits renders an amount with thousands separators.
func formatCredits(amount int) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	s := fmt.Sprintf("%d", amount)
	out := ""
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			out += ","
		}
		out += string(r)
	}
	return sign + out
}
