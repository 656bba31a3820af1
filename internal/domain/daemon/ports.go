package daemon

import (
	"context"
	"errors"
	"time"

	"github.com/orbitalmachines/astrogator/internal/domain/container"
	"github.com/orbitalmachines/astrogator/internal/domain/shared"
)

var (
	// ErrInvalidCommandType is returned when a container operation receives a
	// command whose concrete type does not match the container kind.
	ErrInvalidCommandType = errors.New("invalid command type")
)

// LaunchSpec describes a background container to start. Command is the
// mediator request the runner executes per iteration; Metadata is the
// persisted config blob a command factory rebuilds the command from after a
// daemon restart, so it must carry everything Command carries.
type LaunchSpec struct {
	Kind          container.ContainerType
	PlayerID      shared.PlayerID
	ShipSymbol    string
	MaxIterations int
	Metadata      map[string]interface{}
	Command       interface{}
}

// LaunchResult names the container serving the spec. Reused is true when a
// non-terminal container already existed for the same (player, ship, kind)
// and no new one was created.
type LaunchResult struct {
	ContainerID string
	Reused      bool
}

// ContainerLauncher starts and stops background containers. The supervisor
// implements it; application handlers use it to spawn work that outlives the
// request. Launch is find-or-create, linearizable per (player, ship, kind).
type ContainerLauncher interface {
	Launch(ctx context.Context, spec LaunchSpec) (*LaunchResult, error)

	// StopContainer requests cooperative shutdown and returns immediately;
	// the runner finishes in the background.
	StopContainer(ctx context.Context, containerID string, playerID shared.PlayerID) error
}

// HealthReport is the snapshot returned by the DaemonHealth operation. It
// crosses the wire as-is, hence the json tags on a domain type.
type HealthReport struct {
	Status           string          `json:"status"`
	Version          string          `json:"version"`
	UptimeSeconds    int64           `json:"uptime_seconds"`
	ActiveContainers int             `json:"active_containers"`
	TotalContainers  int             `json:"total_containers"`
	Goroutines       int             `json:"goroutines"`
	SocketPath       string          `json:"socket_path"`
	Recovery         RecoveryMetrics `json:"recovery"`
	CheckedAt        time.Time       `json:"checked_at"`
}
