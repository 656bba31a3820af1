package container

import (
	"context"
	"time"

	"github.com/orbitalmachines/astrogator/internal/domain/shared"
)

// Repository persists container rows. The registry is the in-memory source
// of truth while the daemon runs; the repository is what boot recovery and
// the CLI queries read.
type Repository interface {
	// Insert stores a freshly created container together with the command
	// type used to rebuild its iteration command at boot.
	Insert(ctx context.Context, c *Container, commandType string) error

	// Update persists status, iteration and restart counters.
	Update(ctx context.Context, c *Container) error

	// FindByID returns nil, nil when the container does not exist.
	FindByID(ctx context.Context, containerID string, playerID shared.PlayerID) (*Container, error)

	// FindAllByPlayer returns every container row for a player, newest first.
	FindAllByPlayer(ctx context.Context, playerID shared.PlayerID) ([]*Container, error)

	// FindNonTerminal returns containers left PENDING, STARTING or RUNNING
	// across all players. Used at boot to mark them INTERRUPTED.
	FindNonTerminal(ctx context.Context) ([]*Container, error)

	// CommandType returns the persisted command type for boot recovery.
	CommandType(ctx context.Context, containerID string) (string, error)

	// Delete removes a container row. Log rows are deleted separately.
	Delete(ctx context.Context, containerID string, playerID shared.PlayerID) error

	// DeleteTerminalBefore removes terminal rows stopped before cutoff,
	// across all players, returning the ids it deleted.
	DeleteTerminalBefore(ctx context.Context, cutoff time.Time) ([]string, error)
}

// LogEntry is one persisted container log line.
type LogEntry struct {
	ID          int
	ContainerID string
	PlayerID    shared.PlayerID
	Timestamp   time.Time
	Level       string
	Message     string
	Metadata    map[string]interface{}
}

// LogRepository persists container log lines. Implementations deduplicate
// repeats within a time window so tight iteration loops do not flood the
// table.
type LogRepository interface {
	Log(ctx context.Context, containerID string, playerID shared.PlayerID, message, level string, metadata map[string]interface{}) error

	// GetLogs returns the newest entries first. level and since are optional
	// filters.
	GetLogs(ctx context.Context, containerID string, playerID shared.PlayerID, limit int, level *string, since *time.Time) ([]LogEntry, error)

	// DeleteByContainer removes every log row of a container. The retention
	// sweep calls it together with the container row delete.
	DeleteByContainer(ctx context.Context, containerID string) error
}

// ShipAssignmentRepository persists ship locks.
type ShipAssignmentRepository interface {
	// Assign upserts an active lock for a ship.
	Assign(ctx context.Context, assignment *ShipAssignment) error

	// FindByShip returns the active lock for a ship, nil if unlocked.
	FindByShip(ctx context.Context, shipSymbol string, playerID shared.PlayerID) (*ShipAssignment, error)

	// FindByContainer returns all active locks held by a container.
	FindByContainer(ctx context.Context, containerID string, playerID shared.PlayerID) ([]*ShipAssignment, error)

	// FindActiveByPlayer returns every active lock for a player in one read.
	FindActiveByPlayer(ctx context.Context, playerID shared.PlayerID) ([]*ShipAssignment, error)

	// Release releases the active lock on a ship.
	Release(ctx context.Context, shipSymbol string, playerID shared.PlayerID, reason string) error

	// ReleaseByContainer releases every lock a container holds.
	ReleaseByContainer(ctx context.Context, containerID string, playerID shared.PlayerID, reason string) error

	// ReleaseAllActive releases every active lock. Used at boot before
	// recovery restarts re-acquire.
	ReleaseAllActive(ctx context.Context, reason string) (int, error)
}
