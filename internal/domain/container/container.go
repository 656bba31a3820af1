package container

import (
	"errors"
	"fmt"
	"time"

	"github.com/orbitalmachines/astrogator/internal/domain/shared"
)

// ContainerStatus is the lifecycle state of a container.
type ContainerStatus string

const (
	// ContainerStatusPending: registered, goroutine not yet scheduled.
	ContainerStatusPending ContainerStatus = "PENDING"

	// ContainerStatusStarting: goroutine spawned, setup (graph load, ship
	// sync) still in progress. Counts as active for idempotent reuse.
	ContainerStatusStarting ContainerStatus = "STARTING"

	// ContainerStatusRunning: iteration loop executing.
	ContainerStatusRunning ContainerStatus = "RUNNING"

	// ContainerStatusStopping: stop requested, waiting for the body to
	// reach a cancellation point.
	ContainerStatusStopping ContainerStatus = "STOPPING"

	ContainerStatusCompleted ContainerStatus = "COMPLETED"
	ContainerStatusFailed    ContainerStatus = "FAILED"
	ContainerStatusStopped   ContainerStatus = "STOPPED"

	// ContainerStatusInterrupted: was PENDING or RUNNING when the daemon
	// went down; set during boot recovery before a restart attempt.
	ContainerStatusInterrupted ContainerStatus = "INTERRUPTED"
)

// ContainerType is the operation kind a container runs. It is one third of
// the registry's idempotency key (player, ship, kind).
type ContainerType string

const (
	ContainerTypeNavigate         ContainerType = "NAVIGATE"
	ContainerTypeDock             ContainerType = "DOCK"
	ContainerTypeOrbit            ContainerType = "ORBIT"
	ContainerTypeRefuel           ContainerType = "REFUEL"
	ContainerTypeScoutTour        ContainerType = "SCOUT_TOUR"
	ContainerTypeScoutFleet       ContainerType = "SCOUT_FLEET"
	ContainerTypeShipyardPurchase ContainerType = "SHIPYARD_PURCHASE"
	ContainerTypeBatchPurchase    ContainerType = "BATCH_PURCHASE"
	ContainerTypeContractWorkflow ContainerType = "CONTRACT_WORKFLOW"
	ContainerTypeArbitrage        ContainerType = "ARBITRAGE"
)

// InfiniteIterations makes the iteration loop run until stopped.
const InfiniteIterations = -1

const (
	// MaxRestartAttempts bounds automatic restarts after transient failures.
	MaxRestartAttempts = 3

	// RestartBackoffBase is the sleep before the first restart attempt;
	// it doubles per attempt up to RestartBackoffCap.
	RestartBackoffBase = 5 * time.Second
	RestartBackoffCap  = 30 * time.Second
)

// NextRestartDelay returns the backoff before restart attempt n (1-based).
func NextRestartDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := RestartBackoffBase
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= RestartBackoffCap {
			return RestartBackoffCap
		}
	}
	return delay
}

// Container is one background operation scheduled by the supervisor. Each
// container runs in its own goroutine as an iteration loop: one-shot
// (max = 1), fixed count, or infinite (max = InfiniteIterations).
//
// Core state transitions live in the shared lifecycle machine; STARTING,
// STOPPING and INTERRUPTED are container-specific overlays.
type Container struct {
	id            string
	containerType ContainerType
	playerID      shared.PlayerID
	shipSymbol    string

	lifecycle *shared.LifecycleStateMachine

	starting    bool
	stopping    bool
	interrupted bool

	currentIteration int
	maxIterations    int

	restartCount int
	maxRestarts  int

	// Operation config, JSON-serializable; boot recovery rebuilds the
	// iteration command from it.
	metadata map[string]interface{}

	clock shared.Clock
}

// NewContainer creates a PENDING container. shipSymbol may be empty for
// operations not bound to one ship (fleet coordinators).
func NewContainer(
	id string,
	containerType ContainerType,
	playerID shared.PlayerID,
	shipSymbol string,
	maxIterations int,
	metadata map[string]interface{},
	clock shared.Clock,
) *Container {
	if clock == nil {
		clock = shared.NewRealClock()
	}

	return &Container{
		id:            id,
		containerType: containerType,
		playerID:      playerID,
		shipSymbol:    shipSymbol,
		lifecycle:     shared.NewLifecycleStateMachine(clock),
		maxIterations: maxIterations,
		maxRestarts:   MaxRestartAttempts,
		metadata:      metadata,
		clock:         clock,
	}
}

func (c *Container) ID() string                       { return c.id }
func (c *Container) Type() ContainerType              { return c.containerType }
func (c *Container) PlayerID() shared.PlayerID        { return c.playerID }
func (c *Container) ShipSymbol() string               { return c.shipSymbol }
func (c *Container) CurrentIteration() int            { return c.currentIteration }
func (c *Container) MaxIterations() int               { return c.maxIterations }
func (c *Container) RestartCount() int                { return c.restartCount }
func (c *Container) MaxRestarts() int                 { return c.maxRestarts }
func (c *Container) Metadata() map[string]interface{} { return c.metadata }

func (c *Container) CreatedAt() time.Time  { return c.lifecycle.CreatedAt() }
func (c *Container) UpdatedAt() time.Time  { return c.lifecycle.UpdatedAt() }
func (c *Container) StartedAt() *time.Time { return c.lifecycle.StartedAt() }
func (c *Container) StoppedAt() *time.Time { return c.lifecycle.StoppedAt() }
func (c *Container) LastError() error      { return c.lifecycle.LastError() }

// Status maps the lifecycle state plus the container overlays.
func (c *Container) Status() ContainerStatus {
	if c.stopping {
		return ContainerStatusStopping
	}
	if c.interrupted {
		return ContainerStatusInterrupted
	}
	if c.starting {
		return ContainerStatusStarting
	}

	switch c.lifecycle.Status() {
	case shared.LifecycleStatusPending:
		return ContainerStatusPending
	case shared.LifecycleStatusRunning:
		return ContainerStatusRunning
	case shared.LifecycleStatusCompleted:
		return ContainerStatusCompleted
	case shared.LifecycleStatusFailed:
		return ContainerStatusFailed
	case shared.LifecycleStatusStopped:
		return ContainerStatusStopped
	default:
		return ContainerStatusPending
	}
}

// MarkStarting flags the window between goroutine spawn and the first
// iteration.
func (c *Container) MarkStarting() error {
	if c.Status() != ContainerStatusPending {
		return fmt.Errorf("cannot mark container starting in %s state", c.Status())
	}
	c.starting = true
	c.lifecycle.UpdateTimestamp()
	return nil
}

// Start transitions to RUNNING. Valid from PENDING, STARTING, STOPPED and
// INTERRUPTED (boot recovery restart).
func (c *Container) Start() error {
	switch c.Status() {
	case ContainerStatusPending, ContainerStatusStarting:
		c.starting = false
		return c.lifecycle.Start()
	case ContainerStatusStopped:
		return c.lifecycle.Start()
	case ContainerStatusInterrupted:
		c.interrupted = false
		c.starting = false
		c.lifecycle.ResetForRestart()
		return c.lifecycle.Start()
	default:
		return fmt.Errorf("cannot start container in %s state", c.Status())
	}
}

// Complete transitions RUNNING to COMPLETED.
func (c *Container) Complete() error {
	if c.Status() != ContainerStatusRunning {
		return fmt.Errorf("cannot complete container in %s state", c.Status())
	}
	c.stopping = false
	return c.lifecycle.Complete()
}

// Fail transitions to FAILED with the terminal error.
func (c *Container) Fail(err error) error {
	status := c.Status()
	if status == ContainerStatusCompleted || status == ContainerStatusStopped {
		return fmt.Errorf("cannot fail container in %s state", status)
	}
	c.starting = false
	c.stopping = false
	return c.lifecycle.Fail(err)
}

// Stop requests a graceful shutdown. A RUNNING container first moves to
// STOPPING and finalizes via MarkStopped when the body exits; anything else
// not yet terminal goes straight to STOPPED.
func (c *Container) Stop() error {
	status := c.Status()
	if status == ContainerStatusCompleted || status == ContainerStatusStopped || status == ContainerStatusFailed {
		return fmt.Errorf("cannot stop container in %s state", status)
	}

	if status == ContainerStatusRunning {
		c.stopping = true
		c.lifecycle.UpdateTimestamp()
		return nil
	}

	c.starting = false
	c.stopping = false
	c.interrupted = false
	return c.lifecycle.Stop()
}

// MarkStopped finalizes STOPPING to STOPPED once the body has exited.
func (c *Container) MarkStopped() error {
	if c.Status() != ContainerStatusStopping {
		return fmt.Errorf("cannot mark stopped when not in stopping state")
	}
	c.stopping = false
	return c.lifecycle.Stop()
}

// MarkInterrupted tags a container found PENDING or RUNNING at boot, before
// a recovery restart is attempted.
func (c *Container) MarkInterrupted() error {
	status := c.Status()
	if status != ContainerStatusPending && status != ContainerStatusRunning && status != ContainerStatusStarting {
		return fmt.Errorf("cannot interrupt container in %s state", status)
	}
	c.starting = false
	c.stopping = false
	c.interrupted = true
	c.lifecycle.UpdateTimestamp()
	return nil
}

// IncrementIteration advances the loop counter after a finished iteration.
func (c *Container) IncrementIteration() error {
	if c.Status() != ContainerStatusRunning {
		return fmt.Errorf("cannot increment iteration in %s state", c.Status())
	}
	c.currentIteration++
	c.lifecycle.UpdateTimestamp()
	return nil
}

// ShouldContinue reports whether another iteration is due.
func (c *Container) ShouldContinue() bool {
	if c.maxIterations == InfiniteIterations {
		return true
	}
	return c.currentIteration < c.maxIterations
}

// CanRestart reports whether a FAILED container may be restarted
// automatically. Restarts retry the same iteration; the counter is not
// advanced by a failure.
func (c *Container) CanRestart() bool {
	if c.Status() != ContainerStatusFailed {
		return false
	}
	return c.restartCount < c.maxRestarts
}

// ResetForRestart rearms a FAILED container and counts the attempt.
func (c *Container) ResetForRestart() error {
	if !c.CanRestart() {
		return fmt.Errorf("container cannot be restarted (restarts: %d/%d)",
			c.restartCount, c.maxRestarts)
	}
	c.starting = false
	c.stopping = false
	c.interrupted = false
	c.lifecycle.ResetForRestart()
	c.restartCount++
	c.lifecycle.UpdateTimestamp()
	return nil
}

// UpdateMetadata merges updates into the operation config.
func (c *Container) UpdateMetadata(updates map[string]interface{}) {
	if c.metadata == nil {
		c.metadata = make(map[string]interface{})
	}
	for key, value := range updates {
		c.metadata[key] = value
	}
	c.lifecycle.UpdateTimestamp()
}

func (c *Container) GetMetadataValue(key string) (interface{}, bool) {
	if c.metadata == nil {
		return nil, false
	}
	value, exists := c.metadata[key]
	return value, exists
}

func (c *Container) IsRunning() bool {
	return c.Status() == ContainerStatusRunning
}

// IsActive reports whether the container occupies its (player, ship, kind)
// slot for idempotent reuse.
func (c *Container) IsActive() bool {
	switch c.Status() {
	case ContainerStatusPending, ContainerStatusStarting, ContainerStatusRunning:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether the container has finished for good. Only
// terminal containers may be removed from the registry.
func (c *Container) IsTerminal() bool {
	switch c.Status() {
	case ContainerStatusCompleted, ContainerStatusFailed, ContainerStatusStopped:
		return true
	default:
		return false
	}
}

func (c *Container) IsStopping() bool {
	return c.stopping
}

func (c *Container) RuntimeDuration() time.Duration {
	return c.lifecycle.RuntimeDuration()
}

func (c *Container) String() string {
	return fmt.Sprintf("Container[%s, type=%s, status=%s, iteration=%d/%d, restarts=%d]",
		c.id, c.containerType, c.Status(), c.currentIteration, c.maxIterations, c.restartCount)
}

// Reconstruct rebuilds a container from its persisted row. Status overlays
// are re-derived: a persisted STOPPING collapses to STOPPED (the body is
// gone), INTERRUPTED is preserved.
func Reconstruct(
	id string,
	containerType ContainerType,
	playerID shared.PlayerID,
	shipSymbol string,
	status ContainerStatus,
	currentIteration, maxIterations, restartCount int,
	metadata map[string]interface{},
	createdAt, updatedAt time.Time,
	startedAt, stoppedAt *time.Time,
	lastError string,
	clock shared.Clock,
) *Container {
	if clock == nil {
		clock = shared.NewRealClock()
	}

	c := &Container{
		id:               id,
		containerType:    containerType,
		playerID:         playerID,
		shipSymbol:       shipSymbol,
		lifecycle:        shared.NewLifecycleStateMachine(clock),
		currentIteration: currentIteration,
		maxIterations:    maxIterations,
		restartCount:     restartCount,
		maxRestarts:      MaxRestartAttempts,
		metadata:         metadata,
		clock:            clock,
	}

	lifecycleStatus := shared.LifecycleStatusPending
	switch status {
	case ContainerStatusRunning, ContainerStatusInterrupted:
		lifecycleStatus = shared.LifecycleStatusRunning
	case ContainerStatusCompleted:
		lifecycleStatus = shared.LifecycleStatusCompleted
	case ContainerStatusFailed:
		lifecycleStatus = shared.LifecycleStatusFailed
	case ContainerStatusStopped, ContainerStatusStopping:
		lifecycleStatus = shared.LifecycleStatusStopped
	}
	var lastErr error
	if lastError != "" {
		lastErr = errors.New(lastError)
	}
	c.lifecycle.RecoverFromPersistence(lifecycleStatus, createdAt, updatedAt, startedAt, stoppedAt, lastErr)

	if status == ContainerStatusInterrupted {
		c.interrupted = true
	}

	return c
}
