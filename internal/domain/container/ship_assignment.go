package container

import (
	"fmt"
	"time"

	"github.com/orbitalmachines/astrogator/internal/domain/shared"
)

// AssignmentStatus is the state of a ship lock.
type AssignmentStatus string

const (
	AssignmentStatusActive   AssignmentStatus = "active"
	AssignmentStatusReleased AssignmentStatus = "released"
)

// ShipAssignment is the lock record binding a ship to a container. At most
// one active assignment may exist per (player, ship); the registry checks it
// before handing a ship to a new container.
type ShipAssignment struct {
	shipSymbol    string
	playerID      shared.PlayerID
	containerID   string
	status        AssignmentStatus
	assignedAt    time.Time
	releasedAt    *time.Time
	releaseReason *string
	clock         shared.Clock
}

// NewShipAssignment creates an active lock for a ship.
func NewShipAssignment(
	shipSymbol string,
	playerID shared.PlayerID,
	containerID string,
	clock shared.Clock,
) *ShipAssignment {
	if clock == nil {
		clock = shared.NewRealClock()
	}

	return &ShipAssignment{
		shipSymbol:  shipSymbol,
		playerID:    playerID,
		containerID: containerID,
		status:      AssignmentStatusActive,
		assignedAt:  clock.Now(),
		clock:       clock,
	}
}

// ReconstructShipAssignment hydrates a lock from persistence.
func ReconstructShipAssignment(
	shipSymbol string,
	playerID shared.PlayerID,
	containerID string,
	status AssignmentStatus,
	assignedAt time.Time,
	releasedAt *time.Time,
	releaseReason *string,
	clock shared.Clock,
) *ShipAssignment {
	if clock == nil {
		clock = shared.NewRealClock()
	}

	return &ShipAssignment{
		shipSymbol:    shipSymbol,
		playerID:      playerID,
		containerID:   containerID,
		status:        status,
		assignedAt:    assignedAt,
		releasedAt:    releasedAt,
		releaseReason: releaseReason,
		clock:         clock,
	}
}

func (sa *ShipAssignment) ShipSymbol() string        { return sa.shipSymbol }
func (sa *ShipAssignment) PlayerID() shared.PlayerID { return sa.playerID }
func (sa *ShipAssignment) ContainerID() string       { return sa.containerID }
func (sa *ShipAssignment) Status() AssignmentStatus  { return sa.status }
func (sa *ShipAssignment) AssignedAt() time.Time     { return sa.assignedAt }
func (sa *ShipAssignment) ReleasedAt() *time.Time    { return sa.releasedAt }
func (sa *ShipAssignment) ReleaseReason() *string    { return sa.releaseReason }

// Release marks the lock released with a reason.
func (sa *ShipAssignment) Release(reason string) error {
	if sa.status == AssignmentStatusReleased {
		return fmt.Errorf("assignment already released")
	}

	now := sa.clock.Now()
	sa.status = AssignmentStatusReleased
	sa.releasedAt = &now
	sa.releaseReason = &reason

	return nil
}

// ForceRelease releases regardless of state. Used for stale-lock cleanup.
func (sa *ShipAssignment) ForceRelease(reason string) {
	now := sa.clock.Now()
	sa.status = AssignmentStatusReleased
	sa.releasedAt = &now
	sa.releaseReason = &reason
}

// IsStale reports whether an active lock is older than timeout.
func (sa *ShipAssignment) IsStale(timeout time.Duration) bool {
	if sa.status == AssignmentStatusReleased {
		return false
	}

	return sa.clock.Now().Sub(sa.assignedAt) > timeout
}

func (sa *ShipAssignment) IsActive() bool {
	return sa.status == AssignmentStatusActive
}

func (sa *ShipAssignment) String() string {
	return fmt.Sprintf("ShipAssignment[ship=%s, container=%s, status=%s]",
		sa.shipSymbol, sa.containerID, sa.status)
}
