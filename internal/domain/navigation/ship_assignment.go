package navigation

import "time"

// AssignmentStatus is the state of a ship assignment.
type AssignmentStatus string

const (
	AssignmentStatusActive AssignmentStatus = "active"
	AssignmentStatusIdle   AssignmentStatus = "idle"
)

// ShipAssignment records which container a ship is working for. Immutable;
// transitions return new instances. Owned by the Ship aggregate.
type ShipAssignment struct {
	containerID   string
	status        AssignmentStatus
	assignedAt    time.Time
	releasedAt    *time.Time
	releaseReason *string
}

// NewActiveAssignment creates an active assignment to a container.
func NewActiveAssignment(containerID string, assignedAt time.Time) *ShipAssignment {
	return &ShipAssignment{
		containerID: containerID,
		status:      AssignmentStatusActive,
		assignedAt:  assignedAt,
	}
}

// NewIdleAssignment creates an unassigned state.
func NewIdleAssignment() *ShipAssignment {
	return &ShipAssignment{status: AssignmentStatusIdle}
}

// ReconstructAssignment hydrates an assignment from persistence.
func ReconstructAssignment(
	containerID string,
	status AssignmentStatus,
	assignedAt time.Time,
	releasedAt *time.Time,
	releaseReason *string,
) *ShipAssignment {
	return &ShipAssignment{
		containerID:   containerID,
		status:        status,
		assignedAt:    assignedAt,
		releasedAt:    releasedAt,
		releaseReason: releaseReason,
	}
}

func (a *ShipAssignment) ContainerID() string      { return a.containerID }
func (a *ShipAssignment) Status() AssignmentStatus { return a.status }
func (a *ShipAssignment) AssignedAt() time.Time    { return a.assignedAt }
func (a *ShipAssignment) ReleasedAt() *time.Time   { return a.releasedAt }
func (a *ShipAssignment) ReleaseReason() *string   { return a.releaseReason }

func (a *ShipAssignment) IsActive() bool {
	return a.status == AssignmentStatusActive
}

func (a *ShipAssignment) IsIdle() bool {
	return a.status == AssignmentStatusIdle
}

// Released returns the idle state reached by releasing this assignment.
func (a *ShipAssignment) Released(reason string, releasedAt time.Time) *ShipAssignment {
	return &ShipAssignment{
		containerID:   "",
		status:        AssignmentStatusIdle,
		assignedAt:    a.assignedAt,
		releasedAt:    &releasedAt,
		releaseReason: &reason,
	}
}

// TransferredTo returns an active assignment to a different container.
func (a *ShipAssignment) TransferredTo(newContainerID string, transferredAt time.Time) *ShipAssignment {
	return &ShipAssignment{
		containerID: newContainerID,
		status:      AssignmentStatusActive,
		assignedAt:  transferredAt,
	}
}
