package daemon

import (
	"time"

	"github.com/orbitalmachines/astrogator/internal/domain/container"
	"github.com/orbitalmachines/astrogator/internal/domain/navigation"
	"github.com/orbitalmachines/astrogator/internal/domain/shared"
)

// RecoveryMetrics counts what the health monitor has done since boot.
type RecoveryMetrics struct {
	StaleLocksReleased   int `json:"stale_locks_released"`
	StuckShipsDetected   int `json:"stuck_ships_detected"`
	SuspiciousContainers int `json:"suspicious_containers"`
}

// HealthMonitor periodically sweeps registry state for three pathologies:
// ship locks whose container is gone, ships stuck in transit past their
// arrival time, and infinite containers iterating suspiciously fast.
// Pure domain logic; the supervisor drives it on a ticker.
type HealthMonitor struct {
	checkInterval    time.Duration
	transitGrace     time.Duration
	fastIterationAvg float64
	lastCheckTime    *time.Time
	metrics          RecoveryMetrics
	clock            shared.Clock
}

// NewHealthMonitor creates a monitor. transitGrace is how far past a ship's
// arrival time IN_TRANSIT is still considered normal.
func NewHealthMonitor(checkInterval, transitGrace time.Duration, clock shared.Clock) *HealthMonitor {
	if clock == nil {
		clock = shared.NewRealClock()
	}

	return &HealthMonitor{
		checkInterval:    checkInterval,
		transitGrace:     transitGrace,
		fastIterationAvg: 5.0,
		clock:            clock,
	}
}

func (hm *HealthMonitor) CheckInterval() time.Duration { return hm.checkInterval }
func (hm *HealthMonitor) TransitGrace() time.Duration  { return hm.transitGrace }
func (hm *HealthMonitor) LastCheckTime() *time.Time    { return hm.lastCheckTime }
func (hm *HealthMonitor) Metrics() RecoveryMetrics     { return hm.metrics }

// CheckResult is what one sweep found.
type CheckResult struct {
	Skipped              bool
	ReleasedLocks        []string
	StuckShips           []string
	SuspiciousContainers []string
}

// RunCheck performs one sweep. Returns Skipped=true when called before the
// check interval has elapsed since the previous sweep.
func (hm *HealthMonitor) RunCheck(
	assignments map[string]*container.ShipAssignment,
	containers map[string]*container.Container,
	ships map[string]*navigation.Ship,
) CheckResult {
	now := hm.clock.Now()

	if hm.lastCheckTime != nil && now.Sub(*hm.lastCheckTime) < hm.checkInterval {
		return CheckResult{Skipped: true}
	}
	hm.lastCheckTime = &now

	existing := make(map[string]bool, len(containers))
	for id, c := range containers {
		if !c.IsTerminal() {
			existing[id] = true
		}
	}

	result := CheckResult{
		ReleasedLocks:        hm.releaseOrphanedLocks(assignments, existing),
		StuckShips:           hm.detectStuckShips(ships),
		SuspiciousContainers: hm.detectFastLoops(containers),
	}

	hm.metrics.StaleLocksReleased += len(result.ReleasedLocks)
	hm.metrics.StuckShipsDetected += len(result.StuckShips)
	hm.metrics.SuspiciousContainers += len(result.SuspiciousContainers)

	return result
}

// releaseOrphanedLocks force-releases active locks whose container is
// terminal or unknown.
func (hm *HealthMonitor) releaseOrphanedLocks(
	assignments map[string]*container.ShipAssignment,
	liveContainers map[string]bool,
) []string {
	var released []string

	for shipSymbol, lock := range assignments {
		if !lock.IsActive() {
			continue
		}
		if liveContainers[lock.ContainerID()] {
			continue
		}

		lock.ForceRelease("orphaned_cleanup")
		released = append(released, shipSymbol)
	}

	return released
}

// detectStuckShips flags ships still IN_TRANSIT past arrival + grace. The
// usual cause is a worker that died between the navigate call and the
// arrival wait.
func (hm *HealthMonitor) detectStuckShips(ships map[string]*navigation.Ship) []string {
	var stuck []string
	now := hm.clock.Now()

	for symbol, ship := range ships {
		if !ship.IsInTransit() {
			continue
		}

		arrival := ship.ArrivalTime()
		if arrival == nil {
			continue
		}

		if now.Sub(*arrival) > hm.transitGrace {
			stuck = append(stuck, symbol)
		}
	}

	return stuck
}

// detectFastLoops flags infinite containers averaging under five seconds per
// iteration; a loop that fast is usually spinning on an error it does not
// surface.
func (hm *HealthMonitor) detectFastLoops(containers map[string]*container.Container) []string {
	var suspicious []string

	for id, c := range containers {
		if !c.IsRunning() || c.MaxIterations() != container.InfiniteIterations {
			continue
		}

		iterations := c.CurrentIteration()
		if iterations < 10 {
			continue
		}

		runtime := c.RuntimeDuration().Seconds()
		if runtime <= 0 {
			continue
		}

		if runtime/float64(iterations) < hm.fastIterationAvg {
			suspicious = append(suspicious, id)
		}
	}

	return suspicious
}
