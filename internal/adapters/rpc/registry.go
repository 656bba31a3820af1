package rpc

import (
	"context"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/orbitalmachines/astrogator/internal/application/mediator"
	"github.com/orbitalmachines/astrogator/internal/domain/container"
	"github.com/orbitalmachines/astrogator/internal/domain/daemon"
	"github.com/orbitalmachines/astrogator/internal/domain/shared"
	"github.com/orbitalmachines/astrogator/pkg/utils"
)

// commandTypeForKind maps a container kind to the command type persisted with
// its row. Boot recovery looks the factory up by this string.
var commandTypeForKind = map[container.ContainerType]string{
	container.ContainerTypeNavigate:         "navigate_route",
	container.ContainerTypeDock:             "dock_ship",
	container.ContainerTypeOrbit:            "orbit_ship",
	container.ContainerTypeRefuel:           "refuel_ship",
	container.ContainerTypeScoutTour:        "scout_tour",
	container.ContainerTypeScoutFleet:       "assign_scouting_fleet",
	container.ContainerTypeShipyardPurchase: "purchase_ship",
	container.ContainerTypeBatchPurchase:    "batch_purchase_ships",
	container.ContainerTypeContractWorkflow: "run_contract_workflow",
	container.ContainerTypeArbitrage:        "run_arbitrage",
}

// operationName is the id prefix for a kind: "SCOUT_TOUR" -> "scout-tour".
func operationName(kind container.ContainerType) string {
	return strings.ReplaceAll(strings.ToLower(string(kind)), "_", "-")
}

// Registry is the in-memory container table and the daemon's launch seam.
// Launch is find-or-create under the registry mutex: concurrent launches for
// the same (player, ship, kind) resolve to one container, the rest observe
// it as reused.
type Registry struct {
	mu      sync.Mutex
	runners map[string]*Runner

	mediator       mediator.Mediator
	containerRepo  container.Repository
	logRepo        container.LogRepository
	assignmentRepo container.ShipAssignmentRepository
	clock          shared.Clock
	log            zerolog.Logger
	events         RunnerEventSink
	maxContainers  int

	// logRetention bounds how long terminal container rows and their logs
	// outlive the container. Zero means rows are purged on Remove.
	logRetention time.Duration
}

func NewRegistry(
	m mediator.Mediator,
	containerRepo container.Repository,
	logRepo container.LogRepository,
	assignmentRepo container.ShipAssignmentRepository,
	clock shared.Clock,
	log zerolog.Logger,
	maxContainers int,
) *Registry {
	if clock == nil {
		clock = shared.NewRealClock()
	}
	return &Registry{
		runners:        make(map[string]*Runner),
		mediator:       m,
		containerRepo:  containerRepo,
		logRepo:        logRepo,
		assignmentRepo: assignmentRepo,
		clock:          clock,
		log:            log.With().Str("component", "registry").Logger(),
		maxContainers:  maxContainers,
	}
}

// SetEventSink wires the metrics sink. Must be called before the first
// Launch; boot wiring does it once.
func (reg *Registry) SetEventSink(sink RunnerEventSink) {
	reg.events = sink
}

// SetLogRetention bounds how long terminal container rows and their logs stay
// in storage. With a positive retention they survive Remove and are purged by
// PurgeExpired once stopped longer than the bound; with zero they go on
// Remove itself.
func (reg *Registry) SetLogRetention(d time.Duration) {
	reg.logRetention = d
}

// SetMediator late-binds the mediator. The registry is a launcher dependency
// of handlers registered on the mediator, so boot wiring creates the registry
// first, builds the mediator against it, then binds here before any Launch.
func (reg *Registry) SetMediator(m mediator.Mediator) {
	reg.mediator = m
}

// Launch finds or creates a container for the spec. The whole decision runs
// under the registry mutex, so two racing launches for one key can never
// both create.
func (reg *Registry) Launch(ctx context.Context, spec daemon.LaunchSpec) (*daemon.LaunchResult, error) {
	if spec.Command == nil {
		return nil, shared.NewDomainError(shared.ErrInvalidParams, "launch spec has no command")
	}
	commandType, ok := commandTypeForKind[spec.Kind]
	if !ok {
		return nil, shared.NewDomainErrorf(shared.ErrInvalidParams, "unknown container kind %q", spec.Kind)
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()

	if existing := reg.findActiveLocked(spec.PlayerID, spec.ShipSymbol, spec.Kind); existing != nil {
		return &daemon.LaunchResult{ContainerID: existing.Container().ID(), Reused: true}, nil
	}

	if reg.maxContainers > 0 && reg.activeCountLocked() >= reg.maxContainers {
		return nil, shared.NewDomainErrorf(shared.ErrInvalidParams,
			"container limit reached (%d)", reg.maxContainers)
	}

	id := utils.GenerateContainerID(operationName(spec.Kind), spec.ShipSymbol)
	entity := container.NewContainer(id, spec.Kind, spec.PlayerID, spec.ShipSymbol, spec.MaxIterations, spec.Metadata, reg.clock)
	injectOperationContext(spec.Command, id, strings.ToLower(string(spec.Kind)))

	if spec.ShipSymbol != "" && reg.assignmentRepo != nil {
		lock := container.NewShipAssignment(spec.ShipSymbol, spec.PlayerID, id, reg.clock)
		if err := reg.assignmentRepo.Assign(ctx, lock); err != nil {
			return nil, err
		}
	}

	if err := reg.containerRepo.Insert(ctx, entity, commandType); err != nil {
		if spec.ShipSymbol != "" && reg.assignmentRepo != nil {
			reg.assignmentRepo.ReleaseByContainer(ctx, id, spec.PlayerID, "insert failed")
		}
		return nil, shared.WrapDomainError(shared.ErrInternal, "persisting container", err)
	}

	runner := NewRunner(entity, reg.mediator, spec.Command,
		reg.containerRepo, reg.logRepo, reg.assignmentRepo, reg.clock, reg.log, reg.events)
	reg.runners[id] = runner

	if err := runner.Start(); err != nil {
		delete(reg.runners, id)
		return nil, shared.WrapDomainError(shared.ErrInternal, "starting container", err)
	}

	reg.log.Info().
		Str("container_id", id).
		Str("kind", string(spec.Kind)).
		Str("ship", spec.ShipSymbol).
		Msg("container launched")

	return &daemon.LaunchResult{ContainerID: id, Reused: false}, nil
}

// StopContainer requests cooperative shutdown and returns immediately. The
// runner keeps a bounded grace-period wait in the background.
func (reg *Registry) StopContainer(ctx context.Context, containerID string, playerID shared.PlayerID) error {
	reg.mu.Lock()
	runner, ok := reg.runners[containerID]
	reg.mu.Unlock()

	if !ok {
		return shared.NewDomainErrorf(shared.ErrContainerNotFound, "container %s", containerID)
	}
	if !runner.Container().PlayerID().Equals(playerID) {
		return shared.NewDomainErrorf(shared.ErrContainerNotFound, "container %s", containerID)
	}

	go func() {
		if err := runner.Stop(); err != nil {
			reg.log.Warn().Err(err).Str("container_id", containerID).Msg("stop failed")
		}
	}()
	return nil
}

// Get returns the runner for a container id, nil when unknown.
func (reg *Registry) Get(containerID string) *Runner {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return reg.runners[containerID]
}

// ListFilter narrows List results. Nil fields match everything.
type ListFilter struct {
	PlayerID   *shared.PlayerID
	Kind       *container.ContainerType
	ShipSymbol *string
	Status     *container.ContainerStatus
}

// List snapshots the registered containers matching the filter.
func (reg *Registry) List(filter ListFilter) []*container.Container {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	out := make([]*container.Container, 0, len(reg.runners))
	for _, runner := range reg.runners {
		c := runner.Container()
		if filter.PlayerID != nil && !c.PlayerID().Equals(*filter.PlayerID) {
			continue
		}
		if filter.Kind != nil && c.Type() != *filter.Kind {
			continue
		}
		if filter.ShipSymbol != nil && c.ShipSymbol() != *filter.ShipSymbol {
			continue
		}
		if filter.Status != nil && c.Status() != *filter.Status {
			continue
		}
		out = append(out, c)
	}
	return out
}

// Remove drops a terminal container from the registry and releases any locks
// it still held. Running containers must be stopped first.
func (reg *Registry) Remove(ctx context.Context, containerID string, playerID shared.PlayerID) error {
	reg.mu.Lock()
	runner, ok := reg.runners[containerID]
	if ok && !runner.Container().PlayerID().Equals(playerID) {
		runner, ok = nil, false
	}
	if ok && !runner.Container().IsTerminal() {
		reg.mu.Unlock()
		return shared.NewDomainErrorf(shared.ErrInvalidParams,
			"container %s is %s, stop it first", containerID, runner.Container().Status())
	}
	delete(reg.runners, containerID)
	reg.mu.Unlock()

	if !ok {
		// Not in memory; it may still exist as a row from a previous run.
		c, err := reg.containerRepo.FindByID(ctx, containerID, playerID)
		if err != nil {
			return shared.WrapDomainError(shared.ErrInternal, "looking up container", err)
		}
		if c == nil {
			return shared.NewDomainErrorf(shared.ErrContainerNotFound, "container %s", containerID)
		}
		if !c.IsTerminal() {
			return shared.NewDomainErrorf(shared.ErrInvalidParams,
				"container %s is %s, stop it first", containerID, c.Status())
		}
	}

	if reg.assignmentRepo != nil {
		reg.assignmentRepo.ReleaseByContainer(ctx, containerID, playerID, "removed")
	}

	if reg.logRetention <= 0 {
		if reg.logRepo != nil {
			if err := reg.logRepo.DeleteByContainer(ctx, containerID); err != nil {
				reg.log.Warn().Err(err).Str("container_id", containerID).Msg("deleting container logs")
			}
		}
		if err := reg.containerRepo.Delete(ctx, containerID, playerID); err != nil {
			return shared.WrapDomainError(shared.ErrInternal, "deleting container", err)
		}
	}
	return nil
}

// PurgeExpired deletes terminal container rows stopped longer ago than the
// retention bound, together with their log rows, and drops any lingering
// runner handles for them. No-op when retention is zero: Remove already
// deleted those rows.
func (reg *Registry) PurgeExpired(ctx context.Context) ([]string, error) {
	if reg.logRetention <= 0 {
		return nil, nil
	}

	cutoff := reg.clock.Now().Add(-reg.logRetention)
	ids, err := reg.containerRepo.DeleteTerminalBefore(ctx, cutoff)
	if err != nil {
		return nil, shared.WrapDomainError(shared.ErrInternal, "purging expired containers", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	for _, id := range ids {
		if reg.logRepo != nil {
			if err := reg.logRepo.DeleteByContainer(ctx, id); err != nil {
				reg.log.Warn().Err(err).Str("container_id", id).Msg("purging container logs")
			}
		}
	}

	reg.mu.Lock()
	for _, id := range ids {
		delete(reg.runners, id)
	}
	reg.mu.Unlock()

	reg.log.Info().Int("count", len(ids)).Msg("expired container rows purged")
	return ids, nil
}

// Snapshot returns every runner keyed by id, for metrics polling.
func (reg *Registry) Snapshot() map[string]*Runner {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	out := make(map[string]*Runner, len(reg.runners))
	for id, r := range reg.runners {
		out[id] = r
	}
	return out
}

// ActiveCount reports containers that are not yet terminal.
func (reg *Registry) ActiveCount() int {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return reg.activeCountLocked()
}

// TotalCount reports every registered container, terminal included.
func (reg *Registry) TotalCount() int {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return len(reg.runners)
}

// StopAll stops every active container concurrently and waits up to the
// timeout. Used on SIGTERM.
func (reg *Registry) StopAll(timeout time.Duration) {
	reg.mu.Lock()
	runners := make([]*Runner, 0, len(reg.runners))
	for _, r := range reg.runners {
		if !r.Container().IsTerminal() {
			runners = append(runners, r)
		}
	}
	reg.mu.Unlock()

	var wg sync.WaitGroup
	for _, r := range runners {
		wg.Add(1)
		go func(r *Runner) {
			defer wg.Done()
			r.Stop()
		}(r)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		reg.log.Info().Int("count", len(runners)).Msg("all containers stopped")
	case <-time.After(timeout):
		reg.log.Warn().Msg("some containers did not stop within timeout")
	}
}

func (reg *Registry) findActiveLocked(playerID shared.PlayerID, shipSymbol string, kind container.ContainerType) *Runner {
	for _, runner := range reg.runners {
		c := runner.Container()
		if c.PlayerID().Equals(playerID) && c.ShipSymbol() == shipSymbol && c.Type() == kind && !c.IsTerminal() {
			return runner
		}
	}
	return nil
}

func (reg *Registry) activeCountLocked() int {
	n := 0
	for _, runner := range reg.runners {
		if !runner.Container().IsTerminal() {
			n++
		}
	}
	return n
}

// injectOperationContext fills the command's Context and ContainerID fields,
// when it declares them, so ledger entries and workflow logs attribute to the
// container actually running the command. The id only exists after the
// registry assigns it, which is why handlers cannot set these themselves.
func injectOperationContext(command interface{}, containerID, operationType string) {
	v := reflect.ValueOf(command)
	if v.Kind() != reflect.Ptr || v.IsNil() {
		return
	}
	v = v.Elem()
	if v.Kind() != reflect.Struct {
		return
	}

	if f := v.FieldByName("Context"); f.IsValid() && f.CanSet() &&
		f.Type() == reflect.TypeOf((*shared.OperationContext)(nil)) && f.IsNil() {
		oc := shared.NewOperationContext(containerID, operationType)
		f.Set(reflect.ValueOf(&oc))
	}

	if f := v.FieldByName("ContainerID"); f.IsValid() && f.CanSet() &&
		f.Kind() == reflect.String && f.String() == "" {
		f.SetString(containerID)
	}
}

var _ daemon.ContainerLauncher = (*Registry)(nil)
