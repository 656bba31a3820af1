package rpc

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/orbitalmachines/astrogator/internal/application/logging"
	"github.com/orbitalmachines/astrogator/internal/application/mediator"
	"github.com/orbitalmachines/astrogator/internal/domain/container"
	"github.com/orbitalmachines/astrogator/internal/domain/shared"
)

const stopGracePeriod = 10 * time.Second

// Runner drives one container in its own goroutine: the iteration loop,
// restart backoff on transient errors, status persistence and ship lock
// release on exit.
type Runner struct {
	entity   *container.Container
	mediator mediator.Mediator
	command  interface{}

	containerRepo  container.Repository
	logRepo        container.LogRepository
	assignmentRepo container.ShipAssignmentRepository
	clock          shared.Clock
	log            zerolog.Logger
	onEvent        RunnerEventSink

	ctx        context.Context
	cancelFunc context.CancelFunc
	done       chan struct{}
	mu         sync.RWMutex
}

// RunnerEventSink receives lifecycle events for metrics. All methods may be
// called from the runner goroutine.
type RunnerEventSink interface {
	ContainerIteration(r *Runner)
	ContainerRestart(r *Runner)
	ContainerFinished(r *Runner)
}

func NewRunner(
	entity *container.Container,
	m mediator.Mediator,
	command interface{},
	containerRepo container.Repository,
	logRepo container.LogRepository,
	assignmentRepo container.ShipAssignmentRepository,
	clock shared.Clock,
	log zerolog.Logger,
	onEvent RunnerEventSink,
) *Runner {
	if clock == nil {
		clock = shared.NewRealClock()
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &Runner{
		entity:         entity,
		mediator:       m,
		command:        command,
		containerRepo:  containerRepo,
		logRepo:        logRepo,
		assignmentRepo: assignmentRepo,
		clock:          clock,
		log:            log.With().Str("container_id", entity.ID()).Logger(),
		onEvent:        onEvent,
		ctx:            ctx,
		cancelFunc:     cancel,
		done:           make(chan struct{}),
	}
}

// Container returns the underlying aggregate.
func (r *Runner) Container() *container.Container {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.entity
}

// metrics.ContainerInfo

func (r *Runner) PlayerID() int { return r.Container().PlayerID().Value() }
func (r *Runner) Type() container.ContainerType {
	return r.Container().Type()
}
func (r *Runner) Status() container.ContainerStatus {
	return r.Container().Status()
}
func (r *Runner) RestartCount() int     { return r.Container().RestartCount() }
func (r *Runner) CurrentIteration() int { return r.Container().CurrentIteration() }
func (r *Runner) RuntimeDuration() time.Duration {
	return r.Container().RuntimeDuration()
}

// Start moves the container to RUNNING and launches the execution goroutine.
func (r *Runner) Start() error {
	r.mu.Lock()
	if err := r.entity.Start(); err != nil {
		r.mu.Unlock()
		return err
	}
	r.mu.Unlock()

	r.persistLog("INFO", "Container started", nil)
	r.persistStatus()

	go r.execute()
	return nil
}

// Stop requests cooperative shutdown and blocks up to the grace period for
// the goroutine to wind down. Callers who must not block run it in a
// goroutine of their own; the registry does exactly that.
func (r *Runner) Stop() error {
	r.mu.Lock()
	if err := r.entity.Stop(); err != nil {
		r.mu.Unlock()
		return err
	}
	alreadyDone := r.entity.IsTerminal()
	r.mu.Unlock()

	r.persistLog("INFO", "Stop requested", nil)
	r.cancelFunc()

	if !alreadyDone {
		select {
		case <-r.done:
		case <-time.After(stopGracePeriod):
			r.persistLog("WARNING", "Container did not stop within grace period", nil)
		}
	}

	r.mu.Lock()
	if !r.entity.IsTerminal() {
		r.entity.MarkStopped()
	}
	r.mu.Unlock()

	r.persistStatus()
	r.releaseShipAssignments("stopped")

	if r.onEvent != nil {
		r.onEvent.ContainerFinished(r)
	}
	return nil
}

// Done closes when the execution goroutine has exited.
func (r *Runner) Done() <-chan struct{} {
	return r.done
}

func (r *Runner) execute() {
	defer close(r.done)

	for {
		r.mu.RLock()
		shouldContinue := r.entity.ShouldContinue()
		stopping := r.entity.IsStopping()
		r.mu.RUnlock()

		if !shouldContinue || stopping {
			break
		}

		if err := r.runIteration(); err != nil {
			// A cancelled context means a stop, not a failure.
			if r.ctx.Err() != nil {
				r.persistLog("INFO", "Context canceled, stopping container", nil)
				return
			}

			if !r.handleError(err) {
				return
			}
			continue
		}

		r.mu.Lock()
		r.entity.IncrementIteration()
		r.mu.Unlock()

		r.persistStatus()
		if r.onEvent != nil {
			r.onEvent.ContainerIteration(r)
		}

		select {
		case <-r.ctx.Done():
			r.persistLog("INFO", "Stop signal received", nil)
			return
		default:
		}
	}

	r.mu.Lock()
	if r.entity.IsStopping() {
		r.entity.MarkStopped()
	} else {
		r.entity.Complete()
	}
	completed := r.entity.Status() == container.ContainerStatusCompleted
	r.mu.Unlock()

	if completed {
		r.persistLog("INFO", "Container completed", map[string]interface{}{
			"iterations": r.entity.CurrentIteration(),
			"runtime":    r.entity.RuntimeDuration().String(),
		})
	}

	r.persistStatus()
	r.releaseShipAssignments(string(r.entity.Status()))

	if r.onEvent != nil {
		r.onEvent.ContainerFinished(r)
	}
}

func (r *Runner) runIteration() error {
	r.persistLog("INFO", "Executing iteration", map[string]interface{}{
		"iteration": r.entity.CurrentIteration() + 1,
	})

	ctx := logging.WithLogger(r.ctx, r.containerLogger())

	_, err := r.mediator.Send(ctx, r.command)
	if err != nil {
		return fmt.Errorf("command execution failed: %w", err)
	}
	return nil
}

// handleError decides restart-vs-fail. Transient errors restart with
// exponential backoff until the attempt cap; everything else is terminal.
// Returns true when the loop should continue.
func (r *Runner) handleError(err error) bool {
	r.persistLog("ERROR", err.Error(), nil)

	r.mu.Lock()
	r.entity.Fail(err)
	canRestart := shared.IsTransient(err) && r.entity.CanRestart()
	attempt := r.entity.RestartCount()
	r.mu.Unlock()

	r.persistStatus()

	if !canRestart {
		r.releaseShipAssignments("failed")
		if r.onEvent != nil {
			r.onEvent.ContainerFinished(r)
		}
		return false
	}

	delay := container.NextRestartDelay(attempt)
	r.persistLog("INFO", fmt.Sprintf("Retrying after error (attempt %d, backoff %s)", attempt, delay), nil)
	r.clock.Sleep(delay)

	if r.ctx.Err() != nil {
		return false
	}

	r.mu.Lock()
	r.entity.ResetForRestart()
	r.entity.Start()
	r.mu.Unlock()

	r.persistStatus()
	if r.onEvent != nil {
		r.onEvent.ContainerRestart(r)
	}
	return true
}

func (r *Runner) releaseShipAssignments(reason string) {
	if r.assignmentRepo == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := r.assignmentRepo.ReleaseByContainer(ctx, r.entity.ID(), r.entity.PlayerID(), reason); err != nil {
		r.log.Error().Err(err).Msg("releasing ship assignments")
	}
}

// persistStatus writes the aggregate's current state. Failures are logged and
// swallowed; the in-memory registry stays authoritative while the daemon runs.
func (r *Runner) persistStatus() {
	if r.containerRepo == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	r.mu.RLock()
	defer r.mu.RUnlock()
	if err := r.containerRepo.Update(ctx, r.entity); err != nil {
		r.log.Error().Err(err).Msg("persisting container status")
	}
}

func (r *Runner) persistLog(level, message string, metadata map[string]interface{}) {
	switch level {
	case "ERROR":
		r.log.Error().Msg(message)
	case "WARNING":
		r.log.Warn().Msg(message)
	default:
		r.log.Info().Msg(message)
	}

	if r.logRepo == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := r.logRepo.Log(ctx, r.entity.ID(), r.entity.PlayerID(), message, level, metadata); err != nil {
		r.log.Error().Err(err).Msg("persisting container log")
	}
}

// containerLogger adapts the runner's log sinks to the logger handlers pull
// from context, so command-level log lines land in the container's log
// stream.
func (r *Runner) containerLogger() logging.ContainerLogger {
	return &runnerLogger{r: r}
}

type runnerLogger struct {
	r *Runner
}

func (l *runnerLogger) Log(level, message string, metadata map[string]interface{}) {
	l.r.persistLog(level, message, metadata)
}
