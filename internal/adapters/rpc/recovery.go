package rpc

import (
	"context"
	"strings"

	"github.com/orbitalmachines/astrogator/internal/domain/container"
)

// RecoveryReport summarizes what boot recovery did with the container rows
// the previous daemon process left behind.
type RecoveryReport struct {
	Found         int
	Recovered     []string
	Skipped       []string
	LocksReleased int
}

// Recover reloads containers left non-terminal by a previous process, marks
// them INTERRUPTED and relaunches the ones whose command type has a factory.
// Ship locks are released wholesale first; relaunched containers re-acquire
// theirs, so locks for dead containers cannot linger.
func (reg *Registry) Recover(ctx context.Context, factories *FactoryRegistry) (*RecoveryReport, error) {
	report := &RecoveryReport{}

	if reg.assignmentRepo != nil {
		released, err := reg.assignmentRepo.ReleaseAllActive(ctx, "daemon restart")
		if err != nil {
			reg.log.Error().Err(err).Msg("releasing stale ship locks")
		}
		report.LocksReleased = released
	}

	rows, err := reg.containerRepo.FindNonTerminal(ctx)
	if err != nil {
		return nil, err
	}
	report.Found = len(rows)

	for _, entity := range rows {
		if err := entity.MarkInterrupted(); err != nil {
			reg.log.Warn().Err(err).Str("container_id", entity.ID()).Msg("cannot interrupt container")
			report.Skipped = append(report.Skipped, entity.ID())
			continue
		}
		if err := reg.containerRepo.Update(ctx, entity); err != nil {
			reg.log.Error().Err(err).Str("container_id", entity.ID()).Msg("persisting INTERRUPTED")
		}

		if reg.recoverOne(ctx, entity, factories) {
			report.Recovered = append(report.Recovered, entity.ID())
		} else {
			report.Skipped = append(report.Skipped, entity.ID())
		}
	}

	reg.log.Info().
		Int("found", report.Found).
		Int("recovered", len(report.Recovered)).
		Int("locks_released", report.LocksReleased).
		Msg("boot recovery finished")

	return report, nil
}

func (reg *Registry) recoverOne(ctx context.Context, entity *container.Container, factories *FactoryRegistry) bool {
	commandType, err := reg.containerRepo.CommandType(ctx, entity.ID())
	if err != nil {
		reg.log.Warn().Err(err).Str("container_id", entity.ID()).Msg("no command type for container")
		return false
	}

	factory, ok := factories.Lookup(commandType)
	if !ok {
		reg.log.Info().
			Str("container_id", entity.ID()).
			Str("command_type", commandType).
			Msg("no factory registered, leaving INTERRUPTED")
		return false
	}

	command, err := factory(entity.Metadata(), entity.PlayerID())
	if err != nil {
		reg.log.Warn().Err(err).Str("container_id", entity.ID()).Msg("rebuilding command failed")
		return false
	}
	injectOperationContext(command, entity.ID(), strings.ToLower(string(entity.Type())))

	if entity.ShipSymbol() != "" && reg.assignmentRepo != nil {
		lock := container.NewShipAssignment(entity.ShipSymbol(), entity.PlayerID(), entity.ID(), reg.clock)
		if err := reg.assignmentRepo.Assign(ctx, lock); err != nil {
			reg.log.Warn().Err(err).Str("container_id", entity.ID()).Msg("ship lock unavailable, not recovering")
			return false
		}
	}

	runner := NewRunner(entity, reg.mediator, command,
		reg.containerRepo, reg.logRepo, reg.assignmentRepo, reg.clock, reg.log, reg.events)

	reg.mu.Lock()
	reg.runners[entity.ID()] = runner
	reg.mu.Unlock()

	if err := runner.Start(); err != nil {
		reg.log.Error().Err(err).Str("container_id", entity.ID()).Msg("recovered container failed to start")
		reg.mu.Lock()
		delete(reg.runners, entity.ID())
		reg.mu.Unlock()
		return false
	}

	reg.log.Info().
		Str("container_id", entity.ID()).
		Str("command_type", commandType).
		Msg("container recovered")
	return true
}
