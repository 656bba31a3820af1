package rpc

import (
	"context"
	"time"

	"github.com/orbitalmachines/astrogator/internal/domain/container"
	"github.com/orbitalmachines/astrogator/internal/domain/daemon"
	"github.com/orbitalmachines/astrogator/internal/domain/navigation"
	"github.com/orbitalmachines/astrogator/internal/domain/shared"
)

// StartHealthLoop drives the health monitor on a ticker until shutdown.
// listPlayers supplies the players whose locks and fleets get swept.
func (s *Server) StartHealthLoop(interval time.Duration, listPlayers func(ctx context.Context) []shared.PlayerID) {
	if s.healthMonitor == nil {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.runHealthCheck(listPlayers)
			case <-s.done:
				return
			}
		}
	}()
}

// runHealthCheck snapshots registry and fleet state per player, lets the
// monitor classify it and persists the lock releases it decided on.
func (s *Server) runHealthCheck(listPlayers func(ctx context.Context) []shared.PlayerID) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if _, err := s.registry.PurgeExpired(ctx); err != nil {
		s.log.Warn().Err(err).Msg("container retention purge failed")
	}

	containers := make(map[string]*container.Container)
	for id, runner := range s.registry.Snapshot() {
		containers[id] = runner.Container()
	}

	for _, playerID := range listPlayers(ctx) {
		assignments := make(map[string]*container.ShipAssignment)
		if s.assignmentRepo != nil {
			locks, err := s.assignmentRepo.FindActiveByPlayer(ctx, playerID)
			if err != nil {
				s.log.Warn().Err(err).Int("player_id", playerID.Value()).Msg("loading ship locks")
				continue
			}
			for _, lock := range locks {
				assignments[lock.ShipSymbol()] = lock
			}
		}

		ships := make(map[string]*navigation.Ship)
		if s.shipRepo != nil {
			fleet, err := s.shipRepo.FindAllByPlayer(ctx, playerID)
			if err == nil {
				for _, ship := range fleet {
					ships[ship.ShipSymbol()] = ship
				}
			}
		}

		result := s.healthMonitor.RunCheck(assignments, containers, ships)
		if result.Skipped {
			return
		}
		s.applyCheckResult(ctx, playerID, result)
	}
}

func (s *Server) applyCheckResult(ctx context.Context, playerID shared.PlayerID, result daemon.CheckResult) {
	for _, shipSymbol := range result.ReleasedLocks {
		if err := s.assignmentRepo.Release(ctx, shipSymbol, playerID, "orphaned_cleanup"); err != nil {
			s.log.Warn().Err(err).Str("ship", shipSymbol).Msg("releasing orphaned lock")
		} else {
			s.log.Info().Str("ship", shipSymbol).Msg("orphaned ship lock released")
		}
	}
	for _, shipSymbol := range result.StuckShips {
		s.log.Warn().Str("ship", shipSymbol).Msg("ship stuck in transit past arrival")
	}
	for _, id := range result.SuspiciousContainers {
		s.log.Warn().Str("container_id", id).Msg("container iterating suspiciously fast")
	}
}
