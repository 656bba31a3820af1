package rpc

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/orbitalmachines/astrogator/internal/domain/navigation"
	"github.com/orbitalmachines/astrogator/internal/domain/shared"
)

// clockDriftBuffer pads arrival timers so a transition never fires before
// the remote API considers the ship arrived.
const clockDriftBuffer = 1 * time.Second

// ShipStateScheduler fires IN_TRANSIT -> IN_ORBIT transitions at the exact
// API-provided arrival timestamps via time.AfterFunc, with a periodic sweep
// as the safety net for timers lost to failed saves or clock drift.
type ShipStateScheduler struct {
	shipRepo    navigation.ShipRepository
	listPlayers func(ctx context.Context) []shared.PlayerID
	clock       shared.Clock
	log         zerolog.Logger

	mu     sync.Mutex
	timers map[string]*time.Timer
	stopCh chan struct{}
}

// NewShipStateScheduler creates the scheduler. listPlayers supplies the
// players whose fleets the sweeper walks.
func NewShipStateScheduler(
	shipRepo navigation.ShipRepository,
	listPlayers func(ctx context.Context) []shared.PlayerID,
	clock shared.Clock,
	log zerolog.Logger,
) *ShipStateScheduler {
	if clock == nil {
		clock = shared.NewRealClock()
	}
	return &ShipStateScheduler{
		shipRepo:    shipRepo,
		listPlayers: listPlayers,
		clock:       clock,
		log:         log.With().Str("component", "ship_scheduler").Logger(),
		timers:      make(map[string]*time.Timer),
		stopCh:      make(chan struct{}),
	}
}

// ScheduleArrival arms (or re-arms) the arrival timer for an in-transit ship.
func (s *ShipStateScheduler) ScheduleArrival(ship *navigation.Ship) {
	arrival := ship.ArrivalTime()
	if arrival == nil {
		return
	}

	delay := arrival.Sub(s.clock.Now())
	if delay < 0 {
		delay = 0
	}
	delay += clockDriftBuffer

	symbol := ship.ShipSymbol()
	playerID := ship.PlayerID()

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.timers[symbol]; ok {
		existing.Stop()
	}
	s.timers[symbol] = time.AfterFunc(delay, func() {
		s.handleArrival(symbol, playerID)
	})

	s.log.Debug().Str("ship", symbol).Dur("delay", delay).Msg("arrival scheduled")
}

func (s *ShipStateScheduler) handleArrival(symbol string, playerID shared.PlayerID) {
	s.mu.Lock()
	delete(s.timers, symbol)
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	fresh, err := s.shipRepo.FindBySymbol(ctx, symbol, playerID)
	if err != nil {
		s.log.Warn().Err(err).Str("ship", symbol).Msg("fetching ship for arrival")
		return
	}
	if !fresh.IsInTransit() {
		return
	}

	if err := fresh.Arrive(); err != nil {
		s.log.Warn().Err(err).Str("ship", symbol).Msg("arrival transition rejected")
		return
	}
	if err := s.shipRepo.Save(ctx, fresh); err != nil {
		s.log.Warn().Err(err).Str("ship", symbol).Msg("saving arrived ship")
		return
	}

	s.log.Info().Str("ship", symbol).Str("waypoint", fresh.CurrentLocation().Symbol).Msg("ship arrived")
}

// ScheduleAllPending arms timers for every in-transit ship across all known
// players. Called once at boot after recovery.
func (s *ShipStateScheduler) ScheduleAllPending(ctx context.Context) {
	for _, playerID := range s.listPlayers(ctx) {
		ships, err := s.shipRepo.FindAllByPlayer(ctx, playerID)
		if err != nil {
			s.log.Warn().Err(err).Int("player_id", playerID.Value()).Msg("listing ships for scheduling")
			continue
		}
		for _, ship := range ships {
			if ship.IsInTransit() {
				s.ScheduleArrival(ship)
			}
		}
	}
}

// StartSweeper launches the periodic safety-net scan.
func (s *ShipStateScheduler) StartSweeper(interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.sweep()
			case <-s.stopCh:
				return
			}
		}
	}()
}

// sweep finds ships still marked in transit past their arrival time and
// completes the transition directly.
func (s *ShipStateScheduler) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	now := s.clock.Now()
	for _, playerID := range s.listPlayers(ctx) {
		ships, err := s.shipRepo.FindAllByPlayer(ctx, playerID)
		if err != nil {
			continue
		}
		for _, ship := range ships {
			if !ship.IsInTransit() || ship.ArrivalTime() == nil {
				continue
			}
			if now.After(ship.ArrivalTime().Add(clockDriftBuffer)) {
				s.handleArrival(ship.ShipSymbol(), playerID)
			}
		}
	}
}

// PendingCount reports the number of armed timers.
func (s *ShipStateScheduler) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// Stop cancels every timer and the sweeper.
func (s *ShipStateScheduler) Stop() {
	close(s.stopCh)

	s.mu.Lock()
	defer s.mu.Unlock()
	for symbol, timer := range s.timers {
		timer.Stop()
		delete(s.timers, symbol)
	}
}
