package commands_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orbitalmachines/astrogator/internal/application/mediator"
	"github.com/orbitalmachines/astrogator/internal/application/scouting/commands"
	shipCommands "github.com/orbitalmachines/astrogator/internal/application/ship/commands"
	"github.com/orbitalmachines/astrogator/internal/domain/shared"
	"github.com/orbitalmachines/astrogator/test/helpers"
)

// recordingScanner counts scans per waypoint and can fail selectively or
// trigger a callback per scan.
type recordingScanner struct {
	mu      sync.Mutex
	scans   []string
	failFor map[string]error
	onScan  func(total int)
}

func newRecordingScanner() *recordingScanner {
	return &recordingScanner{failFor: make(map[string]error)}
}

func (s *recordingScanner) ScanAndSaveMarket(ctx context.Context, playerID shared.PlayerID, waypointSymbol string) error {
	s.mu.Lock()
	s.scans = append(s.scans, waypointSymbol)
	total := len(s.scans)
	onScan := s.onScan
	err := s.failFor[waypointSymbol]
	s.mu.Unlock()

	if onScan != nil {
		onScan(total)
	}
	return err
}

func (s *recordingScanner) Scans() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string{}, s.scans...)
}

// navigationsHandled answers every NavigateRouteCommand as completed unless
// the destination is flagged to fail, and records the visit order.
func navigationsHandled(t *testing.T, med *helpers.MockMediator, failAt string) *[]string {
	t.Helper()

	destinations := &[]string{}
	var mu sync.Mutex

	med.SendFunc = func(ctx context.Context, request mediator.Request) (mediator.Response, error) {
		navCmd, ok := request.(*shipCommands.NavigateRouteCommand)
		if !ok {
			return nil, fmt.Errorf("unexpected request %T", request)
		}

		mu.Lock()
		*destinations = append(*destinations, navCmd.Destination)
		mu.Unlock()

		if failAt != "" && navCmd.Destination == failAt {
			return nil, fmt.Errorf("navigation to %s failed", failAt)
		}

		return &shipCommands.NavigateRouteResponse{
			Status:          "completed",
			CurrentLocation: navCmd.Destination,
			FuelRemaining:   300,
		}, nil
	}

	return destinations
}

func TestScoutTour_RotatesTourToShipLocation(t *testing.T) {
	// Arrange
	playerID := helpers.TestPlayerID(t, 1)
	marketC := helpers.TestWaypoint(t, "X1-TST-C3", 20, 0, "MARKETPLACE")

	shipRepo := helpers.NewMockShipRepository()
	shipRepo.AddShip(helpers.TestProbe(t, "SCOUT-1", playerID, marketC))

	med := helpers.NewMockMediator()
	destinations := navigationsHandled(t, med, "")
	scanner := newRecordingScanner()

	handler := commands.NewScoutTourHandler(shipRepo, med, scanner, shared.NewMockClock(time.Time{}))

	// Act
	response, err := handler.Handle(context.Background(), &commands.ScoutTourCommand{
		PlayerID:   playerID,
		ShipSymbol: "SCOUT-1",
		Markets:    []string{"X1-TST-A1", "X1-TST-B2", "X1-TST-C3"},
		Iterations: 1,
	})

	// Assert
	require.NoError(t, err)
	result := response.(*commands.ScoutTourResponse)

	assert.Equal(t, []string{"X1-TST-C3", "X1-TST-A1", "X1-TST-B2"}, result.TourOrder)
	assert.Equal(t, []string{"X1-TST-C3", "X1-TST-A1", "X1-TST-B2"}, *destinations)
	assert.Equal(t, 3, result.MarketsVisited)
	assert.Equal(t, 1, result.Iterations)
}

func TestScoutTour_ShipOffTourKeepsPlannedOrder(t *testing.T) {
	// Arrange
	playerID := helpers.TestPlayerID(t, 1)
	elsewhere := helpers.TestWaypoint(t, "X1-TST-Z9", 99, 99)

	shipRepo := helpers.NewMockShipRepository()
	shipRepo.AddShip(helpers.TestProbe(t, "SCOUT-1", playerID, elsewhere))

	med := helpers.NewMockMediator()
	destinations := navigationsHandled(t, med, "")

	handler := commands.NewScoutTourHandler(shipRepo, med, newRecordingScanner(), shared.NewMockClock(time.Time{}))

	// Act
	response, err := handler.Handle(context.Background(), &commands.ScoutTourCommand{
		PlayerID:   playerID,
		ShipSymbol: "SCOUT-1",
		Markets:    []string{"X1-TST-A1", "X1-TST-B2"},
		Iterations: 1,
	})

	// Assert
	require.NoError(t, err)
	result := response.(*commands.ScoutTourResponse)
	assert.Equal(t, []string{"X1-TST-A1", "X1-TST-B2"}, result.TourOrder)
	assert.Equal(t, []string{"X1-TST-A1", "X1-TST-B2"}, *destinations)
}

func TestScoutTour_StationaryScansOnCadence(t *testing.T) {
	// Arrange
	playerID := helpers.TestPlayerID(t, 1)
	market := helpers.TestWaypoint(t, "X1-TST-A1", 0, 0, "MARKETPLACE")

	shipRepo := helpers.NewMockShipRepository()
	shipRepo.AddShip(helpers.TestProbe(t, "SCOUT-1", playerID, market))

	scanner := newRecordingScanner()
	clock := shared.NewMockClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	start := clock.Now()

	handler := commands.NewScoutTourHandler(shipRepo, helpers.NewMockMediator(), scanner, clock)

	// Act
	response, err := handler.Handle(context.Background(), &commands.ScoutTourCommand{
		PlayerID:   playerID,
		ShipSymbol: "SCOUT-1",
		Markets:    []string{"X1-TST-A1"},
		Iterations: 3,
	})

	// Assert
	require.NoError(t, err)
	result := response.(*commands.ScoutTourResponse)

	assert.Equal(t, 3, result.MarketsVisited)
	assert.Equal(t, 3, result.Iterations)
	assert.Equal(t, []string{"X1-TST-A1", "X1-TST-A1", "X1-TST-A1"}, scanner.Scans())

	// Two waits between three scans, 60 seconds each.
	assert.Equal(t, 120*time.Second, clock.Now().Sub(start))
}

func TestScoutTour_StationaryNavigatesWhenAway(t *testing.T) {
	// Arrange
	playerID := helpers.TestPlayerID(t, 1)
	elsewhere := helpers.TestWaypoint(t, "X1-TST-Z9", 99, 99)

	shipRepo := helpers.NewMockShipRepository()
	shipRepo.AddShip(helpers.TestProbe(t, "SCOUT-1", playerID, elsewhere))

	med := helpers.NewMockMediator()
	destinations := navigationsHandled(t, med, "")
	scanner := newRecordingScanner()

	handler := commands.NewScoutTourHandler(shipRepo, med, scanner, shared.NewMockClock(time.Time{}))

	// Act
	response, err := handler.Handle(context.Background(), &commands.ScoutTourCommand{
		PlayerID:   playerID,
		ShipSymbol: "SCOUT-1",
		Markets:    []string{"X1-TST-A1"},
		Iterations: 1,
	})

	// Assert
	require.NoError(t, err)
	result := response.(*commands.ScoutTourResponse)

	// The route executor scans marketplaces on arrival, so navigation counts
	// as the first observation without an explicit scan.
	assert.Equal(t, []string{"X1-TST-A1"}, *destinations)
	assert.Empty(t, scanner.Scans())
	assert.Equal(t, 1, result.MarketsVisited)
}

func TestScoutTour_InfiniteModeStopsOnCancel(t *testing.T) {
	// Arrange
	playerID := helpers.TestPlayerID(t, 1)
	market := helpers.TestWaypoint(t, "X1-TST-A1", 0, 0, "MARKETPLACE")

	shipRepo := helpers.NewMockShipRepository()
	shipRepo.AddShip(helpers.TestProbe(t, "SCOUT-1", playerID, market))

	ctx, cancel := context.WithCancel(context.Background())
	scanner := newRecordingScanner()
	scanner.onScan = func(total int) {
		if total >= 5 {
			cancel()
		}
	}

	handler := commands.NewScoutTourHandler(shipRepo, helpers.NewMockMediator(), scanner, shared.NewMockClock(time.Time{}))

	// Act
	response, err := handler.Handle(ctx, &commands.ScoutTourCommand{
		PlayerID:   playerID,
		ShipSymbol: "SCOUT-1",
		Markets:    []string{"X1-TST-A1"},
		Iterations: -1,
	})

	// Assert: cancellation ends the loop without an error.
	require.NoError(t, err)
	result := response.(*commands.ScoutTourResponse)
	assert.Equal(t, 5, result.MarketsVisited)
}

func TestScoutTour_NavigationFailureAbortsTour(t *testing.T) {
	// Arrange
	playerID := helpers.TestPlayerID(t, 1)
	marketA := helpers.TestWaypoint(t, "X1-TST-A1", 0, 0, "MARKETPLACE")

	shipRepo := helpers.NewMockShipRepository()
	shipRepo.AddShip(helpers.TestProbe(t, "SCOUT-1", playerID, marketA))

	med := helpers.NewMockMediator()
	destinations := navigationsHandled(t, med, "X1-TST-B2")

	handler := commands.NewScoutTourHandler(shipRepo, med, newRecordingScanner(), shared.NewMockClock(time.Time{}))

	// Act
	_, err := handler.Handle(context.Background(), &commands.ScoutTourCommand{
		PlayerID:   playerID,
		ShipSymbol: "SCOUT-1",
		Markets:    []string{"X1-TST-A1", "X1-TST-B2", "X1-TST-C3"},
		Iterations: 1,
	})

	// Assert
	require.Error(t, err)
	assert.Contains(t, err.Error(), "X1-TST-B2")
	assert.Equal(t, []string{"X1-TST-A1", "X1-TST-B2"}, *destinations)
}

func TestScoutTour_ScanFailureMovesToNextStop(t *testing.T) {
	// Arrange
	playerID := helpers.TestPlayerID(t, 1)
	marketA := helpers.TestWaypoint(t, "X1-TST-A1", 0, 0, "MARKETPLACE")

	shipRepo := helpers.NewMockShipRepository()
	shipRepo.AddShip(helpers.TestProbe(t, "SCOUT-1", playerID, marketA))

	med := helpers.NewMockMediator()
	med.SendFunc = func(ctx context.Context, request mediator.Request) (mediator.Response, error) {
		navCmd := request.(*shipCommands.NavigateRouteCommand)
		status := "completed"
		if navCmd.Destination == "X1-TST-A1" {
			status = "already_at_destination"
		}
		return &shipCommands.NavigateRouteResponse{Status: status, CurrentLocation: navCmd.Destination}, nil
	}

	scanner := newRecordingScanner()
	scanner.failFor["X1-TST-A1"] = fmt.Errorf("market gateway unavailable")

	handler := commands.NewScoutTourHandler(shipRepo, med, scanner, shared.NewMockClock(time.Time{}))

	// Act
	response, err := handler.Handle(context.Background(), &commands.ScoutTourCommand{
		PlayerID:   playerID,
		ShipSymbol: "SCOUT-1",
		Markets:    []string{"X1-TST-A1", "X1-TST-B2"},
		Iterations: 1,
	})

	// Assert: the failed scan at A is skipped, B still counts.
	require.NoError(t, err)
	result := response.(*commands.ScoutTourResponse)
	assert.Equal(t, 1, result.MarketsVisited)
	assert.Equal(t, 1, result.Iterations)
}

func TestScoutTour_RejectsWrongRequestType(t *testing.T) {
	// Arrange
	handler := commands.NewScoutTourHandler(helpers.NewMockShipRepository(), helpers.NewMockMediator(), newRecordingScanner(), nil)

	// Act
	_, err := handler.Handle(context.Background(), &commands.ScoutMarketsCommand{})

	// Assert
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid request type")
}
