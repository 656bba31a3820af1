package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/orbitalmachines/astrogator/internal/application/logging"
	"github.com/orbitalmachines/astrogator/internal/application/mediator"
	shipcommands "github.com/orbitalmachines/astrogator/internal/application/ship/commands"
	shiptypes "github.com/orbitalmachines/astrogator/internal/application/ship/types"
	"github.com/orbitalmachines/astrogator/internal/domain/navigation"
	"github.com/orbitalmachines/astrogator/internal/domain/shared"
	"github.com/orbitalmachines/astrogator/internal/domain/trading"
)

const (
	// noOpportunityIdle is how long an iteration sleeps when the system has
	// nothing profitable, so an infinite container does not spin on a quiet
	// market.
	noOpportunityIdle = 60 * time.Second

	defaultMinMargin      = 5.0
	opportunityCandidates = 5
)

// RunArbitrageCommand is the iteration body of an ARBITRAGE container: pick
// the best opportunity in the system, haul one cargo hold from buy market to
// sell market, book both legs to the ledger. A quiet market idles the
// iteration instead of failing it.
type RunArbitrageCommand struct {
	ShipSymbol   string `validate:"required"`
	SystemSymbol string `validate:"required"`
	PlayerID     shared.PlayerID

	// MinMargin is the minimum profit margin in percent; zero means the
	// default threshold.
	MinMargin float64

	// Context attributes purchases, sales and refuels to the container.
	Context *shared.OperationContext
}

// RunArbitrageResponse reports one completed trade, or an idle iteration
// when Status is "no_opportunities".
type RunArbitrageResponse struct {
	Status       string
	Good         string
	BuyMarket    string
	SellMarket   string
	UnitsTraded  int
	TotalCost    int
	TotalRevenue int
	Profit       int
}

type RunArbitrageHandler struct {
	shipRepo navigation.ShipRepository
	finder   trading.OpportunityFinder
	mediator mediator.Mediator
	clock    shared.Clock
}

// NewRunArbitrageHandler builds the handler. clock nil means the real clock.
func NewRunArbitrageHandler(
	shipRepo navigation.ShipRepository,
	finder trading.OpportunityFinder,
	m mediator.Mediator,
	clock shared.Clock,
) *RunArbitrageHandler {
	if clock == nil {
		clock = shared.NewRealClock()
	}
	return &RunArbitrageHandler{
		shipRepo: shipRepo,
		finder:   finder,
		mediator: m,
		clock:    clock,
	}
}

func (h *RunArbitrageHandler) Handle(ctx context.Context, request mediator.Request) (mediator.Response, error) {
	cmd, ok := request.(*RunArbitrageCommand)
	if !ok {
		return nil, fmt.Errorf("invalid request type: expected *RunArbitrageCommand")
	}

	logger := logging.LoggerFromContext(ctx)

	ship, err := h.shipRepo.FindBySymbol(ctx, cmd.ShipSymbol, cmd.PlayerID)
	if err != nil {
		return nil, err
	}

	minMargin := cmd.MinMargin
	if minMargin <= 0 {
		minMargin = defaultMinMargin
	}

	opportunities, err := h.finder.FindOpportunities(
		ctx, cmd.SystemSymbol, cmd.PlayerID, ship.CargoCapacity(), minMargin, opportunityCandidates)
	if err != nil {
		if errors.Is(err, trading.ErrNoOpportunitiesFound) || errors.Is(err, trading.ErrMarketDataUnavailable) {
			logger.Log("INFO", "No arbitrage opportunities, idling", map[string]interface{}{
				"system_symbol": cmd.SystemSymbol,
				"min_margin":    minMargin,
			})
			h.clock.Sleep(noOpportunityIdle)
			return &RunArbitrageResponse{Status: "no_opportunities"}, nil
		}
		return nil, err
	}
	best := opportunities[0]

	logger.Log("INFO", "Executing arbitrage trade", map[string]interface{}{
		"good":        best.Good(),
		"buy_market":  best.BuyMarket().Symbol,
		"sell_market": best.SellMarket().Symbol,
		"margin":      best.ProfitMargin(),
		"score":       best.Score(),
	})

	purchase, err := h.buyLeg(ctx, cmd, ship, best)
	if err != nil {
		return nil, err
	}

	sale, err := h.sellLeg(ctx, cmd, ship, best, purchase.UnitsAdded)
	if err != nil {
		return nil, err
	}

	response := &RunArbitrageResponse{
		Status:       "completed",
		Good:         best.Good(),
		BuyMarket:    best.BuyMarket().Symbol,
		SellMarket:   best.SellMarket().Symbol,
		UnitsTraded:  sale.UnitsSold,
		TotalCost:    purchase.TotalCost,
		TotalRevenue: sale.TotalRevenue,
		Profit:       sale.TotalRevenue - purchase.TotalCost,
	}

	logger.Log("INFO", "Arbitrage trade completed", map[string]interface{}{
		"good":   response.Good,
		"units":  response.UnitsTraded,
		"profit": response.Profit,
	})

	return response, nil
}

// buyLeg moves the ship to the buy market, docks and fills the hold.
func (h *RunArbitrageHandler) buyLeg(
	ctx context.Context,
	cmd *RunArbitrageCommand,
	ship *navigation.Ship,
	opp *trading.ArbitrageOpportunity,
) (*shipcommands.PurchaseCargoResponse, error) {
	if err := h.moveAndDock(ctx, cmd, ship, opp.BuyMarket().Symbol); err != nil {
		return nil, err
	}

	units := ship.AvailableCargoSpace()
	if units <= 0 {
		return nil, fmt.Errorf("ship %s has no cargo space for arbitrage", cmd.ShipSymbol)
	}

	resp, err := h.mediator.Send(ctx, &shipcommands.PurchaseCargoCommand{
		ShipSymbol: cmd.ShipSymbol,
		GoodSymbol: opp.Good(),
		Units:      units,
		PlayerID:   cmd.PlayerID,
		Ship:       ship,
		Context:    cmd.Context,
	})
	if err != nil {
		return nil, fmt.Errorf("buy leg failed: %w", err)
	}
	return resp.(*shipcommands.PurchaseCargoResponse), nil
}

// sellLeg hauls the purchased units to the sell market and liquidates them.
func (h *RunArbitrageHandler) sellLeg(
	ctx context.Context,
	cmd *RunArbitrageCommand,
	ship *navigation.Ship,
	opp *trading.ArbitrageOpportunity,
	units int,
) (*shipcommands.SellCargoResponse, error) {
	if err := h.moveAndDock(ctx, cmd, ship, opp.SellMarket().Symbol); err != nil {
		return nil, err
	}

	resp, err := h.mediator.Send(ctx, &shipcommands.SellCargoCommand{
		ShipSymbol: cmd.ShipSymbol,
		GoodSymbol: opp.Good(),
		Units:      units,
		PlayerID:   cmd.PlayerID,
		Ship:       ship,
		Context:    cmd.Context,
	})
	if err != nil {
		return nil, fmt.Errorf("sell leg failed: %w", err)
	}
	return resp.(*shipcommands.SellCargoResponse), nil
}

func (h *RunArbitrageHandler) moveAndDock(
	ctx context.Context,
	cmd *RunArbitrageCommand,
	ship *navigation.Ship,
	destination string,
) error {
	if ctx.Err() != nil {
		return shared.ErrCanceled
	}

	if !ship.IsAtLocation(destination) {
		_, err := h.mediator.Send(ctx, &shipcommands.NavigateRouteCommand{
			ShipSymbol:  cmd.ShipSymbol,
			Destination: destination,
			PlayerID:    cmd.PlayerID,
			Ship:        ship,
			Context:     cmd.Context,
		})
		if err != nil {
			return fmt.Errorf("navigating to %s: %w", destination, err)
		}
	}

	_, err := h.mediator.Send(ctx, &shiptypes.DockShipCommand{
		ShipSymbol: cmd.ShipSymbol,
		PlayerID:   cmd.PlayerID,
		Ship:       ship,
	})
	if err != nil {
		return fmt.Errorf("docking at %s: %w", destination, err)
	}
	return nil
}
