package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/orbitalmachines/astrogator/internal/application/auth"
	ledgercmds "github.com/orbitalmachines/astrogator/internal/application/ledger/commands"
	"github.com/orbitalmachines/astrogator/internal/application/logging"
	"github.com/orbitalmachines/astrogator/internal/application/mediator"
	"github.com/orbitalmachines/astrogator/internal/application/ship/strategies"
	"github.com/orbitalmachines/astrogator/internal/domain/market"
	"github.com/orbitalmachines/astrogator/internal/domain/navigation"
	"github.com/orbitalmachines/astrogator/internal/domain/player"
	"github.com/orbitalmachines/astrogator/internal/domain/shared"
)

// MarketRefresher re-scans a marketplace after trades so stored prices track
// the volume the trade just moved. Declared here rather than importing the
// scouting package to keep the dependency pointing one way.
type MarketRefresher interface {
	ScanAndSaveMarket(ctx context.Context, playerID shared.PlayerID, waypointSymbol string) error
}

// CargoTransactionCommand is the shared shape behind purchases and sales.
// The direction comes from the strategy the handler was built with; the
// registered PurchaseCargoCommand and SellCargoCommand translate into this.
type CargoTransactionCommand struct {
	ShipSymbol string
	GoodSymbol string
	Units      int
	PlayerID   shared.PlayerID

	// Ship carries the live entity when the caller already holds one,
	// skipping a repository load.
	Ship *navigation.Ship

	// Context links the resulting ledger entries to the container that
	// initiated the trade.
	Context *shared.OperationContext
}

// CargoTransactionResponse accumulates results across batches.
// TransactionCount is above 1 whenever the requested units exceeded the
// market's per-transaction volume and the handler had to split.
type CargoTransactionResponse struct {
	TotalAmount      int // credits moved: cost for purchases, revenue for sales
	UnitsProcessed   int
	TransactionCount int
	AgentCredits     int // agent balance after the final batch
}

// CargoTransactionHandler runs a cargo trade in market-limit-sized batches.
//
// Each batch is recorded in the ledger immediately after it succeeds, so a
// failure mid-way leaves the books matching what actually happened. Balances
// come from the API response of each batch rather than from a separate agent
// lookup.
type CargoTransactionHandler struct {
	strategy        strategies.CargoTransactionStrategy
	shipRepo        navigation.ShipRepository
	playerRepo      player.Repository
	marketRepo      market.Repository
	mediator        mediator.Mediator
	marketRefresher MarketRefresher
}

// NewCargoTransactionHandler builds a handler for one trade direction.
// The marketRefresher may be nil; prices are then not re-scanned after trades.
func NewCargoTransactionHandler(
	strategy strategies.CargoTransactionStrategy,
	shipRepo navigation.ShipRepository,
	playerRepo player.Repository,
	marketRepo market.Repository,
	m mediator.Mediator,
	marketRefresher MarketRefresher,
) *CargoTransactionHandler {
	return &CargoTransactionHandler{
		strategy:        strategy,
		shipRepo:        shipRepo,
		playerRepo:      playerRepo,
		marketRepo:      marketRepo,
		mediator:        m,
		marketRefresher: marketRefresher,
	}
}

func (h *CargoTransactionHandler) Handle(ctx context.Context, request mediator.Request) (mediator.Response, error) {
	cmd, ok := request.(*CargoTransactionCommand)
	if !ok {
		return nil, fmt.Errorf("invalid request type")
	}

	token, err := auth.PlayerTokenFromContext(ctx)
	if err != nil {
		return nil, err
	}

	ship, err := loadShip(ctx, h.shipRepo, cmd.Ship, cmd.ShipSymbol, cmd.PlayerID)
	if err != nil {
		return nil, err
	}

	if !ship.IsDocked() {
		return nil, fmt.Errorf("ship must be docked to trade cargo")
	}

	if err := h.strategy.ValidatePreconditions(ship, cmd.GoodSymbol, cmd.Units); err != nil {
		return nil, err
	}

	limit := transactionLimit(ctx, h.marketRepo, ship.CurrentLocation().Symbol, cmd.GoodSymbol, cmd.PlayerID, cmd.Units)

	return h.executeBatches(ctx, cmd, ship, token, limit)
}

// executeBatches splits the requested units by the market's transaction limit
// and runs the batches in sequence. On a mid-sequence failure the error
// reports what already went through; those batches are in the ledger.
func (h *CargoTransactionHandler) executeBatches(
	ctx context.Context,
	cmd *CargoTransactionCommand,
	ship *navigation.Ship,
	token string,
	transactionLimit int,
) (*CargoTransactionResponse, error) {
	waypointSymbol := ship.CurrentLocation().Symbol

	totalAmount := 0
	unitsProcessed := 0
	transactionCount := 0
	agentCredits := 0
	unitsRemaining := cmd.Units

	for unitsRemaining > 0 {
		batchUnits := min(unitsRemaining, transactionLimit)

		result, err := h.strategy.Execute(ctx, cmd.ShipSymbol, cmd.GoodSymbol, batchUnits, token)
		if err != nil {
			return nil, fmt.Errorf("partial failure: failed to %s cargo after %d successful transactions (%d units processed, %d credits): %w",
				h.strategy.TransactionType(), transactionCount, unitsProcessed, totalAmount, err)
		}

		totalAmount += result.TotalAmount
		unitsProcessed += result.UnitsProcessed
		transactionCount++
		unitsRemaining -= batchUnits
		agentCredits = result.AgentCredits

		applyCargoData(ship, result.Cargo)
		h.recordBatch(ctx, cmd, waypointSymbol, result)
	}

	_ = h.shipRepo.Save(ctx, ship)

	// One refresh after all batches instead of one per batch.
	h.refreshMarket(ctx, cmd.PlayerID, waypointSymbol)

	return &CargoTransactionResponse{
		TotalAmount:      totalAmount,
		UnitsProcessed:   unitsProcessed,
		TransactionCount: transactionCount,
		AgentCredits:     agentCredits,
	}, nil
}

// recordBatch writes one ledger entry for a completed batch. Recording
// failures are logged and swallowed; the trade itself already happened.
func (h *CargoTransactionHandler) recordBatch(ctx context.Context, cmd *CargoTransactionCommand, waypointSymbol string, result *strategies.TransactionResult) {
	logger := logging.LoggerFromContext(ctx)

	// The ledger rejects zero-amount entries.
	if result.TotalAmount == 0 {
		logger.Log("DEBUG", "Skipping ledger entry for zero-amount transaction", map[string]interface{}{
			"ship":  cmd.ShipSymbol,
			"good":  cmd.GoodSymbol,
			"units": result.UnitsProcessed,
		})
		return
	}

	transactionType, amount := h.strategy.LedgerEntry(result.TotalAmount)
	balanceAfter := result.AgentCredits
	balanceBefore := balanceAfter - amount

	agentSymbol := "UNKNOWN"
	if p, err := h.playerRepo.FindByID(ctx, cmd.PlayerID); err == nil && p != nil {
		agentSymbol = p.AgentSymbol
	}

	recordCmd := &ledgercmds.RecordTransactionCommand{
		PlayerID:        cmd.PlayerID.Value(),
		TransactionType: transactionType.String(),
		Amount:          amount,
		Units:           result.UnitsProcessed,
		PricePerUnit:    result.PricePerUnit,
		GoodSymbol:      cmd.GoodSymbol,
		WaypointSymbol:  waypointSymbol,
		ShipSymbol:      cmd.ShipSymbol,
		BalanceBefore:   balanceBefore,
		BalanceAfter:    balanceAfter,
		Description: fmt.Sprintf("%s %d units of %s at %s",
			strings.ToUpper(h.strategy.TransactionType()), result.UnitsProcessed, cmd.GoodSymbol, waypointSymbol),
		AgentSymbol: agentSymbol,
	}

	if cmd.Context != nil && cmd.Context.IsValid() {
		recordCmd.ContainerID = cmd.Context.ContainerID
		recordCmd.Metadata = map[string]interface{}{
			"operation_type": cmd.Context.NormalizedOperationType(),
		}
	}

	if _, err := h.mediator.Send(context.Background(), recordCmd); err != nil {
		logger.Log("ERROR", "Failed to record cargo transaction in ledger", map[string]interface{}{
			"error":     err.Error(),
			"ship":      cmd.ShipSymbol,
			"good":      cmd.GoodSymbol,
			"amount":    result.TotalAmount,
			"player_id": cmd.PlayerID.Value(),
		})
	}
}

// refreshMarket re-scans prices at the waypoint after a trade. Non-critical;
// failures only cost data freshness.
func (h *CargoTransactionHandler) refreshMarket(ctx context.Context, playerID shared.PlayerID, waypointSymbol string) {
	if h.marketRefresher == nil {
		return
	}

	if err := h.marketRefresher.ScanAndSaveMarket(ctx, playerID, waypointSymbol); err != nil {
		logging.LoggerFromContext(ctx).Log("WARN", "Failed to refresh market data after transaction", map[string]interface{}{
			"waypoint": waypointSymbol,
			"error":    err.Error(),
		})
	}
}

// transactionLimit reads the market's per-transaction volume cap for a good.
// When market data is missing or the good is not listed, the requested units
// are returned so the trade runs as a single batch.
func transactionLimit(
	ctx context.Context,
	marketRepo market.Repository,
	waypointSymbol string,
	goodSymbol string,
	playerID shared.PlayerID,
	requestedUnits int,
) int {
	marketData, err := marketRepo.GetMarketData(ctx, waypointSymbol, playerID)
	if err != nil || marketData == nil {
		return requestedUnits
	}

	limit := marketData.TransactionLimit(goodSymbol)
	if limit == 0 {
		return requestedUnits
	}

	return limit
}

// applyCargoData overwrites the ship's cargo with the hold the API reported.
func applyCargoData(ship *navigation.Ship, data *navigation.CargoData) {
	if data == nil {
		return
	}

	items := make([]shared.CargoItem, 0, len(data.Inventory))
	for _, item := range data.Inventory {
		items = append(items, shared.CargoItem{Symbol: item.Symbol, Units: item.Units})
	}

	if cargo, err := shared.NewCargo(data.Capacity, data.Units, items); err == nil {
		ship.SetCargo(cargo)
	}
}
