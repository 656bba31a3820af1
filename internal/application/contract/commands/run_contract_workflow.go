package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/orbitalmachines/astrogator/internal/application/contract/queries"
	"github.com/orbitalmachines/astrogator/internal/application/logging"
	"github.com/orbitalmachines/astrogator/internal/application/mediator"
	shipCommands "github.com/orbitalmachines/astrogator/internal/application/ship/commands"
	shipTypes "github.com/orbitalmachines/astrogator/internal/application/ship/types"
	"github.com/orbitalmachines/astrogator/internal/domain/contract"
	"github.com/orbitalmachines/astrogator/internal/domain/navigation"
	"github.com/orbitalmachines/astrogator/internal/domain/shared"
)

const (
	// defaultProfitabilityPollInterval paces the pre-accept market checks.
	// Scout tours rescan markets on roughly this cadence, so polling faster
	// only re-reads the same snapshot.
	defaultProfitabilityPollInterval = 30 * time.Second

	// defaultMaxProfitabilityPolls bounds how long a workflow camps on an
	// unprofitable contract before giving up the iteration.
	defaultMaxProfitabilityPolls = 20

	// defaultFuelCostPerTrip is the fuel spend estimate per delivery round
	// trip when the caller provides none.
	defaultFuelCostPerTrip = 200
)

// RunContractWorkflowCommand runs one full contract cycle for a hauler:
// negotiate (or resume the active contract) → hold until stored market
// prices make the terms profitable → accept → buy and haul every delivery
// good, one cargo hold at a time → fulfill.
//
// The CONTRACT_BATCH container sends this once per iteration, so a cycle
// that dies mid-haul is resumed by the next iteration: the negotiation
// returns the active contract and delivery lines keep their fulfilled
// counts.
type RunContractWorkflowCommand struct {
	ShipSymbol  string `validate:"required"`
	PlayerID    shared.PlayerID
	ContainerID string

	// PollInterval overrides the pre-accept market check cadence.
	PollInterval time.Duration

	// MaxProfitabilityPolls overrides how many checks run before the
	// iteration fails. The contract stays negotiated for the next attempt.
	MaxProfitabilityPolls int

	// FuelCostPerTrip feeds the profitability estimate.
	FuelCostPerTrip int
}

type RunContractWorkflowResponse struct {
	ContractID  string
	Negotiated  bool
	Accepted    bool
	Fulfilled   bool
	TotalProfit int
	TotalTrips  int
}

type RunContractWorkflowHandler struct {
	contractRepo contract.Repository
	shipRepo     navigation.ShipRepository
	mediator     mediator.Mediator
	clock        shared.Clock
}

func NewRunContractWorkflowHandler(
	contractRepo contract.Repository,
	shipRepo navigation.ShipRepository,
	m mediator.Mediator,
	clock shared.Clock,
) *RunContractWorkflowHandler {
	if clock == nil {
		clock = shared.NewRealClock()
	}
	return &RunContractWorkflowHandler{
		contractRepo: contractRepo,
		shipRepo:     shipRepo,
		mediator:     m,
		clock:        clock,
	}
}

func (h *RunContractWorkflowHandler) Handle(ctx context.Context, request mediator.Request) (mediator.Response, error) {
	cmd, ok := request.(*RunContractWorkflowCommand)
	if !ok {
		return nil, fmt.Errorf("invalid request type: expected *RunContractWorkflowCommand")
	}

	logger := logging.LoggerFromContext(ctx)

	var opContext *shared.OperationContext
	if cmd.ContainerID != "" {
		oc := shared.NewOperationContext(cmd.ContainerID, "contract_workflow")
		opContext = &oc
	}

	result := &RunContractWorkflowResponse{}

	c, negotiated, err := h.findOrNegotiate(ctx, cmd, opContext)
	if err != nil {
		return nil, err
	}
	result.ContractID = c.ContractID()
	result.Negotiated = negotiated

	profit, err := h.waitForProfitability(ctx, cmd, c)
	if err != nil {
		return nil, err
	}

	if !c.Accepted() {
		acceptResp, err := h.mediator.Send(ctx, &AcceptContractCommand{
			ContractID: c.ContractID(),
			PlayerID:   cmd.PlayerID,
			Context:    opContext,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to accept contract: %w", err)
		}
		c = acceptResp.(*AcceptContractResponse).Contract
	}
	result.Accepted = c.Accepted()

	c, err = h.runDeliveries(ctx, cmd, c, profit.CheapestMarketWaypoint, opContext, result)
	if err != nil {
		return nil, err
	}

	if c.CanFulfill() && !c.Fulfilled() {
		fulfillResp, err := h.mediator.Send(ctx, &FulfillContractCommand{
			ContractID: c.ContractID(),
			PlayerID:   cmd.PlayerID,
			Context:    opContext,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to fulfill contract: %w", err)
		}
		c = fulfillResp.(*FulfillContractResponse).Contract
	}
	result.Fulfilled = c.Fulfilled()

	if result.Fulfilled {
		result.TotalProfit = c.Terms().Payment.OnAccepted + c.Terms().Payment.OnFulfilled
	}

	logger.Log("INFO", "Contract workflow cycle finished", map[string]interface{}{
		"ship_symbol":  cmd.ShipSymbol,
		"contract_id":  result.ContractID,
		"negotiated":   result.Negotiated,
		"fulfilled":    result.Fulfilled,
		"total_profit": result.TotalProfit,
		"total_trips":  result.TotalTrips,
	})

	return result, nil
}

// findOrNegotiate resumes the player's active contract when one exists;
// otherwise it negotiates a fresh one through the ship. The second return is
// true only for a fresh negotiation.
func (h *RunContractWorkflowHandler) findOrNegotiate(
	ctx context.Context,
	cmd *RunContractWorkflowCommand,
	opContext *shared.OperationContext,
) (*contract.Contract, bool, error) {
	active, err := h.contractRepo.FindActive(ctx, cmd.PlayerID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to check active contracts: %w", err)
	}
	if len(active) > 0 {
		logging.LoggerFromContext(ctx).Log("INFO", "Resuming active contract", map[string]interface{}{
			"ship_symbol": cmd.ShipSymbol,
			"contract_id": active[0].ContractID(),
		})
		return active[0], false, nil
	}

	resp, err := h.mediator.Send(ctx, &NegotiateContractCommand{
		ShipSymbol: cmd.ShipSymbol,
		PlayerID:   cmd.PlayerID,
		Context:    opContext,
	})
	if err != nil {
		return nil, false, fmt.Errorf("failed to negotiate contract: %w", err)
	}

	negotiated := resp.(*NegotiateContractResponse)
	return negotiated.Contract, negotiated.WasNegotiated, nil
}

// waitForProfitability blocks until stored market prices make the contract
// worth hauling, re-checking on an interval as scouts refresh snapshots. An
// already-accepted contract skips the gate since the commitment is made; the
// evaluation still runs once to locate the purchase market.
func (h *RunContractWorkflowHandler) waitForProfitability(
	ctx context.Context,
	cmd *RunContractWorkflowCommand,
	c *contract.Contract,
) (*queries.ProfitabilityResult, error) {
	logger := logging.LoggerFromContext(ctx)

	fuelCost := cmd.FuelCostPerTrip
	if fuelCost <= 0 {
		fuelCost = defaultFuelCostPerTrip
	}

	evaluate := func() (*queries.ProfitabilityResult, error) {
		resp, err := h.mediator.Send(ctx, &queries.EvaluateContractProfitabilityQuery{
			Contract:        c,
			ShipSymbol:      cmd.ShipSymbol,
			PlayerID:        cmd.PlayerID,
			FuelCostPerTrip: fuelCost,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to evaluate profitability: %w", err)
		}
		return resp.(*queries.ProfitabilityResult), nil
	}

	profit, err := evaluate()
	if err != nil {
		return nil, err
	}

	if c.Accepted() {
		return profit, nil
	}

	interval := cmd.PollInterval
	if interval <= 0 {
		interval = defaultProfitabilityPollInterval
	}
	maxPolls := cmd.MaxProfitabilityPolls
	if maxPolls <= 0 {
		maxPolls = defaultMaxProfitabilityPolls
	}

	for poll := 1; !profit.IsProfitable; poll++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if poll >= maxPolls {
			return nil, fmt.Errorf("contract %s not profitable after %d market checks: %s",
				c.ContractID(), maxPolls, profit.Reason)
		}
		if deadlinePassed(c.Terms().DeadlineToAccept, h.clock) {
			return nil, fmt.Errorf("acceptance deadline passed for contract %s while waiting for profitability", c.ContractID())
		}

		logger.Log("INFO", "Contract not yet profitable, waiting for market data", map[string]interface{}{
			"contract_id": c.ContractID(),
			"net_profit":  profit.NetProfit,
			"reason":      profit.Reason,
			"poll":        poll,
		})

		h.clock.Sleep(interval)

		profit, err = evaluate()
		if err != nil {
			return nil, err
		}
	}

	return profit, nil
}

// runDeliveries works every delivery line to completion, hauling one cargo
// hold per trip: top up at the purchase market, carry to the destination,
// hand over, repeat until nothing is owed.
func (h *RunContractWorkflowHandler) runDeliveries(
	ctx context.Context,
	cmd *RunContractWorkflowCommand,
	c *contract.Contract,
	purchaseMarket string,
	opContext *shared.OperationContext,
	result *RunContractWorkflowResponse,
) (*contract.Contract, error) {
	logger := logging.LoggerFromContext(ctx)

	for _, line := range c.Terms().Deliveries {
		for c.RemainingUnits(line.TradeSymbol) > 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			ship, err := h.shipRepo.FindBySymbol(ctx, cmd.ShipSymbol, cmd.PlayerID)
			if err != nil {
				return nil, fmt.Errorf("failed to reload ship: %w", err)
			}

			remaining := c.RemainingUnits(line.TradeSymbol)
			carried := ship.Cargo().GetItemUnits(line.TradeSymbol)

			if carried < remaining && !ship.Cargo().IsFull() {
				ship, err = h.topUpCargo(ctx, cmd, ship, line.TradeSymbol, remaining-carried, purchaseMarket, opContext)
				if err != nil {
					return nil, err
				}
				carried = ship.Cargo().GetItemUnits(line.TradeSymbol)
			}

			if carried == 0 {
				return nil, fmt.Errorf("no %s aboard %s after purchase stop", line.TradeSymbol, cmd.ShipSymbol)
			}

			if _, err := h.navigateAndDock(ctx, cmd, ship, line.DestinationSymbol, opContext); err != nil {
				return nil, fmt.Errorf("failed to reach delivery destination %s: %w", line.DestinationSymbol, err)
			}

			deliverResp, err := h.mediator.Send(ctx, &DeliverContractCommand{
				ContractID:  c.ContractID(),
				ShipSymbol:  cmd.ShipSymbol,
				TradeSymbol: line.TradeSymbol,
				Units:       min(carried, remaining),
				PlayerID:    cmd.PlayerID,
			})
			if err != nil {
				return nil, fmt.Errorf("failed to deliver %s: %w", line.TradeSymbol, err)
			}

			c = deliverResp.(*DeliverContractResponse).Contract
			result.TotalTrips++

			logger.Log("INFO", "Delivery trip complete", map[string]interface{}{
				"ship_symbol":  cmd.ShipSymbol,
				"contract_id":  c.ContractID(),
				"trade_symbol": line.TradeSymbol,
				"remaining":    c.RemainingUnits(line.TradeSymbol),
				"trips":        result.TotalTrips,
			})
		}
	}

	return c, nil
}

// topUpCargo fills as much of the hold as the outstanding units need at the
// purchase market, clearing unrelated cargo first when it blocks the load.
func (h *RunContractWorkflowHandler) topUpCargo(
	ctx context.Context,
	cmd *RunContractWorkflowCommand,
	ship *navigation.Ship,
	tradeSymbol string,
	unitsNeeded int,
	purchaseMarket string,
	opContext *shared.OperationContext,
) (*navigation.Ship, error) {
	if purchaseMarket == "" {
		return nil, fmt.Errorf("no market known to sell %s", tradeSymbol)
	}

	ship, err := h.clearWrongCargo(ctx, cmd, ship, tradeSymbol)
	if err != nil {
		return nil, err
	}

	units := min(ship.Cargo().AvailableCapacity(), unitsNeeded)
	if units <= 0 {
		return ship, nil
	}

	ship, err = h.navigateAndDock(ctx, cmd, ship, purchaseMarket, opContext)
	if err != nil {
		return nil, fmt.Errorf("failed to reach purchase market %s: %w", purchaseMarket, err)
	}

	_, err = h.mediator.Send(ctx, &shipCommands.PurchaseCargoCommand{
		ShipSymbol: cmd.ShipSymbol,
		GoodSymbol: tradeSymbol,
		Units:      units,
		PlayerID:   cmd.PlayerID,
		Ship:       ship,
		Context:    opContext,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to purchase %d %s: %w", units, tradeSymbol, err)
	}

	ship, err = h.shipRepo.FindBySymbol(ctx, cmd.ShipSymbol, cmd.PlayerID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload ship after purchase: %w", err)
	}
	return ship, nil
}

// clearWrongCargo jettisons goods the contract does not ask for so the hold
// can take a full load. Goods already matching the delivery stay aboard.
func (h *RunContractWorkflowHandler) clearWrongCargo(
	ctx context.Context,
	cmd *RunContractWorkflowCommand,
	ship *navigation.Ship,
	keepSymbol string,
) (*navigation.Ship, error) {
	if !ship.Cargo().HasItemsOtherThan(keepSymbol) {
		return ship, nil
	}

	for _, item := range ship.Cargo().Inventory() {
		if item.Symbol == keepSymbol || item.Units == 0 {
			continue
		}
		_, err := h.mediator.Send(ctx, &shipCommands.JettisonCargoCommand{
			ShipSymbol: cmd.ShipSymbol,
			GoodSymbol: item.Symbol,
			Units:      item.Units,
			PlayerID:   cmd.PlayerID,
			Ship:       ship,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to jettison %s: %w", item.Symbol, err)
		}
	}

	ship, err := h.shipRepo.FindBySymbol(ctx, cmd.ShipSymbol, cmd.PlayerID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload ship after jettison: %w", err)
	}
	return ship, nil
}

// navigateAndDock brings the ship to a waypoint and docks it, reusing the
// route planner for refuel stops. Already being there makes both no-ops.
func (h *RunContractWorkflowHandler) navigateAndDock(
	ctx context.Context,
	cmd *RunContractWorkflowCommand,
	ship *navigation.Ship,
	destination string,
	opContext *shared.OperationContext,
) (*navigation.Ship, error) {
	navResp, err := h.mediator.Send(ctx, &shipCommands.NavigateRouteCommand{
		ShipSymbol:  cmd.ShipSymbol,
		Destination: destination,
		PlayerID:    cmd.PlayerID,
		Ship:        ship,
		Context:     opContext,
	})
	if err != nil {
		return nil, err
	}
	ship = navResp.(*shipCommands.NavigateRouteResponse).Ship

	if _, err := h.mediator.Send(ctx, &shipTypes.DockShipCommand{
		ShipSymbol: cmd.ShipSymbol,
		PlayerID:   cmd.PlayerID,
		Ship:       ship,
	}); err != nil {
		return nil, fmt.Errorf("failed to dock: %w", err)
	}
	return ship, nil
}

// deadlinePassed parses an RFC3339 deadline and compares it to the clock.
// Unparseable deadlines never pass; the API rejects the accept instead.
func deadlinePassed(deadline string, clock shared.Clock) bool {
	t, err := time.Parse(time.RFC3339, deadline)
	if err != nil {
		return false
	}
	return clock.Now().UTC().After(t)
}
