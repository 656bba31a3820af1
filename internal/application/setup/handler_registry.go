package setup

import (
	"github.com/rs/zerolog"

	"github.com/orbitalmachines/astrogator/internal/adapters/metrics"
	"github.com/orbitalmachines/astrogator/internal/application/auth"
	contractcommands "github.com/orbitalmachines/astrogator/internal/application/contract/commands"
	contractqueries "github.com/orbitalmachines/astrogator/internal/application/contract/queries"
	ledgercommands "github.com/orbitalmachines/astrogator/internal/application/ledger/commands"
	ledgerqueries "github.com/orbitalmachines/astrogator/internal/application/ledger/queries"
	applogging "github.com/orbitalmachines/astrogator/internal/application/logging"
	"github.com/orbitalmachines/astrogator/internal/application/mediator"
	"github.com/orbitalmachines/astrogator/internal/application/player"
	playercommands "github.com/orbitalmachines/astrogator/internal/application/player/commands"
	playerqueries "github.com/orbitalmachines/astrogator/internal/application/player/queries"
	scoutingcommands "github.com/orbitalmachines/astrogator/internal/application/scouting/commands"
	scoutingqueries "github.com/orbitalmachines/astrogator/internal/application/scouting/queries"
	"github.com/orbitalmachines/astrogator/internal/application/ship"
	shipcommands "github.com/orbitalmachines/astrogator/internal/application/ship/commands"
	shipqueries "github.com/orbitalmachines/astrogator/internal/application/ship/queries"
	shiptypes "github.com/orbitalmachines/astrogator/internal/application/ship/types"
	shipyardcommands "github.com/orbitalmachines/astrogator/internal/application/shipyard/commands"
	shipyardqueries "github.com/orbitalmachines/astrogator/internal/application/shipyard/queries"
	tradingcommands "github.com/orbitalmachines/astrogator/internal/application/trading/commands"
	tradingqueries "github.com/orbitalmachines/astrogator/internal/application/trading/queries"
	tradingservices "github.com/orbitalmachines/astrogator/internal/application/trading/services"
	"github.com/orbitalmachines/astrogator/internal/domain/contract"
	"github.com/orbitalmachines/astrogator/internal/domain/daemon"
	"github.com/orbitalmachines/astrogator/internal/domain/ledger"
	"github.com/orbitalmachines/astrogator/internal/domain/market"
	"github.com/orbitalmachines/astrogator/internal/domain/navigation"
	domainplayer "github.com/orbitalmachines/astrogator/internal/domain/player"
	"github.com/orbitalmachines/astrogator/internal/domain/ports"
	"github.com/orbitalmachines/astrogator/internal/domain/routing"
	"github.com/orbitalmachines/astrogator/internal/domain/shared"
	"github.com/orbitalmachines/astrogator/internal/domain/system"
)

// Deps bundles everything the handler registry needs to wire a mediator.
// Launcher is the container registry port; handlers that spawn containers
// (fleet assignment, scouting dispatch) go through it rather than touching
// the registry type directly.
type Deps struct {
	ShipRepo         navigation.ShipRepository
	WaypointRepo     system.WaypointRepository
	GraphProvider    system.GraphProvider
	RoutePlanner     routing.Planner
	MarketRepo       market.Repository
	PriceHistoryRepo market.PriceHistoryRepository
	ContractRepo     contract.Repository
	TransactionRepo  ledger.TransactionRepository
	PlayerRepo       domainplayer.Repository
	APIClient        ports.APIClient
	Launcher         daemon.ContainerLauncher
	CommandMetrics   *metrics.CommandMetricsCollector
	Clock            shared.Clock
	Logger           zerolog.Logger
}

// HandlerRegistry wires every command and query handler into a mediator.
// Shared services (route planning, market scanning, the opportunity finder)
// are built once here so all verticals see the same instances.
type HandlerRegistry struct {
	deps           Deps
	playerResolver *player.Resolver
	finder         *tradingservices.ArbitrageOpportunityFinder
}

// NewHandlerRegistry creates a registry from its dependency bundle. A nil
// clock defaults to the real clock.
func NewHandlerRegistry(deps Deps) *HandlerRegistry {
	if deps.Clock == nil {
		deps.Clock = shared.NewRealClock()
	}
	return &HandlerRegistry{
		deps:           deps,
		playerResolver: player.NewResolver(deps.PlayerRepo),
		finder:         tradingservices.NewArbitrageOpportunityFinder(deps.MarketRepo, deps.WaypointRepo),
	}
}

// CreateConfiguredMediator builds a mediator with the full middleware chain
// and every handler registered. Middleware order matters: logging sees the
// request first, then metrics, then validation, then token resolution, so a
// request rejected by validation is still logged and counted.
func (r *HandlerRegistry) CreateConfiguredMediator() (mediator.Mediator, error) {
	m := mediator.NewMediator()

	m.RegisterMiddleware(applogging.Middleware(r.deps.Logger))
	if r.deps.CommandMetrics != nil {
		m.RegisterMiddleware(metrics.PrometheusMiddleware(r.deps.CommandMetrics))
	}
	m.RegisterMiddleware(mediator.ValidationMiddleware())
	m.RegisterMiddleware(auth.PlayerTokenMiddleware(r.deps.PlayerRepo))

	registrations := []func(mediator.Mediator) error{
		r.RegisterShipHandlers,
		r.RegisterScoutingHandlers,
		r.RegisterContractHandlers,
		r.RegisterShipyardHandlers,
		r.RegisterTradingHandlers,
		r.RegisterLedgerHandlers,
		r.RegisterPlayerHandlers,
	}
	for _, register := range registrations {
		if err := register(m); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// RegisterShipHandlers registers the atomic ship commands and ship queries.
// The route executor scans markets on arrival, so navigation doubles as
// passive price collection.
func (r *HandlerRegistry) RegisterShipHandlers(m mediator.Mediator) error {
	d := r.deps

	scanner := ship.NewMarketScanner(d.APIClient, d.MarketRepo, d.PriceHistoryRepo, d.Clock)
	planner := ship.NewRoutePlanner(d.GraphProvider, d.RoutePlanner, d.Clock)
	executor := ship.NewRouteExecutor(d.ShipRepo, m, d.Clock, scanner)

	if err := mediator.RegisterHandler[*shipcommands.NavigateRouteCommand](
		m, shipcommands.NewNavigateRouteHandler(d.ShipRepo, planner, executor),
	); err != nil {
		return err
	}
	if err := mediator.RegisterHandler[*shiptypes.NavigateDirectCommand](
		m, shipcommands.NewNavigateDirectHandler(d.ShipRepo, d.WaypointRepo, d.Clock),
	); err != nil {
		return err
	}
	if err := mediator.RegisterHandler[*shiptypes.DockShipCommand](
		m, shipcommands.NewDockShipHandler(d.ShipRepo),
	); err != nil {
		return err
	}
	if err := mediator.RegisterHandler[*shiptypes.OrbitShipCommand](
		m, shipcommands.NewOrbitShipHandler(d.ShipRepo),
	); err != nil {
		return err
	}
	if err := mediator.RegisterHandler[*shiptypes.RefuelShipCommand](
		m, shipcommands.NewRefuelShipHandler(d.ShipRepo, d.PlayerRepo, m),
	); err != nil {
		return err
	}
	if err := mediator.RegisterHandler[*shiptypes.SetFlightModeCommand](
		m, shipcommands.NewSetFlightModeHandler(d.ShipRepo),
	); err != nil {
		return err
	}
	if err := mediator.RegisterHandler[*shipcommands.PurchaseCargoCommand](
		m, shipcommands.NewPurchaseCargoHandler(d.ShipRepo, d.PlayerRepo, d.APIClient, d.MarketRepo, m, scanner),
	); err != nil {
		return err
	}
	if err := mediator.RegisterHandler[*shipcommands.SellCargoCommand](
		m, shipcommands.NewSellCargoHandler(d.ShipRepo, d.PlayerRepo, d.APIClient, d.MarketRepo, m, scanner),
	); err != nil {
		return err
	}
	if err := mediator.RegisterHandler[*shipcommands.JettisonCargoCommand](
		m, shipcommands.NewJettisonCargoHandler(d.ShipRepo),
	); err != nil {
		return err
	}
	if err := mediator.RegisterHandler[*shipqueries.ListShipsQuery](
		m, shipqueries.NewListShipsHandler(d.ShipRepo, r.playerResolver),
	); err != nil {
		return err
	}
	return mediator.RegisterHandler[*shipqueries.GetShipQuery](
		m, shipqueries.NewGetShipHandler(d.ShipRepo, r.playerResolver),
	)
}

// RegisterScoutingHandlers registers market scouting commands and the stored
// market data queries.
func (r *HandlerRegistry) RegisterScoutingHandlers(m mediator.Mediator) error {
	d := r.deps

	scanner := ship.NewMarketScanner(d.APIClient, d.MarketRepo, d.PriceHistoryRepo, d.Clock)

	if err := mediator.RegisterHandler[*scoutingcommands.ScoutMarketsCommand](
		m, scoutingcommands.NewScoutMarketsHandler(d.ShipRepo, d.GraphProvider, d.RoutePlanner, d.Launcher),
	); err != nil {
		return err
	}
	if err := mediator.RegisterHandler[*scoutingcommands.ScoutTourCommand](
		m, scoutingcommands.NewScoutTourHandler(d.ShipRepo, m, scanner, d.Clock),
	); err != nil {
		return err
	}
	if err := mediator.RegisterHandler[*scoutingcommands.AssignScoutingFleetCommand](
		m, scoutingcommands.NewAssignScoutingFleetHandler(d.ShipRepo, d.WaypointRepo, m),
	); err != nil {
		return err
	}
	if err := mediator.RegisterHandler[*scoutingqueries.GetMarketDataQuery](
		m, scoutingqueries.NewGetMarketDataHandler(d.MarketRepo, r.playerResolver, d.Clock),
	); err != nil {
		return err
	}
	return mediator.RegisterHandler[*scoutingqueries.ListSystemMarketsQuery](
		m, scoutingqueries.NewListSystemMarketsHandler(d.MarketRepo, r.playerResolver, d.Clock),
	)
}

// RegisterContractHandlers registers the contract lifecycle commands and the
// profitability evaluation query.
func (r *HandlerRegistry) RegisterContractHandlers(m mediator.Mediator) error {
	d := r.deps

	if err := mediator.RegisterHandler[*contractcommands.NegotiateContractCommand](
		m, contractcommands.NewNegotiateContractHandler(d.ContractRepo, d.ShipRepo, d.PlayerRepo, d.APIClient, m, d.Clock),
	); err != nil {
		return err
	}
	if err := mediator.RegisterHandler[*contractcommands.AcceptContractCommand](
		m, contractcommands.NewAcceptContractHandler(d.ContractRepo, d.PlayerRepo, d.APIClient, m),
	); err != nil {
		return err
	}
	if err := mediator.RegisterHandler[*contractcommands.DeliverContractCommand](
		m, contractcommands.NewDeliverContractHandler(d.ContractRepo, d.APIClient),
	); err != nil {
		return err
	}
	if err := mediator.RegisterHandler[*contractcommands.FulfillContractCommand](
		m, contractcommands.NewFulfillContractHandler(d.ContractRepo, d.PlayerRepo, d.APIClient, m),
	); err != nil {
		return err
	}
	if err := mediator.RegisterHandler[*contractcommands.RunContractWorkflowCommand](
		m, contractcommands.NewRunContractWorkflowHandler(d.ContractRepo, d.ShipRepo, m, d.Clock),
	); err != nil {
		return err
	}
	return mediator.RegisterHandler[*contractqueries.EvaluateContractProfitabilityQuery](
		m, contractqueries.NewEvaluateContractProfitabilityHandler(d.ShipRepo, d.MarketRepo),
	)
}

// RegisterShipyardHandlers registers ship purchasing commands and the
// shipyard listing query.
func (r *HandlerRegistry) RegisterShipyardHandlers(m mediator.Mediator) error {
	d := r.deps

	if err := mediator.RegisterHandler[*shipyardcommands.PurchaseShipCommand](
		m, shipyardcommands.NewPurchaseShipHandler(d.ShipRepo, d.WaypointRepo, d.GraphProvider, d.PlayerRepo, d.APIClient, m),
	); err != nil {
		return err
	}
	if err := mediator.RegisterHandler[*shipyardcommands.BatchPurchaseShipsCommand](
		m, shipyardcommands.NewBatchPurchaseShipsHandler(d.ShipRepo, m),
	); err != nil {
		return err
	}
	return mediator.RegisterHandler[*shipyardqueries.GetShipyardListingsQuery](
		m, shipyardqueries.NewGetShipyardListingsHandler(d.APIClient),
	)
}

// RegisterTradingHandlers registers the arbitrage workflow command and the
// opportunity query. Both share the registry's finder so CLI queries and the
// running workflow rank opportunities identically.
func (r *HandlerRegistry) RegisterTradingHandlers(m mediator.Mediator) error {
	d := r.deps

	if err := mediator.RegisterHandler[*tradingcommands.RunArbitrageCommand](
		m, tradingcommands.NewRunArbitrageHandler(d.ShipRepo, r.finder, m, d.Clock),
	); err != nil {
		return err
	}
	return mediator.RegisterHandler[*tradingqueries.FindArbitrageOpportunitiesQuery](
		m, tradingqueries.NewFindArbitrageOpportunitiesHandler(r.finder, r.playerResolver),
	)
}

// RegisterLedgerHandlers registers transaction recording and the financial
// reporting queries.
func (r *HandlerRegistry) RegisterLedgerHandlers(m mediator.Mediator) error {
	d := r.deps

	if err := mediator.RegisterHandler[*ledgercommands.RecordTransactionCommand](
		m, ledgercommands.NewRecordTransactionHandler(d.TransactionRepo, d.Clock),
	); err != nil {
		return err
	}
	if err := mediator.RegisterHandler[*ledgerqueries.GetTransactionsQuery](
		m, ledgerqueries.NewGetTransactionsHandler(d.TransactionRepo, r.playerResolver),
	); err != nil {
		return err
	}
	if err := mediator.RegisterHandler[*ledgerqueries.GetProfitLossQuery](
		m, ledgerqueries.NewGetProfitLossHandler(d.TransactionRepo, r.playerResolver),
	); err != nil {
		return err
	}
	return mediator.RegisterHandler[*ledgerqueries.GetCashFlowQuery](
		m, ledgerqueries.NewGetCashFlowHandler(d.TransactionRepo, r.playerResolver),
	)
}

// RegisterPlayerHandlers registers agent registration and player queries.
func (r *HandlerRegistry) RegisterPlayerHandlers(m mediator.Mediator) error {
	d := r.deps

	if err := mediator.RegisterHandler[*playercommands.RegisterPlayerCommand](
		m, playercommands.NewRegisterPlayerHandler(d.PlayerRepo, d.APIClient),
	); err != nil {
		return err
	}
	if err := mediator.RegisterHandler[*playerqueries.ListPlayersQuery](
		m, playerqueries.NewListPlayersHandler(d.PlayerRepo),
	); err != nil {
		return err
	}
	return mediator.RegisterHandler[*playerqueries.GetPlayerQuery](
		m, playerqueries.NewGetPlayerHandler(d.PlayerRepo, r.playerResolver, d.APIClient),
	)
}
