package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/orbitalmachines/astrogator/internal/adapters/api"
	"github.com/orbitalmachines/astrogator/internal/adapters/graph"
	"github.com/orbitalmachines/astrogator/internal/adapters/metrics"
	"github.com/orbitalmachines/astrogator/internal/adapters/persistence"
	"github.com/orbitalmachines/astrogator/internal/adapters/routing"
	"github.com/orbitalmachines/astrogator/internal/adapters/rpc"
	"github.com/orbitalmachines/astrogator/internal/application/mediator"
	"github.com/orbitalmachines/astrogator/internal/application/player"
	"github.com/orbitalmachines/astrogator/internal/application/setup"
	"github.com/orbitalmachines/astrogator/internal/domain/daemon"
	"github.com/orbitalmachines/astrogator/internal/domain/navigation"
	"github.com/orbitalmachines/astrogator/internal/domain/shared"
	"github.com/orbitalmachines/astrogator/internal/infrastructure/config"
	"github.com/orbitalmachines/astrogator/internal/infrastructure/database"
	"github.com/orbitalmachines/astrogator/internal/infrastructure/logging"
	"github.com/orbitalmachines/astrogator/internal/infrastructure/pidfile"
)

const version = "0.1.0"

// transitGrace is how far past a ship's computed arrival the health monitor
// tolerates IN_TRANSIT before flagging the ship as stuck.
const transitGrace = 5 * time.Minute

func main() {
	force := flag.Bool("force", false, "kill any existing daemon and start a new one")
	configPath := flag.String("config", "", "path to config file (default: search standard locations)")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	initLogging(cfg)
	log := logging.WithComponent("daemon")
	log.Info().Str("version", version).Msg("astrogator daemon starting")

	pf := pidfile.New(cfg.Daemon.PIDFile)
	if err := pf.Acquire(); err != nil {
		if !*force {
			log.Fatal().Err(err).Msg("another daemon holds the PID file, use --force to replace it")
		}
		log.Warn().Msg("replacing existing daemon")
		if err := pf.KillExisting(); err != nil {
			log.Fatal().Err(err).Msg("failed to stop existing daemon")
		}
		if err := pf.Acquire(); err != nil {
			log.Fatal().Err(err).Msg("failed to acquire PID file")
		}
	}
	defer func() {
		if err := pf.Release(); err != nil {
			log.Warn().Err(err).Msg("failed to release PID file")
		}
	}()

	if err := run(cfg); err != nil {
		log.Fatal().Err(err).Msg("daemon exited with error")
	}
}

func initLogging(cfg *config.Config) {
	var out *os.File
	switch cfg.Logging.Output {
	case "stderr":
		out = os.Stderr
	case "file":
		f, err := os.OpenFile(cfg.Logging.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "cannot open log file %s: %v\n", cfg.Logging.FilePath, err)
			out = os.Stdout
		} else {
			out = f
		}
	default:
		out = os.Stdout
	}
	logging.Init(logging.Config{
		Level:      cfg.Logging.Level,
		JSONOutput: cfg.Logging.Format == "json",
		Output:     out,
	})
}

func run(cfg *config.Config) error {
	log := logging.WithComponent("daemon")
	clock := shared.NewRealClock()

	db, err := database.NewConnection(&cfg.Database)
	if err != nil {
		return fmt.Errorf("database connection: %w", err)
	}
	defer database.Close(db)
	log.Info().Str("type", cfg.Database.Type).Msg("database connected")

	playerRepo := persistence.NewGormPlayerRepository(db, clock)
	waypointRepo := persistence.NewGormWaypointRepository(db, clock)
	graphRepo := persistence.NewGormSystemGraphRepository(db)
	containerRepo := persistence.NewContainerRepository(db, clock)
	logRepo := persistence.NewGormContainerLogRepository(db, clock)
	assignmentRepo := persistence.NewShipAssignmentRepository(db, clock)
	marketRepo := persistence.NewMarketRepository(db)
	priceHistoryRepo := persistence.NewGormPriceHistoryRepository(db)
	contractRepo := persistence.NewGormContractRepository(db, clock)
	transactionRepo := persistence.NewGormTransactionRepository(db)

	var apiCollector *metrics.APIMetricsCollector
	var commandCollector *metrics.CommandMetricsCollector
	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
		apiCollector = metrics.NewAPIMetricsCollector()
		if err := apiCollector.Register(); err != nil {
			return fmt.Errorf("register api metrics: %w", err)
		}
		commandCollector = metrics.NewCommandMetricsCollector()
		if err := commandCollector.Register(); err != nil {
			return fmt.Errorf("register command metrics: %w", err)
		}
	}

	apiClient := api.NewClient(api.Config{
		BaseURL:            cfg.API.BaseURL,
		RequestTimeout:     cfg.API.Timeout,
		MaxRetries:         cfg.API.Retry.MaxAttempts,
		BackoffBase:        cfg.API.Retry.BackoffBase,
		RatePerSecond:      float64(cfg.API.RateLimit.Requests),
		RateBurst:          cfg.API.RateLimit.Burst,
		BreakerMaxFailures: cfg.API.Breaker.MaxFailures,
		BreakerOpenTimeout: cfg.API.Breaker.OpenTimeout,
		TransitSlack:       cfg.API.TransitSlack,
	}, clock, logging.WithComponent("api"), apiCollector)

	graphBuilder := api.NewGraphBuilder(apiClient, playerRepo, waypointRepo, logging.WithComponent("graph_builder"))
	graphProvider := graph.NewProvider(graphRepo, graphBuilder, logging.Logger)
	shipRepo := api.NewShipRepository(apiClient, playerRepo, waypointRepo, graphProvider, assignmentRepo, clock, logging.WithComponent("ship_repo"))
	planner := routing.NewEngine()

	// The registry is a handler dependency and the mediator is a registry
	// dependency, so the registry is built first and the mediator bound after.
	registry := rpc.NewRegistry(nil, containerRepo, logRepo, assignmentRepo, clock, logging.Logger, cfg.Daemon.MaxContainers)
	registry.SetLogRetention(cfg.Daemon.LogRetention)

	handlers := setup.NewHandlerRegistry(setup.Deps{
		ShipRepo:         shipRepo,
		WaypointRepo:     waypointRepo,
		GraphProvider:    graphProvider,
		RoutePlanner:     planner,
		MarketRepo:       marketRepo,
		PriceHistoryRepo: priceHistoryRepo,
		ContractRepo:     contractRepo,
		TransactionRepo:  transactionRepo,
		PlayerRepo:       playerRepo,
		APIClient:        apiClient,
		Launcher:         registry,
		CommandMetrics:   commandCollector,
		Clock:            clock,
		Logger:           logging.WithComponent("mediator"),
	})
	med, err := handlers.CreateConfiguredMediator()
	if err != nil {
		return fmt.Errorf("mediator wiring: %w", err)
	}
	registry.SetMediator(med)
	registry.SetEventSink(runnerMetricsSink{})

	listPlayers := func(ctx context.Context) []shared.PlayerID {
		players, err := playerRepo.FindAll(ctx)
		if err != nil {
			log.Warn().Err(err).Msg("listing players failed")
			return nil
		}
		ids := make([]shared.PlayerID, 0, len(players))
		for _, p := range players {
			ids = append(ids, p.ID)
		}
		return ids
	}

	metricsCtx, stopCollectors := context.WithCancel(context.Background())
	defer stopCollectors()
	if cfg.Metrics.Enabled {
		if err := startCollectors(metricsCtx, cfg, db, med, registry, shipRepo, listPlayers); err != nil {
			return err
		}
	}

	scheduler := rpc.NewShipStateScheduler(shipRepo, listPlayers, clock, logging.Logger)
	defer scheduler.Stop()

	monitor := daemon.NewHealthMonitor(cfg.Daemon.HealthCheckInterval, transitGrace, clock)

	server := rpc.NewServer(cfg.Daemon.SocketPath, rpc.ServerDeps{
		Mediator:        med,
		Registry:        registry,
		Resolver:        player.NewResolver(playerRepo),
		ContainerRepo:   containerRepo,
		LogRepo:         logRepo,
		AssignmentRepo:  assignmentRepo,
		ShipRepo:        shipRepo,
		HealthMonitor:   monitor,
		Scheduler:       scheduler,
		Clock:           clock,
		Log:             logging.Logger,
		Version:         version,
		ShutdownTimeout: cfg.Daemon.ShutdownTimeout,
	})

	bootCtx, cancelBoot := context.WithTimeout(context.Background(), 2*time.Minute)
	report, err := registry.Recover(bootCtx, rpc.NewFactoryRegistry())
	cancelBoot()
	if err != nil {
		log.Warn().Err(err).Msg("container recovery failed")
	} else if report.Found > 0 {
		log.Info().
			Int("found", report.Found).
			Int("recovered", len(report.Recovered)).
			Int("skipped", len(report.Skipped)).
			Int("locks_released", report.LocksReleased).
			Msg("recovered interrupted containers")
	}

	scheduler.ScheduleAllPending(context.Background())
	scheduler.StartSweeper(cfg.Daemon.ShipRefreshInterval)

	server.StartHealthLoop(cfg.Daemon.HealthCheckInterval, listPlayers)

	return server.Start()
}

// startCollectors registers and starts the polling collectors and exposes
// the Prometheus endpoint over HTTP.
func startCollectors(
	ctx context.Context,
	cfg *config.Config,
	db *gorm.DB,
	med mediator.Mediator,
	registry *rpc.Registry,
	shipRepo navigation.ShipRepository,
	listPlayers func(ctx context.Context) []shared.PlayerID,
) error {
	log := logging.WithComponent("metrics")

	getContainers := func() map[string]metrics.ContainerInfo {
		snapshot := registry.Snapshot()
		infos := make(map[string]metrics.ContainerInfo, len(snapshot))
		for id, runner := range snapshot {
			infos[id] = runner
		}
		return infos
	}

	containerCollector := metrics.NewContainerMetricsCollector(getContainers, shipRepo, listPlayers, log)
	if err := containerCollector.Register(); err != nil {
		return fmt.Errorf("register container metrics: %w", err)
	}
	containerCollector.Start(ctx)
	metrics.SetGlobalContainerCollector(containerCollector)

	navCollector := metrics.NewNavigationMetricsCollector()
	if err := navCollector.Register(); err != nil {
		return fmt.Errorf("register navigation metrics: %w", err)
	}
	metrics.SetGlobalNavigationCollector(navCollector)

	financialCollector := metrics.NewFinancialMetricsCollector(med, log)
	if err := financialCollector.Register(); err != nil {
		return fmt.Errorf("register financial metrics: %w", err)
	}
	financialCollector.Start(ctx)
	metrics.SetGlobalFinancialCollector(financialCollector)

	marketCollector := metrics.NewMarketMetricsCollector(db, log)
	if err := marketCollector.Register(); err != nil {
		return fmt.Errorf("register market metrics: %w", err)
	}
	marketCollector.Start(ctx)
	metrics.SetGlobalMarketCollector(marketCollector)

	mux := http.NewServeMux()
	mux.Handle(cfg.Metrics.Path, promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))
	addr := fmt.Sprintf("%s:%d", cfg.Metrics.Host, cfg.Metrics.Port)
	go func() {
		log.Info().Str("addr", addr).Str("path", cfg.Metrics.Path).Msg("metrics endpoint listening")
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Error().Err(err).Msg("metrics server stopped")
		}
	}()

	return nil
}

// runnerMetricsSink forwards container lifecycle events to the package-level
// metrics recorders, which drop them when metrics are disabled.
type runnerMetricsSink struct{}

func (runnerMetricsSink) ContainerIteration(r *rpc.Runner) { metrics.RecordContainerIteration(r) }
func (runnerMetricsSink) ContainerRestart(r *rpc.Runner)   { metrics.RecordContainerRestart(r) }
func (runnerMetricsSink) ContainerFinished(r *rpc.Runner)  { metrics.RecordContainerCompletion(r) }
