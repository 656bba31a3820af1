package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/orbitalmachines/astrogator/internal/application/mediator"
	"github.com/orbitalmachines/astrogator/internal/application/player"
	"github.com/orbitalmachines/astrogator/internal/domain/container"
	"github.com/orbitalmachines/astrogator/internal/domain/daemon"
	"github.com/orbitalmachines/astrogator/internal/domain/navigation"
	"github.com/orbitalmachines/astrogator/internal/domain/shared"
)

// methodHandler handles one RPC method. Params arrive raw; the handler owns
// decoding and validation.
type methodHandler func(ctx context.Context, params json.RawMessage) (interface{}, error)

// Server is the daemon's RPC frontend: a unix domain stream socket, one
// framed JSON request per connection, concurrent per-connection handlers.
type Server struct {
	socketPath string
	version    string

	mediator       mediator.Mediator
	registry       *Registry
	resolver       *player.Resolver
	containerRepo  container.Repository
	logRepo        container.LogRepository
	assignmentRepo container.ShipAssignmentRepository
	shipRepo       navigation.ShipRepository
	healthMonitor  *daemon.HealthMonitor
	scheduler      *ShipStateScheduler
	clock          shared.Clock
	log            zerolog.Logger

	shutdownTimeout time.Duration
	startedAt       time.Time

	listener net.Listener
	methods  map[string]methodHandler

	shutdownCh chan os.Signal
	done       chan struct{}
	closeOnce  sync.Once
	connWG     sync.WaitGroup
}

// ServerDeps bundles what the server needs beyond the socket path.
type ServerDeps struct {
	Mediator       mediator.Mediator
	Registry       *Registry
	Resolver       *player.Resolver
	ContainerRepo  container.Repository
	LogRepo        container.LogRepository
	AssignmentRepo container.ShipAssignmentRepository
	ShipRepo       navigation.ShipRepository
	HealthMonitor  *daemon.HealthMonitor
	Scheduler      *ShipStateScheduler
	Clock          shared.Clock
	Log            zerolog.Logger
	Version        string

	// ShutdownTimeout bounds the container stop wait on SIGTERM.
	ShutdownTimeout time.Duration
}

func NewServer(socketPath string, deps ServerDeps) *Server {
	clock := deps.Clock
	if clock == nil {
		clock = shared.NewRealClock()
	}
	shutdownTimeout := deps.ShutdownTimeout
	if shutdownTimeout == 0 {
		shutdownTimeout = 30 * time.Second
	}

	s := &Server{
		socketPath:      socketPath,
		version:         deps.Version,
		mediator:        deps.Mediator,
		registry:        deps.Registry,
		resolver:        deps.Resolver,
		containerRepo:   deps.ContainerRepo,
		logRepo:         deps.LogRepo,
		assignmentRepo:  deps.AssignmentRepo,
		shipRepo:        deps.ShipRepo,
		healthMonitor:   deps.HealthMonitor,
		scheduler:       deps.Scheduler,
		clock:           clock,
		log:             deps.Log.With().Str("component", "rpc_server").Logger(),
		shutdownTimeout: shutdownTimeout,
		shutdownCh:      make(chan os.Signal, 1),
		done:            make(chan struct{}),
	}
	s.methods = s.buildMethodTable()
	return s
}

// Start binds the socket and serves until a shutdown signal arrives. A stale
// socket file from a dead process is removed; the fresh one is restricted to
// the owning user.
func (s *Server) Start() error {
	if err := os.RemoveAll(s.socketPath); err != nil {
		return err
	}

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return err
	}
	if err := os.Chmod(s.socketPath, 0600); err != nil {
		listener.Close()
		return err
	}
	s.listener = listener
	s.startedAt = s.clock.Now()

	signal.Notify(s.shutdownCh, syscall.SIGTERM, syscall.SIGINT)
	go s.handleShutdown()

	s.log.Info().Str("socket", s.socketPath).Msg("daemon listening")

	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-s.done:
				return nil
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				<-s.done
				return nil
			}
			s.log.Warn().Err(err).Msg("accept failed")
			continue
		}

		s.connWG.Add(1)
		go func(c net.Conn) {
			defer s.connWG.Done()
			s.handleConn(c)
		}(conn)
	}
}

// Shutdown triggers the same path as SIGTERM. Used by tests.
func (s *Server) Shutdown() {
	select {
	case s.shutdownCh <- syscall.SIGTERM:
	default:
	}
}

// Done closes once shutdown has finished.
func (s *Server) Done() <-chan struct{} {
	return s.done
}

func (s *Server) handleShutdown() {
	<-s.shutdownCh
	s.log.Info().Msg("shutdown signal received")

	s.closeOnce.Do(func() {
		// Stop accepting first, then drain in-flight requests within the
		// grace bound, then wind down containers.
		if s.listener != nil {
			s.listener.Close()
		}

		drained := make(chan struct{})
		go func() {
			s.connWG.Wait()
			close(drained)
		}()
		select {
		case <-drained:
		case <-time.After(s.shutdownTimeout):
			s.log.Warn().Dur("grace", s.shutdownTimeout).
				Msg("shutdown grace elapsed with requests still in flight")
		}

		if s.scheduler != nil {
			s.scheduler.Stop()
		}
		s.registry.StopAll(s.shutdownTimeout)
		os.Remove(s.socketPath)
		close(s.done)
	})
}

// handleConn serves one request. The response is written and the connection
// closed without waiting for the peer to acknowledge.
func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(30 * time.Second))

	req, err := readRequest(conn)
	if err != nil {
		writeResponse(conn, errorResponse(string(shared.ErrMalformedRequest), err.Error()))
		return
	}

	handler, ok := s.methods[req.Method]
	if !ok {
		writeResponse(conn, errorResponse(string(shared.ErrUnknownMethod), "unknown method "+req.Method))
		return
	}

	ctx := context.Background()
	result, err := handler(ctx, req.Params)
	if err != nil {
		writeResponse(conn, &Response{Error: toErrorBody(err)})
		return
	}
	writeResponse(conn, resultResponse(result))
}

// toErrorBody flattens any error into the compact wire form. Domain errors
// keep their stable code; everything else is Internal.
func toErrorBody(err error) *ErrorBody {
	return &ErrorBody{
		Code:    string(shared.CodeOf(err)),
		Message: err.Error(),
	}
}

// decodeParams unmarshals into target, mapping JSON problems to
// InvalidParams.
func decodeParams(params json.RawMessage, target interface{}) error {
	if len(params) == 0 {
		return nil
	}
	if err := json.Unmarshal(params, target); err != nil {
		return shared.WrapDomainError(shared.ErrInvalidParams, "decoding params", err)
	}
	return nil
}

// buildMethodTable wires every RPC method to its handler. Handlers live in
// the handlers_*.go files, grouped by area.
func (s *Server) buildMethodTable() map[string]methodHandler {
	return map[string]methodHandler{
		// Atomic ship operations and ship queries
		"Navigate":  s.handleNavigate,
		"Dock":      s.handleDock,
		"Orbit":     s.handleOrbit,
		"Refuel":    s.handleRefuel,
		"ListShips": s.handleListShips,
		"GetShip":   s.handleGetShip,

		// Workflow containers
		"ShipyardPurchase":      s.handleShipyardPurchase,
		"ShipyardBatchPurchase": s.handleShipyardBatchPurchase,
		"ScoutMarkets":          s.handleScoutMarkets,
		"ScoutTour":             s.handleScoutTour,
		"AssignScoutingFleet":   s.handleAssignScoutingFleet,
		"ContractBatchWorkflow": s.handleContractBatchWorkflow,
		"Arbitrage":             s.handleArbitrage,

		// Container management
		"DaemonList":    s.handleDaemonList,
		"DaemonInspect": s.handleDaemonInspect,
		"DaemonStop":    s.handleDaemonStop,
		"DaemonRemove":  s.handleDaemonRemove,
		"DaemonLogs":    s.handleDaemonLogs,
		"DaemonHealth":  s.handleDaemonHealth,

		// Players, markets, ledger
		"ArbitrageOpportunities": s.handleArbitrageOpportunities,
		"RegisterPlayer":         s.handleRegisterPlayer,
		"ListPlayers":            s.handleListPlayers,
		"ShipyardListings":       s.handleShipyardListings,
		"GetMarketData":          s.handleGetMarketData,
		"LedgerTransactions":     s.handleLedgerTransactions,
		"LedgerProfitLoss":       s.handleLedgerProfitLoss,
		"LedgerCashFlow":         s.handleLedgerCashFlow,
	}
}
