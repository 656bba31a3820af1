package rpc_test

import (
	"context"
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orbitalmachines/astrogator/internal/adapters/rpc"
	"github.com/orbitalmachines/astrogator/internal/application/mediator"
	"github.com/orbitalmachines/astrogator/internal/application/player"
	shipqueries "github.com/orbitalmachines/astrogator/internal/application/ship/queries"
	shiptypes "github.com/orbitalmachines/astrogator/internal/application/ship/types"
	domainplayer "github.com/orbitalmachines/astrogator/internal/domain/player"
	"github.com/orbitalmachines/astrogator/internal/domain/shared"
	"github.com/orbitalmachines/astrogator/test/helpers"
)

type serverFixture struct {
	server      *rpc.Server
	client      *rpc.Client
	socketPath  string
	mediator    *helpers.MockMediator
	registry    *rpc.Registry
	containers  *helpers.MockContainerRepository
	assignments *helpers.MockShipAssignmentRepository
	players     *helpers.MockPlayerRepository
}

func startServer(t *testing.T) *serverFixture {
	t.Helper()

	socketPath := filepath.Join(t.TempDir(), "astrogator.sock")

	f := &serverFixture{
		socketPath:  socketPath,
		mediator:    helpers.NewMockMediator(),
		containers:  helpers.NewMockContainerRepository(),
		assignments: helpers.NewMockShipAssignmentRepository(),
		players:     helpers.NewMockPlayerRepository(),
	}

	agent, err := domainplayer.New("AGENT", "token-1")
	require.NoError(t, err)
	agent.ID = helpers.TestPlayerID(t, 1)
	f.players.AddPlayer(agent)

	logs := helpers.NewMockContainerLogRepository()
	f.registry = rpc.NewRegistry(
		f.mediator, f.containers, logs, f.assignments,
		shared.NewMockClock(time.Time{}), zerolog.Nop(), 0,
	)

	f.server = rpc.NewServer(socketPath, rpc.ServerDeps{
		Mediator:        f.mediator,
		Registry:        f.registry,
		Resolver:        player.NewResolver(f.players),
		ContainerRepo:   f.containers,
		LogRepo:         logs,
		AssignmentRepo:  f.assignments,
		ShipRepo:        helpers.NewMockShipRepository(),
		Log:             zerolog.Nop(),
		Version:         "test",
		ShutdownTimeout: 2 * time.Second,
	})

	serveErr := make(chan error, 1)
	go func() { serveErr <- f.server.Start() }()

	f.client = rpc.NewClient(socketPath)
	require.Eventually(t, func() bool {
		return f.client.Ping()
	}, 2*time.Second, 10*time.Millisecond, "server did not come up")

	t.Cleanup(func() {
		f.server.Shutdown()
		select {
		case <-f.server.Done():
		case <-time.After(5 * time.Second):
			t.Error("server did not shut down")
		}
		require.NoError(t, <-serveErr)
	})
	return f
}

func TestServer_UnknownMethodReturnsError(t *testing.T) {
	f := startServer(t)

	var out json.RawMessage
	err := f.client.Call(context.Background(), "NoSuchMethod", nil, &out)
	require.Error(t, err)
	assert.True(t, shared.IsCode(err, shared.ErrUnknownMethod), "got %v", err)
}

func TestServer_MalformedRequestReturnsError(t *testing.T) {
	f := startServer(t)

	// Raw connection: the client never produces malformed frames.
	conn, err := net.Dial("unix", f.socketPath)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte("{this is not json"))
	require.NoError(t, err)

	var resp struct {
		Error *struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.NewDecoder(conn).Decode(&resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, string(shared.ErrMalformedRequest), resp.Error.Code)
}

func TestServer_DockLaunchesContainerAndReturnsID(t *testing.T) {
	f := startServer(t)

	f.mediator.SendFunc = func(ctx context.Context, request mediator.Request) (mediator.Response, error) {
		return &shiptypes.DockShipResponse{Status: "docked"}, nil
	}

	var out struct {
		ContainerID string `json:"container_id"`
		Reused      bool   `json:"reused"`
	}
	start := time.Now()
	err := f.client.Call(context.Background(), "Dock",
		map[string]interface{}{"ship_symbol": "SHIP-1", "player_id": 1}, &out)
	require.NoError(t, err)

	assert.Less(t, time.Since(start), 100*time.Millisecond, "accept must not wait for execution")
	assert.NotEmpty(t, out.ContainerID)
	assert.False(t, out.Reused)

	runner := f.registry.Get(out.ContainerID)
	require.NotNil(t, runner)
	select {
	case <-runner.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("container did not finish")
	}

	sent := f.mediator.SentOfType(&shiptypes.DockShipCommand{})
	require.Len(t, sent, 1)
	assert.Equal(t, "SHIP-1", sent[0].(*shiptypes.DockShipCommand).ShipSymbol)
}

func TestServer_DockWithoutIdentityFails(t *testing.T) {
	f := startServer(t)

	var out json.RawMessage
	err := f.client.Call(context.Background(), "Dock",
		map[string]interface{}{"ship_symbol": "SHIP-1"}, &out)
	require.Error(t, err)
	assert.True(t, shared.IsCode(err, shared.ErrInvalidParams), "got %v", err)
}

func TestServer_AgentSymbolResolvesPlayer(t *testing.T) {
	f := startServer(t)

	f.mediator.SendFunc = func(ctx context.Context, request mediator.Request) (mediator.Response, error) {
		return &shiptypes.DockShipResponse{Status: "docked"}, nil
	}

	var out struct {
		ContainerID string `json:"container_id"`
	}
	err := f.client.Call(context.Background(), "Dock",
		map[string]interface{}{"ship_symbol": "SHIP-1", "agent_symbol": "AGENT"}, &out)
	require.NoError(t, err)
	assert.NotEmpty(t, out.ContainerID)
}

func TestServer_UnknownAgentSymbolFails(t *testing.T) {
	f := startServer(t)

	var out json.RawMessage
	err := f.client.Call(context.Background(), "Dock",
		map[string]interface{}{"ship_symbol": "SHIP-1", "agent_symbol": "NOBODY"}, &out)
	require.Error(t, err)
	assert.True(t, shared.IsCode(err, shared.ErrPlayerNotFound), "got %v", err)
}

func TestServer_DaemonStopAcknowledgesImmediately(t *testing.T) {
	f := startServer(t)

	blocked := make(chan struct{})
	f.mediator.SendFunc = func(ctx context.Context, request mediator.Request) (mediator.Response, error) {
		select {
		case <-blocked:
		case <-ctx.Done():
		}
		return nil, nil
	}
	defer close(blocked)

	var launched struct {
		ContainerID string `json:"container_id"`
	}
	require.NoError(t, f.client.Call(context.Background(), "Dock",
		map[string]interface{}{"ship_symbol": "SHIP-1", "player_id": 1}, &launched))

	var stopped struct {
		ContainerID string `json:"container_id"`
		Status      string `json:"status"`
	}
	start := time.Now()
	err := f.client.Call(context.Background(), "DaemonStop",
		map[string]interface{}{"container_id": launched.ContainerID, "player_id": 1}, &stopped)
	require.NoError(t, err)

	assert.Less(t, time.Since(start), 100*time.Millisecond, "stop must acknowledge before the runner winds down")
	assert.Equal(t, "stopping", stopped.Status)

	runner := f.registry.Get(launched.ContainerID)
	require.NotNil(t, runner)
	select {
	case <-runner.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("runner did not stop")
	}
}

func TestServer_DaemonInspectUnknownContainerFails(t *testing.T) {
	f := startServer(t)

	var out json.RawMessage
	err := f.client.Call(context.Background(), "DaemonInspect",
		map[string]interface{}{"container_id": "dock-ship-GONE-00000000", "player_id": 1}, &out)
	require.Error(t, err)
	assert.True(t, shared.IsCode(err, shared.ErrContainerNotFound), "got %v", err)
}

func TestServer_DaemonHealthReportsContainers(t *testing.T) {
	f := startServer(t)

	blocked := make(chan struct{})
	f.mediator.SendFunc = func(ctx context.Context, request mediator.Request) (mediator.Response, error) {
		select {
		case <-blocked:
		case <-ctx.Done():
		}
		return nil, nil
	}
	defer close(blocked)

	require.NoError(t, f.client.Call(context.Background(), "Dock",
		map[string]interface{}{"ship_symbol": "SHIP-1", "player_id": 1}, nil))

	var health struct {
		Status           string `json:"status"`
		Version          string `json:"version"`
		ActiveContainers int    `json:"active_containers"`
	}
	require.NoError(t, f.client.Call(context.Background(), "DaemonHealth", nil, &health))

	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, "test", health.Version)
	assert.Equal(t, 1, health.ActiveContainers)
}

func TestServer_ShutdownRemovesSocket(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "astrogator.sock")

	players := helpers.NewMockPlayerRepository()
	med := helpers.NewMockMediator()
	registry := rpc.NewRegistry(
		med, helpers.NewMockContainerRepository(), helpers.NewMockContainerLogRepository(),
		helpers.NewMockShipAssignmentRepository(), shared.NewMockClock(time.Time{}), zerolog.Nop(), 0,
	)
	server := rpc.NewServer(socketPath, rpc.ServerDeps{
		Mediator:        med,
		Registry:        registry,
		Resolver:        player.NewResolver(players),
		ContainerRepo:   helpers.NewMockContainerRepository(),
		LogRepo:         helpers.NewMockContainerLogRepository(),
		AssignmentRepo:  helpers.NewMockShipAssignmentRepository(),
		ShipRepo:        helpers.NewMockShipRepository(),
		Log:             zerolog.Nop(),
		ShutdownTimeout: time.Second,
	})

	serveErr := make(chan error, 1)
	go func() { serveErr <- server.Start() }()

	client := rpc.NewClient(socketPath)
	require.Eventually(t, func() bool {
		return client.Ping()
	}, 2*time.Second, 10*time.Millisecond)

	server.Shutdown()
	select {
	case <-server.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("shutdown did not finish")
	}
	require.NoError(t, <-serveErr)

	_, err := os.Stat(socketPath)
	assert.True(t, os.IsNotExist(err), "socket file must be removed on shutdown")
}

func TestServer_ShutdownDrainsInFlightRequests(t *testing.T) {
	f := startServer(t)

	entered := make(chan struct{})
	release := make(chan struct{})
	f.mediator.SendFunc = func(ctx context.Context, request mediator.Request) (mediator.Response, error) {
		close(entered)
		<-release
		return &shipqueries.ListShipsResponse{}, nil
	}

	callDone := make(chan error, 1)
	go func() {
		var out json.RawMessage
		callDone <- f.client.Call(context.Background(), "ListShips",
			map[string]interface{}{"player_id": 1}, &out)
	}()

	select {
	case <-entered:
	case <-time.After(2 * time.Second):
		t.Fatal("handler was never reached")
	}

	f.server.Shutdown()

	select {
	case <-f.server.Done():
		t.Fatal("shutdown finished while a request was still in flight")
	case <-time.After(200 * time.Millisecond):
	}

	close(release)

	select {
	case err := <-callDone:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("in-flight request never completed")
	}

	select {
	case <-f.server.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("shutdown did not finish once the last request drained")
	}
}

func TestServer_StaleSocketFileIsReplaced(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "astrogator.sock")
	require.NoError(t, os.WriteFile(socketPath, []byte("stale"), 0600))

	f := &serverFixture{socketPath: socketPath}
	players := helpers.NewMockPlayerRepository()
	med := helpers.NewMockMediator()
	registry := rpc.NewRegistry(
		med, helpers.NewMockContainerRepository(), helpers.NewMockContainerLogRepository(),
		helpers.NewMockShipAssignmentRepository(), shared.NewMockClock(time.Time{}), zerolog.Nop(), 0,
	)
	f.server = rpc.NewServer(socketPath, rpc.ServerDeps{
		Mediator:        med,
		Registry:        registry,
		Resolver:        player.NewResolver(players),
		ContainerRepo:   helpers.NewMockContainerRepository(),
		LogRepo:         helpers.NewMockContainerLogRepository(),
		AssignmentRepo:  helpers.NewMockShipAssignmentRepository(),
		ShipRepo:        helpers.NewMockShipRepository(),
		Log:             zerolog.Nop(),
		ShutdownTimeout: time.Second,
	})

	serveErr := make(chan error, 1)
	go func() { serveErr <- f.server.Start() }()

	client := rpc.NewClient(socketPath)
	require.Eventually(t, func() bool {
		return client.Ping()
	}, 2*time.Second, 10*time.Millisecond, "stale socket file must not block startup")

	f.server.Shutdown()
	select {
	case <-f.server.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("shutdown did not finish")
	}
	require.NoError(t, <-serveErr)
}
