package api_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orbitalmachines/astrogator/internal/adapters/api"
	"github.com/orbitalmachines/astrogator/internal/domain/shared"
)

// requestLog records every request the fake API receives.
type requestLog struct {
	mu      sync.Mutex
	entries []string
}

func (l *requestLog) add(r *http.Request) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, r.Method+" "+r.URL.Path)
}

func (l *requestLog) list() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.entries))
	copy(out, l.entries)
	return out
}

func (l *requestLog) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// newTestClient builds a client against a fake API with a limiter generous
// enough to never block and millisecond backoff.
func newTestClient(baseURL string, mutate func(*api.Config)) (*api.Client, *shared.MockClock) {
	cfg := api.Config{
		BaseURL:        baseURL,
		RequestTimeout: 5 * time.Second,
		MaxRetries:     2,
		BackoffBase:    time.Millisecond,
		RatePerSecond:  1000,
		RateBurst:      1000,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	clock := shared.NewMockClock(time.Time{})
	return api.NewClient(cfg, clock, zerolog.Nop(), nil), clock
}

func shipJSON(status, arrival string) string {
	return fmt.Sprintf(`{
		"symbol": "SHIP-1",
		"registration": {"name": "SHIP-1", "factionSymbol": "COSMIC", "role": "COMMAND"},
		"nav": {
			"systemSymbol": "X1-AA1",
			"waypointSymbol": "X1-AA1-B2",
			"status": %q,
			"flightMode": "CRUISE",
			"route": {"arrival": %q, "destination": {"symbol": "X1-AA1-B2"}}
		},
		"fuel": {"current": 380, "capacity": 400, "consumed": {"amount": 20}},
		"cargo": {"capacity": 40, "units": 3, "inventory": [{"symbol": "IRON_ORE", "units": 3}]},
		"engine": {"speed": 30},
		"frame": {"symbol": "FRAME_FRIGATE"}
	}`, status, arrival)
}

const agentJSON = `{
	"accountId": "acct-1",
	"symbol": "ORBITAL",
	"headquarters": "X1-AA1-A1",
	"credits": 150000,
	"startingFaction": "COSMIC",
	"shipCount": 2
}`

func TestClient_GetShip_MapsShipPayload(t *testing.T) {
	// Arrange
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		fmt.Fprintf(w, `{"data": %s}`, shipJSON("DOCKED", "2026-03-01T12:00:00Z"))
	}))
	defer server.Close()
	client, _ := newTestClient(server.URL, nil)

	// Act
	ship, err := client.GetShip(context.Background(), "SHIP-1", "token-1")

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "Bearer token-1", gotAuth)
	assert.Equal(t, "SHIP-1", ship.Symbol)
	assert.Equal(t, "X1-AA1-B2", ship.Location)
	assert.Equal(t, "DOCKED", ship.NavStatus)
	assert.Equal(t, "CRUISE", ship.FlightMode)
	assert.Empty(t, ship.ArrivalTime, "arrival is only meaningful in transit")
	assert.Equal(t, 380, ship.FuelCurrent)
	assert.Equal(t, 400, ship.FuelCapacity)
	assert.Equal(t, 30, ship.EngineSpeed)
	assert.Equal(t, "FRAME_FRIGATE", ship.FrameSymbol)
	assert.Equal(t, "COMMAND", ship.Role)
	require.NotNil(t, ship.Cargo)
	assert.Equal(t, 40, ship.Cargo.Capacity)
	assert.Equal(t, 3, ship.Cargo.Units)
	require.Len(t, ship.Cargo.Inventory, 1)
	assert.Equal(t, "IRON_ORE", ship.Cargo.Inventory[0].Symbol)
}

func TestClient_GetShip_TransitShipsCarryArrival(t *testing.T) {
	// Arrange
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"data": %s}`, shipJSON("IN_TRANSIT", "2026-03-01T12:00:00Z"))
	}))
	defer server.Close()
	client, _ := newTestClient(server.URL, nil)

	// Act
	ship, err := client.GetShip(context.Background(), "SHIP-1", "token-1")

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "IN_TRANSIT", ship.NavStatus)
	assert.Equal(t, "2026-03-01T12:00:00Z", ship.ArrivalTime)
}

func TestClient_RetriesRetryableStatusesThenSucceeds(t *testing.T) {
	// Arrange
	log := &requestLog{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.add(r)
		switch log.count() {
		case 1:
			w.WriteHeader(http.StatusBadGateway)
			fmt.Fprint(w, `{"error": {"code": 502, "message": "bad gateway"}}`)
		case 2:
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprint(w, `{"error": {"code": 503, "message": "maintenance"}}`)
		default:
			fmt.Fprintf(w, `{"data": %s}`, agentJSON)
		}
	}))
	defer server.Close()
	client, _ := newTestClient(server.URL, nil)

	// Act
	agent, err := client.GetAgent(context.Background(), "token-1")

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 3, log.count())
	assert.Equal(t, "ORBITAL", agent.Symbol)
	assert.Equal(t, 150000, agent.Credits)
}

func TestClient_ClientErrorsAreNotRetried(t *testing.T) {
	// Arrange
	log := &requestLog{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.add(r)
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"error": {"code": 404, "message": "no such agent"}}`)
	}))
	defer server.Close()
	client, _ := newTestClient(server.URL, nil)

	// Act
	_, err := client.GetAgent(context.Background(), "token-1")

	// Assert
	require.Error(t, err)
	assert.Equal(t, 1, log.count(), "4xx responses are final")
	assert.Equal(t, shared.ErrHTTP4xx, shared.CodeOf(err))
	assert.Contains(t, err.Error(), "no such agent")
}

func TestClient_ExhaustedRateLimitsReportDedicatedCode(t *testing.T) {
	// Arrange
	log := &requestLog{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.add(r)
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error": {"code": 429, "message": "slow down"}}`)
	}))
	defer server.Close()
	client, _ := newTestClient(server.URL, func(cfg *api.Config) {
		cfg.MaxRetries = 1
	})

	// Act
	_, err := client.GetAgent(context.Background(), "token-1")

	// Assert
	require.Error(t, err)
	assert.Equal(t, 2, log.count())
	assert.Equal(t, shared.ErrRateLimitedExhausted, shared.CodeOf(err))
}

func TestClient_RetryAfterOverridesBackoff(t *testing.T) {
	// Arrange
	log := &requestLog{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.add(r)
		if log.count() == 1 {
			w.Header().Set("Retry-After", "7")
			w.WriteHeader(http.StatusTooManyRequests)
			fmt.Fprint(w, `{"error": {"code": 429, "message": "slow down"}}`)
			return
		}
		fmt.Fprintf(w, `{"data": %s}`, agentJSON)
	}))
	defer server.Close()
	client, clock := newTestClient(server.URL, nil)
	start := clock.Now()

	// Act
	_, err := client.GetAgent(context.Background(), "token-1")

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 2, log.count())
	assert.Equal(t, 7*time.Second, clock.Now().Sub(start), "server hint replaces exponential backoff")
}

func TestClient_BreakerShortCircuitsAfterFailedSequences(t *testing.T) {
	// Arrange
	log := &requestLog{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.add(r)
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"error": {"code": 500, "message": "boom"}}`)
	}))
	defer server.Close()
	client, _ := newTestClient(server.URL, func(cfg *api.Config) {
		cfg.MaxRetries = 1
		cfg.BreakerMaxFailures = 2
	})
	ctx := context.Background()

	// Act: two exhausted sequences trip the breaker.
	_, err1 := client.GetAgent(ctx, "token-1")
	_, err2 := client.GetAgent(ctx, "token-1")
	_, err3 := client.GetAgent(ctx, "token-1")

	// Assert
	assert.Equal(t, shared.ErrMaxRetriesExceeded, shared.CodeOf(err1))
	assert.Equal(t, shared.ErrMaxRetriesExceeded, shared.CodeOf(err2))
	assert.Equal(t, shared.ErrCircuitOpen, shared.CodeOf(err3))
	assert.Equal(t, 4, log.count(), "open breaker must not touch the network")
	assert.Equal(t, api.CircuitOpen, client.BreakerState("token-1"))

	// Reset lets traffic through again.
	client.ResetBreaker("token-1")
	_, err4 := client.GetAgent(ctx, "token-1")
	assert.Equal(t, shared.ErrMaxRetriesExceeded, shared.CodeOf(err4))
	assert.Equal(t, 6, log.count())
}

func TestClient_BreakersAreIsolatedPerPlayer(t *testing.T) {
	// Arrange
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "Bearer broken" {
			w.WriteHeader(http.StatusInternalServerError)
			fmt.Fprint(w, `{"error": {"code": 500, "message": "boom"}}`)
			return
		}
		fmt.Fprintf(w, `{"data": %s}`, agentJSON)
	}))
	defer server.Close()
	client, _ := newTestClient(server.URL, func(cfg *api.Config) {
		cfg.MaxRetries = 1
		cfg.BreakerMaxFailures = 1
	})
	ctx := context.Background()

	// Act
	_, brokenErr := client.GetAgent(ctx, "broken")
	_, healthyErr := client.GetAgent(ctx, "healthy")

	// Assert
	require.Error(t, brokenErr)
	assert.Equal(t, api.CircuitOpen, client.BreakerState("broken"))
	require.NoError(t, healthyErr)
	assert.Equal(t, api.CircuitClosed, client.BreakerState("healthy"))
}

func TestClient_NegotiateContract_ExistingContractIsAResult(t *testing.T) {
	// Arrange
	log := &requestLog{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.add(r)
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error": {"code": 4511, "message": "agent already has a contract", "data": {"contractId": "cl-7"}}}`)
	}))
	defer server.Close()
	client, _ := newTestClient(server.URL, nil)

	// Act
	result, err := client.NegotiateContract(context.Background(), "SHIP-1", "token-1")

	// Assert
	require.NoError(t, err, "an existing contract is an answer, not a failure")
	assert.Equal(t, 1, log.count())
	assert.Equal(t, "cl-7", result.ExistingContractID)
	assert.Nil(t, result.Contract)
}

func TestClient_RegisterAgent_SendsNoAuthHeader(t *testing.T) {
	// Arrange
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		fmt.Fprintf(w, `{"data": {"token": "fresh-token", "agent": %s}}`, agentJSON)
	}))
	defer server.Close()
	client, _ := newTestClient(server.URL, nil)

	// Act
	result, err := client.RegisterAgent(context.Background(), "ORBITAL", "COSMIC")

	// Assert
	require.NoError(t, err)
	assert.Empty(t, gotAuth, "registration happens before any token exists")
	assert.Equal(t, "fresh-token", result.Token)
	assert.Equal(t, "ORBITAL", result.Agent.Symbol)
}

func TestClient_CommandsWaitOutKnownTransit(t *testing.T) {
	// Arrange
	log := &requestLog{}
	var shipGets int
	arrival := time.Now().UTC().Add(5 * time.Second).Format(time.RFC3339)
	dockNav := `{"data": {"nav": {
		"systemSymbol": "X1-AA1", "waypointSymbol": "X1-AA1-B2",
		"status": "DOCKED", "flightMode": "CRUISE",
		"route": {"arrival": "", "destination": {"symbol": "X1-AA1-B2"}}
	}}}`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.add(r)
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/my/ships/SHIP-1":
			shipGets++
			if shipGets <= 2 {
				fmt.Fprintf(w, `{"data": %s}`, shipJSON("IN_TRANSIT", arrival))
			} else {
				fmt.Fprintf(w, `{"data": %s}`, shipJSON("DOCKED", ""))
			}
		case r.Method == http.MethodPost && r.URL.Path == "/my/ships/SHIP-1/dock":
			fmt.Fprint(w, dockNav)
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	}))
	defer server.Close()
	client, _ := newTestClient(server.URL, nil)
	ctx := context.Background()

	// Seed the last-known state with an in-transit snapshot.
	_, err := client.GetShip(ctx, "SHIP-1", "token-1")
	require.NoError(t, err)

	// Act
	require.NoError(t, client.DockShip(ctx, "SHIP-1", "token-1"))

	// Assert: live check, wait, re-fetch, then the command.
	assert.Equal(t, []string{
		"GET /my/ships/SHIP-1",
		"GET /my/ships/SHIP-1",
		"GET /my/ships/SHIP-1",
		"POST /my/ships/SHIP-1/dock",
	}, log.list())

	// The dock response showed the ship landed; no hold next time.
	require.NoError(t, client.DockShip(ctx, "SHIP-1", "token-1"))
	entries := log.list()
	assert.Equal(t, "POST /my/ships/SHIP-1/dock", entries[len(entries)-1])
	assert.Len(t, entries, 5)
}

func TestClient_TimeoutsSurfaceTimeoutCode(t *testing.T) {
	// Arrange
	log := &requestLog{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.add(r)
		time.Sleep(150 * time.Millisecond)
	}))
	defer server.Close()
	client, _ := newTestClient(server.URL, func(cfg *api.Config) {
		cfg.RequestTimeout = 50 * time.Millisecond
		cfg.MaxRetries = 1
	})

	// Act
	_, err := client.GetAgent(context.Background(), "token-1")

	// Assert
	require.Error(t, err)
	assert.Equal(t, shared.ErrTimeout, shared.CodeOf(err))
	assert.Equal(t, 2, log.count(), "timeouts are retryable")
}
