package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/orbitalmachines/astrogator/internal/adapters/metrics"
	"github.com/orbitalmachines/astrogator/internal/domain/contract"
	"github.com/orbitalmachines/astrogator/internal/domain/market"
	"github.com/orbitalmachines/astrogator/internal/domain/navigation"
	"github.com/orbitalmachines/astrogator/internal/domain/player"
	"github.com/orbitalmachines/astrogator/internal/domain/ports"
	"github.com/orbitalmachines/astrogator/internal/domain/shared"
	"github.com/orbitalmachines/astrogator/internal/domain/system"
)

const (
	// DefaultBaseURL is the public game API.
	DefaultBaseURL = "https://api.spacetraders.io/v2"

	defaultRequestTimeout = 30 * time.Second
	defaultMaxRetries     = 3
	defaultBackoffBase    = time.Second
	defaultRatePerSecond  = 2
	defaultRateBurst      = 2
	defaultTransitSlack   = 3 * time.Second

	// apiCodeExistingContract is returned when negotiating while the agent
	// already holds an unfulfilled contract.
	apiCodeExistingContract = 4511
)

// Config tunes the gateway. Zero values fall back to the defaults above.
type Config struct {
	BaseURL        string
	RequestTimeout time.Duration

	// MaxRetries is the number of retries after the first attempt, so the
	// default of 3 yields up to 4 attempts per call sequence.
	MaxRetries  int
	BackoffBase time.Duration

	RatePerSecond float64
	RateBurst     int

	BreakerMaxFailures int
	BreakerOpenTimeout time.Duration

	// TransitSlack pads the wait past a held ship's arrival instant.
	TransitSlack time.Duration
}

func (c Config) withDefaults() Config {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = defaultRequestTimeout
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = defaultMaxRetries
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = defaultBackoffBase
	}
	if c.RatePerSecond <= 0 {
		c.RatePerSecond = defaultRatePerSecond
	}
	if c.RateBurst <= 0 {
		c.RateBurst = defaultRateBurst
	}
	if c.TransitSlack <= 0 {
		c.TransitSlack = defaultTransitSlack
	}
	return c
}

// Client is the gateway to the remote game API and the only component in the
// process allowed to open a socket to it. It owns, per player token, a rate
// limiter and a circuit breaker; every call runs as
//
//	breaker( retry-loop( limiter.Wait; HTTP ) )
//
// so an open breaker rejects without consuming a limiter token, and one
// breaker failure means one whole exhausted call sequence.
//
// The process holds a single Client per base URL, so the token-keyed controls
// satisfy the one-limiter-per-player-and-API rule.
type Client struct {
	httpClient *http.Client
	cfg        Config
	clock      shared.Clock
	log        zerolog.Logger
	metrics    *metrics.APIMetricsCollector
	transits   *transitGuard

	mu       sync.Mutex
	controls map[string]*playerControls
}

type playerControls struct {
	limiter *rate.Limiter
	breaker *CircuitBreaker
}

var _ ports.APIClient = (*Client)(nil)

// NewClient creates a gateway client. clock may be nil (system clock);
// collector may be nil (metrics disabled).
func NewClient(cfg Config, clock shared.Clock, log zerolog.Logger, collector *metrics.APIMetricsCollector) *Client {
	cfg = cfg.withDefaults()
	if clock == nil {
		clock = shared.NewRealClock()
	}
	return &Client{
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		cfg:        cfg,
		clock:      clock,
		log:        log,
		metrics:    collector,
		transits:   newTransitGuard(clock),
		controls:   make(map[string]*playerControls),
	}
}

func (c *Client) controlsFor(token string) *playerControls {
	c.mu.Lock()
	defer c.mu.Unlock()

	pc, ok := c.controls[token]
	if !ok {
		pc = &playerControls{
			limiter: rate.NewLimiter(rate.Limit(c.cfg.RatePerSecond), c.cfg.RateBurst),
			breaker: NewCircuitBreaker(c.cfg.BreakerMaxFailures, c.cfg.BreakerOpenTimeout, c.clock, c.onBreakerStateChange),
		}
		c.controls[token] = pc
	}
	return pc
}

func (c *Client) onBreakerStateChange(state CircuitState) {
	event := c.log.Info()
	if state == CircuitOpen {
		event = c.log.Warn()
	}
	event.Str("state", state.String()).Msg("circuit breaker changed state")
	if c.metrics != nil {
		c.metrics.RecordCircuitBreakerState(int(state))
	}
}

// BreakerState reports the breaker position for a player's token.
func (c *Client) BreakerState(token string) CircuitState {
	return c.controlsFor(token).breaker.State()
}

// ResetBreaker forces a player's breaker closed.
func (c *Client) ResetBreaker(token string) {
	c.controlsFor(token).breaker.Reset()
}

// ResetAllBreakers forces every known breaker closed.
func (c *Client) ResetAllBreakers() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, pc := range c.controls {
		pc.breaker.Reset()
	}
}

// request describes one logical API call. label is the fixed, id-free form of
// the path used for metric labels. guardShip, when set, names the ship whose
// transit must be waited out before the call is issued.
type request struct {
	method    string
	path      string
	label     string
	token     string
	body      interface{}
	out       interface{}
	guardShip string
}

func (c *Client) do(ctx context.Context, req request) error {
	if req.guardShip != "" {
		if err := c.holdForTransit(ctx, req.guardShip, req.token, req.label); err != nil {
			return err
		}
	}

	pc := c.controlsFor(req.token)
	return pc.breaker.Call(func() error {
		return c.doWithRetries(ctx, pc, req)
	})
}

func (c *Client) doWithRetries(ctx context.Context, pc *playerControls, req request) error {
	var body []byte
	if req.body != nil {
		var err error
		body, err = json.Marshal(req.body)
		if err != nil {
			return shared.WrapDomainError(shared.ErrInternal, "failed to marshal request body", err)
		}
	}

	var lastErr error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := c.retryDelay(attempt, lastErr)
			reason := retryReason(lastErr)
			if c.metrics != nil {
				c.metrics.RecordAPIRetry(req.method, req.label, reason)
			}
			c.log.Debug().
				Str("method", req.method).
				Str("path", req.path).
				Int("attempt", attempt).
				Dur("delay", delay).
				Str("reason", reason).
				Msg("retrying API request")

			if err := cancellation(ctx); err != nil {
				return err
			}
			c.clock.Sleep(delay)
		}
		if err := cancellation(ctx); err != nil {
			return err
		}

		waitStart := time.Now()
		if err := pc.limiter.Wait(ctx); err != nil {
			return shared.WrapDomainError(shared.ErrOperationCanceled, "canceled while waiting for rate limiter", err)
		}
		if c.metrics != nil {
			if waited := time.Since(waitStart); waited > time.Millisecond {
				c.metrics.RecordRateLimitWait(req.method, req.label, waited.Seconds())
			}
		}

		err := c.attempt(ctx, req, body)
		if err == nil {
			return nil
		}
		if !isRetryable(err) {
			return err
		}
		lastErr = err
	}

	c.log.Warn().
		Str("method", req.method).
		Str("path", req.path).
		Int("attempts", c.cfg.MaxRetries+1).
		Err(lastErr).
		Msg("API call sequence exhausted")
	return exhaustedError(lastErr, c.cfg.MaxRetries+1)
}

// attempt performs a single HTTP exchange and classifies its outcome.
func (c *Client) attempt(ctx context.Context, req request, body []byte) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, c.cfg.BaseURL+req.path, reader)
	if err != nil {
		return shared.WrapDomainError(shared.ErrInternal, "failed to build request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if req.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return cancellation(ctx)
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return shared.WrapDomainError(shared.ErrTimeout, "request timed out", err)
		}
		return shared.WrapDomainError(shared.ErrRemoteUnavailable, "request failed", err)
	}
	defer resp.Body.Close()

	respBody, readErr := io.ReadAll(resp.Body)
	if c.metrics != nil {
		c.metrics.RecordAPIRequest(req.method, req.label, resp.StatusCode, time.Since(start).Seconds())
	}
	if readErr != nil {
		return shared.WrapDomainError(shared.ErrRemoteUnavailable, "failed to read response body", readErr)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if req.out != nil {
			if err := json.Unmarshal(respBody, req.out); err != nil {
				return shared.WrapDomainError(shared.ErrInternal, "failed to decode response", err)
			}
		}
		return nil
	}

	return errorFromResponse(resp, respBody)
}

// remoteError is one failed HTTP exchange, carrying the remote error envelope
// so callers can inspect game-level codes (contract negotiation relies on
// this) and the Retry-After hint on 429s.
type remoteError struct {
	StatusCode int
	APICode    int
	Message    string
	Data       json.RawMessage
	RetryAfter time.Duration
}

func (e *remoteError) Error() string {
	if e.APICode != 0 {
		return fmt.Sprintf("api error (status %d, code %d): %s", e.StatusCode, e.APICode, e.Message)
	}
	return fmt.Sprintf("api error (status %d): %s", e.StatusCode, e.Message)
}

func errorFromResponse(resp *http.Response, body []byte) error {
	remote := &remoteError{StatusCode: resp.StatusCode}

	var envelope struct {
		Error struct {
			Code    int             `json:"code"`
			Message string          `json:"message"`
			Data    json.RawMessage `json:"data"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil {
		remote.APICode = envelope.Error.Code
		remote.Message = envelope.Error.Message
		remote.Data = envelope.Error.Data
	}
	if remote.Message == "" {
		remote.Message = http.StatusText(resp.StatusCode)
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		remote.RetryAfter = parseRetryAfter(resp.Header.Get("Retry-After"))
	}

	code := shared.ErrHTTP4xx
	if resp.StatusCode >= 500 {
		code = shared.ErrHTTP5xx
	}
	de := shared.WrapDomainError(code, remote.Message, remote)
	de.HTTPStatus = resp.StatusCode
	return de
}

// parseRetryAfter handles both the delta-seconds and HTTP-date forms.
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}

func (c *Client) retryDelay(attempt int, lastErr error) time.Duration {
	var remote *remoteError
	if errors.As(lastErr, &remote) && remote.RetryAfter > 0 {
		return remote.RetryAfter
	}
	return c.cfg.BackoffBase * time.Duration(1<<(attempt-1))
}

func isRetryable(err error) bool {
	var remote *remoteError
	if errors.As(err, &remote) {
		return retryableStatus(remote.StatusCode)
	}
	switch shared.CodeOf(err) {
	case shared.ErrRemoteUnavailable, shared.ErrTimeout:
		return true
	}
	return false
}

func retryableStatus(status int) bool {
	switch status {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

func retryReason(err error) string {
	var remote *remoteError
	if errors.As(err, &remote) {
		if remote.StatusCode == http.StatusTooManyRequests {
			return "rate_limited"
		}
		return "server_error"
	}
	if shared.CodeOf(err) == shared.ErrTimeout {
		return "timeout"
	}
	return "network"
}

func exhaustedError(lastErr error, attempts int) error {
	var remote *remoteError
	if errors.As(lastErr, &remote) && remote.StatusCode == http.StatusTooManyRequests {
		return shared.WrapDomainError(shared.ErrRateLimitedExhausted,
			fmt.Sprintf("rate limited after %d attempts", attempts), lastErr)
	}
	if shared.CodeOf(lastErr) == shared.ErrTimeout {
		return shared.WrapDomainError(shared.ErrTimeout,
			fmt.Sprintf("timed out after %d attempts", attempts), lastErr)
	}
	return shared.WrapDomainError(shared.ErrMaxRetriesExceeded,
		fmt.Sprintf("request failed after %d attempts", attempts), lastErr)
}

func cancellation(ctx context.Context) error {
	switch ctx.Err() {
	case nil:
		return nil
	case context.DeadlineExceeded:
		return shared.WrapDomainError(shared.ErrTimeout, "deadline exceeded", ctx.Err())
	default:
		return shared.WrapDomainError(shared.ErrOperationCanceled, "request canceled", ctx.Err())
	}
}

// holdForTransit waits out a ship's known transit before a ship command is
// issued. The remote API rejects commands against ships in transit, so when
// the last snapshot showed IN_TRANSIT we re-check live state, sleep until the
// reported arrival plus slack if it still is, and re-fetch before issuing.
func (c *Client) holdForTransit(ctx context.Context, shipSymbol, token, label string) error {
	arrival, known := c.transits.lastKnownTransit(shipSymbol)
	if !known {
		return nil
	}

	ship, err := c.GetShip(ctx, shipSymbol, token)
	if err != nil {
		return err
	}
	if ship.NavStatus != string(navigation.NavStatusInTransit) {
		return nil
	}
	if live, err := time.Parse(time.RFC3339, ship.ArrivalTime); err == nil {
		arrival = live
	}

	wait := arrival.Sub(c.clock.Now()) + c.cfg.TransitSlack
	if c.metrics != nil {
		c.metrics.RecordTransitHold(label)
	}
	c.log.Info().
		Str("ship", shipSymbol).
		Dur("wait", wait).
		Msg("ship in transit, holding command until arrival")

	if wait > 0 {
		if err := cancellation(ctx); err != nil {
			return err
		}
		c.clock.Sleep(wait)
	}

	if _, err := c.GetShip(ctx, shipSymbol, token); err != nil {
		return err
	}
	return nil
}

// --- response payloads shared across endpoints ---

type agentPayload struct {
	AccountID       string `json:"accountId"`
	Symbol          string `json:"symbol"`
	Headquarters    string `json:"headquarters"`
	Credits         int    `json:"credits"`
	StartingFaction string `json:"startingFaction"`
	ShipCount       int    `json:"shipCount"`
}

func toAgentData(p *agentPayload) *player.AgentData {
	return &player.AgentData{
		AccountID:       p.AccountID,
		Symbol:          p.Symbol,
		Headquarters:    p.Headquarters,
		Credits:         p.Credits,
		StartingFaction: p.StartingFaction,
		ShipCount:       p.ShipCount,
	}
}

type navPayload struct {
	SystemSymbol   string `json:"systemSymbol"`
	WaypointSymbol string `json:"waypointSymbol"`
	Status         string `json:"status"`
	FlightMode     string `json:"flightMode"`
	Route          struct {
		Arrival     string `json:"arrival"`
		Destination struct {
			Symbol string `json:"symbol"`
		} `json:"destination"`
	} `json:"route"`
}

type fuelPayload struct {
	Current  int `json:"current"`
	Capacity int `json:"capacity"`
	Consumed struct {
		Amount int `json:"amount"`
	} `json:"consumed"`
}

type cargoPayload struct {
	Capacity  int `json:"capacity"`
	Units     int `json:"units"`
	Inventory []struct {
		Symbol string `json:"symbol"`
		Units  int    `json:"units"`
	} `json:"inventory"`
}

func toCargoData(p *cargoPayload) *navigation.CargoData {
	inventory := make([]navigation.CargoItemData, len(p.Inventory))
	for i, item := range p.Inventory {
		inventory[i] = navigation.CargoItemData{Symbol: item.Symbol, Units: item.Units}
	}
	return &navigation.CargoData{
		Capacity:  p.Capacity,
		Units:     p.Units,
		Inventory: inventory,
	}
}

type shipPayload struct {
	Symbol       string `json:"symbol"`
	Registration struct {
		Name          string `json:"name"`
		FactionSymbol string `json:"factionSymbol"`
		Role          string `json:"role"`
	} `json:"registration"`
	Nav    navPayload   `json:"nav"`
	Fuel   fuelPayload  `json:"fuel"`
	Cargo  cargoPayload `json:"cargo"`
	Engine struct {
		Speed int `json:"speed"`
	} `json:"engine"`
	Frame struct {
		Symbol string `json:"symbol"`
	} `json:"frame"`
}

func toShipData(p *shipPayload) *navigation.ShipData {
	data := &navigation.ShipData{
		Symbol:       p.Symbol,
		Location:     p.Nav.WaypointSymbol,
		NavStatus:    p.Nav.Status,
		FlightMode:   p.Nav.FlightMode,
		FuelCurrent:  p.Fuel.Current,
		FuelCapacity: p.Fuel.Capacity,
		EngineSpeed:  p.Engine.Speed,
		FrameSymbol:  p.Frame.Symbol,
		Role:         p.Registration.Role,
		Cargo:        toCargoData(&p.Cargo),
	}
	if p.Nav.Status == string(navigation.NavStatusInTransit) {
		data.ArrivalTime = p.Nav.Route.Arrival
	}
	return data
}

type transactionPayload struct {
	WaypointSymbol string `json:"waypointSymbol"`
	ShipSymbol     string `json:"shipSymbol"`
	TradeSymbol    string `json:"tradeSymbol"`
	Type           string `json:"type"`
	Units          int    `json:"units"`
	PricePerUnit   int    `json:"pricePerUnit"`
	TotalPrice     int    `json:"totalPrice"`
	Timestamp      string `json:"timestamp"`
}

type contractPayload struct {
	ID            string `json:"id"`
	FactionSymbol string `json:"factionSymbol"`
	Type          string `json:"type"`
	Terms         struct {
		Deadline string `json:"deadline"`
		Payment  struct {
			OnAccepted  int `json:"onAccepted"`
			OnFulfilled int `json:"onFulfilled"`
		} `json:"payment"`
		Deliver []struct {
			TradeSymbol       string `json:"tradeSymbol"`
			DestinationSymbol string `json:"destinationSymbol"`
			UnitsRequired     int    `json:"unitsRequired"`
			UnitsFulfilled    int    `json:"unitsFulfilled"`
		} `json:"deliver"`
	} `json:"terms"`
	Accepted         bool   `json:"accepted"`
	Fulfilled        bool   `json:"fulfilled"`
	DeadlineToAccept string `json:"deadlineToAccept"`
}

func toContractData(p *contractPayload) *contract.Data {
	deliveries := make([]contract.DeliveryData, len(p.Terms.Deliver))
	for i, d := range p.Terms.Deliver {
		deliveries[i] = contract.DeliveryData{
			TradeSymbol:       d.TradeSymbol,
			DestinationSymbol: d.DestinationSymbol,
			UnitsRequired:     d.UnitsRequired,
			UnitsFulfilled:    d.UnitsFulfilled,
		}
	}
	return &contract.Data{
		ContractID:       p.ID,
		FactionSymbol:    p.FactionSymbol,
		Type:             p.Type,
		Accepted:         p.Accepted,
		Fulfilled:        p.Fulfilled,
		DeadlineToAccept: p.DeadlineToAccept,
		Deadline:         p.Terms.Deadline,
		PaymentAccepted:  p.Terms.Payment.OnAccepted,
		PaymentFulfilled: p.Terms.Payment.OnFulfilled,
		Deliveries:       deliveries,
	}
}

// --- agent operations ---

// RegisterAgent registers a new agent and returns its one-time token. The
// registration endpoint is the only unauthenticated call.
func (c *Client) RegisterAgent(ctx context.Context, agentSymbol, faction string) (*ports.RegistrationResult, error) {
	var out struct {
		Data struct {
			Token string       `json:"token"`
			Agent agentPayload `json:"agent"`
		} `json:"data"`
	}
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/register",
		label:  "/register",
		body:   map[string]string{"symbol": agentSymbol, "faction": faction},
		out:    &out,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to register agent: %w", err)
	}
	return &ports.RegistrationResult{
		Token: out.Data.Token,
		Agent: toAgentData(&out.Data.Agent),
	}, nil
}

func (c *Client) GetAgent(ctx context.Context, token string) (*player.AgentData, error) {
	var out struct {
		Data agentPayload `json:"data"`
	}
	err := c.do(ctx, request{
		method: http.MethodGet,
		path:   "/my/agent",
		label:  "/my/agent",
		token:  token,
		out:    &out,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get agent: %w", err)
	}
	return toAgentData(&out.Data), nil
}

// --- ship operations ---

func (c *Client) GetShip(ctx context.Context, symbol, token string) (*navigation.ShipData, error) {
	var out struct {
		Data shipPayload `json:"data"`
	}
	err := c.do(ctx, request{
		method: http.MethodGet,
		path:   fmt.Sprintf("/my/ships/%s", symbol),
		label:  "/my/ships/{ship}",
		token:  token,
		out:    &out,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get ship: %w", err)
	}
	data := toShipData(&out.Data)
	c.transits.observe(data.Symbol, data.NavStatus, data.ArrivalTime)
	return data, nil
}

// ListShips pages through the fleet, 20 ships per page.
func (c *Client) ListShips(ctx context.Context, token string) ([]*navigation.ShipData, error) {
	const limit = 20
	var ships []*navigation.ShipData

	for page := 1; ; page++ {
		var out struct {
			Data []shipPayload `json:"data"`
			Meta struct {
				Total int `json:"total"`
				Page  int `json:"page"`
				Limit int `json:"limit"`
			} `json:"meta"`
		}
		err := c.do(ctx, request{
			method: http.MethodGet,
			path:   fmt.Sprintf("/my/ships?page=%d&limit=%d", page, limit),
			label:  "/my/ships",
			token:  token,
			out:    &out,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list ships (page %d): %w", page, err)
		}
		if len(out.Data) == 0 {
			break
		}
		for i := range out.Data {
			data := toShipData(&out.Data[i])
			c.transits.observe(data.Symbol, data.NavStatus, data.ArrivalTime)
			ships = append(ships, data)
		}
		if len(ships) >= out.Meta.Total || len(out.Data) < limit {
			break
		}
	}
	return ships, nil
}

func (c *Client) NavigateShip(ctx context.Context, symbol, destination, token string) (*navigation.NavigationResult, error) {
	var out struct {
		Data struct {
			Fuel fuelPayload `json:"fuel"`
			Nav  navPayload  `json:"nav"`
		} `json:"data"`
	}
	err := c.do(ctx, request{
		method:    http.MethodPost,
		path:      fmt.Sprintf("/my/ships/%s/navigate", symbol),
		label:     "/my/ships/{ship}/navigate",
		token:     token,
		body:      map[string]string{"waypointSymbol": destination},
		out:       &out,
		guardShip: symbol,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to navigate ship: %w", err)
	}

	c.transits.observe(symbol, out.Data.Nav.Status, out.Data.Nav.Route.Arrival)
	return &navigation.NavigationResult{
		Destination:  out.Data.Nav.WaypointSymbol,
		ArrivalTime:  out.Data.Nav.Route.Arrival,
		FuelConsumed: out.Data.Fuel.Consumed.Amount,
		FuelCurrent:  out.Data.Fuel.Current,
		FuelCapacity: out.Data.Fuel.Capacity,
	}, nil
}

// OrbitShip moves the ship to orbit. The API wants an empty JSON object, not
// an empty body.
func (c *Client) OrbitShip(ctx context.Context, symbol, token string) error {
	var out struct {
		Data struct {
			Nav navPayload `json:"nav"`
		} `json:"data"`
	}
	err := c.do(ctx, request{
		method:    http.MethodPost,
		path:      fmt.Sprintf("/my/ships/%s/orbit", symbol),
		label:     "/my/ships/{ship}/orbit",
		token:     token,
		body:      struct{}{},
		out:       &out,
		guardShip: symbol,
	})
	if err != nil {
		return fmt.Errorf("failed to orbit ship: %w", err)
	}
	c.transits.observe(symbol, out.Data.Nav.Status, out.Data.Nav.Route.Arrival)
	return nil
}

func (c *Client) DockShip(ctx context.Context, symbol, token string) error {
	var out struct {
		Data struct {
			Nav navPayload `json:"nav"`
		} `json:"data"`
	}
	err := c.do(ctx, request{
		method:    http.MethodPost,
		path:      fmt.Sprintf("/my/ships/%s/dock", symbol),
		label:     "/my/ships/{ship}/dock",
		token:     token,
		body:      struct{}{},
		out:       &out,
		guardShip: symbol,
	})
	if err != nil {
		return fmt.Errorf("failed to dock ship: %w", err)
	}
	c.transits.observe(symbol, out.Data.Nav.Status, out.Data.Nav.Route.Arrival)
	return nil
}

// RefuelShip fills the tank, or adds exactly units when given.
func (c *Client) RefuelShip(ctx context.Context, symbol, token string, units *int) (*navigation.RefuelResult, error) {
	body := map[string]interface{}{}
	if units != nil {
		body["units"] = *units
	}

	var out struct {
		Data struct {
			Agent       agentPayload       `json:"agent"`
			Fuel        fuelPayload        `json:"fuel"`
			Transaction transactionPayload `json:"transaction"`
		} `json:"data"`
	}
	err := c.do(ctx, request{
		method:    http.MethodPost,
		path:      fmt.Sprintf("/my/ships/%s/refuel", symbol),
		label:     "/my/ships/{ship}/refuel",
		token:     token,
		body:      body,
		out:       &out,
		guardShip: symbol,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to refuel ship: %w", err)
	}

	// Refueling requires a docked ship, so any transit is over.
	c.transits.clear(symbol)
	return &navigation.RefuelResult{
		FuelAdded:    out.Data.Transaction.Units,
		CreditsCost:  out.Data.Transaction.TotalPrice,
		AgentCredits: out.Data.Agent.Credits,
	}, nil
}

func (c *Client) SetFlightMode(ctx context.Context, symbol, flightMode, token string) error {
	err := c.do(ctx, request{
		method: http.MethodPatch,
		path:   fmt.Sprintf("/my/ships/%s/nav", symbol),
		label:  "/my/ships/{ship}/nav",
		token:  token,
		body:   map[string]string{"flightMode": flightMode},
	})
	if err != nil {
		return fmt.Errorf("failed to set flight mode: %w", err)
	}
	return nil
}

// --- cargo operations ---

func (c *Client) PurchaseCargo(ctx context.Context, shipSymbol, goodSymbol string, units int, token string) (*ports.PurchaseResult, error) {
	var out struct {
		Data struct {
			Agent       agentPayload       `json:"agent"`
			Cargo       cargoPayload       `json:"cargo"`
			Transaction transactionPayload `json:"transaction"`
		} `json:"data"`
	}
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   fmt.Sprintf("/my/ships/%s/purchase", shipSymbol),
		label:  "/my/ships/{ship}/purchase",
		token:  token,
		body:   map[string]interface{}{"symbol": goodSymbol, "units": units},
		out:    &out,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to purchase cargo: %w", err)
	}
	return &ports.PurchaseResult{
		GoodSymbol:   out.Data.Transaction.TradeSymbol,
		UnitsAdded:   out.Data.Transaction.Units,
		PricePerUnit: out.Data.Transaction.PricePerUnit,
		TotalCost:    out.Data.Transaction.TotalPrice,
		AgentCredits: out.Data.Agent.Credits,
		Cargo:        toCargoData(&out.Data.Cargo),
	}, nil
}

func (c *Client) SellCargo(ctx context.Context, shipSymbol, goodSymbol string, units int, token string) (*ports.SellResult, error) {
	var out struct {
		Data struct {
			Agent       agentPayload       `json:"agent"`
			Cargo       cargoPayload       `json:"cargo"`
			Transaction transactionPayload `json:"transaction"`
		} `json:"data"`
	}
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   fmt.Sprintf("/my/ships/%s/sell", shipSymbol),
		label:  "/my/ships/{ship}/sell",
		token:  token,
		body:   map[string]interface{}{"symbol": goodSymbol, "units": units},
		out:    &out,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to sell cargo: %w", err)
	}
	return &ports.SellResult{
		GoodSymbol:   out.Data.Transaction.TradeSymbol,
		UnitsSold:    out.Data.Transaction.Units,
		PricePerUnit: out.Data.Transaction.PricePerUnit,
		TotalRevenue: out.Data.Transaction.TotalPrice,
		AgentCredits: out.Data.Agent.Credits,
		Cargo:        toCargoData(&out.Data.Cargo),
	}, nil
}

func (c *Client) JettisonCargo(ctx context.Context, shipSymbol, goodSymbol string, units int, token string) error {
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   fmt.Sprintf("/my/ships/%s/jettison", shipSymbol),
		label:  "/my/ships/{ship}/jettison",
		token:  token,
		body:   map[string]interface{}{"symbol": goodSymbol, "units": units},
	})
	if err != nil {
		return fmt.Errorf("failed to jettison cargo: %w", err)
	}
	return nil
}

// --- contract operations ---

// NegotiateContract asks for a new contract. When the agent already holds an
// unfulfilled contract the API rejects the call with a dedicated game code
// whose payload names the existing contract; that case is reported as a
// result, not an error.
func (c *Client) NegotiateContract(ctx context.Context, shipSymbol, token string) (*contract.NegotiationResult, error) {
	var out struct {
		Data struct {
			Contract contractPayload `json:"contract"`
		} `json:"data"`
	}
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   fmt.Sprintf("/my/ships/%s/negotiate/contract", shipSymbol),
		label:  "/my/ships/{ship}/negotiate/contract",
		token:  token,
		body:   struct{}{},
		out:    &out,
	})
	if err != nil {
		var remote *remoteError
		if errors.As(err, &remote) && remote.APICode == apiCodeExistingContract {
			var data struct {
				ContractID string `json:"contractId"`
			}
			if len(remote.Data) > 0 {
				_ = json.Unmarshal(remote.Data, &data)
			}
			return &contract.NegotiationResult{ExistingContractID: data.ContractID}, nil
		}
		return nil, fmt.Errorf("failed to negotiate contract: %w", err)
	}
	return &contract.NegotiationResult{Contract: toContractData(&out.Data.Contract)}, nil
}

func (c *Client) GetContract(ctx context.Context, contractID, token string) (*contract.Data, error) {
	var out struct {
		Data contractPayload `json:"data"`
	}
	err := c.do(ctx, request{
		method: http.MethodGet,
		path:   fmt.Sprintf("/my/contracts/%s", contractID),
		label:  "/my/contracts/{contract}",
		token:  token,
		out:    &out,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get contract: %w", err)
	}
	return toContractData(&out.Data), nil
}

func (c *Client) AcceptContract(ctx context.Context, contractID, token string) (*ports.ContractAgreementResult, error) {
	var out struct {
		Data struct {
			Agent    agentPayload    `json:"agent"`
			Contract contractPayload `json:"contract"`
		} `json:"data"`
	}
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   fmt.Sprintf("/my/contracts/%s/accept", contractID),
		label:  "/my/contracts/{contract}/accept",
		token:  token,
		body:   struct{}{},
		out:    &out,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to accept contract: %w", err)
	}
	return &ports.ContractAgreementResult{
		Contract:     toContractData(&out.Data.Contract),
		AgentCredits: out.Data.Agent.Credits,
	}, nil
}

func (c *Client) DeliverContract(ctx context.Context, contractID, shipSymbol, tradeSymbol string, units int, token string) (*ports.ContractDeliveryResult, error) {
	var out struct {
		Data struct {
			Contract contractPayload `json:"contract"`
			Cargo    cargoPayload    `json:"cargo"`
		} `json:"data"`
	}
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   fmt.Sprintf("/my/contracts/%s/deliver", contractID),
		label:  "/my/contracts/{contract}/deliver",
		token:  token,
		body: map[string]interface{}{
			"shipSymbol":  shipSymbol,
			"tradeSymbol": tradeSymbol,
			"units":       units,
		},
		out: &out,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to deliver contract: %w", err)
	}
	return &ports.ContractDeliveryResult{
		Contract: toContractData(&out.Data.Contract),
		Cargo:    toCargoData(&out.Data.Cargo),
	}, nil
}

func (c *Client) FulfillContract(ctx context.Context, contractID, token string) (*ports.ContractAgreementResult, error) {
	var out struct {
		Data struct {
			Agent    agentPayload    `json:"agent"`
			Contract contractPayload `json:"contract"`
		} `json:"data"`
	}
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   fmt.Sprintf("/my/contracts/%s/fulfill", contractID),
		label:  "/my/contracts/{contract}/fulfill",
		token:  token,
		body:   struct{}{},
		out:    &out,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fulfill contract: %w", err)
	}
	return &ports.ContractAgreementResult{
		Contract:     toContractData(&out.Data.Contract),
		AgentCredits: out.Data.Agent.Credits,
	}, nil
}

// --- market operations ---

// GetMarket returns market data. Trade goods with prices are only present
// when one of the player's ships is at the waypoint.
func (c *Client) GetMarket(ctx context.Context, systemSymbol, waypointSymbol, token string) (*market.Data, error) {
	var out struct {
		Data struct {
			Symbol     string `json:"symbol"`
			TradeGoods []struct {
				Symbol        string `json:"symbol"`
				Supply        string `json:"supply"`
				Activity      string `json:"activity"`
				SellPrice     int    `json:"sellPrice"`
				PurchasePrice int    `json:"purchasePrice"`
				TradeVolume   int    `json:"tradeVolume"`
			} `json:"tradeGoods"`
		} `json:"data"`
	}
	err := c.do(ctx, request{
		method: http.MethodGet,
		path:   fmt.Sprintf("/systems/%s/waypoints/%s/market", systemSymbol, waypointSymbol),
		label:  "/systems/{system}/waypoints/{waypoint}/market",
		token:  token,
		out:    &out,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get market: %w", err)
	}

	goods := make([]market.TradeGoodData, len(out.Data.TradeGoods))
	for i, g := range out.Data.TradeGoods {
		goods[i] = market.TradeGoodData{
			Symbol:        g.Symbol,
			Supply:        g.Supply,
			Activity:      g.Activity,
			SellPrice:     g.SellPrice,
			PurchasePrice: g.PurchasePrice,
			TradeVolume:   g.TradeVolume,
		}
	}
	return &market.Data{
		WaypointSymbol: out.Data.Symbol,
		TradeGoods:     goods,
	}, nil
}

// --- shipyard operations ---

func (c *Client) GetShipyard(ctx context.Context, systemSymbol, waypointSymbol, token string) (*ports.ShipyardData, error) {
	var out struct {
		Data struct {
			Symbol    string `json:"symbol"`
			ShipTypes []struct {
				Type string `json:"type"`
			} `json:"shipTypes"`
			Ships []struct {
				Type          string `json:"type"`
				Name          string `json:"name"`
				Description   string `json:"description"`
				PurchasePrice int    `json:"purchasePrice"`
			} `json:"ships"`
			ModificationsFee int `json:"modificationsFee"`
		} `json:"data"`
	}
	err := c.do(ctx, request{
		method: http.MethodGet,
		path:   fmt.Sprintf("/systems/%s/waypoints/%s/shipyard", systemSymbol, waypointSymbol),
		label:  "/systems/{system}/waypoints/{waypoint}/shipyard",
		token:  token,
		out:    &out,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get shipyard: %w", err)
	}

	shipTypes := make([]string, len(out.Data.ShipTypes))
	for i, st := range out.Data.ShipTypes {
		shipTypes[i] = st.Type
	}
	listings := make([]ports.ShipListingData, len(out.Data.Ships))
	for i, s := range out.Data.Ships {
		listings[i] = ports.ShipListingData{
			Type:          s.Type,
			Name:          s.Name,
			Description:   s.Description,
			PurchasePrice: s.PurchasePrice,
		}
	}
	return &ports.ShipyardData{
		Symbol:          out.Data.Symbol,
		ShipTypes:       shipTypes,
		Listings:        listings,
		ModificationFee: out.Data.ModificationsFee,
	}, nil
}

func (c *Client) PurchaseShip(ctx context.Context, shipType, waypointSymbol, token string) (*ports.ShipPurchaseResult, error) {
	var out struct {
		Data struct {
			Agent       agentPayload       `json:"agent"`
			Ship        shipPayload        `json:"ship"`
			Transaction transactionPayload `json:"transaction"`
		} `json:"data"`
	}
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/my/ships",
		label:  "/my/ships",
		token:  token,
		body: map[string]string{
			"shipType":       shipType,
			"waypointSymbol": waypointSymbol,
		},
		out: &out,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to purchase ship: %w", err)
	}
	return &ports.ShipPurchaseResult{
		Agent: toAgentData(&out.Data.Agent),
		Ship:  toShipData(&out.Data.Ship),
		Transaction: &ports.ShipPurchaseTransaction{
			WaypointSymbol: out.Data.Transaction.WaypointSymbol,
			ShipSymbol:     out.Data.Transaction.ShipSymbol,
			ShipType:       shipType,
			Price:          out.Data.Transaction.TotalPrice,
			AgentSymbol:    out.Data.Agent.Symbol,
			Timestamp:      out.Data.Transaction.Timestamp,
		},
	}, nil
}

// --- waypoint operations ---

func (c *Client) ListWaypoints(ctx context.Context, systemSymbol, token string, page, limit int) (*system.WaypointsListResponse, error) {
	var out struct {
		Data []struct {
			Symbol   string  `json:"symbol"`
			Type     string  `json:"type"`
			X        float64 `json:"x"`
			Y        float64 `json:"y"`
			Traits   []struct {
				Symbol string `json:"symbol"`
			} `json:"traits"`
			Orbitals []struct {
				Symbol string `json:"symbol"`
			} `json:"orbitals"`
		} `json:"data"`
		Meta struct {
			Total int `json:"total"`
			Page  int `json:"page"`
			Limit int `json:"limit"`
		} `json:"meta"`
	}
	err := c.do(ctx, request{
		method: http.MethodGet,
		path:   fmt.Sprintf("/systems/%s/waypoints?page=%d&limit=%d", systemSymbol, page, limit),
		label:  "/systems/{system}/waypoints",
		token:  token,
		out:    &out,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list waypoints: %w", err)
	}

	waypoints := make([]system.WaypointAPIData, len(out.Data))
	for i, wp := range out.Data {
		traits := make([]system.TraitData, len(wp.Traits))
		for j, t := range wp.Traits {
			traits[j] = system.TraitData{Symbol: t.Symbol}
		}
		orbitals := make([]system.OrbitalData, len(wp.Orbitals))
		for j, o := range wp.Orbitals {
			orbitals[j] = system.OrbitalData{Symbol: o.Symbol}
		}
		waypoints[i] = system.WaypointAPIData{
			Symbol:   wp.Symbol,
			Type:     wp.Type,
			X:        wp.X,
			Y:        wp.Y,
			Traits:   traits,
			Orbitals: orbitals,
		}
	}
	return &system.WaypointsListResponse{
		Data: waypoints,
		Meta: system.PaginationMeta{
			Total: out.Meta.Total,
			Page:  out.Meta.Page,
			Limit: out.Meta.Limit,
		},
	}, nil
}
