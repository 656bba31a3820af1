package rpc

import (
	"context"
	"encoding/json"
	"runtime"
	"time"

	"github.com/orbitalmachines/astrogator/internal/domain/container"
	"github.com/orbitalmachines/astrogator/internal/domain/daemon"
	"github.com/orbitalmachines/astrogator/internal/domain/shared"
)

// containerJSON is the wire shape of one container row.
type containerJSON struct {
	ID            string                 `json:"id"`
	Kind          string                 `json:"kind"`
	PlayerID      int                    `json:"player_id"`
	ShipSymbol    string                 `json:"ship_symbol,omitempty"`
	Status        string                 `json:"status"`
	Iteration     int                    `json:"iteration"`
	MaxIterations int                    `json:"max_iterations"`
	RestartCount  int                    `json:"restart_count"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt     time.Time              `json:"created_at"`
	StartedAt     *time.Time             `json:"started_at,omitempty"`
	StoppedAt     *time.Time             `json:"stopped_at,omitempty"`
	LastError     string                 `json:"last_error,omitempty"`
}

func containerToJSON(c *container.Container) containerJSON {
	out := containerJSON{
		ID:            c.ID(),
		Kind:          string(c.Type()),
		PlayerID:      c.PlayerID().Value(),
		ShipSymbol:    c.ShipSymbol(),
		Status:        string(c.Status()),
		Iteration:     c.CurrentIteration(),
		MaxIterations: c.MaxIterations(),
		RestartCount:  c.RestartCount(),
		Metadata:      c.Metadata(),
		CreatedAt:     c.CreatedAt(),
		StartedAt:     c.StartedAt(),
		StoppedAt:     c.StoppedAt(),
	}
	if err := c.LastError(); err != nil {
		out.LastError = err.Error()
	}
	return out
}

// DaemonList reports the containers this daemon knows about. When a player
// is named, persisted rows from earlier daemon runs are merged in so a
// freshly restarted daemon still lists history.
func (s *Server) handleDaemonList(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p struct {
		playerParams
		Status     string `json:"status"`
		Kind       string `json:"kind"`
		ShipSymbol string `json:"ship_symbol"`
	}
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}

	filter := ListFilter{}
	if p.Status != "" {
		status := container.ContainerStatus(p.Status)
		filter.Status = &status
	}
	if p.Kind != "" {
		kind := container.ContainerType(p.Kind)
		filter.Kind = &kind
	}
	if p.ShipSymbol != "" {
		filter.ShipSymbol = &p.ShipSymbol
	}

	var playerID *shared.PlayerID
	if p.PlayerID != nil || p.AgentSymbol != "" {
		pid, err := s.resolvePlayer(ctx, p.playerParams)
		if err != nil {
			return nil, err
		}
		playerID = &pid
		filter.PlayerID = &pid
	}

	containers := s.registry.List(filter)
	seen := make(map[string]bool, len(containers))
	for _, c := range containers {
		seen[c.ID()] = true
	}

	if playerID != nil {
		rows, err := s.containerRepo.FindAllByPlayer(ctx, *playerID)
		if err == nil {
			for _, c := range rows {
				if seen[c.ID()] {
					continue
				}
				if filter.Status != nil && c.Status() != *filter.Status {
					continue
				}
				if filter.Kind != nil && c.Type() != *filter.Kind {
					continue
				}
				if filter.ShipSymbol != nil && c.ShipSymbol() != *filter.ShipSymbol {
					continue
				}
				containers = append(containers, c)
			}
		}
	}

	out := make([]containerJSON, 0, len(containers))
	for _, c := range containers {
		out = append(out, containerToJSON(c))
	}
	return map[string]interface{}{"containers": out}, nil
}

func (s *Server) handleDaemonInspect(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p struct {
		playerParams
		ContainerID string `json:"container_id"`
	}
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	if p.ContainerID == "" {
		return nil, shared.NewDomainError(shared.ErrInvalidParams, "container_id is required")
	}

	if runner := s.registry.Get(p.ContainerID); runner != nil {
		return containerToJSON(runner.Container()), nil
	}

	playerID, err := s.resolvePlayer(ctx, p.playerParams)
	if err != nil {
		return nil, err
	}
	c, err := s.containerRepo.FindByID(ctx, p.ContainerID, playerID)
	if err != nil {
		return nil, shared.WrapDomainError(shared.ErrInternal, "looking up container", err)
	}
	if c == nil {
		return nil, shared.NewDomainErrorf(shared.ErrContainerNotFound, "container %s", p.ContainerID)
	}
	return containerToJSON(c), nil
}

// DaemonStop acknowledges as soon as the stop intent is registered; the
// runner winds down in the background.
func (s *Server) handleDaemonStop(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p struct {
		playerParams
		ContainerID string `json:"container_id"`
	}
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	if p.ContainerID == "" {
		return nil, shared.NewDomainError(shared.ErrInvalidParams, "container_id is required")
	}

	playerID, err := s.resolvePlayer(ctx, p.playerParams)
	if err != nil {
		return nil, err
	}

	if err := s.registry.StopContainer(ctx, p.ContainerID, playerID); err != nil {
		return nil, err
	}
	return map[string]string{"container_id": p.ContainerID, "status": "stopping"}, nil
}

func (s *Server) handleDaemonRemove(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p struct {
		playerParams
		ContainerID string `json:"container_id"`
	}
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	if p.ContainerID == "" {
		return nil, shared.NewDomainError(shared.ErrInvalidParams, "container_id is required")
	}

	playerID, err := s.resolvePlayer(ctx, p.playerParams)
	if err != nil {
		return nil, err
	}

	if err := s.registry.Remove(ctx, p.ContainerID, playerID); err != nil {
		return nil, err
	}
	return map[string]string{"container_id": p.ContainerID, "status": "removed"}, nil
}

type logEntryJSON struct {
	Timestamp time.Time              `json:"timestamp"`
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

func (s *Server) handleDaemonLogs(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p struct {
		playerParams
		ContainerID string  `json:"container_id"`
		Limit       int     `json:"limit"`
		Level       *string `json:"level"`
		Since       *string `json:"since"`
	}
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	if p.ContainerID == "" {
		return nil, shared.NewDomainError(shared.ErrInvalidParams, "container_id is required")
	}

	playerID, err := s.resolvePlayer(ctx, p.playerParams)
	if err != nil {
		return nil, err
	}

	limit := p.Limit
	if limit <= 0 {
		limit = 100
	}

	var since *time.Time
	if p.Since != nil {
		t, err := time.Parse(time.RFC3339, *p.Since)
		if err != nil {
			return nil, shared.WrapDomainError(shared.ErrInvalidParams, "parsing since", err)
		}
		since = &t
	}

	entries, err := s.logRepo.GetLogs(ctx, p.ContainerID, playerID, limit, p.Level, since)
	if err != nil {
		return nil, shared.WrapDomainError(shared.ErrInternal, "reading logs", err)
	}

	out := make([]logEntryJSON, 0, len(entries))
	for _, e := range entries {
		out = append(out, logEntryJSON{
			Timestamp: e.Timestamp,
			Level:     e.Level,
			Message:   e.Message,
			Metadata:  e.Metadata,
		})
	}
	return map[string]interface{}{"container_id": p.ContainerID, "logs": out}, nil
}

func (s *Server) handleDaemonHealth(ctx context.Context, params json.RawMessage) (interface{}, error) {
	report := daemon.HealthReport{
		Status:           "ok",
		Version:          s.version,
		UptimeSeconds:    int64(s.clock.Now().Sub(s.startedAt).Seconds()),
		ActiveContainers: s.registry.ActiveCount(),
		TotalContainers:  s.registry.TotalCount(),
		Goroutines:       runtime.NumGoroutine(),
		SocketPath:       s.socketPath,
		CheckedAt:        s.clock.Now(),
	}
	if s.healthMonitor != nil {
		report.Recovery = s.healthMonitor.Metrics()
	}
	return report, nil
}
