package metrics

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/orbitalmachines/astrogator/internal/domain/container"
	"github.com/orbitalmachines/astrogator/internal/domain/navigation"
	"github.com/orbitalmachines/astrogator/internal/domain/shared"
)

// ContainerInfo is the read surface the collector needs from a running
// container, abstracting away the actual runner implementation.
type ContainerInfo interface {
	PlayerID() int
	Type() container.ContainerType
	Status() container.ContainerStatus
	RestartCount() int
	CurrentIteration() int
	RuntimeDuration() time.Duration
}

// ContainerMetricsCollector tracks container lifecycle and fleet state. It
// polls the supervisor for running containers and the ship repository for
// per-player fleet gauges.
type ContainerMetricsCollector struct {
	getContainers func() map[string]ContainerInfo
	shipRepo      navigation.ShipRepository
	listPlayers   func(ctx context.Context) []shared.PlayerID
	log           zerolog.Logger

	containerRunningTotal *prometheus.GaugeVec
	containerTotal        *prometheus.CounterVec
	containerDuration     *prometheus.HistogramVec
	containerRestarts     *prometheus.CounterVec
	containerIterations   *prometheus.CounterVec

	shipsTotal      *prometheus.GaugeVec
	shipStatusTotal *prometheus.GaugeVec

	ctx        context.Context
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

// NewContainerMetricsCollector creates the collector. listPlayers feeds the
// ship gauges; a nil shipRepo or listPlayers disables ship polling.
func NewContainerMetricsCollector(
	getContainers func() map[string]ContainerInfo,
	shipRepo navigation.ShipRepository,
	listPlayers func(ctx context.Context) []shared.PlayerID,
	log zerolog.Logger,
) *ContainerMetricsCollector {
	return &ContainerMetricsCollector{
		getContainers: getContainers,
		shipRepo:      shipRepo,
		listPlayers:   listPlayers,
		log:           log,

		containerRunningTotal: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "container_running_total",
				Help:      "Number of currently running containers by type and player",
			},
			[]string{"player_id", "container_type"},
		),

		containerTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "container_total",
				Help:      "Total number of container lifecycle events by status",
			},
			[]string{"player_id", "container_type", "status"},
		),

		containerDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "container_duration_seconds",
				Help:      "Container execution duration distribution",
				Buckets:   []float64{1, 5, 10, 30, 60, 300, 600, 1800, 3600},
			},
			[]string{"player_id", "container_type"},
		),

		containerRestarts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "container_restarts_total",
				Help:      "Total number of container restarts",
			},
			[]string{"player_id", "container_type"},
		),

		containerIterations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "container_iterations_total",
				Help:      "Total number of container iterations completed",
			},
			[]string{"player_id", "container_type"},
		),

		shipsTotal: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "ships_total",
				Help:      "Number of ships by role and location",
			},
			[]string{"player_id", "role", "location"},
		),

		shipStatusTotal: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "ship_status_total",
				Help:      "Number of ships by navigation status",
			},
			[]string{"player_id", "status"},
		),
	}
}

// Register registers all container metrics with the Prometheus registry.
func (c *ContainerMetricsCollector) Register() error {
	if Registry == nil {
		return nil // Metrics not enabled
	}

	collectors := []prometheus.Collector{
		c.containerRunningTotal,
		c.containerTotal,
		c.containerDuration,
		c.containerRestarts,
		c.containerIterations,
		c.shipsTotal,
		c.shipStatusTotal,
	}

	for _, collector := range collectors {
		if err := Registry.Register(collector); err != nil {
			return err
		}
	}

	return nil
}

// Start begins the polling goroutines.
func (c *ContainerMetricsCollector) Start(ctx context.Context) {
	c.ctx, c.cancelFunc = context.WithCancel(ctx)

	c.wg.Add(1)
	go c.pollContainers(10 * time.Second)

	if c.shipRepo != nil && c.listPlayers != nil {
		c.wg.Add(1)
		go c.pollShips(30 * time.Second)
	}
}

// Stop cancels polling and waits for the goroutines to exit.
func (c *ContainerMetricsCollector) Stop() {
	if c.cancelFunc != nil {
		c.cancelFunc()
	}
	c.wg.Wait()
}

func (c *ContainerMetricsCollector) pollContainers(interval time.Duration) {
	defer c.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			c.updateContainerGauges()
		}
	}
}

func (c *ContainerMetricsCollector) updateContainerGauges() {
	if c.getContainers == nil {
		return
	}

	containers := c.getContainers()

	// Reset so removed containers drop out of the gauge.
	c.containerRunningTotal.Reset()

	for _, info := range containers {
		if info.Status() != container.ContainerStatusRunning {
			continue
		}
		playerID := strconv.Itoa(info.PlayerID())
		containerType := string(info.Type())
		c.containerRunningTotal.WithLabelValues(playerID, containerType).Add(1)
	}
}

func (c *ContainerMetricsCollector) pollShips(interval time.Duration) {
	defer c.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			c.updateShipGauges()
		}
	}
}

func (c *ContainerMetricsCollector) updateShipGauges() {
	players := c.listPlayers(c.ctx)
	if len(players) == 0 {
		return
	}

	c.shipsTotal.Reset()
	c.shipStatusTotal.Reset()

	for _, playerID := range players {
		ships, err := c.shipRepo.FindAllByPlayer(c.ctx, playerID)
		if err != nil {
			c.log.Warn().Err(err).Int("player_id", playerID.Value()).
				Msg("failed to list ships for metrics")
			continue
		}

		shipsByRole := make(map[string]map[string]int)
		shipsByStatus := make(map[string]int)

		for _, ship := range ships {
			role := ship.Role()
			location := ship.CurrentLocation().Symbol
			status := string(ship.NavStatus())

			if shipsByRole[role] == nil {
				shipsByRole[role] = make(map[string]int)
			}
			shipsByRole[role][location]++
			shipsByStatus[status]++
		}

		playerIDStr := playerID.String()

		for role, locationMap := range shipsByRole {
			for location, count := range locationMap {
				c.shipsTotal.WithLabelValues(playerIDStr, role, location).Set(float64(count))
			}
		}
		for status, count := range shipsByStatus {
			c.shipStatusTotal.WithLabelValues(playerIDStr, status).Set(float64(count))
		}
	}
}

// RecordContainerCompletion records a container reaching a terminal state.
func (c *ContainerMetricsCollector) RecordContainerCompletion(info ContainerInfo) {
	playerID := strconv.Itoa(info.PlayerID())
	containerType := string(info.Type())
	status := string(info.Status())

	c.containerTotal.WithLabelValues(playerID, containerType, status).Inc()

	if info.Status() == container.ContainerStatusCompleted ||
		info.Status() == container.ContainerStatusFailed {
		duration := info.RuntimeDuration().Seconds()
		c.containerDuration.WithLabelValues(playerID, containerType).Observe(duration)
	}
}

// RecordContainerRestart records a supervisor restart.
func (c *ContainerMetricsCollector) RecordContainerRestart(info ContainerInfo) {
	playerID := strconv.Itoa(info.PlayerID())
	containerType := string(info.Type())

	c.containerRestarts.WithLabelValues(playerID, containerType).Inc()
}

// RecordContainerIteration records one completed iteration.
func (c *ContainerMetricsCollector) RecordContainerIteration(info ContainerInfo) {
	playerID := strconv.Itoa(info.PlayerID())
	containerType := string(info.Type())

	c.containerIterations.WithLabelValues(playerID, containerType).Inc()
}
