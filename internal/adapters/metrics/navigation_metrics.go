package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/orbitalmachines/astrogator/internal/domain/navigation"
	"github.com/orbitalmachines/astrogator/internal/domain/shared"
)

// NavigationMetricsCollector tracks route execution and fuel economy.
type NavigationMetricsCollector struct {
	routesTotal           *prometheus.CounterVec
	routeDuration         *prometheus.HistogramVec
	routeDistanceTraveled *prometheus.CounterVec
	routeFuelConsumed     *prometheus.CounterVec
	routeStepsCompleted   *prometheus.CounterVec

	fuelPurchased  *prometheus.CounterVec
	fuelConsumed   *prometheus.CounterVec
	fuelEfficiency *prometheus.HistogramVec
}

func NewNavigationMetricsCollector() *NavigationMetricsCollector {
	return &NavigationMetricsCollector{
		routesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "routes_total",
				Help:      "Total number of route lifecycle events by status",
			},
			[]string{"player_id", "status"},
		),

		routeDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "route_duration_seconds",
				Help:      "Route execution duration distribution",
				Buckets:   []float64{10, 30, 60, 120, 300, 600, 1200, 1800},
			},
			[]string{"player_id", "status"},
		),

		routeDistanceTraveled: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "route_distance_traveled_total",
				Help:      "Total distance traveled across all routes",
			},
			[]string{"player_id"},
		),

		routeFuelConsumed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "route_fuel_consumed_total",
				Help:      "Total fuel consumed by route execution",
			},
			[]string{"player_id"},
		),

		routeStepsCompleted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "route_steps_completed_total",
				Help:      "Total number of route steps completed",
			},
			[]string{"player_id"},
		),

		fuelPurchased: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "fuel_purchased_units_total",
				Help:      "Total units of fuel purchased",
			},
			[]string{"player_id", "waypoint"},
		),

		fuelConsumed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "fuel_consumed_units_total",
				Help:      "Total units of fuel consumed by flight mode",
			},
			[]string{"player_id", "flight_mode"},
		),

		fuelEfficiency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "fuel_efficiency_ratio",
				Help:      "Fuel efficiency distribution (distance per fuel unit)",
				Buckets:   []float64{0.1, 0.5, 1.0, 2.0, 5.0, 10.0, 20.0},
			},
			[]string{"player_id"},
		),
	}
}

// Register registers all navigation metrics with the Prometheus registry.
func (c *NavigationMetricsCollector) Register() error {
	if Registry == nil {
		return nil // Metrics not enabled
	}

	collectors := []prometheus.Collector{
		c.routesTotal,
		c.routeDuration,
		c.routeDistanceTraveled,
		c.routeFuelConsumed,
		c.routeStepsCompleted,
		c.fuelPurchased,
		c.fuelConsumed,
		c.fuelEfficiency,
	}

	for _, collector := range collectors {
		if err := Registry.Register(collector); err != nil {
			return err
		}
	}

	return nil
}

// RecordRouteCompletion records a route reaching a terminal status.
func (c *NavigationMetricsCollector) RecordRouteCompletion(
	playerID int,
	status navigation.RouteStatus,
	duration float64,
	distance int,
	fuelConsumed int,
) {
	playerIDStr := strconv.Itoa(playerID)
	statusStr := string(status)

	c.routesTotal.WithLabelValues(playerIDStr, statusStr).Inc()

	if status == navigation.RouteStatusCompleted || status == navigation.RouteStatusFailed {
		c.routeDuration.WithLabelValues(playerIDStr, statusStr).Observe(duration)
	}

	if status == navigation.RouteStatusCompleted {
		c.routeDistanceTraveled.WithLabelValues(playerIDStr).Add(float64(distance))
		c.routeFuelConsumed.WithLabelValues(playerIDStr).Add(float64(fuelConsumed))
	}
}

// RecordStepCompletion records one finished route step.
func (c *NavigationMetricsCollector) RecordStepCompletion(playerID int, distance int, fuelRequired int) {
	playerIDStr := strconv.Itoa(playerID)

	c.routeStepsCompleted.WithLabelValues(playerIDStr).Inc()

	if fuelRequired > 0 {
		efficiency := float64(distance) / float64(fuelRequired)
		c.fuelEfficiency.WithLabelValues(playerIDStr).Observe(efficiency)
	}
}

// RecordFuelPurchase records a fuel purchase.
func (c *NavigationMetricsCollector) RecordFuelPurchase(playerID int, waypoint string, units int) {
	playerIDStr := strconv.Itoa(playerID)

	c.fuelPurchased.WithLabelValues(playerIDStr, waypoint).Add(float64(units))
}

// RecordFuelConsumption records fuel burned in a given flight mode.
func (c *NavigationMetricsCollector) RecordFuelConsumption(playerID int, flightMode shared.FlightMode, units int) {
	playerIDStr := strconv.Itoa(playerID)
	flightModeStr := flightMode.Name()

	c.fuelConsumed.WithLabelValues(playerIDStr, flightModeStr).Add(float64(units))
}
