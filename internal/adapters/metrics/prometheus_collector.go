package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/orbitalmachines/astrogator/internal/domain/navigation"
	"github.com/orbitalmachines/astrogator/internal/domain/shared"
)

const (
	namespace = "astrogator"
	subsystem = "daemon"
)

var (
	// Registry is the global Prometheus registry. Nil means metrics are
	// disabled and every recording helper is a no-op.
	Registry *prometheus.Registry

	globalContainerCollector  ContainerMetricsRecorder
	globalNavigationCollector NavigationMetricsRecorder
	globalFinancialCollector  FinancialMetricsRecorder
	globalMarketCollector     MarketMetricsRecorder
)

// ContainerMetricsRecorder records container lifecycle events.
type ContainerMetricsRecorder interface {
	RecordContainerCompletion(containerInfo ContainerInfo)
	RecordContainerRestart(containerInfo ContainerInfo)
	RecordContainerIteration(containerInfo ContainerInfo)
}

// NavigationMetricsRecorder records route execution and fuel events.
type NavigationMetricsRecorder interface {
	RecordRouteCompletion(playerID int, status navigation.RouteStatus, duration float64, distance int, fuelConsumed int)
	RecordStepCompletion(playerID int, distance int, fuelRequired int)
	RecordFuelPurchase(playerID int, waypoint string, units int)
	RecordFuelConsumption(playerID int, flightMode shared.FlightMode, units int)
}

// FinancialMetricsRecorder records ledger and trade events.
type FinancialMetricsRecorder interface {
	RecordTransaction(playerID int, agentSymbol string, transactionType string, category string, amount int, creditsBalance int)
	RecordTrade(playerID int, goodSymbol string, buyPrice int, sellPrice int, quantity int)
}

// MarketMetricsRecorder records market scan events.
type MarketMetricsRecorder interface {
	RecordScan(playerID int, waypointSymbol string, duration time.Duration, err error)
	RecordPriceObservation(playerID int, goodSymbol string, purchasePrice, sellPrice int)
}

// InitRegistry initializes the Prometheus registry. Call once at startup when
// metrics are enabled.
func InitRegistry() {
	Registry = prometheus.NewRegistry()
}

// GetRegistry returns the global registry, nil when metrics are disabled.
func GetRegistry() *prometheus.Registry {
	return Registry
}

// IsEnabled reports whether metrics collection is on.
func IsEnabled() bool {
	return Registry != nil
}

func SetGlobalContainerCollector(collector ContainerMetricsRecorder) {
	globalContainerCollector = collector
}

func SetGlobalNavigationCollector(collector NavigationMetricsRecorder) {
	globalNavigationCollector = collector
}

func SetGlobalFinancialCollector(collector FinancialMetricsRecorder) {
	globalFinancialCollector = collector
}

func SetGlobalMarketCollector(collector MarketMetricsRecorder) {
	globalMarketCollector = collector
}

// GetGlobalMarketCollector returns the market recorder, nil when disabled.
func GetGlobalMarketCollector() MarketMetricsRecorder {
	return globalMarketCollector
}

// Package-level recording helpers. Application code calls these without
// caring whether metrics are wired; a nil collector drops the event.

func RecordContainerCompletion(containerInfo ContainerInfo) {
	if globalContainerCollector != nil {
		globalContainerCollector.RecordContainerCompletion(containerInfo)
	}
}

func RecordContainerRestart(containerInfo ContainerInfo) {
	if globalContainerCollector != nil {
		globalContainerCollector.RecordContainerRestart(containerInfo)
	}
}

func RecordContainerIteration(containerInfo ContainerInfo) {
	if globalContainerCollector != nil {
		globalContainerCollector.RecordContainerIteration(containerInfo)
	}
}

func RecordRouteCompletion(playerID int, status navigation.RouteStatus, duration float64, distance int, fuelConsumed int) {
	if globalNavigationCollector != nil {
		globalNavigationCollector.RecordRouteCompletion(playerID, status, duration, distance, fuelConsumed)
	}
}

func RecordStepCompletion(playerID int, distance int, fuelRequired int) {
	if globalNavigationCollector != nil {
		globalNavigationCollector.RecordStepCompletion(playerID, distance, fuelRequired)
	}
}

func RecordFuelPurchase(playerID int, waypoint string, units int) {
	if globalNavigationCollector != nil {
		globalNavigationCollector.RecordFuelPurchase(playerID, waypoint, units)
	}
}

func RecordFuelConsumption(playerID int, flightMode shared.FlightMode, units int) {
	if globalNavigationCollector != nil {
		globalNavigationCollector.RecordFuelConsumption(playerID, flightMode, units)
	}
}

func RecordTransaction(playerID int, agentSymbol string, transactionType string, category string, amount int, creditsBalance int) {
	if globalFinancialCollector != nil {
		globalFinancialCollector.RecordTransaction(playerID, agentSymbol, transactionType, category, amount, creditsBalance)
	}
}

func RecordTrade(playerID int, goodSymbol string, buyPrice int, sellPrice int, quantity int) {
	if globalFinancialCollector != nil {
		globalFinancialCollector.RecordTrade(playerID, goodSymbol, buyPrice, sellPrice, quantity)
	}
}

func RecordMarketScan(playerID int, waypointSymbol string, duration time.Duration, err error) {
	if globalMarketCollector != nil {
		globalMarketCollector.RecordScan(playerID, waypointSymbol, duration, err)
	}
}

func RecordPriceObservation(playerID int, goodSymbol string, purchasePrice, sellPrice int) {
	if globalMarketCollector != nil {
		globalMarketCollector.RecordPriceObservation(playerID, goodSymbol, purchasePrice, sellPrice)
	}
}
