package metrics

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// MarketMetricsCollector tracks market scan activity and the prices scouts
// observe. Scan and price metrics are recorded at scan time by the market
// scanner; coverage gauges are refreshed from the market_data table on a
// fixed interval so they survive daemon restarts.
type MarketMetricsCollector struct {
	db  *gorm.DB
	log zerolog.Logger

	scansTotal        *prometheus.CounterVec
	scanDuration      *prometheus.HistogramVec
	goodPurchasePrice *prometheus.GaugeVec
	goodSellPrice     *prometheus.GaugeVec
	goodSpread        *prometheus.HistogramVec

	coverageTotal *prometheus.GaugeVec
	coverageFresh *prometheus.GaugeVec
	oldestDataAge *prometheus.GaugeVec

	pollInterval    time.Duration
	freshThresholds []time.Duration

	ctx        context.Context
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

// NewMarketMetricsCollector creates the collector. db may be nil, in which
// case coverage polling is skipped and only scan-time metrics are recorded.
func NewMarketMetricsCollector(db *gorm.DB, log zerolog.Logger) *MarketMetricsCollector {
	return &MarketMetricsCollector{
		db:  db,
		log: log.With().Str("component", "market_metrics").Logger(),

		scansTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "market_scans_total",
				Help:      "Total number of market scans attempted",
			},
			[]string{"player_id", "waypoint_symbol", "status"},
		),

		scanDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "market_scan_duration_seconds",
				Help:      "Duration of market scan operations",
				Buckets:   []float64{0.5, 1.0, 1.5, 2.0, 3.0, 5.0, 10.0},
			},
			[]string{"player_id"},
		),

		goodPurchasePrice: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "market_good_purchase_price",
				Help:      "Last observed purchase price per good",
			},
			[]string{"player_id", "good_symbol"},
		),

		goodSellPrice: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "market_good_sell_price",
				Help:      "Last observed sell price per good",
			},
			[]string{"player_id", "good_symbol"},
		),

		goodSpread: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "market_good_spread",
				Help:      "Distribution of observed spreads (sellPrice - purchasePrice)",
				Buckets:   []float64{10, 50, 100, 500, 1000, 5000, 10000},
			},
			[]string{"good_symbol"},
		),

		coverageTotal: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "market_coverage_total",
				Help:      "Number of marketplaces with stored price data",
			},
			[]string{"player_id"},
		),

		coverageFresh: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "market_coverage_fresh",
				Help:      "Number of marketplaces with data fresher than threshold",
			},
			[]string{"player_id", "age_threshold"},
		),

		oldestDataAge: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "market_oldest_data_age_seconds",
				Help:      "Age of the stalest market snapshot per player",
			},
			[]string{"player_id"},
		),

		pollInterval:    60 * time.Second,
		freshThresholds: []time.Duration{5 * time.Minute, 15 * time.Minute, time.Hour},
	}
}

// Register registers all market metrics with the Prometheus registry.
func (c *MarketMetricsCollector) Register() error {
	if Registry == nil {
		return nil
	}

	collectors := []prometheus.Collector{
		c.scansTotal,
		c.scanDuration,
		c.goodPurchasePrice,
		c.goodSellPrice,
		c.goodSpread,
		c.coverageTotal,
		c.coverageFresh,
		c.oldestDataAge,
	}

	for _, collector := range collectors {
		if err := Registry.Register(collector); err != nil {
			return err
		}
	}

	return nil
}

// RecordScan records a completed market scan attempt.
func (c *MarketMetricsCollector) RecordScan(playerID int, waypointSymbol string, duration time.Duration, err error) {
	player := strconv.Itoa(playerID)
	status := "success"
	if err != nil {
		status = "error"
	}

	c.scansTotal.WithLabelValues(player, waypointSymbol, status).Inc()
	c.scanDuration.WithLabelValues(player).Observe(duration.Seconds())
}

// RecordPriceObservation records the prices seen for one good during a scan.
func (c *MarketMetricsCollector) RecordPriceObservation(playerID int, goodSymbol string, purchasePrice, sellPrice int) {
	player := strconv.Itoa(playerID)

	c.goodPurchasePrice.WithLabelValues(player, goodSymbol).Set(float64(purchasePrice))
	c.goodSellPrice.WithLabelValues(player, goodSymbol).Set(float64(sellPrice))
	c.goodSpread.WithLabelValues(goodSymbol).Observe(float64(sellPrice - purchasePrice))
}

// Start begins the coverage polling goroutine. No-op when the collector has
// no database handle.
func (c *MarketMetricsCollector) Start(ctx context.Context) {
	if c.db == nil {
		return
	}

	c.ctx, c.cancelFunc = context.WithCancel(ctx)

	c.wg.Add(1)
	go c.pollCoverage()
}

// Stop gracefully stops the coverage poller.
func (c *MarketMetricsCollector) Stop() {
	if c.cancelFunc != nil {
		c.cancelFunc()
	}
	c.wg.Wait()
}

func (c *MarketMetricsCollector) pollCoverage() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	c.updateCoverage()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			c.updateCoverage()
		}
	}
}

type marketCoverageRow struct {
	PlayerID int
	Total    int
}

type marketAgeRow struct {
	PlayerID int
	Oldest   time.Time
}

// updateCoverage refreshes the coverage gauges from the market_data table.
// Plain SQL only, so it works on both sqlite and postgres.
func (c *MarketMetricsCollector) updateCoverage() {
	now := time.Now().UTC()

	var totals []marketCoverageRow
	err := c.db.Raw(
		`SELECT player_id, COUNT(DISTINCT waypoint_symbol) AS total
		 FROM market_data GROUP BY player_id`,
	).Scan(&totals).Error
	if err != nil {
		c.log.Warn().Err(err).Msg("failed to query market coverage")
		return
	}

	for _, row := range totals {
		c.coverageTotal.WithLabelValues(strconv.Itoa(row.PlayerID)).Set(float64(row.Total))
	}

	for _, threshold := range c.freshThresholds {
		cutoff := now.Add(-threshold)

		var fresh []marketCoverageRow
		err := c.db.Raw(
			`SELECT player_id, COUNT(DISTINCT waypoint_symbol) AS total
			 FROM market_data WHERE last_updated > ? GROUP BY player_id`,
			cutoff,
		).Scan(&fresh).Error
		if err != nil {
			c.log.Warn().Err(err).Msg("failed to query fresh market coverage")
			continue
		}

		label := threshold.String()
		for _, row := range fresh {
			c.coverageFresh.WithLabelValues(strconv.Itoa(row.PlayerID), label).Set(float64(row.Total))
		}
	}

	var ages []marketAgeRow
	err = c.db.Raw(
		`SELECT player_id, MIN(last_updated) AS oldest
		 FROM market_data GROUP BY player_id`,
	).Scan(&ages).Error
	if err != nil {
		c.log.Warn().Err(err).Msg("failed to query market data age")
		return
	}

	for _, row := range ages {
		age := now.Sub(row.Oldest).Seconds()
		c.oldestDataAge.WithLabelValues(strconv.Itoa(row.PlayerID)).Set(age)
	}
}
