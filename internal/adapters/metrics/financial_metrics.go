package metrics

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	ledgerQueries "github.com/orbitalmachines/astrogator/internal/application/ledger/queries"
	"github.com/orbitalmachines/astrogator/internal/application/mediator"
	playerQueries "github.com/orbitalmachines/astrogator/internal/application/player/queries"
)

// FinancialMetricsCollector tracks credits, transactions, and profit/loss.
// Transactions are recorded as they happen; P&L gauges are refreshed by a
// polling goroutine that queries the ledger for every registered player.
type FinancialMetricsCollector struct {
	mediator mediator.Mediator
	log      zerolog.Logger

	creditsBalance *prometheus.GaugeVec

	transactionsTotal *prometheus.CounterVec
	transactionAmount *prometheus.HistogramVec

	totalRevenue  *prometheus.GaugeVec
	totalExpenses *prometheus.GaugeVec
	netProfit     *prometheus.GaugeVec

	tradeProfitPerUnit *prometheus.HistogramVec
	tradeMarginPercent *prometheus.HistogramVec

	ctx        context.Context
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

func NewFinancialMetricsCollector(med mediator.Mediator, log zerolog.Logger) *FinancialMetricsCollector {
	return &FinancialMetricsCollector{
		mediator: med,
		log:      log,

		creditsBalance: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "player_credits_balance",
				Help:      "Current credits balance for each player",
			},
			[]string{"player_id", "agent"},
		),

		transactionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "transactions_total",
				Help:      "Total number of transactions by type and category",
			},
			[]string{"player_id", "type", "category"},
		),

		transactionAmount: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "transaction_amount",
				Help:      "Transaction amount distribution",
				Buckets:   []float64{100, 500, 1000, 5000, 10000, 50000, 100000, 500000},
			},
			[]string{"player_id", "type", "category"},
		),

		totalRevenue: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "total_revenue",
				Help:      "Total revenue by category",
			},
			[]string{"player_id", "category"},
		),

		totalExpenses: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "total_expenses",
				Help:      "Total expenses by category",
			},
			[]string{"player_id", "category"},
		),

		netProfit: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "net_profit",
				Help:      "Net profit (revenue - expenses)",
			},
			[]string{"player_id"},
		),

		tradeProfitPerUnit: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "trade_profit_per_unit",
				Help:      "Profit per unit from trades",
				Buckets:   []float64{1, 5, 10, 50, 100, 500, 1000},
			},
			[]string{"player_id", "good_symbol"},
		),

		tradeMarginPercent: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "trade_margin_percent",
				Help:      "Trade margin percentage ((sell-buy)/buy * 100)",
				Buckets:   []float64{5, 10, 25, 50, 75, 100, 150, 200},
			},
			[]string{"player_id", "good_symbol"},
		),
	}
}

// Register registers all financial metrics with the Prometheus registry.
func (c *FinancialMetricsCollector) Register() error {
	if Registry == nil {
		return nil // Metrics not enabled
	}

	collectors := []prometheus.Collector{
		c.creditsBalance,
		c.transactionsTotal,
		c.transactionAmount,
		c.totalRevenue,
		c.totalExpenses,
		c.netProfit,
		c.tradeProfitPerUnit,
		c.tradeMarginPercent,
	}

	for _, collector := range collectors {
		if err := Registry.Register(collector); err != nil {
			return err
		}
	}

	return nil
}

// Start begins the P&L polling goroutine.
func (c *FinancialMetricsCollector) Start(ctx context.Context) {
	c.ctx, c.cancelFunc = context.WithCancel(ctx)

	c.wg.Add(1)
	go c.pollProfitLoss(60 * time.Second)
}

// Stop cancels polling and waits for the goroutine to exit.
func (c *FinancialMetricsCollector) Stop() {
	if c.cancelFunc != nil {
		c.cancelFunc()
	}
	c.wg.Wait()
}

func (c *FinancialMetricsCollector) pollProfitLoss(interval time.Duration) {
	defer c.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	c.updateProfitLoss()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			c.updateProfitLoss()
		}
	}
}

// updateProfitLoss refreshes the P&L and balance gauges for every registered
// player.
func (c *FinancialMetricsCollector) updateProfitLoss() {
	if c.mediator == nil {
		return
	}

	resp, err := c.mediator.Send(c.ctx, &playerQueries.ListPlayersQuery{})
	if err != nil {
		c.log.Warn().Err(err).Msg("failed to list players for financial metrics")
		return
	}
	listResp, ok := resp.(*playerQueries.ListPlayersResponse)
	if !ok {
		c.log.Warn().Str("type", typeName(resp)).Msg("unexpected response type for player list")
		return
	}

	for _, p := range listResp.Players {
		playerID := p.ID.Value()
		playerIDStr := strconv.Itoa(playerID)

		c.creditsBalance.WithLabelValues(playerIDStr, p.AgentSymbol).Set(float64(p.Credits))

		plResp, err := c.mediator.Send(c.ctx, &ledgerQueries.GetProfitLossQuery{
			PlayerID: &playerID,
		})
		if err != nil {
			c.log.Warn().Err(err).Int("player_id", playerID).Msg("failed to fetch profit/loss")
			continue
		}

		pl, ok := plResp.(*ledgerQueries.GetProfitLossResponse)
		if !ok {
			c.log.Warn().Str("type", typeName(plResp)).Msg("unexpected response type for profit/loss")
			continue
		}

		for category, amount := range pl.RevenueBreakdown {
			c.totalRevenue.WithLabelValues(playerIDStr, category).Set(float64(amount))
		}
		for category, amount := range pl.ExpenseBreakdown {
			c.totalExpenses.WithLabelValues(playerIDStr, category).Set(float64(amount))
		}
		c.netProfit.WithLabelValues(playerIDStr).Set(float64(pl.NetProfit))
	}
}

// RecordTransaction records a ledger entry as it is written.
func (c *FinancialMetricsCollector) RecordTransaction(
	playerID int,
	agentSymbol string,
	transactionType string,
	category string,
	amount int,
	creditsBalance int,
) {
	playerIDStr := strconv.Itoa(playerID)

	c.creditsBalance.WithLabelValues(playerIDStr, agentSymbol).Set(float64(creditsBalance))
	c.transactionsTotal.WithLabelValues(playerIDStr, transactionType, category).Inc()

	absAmount := amount
	if absAmount < 0 {
		absAmount = -absAmount
	}
	c.transactionAmount.WithLabelValues(playerIDStr, transactionType, category).Observe(float64(absAmount))
}

// RecordTrade records realized buy/sell profitability.
func (c *FinancialMetricsCollector) RecordTrade(
	playerID int,
	goodSymbol string,
	buyPrice int,
	sellPrice int,
	quantity int,
) {
	if buyPrice <= 0 || sellPrice <= 0 || quantity <= 0 {
		return
	}

	playerIDStr := strconv.Itoa(playerID)

	profitPerUnit := sellPrice - buyPrice
	c.tradeProfitPerUnit.WithLabelValues(playerIDStr, goodSymbol).Observe(float64(profitPerUnit))

	marginPercent := float64(profitPerUnit) / float64(buyPrice) * 100
	c.tradeMarginPercent.WithLabelValues(playerIDStr, goodSymbol).Observe(marginPercent)
}

func typeName(v interface{}) string {
	if v == nil {
		return "nil"
	}
	return mediator.RequestName(v)
}
