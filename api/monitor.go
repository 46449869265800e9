/*
monitor.go - Periodic low-stock monitor

PURPOSE:
  Periodically lists the catalog and reports stocked products that fell
  below the low-stock threshold: a warning log line per product that newly
  crossed it, and a gauge with the current count.

DESIGN:
  - Runs a background goroutine with a configurable check interval
  - Only reads the catalog; never writes stock
  - Remembers which products were low at the previous check so a product
    is reported once per crossing, not on every tick

CONFIGURATION:
  - CheckInterval: How often to check (LOW_STOCK_CHECK_INTERVAL, 0 disables)
  - Threshold:     LOW_STOCK_THRESHOLD

USAGE:
  monitor := NewLowStockMonitor(store, threshold, logger, m)
  monitor.Start()
  // ... later
  monitor.Stop()

SEE ALSO:
  - handlers.go: Dashboard (same low-stock rule, on demand)
  - inventory/report.go: LowStock
*/
package api

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/stock-engine/inventory"
)

// LowStockGauge receives the number of low products after each check.
// *metrics.Metrics implements it.
type LowStockGauge interface {
	SetLowStock(n int)
}

// LowStockMonitor checks stock levels in the background.
type LowStockMonitor struct {
	Catalog       inventory.Catalog
	Threshold     decimal.Decimal
	CheckInterval time.Duration
	Logger        *slog.Logger
	Gauge         LowStockGauge

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex

	checkMu sync.Mutex
	low     map[inventory.ProductID]bool
}

// NewLowStockMonitor creates a monitor with a five minute interval.
func NewLowStockMonitor(catalog inventory.Catalog, threshold decimal.Decimal, logger *slog.Logger, gauge LowStockGauge) *LowStockMonitor {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &LowStockMonitor{
		Catalog:       catalog,
		Threshold:     threshold,
		CheckInterval: 5 * time.Minute,
		Logger:        logger,
		Gauge:         gauge,
		low:           make(map[inventory.ProductID]bool),
	}
}

// Start begins periodic checks. A non-positive interval leaves it stopped.
func (m *LowStockMonitor) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.CheckInterval <= 0 {
		m.Logger.Info("low-stock monitor disabled")
		return
	}
	if m.ticker != nil {
		return
	}

	m.ticker = time.NewTicker(m.CheckInterval)
	m.stop = make(chan struct{})
	m.wg.Add(1)
	go m.run()

	m.Logger.Info("low-stock monitor started", "interval", m.CheckInterval, "threshold", m.Threshold.String())
}

// Stop stops the monitor and waits for a running check to finish.
func (m *LowStockMonitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ticker == nil {
		return
	}
	m.ticker.Stop()
	close(m.stop)
	m.wg.Wait()
	m.ticker = nil
	m.Logger.Info("low-stock monitor stopped")
}

func (m *LowStockMonitor) run() {
	defer m.wg.Done()

	// Run immediately on start
	m.Check(context.Background())

	for {
		select {
		case <-m.ticker.C:
			m.Check(context.Background())
		case <-m.stop:
			return
		}
	}
}

// Check runs one pass and returns the products currently below threshold.
func (m *LowStockMonitor) Check(ctx context.Context) []inventory.Product {
	m.checkMu.Lock()
	defer m.checkMu.Unlock()

	products, err := m.Catalog.ListProducts(ctx, inventory.ProductFilter{StockBelow: &m.Threshold})
	if err != nil {
		m.Logger.ErrorContext(ctx, "low-stock check failed", "error", err)
		return nil
	}
	low := inventory.LowStock(products, m.Threshold)

	current := make(map[inventory.ProductID]bool, len(low))
	for _, p := range low {
		current[p.ID] = true
		if !m.low[p.ID] {
			m.Logger.WarnContext(ctx, "product below stock threshold",
				"product_id", p.ID,
				"name", p.Name,
				"category", p.Category,
				"stock", p.Stock.String(),
			)
		}
	}
	m.low = current

	if m.Gauge != nil {
		m.Gauge.SetLowStock(len(low))
	}
	return low
}
