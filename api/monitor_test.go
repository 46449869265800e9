package api

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/stock-engine/inventory"
	memstore "github.com/warp/stock-engine/inventory/store"
)

type gaugeRecorder struct{ values []int }

func (g *gaugeRecorder) SetLowStock(n int) { g.values = append(g.values, n) }

func TestLowStockMonitor_ReportsEachCrossingOnce(t *testing.T) {
	// GIVEN: One low fabric, one healthy foam and a finished good at zero
	ctx := t.Context()
	store := memstore.NewMemory()
	for _, p := range []inventory.Product{
		{ID: "lino", Category: inventory.CategoryFabric, Name: "Lino", Stock: decimal.NewFromInt(2)},
		{ID: "foam", Category: inventory.CategoryFoam, Name: "Foam", Stock: decimal.NewFromInt(40)},
		{ID: "sofa", Category: inventory.CategoryFinishedGood, Name: "Sofa"},
	} {
		_, err := store.CreateProduct(ctx, p)
		require.NoError(t, err)
	}

	var logs bytes.Buffer
	gauge := &gaugeRecorder{}
	monitor := NewLowStockMonitor(store, decimal.NewFromInt(5), slog.New(slog.NewTextHandler(&logs, nil)), gauge)

	// WHEN: Checking twice
	low := monitor.Check(ctx)
	monitor.Check(ctx)

	// THEN: Only the fabric is low, and it is logged once
	require.Len(t, low, 1)
	assert.Equal(t, inventory.ProductID("lino"), low[0].ID)
	assert.Equal(t, []int{1, 1}, gauge.values)
	assert.Equal(t, 1, strings.Count(logs.String(), "product below stock threshold"))
}

func TestLowStockMonitor_StartStop(t *testing.T) {
	store := memstore.NewMemory()
	gauge := &gaugeRecorder{}
	monitor := NewLowStockMonitor(store, decimal.NewFromInt(5), nil, gauge)
	monitor.CheckInterval = time.Hour

	monitor.Start()
	monitor.Stop()
	monitor.Stop()

	// The first check runs as soon as the monitor starts.
	assert.Equal(t, []int{0}, gauge.values)

	disabled := NewLowStockMonitor(store, decimal.NewFromInt(5), nil, nil)
	disabled.CheckInterval = 0
	disabled.Start()
	disabled.Stop()
}
