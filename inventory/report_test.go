package inventory

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestBuildMonthlyReports(t *testing.T) {
	products := map[ProductID]Product{
		"sofa":   {ID: "sofa", Category: CategoryFinishedGood},
		"fabric": {ID: "fabric", Category: CategoryFabric},
		"foam":   {ID: "foam", Category: CategoryFoam},
	}
	day := func(m time.Month, d int) time.Time { return time.Date(2025, m, d, 0, 0, 0, 0, time.UTC) }
	txs := []Transaction{
		{Kind: KindSale, ProductID: "sofa", Quantity: dec("2"), Total: dec("900"), Date: day(time.March, 3)},
		{Kind: KindSale, ProductID: "fabric", Quantity: dec("4.5"), Total: dec("45"), Date: day(time.March, 20)},
		{Kind: KindPurchase, ProductID: "foam", Quantity: dec("10"), Total: dec("300"), Date: day(time.March, 21)},
		{Kind: KindSale, ProductID: "unknown", Quantity: dec("1"), Total: dec("5"), Date: day(time.February, 1)},
	}

	reports := BuildMonthlyReports(txs, products)

	require.Len(t, reports, 2)
	feb, mar := reports[0], reports[1]
	assert.Equal(t, "2025-02", feb.Key())
	assert.Equal(t, 1, feb.Count)
	assert.True(t, feb.Sales.Equal(dec("5")))
	assert.True(t, feb.FinishedGoodsSold.IsZero())

	assert.Equal(t, "2025-03", mar.Key())
	assert.Equal(t, 3, mar.Count)
	assert.True(t, mar.Sales.Equal(dec("945")), "sales %s", mar.Sales)
	assert.True(t, mar.Purchases.Equal(dec("300")))
	assert.True(t, mar.Net.Equal(dec("645")))
	assert.True(t, mar.FinishedGoodsSold.Equal(dec("2")))
	assert.True(t, mar.FabricMeters.Equal(dec("4.5")))
}

func TestLowStock(t *testing.T) {
	products := []Product{
		{ID: "a", Category: CategoryFabric, Stock: dec("4")},
		{ID: "b", Category: CategoryFoam, Stock: dec("12")},
		{ID: "c", Category: CategoryFinishedGood, Stock: dec("0")},
		{ID: "d", Category: CategoryShell, Stock: dec("-1")},
		{ID: "e", Category: CategoryWood, Stock: dec("5")},
	}

	low := LowStock(products, dec("5"))

	require.Len(t, low, 2)
	assert.Equal(t, ProductID("d"), low[0].ID)
	assert.Equal(t, ProductID("a"), low[1].ID)
}

func TestFilters(t *testing.T) {
	below := dec("5")
	f := ProductFilter{Category: CategoryFabric, StockBelow: &below, Name: "lino"}
	assert.True(t, f.MatchesProduct(Product{Category: CategoryFabric, Name: "Lino Azul", Stock: dec("2")}))
	assert.False(t, f.MatchesProduct(Product{Category: CategoryFabric, Name: "Lino Azul", Stock: dec("5")}))
	assert.False(t, f.MatchesProduct(Product{Category: CategoryFoam, Name: "Lino", Stock: dec("1")}))

	tf := TransactionFilter{
		Kind: KindSale,
		From: time.Date(2025, 3, 1, 15, 0, 0, 0, time.UTC),
		To:   time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC),
	}
	assert.True(t, tf.MatchesTransaction(Transaction{Kind: KindSale, Date: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)}))
	assert.True(t, tf.MatchesTransaction(Transaction{Kind: KindSale, Date: time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC)}))
	assert.False(t, tf.MatchesTransaction(Transaction{Kind: KindSale, Date: time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)}))
	assert.False(t, tf.MatchesTransaction(Transaction{Kind: KindPurchase, Date: time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC)}))
}
