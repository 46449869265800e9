package inventory

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// MonthlyReport aggregates one calendar month of transactions.
type MonthlyReport struct {
	Year      int
	Month     time.Month
	Sales     decimal.Decimal // sum of sale totals
	Purchases decimal.Decimal // sum of purchase totals
	Net       decimal.Decimal // Sales - Purchases

	// FinishedGoodsSold is the quantity of finished goods sold.
	FinishedGoodsSold decimal.Decimal
	// FabricMeters is the quantity of fabric sold.
	FabricMeters decimal.Decimal

	Count int
}

// Key returns "YYYY-MM".
func (r MonthlyReport) Key() string {
	return time.Date(r.Year, r.Month, 1, 0, 0, 0, 0, time.UTC).Format("2006-01")
}

// BuildMonthlyReports groups txs by the month of their date, oldest first.
// products is used to classify sold quantities; unknown products only count
// towards the money totals.
func BuildMonthlyReports(txs []Transaction, products map[ProductID]Product) []MonthlyReport {
	type ym struct {
		y int
		m time.Month
	}
	byMonth := make(map[ym]*MonthlyReport)
	for _, tx := range txs {
		d := tx.Date.UTC()
		k := ym{d.Year(), d.Month()}
		r, ok := byMonth[k]
		if !ok {
			r = &MonthlyReport{Year: k.y, Month: k.m}
			byMonth[k] = r
		}
		r.Count++
		switch tx.Kind {
		case KindSale:
			r.Sales = r.Sales.Add(tx.Total)
			switch products[tx.ProductID].Category {
			case CategoryFinishedGood:
				r.FinishedGoodsSold = r.FinishedGoodsSold.Add(tx.Quantity)
			case CategoryFabric:
				r.FabricMeters = r.FabricMeters.Add(tx.Quantity)
			}
		case KindPurchase:
			r.Purchases = r.Purchases.Add(tx.Total)
		}
	}

	out := make([]MonthlyReport, 0, len(byMonth))
	for _, r := range byMonth {
		r.Net = r.Sales.Sub(r.Purchases)
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year < out[j].Year
		}
		return out[i].Month < out[j].Month
	})
	return out
}

// LowStock returns stock-tracked products whose stock is below threshold,
// lowest first. Finished goods are skipped: their counter is never moved.
func LowStock(products []Product, threshold decimal.Decimal) []Product {
	var out []Product
	for _, p := range products {
		if p.Category.IsStockTracked() && p.Stock.LessThan(threshold) {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Stock.LessThan(out[j].Stock)
	})
	return out
}
