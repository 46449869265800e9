/*
Package inventory provides the stock reconciliation engine.

PURPOSE:
  Keeps every product's on-hand stock consistent with the recorded sale and
  purchase transactions. Creating a transaction applies its stock effect,
  editing one reverses the previous effect and applies the new one, and
  deleting one reverses it.

KEY CONCEPTS IN THIS FILE (types.go):
  - Product:     A catalog item with a category and a stock counter
  - Category:    Closed set of product kinds (finished good, shell, fabric...)
  - Transaction: A sale or purchase of a quantity of one product
  - Client / Supplier: Counterparties referenced by transactions

REDIRECT RULE:
  Finished goods are not stock-tracked. A sale of a finished good consumes
  the stock of its shell (the frame the piece is built on). The shell is the
  product named by LinkedShellID or, for legacy rows, the shell product whose
  name matches the finished good's name. See resolver.go.

DESIGN PRINCIPLES:
  1. Precision: quantities and prices use decimal.Decimal (units or meters)
  2. Type Safety: distinct id types for products, transactions and parties
  3. Single Writer: stock only changes through the Engine

SEE ALSO:
  - engine.go: Create / Update / Delete reconciliation
  - resolver.go: Stock target resolution
  - store.go: Persistence contracts
*/
package inventory

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type ProductID string
type TransactionID string
type ClientID string
type SupplierID string

// =============================================================================
// CATEGORY - Closed enumeration of product kinds
// =============================================================================

type Category string

const (
	CategoryFinishedGood   Category = "finished_good"
	CategoryFabric         Category = "fabric"
	CategoryFoam           Category = "foam"
	CategoryHardwareSupply Category = "hardware_supply"
	CategoryShell          Category = "shell"
	CategoryWood           Category = "wood"
	CategoryFitting        Category = "fitting"
	CategoryAccessory      Category = "accessory"
)

// Categories lists every valid category in display order.
var Categories = []Category{
	CategoryFinishedGood,
	CategoryFabric,
	CategoryFoam,
	CategoryHardwareSupply,
	CategoryShell,
	CategoryWood,
	CategoryFitting,
	CategoryAccessory,
}

// legacyCategories maps the tags stored by the previous system.
var legacyCategories = map[string]Category{
	"mueble":     CategoryFinishedGood,
	"tela":       CategoryFabric,
	"espuma":     CategoryFoam,
	"suministro": CategoryHardwareSupply,
	"casco":      CategoryShell,
	"madera":     CategoryWood,
	"plicas":     CategoryFitting,
	"accesorio":  CategoryAccessory,
}

// ParseCategory accepts a category slug or a legacy tag.
func ParseCategory(s string) (Category, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	for _, c := range Categories {
		if string(c) == key {
			return c, nil
		}
	}
	if c, ok := legacyCategories[key]; ok {
		return c, nil
	}
	return "", fmt.Errorf("unknown product category %q", s)
}

func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// IsStockTracked reports whether products of this category carry their own stock.
// Finished goods consume the stock of their shell instead.
func (c Category) IsStockTracked() bool {
	return c != CategoryFinishedGood
}

// =============================================================================
// PRODUCT
// =============================================================================

// Product is a catalog item. Stock is a passive counter: it is written only by
// the Engine's apply step (and set once, as opening stock, at creation).
type Product struct {
	ID          ProductID
	Category    Category
	Name        string
	Description string
	UnitPrice   decimal.Decimal
	Stock       decimal.Decimal
	Attributes  map[string]any

	// LinkedShellID is the explicit shell for a finished good. Empty means
	// the legacy name match is used (when enabled).
	LinkedShellID ProductID

	// Version increases on every stock write (optimistic concurrency).
	Version int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsFinishedGood reports whether sales of p redirect to a shell.
func (p Product) IsFinishedGood() bool {
	return p.Category == CategoryFinishedGood
}

// =============================================================================
// TRANSACTION
// =============================================================================

// Kind distinguishes sales from purchases.
type Kind string

const (
	KindSale     Kind = "sale"
	KindPurchase Kind = "purchase"
)

func (k Kind) Valid() bool {
	return k == KindSale || k == KindPurchase
}

// Transaction records one sale or purchase. Its Quantity and Kind are always
// reflected, net, in exactly one product's stock (its own product or the
// redirect target).
type Transaction struct {
	ID         TransactionID
	Kind       Kind
	ProductID  ProductID
	ClientID   ClientID   // sale only
	SupplierID SupplierID // purchase only
	Quantity   decimal.Decimal
	UnitPrice  decimal.Decimal
	Total      decimal.Decimal
	Date       time.Time
	Notes      string
	CreatedAt  time.Time

	// StockProductID is the product whose counter the engine moved when it
	// last applied this transaction. Reversals go back to it even if the
	// finished good has been relinked since. Empty on rows written before
	// targets were recorded; those resolve again.
	StockProductID ProductID
}

// TransactionInput is the payload for creating a transaction.
type TransactionInput struct {
	Kind       Kind            `validate:"required,oneof=sale purchase"`
	ProductID  ProductID       `validate:"required"`
	ClientID   ClientID        `validate:"required_if=Kind sale,excluded_if=Kind purchase"`
	SupplierID SupplierID      `validate:"required_if=Kind purchase,excluded_if=Kind sale"`
	Quantity   decimal.Decimal `validate:"dgt0"`
	UnitPrice  decimal.Decimal `validate:"dgte0"`
	Date       time.Time
	Notes      string `validate:"max=2000"`
}

// TransactionPatch carries the fields to change on an existing transaction.
// Nil fields keep their previous value.
type TransactionPatch struct {
	Kind       *Kind
	ProductID  *ProductID
	ClientID   *ClientID
	SupplierID *SupplierID
	Quantity   *decimal.Decimal
	UnitPrice  *decimal.Decimal
	Date       *time.Time
	Notes      *string
}

// Apply returns tx with the patch applied and the total recomputed.
// Switching kind clears the counterparty that no longer applies unless the
// patch sets it explicitly.
func (p TransactionPatch) Apply(tx Transaction) Transaction {
	out := tx
	if p.Kind != nil && *p.Kind != tx.Kind {
		out.Kind = *p.Kind
		if out.Kind == KindSale && p.SupplierID == nil {
			out.SupplierID = ""
		}
		if out.Kind == KindPurchase && p.ClientID == nil {
			out.ClientID = ""
		}
	}
	if p.ProductID != nil {
		out.ProductID = *p.ProductID
	}
	if p.ClientID != nil {
		out.ClientID = *p.ClientID
	}
	if p.SupplierID != nil {
		out.SupplierID = *p.SupplierID
	}
	if p.Quantity != nil {
		out.Quantity = *p.Quantity
	}
	if p.UnitPrice != nil {
		out.UnitPrice = *p.UnitPrice
	}
	if p.Date != nil {
		out.Date = *p.Date
	}
	if p.Notes != nil {
		out.Notes = *p.Notes
	}
	out.Total = out.Quantity.Mul(out.UnitPrice)
	return out
}

func (tx Transaction) input() TransactionInput {
	return TransactionInput{
		Kind:       tx.Kind,
		ProductID:  tx.ProductID,
		ClientID:   tx.ClientID,
		SupplierID: tx.SupplierID,
		Quantity:   tx.Quantity,
		UnitPrice:  tx.UnitPrice,
		Date:       tx.Date,
		Notes:      tx.Notes,
	}
}

// =============================================================================
// COUNTERPARTIES
// =============================================================================

type Client struct {
	ID        ClientID
	Name      string
	Contact   string
	Phone     string
	Email     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Supplier struct {
	ID        SupplierID
	Name      string
	Contact   string
	Phone     string
	Email     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// =============================================================================
// HELPERS
// =============================================================================

// DateOnly truncates t to midnight UTC.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ComposeNotes joins structured details ("Color: blue", "Size: 3\"") and the
// free-text notes the way the sale and purchase forms record them:
// "detail | detail - notes".
func ComposeNotes(details []string, notes string) string {
	var parts []string
	for _, d := range details {
		if d = strings.TrimSpace(d); d != "" {
			parts = append(parts, d)
		}
	}
	notes = strings.TrimSpace(notes)
	if len(parts) == 0 {
		return notes
	}
	joined := strings.Join(parts, " | ")
	if notes != "" {
		joined += " - " + notes
	}
	return joined
}
