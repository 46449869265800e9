/*
store.go - Persistence contracts for the reconciliation engine

PURPOSE:
  Defines the interface between the engine and the database. The engine is
  handed a store explicitly; there is no package-level connection.

KEY INTERFACES:
  EntityStore:      The minimal data-access contract the engine needs
  StockIncrementer: Optional store-side atomic increment of a stock counter
  TxStore:          Runs a multi-write sequence atomically
  Catalog:          Product / counterparty / history queries for callers
  Resetter:         Optional wipe used by demo scenarios

STOCK WRITES:
  Two ways to change a counter without lost updates:
  - UpdateProductStock(id, expectedVersion, newStock) is a compare-and-swap:
    it fails with ErrConcurrentModification when the row's version moved.
  - IncrementProductStock(id, delta) applies stock = stock + delta inside the
    store. Simple key-value stores may not offer it.

ERRORS:
  Implementations return ErrProductNotFound / ErrTransactionNotFound for
  missing rows and ErrConcurrentModification for lost optimistic races.
  Other failures are returned wrapped; the engine reports them as
  PersistenceError.

IMPLEMENTATIONS:
  - inventory/store/memory.go: In-memory (tests, dev)
  - store/sqlite: SQLite
  - store/postgres: PostgreSQL (pgx)
  - store/redisstore: Redis, compare-and-swap only

SEE ALSO:
  - engine.go: Uses these interfaces
*/
package inventory

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// ENTITY STORE - What the engine reads and writes
// =============================================================================

type EntityStore interface {
	GetProduct(ctx context.Context, id ProductID) (Product, error)

	// FindShellByName returns the shell product whose normalized name equals
	// the normalized name given. Returns ErrProductNotFound when none matches
	// and a *ShellResolutionError (ErrShellAmbiguous) when several do.
	FindShellByName(ctx context.Context, name string) (Product, error)

	// UpdateProductStock sets stock when the stored version equals
	// expectedVersion, and bumps the version.
	UpdateProductStock(ctx context.Context, id ProductID, expectedVersion int64, newStock decimal.Decimal) error

	GetTransaction(ctx context.Context, id TransactionID) (Transaction, error)
	InsertTransaction(ctx context.Context, tx Transaction) (TransactionID, error)
	UpdateTransaction(ctx context.Context, tx Transaction) error
	DeleteTransaction(ctx context.Context, id TransactionID) error
}

// StockIncrementer is implemented by stores that evaluate stock = stock + delta
// themselves. Returns the new stock.
type StockIncrementer interface {
	IncrementProductStock(ctx context.Context, id ProductID, delta decimal.Decimal) (decimal.Decimal, error)
}

// TxStore wraps EntityStore with transaction support.
// If fn returns an error, every write made through the EntityStore handed
// to fn is rolled back.
type TxStore interface {
	EntityStore
	WithTx(ctx context.Context, fn func(EntityStore) error) error
}

// =============================================================================
// CATALOG - Queries and non-stock writes used by callers
// =============================================================================

type ProductFilter struct {
	Category   Category
	StockBelow *decimal.Decimal
	Name       string // case-insensitive substring
}

type TransactionFilter struct {
	Kind      Kind
	ProductID ProductID
	From      time.Time // inclusive, zero = unbounded
	To        time.Time // inclusive, zero = unbounded
	Limit     int       // 0 = no limit; newest first when set
}

type Catalog interface {
	// CreateProduct stores a new product. Stock is the opening stock.
	CreateProduct(ctx context.Context, p Product) (Product, error)
	ListProducts(ctx context.Context, filter ProductFilter) ([]Product, error)
	SetLinkedShell(ctx context.Context, id ProductID, shellID ProductID) error

	CreateClient(ctx context.Context, c Client) (Client, error)
	GetClient(ctx context.Context, id ClientID) (Client, error)
	ListClients(ctx context.Context) ([]Client, error)

	CreateSupplier(ctx context.Context, s Supplier) (Supplier, error)
	GetSupplier(ctx context.Context, id SupplierID) (Supplier, error)
	ListSuppliers(ctx context.Context) ([]Supplier, error)

	// ListTransactions returns matching transactions ordered by date, then
	// creation time, newest first.
	ListTransactions(ctx context.Context, filter TransactionFilter) ([]Transaction, error)
}

// Store is everything a full backend provides.
type Store interface {
	TxStore
	Catalog
}

// Resetter is implemented by stores that can be wiped (demo scenarios).
type Resetter interface {
	Reset(ctx context.Context) error
}

// MatchesProduct reports whether p passes f. Shared by stores that filter in Go.
func (f ProductFilter) MatchesProduct(p Product) bool {
	if f.Category != "" && p.Category != f.Category {
		return false
	}
	if f.StockBelow != nil && !p.Stock.LessThan(*f.StockBelow) {
		return false
	}
	if f.Name != "" && !containsFold(p.Name, f.Name) {
		return false
	}
	return true
}

// MatchesTransaction reports whether tx passes f (Limit is not applied).
func (f TransactionFilter) MatchesTransaction(tx Transaction) bool {
	if f.Kind != "" && tx.Kind != f.Kind {
		return false
	}
	if f.ProductID != "" && tx.ProductID != f.ProductID {
		return false
	}
	if !f.From.IsZero() && tx.Date.Before(DateOnly(f.From)) {
		return false
	}
	if !f.To.IsZero() && tx.Date.After(DateOnly(f.To)) {
		return false
	}
	return true
}
