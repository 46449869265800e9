/*
engine.go - Transaction-to-stock reconciliation

PURPOSE:
  The only writer of product stock. Each operation keeps the invariant that
  every persisted transaction is reflected, net, in exactly one product's
  stock counter.

OPERATIONS:
  CreateTransaction: resolve target -> apply delta -> insert row
  UpdateTransaction: fetch old -> reverse old effect -> resolve new target
                     -> apply new effect -> persist row
  DeleteTransaction: fetch -> fetch product -> reverse effect -> delete row

  An update whose old and new targets coincide performs two sequential writes
  to the same counter. Each edit starts from a full reversal of the previous
  effect, so repeated edits never compound.

ATOMICITY:
  Every operation runs inside TxStore.WithTx. If the row write fails after
  the stock write succeeded, the stock write is rolled back with it.

CONCURRENCY:
  Stock writes never read-then-blindly-write. Two modes:
  - StockWriteAtomic: the store evaluates stock = stock + delta
  - StockWriteCAS: write succeeds only if the product version is unchanged

  An operation that loses an optimistic race (ErrConcurrentModification) is
  re-run from scratch up to MaxConflictRetries times. Since the failed
  attempt was rolled back, a re-run never double-applies. No other error is
  retried.

USAGE:
  engine, err := inventory.NewEngine(store, inventory.DefaultOptions())
  tx, err := engine.CreateTransaction(ctx, inventory.TransactionInput{
      Kind: inventory.KindSale, ProductID: "p1", ClientID: "c1",
      Quantity: decimal.NewFromInt(2), UnitPrice: decimal.NewFromInt(450),
  })

SEE ALSO:
  - resolver.go: Stock target resolution
  - delta.go: Signed deltas
  - store.go: Store contracts
*/
package inventory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// OPTIONS
// =============================================================================

// StockWriteMode selects how stock counters are written.
type StockWriteMode string

const (
	StockWriteAtomic StockWriteMode = "atomic"
	StockWriteCAS    StockWriteMode = "cas"
)

func ParseStockWriteMode(s string) (StockWriteMode, error) {
	switch m := StockWriteMode(s); m {
	case StockWriteAtomic, StockWriteCAS:
		return m, nil
	}
	return "", fmt.Errorf("unknown stock write mode %q (want atomic or cas)", s)
}

// Observer receives operation outcomes. metrics.Metrics implements it.
type Observer interface {
	OperationFinished(op, outcome string, elapsed time.Duration)
	ConflictRetried(op string)
}

type Options struct {
	StockWriteMode StockWriteMode

	// ShellNameMatch enables the legacy name match for finished goods
	// without an explicit LinkedShellID.
	ShellNameMatch bool

	// AllowNegativeStock permits operations that leave a counter below zero.
	AllowNegativeStock bool

	// MaxConflictRetries is how many times an operation is re-run after
	// ErrConcurrentModification. Zero disables retries.
	MaxConflictRetries int

	Logger   *slog.Logger
	Observer Observer

	// Now and NewID are overridable for tests.
	Now   func() time.Time
	NewID func() string
}

// DefaultOptions returns atomic writes, name matching on, negative stock
// allowed and three conflict retries.
func DefaultOptions() Options {
	return Options{
		StockWriteMode:     StockWriteAtomic,
		ShellNameMatch:     true,
		AllowNegativeStock: true,
		MaxConflictRetries: 3,
	}
}

// =============================================================================
// ENGINE
// =============================================================================

type Engine struct {
	store TxStore
	opts  Options
	log   *slog.Logger
}

// NewEngine binds an engine to a store. Atomic mode requires the store to
// implement StockIncrementer (ErrStoreRequired otherwise).
func NewEngine(store TxStore, opts Options) (*Engine, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: nil store", ErrStoreRequired)
	}
	if opts.StockWriteMode == "" {
		opts.StockWriteMode = StockWriteAtomic
	}
	if _, err := ParseStockWriteMode(string(opts.StockWriteMode)); err != nil {
		return nil, err
	}
	if opts.StockWriteMode == StockWriteAtomic {
		if _, ok := store.(StockIncrementer); !ok {
			return nil, fmt.Errorf("%w: atomic stock writes need IncrementProductStock; use cas mode", ErrStoreRequired)
		}
	}
	if opts.MaxConflictRetries < 0 {
		opts.MaxConflictRetries = 0
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	return &Engine{store: store, opts: opts, log: opts.Logger}, nil
}

func (e *Engine) Options() Options { return e.opts }

// =============================================================================
// CREATE
// =============================================================================

// CreateTransaction applies the payload's stock effect to its resolved target
// and persists the transaction. A zero Date means today.
func (e *Engine) CreateTransaction(ctx context.Context, in TransactionInput) (Transaction, error) {
	if in.Date.IsZero() {
		in.Date = e.opts.Now()
	}
	if err := in.Validate(); err != nil {
		return Transaction{}, err
	}

	var created Transaction
	err := e.run(ctx, "create", "", func(es EntityStore) error {
		if err := e.checkCounterparty(ctx, es, in.Kind, in.ClientID, in.SupplierID); err != nil {
			return err
		}
		target, err := e.resolve(ctx, es, in.ProductID)
		if err != nil {
			return e.wrap("resolve product", err)
		}
		if err := e.adjust(ctx, es, target, Delta(in.Kind, in.Quantity, Apply)); err != nil {
			return err
		}

		now := e.opts.Now().UTC()
		tx := Transaction{
			ID:         TransactionID(e.opts.NewID()),
			Kind:       in.Kind,
			ProductID:  in.ProductID,
			ClientID:   in.ClientID,
			SupplierID: in.SupplierID,
			Quantity:   in.Quantity,
			UnitPrice:  in.UnitPrice,
			Total:      in.Quantity.Mul(in.UnitPrice),
			Date:       DateOnly(in.Date),
			Notes:      in.Notes,
			CreatedAt:  now,

			StockProductID: target.ProductID,
		}
		id, err := es.InsertTransaction(ctx, tx)
		if err != nil {
			return e.wrap("insert transaction", err)
		}
		tx.ID = id

		if err := e.checkStock(ctx, es, target.ProductID); err != nil {
			return err
		}
		created = tx
		return nil
	})
	if err != nil {
		return Transaction{}, err
	}
	return created, nil
}

// =============================================================================
// UPDATE
// =============================================================================

// UpdateTransaction reverses the stored transaction's effect, applies the
// patched transaction's effect and persists the patched fields.
func (e *Engine) UpdateTransaction(ctx context.Context, id TransactionID, patch TransactionPatch) (Transaction, error) {
	var updated Transaction
	err := e.run(ctx, "update", id, func(es EntityStore) error {
		old, err := es.GetTransaction(ctx, id)
		if err != nil {
			return e.wrap("get transaction", err)
		}

		next := patch.Apply(old)
		next.Date = DateOnly(next.Date)
		if err := next.input().Validate(); err != nil {
			return err
		}
		if err := e.checkCounterparty(ctx, es, next.Kind, next.ClientID, next.SupplierID); err != nil {
			return err
		}

		// Undo the old effect where it was applied.
		oldTarget, err := e.appliedTarget(ctx, es, old)
		if err != nil {
			return e.wrap("resolve old product", err)
		}
		if err := e.adjust(ctx, es, oldTarget, Delta(old.Kind, old.Quantity, Reverse)); err != nil {
			return err
		}

		// Redo with the new values. Resolved after the undo so the read sees it.
		newTarget, err := e.resolve(ctx, es, next.ProductID)
		if err != nil {
			return e.wrap("resolve new product", err)
		}
		if err := e.adjust(ctx, es, newTarget, Delta(next.Kind, next.Quantity, Apply)); err != nil {
			return err
		}
		next.StockProductID = newTarget.ProductID

		if err := es.UpdateTransaction(ctx, next); err != nil {
			return e.wrap("update transaction", err)
		}
		if err := e.checkStock(ctx, es, oldTarget.ProductID, newTarget.ProductID); err != nil {
			return err
		}
		updated = next
		return nil
	})
	if err != nil {
		return Transaction{}, err
	}
	return updated, nil
}

// =============================================================================
// DELETE
// =============================================================================

// DeleteTransaction reverses the transaction's effect and removes the row.
func (e *Engine) DeleteTransaction(ctx context.Context, id TransactionID) error {
	return e.run(ctx, "delete", id, func(es EntityStore) error {
		tx, err := es.GetTransaction(ctx, id)
		if err != nil {
			return e.wrap("get transaction", err)
		}
		target, err := e.appliedTarget(ctx, es, tx)
		if err != nil {
			return e.wrap("resolve product", err)
		}
		if err := e.adjust(ctx, es, target, Delta(tx.Kind, tx.Quantity, Reverse)); err != nil {
			return err
		}
		if err := es.DeleteTransaction(ctx, id); err != nil {
			return e.wrap("delete transaction", err)
		}
		return e.checkStock(ctx, es, target.ProductID)
	})
}

// =============================================================================
// RESOLUTION AND LINKS
// =============================================================================

// ResolveTarget reports which product's stock a transaction against id moves.
func (e *Engine) ResolveTarget(ctx context.Context, id ProductID) (StockTarget, error) {
	t, err := e.resolve(ctx, e.store, id)
	if err != nil {
		return StockTarget{}, e.wrap("resolve product", err)
	}
	return t, nil
}

// LinkShell sets the explicit shell of a finished good. An empty shellID
// removes the link. The store must implement Catalog.
func (e *Engine) LinkShell(ctx context.Context, id, shellID ProductID) error {
	cat, ok := e.store.(Catalog)
	if !ok {
		return fmt.Errorf("%w: linking shells needs a catalog store", ErrStoreRequired)
	}
	p, err := e.store.GetProduct(ctx, id)
	if err != nil {
		return e.wrap("get product", err)
	}
	if !p.IsFinishedGood() {
		return fmt.Errorf("%w: %s is a %s, only finished goods link to a shell", ErrInvalidLink, id, p.Category)
	}
	if shellID != "" {
		shell, err := e.store.GetProduct(ctx, shellID)
		if errors.Is(err, ErrProductNotFound) {
			return fmt.Errorf("%w: shell %s does not exist", ErrInvalidLink, shellID)
		}
		if err != nil {
			return e.wrap("get shell", err)
		}
		if shell.Category != CategoryShell {
			return fmt.Errorf("%w: %s is a %s, not a shell", ErrInvalidLink, shellID, shell.Category)
		}
	}
	if err := cat.SetLinkedShell(ctx, id, shellID); err != nil {
		return e.wrap("set linked shell", err)
	}
	e.log.InfoContext(ctx, "shell linked", "product_id", id, "shell_id", shellID)
	return nil
}

// =============================================================================
// INTERNALS
// =============================================================================

// run executes fn atomically, re-running it after optimistic conflicts.
func (e *Engine) run(ctx context.Context, op string, id TransactionID, fn func(EntityStore) error) error {
	start := e.opts.Now()
	var err error
	for attempt := 0; ; attempt++ {
		err = e.store.WithTx(ctx, fn)
		if err == nil || !IsRetryable(err) || attempt >= e.opts.MaxConflictRetries || ctx.Err() != nil {
			break
		}
		e.log.WarnContext(ctx, "stock conflict, retrying",
			"op", op, "transaction_id", id, "attempt", attempt+1)
		if e.opts.Observer != nil {
			e.opts.Observer.ConflictRetried(op)
		}
	}

	if e.opts.Observer != nil {
		e.opts.Observer.OperationFinished(op, Outcome(err), e.opts.Now().Sub(start))
	}
	if err != nil {
		e.log.ErrorContext(ctx, "transaction operation failed",
			"op", op, "transaction_id", id, "error", err)
	}
	return err
}

// adjust moves the target's counter by delta using the configured mode.
func (e *Engine) adjust(ctx context.Context, es EntityStore, t StockTarget, delta decimal.Decimal) error {
	switch e.opts.StockWriteMode {
	case StockWriteCAS:
		if err := es.UpdateProductStock(ctx, t.ProductID, t.Version, t.Stock.Add(delta)); err != nil {
			return e.wrap("update product stock", err)
		}
	default:
		inc, ok := es.(StockIncrementer)
		if !ok {
			return fmt.Errorf("%w: transaction view cannot increment stock", ErrStoreRequired)
		}
		if _, err := inc.IncrementProductStock(ctx, t.ProductID, delta); err != nil {
			return e.wrap("increment product stock", err)
		}
	}
	if t.Redirected() {
		e.log.DebugContext(ctx, "stock redirected",
			"product_id", t.RedirectedFrom, "target_id", t.ProductID, "delta", delta.String())
	}
	return nil
}

// checkStock enforces AllowNegativeStock on the final state of the touched
// counters. Intermediate values inside an update are not checked.
func (e *Engine) checkStock(ctx context.Context, es EntityStore, ids ...ProductID) error {
	if e.opts.AllowNegativeStock {
		return nil
	}
	seen := make(map[ProductID]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		p, err := es.GetProduct(ctx, id)
		if err != nil {
			return e.wrap("get product", err)
		}
		if p.Stock.IsNegative() {
			return fmt.Errorf("%w: %s (%s) would drop to %s", ErrNegativeStock, p.Name, id, p.Stock)
		}
	}
	return nil
}

// CounterpartyLookup is implemented by entity stores that can confirm a
// client or supplier exists. When available the engine rejects unknown
// counterparties before any write.
type CounterpartyLookup interface {
	GetClient(ctx context.Context, id ClientID) (Client, error)
	GetSupplier(ctx context.Context, id SupplierID) (Supplier, error)
}

func (e *Engine) checkCounterparty(ctx context.Context, es EntityStore, kind Kind, clientID ClientID, supplierID SupplierID) error {
	lookup, ok := es.(CounterpartyLookup)
	if !ok {
		return nil
	}
	var err error
	if kind == KindSale {
		_, err = lookup.GetClient(ctx, clientID)
	} else {
		_, err = lookup.GetSupplier(ctx, supplierID)
	}
	if err != nil {
		return e.wrap("get counterparty", err)
	}
	return nil
}

// wrap reports non-domain store failures as PersistenceError.
func (e *Engine) wrap(op string, err error) error {
	if err == nil || isDomainError(err) ||
		errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &PersistenceError{Op: op, Err: err}
}

// Outcome classifies an operation result for metrics.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case IsNotFound(err):
		return "not_found"
	case errors.Is(err, ErrInvalidTransaction), errors.Is(err, ErrInvalidRecord), errors.Is(err, ErrInvalidLink):
		return "invalid"
	case errors.Is(err, ErrShellMissing), errors.Is(err, ErrShellAmbiguous):
		return "shell_unresolved"
	case errors.Is(err, ErrNegativeStock):
		return "negative_stock"
	case IsRetryable(err), errors.Is(err, ErrDuplicate):
		return "conflict"
	case errors.Is(err, ErrPersistence):
		return "persistence"
	}
	return "error"
}
