/*
Package sqlite provides a SQLite-backed implementation of the inventory store.

PURPOSE:
  Implements inventory.Store (entity access, transactions, catalog) on
  SQLite. The PostgreSQL store in store/postgres follows the same layout
  with dialect differences.

INTERFACES IMPLEMENTED:
  inventory.Store:              Entity store + WithTx + catalog
  inventory.StockIncrementer:   Store-side stock = stock + delta
  inventory.CounterpartyLookup: Client / supplier existence checks
  inventory.Resetter:           Wipe for demo scenarios

KEY TABLES:
  products:     Catalog items with the stock counter and its version
  clients:      Sale counterparties
  suppliers:    Purchase counterparties
  transactions: Sales and purchases and the product whose stock each moved

STOCK COLUMN:
  Quantities are stored as decimal TEXT so meters of fabric never pick up
  floating point error. IncrementProductStock therefore reads and writes the
  counter inside one write transaction instead of "stock = stock + ?".

INDEXES:
  - idx_products_shell_name: Finished good -> shell name match (hot path)
  - idx_transactions_date:   History listing and monthly reports
  - idx_transactions_product: Per-product history

CONCURRENCY:
  Uses sync.RWMutex for thread-safety, and write transactions are opened
  with BEGIN IMMEDIATE (_txlock=immediate) so two writers never interleave
  a read-then-write on the same counter. SQLITE_BUSY is reported as
  inventory.ErrConcurrentModification.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/stock.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  engine, err := inventory.NewEngine(store, inventory.DefaultOptions())

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - inventory/store.go: Interface definitions
  - inventory/engine.go: The engine using Store
  - inventory/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/stock-engine/inventory"
)

const (
	dateLayout = "2006-01-02"
	// Fixed width so timestamps sort lexicographically.
	timeLayout = "2006-01-02T15:04:05.000000000Z"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db  *sql.DB
	mu  sync.RWMutex
	now func() time.Time
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL&_txlock=immediate&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Every connection would get its own empty in-memory database.
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db, now: time.Now}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying handle, for connection pool metrics.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Ping checks the connection (health endpoint).
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS products (
		id TEXT PRIMARY KEY,
		category TEXT NOT NULL,
		name TEXT NOT NULL,
		name_key TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		unit_price TEXT NOT NULL DEFAULT '0',
		stock TEXT NOT NULL DEFAULT '0',
		attributes_json TEXT,
		linked_shell_id TEXT REFERENCES products(id) ON DELETE SET NULL,
		version INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Finished good -> shell lookup by normalized name
	CREATE INDEX IF NOT EXISTS idx_products_shell_name
		ON products(category, name_key);

	CREATE TABLE IF NOT EXISTS clients (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		contact TEXT,
		phone TEXT,
		email TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS suppliers (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		contact TEXT,
		phone TEXT,
		email TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS transactions (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL CHECK (kind IN ('sale', 'purchase')),
		product_id TEXT NOT NULL REFERENCES products(id),
		stock_product_id TEXT REFERENCES products(id),
		client_id TEXT REFERENCES clients(id),
		supplier_id TEXT REFERENCES suppliers(id),
		quantity TEXT NOT NULL,
		unit_price TEXT NOT NULL,
		total TEXT NOT NULL,
		date TEXT NOT NULL,
		notes TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_transactions_date
		ON transactions(date DESC, created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_transactions_product
		ON transactions(product_id);
	CREATE INDEX IF NOT EXISTS idx_transactions_kind
		ON transactions(kind);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return err
	}

	// Databases created before stock targets were recorded on transactions.
	return s.addColumnIfMissing("transactions", "stock_product_id", "TEXT REFERENCES products(id)")
}

func (s *Store) addColumnIfMissing(table, column, decl string) error {
	rows, err := s.db.Query("SELECT name FROM pragma_table_info(?)", table)
	if err != nil {
		return fmt.Errorf("failed to inspect %s: %w", table, err)
	}
	found := false
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return err
		}
		found = found || name == column
	}
	rows.Close()
	if err := rows.Err(); err != nil || found {
		return err
	}
	_, err = s.db.Exec(fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, decl))
	return err
}

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type scanner interface {
	Scan(dest ...any) error
}

// =============================================================================
// ENTITY STORE (inventory.EntityStore interface)
// =============================================================================

func (s *Store) GetProduct(ctx context.Context, id inventory.ProductID) (inventory.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getProduct(ctx, s.db, id)
}

func (s *Store) FindShellByName(ctx context.Context, name string) (inventory.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return findShellByName(ctx, s.db, name)
}

func (s *Store) UpdateProductStock(ctx context.Context, id inventory.ProductID, expectedVersion int64, newStock decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return updateProductStock(ctx, s.db, id, expectedVersion, newStock, s.now())
}

// IncrementProductStock adds delta to the counter in its own write transaction.
func (s *Store) IncrementProductStock(ctx context.Context, id inventory.ProductID, delta decimal.Decimal) (decimal.Decimal, error) {
	var stock decimal.Decimal
	err := s.WithTx(ctx, func(es inventory.EntityStore) error {
		var err error
		stock, err = es.(*txStore).IncrementProductStock(ctx, id, delta)
		return err
	})
	return stock, err
}

func (s *Store) GetTransaction(ctx context.Context, id inventory.TransactionID) (inventory.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getTransaction(ctx, s.db, id)
}

func (s *Store) InsertTransaction(ctx context.Context, tx inventory.Transaction) (inventory.TransactionID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return insertTransaction(ctx, s.db, tx)
}

func (s *Store) UpdateTransaction(ctx context.Context, tx inventory.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return updateTransaction(ctx, s.db, tx)
}

func (s *Store) DeleteTransaction(ctx context.Context, id inventory.TransactionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deleteTransaction(ctx, s.db, id)
}

func (s *Store) GetClient(ctx context.Context, id inventory.ClientID) (inventory.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getClient(ctx, s.db, id)
}

func (s *Store) GetSupplier(ctx context.Context, id inventory.SupplierID) (inventory.Supplier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getSupplier(ctx, s.db, id)
}

// =============================================================================
// TRANSACTIONAL STORE (inventory.TxStore interface)
// =============================================================================

// WithTx executes a function within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(inventory.EntityStore) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return mapError(fmt.Errorf("failed to begin transaction: %w", err))
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{tx: sqlTx, now: s.now}); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return mapError(fmt.Errorf("failed to commit: %w", err))
	}
	return nil
}

type txStore struct {
	tx  *sql.Tx
	now func() time.Time
}

func (ts *txStore) GetProduct(ctx context.Context, id inventory.ProductID) (inventory.Product, error) {
	return getProduct(ctx, ts.tx, id)
}

func (ts *txStore) FindShellByName(ctx context.Context, name string) (inventory.Product, error) {
	return findShellByName(ctx, ts.tx, name)
}

func (ts *txStore) UpdateProductStock(ctx context.Context, id inventory.ProductID, expectedVersion int64, newStock decimal.Decimal) error {
	return updateProductStock(ctx, ts.tx, id, expectedVersion, newStock, ts.now())
}

func (ts *txStore) IncrementProductStock(ctx context.Context, id inventory.ProductID, delta decimal.Decimal) (decimal.Decimal, error) {
	var raw string
	err := ts.tx.QueryRowContext(ctx, "SELECT stock FROM products WHERE id = ?", id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Decimal{}, inventory.ErrProductNotFound
	}
	if err != nil {
		return decimal.Decimal{}, mapError(fmt.Errorf("failed to read stock: %w", err))
	}
	current, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("corrupt stock %q for product %s: %w", raw, id, err)
	}
	next := current.Add(delta)
	_, err = ts.tx.ExecContext(ctx,
		"UPDATE products SET stock = ?, version = version + 1, updated_at = ? WHERE id = ?",
		next.String(), ts.now().UTC().Format(timeLayout), id)
	if err != nil {
		return decimal.Decimal{}, mapError(fmt.Errorf("failed to increment stock: %w", err))
	}
	return next, nil
}

func (ts *txStore) GetTransaction(ctx context.Context, id inventory.TransactionID) (inventory.Transaction, error) {
	return getTransaction(ctx, ts.tx, id)
}

func (ts *txStore) InsertTransaction(ctx context.Context, tx inventory.Transaction) (inventory.TransactionID, error) {
	return insertTransaction(ctx, ts.tx, tx)
}

func (ts *txStore) UpdateTransaction(ctx context.Context, tx inventory.Transaction) error {
	return updateTransaction(ctx, ts.tx, tx)
}

func (ts *txStore) DeleteTransaction(ctx context.Context, id inventory.TransactionID) error {
	return deleteTransaction(ctx, ts.tx, id)
}

func (ts *txStore) GetClient(ctx context.Context, id inventory.ClientID) (inventory.Client, error) {
	return getClient(ctx, ts.tx, id)
}

func (ts *txStore) GetSupplier(ctx context.Context, id inventory.SupplierID) (inventory.Supplier, error) {
	return getSupplier(ctx, ts.tx, id)
}

// =============================================================================
// PRODUCTS
// =============================================================================

const productColumns = `id, category, name, description, unit_price, stock,
	attributes_json, linked_shell_id, version, created_at, updated_at`

func getProduct(ctx context.Context, q queryer, id inventory.ProductID) (inventory.Product, error) {
	row := q.QueryRowContext(ctx, "SELECT "+productColumns+" FROM products WHERE id = ?", id)
	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return inventory.Product{}, inventory.ErrProductNotFound
	}
	return p, err
}

func findShellByName(ctx context.Context, q queryer, name string) (inventory.Product, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT "+productColumns+" FROM products WHERE category = ? AND name_key = ? LIMIT 3",
		inventory.CategoryShell, inventory.NormalizeName(name))
	if err != nil {
		return inventory.Product{}, mapError(fmt.Errorf("failed to query shells: %w", err))
	}
	defer rows.Close()

	var matches []inventory.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return inventory.Product{}, err
		}
		matches = append(matches, p)
	}
	if err := rows.Err(); err != nil {
		return inventory.Product{}, mapError(err)
	}

	switch len(matches) {
	case 0:
		return inventory.Product{}, inventory.ErrProductNotFound
	case 1:
		return matches[0], nil
	}
	return inventory.Product{}, &inventory.ShellResolutionError{Name: name, Matches: len(matches)}
}

func updateProductStock(ctx context.Context, q queryer, id inventory.ProductID, expectedVersion int64, newStock decimal.Decimal, now time.Time) error {
	res, err := q.ExecContext(ctx,
		"UPDATE products SET stock = ?, version = version + 1, updated_at = ? WHERE id = ? AND version = ?",
		newStock.String(), now.UTC().Format(timeLayout), id, expectedVersion)
	if err != nil {
		return mapError(fmt.Errorf("failed to update stock: %w", err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update stock: %w", err)
	}
	if n == 1 {
		return nil
	}

	var version int64
	err = q.QueryRowContext(ctx, "SELECT version FROM products WHERE id = ?", id).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return inventory.ErrProductNotFound
	}
	if err != nil {
		return mapError(err)
	}
	return fmt.Errorf("%w: product %s is at version %d, expected %d",
		inventory.ErrConcurrentModification, id, version, expectedVersion)
}

func scanProduct(row scanner) (inventory.Product, error) {
	var (
		p              inventory.Product
		unitPrice      string
		stock          string
		attributesJSON sql.NullString
		linkedShellID  sql.NullString
		createdAt      string
		updatedAt      string
	)
	err := row.Scan(&p.ID, &p.Category, &p.Name, &p.Description, &unitPrice, &stock,
		&attributesJSON, &linkedShellID, &p.Version, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return p, err
		}
		return p, mapError(fmt.Errorf("failed to scan product: %w", err))
	}

	p.UnitPrice = parseDecimal(unitPrice)
	p.Stock = parseDecimal(stock)
	p.LinkedShellID = inventory.ProductID(linkedShellID.String)
	p.CreatedAt = parseTime(createdAt)
	p.UpdatedAt = parseTime(updatedAt)
	if attributesJSON.Valid && attributesJSON.String != "" {
		if err := json.Unmarshal([]byte(attributesJSON.String), &p.Attributes); err != nil {
			return p, fmt.Errorf("corrupt attributes for product %s: %w", p.ID, err)
		}
	}
	return p, nil
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

const transactionColumns = `id, kind, product_id, stock_product_id, client_id, supplier_id,
	quantity, unit_price, total, date, notes, created_at`

func getTransaction(ctx context.Context, q queryer, id inventory.TransactionID) (inventory.Transaction, error) {
	row := q.QueryRowContext(ctx, "SELECT "+transactionColumns+" FROM transactions WHERE id = ?", id)
	tx, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return inventory.Transaction{}, inventory.ErrTransactionNotFound
	}
	return tx, err
}

func insertTransaction(ctx context.Context, q queryer, tx inventory.Transaction) (inventory.TransactionID, error) {
	if tx.ID == "" {
		tx.ID = inventory.TransactionID(uuid.NewString())
	}
	createdAt := tx.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	query := `
		INSERT INTO transactions
		(id, kind, product_id, stock_product_id, client_id, supplier_id, quantity, unit_price, total, date, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := q.ExecContext(ctx, query,
		tx.ID,
		tx.Kind,
		tx.ProductID,
		nullString(string(tx.StockProductID)),
		nullString(string(tx.ClientID)),
		nullString(string(tx.SupplierID)),
		tx.Quantity.String(),
		tx.UnitPrice.String(),
		tx.Total.String(),
		tx.Date.UTC().Format(dateLayout),
		nullString(tx.Notes),
		createdAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return "", mapError(fmt.Errorf("failed to insert transaction: %w", err))
	}
	return tx.ID, nil
}

func updateTransaction(ctx context.Context, q queryer, tx inventory.Transaction) error {
	query := `
		UPDATE transactions
		SET kind = ?, product_id = ?, stock_product_id = ?, client_id = ?, supplier_id = ?,
		    quantity = ?, unit_price = ?, total = ?, date = ?, notes = ?
		WHERE id = ?
	`
	res, err := q.ExecContext(ctx, query,
		tx.Kind,
		tx.ProductID,
		nullString(string(tx.StockProductID)),
		nullString(string(tx.ClientID)),
		nullString(string(tx.SupplierID)),
		tx.Quantity.String(),
		tx.UnitPrice.String(),
		tx.Total.String(),
		tx.Date.UTC().Format(dateLayout),
		nullString(tx.Notes),
		tx.ID,
	)
	if err != nil {
		return mapError(fmt.Errorf("failed to update transaction: %w", err))
	}
	return requireOne(res, inventory.ErrTransactionNotFound)
}

func deleteTransaction(ctx context.Context, q queryer, id inventory.TransactionID) error {
	res, err := q.ExecContext(ctx, "DELETE FROM transactions WHERE id = ?", id)
	if err != nil {
		return mapError(fmt.Errorf("failed to delete transaction: %w", err))
	}
	return requireOne(res, inventory.ErrTransactionNotFound)
}

func scanTransaction(row scanner) (inventory.Transaction, error) {
	var (
		tx         inventory.Transaction
		stockID    sql.NullString
		clientID   sql.NullString
		supplierID sql.NullString
		quantity   string
		unitPrice  string
		total      string
		date       string
		notes      sql.NullString
		createdAt  string
	)
	err := row.Scan(&tx.ID, &tx.Kind, &tx.ProductID, &stockID, &clientID, &supplierID,
		&quantity, &unitPrice, &total, &date, &notes, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return tx, err
		}
		return tx, mapError(fmt.Errorf("failed to scan transaction: %w", err))
	}

	tx.StockProductID = inventory.ProductID(stockID.String)
	tx.ClientID = inventory.ClientID(clientID.String)
	tx.SupplierID = inventory.SupplierID(supplierID.String)
	tx.Quantity = parseDecimal(quantity)
	tx.UnitPrice = parseDecimal(unitPrice)
	tx.Total = parseDecimal(total)
	tx.Date, _ = time.Parse(dateLayout, date)
	tx.Notes = notes.String
	tx.CreatedAt = parseTime(createdAt)
	return tx, nil
}

// =============================================================================
// CATALOG (inventory.Catalog interface)
// =============================================================================

func (s *Store) CreateProduct(ctx context.Context, p inventory.Product) (inventory.Product, error) {
	p, err := inventory.PrepareProduct(p, s.now())
	if err != nil {
		return inventory.Product{}, err
	}

	var attributes sql.NullString
	if len(p.Attributes) > 0 {
		raw, err := json.Marshal(p.Attributes)
		if err != nil {
			return inventory.Product{}, fmt.Errorf("failed to encode attributes: %w", err)
		}
		attributes = sql.NullString{String: string(raw), Valid: true}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO products
		(id, category, name, name_key, description, unit_price, stock,
		 attributes_json, linked_shell_id, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = s.db.ExecContext(ctx, query,
		p.ID,
		p.Category,
		p.Name,
		inventory.NormalizeName(p.Name),
		p.Description,
		p.UnitPrice.String(),
		p.Stock.String(),
		attributes,
		nullString(string(p.LinkedShellID)),
		p.Version,
		p.CreatedAt.Format(timeLayout),
		p.UpdatedAt.Format(timeLayout),
	)
	if err != nil {
		return inventory.Product{}, mapError(fmt.Errorf("failed to insert product: %w", err))
	}
	return p, nil
}

func (s *Store) ListProducts(ctx context.Context, filter inventory.ProductFilter) ([]inventory.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := "SELECT " + productColumns + " FROM products"
	var args []any
	if filter.Category != "" {
		query += " WHERE category = ?"
		args = append(args, filter.Category)
	}
	query += " ORDER BY name, id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(fmt.Errorf("failed to query products: %w", err))
	}
	defer rows.Close()

	var products []inventory.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		// Decimal and folded-name filters are applied in Go.
		if filter.MatchesProduct(p) {
			products = append(products, p)
		}
	}
	return products, rows.Err()
}

func (s *Store) SetLinkedShell(ctx context.Context, id inventory.ProductID, shellID inventory.ProductID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"UPDATE products SET linked_shell_id = ?, updated_at = ? WHERE id = ?",
		nullString(string(shellID)), s.now().UTC().Format(timeLayout), id)
	if err != nil {
		return mapError(fmt.Errorf("failed to link shell: %w", err))
	}
	return requireOne(res, inventory.ErrProductNotFound)
}

func (s *Store) CreateClient(ctx context.Context, c inventory.Client) (inventory.Client, error) {
	c, err := inventory.PrepareClient(c, s.now())
	if err != nil {
		return inventory.Client{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	err = insertParty(ctx, s.db, "clients", string(c.ID), c.Name, c.Contact, c.Phone, c.Email, c.CreatedAt)
	return c, err
}

func (s *Store) ListClients(ctx context.Context) ([]inventory.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.QueryContext(ctx, "SELECT "+partyColumns+" FROM clients ORDER BY name, id")
	if err != nil {
		return nil, mapError(fmt.Errorf("failed to query clients: %w", err))
	}
	defer rows.Close()
	var out []inventory.Client
	for rows.Next() {
		p, err := scanParty(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p.client())
	}
	return out, rows.Err()
}

func (s *Store) CreateSupplier(ctx context.Context, sup inventory.Supplier) (inventory.Supplier, error) {
	sup, err := inventory.PrepareSupplier(sup, s.now())
	if err != nil {
		return inventory.Supplier{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	err = insertParty(ctx, s.db, "suppliers", string(sup.ID), sup.Name, sup.Contact, sup.Phone, sup.Email, sup.CreatedAt)
	return sup, err
}

func (s *Store) ListSuppliers(ctx context.Context) ([]inventory.Supplier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.QueryContext(ctx, "SELECT "+partyColumns+" FROM suppliers ORDER BY name, id")
	if err != nil {
		return nil, mapError(fmt.Errorf("failed to query suppliers: %w", err))
	}
	defer rows.Close()
	var out []inventory.Supplier
	for rows.Next() {
		p, err := scanParty(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p.supplier())
	}
	return out, rows.Err()
}

func (s *Store) ListTransactions(ctx context.Context, filter inventory.TransactionFilter) ([]inventory.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		where []string
		args  []any
	)
	if filter.Kind != "" {
		where = append(where, "kind = ?")
		args = append(args, filter.Kind)
	}
	if filter.ProductID != "" {
		where = append(where, "product_id = ?")
		args = append(args, filter.ProductID)
	}
	if !filter.From.IsZero() {
		where = append(where, "date >= ?")
		args = append(args, filter.From.UTC().Format(dateLayout))
	}
	if !filter.To.IsZero() {
		where = append(where, "date <= ?")
		args = append(args, filter.To.UTC().Format(dateLayout))
	}

	query := "SELECT " + transactionColumns + " FROM transactions"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY date DESC, created_at DESC, id DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(fmt.Errorf("failed to query transactions: %w", err))
	}
	defer rows.Close()

	var txs []inventory.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

// =============================================================================
// COUNTERPARTIES
// =============================================================================

const partyColumns = "id, name, contact, phone, email, created_at, updated_at"

// party is the shared row shape of clients and suppliers.
type party struct {
	id, name, contact, phone, email string
	createdAt, updatedAt            time.Time
}

func (p party) client() inventory.Client {
	return inventory.Client{ID: inventory.ClientID(p.id), Name: p.name, Contact: p.contact,
		Phone: p.phone, Email: p.email, CreatedAt: p.createdAt, UpdatedAt: p.updatedAt}
}

func (p party) supplier() inventory.Supplier {
	return inventory.Supplier{ID: inventory.SupplierID(p.id), Name: p.name, Contact: p.contact,
		Phone: p.phone, Email: p.email, CreatedAt: p.createdAt, UpdatedAt: p.updatedAt}
}

func insertParty(ctx context.Context, q queryer, table, id, name, contact, phone, email string, at time.Time) error {
	_, err := q.ExecContext(ctx,
		"INSERT INTO "+table+" ("+partyColumns+") VALUES (?, ?, ?, ?, ?, ?, ?)",
		id, name, nullString(contact), nullString(phone), nullString(email),
		at.UTC().Format(timeLayout), at.UTC().Format(timeLayout))
	if err != nil {
		return mapError(fmt.Errorf("failed to insert into %s: %w", table, err))
	}
	return nil
}

func scanParty(row scanner) (party, error) {
	var (
		p                     party
		contact, phone, email sql.NullString
		createdAt, updatedAt  string
	)
	if err := row.Scan(&p.id, &p.name, &contact, &phone, &email, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return p, err
		}
		return p, mapError(fmt.Errorf("failed to scan counterparty: %w", err))
	}
	p.contact, p.phone, p.email = contact.String, phone.String, email.String
	p.createdAt, p.updatedAt = parseTime(createdAt), parseTime(updatedAt)
	return p, nil
}

func getClient(ctx context.Context, q queryer, id inventory.ClientID) (inventory.Client, error) {
	p, err := scanParty(q.QueryRowContext(ctx, "SELECT "+partyColumns+" FROM clients WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return inventory.Client{}, inventory.ErrClientNotFound
	}
	if err != nil {
		return inventory.Client{}, err
	}
	return p.client(), nil
}

func getSupplier(ctx context.Context, q queryer, id inventory.SupplierID) (inventory.Supplier, error) {
	p, err := scanParty(q.QueryRowContext(ctx, "SELECT "+partyColumns+" FROM suppliers WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return inventory.Supplier{}, inventory.ErrSupplierNotFound
	}
	if err != nil {
		return inventory.Supplier{}, err
	}
	return p.supplier(), nil
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"transactions", "products", "clients", "suppliers"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

// Helper functions

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(timeLayout, s)
	return t
}

func requireOne(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}

// mapError translates driver errors into domain errors.
func mapError(err error) error {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return err
	}
	switch {
	case sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked:
		return fmt.Errorf("%w: %v", inventory.ErrConcurrentModification, err)
	case sqliteErr.ExtendedCode == sqlite3.ErrConstraintForeignKey:
		return fmt.Errorf("referenced record does not exist: %w", err)
	case sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey:
		return fmt.Errorf("%w: %v", inventory.ErrDuplicate, err)
	}
	return err
}

var (
	_ inventory.Store              = (*Store)(nil)
	_ inventory.StockIncrementer   = (*Store)(nil)
	_ inventory.CounterpartyLookup = (*Store)(nil)
	_ inventory.Resetter           = (*Store)(nil)
	_ inventory.StockIncrementer   = (*txStore)(nil)
	_ inventory.CounterpartyLookup = (*txStore)(nil)
)
