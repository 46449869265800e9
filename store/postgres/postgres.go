/*
Package postgres provides a PostgreSQL-backed implementation of the inventory store.

PURPOSE:
  Same contract as store/sqlite, on a pgx connection pool. Stock and money
  columns are NUMERIC, so IncrementProductStock is a single
  "stock = stock + $2" statement evaluated by the server.

TRANSACTIONS:
  WithTx opens a REPEATABLE READ transaction. Two operations touching the
  same counter make one of them fail with a serialization error (40001),
  reported as inventory.ErrConcurrentModification so the engine re-runs it.

DECIMALS:
  Values cross the wire as text ($n::numeric on the way in, col::text on the
  way out) and are parsed with shopspring/decimal.

SEE ALSO:
  - store/sqlite/sqlite.go: Same layout for SQLite
  - inventory/store.go: Interface definitions
*/
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/warp/stock-engine/inventory"
)

// Store implements all storage interfaces using PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// New connects to dsn, pings the server and migrates the schema.
func New(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := NewFromPool(pool)
	if err := store.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// NewFromPool wraps an existing pool. The schema is expected to exist.
func NewFromPool(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, now: time.Now}
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS products (
		id TEXT PRIMARY KEY,
		category TEXT NOT NULL,
		name TEXT NOT NULL,
		name_key TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		unit_price NUMERIC NOT NULL DEFAULT 0,
		stock NUMERIC NOT NULL DEFAULT 0,
		attributes JSONB,
		linked_shell_id TEXT REFERENCES products(id) ON DELETE SET NULL,
		version BIGINT NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_products_shell_name
		ON products(category, name_key);

	CREATE TABLE IF NOT EXISTS clients (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		contact TEXT,
		phone TEXT,
		email TEXT,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	);

	CREATE TABLE IF NOT EXISTS suppliers (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		contact TEXT,
		phone TEXT,
		email TEXT,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	);

	CREATE TABLE IF NOT EXISTS transactions (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL CHECK (kind IN ('sale', 'purchase')),
		product_id TEXT NOT NULL REFERENCES products(id),
		client_id TEXT REFERENCES clients(id),
		supplier_id TEXT REFERENCES suppliers(id),
		quantity NUMERIC NOT NULL,
		unit_price NUMERIC NOT NULL,
		total NUMERIC NOT NULL,
		date DATE NOT NULL,
		notes TEXT,
		created_at TIMESTAMPTZ NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_transactions_date
		ON transactions(date DESC, created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_transactions_product
		ON transactions(product_id);

	ALTER TABLE transactions
		ADD COLUMN IF NOT EXISTS stock_product_id TEXT REFERENCES products(id);
	`
	_, err := s.pool.Exec(ctx, schema)
	return err
}

// querier is satisfied by *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// =============================================================================
// ENTITY STORE (inventory.EntityStore interface)
// =============================================================================

func (s *Store) GetProduct(ctx context.Context, id inventory.ProductID) (inventory.Product, error) {
	return getProduct(ctx, s.pool, id)
}

func (s *Store) FindShellByName(ctx context.Context, name string) (inventory.Product, error) {
	return findShellByName(ctx, s.pool, name)
}

func (s *Store) UpdateProductStock(ctx context.Context, id inventory.ProductID, expectedVersion int64, newStock decimal.Decimal) error {
	return updateProductStock(ctx, s.pool, id, expectedVersion, newStock)
}

func (s *Store) IncrementProductStock(ctx context.Context, id inventory.ProductID, delta decimal.Decimal) (decimal.Decimal, error) {
	return incrementProductStock(ctx, s.pool, id, delta)
}

func (s *Store) GetTransaction(ctx context.Context, id inventory.TransactionID) (inventory.Transaction, error) {
	return getTransaction(ctx, s.pool, id)
}

func (s *Store) InsertTransaction(ctx context.Context, tx inventory.Transaction) (inventory.TransactionID, error) {
	return insertTransaction(ctx, s.pool, tx)
}

func (s *Store) UpdateTransaction(ctx context.Context, tx inventory.Transaction) error {
	return updateTransaction(ctx, s.pool, tx)
}

func (s *Store) DeleteTransaction(ctx context.Context, id inventory.TransactionID) error {
	return deleteTransaction(ctx, s.pool, id)
}

func (s *Store) GetClient(ctx context.Context, id inventory.ClientID) (inventory.Client, error) {
	return getClient(ctx, s.pool, id)
}

func (s *Store) GetSupplier(ctx context.Context, id inventory.SupplierID) (inventory.Supplier, error) {
	return getSupplier(ctx, s.pool, id)
}

// =============================================================================
// TRANSACTIONAL STORE (inventory.TxStore interface)
// =============================================================================

// WithTx wraps fn in a repeatable-read transaction.
func (s *Store) WithTx(ctx context.Context, fn func(inventory.EntityStore) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return mapError(fmt.Errorf("failed to begin transaction: %w", err))
	}
	if err := fn(&txStore{tx: tx}); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return mapError(fmt.Errorf("failed to commit: %w", err))
	}
	return nil
}

type txStore struct {
	tx pgx.Tx
}

func (ts *txStore) GetProduct(ctx context.Context, id inventory.ProductID) (inventory.Product, error) {
	return getProduct(ctx, ts.tx, id)
}

func (ts *txStore) FindShellByName(ctx context.Context, name string) (inventory.Product, error) {
	return findShellByName(ctx, ts.tx, name)
}

func (ts *txStore) UpdateProductStock(ctx context.Context, id inventory.ProductID, expectedVersion int64, newStock decimal.Decimal) error {
	return updateProductStock(ctx, ts.tx, id, expectedVersion, newStock)
}

func (ts *txStore) IncrementProductStock(ctx context.Context, id inventory.ProductID, delta decimal.Decimal) (decimal.Decimal, error) {
	return incrementProductStock(ctx, ts.tx, id, delta)
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

const productColumns = `id, category, name, description, unit_price::text, stock::text,
	attributes, COALESCE(linked_shell_id, ''), version, created_at, updated_at`

func getProduct(ctx context.Context, q querier, id inventory.ProductID) (inventory.Product, error) {
	p, err := scanProduct(q.QueryRow(ctx, "SELECT "+productColumns+" FROM products WHERE id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return inventory.Product{}, inventory.ErrProductNotFound
	}
	return p, err
}

func findShellByName(ctx context.Context, q querier, name string) (inventory.Product, error) {
	rows, err := q.Query(ctx,
		"SELECT "+productColumns+" FROM products WHERE category = $1 AND name_key = $2 LIMIT 3",
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

func updateProductStock(ctx context.Context, q querier, id inventory.ProductID, expectedVersion int64, newStock decimal.Decimal) error {
	tag, err := q.Exec(ctx,
		`UPDATE products SET stock = $3::numeric, version = version + 1, updated_at = now()
		 WHERE id = $1 AND version = $2`,
		id, expectedVersion, newStock.String())
	if err != nil {
		return mapError(fmt.Errorf("failed to update stock: %w", err))
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var version int64
	err = q.QueryRow(ctx, "SELECT version FROM products WHERE id = $1", id).Scan(&version)
	if errors.Is(err, pgx.ErrNoRows) {
		return inventory.ErrProductNotFound
	}
	if err != nil {
		return mapError(err)
	}
	return fmt.Errorf("%w: product %s is at version %d, expected %d",
		inventory.ErrConcurrentModification, id, version, expectedVersion)
}

func incrementProductStock(ctx context.Context, q querier, id inventory.ProductID, delta decimal.Decimal) (decimal.Decimal, error) {
	var raw string
	err := q.QueryRow(ctx,
		`UPDATE products SET stock = stock + $2::numeric, version = version + 1, updated_at = now()
		 WHERE id = $1 RETURNING stock::text`,
		id, delta.String()).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.Decimal{}, inventory.ErrProductNotFound
	}
	if err != nil {
		return decimal.Decimal{}, mapError(fmt.Errorf("failed to increment stock: %w", err))
	}
	return decimal.NewFromString(raw)
}

func scanProduct(row pgx.Row) (inventory.Product, error) {
	var (
		p          inventory.Product
		unitPrice  string
		stock      string
		attributes []byte
		linked     string
	)
	err := row.Scan(&p.ID, &p.Category, &p.Name, &p.Description, &unitPrice, &stock,
		&attributes, &linked, &p.Version, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return p, err
		}
		return p, mapError(fmt.Errorf("failed to scan product: %w", err))
	}
	p.UnitPrice = parseDecimal(unitPrice)
	p.Stock = parseDecimal(stock)
	p.LinkedShellID = inventory.ProductID(linked)
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	if len(attributes) > 0 {
		if err := json.Unmarshal(attributes, &p.Attributes); err != nil {
			return p, fmt.Errorf("corrupt attributes for product %s: %w", p.ID, err)
		}
	}
	return p, nil
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

const transactionColumns = `id, kind, product_id, COALESCE(stock_product_id, ''), COALESCE(client_id, ''), COALESCE(supplier_id, ''),
	quantity::text, unit_price::text, total::text, date, COALESCE(notes, ''), created_at`

func getTransaction(ctx context.Context, q querier, id inventory.TransactionID) (inventory.Transaction, error) {
	tx, err := scanTransaction(q.QueryRow(ctx, "SELECT "+transactionColumns+" FROM transactions WHERE id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return inventory.Transaction{}, inventory.ErrTransactionNotFound
	}
	return tx, err
}

func insertTransaction(ctx context.Context, q querier, tx inventory.Transaction) (inventory.TransactionID, error) {
	if tx.ID == "" {
		tx.ID = inventory.TransactionID(uuid.NewString())
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now()
	}
	_, err := q.Exec(ctx, `
		INSERT INTO transactions
		(id, kind, product_id, client_id, supplier_id, quantity, unit_price, total, date, notes, created_at, stock_product_id)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), $6::numeric, $7::numeric, $8::numeric, $9, NULLIF($10, ''), $11, NULLIF($12, ''))`,
		tx.ID,
		tx.Kind,
		tx.ProductID,
		tx.ClientID,
		tx.SupplierID,
		tx.Quantity.String(),
		tx.UnitPrice.String(),
		tx.Total.String(),
		inventory.DateOnly(tx.Date),
		tx.Notes,
		tx.CreatedAt.UTC(),
		tx.StockProductID,
	)
	if err != nil {
		return "", mapError(fmt.Errorf("failed to insert transaction: %w", err))
	}
	return tx.ID, nil
}

func updateTransaction(ctx context.Context, q querier, tx inventory.Transaction) error {
	tag, err := q.Exec(ctx, `
		UPDATE transactions
		SET kind = $2, product_id = $3, client_id = NULLIF($4, ''), supplier_id = NULLIF($5, ''),
		    quantity = $6::numeric, unit_price = $7::numeric, total = $8::numeric,
		    date = $9, notes = NULLIF($10, ''), stock_product_id = NULLIF($11, '')
		WHERE id = $1`,
		tx.ID,
		tx.Kind,
		tx.ProductID,
		tx.ClientID,
		tx.SupplierID,
		tx.Quantity.String(),
		tx.UnitPrice.String(),
		tx.Total.String(),
		inventory.DateOnly(tx.Date),
		tx.Notes,
		tx.StockProductID,
	)
	if err != nil {
		return mapError(fmt.Errorf("failed to update transaction: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return inventory.ErrTransactionNotFound
	}
	return nil
}

func deleteTransaction(ctx context.Context, q querier, id inventory.TransactionID) error {
	tag, err := q.Exec(ctx, "DELETE FROM transactions WHERE id = $1", id)
	if err != nil {
		return mapError(fmt.Errorf("failed to delete transaction: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return inventory.ErrTransactionNotFound
	}
	return nil
}

func scanTransaction(row pgx.Row) (inventory.Transaction, error) {
	var (
		tx                     inventory.Transaction
		stockID                string
		clientID, supplierID   string
		quantity, price, total string
	)
	err := row.Scan(&tx.ID, &tx.Kind, &tx.ProductID, &stockID, &clientID, &supplierID,
		&quantity, &price, &total, &tx.Date, &tx.Notes, &tx.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return tx, err
		}
		return tx, mapError(fmt.Errorf("failed to scan transaction: %w", err))
	}
	tx.StockProductID = inventory.ProductID(stockID)
	tx.ClientID = inventory.ClientID(clientID)
	tx.SupplierID = inventory.SupplierID(supplierID)
	tx.Quantity = parseDecimal(quantity)
	tx.UnitPrice = parseDecimal(price)
	tx.Total = parseDecimal(total)
	tx.Date = inventory.DateOnly(tx.Date)
	tx.CreatedAt = tx.CreatedAt.UTC()
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

	var attributes []byte
	if len(p.Attributes) > 0 {
		if attributes, err = json.Marshal(p.Attributes); err != nil {
			return inventory.Product{}, fmt.Errorf("failed to encode attributes: %w", err)
		}
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO products
		(id, category, name, name_key, description, unit_price, stock,
		 attributes, linked_shell_id, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6::numeric, $7::numeric, $8, NULLIF($9, ''), $10, $11, $12)`,
		p.ID,
		p.Category,
		p.Name,
		inventory.NormalizeName(p.Name),
		p.Description,
		p.UnitPrice.String(),
		p.Stock.String(),
		attributes,
		p.LinkedShellID,
		p.Version,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		return inventory.Product{}, mapError(fmt.Errorf("failed to insert product: %w", err))
	}
	return p, nil
}

func (s *Store) ListProducts(ctx context.Context, filter inventory.ProductFilter) ([]inventory.Product, error) {
	var (
		where []string
		args  []any
	)
	if filter.Category != "" {
		args = append(args, filter.Category)
		where = append(where, fmt.Sprintf("category = $%d", len(args)))
	}
	if filter.StockBelow != nil {
		args = append(args, filter.StockBelow.String())
		where = append(where, fmt.Sprintf("stock < $%d::numeric", len(args)))
	}

	query := "SELECT " + productColumns + " FROM products"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY name, id"

	rows, err := s.pool.Query(ctx, query, args...)
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
		// Folded-name matching stays in Go so every store agrees on it.
		if filter.MatchesProduct(p) {
			products = append(products, p)
		}
	}
	return products, rows.Err()
}

func (s *Store) SetLinkedShell(ctx context.Context, id inventory.ProductID, shellID inventory.ProductID) error {
	tag, err := s.pool.Exec(ctx,
		"UPDATE products SET linked_shell_id = NULLIF($2, ''), updated_at = now() WHERE id = $1",
		id, shellID)
	if err != nil {
		return mapError(fmt.Errorf("failed to link shell: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return inventory.ErrProductNotFound
	}
	return nil
}

func (s *Store) CreateClient(ctx context.Context, c inventory.Client) (inventory.Client, error) {
	c, err := inventory.PrepareClient(c, s.now())
	if err != nil {
		return inventory.Client{}, err
	}
	return c, insertParty(ctx, s.pool, "clients", string(c.ID), c.Name, c.Contact, c.Phone, c.Email, c.CreatedAt)
}

func (s *Store) ListClients(ctx context.Context) ([]inventory.Client, error) {
	parties, err := listParties(ctx, s.pool, "clients")
	if err != nil {
		return nil, err
	}
	out := make([]inventory.Client, 0, len(parties))
	for _, p := range parties {
		out = append(out, p.client())
	}
	return out, nil
}

func (s *Store) CreateSupplier(ctx context.Context, sup inventory.Supplier) (inventory.Supplier, error) {
	sup, err := inventory.PrepareSupplier(sup, s.now())
	if err != nil {
		return inventory.Supplier{}, err
	}
	return sup, insertParty(ctx, s.pool, "suppliers", string(sup.ID), sup.Name, sup.Contact, sup.Phone, sup.Email, sup.CreatedAt)
}

func (s *Store) ListSuppliers(ctx context.Context) ([]inventory.Supplier, error) {
	parties, err := listParties(ctx, s.pool, "suppliers")
	if err != nil {
		return nil, err
	}
	out := make([]inventory.Supplier, 0, len(parties))
	for _, p := range parties {
		out = append(out, p.supplier())
	}
	return out, nil
}

func (s *Store) ListTransactions(ctx context.Context, filter inventory.TransactionFilter) ([]inventory.Transaction, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if filter.Kind != "" {
		add("kind = $%d", filter.Kind)
	}
	if filter.ProductID != "" {
		add("product_id = $%d", filter.ProductID)
	}
	if !filter.From.IsZero() {
		add("date >= $%d", inventory.DateOnly(filter.From))
	}
	if !filter.To.IsZero() {
		add("date <= $%d", inventory.DateOnly(filter.To))
	}

	query := "SELECT " + transactionColumns + " FROM transactions"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY date DESC, created_at DESC, id DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
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

const partyColumns = "id, name, COALESCE(contact, ''), COALESCE(phone, ''), COALESCE(email, ''), created_at, updated_at"

type party struct {
	id, name, contact, phone, email string
	createdAt, updatedAt            time.Time
}

func (p party) client() inventory.Client {
	return inventory.Client{ID: inventory.ClientID(p.id), Name: p.name, Contact: p.contact,
		Phone: p.phone, Email: p.email, CreatedAt: p.createdAt.UTC(), UpdatedAt: p.updatedAt.UTC()}
}

func (p party) supplier() inventory.Supplier {
	return inventory.Supplier{ID: inventory.SupplierID(p.id), Name: p.name, Contact: p.contact,
		Phone: p.phone, Email: p.email, CreatedAt: p.createdAt.UTC(), UpdatedAt: p.updatedAt.UTC()}
}

func insertParty(ctx context.Context, q querier, table, id, name, contact, phone, email string, at time.Time) error {
	_, err := q.Exec(ctx,
		"INSERT INTO "+table+" (id, name, contact, phone, email, created_at, updated_at)"+
			" VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, ''), $6, $6)",
		id, name, contact, phone, email, at)
	if err != nil {
		return mapError(fmt.Errorf("failed to insert into %s: %w", table, err))
	}
	return nil
}

func scanParty(row pgx.Row) (party, error) {
	var p party
	err := row.Scan(&p.id, &p.name, &p.contact, &p.phone, &p.email, &p.createdAt, &p.updatedAt)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return p, mapError(fmt.Errorf("failed to scan counterparty: %w", err))
	}
	return p, err
}

func listParties(ctx context.Context, q querier, table string) ([]party, error) {
	rows, err := q.Query(ctx, "SELECT "+partyColumns+" FROM "+table+" ORDER BY name, id")
	if err != nil {
		return nil, mapError(fmt.Errorf("failed to query %s: %w", table, err))
	}
	defer rows.Close()
	var out []party
	for rows.Next() {
		p, err := scanParty(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func getClient(ctx context.Context, q querier, id inventory.ClientID) (inventory.Client, error) {
	p, err := scanParty(q.QueryRow(ctx, "SELECT "+partyColumns+" FROM clients WHERE id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return inventory.Client{}, inventory.ErrClientNotFound
	}
	if err != nil {
		return inventory.Client{}, err
	}
	return p.client(), nil
}

func getSupplier(ctx context.Context, q querier, id inventory.SupplierID) (inventory.Supplier, error) {
	p, err := scanParty(q.QueryRow(ctx, "SELECT "+partyColumns+" FROM suppliers WHERE id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
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
	_, err := s.pool.Exec(ctx, "TRUNCATE transactions, products, clients, suppliers")
	return err
}

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// PostgreSQL error codes the store translates.
const (
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeForeignKeyViolation  = "23503"
	codeUniqueViolation      = "23505"
)

// mapError translates server errors into domain errors.
func mapError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case codeSerializationFailure, codeDeadlockDetected:
		return fmt.Errorf("%w: %v", inventory.ErrConcurrentModification, err)
	case codeForeignKeyViolation:
		return fmt.Errorf("referenced record does not exist (%s): %w", pgErr.ConstraintName, err)
	case codeUniqueViolation:
		return fmt.Errorf("%w (%s): %v", inventory.ErrDuplicate, pgErr.ConstraintName, err)
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
