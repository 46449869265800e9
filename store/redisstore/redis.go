/*
Package redisstore keeps the inventory in Redis as JSON records.

PURPOSE:
  A key-value backend for the engine. Redis has no decimal arithmetic, so
  the store offers compare-and-swap stock writes only: the engine must run
  in cas mode (NewEngine rejects atomic mode for this store).

KEYS (all under a configurable prefix):
  {p}:product:{id}        product JSON
  {p}:products            set of product ids
  {p}:shellname:{key}     set of shell ids sharing a normalized name
  {p}:tx:{id}             transaction JSON
  {p}:txs                 set of transaction ids
  {p}:client:{id}         client JSON      ({p}:clients set)
  {p}:supplier:{id}       supplier JSON    ({p}:suppliers set)

TRANSACTIONS:
  WithTx uses optimistic locking: every key read through the view is
  WATCHed first, writes are buffered in the view and sent in one
  MULTI/EXEC. If another client touched a watched key EXEC aborts and the
  store returns inventory.ErrConcurrentModification; the engine re-runs
  the operation.

SEE ALSO:
  - inventory/store.go: Interface definitions
  - store/sqlite: Relational counterpart
*/
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/warp/stock-engine/inventory"
)

// Store implements inventory.Store on Redis.
type Store struct {
	rdb    *redis.Client
	prefix string
	now    func() time.Time
}

// New connects to addr and checks the connection.
func New(ctx context.Context, addr, prefix string) (*Store, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redisstore: ping: %w", err)
	}
	return NewFromClient(rdb, prefix), nil
}

// NewFromClient wraps an existing client.
func NewFromClient(rdb *redis.Client, prefix string) *Store {
	if prefix == "" {
		prefix = "stock"
	}
	return &Store{rdb: rdb, prefix: prefix, now: time.Now}
}

func (s *Store) Close() error {
	return s.rdb.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func (s *Store) key(parts ...string) string {
	return s.prefix + ":" + strings.Join(parts, ":")
}

func (s *Store) productKey(id inventory.ProductID) string { return s.key("product", string(id)) }
func (s *Store) txKey(id inventory.TransactionID) string { return s.key("tx", string(id)) }
func (s *Store) clientKey(id inventory.ClientID) string { return s.key("client", string(id)) }
func (s *Store) supplierKey(id inventory.SupplierID) string { return s.key("supplier", string(id)) }
func (s *Store) shellNameKey(name string) string {
	return s.key("shellname", inventory.NormalizeName(name))
}

// =============================================================================
// RECORDS - JSON shapes stored under each key
// =============================================================================

type productRecord struct {
	ID            inventory.ProductID `json:"id"`
	Category      inventory.Category  `json:"category"`
	Name          string              `json:"name"`
	Description   string              `json:"description,omitempty"`
	UnitPrice     decimal.Decimal     `json:"unit_price"`
	Stock         decimal.Decimal     `json:"stock"`
	Attributes    map[string]any      `json:"attributes,omitempty"`
	LinkedShellID inventory.ProductID `json:"linked_shell_id,omitempty"`
	Version       int64               `json:"version"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

func toProductRecord(p inventory.Product) productRecord {
	return productRecord{
		ID: p.ID, Category: p.Category, Name: p.Name, Description: p.Description,
		UnitPrice: p.UnitPrice, Stock: p.Stock, Attributes: p.Attributes,
		LinkedShellID: p.LinkedShellID, Version: p.Version,
		CreatedAt: p.CreatedAt, UpdatedAt: p.UpdatedAt,
	}
}

func (r productRecord) product() inventory.Product {
	return inventory.Product{
		ID: r.ID, Category: r.Category, Name: r.Name, Description: r.Description,
		UnitPrice: r.UnitPrice, Stock: r.Stock, Attributes: r.Attributes,
		LinkedShellID: r.LinkedShellID, Version: r.Version,
		CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
	}
}

type transactionRecord struct {
	ID             inventory.TransactionID `json:"id"`
	Kind           inventory.Kind          `json:"kind"`
	ProductID      inventory.ProductID     `json:"product_id"`
	StockProductID inventory.ProductID     `json:"stock_product_id,omitempty"`
	ClientID       inventory.ClientID      `json:"client_id,omitempty"`
	SupplierID     inventory.SupplierID    `json:"supplier_id,omitempty"`
	Quantity       decimal.Decimal         `json:"quantity"`
	UnitPrice      decimal.Decimal         `json:"unit_price"`
	Total          decimal.Decimal         `json:"total"`
	Date           string                  `json:"date"`
	Notes          string                  `json:"notes,omitempty"`
	CreatedAt      time.Time               `json:"created_at"`
}

const dateLayout = "2006-01-02"

func toTransactionRecord(tx inventory.Transaction) transactionRecord {
	return transactionRecord{
		ID: tx.ID, Kind: tx.Kind, ProductID: tx.ProductID, StockProductID: tx.StockProductID,
		ClientID: tx.ClientID, SupplierID: tx.SupplierID,
		Quantity: tx.Quantity, UnitPrice: tx.UnitPrice, Total: tx.Total,
		Date: tx.Date.UTC().Format(dateLayout), Notes: tx.Notes, CreatedAt: tx.CreatedAt,
	}
}

func (r transactionRecord) transaction() inventory.Transaction {
	date, _ := time.Parse(dateLayout, r.Date)
	return inventory.Transaction{
		ID: r.ID, Kind: r.Kind, ProductID: r.ProductID, StockProductID: r.StockProductID,
		ClientID: r.ClientID, SupplierID: r.SupplierID,
		Quantity: r.Quantity, UnitPrice: r.UnitPrice, Total: r.Total,
		Date: date, Notes: r.Notes, CreatedAt: r.CreatedAt,
	}
}

// partyRecord is shared by clients and suppliers.
type partyRecord struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Contact   string    `json:"contact,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Email     string    `json:"email,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (r partyRecord) client() inventory.Client {
	return inventory.Client{ID: inventory.ClientID(r.ID), Name: r.Name, Contact: r.Contact,
		Phone: r.Phone, Email: r.Email, CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt}
}

func (r partyRecord) supplier() inventory.Supplier {
	return inventory.Supplier{ID: inventory.SupplierID(r.ID), Name: r.Name, Contact: r.Contact,
		Phone: r.Phone, Email: r.Email, CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt}
}

// =============================================================================
// VIEW - Watched reads, buffered writes
// =============================================================================

// reader is satisfied by *redis.Client and *redis.Tx.
type reader interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	SMembers(ctx context.Context, key string) *redis.StringSliceCmd
}

type setOp struct {
	add         bool
	key, member string
}

type view struct {
	s       *Store
	tx      *redis.Tx // nil: plain reads, no writes
	pending map[string][]byte
	order   []string
	sets    []setOp
}

func (s *Store) newView(tx *redis.Tx) *view {
	return &view{s: s, tx: tx, pending: map[string][]byte{}}
}

func (v *view) conn(ctx context.Context, key string) (reader, error) {
	if v.tx == nil {
		return v.s.rdb, nil
	}
	if err := v.tx.Watch(ctx, key).Err(); err != nil {
		return nil, fmt.Errorf("failed to watch %s: %w", key, err)
	}
	return v.tx, nil
}

// get returns the raw value of key, honoring writes buffered in the view.
func (v *view) get(ctx context.Context, key string) ([]byte, bool, error) {
	if b, ok := v.pending[key]; ok {
		return b, b != nil, nil
	}
	c, err := v.conn(ctx, key)
	if err != nil {
		return nil, false, err
	}
	b, err := c.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return b, true, nil
}

func (v *view) getJSON(ctx context.Context, key string, out any) (bool, error) {
	b, ok, err := v.get(ctx, key)
	if err != nil || !ok {
		return ok, err
	}
	if err := json.Unmarshal(b, out); err != nil {
		return false, fmt.Errorf("corrupt record %s: %w", key, err)
	}
	return true, nil
}

func (v *view) members(ctx context.Context, key string) ([]string, error) {
	c, err := v.conn(ctx, key)
	if err != nil {
		return nil, err
	}
	ids, err := c.SMembers(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return ids, nil
}

func (v *view) putJSON(key string, value any) error {
	b, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	v.stage(key, b)
	return nil
}

func (v *view) del(key string) { v.stage(key, nil) }

func (v *view) stage(key string, b []byte) {
	if _, seen := v.pending[key]; !seen {
		v.order = append(v.order, key)
	}
	v.pending[key] = b
}

func (v *view) sadd(key, member string) { v.sets = append(v.sets, setOp{add: true, key: key, member: member}) }
func (v *view) srem(key, member string) { v.sets = append(v.sets, setOp{key: key, member: member}) }

// flush sends the buffered writes in one MULTI/EXEC.
func (v *view) flush(ctx context.Context) error {
	if len(v.order) == 0 && len(v.sets) == 0 {
		return nil
	}
	_, err := v.tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, key := range v.order {
			if b := v.pending[key]; b != nil {
				pipe.Set(ctx, key, b, 0)
			} else {
				pipe.Del(ctx, key)
			}
		}
		for _, op := range v.sets {
			if op.add {
				pipe.SAdd(ctx, op.key, op.member)
			} else {
				pipe.SRem(ctx, op.key, op.member)
			}
		}
		return nil
	})
	if errors.Is(err, redis.TxFailedErr) {
		return fmt.Errorf("%w: watched keys changed before commit", inventory.ErrConcurrentModification)
	}
	if err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// update runs fn against a transactional view and commits its writes.
func (s *Store) update(ctx context.Context, fn func(*view) error) error {
	return s.rdb.Watch(ctx, func(tx *redis.Tx) error {
		v := s.newView(tx)
		if err := fn(v); err != nil {
			return err
		}
		return v.flush(ctx)
	})
}

// WithTx implements inventory.TxStore.
func (s *Store) WithTx(ctx context.Context, fn func(inventory.EntityStore) error) error {
	return s.update(ctx, func(v *view) error { return fn(v) })
}

// =============================================================================
// ENTITY STORE (view)
// =============================================================================

func (v *view) GetProduct(ctx context.Context, id inventory.ProductID) (inventory.Product, error) {
	var rec productRecord
	ok, err := v.getJSON(ctx, v.s.productKey(id), &rec)
	if err != nil {
		return inventory.Product{}, err
	}
	if !ok {
		return inventory.Product{}, inventory.ErrProductNotFound
	}
	return rec.product(), nil
}

func (v *view) FindShellByName(ctx context.Context, name string) (inventory.Product, error) {
	ids, err := v.members(ctx, v.s.shellNameKey(name))
	if err != nil {
		return inventory.Product{}, err
	}
	var matches []inventory.Product
	for _, id := range ids {
		p, err := v.GetProduct(ctx, inventory.ProductID(id))
		if errors.Is(err, inventory.ErrProductNotFound) {
			continue
		}
		if err != nil {
			return inventory.Product{}, err
		}
		if p.Category == inventory.CategoryShell {
			matches = append(matches, p)
		}
	}
	switch len(matches) {
	case 0:
		return inventory.Product{}, inventory.ErrProductNotFound
	case 1:
		return matches[0], nil
	}
	return inventory.Product{}, &inventory.ShellResolutionError{Name: name, Matches: len(matches)}
}

func (v *view) UpdateProductStock(ctx context.Context, id inventory.ProductID, expectedVersion int64, newStock decimal.Decimal) error {
	p, err := v.GetProduct(ctx, id)
	if err != nil {
		return err
	}
	if p.Version != expectedVersion {
		return fmt.Errorf("%w: product %s is at version %d, expected %d",
			inventory.ErrConcurrentModification, id, p.Version, expectedVersion)
	}
	p.Stock = newStock
	p.Version++
	p.UpdatedAt = v.s.now().UTC()
	return v.putJSON(v.s.productKey(id), toProductRecord(p))
}

func (v *view) GetTransaction(ctx context.Context, id inventory.TransactionID) (inventory.Transaction, error) {
	var rec transactionRecord
	ok, err := v.getJSON(ctx, v.s.txKey(id), &rec)
	if err != nil {
		return inventory.Transaction{}, err
	}
	if !ok {
		return inventory.Transaction{}, inventory.ErrTransactionNotFound
	}
	return rec.transaction(), nil
}

func (v *view) InsertTransaction(ctx context.Context, tx inventory.Transaction) (inventory.TransactionID, error) {
	if tx.ID == "" {
		tx.ID = inventory.TransactionID(uuid.NewString())
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = v.s.now().UTC()
	}
	_, exists, err := v.get(ctx, v.s.txKey(tx.ID))
	if err != nil {
		return "", err
	}
	if exists {
		return "", fmt.Errorf("%w: transaction %s", inventory.ErrDuplicate, tx.ID)
	}
	if err := v.putJSON(v.s.txKey(tx.ID), toTransactionRecord(tx)); err != nil {
		return "", err
	}
	v.sadd(v.s.key("txs"), string(tx.ID))
	return tx.ID, nil
}

func (v *view) UpdateTransaction(ctx context.Context, tx inventory.Transaction) error {
	if _, err := v.GetTransaction(ctx, tx.ID); err != nil {
		return err
	}
	return v.putJSON(v.s.txKey(tx.ID), toTransactionRecord(tx))
}

func (v *view) DeleteTransaction(ctx context.Context, id inventory.TransactionID) error {
	if _, err := v.GetTransaction(ctx, id); err != nil {
		return err
	}
	v.del(v.s.txKey(id))
	v.srem(v.s.key("txs"), string(id))
	return nil
}

func (v *view) GetClient(ctx context.Context, id inventory.ClientID) (inventory.Client, error) {
	var rec partyRecord
	ok, err := v.getJSON(ctx, v.s.clientKey(id), &rec)
	if err != nil {
		return inventory.Client{}, err
	}
	if !ok {
		return inventory.Client{}, inventory.ErrClientNotFound
	}
	return rec.client(), nil
}

func (v *view) GetSupplier(ctx context.Context, id inventory.SupplierID) (inventory.Supplier, error) {
	var rec partyRecord
	ok, err := v.getJSON(ctx, v.s.supplierKey(id), &rec)
	if err != nil {
		return inventory.Supplier{}, err
	}
	if !ok {
		return inventory.Supplier{}, inventory.ErrSupplierNotFound
	}
	return rec.supplier(), nil
}

// =============================================================================
// ENTITY STORE (Store) - reads go straight to Redis, writes through update
// =============================================================================

func (s *Store) GetProduct(ctx context.Context, id inventory.ProductID) (inventory.Product, error) {
	return s.newView(nil).GetProduct(ctx, id)
}

func (s *Store) FindShellByName(ctx context.Context, name string) (inventory.Product, error) {
	return s.newView(nil).FindShellByName(ctx, name)
}

func (s *Store) UpdateProductStock(ctx context.Context, id inventory.ProductID, expectedVersion int64, newStock decimal.Decimal) error {
	return s.update(ctx, func(v *view) error {
		return v.UpdateProductStock(ctx, id, expectedVersion, newStock)
	})
}

func (s *Store) GetTransaction(ctx context.Context, id inventory.TransactionID) (inventory.Transaction, error) {
	return s.newView(nil).GetTransaction(ctx, id)
}

func (s *Store) InsertTransaction(ctx context.Context, tx inventory.Transaction) (inventory.TransactionID, error) {
	var id inventory.TransactionID
	err := s.update(ctx, func(v *view) error {
		var err error
		id, err = v.InsertTransaction(ctx, tx)
		return err
	})
	return id, err
}

func (s *Store) UpdateTransaction(ctx context.Context, tx inventory.Transaction) error {
	return s.update(ctx, func(v *view) error { return v.UpdateTransaction(ctx, tx) })
}

func (s *Store) DeleteTransaction(ctx context.Context, id inventory.TransactionID) error {
	return s.update(ctx, func(v *view) error { return v.DeleteTransaction(ctx, id) })
}

func (s *Store) GetClient(ctx context.Context, id inventory.ClientID) (inventory.Client, error) {
	return s.newView(nil).GetClient(ctx, id)
}

func (s *Store) GetSupplier(ctx context.Context, id inventory.SupplierID) (inventory.Supplier, error) {
	return s.newView(nil).GetSupplier(ctx, id)
}

// =============================================================================
// CATALOG (inventory.Catalog interface)
// =============================================================================

func (s *Store) CreateProduct(ctx context.Context, p inventory.Product) (inventory.Product, error) {
	p, err := inventory.PrepareProduct(p, s.now())
	if err != nil {
		return inventory.Product{}, err
	}
	err = s.update(ctx, func(v *view) error {
		key := s.productKey(p.ID)
		if _, exists, err := v.get(ctx, key); err != nil {
			return err
		} else if exists {
			return fmt.Errorf("%w: product %s", inventory.ErrDuplicate, p.ID)
		}
		if err := v.putJSON(key, toProductRecord(p)); err != nil {
			return err
		}
		v.sadd(s.key("products"), string(p.ID))
		if p.Category == inventory.CategoryShell {
			v.sadd(s.shellNameKey(p.Name), string(p.ID))
		}
		return nil
	})
	if err != nil {
		return inventory.Product{}, err
	}
	return p, nil
}

func (s *Store) ListProducts(ctx context.Context, filter inventory.ProductFilter) ([]inventory.Product, error) {
	var out []inventory.Product
	err := s.loadAll(ctx, "products", "product", func(raw []byte) error {
		var rec productRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return err
		}
		if p := rec.product(); filter.MatchesProduct(p) {
			out = append(out, p)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, err
}

func (s *Store) SetLinkedShell(ctx context.Context, id inventory.ProductID, shellID inventory.ProductID) error {
	return s.update(ctx, func(v *view) error {
		p, err := v.GetProduct(ctx, id)
		if err != nil {
			return err
		}
		p.LinkedShellID = shellID
		p.UpdatedAt = s.now().UTC()
		return v.putJSON(s.productKey(id), toProductRecord(p))
	})
}

func (s *Store) CreateClient(ctx context.Context, c inventory.Client) (inventory.Client, error) {
	c, err := inventory.PrepareClient(c, s.now())
	if err != nil {
		return inventory.Client{}, err
	}
	rec := partyRecord{ID: string(c.ID), Name: c.Name, Contact: c.Contact, Phone: c.Phone,
		Email: c.Email, CreatedAt: c.CreatedAt, UpdatedAt: c.UpdatedAt}
	return c, s.createParty(ctx, "client", "clients", rec)
}

func (s *Store) CreateSupplier(ctx context.Context, sup inventory.Supplier) (inventory.Supplier, error) {
	sup, err := inventory.PrepareSupplier(sup, s.now())
	if err != nil {
		return inventory.Supplier{}, err
	}
	rec := partyRecord{ID: string(sup.ID), Name: sup.Name, Contact: sup.Contact, Phone: sup.Phone,
		Email: sup.Email, CreatedAt: sup.CreatedAt, UpdatedAt: sup.UpdatedAt}
	return sup, s.createParty(ctx, "supplier", "suppliers", rec)
}

func (s *Store) createParty(ctx context.Context, kind, set string, rec partyRecord) error {
	return s.update(ctx, func(v *view) error {
		if err := v.putJSON(s.key(kind, rec.ID), rec); err != nil {
			return err
		}
		v.sadd(s.key(set), rec.ID)
		return nil
	})
}

func (s *Store) ListClients(ctx context.Context) ([]inventory.Client, error) {
	parties, err := s.listParties(ctx, "clients", "client")
	out := make([]inventory.Client, 0, len(parties))
	for _, p := range parties {
		out = append(out, p.client())
	}
	return out, err
}

func (s *Store) ListSuppliers(ctx context.Context) ([]inventory.Supplier, error) {
	parties, err := s.listParties(ctx, "suppliers", "supplier")
	out := make([]inventory.Supplier, 0, len(parties))
	for _, p := range parties {
		out = append(out, p.supplier())
	}
	return out, err
}

func (s *Store) listParties(ctx context.Context, set, kind string) ([]partyRecord, error) {
	var out []partyRecord
	err := s.loadAll(ctx, set, kind, func(raw []byte) error {
		var rec partyRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return err
		}
		out = append(out, rec)
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, err
}

func (s *Store) ListTransactions(ctx context.Context, filter inventory.TransactionFilter) ([]inventory.Transaction, error) {
	var out []inventory.Transaction
	err := s.loadAll(ctx, "txs", "tx", func(raw []byte) error {
		var rec transactionRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return err
		}
		if tx := rec.transaction(); filter.MatchesTransaction(tx) {
			out = append(out, tx)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	inventory.SortTransactions(out)
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// loadAll reads every record whose id is in {p}:{set}, one MGET.
func (s *Store) loadAll(ctx context.Context, set, kind string, fn func([]byte) error) error {
	ids, err := s.rdb.SMembers(ctx, s.key(set)).Result()
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", set, err)
	}
	if len(ids) == 0 {
		return nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.key(kind, id)
	}
	values, err := s.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", set, err)
	}
	for i, value := range values {
		raw, ok := value.(string)
		if !ok {
			continue // deleted between SMEMBERS and MGET
		}
		if err := fn([]byte(raw)); err != nil {
			return fmt.Errorf("corrupt record %s: %w", keys[i], err)
		}
	}
	return nil
}

// Reset deletes every key under the prefix.
func (s *Store) Reset(ctx context.Context) error {
	iter := s.rdb.Scan(ctx, 0, s.prefix+":*", 100).Iterator()
	var batch []string
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan keys: %w", err)
	}
	if len(batch) == 0 {
		return nil
	}
	return s.rdb.Del(ctx, batch...).Err()
}

var (
	_ inventory.Store              = (*Store)(nil)
	_ inventory.CounterpartyLookup = (*Store)(nil)
	_ inventory.Resetter           = (*Store)(nil)
	_ inventory.CounterpartyLookup = (*view)(nil)
)
