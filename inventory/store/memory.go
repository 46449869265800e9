// Package store provides the in-memory inventory store.
package store

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/warp/stock-engine/inventory"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory implements inventory.Store, inventory.StockIncrementer and
// inventory.Resetter. Safe for concurrent use. It does not enforce
// references between records.
type Memory struct {
	mu           sync.RWMutex
	products     map[inventory.ProductID]inventory.Product
	transactions map[inventory.TransactionID]inventory.Transaction
	clients      map[inventory.ClientID]inventory.Client
	suppliers    map[inventory.SupplierID]inventory.Supplier
	now          func() time.Time
}

func NewMemory() *Memory {
	m := &Memory{now: time.Now}
	m.clear()
	return m
}

func (m *Memory) clear() {
	m.products = make(map[inventory.ProductID]inventory.Product)
	m.transactions = make(map[inventory.TransactionID]inventory.Transaction)
	m.clients = make(map[inventory.ClientID]inventory.Client)
	m.suppliers = make(map[inventory.SupplierID]inventory.Supplier)
}

// view runs against the maps without locking; callers hold mu.
func (m *Memory) view() *memoryView { return &memoryView{m: m} }

// =============================================================================
// ENTITY STORE
// =============================================================================

func (m *Memory) GetProduct(ctx context.Context, id inventory.ProductID) (inventory.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.view().GetProduct(ctx, id)
}

func (m *Memory) FindShellByName(ctx context.Context, name string) (inventory.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.view().FindShellByName(ctx, name)
}

func (m *Memory) UpdateProductStock(ctx context.Context, id inventory.ProductID, expectedVersion int64, newStock decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.view().UpdateProductStock(ctx, id, expectedVersion, newStock)
}

func (m *Memory) IncrementProductStock(ctx context.Context, id inventory.ProductID, delta decimal.Decimal) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.view().IncrementProductStock(ctx, id, delta)
}

func (m *Memory) GetTransaction(ctx context.Context, id inventory.TransactionID) (inventory.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.view().GetTransaction(ctx, id)
}

func (m *Memory) InsertTransaction(ctx context.Context, tx inventory.Transaction) (inventory.TransactionID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.view().InsertTransaction(ctx, tx)
}

func (m *Memory) UpdateTransaction(ctx context.Context, tx inventory.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.view().UpdateTransaction(ctx, tx)
}

func (m *Memory) DeleteTransaction(ctx context.Context, id inventory.TransactionID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.view().DeleteTransaction(ctx, id)
}

func (m *Memory) GetClient(ctx context.Context, id inventory.ClientID) (inventory.Client, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.view().GetClient(ctx, id)
}

func (m *Memory) GetSupplier(ctx context.Context, id inventory.SupplierID) (inventory.Supplier, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.view().GetSupplier(ctx, id)
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// WithTx executes fn within a transaction.
// For memory store, this is simulated with a snapshot + rollback on error.
// The store is locked for the duration of fn.
func (m *Memory) WithTx(ctx context.Context, fn func(inventory.EntityStore) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.snapshot()
	if err := fn(m.view()); err != nil {
		m.restore(snapshot)
		return err
	}
	return nil
}

type memorySnapshot struct {
	products     map[inventory.ProductID]inventory.Product
	transactions map[inventory.TransactionID]inventory.Transaction
}

// snapshot copies what the engine writes. Clients and suppliers are never
// written inside a transaction.
func (m *Memory) snapshot() memorySnapshot {
	return memorySnapshot{
		products:     maps.Clone(m.products),
		transactions: maps.Clone(m.transactions),
	}
}

func (m *Memory) restore(s memorySnapshot) {
	m.products = s.products
	m.transactions = s.transactions
}

// =============================================================================
// CATALOG
// =============================================================================

func (m *Memory) CreateProduct(_ context.Context, p inventory.Product) (inventory.Product, error) {
	p, err := inventory.PrepareProduct(p, m.now())
	if err != nil {
		return inventory.Product{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.products[p.ID]; exists {
		return inventory.Product{}, fmt.Errorf("%w: product %s", inventory.ErrDuplicate, p.ID)
	}
	m.products[p.ID] = p
	return cloneProduct(p), nil
}

func (m *Memory) ListProducts(_ context.Context, filter inventory.ProductFilter) ([]inventory.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []inventory.Product
	for _, p := range m.products {
		if filter.MatchesProduct(p) {
			out = append(out, cloneProduct(p))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *Memory) SetLinkedShell(_ context.Context, id inventory.ProductID, shellID inventory.ProductID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return inventory.ErrProductNotFound
	}
	p.LinkedShellID = shellID
	p.UpdatedAt = m.now().UTC()
	m.products[id] = p
	return nil
}

func (m *Memory) CreateClient(_ context.Context, c inventory.Client) (inventory.Client, error) {
	c, err := inventory.PrepareClient(c, m.now())
	if err != nil {
		return inventory.Client{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.clients[c.ID]; exists {
		return inventory.Client{}, fmt.Errorf("%w: client %s", inventory.ErrDuplicate, c.ID)
	}
	m.clients[c.ID] = c
	return c, nil
}

func (m *Memory) ListClients(_ context.Context) ([]inventory.Client, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]inventory.Client, 0, len(m.clients))
	for _, c := range m.clients {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *Memory) CreateSupplier(_ context.Context, s inventory.Supplier) (inventory.Supplier, error) {
	s, err := inventory.PrepareSupplier(s, m.now())
	if err != nil {
		return inventory.Supplier{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.suppliers[s.ID]; exists {
		return inventory.Supplier{}, fmt.Errorf("%w: supplier %s", inventory.ErrDuplicate, s.ID)
	}
	m.suppliers[s.ID] = s
	return s, nil
}

func (m *Memory) ListSuppliers(_ context.Context) ([]inventory.Supplier, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]inventory.Supplier, 0, len(m.suppliers))
	for _, s := range m.suppliers {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *Memory) ListTransactions(_ context.Context, filter inventory.TransactionFilter) ([]inventory.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []inventory.Transaction
	for _, tx := range m.transactions {
		if filter.MatchesTransaction(tx) {
			out = append(out, tx)
		}
	}
	inventory.SortTransactions(out)
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// Reset removes every record.
func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clear()
	return nil
}

// =============================================================================
// VIEW - Unlocked operations shared by Memory and WithTx
// =============================================================================

type memoryView struct {
	m *Memory
}

func (v *memoryView) GetProduct(_ context.Context, id inventory.ProductID) (inventory.Product, error) {
	p, ok := v.m.products[id]
	if !ok {
		return inventory.Product{}, inventory.ErrProductNotFound
	}
	return cloneProduct(p), nil
}

func (v *memoryView) FindShellByName(_ context.Context, name string) (inventory.Product, error) {
	key := inventory.NormalizeName(name)
	var matches []inventory.Product
	for _, p := range v.m.products {
		if p.Category == inventory.CategoryShell && inventory.NormalizeName(p.Name) == key {
			matches = append(matches, p)
		}
	}
	switch len(matches) {
	case 0:
		return inventory.Product{}, inventory.ErrProductNotFound
	case 1:
		return cloneProduct(matches[0]), nil
	}
	return inventory.Product{}, &inventory.ShellResolutionError{Name: name, Matches: len(matches)}
}

func (v *memoryView) UpdateProductStock(_ context.Context, id inventory.ProductID, expectedVersion int64, newStock decimal.Decimal) error {
	p, ok := v.m.products[id]
	if !ok {
		return inventory.ErrProductNotFound
	}
	if p.Version != expectedVersion {
		return fmt.Errorf("%w: product %s is at version %d, expected %d",
			inventory.ErrConcurrentModification, id, p.Version, expectedVersion)
	}
	p.Stock = newStock
	p.Version++
	p.UpdatedAt = v.m.now().UTC()
	v.m.products[id] = p
	return nil
}

func (v *memoryView) IncrementProductStock(_ context.Context, id inventory.ProductID, delta decimal.Decimal) (decimal.Decimal, error) {
	p, ok := v.m.products[id]
	if !ok {
		return decimal.Decimal{}, inventory.ErrProductNotFound
	}
	p.Stock = p.Stock.Add(delta)
	p.Version++
	p.UpdatedAt = v.m.now().UTC()
	v.m.products[id] = p
	return p.Stock, nil
}

func (v *memoryView) GetTransaction(_ context.Context, id inventory.TransactionID) (inventory.Transaction, error) {
	tx, ok := v.m.transactions[id]
	if !ok {
		return inventory.Transaction{}, inventory.ErrTransactionNotFound
	}
	return tx, nil
}

func (v *memoryView) InsertTransaction(_ context.Context, tx inventory.Transaction) (inventory.TransactionID, error) {
	if tx.ID == "" {
		tx.ID = inventory.TransactionID(uuid.NewString())
	}
	if _, exists := v.m.transactions[tx.ID]; exists {
		return "", fmt.Errorf("%w: transaction %s", inventory.ErrDuplicate, tx.ID)
	}
	v.m.transactions[tx.ID] = tx
	return tx.ID, nil
}

func (v *memoryView) UpdateTransaction(_ context.Context, tx inventory.Transaction) error {
	if _, ok := v.m.transactions[tx.ID]; !ok {
		return inventory.ErrTransactionNotFound
	}
	v.m.transactions[tx.ID] = tx
	return nil
}

func (v *memoryView) DeleteTransaction(_ context.Context, id inventory.TransactionID) error {
	if _, ok := v.m.transactions[id]; !ok {
		return inventory.ErrTransactionNotFound
	}
	delete(v.m.transactions, id)
	return nil
}

func (v *memoryView) GetClient(_ context.Context, id inventory.ClientID) (inventory.Client, error) {
	c, ok := v.m.clients[id]
	if !ok {
		return inventory.Client{}, inventory.ErrClientNotFound
	}
	return c, nil
}

func (v *memoryView) GetSupplier(_ context.Context, id inventory.SupplierID) (inventory.Supplier, error) {
	s, ok := v.m.suppliers[id]
	if !ok {
		return inventory.Supplier{}, inventory.ErrSupplierNotFound
	}
	return s, nil
}

func cloneProduct(p inventory.Product) inventory.Product {
	p.Attributes = maps.Clone(p.Attributes)
	return p
}

var (
	_ inventory.Store              = (*Memory)(nil)
	_ inventory.StockIncrementer   = (*Memory)(nil)
	_ inventory.CounterpartyLookup = (*Memory)(nil)
	_ inventory.Resetter           = (*Memory)(nil)
	_ inventory.StockIncrementer   = (*memoryView)(nil)
	_ inventory.CounterpartyLookup = (*memoryView)(nil)
)
