package inventory

import (
	"maps"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// PrepareProduct validates a new product and fills its id and timestamps.
// Stores call it from CreateProduct so every backend accepts the same records.
func PrepareProduct(p Product, now time.Time) (Product, error) {
	p.Name = strings.TrimSpace(p.Name)
	fields := map[string]string{}
	if p.Name == "" {
		fields["Name"] = "is required"
	}
	if !p.Category.Valid() {
		fields["Category"] = "must be one of the product categories"
	}
	if p.UnitPrice.IsNegative() {
		fields["UnitPrice"] = "must be at least 0"
	}
	if p.LinkedShellID != "" && p.Category != CategoryFinishedGood {
		fields["LinkedShellID"] = "only finished goods link to a shell"
	}
	if len(fields) > 0 {
		return Product{}, &ValidationError{Record: "product", Fields: fields}
	}
	if p.ID == "" {
		p.ID = ProductID(uuid.NewString())
	}
	p.Attributes = maps.Clone(p.Attributes)
	p.Version = 0
	p.CreatedAt = now.UTC()
	p.UpdatedAt = p.CreatedAt
	return p, nil
}

// PrepareClient validates a new client and fills its id and timestamps.
func PrepareClient(c Client, now time.Time) (Client, error) {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return Client{}, &ValidationError{Record: "client", Fields: map[string]string{"Name": "is required"}}
	}
	if c.ID == "" {
		c.ID = ClientID(uuid.NewString())
	}
	c.CreatedAt = now.UTC()
	c.UpdatedAt = c.CreatedAt
	return c, nil
}

// PrepareSupplier validates a new supplier and fills its id and timestamps.
func PrepareSupplier(s Supplier, now time.Time) (Supplier, error) {
	s.Name = strings.TrimSpace(s.Name)
	if s.Name == "" {
		return Supplier{}, &ValidationError{Record: "supplier", Fields: map[string]string{"Name": "is required"}}
	}
	if s.ID == "" {
		s.ID = SupplierID(uuid.NewString())
	}
	s.CreatedAt = now.UTC()
	s.UpdatedAt = s.CreatedAt
	return s, nil
}

// SortTransactions orders newest first: by date, then creation time, then id.
func SortTransactions(txs []Transaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		a, b := txs[i], txs[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.After(b.Date)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})
}
