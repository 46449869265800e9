/*
Package factory provides JSON to Go product conversion.

PURPOSE:
  Converts a JSON product catalog into inventory.Product values and imports
  them into a store. Shop owners can keep their catalog in a file (or paste
  it into the admin UI) instead of creating products one by one.

JSON SCHEMA:
  {
    "products": [
      {"id": "casco-bella", "category": "casco", "name": "Sofa Bella",
       "stock": 4, "attributes": {"inches": 80}},
      {"id": "sofa-bella", "category": "finished_good", "name": "Sofa Bella",
       "unit_price": "1450.00", "shell": "casco-bella"},
      {"category": "tela", "name": "Lino Azul", "stock": "35.5",
       "attributes": {"color": "azul"}}
    ]
  }

  category accepts the current names and the legacy tags (mueble, tela,
  espuma, suministro, casco, madera, plicas, accesorio).

ATTRIBUTES:
  fabric:            color (text)
  foam, fitting,
  shell:             inches (number > 0)
  hardware_supply:   kg (number > 0)
  Other keys are kept as given.

SHELL LINKS:
  A finished good may name its shell by id or by name. Import resolves the
  reference after every product exists and stores it as LinkedShellID, so
  sales of the finished good draw from that shell.

USAGE:
  f := factory.NewProductFactory()
  result, err := f.Import(ctx, store, engine, data)

SEE ALSO:
  - inventory/types.go: Product and categories
  - inventory/engine.go: LinkShell
*/
package factory

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/warp/stock-engine/inventory"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// CatalogJSON is the JSON representation of a product catalog.
type CatalogJSON struct {
	Products []ProductJSON `json:"products"`
}

// ProductJSON represents one catalog entry.
type ProductJSON struct {
	ID          string          `json:"id,omitempty"`
	Category    string          `json:"category"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Stock       decimal.Decimal `json:"stock"`
	Attributes  map[string]any  `json:"attributes,omitempty"`
	Shell       string          `json:"shell,omitempty"` // finished goods only
}

// Entry is a parsed catalog entry.
type Entry struct {
	Product inventory.Product
	// ShellRef is the id or name of the shell a finished good draws from.
	ShellRef string
}

// ImportResult summarizes an import.
type ImportResult struct {
	Created []inventory.Product
	Linked  int
}

// ShellLinker stores a finished good's shell. *inventory.Engine implements it.
type ShellLinker interface {
	LinkShell(ctx context.Context, id, shellID inventory.ProductID) error
}

// =============================================================================
// PRODUCT FACTORY
// =============================================================================

// ProductFactory converts JSON catalogs to products.
type ProductFactory struct{}

// NewProductFactory creates a new product factory.
func NewProductFactory() *ProductFactory {
	return &ProductFactory{}
}

// ParseCatalog decodes and validates a catalog. Every entry is checked
// before any is returned; all problems are reported together as a
// *inventory.ValidationError.
func (f *ProductFactory) ParseCatalog(data []byte) ([]Entry, error) {
	var cj CatalogJSON
	if err := json.Unmarshal(data, &cj); err != nil {
		return nil, fmt.Errorf("%w: catalog JSON: %v", inventory.ErrInvalidRecord, err)
	}
	if len(cj.Products) == 0 {
		return nil, &inventory.ValidationError{Record: "catalog", Fields: map[string]string{"products": "is empty"}}
	}

	fields := map[string]string{}
	seen := map[string]bool{}
	entries := make([]Entry, 0, len(cj.Products))
	for i, pj := range cj.Products {
		prefix := fmt.Sprintf("products[%d]", i)
		entry, problems := f.FromJSON(pj)
		for k, v := range problems {
			fields[prefix+"."+k] = v
		}
		if pj.ID != "" {
			if seen[pj.ID] {
				fields[prefix+".id"] = "is duplicated"
			}
			seen[pj.ID] = true
		}
		entries = append(entries, entry)
	}
	if len(fields) > 0 {
		return nil, &inventory.ValidationError{Record: "catalog", Fields: fields}
	}
	return entries, nil
}

// FromJSON converts one entry and returns its problems keyed by JSON field.
// Entries without an id get a fresh one so shell references can point at them.
func (f *ProductFactory) FromJSON(pj ProductJSON) (Entry, map[string]string) {
	problems := map[string]string{}

	category, err := inventory.ParseCategory(pj.Category)
	if err != nil {
		problems["category"] = "is not a product category"
	}
	name := strings.TrimSpace(pj.Name)
	if name == "" {
		problems["name"] = "is required"
	}
	if pj.UnitPrice.IsNegative() {
		problems["unit_price"] = "must be at least 0"
	}
	if pj.Shell != "" && category != inventory.CategoryFinishedGood {
		problems["shell"] = "only finished goods link to a shell"
	}
	for k, v := range validateAttributes(category, pj.Attributes) {
		problems["attributes."+k] = v
	}

	id := pj.ID
	if id == "" {
		id = uuid.NewString()
	}
	return Entry{
		Product: inventory.Product{
			ID:          inventory.ProductID(id),
			Category:    category,
			Name:        name,
			Description: pj.Description,
			UnitPrice:   pj.UnitPrice,
			Stock:       pj.Stock,
			Attributes:  pj.Attributes,
		},
		ShellRef: strings.TrimSpace(pj.Shell),
	}, problems
}

// ToJSON converts a product back to its catalog form.
func (f *ProductFactory) ToJSON(p inventory.Product) ProductJSON {
	return ProductJSON{
		ID:          string(p.ID),
		Category:    string(p.Category),
		Name:        p.Name,
		Description: p.Description,
		UnitPrice:   p.UnitPrice,
		Stock:       p.Stock,
		Attributes:  p.Attributes,
		Shell:       string(p.LinkedShellID),
	}
}

// Import parses data, creates every product and then links finished goods
// to their shells. Products created before a failure stay in the store.
func (f *ProductFactory) Import(ctx context.Context, store inventory.Catalog, linker ShellLinker, data []byte) (ImportResult, error) {
	entries, err := f.ParseCatalog(data)
	if err != nil {
		return ImportResult{}, err
	}

	var result ImportResult
	for _, e := range entries {
		p, err := store.CreateProduct(ctx, e.Product)
		if err != nil {
			return result, fmt.Errorf("create product %q: %w", e.Product.Name, err)
		}
		result.Created = append(result.Created, p)
	}

	for _, e := range entries {
		if e.ShellRef == "" {
			continue
		}
		shellID, err := resolveShellRef(ctx, store, e.ShellRef)
		if err != nil {
			return result, fmt.Errorf("link %q: %w", e.Product.Name, err)
		}
		if err := linker.LinkShell(ctx, e.Product.ID, shellID); err != nil {
			return result, fmt.Errorf("link %q: %w", e.Product.Name, err)
		}
		result.Linked++
	}
	return result, nil
}

// resolveShellRef finds a shell by id, then by normalized name.
func resolveShellRef(ctx context.Context, store inventory.Catalog, ref string) (inventory.ProductID, error) {
	shells, err := store.ListProducts(ctx, inventory.ProductFilter{Category: inventory.CategoryShell})
	if err != nil {
		return "", err
	}
	key := inventory.NormalizeName(ref)
	var byName []inventory.ProductID
	for _, s := range shells {
		if string(s.ID) == ref {
			return s.ID, nil
		}
		if inventory.NormalizeName(s.Name) == key {
			byName = append(byName, s.ID)
		}
	}
	switch len(byName) {
	case 0:
		return "", &inventory.ShellResolutionError{Name: ref}
	case 1:
		return byName[0], nil
	}
	return "", &inventory.ShellResolutionError{Name: ref, Matches: len(byName)}
}

// =============================================================================
// ATTRIBUTES
// =============================================================================

func validateAttributes(c inventory.Category, attrs map[string]any) map[string]string {
	problems := map[string]string{}
	switch c {
	case inventory.CategoryFabric:
		if s, _ := attrs["color"].(string); strings.TrimSpace(s) == "" {
			problems["color"] = "is required for fabric"
		}
	case inventory.CategoryFoam, inventory.CategoryFitting, inventory.CategoryShell:
		if !positiveNumber(attrs["inches"]) {
			problems["inches"] = fmt.Sprintf("must be a number above 0 for %s", c)
		}
	case inventory.CategoryHardwareSupply:
		if !positiveNumber(attrs["kg"]) {
			problems["kg"] = "must be a number above 0 for hardware_supply"
		}
	}
	return problems
}

func positiveNumber(v any) bool {
	switch n := v.(type) {
	case float64:
		return n > 0
	case json.Number:
		f, err := n.Float64()
		return err == nil && f > 0
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return err == nil && f > 0
	}
	return false
}
