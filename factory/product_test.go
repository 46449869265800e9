package factory

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/stock-engine/inventory"
	memstore "github.com/warp/stock-engine/inventory/store"
)

func TestParseCatalog_LegacyCategories(t *testing.T) {
	f := NewProductFactory()

	entries, err := f.ParseCatalog([]byte(`{"products": [
		{"id": "m1", "category": "mueble", "name": " Sofa X ", "unit_price": "1200.50", "shell": "c1"},
		{"id": "c1", "category": "CASCO", "name": "Sofa X", "stock": 20, "attributes": {"inches": 84}},
		{"category": "tela", "name": "Lino", "stock": "35.5", "attributes": {"color": "azul"}},
		{"category": "suministro", "name": "Grapas", "attributes": {"kg": "2"}}
	]}`))
	require.NoError(t, err)
	require.Len(t, entries, 4)

	assert.Equal(t, inventory.CategoryFinishedGood, entries[0].Product.Category)
	assert.Equal(t, "Sofa X", entries[0].Product.Name)
	assert.Equal(t, "c1", entries[0].ShellRef)
	assert.True(t, entries[0].Product.UnitPrice.Equal(decimal.RequireFromString("1200.50")))

	assert.Equal(t, inventory.CategoryShell, entries[1].Product.Category)
	assert.True(t, entries[1].Product.Stock.Equal(decimal.NewFromInt(20)))

	assert.Equal(t, inventory.CategoryFabric, entries[2].Product.Category)
	assert.NotEmpty(t, entries[2].Product.ID)
	assert.True(t, entries[2].Product.Stock.Equal(decimal.RequireFromString("35.5")))

	assert.Equal(t, inventory.CategoryHardwareSupply, entries[3].Product.Category)
}

func TestParseCatalog_ReportsEveryProblem(t *testing.T) {
	f := NewProductFactory()

	_, err := f.ParseCatalog([]byte(`{"products": [
		{"id": "a", "category": "tela", "name": "Lino"},
		{"id": "a", "category": "espuma", "name": "Foam", "attributes": {"inches": 0}},
		{"category": "chair", "name": ""},
		{"category": "accessory", "name": "Cojin", "unit_price": "-1", "shell": "x"}
	]}`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, inventory.ErrInvalidRecord))

	var verr *inventory.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "products[0].attributes.color")
	assert.Contains(t, verr.Fields, "products[1].attributes.inches")
	assert.Contains(t, verr.Fields, "products[1].id")
	assert.Contains(t, verr.Fields, "products[2].category")
	assert.Contains(t, verr.Fields, "products[2].name")
	assert.Contains(t, verr.Fields, "products[3].unit_price")
	assert.Contains(t, verr.Fields, "products[3].shell")
}

func TestParseCatalog_BadInput(t *testing.T) {
	f := NewProductFactory()

	_, err := f.ParseCatalog([]byte(`{"products": `))
	assert.True(t, errors.Is(err, inventory.ErrInvalidRecord))

	_, err = f.ParseCatalog([]byte(`{"products": []}`))
	assert.True(t, errors.Is(err, inventory.ErrInvalidRecord))
}

func TestImport_LinksShells(t *testing.T) {
	// GIVEN: A store with an existing shell and a catalog naming it
	ctx := t.Context()
	store := memstore.NewMemory()
	engine, err := inventory.NewEngine(store, inventory.DefaultOptions())
	require.NoError(t, err)
	_, err = store.CreateProduct(ctx, inventory.Product{ID: "frame", Category: inventory.CategoryShell, Name: "Bella frame"})
	require.NoError(t, err)

	f := NewProductFactory()
	data := []byte(`{"products": [
		{"id": "bella", "category": "finished_good", "name": "Sofa Bella", "shell": "bella FRAME"},
		{"id": "luna", "category": "finished_good", "name": "Sofa Luna", "shell": "casco-luna"},
		{"id": "casco-luna", "category": "shell", "name": "Luna", "stock": 3, "attributes": {"inches": 70}}
	]}`)

	// WHEN: Importing
	result, err := f.Import(ctx, store, engine, data)

	// THEN: Links resolve by normalized name and by id
	require.NoError(t, err)
	assert.Len(t, result.Created, 3)
	assert.Equal(t, 2, result.Linked)

	bella, err := store.GetProduct(ctx, "bella")
	require.NoError(t, err)
	assert.Equal(t, inventory.ProductID("frame"), bella.LinkedShellID)

	target, err := engine.ResolveTarget(ctx, "luna")
	require.NoError(t, err)
	assert.Equal(t, inventory.ProductID("casco-luna"), target.ProductID)
}

func TestImport_UnknownShell(t *testing.T) {
	ctx := t.Context()
	store := memstore.NewMemory()
	engine, err := inventory.NewEngine(store, inventory.DefaultOptions())
	require.NoError(t, err)

	f := NewProductFactory()
	result, err := f.Import(ctx, store, engine, []byte(`{"products": [
		{"id": "sofa", "category": "finished_good", "name": "Sofa", "shell": "missing"}
	]}`))

	require.Error(t, err)
	assert.True(t, errors.Is(err, inventory.ErrShellMissing))
	assert.Len(t, result.Created, 1)
	assert.Equal(t, 0, result.Linked)
}

func TestToJSON_RoundTripsThroughFromJSON(t *testing.T) {
	f := NewProductFactory()
	p := inventory.Product{
		ID:            "sofa",
		Category:      inventory.CategoryFinishedGood,
		Name:          "Sofa",
		UnitPrice:     decimal.RequireFromString("99.90"),
		LinkedShellID: "frame",
	}

	entry, problems := f.FromJSON(f.ToJSON(p))
	assert.Empty(t, problems)
	assert.Equal(t, p.ID, entry.Product.ID)
	assert.Equal(t, "frame", entry.ShellRef)
	assert.True(t, entry.Product.UnitPrice.Equal(p.UnitPrice))
}
