/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the store with realistic
	data for demos. Each scenario imports a product catalog, creates
	counterparties, and records transactions through the engine so every
	stock counter is consistent with the history.

AVAILABLE SCENARIOS:

	furniture-shop: Sofas drawing on their shells, fabric, foam and supplies
	empty:          Nothing; a clean store

HOW SCENARIOS WORK:
 1. Reset the store (requires inventory.Resetter)
 2. Import products via the catalog factory
 3. Create clients and suppliers
 4. Record purchases and sales through the Engine

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "furniture-shop"}

ADDING NEW SCENARIOS:
 1. Add to 'scenarios' slice with ID, name, description
 2. Create loader function: loadXxxScenario(ctx, h)
 3. Add it to scenarioLoaders

NOTE:

	Scenarios reset the store. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: Engine-backed handlers
  - factory/product.go: Catalog JSON format
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/warp/stock-engine/inventory"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "furniture-shop",
		Name:        "Furniture Shop",
		Description: "Sofas sold from their shells, fabric by the meter, foam and supplies",
	},
	{
		ID:          "empty",
		Name:        "Empty",
		Description: "Clean store with no products or transactions",
	},
}

var scenarioLoaders = map[string]func(context.Context, *Handler) error{
	"furniture-shop": loadFurnitureShopScenario,
	"empty":          func(context.Context, *Handler) error { return nil },
}

const furnitureShopCatalog = `{
  "products": [
    {"id": "sofa-x", "category": "mueble", "name": "Sofa X", "unit_price": "1200.00"},
    {"id": "casco-sofa-x", "category": "casco", "name": "Sofa X", "stock": 20,
     "attributes": {"inches": 84}},
    {"id": "sofa-bella", "category": "finished_good", "name": "Sofa Bella",
     "unit_price": "1450.00", "shell": "casco-bella"},
    {"id": "casco-bella", "category": "shell", "name": "Bella frame", "stock": 6,
     "attributes": {"inches": 80}},
    {"id": "lino-azul", "category": "tela", "name": "Lino Azul", "unit_price": "18.50",
     "stock": "35.5", "attributes": {"color": "azul"}},
    {"id": "espuma-3", "category": "espuma", "name": "Espuma 3 pulgadas", "unit_price": "22.00",
     "stock": 12, "attributes": {"inches": 3}},
    {"id": "grapas", "category": "suministro", "name": "Grapas", "unit_price": "4.00",
     "stock": 3, "attributes": {"kg": 2}},
    {"id": "cojin", "category": "accesorio", "name": "Cojin decorativo", "unit_price": "15.00",
     "stock": 8}
  ]
}`

// =============================================================================
// HANDLERS
// =============================================================================

// ListScenarios returns all available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the last loaded scenario id.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentScenario
	h.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"scenario_id": current})
}

// LoadScenario resets the store and loads a scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	load, ok := scenarioLoaders[req.ScenarioID]
	if !ok {
		writeError(w, http.StatusBadRequest, "Unknown scenario", fmt.Errorf("scenario %q does not exist", req.ScenarioID))
		return
	}

	ctx := r.Context()
	if err := h.reset(ctx); err != nil {
		writeDomainError(w, "Failed to reset store", err)
		return
	}
	if err := load(ctx, h); err != nil {
		h.Logger.ErrorContext(ctx, "scenario load failed", "scenario", req.ScenarioID, "error", err)
		writeDomainError(w, "Failed to load scenario", err)
		return
	}

	h.mu.Lock()
	h.currentScenario = req.ScenarioID
	h.mu.Unlock()
	h.Logger.InfoContext(ctx, "scenario loaded", "scenario", req.ScenarioID)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "scenario_id": req.ScenarioID})
}

// ResetDatabase clears all data.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.reset(r.Context()); err != nil {
		writeDomainError(w, "Failed to reset store", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) reset(ctx context.Context) error {
	rs, ok := h.Store.(inventory.Resetter)
	if !ok {
		return fmt.Errorf("%w: store cannot be reset", inventory.ErrStoreRequired)
	}
	if err := rs.Reset(ctx); err != nil {
		return err
	}
	h.mu.Lock()
	h.currentScenario = ""
	h.mu.Unlock()
	return nil
}

// =============================================================================
// LOADERS
// =============================================================================

func loadFurnitureShopScenario(ctx context.Context, h *Handler) error {
	if _, err := h.ProductFactory.Import(ctx, h.Store, h.Engine, []byte(furnitureShopCatalog)); err != nil {
		return err
	}

	client, err := h.Store.CreateClient(ctx, inventory.Client{Name: "Maria Lopez", Phone: "555-0101"})
	if err != nil {
		return err
	}
	supplier, err := h.Store.CreateSupplier(ctx, inventory.Supplier{Name: "Textiles del Norte", Contact: "Jorge"})
	if err != nil {
		return err
	}

	today := inventory.DateOnly(h.now())
	inputs := []inventory.TransactionInput{
		{
			Kind: inventory.KindPurchase, ProductID: "lino-azul", SupplierID: supplier.ID,
			Quantity: decimal.NewFromInt(20), UnitPrice: decimal.RequireFromString("12.00"),
			Date: today.AddDate(0, 0, -3), Notes: inventory.ComposeNotes([]string{"Color/Marca: azul"}, "restock"),
		},
		{
			Kind: inventory.KindSale, ProductID: "sofa-x", ClientID: client.ID,
			Quantity: decimal.NewFromInt(2), UnitPrice: decimal.RequireFromString("1200.00"),
			Date: today.AddDate(0, 0, -2),
		},
		{
			Kind: inventory.KindSale, ProductID: "lino-azul", ClientID: client.ID,
			Quantity: decimal.RequireFromString("4.5"), UnitPrice: decimal.RequireFromString("18.50"),
			Date: today.AddDate(0, 0, -1), Notes: inventory.ComposeNotes([]string{"Detalle: reupholstery"}, ""),
		},
		{
			Kind: inventory.KindSale, ProductID: "sofa-bella", ClientID: client.ID,
			Quantity: decimal.NewFromInt(1), UnitPrice: decimal.RequireFromString("1450.00"),
			Date: today,
		},
	}
	for _, in := range inputs {
		if _, err := h.Engine.CreateTransaction(ctx, in); err != nil {
			return fmt.Errorf("seed %s of %s: %w", in.Kind, in.ProductID, err)
		}
	}
	return nil
}
