/*
handlers_test.go - Tests for API handlers

Tests for:
- Create / update / delete of transactions and their stock effect
- Error status mapping
- Quick add, shell links, catalog import
- Dashboard, monthly reports, scenarios
*/
package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/stock-engine/factory"
	"github.com/warp/stock-engine/inventory"
	memstore "github.com/warp/stock-engine/inventory/store"
)

var testNow = time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T, mode inventory.StockWriteMode) (*Handler, http.Handler) {
	t.Helper()
	store := memstore.NewMemory()
	opts := inventory.DefaultOptions()
	opts.StockWriteMode = mode
	engine, err := inventory.NewEngine(store, opts)
	require.NoError(t, err)

	h := NewHandler(store, engine, decimal.NewFromInt(5), nil)
	h.now = func() time.Time { return testNow }
	return h, NewRouter(h, nil, nil)
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), rr.Body.String())
	return out
}

func createProduct(t *testing.T, router http.Handler, req CreateProductRequest) ProductDTO {
	t.Helper()
	rr := doJSON(t, router, http.MethodPost, "/api/products", req)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	return decodeBody[ProductDTO](t, rr)
}

func createClient(t *testing.T, router http.Handler, name string) CounterpartyDTO {
	t.Helper()
	rr := doJSON(t, router, http.MethodPost, "/api/clients", CreateCounterpartyRequest{Name: name})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	return decodeBody[CounterpartyDTO](t, rr)
}

func stockOf(t *testing.T, router http.Handler, id string) decimal.Decimal {
	t.Helper()
	rr := doJSON(t, router, http.MethodGet, "/api/products/"+id, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	return decodeBody[ProductDTO](t, rr).Stock
}

func assertStock(t *testing.T, router http.Handler, id string, want int64) {
	t.Helper()
	got := stockOf(t, router, id)
	assert.True(t, got.Equal(decimal.NewFromInt(want)), "stock of %s: got %s, want %d", id, got, want)
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

func TestSofaXScenario_OverHTTP(t *testing.T) {
	for _, mode := range []inventory.StockWriteMode{inventory.StockWriteAtomic, inventory.StockWriteCAS} {
		t.Run(string(mode), func(t *testing.T) {
			_, router := newTestServer(t, mode)

			// GIVEN: A finished good and a shell of the same name with stock 20
			createProduct(t, router, CreateProductRequest{ID: "P1", Category: "mueble", Name: "Sofa X"})
			createProduct(t, router, CreateProductRequest{
				ID: "P2", Category: "casco", Name: "sofa x", Stock: decimal.NewFromInt(20),
				Attributes: map[string]any{"inches": 84},
			})
			client := createClient(t, router, "Ana")

			// WHEN: Selling 2 units of the finished good
			rr := doJSON(t, router, http.MethodPost, "/api/transactions", map[string]any{
				"kind": "sale", "product_id": "P1", "client_id": client.ID,
				"quantity": 2, "unit_price": "1200", "date": "2026-03-10",
			})
			require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
			tx := decodeBody[TransactionDTO](t, rr)

			// THEN: The shell's stock moved, the finished good's did not
			assertStock(t, router, "P2", 18)
			assertStock(t, router, "P1", 0)
			assert.Equal(t, "2026-03-10", tx.Date)
			assert.True(t, tx.Total.Equal(decimal.NewFromInt(2400)))

			// WHEN: Changing the quantity to 5
			rr = doJSON(t, router, http.MethodPatch, "/api/transactions/"+tx.ID, map[string]any{"quantity": 5})
			require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

			// THEN: The old effect is reversed and the new one applied
			assertStock(t, router, "P2", 15)

			// WHEN: Deleting the transaction
			rr = doJSON(t, router, http.MethodDelete, "/api/transactions/"+tx.ID, nil)
			require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

			// THEN: Stock is back to where it started and the row is gone
			assertStock(t, router, "P2", 20)
			rr = doJSON(t, router, http.MethodGet, "/api/transactions/"+tx.ID, nil)
			assert.Equal(t, http.StatusNotFound, rr.Code)
		})
	}
}

func TestCreateTransaction_ShellMissing(t *testing.T) {
	// GIVEN: A finished good with no shell at all
	_, router := newTestServer(t, inventory.StockWriteAtomic)
	createProduct(t, router, CreateProductRequest{ID: "lonely", Category: "finished_good", Name: "Lonely Sofa"})
	client := createClient(t, router, "Ana")

	// WHEN: Selling it
	rr := doJSON(t, router, http.MethodPost, "/api/transactions", map[string]any{
		"kind": "sale", "product_id": "lonely", "client_id": client.ID, "quantity": 1,
	})

	// THEN: The sale is refused and nothing is recorded
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code, rr.Body.String())
	assertStock(t, router, "lonely", 0)
	rr = doJSON(t, router, http.MethodGet, "/api/transactions", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, decodeBody[[]TransactionDTO](t, rr))
}

func TestCreateTransaction_InvalidInput(t *testing.T) {
	_, router := newTestServer(t, inventory.StockWriteAtomic)
	createProduct(t, router, CreateProductRequest{ID: "foam", Category: "foam", Name: "Foam", Attributes: map[string]any{"inches": 3}})

	tests := []struct {
		name string
		body any
		want int
	}{
		{"malformed json", `{"kind":`, http.StatusBadRequest},
		{"zero quantity", map[string]any{"kind": "purchase", "product_id": "foam", "supplier_id": "s1", "quantity": 0}, http.StatusBadRequest},
		{"unknown kind", map[string]any{"kind": "gift", "product_id": "foam", "quantity": 1}, http.StatusBadRequest},
		{"bad date", map[string]any{"kind": "purchase", "product_id": "foam", "quantity": 1, "date": "15/03/2026"}, http.StatusBadRequest},
		{"unknown supplier", map[string]any{"kind": "purchase", "product_id": "foam", "supplier_id": "nobody", "quantity": 1}, http.StatusNotFound},
		{"unknown product", map[string]any{"kind": "purchase", "product_id": "ghost", "new_supplier": "Acme", "quantity": 1}, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doJSON(t, router, http.MethodPost, "/api/transactions", tt.body)
			assert.Equal(t, tt.want, rr.Code, rr.Body.String())
		})
	}
	assertStock(t, router, "foam", 0)
}

func TestCreateTransaction_QuickAdd(t *testing.T) {
	// GIVEN: An empty store
	h, router := newTestServer(t, inventory.StockWriteAtomic)

	// WHEN: A purchase names a new product and a new supplier
	rr := doJSON(t, router, http.MethodPost, "/api/transactions", map[string]any{
		"kind":         "purchase",
		"new_product":  map[string]any{"name": "Tornillos"},
		"new_supplier": "Ferreteria Central",
		"quantity":     "12.5",
		"unit_price":   "0.40",
		"details":      []string{"Peso: 2kg", " "},
		"notes":        "urgente",
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	tx := decodeBody[TransactionDTO](t, rr)

	// THEN: Both records exist and the purchase landed on the new product
	assert.Equal(t, "Peso: 2kg - urgente", tx.Notes)
	assert.NotEmpty(t, tx.SupplierID)
	assert.True(t, tx.Total.Equal(decimal.RequireFromString("5")))

	p, err := h.Store.GetProduct(t.Context(), inventory.ProductID(tx.ProductID))
	require.NoError(t, err)
	assert.Equal(t, inventory.CategoryAccessory, p.Category)
	assert.True(t, p.Stock.Equal(decimal.RequireFromString("12.5")))

	suppliers, err := h.Store.ListSuppliers(t.Context())
	require.NoError(t, err)
	require.Len(t, suppliers, 1)
	assert.Equal(t, "Ferreteria Central", suppliers[0].Name)
}

func TestUpdateTransaction_MovesEffectToNewProduct(t *testing.T) {
	// GIVEN: A purchase of 10 meters of one fabric
	_, router := newTestServer(t, inventory.StockWriteCAS)
	createProduct(t, router, CreateProductRequest{ID: "lino", Category: "tela", Name: "Lino", Attributes: map[string]any{"color": "azul"}})
	createProduct(t, router, CreateProductRequest{ID: "pana", Category: "tela", Name: "Pana", Attributes: map[string]any{"color": "gris"}})
	rr := doJSON(t, router, http.MethodPost, "/api/transactions", map[string]any{
		"kind": "purchase", "product_id": "lino", "new_supplier": "Textiles", "quantity": 10,
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	tx := decodeBody[TransactionDTO](t, rr)
	assertStock(t, router, "lino", 10)

	// WHEN: The purchase is corrected to the other fabric
	rr = doJSON(t, router, http.MethodPatch, "/api/transactions/"+tx.ID, map[string]any{
		"product_id": "pana", "details": []string{"Color/Marca: gris"},
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	// THEN: The stock moved from one product to the other
	assertStock(t, router, "lino", 0)
	assertStock(t, router, "pana", 10)
	assert.Equal(t, "Color/Marca: gris", decodeBody[TransactionDTO](t, rr).Notes)
}

func TestUpdateAndDelete_NotFound(t *testing.T) {
	_, router := newTestServer(t, inventory.StockWriteAtomic)

	rr := doJSON(t, router, http.MethodPatch, "/api/transactions/missing", map[string]any{"quantity": 1})
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = doJSON(t, router, http.MethodDelete, "/api/transactions/missing", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "Failed to delete transaction", resp.Error)
	assert.Contains(t, resp.Details, "transaction not found")
}

func TestListTransactions_Filters(t *testing.T) {
	// GIVEN: Purchases on three different days
	_, router := newTestServer(t, inventory.StockWriteAtomic)
	createProduct(t, router, CreateProductRequest{ID: "wood", Category: "madera", Name: "Pino"})
	for _, day := range []string{"2026-01-20", "2026-02-10", "2026-03-05"} {
		rr := doJSON(t, router, http.MethodPost, "/api/transactions", map[string]any{
			"kind": "purchase", "product_id": "wood", "new_supplier": "Maderas " + day, "quantity": 1, "date": day,
		})
		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	}

	// WHEN / THEN: Date range and limit are honored, newest first
	rr := doJSON(t, router, http.MethodGet, "/api/transactions?from=2026-02-01&to=2026-03-31", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	txs := decodeBody[[]TransactionDTO](t, rr)
	require.Len(t, txs, 2)
	assert.Equal(t, "2026-03-05", txs[0].Date)

	rr = doJSON(t, router, http.MethodGet, "/api/transactions?limit=1&kind=purchase&product_id=wood", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decodeBody[[]TransactionDTO](t, rr), 1)

	for _, q := range []string{"kind=gift", "from=yesterday", "limit=-1"} {
		rr = doJSON(t, router, http.MethodGet, "/api/transactions?"+q, nil)
		assert.Equal(t, http.StatusBadRequest, rr.Code, q)
	}
}

// =============================================================================
// PRODUCTS
// =============================================================================

func TestCreateProduct_Validation(t *testing.T) {
	_, router := newTestServer(t, inventory.StockWriteAtomic)

	rr := doJSON(t, router, http.MethodPost, "/api/products", CreateProductRequest{Category: "tela", Name: "Lino"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "color")

	rr = doJSON(t, router, http.MethodPost, "/api/products", CreateProductRequest{Category: "chair", Name: "Silla"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	createProduct(t, router, CreateProductRequest{ID: "cojin", Category: "accesorio", Name: "Cojin"})
	rr = doJSON(t, router, http.MethodPost, "/api/products", CreateProductRequest{ID: "cojin", Category: "accesorio", Name: "Cojin"})
	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestListProducts_Filters(t *testing.T) {
	_, router := newTestServer(t, inventory.StockWriteAtomic)
	createProduct(t, router, CreateProductRequest{Category: "tela", Name: "Lino Azul", Stock: decimal.NewFromInt(3), Attributes: map[string]any{"color": "azul"}})
	createProduct(t, router, CreateProductRequest{Category: "tela", Name: "Pana Gris", Stock: decimal.NewFromInt(30), Attributes: map[string]any{"color": "gris"}})
	createProduct(t, router, CreateProductRequest{Category: "accesorio", Name: "Cojin", Stock: decimal.NewFromInt(1)})

	rr := doJSON(t, router, http.MethodGet, "/api/products?category=fabric&below=10", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	products := decodeBody[[]ProductDTO](t, rr)
	require.Len(t, products, 1)
	assert.Equal(t, "Lino Azul", products[0].Name)
	assert.Equal(t, "fabric", products[0].Category)

	rr = doJSON(t, router, http.MethodGet, "/api/products?name=GRIS", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decodeBody[[]ProductDTO](t, rr), 1)

	rr = doJSON(t, router, http.MethodGet, "/api/products?below=few", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestLinkShell_ChangesStockTarget(t *testing.T) {
	// GIVEN: A finished good whose shell has a different name
	_, router := newTestServer(t, inventory.StockWriteAtomic)
	createProduct(t, router, CreateProductRequest{ID: "bella", Category: "finished_good", Name: "Sofa Bella"})
	createProduct(t, router, CreateProductRequest{ID: "frame", Category: "shell", Name: "Bella frame", Stock: decimal.NewFromInt(6), Attributes: map[string]any{"inches": 80}})

	// WHEN: Resolving before linking
	rr := doJSON(t, router, http.MethodGet, "/api/products/bella/target", nil)

	// THEN: There is no shell to draw from
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	// WHEN: Linking and resolving again
	rr = doJSON(t, router, http.MethodPut, "/api/products/bella/shell", LinkShellRequest{ShellID: "frame"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "frame", decodeBody[ProductDTO](t, rr).LinkedShellID)

	rr = doJSON(t, router, http.MethodGet, "/api/products/bella/target", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	target := decodeBody[StockTargetDTO](t, rr)

	// THEN: The finished good draws from the linked shell
	assert.Equal(t, "frame", target.TargetID)
	assert.True(t, target.Redirected)
	assert.True(t, target.Stock.Equal(decimal.NewFromInt(6)))

	// Linking a shell to a shell is refused
	rr = doJSON(t, router, http.MethodPut, "/api/products/frame/shell", LinkShellRequest{ShellID: "frame"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestImportProducts(t *testing.T) {
	_, router := newTestServer(t, inventory.StockWriteAtomic)

	// GIVEN: A catalog with a finished good naming its shell by name
	catalog := `{"products": [
		{"id": "sofa", "category": "mueble", "name": "Sofa Luna", "shell": "Casco Luna"},
		{"id": "casco", "category": "casco", "name": "Casco Luna", "stock": 4, "attributes": {"inches": 78}}
	]}`

	// WHEN: Importing it
	rr := doJSON(t, router, http.MethodPost, "/api/products/import", catalog)

	// THEN: Both products exist and the link is stored
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	resp := decodeBody[ImportResponse](t, rr)
	assert.Len(t, resp.Created, 2)
	assert.Equal(t, 1, resp.Linked)

	rr = doJSON(t, router, http.MethodGet, "/api/products/sofa", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "casco", decodeBody[ProductDTO](t, rr).LinkedShellID)

	// Exporting yields a catalog that names the link
	rr = doJSON(t, router, http.MethodGet, "/api/products/export", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	exported := decodeBody[factory.CatalogJSON](t, rr)
	require.Len(t, exported.Products, 2)
	for _, p := range exported.Products {
		if p.ID == "sofa" {
			assert.Equal(t, "casco", p.Shell)
		}
	}

	// An invalid catalog is rejected before anything is created
	rr = doJSON(t, router, http.MethodPost, "/api/products/import", `{"products": [{"category": "tela", "name": "Sin color"}]}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	rr = doJSON(t, router, http.MethodPost, "/api/products/import", `not json`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

// =============================================================================
// REPORTS AND SCENARIOS
// =============================================================================

func TestDashboard_FurnitureShop(t *testing.T) {
	// GIVEN: The furniture shop scenario
	_, router := newTestServer(t, inventory.StockWriteAtomic)
	rr := doJSON(t, router, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: "furniture-shop"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	// WHEN: Loading the dashboard
	rr = doJSON(t, router, http.MethodGet, "/api/dashboard", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	dash := decodeBody[DashboardDTO](t, rr)

	// THEN: Only stocked products under the threshold are flagged
	require.Len(t, dash.LowStock, 1)
	assert.Equal(t, "grapas", dash.LowStock[0].ID)

	// AND: This month's totals cover every seeded transaction
	assert.Equal(t, "2026-03", dash.CurrentMonth.Month)
	assert.Equal(t, 4, dash.CurrentMonth.Count)
	assert.True(t, dash.CurrentMonth.Sales.Equal(decimal.RequireFromString("3933.25")), dash.CurrentMonth.Sales.String())
	assert.True(t, dash.CurrentMonth.Purchases.Equal(decimal.NewFromInt(240)))
	assert.True(t, dash.CurrentMonth.FinishedGoodsSold.Equal(decimal.NewFromInt(3)))
	assert.True(t, dash.CurrentMonth.FabricMeters.Equal(decimal.RequireFromString("4.5")))
	assert.Len(t, dash.Recent, 4)

	// AND: Sales were drawn from the shells
	assertStock(t, router, "casco-sofa-x", 18)
	assertStock(t, router, "casco-bella", 5)
	assert.True(t, stockOf(t, router, "lino-azul").Equal(decimal.NewFromInt(51)))
}

func TestMonthlyReports(t *testing.T) {
	_, router := newTestServer(t, inventory.StockWriteAtomic)
	createProduct(t, router, CreateProductRequest{ID: "cojin", Category: "accessory", Name: "Cojin"})
	client := createClient(t, router, "Ana")
	for i, day := range []string{"2026-01-31", "2026-02-01", "2026-02-28", "2026-04-01"} {
		rr := doJSON(t, router, http.MethodPost, "/api/transactions", map[string]any{
			"kind": "sale", "product_id": "cojin", "client_id": client.ID,
			"quantity": 1, "unit_price": fmt.Sprint(10 * (i + 1)), "date": day,
		})
		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	}

	rr := doJSON(t, router, http.MethodGet, "/api/reports/monthly?from=2026-02&to=2026-03", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	reports := decodeBody[[]MonthlyReportDTO](t, rr)
	require.Len(t, reports, 1)
	assert.Equal(t, "2026-02", reports[0].Month)
	assert.Equal(t, 2, reports[0].Count)
	assert.True(t, reports[0].Sales.Equal(decimal.NewFromInt(50)))
	assert.True(t, reports[0].Net.Equal(decimal.NewFromInt(50)))

	rr = doJSON(t, router, http.MethodGet, "/api/reports/monthly", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decodeBody[[]MonthlyReportDTO](t, rr), 3)

	rr = doJSON(t, router, http.MethodGet, "/api/reports/monthly?from=2026-2", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestScenarios_LoadAndReset(t *testing.T) {
	_, router := newTestServer(t, inventory.StockWriteCAS)

	rr := doJSON(t, router, http.MethodGet, "/api/scenarios", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decodeBody[[]ScenarioDTO](t, rr), len(scenarios))

	rr = doJSON(t, router, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: "furniture-shop"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	rr = doJSON(t, router, http.MethodGet, "/api/scenarios/current", nil)
	assert.Equal(t, "furniture-shop", decodeBody[map[string]string](t, rr)["scenario_id"])

	rr = doJSON(t, router, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: "nope"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = doJSON(t, router, http.MethodPost, "/api/scenarios/reset", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	rr = doJSON(t, router, http.MethodGet, "/api/products", nil)
	assert.Empty(t, decodeBody[[]ProductDTO](t, rr))
	rr = doJSON(t, router, http.MethodGet, "/api/scenarios/current", nil)
	assert.Equal(t, "", decodeBody[map[string]string](t, rr)["scenario_id"])
}

func TestHealth(t *testing.T) {
	_, router := newTestServer(t, inventory.StockWriteAtomic)
	rr := doJSON(t, router, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{&inventory.ValidationError{Fields: map[string]string{"Quantity": "must be greater than 0"}}, http.StatusBadRequest},
		{&inventory.ValidationError{Record: "client", Fields: map[string]string{"Name": "is required"}}, http.StatusBadRequest},
		{fmt.Errorf("wrapped: %w", inventory.ErrProductNotFound), http.StatusNotFound},
		{inventory.ErrConcurrentModification, http.StatusConflict},
		{fmt.Errorf("%w: product p1", inventory.ErrDuplicate), http.StatusConflict},
		{&inventory.ShellResolutionError{Name: "Sofa", Matches: 2}, http.StatusUnprocessableEntity},
		{inventory.ErrNegativeStock, http.StatusUnprocessableEntity},
		{&inventory.PersistenceError{Op: "insert transaction", Err: errors.New("disk full")}, http.StatusInternalServerError},
		{inventory.ErrStoreRequired, http.StatusNotImplemented},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}
