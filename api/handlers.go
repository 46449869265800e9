/*
handlers.go - HTTP API handlers for the stock engine

PURPOSE:
  Exposes the reconciliation engine and the catalog via REST API. Handles
  HTTP request/response, JSON serialization, and delegates to the inventory
  package. Every stock change goes through the Engine; handlers never write
  a stock counter themselves.

ENDPOINTS:
  Products:
    GET    /api/products                 List (category, below, name filters)
    POST   /api/products                 Create with opening stock
    POST   /api/products/import          Bulk create from catalog JSON
    GET    /api/products/export          Catalog JSON of every product
    GET    /api/products/{id}            Get product
    GET    /api/products/{id}/target     Which product a sale/purchase moves
    PUT    /api/products/{id}/shell      Link a finished good to its shell

  Counterparties:
    GET|POST /api/clients
    GET|POST /api/suppliers

  Transactions:
    GET    /api/transactions             List (kind, product_id, from, to, limit)
    POST   /api/transactions             Create (quick add supported)
    GET    /api/transactions/{id}        Get
    PATCH  /api/transactions/{id}        Update (reverse + reapply)
    DELETE /api/transactions/{id}        Delete (reverse)

  Reports:
    GET    /api/reports/monthly          Monthly totals (from, to as YYYY-MM)
    GET    /api/dashboard                Low stock, this month, latest 10

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Store: catalog queries and entity reads
  - Engine: create / update / delete / resolve / link
  - ProductFactory: catalog JSON import and attribute checks

ERROR HANDLING:
  Errors are returned as JSON {"error", "details"} with status:
  - 400: Validation errors, invalid input, invalid shell link
  - 404: Transaction, product, client or supplier not found
  - 409: Concurrent modification (retries exhausted)
  - 422: Shell missing or ambiguous, negative stock refused
  - 500: Persistence and other internal errors
  - 501: Store lacks a required capability

SECURITY NOTE:
  No authentication or authorization. Deploy behind an authenticating proxy.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/warp/stock-engine/factory"
	"github.com/warp/stock-engine/inventory"
)

const (
	maxImportBytes = 1 << 20
	recentLimit    = 10
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store          inventory.Store
	Engine         *inventory.Engine
	ProductFactory *factory.ProductFactory

	// Threshold is the stock level below which the dashboard flags a product.
	Threshold decimal.Decimal
	Logger    *slog.Logger

	now func() time.Time

	// Track currently loaded scenario
	mu              sync.Mutex
	currentScenario string
}

// NewHandler creates a new handler over store and engine.
func NewHandler(store inventory.Store, engine *inventory.Engine, threshold decimal.Decimal, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handler{
		Store:          store,
		Engine:         engine,
		ProductFactory: factory.NewProductFactory(),
		Threshold:      threshold,
		Logger:         logger,
		now:            time.Now,
	}
}

// =============================================================================
// PRODUCT HANDLERS
// =============================================================================

// ListProducts returns products matching the query filters.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := inventory.ProductFilter{Name: q.Get("name")}
	if c := q.Get("category"); c != "" {
		category, err := inventory.ParseCategory(c)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid category", err)
			return
		}
		filter.Category = category
	}
	if b := q.Get("below"); b != "" {
		below, err := decimal.NewFromString(b)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid below", err)
			return
		}
		filter.StockBelow = &below
	}

	products, err := h.Store.ListProducts(r.Context(), filter)
	if err != nil {
		writeDomainError(w, "Failed to list products", err)
		return
	}
	writeJSON(w, http.StatusOK, toProductDTOs(products))
}

// CreateProduct creates a product. Stock is the opening stock; afterwards
// only transactions move it.
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req CreateProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	entry, problems := h.ProductFactory.FromJSON(factory.ProductJSON{
		ID:          req.ID,
		Category:    req.Category,
		Name:        req.Name,
		Description: req.Description,
		UnitPrice:   req.UnitPrice,
		Stock:       req.Stock,
		Attributes:  req.Attributes,
	})
	if len(problems) > 0 {
		err := &inventory.ValidationError{Record: "product", Fields: problems}
		writeError(w, http.StatusBadRequest, "Invalid product", err)
		return
	}

	p, err := h.Store.CreateProduct(r.Context(), entry.Product)
	if err != nil {
		writeDomainError(w, "Failed to create product", err)
		return
	}
	writeJSON(w, http.StatusCreated, toProductDTO(p))
}

// ImportProducts creates every product of a catalog JSON document and links
// finished goods to the shells they name.
func (h *Handler) ImportProducts(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxImportBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	result, err := h.ProductFactory.Import(r.Context(), h.Store, h.Engine, data)
	if err != nil {
		h.Logger.WarnContext(r.Context(), "catalog import stopped", "created", len(result.Created), "error", err)
		writeDomainError(w, "Failed to import catalog", err)
		return
	}
	writeJSON(w, http.StatusCreated, ImportResponse{
		Created: toProductDTOs(result.Created),
		Linked:  result.Linked,
	})
}

// ExportProducts returns the catalog in the import format.
func (h *Handler) ExportProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.Store.ListProducts(r.Context(), inventory.ProductFilter{})
	if err != nil {
		writeDomainError(w, "Failed to export catalog", err)
		return
	}
	out := factory.CatalogJSON{Products: make([]factory.ProductJSON, len(products))}
	for i, p := range products {
		out.Products[i] = h.ProductFactory.ToJSON(p)
	}
	writeJSON(w, http.StatusOK, out)
}

// GetProduct returns a single product.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id := inventory.ProductID(chi.URLParam(r, "id"))
	p, err := h.Store.GetProduct(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Product not found", err)
		return
	}
	writeJSON(w, http.StatusOK, toProductDTO(p))
}

// GetStockTarget reports the product whose stock a transaction against id moves.
func (h *Handler) GetStockTarget(w http.ResponseWriter, r *http.Request) {
	id := inventory.ProductID(chi.URLParam(r, "id"))
	target, err := h.Engine.ResolveTarget(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to resolve stock target", err)
		return
	}
	writeJSON(w, http.StatusOK, toStockTargetDTO(id, target))
}

// LinkShell stores the explicit shell of a finished good.
func (h *Handler) LinkShell(w http.ResponseWriter, r *http.Request) {
	id := inventory.ProductID(chi.URLParam(r, "id"))
	var req LinkShellRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if err := h.Engine.LinkShell(r.Context(), id, inventory.ProductID(req.ShellID)); err != nil {
		writeDomainError(w, "Failed to link shell", err)
		return
	}
	p, err := h.Store.GetProduct(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Product not found", err)
		return
	}
	writeJSON(w, http.StatusOK, toProductDTO(p))
}

// =============================================================================
// COUNTERPARTY HANDLERS
// =============================================================================

func (h *Handler) ListClients(w http.ResponseWriter, r *http.Request) {
	clients, err := h.Store.ListClients(r.Context())
	if err != nil {
		writeDomainError(w, "Failed to list clients", err)
		return
	}
	dtos := make([]CounterpartyDTO, len(clients))
	for i, c := range clients {
		dtos[i] = CounterpartyDTO{ID: string(c.ID), Name: c.Name, Contact: c.Contact, Phone: c.Phone, Email: c.Email, CreatedAt: formatTime(c.CreatedAt)}
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreateClient(w http.ResponseWriter, r *http.Request) {
	var req CreateCounterpartyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	c, err := h.Store.CreateClient(r.Context(), inventory.Client{Name: req.Name, Contact: req.Contact, Phone: req.Phone, Email: req.Email})
	if err != nil {
		writeDomainError(w, "Failed to create client", err)
		return
	}
	writeJSON(w, http.StatusCreated, CounterpartyDTO{ID: string(c.ID), Name: c.Name, Contact: c.Contact, Phone: c.Phone, Email: c.Email, CreatedAt: formatTime(c.CreatedAt)})
}

func (h *Handler) ListSuppliers(w http.ResponseWriter, r *http.Request) {
	suppliers, err := h.Store.ListSuppliers(r.Context())
	if err != nil {
		writeDomainError(w, "Failed to list suppliers", err)
		return
	}
	dtos := make([]CounterpartyDTO, len(suppliers))
	for i, s := range suppliers {
		dtos[i] = CounterpartyDTO{ID: string(s.ID), Name: s.Name, Contact: s.Contact, Phone: s.Phone, Email: s.Email, CreatedAt: formatTime(s.CreatedAt)}
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreateSupplier(w http.ResponseWriter, r *http.Request) {
	var req CreateCounterpartyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	s, err := h.Store.CreateSupplier(r.Context(), inventory.Supplier{Name: req.Name, Contact: req.Contact, Phone: req.Phone, Email: req.Email})
	if err != nil {
		writeDomainError(w, "Failed to create supplier", err)
		return
	}
	writeJSON(w, http.StatusCreated, CounterpartyDTO{ID: string(s.ID), Name: s.Name, Contact: s.Contact, Phone: s.Phone, Email: s.Email, CreatedAt: formatTime(s.CreatedAt)})
}

// =============================================================================
// TRANSACTION HANDLERS
// =============================================================================

// ListTransactions returns transactions newest first.
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := inventory.TransactionFilter{
		Kind:      inventory.Kind(q.Get("kind")),
		ProductID: inventory.ProductID(q.Get("product_id")),
	}
	if filter.Kind != "" && !filter.Kind.Valid() {
		writeError(w, http.StatusBadRequest, "Invalid kind", fmt.Errorf("kind must be sale or purchase, got %q", filter.Kind))
		return
	}
	var err error
	if filter.From, err = parseDate(q.Get("from")); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid from date", err)
		return
	}
	if filter.To, err = parseDate(q.Get("to")); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid to date", err)
		return
	}
	if l := q.Get("limit"); l != "" {
		if filter.Limit, err = strconv.Atoi(l); err != nil || filter.Limit < 0 {
			writeError(w, http.StatusBadRequest, "Invalid limit", err)
			return
		}
	}

	txs, err := h.Store.ListTransactions(r.Context(), filter)
	if err != nil {
		writeDomainError(w, "Failed to list transactions", err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionDTOs(txs))
}

// CreateTransaction records a sale or purchase and applies its stock effect.
func (h *Handler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req CreateTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date", err)
		return
	}

	in := inventory.TransactionInput{
		Kind:       inventory.Kind(req.Kind),
		ProductID:  inventory.ProductID(req.ProductID),
		ClientID:   inventory.ClientID(req.ClientID),
		SupplierID: inventory.SupplierID(req.SupplierID),
		Quantity:   req.Quantity,
		UnitPrice:  req.UnitPrice,
		Date:       date,
		Notes:      inventory.ComposeNotes(req.Details, req.Notes),
	}
	if err := h.quickAdd(r, &req, &in); err != nil {
		writeDomainError(w, "Failed to create referenced record", err)
		return
	}

	tx, err := h.Engine.CreateTransaction(r.Context(), in)
	if err != nil {
		writeDomainError(w, "Failed to create transaction", err)
		return
	}
	writeJSON(w, http.StatusCreated, toTransactionDTO(tx))
}

// quickAdd creates the product and counterparty a form named but did not
// select. New products start with zero stock.
func (h *Handler) quickAdd(r *http.Request, req *CreateTransactionRequest, in *inventory.TransactionInput) error {
	ctx := r.Context()
	kind := inventory.Kind(req.Kind)

	if req.NewProduct != nil {
		category := inventory.CategoryAccessory
		if kind == inventory.KindSale {
			category = inventory.CategoryFinishedGood
		}
		if req.NewProduct.Category != "" {
			c, err := inventory.ParseCategory(req.NewProduct.Category)
			if err != nil {
				return &inventory.ValidationError{Record: "product", Fields: map[string]string{"new_product.category": "is not a product category"}}
			}
			category = c
		}
		p, err := h.Store.CreateProduct(ctx, inventory.Product{Name: req.NewProduct.Name, Category: category})
		if err != nil {
			return err
		}
		h.Logger.InfoContext(ctx, "quick-added product", "product_id", p.ID, "category", p.Category)
		in.ProductID = p.ID
	}

	if req.NewClient != "" && kind == inventory.KindSale {
		c, err := h.Store.CreateClient(ctx, inventory.Client{Name: req.NewClient})
		if err != nil {
			return err
		}
		in.ClientID = c.ID
	}
	if req.NewSupplier != "" && kind == inventory.KindPurchase {
		s, err := h.Store.CreateSupplier(ctx, inventory.Supplier{Name: req.NewSupplier})
		if err != nil {
			return err
		}
		in.SupplierID = s.ID
	}
	return nil
}

// GetTransaction returns a single transaction.
func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	id := inventory.TransactionID(chi.URLParam(r, "id"))
	tx, err := h.Store.GetTransaction(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Transaction not found", err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionDTO(tx))
}

// UpdateTransaction edits a transaction; the old effect is reversed and the
// new one applied in one atomic step.
func (h *Handler) UpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id := inventory.TransactionID(chi.URLParam(r, "id"))
	var req UpdateTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	patch, err := toPatch(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date", err)
		return
	}

	tx, err := h.Engine.UpdateTransaction(r.Context(), id, patch)
	if err != nil {
		writeDomainError(w, "Failed to update transaction", err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionDTO(tx))
}

func toPatch(req UpdateTransactionRequest) (inventory.TransactionPatch, error) {
	var patch inventory.TransactionPatch
	if req.Kind != nil {
		k := inventory.Kind(*req.Kind)
		patch.Kind = &k
	}
	if req.ProductID != nil {
		p := inventory.ProductID(*req.ProductID)
		patch.ProductID = &p
	}
	if req.ClientID != nil {
		c := inventory.ClientID(*req.ClientID)
		patch.ClientID = &c
	}
	if req.SupplierID != nil {
		s := inventory.SupplierID(*req.SupplierID)
		patch.SupplierID = &s
	}
	patch.Quantity = req.Quantity
	patch.UnitPrice = req.UnitPrice
	if req.Date != nil {
		d, err := parseDate(*req.Date)
		if err != nil {
			return patch, err
		}
		if d.IsZero() {
			return patch, errors.New("date must not be empty")
		}
		patch.Date = &d
	}
	if len(req.Details) > 0 {
		var notes string
		if req.Notes != nil {
			notes = *req.Notes
		}
		composed := inventory.ComposeNotes(req.Details, notes)
		patch.Notes = &composed
	} else {
		patch.Notes = req.Notes
	}
	return patch, nil
}

// DeleteTransaction removes a transaction and reverses its stock effect.
func (h *Handler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id := inventory.TransactionID(chi.URLParam(r, "id"))
	if err := h.Engine.DeleteTransaction(r.Context(), id); err != nil {
		writeDomainError(w, "Failed to delete transaction", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted", "id": string(id)})
}

// =============================================================================
// REPORT HANDLERS
// =============================================================================

// MonthlyReports aggregates transactions per calendar month, oldest first.
func (h *Handler) MonthlyReports(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var filter inventory.TransactionFilter
	if from := q.Get("from"); from != "" {
		start, err := parseMonth(from)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid from month", err)
			return
		}
		filter.From = start
	}
	if to := q.Get("to"); to != "" {
		start, err := parseMonth(to)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid to month", err)
			return
		}
		filter.To = start.AddDate(0, 1, -1)
	}

	ctx := r.Context()
	var (
		txs      []inventory.Transaction
		products []inventory.Product
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		txs, err = h.Store.ListTransactions(gctx, filter)
		return err
	})
	g.Go(func() error {
		var err error
		products, err = h.Store.ListProducts(gctx, inventory.ProductFilter{})
		return err
	})
	if err := g.Wait(); err != nil {
		writeDomainError(w, "Failed to build reports", err)
		return
	}

	reports := inventory.BuildMonthlyReports(txs, productIndex(products))
	dtos := make([]MonthlyReportDTO, len(reports))
	for i, rep := range reports {
		dtos[i] = toMonthlyReportDTO(rep)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// Dashboard gathers low stock, the current month and the latest transactions.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	now := h.now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	monthEnd := monthStart.AddDate(0, 1, -1)

	var (
		products []inventory.Product
		monthTxs []inventory.Transaction
		recent   []inventory.Transaction
	)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		products, err = h.Store.ListProducts(ctx, inventory.ProductFilter{})
		return err
	})
	g.Go(func() error {
		var err error
		monthTxs, err = h.Store.ListTransactions(ctx, inventory.TransactionFilter{From: monthStart, To: monthEnd})
		return err
	})
	g.Go(func() error {
		var err error
		recent, err = h.Store.ListTransactions(ctx, inventory.TransactionFilter{Limit: recentLimit})
		return err
	})
	if err := g.Wait(); err != nil {
		writeDomainError(w, "Failed to load dashboard", err)
		return
	}

	current := inventory.MonthlyReport{Year: monthStart.Year(), Month: monthStart.Month()}
	if reports := inventory.BuildMonthlyReports(monthTxs, productIndex(products)); len(reports) > 0 {
		current = reports[0]
	}
	writeJSON(w, http.StatusOK, DashboardDTO{
		Threshold:    h.Threshold,
		LowStock:     toProductDTOs(inventory.LowStock(products, h.Threshold)),
		CurrentMonth: toMonthlyReportDTO(current),
		Recent:       toTransactionDTOs(recent),
	})
}

func productIndex(products []inventory.Product) map[inventory.ProductID]inventory.Product {
	index := make(map[inventory.ProductID]inventory.Product, len(products))
	for _, p := range products {
		index[p.ID] = p
	}
	return index
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError picks the status from the inventory error kind.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	writeError(w, statusFor(err), message, err)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, inventory.ErrInvalidTransaction),
		errors.Is(err, inventory.ErrInvalidRecord),
		errors.Is(err, inventory.ErrInvalidLink):
		return http.StatusBadRequest
	case inventory.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, inventory.ErrConcurrentModification),
		errors.Is(err, inventory.ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, inventory.ErrShellMissing),
		errors.Is(err, inventory.ErrShellAmbiguous),
		errors.Is(err, inventory.ErrNegativeStock):
		return http.StatusUnprocessableEntity
	case errors.Is(err, inventory.ErrStoreRequired):
		return http.StatusNotImplemented
	}
	return http.StatusInternalServerError
}

// parseDate reads a YYYY-MM-DD date. Empty is the zero time.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(dateLayout, s)
}

// parseMonth reads YYYY-MM and returns the first day of that month.
func parseMonth(s string) (time.Time, error) {
	return time.Parse("2006-01", strings.TrimSpace(s))
}
