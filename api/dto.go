/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. The inventory types
  carry no JSON tags; everything the API reads or writes goes through here.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

TYPES:
  Products:
    ProductDTO, CreateProductRequest, LinkShellRequest, StockTargetDTO,
    ImportResponse

  Counterparties:
    CounterpartyDTO, CreateCounterpartyRequest

  Transactions:
    TransactionDTO, CreateTransactionRequest, UpdateTransactionRequest,
    QuickProductRequest

  Reports:
    MonthlyReportDTO, DashboardDTO

  Scenarios:
    ScenarioDTO, LoadScenarioRequest

MONEY AND QUANTITIES:
  decimal.Decimal values are encoded as JSON strings ("12.50") so no
  precision is lost in the browser. Requests accept strings or numbers.

DATES:
  Transaction dates are calendar dates ("2006-01-02"). Timestamps are RFC3339.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/stock-engine/inventory"
)

const dateLayout = "2006-01-02"

// =============================================================================
// PRODUCTS
// =============================================================================

type ProductDTO struct {
	ID            string          `json:"id"`
	Category      string          `json:"category"`
	Name          string          `json:"name"`
	Description   string          `json:"description,omitempty"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	Stock         decimal.Decimal `json:"stock"`
	Attributes    map[string]any  `json:"attributes,omitempty"`
	LinkedShellID string          `json:"linked_shell_id,omitempty"`
	Version       int64           `json:"version"`
	CreatedAt     string          `json:"created_at"`
	UpdatedAt     string          `json:"updated_at"`
}

type CreateProductRequest struct {
	ID          string          `json:"id,omitempty"`
	Category    string          `json:"category"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Stock       decimal.Decimal `json:"stock"` // opening stock
	Attributes  map[string]any  `json:"attributes,omitempty"`
}

// LinkShellRequest sets (or, when empty, clears) a finished good's shell.
type LinkShellRequest struct {
	ShellID string `json:"shell_id"`
}

// StockTargetDTO reports which product a transaction against a product moves.
type StockTargetDTO struct {
	ProductID      string          `json:"product_id"`
	TargetID       string          `json:"target_id"`
	TargetName     string          `json:"target_name"`
	Stock          decimal.Decimal `json:"stock"`
	Redirected     bool            `json:"redirected"`
	RedirectedFrom string          `json:"redirected_from,omitempty"`
}

type ImportResponse struct {
	Created []ProductDTO `json:"created"`
	Linked  int          `json:"linked"`
}

// =============================================================================
// COUNTERPARTIES
// =============================================================================

// CounterpartyDTO is a client or a supplier.
type CounterpartyDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Contact   string `json:"contact,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Email     string `json:"email,omitempty"`
	CreatedAt string `json:"created_at"`
}

type CreateCounterpartyRequest struct {
	Name    string `json:"name"`
	Contact string `json:"contact,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Email   string `json:"email,omitempty"`
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

type TransactionDTO struct {
	ID             string          `json:"id"`
	Kind           string          `json:"kind"`
	ProductID      string          `json:"product_id"`
	StockProductID string          `json:"stock_product_id,omitempty"`
	ClientID       string          `json:"client_id,omitempty"`
	SupplierID     string          `json:"supplier_id,omitempty"`
	Quantity       decimal.Decimal `json:"quantity"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	Total          decimal.Decimal `json:"total"`
	Date           string          `json:"date"`
	Notes          string          `json:"notes,omitempty"`
	CreatedAt      string          `json:"created_at"`
}

// CreateTransactionRequest records a sale or purchase. NewProduct, NewClient
// and NewSupplier create the referenced record first (quick add); Details are
// prefixed to Notes.
type CreateTransactionRequest struct {
	Kind       string          `json:"kind"`
	ProductID  string          `json:"product_id,omitempty"`
	ClientID   string          `json:"client_id,omitempty"`
	SupplierID string          `json:"supplier_id,omitempty"`
	Quantity   decimal.Decimal `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	Date       string          `json:"date,omitempty"`
	Notes      string          `json:"notes,omitempty"`
	Details    []string        `json:"details,omitempty"`

	NewProduct  *QuickProductRequest `json:"new_product,omitempty"`
	NewClient   string               `json:"new_client,omitempty"`
	NewSupplier string               `json:"new_supplier,omitempty"`
}

// QuickProductRequest creates a product with zero stock from a transaction form.
type QuickProductRequest struct {
	Name     string `json:"name"`
	Category string `json:"category,omitempty"`
}

// UpdateTransactionRequest patches a transaction. Absent fields keep their value.
type UpdateTransactionRequest struct {
	Kind       *string          `json:"kind,omitempty"`
	ProductID  *string          `json:"product_id,omitempty"`
	ClientID   *string          `json:"client_id,omitempty"`
	SupplierID *string          `json:"supplier_id,omitempty"`
	Quantity   *decimal.Decimal `json:"quantity,omitempty"`
	UnitPrice  *decimal.Decimal `json:"unit_price,omitempty"`
	Date       *string          `json:"date,omitempty"`
	Notes      *string          `json:"notes,omitempty"`
	Details    []string         `json:"details,omitempty"`
}

// =============================================================================
// REPORTS
// =============================================================================

type MonthlyReportDTO struct {
	Month             string          `json:"month"` // YYYY-MM
	Sales             decimal.Decimal `json:"sales"`
	Purchases         decimal.Decimal `json:"purchases"`
	Net               decimal.Decimal `json:"net"`
	FinishedGoodsSold decimal.Decimal `json:"finished_goods_sold"`
	FabricMeters      decimal.Decimal `json:"fabric_meters"`
	Count             int             `json:"count"`
}

type DashboardDTO struct {
	Threshold    decimal.Decimal  `json:"threshold"`
	LowStock     []ProductDTO     `json:"low_stock"`
	CurrentMonth MonthlyReportDTO `json:"current_month"`
	Recent       []TransactionDTO `json:"recent"`
}

// =============================================================================
// SCENARIOS
// =============================================================================

type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toProductDTO(p inventory.Product) ProductDTO {
	return ProductDTO{
		ID:            string(p.ID),
		Category:      string(p.Category),
		Name:          p.Name,
		Description:   p.Description,
		UnitPrice:     p.UnitPrice,
		Stock:         p.Stock,
		Attributes:    p.Attributes,
		LinkedShellID: string(p.LinkedShellID),
		Version:       p.Version,
		CreatedAt:     formatTime(p.CreatedAt),
		UpdatedAt:     formatTime(p.UpdatedAt),
	}
}

func toProductDTOs(ps []inventory.Product) []ProductDTO {
	dtos := make([]ProductDTO, len(ps))
	for i, p := range ps {
		dtos[i] = toProductDTO(p)
	}
	return dtos
}

func toTransactionDTO(tx inventory.Transaction) TransactionDTO {
	return TransactionDTO{
		ID:             string(tx.ID),
		Kind:           string(tx.Kind),
		ProductID:      string(tx.ProductID),
		StockProductID: string(tx.StockProductID),
		ClientID:       string(tx.ClientID),
		SupplierID:     string(tx.SupplierID),
		Quantity:       tx.Quantity,
		UnitPrice:      tx.UnitPrice,
		Total:          tx.Total,
		Date:           tx.Date.UTC().Format(dateLayout),
		Notes:          tx.Notes,
		CreatedAt:      formatTime(tx.CreatedAt),
	}
}

func toTransactionDTOs(txs []inventory.Transaction) []TransactionDTO {
	dtos := make([]TransactionDTO, len(txs))
	for i, tx := range txs {
		dtos[i] = toTransactionDTO(tx)
	}
	return dtos
}

func toMonthlyReportDTO(r inventory.MonthlyReport) MonthlyReportDTO {
	return MonthlyReportDTO{
		Month:             r.Key(),
		Sales:             r.Sales,
		Purchases:         r.Purchases,
		Net:               r.Net,
		FinishedGoodsSold: r.FinishedGoodsSold,
		FabricMeters:      r.FabricMeters,
		Count:             r.Count,
	}
}

func toStockTargetDTO(id inventory.ProductID, t inventory.StockTarget) StockTargetDTO {
	return StockTargetDTO{
		ProductID:      string(id),
		TargetID:       string(t.ProductID),
		TargetName:     t.Name,
		Stock:          t.Stock,
		Redirected:     t.Redirected(),
		RedirectedFrom: string(t.RedirectedFrom),
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
