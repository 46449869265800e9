/*
errors.go - Centralized error types for the reconciliation engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Stores translate driver errors into these; the HTTP layer maps them to
  status codes.

ERROR CATEGORIES:
  1. Lookup errors      - Transaction / product / counterparty not found
  2. Resolution errors  - Finished good without a usable shell
  3. Validation errors  - Malformed transaction payloads
  4. Persistence errors - Store writes that failed
  5. Concurrency errors - Optimistic lock conflicts (retryable)

USAGE:
  if errors.Is(err, inventory.ErrTransactionNotFound) { ... }

  var shellErr *inventory.ShellResolutionError
  if errors.As(err, &shellErr) { ... shellErr.Matches ... }

SEE ALSO:
  - engine.go: Wraps store failures in PersistenceError
  - resolver.go: Raises ShellResolutionError
*/
package inventory

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrTransactionNotFound is returned when a referenced transaction id does not exist.
	// Operations abort before any write.
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrProductNotFound is returned when a transaction references a product that
	// no longer exists, or when a resolve step cannot find the base product.
	ErrProductNotFound = errors.New("product not found")

	// ErrClientNotFound is returned when a sale references an unknown client.
	ErrClientNotFound = errors.New("client not found")

	// ErrSupplierNotFound is returned when a purchase references an unknown supplier.
	ErrSupplierNotFound = errors.New("supplier not found")

	// ErrShellMissing is returned when a finished good has no shell to carry its stock.
	ErrShellMissing = errors.New("no shell product for finished good")

	// ErrShellAmbiguous is returned when more than one shell matches a finished good's name.
	ErrShellAmbiguous = errors.New("ambiguous shell product for finished good")

	// ErrInvalidLink is returned when a shell link does not join a finished good to a shell.
	ErrInvalidLink = errors.New("invalid shell link")

	// ErrInvalidTransaction is returned when a transaction payload fails validation.
	ErrInvalidTransaction = errors.New("invalid transaction")

	// ErrInvalidRecord is returned when a product, client or supplier fails validation.
	ErrInvalidRecord = errors.New("invalid record")

	// ErrDuplicate is returned when a record is created with an id that is
	// already taken.
	ErrDuplicate = errors.New("record already exists")

	// ErrNegativeStock is returned when a write would leave stock below zero and
	// negative stock is not allowed.
	ErrNegativeStock = errors.New("negative stock not allowed")

	// ErrPersistence is returned when an underlying store write or delete failed.
	ErrPersistence = errors.New("persistence failure")

	// ErrConcurrentModification is returned when optimistic locking detects a conflict.
	ErrConcurrentModification = errors.New("concurrent modification detected")

	// ErrStoreRequired is returned when an operation requires a store capability
	// the configured store does not have.
	ErrStoreRequired = errors.New("operation requires extended store interface")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// PersistenceError reports which store step failed.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() []error {
	return []error{ErrPersistence, e.Err}
}

// ShellResolutionError describes a finished good whose shell could not be
// determined. Matches is the number of same-named shells found (0 or >1).
type ShellResolutionError struct {
	ProductID ProductID
	Name      string
	LinkedID  ProductID
	Matches   int
}

func (e *ShellResolutionError) Error() string {
	if e.LinkedID != "" {
		return fmt.Sprintf("finished good %s (%q): linked shell %s is not a shell product", e.ProductID, e.Name, e.LinkedID)
	}
	if e.Matches > 1 {
		return fmt.Sprintf("finished good %s (%q): %d shells share its name", e.ProductID, e.Name, e.Matches)
	}
	return fmt.Sprintf("finished good %s (%q): no shell product found", e.ProductID, e.Name)
}

func (e *ShellResolutionError) Unwrap() error {
	if e.Matches > 1 {
		return ErrShellAmbiguous
	}
	return ErrShellMissing
}

// ValidationError lists the invalid fields of a payload. Record names what
// was validated ("transaction", "product", "client", "supplier").
type ValidationError struct {
	Record string
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	record := e.Record
	if record == "" {
		record = "transaction"
	}
	return "invalid " + record + ": " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error {
	if e.Record == "" || e.Record == "transaction" {
		return ErrInvalidTransaction
	}
	return ErrInvalidRecord
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRetryable returns true if the error might succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrentModification)
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidTransaction) ||
		errors.Is(err, ErrInvalidRecord) ||
		errors.Is(err, ErrInvalidLink) ||
		errors.Is(err, ErrDuplicate) ||
		errors.Is(err, ErrNegativeStock) ||
		errors.Is(err, ErrShellMissing) ||
		errors.Is(err, ErrShellAmbiguous)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrTransactionNotFound) ||
		errors.Is(err, ErrProductNotFound) ||
		errors.Is(err, ErrClientNotFound) ||
		errors.Is(err, ErrSupplierNotFound)
}

// isDomainError reports whether err already carries a domain meaning and must
// not be wrapped as a persistence failure.
func isDomainError(err error) bool {
	return IsNotFound(err) || IsClientError(err) || IsRetryable(err) ||
		errors.Is(err, ErrPersistence) || errors.Is(err, ErrStoreRequired)
}
