/*
resolver.go - Stock target resolution

PURPOSE:
  Decides which product's counter a transaction actually moves.

RULES:
  1. Any product that is not a finished good owns its own stock.
  2. A finished good with LinkedShellID moves that shell's stock. The link
     must point at an existing product of category shell.
  3. A finished good without a link falls back to the legacy name match:
     the single shell whose normalized name equals the finished good's.
     Zero matches is ErrShellMissing, several is ErrShellAmbiguous.
  4. There is no silent fallback onto the finished good itself. A finished
     good's own Stock field is never written by the engine.
  5. Reversals use the target recorded on the transaction when it was
     applied, so relinking a shell or toggling the name match never moves
     stock that was taken from another shell.

SEE ALSO:
  - names.go: NormalizeName, the matching key
  - engine.go: Calls resolve inside each operation's transaction
*/
package inventory

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// StockTarget is the product whose counter a transaction moves, as read at
// resolution time.
type StockTarget struct {
	ProductID ProductID
	Name      string
	Stock     decimal.Decimal
	Version   int64

	// RedirectedFrom is the finished good whose sale was redirected here.
	// Empty when the product owns its own stock.
	RedirectedFrom ProductID
}

// Redirected reports whether the target differs from the transaction's product.
func (t StockTarget) Redirected() bool {
	return t.RedirectedFrom != ""
}

func targetOf(p Product) StockTarget {
	return StockTarget{ProductID: p.ID, Name: p.Name, Stock: p.Stock, Version: p.Version}
}

// appliedTarget returns the counter tx's stored effect sits in: the recorded
// StockProductID, or a fresh resolution for rows that predate it.
func (e *Engine) appliedTarget(ctx context.Context, es EntityStore, tx Transaction) (StockTarget, error) {
	if tx.StockProductID == "" {
		return e.resolve(ctx, es, tx.ProductID)
	}
	p, err := es.GetProduct(ctx, tx.StockProductID)
	if err != nil {
		return StockTarget{}, err
	}
	t := targetOf(p)
	if p.ID != tx.ProductID {
		t.RedirectedFrom = tx.ProductID
	}
	return t, nil
}

// resolve loads the product and resolves its stock target.
// A missing product is ErrProductNotFound.
func (e *Engine) resolve(ctx context.Context, es EntityStore, id ProductID) (StockTarget, error) {
	p, err := es.GetProduct(ctx, id)
	if err != nil {
		return StockTarget{}, err
	}
	return e.resolveProduct(ctx, es, p)
}

func (e *Engine) resolveProduct(ctx context.Context, es EntityStore, p Product) (StockTarget, error) {
	if !p.IsFinishedGood() {
		return targetOf(p), nil
	}

	if p.LinkedShellID != "" {
		shell, err := es.GetProduct(ctx, p.LinkedShellID)
		if errors.Is(err, ErrProductNotFound) {
			return StockTarget{}, &ShellResolutionError{ProductID: p.ID, Name: p.Name, LinkedID: p.LinkedShellID}
		}
		if err != nil {
			return StockTarget{}, err
		}
		if shell.Category != CategoryShell {
			return StockTarget{}, &ShellResolutionError{ProductID: p.ID, Name: p.Name, LinkedID: p.LinkedShellID}
		}
		t := targetOf(shell)
		t.RedirectedFrom = p.ID
		return t, nil
	}

	if !e.opts.ShellNameMatch {
		return StockTarget{}, &ShellResolutionError{ProductID: p.ID, Name: p.Name}
	}

	shell, err := es.FindShellByName(ctx, p.Name)
	if errors.Is(err, ErrProductNotFound) {
		return StockTarget{}, &ShellResolutionError{ProductID: p.ID, Name: p.Name}
	}
	var shellErr *ShellResolutionError
	if errors.As(err, &shellErr) {
		shellErr.ProductID = p.ID
		shellErr.Name = p.Name
		return StockTarget{}, shellErr
	}
	if err != nil {
		return StockTarget{}, err
	}

	e.log.DebugContext(ctx, "finished good redirected by name",
		"product_id", p.ID, "shell_id", shell.ID, "name", p.Name)
	t := targetOf(shell)
	t.RedirectedFrom = p.ID
	return t, nil
}
