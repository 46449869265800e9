package inventory

import "github.com/shopspring/decimal"

// Direction says whether a transaction's effect is being applied or undone.
type Direction int

const (
	Apply Direction = iota
	Reverse
)

func (d Direction) String() string {
	if d == Reverse {
		return "reverse"
	}
	return "apply"
}

// Delta returns the signed stock change for a transaction of the given kind
// and quantity. Applying a sale removes stock, applying a purchase adds it;
// reversing flips the sign.
//
//	apply   sale     -q
//	apply   purchase +q
//	reverse sale     +q
//	reverse purchase -q
func Delta(kind Kind, qty decimal.Decimal, dir Direction) decimal.Decimal {
	d := qty
	if kind == KindSale {
		d = d.Neg()
	}
	if dir == Reverse {
		d = d.Neg()
	}
	return d
}
