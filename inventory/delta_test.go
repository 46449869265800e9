package inventory

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestDelta_SignConvention(t *testing.T) {
	four := decimal.NewFromInt(4)
	tests := []struct {
		kind Kind
		dir  Direction
		want int64
	}{
		{KindSale, Apply, -4},
		{KindPurchase, Apply, 4},
		{KindSale, Reverse, 4},
		{KindPurchase, Reverse, -4},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind)+"/"+tt.dir.String(), func(t *testing.T) {
			got := Delta(tt.kind, four, tt.dir)
			assert.True(t, got.Equal(decimal.NewFromInt(tt.want)), "got %s", got)
		})
	}
}

func TestDelta_ReverseUndoesApply(t *testing.T) {
	q := decimal.RequireFromString("2.75") // meters of fabric
	for _, k := range []Kind{KindSale, KindPurchase} {
		sum := Delta(k, q, Apply).Add(Delta(k, q, Reverse))
		assert.True(t, sum.IsZero(), "%s: apply+reverse = %s", k, sum)
	}
}
