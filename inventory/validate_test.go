package inventory

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransactionInput_Validate(t *testing.T) {
	valid := TransactionInput{
		Kind:      KindSale,
		ProductID: "p1",
		ClientID:  "c1",
		Quantity:  decimal.RequireFromString("0.5"),
		UnitPrice: decimal.Zero,
	}
	require.NoError(t, valid.Validate())

	purchase := valid
	purchase.Kind = KindPurchase
	purchase.ClientID = ""
	purchase.SupplierID = "s1"
	require.NoError(t, purchase.Validate())

	bad := TransactionInput{
		Kind:      "gift",
		Quantity:  decimal.NewFromInt(-1),
		UnitPrice: decimal.NewFromInt(-5),
	}
	err := bad.Validate()
	require.ErrorIs(t, err, ErrInvalidTransaction)
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.Fields, "Kind")
	assert.Contains(t, vErr.Fields, "ProductID")
	assert.Contains(t, vErr.Fields, "Quantity")
	assert.Contains(t, vErr.Fields, "UnitPrice")

	noClient := valid
	noClient.ClientID = ""
	err = noClient.Validate()
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "is required for a sale", vErr.Fields["ClientID"])
}

func TestTransactionInput_Validate_ExactDecimals(t *testing.T) {
	// GIVEN: Amounts beyond float64 range on either side of zero
	tiny := decimal.New(1, -400)
	in := TransactionInput{
		Kind:       KindPurchase,
		ProductID:  "p1",
		SupplierID: "s1",
		Quantity:   tiny,
		UnitPrice:  decimal.Zero,
	}

	// WHEN/THEN: A positive quantity passes and a negative price fails
	require.NoError(t, in.Validate())

	in.UnitPrice = tiny.Neg()
	var vErr *ValidationError
	require.ErrorAs(t, in.Validate(), &vErr)
	assert.Equal(t, "must be at least 0", vErr.Fields["UnitPrice"])

	in.UnitPrice = decimal.Zero
	in.Quantity = decimal.Zero
	require.ErrorAs(t, in.Validate(), &vErr)
	assert.Equal(t, "must be greater than 0", vErr.Fields["Quantity"])
}
