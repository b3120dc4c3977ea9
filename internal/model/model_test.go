package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseGSTRate(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		wantHalf string
		wantErr  bool
	}{
		{name: "exempt", in: "0", wantHalf: "0"},
		{name: "five percent", in: "5", wantHalf: "2.5"},
		{name: "twelve percent", in: "12", wantHalf: "6"},
		{name: "eighteen percent", in: "18", wantHalf: "9"},
		{name: "fractional", in: "0.25", wantHalf: "0.125"},
		{name: "negative", in: "-5", wantErr: true},
		{name: "malformed", in: "five", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := ParseGSTRate(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidArgument)
				return
			}
			require.NoError(t, err)
			assert.True(t, r.Half().Equal(MustGSTRate(tt.wantHalf)), "half of %s = %s", tt.in, r.Half())
		})
	}
}

func TestGSTRateJSON(t *testing.T) {
	var payload struct {
		Rate GSTRate `json:"rate"`
	}

	require.NoError(t, json.Unmarshal([]byte(`{"rate": 12}`), &payload))
	assert.True(t, payload.Rate.Equal(MustGSTRate("12")))

	require.NoError(t, json.Unmarshal([]byte(`{"rate": "2.5"}`), &payload))
	assert.True(t, payload.Rate.Equal(MustGSTRate("2.5")))

	out, err := json.Marshal(payload)
	require.NoError(t, err)
	assert.JSONEq(t, `{"rate": 2.5}`, string(out))

	err = json.Unmarshal([]byte(`{"rate": -1}`), &payload)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestPaymentModeValid(t *testing.T) {
	for _, p := range []PaymentMode{PaymentModeCash, PaymentModeCard, PaymentModeUPI, PaymentModeCredit} {
		assert.True(t, p.Valid(), string(p))
	}
	assert.False(t, PaymentMode("cheque").Valid())
	assert.False(t, PaymentMode("").Valid())
}

func TestTransactionErrorMatching(t *testing.T) {
	cause := errors.New("connection reset by peer")
	err := fmt.Errorf("commit sale: %w", &TransactionError{Err: cause})

	assert.ErrorIs(t, err, ErrTransactionFailed)
	assert.ErrorIs(t, err, cause)

	var txErr *TransactionError
	require.ErrorAs(t, err, &txErr)
	assert.Contains(t, err.Error(), "please retry")
}

func TestInsufficientStockErrorMessage(t *testing.T) {
	err := &InsufficientStockError{Requested: 10, Available: 5}
	assert.Equal(t, "insufficient stock: requested 10, available 5", err.Error())

	err.MedicineID = 7
	assert.Contains(t, err.Error(), "medicine 7")
}

func TestAllocationTotal(t *testing.T) {
	a := Allocation{{BatchID: 1, Quantity: 5}, {BatchID: 2, Quantity: 5}}
	assert.Equal(t, 10, a.Total())
	assert.Equal(t, 0, Allocation(nil).Total())
}
