package preview

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCalc() *Calculator {
	return NewCalculator(map[string]int32{"W723RTUpoZ": 3})
}

func TestDeposit_Divisor(t *testing.T) {
	c := newCalc()

	tests := []struct {
		name    string
		vaultID string
		amount  string
		want    string
	}{
		{"divisor vault", "W723RTUpoZ", "1000000", "1000"},
		{"divisor vault lower case", "w723rtupoz", "2500", "2.5"},
		{"plain vault", "Ahg1opVcGX", "1000000", "1000000"},
		{"zero", "W723RTUpoZ", "0", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.Deposit(decimal.RequireFromString(tt.amount), tt.vaultID)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())

			w, err := c.Withdraw(decimal.RequireFromString(tt.amount), tt.vaultID)
			require.NoError(t, err)
			assert.Equal(t, tt.want, w.String())
		})
	}
}

func TestRedeem_Identity(t *testing.T) {
	c := newCalc()
	for _, id := range []string{"W723RTUpoZ", "LQM2cdzDY3", ""} {
		got, err := c.Redeem(decimal.NewFromInt(123456), id)
		require.NoError(t, err)
		assert.Equal(t, "123456", got.String())
	}
}

func TestNegativeRejected(t *testing.T) {
	c := newCalc()
	neg := decimal.NewFromInt(-1)

	_, err := c.Redeem(neg, "x")
	assert.ErrorIs(t, err, ErrNegativeAmount)
	_, err = c.Deposit(neg, "W723RTUpoZ")
	assert.ErrorIs(t, err, ErrNegativeAmount)
	_, err = c.Withdraw(neg, "x")
	assert.ErrorIs(t, err, ErrNegativeAmount)
}

func TestPreviewProperties(t *testing.T) {
	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 200
	properties := gopter.NewProperties(params)
	c := newCalc()

	properties.Property("redeem is identity", prop.ForAll(
		func(n int64) bool {
			d := decimal.NewFromInt(n)
			got, err := c.Redeem(d, "W723RTUpoZ")
			return err == nil && got.Equal(d)
		},
		gen.Int64Range(0, 1<<53),
	))

	properties.Property("divisor deposit scales by 1000", prop.ForAll(
		func(n int64) bool {
			d := decimal.NewFromInt(n)
			got, err := c.Deposit(d, "W723RTUpoZ")
			return err == nil && got.Mul(decimal.NewFromInt(1000)).Equal(d)
		},
		gen.Int64Range(0, 1<<53),
	))

	properties.Property("preview is idempotent", prop.ForAll(
		func(n int64, id string) bool {
			d := decimal.NewFromInt(n)
			a, err1 := c.Deposit(d, id)
			b, err2 := c.Deposit(d, id)
			return err1 == nil && err2 == nil && a.Equal(b)
		},
		gen.Int64Range(0, 1<<53),
		gen.OneConstOf("W723RTUpoZ", "Ahg1opVcGX", "LQM2cdzDY3"),
	))

	properties.TestingRun(t)
}
