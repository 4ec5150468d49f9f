package stock_test

import (
	"testing"

	"gamestore/internal/stock"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name    string
		current int
		minimum int
		want    stock.Status
	}{
		{"zero is out of stock", 0, 5, stock.OutOfStock},
		{"negative is out of stock", -2, 5, stock.OutOfStock},
		{"zero with zero minimum", 0, 0, stock.OutOfStock},
		{"one unit under minimum", 1, 5, stock.LowStock},
		{"equal to minimum is low", 5, 5, stock.LowStock},
		{"above minimum", 6, 5, stock.Normal},
		{"positive with zero minimum", 1, 0, stock.Normal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, stock.Classify(tc.current, tc.minimum))
		})
	}
}

func TestStatus_NeedsAttention(t *testing.T) {
	assert.True(t, stock.OutOfStock.NeedsAttention())
	assert.True(t, stock.LowStock.NeedsAttention())
	assert.False(t, stock.Normal.NeedsAttention())
}

func TestStatus_Valid(t *testing.T) {
	assert.True(t, stock.LowStock.Valid())
	assert.False(t, stock.Status("overstock").Valid())
}
