package money

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	tests := []struct {
		raw     string
		cents   int64
		wantErr bool
	}{
		{"12.34", 1234, false},
		{"0.05", 5, false},
		{"86.25", 8625, false},
		{"100", 10000, false},
		{"7.5", 750, false},
		{"-3.10", -310, false},
		{"", 0, true},
		{"1.234", 0, true},
		{"12,34", 0, true},
		{"abc", 0, true},
	}
	for _, tt := range tests {
		got, err := Parse(tt.raw)
		if tt.wantErr {
			assert.Error(t, err, tt.raw)
			continue
		}
		assert.NoError(t, err, tt.raw)
		assert.Equal(t, tt.cents, got.Cents(), tt.raw)
	}
}

func TestString(t *testing.T) {
	assert.Equal(t, "12.34", FromCents(1234).String())
	assert.Equal(t, "0.05", FromCents(5).String())
	assert.Equal(t, "-3.10", FromCents(-310).String())
	assert.Equal(t, "0.00", FromCents(0).String())
}

func TestSplitEven(t *testing.T) {
	parts := SplitEven(FromCents(1000), 3)
	assert.Equal(t, []Amount{334, 333, 333}, parts)
	assert.Equal(t, FromCents(1000), Sum(parts))

	parts = SplitEven(FromCents(1000), 1)
	assert.Equal(t, []Amount{1000}, parts)

	parts = SplitEven(FromCents(1001), 2)
	assert.Equal(t, []Amount{501, 500}, parts)
	assert.Equal(t, FromCents(1001), Sum(parts))

	assert.Nil(t, SplitEven(FromCents(100), 0))
}

func TestSplitEvenNegativeTotal(t *testing.T) {
	// refunds split the same way, residue subtracted from the front
	parts := SplitEven(FromCents(-1000), 3)
	assert.Equal(t, []Amount{-334, -333, -333}, parts)
	assert.Equal(t, FromCents(-1000), Sum(parts))

	parts = SplitEven(FromCents(-1001), 2)
	assert.Equal(t, []Amount{-501, -500}, parts)
	assert.Equal(t, FromCents(-1001), Sum(parts))
}

func TestDistribute(t *testing.T) {
	// Proportional shared-cost example: $11.25 over $15/$35/$25 spends.
	parts, err := Distribute(FromCents(1125), []Amount{1500, 3500, 2500})
	assert.NoError(t, err)
	assert.Equal(t, []Amount{225, 525, 375}, parts)

	// Largest remainder keeps the sum exact.
	parts, err = Distribute(FromCents(100), []Amount{1, 1, 1})
	assert.NoError(t, err)
	assert.Equal(t, FromCents(100), Sum(parts))
	assert.Equal(t, []Amount{34, 33, 33}, parts)

	_, err = Distribute(FromCents(100), []Amount{0, 0})
	assert.Error(t, err)

	parts, err = Distribute(FromCents(0), []Amount{0, 0})
	assert.NoError(t, err)
	assert.Equal(t, []Amount{0, 0}, parts)
}

func TestDistributeExactSumFuzzish(t *testing.T) {
	weights := []Amount{199, 301, 17, 4483, 1000}
	for total := int64(0); total < 500; total++ {
		parts, err := Distribute(FromCents(total), weights)
		assert.NoError(t, err)
		assert.Equal(t, FromCents(total), Sum(parts), "total=%d", total)
	}
}
