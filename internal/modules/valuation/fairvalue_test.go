package valuation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDividendGrowth(t *testing.T) {
	tests := []struct {
		name    string
		dps     float64
		dpsPrev float64
		want    float64
	}{
		{
			name:    "growing dividend",
			dps:     1200,
			dpsPrev: 1000,
			want:    0.2,
		},
		{
			name:    "shrinking dividend",
			dps:     900,
			dpsPrev: 1000,
			want:    -0.1,
		},
		{
			name:    "just started paying",
			dps:     500,
			dpsPrev: 0,
			want:    0.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, DividendGrowth(tt.dps, tt.dpsPrev), 1e-12)
		})
	}
}

func TestGGMFairValue(t *testing.T) {
	t.Run("defined value", func(t *testing.T) {
		// dps 550 grown 10%, discounted at 15%: 550*1.1/0.05 = 12100
		fv := GGMFairValue(550, 0.1, 0.15)
		assert.True(t, fv.Defined)
		assert.InDelta(t, 12100, fv.Value, 1e-9)
	})

	t.Run("undefined when growth exceeds required return", func(t *testing.T) {
		// growth 20% from 1000 -> 1200, required return only 8%
		fv := GGMFairValue(1200, 0.2, 0.08)
		assert.False(t, fv.Defined)
		assert.Equal(t, ReasonRequiredBelowGrowth, fv.Reason)
	})

	t.Run("undefined when growth equals required return", func(t *testing.T) {
		fv := GGMFairValue(100, 0.1, 0.1)
		assert.False(t, fv.Defined)
	})

	t.Run("non-negative for valid inputs", func(t *testing.T) {
		cases := []struct{ dps, g, r float64 }{
			{0, 0, 0.05},
			{100, 0, 0.01},
			{100, 0.04, 0.05},
			{2500, -0.5, 0.03},
		}
		for _, c := range cases {
			fv := GGMFairValue(c.dps, c.g, c.r)
			assert.True(t, fv.Defined)
			assert.GreaterOrEqual(t, fv.Value, 0.0)
		}
	})
}

func TestResidualIncomeValue(t *testing.T) {
	t.Run("defined value", func(t *testing.T) {
		// profit grew 21% over two years: g = sqrt(1.21)-1 = 0.1
		fv := ResidualIncomeValue(121000, 100000, 500000, 0.15)
		assert.True(t, fv.Defined)
		// NI = 121000*0.1 = 12100; V = 500000 + (12100 - 75000)/0.05
		assert.InDelta(t, 500000+(12100-75000)/0.05, fv.Value, 1e-6)
	})

	t.Run("undefined without base-year profit", func(t *testing.T) {
		fv := ResidualIncomeValue(121000, 0, 500000, 0.15)
		assert.False(t, fv.Defined)
		assert.Equal(t, ReasonNoBaseProfit, fv.Reason)
	})

	t.Run("undefined for negative profit ratio", func(t *testing.T) {
		fv := ResidualIncomeValue(-50000, 100000, 500000, 0.15)
		assert.False(t, fv.Defined)
		assert.Equal(t, ReasonNegativeProfitRatio, fv.Reason)
	})

	t.Run("negative base with negative latest is a positive ratio", func(t *testing.T) {
		fv := ResidualIncomeValue(-121000, -100000, 500000, 0.15)
		assert.True(t, fv.Defined)
	})

	t.Run("undefined when growth reaches required return", func(t *testing.T) {
		// g = sqrt(4)-1 = 1.0 >> r
		fv := ResidualIncomeValue(400000, 100000, 500000, 0.15)
		assert.False(t, fv.Defined)
		assert.Equal(t, ReasonRequiredBelowGrowth, fv.Reason)
	})
}
