package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEffective(t *testing.T) {
	cases := []struct {
		name      string
		rating    float64
		basePrice float64
		salePrice float64
		want      float64
	}{
		{"bargain at base price", 60, 1.0, 1.0, 66},
		{"bargain at threshold", 60, 1.0, 1.5, 66},
		{"fair just above bargain", 60, 1.0, 1.51, 60},
		{"fair at overpay threshold", 60, 1.0, 3.0, 60},
		{"overpay", 60, 1.0, 3.01, 54},
		{"zero base price passes through", 60, 0, 5.0, 60},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.want, Effective(tc.rating, tc.basePrice, tc.salePrice), 1e-9)
		})
	}
}

func TestTotal(t *testing.T) {
	picks := []Pick{
		{ID: "c", Rating: 80, BasePrice: 1, SalePrice: 1},   // bargain -> 88
		{ID: "v", Rating: 60, BasePrice: 1, SalePrice: 2},   // fair -> 60
		{ID: "x", Rating: 50, BasePrice: 1, SalePrice: 4},   // overpay -> 45
		{ID: "y", Rating: 70, BasePrice: 1, SalePrice: 1.2}, // bargain -> 77
	}

	// captain 2*88 + vice 1.5*60 + (45 + bonus) + (77 + bonus)
	// bonus = 0.10*88 + 0.05*60 = 11.8
	want := 2*88.0 + 1.5*60.0 + (45 + 11.8) + (77 + 11.8)
	assert.InDelta(t, Round2(want), Total(picks, "c", "v"), 1e-9)
}

func TestTotal_CaptainChoiceMatters(t *testing.T) {
	picks := []Pick{
		{ID: "a", Rating: 90, BasePrice: 1, SalePrice: 2},
		{ID: "b", Rating: 40, BasePrice: 1, SalePrice: 2},
		{ID: "d", Rating: 55, BasePrice: 1, SalePrice: 2},
	}
	strong := Total(picks, "a", "d")
	weak := Total(picks, "b", "d")
	assert.Greater(t, strong, weak, "captaining the best player must outscore captaining the worst")
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 1.23, Round2(1.2345))
	assert.Equal(t, 1.24, Round2(1.236))
	assert.Equal(t, -0.25, Round2(-0.251))
	assert.Equal(t, 100.0, Round2(100))
}
