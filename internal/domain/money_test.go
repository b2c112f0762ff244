package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestFormatUSD(t *testing.T) {
	cases := map[string]string{
		"0":          "$0.00",
		"300":        "$300.00",
		"1000":       "$1,000.00",
		"85000":      "$85,000.00",
		"1248765.42": "$1,248,765.42",
		"-12000.5":   "-$12,000.50",
	}
	for in, want := range cases {
		assert.Equal(t, want, FormatUSD(decimal.RequireFromString(in)), in)
	}
}
