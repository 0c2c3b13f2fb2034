package domain

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	gramsPerOunce = 28.35
	gramsPerPound = 453.592
)

var weightPattern = regexp.MustCompile(`(?i)(\d+(?:[.,]\d+)?)\s*(kg|kilograms?|g|grams?|gr|oz|ounces?|lbs?|pounds?)\b`)

// ParseWeightGrams extracts a net weight in grams from a label such as "340g", "1 kg" or "12oz"
func ParseWeightGrams(label string) (float64, bool) {
	m := weightPattern.FindStringSubmatch(label)
	if m == nil {
		return 0, false
	}

	value, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", "."), 64)
	if err != nil || value <= 0 {
		return 0, false
	}

	unit := strings.ToLower(m[2])
	switch {
	case strings.HasPrefix(unit, "k"):
		return value * 1000, true
	case strings.HasPrefix(unit, "o"):
		return value * gramsPerOunce, true
	case strings.HasPrefix(unit, "l"), strings.HasPrefix(unit, "p"):
		return value * gramsPerPound, true
	default:
		return value, true
	}
}

// PricePerGram divides a price by a weight in grams, rounded to 4 places
func PricePerGram(amount decimal.Decimal, grams float64) (decimal.Decimal, bool) {
	if grams <= 0 || amount.IsNegative() {
		return decimal.Zero, false
	}
	return amount.Div(decimal.NewFromFloat(grams)).Round(4), true
}
