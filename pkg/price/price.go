package price

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var shorthandPattern = regexp.MustCompile(`^(\d+(?:\.\d+)?)\s*([a-z]*)\.?$`)

// Multipliers for the Indian shorthand units accepted by Parse.
var (
	Thousand = decimal.NewFromInt(1_000)
	Lakh     = decimal.NewFromInt(100_000)
	Crore    = decimal.NewFromInt(10_000_000)
)

var unitMultipliers = map[string]decimal.Decimal{
	"":       decimal.NewFromInt(1),
	"k":      Thousand,
	"l":      Lakh,
	"lac":    Lakh,
	"lacs":   Lakh,
	"lakh":   Lakh,
	"lakhs":  Lakh,
	"cr":     Crore,
	"crore":  Crore,
	"crores": Crore,
}

// Parse converts a human-entered price such as "80L", "1.2Cr", "45K" or
// "25,00,000" into rupees. Anything it cannot read yields decimal.Zero, so
// callers must treat zero as "unparseable".
func Parse(text string) decimal.Decimal {
	s := strings.ToLower(strings.TrimSpace(text))
	s = strings.TrimPrefix(s, "₹")
	s = strings.TrimPrefix(s, "rs.")
	s = strings.TrimPrefix(s, "rs")
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return decimal.Zero
	}

	match := shorthandPattern.FindStringSubmatch(s)
	if match == nil {
		return decimal.Zero
	}

	multiplier, ok := unitMultipliers[match[2]]
	if !ok {
		return decimal.Zero
	}

	amount, err := decimal.NewFromString(match[1])
	if err != nil {
		return decimal.Zero
	}
	return amount.Mul(multiplier)
}

// Format renders an amount in the largest shorthand unit it reaches, e.g.
// 8000000 -> "80L" and 15000000 -> "1.5Cr". Parse(Format(x)) == x.
func Format(amount decimal.Decimal) string {
	switch {
	case amount.GreaterThanOrEqual(Crore):
		return amount.Shift(-7).String() + "Cr"
	case amount.GreaterThanOrEqual(Lakh):
		return amount.Shift(-5).String() + "L"
	case amount.GreaterThanOrEqual(Thousand):
		return amount.Shift(-3).String() + "K"
	default:
		return amount.String()
	}
}

// Lakhs renders an amount as lakhs with two decimals ("16.00L"), the unit the
// sales team quotes payment breakdowns in.
func Lakhs(amount decimal.Decimal) string {
	return amount.Shift(-5).StringFixed(2) + "L"
}
