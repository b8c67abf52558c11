package entity

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

type Currency string

const (
	USD Currency = "USD"
	CAD Currency = "CAD"
	EUR Currency = "EUR"
)

// Currencies lists the supported currencies in their canonical order.
var Currencies = []Currency{USD, CAD, EUR}

// ParseCurrency accepts one of the enumerated tokens, case-insensitively.
func ParseCurrency(s string) (Currency, error) {
	c := Currency(strings.ToUpper(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", InvalidArgument(`Currency "` + s + `" is not supported.`)
	}
	return c, nil
}

func (c Currency) Valid() bool {
	switch c {
	case USD, CAD, EUR:
		return true
	}
	return false
}

func (c Currency) String() string { return string(c) }

// Pair is a directed conversion, quoted as From/To.
type Pair struct {
	From, To Currency
}

func (p Pair) String() string { return string(p.From) + "/" + string(p.To) }

// Fixed rates. They are not inverses of each other (USD/CAD 1.33 vs CAD/USD 0.75)
// and must stay that way.
var rates = map[Pair]decimal.Decimal{
	{USD, CAD}: decimal.RequireFromString("1.33"),
	{CAD, USD}: decimal.RequireFromString("0.75"),
	{USD, EUR}: decimal.RequireFromString("0.88"),
	{EUR, USD}: decimal.RequireFromString("1.14"),
	{CAD, EUR}: decimal.RequireFromString("0.66"),
	{EUR, CAD}: decimal.RequireFromString("1.51"),
}

// Rate returns the multiplicative factor for a directed pair.
func Rate(from, to Currency) (decimal.Decimal, error) {
	if from == to && from.Valid() {
		return decimal.NewFromInt(1), nil
	}
	r, ok := rates[Pair{from, to}]
	if !ok {
		p := Pair{from, to}
		return decimal.Decimal{}, WithMetadata(CodeInvalidCurrencyPair,
			"Invalid currency pair "+p.String()+".",
			map[string]string{"pair": p.String()})
	}
	return r, nil
}

// Convert converts amount (minor units) from one currency to another.
// The product is computed exactly and rounded half-to-even to whole minor units.
// Same-currency conversion returns amount unchanged.
func Convert(from, to Currency, amount int64) (int64, error) {
	if from == to && from.Valid() {
		return amount, nil
	}
	r, err := Rate(from, to)
	if err != nil {
		return 0, err
	}
	return minorUnits(decimal.NewFromInt(amount).Mul(r))
}

var (
	maxAmount = decimal.NewFromInt(math.MaxInt64)
	minAmount = decimal.NewFromInt(math.MinInt64)
)

// minorUnits rounds d half-to-even and refuses values that do not fit in int64.
func minorUnits(d decimal.Decimal) (int64, error) {
	d = d.RoundBank(0)
	if d.GreaterThan(maxAmount) || d.LessThan(minAmount) {
		return 0, InvalidArgument("Amount is out of range.")
	}
	return d.IntPart(), nil
}
