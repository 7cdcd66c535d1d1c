package domain

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// Impact is a price impact percentage clamped to [0, 100].
type Impact struct {
	pct decimal.Decimal
}

// NewImpact clamps pct into range.
func NewImpact(pct decimal.Decimal) Impact {
	switch {
	case pct.IsNegative():
		return Impact{}
	case pct.GreaterThan(hundred):
		return Impact{pct: hundred}
	}
	return Impact{pct: pct}
}

// ImpactFromRatio turns "received per expected" into an impact:
// a ratio of 0.995 is 0.5%.
func ImpactFromRatio(ratio decimal.Decimal) Impact {
	return NewImpact(decimal.NewFromInt(1).Sub(ratio).Mul(hundred))
}

// Add sums two impacts and clamps the result.
func (i Impact) Add(other Impact) Impact {
	return NewImpact(i.pct.Add(other.pct))
}

// SumImpacts adds every impact, clamping once at the end.
func SumImpacts(impacts ...Impact) Impact {
	total := decimal.Zero
	for _, i := range impacts {
		total = total.Add(i.pct)
	}
	return NewImpact(total)
}

func (i Impact) Percent() decimal.Decimal { return i.pct }

func (i Impact) IsZero() bool { return i.pct.IsZero() }

func (i Impact) String() string { return i.pct.StringFixed(4) + "%" }
