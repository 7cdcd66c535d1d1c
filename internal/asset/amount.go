package asset

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// BpsDenominator is the number of basis points in 100%.
const BpsDenominator = 10_000

var (
	ErrNilAsset        = errors.New("asset: nil asset")
	ErrNilRaw          = errors.New("asset: nil raw value")
	ErrNegativeAmount  = errors.New("asset: negative amount")
	ErrAssetMismatch   = errors.New("asset: cannot operate on different assets")
	ErrNegativeResult  = errors.New("asset: operation would result in negative amount")
	ErrTooManyDecimals = errors.New("asset: too many decimal places for asset")
	ErrDivisionByZero  = errors.New("asset: division by zero")
	ErrInvalidBps      = errors.New("asset: basis points out of range")
)

// Amount is an immutable, non-negative quantity of one asset, kept in the
// asset's smallest unit.
type Amount struct {
	raw   *big.Int
	asset *Asset
}

// NewAmount creates an Amount from a raw value in the smallest unit.
func NewAmount(a *Asset, raw *big.Int) Amount {
	if a == nil {
		panic(ErrNilAsset)
	}
	if raw == nil {
		panic(ErrNilRaw)
	}
	if raw.Sign() < 0 {
		panic(ErrNegativeAmount)
	}
	return Amount{raw: new(big.Int).Set(raw), asset: a}
}

// Zero returns a zero Amount of a.
func Zero(a *Asset) Amount {
	return NewAmount(a, new(big.Int))
}

// NewAmountFromUint64 creates an Amount from a uint64 raw value.
func NewAmountFromUint64(a *Asset, raw uint64) Amount {
	return NewAmount(a, new(big.Int).SetUint64(raw))
}

// Raw returns a copy of the raw value.
func (a Amount) Raw() *big.Int {
	if a.raw == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(a.raw)
}

func (a Amount) Asset() *Asset { return a.asset }

// IsSet reports whether the amount was constructed (the zero Amount{} is not).
func (a Amount) IsSet() bool { return a.asset != nil }

func (a Amount) IsZero() bool { return a.raw == nil || a.raw.Sign() == 0 }

func (a Amount) IsPositive() bool { return a.raw != nil && a.raw.Sign() > 0 }

// ---------------------------------------------------------------------------
// Arithmetic (same asset only)
// ---------------------------------------------------------------------------

func (a Amount) Add(b Amount) (Amount, error) {
	if err := a.checkSameAsset(b); err != nil {
		return Amount{}, err
	}
	return NewAmount(a.asset, new(big.Int).Add(a.raw, b.raw)), nil
}

// Sub returns a-b. A negative result is an error, never a wrap-around.
func (a Amount) Sub(b Amount) (Amount, error) {
	if err := a.checkSameAsset(b); err != nil {
		return Amount{}, err
	}
	if a.raw.Cmp(b.raw) < 0 {
		return Amount{}, fmt.Errorf("%w: %s - %s", ErrNegativeResult, a, b)
	}
	return NewAmount(a.asset, new(big.Int).Sub(a.raw, b.raw)), nil
}

// MulDiv returns a*num/den rounded down.
func (a Amount) MulDiv(num, den *big.Int) (Amount, error) {
	if den == nil || den.Sign() == 0 {
		return Amount{}, ErrDivisionByZero
	}
	if num == nil || num.Sign() < 0 || den.Sign() < 0 {
		return Amount{}, ErrNegativeAmount
	}
	v := new(big.Int).Mul(a.raw, num)
	return NewAmount(a.asset, v.Quo(v, den)), nil
}

// ApplyBps removes bps basis points from the amount, rounding down. It is
// how slippage tolerance turns an expected output into a minimum output.
func (a Amount) ApplyBps(bps uint32) (Amount, error) {
	if bps > BpsDenominator {
		return Amount{}, fmt.Errorf("%w: %d", ErrInvalidBps, bps)
	}
	return a.MulDiv(big.NewInt(int64(BpsDenominator-bps)), big.NewInt(BpsDenominator))
}

// Rescale expresses the same decimal quantity in another asset, adjusting
// for decimals. Extra precision is rounded down. It is used where two assets
// are pegged one to one, e.g. a real asset and its synthetic representation.
func (a Amount) Rescale(to *Asset) Amount {
	if to == nil {
		panic(ErrNilAsset)
	}
	from := int(a.asset.Decimals())
	diff := int(to.Decimals()) - from
	raw := a.Raw()
	switch {
	case diff > 0:
		raw.Mul(raw, pow10(diff))
	case diff < 0:
		raw.Quo(raw, pow10(-diff))
	}
	return NewAmount(to, raw)
}

// ---------------------------------------------------------------------------
// Comparison
// ---------------------------------------------------------------------------

// Cmp compares amounts of the same asset.
func (a Amount) Cmp(b Amount) (int, error) {
	if err := a.checkSameAsset(b); err != nil {
		return 0, err
	}
	return a.raw.Cmp(b.raw), nil
}

// Equals reports whether both amounts have the same asset and value.
func (a Amount) Equals(b Amount) bool {
	if !a.asset.Equals(b.asset) {
		return false
	}
	return a.Raw().Cmp(b.Raw()) == 0
}

func (a Amount) GreaterThan(b Amount) (bool, error) {
	c, err := a.Cmp(b)
	return c > 0, err
}

func (a Amount) LessThanOrEqual(b Amount) (bool, error) {
	c, err := a.Cmp(b)
	return c <= 0, err
}

// Min returns the smaller of two same-asset amounts.
func Min(a, b Amount) (Amount, error) {
	c, err := a.Cmp(b)
	if err != nil {
		return Amount{}, err
	}
	if c <= 0 {
		return a, nil
	}
	return b, nil
}

// ---------------------------------------------------------------------------
// Boundary conversions
// ---------------------------------------------------------------------------

// ToDecimal converts the amount to whole units, e.g. 1500000 USDC raw -> 1.5.
func (a Amount) ToDecimal() decimal.Decimal {
	if a.raw == nil || a.asset == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(a.raw, -int32(a.asset.Decimals()))
}

// ParseDecimal converts whole units into an Amount. Input with more
// fractional digits than the asset supports is rejected, not truncated.
func ParseDecimal(a *Asset, d decimal.Decimal) (Amount, error) {
	if a == nil {
		return Amount{}, ErrNilAsset
	}
	if d.IsNegative() {
		return Amount{}, ErrNegativeAmount
	}
	scaled := d.Shift(int32(a.Decimals()))
	if !scaled.Equal(scaled.Truncate(0)) {
		return Amount{}, fmt.Errorf("%w: %s has %d decimals", ErrTooManyDecimals, a, a.Decimals())
	}
	return NewAmount(a, scaled.BigInt()), nil
}

// ParseString parses whole units from a decimal string.
func ParseString(a *Asset, s string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, fmt.Errorf("asset: invalid decimal string: %w", err)
	}
	return ParseDecimal(a, d)
}

// ParseRaw parses a base-10 raw value in the smallest unit.
func ParseRaw(a *Asset, s string) (Amount, error) {
	if a == nil {
		return Amount{}, ErrNilAsset
	}
	raw, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return Amount{}, fmt.Errorf("asset: invalid raw amount %q", s)
	}
	if raw.Sign() < 0 {
		return Amount{}, ErrNegativeAmount
	}
	return NewAmount(a, raw), nil
}

// String renders "1.5 USDC".
func (a Amount) String() string {
	if a.asset == nil {
		return "0 ???"
	}
	return a.ToDecimal().String() + " " + a.asset.Symbol()
}

func (a Amount) checkSameAsset(b Amount) error {
	if a.asset == nil || b.asset == nil {
		return ErrNilAsset
	}
	if !a.asset.Equals(b.asset) {
		return fmt.Errorf("%w: %s vs %s", ErrAssetMismatch, a.asset, b.asset)
	}
	return nil
}

func pow10(n int) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}
