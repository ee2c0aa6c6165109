package math

import (
	gomath "math"
	"math/big"
	"zetago/constants"

	"github.com/go-errors/errors"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidPrecision = errors.New("invalid precision")
	ErrInvalidAmount    = errors.New("invalid amount")
)

// Precision is the set of scales used to turn on-chain integers into decimals.
type Precision struct {
	// Platform is the number of decimals of prices and other monetary fixed-point values.
	Platform int32
	// Position is the number of decimals of position sizes.
	Position int32
	// TickSize is the minimum price increment, in platform precision units.
	TickSize int64
}

var DefaultPrecision = Precision{
	Platform: constants.PLATFORM_PRECISION,
	Position: constants.POSITION_PRECISION,
	TickSize: constants.TICK_SIZE,
}

func (p Precision) Validate() error {
	if p.Platform < 0 || p.Position < 0 {
		return errors.Errorf("platform=%d position=%d: %w", p.Platform, p.Position, ErrInvalidPrecision)
	}
	if p.TickSize <= 0 {
		return errors.Errorf("tick size %d: %w", p.TickSize, ErrInvalidPrecision)
	}
	return nil
}

func (p Precision) NativeLotToDecimal(amount int64) float64 {
	return decimal.New(amount, -p.Position).InexactFloat64()
}

// DecimalToNativeLot rounds half away from zero to the nearest lot.
func (p Precision) DecimalToNativeLot(amount float64) (int64, error) {
	d, err := fromFloat(amount)
	if err != nil {
		return 0, err
	}
	return d.Shift(p.Position).Round(0).IntPart(), nil
}

func (p Precision) FixedIntToDecimal(amount int64) float64 {
	return decimal.New(amount, -p.Platform).InexactFloat64()
}

// FixedUintToDecimal is FixedIntToDecimal for on-chain u64 values, which may
// not fit an int64.
func (p Precision) FixedUintToDecimal(amount uint64) float64 {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(amount), -p.Platform).InexactFloat64()
}

func (p Precision) NativeLotUintToDecimal(amount uint64) float64 {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(amount), -p.Position).InexactFloat64()
}

// DecimalToFixedInt floors amount to a multiple of the tick size.
func (p Precision) DecimalToFixedInt(amount float64) (int64, error) {
	if p.TickSize <= 0 {
		return 0, errors.Errorf("tick size %d: %w", p.TickSize, ErrInvalidPrecision)
	}
	d, err := fromFloat(amount)
	if err != nil {
		return 0, err
	}
	// floor(x / t) == floor(floor(x) / t) for a positive integer t, and
	// big.Int.Div is euclidean so it floors for a positive divisor.
	scaled := d.Shift(p.Platform).Floor().BigInt()
	tick := big.NewInt(p.TickSize)
	ticks := new(big.Int).Div(scaled, tick)
	return ticks.Mul(ticks, tick).Int64(), nil
}

func NativeLotToDecimal(amount int64) float64 {
	return DefaultPrecision.NativeLotToDecimal(amount)
}

func DecimalToNativeLot(amount float64) (int64, error) {
	return DefaultPrecision.DecimalToNativeLot(amount)
}

func FixedIntToDecimal(amount int64) float64 {
	return DefaultPrecision.FixedIntToDecimal(amount)
}

func DecimalToFixedInt(amount float64) (int64, error) {
	return DefaultPrecision.DecimalToFixedInt(amount)
}

func fromFloat(amount float64) (decimal.Decimal, error) {
	if gomath.IsNaN(amount) || gomath.IsInf(amount, 0) {
		return decimal.Zero, errors.Errorf("%v: %w", amount, ErrInvalidAmount)
	}
	return decimal.NewFromFloat(amount), nil
}
