package serum

import (
	gomath "math"
	"zetago/math"
	"zetago/utils"

	"github.com/go-errors/errors"
	"github.com/shopspring/decimal"
)

func checkLotSizes(market MarketContext) error {
	if market == nil {
		return errors.Errorf("no market context: %w", ErrInvalidMarket)
	}
	if market.GetBaseLotSize() == 0 || market.GetQuoteLotSize() == 0 {
		return errors.Errorf("base lot size %d, quote lot size %d: %w",
			market.GetBaseLotSize(), market.GetQuoteLotSize(), ErrInvalidMarket)
	}
	return nil
}

func checkAmount(amount float64) (decimal.Decimal, error) {
	if gomath.IsNaN(amount) || gomath.IsInf(amount, 0) || amount < 0 {
		return decimal.Zero, errors.Errorf("%v: %w", amount, math.ErrInvalidAmount)
	}
	return decimal.NewFromFloat(amount), nil
}

// priceLotsToDecimal is price * quoteLotSize * 10^baseDecimals / (baseLotSize * 10^quoteDecimals).
func priceLotsToDecimal(market MarketContext, price uint64) (decimal.Decimal, error) {
	if err := checkLotSizes(market); err != nil {
		return decimal.Zero, err
	}
	numerator := decimal.NewFromBigInt(
		utils.MulX(utils.BN(price), utils.BN(market.GetQuoteLotSize())),
		int32(market.GetBaseDecimals()),
	)
	denominator := decimal.NewFromBigInt(utils.BN(market.GetBaseLotSize()), int32(market.GetQuoteDecimals()))
	return numerator.Div(denominator), nil
}

func PriceLotsToNumber(market MarketContext, price uint64) (float64, error) {
	value, err := priceLotsToDecimal(market, price)
	if err != nil {
		return 0, err
	}
	return value.InexactFloat64(), nil
}

// PriceLotsToNumberScaled is PriceLotsToNumber further divided by
// 10^precision.Position, for prices quoted per position-precision unit.
func PriceLotsToNumberScaled(market MarketContext, price uint64, precision math.Precision) (float64, error) {
	value, err := priceLotsToDecimal(market, price)
	if err != nil {
		return 0, err
	}
	return value.Shift(-precision.Position).InexactFloat64(), nil
}

// PriceNumberToLots rounds half up to the nearest price lot.
func PriceNumberToLots(market MarketContext, price float64) (uint64, error) {
	if err := checkLotSizes(market); err != nil {
		return 0, err
	}
	value, err := checkAmount(price)
	if err != nil {
		return 0, err
	}
	numerator := value.Shift(int32(market.GetQuoteDecimals())).
		Mul(decimal.NewFromBigInt(utils.BN(market.GetBaseLotSize()), 0))
	denominator := decimal.NewFromBigInt(utils.BN(market.GetQuoteLotSize()), int32(market.GetBaseDecimals()))
	return numerator.Div(denominator).Round(0).BigInt().Uint64(), nil
}

func BaseSizeLotsToNumber(market MarketContext, size uint64) (float64, error) {
	if err := checkLotSizes(market); err != nil {
		return 0, err
	}
	value := decimal.NewFromBigInt(
		utils.MulX(utils.BN(size), utils.BN(market.GetBaseLotSize())),
		-int32(market.GetBaseDecimals()),
	)
	return value.InexactFloat64(), nil
}

// BaseSizeNumberToLots floors to a whole number of base lots.
func BaseSizeNumberToLots(market MarketContext, size float64) (uint64, error) {
	if err := checkLotSizes(market); err != nil {
		return 0, err
	}
	value, err := checkAmount(size)
	if err != nil {
		return 0, err
	}
	native := value.Shift(int32(market.GetBaseDecimals())).Floor().BigInt()
	return utils.DivX(native, utils.BN(market.GetBaseLotSize())).Uint64(), nil
}
