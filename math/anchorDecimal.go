package math

import (
	"encoding/binary"
	"math/big"
	"zetago/constants"

	bin "github.com/gagliardetto/binary"
	"github.com/go-errors/errors"
	"github.com/shopspring/decimal"
)

var ErrUnsupportedScale = errors.New("unsupported decimal scale")

const (
	anchorDecimalScaleShift = 16
	anchorDecimalScaleMask  = 0x00FF0000
	anchorDecimalSignMask   = 0x80000000
	anchorDecimalMaxScale   = 28
)

// AnchorDecimal is the 96-bit signed decimal stored by the exchange program.
// Flags carries the scale in bits 16-23 and the sign in bit 31; the magnitude
// is Hi:Mid:Lo read as one big-endian 96-bit integer.
type AnchorDecimal struct {
	Flags uint32
	Hi    uint32
	Lo    uint32
	Mid   uint32
}

func (obj *AnchorDecimal) UnmarshalWithDecoder(decoder *bin.Decoder) (err error) {
	if obj.Flags, err = decoder.ReadUint32(binary.LittleEndian); err != nil {
		return err
	}
	if obj.Hi, err = decoder.ReadUint32(binary.LittleEndian); err != nil {
		return err
	}
	if obj.Lo, err = decoder.ReadUint32(binary.LittleEndian); err != nil {
		return err
	}
	if obj.Mid, err = decoder.ReadUint32(binary.LittleEndian); err != nil {
		return err
	}
	return nil
}

func (obj AnchorDecimal) MarshalWithEncoder(encoder *bin.Encoder) error {
	for _, v := range []uint32{obj.Flags, obj.Hi, obj.Lo, obj.Mid} {
		if err := encoder.WriteUint32(v, binary.LittleEndian); err != nil {
			return err
		}
	}
	return nil
}

func DecodeAnchorDecimal(buffer []byte) (*AnchorDecimal, error) {
	if len(buffer) < constants.ANCHOR_DECIMAL_SIZE {
		return nil, errors.Errorf("anchor decimal needs %d bytes, have %d", constants.ANCHOR_DECIMAL_SIZE, len(buffer))
	}
	var d AnchorDecimal
	if err := bin.NewBinDecoder(buffer).Decode(&d); err != nil {
		return nil, errors.WrapPrefix(err, "anchor decimal", 0)
	}
	return &d, nil
}

// NewAnchorDecimal packs d, using scale 1 for values without a fractional part.
func NewAnchorDecimal(d decimal.Decimal) (AnchorDecimal, error) {
	coefficient := d.Coefficient()
	exp := d.Exponent()
	if exp > -1 {
		shift := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(exp)+1), nil)
		coefficient.Mul(coefficient, shift)
		exp = -1
	}
	scale := -exp
	if scale > anchorDecimalMaxScale {
		return AnchorDecimal{}, errors.Errorf("scale %d: %w", scale, ErrUnsupportedScale)
	}
	magnitude := new(big.Int).Abs(coefficient)
	if magnitude.BitLen() > 96 {
		return AnchorDecimal{}, errors.Errorf("%s overflows 96 bits", d.String())
	}
	mask := big.NewInt(0xFFFFFFFF)
	flags := uint32(scale) << anchorDecimalScaleShift
	if coefficient.Sign() < 0 {
		flags |= anchorDecimalSignMask
	}
	return AnchorDecimal{
		Flags: flags,
		Lo:    uint32(new(big.Int).And(magnitude, mask).Uint64()),
		Mid:   uint32(new(big.Int).And(new(big.Int).Rsh(magnitude, 32), mask).Uint64()),
		Hi:    uint32(new(big.Int).Rsh(magnitude, 64).Uint64()),
	}, nil
}

func (p AnchorDecimal) Scale() int32 {
	return int32((p.Flags & anchorDecimalScaleMask) >> anchorDecimalScaleShift)
}

func (p AnchorDecimal) IsNegative() bool {
	return p.Flags&anchorDecimalSignMask != 0
}

func (p AnchorDecimal) IsZero() bool {
	return p.Hi == 0 && p.Mid == 0 && p.Lo == 0
}

func (p AnchorDecimal) Magnitude() *big.Int {
	magnitude := new(big.Int).SetUint64(uint64(p.Hi))
	magnitude.Lsh(magnitude, 32).Or(magnitude, new(big.Int).SetUint64(uint64(p.Mid)))
	magnitude.Lsh(magnitude, 32).Or(magnitude, new(big.Int).SetUint64(uint64(p.Lo)))
	return magnitude
}

// Decimal returns the exact value. A zero magnitude is zero whatever the
// flags say; otherwise a zero scale is rejected.
func (p AnchorDecimal) Decimal() (decimal.Decimal, error) {
	if p.IsZero() {
		return decimal.Zero, nil
	}
	scale := p.Scale()
	if scale == 0 {
		return decimal.Zero, errors.Errorf("flags %#x: %w", p.Flags, ErrUnsupportedScale)
	}
	value := decimal.NewFromBigInt(p.Magnitude(), -scale)
	if p.IsNegative() {
		value = value.Neg()
	}
	return value, nil
}

func (p AnchorDecimal) Float64() (float64, error) {
	value, err := p.Decimal()
	if err != nil {
		return 0, err
	}
	return value.InexactFloat64(), nil
}
