package serum

import (
	"encoding/binary"
	"math/big"
	"zetago/constants"
	"zetago/utils"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/go-errors/errors"
	"github.com/shopspring/decimal"
)

type EventFlags uint8

const (
	EventFlagFill EventFlags = 1 << iota
	EventFlagOut
	EventFlagBid
	EventFlagMaker
	EventFlagReleaseFunds
)

func (f EventFlags) Fill() bool         { return f&EventFlagFill != 0 }
func (f EventFlags) Out() bool          { return f&EventFlagOut != 0 }
func (f EventFlags) Bid() bool          { return f&EventFlagBid != 0 }
func (f EventFlags) Maker() bool        { return f&EventFlagMaker != 0 }
func (f EventFlags) ReleaseFunds() bool { return f&EventFlagReleaseFunds != 0 }

type FillEvent struct {
	EventFlags             EventFlags
	OpenOrderSlot          uint8
	FeeTier                uint8
	NativeQuantityReleased uint64
	NativeQuantityPaid     uint64
	NativeFeeOrRebate      uint64
	OrderId                bin.Uint128
	OpenOrders             solana.PublicKey
	ClientOrderId          uint64
}

func (obj *FillEvent) UnmarshalWithDecoder(decoder *bin.Decoder) (err error) {
	flags, err := decoder.ReadUint8()
	if err != nil {
		return err
	}
	obj.EventFlags = EventFlags(flags)
	if obj.OpenOrderSlot, err = decoder.ReadUint8(); err != nil {
		return err
	}
	if obj.FeeTier, err = decoder.ReadUint8(); err != nil {
		return err
	}
	if err = decoder.SkipBytes(5); err != nil {
		return err
	}
	if obj.NativeQuantityReleased, err = decoder.ReadUint64(binary.LittleEndian); err != nil {
		return err
	}
	if obj.NativeQuantityPaid, err = decoder.ReadUint64(binary.LittleEndian); err != nil {
		return err
	}
	if obj.NativeFeeOrRebate, err = decoder.ReadUint64(binary.LittleEndian); err != nil {
		return err
	}
	if obj.OrderId, err = readKey(decoder); err != nil {
		return err
	}
	openOrders, err := decoder.ReadNBytes(solana.PublicKeyLength)
	if err != nil {
		return err
	}
	obj.OpenOrders = solana.PublicKeyFromBytes(openOrders)
	obj.ClientOrderId, err = decoder.ReadUint64(binary.LittleEndian)
	return err
}

func (obj FillEvent) MarshalWithEncoder(encoder *bin.Encoder) error {
	if err := encoder.WriteBytes([]byte{byte(obj.EventFlags), obj.OpenOrderSlot, obj.FeeTier, 0, 0, 0, 0, 0}, false); err != nil {
		return err
	}
	for _, v := range []uint64{obj.NativeQuantityReleased, obj.NativeQuantityPaid, obj.NativeFeeOrRebate} {
		if err := encoder.WriteUint64(v, binary.LittleEndian); err != nil {
			return err
		}
	}
	if err := writeKey(encoder, obj.OrderId); err != nil {
		return err
	}
	if err := encoder.WriteBytes(obj.OpenOrders[:], false); err != nil {
		return err
	}
	return encoder.WriteUint64(obj.ClientOrderId, binary.LittleEndian)
}

func DecodeFillEvent(buffer []byte) (*FillEvent, error) {
	if len(buffer) < constants.FILL_EVENT_SIZE {
		return nil, errors.Errorf("fill event needs %d bytes, have %d: %w", constants.FILL_EVENT_SIZE, len(buffer), ErrBufferTooShort)
	}
	var event FillEvent
	if err := bin.NewBinDecoder(buffer).Decode(&event); err != nil {
		return nil, errors.WrapPrefix(err, "fill event", 0)
	}
	return &event, nil
}

type FilledOrder struct {
	OrderId         bin.Uint128
	ClientOrderId   uint64
	OpenOrders      solana.PublicKey
	Side            Side
	Maker           bool
	PriceBeforeFees *big.Int
	Price           float64
	Size            float64
	// FeeCost is in quote units; negative for a maker rebate.
	FeeCost float64
}

// ParseFillEvent derives the execution price of a fill. The fee or rebate is
// added back or taken out of the released quantity depending on both the side
// and the maker role before dividing by the paid quantity.
func ParseFillEvent(event *FillEvent, market MarketContext) (*FilledOrder, error) {
	if event == nil || !event.EventFlags.Fill() {
		return nil, errors.Errorf("not a fill: %w", ErrInvalidFillEvent)
	}
	if event.NativeQuantityPaid == 0 {
		return nil, errors.Errorf("zero quantity paid: %w", ErrInvalidFillEvent)
	}
	if market == nil {
		return nil, errors.Errorf("fill event without market context: %w", ErrInvalidMarket)
	}
	released := utils.BN(event.NativeQuantityReleased)
	fee := utils.BN(event.NativeFeeOrRebate)
	maker := event.EventFlags.Maker()
	side := SideAsk
	if event.EventFlags.Bid() {
		side = SideBid
	}
	var priceBeforeFees *big.Int
	switch {
	case side == SideBid && maker:
		priceBeforeFees = utils.AddX(released, fee)
	case side == SideBid:
		priceBeforeFees = utils.SubX(released, fee)
	case maker:
		priceBeforeFees = utils.SubX(released, fee)
	default:
		priceBeforeFees = utils.AddX(released, fee)
	}

	baseMultiplier := solana.DecimalsInBigInt(uint32(market.GetBaseDecimals()))
	quoteMultiplier := solana.DecimalsInBigInt(uint32(market.GetQuoteDecimals()))
	paid := utils.BN(event.NativeQuantityPaid)

	price := decimal.NewFromBigInt(utils.MulX(priceBeforeFees, baseMultiplier), 0).
		Div(decimal.NewFromBigInt(utils.MulX(quoteMultiplier, paid), 0))
	size := decimal.NewFromBigInt(paid, 0).Div(decimal.NewFromBigInt(baseMultiplier, 0))
	feeCost := decimal.NewFromBigInt(fee, 0).Div(decimal.NewFromBigInt(quoteMultiplier, 0))
	if maker {
		feeCost = feeCost.Neg()
	}
	return &FilledOrder{
		OrderId:         event.OrderId,
		ClientOrderId:   event.ClientOrderId,
		OpenOrders:      event.OpenOrders,
		Side:            side,
		Maker:           maker,
		PriceBeforeFees: priceBeforeFees,
		Price:           price.InexactFloat64(),
		Size:            size.InexactFloat64(),
		FeeCost:         feeCost.InexactFloat64(),
	}, nil
}
