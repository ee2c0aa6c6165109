package serum

import (
	"fmt"
	"math/bits"
	"zetago/constants"
	"zetago/math"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/go-errors/errors"
)

// Orderbook is one decoded side of a market. A value is an immutable
// snapshot; a fresh account fetch produces a new Orderbook.
type Orderbook struct {
	AccountFlags AccountFlags
	Slab         *Slab
	market       MarketContext
	precision    math.Precision
}

type L2LevelLots struct {
	PriceLots uint64
	SizeLots  uint64
}

type OrderInfo struct {
	Price     float64
	Size      float64
	PriceLots uint64
	SizeLots  uint64
}

type Order struct {
	OrderId           bin.Uint128
	ClientOrderId     uint64
	OpenOrdersAddress solana.PublicKey
	FeeTier           uint8
	OpenOrderSlot     uint8
	Side              Side
	TifOffset         uint16
	Info              OrderInfo
}

func DecodeOrderbook(buffer []byte, market MarketContext) (*Orderbook, error) {
	if market == nil {
		return nil, errors.Errorf("orderbook without market context: %w", ErrInvalidMarket)
	}
	minLength := constants.ACCOUNT_HEAD_PADDING_SIZE + constants.ACCOUNT_FLAGS_SIZE + constants.SLAB_HEADER_SIZE
	if len(buffer) < minLength {
		return nil, errors.Errorf("orderbook account needs %d bytes, have %d: %w", minLength, len(buffer), ErrBufferTooShort)
	}
	decoder := bin.NewBinDecoder(buffer)
	if err := decoder.SkipBytes(constants.ACCOUNT_HEAD_PADDING_SIZE); err != nil {
		return nil, err
	}
	book := &Orderbook{
		Slab:      &Slab{},
		market:    market,
		precision: math.DefaultPrecision,
	}
	if err := book.AccountFlags.UnmarshalWithDecoder(decoder); err != nil {
		return nil, errors.WrapPrefix(err, "account flags", 0)
	}
	flags := book.AccountFlags
	if !flags.Initialized() || flags.Bids() == flags.Asks() {
		return nil, errors.Errorf("account flags %#x: %w", uint64(flags), ErrInvalidOrderbook)
	}
	if err := book.Slab.UnmarshalWithDecoder(decoder); err != nil {
		return nil, err
	}
	return book, nil
}

// LoadOrderbookForSide decodes buffer and checks that it holds the expected side.
func LoadOrderbookForSide(buffer []byte, side Side, market MarketContext) (*Orderbook, error) {
	book, err := DecodeOrderbook(buffer, market)
	if err != nil {
		return nil, err
	}
	if book.Side() != side {
		return nil, errors.Errorf("expected %s, account holds %s: %w", side, book.Side(), ErrSideMismatch)
	}
	return book, nil
}

func (p *Orderbook) Side() Side {
	if p.AccountFlags.Bids() {
		return SideBid
	}
	return SideAsk
}

func (p *Orderbook) Market() MarketContext {
	return p.market
}

// WithPrecision returns a view of the same snapshot converting with other scales.
func (p *Orderbook) WithPrecision(precision math.Precision) *Orderbook {
	book := *p
	book.precision = precision
	return &book
}

// IsLeafExpired applies the time-in-force rule to a leaf of this book.
// clockTs of zero never expires anything.
func (p *Orderbook) IsLeafExpired(leaf *SlabLeafNode, clockTs int64) bool {
	if clockTs == 0 || leaf.TifOffset == 0 {
		return false
	}
	return IsOrderExpired(
		clockTs,
		leaf.TifOffset,
		p.market.GetEpochStartTs(),
		GetSequenceNumberFromKey(leaf.Key, p.Side()),
		p.market.GetStartEpochSeqNum(),
	)
}

// AddSizeLots sums the quantities of two orders at one price.
func AddSizeLots(a uint64, b uint64) (uint64, error) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, errors.Errorf("%d + %d: %w", a, b, ErrSizeOverflow)
	}
	return sum, nil
}

// GetL2Lots aggregates resting quantity per price, best price first, for at
// most depth levels. clockTs of zero disables time-in-force filtering.
func (p *Orderbook) GetL2Lots(depth int, clockTs int64) ([]L2LevelLots, error) {
	levels := make([]L2LevelLots, 0, max(depth, 0))
	if depth <= 0 {
		return levels, nil
	}
	err := p.Slab.Items(p.Side() == SideBid, func(leaf *SlabLeafNode) error {
		if p.IsLeafExpired(leaf, clockTs) {
			return nil
		}
		price := GetPriceFromKey(leaf.Key)
		if n := len(levels); n > 0 && levels[n-1].PriceLots == price {
			size, err := AddSizeLots(levels[n-1].SizeLots, leaf.Quantity)
			if err != nil {
				return errors.WrapPrefix(err, fmt.Sprintf("level %d", price), 0)
			}
			levels[n-1].SizeLots = size
			return nil
		}
		if len(levels) == depth {
			return ErrStopIteration
		}
		levels = append(levels, L2LevelLots{PriceLots: price, SizeLots: leaf.Quantity})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return levels, nil
}

// GetL2 converts lots with the platform precision for price and the position
// precision for size.
func (p *Orderbook) GetL2(depth int, clockTs int64) ([]OrderInfo, error) {
	levels, err := p.GetL2Lots(depth, clockTs)
	if err != nil {
		return nil, err
	}
	infos := make([]OrderInfo, len(levels))
	for i, level := range levels {
		infos[i] = p.ToOrderInfo(level.PriceLots, level.SizeLots)
	}
	return infos, nil
}

// GetMarketL2 converts lots through the market lot sizes and mint decimals.
func (p *Orderbook) GetMarketL2(depth int, clockTs int64) ([]OrderInfo, error) {
	levels, err := p.GetL2Lots(depth, clockTs)
	if err != nil {
		return nil, err
	}
	infos := make([]OrderInfo, len(levels))
	for i, level := range levels {
		price, err := PriceLotsToNumber(p.market, level.PriceLots)
		if err != nil {
			return nil, err
		}
		size, err := BaseSizeLotsToNumber(p.market, level.SizeLots)
		if err != nil {
			return nil, err
		}
		infos[i] = OrderInfo{
			Price:     price,
			Size:      size,
			PriceLots: level.PriceLots,
			SizeLots:  level.SizeLots,
		}
	}
	return infos, nil
}

func (p *Orderbook) ToOrderInfo(priceLots uint64, sizeLots uint64) OrderInfo {
	return OrderInfo{
		Price:     p.precision.FixedUintToDecimal(priceLots),
		Size:      p.precision.NativeLotUintToDecimal(sizeLots),
		PriceLots: priceLots,
		SizeLots:  sizeLots,
	}
}

func (p *Orderbook) order(leaf *SlabLeafNode) Order {
	return Order{
		OrderId:           leaf.Key,
		ClientOrderId:     leaf.ClientOrderId,
		OpenOrdersAddress: leaf.Owner,
		FeeTier:           leaf.FeeTier,
		OpenOrderSlot:     leaf.OwnerSlot,
		Side:              p.Side(),
		TifOffset:         leaf.TifOffset,
		Info:              p.ToOrderInfo(GetPriceFromKey(leaf.Key), leaf.Quantity),
	}
}

// Orders lists every resting order, best price first, without expiry filtering.
func (p *Orderbook) Orders() ([]Order, error) {
	return p.filterOrders(func(*SlabLeafNode) bool { return true })
}

func (p *Orderbook) filterOrders(keep func(*SlabLeafNode) bool) ([]Order, error) {
	var orders []Order
	err := p.Slab.Items(p.Side() == SideBid, func(leaf *SlabLeafNode) error {
		if keep(leaf) {
			orders = append(orders, p.order(leaf))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// OrdersForOwner returns the bids then the asks placed through openOrders.
// A nil book counts as empty.
func OrdersForOwner(bids *Orderbook, asks *Orderbook, openOrders solana.PublicKey) ([]Order, error) {
	var orders []Order
	for _, book := range []*Orderbook{bids, asks} {
		if book == nil {
			continue
		}
		owned, err := book.filterOrders(func(leaf *SlabLeafNode) bool {
			return leaf.Owner.Equals(openOrders)
		})
		if err != nil {
			return nil, err
		}
		orders = append(orders, owned...)
	}
	return orders, nil
}
