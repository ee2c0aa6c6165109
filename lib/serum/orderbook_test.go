package serum

import (
	gomath "math"
	"testing"
	"zetago/math"

	"github.com/davecgh/go-spew/spew"
	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"
)

// go test --run TestOrderbookGetL2

func TestOrderbookGetL2(t *testing.T) {
	asks := newTestBook(t, SideAsk, testMarket,
		testOrder{price: 105, seq: 6, quantity: 1},
		testOrder{price: 100, seq: 7, quantity: 4},
		testOrder{price: 100, seq: 5, quantity: 3},
	)
	require.Equal(t, SideAsk, asks.Side())

	levels, err := asks.GetL2Lots(10, 0)
	require.NoError(t, err)
	require.Equal(t, []L2LevelLots{{PriceLots: 100, SizeLots: 7}, {PriceLots: 105, SizeLots: 1}}, levels)

	infos, err := asks.GetL2(10, 0)
	require.NoError(t, err)
	spew.Dump("TestOrderbookGetL2 Result", infos)
	require.Equal(t, []OrderInfo{
		{Price: 0.0001, Size: 0.007, PriceLots: 100, SizeLots: 7},
		{Price: 0.000105, Size: 0.001, PriceLots: 105, SizeLots: 1},
	}, infos)
}

func TestOrderbookGetL2Bids(t *testing.T) {
	bids := newTestBook(t, SideBid, testMarket,
		testOrder{price: 90, seq: 1, quantity: 2},
		testOrder{price: 95, seq: 2, quantity: 5},
		testOrder{price: 95, seq: 3, quantity: 1},
		testOrder{price: 80, seq: 4, quantity: 9},
	)
	require.Equal(t, SideBid, bids.Side())

	levels, err := bids.GetL2Lots(10, 0)
	require.NoError(t, err)
	require.Equal(t, []L2LevelLots{{95, 6}, {90, 2}, {80, 9}}, levels)
}

func TestOrderbookGetL2DepthCap(t *testing.T) {
	asks := newTestBook(t, SideAsk, testMarket,
		testOrder{price: 1, seq: 1, quantity: 1},
		testOrder{price: 2, seq: 2, quantity: 1},
		testOrder{price: 2, seq: 3, quantity: 2},
		testOrder{price: 3, seq: 4, quantity: 1},
		testOrder{price: 4, seq: 5, quantity: 1},
	)
	levels, err := asks.GetL2Lots(2, 0)
	require.NoError(t, err)
	// the last admitted level keeps aggregating after the cap is reached
	require.Equal(t, []L2LevelLots{{1, 1}, {2, 3}}, levels)

	levels, err = asks.GetL2Lots(0, 0)
	require.NoError(t, err)
	require.Empty(t, levels)

	levels, err = asks.GetL2Lots(-1, 0)
	require.NoError(t, err)
	require.Empty(t, levels)
}

func TestOrderbookGetL2Expiry(t *testing.T) {
	asks := newTestBook(t, SideAsk, testMarket,
		// expires at 1050
		testOrder{price: 100, seq: 20, quantity: 1, tif: 50},
		// placed before the epoch started
		testOrder{price: 101, seq: 5, quantity: 2, tif: 500},
		testOrder{price: 102, seq: 6, quantity: 3},
		testOrder{price: 103, seq: 30, quantity: 4, tif: 500},
	)

	levels, err := asks.GetL2Lots(10, 1020)
	require.NoError(t, err)
	require.Equal(t, []L2LevelLots{{100, 1}, {102, 3}, {103, 4}}, levels)

	levels, err = asks.GetL2Lots(10, 1100)
	require.NoError(t, err)
	require.Equal(t, []L2LevelLots{{102, 3}, {103, 4}}, levels)

	levels, err = asks.GetL2Lots(10, 0)
	require.NoError(t, err)
	require.Len(t, levels, 4)
}

func TestOrderbookGetL2BidExpiryUsesComplementedSequence(t *testing.T) {
	bids := newTestBook(t, SideBid, testMarket,
		testOrder{price: 100, seq: 9, quantity: 1, tif: 500},
		testOrder{price: 99, seq: 11, quantity: 2, tif: 500},
	)
	levels, err := bids.GetL2Lots(10, 1001)
	require.NoError(t, err)
	require.Equal(t, []L2LevelLots{{99, 2}}, levels)
}

func TestOrderbookGetL2HighPriceLots(t *testing.T) {
	asks := newTestBook(t, SideAsk, testMarket,
		testOrder{price: 1<<63 + 5, seq: 1, quantity: 1 << 63},
	)
	infos, err := asks.GetL2(1, 0)
	require.NoError(t, err)
	spew.Dump("TestOrderbookGetL2HighPriceLots Result", infos)
	require.Len(t, infos, 1)
	require.Equal(t, uint64(1<<63+5), infos[0].PriceLots)
	require.InDelta(t, 9223372036854.775813, infos[0].Price, 0.01)
	require.InDelta(t, 9223372036854775.808, infos[0].Size, 2)
}

func TestOrderbookGetL2SizeOverflow(t *testing.T) {
	asks := newTestBook(t, SideAsk, testMarket,
		testOrder{price: 100, seq: 1, quantity: gomath.MaxUint64},
		testOrder{price: 100, seq: 2, quantity: 2},
	)
	_, err := asks.GetL2Lots(1, 0)
	require.ErrorIs(t, err, ErrSizeOverflow)

	_, err = asks.GetL2(1, 0)
	require.ErrorIs(t, err, ErrSizeOverflow)

	sum, err := AddSizeLots(gomath.MaxUint64-1, 1)
	require.NoError(t, err)
	require.Equal(t, uint64(gomath.MaxUint64), sum)
}

func TestOrderbookEmpty(t *testing.T) {
	bids := newTestBook(t, SideBid, testMarket)
	levels, err := bids.GetL2(5, 1000)
	require.NoError(t, err)
	require.NotNil(t, levels)
	require.Empty(t, levels)

	orders, err := bids.Orders()
	require.NoError(t, err)
	require.Empty(t, orders)
}

func TestDecodeOrderbookInvalidFlags(t *testing.T) {
	slab := buildSlab(SideAsk, []testOrder{{price: 1, seq: 1, quantity: 1}})
	for _, flags := range []AccountFlags{
		AccountFlagAsks,
		AccountFlagInitialized,
		AccountFlagInitialized | AccountFlagBids | AccountFlagAsks,
	} {
		_, err := DecodeOrderbook(encodeOrderbook(t, flags, slab), testMarket)
		require.ErrorIs(t, err, ErrInvalidOrderbook, "flags %#x", uint64(flags))
	}

	_, err := DecodeOrderbook(encodeOrderbook(t, sideFlags(SideAsk), slab), nil)
	require.ErrorIs(t, err, ErrInvalidMarket)

	_, err = DecodeOrderbook([]byte("serum"), testMarket)
	require.ErrorIs(t, err, ErrBufferTooShort)
}

func TestLoadOrderbookForSideMismatch(t *testing.T) {
	data := encodeOrderbook(t, sideFlags(SideBid), buildSlab(SideBid, nil))
	_, err := LoadOrderbookForSide(data, SideAsk, testMarket)
	require.ErrorIs(t, err, ErrSideMismatch)
}

func TestOrderbookGetMarketL2(t *testing.T) {
	asks := newTestBook(t, SideAsk, testMarket,
		testOrder{price: 100, seq: 5, quantity: 3},
		testOrder{price: 100, seq: 7, quantity: 4},
	)
	infos, err := asks.GetMarketL2(10, 0)
	require.NoError(t, err)
	require.Len(t, infos, 1)
	require.InDelta(t, 10.0, infos[0].Price, 1e-12)
	require.InDelta(t, 0.0007, infos[0].Size, 1e-12)

	broken := testMarket
	broken.BaseLotSize = 0
	book, err := LoadOrderbookForSide(encodeOrderbook(t, sideFlags(SideAsk), buildSlab(SideAsk, []testOrder{{price: 1, seq: 1, quantity: 1}})), SideAsk, broken)
	require.NoError(t, err)
	_, err = book.GetMarketL2(10, 0)
	require.ErrorIs(t, err, ErrInvalidMarket)
}

func TestOrderbookWithPrecision(t *testing.T) {
	asks := newTestBook(t, SideAsk, testMarket, testOrder{price: 2500, seq: 1, quantity: 15})
	infos, err := asks.WithPrecision(math.Precision{Platform: 2, Position: 1, TickSize: 1}).GetL2(1, 0)
	require.NoError(t, err)
	require.Equal(t, 25.0, infos[0].Price)
	require.Equal(t, 1.5, infos[0].Size)

	infos, err = asks.GetL2(1, 0)
	require.NoError(t, err)
	require.Equal(t, 0.0025, infos[0].Price)
}

func TestOrdersForOwner(t *testing.T) {
	alice := solana.NewWallet().PublicKey()
	bob := solana.NewWallet().PublicKey()
	bids := newTestBook(t, SideBid, testMarket,
		testOrder{price: 90, seq: 1, quantity: 2, owner: alice},
		testOrder{price: 91, seq: 2, quantity: 3, owner: bob},
		testOrder{price: 92, seq: 3, quantity: 4, owner: alice, tif: 1},
	)
	asks := newTestBook(t, SideAsk, testMarket,
		testOrder{price: 100, seq: 4, quantity: 5, owner: alice},
		testOrder{price: 101, seq: 5, quantity: 6, owner: bob},
	)

	orders, err := OrdersForOwner(bids, asks, alice)
	require.NoError(t, err)
	spew.Dump("TestOrdersForOwner Result", orders)
	require.Len(t, orders, 3)
	require.Equal(t, SideBid, orders[0].Side)
	require.Equal(t, uint64(92), orders[0].Info.PriceLots)
	require.Equal(t, uint16(1), orders[0].TifOffset)
	require.Equal(t, NewOrderKey(92, 3, SideBid), orders[0].OrderId)
	require.Equal(t, uint64(90), orders[1].Info.PriceLots)
	require.Equal(t, SideAsk, orders[2].Side)
	require.Equal(t, uint64(5), orders[2].Info.SizeLots)
	for _, order := range orders {
		require.Equal(t, alice, order.OpenOrdersAddress)
	}

	orders, err = OrdersForOwner(nil, asks, bob)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	require.Equal(t, uint64(101), orders[0].Info.PriceLots)
}
