package serum

import (
	"bytes"
	"sort"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"
)

type testOrder struct {
	price    uint64
	seq      uint64
	quantity uint64
	tif      uint16
	owner    solana.PublicKey
}

func keyLess(a, b bin.Uint128) bool {
	if a.Hi != b.Hi {
		return a.Hi < b.Hi
	}
	return a.Lo < b.Lo
}

// buildSlab lays the orders out as a balanced crit-bit style tree: inner
// node child 0 holds the lower keys. A free node is appended so that the
// free list is exercised by the decoder.
func buildSlab(side Side, orders []testOrder) Slab {
	return buildShapedSlab(side, orders, func(lo, hi int) int { return (lo + hi) / 2 })
}

// buildShapedSlab is buildSlab with the tree shape chosen by split, which
// returns the first key index of the right subtree, in (lo, hi).
func buildShapedSlab(side Side, orders []testOrder, split func(lo, hi int) int) Slab {
	leaves := make([]SlabLeafNode, len(orders))
	for i, o := range orders {
		leaves[i] = SlabLeafNode{
			OwnerSlot:     uint8(i),
			FeeTier:       1,
			TifOffset:     o.tif,
			Key:           NewOrderKey(o.price, o.seq, side),
			Owner:         o.owner,
			Quantity:      o.quantity,
			ClientOrderId: uint64(1000 + i),
		}
	}
	sort.Slice(leaves, func(i, j int) bool { return keyLess(leaves[i].Key, leaves[j].Key) })

	var nodes []SlabNode
	var build func(lo, hi int) uint32
	build = func(lo, hi int) uint32 {
		index := uint32(len(nodes))
		if hi-lo == 1 {
			nodes = append(nodes, SlabNode{Tag: SlabNodeTagLeaf, Leaf: leaves[lo]})
			return index
		}
		nodes = append(nodes, SlabNode{Tag: SlabNodeTagInner})
		mid := split(lo, hi)
		left := build(lo, mid)
		right := build(mid, hi)
		nodes[index].Inner = SlabInnerNode{
			PrefixLen: uint32(hi - lo),
			Key:       leaves[mid].Key,
			Children:  [2]uint32{left, right},
		}
		return index
	}
	var root uint32
	if len(leaves) > 0 {
		root = build(0, len(leaves))
	}
	freeIndex := uint32(len(nodes))
	nodes = append(nodes, SlabNode{Tag: SlabNodeTagLastFree})
	return Slab{
		Header: SlabHeader{
			BumpIndex:      uint32(len(nodes)),
			FreeListLength: 1,
			FreeListHead:   freeIndex,
			Root:           root,
			LeafCount:      uint32(len(leaves)),
		},
		Nodes: nodes,
	}
}

func encodeSlab(t require.TestingT, slab Slab) []byte {
	var buf bytes.Buffer
	require.NoError(t, slab.MarshalWithEncoder(bin.NewBinEncoder(&buf)))
	return buf.Bytes()
}

func encodeOrderbook(t require.TestingT, flags AccountFlags, slab Slab) []byte {
	var buf bytes.Buffer
	buf.WriteString("serum")
	encoder := bin.NewBinEncoder(&buf)
	require.NoError(t, flags.MarshalWithEncoder(encoder))
	require.NoError(t, slab.MarshalWithEncoder(encoder))
	buf.WriteString("padding")
	return buf.Bytes()
}

func sideFlags(side Side) AccountFlags {
	if side == SideBid {
		return AccountFlagInitialized | AccountFlagBids
	}
	return AccountFlagInitialized | AccountFlagAsks
}

func newTestBook(t require.TestingT, side Side, market MarketContext, orders ...testOrder) *Orderbook {
	book, err := LoadOrderbookForSide(encodeOrderbook(t, sideFlags(side), buildSlab(side, orders)), side, market)
	require.NoError(t, err)
	return book
}

var testMarket = MarketParams{
	BaseLotSize:      100,
	QuoteLotSize:     10,
	BaseDecimals:     6,
	QuoteDecimals:    6,
	EpochLength:      60,
	EpochStartTs:     1000,
	StartEpochSeqNum: 10,
}
