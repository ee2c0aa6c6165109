package serum

import (
	"bytes"
	"encoding/binary"
	"testing"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// go test --run TestDecodeSlab

func TestDecodeSlab(t *testing.T) {
	owner := solana.NewWallet().PublicKey()
	slab := buildSlab(SideAsk, []testOrder{
		{price: 100, seq: 5, quantity: 3, owner: owner},
		{price: 100, seq: 7, quantity: 4, tif: 30, owner: owner},
		{price: 105, seq: 6, quantity: 1, owner: owner},
	})
	data := encodeSlab(t, slab)
	require.Len(t, data, 32+len(slab.Nodes)*72)

	decoded, err := DecodeSlab(data)
	require.NoError(t, err)
	require.Equal(t, slab.Header, decoded.Header)
	require.Equal(t, slab.Nodes, decoded.Nodes)
	require.Equal(t, SlabNodeTagLastFree, decoded.Nodes[decoded.Header.FreeListHead].Tag)
}

func TestDecodeSlabIgnoresTrailingBytes(t *testing.T) {
	slab := buildSlab(SideBid, []testOrder{{price: 1, seq: 1, quantity: 1}})
	data := append(encodeSlab(t, slab), make([]byte, 5*72)...)
	decoded, err := DecodeSlab(data)
	require.NoError(t, err)
	require.Len(t, decoded.Nodes, int(slab.Header.BumpIndex))
}

func TestDecodeSlabShortBuffer(t *testing.T) {
	slab := buildSlab(SideAsk, []testOrder{{price: 1, seq: 1, quantity: 1}, {price: 2, seq: 2, quantity: 1}})
	data := encodeSlab(t, slab)

	_, err := DecodeSlab(data[:20])
	require.ErrorIs(t, err, ErrBufferTooShort)

	_, err = DecodeSlab(data[:len(data)-1])
	require.ErrorIs(t, err, ErrBufferTooShort)
}

func TestDecodeSlabInvalidTag(t *testing.T) {
	slab := buildSlab(SideAsk, []testOrder{{price: 1, seq: 1, quantity: 1}})
	data := encodeSlab(t, slab)
	binary.LittleEndian.PutUint32(data[32:], 9)

	_, err := DecodeSlab(data)
	require.ErrorIs(t, err, ErrInvalidTag)
}

func TestDecodeSlabInvalidHeader(t *testing.T) {
	var buf bytes.Buffer
	header := SlabHeader{BumpIndex: 1, Root: 3, LeafCount: 1}
	require.NoError(t, header.MarshalWithEncoder(bin.NewBinEncoder(&buf)))
	buf.Write(make([]byte, 72))

	_, err := DecodeSlab(buf.Bytes())
	require.ErrorIs(t, err, ErrInvalidHeader)

	buf.Reset()
	header = SlabHeader{BumpIndex: 1, LeafCount: 2}
	require.NoError(t, header.MarshalWithEncoder(bin.NewBinEncoder(&buf)))
	buf.Write(make([]byte, 72))

	_, err = DecodeSlab(buf.Bytes())
	require.ErrorIs(t, err, ErrInvalidHeader)
}

func TestSlabItemsEmpty(t *testing.T) {
	slab := buildSlab(SideAsk, nil)
	calls := 0
	require.NoError(t, slab.Items(false, func(*SlabLeafNode) error {
		calls++
		return nil
	}))
	require.Zero(t, calls)
}

func TestSlabItemsRejectsFreeNode(t *testing.T) {
	slab := Slab{
		Header: SlabHeader{BumpIndex: 3, Root: 0, LeafCount: 1},
		Nodes: []SlabNode{
			{Tag: SlabNodeTagInner, Inner: SlabInnerNode{Children: [2]uint32{1, 2}}},
			{Tag: SlabNodeTagLeaf, Leaf: SlabLeafNode{Key: NewOrderKey(1, 1, SideAsk), Quantity: 1}},
			{Tag: SlabNodeTagFree},
		},
	}
	err := slab.Items(false, func(*SlabLeafNode) error { return nil })
	require.ErrorIs(t, err, ErrInvalidNode)
}

func TestSlabItemsRejectsCycle(t *testing.T) {
	slab := Slab{
		Header: SlabHeader{BumpIndex: 1, Root: 0, LeafCount: 1},
		Nodes:  []SlabNode{{Tag: SlabNodeTagInner, Inner: SlabInnerNode{Children: [2]uint32{0, 0}}}},
	}
	err := slab.Items(true, func(*SlabLeafNode) error { return nil })
	require.ErrorIs(t, err, ErrInvalidNode)
}

func TestSlabItemsRejectsOutOfRangeChild(t *testing.T) {
	slab := Slab{
		Header: SlabHeader{BumpIndex: 1, Root: 0, LeafCount: 1},
		Nodes:  []SlabNode{{Tag: SlabNodeTagInner, Inner: SlabInnerNode{Children: [2]uint32{4, 5}}}},
	}
	err := slab.Items(false, func(*SlabLeafNode) error { return nil })
	require.ErrorIs(t, err, ErrInvalidNode)
}

func TestSlabItemsStopIteration(t *testing.T) {
	slab := buildSlab(SideAsk, []testOrder{
		{price: 1, seq: 1, quantity: 1},
		{price: 2, seq: 2, quantity: 1},
		{price: 3, seq: 3, quantity: 1},
	})
	var prices []uint64
	err := slab.Items(false, func(leaf *SlabLeafNode) error {
		prices = append(prices, GetPriceFromKey(leaf.Key))
		if len(prices) == 2 {
			return ErrStopIteration
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, []uint64{1, 2}, prices)
}

func TestSlabItemsSkewedChain(t *testing.T) {
	orders := make([]testOrder, 6)
	for i := range orders {
		orders[i] = testOrder{price: uint64(6 - i), seq: uint64(i), quantity: 1}
	}
	for name, split := range map[string]func(lo, hi int) int{
		"right": func(lo, hi int) int { return lo + 1 },
		"left":  func(lo, hi int) int { return hi - 1 },
	} {
		decoded, err := DecodeSlab(encodeSlab(t, buildShapedSlab(SideAsk, orders, split)))
		require.NoError(t, err, name)
		for descending, want := range map[bool][]uint64{false: {1, 2, 3, 4, 5, 6}, true: {6, 5, 4, 3, 2, 1}} {
			var prices []uint64
			err = decoded.Items(descending, func(leaf *SlabLeafNode) error {
				prices = append(prices, GetPriceFromKey(leaf.Key))
				return nil
			})
			require.NoError(t, err, name)
			require.Equal(t, want, prices, "%s descending=%v", name, descending)
		}
	}
}

func TestSlabItemsOrdered(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		side := Side(rapid.IntRange(0, 1).Draw(t, "side"))
		seqs := rapid.SliceOfNDistinct(rapid.Uint64(), 1, 64, func(v uint64) uint64 { return v }).Draw(t, "seqs")
		orders := make([]testOrder, len(seqs))
		for i, seq := range seqs {
			orders[i] = testOrder{
				price:    rapid.Uint64Range(1, 20).Draw(t, "price"),
				seq:      seq,
				quantity: 1,
			}
		}
		// skewed chains, balanced and random trees all come from the drawn splits
		slab := buildShapedSlab(side, orders, func(lo, hi int) int {
			return rapid.IntRange(lo+1, hi-1).Draw(t, "split")
		})
		data := encodeSlab(t, slab)
		decoded, err := DecodeSlab(data)
		if err != nil {
			t.Fatal(err)
		}

		for _, descending := range []bool{false, true} {
			var keys []bin.Uint128
			err = decoded.Items(descending, func(leaf *SlabLeafNode) error {
				keys = append(keys, leaf.Key)
				return nil
			})
			if err != nil {
				t.Fatal(err)
			}
			if len(keys) != len(orders) {
				t.Fatalf("walked %d leaves, want %d", len(keys), len(orders))
			}
			for i := 1; i < len(keys); i++ {
				inOrder := keyLess(keys[i-1], keys[i])
				if descending {
					inOrder = keyLess(keys[i], keys[i-1])
				}
				if !inOrder {
					t.Fatalf("descending=%v: key %d out of order", descending, i)
				}
			}
		}
	})
}
