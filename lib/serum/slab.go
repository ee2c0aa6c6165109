package serum

import (
	"encoding/binary"
	"fmt"
	"zetago/constants"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/go-errors/errors"
)

type SlabNodeTag uint32

const (
	SlabNodeTagUninitialized SlabNodeTag = iota
	SlabNodeTagInner
	SlabNodeTagLeaf
	SlabNodeTagFree
	SlabNodeTagLastFree
)

func (t SlabNodeTag) String() string {
	switch t {
	case SlabNodeTagUninitialized:
		return "uninitialized"
	case SlabNodeTagInner:
		return "inner"
	case SlabNodeTagLeaf:
		return "leaf"
	case SlabNodeTagFree:
		return "free"
	case SlabNodeTagLastFree:
		return "last_free"
	default:
		return fmt.Sprintf("tag(%d)", uint32(t))
	}
}

type SlabHeader struct {
	BumpIndex      uint32
	FreeListLength uint32
	FreeListHead   uint32
	Root           uint32
	LeafCount      uint32
}

type SlabInnerNode struct {
	PrefixLen uint32
	Key       bin.Uint128
	Children  [2]uint32
}

type SlabLeafNode struct {
	OwnerSlot     uint8
	FeeTier       uint8
	TifOffset     uint16
	Key           bin.Uint128
	Owner         solana.PublicKey
	Quantity      uint64
	ClientOrderId uint64
}

type SlabFreeNode struct {
	Next uint32
}

// SlabNode is one fixed-width record of the slab. Only the payload matching
// Tag is meaningful.
type SlabNode struct {
	Tag   SlabNodeTag
	Inner SlabInnerNode
	Leaf  SlabLeafNode
	Free  SlabFreeNode
}

// Slab is a decoded snapshot of the order tree. Nodes[i] is record i of the
// account, so child and free-list indices address Nodes directly.
type Slab struct {
	Header SlabHeader
	Nodes  []SlabNode
}

func (obj *SlabHeader) UnmarshalWithDecoder(decoder *bin.Decoder) (err error) {
	if obj.BumpIndex, err = decoder.ReadUint32(binary.LittleEndian); err != nil {
		return err
	}
	if err = decoder.SkipBytes(4); err != nil {
		return err
	}
	if obj.FreeListLength, err = decoder.ReadUint32(binary.LittleEndian); err != nil {
		return err
	}
	if err = decoder.SkipBytes(4); err != nil {
		return err
	}
	if obj.FreeListHead, err = decoder.ReadUint32(binary.LittleEndian); err != nil {
		return err
	}
	if obj.Root, err = decoder.ReadUint32(binary.LittleEndian); err != nil {
		return err
	}
	if obj.LeafCount, err = decoder.ReadUint32(binary.LittleEndian); err != nil {
		return err
	}
	return decoder.SkipBytes(4)
}

func (obj SlabHeader) MarshalWithEncoder(encoder *bin.Encoder) error {
	for _, v := range []uint32{obj.BumpIndex, 0, obj.FreeListLength, 0, obj.FreeListHead, obj.Root, obj.LeafCount, 0} {
		if err := encoder.WriteUint32(v, binary.LittleEndian); err != nil {
			return err
		}
	}
	return nil
}

func (obj *SlabInnerNode) UnmarshalWithDecoder(decoder *bin.Decoder) (err error) {
	if obj.PrefixLen, err = decoder.ReadUint32(binary.LittleEndian); err != nil {
		return err
	}
	if obj.Key, err = readKey(decoder); err != nil {
		return err
	}
	if obj.Children[0], err = decoder.ReadUint32(binary.LittleEndian); err != nil {
		return err
	}
	obj.Children[1], err = decoder.ReadUint32(binary.LittleEndian)
	return err
}

func (obj SlabInnerNode) MarshalWithEncoder(encoder *bin.Encoder) error {
	if err := encoder.WriteUint32(obj.PrefixLen, binary.LittleEndian); err != nil {
		return err
	}
	if err := writeKey(encoder, obj.Key); err != nil {
		return err
	}
	if err := encoder.WriteUint32(obj.Children[0], binary.LittleEndian); err != nil {
		return err
	}
	return encoder.WriteUint32(obj.Children[1], binary.LittleEndian)
}

func (obj *SlabLeafNode) UnmarshalWithDecoder(decoder *bin.Decoder) (err error) {
	if obj.OwnerSlot, err = decoder.ReadUint8(); err != nil {
		return err
	}
	if obj.FeeTier, err = decoder.ReadUint8(); err != nil {
		return err
	}
	if obj.TifOffset, err = decoder.ReadUint16(binary.LittleEndian); err != nil {
		return err
	}
	if obj.Key, err = readKey(decoder); err != nil {
		return err
	}
	owner, err := decoder.ReadNBytes(solana.PublicKeyLength)
	if err != nil {
		return err
	}
	obj.Owner = solana.PublicKeyFromBytes(owner)
	if obj.Quantity, err = decoder.ReadUint64(binary.LittleEndian); err != nil {
		return err
	}
	obj.ClientOrderId, err = decoder.ReadUint64(binary.LittleEndian)
	return err
}

func (obj SlabLeafNode) MarshalWithEncoder(encoder *bin.Encoder) error {
	if err := encoder.WriteUint8(obj.OwnerSlot); err != nil {
		return err
	}
	if err := encoder.WriteUint8(obj.FeeTier); err != nil {
		return err
	}
	if err := encoder.WriteUint16(obj.TifOffset, binary.LittleEndian); err != nil {
		return err
	}
	if err := writeKey(encoder, obj.Key); err != nil {
		return err
	}
	if err := encoder.WriteBytes(obj.Owner[:], false); err != nil {
		return err
	}
	if err := encoder.WriteUint64(obj.Quantity, binary.LittleEndian); err != nil {
		return err
	}
	return encoder.WriteUint64(obj.ClientOrderId, binary.LittleEndian)
}

// UnmarshalWithDecoder reads one tagged record. The payload is always consumed
// in full so that records stay aligned whatever the variant.
func (obj *SlabNode) UnmarshalWithDecoder(decoder *bin.Decoder) error {
	tag, err := decoder.ReadUint32(binary.LittleEndian)
	if err != nil {
		return err
	}
	payload, err := decoder.ReadNBytes(constants.SLAB_NODE_PAYLOAD_SIZE)
	if err != nil {
		return err
	}
	obj.Tag = SlabNodeTag(tag)
	payloadDecoder := bin.NewBinDecoder(payload)
	switch obj.Tag {
	case SlabNodeTagUninitialized, SlabNodeTagLastFree:
		return nil
	case SlabNodeTagInner:
		return obj.Inner.UnmarshalWithDecoder(payloadDecoder)
	case SlabNodeTagLeaf:
		return obj.Leaf.UnmarshalWithDecoder(payloadDecoder)
	case SlabNodeTagFree:
		obj.Free.Next, err = payloadDecoder.ReadUint32(binary.LittleEndian)
		return err
	default:
		return errors.Errorf("tag %d: %w", tag, ErrInvalidTag)
	}
}

func (obj SlabNode) MarshalWithEncoder(encoder *bin.Encoder) error {
	if err := encoder.WriteUint32(uint32(obj.Tag), binary.LittleEndian); err != nil {
		return err
	}
	written := 0
	switch obj.Tag {
	case SlabNodeTagInner:
		if err := obj.Inner.MarshalWithEncoder(encoder); err != nil {
			return err
		}
		written = 4 + 16 + 8
	case SlabNodeTagLeaf:
		if err := obj.Leaf.MarshalWithEncoder(encoder); err != nil {
			return err
		}
		written = constants.SLAB_NODE_PAYLOAD_SIZE
	case SlabNodeTagFree:
		if err := encoder.WriteUint32(obj.Free.Next, binary.LittleEndian); err != nil {
			return err
		}
		written = 4
	case SlabNodeTagUninitialized, SlabNodeTagLastFree:
	default:
		return errors.Errorf("tag %d: %w", uint32(obj.Tag), ErrInvalidTag)
	}
	return encoder.WriteBytes(make([]byte, constants.SLAB_NODE_PAYLOAD_SIZE-written), false)
}

func (obj *Slab) UnmarshalWithDecoder(decoder *bin.Decoder) error {
	if decoder.Remaining() < constants.SLAB_HEADER_SIZE {
		return errors.Errorf("slab header needs %d bytes, have %d: %w",
			constants.SLAB_HEADER_SIZE, decoder.Remaining(), ErrBufferTooShort)
	}
	if err := obj.Header.UnmarshalWithDecoder(decoder); err != nil {
		return errors.WrapPrefix(err, "slab header", 0)
	}
	header := obj.Header
	if header.LeafCount > header.BumpIndex || (header.LeafCount > 0 && header.Root >= header.BumpIndex) {
		return errors.Errorf("bump_index=%d root=%d leaf_count=%d: %w",
			header.BumpIndex, header.Root, header.LeafCount, ErrInvalidHeader)
	}
	need := int(header.BumpIndex) * constants.SLAB_NODE_SIZE
	if decoder.Remaining() < need {
		return errors.Errorf("%d slab nodes need %d bytes, have %d: %w",
			header.BumpIndex, need, decoder.Remaining(), ErrBufferTooShort)
	}
	obj.Nodes = make([]SlabNode, header.BumpIndex)
	for i := range obj.Nodes {
		if err := obj.Nodes[i].UnmarshalWithDecoder(decoder); err != nil {
			return errors.WrapPrefix(err, fmt.Sprintf("slab node %d", i), 0)
		}
	}
	return nil
}

func (obj Slab) MarshalWithEncoder(encoder *bin.Encoder) error {
	if err := obj.Header.MarshalWithEncoder(encoder); err != nil {
		return err
	}
	for _, node := range obj.Nodes {
		if err := node.MarshalWithEncoder(encoder); err != nil {
			return err
		}
	}
	return nil
}

func DecodeSlab(buffer []byte) (*Slab, error) {
	var slab Slab
	if err := slab.UnmarshalWithDecoder(bin.NewBinDecoder(buffer)); err != nil {
		return nil, err
	}
	return &slab, nil
}

// Items walks the tree from the root with an explicit stack and calls fn for
// every leaf, in ascending key order, or descending when descending is set.
// Returning ErrStopIteration from fn ends the walk with a nil error.
func (p *Slab) Items(descending bool, fn func(*SlabLeafNode) error) error {
	if p.Header.LeafCount == 0 {
		return nil
	}
	stack := []uint32{p.Header.Root}
	visited := 0
	for len(stack) > 0 {
		index := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if int(index) >= len(p.Nodes) {
			return errors.Errorf("node index %d out of %d: %w", index, len(p.Nodes), ErrInvalidNode)
		}
		// a valid tree visits each record at most once
		visited++
		if visited > len(p.Nodes) {
			return errors.Errorf("walk visited more than %d nodes: %w", len(p.Nodes), ErrInvalidNode)
		}
		node := &p.Nodes[index]
		switch node.Tag {
		case SlabNodeTagInner:
			if descending {
				stack = append(stack, node.Inner.Children[0], node.Inner.Children[1])
			} else {
				stack = append(stack, node.Inner.Children[1], node.Inner.Children[0])
			}
		case SlabNodeTagLeaf:
			leaf := node.Leaf
			if err := fn(&leaf); err != nil {
				if errors.Is(err, ErrStopIteration) {
					return nil
				}
				return err
			}
		case SlabNodeTagUninitialized, SlabNodeTagFree, SlabNodeTagLastFree:
			return errors.Errorf("node %d is %s: %w", index, node.Tag, ErrInvalidNode)
		default:
			return errors.Errorf("node %d tag %d: %w", index, uint32(node.Tag), ErrInvalidTag)
		}
	}
	return nil
}
