package serum

import (
	"encoding/binary"

	bin "github.com/gagliardetto/binary"
)

type Side uint8

const (
	SideBid Side = iota
	SideAsk
)

func (s Side) String() string {
	switch s {
	case SideBid:
		return "bid"
	case SideAsk:
		return "ask"
	default:
		return "unknown"
	}
}

// NewOrderKey packs price<<64 | seq for asks and price<<64 | ^seq for bids, so
// inside a price level the earliest order comes first in the side's walk order.
func NewOrderKey(price uint64, sequenceNumber uint64, side Side) bin.Uint128 {
	lo := sequenceNumber
	if side == SideBid {
		lo = ^sequenceNumber
	}
	return bin.Uint128{Lo: lo, Hi: price, Endianness: binary.LittleEndian}
}

func GetPriceFromKey(key bin.Uint128) uint64 {
	return key.Hi
}

func GetSequenceNumberFromKey(key bin.Uint128, side Side) uint64 {
	if side == SideBid {
		return ^key.Lo
	}
	return key.Lo
}

func readKey(decoder *bin.Decoder) (bin.Uint128, error) {
	lo, err := decoder.ReadUint64(binary.LittleEndian)
	if err != nil {
		return bin.Uint128{}, err
	}
	hi, err := decoder.ReadUint64(binary.LittleEndian)
	if err != nil {
		return bin.Uint128{}, err
	}
	return bin.Uint128{Lo: lo, Hi: hi, Endianness: binary.LittleEndian}, nil
}

func writeKey(encoder *bin.Encoder, key bin.Uint128) error {
	if err := encoder.WriteUint64(key.Lo, binary.LittleEndian); err != nil {
		return err
	}
	return encoder.WriteUint64(key.Hi, binary.LittleEndian)
}
