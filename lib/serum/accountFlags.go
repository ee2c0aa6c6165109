package serum

import (
	"encoding/binary"

	bin "github.com/gagliardetto/binary"
)

type AccountFlags uint64

const (
	AccountFlagInitialized AccountFlags = 1 << iota
	AccountFlagMarket
	AccountFlagOpenOrders
	AccountFlagRequestQueue
	AccountFlagEventQueue
	AccountFlagBids
	AccountFlagAsks
	AccountFlagDisabled
	AccountFlagClosed
	AccountFlagPermissioned
	AccountFlagCrankAuthorityRequired
)

func (f AccountFlags) has(flag AccountFlags) bool {
	return f&flag != 0
}

func (f AccountFlags) Initialized() bool            { return f.has(AccountFlagInitialized) }
func (f AccountFlags) Market() bool                 { return f.has(AccountFlagMarket) }
func (f AccountFlags) OpenOrders() bool             { return f.has(AccountFlagOpenOrders) }
func (f AccountFlags) RequestQueue() bool           { return f.has(AccountFlagRequestQueue) }
func (f AccountFlags) EventQueue() bool             { return f.has(AccountFlagEventQueue) }
func (f AccountFlags) Bids() bool                   { return f.has(AccountFlagBids) }
func (f AccountFlags) Asks() bool                   { return f.has(AccountFlagAsks) }
func (f AccountFlags) Disabled() bool               { return f.has(AccountFlagDisabled) }
func (f AccountFlags) Closed() bool                 { return f.has(AccountFlagClosed) }
func (f AccountFlags) Permissioned() bool           { return f.has(AccountFlagPermissioned) }
func (f AccountFlags) CrankAuthorityRequired() bool { return f.has(AccountFlagCrankAuthorityRequired) }

func (f *AccountFlags) UnmarshalWithDecoder(decoder *bin.Decoder) error {
	v, err := decoder.ReadUint64(binary.LittleEndian)
	if err != nil {
		return err
	}
	*f = AccountFlags(v)
	return nil
}

func (f AccountFlags) MarshalWithEncoder(encoder *bin.Encoder) error {
	return encoder.WriteUint64(uint64(f), binary.LittleEndian)
}
