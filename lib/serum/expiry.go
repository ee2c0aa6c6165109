package serum

import (
	gomath "math"

	"github.com/go-errors/errors"
)

// IsOrderExpired reports whether a resting order with a time-in-force offset
// has lapsed at clockTs. Orders without an offset never expire here. The
// timestamp and sequence number conditions are independent triggers.
func IsOrderExpired(
	clockTs int64,
	tifOffset uint16,
	epochStartTs int64,
	sequenceNumber uint64,
	startEpochSeqNum uint64,
) bool {
	if tifOffset == 0 {
		return false
	}
	if epochStartTs+int64(tifOffset) < clockTs {
		return true
	}
	return sequenceNumber <= startEpochSeqNum
}

// GetTifOffset converts an absolute expiry into the offset from the start of
// the epoch containing nowTs, capped at the epoch length.
func GetTifOffset(expiryTs int64, nowTs int64, market MarketContext) (uint16, error) {
	if market == nil || market.GetEpochLength() == 0 {
		return 0, errors.Errorf("epoch length not set: %w", ErrInvalidMarket)
	}
	if expiryTs <= nowTs {
		return 0, errors.Errorf("expiry %d is not after %d: %w", expiryTs, nowTs, ErrInvalidExpiry)
	}
	epochLength := int64(market.GetEpochLength())
	epochStart := market.GetEpochStartTs()
	if epochStart+epochLength <= nowTs {
		// the on-chain epoch has not been rolled yet
		epochStart = nowTs - (nowTs-epochStart)%epochLength
	}
	offset := expiryTs - epochStart
	if offset <= 0 {
		return 0, errors.Errorf("expiry %d precedes epoch start %d: %w", expiryTs, epochStart, ErrInvalidExpiry)
	}
	offset = min(offset, epochLength, gomath.MaxUint16)
	return uint16(offset), nil
}
