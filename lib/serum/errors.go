package serum

import "github.com/go-errors/errors"

var (
	ErrBufferTooShort   = errors.New("buffer too short")
	ErrInvalidTag       = errors.New("invalid tag")
	ErrInvalidHeader    = errors.New("invalid slab header")
	ErrInvalidNode      = errors.New("neither leaf nor inner node")
	ErrInvalidOrderbook = errors.New("invalid order book, either not initialized or neither of bids or asks")
	ErrSideMismatch     = errors.New("order book side mismatch")
	ErrInvalidMarket    = errors.New("invalid market")
	ErrInvalidFillEvent = errors.New("invalid fill event")
	ErrInvalidExpiry    = errors.New("invalid expiry")
	ErrSizeOverflow     = errors.New("aggregated size overflows u64")

	// ErrStopIteration ends Slab.Items early without an error.
	ErrStopIteration = errors.New("stop iteration")
)
