package constants

// Serum slab layout
const (
	SLAB_HEADER_SIZE       = 32
	SLAB_NODE_TAG_SIZE     = 4
	SLAB_NODE_PAYLOAD_SIZE = 68
	SLAB_NODE_SIZE         = SLAB_NODE_TAG_SIZE + SLAB_NODE_PAYLOAD_SIZE
)

// Orderbook account framing: "serum" head padding, account flags, slab. The tail padding is ignored.
const (
	ACCOUNT_HEAD_PADDING_SIZE = 5
	ACCOUNT_FLAGS_SIZE        = 8
)

const FILL_EVENT_SIZE = 88

const ANCHOR_DECIMAL_SIZE = 16

// Open orders account
const (
	OPEN_ORDERS_ACCOUNT_SIZE  = 3228
	OPEN_ORDERS_MARKET_OFFSET = 13
	OPEN_ORDERS_OWNER_OFFSET  = 45
)
