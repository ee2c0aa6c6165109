package constants

const PLATFORM_PRECISION = 6
const POSITION_PRECISION = 3

// TICK_SIZE is the minimum price increment in platform precision units.
const TICK_SIZE int64 = 100

const DEFAULT_L2_DEPTH = 10
