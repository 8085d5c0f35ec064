package constants

import (
	"fmt"
	"time"
)

// Redis key layout for the raffle engine.
// Pattern: sorteo:{module}:{identifier}:{params?}

const CACHE_PREFIX = "sorteo"

// ================== RESERVATION MODULE ==================

// Number hold state. One hash per number holds holder, held_until and
// sold fields; the Lua scripts in internal/reservation operate on these.
// Scripts receive the prefix and append the value themselves.
const (
	KEY_NUMBER_PREFIX = CACHE_PREFIX + ":draw:%s:num:" // drawID
	KEY_DRAW_TOTAL    = CACHE_PREFIX + ":draw:%s:total"
)

func BuildNumberKeyPrefix(drawID string) string {
	return fmt.Sprintf(KEY_NUMBER_PREFIX, drawID)
}

func BuildDrawTotalKey(drawID string) string {
	return fmt.Sprintf(KEY_DRAW_TOTAL, drawID)
}

// ================== CACHE KEYS ==================

const (
	CACHE_KEY_OCCUPANCY    = CACHE_PREFIX + ":occupancy:draw:" // + draw-id
	CACHE_KEY_HISTORY_LIST = CACHE_PREFIX + ":history:list"    // archive listing
	CACHE_KEY_DRAW_DETAIL  = CACHE_PREFIX + ":draws:detail:"   // + draw-id, terminal draws only
	CACHE_KEY_PARTICIPANTS = CACHE_PREFIX + ":participants:"   // + draw-id
)

func BuildOccupancyKey(drawID string) string {
	return CACHE_KEY_OCCUPANCY + drawID
}

func BuildDrawDetailKey(drawID string) string {
	return CACHE_KEY_DRAW_DETAIL + drawID
}

func BuildParticipantsKey(drawID string) string {
	return CACHE_KEY_PARTICIPANTS + drawID
}

// ================== CACHE TTLS ==================

// Occupancy is real-time sensitive; draw details change on lifecycle
// transitions only; archive entries are immutable.
const (
	TTL_OCCUPANCY    = 5 * time.Second
	TTL_PARTICIPANTS = 30 * time.Second
	TTL_DRAW_DETAIL  = 2 * time.Minute
	TTL_HISTORY_LIST = 10 * time.Minute
)
