package reservation

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"sorteo/internal/shared/apperrors"
	"sorteo/internal/shared/clock"
	"sorteo/internal/shared/constants"

	"github.com/redis/go-redis/v9"
)

// redisCoordinator keeps number state in Redis hashes and runs every
// multi-step transition through a Lua script, so concurrent holders race
// inside Redis and exactly one wins. Expiry is lazy: every script compares
// held_until against the caller-supplied "now" instead of trusting key
// TTLs, which keeps sweep and lazy reads equivalent.
type redisCoordinator struct {
	redis  *redis.Client
	clock  clock.Clock
	maxTTL time.Duration
}

// NewRedisCoordinator builds the Redis-backed coordinator.
func NewRedisCoordinator(redisClient *redis.Client, clk clock.Clock, maxTTL time.Duration) Coordinator {
	return &redisCoordinator{
		redis:  redisClient,
		clock:  clk,
		maxTTL: maxTTL,
	}
}

func numberKeyPrefix(drawID string) string {
	return constants.BuildNumberKeyPrefix(drawID)
}

func totalKey(drawID string) string {
	return constants.BuildDrawTotalKey(drawID)
}

// Lua script for atomic number holding - prevents race conditions
const luaNumberHold = `
-- KEYS[1] = total key
-- ARGV[1] = key prefix
-- ARGV[2] = holder_ref
-- ARGV[3] = now (unix)
-- ARGV[4] = held_until (unix)
-- ARGV[5..N] = number values

if redis.call("EXISTS", KEYS[1]) == 0 then
    return redis.error_reply("draw_not_found")
end
local total = tonumber(redis.call("GET", KEYS[1]))

local granted = {}
local denied = {}

for i = 5, #ARGV do
    local value = ARGV[i]
    if tonumber(value) < 1 or tonumber(value) > total then
        return redis.error_reply("value_out_of_range")
    end
    local key = ARGV[1] .. value
    local state = redis.call("HGET", key, "state")

    if not state then
        redis.call("HSET", key, "state", "HELD", "holder", ARGV[2], "held_until", ARGV[4])
        table.insert(granted, value)
    elseif state == "SOLD" then
        table.insert(denied, value)
    else
        local holder = redis.call("HGET", key, "holder")
        local held_until = tonumber(redis.call("HGET", key, "held_until"))
        if holder == ARGV[2] or held_until < tonumber(ARGV[3]) then
            -- own hold refreshed, or a lapsed foreign hold reclaimed
            redis.call("HSET", key, "state", "HELD", "holder", ARGV[2], "held_until", ARGV[4])
            table.insert(granted, value)
        else
            table.insert(denied, value)
        end
    end
end

return {granted, denied}
`

// Lua script for all-or-nothing batch confirmation
const luaNumberConfirm = `
-- KEYS[1] = total key
-- ARGV[1] = key prefix
-- ARGV[2] = holder_ref
-- ARGV[3] = now (unix)
-- ARGV[4..N] = number values

if redis.call("EXISTS", KEYS[1]) == 0 then
    return redis.error_reply("draw_not_found")
end

local failed = {}
local expired = 0

-- Check the whole batch first; nothing changes unless every value is a
-- live hold of this holder.
for i = 4, #ARGV do
    local key = ARGV[1] .. ARGV[i]
    local state = redis.call("HGET", key, "state")
    if state ~= "HELD" then
        table.insert(failed, ARGV[i])
    else
        local holder = redis.call("HGET", key, "holder")
        local held_until = tonumber(redis.call("HGET", key, "held_until"))
        if holder ~= ARGV[2] then
            table.insert(failed, ARGV[i])
        elseif held_until < tonumber(ARGV[3]) then
            table.insert(failed, ARGV[i])
            expired = 1
        end
    end
end

if #failed > 0 then
    return {0, failed, expired}
end

for i = 4, #ARGV do
    local key = ARGV[1] .. ARGV[i]
    redis.call("HSET", key, "state", "SOLD", "sold_to", ARGV[2], "sold_at", ARGV[3])
    redis.call("HDEL", key, "holder", "held_until")
end

return {1, failed, 0}
`

// Lua script for idempotent release of own holds
const luaNumberRelease = `
-- ARGV[1] = key prefix
-- ARGV[2] = holder_ref
-- ARGV[3..N] = number values

local released = 0
for i = 3, #ARGV do
    local key = ARGV[1] .. ARGV[i]
    if redis.call("HGET", key, "state") == "HELD" and redis.call("HGET", key, "holder") == ARGV[2] then
        redis.call("DEL", key)
        released = released + 1
    end
end
return released
`

// Lua script reclaiming every lapsed hold of a draw
const luaNumberSweep = `
-- KEYS[1] = total key
-- ARGV[1] = key prefix
-- ARGV[2] = now (unix)

if redis.call("EXISTS", KEYS[1]) == 0 then
    return redis.error_reply("draw_not_found")
end
local total = tonumber(redis.call("GET", KEYS[1]))

local released = 0
for value = 1, total do
    local key = ARGV[1] .. value
    if redis.call("HGET", key, "state") == "HELD" then
        local held_until = tonumber(redis.call("HGET", key, "held_until"))
        if held_until < tonumber(ARGV[2]) then
            redis.call("DEL", key)
            released = released + 1
        end
    end
end
return released
`

// Lua script counting free/held/sold, excluding lapsed holds from held
const luaNumberOccupancy = `
-- KEYS[1] = total key
-- ARGV[1] = key prefix
-- ARGV[2] = now (unix)

if redis.call("EXISTS", KEYS[1]) == 0 then
    return redis.error_reply("draw_not_found")
end
local total = tonumber(redis.call("GET", KEYS[1]))

local free = 0
local held = 0
local sold = 0
for value = 1, total do
    local key = ARGV[1] .. value
    local state = redis.call("HGET", key, "state")
    if not state then
        free = free + 1
    elseif state == "SOLD" then
        sold = sold + 1
    else
        local held_until = tonumber(redis.call("HGET", key, "held_until"))
        if held_until < tonumber(ARGV[2]) then
            free = free + 1
        else
            held = held + 1
        end
    end
end
return {free, held, sold, total}
`

func (c *redisCoordinator) SetupDraw(ctx context.Context, drawID string, total int) error {
	if total <= 0 {
		return fmt.Errorf("total numbers must be positive, got %d", total)
	}
	ok, err := c.redis.SetNX(ctx, totalKey(drawID), total, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to register draw: %w", err)
	}
	if !ok {
		return fmt.Errorf("draw %s already registered: %w", drawID, apperrors.ErrConflict)
	}
	return nil
}

func (c *redisCoordinator) TeardownDraw(ctx context.Context, drawID string) error {
	total, err := c.redis.Get(ctx, totalKey(drawID)).Int()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read draw total: %w", err)
	}

	pipe := c.redis.Pipeline()
	for value := 1; value <= total; value++ {
		pipe.Del(ctx, numberKeyPrefix(drawID)+strconv.Itoa(value))
	}
	pipe.Del(ctx, totalKey(drawID))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to tear down draw state: %w", err)
	}
	return nil
}

func (c *redisCoordinator) Hold(ctx context.Context, drawID string, values []int, holderRef string, ttl time.Duration) (*HoldResult, error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("no numbers requested")
	}
	if holderRef == "" {
		return nil, fmt.Errorf("holder reference is required")
	}
	if c.maxTTL > 0 && ttl > c.maxTTL {
		ttl = c.maxTTL
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("hold ttl must be positive")
	}

	now := c.clock.Now()
	heldUntil := now.Add(ttl)

	args := []interface{}{
		numberKeyPrefix(drawID),
		holderRef,
		now.Unix(),
		heldUntil.Unix(),
	}
	for _, value := range values {
		args = append(args, strconv.Itoa(value))
	}

	result, err := c.eval(ctx, luaNumberHold, []string{totalKey(drawID)}, args...)
	if err != nil {
		return nil, wrapScriptError(drawID, err)
	}

	lists, ok := result.([]interface{})
	if !ok || len(lists) != 2 {
		return nil, fmt.Errorf("unexpected result format from hold script")
	}

	return &HoldResult{
		Granted:   toIntSlice(lists[0]),
		Denied:    toIntSlice(lists[1]),
		ExpiresAt: heldUntil,
	}, nil
}

func (c *redisCoordinator) Confirm(ctx context.Context, drawID string, values []int, holderRef string) (*ConfirmResult, error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("no numbers requested")
	}

	args := []interface{}{
		numberKeyPrefix(drawID),
		holderRef,
		c.clock.Now().Unix(),
	}
	for _, value := range values {
		args = append(args, strconv.Itoa(value))
	}

	result, err := c.eval(ctx, luaNumberConfirm, []string{totalKey(drawID)}, args...)
	if err != nil {
		return nil, wrapScriptError(drawID, err)
	}

	parts, ok := result.([]interface{})
	if !ok || len(parts) != 3 {
		return nil, fmt.Errorf("unexpected result format from confirm script")
	}

	success, _ := parts[0].(int64)
	if success == 1 {
		return &ConfirmResult{Confirmed: values}, nil
	}

	res := &ConfirmResult{Failed: toIntSlice(parts[1])}
	if expired, _ := parts[2].(int64); expired == 1 {
		return res, fmt.Errorf("confirm %v: %w", res.Failed, apperrors.ErrExpired)
	}
	return res, fmt.Errorf("confirm %v: %w", res.Failed, apperrors.ErrDenied)
}

func (c *redisCoordinator) Release(ctx context.Context, drawID string, values []int, holderRef string) error {
	if len(values) == 0 {
		return nil
	}

	args := []interface{}{numberKeyPrefix(drawID), holderRef}
	for _, value := range values {
		args = append(args, strconv.Itoa(value))
	}

	if _, err := c.eval(ctx, luaNumberRelease, []string{totalKey(drawID)}, args...); err != nil {
		return wrapScriptError(drawID, err)
	}
	return nil
}

func (c *redisCoordinator) SweepExpired(ctx context.Context, drawID string) (int, error) {
	result, err := c.eval(ctx, luaNumberSweep, []string{totalKey(drawID)},
		numberKeyPrefix(drawID), c.clock.Now().Unix())
	if err != nil {
		return 0, wrapScriptError(drawID, err)
	}

	released, ok := result.(int64)
	if !ok {
		return 0, fmt.Errorf("unexpected result format from sweep script")
	}
	return int(released), nil
}

func (c *redisCoordinator) Occupancy(ctx context.Context, drawID string) (*Occupancy, error) {
	result, err := c.eval(ctx, luaNumberOccupancy, []string{totalKey(drawID)},
		numberKeyPrefix(drawID), c.clock.Now().Unix())
	if err != nil {
		return nil, wrapScriptError(drawID, err)
	}

	counts, ok := result.([]interface{})
	if !ok || len(counts) != 4 {
		return nil, fmt.Errorf("unexpected result format from occupancy script")
	}

	occ := &Occupancy{}
	for i, dest := range []*int{&occ.Free, &occ.Held, &occ.Sold, &occ.Total} {
		n, ok := counts[i].(int64)
		if !ok {
			return nil, fmt.Errorf("invalid count in occupancy script result")
		}
		*dest = int(n)
	}
	return occ, nil
}

// eval runs a script by hash first, falling back to a plain EVAL when the
// script is not loaded yet.
func (c *redisCoordinator) eval(ctx context.Context, script string, keys []string, args ...interface{}) (interface{}, error) {
	result, err := c.redis.EvalSha(ctx, script, keys, args...).Result()
	if err != nil {
		result, err = c.redis.Eval(ctx, script, keys, args...).Result()
	}
	return result, err
}

// PreloadScripts loads the reservation Lua scripts into Redis so the hot
// path can use EVALSHA.
func PreloadScripts(ctx context.Context, redisClient *redis.Client) error {
	for _, script := range []string{
		luaNumberHold,
		luaNumberConfirm,
		luaNumberRelease,
		luaNumberSweep,
		luaNumberOccupancy,
	} {
		if _, err := redisClient.ScriptLoad(ctx, script).Result(); err != nil {
			return fmt.Errorf("failed to load reservation script: %w", err)
		}
	}
	return nil
}

func wrapScriptError(drawID string, err error) error {
	switch err.Error() {
	case "draw_not_found":
		return fmt.Errorf("draw %s: %w", drawID, apperrors.ErrNotFound)
	case "value_out_of_range":
		return fmt.Errorf("draw %s: number out of range: %w", drawID, apperrors.ErrNotFound)
	default:
		return fmt.Errorf("reservation script failed: %w", err)
	}
}

func toIntSlice(raw interface{}) []int {
	items, ok := raw.([]interface{})
	if !ok {
		return nil
	}
	var values []int
	for _, item := range items {
		switch v := item.(type) {
		case string:
			if n, err := strconv.Atoi(v); err == nil {
				values = append(values, n)
			}
		case int64:
			values = append(values, int(v))
		}
	}
	return values
}
