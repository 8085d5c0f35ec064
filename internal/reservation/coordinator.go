package reservation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"sorteo/internal/shared/apperrors"
	"sorteo/internal/shared/clock"
)

// Coordinator exposes the hold/confirm/release/expire operations on the
// number ledger with exclusivity guarantees: at most one live holder per
// number, expired holds visible to no reader, confirmation all-or-nothing
// per batch.
type Coordinator interface {
	// SetupDraw registers the numbers 1..total for a new draw.
	SetupDraw(ctx context.Context, drawID string, total int) error
	// TeardownDraw drops all live number state for a finished or
	// cancelled draw. Idempotent.
	TeardownDraw(ctx context.Context, drawID string) error

	// Hold grants a time-bounded claim on each requested value that is
	// free, lapsed, or already held by the same holder (refresh - the
	// expiry is replaced, not extended). Exactly one concurrent caller
	// wins a contested free number; losers see the value in Denied.
	Hold(ctx context.Context, drawID string, values []int, holderRef string, ttl time.Duration) (*HoldResult, error)

	// Confirm converts holds to permanent sales. All requested values
	// must be live holds of holderRef; otherwise nothing changes and the
	// offending values are reported in Failed along with ErrExpired or
	// ErrDenied.
	Confirm(ctx context.Context, drawID string, values []int, holderRef string) (*ConfirmResult, error)

	// Release frees holds still owned by holderRef. Releasing a free,
	// sold or foreign-held number is a no-op, not an error.
	Release(ctx context.Context, drawID string, values []int, holderRef string) error

	// SweepExpired reclaims every lapsed hold of a draw and returns how
	// many it released.
	SweepExpired(ctx context.Context, drawID string) (int, error)

	// Occupancy returns a snapshot count of the draw's number states.
	Occupancy(ctx context.Context, drawID string) (*Occupancy, error)
}

// memoryCoordinator serializes all transitions of one draw behind a
// per-draw mutex over an in-memory ledger.
type memoryCoordinator struct {
	ledger Ledger
	clock  clock.Clock
	maxTTL time.Duration

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewMemoryCoordinator builds a coordinator over an in-memory ledger.
// maxTTL caps caller-supplied hold TTLs; zero means no cap.
func NewMemoryCoordinator(ledger Ledger, clk clock.Clock, maxTTL time.Duration) Coordinator {
	return &memoryCoordinator{
		ledger: ledger,
		clock:  clk,
		maxTTL: maxTTL,
		locks:  make(map[string]*sync.Mutex),
	}
}

// drawLock returns the mutex serializing one draw's transitions.
func (c *memoryCoordinator) drawLock(drawID string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()

	lock, exists := c.locks[drawID]
	if !exists {
		lock = &sync.Mutex{}
		c.locks[drawID] = lock
	}
	return lock
}

func (c *memoryCoordinator) SetupDraw(ctx context.Context, drawID string, total int) error {
	return c.ledger.Setup(drawID, total)
}

func (c *memoryCoordinator) TeardownDraw(ctx context.Context, drawID string) error {
	lock := c.drawLock(drawID)
	lock.Lock()
	defer lock.Unlock()

	c.ledger.Teardown(drawID)

	c.mu.Lock()
	delete(c.locks, drawID)
	c.mu.Unlock()
	return nil
}

func (c *memoryCoordinator) Hold(ctx context.Context, drawID string, values []int, holderRef string, ttl time.Duration) (*HoldResult, error) {
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

	lock := c.drawLock(drawID)
	lock.Lock()
	defer lock.Unlock()

	now := c.clock.Now()
	heldUntil := now.Add(ttl)
	result := &HoldResult{ExpiresAt: heldUntil}

	for _, value := range values {
		rec, err := c.ledger.Get(drawID, value)
		if err != nil {
			return nil, err
		}

		switch {
		case rec.State == StateFree,
			rec.expired(now),
			rec.State == StateHeld && rec.HolderRef == holderRef:
			// Free, lapsed, or own hold being refreshed
			rec.State = StateHeld
			rec.HolderRef = holderRef
			rec.HeldUntil = heldUntil
			if err := c.ledger.Set(drawID, value, rec); err != nil {
				return nil, err
			}
			result.Granted = append(result.Granted, value)
		default:
			result.Denied = append(result.Denied, value)
		}
	}

	return result, nil
}

func (c *memoryCoordinator) Confirm(ctx context.Context, drawID string, values []int, holderRef string) (*ConfirmResult, error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("no numbers requested")
	}

	lock := c.drawLock(drawID)
	lock.Lock()
	defer lock.Unlock()

	now := c.clock.Now()
	result := &ConfirmResult{}

	// First pass: every value must be a live hold of this holder. If any
	// is not, nothing in the batch changes state.
	var expired bool
	for _, value := range values {
		rec, err := c.ledger.Get(drawID, value)
		if err != nil {
			return nil, err
		}
		if rec.State == StateHeld && rec.HolderRef == holderRef && !rec.expired(now) {
			continue
		}
		if rec.HolderRef == holderRef && rec.expired(now) {
			expired = true
		}
		result.Failed = append(result.Failed, value)
	}

	if len(result.Failed) > 0 {
		if expired {
			return result, fmt.Errorf("confirm %v: %w", result.Failed, apperrors.ErrExpired)
		}
		return result, fmt.Errorf("confirm %v: %w", result.Failed, apperrors.ErrDenied)
	}

	// Second pass: commit the whole batch.
	for _, value := range values {
		rec, err := c.ledger.Get(drawID, value)
		if err != nil {
			return nil, err
		}
		rec.State = StateSold
		rec.SoldTo = holderRef
		rec.SoldAt = now
		rec.HolderRef = ""
		rec.HeldUntil = time.Time{}
		if err := c.ledger.Set(drawID, value, rec); err != nil {
			return nil, err
		}
		result.Confirmed = append(result.Confirmed, value)
	}

	return result, nil
}

func (c *memoryCoordinator) Release(ctx context.Context, drawID string, values []int, holderRef string) error {
	lock := c.drawLock(drawID)
	lock.Lock()
	defer lock.Unlock()

	for _, value := range values {
		rec, err := c.ledger.Get(drawID, value)
		if err != nil {
			return err
		}
		if rec.State != StateHeld || rec.HolderRef != holderRef {
			continue
		}
		rec = NumberRecord{Value: rec.Value, State: StateFree}
		if err := c.ledger.Set(drawID, value, rec); err != nil {
			return err
		}
	}
	return nil
}

func (c *memoryCoordinator) SweepExpired(ctx context.Context, drawID string) (int, error) {
	lock := c.drawLock(drawID)
	lock.Lock()
	defer lock.Unlock()

	now := c.clock.Now()
	var lapsed []int
	err := c.ledger.ScanByDraw(drawID, func(rec NumberRecord) bool {
		if rec.expired(now) {
			lapsed = append(lapsed, rec.Value)
		}
		return true
	})
	if err != nil {
		return 0, err
	}

	for _, value := range lapsed {
		if err := c.ledger.Set(drawID, value, NumberRecord{Value: value, State: StateFree}); err != nil {
			return 0, err
		}
	}
	return len(lapsed), nil
}

func (c *memoryCoordinator) Occupancy(ctx context.Context, drawID string) (*Occupancy, error) {
	now := c.clock.Now()
	occ := &Occupancy{}

	err := c.ledger.ScanByDraw(drawID, func(rec NumberRecord) bool {
		occ.Total++
		switch {
		case rec.State == StateSold:
			occ.Sold++
		case rec.State == StateHeld && !rec.expired(now):
			occ.Held++
		default:
			// Free, or a lapsed hold nobody reclaimed yet
			occ.Free++
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	return occ, nil
}
