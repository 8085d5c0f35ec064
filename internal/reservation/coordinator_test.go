package reservation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"sorteo/internal/shared/apperrors"
	"sorteo/internal/shared/clock"
)

func newTestCoordinator(t *testing.T, total int) (Coordinator, *clock.Fake) {
	t.Helper()

	clk := clock.NewFake(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	coord := NewMemoryCoordinator(NewMemoryLedger(), clk, 5*time.Minute)
	if err := coord.SetupDraw(context.Background(), "draw-1", total); err != nil {
		t.Fatalf("SetupDraw: %v", err)
	}
	return coord, clk
}

func TestHold(t *testing.T) {
	ctx := context.Background()

	t.Run("grants free numbers", func(t *testing.T) {
		coord, _ := newTestCoordinator(t, 10)

		result, err := coord.Hold(ctx, "draw-1", []int{1, 2, 3}, "alice", time.Minute)
		if err != nil {
			t.Fatalf("Hold: %v", err)
		}
		if len(result.Granted) != 3 || len(result.Denied) != 0 {
			t.Fatalf("got granted=%v denied=%v, want 3 granted", result.Granted, result.Denied)
		}
	})

	t.Run("denies numbers held by another holder", func(t *testing.T) {
		coord, _ := newTestCoordinator(t, 10)

		if _, err := coord.Hold(ctx, "draw-1", []int{5}, "alice", time.Minute); err != nil {
			t.Fatalf("Hold alice: %v", err)
		}

		result, err := coord.Hold(ctx, "draw-1", []int{5, 6}, "bob", time.Minute)
		if err != nil {
			t.Fatalf("Hold bob: %v", err)
		}
		if len(result.Granted) != 1 || result.Granted[0] != 6 {
			t.Errorf("granted = %v, want [6]", result.Granted)
		}
		if len(result.Denied) != 1 || result.Denied[0] != 5 {
			t.Errorf("denied = %v, want [5]", result.Denied)
		}
	})

	t.Run("same holder refresh replaces expiry", func(t *testing.T) {
		coord, clk := newTestCoordinator(t, 10)

		first, err := coord.Hold(ctx, "draw-1", []int{7}, "alice", time.Minute)
		if err != nil {
			t.Fatalf("Hold: %v", err)
		}

		clk.Advance(30 * time.Second)
		second, err := coord.Hold(ctx, "draw-1", []int{7}, "alice", time.Minute)
		if err != nil {
			t.Fatalf("re-Hold: %v", err)
		}
		if len(second.Granted) != 1 {
			t.Fatalf("refresh denied: %v", second.Denied)
		}
		if !second.ExpiresAt.After(first.ExpiresAt) {
			t.Errorf("expiry not replaced: first=%v second=%v", first.ExpiresAt, second.ExpiresAt)
		}
	})

	t.Run("lapsed hold is grantable to a new holder", func(t *testing.T) {
		coord, clk := newTestCoordinator(t, 10)

		if _, err := coord.Hold(ctx, "draw-1", []int{3}, "alice", time.Minute); err != nil {
			t.Fatalf("Hold: %v", err)
		}

		clk.Advance(61 * time.Second)
		result, err := coord.Hold(ctx, "draw-1", []int{3}, "bob", time.Minute)
		if err != nil {
			t.Fatalf("Hold after expiry: %v", err)
		}
		if len(result.Granted) != 1 {
			t.Errorf("lapsed number not granted: denied=%v", result.Denied)
		}
	})

	t.Run("ttl capped at maximum", func(t *testing.T) {
		coord, clk := newTestCoordinator(t, 10)

		result, err := coord.Hold(ctx, "draw-1", []int{1}, "alice", time.Hour)
		if err != nil {
			t.Fatalf("Hold: %v", err)
		}
		want := clk.Now().Add(5 * time.Minute)
		if !result.ExpiresAt.Equal(want) {
			t.Errorf("ExpiresAt = %v, want capped %v", result.ExpiresAt, want)
		}
	})

	t.Run("unknown number", func(t *testing.T) {
		coord, _ := newTestCoordinator(t, 10)

		if _, err := coord.Hold(ctx, "draw-1", []int{11}, "alice", time.Minute); !errors.Is(err, apperrors.ErrNotFound) {
			t.Errorf("err = %v, want ErrNotFound", err)
		}
	})
}

func TestHoldConcurrency(t *testing.T) {
	// Many goroutines race for the same number; exactly one must win.
	coord, _ := newTestCoordinator(t, 1)
	ctx := context.Background()

	const contenders = 50
	var wg sync.WaitGroup
	granted := make([]int, contenders)

	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			result, err := coord.Hold(ctx, "draw-1", []int{1}, fmt.Sprintf("buyer-%d", i), time.Minute)
			if err != nil {
				t.Errorf("Hold: %v", err)
				return
			}
			granted[i] = len(result.Granted)
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, g := range granted {
		winners += g
	}
	if winners != 1 {
		t.Fatalf("winners = %d, want exactly 1", winners)
	}
}

func TestConfirm(t *testing.T) {
	ctx := context.Background()

	t.Run("converts live holds to sales", func(t *testing.T) {
		coord, _ := newTestCoordinator(t, 10)

		if _, err := coord.Hold(ctx, "draw-1", []int{1, 2}, "alice", time.Minute); err != nil {
			t.Fatalf("Hold: %v", err)
		}

		result, err := coord.Confirm(ctx, "draw-1", []int{1, 2}, "alice")
		if err != nil {
			t.Fatalf("Confirm: %v", err)
		}
		if len(result.Confirmed) != 2 {
			t.Fatalf("confirmed = %v, want [1 2]", result.Confirmed)
		}

		// Sold numbers survive a later hold attempt
		hold, err := coord.Hold(ctx, "draw-1", []int{1}, "bob", time.Minute)
		if err != nil {
			t.Fatalf("Hold after sale: %v", err)
		}
		if len(hold.Denied) != 1 {
			t.Errorf("sold number granted to bob: %v", hold.Granted)
		}
	})

	t.Run("all or nothing on partial failure", func(t *testing.T) {
		coord, _ := newTestCoordinator(t, 10)

		if _, err := coord.Hold(ctx, "draw-1", []int{1}, "alice", time.Minute); err != nil {
			t.Fatalf("Hold: %v", err)
		}

		// 2 was never held by alice. The whole batch must fail and 1 stay held.
		result, err := coord.Confirm(ctx, "draw-1", []int{1, 2}, "alice")
		if !errors.Is(err, apperrors.ErrDenied) {
			t.Fatalf("err = %v, want ErrDenied", err)
		}
		if len(result.Failed) != 1 || result.Failed[0] != 2 {
			t.Errorf("failed = %v, want [2]", result.Failed)
		}

		occ, err := coord.Occupancy(ctx, "draw-1")
		if err != nil {
			t.Fatalf("Occupancy: %v", err)
		}
		if occ.Sold != 0 || occ.Held != 1 {
			t.Errorf("occupancy = %+v, want 0 sold, 1 held", occ)
		}
	})

	t.Run("expired own hold", func(t *testing.T) {
		coord, clk := newTestCoordinator(t, 10)

		if _, err := coord.Hold(ctx, "draw-1", []int{4}, "alice", time.Minute); err != nil {
			t.Fatalf("Hold: %v", err)
		}

		clk.Advance(2 * time.Minute)
		result, err := coord.Confirm(ctx, "draw-1", []int{4}, "alice")
		if !errors.Is(err, apperrors.ErrExpired) {
			t.Fatalf("err = %v, want ErrExpired", err)
		}
		if len(result.Failed) != 1 || result.Failed[0] != 4 {
			t.Errorf("failed = %v, want [4]", result.Failed)
		}
	})
}

func TestRelease(t *testing.T) {
	coord, _ := newTestCoordinator(t, 10)
	ctx := context.Background()

	if _, err := coord.Hold(ctx, "draw-1", []int{1, 2}, "alice", time.Minute); err != nil {
		t.Fatalf("Hold: %v", err)
	}

	if err := coord.Release(ctx, "draw-1", []int{1, 2}, "alice"); err != nil {
		t.Fatalf("Release: %v", err)
	}

	// Released numbers go straight back to the pool
	result, err := coord.Hold(ctx, "draw-1", []int{1, 2}, "bob", time.Minute)
	if err != nil {
		t.Fatalf("Hold after release: %v", err)
	}
	if len(result.Granted) != 2 {
		t.Errorf("granted = %v, want [1 2]", result.Granted)
	}

	// Releasing again, or someone else's hold, is a no-op
	if err := coord.Release(ctx, "draw-1", []int{1, 2}, "alice"); err != nil {
		t.Errorf("repeat Release: %v", err)
	}
	occ, _ := coord.Occupancy(ctx, "draw-1")
	if occ.Held != 2 {
		t.Errorf("bob's holds disturbed: %+v", occ)
	}
}

func TestSweepExpired(t *testing.T) {
	coord, clk := newTestCoordinator(t, 10)
	ctx := context.Background()

	if _, err := coord.Hold(ctx, "draw-1", []int{1, 2, 3}, "alice", time.Minute); err != nil {
		t.Fatalf("Hold: %v", err)
	}
	if _, err := coord.Hold(ctx, "draw-1", []int{4}, "bob", 3*time.Minute); err != nil {
		t.Fatalf("Hold: %v", err)
	}

	clk.Advance(2 * time.Minute)

	swept, err := coord.SweepExpired(ctx, "draw-1")
	if err != nil {
		t.Fatalf("SweepExpired: %v", err)
	}
	if swept != 3 {
		t.Errorf("swept = %d, want 3", swept)
	}

	occ, err := coord.Occupancy(ctx, "draw-1")
	if err != nil {
		t.Fatalf("Occupancy: %v", err)
	}
	if occ.Free != 9 || occ.Held != 1 {
		t.Errorf("occupancy = %+v, want 9 free, 1 held", occ)
	}
}

func TestOccupancyCountsLapsedHoldsAsFree(t *testing.T) {
	// Lazy expiry: a lapsed hold reads as free even before any sweep runs.
	coord, clk := newTestCoordinator(t, 5)
	ctx := context.Background()

	if _, err := coord.Hold(ctx, "draw-1", []int{1, 2}, "alice", time.Minute); err != nil {
		t.Fatalf("Hold: %v", err)
	}

	clk.Advance(90 * time.Second)

	occ, err := coord.Occupancy(ctx, "draw-1")
	if err != nil {
		t.Fatalf("Occupancy: %v", err)
	}
	if occ.Free != 5 || occ.Held != 0 {
		t.Errorf("occupancy = %+v, want all 5 free", occ)
	}
}

func TestPurchaseScenario(t *testing.T) {
	// Two buyers contend for overlapping numbers through a full
	// hold/expire/re-hold/confirm cycle.
	coord, clk := newTestCoordinator(t, 3)
	ctx := context.Background()

	// Alice holds 1 and 2, Bob is denied 2 but gets 3
	alice, err := coord.Hold(ctx, "draw-1", []int{1, 2}, "alice", time.Minute)
	if err != nil || len(alice.Granted) != 2 {
		t.Fatalf("alice hold: granted=%v err=%v", alice.Granted, err)
	}
	bob, err := coord.Hold(ctx, "draw-1", []int{2, 3}, "bob", time.Minute)
	if err != nil {
		t.Fatalf("bob hold: %v", err)
	}
	if len(bob.Granted) != 1 || bob.Granted[0] != 3 {
		t.Fatalf("bob granted = %v, want [3]", bob.Granted)
	}

	// Bob confirms before the window closes
	if _, err := coord.Confirm(ctx, "draw-1", []int{3}, "bob"); err != nil {
		t.Fatalf("bob confirm: %v", err)
	}

	// Alice dawdles past her TTL; her confirm fails and frees nothing
	clk.Advance(2 * time.Minute)
	if _, err := coord.Confirm(ctx, "draw-1", []int{1, 2}, "alice"); !errors.Is(err, apperrors.ErrExpired) {
		t.Fatalf("alice confirm err = %v, want ErrExpired", err)
	}

	// Bob scoops up the lapsed numbers and completes the draw
	rebound, err := coord.Hold(ctx, "draw-1", []int{1, 2}, "bob", time.Minute)
	if err != nil || len(rebound.Granted) != 2 {
		t.Fatalf("bob re-hold: granted=%v err=%v", rebound.Granted, err)
	}
	if _, err := coord.Confirm(ctx, "draw-1", []int{1, 2}, "bob"); err != nil {
		t.Fatalf("bob confirm: %v", err)
	}

	occ, err := coord.Occupancy(ctx, "draw-1")
	if err != nil {
		t.Fatalf("Occupancy: %v", err)
	}
	if occ.Sold != 3 || !occ.SoldOut() {
		t.Errorf("occupancy = %+v, want sold out", occ)
	}
}
