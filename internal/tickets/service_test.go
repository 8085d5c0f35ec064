package tickets

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"sorteo/internal/shared/apperrors"
	"sorteo/internal/shared/clock"

	"github.com/google/uuid"
)

// claimRecorder captures payout notifications.
type claimRecorder struct {
	mu      sync.Mutex
	claimed []uuid.UUID
}

func (r *claimRecorder) NotifyTicketClaimed(ctx context.Context, ticket *InstantTicket) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.claimed = append(r.claimed, ticket.ID)
}

func newTestService(t *testing.T) (*service, *clock.Fake) {
	t.Helper()
	clk := clock.NewFake(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	return NewService(NewMemoryRepository(), clk), clk
}

// issueOne issues a single ticket with a known outcome.
func issueOne(t *testing.T, svc Service, holder string, winner bool) string {
	t.Helper()

	winnerCount := 0
	if winner {
		winnerCount = 1
	}
	batch, err := svc.IssueBatch(context.Background(), IssueBatchRequest{
		DrawID:      uuid.New().String(),
		HolderRef:   holder,
		Count:       1,
		WinnerCount: winnerCount,
		PrizeAmount: 25.00,
	})
	if err != nil {
		t.Fatalf("IssueBatch: %v", err)
	}
	return batch[0].ID
}

func TestIssueBatch(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	batch, err := svc.IssueBatch(ctx, IssueBatchRequest{
		DrawID:      uuid.New().String(),
		HolderRef:   "alice",
		Count:       10,
		WinnerCount: 3,
		PrizeAmount: 5.00,
	})
	if err != nil {
		t.Fatalf("IssueBatch: %v", err)
	}
	if len(batch) != 10 {
		t.Fatalf("issued %d tickets, want 10", len(batch))
	}

	// Outcomes are hidden until scratched; count them by scratching all
	winners := 0
	for _, ticket := range batch {
		result, err := svc.Scratch(ctx, ticket.ID, "alice")
		if err != nil {
			t.Fatalf("Scratch: %v", err)
		}
		if result.IsWinner {
			winners++
			if result.PrizeAmount != 5.00 {
				t.Errorf("prize = %v, want 5.00", result.PrizeAmount)
			}
		} else if result.PrizeAmount != 0 {
			t.Errorf("losing ticket carries prize %v", result.PrizeAmount)
		}
	}
	if winners != 3 {
		t.Errorf("winners = %d, want 3", winners)
	}

	t.Run("winner count beyond batch size", func(t *testing.T) {
		_, err := svc.IssueBatch(ctx, IssueBatchRequest{
			DrawID:      uuid.New().String(),
			HolderRef:   "alice",
			Count:       2,
			WinnerCount: 3,
		})
		if err == nil {
			t.Error("expected error for winner count > batch size")
		}
	})
}

func TestScratch(t *testing.T) {
	ctx := context.Background()

	t.Run("idempotent", func(t *testing.T) {
		svc, _ := newTestService(t)
		id := issueOne(t, svc, "alice", true)

		first, err := svc.Scratch(ctx, id, "alice")
		if err != nil {
			t.Fatalf("Scratch: %v", err)
		}
		if first.AlreadyScratched || !first.IsWinner {
			t.Fatalf("first scratch = %+v, want fresh winning scratch", first)
		}

		// Every replay returns the identical outcome
		for i := 0; i < 3; i++ {
			again, err := svc.Scratch(ctx, id, "alice")
			if err != nil {
				t.Fatalf("replay Scratch: %v", err)
			}
			if !again.AlreadyScratched {
				t.Error("replay not flagged already_scratched")
			}
			if again.IsWinner != first.IsWinner || again.PrizeAmount != first.PrizeAmount {
				t.Errorf("replay outcome %+v differs from first %+v", again, first)
			}
			if !again.ScratchedAt.Equal(*first.ScratchedAt) {
				t.Errorf("scratched_at changed on replay: %v vs %v", again.ScratchedAt, first.ScratchedAt)
			}
		}
	})

	t.Run("foreign holder denied", func(t *testing.T) {
		svc, _ := newTestService(t)
		id := issueOne(t, svc, "alice", false)

		if _, err := svc.Scratch(ctx, id, "mallory"); !errors.Is(err, apperrors.ErrDenied) {
			t.Errorf("err = %v, want ErrDenied", err)
		}
	})

	t.Run("unknown ticket", func(t *testing.T) {
		svc, _ := newTestService(t)

		if _, err := svc.Scratch(ctx, uuid.New().String(), "alice"); !errors.Is(err, apperrors.ErrNotFound) {
			t.Errorf("err = %v, want ErrNotFound", err)
		}
	})
}

func TestClaim(t *testing.T) {
	ctx := context.Background()

	t.Run("pays out exactly once", func(t *testing.T) {
		svc, _ := newTestService(t)
		recorder := &claimRecorder{}
		svc.SetNotifier(recorder)
		id := issueOne(t, svc, "alice", true)

		// Claim requires a prior scratch
		if _, err := svc.Claim(ctx, id, "alice"); !errors.Is(err, apperrors.ErrConflict) {
			t.Fatalf("pre-scratch claim err = %v, want ErrConflict", err)
		}

		if _, err := svc.Scratch(ctx, id, "alice"); err != nil {
			t.Fatalf("Scratch: %v", err)
		}

		result, err := svc.Claim(ctx, id, "alice")
		if err != nil {
			t.Fatalf("Claim: %v", err)
		}
		if result.PrizeAmount != 25.00 || result.ClaimedAt == nil {
			t.Errorf("claim = %+v, want 25.00 with timestamp", result)
		}

		if _, err := svc.Claim(ctx, id, "alice"); !errors.Is(err, apperrors.ErrConflict) {
			t.Errorf("repeat claim err = %v, want ErrConflict", err)
		}

		// Only the successful claim publishes
		if len(recorder.claimed) != 1 {
			t.Errorf("published %d claim events, want 1", len(recorder.claimed))
		}
	})

	t.Run("losing ticket", func(t *testing.T) {
		svc, _ := newTestService(t)
		id := issueOne(t, svc, "alice", false)

		if _, err := svc.Scratch(ctx, id, "alice"); err != nil {
			t.Fatalf("Scratch: %v", err)
		}
		if _, err := svc.Claim(ctx, id, "alice"); !errors.Is(err, apperrors.ErrDenied) {
			t.Errorf("err = %v, want ErrDenied", err)
		}
	})

	t.Run("foreign holder denied", func(t *testing.T) {
		svc, _ := newTestService(t)
		id := issueOne(t, svc, "alice", true)

		if _, err := svc.Scratch(ctx, id, "alice"); err != nil {
			t.Fatalf("Scratch: %v", err)
		}
		if _, err := svc.Claim(ctx, id, "mallory"); !errors.Is(err, apperrors.ErrDenied) {
			t.Errorf("err = %v, want ErrDenied", err)
		}
	})
}

func TestClaimConcurrency(t *testing.T) {
	// Replayed claim requests race; the conditional update lets exactly
	// one through.
	svc, _ := newTestService(t)
	id := issueOne(t, svc, "alice", true)
	ctx := context.Background()

	if _, err := svc.Scratch(ctx, id, "alice"); err != nil {
		t.Fatalf("Scratch: %v", err)
	}

	const attempts = 20
	var wg sync.WaitGroup
	successes := make([]bool, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.Claim(ctx, id, "alice")
			if err == nil {
				successes[i] = true
			} else if !errors.Is(err, apperrors.ErrConflict) {
				t.Errorf("unexpected claim error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	paid := 0
	for _, ok := range successes {
		if ok {
			paid++
		}
	}
	if paid != 1 {
		t.Fatalf("paid out %d times, want exactly 1", paid)
	}
}
