package draws

import (
	"context"
	"errors"
	"testing"
	"time"

	"sorteo/internal/history"
	"sorteo/internal/reservation"
	"sorteo/internal/shared/apperrors"
	"sorteo/internal/shared/clock"
	"sorteo/internal/shared/config"

	"github.com/google/uuid"
)

type capturedEvent struct {
	eventType string
	drawID    uuid.UUID
}

type recordingNotifier struct {
	events []capturedEvent
}

func (n *recordingNotifier) NotifyDrawEvent(ctx context.Context, eventType string, draw *Draw) {
	n.events = append(n.events, capturedEvent{eventType: eventType, drawID: draw.ID})
}

type fixture struct {
	service     *service
	coordinator reservation.Coordinator
	resRepo     reservation.Repository
	historySvc  history.Service
	notifier    *recordingNotifier
	clock       *clock.Fake
	operator    uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	clk := clock.NewFake(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	cfg := &config.Config{}
	cfg.Raffle.MaxNumbersPerDraw = 1000
	cfg.Raffle.NumberHoldTTLMax = 5 * time.Minute

	coordinator := reservation.NewMemoryCoordinator(reservation.NewMemoryLedger(), clk, cfg.Raffle.NumberHoldTTLMax)
	resRepo := reservation.NewMemoryRepository()
	historySvc := history.NewService(history.NewMemoryRepository(), clk)
	notifier := &recordingNotifier{}

	svc := NewService(NewMemoryRepository(), resRepo, coordinator, historySvc, clk, cfg)
	svc.SetNotifier(notifier)

	return &fixture{
		service:     svc,
		coordinator: coordinator,
		resRepo:     resRepo,
		historySvc:  historySvc,
		notifier:    notifier,
		clock:       clk,
		operator:    uuid.New(),
	}
}

func (f *fixture) createActive(t *testing.T, total int, endsAt *time.Time) uuid.UUID {
	t.Helper()

	resp, err := f.service.Create(context.Background(), f.operator, CreateDrawRequest{
		Name:           "Summer Raffle",
		TotalNumbers:   total,
		PricePerNumber: 2.50,
		ActivateNow:    true,
		EndsAt:         endsAt,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return uuid.MustParse(resp.ID)
}

// sell pushes values through hold+confirm and records the sale the way
// the reservation service does after a confirmed purchase.
func (f *fixture) sell(t *testing.T, drawID uuid.UUID, values []int, buyer string) {
	t.Helper()
	ctx := context.Background()

	if _, err := f.coordinator.Hold(ctx, drawID.String(), values, buyer, time.Minute); err != nil {
		t.Fatalf("Hold: %v", err)
	}
	if _, err := f.coordinator.Confirm(ctx, drawID.String(), values, buyer); err != nil {
		t.Fatalf("Confirm: %v", err)
	}

	rows := make([]reservation.SoldNumber, len(values))
	for i, v := range values {
		rows[i] = reservation.SoldNumber{DrawID: drawID, Value: v, SoldTo: buyer, Price: 2.50, SoldAt: f.clock.Now()}
	}
	if err := f.resRepo.RecordSold(ctx, rows); err != nil {
		t.Fatalf("RecordSold: %v", err)
	}
	if err := f.service.RecordSale(ctx, drawID, values); err != nil {
		t.Fatalf("RecordSale: %v", err)
	}
}

func TestCreateAndActivate(t *testing.T) {
	ctx := context.Background()

	t.Run("scheduled then activated", func(t *testing.T) {
		f := newFixture(t)

		created, err := f.service.Create(ctx, f.operator, CreateDrawRequest{
			Name:           "Autumn Raffle",
			TotalNumbers:   50,
			PricePerNumber: 1.00,
		})
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		if created.Status != StatusScheduled {
			t.Fatalf("status = %s, want SCHEDULED", created.Status)
		}

		activated, err := f.service.Activate(ctx, created.ID)
		if err != nil {
			t.Fatalf("Activate: %v", err)
		}
		if activated.Status != StatusActive || activated.StartedAt == nil {
			t.Errorf("activated = %+v, want ACTIVE with StartedAt", activated)
		}

		// Activation registers the number pool
		occ, err := f.coordinator.Occupancy(ctx, created.ID)
		if err != nil {
			t.Fatalf("Occupancy: %v", err)
		}
		if occ.Total != 50 || occ.Free != 50 {
			t.Errorf("occupancy = %+v, want 50 free", occ)
		}
	})

	t.Run("single active draw rule", func(t *testing.T) {
		f := newFixture(t)
		f.createActive(t, 10, nil)

		_, err := f.service.Create(ctx, f.operator, CreateDrawRequest{
			Name:           "Second Raffle",
			TotalNumbers:   10,
			PricePerNumber: 1.00,
			ActivateNow:    true,
		})
		if !errors.Is(err, apperrors.ErrInvalidTransition) {
			t.Errorf("concurrent active create err = %v, want ErrInvalidTransition", err)
		}

		scheduled, err := f.service.Create(ctx, f.operator, CreateDrawRequest{
			Name:           "Queued Raffle",
			TotalNumbers:   10,
			PricePerNumber: 1.00,
		})
		if err != nil {
			t.Fatalf("scheduled Create: %v", err)
		}
		if _, err := f.service.Activate(ctx, scheduled.ID); !errors.Is(err, apperrors.ErrInvalidTransition) {
			t.Errorf("second Activate err = %v, want ErrInvalidTransition", err)
		}
	})

	t.Run("total beyond limit rejected", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.service.Create(ctx, f.operator, CreateDrawRequest{
			Name:           "Oversized",
			TotalNumbers:   1001,
			PricePerNumber: 1.00,
		})
		if err == nil {
			t.Error("expected error for oversized draw")
		}
	})
}

func TestRecordSaleSellout(t *testing.T) {
	f := newFixture(t)
	drawID := f.createActive(t, 3, nil)
	ctx := context.Background()

	f.sell(t, drawID, []int{1, 2}, "alice")

	draw, err := f.service.GetDraw(ctx, drawID.String())
	if err != nil {
		t.Fatalf("GetDraw: %v", err)
	}
	if draw.StatusNote == NoteSoldOut {
		t.Fatal("sold out noted before last number sold")
	}

	f.sell(t, drawID, []int{3}, "bob")

	draw, err = f.service.GetDraw(ctx, drawID.String())
	if err != nil {
		t.Fatalf("GetDraw: %v", err)
	}
	if draw.Status != StatusActive || draw.StatusNote != NoteSoldOut {
		t.Errorf("draw = %+v, want ACTIVE with sold_out note", draw.DrawResponse)
	}

	last := f.notifier.events[len(f.notifier.events)-1]
	if last.eventType != EventDrawSoldOut {
		t.Errorf("last event = %s, want %s", last.eventType, EventDrawSoldOut)
	}
}

func TestSetWinner(t *testing.T) {
	ctx := context.Background()

	t.Run("requires a sold number", func(t *testing.T) {
		f := newFixture(t)
		drawID := f.createActive(t, 10, nil)
		f.sell(t, drawID, []int{4}, "alice")

		if _, err := f.service.SetWinner(ctx, drawID.String(), SetWinnerRequest{WinnerNumber: 5}); !errors.Is(err, apperrors.ErrInvalidTransition) {
			t.Errorf("unsold winner err = %v, want ErrInvalidTransition", err)
		}
		if _, err := f.service.SetWinner(ctx, drawID.String(), SetWinnerRequest{WinnerNumber: 11}); !errors.Is(err, apperrors.ErrNotFound) {
			t.Errorf("out-of-range winner err = %v, want ErrNotFound", err)
		}
	})

	t.Run("finishes the draw and archives it", func(t *testing.T) {
		f := newFixture(t)
		drawID := f.createActive(t, 10, nil)
		f.sell(t, drawID, []int{4, 7}, "alice")
		f.clock.Advance(45 * time.Minute)

		resp, err := f.service.SetWinner(ctx, drawID.String(), SetWinnerRequest{WinnerNumber: 7})
		if err != nil {
			t.Fatalf("SetWinner: %v", err)
		}
		if resp.Status != StatusFinished || resp.WinnerNumber == nil || *resp.WinnerNumber != 7 {
			t.Fatalf("resp = %+v, want FINISHED with winner 7", resp)
		}
		if resp.StatusNote != NoteWinnerSet {
			t.Errorf("status note = %s, want %s", resp.StatusNote, NoteWinnerSet)
		}

		entry, err := f.historySvc.GetDrawHistory(ctx, drawID.String())
		if err != nil {
			t.Fatalf("GetDrawHistory: %v", err)
		}
		if entry.FinalStatus != string(StatusFinished) || entry.SoldCount != 2 {
			t.Errorf("archive = %+v, want FINISHED with 2 participants", entry)
		}
		if entry.WinnerNumber == nil || *entry.WinnerNumber != 7 {
			t.Errorf("archive winner = %v, want 7", entry.WinnerNumber)
		}
		if entry.ActualDuration != 45*time.Minute {
			t.Errorf("duration = %v, want 45m", entry.ActualDuration)
		}

		// Terminal draws reject further transitions
		if _, err := f.service.Cancel(ctx, drawID.String(), CancelDrawRequest{Reason: "too late"}); !errors.Is(err, apperrors.ErrInvalidTransition) {
			t.Errorf("cancel after finish err = %v, want ErrInvalidTransition", err)
		}
		if _, err := f.service.SetWinner(ctx, drawID.String(), SetWinnerRequest{WinnerNumber: 4}); !errors.Is(err, apperrors.ErrInvalidTransition) {
			t.Errorf("second SetWinner err = %v, want ErrInvalidTransition", err)
		}
	})
}

func TestCancel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	scheduled, err := f.service.Create(ctx, f.operator, CreateDrawRequest{
		Name:           "Doomed Raffle",
		TotalNumbers:   10,
		PricePerNumber: 1.00,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	resp, err := f.service.Cancel(ctx, scheduled.ID, CancelDrawRequest{Reason: "low interest"})
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if resp.Status != StatusCancelled {
		t.Fatalf("status = %s, want CANCELLED", resp.Status)
	}

	entry, err := f.historySvc.GetDrawHistory(ctx, scheduled.ID)
	if err != nil {
		t.Fatalf("GetDrawHistory: %v", err)
	}
	if entry.FinalStatus != string(StatusCancelled) || entry.Reason != "low interest" {
		t.Errorf("archive = %+v, want CANCELLED with reason", entry)
	}

	last := f.notifier.events[len(f.notifier.events)-1]
	if last.eventType != EventDrawCancelled {
		t.Errorf("last event = %s, want %s", last.eventType, EventDrawCancelled)
	}
}

func TestExpire(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	deadline := f.clock.Now().Add(time.Hour)
	drawID := f.createActive(t, 10, &deadline)
	f.sell(t, drawID, []int{2}, "alice")

	// Not due yet
	if _, err := f.service.Expire(ctx, drawID.String()); !errors.Is(err, apperrors.ErrInvalidTransition) {
		t.Fatalf("early Expire err = %v, want ErrInvalidTransition", err)
	}

	f.clock.Advance(2 * time.Hour)

	expired, err := f.service.ExpireDueDraws(ctx)
	if err != nil {
		t.Fatalf("ExpireDueDraws: %v", err)
	}
	if expired != 1 {
		t.Fatalf("expired = %d, want 1", expired)
	}

	draw, err := f.service.GetDraw(ctx, drawID.String())
	if err != nil {
		t.Fatalf("GetDraw: %v", err)
	}
	if draw.Status != StatusFinished || draw.StatusNote != NoteNoWinner {
		t.Errorf("draw = %+v, want FINISHED with no_winner", draw.DrawResponse)
	}
	if draw.WinnerNumber != nil {
		t.Errorf("winner = %v, want none", draw.WinnerNumber)
	}

	// Idempotent for the job loop
	expired, err = f.service.ExpireDueDraws(ctx)
	if err != nil || expired != 0 {
		t.Errorf("second pass = (%d, %v), want (0, nil)", expired, err)
	}
}
