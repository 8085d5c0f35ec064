package history

import (
	"context"
	"errors"
	"testing"
	"time"

	"sorteo/internal/shared/apperrors"
	"sorteo/internal/shared/clock"

	"github.com/google/uuid"
)

func newTestService(t *testing.T) (*service, *clock.Fake) {
	t.Helper()
	clk := clock.NewFake(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	return NewService(NewMemoryRepository(), clk), clk
}

func archived(drawID uuid.UUID, name string, endedAt time.Time) ArchiveEntry {
	winner := 4
	return ArchiveEntry{
		DrawID:       drawID,
		Name:         name,
		FinalStatus:  "FINISHED",
		TotalNumbers: 10,
		SoldCount:    6,
		WinnerNumber: &winner,
		Participants: []Participant{{Value: 4, SoldTo: "alice", Price: 2.50}},
		StartedAt:    endedAt.Add(-time.Hour),
		EndedAt:      endedAt,
	}
}

func TestArchiveDraw(t *testing.T) {
	svc, clk := newTestService(t)
	ctx := context.Background()
	drawID := uuid.New()

	if err := svc.ArchiveDraw(ctx, archived(drawID, "Summer Raffle", clk.Now())); err != nil {
		t.Fatalf("ArchiveDraw: %v", err)
	}

	entry, err := svc.GetDrawHistory(ctx, drawID.String())
	if err != nil {
		t.Fatalf("GetDrawHistory: %v", err)
	}
	if entry.Name != "Summer Raffle" || entry.SoldCount != 6 {
		t.Errorf("entry = %+v", entry)
	}
	if len(entry.Participants) != 1 || entry.Participants[0].SoldTo != "alice" {
		t.Errorf("participants = %+v", entry.Participants)
	}

	// Append-only: a second entry for the same draw is rejected
	if err := svc.ArchiveDraw(ctx, archived(drawID, "Summer Raffle", clk.Now())); !errors.Is(err, apperrors.ErrConflict) {
		t.Errorf("duplicate archive err = %v, want ErrConflict", err)
	}
}

func TestListHistory(t *testing.T) {
	svc, clk := newTestService(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		entry := archived(uuid.New(), "Raffle", clk.Now().Add(time.Duration(i)*time.Hour))
		if err := svc.ArchiveDraw(ctx, entry); err != nil {
			t.Fatalf("ArchiveDraw: %v", err)
		}
	}

	list, err := svc.ListHistory(ctx, 3, 0)
	if err != nil {
		t.Fatalf("ListHistory: %v", err)
	}
	if list.Total != 5 || len(list.Entries) != 3 || !list.HasMore {
		t.Fatalf("list = total=%d len=%d hasMore=%v, want 5/3/true", list.Total, len(list.Entries), list.HasMore)
	}

	// Newest first
	for i := 1; i < len(list.Entries); i++ {
		if list.Entries[i].EndedAt.After(list.Entries[i-1].EndedAt) {
			t.Errorf("entries not sorted newest first")
		}
	}

	rest, err := svc.ListHistory(ctx, 3, 3)
	if err != nil {
		t.Fatalf("ListHistory offset: %v", err)
	}
	if len(rest.Entries) != 2 || rest.HasMore {
		t.Errorf("tail = len=%d hasMore=%v, want 2/false", len(rest.Entries), rest.HasMore)
	}
}

func TestGetDrawHistoryNotFound(t *testing.T) {
	svc, _ := newTestService(t)

	if _, err := svc.GetDrawHistory(context.Background(), uuid.New().String()); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}
