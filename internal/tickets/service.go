package tickets

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	"sorteo/internal/shared/apperrors"
	"sorteo/internal/shared/clock"
	"sorteo/pkg/logger"

	"github.com/google/uuid"
)

// Notifier publishes ticket payout events (implemented by the
// notifications package, wired in the router). Best-effort: a claim never
// fails because the event did not go out.
type Notifier interface {
	NotifyTicketClaimed(ctx context.Context, ticket *InstantTicket)
}

type Service interface {
	IssueBatch(ctx context.Context, req IssueBatchRequest) ([]TicketResponse, error)
	Scratch(ctx context.Context, ticketID, holderRef string) (*ScratchResponse, error)
	Claim(ctx context.Context, ticketID, holderRef string) (*ClaimResponse, error)
	ListByHolder(ctx context.Context, holderRef string) ([]TicketResponse, error)
}

type service struct {
	repo     Repository
	clock    clock.Clock
	notifier Notifier
}

func NewService(repo Repository, clk clock.Clock) *service {
	return &service{repo: repo, clock: clk}
}

func (s *service) SetNotifier(notifier Notifier) {
	s.notifier = notifier
}

// IssueBatch fixes outcomes up front: WinnerCount tickets of the batch
// win PrizeAmount, the rest lose. Positions are shuffled so ticket order
// reveals nothing.
func (s *service) IssueBatch(ctx context.Context, req IssueBatchRequest) ([]TicketResponse, error) {
	drawID, err := uuid.Parse(req.DrawID)
	if err != nil {
		return nil, fmt.Errorf("invalid draw ID: %w", err)
	}
	if req.WinnerCount > req.Count {
		return nil, fmt.Errorf("winner count %d exceeds batch size %d", req.WinnerCount, req.Count)
	}

	winners := make([]bool, req.Count)
	for i := 0; i < req.WinnerCount; i++ {
		winners[i] = true
	}
	rand.Shuffle(req.Count, func(i, j int) {
		winners[i], winners[j] = winners[j], winners[i]
	})

	batch := make([]InstantTicket, req.Count)
	now := s.clock.Now()
	for i := range batch {
		batch[i] = InstantTicket{
			ID:        uuid.New(),
			DrawID:    drawID,
			HolderRef: req.HolderRef,
			IsWinner:  winners[i],
			CreatedAt: now,
			UpdatedAt: now,
		}
		if winners[i] {
			batch[i].PrizeAmount = req.PrizeAmount
		}
	}

	if err := s.repo.Issue(ctx, batch); err != nil {
		return nil, fmt.Errorf("failed to issue tickets: %w", err)
	}

	logger.GetDefault().InfoWithContext(ctx, "Instant Tickets Issued", map[string]interface{}{
		"draw_id": req.DrawID,
		"count":   req.Count,
		"winners": req.WinnerCount,
	})

	responses := make([]TicketResponse, len(batch))
	for i := range batch {
		responses[i] = toTicketResponse(&batch[i])
	}
	return responses, nil
}

// Scratch reveals the outcome of a ticket. The first scratch flips the
// flag; every later scratch returns the identical outcome with
// already_scratched set, never an error.
func (s *service) Scratch(ctx context.Context, ticketID, holderRef string) (*ScratchResponse, error) {
	id, err := uuid.Parse(ticketID)
	if err != nil {
		return nil, fmt.Errorf("invalid ticket ID: %w", err)
	}

	ticket, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if ticket.HolderRef != holderRef {
		return nil, fmt.Errorf("ticket belongs to another holder: %w", apperrors.ErrDenied)
	}

	alreadyScratched := ticket.IsScratched
	if !alreadyScratched {
		err := s.repo.MarkScratched(ctx, id, s.clock.Now())
		if errors.Is(err, apperrors.ErrConflict) {
			// Lost the race to a concurrent scratch of the same ticket;
			// the outcome is identical either way
			alreadyScratched = true
		} else if err != nil {
			return nil, err
		}
		ticket, err = s.repo.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
	}

	return &ScratchResponse{
		TicketID:         ticketID,
		AlreadyScratched: alreadyScratched,
		IsWinner:         ticket.IsWinner,
		PrizeAmount:      ticket.PrizeAmount,
		ScratchedAt:      ticket.ScratchedAt,
	}, nil
}

// Claim pays out a scratched winning ticket exactly once. Losing
// tickets, unscratched tickets and repeat claims are all rejected.
func (s *service) Claim(ctx context.Context, ticketID, holderRef string) (*ClaimResponse, error) {
	id, err := uuid.Parse(ticketID)
	if err != nil {
		return nil, fmt.Errorf("invalid ticket ID: %w", err)
	}

	ticket, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if ticket.HolderRef != holderRef {
		return nil, fmt.Errorf("ticket belongs to another holder: %w", apperrors.ErrDenied)
	}
	if !ticket.IsScratched {
		return nil, fmt.Errorf("ticket must be scratched before claiming: %w", apperrors.ErrConflict)
	}
	if !ticket.IsWinner {
		return nil, fmt.Errorf("ticket is not a winner: %w", apperrors.ErrDenied)
	}
	if ticket.IsClaimed {
		return nil, fmt.Errorf("prize already claimed: %w", apperrors.ErrConflict)
	}

	// Conditional update is the real gate; the checks above only shape
	// the error message
	if err := s.repo.MarkClaimed(ctx, id, s.clock.Now()); err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			return nil, fmt.Errorf("prize already claimed: %w", apperrors.ErrConflict)
		}
		return nil, err
	}

	ticket, err = s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	logger.GetDefault().InfoWithContext(ctx, "Instant Prize Claimed", map[string]interface{}{
		"ticket_id": ticketID,
		"amount":    ticket.PrizeAmount,
	})

	if s.notifier != nil {
		s.notifier.NotifyTicketClaimed(ctx, ticket)
	}

	return &ClaimResponse{
		TicketID:    ticketID,
		PrizeAmount: ticket.PrizeAmount,
		ClaimedAt:   ticket.ClaimedAt,
	}, nil
}

func (s *service) ListByHolder(ctx context.Context, holderRef string) ([]TicketResponse, error) {
	rows, err := s.repo.ListByHolder(ctx, holderRef)
	if err != nil {
		return nil, err
	}

	responses := make([]TicketResponse, len(rows))
	for i := range rows {
		responses[i] = toTicketResponse(&rows[i])
	}
	return responses, nil
}
