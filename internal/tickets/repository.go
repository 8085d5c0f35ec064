package tickets

import (
	"context"
	"errors"
	"sync"
	"time"

	"sorteo/internal/shared/apperrors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Repository interface {
	Issue(ctx context.Context, tickets []InstantTicket) error
	GetByID(ctx context.Context, id uuid.UUID) (*InstantTicket, error)
	ListByHolder(ctx context.Context, holderRef string) ([]InstantTicket, error)
	// MarkScratched flips is_scratched exactly once; it returns
	// ErrConflict when the ticket was already scratched.
	MarkScratched(ctx context.Context, id uuid.UUID, at time.Time) error
	// MarkClaimed flips is_claimed exactly once, and only for scratched
	// winners; it returns ErrConflict when the guard fails.
	MarkClaimed(ctx context.Context, id uuid.UUID, at time.Time) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Issue(ctx context.Context, tickets []InstantTicket) error {
	if len(tickets) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&tickets).Error
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*InstantTicket, error) {
	var ticket InstantTicket
	err := r.db.WithContext(ctx).First(&ticket, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &ticket, nil
}

func (r *repository) ListByHolder(ctx context.Context, holderRef string) ([]InstantTicket, error) {
	var rows []InstantTicket
	err := r.db.WithContext(ctx).
		Where("holder_ref = ?", holderRef).
		Order("created_at DESC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) MarkScratched(ctx context.Context, id uuid.UUID, at time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&InstantTicket{}).
		Where("id = ? AND is_scratched = ?", id, false).
		Updates(map[string]interface{}{
			"is_scratched": true,
			"scratched_at": at,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrConflict
	}
	return nil
}

func (r *repository) MarkClaimed(ctx context.Context, id uuid.UUID, at time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&InstantTicket{}).
		Where("id = ? AND is_winner = ? AND is_scratched = ? AND is_claimed = ?", id, true, true, false).
		Updates(map[string]interface{}{
			"is_claimed": true,
			"claimed_at": at,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrConflict
	}
	return nil
}

// memoryRepository backs the service in tests and Redis-less runs.
type memoryRepository struct {
	mu      sync.Mutex
	tickets map[uuid.UUID]*InstantTicket
}

func NewMemoryRepository() Repository {
	return &memoryRepository{
		tickets: make(map[uuid.UUID]*InstantTicket),
	}
}

func (r *memoryRepository) Issue(ctx context.Context, tickets []InstantTicket) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range tickets {
		t := tickets[i]
		r.tickets[t.ID] = &t
	}
	return nil
}

func (r *memoryRepository) GetByID(ctx context.Context, id uuid.UUID) (*InstantTicket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ticket, exists := r.tickets[id]
	if !exists {
		return nil, apperrors.ErrNotFound
	}
	clone := *ticket
	return &clone, nil
}

func (r *memoryRepository) ListByHolder(ctx context.Context, holderRef string) ([]InstantTicket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var rows []InstantTicket
	for _, ticket := range r.tickets {
		if ticket.HolderRef == holderRef {
			rows = append(rows, *ticket)
		}
	}
	return rows, nil
}

func (r *memoryRepository) MarkScratched(ctx context.Context, id uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ticket, exists := r.tickets[id]
	if !exists {
		return apperrors.ErrNotFound
	}
	if ticket.IsScratched {
		return apperrors.ErrConflict
	}
	ticket.IsScratched = true
	ticket.ScratchedAt = &at
	return nil
}

func (r *memoryRepository) MarkClaimed(ctx context.Context, id uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ticket, exists := r.tickets[id]
	if !exists {
		return apperrors.ErrNotFound
	}
	if !ticket.IsWinner || !ticket.IsScratched || ticket.IsClaimed {
		return apperrors.ErrConflict
	}
	ticket.IsClaimed = true
	ticket.ClaimedAt = &at
	return nil
}
