package draws

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"sorteo/internal/shared/apperrors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, draw *Draw) error
	GetByID(ctx context.Context, id uuid.UUID) (*Draw, error)
	GetActive(ctx context.Context) (*Draw, error)
	ListDueForExpiry(ctx context.Context, now time.Time) ([]Draw, error)

	// UpdateStatus moves a draw from one status to another with a
	// compare-and-swap on the current status; a concurrent transition that
	// got there first surfaces as ErrConflict.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status, updates map[string]interface{}) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, draw *Draw) error {
	return r.db.WithContext(ctx).Create(draw).Error
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Draw, error) {
	var draw Draw
	err := r.db.WithContext(ctx).First(&draw, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("draw %s: %w", id, apperrors.ErrNotFound)
		}
		return nil, err
	}
	return &draw, nil
}

func (r *repository) GetActive(ctx context.Context) (*Draw, error) {
	var draw Draw
	err := r.db.WithContext(ctx).First(&draw, "status = ?", StatusActive).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("no active draw: %w", apperrors.ErrNotFound)
		}
		return nil, err
	}
	return &draw, nil
}

func (r *repository) ListDueForExpiry(ctx context.Context, now time.Time) ([]Draw, error) {
	var due []Draw
	err := r.db.WithContext(ctx).
		Where("status = ? AND ends_at IS NOT NULL AND ends_at <= ?", StatusActive, now).
		Find(&due).Error
	return due, err
}

func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status, updates map[string]interface{}) error {
	if updates == nil {
		updates = make(map[string]interface{})
	}
	updates["status"] = to

	result := r.db.WithContext(ctx).
		Model(&Draw{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		// Either the draw is gone or a concurrent transition won
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return fmt.Errorf("draw %s no longer %s: %w", id, from, apperrors.ErrConflict)
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&Draw{}, "id = ?", id).Error
}

// memoryRepository keeps draws in process memory for tests.
type memoryRepository struct {
	mu    sync.RWMutex
	draws map[uuid.UUID]*Draw
}

func NewMemoryRepository() Repository {
	return &memoryRepository{
		draws: make(map[uuid.UUID]*Draw),
	}
}

func (r *memoryRepository) Create(ctx context.Context, draw *Draw) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if draw.ID == uuid.Nil {
		draw.ID = uuid.New()
	}
	draw.CreatedAt = time.Now().UTC()
	draw.UpdatedAt = draw.CreatedAt
	clone := *draw
	r.draws[draw.ID] = &clone
	return nil
}

func (r *memoryRepository) GetByID(ctx context.Context, id uuid.UUID) (*Draw, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	draw, exists := r.draws[id]
	if !exists {
		return nil, fmt.Errorf("draw %s: %w", id, apperrors.ErrNotFound)
	}
	clone := *draw
	return &clone, nil
}

func (r *memoryRepository) GetActive(ctx context.Context) (*Draw, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, draw := range r.draws {
		if draw.Status == StatusActive {
			clone := *draw
			return &clone, nil
		}
	}
	return nil, fmt.Errorf("no active draw: %w", apperrors.ErrNotFound)
}

func (r *memoryRepository) ListDueForExpiry(ctx context.Context, now time.Time) ([]Draw, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var due []Draw
	for _, draw := range r.draws {
		if draw.Status == StatusActive && draw.EndsAt != nil && !draw.EndsAt.After(now) {
			due = append(due, *draw)
		}
	}
	return due, nil
}

func (r *memoryRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status, updates map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	draw, exists := r.draws[id]
	if !exists {
		return fmt.Errorf("draw %s: %w", id, apperrors.ErrNotFound)
	}
	if draw.Status != from {
		return fmt.Errorf("draw %s no longer %s: %w", id, from, apperrors.ErrConflict)
	}

	draw.Status = to
	draw.UpdatedAt = time.Now().UTC()
	for key, value := range updates {
		switch key {
		case "status_note":
			draw.StatusNote = value.(string)
		case "winner_number":
			n := value.(int)
			draw.WinnerNumber = &n
		case "cancel_reason":
			draw.CancelReason = value.(string)
		case "started_at":
			t := value.(time.Time)
			draw.StartedAt = &t
		}
	}
	return nil
}

func (r *memoryRepository) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.draws, id)
	return nil
}
