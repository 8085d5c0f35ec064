package history

import (
	"context"
	"errors"
	"sort"
	"sync"

	"sorteo/internal/shared/apperrors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Repository interface {
	Append(ctx context.Context, entry *ArchiveEntry) error
	List(ctx context.Context, limit, offset int) ([]ArchiveEntry, int64, error)
	GetByDrawID(ctx context.Context, drawID uuid.UUID) (*ArchiveEntry, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Append(ctx context.Context, entry *ArchiveEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) List(ctx context.Context, limit, offset int) ([]ArchiveEntry, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&ArchiveEntry{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var entries []ArchiveEntry
	err := r.db.WithContext(ctx).
		Order("ended_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&entries).Error
	return entries, total, err
}

func (r *repository) GetByDrawID(ctx context.Context, drawID uuid.UUID) (*ArchiveEntry, error) {
	var entry ArchiveEntry
	err := r.db.WithContext(ctx).First(&entry, "draw_id = ?", drawID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &entry, nil
}

// memoryRepository backs the archive in tests.
type memoryRepository struct {
	mu      sync.RWMutex
	entries []ArchiveEntry
}

func NewMemoryRepository() Repository {
	return &memoryRepository{}
}

func (r *memoryRepository) Append(ctx context.Context, entry *ArchiveEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.entries {
		if existing.DrawID == entry.DrawID {
			return apperrors.ErrConflict
		}
	}
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *memoryRepository) List(ctx context.Context, limit, offset int) ([]ArchiveEntry, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sorted := make([]ArchiveEntry, len(r.entries))
	copy(sorted, r.entries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].EndedAt.After(sorted[j].EndedAt) })

	total := int64(len(sorted))
	if offset >= len(sorted) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(sorted) {
		end = len(sorted)
	}
	return sorted[offset:end], total, nil
}

func (r *memoryRepository) GetByDrawID(ctx context.Context, drawID uuid.UUID) (*ArchiveEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, entry := range r.entries {
		if entry.DrawID == drawID {
			clone := entry
			return &clone, nil
		}
	}
	return nil, apperrors.ErrNotFound
}
