package reservation

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository persists confirmed sales. Live hold state never touches the
// database; only the coordinator owns it.
type Repository interface {
	RecordSold(ctx context.Context, rows []SoldNumber) error
	ListSoldByDraw(ctx context.Context, drawID uuid.UUID) ([]SoldNumber, error)
	CountSoldByDraw(ctx context.Context, drawID uuid.UUID) (int64, error)
	IsSold(ctx context.Context, drawID uuid.UUID, value int) (bool, error)
	DeleteByDraw(ctx context.Context, drawID uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) RecordSold(ctx context.Context, rows []SoldNumber) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&rows).Error
}

func (r *repository) ListSoldByDraw(ctx context.Context, drawID uuid.UUID) ([]SoldNumber, error) {
	var rows []SoldNumber
	err := r.db.WithContext(ctx).
		Where("draw_id = ?", drawID).
		Order("value ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) CountSoldByDraw(ctx context.Context, drawID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&SoldNumber{}).
		Where("draw_id = ?", drawID).
		Count(&count).Error
	return count, err
}

func (r *repository) IsSold(ctx context.Context, drawID uuid.UUID, value int) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&SoldNumber{}).
		Where("draw_id = ? AND value = ?", drawID, value).
		Count(&count).Error
	return count > 0, err
}

func (r *repository) DeleteByDraw(ctx context.Context, drawID uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&SoldNumber{}, "draw_id = ?", drawID).Error
}

// memoryRepository keeps sold rows in process memory for tests and
// Redis-less single-node runs.
type memoryRepository struct {
	mu   sync.RWMutex
	rows map[uuid.UUID][]SoldNumber
}

func NewMemoryRepository() Repository {
	return &memoryRepository{
		rows: make(map[uuid.UUID][]SoldNumber),
	}
}

func (r *memoryRepository) RecordSold(ctx context.Context, rows []SoldNumber) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, row := range rows {
		if row.ID == uuid.Nil {
			row.ID = uuid.New()
		}
		r.rows[row.DrawID] = append(r.rows[row.DrawID], row)
	}
	return nil
}

func (r *memoryRepository) ListSoldByDraw(ctx context.Context, drawID uuid.UUID) ([]SoldNumber, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rows := make([]SoldNumber, len(r.rows[drawID]))
	copy(rows, r.rows[drawID])
	sort.Slice(rows, func(i, j int) bool { return rows[i].Value < rows[j].Value })
	return rows, nil
}

func (r *memoryRepository) CountSoldByDraw(ctx context.Context, drawID uuid.UUID) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.rows[drawID])), nil
}

func (r *memoryRepository) IsSold(ctx context.Context, drawID uuid.UUID, value int) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, row := range r.rows[drawID] {
		if row.Value == value {
			return true, nil
		}
	}
	return false, nil
}

func (r *memoryRepository) DeleteByDraw(ctx context.Context, drawID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rows, drawID)
	return nil
}
