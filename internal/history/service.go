package history

import (
	"context"
	"fmt"

	"sorteo/internal/shared/clock"
	"sorteo/internal/shared/constants"
	"sorteo/pkg/cache"
	"sorteo/pkg/logger"

	"github.com/google/uuid"
)

type Service interface {
	// ArchiveDraw appends the terminal snapshot of a draw. Used by the
	// draw state machine on finish and cancel.
	ArchiveDraw(ctx context.Context, entry ArchiveEntry) error
	ListHistory(ctx context.Context, limit, offset int) (*HistoryListResponse, error)
	GetDrawHistory(ctx context.Context, drawID string) (*ArchiveEntry, error)
}

type service struct {
	repo  Repository
	clock clock.Clock
	cache cache.Service
}

func NewService(repo Repository, clk clock.Clock) *service {
	return &service{repo: repo, clock: clk}
}

func (s *service) SetCacheService(cacheService cache.Service) {
	s.cache = cacheService
}

func (s *service) ArchiveDraw(ctx context.Context, entry ArchiveEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	entry.CreatedAt = s.clock.Now()

	if err := s.repo.Append(ctx, &entry); err != nil {
		return fmt.Errorf("failed to append archive entry: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.DeletePattern(ctx, constants.CACHE_KEY_HISTORY_LIST+"*"); err != nil {
			logger.GetDefault().WithError(err).Warn("failed to invalidate history cache")
		}
	}

	logger.GetDefault().InfoWithContext(ctx, "Draw Archived", map[string]interface{}{
		"draw_id":      entry.DrawID.String(),
		"final_status": entry.FinalStatus,
		"sold_count":   entry.SoldCount,
	})
	return nil
}

func (s *service) ListHistory(ctx context.Context, limit, offset int) (*HistoryListResponse, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	build := func() (*HistoryListResponse, error) {
		entries, total, err := s.repo.List(ctx, limit, offset)
		if err != nil {
			return nil, err
		}
		return newHistoryListResponse(entries, total, limit, offset), nil
	}

	if s.cache == nil {
		return build()
	}

	cacheKey := fmt.Sprintf("%s:%d:%d", constants.CACHE_KEY_HISTORY_LIST, limit, offset)
	var resp HistoryListResponse
	err := s.cache.GetOrSet(ctx, cacheKey, constants.TTL_HISTORY_LIST, func() (interface{}, error) {
		return build()
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (s *service) GetDrawHistory(ctx context.Context, drawID string) (*ArchiveEntry, error) {
	id, err := uuid.Parse(drawID)
	if err != nil {
		return nil, fmt.Errorf("invalid draw ID: %w", err)
	}
	return s.repo.GetByDrawID(ctx, id)
}
