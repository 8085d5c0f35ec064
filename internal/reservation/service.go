package reservation

import (
	"context"
	"fmt"
	"time"

	"sorteo/internal/shared/config"
	"sorteo/internal/shared/constants"
	"sorteo/pkg/cache"
	"sorteo/pkg/logger"

	"github.com/google/uuid"
)

// DrawService is the slice of the draw state machine the purchase flow
// needs (implemented by the draws package, wired in the router - keeps the
// packages from importing each other).
type DrawService interface {
	PricePerNumber(ctx context.Context, drawID uuid.UUID) (float64, error)
	RecordSale(ctx context.Context, drawID uuid.UUID, values []int) error
}

type Service interface {
	// Number Holding (Core Flow)
	HoldNumbers(ctx context.Context, req HoldRequest) (*HoldResponse, error)
	ConfirmNumbers(ctx context.Context, req ConfirmRequest) (*ConfirmResponse, error)
	ReleaseNumbers(ctx context.Context, req ReleaseRequest) error

	// Availability
	GetOccupancy(ctx context.Context, drawID string) (*Occupancy, error)
	ListParticipants(ctx context.Context, drawID string) ([]ParticipantInfo, error)

	// Maintenance
	SweepExpired(ctx context.Context, drawID string) (int, error)
}

type service struct {
	coordinator  Coordinator
	repo         Repository
	config       *config.Config
	cacheService cache.Service
	drawService  DrawService
}

func NewService(coordinator Coordinator, repo Repository, cfg *config.Config) *service {
	return &service{
		coordinator: coordinator,
		repo:        repo,
		config:      cfg,
	}
}

func (s *service) SetCacheService(cacheService cache.Service) {
	s.cacheService = cacheService
}

func (s *service) SetDrawService(drawService DrawService) {
	s.drawService = drawService
}

//  NUMBER HOLDING (CORE FLOW)

func (s *service) HoldNumbers(ctx context.Context, req HoldRequest) (*HoldResponse, error) {
	ttl := s.config.Raffle.NumberHoldTTL
	if req.TTLSeconds > 0 {
		ttl = time.Duration(req.TTLSeconds) * time.Second
	}
	if ttl > s.config.Raffle.NumberHoldTTLMax {
		ttl = s.config.Raffle.NumberHoldTTLMax
	}

	result, err := s.coordinator.Hold(ctx, req.DrawID, req.Values, req.HolderRef, ttl)
	if err != nil {
		return nil, fmt.Errorf("failed to hold numbers: %w", err)
	}

	logger.GetDefault().LogHoldGranted(ctx, req.DrawID, req.HolderRef, len(result.Granted), len(result.Denied))
	s.invalidateOccupancy(ctx, req.DrawID)

	return &HoldResponse{
		DrawID:    req.DrawID,
		HolderRef: req.HolderRef,
		Granted:   result.Granted,
		Denied:    result.Denied,
		ExpiresAt: result.ExpiresAt,
		TTL:       int(ttl.Seconds()),
	}, nil
}

func (s *service) ConfirmNumbers(ctx context.Context, req ConfirmRequest) (*ConfirmResponse, error) {
	drawUUID, err := uuid.Parse(req.DrawID)
	if err != nil {
		return nil, fmt.Errorf("invalid draw ID: %w", err)
	}

	result, err := s.coordinator.Confirm(ctx, req.DrawID, req.Values, req.HolderRef)
	if err != nil {
		if result != nil {
			return &ConfirmResponse{
				DrawID:    req.DrawID,
				HolderRef: req.HolderRef,
				Failed:    result.Failed,
			}, err
		}
		return nil, err
	}

	price, err := s.pricePerNumber(ctx, drawUUID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve number price: %w", err)
	}

	soldAt := time.Now().UTC()
	rows := make([]SoldNumber, 0, len(result.Confirmed))
	for _, value := range result.Confirmed {
		rows = append(rows, SoldNumber{
			DrawID: drawUUID,
			Value:  value,
			SoldTo: req.HolderRef,
			Price:  price,
			SoldAt: soldAt,
		})
	}
	if err := s.repo.RecordSold(ctx, rows); err != nil {
		return nil, fmt.Errorf("failed to persist sale: %w", err)
	}

	logger.GetDefault().LogNumbersSold(ctx, req.DrawID, req.HolderRef, len(result.Confirmed))
	s.invalidateOccupancy(ctx, req.DrawID)
	s.invalidateParticipants(ctx, req.DrawID)

	// Sellout detection runs in the draw state machine
	if s.drawService != nil {
		if err := s.drawService.RecordSale(ctx, drawUUID, result.Confirmed); err != nil {
			logger.GetDefault().ErrorWithContext(ctx, "failed to record sale on draw", err,
				map[string]interface{}{"draw_id": req.DrawID})
		}
	}

	return &ConfirmResponse{
		DrawID:     req.DrawID,
		HolderRef:  req.HolderRef,
		Confirmed:  result.Confirmed,
		TotalPrice: price * float64(len(result.Confirmed)),
	}, nil
}

func (s *service) ReleaseNumbers(ctx context.Context, req ReleaseRequest) error {
	if err := s.coordinator.Release(ctx, req.DrawID, req.Values, req.HolderRef); err != nil {
		return fmt.Errorf("failed to release numbers: %w", err)
	}
	s.invalidateOccupancy(ctx, req.DrawID)
	return nil
}

//  AVAILABILITY

func (s *service) GetOccupancy(ctx context.Context, drawID string) (*Occupancy, error) {
	cacheKey := constants.BuildOccupancyKey(drawID)
	if s.cacheService != nil {
		var cached Occupancy
		if err := s.cacheService.Get(ctx, cacheKey, &cached); err == nil {
			return &cached, nil
		}
	}

	occ, err := s.coordinator.Occupancy(ctx, drawID)
	if err != nil {
		return nil, err
	}

	if s.cacheService != nil {
		if err := s.cacheService.Set(ctx, cacheKey, occ, constants.TTL_OCCUPANCY); err != nil {
			logger.GetDefault().Debug("failed to cache occupancy", "draw_id", drawID, "error", err)
		}
	}
	return occ, nil
}

func (s *service) ListParticipants(ctx context.Context, drawID string) ([]ParticipantInfo, error) {
	drawUUID, err := uuid.Parse(drawID)
	if err != nil {
		return nil, fmt.Errorf("invalid draw ID: %w", err)
	}

	cacheKey := constants.BuildParticipantsKey(drawID)
	if s.cacheService != nil {
		var cached []ParticipantInfo
		if err := s.cacheService.Get(ctx, cacheKey, &cached); err == nil {
			return cached, nil
		}
	}

	rows, err := s.repo.ListSoldByDraw(ctx, drawUUID)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}

	participants := make([]ParticipantInfo, 0, len(rows))
	for _, row := range rows {
		participants = append(participants, ParticipantInfo{
			Value:  row.Value,
			SoldTo: row.SoldTo,
			Price:  row.Price,
			SoldAt: row.SoldAt,
		})
	}

	if s.cacheService != nil {
		if err := s.cacheService.Set(ctx, cacheKey, participants, constants.TTL_PARTICIPANTS); err != nil {
			logger.GetDefault().Debug("failed to cache participants", "draw_id", drawID, "error", err)
		}
	}
	return participants, nil
}

//  MAINTENANCE

func (s *service) SweepExpired(ctx context.Context, drawID string) (int, error) {
	released, err := s.coordinator.SweepExpired(ctx, drawID)
	if err != nil {
		return 0, err
	}
	if released > 0 {
		logger.GetDefault().LogSweep(ctx, drawID, released)
		s.invalidateOccupancy(ctx, drawID)
	}
	return released, nil
}

func (s *service) pricePerNumber(ctx context.Context, drawID uuid.UUID) (float64, error) {
	if s.drawService == nil {
		return 0, nil
	}
	return s.drawService.PricePerNumber(ctx, drawID)
}

func (s *service) invalidateOccupancy(ctx context.Context, drawID string) {
	if s.cacheService == nil {
		return
	}
	if err := s.cacheService.Delete(ctx, constants.BuildOccupancyKey(drawID)); err != nil {
		logger.GetDefault().Debug("failed to invalidate occupancy cache", "draw_id", drawID, "error", err)
	}
}

func (s *service) invalidateParticipants(ctx context.Context, drawID string) {
	if s.cacheService == nil {
		return
	}
	if err := s.cacheService.Delete(ctx, constants.BuildParticipantsKey(drawID)); err != nil {
		logger.GetDefault().Debug("failed to invalidate participants cache", "draw_id", drawID, "error", err)
	}
}
