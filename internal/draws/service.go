package draws

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"sorteo/internal/history"
	"sorteo/internal/reservation"
	"sorteo/internal/shared/apperrors"
	"sorteo/internal/shared/clock"
	"sorteo/internal/shared/config"
	"sorteo/internal/shared/constants"
	"sorteo/pkg/cache"
	"sorteo/pkg/logger"

	"github.com/google/uuid"
)

// Draw lifecycle event types published to the notifier
const (
	EventDrawActivated = "draw.activated"
	EventDrawSoldOut   = "draw.sold_out"
	EventDrawFinished  = "draw.finished"
	EventDrawCancelled = "draw.cancelled"
)

// Notifier publishes lifecycle events (implemented by the notifications
// package, wired in the router). Publishing is best-effort; the state
// machine never fails a transition because an event did not go out.
type Notifier interface {
	NotifyDrawEvent(ctx context.Context, eventType string, draw *Draw)
}

// Archiver records finished and cancelled draws (implemented by the
// history package).
type Archiver interface {
	ArchiveDraw(ctx context.Context, entry history.ArchiveEntry) error
}

// Service owns every Draw.status transition. It reads number aggregates
// through the reservation coordinator but never mutates numbers directly.
type Service interface {
	Create(ctx context.Context, createdBy uuid.UUID, req CreateDrawRequest) (*DrawResponse, error)
	Activate(ctx context.Context, drawID string) (*DrawResponse, error)
	GetDraw(ctx context.Context, drawID string) (*DrawDetailResponse, error)
	GetActiveDraw(ctx context.Context) (*DrawDetailResponse, error)

	// Purchase-flow callbacks (reservation.DrawService)
	RecordSale(ctx context.Context, drawID uuid.UUID, values []int) error
	PricePerNumber(ctx context.Context, drawID uuid.UUID) (float64, error)

	// Terminal transitions
	SetWinner(ctx context.Context, drawID string, req SetWinnerRequest) (*DrawResponse, error)
	Cancel(ctx context.Context, drawID string, req CancelDrawRequest) (*DrawResponse, error)
	Expire(ctx context.Context, drawID string) (*DrawResponse, error)

	// Background job entry points
	ExpireDueDraws(ctx context.Context) (int, error)
	SweepActiveDraw(ctx context.Context) (int, error)
}

type service struct {
	repo         Repository
	resRepo      reservation.Repository
	coordinator  reservation.Coordinator
	archiver     Archiver
	notifier     Notifier
	clock        clock.Clock
	config       *config.Config
	cacheService cache.Service

	// createMu serializes Create/Activate so the single-active-draw rule
	// holds under concurrent operator requests
	createMu sync.Mutex

	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func NewService(repo Repository, resRepo reservation.Repository, coordinator reservation.Coordinator, archiver Archiver, clk clock.Clock, cfg *config.Config) *service {
	return &service{
		repo:        repo,
		resRepo:     resRepo,
		coordinator: coordinator,
		archiver:    archiver,
		clock:       clk,
		config:      cfg,
		locks:       make(map[uuid.UUID]*sync.Mutex),
	}
}

func (s *service) SetNotifier(notifier Notifier) {
	s.notifier = notifier
}

func (s *service) SetCacheService(cacheService cache.Service) {
	s.cacheService = cacheService
}

// drawLock serializes transitions of one draw, so racing SetWinner and
// Cancel resolve to exactly one winner and one InvalidTransition.
func (s *service) drawLock(id uuid.UUID) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, exists := s.locks[id]
	if !exists {
		lock = &sync.Mutex{}
		s.locks[id] = lock
	}
	return lock
}

//  LIFECYCLE

func (s *service) Create(ctx context.Context, createdBy uuid.UUID, req CreateDrawRequest) (*DrawResponse, error) {
	if req.TotalNumbers > s.config.Raffle.MaxNumbersPerDraw {
		return nil, fmt.Errorf("total numbers %d exceeds limit %d", req.TotalNumbers, s.config.Raffle.MaxNumbersPerDraw)
	}
	if req.EndsAt != nil && !req.EndsAt.After(s.clock.Now()) {
		return nil, fmt.Errorf("ends_at must be in the future")
	}

	s.createMu.Lock()
	defer s.createMu.Unlock()

	if req.ActivateNow {
		if _, err := s.repo.GetActive(ctx); err == nil {
			return nil, fmt.Errorf("another draw is already active: %w", apperrors.ErrInvalidTransition)
		} else if !errors.Is(err, apperrors.ErrNotFound) {
			return nil, err
		}
	}

	draw := &Draw{
		ID:             uuid.New(),
		Name:           req.Name,
		TotalNumbers:   req.TotalNumbers,
		PricePerNumber: req.PricePerNumber,
		Status:         StatusScheduled,
		EndsAt:         req.EndsAt,
		CreatedBy:      createdBy,
	}
	if req.ActivateNow {
		now := s.clock.Now()
		draw.Status = StatusActive
		draw.StartedAt = &now
	}

	if err := s.repo.Create(ctx, draw); err != nil {
		return nil, fmt.Errorf("failed to create draw: %w", err)
	}

	if draw.Status == StatusActive {
		if err := s.coordinator.SetupDraw(ctx, draw.ID.String(), draw.TotalNumbers); err != nil {
			return nil, fmt.Errorf("failed to register draw numbers: %w", err)
		}
		s.notify(ctx, EventDrawActivated, draw)
	}

	logger.GetDefault().LogDrawTransition(ctx, draw.ID.String(), "", string(draw.Status))
	resp := toDrawResponse(draw)
	return &resp, nil
}

func (s *service) Activate(ctx context.Context, drawID string) (*DrawResponse, error) {
	id, err := uuid.Parse(drawID)
	if err != nil {
		return nil, fmt.Errorf("invalid draw ID: %w", err)
	}

	s.createMu.Lock()
	defer s.createMu.Unlock()

	if _, err := s.repo.GetActive(ctx); err == nil {
		return nil, fmt.Errorf("another draw is already active: %w", apperrors.ErrInvalidTransition)
	} else if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}

	lock := s.drawLock(id)
	lock.Lock()
	defer lock.Unlock()

	draw, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canTransition(draw.Status, StatusActive) {
		return nil, fmt.Errorf("cannot activate draw in status %s: %w", draw.Status, apperrors.ErrInvalidTransition)
	}

	now := s.clock.Now()
	err = s.transition(ctx, id, draw.Status, StatusActive, map[string]interface{}{
		"started_at": now,
	})
	if err != nil {
		return nil, err
	}

	if err := s.coordinator.SetupDraw(ctx, drawID, draw.TotalNumbers); err != nil {
		return nil, fmt.Errorf("failed to register draw numbers: %w", err)
	}

	draw.Status = StatusActive
	draw.StartedAt = &now
	logger.GetDefault().LogDrawTransition(ctx, drawID, string(StatusScheduled), string(StatusActive))
	s.notify(ctx, EventDrawActivated, draw)

	resp := toDrawResponse(draw)
	return &resp, nil
}

func (s *service) GetDraw(ctx context.Context, drawID string) (*DrawDetailResponse, error) {
	id, err := uuid.Parse(drawID)
	if err != nil {
		return nil, fmt.Errorf("invalid draw ID: %w", err)
	}

	cacheKey := constants.BuildDrawDetailKey(drawID)
	if s.cacheService != nil {
		var cached DrawDetailResponse
		if err := s.cacheService.Get(ctx, cacheKey, &cached); err == nil {
			return &cached, nil
		}
	}

	draw, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	detail := &DrawDetailResponse{DrawResponse: toDrawResponse(draw)}
	if draw.Status == StatusActive {
		if occ, err := s.coordinator.Occupancy(ctx, drawID); err == nil {
			detail.Occupancy = occ
		}
	}

	// Terminal draws never change again, so their detail is safe to cache.
	// Active and scheduled draws are served fresh.
	if s.cacheService != nil && (draw.Status == StatusFinished || draw.Status == StatusCancelled) {
		if err := s.cacheService.Set(ctx, cacheKey, detail, constants.TTL_DRAW_DETAIL); err != nil {
			logger.GetDefault().Debug("failed to cache draw detail", "draw_id", drawID, "error", err)
		}
	}
	return detail, nil
}

func (s *service) GetActiveDraw(ctx context.Context) (*DrawDetailResponse, error) {
	draw, err := s.repo.GetActive(ctx)
	if err != nil {
		return nil, err
	}
	return s.GetDraw(ctx, draw.ID.String())
}

//  PURCHASE-FLOW CALLBACKS

func (s *service) PricePerNumber(ctx context.Context, drawID uuid.UUID) (float64, error) {
	draw, err := s.repo.GetByID(ctx, drawID)
	if err != nil {
		return 0, err
	}
	return draw.PricePerNumber, nil
}

// RecordSale recomputes occupancy after a confirmed purchase and flags the
// sellout condition. Winner selection stays a separate operator action, so
// a sold-out draw remains Active until SetWinner or its deadline.
func (s *service) RecordSale(ctx context.Context, drawID uuid.UUID, values []int) error {
	lock := s.drawLock(drawID)
	lock.Lock()
	defer lock.Unlock()

	draw, err := s.repo.GetByID(ctx, drawID)
	if err != nil {
		return err
	}
	if draw.Status != StatusActive {
		return fmt.Errorf("sale recorded on draw in status %s: %w", draw.Status, apperrors.ErrInvalidTransition)
	}

	occ, err := s.coordinator.Occupancy(ctx, drawID.String())
	if err != nil {
		return err
	}

	if occ.SoldOut() && draw.StatusNote != NoteSoldOut {
		err := s.transition(ctx, drawID, StatusActive, StatusActive, map[string]interface{}{
			"status_note": NoteSoldOut,
		})
		if err != nil {
			return err
		}
		draw.StatusNote = NoteSoldOut
		logger.GetDefault().InfoWithContext(ctx, "Draw Sold Out", map[string]interface{}{
			"draw_id": drawID.String(),
			"sold":    occ.Sold,
		})
		s.notify(ctx, EventDrawSoldOut, draw)
	}
	return nil
}

//  TERMINAL TRANSITIONS

func (s *service) SetWinner(ctx context.Context, drawID string, req SetWinnerRequest) (*DrawResponse, error) {
	id, err := uuid.Parse(drawID)
	if err != nil {
		return nil, fmt.Errorf("invalid draw ID: %w", err)
	}

	lock := s.drawLock(id)
	lock.Lock()
	defer lock.Unlock()

	draw, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if draw.Status != StatusActive {
		return nil, fmt.Errorf("cannot set winner on draw in status %s: %w", draw.Status, apperrors.ErrInvalidTransition)
	}
	if req.WinnerNumber > draw.TotalNumbers {
		return nil, fmt.Errorf("winner number %d out of range: %w", req.WinnerNumber, apperrors.ErrNotFound)
	}

	// A winner must be a sold number; pointing at an unsold one is a
	// caller bug, not something to accept silently
	sold, err := s.resRepo.IsSold(ctx, id, req.WinnerNumber)
	if err != nil {
		return nil, err
	}
	if !sold {
		return nil, fmt.Errorf("number %d is not sold: %w", req.WinnerNumber, apperrors.ErrInvalidTransition)
	}

	err = s.transition(ctx, id, StatusActive, StatusFinished, map[string]interface{}{
		"winner_number": req.WinnerNumber,
		"status_note":   NoteWinnerSet,
	})
	if err != nil {
		return nil, err
	}

	draw.Status = StatusFinished
	draw.StatusNote = NoteWinnerSet
	draw.WinnerNumber = &req.WinnerNumber
	logger.GetDefault().LogDrawTransition(ctx, drawID, string(StatusActive), string(StatusFinished))

	if err := s.finalize(ctx, draw, ""); err != nil {
		return nil, err
	}
	s.notify(ctx, EventDrawFinished, draw)

	resp := toDrawResponse(draw)
	return &resp, nil
}

func (s *service) Cancel(ctx context.Context, drawID string, req CancelDrawRequest) (*DrawResponse, error) {
	id, err := uuid.Parse(drawID)
	if err != nil {
		return nil, fmt.Errorf("invalid draw ID: %w", err)
	}

	lock := s.drawLock(id)
	lock.Lock()
	defer lock.Unlock()

	draw, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canTransition(draw.Status, StatusCancelled) {
		return nil, fmt.Errorf("cannot cancel draw in status %s: %w", draw.Status, apperrors.ErrInvalidTransition)
	}

	err = s.transition(ctx, id, draw.Status, StatusCancelled, map[string]interface{}{
		"cancel_reason": req.Reason,
	})
	if err != nil {
		return nil, err
	}

	previous := draw.Status
	draw.Status = StatusCancelled
	draw.CancelReason = req.Reason
	logger.GetDefault().LogDrawTransition(ctx, drawID, string(previous), string(StatusCancelled))

	if err := s.finalize(ctx, draw, req.Reason); err != nil {
		return nil, err
	}
	s.notify(ctx, EventDrawCancelled, draw)

	resp := toDrawResponse(draw)
	return &resp, nil
}

// Expire finishes an active draw whose hard deadline elapsed without a
// winner. WinnerNumber stays null; the archive entry carries no_winner.
func (s *service) Expire(ctx context.Context, drawID string) (*DrawResponse, error) {
	id, err := uuid.Parse(drawID)
	if err != nil {
		return nil, fmt.Errorf("invalid draw ID: %w", err)
	}

	lock := s.drawLock(id)
	lock.Lock()
	defer lock.Unlock()

	draw, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if draw.Status != StatusActive {
		return nil, fmt.Errorf("cannot expire draw in status %s: %w", draw.Status, apperrors.ErrInvalidTransition)
	}
	if draw.EndsAt == nil || draw.EndsAt.After(s.clock.Now()) {
		return nil, fmt.Errorf("draw %s has not reached its deadline: %w", drawID, apperrors.ErrInvalidTransition)
	}

	err = s.transition(ctx, id, StatusActive, StatusFinished, map[string]interface{}{
		"status_note": NoteNoWinner,
	})
	if err != nil {
		return nil, err
	}

	draw.Status = StatusFinished
	draw.StatusNote = NoteNoWinner
	logger.GetDefault().LogDrawTransition(ctx, drawID, string(StatusActive), string(StatusFinished))

	if err := s.finalize(ctx, draw, ""); err != nil {
		return nil, err
	}
	s.notify(ctx, EventDrawFinished, draw)

	resp := toDrawResponse(draw)
	return &resp, nil
}

//  BACKGROUND JOB ENTRY POINTS

func (s *service) ExpireDueDraws(ctx context.Context) (int, error) {
	due, err := s.repo.ListDueForExpiry(ctx, s.clock.Now())
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, draw := range due {
		if _, err := s.Expire(ctx, draw.ID.String()); err != nil {
			// Another transition may have won in the meantime; that is fine
			if errors.Is(err, apperrors.ErrInvalidTransition) || errors.Is(err, apperrors.ErrNotFound) {
				continue
			}
			return expired, err
		}
		expired++
	}
	return expired, nil
}

func (s *service) SweepActiveDraw(ctx context.Context) (int, error) {
	draw, err := s.repo.GetActive(ctx)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return s.coordinator.SweepExpired(ctx, draw.ID.String())
}

//  INTERNAL

// transition applies a status CAS, retrying once on a lost race per the
// conflict policy before surfacing the error.
func (s *service) transition(ctx context.Context, id uuid.UUID, from, to Status, updates map[string]interface{}) error {
	err := s.repo.UpdateStatus(ctx, id, from, to, updates)
	if err == nil || !errors.Is(err, apperrors.ErrConflict) {
		return err
	}

	draw, getErr := s.repo.GetByID(ctx, id)
	if getErr != nil {
		return getErr
	}
	if draw.Status != from {
		return fmt.Errorf("draw %s is %s: %w", id, draw.Status, apperrors.ErrInvalidTransition)
	}
	return s.repo.UpdateStatus(ctx, id, from, to, updates)
}

// finalize writes the archive snapshot and tears down the live ledger
// state of a terminal draw.
func (s *service) finalize(ctx context.Context, draw *Draw, reason string) error {
	now := s.clock.Now()

	sold, err := s.resRepo.ListSoldByDraw(ctx, draw.ID)
	if err != nil {
		return fmt.Errorf("failed to load participants: %w", err)
	}

	participants := make([]history.Participant, 0, len(sold))
	for _, row := range sold {
		participants = append(participants, history.Participant{
			Value:  row.Value,
			SoldTo: row.SoldTo,
			Price:  row.Price,
		})
	}

	var duration time.Duration
	startedAt := draw.CreatedAt
	if draw.StartedAt != nil {
		startedAt = *draw.StartedAt
		duration = now.Sub(startedAt)
	}

	entry := history.ArchiveEntry{
		DrawID:         draw.ID,
		Name:           draw.Name,
		FinalStatus:    string(draw.Status),
		StatusNote:     draw.StatusNote,
		Reason:         reason,
		TotalNumbers:   draw.TotalNumbers,
		SoldCount:      len(participants),
		PricePerNumber: draw.PricePerNumber,
		WinnerNumber:   draw.WinnerNumber,
		Participants:   participants,
		StartedAt:      startedAt,
		EndedAt:        now,
		ActualDuration: duration,
	}
	if err := s.archiver.ArchiveDraw(ctx, entry); err != nil {
		return fmt.Errorf("failed to archive draw: %w", err)
	}

	if err := s.coordinator.TeardownDraw(ctx, draw.ID.String()); err != nil {
		return fmt.Errorf("failed to tear down draw numbers: %w", err)
	}
	// The archive now owns the participant snapshot; drop the live rows
	if err := s.resRepo.DeleteByDraw(ctx, draw.ID); err != nil {
		return fmt.Errorf("failed to clear sold rows: %w", err)
	}
	return nil
}

func (s *service) notify(ctx context.Context, eventType string, draw *Draw) {
	if s.notifier == nil {
		return
	}
	s.notifier.NotifyDrawEvent(ctx, eventType, draw)
}
