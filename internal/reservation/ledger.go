package reservation

import (
	"fmt"
	"sync"

	"sorteo/internal/shared/apperrors"
)

// Ledger is the pure data store for number records, keyed by
// (drawID, value). No business rules live here; the coordinator is the
// only writer and brings its own locking for multi-step transitions.
type Ledger interface {
	// Setup registers a draw with numbers 1..total, all Free.
	Setup(drawID string, total int) error
	// Teardown removes a draw's records entirely. Idempotent.
	Teardown(drawID string)
	// Get returns the record for one number.
	Get(drawID string, value int) (NumberRecord, error)
	// Set replaces the record for one number.
	Set(drawID string, value int, rec NumberRecord) error
	// ScanByDraw visits every record of a draw in value order. The scan
	// stops early when fn returns false. Restartable.
	ScanByDraw(drawID string, fn func(NumberRecord) bool) error
	// Total returns the number count of a draw.
	Total(drawID string) (int, error)
}

// memoryLedger keeps all records in process memory. It backs the
// coordinator in tests and in single-node deployments without Redis.
type memoryLedger struct {
	mu    sync.RWMutex
	draws map[string][]NumberRecord
}

// NewMemoryLedger creates an empty in-memory ledger.
func NewMemoryLedger() Ledger {
	return &memoryLedger{
		draws: make(map[string][]NumberRecord),
	}
}

func (l *memoryLedger) Setup(drawID string, total int) error {
	if total <= 0 {
		return fmt.Errorf("total numbers must be positive, got %d", total)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.draws[drawID]; exists {
		return fmt.Errorf("draw %s already registered: %w", drawID, apperrors.ErrConflict)
	}

	records := make([]NumberRecord, total)
	for i := range records {
		records[i] = NumberRecord{Value: i + 1, State: StateFree}
	}
	l.draws[drawID] = records
	return nil
}

func (l *memoryLedger) Teardown(drawID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.draws, drawID)
}

func (l *memoryLedger) Get(drawID string, value int) (NumberRecord, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	records, err := l.records(drawID)
	if err != nil {
		return NumberRecord{}, err
	}
	if value < 1 || value > len(records) {
		return NumberRecord{}, fmt.Errorf("number %d out of range: %w", value, apperrors.ErrNotFound)
	}
	return records[value-1], nil
}

func (l *memoryLedger) Set(drawID string, value int, rec NumberRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	records, err := l.records(drawID)
	if err != nil {
		return err
	}
	if value < 1 || value > len(records) {
		return fmt.Errorf("number %d out of range: %w", value, apperrors.ErrNotFound)
	}
	records[value-1] = rec
	return nil
}

func (l *memoryLedger) ScanByDraw(drawID string, fn func(NumberRecord) bool) error {
	l.mu.RLock()
	records, err := l.records(drawID)
	if err != nil {
		l.mu.RUnlock()
		return err
	}
	// Copy so fn runs without holding the ledger lock
	snapshot := make([]NumberRecord, len(records))
	copy(snapshot, records)
	l.mu.RUnlock()

	for _, rec := range snapshot {
		if !fn(rec) {
			break
		}
	}
	return nil
}

func (l *memoryLedger) Total(drawID string) (int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	records, err := l.records(drawID)
	if err != nil {
		return 0, err
	}
	return len(records), nil
}

// records must be called with l.mu held
func (l *memoryLedger) records(drawID string) ([]NumberRecord, error) {
	records, exists := l.draws[drawID]
	if !exists {
		return nil, fmt.Errorf("draw %s: %w", drawID, apperrors.ErrNotFound)
	}
	return records, nil
}
