package repository

import (
	"context"
	"sync"
	"time"

	"floorwatch/models"

	"github.com/shopspring/decimal"
)

// MemoryHistoryStore is a process-local HistoryStore and HistoryLog
type MemoryHistoryStore struct {
	mu      sync.RWMutex
	last    map[string]models.HistoryRecord
	entries map[string][]models.HistoryEntry
	nextID  int64
}

func NewMemoryHistoryStore() *MemoryHistoryStore {
	return &MemoryHistoryStore{
		last:    make(map[string]models.HistoryRecord),
		entries: make(map[string][]models.HistoryEntry),
	}
}

func (s *MemoryHistoryStore) GetLast(ctx context.Context, key string) (*models.HistoryRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.last[key]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (s *MemoryHistoryStore) Record(ctx context.Context, key string, amount decimal.Decimal, currency models.CurrencyCode, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	s.last[key] = models.HistoryRecord{ItemKey: key, LastAmount: amount, LastCurrency: currency, RecordedAt: at.UTC()}
	s.entries[key] = append(s.entries[key], models.HistoryEntry{
		ID: s.nextID, ItemKey: key, Amount: amount, Currency: currency, RecordedAt: at.UTC(),
	})
	return nil
}

func (s *MemoryHistoryStore) GetHistory(ctx context.Context, key string, limit int) ([]models.HistoryEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.entries[key]
	if limit <= 0 || limit > len(all) {
		limit = len(all)
	}
	out := make([]models.HistoryEntry, 0, limit)
	for i := len(all) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, all[i])
	}
	return out, nil
}
