package memory

import (
	"context"
	"sync"

	"github.com/MikhailRaia/media-proxy/internal/model"
)

// DefaultCapacity bounds the number of records kept in memory.
const DefaultCapacity = 10000

// Storage implements RecordStorage on top of in-memory maps. Once capacity is
// reached the oldest records are evicted.
type Storage struct {
	mu       sync.RWMutex
	capacity int
	records  []model.FetchRecord
	ids      map[string]struct{}
	clients  map[string]int
	bytes    int64
}

// NewStorage creates an empty in-memory storage with the default capacity.
func NewStorage() *Storage {
	return NewStorageWithCapacity(DefaultCapacity)
}

// NewStorageWithCapacity creates an empty in-memory storage holding at most capacity records.
func NewStorageWithCapacity(capacity int) *Storage {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Storage{
		capacity: capacity,
		ids:      make(map[string]struct{}),
		clients:  make(map[string]int),
	}
}

// SaveBatch stores records, skipping IDs that are already present.
func (s *Storage) SaveBatch(_ context.Context, records []model.FetchRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rec := range records {
		s.add(rec)
	}
	return nil
}

func (s *Storage) add(rec model.FetchRecord) bool {
	if _, exists := s.ids[rec.ID]; exists {
		return false
	}

	if len(s.records) >= s.capacity {
		s.evictOldest()
	}

	s.records = append(s.records, rec)
	s.ids[rec.ID] = struct{}{}
	s.clients[rec.ClientID]++
	if rec.ContentLength > 0 {
		s.bytes += rec.ContentLength
	}
	return true
}

func (s *Storage) evictOldest() {
	oldest := s.records[0]
	s.records = s.records[1:]
	delete(s.ids, oldest.ID)

	s.clients[oldest.ClientID]--
	if s.clients[oldest.ClientID] <= 0 {
		delete(s.clients, oldest.ClientID)
	}
	if oldest.ContentLength > 0 {
		s.bytes -= oldest.ContentLength
	}
}

func (s *Storage) ListByClient(_ context.Context, clientID string, limit int) ([]model.FetchRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []model.FetchRecord
	for i := len(s.records) - 1; i >= 0; i-- {
		if s.records[i].ClientID != clientID {
			continue
		}
		result = append(result, s.records[i])
		if limit > 0 && len(result) >= limit {
			break
		}
	}

	return result, nil
}

func (s *Storage) Stats(_ context.Context) (model.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return model.Stats{
		Fetches: len(s.records),
		Clients: len(s.clients),
		Bytes:   s.bytes,
	}, nil
}

func (s *Storage) Ping(_ context.Context) error {
	return nil
}

func (s *Storage) Close() error {
	return nil
}
