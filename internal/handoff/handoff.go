package handoff

import (
	"errors"
	"sync"
	"time"

	"github.com/MikhailRaia/media-proxy/internal/model"
)

var (
	ErrEmpty = errors.New("no file waiting for this client")
	ErrFull  = errors.New("handoff store is full")
)

const DefaultTTL = 10 * time.Minute

type entry struct {
	file     model.MediaFile
	storedAt time.Time
}

// Store holds at most one file per client until it is taken.
type Store struct {
	mu       sync.Mutex
	files    map[string]entry
	bytes    int64
	maxBytes int64
	ttl      time.Duration
	now      func() time.Time
}

// NewStore creates a Store. Entries older than ttl are discarded; maxBytes
// bounds the total held size. Zero values mean DefaultTTL and no bound.
func NewStore(ttl time.Duration, maxBytes int64) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{
		files:    make(map[string]entry),
		maxBytes: maxBytes,
		ttl:      ttl,
		now:      time.Now,
	}
}

// Put replaces the file waiting for clientID. When the new file does not fit,
// ErrFull is returned and the previous file is kept.
func (s *Store) Put(clientID string, file model.MediaFile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.expire(now)

	var held int64
	if old, ok := s.files[clientID]; ok {
		held = old.file.Size()
	}

	// A rejected file leaves the one already waiting in place.
	if s.maxBytes > 0 && s.bytes-held+file.Size() > s.maxBytes {
		return ErrFull
	}

	s.files[clientID] = entry{file: file, storedAt: now}
	s.bytes += file.Size() - held
	return nil
}

// Take returns and clears the file waiting for clientID.
func (s *Store) Take(clientID string) (model.MediaFile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.files[clientID]
	if !ok {
		return model.MediaFile{}, ErrEmpty
	}

	delete(s.files, clientID)
	s.bytes -= e.file.Size()

	if s.now().Sub(e.storedAt) > s.ttl {
		return model.MediaFile{}, ErrEmpty
	}
	return e.file, nil
}

// Len reports how many files are waiting.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.files)
}

func (s *Store) expire(now time.Time) {
	for id, e := range s.files {
		if now.Sub(e.storedAt) > s.ttl {
			s.bytes -= e.file.Size()
			delete(s.files, id)
		}
	}
}
