package session

import (
	"sync"

	"github.com/gin-gonic/gin"
)

// MemoryStore holds one browser's record in process memory. It backs tests
// and local development where restart persistence does not matter.
type MemoryStore struct {
	mu  sync.Mutex
	rec *Record
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Load(_ *gin.Context) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rec == nil {
		return Record{}, ErrNoRecord
	}
	return *s.rec, nil
}

func (s *MemoryStore) Save(_ *gin.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rec = &rec
	return nil
}

func (s *MemoryStore) Clear(_ *gin.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rec = nil
	return nil
}

// Snapshot exposes the stored record to tests; ok is false when empty.
func (s *MemoryStore) Snapshot() (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rec == nil {
		return Record{}, false
	}
	return *s.rec, true
}
