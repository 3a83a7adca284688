package client

import (
	"context"
	"errors"
	"sync"

	"github.com/replaysMike/Binner-sub003/internal/bom/dto"
)

// ErrSuperseded is returned by a lookup that a newer lookup cancelled.
// Callers discard its result.
var ErrSuperseded = errors.New("lookup superseded")

// Searcher runs type-ahead part lookups. Starting a lookup cancels the one
// still in flight; other requests on the same Client are never cancelled.
type Searcher struct {
	client *Client
	limit  int

	mu     sync.Mutex
	seq    uint64
	cancel context.CancelFunc
}

// NewSearcher creates a Searcher returning at most limit parts per lookup.
func NewSearcher(c *Client, limit int) *Searcher {
	return &Searcher{client: c, limit: limit}
}

// Search looks up parts matching keywords.
func (s *Searcher) Search(ctx context.Context, keywords string) ([]dto.PartView, error) {
	ctx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.seq++
	seq := s.seq
	s.cancel = cancel
	s.mu.Unlock()

	parts, err := s.client.SearchParts(ctx, keywords, s.limit)

	s.mu.Lock()
	superseded := seq != s.seq
	if !superseded {
		s.cancel = nil
	}
	s.mu.Unlock()
	cancel()

	if superseded {
		return nil, ErrSuperseded
	}
	return parts, err
}

// Stop cancels the lookup in flight, if any.
func (s *Searcher) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.seq++
}
