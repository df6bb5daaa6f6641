package memstore

import (
	"fmt"

	"lexai/internal/domain"
)

// PassageStore holds the corpus passages in id order. It is built once and
// never mutated, so concurrent readers need no locking.
type PassageStore struct {
	passages []domain.Passage
}

// NewPassageStore copies passages into a store, assigning ids by position.
func NewPassageStore(passages []domain.Passage) *PassageStore {
	stored := make([]domain.Passage, len(passages))
	for i, p := range passages {
		p.ID = i
		stored[i] = p
	}
	return &PassageStore{passages: stored}
}

func (s *PassageStore) Get(id int) (domain.Passage, error) {
	if id < 0 || id >= len(s.passages) {
		return domain.Passage{}, fmt.Errorf("passage not found: %d", id)
	}
	return s.passages[id], nil
}

func (s *PassageStore) Size() int {
	return len(s.passages)
}

// All returns a copy of every passage in id order.
func (s *PassageStore) All() []domain.Passage {
	out := make([]domain.Passage, len(s.passages))
	copy(out, s.passages)
	return out
}

// Contents returns passage texts in id order.
func (s *PassageStore) Contents() []string {
	out := make([]string, len(s.passages))
	for i, p := range s.passages {
		out[i] = p.Content
	}
	return out
}
