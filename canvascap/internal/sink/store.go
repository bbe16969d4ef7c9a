package sink

import (
	"context"

	"github.com/hazyhaar/tilecap/canvascap/internal/store"
	"github.com/hazyhaar/tilecap/canvascap/output"
)

// Store archives captures in SQLite.
type Store struct {
	st    *store.Store
	owned bool
}

// NewStore presents to an already open archive. Close leaves it open.
func NewStore(st *store.Store) *Store {
	return &Store{st: st}
}

// OpenStore opens the archive at path; Close closes it.
func OpenStore(path string) (*Store, error) {
	st, err := store.Open(path)
	if err != nil {
		return nil, err
	}
	return &Store{st: st, owned: true}, nil
}

func (s *Store) Present(ctx context.Context, img output.Image) error {
	return s.st.Insert(ctx, img)
}

func (s *Store) Close() error {
	if s.owned {
		return s.st.Close()
	}
	return nil
}
