package relay

import (
	"context"
	"fmt"
	"sync"

	"github.com/duplex-dev/duplexio/pkg/dispatch"
)

// Store persists transfers.
type Store interface {
	// Save inserts or replaces a transfer.
	Save(ctx context.Context, t *Transfer) error

	// FindOne returns the transfer, or a 404 domain error.
	FindOne(ctx context.Context, fileID string) (*Transfer, error)

	// UpdateStatus sets the transfer's status.
	UpdateStatus(ctx context.Context, fileID string, status Status) error

	// Delete removes the transfer.
	Delete(ctx context.Context, fileID string) error
}

// errNotFound is the domain error for an unknown transfer id.
func errNotFound() *dispatch.Error {
	return dispatch.NewError(dispatch.CodeNotFound, "not found")
}

// errWrongStatus rejects a transfer observed in an unexpected state.
func errWrongStatus(got Status) *dispatch.Error {
	return dispatch.NewError(dispatch.CodeBadRequest, fmt.Sprintf("Wrong status: %s", got))
}

// FindWithStatus returns the transfer if it is in the wanted state, or a
// 400 domain error naming the state it was actually in.
func FindWithStatus(ctx context.Context, s Store, fileID string, want Status) (*Transfer, error) {
	t, err := s.FindOne(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if t.Status != want {
		return nil, errWrongStatus(t.Status)
	}
	return t, nil
}

// TransferStatus moves the transfer from one of the allowed states into
// next. Finished transfers are deleted rather than kept around.
func TransferStatus(ctx context.Context, s Store, fileID string, next Status, allowed ...Status) (*Transfer, error) {
	t, err := s.FindOne(ctx, fileID)
	if err != nil {
		return nil, err
	}
	ok := false
	for _, a := range allowed {
		if t.Status == a {
			ok = true
			break
		}
	}
	if !ok {
		return nil, errWrongStatus(t.Status)
	}

	if next == StatusFinished {
		if err := s.Delete(ctx, fileID); err != nil {
			return nil, err
		}
	} else if err := s.UpdateStatus(ctx, fileID, next); err != nil {
		return nil, err
	}
	t.Status = next
	return t, nil
}

// MemoryStore is an in-memory Store for development and tests.
type MemoryStore struct {
	mu        sync.RWMutex
	transfers map[string]Transfer
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{transfers: make(map[string]Transfer)}
}

// Save implements Store.
func (s *MemoryStore) Save(ctx context.Context, t *Transfer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transfers[t.FileID] = *t
	return nil
}

// FindOne implements Store.
func (s *MemoryStore) FindOne(ctx context.Context, fileID string) (*Transfer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.transfers[fileID]
	if !ok {
		return nil, errNotFound()
	}
	return &t, nil
}

// UpdateStatus implements Store.
func (s *MemoryStore) UpdateStatus(ctx context.Context, fileID string, status Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.transfers[fileID]
	if !ok {
		return errNotFound()
	}
	t.Status = status
	s.transfers[fileID] = t
	return nil
}

// Delete implements Store.
func (s *MemoryStore) Delete(ctx context.Context, fileID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.transfers[fileID]; !ok {
		return errNotFound()
	}
	delete(s.transfers, fileID)
	return nil
}
