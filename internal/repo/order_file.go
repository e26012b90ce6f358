package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/tbourn/go-order-bot/internal/domain"
)

// FileOrderStore keeps pending orders in a single JSON document mapping phone
// to record. The document is loaded once and rewritten in full after every
// mutation through a temp file and rename, so readers of the file see either
// the previous or the new version. The directory is not fsynced.
type FileOrderStore struct {
	path string

	mu     sync.Mutex
	orders map[string]domain.OrderRecord
}

// OpenFileOrderStore loads path. A missing file is an empty store.
func OpenFileOrderStore(path string) (*FileOrderStore, error) {
	s := &FileOrderStore{path: path, orders: map[string]domain.OrderRecord{}}
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("orders file: %w", err)
	}
	if len(b) == 0 {
		return s, nil
	}
	if err := json.Unmarshal(b, &s.orders); err != nil {
		return nil, fmt.Errorf("orders file %s: %w", path, err)
	}
	for phone, rec := range s.orders {
		rec.Phone = phone
		if rec.Status == "" {
			rec.Status = domain.OrderPending
		}
		s.orders[phone] = rec
	}
	return s, nil
}

// Path returns the document location.
func (s *FileOrderStore) Path() string { return s.path }

func (s *FileOrderStore) Upsert(ctx context.Context, rec domain.OrderRecord) (domain.OrderRecord, error) {
	if err := ctx.Err(); err != nil {
		return domain.OrderRecord{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	out := rec.Clone()
	out.Status = domain.OrderPending
	out.DispatchedAt = nil
	out.CreatedAt, out.UpdatedAt = now, now

	next := s.copyLocked()
	next[out.Phone] = out
	if err := s.commitLocked(next); err != nil {
		return domain.OrderRecord{}, err
	}
	return out.Clone(), nil
}

func (s *FileOrderStore) Get(ctx context.Context, phone string) (domain.OrderRecord, error) {
	if err := ctx.Err(); err != nil {
		return domain.OrderRecord{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.orders[phone]
	if !ok {
		return domain.OrderRecord{}, ErrNotFound
	}
	return rec.Clone(), nil
}

func (s *FileOrderStore) Replace(ctx context.Context, oldPhone string, rec domain.OrderRecord) (domain.OrderRecord, error) {
	if err := ctx.Err(); err != nil {
		return domain.OrderRecord{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.orders[oldPhone]
	if !ok {
		return domain.OrderRecord{}, ErrNotFound
	}
	if _, taken := s.orders[rec.Phone]; taken && rec.Phone != oldPhone {
		return domain.OrderRecord{}, ErrPhoneTaken
	}
	out := rec.Clone()
	out.Status = domain.OrderPending
	out.DispatchedAt = nil
	out.CreatedAt = prev.CreatedAt
	out.UpdatedAt = time.Now().UTC()

	next := s.copyLocked()
	delete(next, oldPhone)
	next[out.Phone] = out
	if err := s.commitLocked(next); err != nil {
		return domain.OrderRecord{}, err
	}
	return out.Clone(), nil
}

// Dispatch removes the order from the document; the returned record carries
// the dispatched status.
func (s *FileOrderStore) Dispatch(ctx context.Context, phone string, at time.Time) (domain.OrderRecord, error) {
	if err := ctx.Err(); err != nil {
		return domain.OrderRecord{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.orders[phone]
	if !ok {
		return domain.OrderRecord{}, ErrNotFound
	}
	next := s.copyLocked()
	delete(next, phone)
	if err := s.commitLocked(next); err != nil {
		return domain.OrderRecord{}, err
	}
	out := rec.Clone()
	at = at.UTC()
	out.Status = domain.OrderDispatched
	out.DispatchedAt = &at
	out.UpdatedAt = at
	return out, nil
}

func (s *FileOrderStore) List(ctx context.Context) ([]domain.OrderRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	out := make([]domain.OrderRecord, 0, len(s.orders))
	for _, rec := range s.orders {
		out = append(out, rec.Clone())
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].Phone < out[j].Phone
	})
	return out, nil
}

func (s *FileOrderStore) copyLocked() map[string]domain.OrderRecord {
	next := make(map[string]domain.OrderRecord, len(s.orders)+1)
	for k, v := range s.orders {
		next[k] = v
	}
	return next
}

// commitLocked persists next and only then makes it the in-memory state, so a
// failed write leaves the store unchanged.
func (s *FileOrderStore) commitLocked(next map[string]domain.OrderRecord) error {
	b, err := json.MarshalIndent(next, "", "  ")
	if err != nil {
		return fmt.Errorf("orders file: encode: %w", err)
	}
	if err := writeFileAtomic(s.path, b); err != nil {
		return fmt.Errorf("orders file: %w", err)
	}
	s.orders = next
	return nil
}

func writeFileAtomic(path string, b []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	name := tmp.Name()
	defer os.Remove(name) // no-op after a successful rename

	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(name, path)
}
