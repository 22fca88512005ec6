package kv

import (
	"context"
	"errors"
	"sync"
)

// ErrConflict is returned by Update when the key changed underneath the
// read-modify-write cycle. Callers decide whether to retry.
var ErrConflict = errors.New("kv: concurrent modification")

// KV is the storage boundary for all table and grid records. Values are
// opaque byte slices (JSON in practice). Update runs an optimistic
// read-modify-write: fn receives the current value (nil if absent) and
// returns the next one; returning nil skips the write.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	SetNX(ctx context.Context, key string, value []byte) (bool, error)
	MGet(ctx context.Context, keys ...string) ([][]byte, error)
	Update(ctx context.Context, key string, fn func(current []byte) ([]byte, error)) error
}

// Memory is the in-process twin of the Redis store, used in tests.
type Memory struct {
	mu sync.Mutex
	m  map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{m: make(map[string][]byte)}
}

func (s *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.m[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (s *Memory) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = append([]byte(nil), value...)
	return nil
}

func (s *Memory) SetNX(_ context.Context, key string, value []byte) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.m[key]; ok {
		return false, nil
	}
	s.m[key] = append([]byte(nil), value...)
	return true, nil
}

func (s *Memory) MGet(_ context.Context, keys ...string) ([][]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]byte, len(keys))
	for i, k := range keys {
		if v, ok := s.m[k]; ok {
			out[i] = append([]byte(nil), v...)
		}
	}
	return out, nil
}

func (s *Memory) Update(_ context.Context, key string, fn func(current []byte) ([]byte, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var cur []byte
	if v, ok := s.m[key]; ok {
		cur = append([]byte(nil), v...)
	}
	next, err := fn(cur)
	if err != nil {
		return err
	}
	if next == nil {
		return nil
	}
	s.m[key] = append([]byte(nil), next...)
	return nil
}
