package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"slices"
	"strings"
	"sync"
	"time"
)

// Memory is an in-process Blob used for development and tests
type Memory struct {
	mu      sync.RWMutex
	objects  map[string][]byte
	types    map[string]string
	modified map[string]time.Time
	now      func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		objects:  map[string][]byte{},
		types:    map[string]string{},
		modified: map[string]time.Time{},
		now:      time.Now,
	}
}

func (m *Memory) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("failed to read body, %w", err)
	}

	if size >= 0 && int64(len(data)) != size {
		return fmt.Errorf("size mismatch for %s, expected %d got %d", key, size, len(data))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.objects[key] = data
	m.types[key] = contentType
	m.modified[key] = m.now()
	return nil
}

func (m *Memory) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.objects[key]; !ok {
		return ErrNotFound
	}

	delete(m.objects, key)
	delete(m.types, key)
	delete(m.modified, key)
	return nil
}

func (m *Memory) SignURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	m.mu.RLock()
	_, ok := m.objects[key]
	m.mu.RUnlock()

	if !ok {
		return "", ErrNotFound
	}

	q := url.Values{}
	q.Set("expires", fmt.Sprint(m.now().Add(ttl).Unix()))

	return "memory://blob/" + key + "?" + q.Encode(), nil
}

func (m *Memory) List(ctx context.Context, prefix string, limit int) ([]Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.objects))
	for k := range m.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)

	if limit > 0 && len(keys) > limit {
		keys = keys[:limit]
	}

	out := make([]Object, len(keys))
	for i, k := range keys {
		out[i] = Object{
			Key:          k,
			Size:         int64(len(m.objects[k])),
			LastModified: m.modified[k],
		}
	}

	return out, nil
}

// Get returns a copy of the stored bytes. Only the memory store exposes reads,
// clients download through signed URLs.
func (m *Memory) Get(key string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	b, ok := m.objects[key]
	if !ok {
		return nil, false
	}

	return bytes.Clone(b), true
}
