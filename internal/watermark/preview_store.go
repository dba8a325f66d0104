package watermark

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrPreviewNotFound = errors.New("preview not found or expired")

type Preview struct {
	ContentType string
	Data        []byte
}

// PreviewStore holds rendered previews until they are viewed once or expire.
type PreviewStore interface {
	Put(ctx context.Context, id string, p Preview, ttl time.Duration) error
	// Take returns the preview and removes it.
	Take(ctx context.Context, id string) (Preview, error)
}

type memoryEntry struct {
	preview Preview
	expires time.Time
}

// MemoryPreviewStore keeps previews in-process (single instance only).
type MemoryPreviewStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
}

func NewMemoryPreviewStore() *MemoryPreviewStore {
	return &MemoryPreviewStore{entries: make(map[string]memoryEntry)}
}

func (m *MemoryPreviewStore) Put(_ context.Context, id string, p Preview, ttl time.Duration) error {
	now := time.Now()
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, e := range m.entries {
		if now.After(e.expires) {
			delete(m.entries, k)
		}
	}
	m.entries[id] = memoryEntry{preview: p, expires: now.Add(ttl)}
	return nil
}

func (m *MemoryPreviewStore) Take(_ context.Context, id string) (Preview, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	if !ok {
		return Preview{}, ErrPreviewNotFound
	}
	delete(m.entries, id)
	if time.Now().After(e.expires) {
		return Preview{}, ErrPreviewNotFound
	}
	return e.preview, nil
}

// RedisPreviewStore keeps previews in Redis as "<content-type>\n<bytes>" with a TTL.
type RedisPreviewStore struct {
	client *redis.Client
}

func NewRedisPreviewStore(client *redis.Client) *RedisPreviewStore {
	return &RedisPreviewStore{client: client}
}

func (r *RedisPreviewStore) Put(ctx context.Context, id string, p Preview, ttl time.Duration) error {
	payload := make([]byte, 0, len(p.ContentType)+1+len(p.Data))
	payload = append(payload, p.ContentType...)
	payload = append(payload, '\n')
	payload = append(payload, p.Data...)
	return r.client.Set(ctx, previewKey(id), payload, ttl).Err()
}

func (r *RedisPreviewStore) Take(ctx context.Context, id string) (Preview, error) {
	raw, err := r.client.GetDel(ctx, previewKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Preview{}, ErrPreviewNotFound
	}
	if err != nil {
		return Preview{}, err
	}
	ct, data, ok := bytes.Cut(raw, []byte{'\n'})
	if !ok {
		return Preview{}, ErrPreviewNotFound
	}
	return Preview{ContentType: string(ct), Data: data}, nil
}

func previewKey(id string) string {
	return "watermark:preview:" + id
}
