package webhooks

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"sync"
	"time"
)

// MemoryReplayProtector rejects a request whose (path + body) digest was
// already accepted within the TTL window. Best effort: state is per process.
type MemoryReplayProtector struct {
	ttl  time.Duration
	now  func() time.Time
	mu   sync.Mutex
	seen map[string]time.Time
}

func NewMemoryReplayProtector(ttl time.Duration) *MemoryReplayProtector {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &MemoryReplayProtector{
		ttl:  ttl,
		now:  time.Now,
		seen: make(map[string]time.Time),
	}
}

func (p *MemoryReplayProtector) Check(_ context.Context, r *http.Request, body []byte) error {
	h := sha256.New()
	if r != nil && r.URL != nil {
		h.Write([]byte(r.URL.Path))
		h.Write([]byte{0})
	}
	h.Write(body)
	key := hex.EncodeToString(h.Sum(nil))

	now := p.now()
	p.mu.Lock()
	defer p.mu.Unlock()

	for k, exp := range p.seen {
		if !now.Before(exp) {
			delete(p.seen, k)
		}
	}
	if exp, ok := p.seen[key]; ok && now.Before(exp) {
		return ErrReplayDetected
	}
	p.seen[key] = now.Add(p.ttl)
	return nil
}
