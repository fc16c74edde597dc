package sources

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"
)

// Key pool defaults.
const (
	DefaultQuotaPerKey  = 10000
	quotaWarnThreshold  = 0.8
	quotaAlertThreshold = 0.9
	maxKeyErrors        = 3
)

// KeyState is the health of one API key.
type KeyState string

const (
	KeyActive    KeyState = "active"
	KeyLimited   KeyState = "limited"
	KeyExhausted KeyState = "exhausted"
	KeyError     KeyState = "error"
)

// ErrNoKeys is returned when the pool was built without any key.
var ErrNoKeys = errors.New("youtube: no API keys configured")

// KeyStatus is the per-key accounting snapshot. The full key is never exposed.
type KeyStatus struct {
	KeyPrefix      string    `json:"key_prefix"`
	QuotaUsed      int       `json:"quota_used"`
	QuotaLimit     int       `json:"quota_limit"`
	QuotaRemaining int       `json:"quota_remaining"`
	LastUsed       time.Time `json:"last_used"`
	ErrorCount     int       `json:"error_count"`
	Status         KeyState  `json:"status"`
}

// PoolStats summarizes the pool.
type PoolStats struct {
	Keys                []KeyStatus `json:"keys"`
	TotalQuotaUsed      int         `json:"total_quota_used"`
	TotalQuotaLimit     int         `json:"total_quota_limit"`
	TotalQuotaRemaining int         `json:"total_quota_remaining"`
	HealthyKeyCount     int         `json:"healthy_key_count"`
}

// QuotaWarning is the outcome of a pool health check.
type QuotaWarning struct {
	Warning bool   `json:"warning"`
	Message string `json:"message"`
}

type keyEntry struct {
	key        string
	used       int
	limit      int
	lastUsed   time.Time
	errorCount int
	status     KeyState
}

func (e *keyEntry) remaining() int { return max(0, e.limit-e.used) }

func (e *keyEntry) refreshStatus() {
	switch rem := e.remaining(); {
	case rem == 0:
		e.status = KeyExhausted
	case float64(rem) < float64(e.limit)*(1-quotaWarnThreshold):
		e.status = KeyLimited
	default:
		e.status = KeyActive
	}
}

func (e *keyEntry) snapshot() KeyStatus {
	return KeyStatus{
		KeyPrefix:      keyPrefix(e.key),
		QuotaUsed:      e.used,
		QuotaLimit:     e.limit,
		QuotaRemaining: e.remaining(),
		LastUsed:       e.lastUsed,
		ErrorCount:     e.errorCount,
		Status:         e.status,
	}
}

// KeyPool rotates YouTube Data API keys by remaining daily quota.
// It is safe for concurrent use.
type KeyPool struct {
	mu      sync.Mutex
	entries []*keyEntry
	now     func() time.Time
}

// NewKeyPool builds a pool over keys with the given per-key daily quota.
// Blank and duplicate keys are dropped; quotaPerKey <= 0 uses DefaultQuotaPerKey.
func NewKeyPool(keys []string, quotaPerKey int) *KeyPool {
	if quotaPerKey <= 0 {
		quotaPerKey = DefaultQuotaPerKey
	}
	p := &KeyPool{now: time.Now}
	seen := make(map[string]bool, len(keys))
	for _, k := range keys {
		k = strings.TrimSpace(k)
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		p.entries = append(p.entries, &keyEntry{key: k, limit: quotaPerKey, status: KeyActive})
	}
	return p
}

// Len returns the number of keys in the pool.
func (p *KeyPool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}

// Acquire returns the healthiest key: most remaining quota, then least recently used.
// When no key is active or limited it falls back to the first key.
func (p *KeyPool) Acquire() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.entries) == 0 {
		return "", ErrNoKeys
	}
	if best := p.rank(nil); len(best) > 0 {
		return best[0].key, nil
	}
	return p.entries[0].key, nil
}

// Candidates returns the usable keys in acquisition order, excluding tried.
func (p *KeyPool) Candidates(tried map[string]bool) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	ranked := p.rank(tried)
	out := make([]string, len(ranked))
	for i, e := range ranked {
		out[i] = e.key
	}
	return out
}

func (p *KeyPool) rank(exclude map[string]bool) []*keyEntry {
	var avail []*keyEntry
	for _, e := range p.entries {
		if exclude[e.key] {
			continue
		}
		if e.status == KeyActive || e.status == KeyLimited {
			avail = append(avail, e)
		}
	}
	sort.SliceStable(avail, func(i, j int) bool {
		ri, rj := avail[i].remaining(), avail[j].remaining()
		if ri != rj {
			return ri > rj
		}
		return avail[i].lastUsed.Before(avail[j].lastUsed)
	})
	return avail
}

// Release records a successful call costing cost quota units.
func (p *KeyPool) Release(key string, cost int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e := p.find(key)
	if e == nil {
		return
	}
	e.lastUsed = p.now()
	e.used += cost
	e.errorCount = 0
	e.refreshStatus()
}

// MarkExhausted flags key as out of quota until the next ResetDaily.
func (p *KeyPool) MarkExhausted(key string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e := p.find(key)
	if e == nil {
		return
	}
	e.lastUsed = p.now()
	e.used = e.limit
	e.status = KeyExhausted
	slog.Warn("youtube: key quota exhausted", slog.String("key", keyPrefix(key)))
}

// MarkError records a failed call. Three consecutive failures put the key in error state.
func (p *KeyPool) MarkError(key string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e := p.find(key)
	if e == nil {
		return
	}
	e.lastUsed = p.now()
	e.errorCount++
	if e.errorCount >= maxKeyErrors {
		e.status = KeyError
	}
}

// ResetDaily restores every key to full quota.
func (p *KeyPool) ResetDaily() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, e := range p.entries {
		e.used = 0
		e.errorCount = 0
		e.status = KeyActive
	}
}

// Stats returns a snapshot of the pool.
func (p *KeyPool) Stats() PoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	st := PoolStats{Keys: make([]KeyStatus, 0, len(p.entries))}
	for _, e := range p.entries {
		ks := e.snapshot()
		st.Keys = append(st.Keys, ks)
		st.TotalQuotaUsed += ks.QuotaUsed
		st.TotalQuotaLimit += ks.QuotaLimit
		st.TotalQuotaRemaining += ks.QuotaRemaining
		if ks.Status == KeyActive {
			st.HealthyKeyCount++
		}
	}
	return st
}

// QuotaWarning reports whether pool usage or health needs attention.
func (p *KeyPool) QuotaWarning() QuotaWarning {
	st := p.Stats()
	if len(st.Keys) == 0 {
		return QuotaWarning{Warning: true, Message: "no API keys configured"}
	}
	usage := float64(st.TotalQuotaUsed) / float64(st.TotalQuotaLimit)
	pct := int(usage*100 + 0.5)
	switch {
	case usage >= quotaAlertThreshold:
		return QuotaWarning{Warning: true, Message: fmt.Sprintf("quota nearly exhausted: %d%% used", pct)}
	case usage >= quotaWarnThreshold:
		return QuotaWarning{Warning: true, Message: fmt.Sprintf("quota usage high: %d%% used", pct)}
	case st.HealthyKeyCount == 0:
		return QuotaWarning{Warning: true, Message: "no healthy API keys"}
	case st.HealthyKeyCount <= 1 && len(st.Keys) > 1:
		return QuotaWarning{Warning: true, Message: fmt.Sprintf("only %d healthy API key left", st.HealthyKeyCount)}
	}
	return QuotaWarning{Message: "quota ok"}
}

// RunDailyReset calls ResetDaily at every local midnight until ctx is done.
func (p *KeyPool) RunDailyReset(ctx context.Context) {
	for {
		now := p.now()
		next := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, now.Location())
		timer := time.NewTimer(next.Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			p.ResetDaily()
			slog.Info("youtube: daily quota reset")
		}
	}
}

func (p *KeyPool) find(key string) *keyEntry {
	for _, e := range p.entries {
		if e.key == key {
			return e
		}
	}
	return nil
}

func keyPrefix(key string) string {
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:8] + "..."
}

// IsQuotaExceeded reports whether an API error body signals an exhausted quota.
func IsQuotaExceeded(body string) bool {
	m := strings.ToLower(body)
	return strings.Contains(m, "quota") &&
		(strings.Contains(m, "exceeded") || strings.Contains(m, "quotaexceeded"))
}
