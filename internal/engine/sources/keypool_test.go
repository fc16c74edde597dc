package sources

import (
	"strings"
	"testing"
	"time"
)

func fixedClock(start time.Time) func() time.Time {
	t := start
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

func TestNewKeyPoolDedupes(t *testing.T) {
	p := NewKeyPool([]string{" key-a ", "", "key-b", "key-a"}, 0)
	if p.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", p.Len())
	}
	st := p.Stats()
	if st.TotalQuotaLimit != 2*DefaultQuotaPerKey {
		t.Errorf("TotalQuotaLimit = %d", st.TotalQuotaLimit)
	}
}

func TestAcquireEmptyPool(t *testing.T) {
	if _, err := NewKeyPool(nil, 100).Acquire(); err != ErrNoKeys {
		t.Fatalf("err = %v, want ErrNoKeys", err)
	}
}

func TestAcquirePrefersRemainingThenLRU(t *testing.T) {
	p := NewKeyPool([]string{"key-a", "key-b", "key-c"}, 1000)
	p.now = fixedClock(time.Unix(0, 0))

	p.Release("key-a", 100)
	p.Release("key-b", 10)
	p.Release("key-c", 10)

	got, _ := p.Acquire()
	if got != "key-b" {
		t.Errorf("Acquire() = %q, want key-b (same remaining as c, used earlier)", got)
	}
	p.Release("key-b", 1)
	got, _ = p.Acquire()
	if got != "key-c" {
		t.Errorf("Acquire() = %q, want key-c", got)
	}
}

func TestKeyStatusTransitions(t *testing.T) {
	p := NewKeyPool([]string{"key-a"}, 100)

	p.Release("key-a", 79)
	if s := p.Stats().Keys[0].Status; s != KeyActive {
		t.Errorf("at 79%% status = %s, want active", s)
	}
	p.Release("key-a", 2)
	if s := p.Stats().Keys[0].Status; s != KeyLimited {
		t.Errorf("at 81%% status = %s, want limited", s)
	}
	p.Release("key-a", 50)
	ks := p.Stats().Keys[0]
	if ks.Status != KeyExhausted || ks.QuotaRemaining != 0 {
		t.Errorf("over quota: status=%s remaining=%d", ks.Status, ks.QuotaRemaining)
	}

	p.ResetDaily()
	if ks := p.Stats().Keys[0]; ks.Status != KeyActive || ks.QuotaUsed != 0 {
		t.Errorf("after reset: %+v", ks)
	}
}

func TestMarkErrorAfterThree(t *testing.T) {
	p := NewKeyPool([]string{"key-a", "key-b"}, 100)
	p.MarkError("key-a")
	p.MarkError("key-a")
	if s := p.Stats().Keys[0].Status; s != KeyActive {
		t.Fatalf("after 2 errors status = %s", s)
	}
	p.MarkError("key-a")
	if s := p.Stats().Keys[0].Status; s != KeyError {
		t.Fatalf("after 3 errors status = %s", s)
	}
	if got, _ := p.Acquire(); got != "key-b" {
		t.Errorf("Acquire() = %q, want key-b", got)
	}
}

func TestAcquireFallsBackToFirstKey(t *testing.T) {
	p := NewKeyPool([]string{"key-a", "key-b"}, 100)
	p.MarkExhausted("key-a")
	p.MarkExhausted("key-b")
	if got, _ := p.Acquire(); got != "key-a" {
		t.Errorf("Acquire() = %q, want fallback key-a", got)
	}
	if c := p.Candidates(nil); len(c) != 0 {
		t.Errorf("Candidates() = %v, want none", c)
	}
}

func TestQuotaWarning(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(p *KeyPool)
		warn    bool
		contain string
	}{
		{"healthy", func(p *KeyPool) {}, false, "ok"},
		{"high usage", func(p *KeyPool) { p.Release("key-a", 85); p.Release("key-b", 80) }, true, "high"},
		{"nearly exhausted", func(p *KeyPool) { p.Release("key-a", 95); p.Release("key-b", 90) }, true, "nearly"},
		{"one healthy left", func(p *KeyPool) { p.MarkExhausted("key-a") }, true, "only 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewKeyPool([]string{"key-a", "key-b"}, 100)
			tt.setup(p)
			w := p.QuotaWarning()
			if w.Warning != tt.warn {
				t.Errorf("Warning = %v, want %v (%s)", w.Warning, tt.warn, w.Message)
			}
			if !strings.Contains(w.Message, tt.contain) {
				t.Errorf("Message = %q, want substring %q", w.Message, tt.contain)
			}
		})
	}
}

func TestQuotaWarningNoHealthy(t *testing.T) {
	p := NewKeyPool([]string{"key-a", "key-b", "key-c", "key-d", "key-e"}, 100)
	for _, k := range []string{"key-a", "key-b", "key-c", "key-d", "key-e"} {
		p.MarkError(k)
		p.MarkError(k)
		p.MarkError(k)
	}
	w := p.QuotaWarning()
	if !w.Warning || !strings.Contains(w.Message, "no healthy") {
		t.Errorf("got %+v", w)
	}
}

func TestKeyPrefixHidesKey(t *testing.T) {
	p := NewKeyPool([]string{"AIzaSyVerySecretKey"}, 100)
	if got := p.Stats().Keys[0].KeyPrefix; got != "AIzaSyVe..." {
		t.Errorf("KeyPrefix = %q", got)
	}
}

func TestIsQuotaExceeded(t *testing.T) {
	tests := []struct {
		body string
		want bool
	}{
		{`{"error":{"errors":[{"reason":"quotaExceeded"}]}}`, true},
		{"The request cannot be completed because you have exceeded your quota.", true},
		{"forbidden", false},
		{"quota ok", false},
	}
	for _, tt := range tests {
		if got := IsQuotaExceeded(tt.body); got != tt.want {
			t.Errorf("IsQuotaExceeded(%q) = %v, want %v", tt.body, got, tt.want)
		}
	}
}
