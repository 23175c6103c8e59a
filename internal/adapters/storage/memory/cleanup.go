package memory

import (
	"context"
	"sync"
	"time"

	"github.com/avadhbsd/DevinKitMCP/internal/observability"
)

const (
	DefaultConversationTTL = time.Hour
	DefaultCleanupInterval = time.Minute
)

// Janitor periodically evicts conversations that have gone stale.
type Janitor struct {
	store    *ConversationStore
	ttl      time.Duration
	interval time.Duration

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

// NewJanitor creates a janitor that removes conversations untouched for ttl,
// sweeping every interval. Non-positive values fall back to the defaults.
func NewJanitor(store *ConversationStore, ttl, interval time.Duration) *Janitor {
	if ttl <= 0 {
		ttl = DefaultConversationTTL
	}
	if interval <= 0 {
		interval = DefaultCleanupInterval
	}
	return &Janitor{store: store, ttl: ttl, interval: interval}
}

// Start begins the sweep loop. Calling Start on a running janitor is a no-op.
func (j *Janitor) Start(ctx context.Context) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.running {
		return
	}

	sweepCtx, cancel := context.WithCancel(ctx)
	j.cancel = cancel
	j.done = make(chan struct{})
	j.running = true

	go j.run(sweepCtx, j.done)
}

// Stop cancels the loop and waits for the in-flight sweep to finish.
func (j *Janitor) Stop() {
	j.mu.Lock()
	if !j.running {
		j.mu.Unlock()
		return
	}
	cancel := j.cancel
	done := j.done
	j.running = false
	j.mu.Unlock()

	cancel()
	<-done
}

func (j *Janitor) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	log := observability.WithComponent("janitor")
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := j.store.EvictOlderThan(j.ttl); n > 0 {
				log.Info("evicted stale conversations", "count", n)
			}
		}
	}
}
