package meter

import (
	"sync"
	"time"
)

type concurrentTimer struct {
	at time.Time
	mu sync.RWMutex
}

func (t *concurrentTimer) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.at = time.Now()
}

func (t *concurrentTimer) Elapsed() time.Duration {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return time.Since(t.at)
}
