// Package backpressure limits how fast each client may submit valuation work.
package backpressure

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/rzzdr/swap-aad-risk/pkg/utils/logger"
)

// ClientLimiter keeps one token bucket per client key. Buckets of clients
// that stay idle for longer than the idle timeout are dropped.
type ClientLimiter struct {
	limit     rate.Limit
	burst     int
	idle      time.Duration
	clients   map[string]*bucket
	lastSweep time.Time
	now       func() time.Time
	mu        sync.Mutex
	log       *logger.Logger
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewClientLimiter allows each client rps requests per second with bursts of burst
func NewClientLimiter(rps float64, burst int, idle time.Duration) *ClientLimiter {
	if rps <= 0 {
		rps = 1
	}
	if burst <= 0 {
		burst = 1
	}
	if idle <= 0 {
		idle = 10 * time.Minute
	}

	l := &ClientLimiter{
		limit:   rate.Limit(rps),
		burst:   burst,
		idle:    idle,
		clients: make(map[string]*bucket),
		now:     time.Now,
		log:     logger.GetLogger("backpressure.limiter"),
	}
	l.lastSweep = l.now()

	l.log.Infof("Client rate limiter created with rate=%.2f, burst=%d", rps, burst)
	return l
}

// Allow reports whether client may proceed now and consumes a token if so
func (l *ClientLimiter) Allow(client string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) >= l.idle {
		l.sweep(now)
	}

	b, ok := l.clients[client]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[client] = b
	}
	b.lastSeen = now

	return b.limiter.AllowN(now, 1)
}

// Clients returns the number of tracked clients
func (l *ClientLimiter) Clients() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

func (l *ClientLimiter) sweep(now time.Time) {
	for key, b := range l.clients {
		if now.Sub(b.lastSeen) >= l.idle {
			delete(l.clients, key)
		}
	}
	l.lastSweep = now
}
