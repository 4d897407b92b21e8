package limiter

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

var (
	ErrRateLimited = errors.New("too many requests")
	ErrBusy        = errors.New("too many concurrent downloads")
)

// Config controls admission. Zero values disable the respective check.
type Config struct {
	MaxConcurrent int64
	Rate          float64 // per-client requests per second
	Burst         int
	IdleTTL       time.Duration
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter bounds in-flight downloads globally and request rate per client.
type Limiter struct {
	sem     *semaphore.Weighted
	rate    rate.Limit
	burst   int
	idleTTL time.Duration

	mu      sync.Mutex
	clients map[string]*clientLimiter
	now     func() time.Time
}

// New creates a Limiter from cfg.
func New(cfg Config) *Limiter {
	l := &Limiter{
		rate:    rate.Limit(cfg.Rate),
		burst:   cfg.Burst,
		idleTTL: cfg.IdleTTL,
		clients: make(map[string]*clientLimiter),
		now:     time.Now,
	}

	if cfg.MaxConcurrent > 0 {
		l.sem = semaphore.NewWeighted(cfg.MaxConcurrent)
	}
	if l.burst <= 0 {
		l.burst = 1
	}
	if l.idleTTL <= 0 {
		l.idleTTL = 10 * time.Minute
	}

	return l
}

// Acquire admits one download for clientID. The returned release func must be
// called once the download finishes.
func (l *Limiter) Acquire(ctx context.Context, clientID string) (func(), error) {
	if l.rate > 0 && !l.allow(clientID) {
		return nil, ErrRateLimited
	}

	if l.sem == nil {
		return func() {}, nil
	}

	if err := l.sem.Acquire(ctx, 1); err != nil {
		return nil, ErrBusy
	}

	var once sync.Once
	return func() {
		once.Do(func() { l.sem.Release(1) })
	}, nil
}

func (l *Limiter) allow(clientID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.evictIdle(now)

	cl, ok := l.clients[clientID]
	if !ok {
		cl = &clientLimiter{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.clients[clientID] = cl
	}
	cl.lastSeen = now

	return cl.limiter.AllowN(now, 1)
}

func (l *Limiter) evictIdle(now time.Time) {
	for id, cl := range l.clients {
		if now.Sub(cl.lastSeen) > l.idleTTL {
			delete(l.clients, id)
		}
	}
}
