package ratelimiter

import (
	"context"
	"sync"
	"time"
)

// InMemory is the process-local sliding window used when Redis is not
// configured. State is lost on restart.
type InMemory struct {
	opts        Options
	logs        sync.Map // string -> *hitLog
	now         func() time.Time
	cleanupTick *time.Ticker
	done        chan struct{}
	closeOnce   sync.Once
}

type hitLog struct {
	mu           sync.Mutex
	hits         []time.Time
	blockedUntil time.Time
}

func NewInMemory(opts Options) *InMemory {
	opts = opts.withDefaults()
	rl := &InMemory{
		opts:        opts,
		now:         time.Now,
		cleanupTick: time.NewTicker(opts.Window),
		done:        make(chan struct{}),
	}
	go rl.startCleanup()
	return rl
}

func (rl *InMemory) Allow(_ context.Context, key string) (Decision, error) {
	now := rl.now()

	val, _ := rl.logs.LoadOrStore(key, &hitLog{})
	log := val.(*hitLog)

	log.mu.Lock()
	defer log.mu.Unlock()

	if now.Before(log.blockedUntil) {
		return Decision{Allowed: false, Limit: rl.opts.Limit, RetryAfter: log.blockedUntil.Sub(now)}, nil
	}

	log.prune(now.Add(-rl.opts.Window))

	if len(log.hits) >= rl.opts.Limit {
		log.blockedUntil = now.Add(rl.opts.BlockDuration)
		return Decision{Allowed: false, Limit: rl.opts.Limit, RetryAfter: rl.opts.BlockDuration}, nil
	}

	log.hits = append(log.hits, now)
	return Decision{
		Allowed:   true,
		Limit:     rl.opts.Limit,
		Remaining: rl.opts.Limit - len(log.hits),
	}, nil
}

func (l *hitLog) prune(windowStart time.Time) {
	keep := 0
	for _, t := range l.hits {
		if t.After(windowStart) {
			l.hits[keep] = t
			keep++
		}
	}
	l.hits = l.hits[:keep]
}

func (rl *InMemory) startCleanup() {
	for {
		select {
		case <-rl.cleanupTick.C:
			rl.cleanup()
		case <-rl.done:
			return
		}
	}
}

func (rl *InMemory) cleanup() {
	now := rl.now()
	windowStart := now.Add(-rl.opts.Window)

	rl.logs.Range(func(key, value any) bool {
		log := value.(*hitLog)
		log.mu.Lock()
		log.prune(windowStart)
		idle := len(log.hits) == 0 && !now.Before(log.blockedUntil)
		log.mu.Unlock()

		if idle {
			rl.logs.Delete(key)
		}
		return true
	})
}

func (rl *InMemory) Close() {
	rl.closeOnce.Do(func() {
		close(rl.done)
		rl.cleanupTick.Stop()
	})
}
