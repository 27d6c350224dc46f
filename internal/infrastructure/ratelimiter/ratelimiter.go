package ratelimiter

import (
	"context"
	"time"
)

type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// Limiter counts hits per key over a sliding window. Keys that exceed the
// limit are blocked for BlockDuration (or the window when unset).
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

type Options struct {
	Name          string
	Limit         int
	Window        time.Duration
	BlockDuration time.Duration
}

func (o Options) withDefaults() Options {
	if o.Limit <= 0 {
		o.Limit = 1
	}
	if o.Window <= 0 {
		o.Window = time.Minute
	}
	if o.BlockDuration <= 0 {
		o.BlockDuration = o.Window
	}
	if o.Name == "" {
		o.Name = "default"
	}
	return o
}
