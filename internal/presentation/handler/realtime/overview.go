package realtime

import (
	"context"
	"sync"
	"time"

	"github.com/cephie-studios/pfcontrol-2-sub004/internal/application/usecases/overview"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/infrastructure/logging"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/infrastructure/ws"
	"go.uber.org/zap"
)

const (
	DefaultOverviewInterval = 30 * time.Second
	overviewDebounce        = time.Second
)

// OverviewBroadcaster rebuilds the overview snapshot on a timer and shortly
// after a change is signalled, and pushes it to the overview room.
type OverviewBroadcaster struct {
	core     *ws.Core
	uc       overview.OverviewUseCase
	interval time.Duration
	debounce time.Duration
	notify   chan struct{}
	logger   *zap.Logger

	mu     sync.RWMutex
	latest *overview.Snapshot
}

func NewOverviewBroadcaster(core *ws.Core, uc overview.OverviewUseCase, interval time.Duration, logger *zap.Logger) *OverviewBroadcaster {
	if interval <= 0 {
		interval = DefaultOverviewInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OverviewBroadcaster{
		core:     core,
		uc:       uc,
		interval: interval,
		debounce: overviewDebounce,
		notify:   make(chan struct{}, 1),
		logger:   logger,
	}
}

// Notify never blocks; bursts collapse into one refresh.
func (b *OverviewBroadcaster) Notify() {
	if b == nil {
		return
	}
	select {
	case b.notify <- struct{}{}:
	default:
	}
}

func (b *OverviewBroadcaster) Serve(ctx context.Context) error {
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	var (
		debounce *time.Timer
		fire     <-chan time.Time
	)
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	b.refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			b.refresh(ctx)
		case <-b.notify:
			if fire != nil {
				continue
			}
			debounce = time.NewTimer(b.debounce)
			fire = debounce.C
		case <-fire:
			fire = nil
			b.refresh(ctx)
		}
	}
}

func (b *OverviewBroadcaster) refresh(ctx context.Context) {
	snap, err := b.uc.Build(ctx)
	if err != nil {
		b.logger.Warn("Failed to build overview",
			logging.Fields(logging.WebSocket, logging.Broadcast, map[logging.ExtraKey]any{
				logging.ErrorMessage: err.Error(),
			})...)
		return
	}

	b.mu.Lock()
	b.latest = snap
	b.mu.Unlock()

	if b.core.Rooms().Count(ws.OverviewRoom) > 0 {
		b.core.Publish(ws.NewEvent(ws.OverviewData, ws.OverviewRoom, snap))
	}
}

// Latest returns the cached snapshot, building one on first use.
func (b *OverviewBroadcaster) Latest(ctx context.Context) (*overview.Snapshot, error) {
	b.mu.RLock()
	snap := b.latest
	b.mu.RUnlock()
	if snap != nil {
		return snap, nil
	}

	snap, err := b.uc.Build(ctx)
	if err != nil {
		return nil, err
	}
	b.mu.Lock()
	b.latest = snap
	b.mu.Unlock()
	return snap, nil
}

type overviewDispatcher struct {
	h *Handler
}

func (d *overviewDispatcher) Join(ctx context.Context, c *ws.Client) {
	snap, err := d.h.overview.Latest(ctx)
	if err != nil {
		c.Send(ws.NewError(c.RoomID, "Overview unavailable"))
		return
	}
	c.Send(ws.NewEvent(ws.OverviewData, c.RoomID, snap))
}

func (d *overviewDispatcher) Leave(context.Context, *ws.Client) {}

func (d *overviewDispatcher) Dispatch(_ context.Context, c *ws.Client, msg *ws.InboundMessage) {
	c.Send(ws.NewError(c.RoomID, "Overview is read-only: "+msg.Type))
}
