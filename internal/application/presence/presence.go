package presence

import (
	"context"
	"sort"
	"sync"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"go.uber.org/zap"
)

const (
	DefaultInactivityTimeout = 5 * time.Minute
	DefaultSweepInterval     = time.Minute
)

type ChangeKind string

const (
	SessionChatChanged ChangeKind = "session_chat"
	GlobalChatChanged  ChangeKind = "global_chat"
	ControllersChanged ChangeKind = "controllers"
)

type Change struct {
	Kind      ChangeKind
	SessionID string
}

type GlobalUser struct {
	UserID   string    `json:"userId"`
	Username string    `json:"username"`
	Avatar   string    `json:"avatar,omitempty"`
	Station  string    `json:"station,omitempty"`
	Position string    `json:"position,omitempty"`
	Open     bool      `json:"open"`
	LastSeen time.Time `json:"lastSeen"`
}

type Controller struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Avatar   string `json:"avatar,omitempty"`
}

// globalEntry outlives an inactivity sweep while connections remain; a
// stale entry is hidden until the user shows activity again.
type globalEntry struct {
	GlobalUser
	conns int
	stale bool
}

type controllerEntry struct {
	Controller
	conns int
}

type Options struct {
	InactivityTimeout time.Duration
	SweepInterval     time.Duration
}

// Tracker is the process-local view of who is connected where. It is
// rebuilt from scratch on restart.
type Tracker struct {
	mu          sync.RWMutex
	sessionChat map[string]mapset.Set[string]
	chatConns   map[string]map[string]int
	global      map[string]*globalEntry
	controllers map[string]map[string]*controllerEntry

	listenersMu sync.RWMutex
	listeners   []func(Change)

	timeout  time.Duration
	interval time.Duration
	now      func() time.Time
	logger   *zap.Logger
}

func NewTracker(opts Options, logger *zap.Logger) *Tracker {
	if opts.InactivityTimeout <= 0 {
		opts.InactivityTimeout = DefaultInactivityTimeout
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = DefaultSweepInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracker{
		sessionChat: make(map[string]mapset.Set[string]),
		chatConns:   make(map[string]map[string]int),
		global:      make(map[string]*globalEntry),
		controllers: make(map[string]map[string]*controllerEntry),
		timeout:     opts.InactivityTimeout,
		interval:    opts.SweepInterval,
		now:         time.Now,
		logger:      logger,
	}
}

// OnChange registers fn to be called after every membership change.
// Listeners run on the goroutine that caused the change.
func (t *Tracker) OnChange(fn func(Change)) {
	t.listenersMu.Lock()
	defer t.listenersMu.Unlock()
	t.listeners = append(t.listeners, fn)
}

func (t *Tracker) notify(changes ...Change) {
	t.listenersMu.RLock()
	listeners := append([]func(Change){}, t.listeners...)
	t.listenersMu.RUnlock()

	for _, c := range changes {
		for _, fn := range listeners {
			fn(c)
		}
	}
}

func (t *Tracker) JoinSessionChat(sessionID, userID string) bool {
	if sessionID == "" || userID == "" {
		return false
	}

	t.mu.Lock()
	conns, ok := t.chatConns[sessionID]
	if !ok {
		conns = make(map[string]int)
		t.chatConns[sessionID] = conns
	}
	conns[userID]++

	set, ok := t.sessionChat[sessionID]
	if !ok {
		set = mapset.NewThreadUnsafeSet[string]()
		t.sessionChat[sessionID] = set
	}
	added := set.Add(userID)
	t.mu.Unlock()

	if added {
		t.notify(Change{Kind: SessionChatChanged, SessionID: sessionID})
	}
	return added
}

// LeaveSessionChat drops one connection of userID. The user leaves the
// set when their last connection goes.
func (t *Tracker) LeaveSessionChat(sessionID, userID string) bool {
	t.mu.Lock()
	conns, ok := t.chatConns[sessionID]
	if !ok || conns[userID] == 0 {
		t.mu.Unlock()
		return false
	}

	conns[userID]--
	removed := false
	if conns[userID] == 0 {
		delete(conns, userID)
		if set, ok := t.sessionChat[sessionID]; ok {
			set.Remove(userID)
			removed = true
			if set.Cardinality() == 0 {
				delete(t.sessionChat, sessionID)
			}
		}
	}
	if len(conns) == 0 {
		delete(t.chatConns, sessionID)
	}
	t.mu.Unlock()

	if removed {
		t.notify(Change{Kind: SessionChatChanged, SessionID: sessionID})
	}
	return removed
}

func (t *Tracker) ActiveSessionChatUsers(sessionID string) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	set, ok := t.sessionChat[sessionID]
	if !ok {
		return []string{}
	}
	users := set.ToSlice()
	sort.Strings(users)
	return users
}

// ConnectGlobal records a global chat connection for u.
func (t *Tracker) ConnectGlobal(u GlobalUser) {
	if u.UserID == "" {
		return
	}

	t.mu.Lock()
	e, ok := t.global[u.UserID]
	if !ok {
		e = &globalEntry{}
		t.global[u.UserID] = e
	}
	open := e.Open
	e.GlobalUser = u
	e.Open = open
	e.LastSeen = t.now()
	e.stale = false
	e.conns++
	t.mu.Unlock()

	t.notify(Change{Kind: GlobalChatChanged})
}

func (t *Tracker) DisconnectGlobal(userID string) {
	t.mu.Lock()
	e, ok := t.global[userID]
	if !ok {
		t.mu.Unlock()
		return
	}
	e.conns--
	if e.conns <= 0 {
		delete(t.global, userID)
	}
	t.mu.Unlock()

	t.notify(Change{Kind: GlobalChatChanged})
}

func (t *Tracker) OpenGlobalChat(userID string) bool {
	return t.setOpen(userID, true)
}

func (t *Tracker) CloseGlobalChat(userID string) bool {
	return t.setOpen(userID, false)
}

func (t *Tracker) setOpen(userID string, open bool) bool {
	t.mu.Lock()
	e, ok := t.global[userID]
	if !ok {
		t.mu.Unlock()
		return false
	}
	changed := e.Open != open || e.stale
	e.Open = open
	e.LastSeen = t.now()
	e.stale = false
	t.mu.Unlock()

	if changed {
		t.notify(Change{Kind: GlobalChatChanged})
	}
	return changed
}

// TouchGlobal refreshes lastSeen and the station details of u. A user
// hidden by the sweep is shown again.
func (t *Tracker) TouchGlobal(u GlobalUser) {
	if u.UserID == "" {
		return
	}

	t.mu.Lock()
	e, ok := t.global[u.UserID]
	if !ok {
		e = &globalEntry{GlobalUser: u, conns: 1}
		t.global[u.UserID] = e
	}
	if u.Station != "" {
		e.Station = u.Station
	}
	if u.Position != "" {
		e.Position = u.Position
	}
	e.LastSeen = t.now()
	revived := ok && e.stale
	e.stale = false
	t.mu.Unlock()

	if !ok || revived {
		t.notify(Change{Kind: GlobalChatChanged})
	}
}

// GlobalUsers returns every connected user and the subset that has the
// chat panel open.
func (t *Tracker) GlobalUsers() (connected, active []GlobalUser) {
	t.mu.RLock()
	connected = make([]GlobalUser, 0, len(t.global))
	active = make([]GlobalUser, 0)
	for _, e := range t.global {
		if e.stale {
			continue
		}
		connected = append(connected, e.GlobalUser)
		if e.Open {
			active = append(active, e.GlobalUser)
		}
	}
	t.mu.RUnlock()

	byName := func(list []GlobalUser) {
		sort.Slice(list, func(i, j int) bool { return list[i].Username < list[j].Username })
	}
	byName(connected)
	byName(active)
	return connected, active
}

func (t *Tracker) AddController(sessionID string, c Controller) {
	if sessionID == "" || c.UserID == "" {
		return
	}

	t.mu.Lock()
	roster, ok := t.controllers[sessionID]
	if !ok {
		roster = make(map[string]*controllerEntry)
		t.controllers[sessionID] = roster
	}
	e, ok := roster[c.UserID]
	if !ok {
		e = &controllerEntry{Controller: c}
		roster[c.UserID] = e
	}
	e.conns++
	t.mu.Unlock()

	if !ok {
		t.notify(Change{Kind: ControllersChanged, SessionID: sessionID})
	}
}

func (t *Tracker) RemoveController(sessionID, userID string) {
	t.mu.Lock()
	roster, ok := t.controllers[sessionID]
	if !ok {
		t.mu.Unlock()
		return
	}
	e, ok := roster[userID]
	if !ok {
		t.mu.Unlock()
		return
	}
	e.conns--
	removed := e.conns <= 0
	if removed {
		delete(roster, userID)
		if len(roster) == 0 {
			delete(t.controllers, sessionID)
		}
	}
	t.mu.Unlock()

	if removed {
		t.notify(Change{Kind: ControllersChanged, SessionID: sessionID})
	}
}

func (t *Tracker) Controllers(sessionID string) []Controller {
	t.mu.RLock()
	roster := t.controllers[sessionID]
	out := make([]Controller, 0, len(roster))
	for _, e := range roster {
		out = append(out, e.Controller)
	}
	t.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out
}

// ForgetSession drops all presence for a deleted session.
func (t *Tracker) ForgetSession(sessionID string) {
	t.mu.Lock()
	_, hadChat := t.sessionChat[sessionID]
	_, hadControllers := t.controllers[sessionID]
	delete(t.sessionChat, sessionID)
	delete(t.chatConns, sessionID)
	delete(t.controllers, sessionID)
	t.mu.Unlock()

	var changes []Change
	if hadChat {
		changes = append(changes, Change{Kind: SessionChatChanged, SessionID: sessionID})
	}
	if hadControllers {
		changes = append(changes, Change{Kind: ControllersChanged, SessionID: sessionID})
	}
	t.notify(changes...)
}

// Sweep hides global chat users not seen since now minus the inactivity
// timeout. Their connection count is kept so the last disconnect still
// removes them. It returns the number of newly hidden users.
func (t *Tracker) Sweep(now time.Time) int {
	cutoff := now.Add(-t.timeout)

	t.mu.Lock()
	purged := 0
	for id, e := range t.global {
		if e.conns <= 0 {
			delete(t.global, id)
			continue
		}
		if !e.stale && e.LastSeen.Before(cutoff) {
			e.stale = true
			e.Open = false
			purged++
		}
	}
	t.mu.Unlock()

	if purged > 0 {
		t.logger.Debug("purged stale presence", zap.Int("count", purged))
		t.notify(Change{Kind: GlobalChatChanged})
	}
	return purged
}

func (t *Tracker) Serve(ctx context.Context) error {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			t.Sweep(t.now())
		}
	}
}
