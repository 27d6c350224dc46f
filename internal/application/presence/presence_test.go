package presence

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTracker(t *testing.T) (*Tracker, *time.Time) {
	t.Helper()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	tr := NewTracker(Options{InactivityTimeout: 5 * time.Minute}, nil)
	tr.now = func() time.Time { return now }
	return tr, &now
}

func TestSessionChat_RefCountsConnections(t *testing.T) {
	tr, _ := newTracker(t)

	var changes []Change
	tr.OnChange(func(c Change) { changes = append(changes, c) })

	assert.True(t, tr.JoinSessionChat("abc12345", "u1"))
	assert.False(t, tr.JoinSessionChat("abc12345", "u1"))
	assert.True(t, tr.JoinSessionChat("abc12345", "u2"))
	assert.Equal(t, []string{"u1", "u2"}, tr.ActiveSessionChatUsers("abc12345"))

	assert.False(t, tr.LeaveSessionChat("abc12345", "u1"))
	assert.Equal(t, []string{"u1", "u2"}, tr.ActiveSessionChatUsers("abc12345"))
	assert.True(t, tr.LeaveSessionChat("abc12345", "u1"))
	assert.Equal(t, []string{"u2"}, tr.ActiveSessionChatUsers("abc12345"))

	assert.Empty(t, tr.ActiveSessionChatUsers("zzz99999"))
	assert.Len(t, changes, 3)
	for _, c := range changes {
		assert.Equal(t, SessionChatChanged, c.Kind)
		assert.Equal(t, "abc12345", c.SessionID)
	}
}

func TestGlobalChat_OpenClose(t *testing.T) {
	tr, _ := newTracker(t)

	tr.ConnectGlobal(GlobalUser{UserID: "u1", Username: "alice", Station: "EFKT"})
	tr.ConnectGlobal(GlobalUser{UserID: "u2", Username: "bob"})

	assert.True(t, tr.OpenGlobalChat("u1"))
	assert.False(t, tr.OpenGlobalChat("u1"))
	assert.False(t, tr.OpenGlobalChat("nobody"))

	connected, active := tr.GlobalUsers()
	require.Len(t, connected, 2)
	require.Len(t, active, 1)
	assert.Equal(t, "alice", active[0].Username)
	assert.Equal(t, "EFKT", active[0].Station)

	assert.True(t, tr.CloseGlobalChat("u1"))
	_, active = tr.GlobalUsers()
	assert.Empty(t, active)

	tr.DisconnectGlobal("u2")
	connected, _ = tr.GlobalUsers()
	assert.Len(t, connected, 1)
}

func TestSweep_PurgesStaleGlobalUsers(t *testing.T) {
	tr, now := newTracker(t)

	tr.ConnectGlobal(GlobalUser{UserID: "stale", Username: "old"})
	*now = now.Add(4 * time.Minute)
	tr.ConnectGlobal(GlobalUser{UserID: "fresh", Username: "new"})

	assert.Equal(t, 1, tr.Sweep(now.Add(2*time.Minute)))
	connected, _ := tr.GlobalUsers()
	require.Len(t, connected, 1)
	assert.Equal(t, "fresh", connected[0].UserID)

	// a purged user comes back on the next activity
	tr.TouchGlobal(GlobalUser{UserID: "stale", Username: "old"})
	connected, _ = tr.GlobalUsers()
	assert.Len(t, connected, 2)
}

func TestSweep_KeepsConnectionCountOfIdleUsers(t *testing.T) {
	tr, now := newTracker(t)

	tr.ConnectGlobal(GlobalUser{UserID: "u1", Username: "amy"})
	tr.ConnectGlobal(GlobalUser{UserID: "u1", Username: "amy"})
	tr.OpenGlobalChat("u1")

	*now = now.Add(10 * time.Minute)
	assert.Equal(t, 1, tr.Sweep(*now))
	assert.Zero(t, tr.Sweep(*now))
	connected, active := tr.GlobalUsers()
	assert.Empty(t, connected)
	assert.Empty(t, active)

	tr.TouchGlobal(GlobalUser{UserID: "u1", Username: "amy"})
	connected, _ = tr.GlobalUsers()
	require.Len(t, connected, 1)

	// one of two tabs closes, the other is still there
	tr.DisconnectGlobal("u1")
	connected, _ = tr.GlobalUsers()
	require.Len(t, connected, 1)

	tr.DisconnectGlobal("u1")
	connected, _ = tr.GlobalUsers()
	assert.Empty(t, connected)
}

func TestControllers(t *testing.T) {
	tr, _ := newTracker(t)

	tr.AddController("abc12345", Controller{UserID: "u2", Username: "zed"})
	tr.AddController("abc12345", Controller{UserID: "u1", Username: "amy"})
	tr.AddController("abc12345", Controller{UserID: "u1", Username: "amy"})

	roster := tr.Controllers("abc12345")
	require.Len(t, roster, 2)
	assert.Equal(t, "amy", roster[0].Username)

	tr.RemoveController("abc12345", "u1")
	assert.Len(t, tr.Controllers("abc12345"), 2)
	tr.RemoveController("abc12345", "u1")
	assert.Len(t, tr.Controllers("abc12345"), 1)

	tr.ForgetSession("abc12345")
	assert.Empty(t, tr.Controllers("abc12345"))
}

func TestTracker_ConcurrentAccess(t *testing.T) {
	tr, _ := newTracker(t)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr.JoinSessionChat("abc12345", "u1")
			tr.AddController("abc12345", Controller{UserID: "u1"})
			_ = tr.ActiveSessionChatUsers("abc12345")
			tr.LeaveSessionChat("abc12345", "u1")
			tr.RemoveController("abc12345", "u1")
		}()
	}
	wg.Wait()

	assert.Empty(t, tr.ActiveSessionChatUsers("abc12345"))
	assert.Empty(t, tr.Controllers("abc12345"))
}
