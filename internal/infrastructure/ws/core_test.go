package ws

import (
	"context"
	"testing"
	"time"

	"github.com/cephie-studios/pfcontrol-2-sub004/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(namespace, roomID, userID string) *Client {
	var user *domain.User
	if userID != "" {
		user = &domain.User{ID: userID, Username: "user-" + userID}
	}
	return NewClient(nil, namespace, roomID, user, ClientOptions{})
}

func runCore(t *testing.T) (*Core, context.CancelFunc) {
	t.Helper()
	core := NewCore(nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	go core.Run(ctx)
	t.Cleanup(cancel)
	return core, cancel
}

func receive(t *testing.T, c *Client) *WSMessage {
	t.Helper()
	select {
	case msg, ok := <-c.Message:
		require.True(t, ok, "channel closed")
		return msg
	case <-time.After(time.Second):
		t.Fatalf("client %s received nothing", c.ID)
		return nil
	}
}

func assertSilent(t *testing.T, c *Client) {
	t.Helper()
	select {
	case msg := <-c.Message:
		t.Fatalf("unexpected message %q for client %s", msg.Type, c.ID)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestCore_BroadcastStaysInRoom(t *testing.T) {
	core, _ := runCore(t)
	ctx := context.Background()

	a := newTestClient(NamespaceFlights, FlightsRoom("abc12345"), "1")
	b := newTestClient(NamespaceFlights, FlightsRoom("abc12345"), "2")
	other := newTestClient(NamespaceFlights, FlightsRoom("zzz99999"), "3")
	for _, c := range []*Client{a, b, other} {
		require.NoError(t, core.Register(ctx, c))
	}

	core.Publish(NewEvent(FlightAdded, FlightsRoom("abc12345"), map[string]string{"id": "f1"}))

	assert.Equal(t, FlightAdded, receive(t, a).Type)
	assert.Equal(t, FlightAdded, receive(t, b).Type)
	assertSilent(t, other)
}

func TestCore_AudienceNarrowsRoomBroadcast(t *testing.T) {
	core, _ := runCore(t)
	ctx := context.Background()
	room := FlightsRoom("abc12345")

	ctrl := newTestClient(NamespaceFlights, room, "")
	ctrl.Controller = true
	filer := newTestClient(NamespaceFlights, room, "1")
	stranger := newTestClient(NamespaceFlights, room, "2")
	anon := newTestClient(NamespaceFlights, room, "")
	for _, c := range []*Client{ctrl, filer, stranger, anon} {
		require.NoError(t, core.Register(ctx, c))
	}

	core.Publish(NewEvent(FlightUpdated, room, nil).To(ControllersAnd("1")))
	assert.Equal(t, FlightUpdated, receive(t, ctrl).Type)
	assert.Equal(t, FlightUpdated, receive(t, filer).Type)
	assertSilent(t, stranger)
	assertSilent(t, anon)

	core.Publish(NewEvent(FlightDeleted, room, nil).To(ControllersAnd("")))
	assert.Equal(t, FlightDeleted, receive(t, ctrl).Type)
	assertSilent(t, anon)
}

func TestCore_UnregisterClosesQueue(t *testing.T) {
	core, _ := runCore(t)
	ctx := context.Background()

	c := newTestClient(NamespaceChat, ChatRoom("abc12345"), "1")
	require.NoError(t, core.Register(ctx, c))
	core.Unregister(ctx, c)

	require.Eventually(t, c.Closed, time.Second, 5*time.Millisecond)
	_, ok := <-c.Message
	assert.False(t, ok)
	assert.False(t, c.Send(NewEvent(ChatMessage, c.RoomID, nil)))
	assert.Zero(t, core.Rooms().Count(ChatRoom("abc12345")))
}

func TestCore_SendToUserScopedByNamespace(t *testing.T) {
	core, _ := runCore(t)
	ctx := context.Background()

	chat := newTestClient(NamespaceChat, ChatRoom("abc12345"), "42")
	global := newTestClient(NamespaceGlobalChat, GlobalChatRoom, "42")
	stranger := newTestClient(NamespaceGlobalChat, GlobalChatRoom, "7")
	for _, c := range []*Client{chat, global, stranger} {
		require.NoError(t, core.Register(ctx, c))
	}

	core.SendToUser(NamespaceGlobalChat, "42", NewEvent(GlobalChatMention, GlobalChatRoom, nil))

	assert.Equal(t, GlobalChatMention, receive(t, global).Type)
	assertSilent(t, chat)
	assertSilent(t, stranger)
}

func TestCore_ShutdownClosesClients(t *testing.T) {
	core, cancel := runCore(t)
	c := newTestClient(NamespaceOverview, OverviewRoom, "")
	require.NoError(t, core.Register(context.Background(), c))

	cancel()
	require.Eventually(t, c.Closed, time.Second, 5*time.Millisecond)
}

func TestRoomManager_SlowClientDropsInsteadOfBlocking(t *testing.T) {
	rm := NewRoomManager(nil, nil)
	slow := newTestClient(NamespaceFlights, FlightsRoom("abc12345"), "1")
	rm.AddClient(slow)

	for i := 0; i < sendBuffer+10; i++ {
		require.NoError(t, rm.BroadcastToRoom(NewEvent(FlightUpdated, FlightsRoom("abc12345"), i)))
	}
	assert.Len(t, slow.Message, sendBuffer)
	assert.ErrorIs(t, rm.BroadcastToRoom(NewEvent(FlightUpdated, "flights:nobody00", nil)), ErrRoomNotFound)
}

func TestInboundMessage_Decode(t *testing.T) {
	msg := InboundMessage{Type: AddFlight, Data: []byte(`{"callsign":"DLH4AB"}`)}
	var dst struct {
		Callsign string `json:"callsign"`
	}
	require.NoError(t, msg.Decode(&dst))
	assert.Equal(t, "DLH4AB", dst.Callsign)

	empty := InboundMessage{Type: RequestPDC}
	require.NoError(t, empty.Decode(&dst))
}

type leaveRecorder struct{ left []string }

func (l *leaveRecorder) Dispatch(context.Context, *Client, *InboundMessage) {}
func (l *leaveRecorder) Leave(_ context.Context, c *Client)                 { l.left = append(l.left, c.ID) }

func TestDetach_ReturnsWhenCoreHasStopped(t *testing.T) {
	old := unregisterWait
	unregisterWait = 20 * time.Millisecond
	t.Cleanup(func() { unregisterWait = old })

	core, cancel := runCore(t)
	c := newTestClient(NamespaceChat, ChatRoom("abc12345"), "1")
	require.NoError(t, core.Register(context.Background(), c))
	cancel()

	// the request context is still live, only Core is gone
	reqCtx, reqCancel := context.WithCancel(context.Background())
	defer reqCancel()

	d := &leaveRecorder{}
	done := make(chan struct{})
	go func() {
		c.detach(reqCtx, core, d)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("detach blocked on a stopped core")
	}
	assert.Equal(t, []string{c.ID}, d.left)
}

func TestDetach_RemovesFromRoom(t *testing.T) {
	core, _ := runCore(t)
	room := ChatRoom("abc12345")
	c := newTestClient(NamespaceChat, room, "1")
	require.NoError(t, core.Register(context.Background(), c))
	require.Eventually(t, func() bool { return core.Rooms().Count(room) == 1 }, time.Second, 5*time.Millisecond)

	reqCtx, reqCancel := context.WithCancel(context.Background())
	reqCancel()
	c.detach(reqCtx, core, &leaveRecorder{})

	require.Eventually(t, func() bool { return core.Rooms().Count(room) == 0 }, time.Second, 5*time.Millisecond)
}
