// Presence and fan-out hub tests in Mechat.

package relay

import (
	"Mechat/internal/entity"
	"Mechat/pkg/log"
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeHandle records every envelope pushed to it.
type fakeHandle struct {
	id   string
	user string

	mu     sync.Mutex
	got    []entity.Envelope
	full   bool
	closed bool
}

var handleSeq atomic.Int64

func newFakeHandle(user string) *fakeHandle {
	return &fakeHandle{id: fmt.Sprintf("%s-%d", user, handleSeq.Add(1)), user: user}
}

func (f *fakeHandle) ID() string     { return f.id }
func (f *fakeHandle) UserID() string { return f.user }

func (f *fakeHandle) Send(env entity.Envelope) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return errConnClosed
	}
	if f.full {
		return errQueueFull
	}
	f.got = append(f.got, env)
	return nil
}

func (f *fakeHandle) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

func (f *fakeHandle) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *fakeHandle) envelopes() []entity.Envelope {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]entity.Envelope(nil), f.got...)
}

// events returns the envelopes of kind received so far.
func (f *fakeHandle) events(kind entity.EventKind) []entity.Envelope {
	var out []entity.Envelope
	for _, env := range f.envelopes() {
		if env.Event == kind {
			out = append(out, env)
		}
	}
	return out
}

// startHub runs a hub until the test ends.
func startHub(t *testing.T, presence Repository) *Hub {
	hub := NewHub(logger, presence)
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		hub.Listen(ctx)
		close(stopped)
	}()
	t.Cleanup(func() {
		cancel()
		<-stopped
	})
	return hub
}

var ctx = context.Background()

func TestResolveHandlesUnknownUser(t *testing.T) {
	hub := startHub(t, nil)
	assert.Empty(t, hub.ResolveHandles(ctx, []string{"ghost"}))

	a := newFakeHandle("a")
	hub.RegisterConnection(ctx, "a", a)
	handles := hub.ResolveHandles(ctx, []string{"a", "ghost"})
	require.Len(t, handles, 1)
	assert.Equal(t, a, handles["a"])

	assert.Equal(t, 0, hub.Publish(ctx, []string{"ghost"}, entity.EventNewMessageAlert, entity.ChatPayload{ChatID: "c"}))
}

func TestLastConnectionWins(t *testing.T) {
	hub := startHub(t, nil)
	h1, h2 := newFakeHandle("u"), newFakeHandle("u")
	hub.RegisterConnection(ctx, "u", h1)
	hub.RegisterConnection(ctx, "u", h2)

	n := hub.Publish(ctx, []string{"u"}, entity.EventNewMessageAlert, entity.ChatPayload{ChatID: "c"})
	assert.Equal(t, 1, n)
	assert.Empty(t, h1.envelopes())
	assert.Len(t, h2.envelopes(), 1)
}

func TestUnregisterBroadcastsOnlineSet(t *testing.T) {
	hub := startHub(t, nil)
	a, b, c := newFakeHandle("a"), newFakeHandle("b"), newFakeHandle("c")
	hub.RegisterConnection(ctx, "a", a)
	hub.RegisterConnection(ctx, "b", b)
	hub.RegisterConnection(ctx, "c", c)
	hub.JoinChat(ctx, "a", nil)
	hub.JoinChat(ctx, "b", nil)
	assert.Equal(t, []string{"a", "b"}, hub.OnlineUsers(ctx))

	hub.UnregisterConnection(ctx, "a")

	// every remaining connection is told, chat membership does not matter
	for _, h := range []*fakeHandle{b, c} {
		got := h.events(entity.EventOnlineUsers)
		require.Len(t, got, 1)
		assert.Equal(t, []string{"b"}, got[0].Data)
	}
	assert.Empty(t, a.envelopes())
	assert.Empty(t, hub.ResolveHandles(ctx, []string{"a"}))

	// idempotent
	hub.UnregisterConnection(ctx, "a")
	assert.Len(t, b.events(entity.EventOnlineUsers), 1)
}

func TestReleaseSupersededHandle(t *testing.T) {
	hub := startHub(t, nil)
	h1, h2 := newFakeHandle("u"), newFakeHandle("u")
	hub.RegisterConnection(ctx, "u", h1)
	hub.RegisterConnection(ctx, "u", h2)

	// the old connection closing does not evict the new one
	assert.False(t, hub.Release(ctx, h1))
	assert.Equal(t, h2, hub.ResolveHandles(ctx, []string{"u"})["u"])

	assert.True(t, hub.Release(ctx, h2))
	assert.Empty(t, hub.ResolveHandles(ctx, []string{"u"}))
}

func TestPublishExceptSender(t *testing.T) {
	hub := startHub(t, nil)
	a, b := newFakeHandle("a"), newFakeHandle("b")
	hub.RegisterConnection(ctx, "a", a)
	hub.RegisterConnection(ctx, "b", b)

	n := hub.PublishExcept(ctx, []string{"a", "b"}, "a", entity.EventStartTyping, entity.ChatPayload{ChatID: "c"})
	assert.Equal(t, 1, n)
	assert.Empty(t, a.envelopes())
	assert.Equal(t, []entity.Envelope{{Event: entity.EventStartTyping, Data: entity.ChatPayload{ChatID: "c"}}}, b.envelopes())
}

func TestPublishDeduplicatesRecipients(t *testing.T) {
	hub := startHub(t, nil)
	a, b := newFakeHandle("a"), newFakeHandle("b")
	hub.RegisterConnection(ctx, "a", a)
	hub.RegisterConnection(ctx, "b", b)

	n := hub.Publish(ctx, []string{"a", "a", "b", "ghost"}, entity.EventNewMessageAlert, entity.ChatPayload{ChatID: "c"})
	assert.Equal(t, 2, n)
	assert.Len(t, a.envelopes(), 1)
	assert.Len(t, b.envelopes(), 1)
}

func TestPublishSkipsFullQueue(t *testing.T) {
	hub := startHub(t, nil)
	a, b := newFakeHandle("a"), newFakeHandle("b")
	b.full = true
	hub.RegisterConnection(ctx, "a", a)
	hub.RegisterConnection(ctx, "b", b)

	n := hub.Publish(ctx, []string{"a", "b"}, entity.EventNewMessageAlert, entity.ChatPayload{ChatID: "c"})
	assert.Equal(t, 1, n)
	assert.Empty(t, b.envelopes())
}

func TestJoinAndLeaveChat(t *testing.T) {
	hub := startHub(t, nil)
	a, b, outsider := newFakeHandle("a"), newFakeHandle("b"), newFakeHandle("z")
	hub.RegisterConnection(ctx, "a", a)
	hub.RegisterConnection(ctx, "b", b)
	hub.RegisterConnection(ctx, "z", outsider)

	hub.JoinChat(ctx, "b", []string{"a", "b"})
	hub.JoinChat(ctx, "a", []string{"a", "b"})
	got := b.events(entity.EventOnlineUsers)
	require.Len(t, got, 2)
	assert.Equal(t, []string{"a", "b"}, got[1].Data)

	hub.LeaveChat(ctx, "a", []string{"a", "b"})
	got = b.events(entity.EventOnlineUsers)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"b"}, got[2].Data)
	assert.Equal(t, []string{"b"}, hub.OnlineUsers(ctx))

	// not a member of the addressed chat
	assert.Empty(t, outsider.envelopes())
}

func TestHubStopClosesConnections(t *testing.T) {
	hub := NewHub(logger, nil)
	stopped := make(chan struct{})
	go func() {
		hub.Listen(context.Background())
		close(stopped)
	}()
	a := newFakeHandle("a")
	hub.RegisterConnection(ctx, "a", a)

	require.NoError(t, hub.Close(ctx))
	require.NoError(t, hub.Close(ctx))
	<-stopped
	assert.True(t, a.isClosed())

	// commands after stop return without effect
	assert.Equal(t, 0, hub.Publish(ctx, []string{"a"}, entity.EventNewMessageAlert, nil))
	assert.Empty(t, hub.ResolveHandles(ctx, []string{"a"}))
	assert.Empty(t, hub.OnlineUsers(ctx))
	assert.False(t, hub.Release(ctx, a))
}

func TestCommandHonoursContext(t *testing.T) {
	// never listening
	hub := NewHub(logger, nil)
	cctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		hub.RegisterConnection(cctx, "a", newFakeHandle("a"))
		hub.Publish(cctx, []string{"a"}, entity.EventNewMessageAlert, nil)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("commands blocked on a cancelled context")
	}
}

func TestHubConcurrentUse(t *testing.T) {
	hub := startHub(t, nil)
	const users = 20
	var wg sync.WaitGroup
	handles := make([]*fakeHandle, users)
	for i := 0; i < users; i++ {
		handles[i] = newFakeHandle(fmt.Sprintf("u%d", i))
	}
	members := make([]string, users)
	for i := range members {
		members[i] = fmt.Sprintf("u%d", i)
	}
	for i := 0; i < users; i++ {
		wg.Add(1)
		go func(h *fakeHandle) {
			defer wg.Done()
			hub.RegisterConnection(ctx, h.UserID(), h)
			hub.JoinChat(ctx, h.UserID(), nil)
			hub.Publish(ctx, members, entity.EventNewMessageAlert, entity.ChatPayload{ChatID: "c"})
		}(handles[i])
	}
	wg.Wait()
	assert.Len(t, hub.OnlineUsers(ctx), users)
	assert.Len(t, hub.ResolveHandles(ctx, members), users)
}

// fakePresence records mirror writes.
type fakePresence struct {
	mu  sync.Mutex
	ops []string
}

func (f *fakePresence) record(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ops = append(f.ops, op)
	return nil
}

func (f *fakePresence) recorded() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.ops...)
}

func (f *fakePresence) AddClient(ctx context.Context, _ log.Logger, userID string) error {
	return f.record("client+" + userID)
}
func (f *fakePresence) AddOnline(ctx context.Context, _ log.Logger, userID string) error {
	return f.record("online+" + userID)
}
func (f *fakePresence) RemoveOnline(ctx context.Context, _ log.Logger, userID string) error {
	return f.record("online-" + userID)
}
func (f *fakePresence) Forget(ctx context.Context, _ log.Logger, userID string) error {
	return f.record("forget " + userID)
}
func (f *fakePresence) Clients(ctx context.Context, _ log.Logger) ([]string, error) { return nil, nil }
func (f *fakePresence) Online(ctx context.Context, _ log.Logger) ([]string, error)  { return nil, nil }
func (f *fakePresence) Reset(ctx context.Context, _ log.Logger) error {
	return f.record("reset")
}

func TestPresenceMirrorOrder(t *testing.T) {
	presence := &fakePresence{}
	hub := startHub(t, presence)
	a := newFakeHandle("a")

	hub.RegisterConnection(ctx, "a", a)
	hub.JoinChat(ctx, "a", nil)
	hub.LeaveChat(ctx, "a", nil)
	hub.Release(ctx, a)

	want := []string{"client+a", "online+a", "online-a", "forget a"}
	assert.Eventually(t, func() bool {
		return assert.ObjectsAreEqual(want, presence.recorded())
	}, time.Second, 10*time.Millisecond)
}

func TestConnectionCount(t *testing.T) {
	hub := startHub(t, nil)
	assert.Equal(t, 0, hub.ConnectionCount(ctx))

	hub.RegisterConnection(ctx, "u1", newFakeHandle("u1"))
	hub.RegisterConnection(ctx, "u2", newFakeHandle("u2"))
	hub.RegisterConnection(ctx, "u1", newFakeHandle("u1"))
	assert.Equal(t, 2, hub.ConnectionCount(ctx))

	hub.UnregisterConnection(ctx, "u2")
	assert.Equal(t, 1, hub.ConnectionCount(ctx))
}
