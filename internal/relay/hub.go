// Presence and fan-out hub of Mechat.
// A single goroutine (Listen) owns the connection registry and the online-set,
// every other goroutine talks to it through commands.

package relay

import (
	"Mechat/internal/entity"
	"Mechat/pkg/log"
	"context"
	"sort"
	"sync"
)

// Handle is a live client connection the hub can push envelopes to.
type Handle interface {
	// ID identifies the connection, distinct for every connect.
	ID() string
	// UserID is the authenticated user owning the connection.
	UserID() string
	// Send queues env for delivery, it must not block.
	Send(env entity.Envelope) error
	// Close terminates the connection.
	Close()
}

// Operations queued for the presence mirror, executed in order by a single writer.
const mirrorQueueSize = 1024

type mirrorOp func(ctx context.Context) error

// registry is only ever touched from the Listen goroutine.
type registry struct {
	// userID -> current handle, the last connection wins
	handles map[string]Handle
	online  map[string]struct{}
}

func newRegistry() *registry {
	return &registry{
		handles: make(map[string]Handle),
		online:  make(map[string]struct{}),
	}
}

func (r *registry) onlineUsers() []string {
	users := make([]string, 0, len(r.online))
	for id := range r.online {
		users = append(users, id)
	}
	sort.Strings(users)
	return users
}

// resolve returns the registered subset of userIDs, skipping duplicates and unknown users.
func (r *registry) resolve(userIDs []string) map[string]Handle {
	handles := make(map[string]Handle, len(userIDs))
	for _, id := range userIDs {
		if h, ok := r.handles[id]; ok {
			handles[id] = h
		}
	}
	return handles
}

// Hub is the presence and fan-out relay.
type Hub struct {
	commands  chan func(*registry)
	done      chan struct{}
	closeOnce sync.Once
	presence  Repository
	mirror    chan mirrorOp
	logger    log.Logger
}

// NewHub returns a hub which is idle until Listen is started.
// presence may be nil, the Redis mirror is skipped then.
func NewHub(logger log.Logger, presence Repository) *Hub {
	return &Hub{
		commands: make(chan func(*registry)),
		done:     make(chan struct{}),
		presence: presence,
		mirror:   make(chan mirrorOp, mirrorQueueSize),
		logger:   logger,
	}
}

// Launch the actor loop, preferably in a goroutine for non-blockage.
// Returns once ctx is cancelled or Close is called, closing every registered connection.
func (h *Hub) Listen(ctx context.Context) {
	reg := newRegistry()
	if h.presence != nil {
		go h.runMirror(ctx)
	}
	h.logger.WithCtx(ctx).Info().Msg("Mechat relay hub is listening.")
	for {
		select {
		case cmd := <-h.commands:
			cmd(reg)
		case <-ctx.Done():
			h.Close(ctx)
			h.closeAll(reg)
			return
		case <-h.done:
			h.closeAll(reg)
			return
		}
	}
}

func (h *Hub) closeAll(reg *registry) {
	for _, handle := range reg.handles {
		handle.Close()
	}
	h.logger.Info().Int("connections", len(reg.handles)).Msg("Mechat relay hub stopped.")
}

// Close stops the hub. Commands issued afterwards return without effect.
// Matches cleanup.Operation.
func (h *Hub) Close(ctx context.Context) error {
	h.closeOnce.Do(func() {
		close(h.done)
	})
	return nil
}

// do runs fn on the Listen goroutine and waits for it.
// Reports false when the hub stopped or ctx was cancelled before fn ran.
func (h *Hub) do(ctx context.Context, fn func(*registry)) bool {
	ack := make(chan struct{})
	cmd := func(reg *registry) {
		defer close(ack)
		fn(reg)
	}
	select {
	case h.commands <- cmd:
	case <-h.done:
		return false
	case <-ctx.Done():
		return false
	}
	// Listen runs a received command before anything else
	<-ack
	return true
}

// RegisterConnection makes handle the user's current connection, replacing any prior one.
func (h *Hub) RegisterConnection(ctx context.Context, userID string, handle Handle) {
	h.do(ctx, func(reg *registry) {
		if prev, ok := reg.handles[userID]; ok && prev.ID() != handle.ID() {
			h.logger.WithCtx(ctx).Debug().Str("user", userID).Str("superseded", prev.ID()).Msg("Connection replaced")
		}
		reg.handles[userID] = handle
		h.logger.WithCtx(ctx).Info().Str("user", userID).Str("conn", handle.ID()).Msg("Registered connection")
		h.enqueueMirror(ctx, func(ctx context.Context) error {
			return h.presence.AddClient(ctx, h.logger, userID)
		})
	})
}

// UnregisterConnection forgets the user and tells every remaining connection about the new online-set.
// A no-op for users which are neither connected nor online.
func (h *Hub) UnregisterConnection(ctx context.Context, userID string) {
	h.do(ctx, func(reg *registry) {
		h.unregister(ctx, reg, userID)
	})
}

// Release unregisters handle's user only if handle is still its current connection,
// a superseded connection closing leaves the newer one alone.
// Reports whether the user was unregistered.
func (h *Hub) Release(ctx context.Context, handle Handle) bool {
	released := false
	h.do(ctx, func(reg *registry) {
		current, ok := reg.handles[handle.UserID()]
		if !ok || current.ID() != handle.ID() {
			return
		}
		released = h.unregister(ctx, reg, handle.UserID())
	})
	return released
}

func (h *Hub) unregister(ctx context.Context, reg *registry, userID string) bool {
	_, connected := reg.handles[userID]
	_, online := reg.online[userID]
	if !connected && !online {
		return false
	}
	delete(reg.handles, userID)
	delete(reg.online, userID)
	h.logger.WithCtx(ctx).Info().Str("user", userID).Msg("Unregistered connection")

	env := entity.Envelope{Event: entity.EventOnlineUsers, Data: reg.onlineUsers()}
	for _, handle := range reg.handles {
		h.push(ctx, handle, env)
	}
	h.enqueueMirror(ctx, func(ctx context.Context) error {
		return h.presence.Forget(ctx, h.logger, userID)
	})
	return true
}

// ResolveHandles returns the connected subset of userIDs mapped to their handles.
func (h *Hub) ResolveHandles(ctx context.Context, userIDs []string) map[string]Handle {
	var handles map[string]Handle
	if !h.do(ctx, func(reg *registry) {
		handles = reg.resolve(userIDs)
	}) {
		return map[string]Handle{}
	}
	return handles
}

// Publish pushes payload tagged with kind to every connected user of userIDs.
// Returns the number of connections the envelope was queued on.
func (h *Hub) Publish(ctx context.Context, userIDs []string, kind entity.EventKind, payload any) int {
	return h.PublishExcept(ctx, userIDs, "", kind, payload)
}

// PublishExcept is Publish skipping exceptUserID, the "room minus self" delivery.
func (h *Hub) PublishExcept(ctx context.Context, userIDs []string, exceptUserID string, kind entity.EventKind, payload any) int {
	env := entity.Envelope{Event: kind, Data: payload}
	queued := 0
	h.do(ctx, func(reg *registry) {
		for id, handle := range reg.resolve(userIDs) {
			if id == exceptUserID {
				continue
			}
			if h.push(ctx, handle, env) {
				queued++
			}
		}
	})
	return queued
}

// JoinChat adds userID to the online-set and sends the set to members.
func (h *Hub) JoinChat(ctx context.Context, userID string, members []string) {
	h.do(ctx, func(reg *registry) {
		reg.online[userID] = struct{}{}
		h.broadcastOnline(ctx, reg, members)
		h.enqueueMirror(ctx, func(ctx context.Context) error {
			return h.presence.AddOnline(ctx, h.logger, userID)
		})
	})
}

// LeaveChat removes userID from the online-set and sends the set to members.
func (h *Hub) LeaveChat(ctx context.Context, userID string, members []string) {
	h.do(ctx, func(reg *registry) {
		delete(reg.online, userID)
		h.broadcastOnline(ctx, reg, members)
		h.enqueueMirror(ctx, func(ctx context.Context) error {
			return h.presence.RemoveOnline(ctx, h.logger, userID)
		})
	})
}

func (h *Hub) broadcastOnline(ctx context.Context, reg *registry, members []string) {
	env := entity.Envelope{Event: entity.EventOnlineUsers, Data: reg.onlineUsers()}
	for _, handle := range reg.resolve(members) {
		h.push(ctx, handle, env)
	}
}

// ConnectionCount returns the number of users with a registered connection.
func (h *Hub) ConnectionCount(ctx context.Context) int {
	count := 0
	h.do(ctx, func(reg *registry) {
		count = len(reg.handles)
	})
	return count
}

// OnlineUsers returns a sorted snapshot of the online-set.
func (h *Hub) OnlineUsers(ctx context.Context) []string {
	users := []string{}
	h.do(ctx, func(reg *registry) {
		users = reg.onlineUsers()
	})
	return users
}

func (h *Hub) push(ctx context.Context, handle Handle, env entity.Envelope) bool {
	if err := handle.Send(env); err != nil {
		h.logger.WithCtx(ctx).Warn().Err(err).Str("conn", handle.ID()).Str("event", string(env.Event)).Msg("Dropped envelope")
		return false
	}
	return true
}

// enqueueMirror hands op to the mirror writer, dropping it when the queue is full.
// Called from the Listen goroutine only, so mirror writes keep the hub's order.
func (h *Hub) enqueueMirror(ctx context.Context, op mirrorOp) {
	if h.presence == nil {
		return
	}
	select {
	case h.mirror <- op:
	default:
		h.logger.WithCtx(ctx).Warn().Msg("Presence mirror queue full, dropping update")
	}
}

func (h *Hub) runMirror(ctx context.Context) {
	for {
		select {
		case op := <-h.mirror:
			// Failures are logged by the repository
			_ = op(ctx)
		case <-ctx.Done():
			return
		case <-h.done:
			return
		}
	}
}
