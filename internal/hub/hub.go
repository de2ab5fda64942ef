package hub

import (
	"errors"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"walkabout/server/internal/protocol"
	"walkabout/server/internal/world"
)

// Sink is the outbound half of one client connection. Send must not block
// the caller: a slow client may drop frames but can never stall a broadcast.
type Sink interface {
	Send(data []byte) error
	Close()
}

// ErrSinkClosed is what a Sink returns once its connection is gone. The hub
// treats it as routine and simply skips the sink.
var ErrSinkClosed = errors.New("sink closed")

// session binds one connection to the single entity it is allowed to mutate.
// The binding is fixed at connect time; it is the whole authorization model.
type session struct {
	id       string
	playerID string
	sink     Sink
}

// Hub is the session registry: it bridges decoded inbound commands to store
// mutations and fans encoded state back out to every live connection.
type Hub struct {
	mu       sync.Mutex
	logger   *zap.SugaredLogger
	codec    *protocol.Codec
	store    *world.Store
	sessions map[string]*session
}

// New wires a hub to its store and codec. A nil logger becomes a no-op one.
func New(store *world.Store, codec *protocol.Codec, logger *zap.SugaredLogger) *Hub {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Hub{
		logger:   logger,
		codec:    codec,
		store:    store,
		sessions: make(map[string]*session),
	}
}

// Store exposes the hub's entity store, mainly for diagnostics.
func (h *Hub) Store() *world.Store { return h.store }

// Codec exposes the hub's wire codec.
func (h *Hub) Codec() *protocol.Codec { return h.codec }

// SessionCount reports the number of registered sessions.
func (h *Hub) SessionCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

// Connect runs the full join sequence for a new connection: create the
// player, register the sink, tell the newcomer its identity, sync it with a
// full snapshot, and announce it to everyone else. The returned session id
// is the handle the transport uses for DispatchInbound and Unregister.
//
// Connect must return before the transport reads any inbound frame for the
// session.
func (h *Hub) Connect(sink Sink) string {
	sessionID := uuid.NewString()
	playerID := uuid.NewString()

	state := h.store.AddPlayer(playerID, nil)

	sess := &session{id: sessionID, playerID: playerID, sink: sink}
	h.mu.Lock()
	h.sessions[sessionID] = sess
	h.mu.Unlock()

	h.sendTo(sess, &protocol.IDAssignmentMessage{PlayerID: playerID})
	h.sendTo(sess, &protocol.StateMessage{Players: h.store.SnapshotAll()})
	h.broadcastExcept(sessionID, &protocol.ConnectedMessage{PlayerID: playerID})

	h.logger.Infow("session connected",
		"session", sessionID, "player", playerID,
		"x", state.X, "z", state.Z)
	return sessionID
}

// DispatchInbound decodes one raw frame and routes it. Malformed frames are
// logged and dropped; the session stays open. A move only ever touches the
// session's own entity, and a name claim is answered to the requester alone.
func (h *Hub) DispatchInbound(sessionID string, raw []byte) {
	sess := h.lookup(sessionID)
	if sess == nil {
		h.logger.Debugw("frame for unknown session", "session", sessionID)
		return
	}

	msg, err := h.codec.Decode(raw)
	if err != nil {
		h.logger.Warnw("dropping malformed frame", "session", sessionID, "err", err)
		return
	}

	switch cmd := msg.(type) {
	case *protocol.MoveCommand:
		// cmd.T is client time, carried but never validated.
		h.store.UpdatePosition(sess.playerID, cmd.X, cmd.Z, cmd.Rot)
	case *protocol.SetNameCommand:
		if err := h.store.SetName(sess.playerID, cmd.Name); err != nil {
			h.sendTo(sess, &protocol.NameRejectedMessage{Reason: err.Error()})
			return
		}
		h.sendTo(sess, &protocol.NameAcceptedMessage{})
	default:
		h.logger.Warnw("decoded frame with no route", "session", sessionID)
	}
}

// Unregister tears a session down: drop the sink, remove the entity, tell
// the survivors. Graceful closes and transport faults both land here, and
// calling it twice for the same session is harmless.
func (h *Hub) Unregister(sessionID string) {
	h.mu.Lock()
	sess, ok := h.sessions[sessionID]
	if ok {
		delete(h.sessions, sessionID)
	}
	h.mu.Unlock()

	if !ok {
		return
	}

	sess.sink.Close()
	if h.store.RemovePlayer(sess.playerID) {
		h.Broadcast(&protocol.DisconnectedMessage{PlayerID: sess.playerID})
	}
	h.logger.Infow("session disconnected", "session", sessionID, "player", sess.playerID)
}

// Broadcast encodes a message once and pushes the bytes to every registered
// sink. Closed or failing sinks are skipped; their sessions are reaped when
// the transport reports the close.
func (h *Hub) Broadcast(msg protocol.ServerMessage) {
	h.broadcastExcept("", msg)
}

func (h *Hub) broadcastExcept(skipSessionID string, msg protocol.ServerMessage) {
	data, err := h.codec.Encode(msg)
	if err != nil {
		h.logger.Errorw("encode broadcast", "err", err)
		return
	}

	h.mu.Lock()
	targets := make([]*session, 0, len(h.sessions))
	for id, sess := range h.sessions {
		if id == skipSessionID {
			continue
		}
		targets = append(targets, sess)
	}
	h.mu.Unlock()

	for _, sess := range targets {
		if err := sess.sink.Send(data); err != nil {
			h.logger.Debugw("skipping sink", "session", sess.id, "err", err)
		}
	}
}

func (h *Hub) lookup(sessionID string) *session {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.sessions[sessionID]
}

func (h *Hub) sendTo(sess *session, msg protocol.ServerMessage) {
	data, err := h.codec.Encode(msg)
	if err != nil {
		h.logger.Errorw("encode message", "session", sess.id, "err", err)
		return
	}
	if err := sess.sink.Send(data); err != nil {
		h.logger.Debugw("send failed", "session", sess.id, "err", err)
	}
}
