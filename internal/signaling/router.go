package signaling

import (
	"log/slog"
	"sync"

	"github.com/peergrid/huddle/internal/metrics"
	"github.com/peergrid/huddle/internal/rooms"
)

// PeerSink delivers one outbound message to a single live connection.
//
// Delivery is fire-and-forget: a failed send to a dying connection is
// reconciled by that connection's own disconnect handling, so errors are
// logged but never propagated back to the sender.
type PeerSink interface {
	Send(v any) error
}

// Router validates and dispatches signaling messages between connections.
//
// Each connection moves through three states: connected (no room), in a room
// after a successful join-room, and closed after Detach. There is no
// transition back from in-room to connected; a client that wants a different
// room reconnects.
//
// All violations are dropped with a warning log and a drop counter. A
// malformed or unauthorized message never closes the sender's connection and
// never produces an error reply; the absence of a response is the signal.
type Router struct {
	log *slog.Logger
	dir *rooms.Directory

	mu    sync.Mutex
	peers map[string]PeerSink
}

func NewRouter(dir *rooms.Directory, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		log:   logger,
		dir:   dir,
		peers: make(map[string]PeerSink),
	}
}

// Attach registers a live connection so peers can address it.
func (rt *Router) Attach(connID string, sink PeerSink) {
	rt.mu.Lock()
	rt.peers[connID] = sink
	rt.mu.Unlock()

	metrics.ConnectionOpened()
}

// Detach handles a transport-level disconnect: the connection is removed from
// its room (if any), remaining members are told it left, and an emptied room
// is deleted. Detaching a connection that never joined a room is a no-op
// beyond deregistration.
func (rt *Router) Detach(connID string) {
	rt.mu.Lock()
	delete(rt.peers, connID)
	rt.mu.Unlock()

	metrics.ConnectionClosed()

	roomID, remaining, deleted, ok := rt.dir.Leave(connID)
	if !ok {
		return
	}

	rt.log.Info("peer left room", "connection_id", connID, "room_id", roomID)
	for _, peer := range remaining {
		rt.deliver(peer, Message{Type: MessageTypeUserLeft, ConnectionID: connID})
	}
	if deleted {
		rt.log.Info("room deleted", "room_id", roomID)
	}
	metrics.SetDirectoryGauges(rt.dir.Counts())
}

// CloseAll force-closes every attached peer that supports closing. Used on
// shutdown: http.Server.Shutdown does not touch upgraded connections, so the
// reader goroutines would otherwise keep the process alive.
func (rt *Router) CloseAll() {
	rt.mu.Lock()
	sinks := make([]PeerSink, 0, len(rt.peers))
	for _, sink := range rt.peers {
		sinks = append(sinks, sink)
	}
	rt.mu.Unlock()

	for _, sink := range sinks {
		if closer, ok := sink.(interface{ Close() }); ok {
			closer.Close()
		}
	}
}

// HandleMessage dispatches one validated client message from connID.
func (rt *Router) HandleMessage(connID string, msg Message) {
	switch msg.Type {
	case MessageTypeJoinRoom:
		rt.handleJoin(connID, msg.RoomID)
	case MessageTypeOffer, MessageTypeAnswer, MessageTypeICECandidate:
		rt.handleForward(connID, msg)
	default:
		// Unreachable for messages that came through ParseMessage; kept so the
		// router stays safe when driven directly.
		rt.drop(connID, msg.Type, metrics.DropReasonBadMessage, "unsupported message type")
	}
}

func (rt *Router) handleJoin(connID, roomID string) {
	others, err := rt.dir.Join(connID, roomID)
	if err != nil {
		rt.drop(connID, MessageTypeJoinRoom, metrics.DropReasonBadJoin, err.Error())
		return
	}

	rt.log.Info("peer joined room", "connection_id", connID, "room_id", roomID, "existing_members", len(others))
	metrics.JoinCompleted()
	metrics.SetDirectoryGauges(rt.dir.Counts())

	rt.deliver(connID, roomUsersMessage{Type: MessageTypeRoomUsers, Users: others})
	for _, peer := range others {
		rt.deliver(peer, Message{Type: MessageTypeUserJoined, ConnectionID: connID})
	}
}

func (rt *Router) handleForward(connID string, msg Message) {
	if !rt.dir.SameRoom(connID, msg.Target) {
		rt.drop(connID, msg.Type, metrics.DropReasonNotSameRoom, "sender and target do not share a room")
		return
	}

	out := Message{Type: msg.Type, From: connID, SDP: msg.SDP, Candidate: msg.Candidate}
	if !rt.deliver(msg.Target, out) {
		// Same room but no live sink: the target disconnected between the
		// membership check and delivery. Fire-and-forget.
		rt.drop(connID, msg.Type, metrics.DropReasonUnknownTarget, "target connection is gone")
		return
	}
	metrics.MessageForwarded(string(msg.Type))
}

// DropMessage records a message that was rejected before reaching the router,
// e.g. one that failed strict parsing at the transport layer.
func (rt *Router) DropMessage(connID string, err error) {
	rt.drop(connID, "", metrics.DropReasonBadMessage, err.Error())
}

func (rt *Router) deliver(connID string, v any) bool {
	rt.mu.Lock()
	sink, ok := rt.peers[connID]
	rt.mu.Unlock()
	if !ok {
		return false
	}

	if err := sink.Send(v); err != nil {
		rt.log.Warn("send to peer failed", "connection_id", connID, "err", err)
	}
	return true
}

func (rt *Router) drop(connID string, msgType MessageType, reason, detail string) {
	rt.log.Warn("dropped signaling message",
		"connection_id", connID,
		"message_type", string(msgType),
		"reason", reason,
		"detail", detail,
	)
	metrics.MessageDropped(reason)
}
