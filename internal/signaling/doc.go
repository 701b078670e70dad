// Package signaling routes WebRTC session negotiation messages between
// browser peers that share a room.
//
// The relay never inspects SDP or ICE candidate payloads; they are forwarded
// verbatim as opaque blobs so the negotiation format can evolve without server
// changes.
package signaling
