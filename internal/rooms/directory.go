// Package rooms holds the authoritative room membership state.
//
// The directory owns two maps: roomID -> member set, and the reverse
// connectionID -> roomID index. A single mutex guards both so no caller can
// observe them disagreeing. Rooms are created lazily on first join and deleted
// when the last member leaves; a zero-member room never persists.
package rooms

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrNoRoomID is returned by Join when the room identifier is empty.
	ErrNoRoomID = errors.New("room id must not be empty")

	// ErrAlreadyJoined is returned by Join when the connection is already a
	// member of a room. A connection belongs to at most one room for its
	// lifetime; switching rooms requires a reconnect.
	ErrAlreadyJoined = errors.New("connection already joined a room")
)

type Directory struct {
	mu      sync.Mutex
	members map[string]map[string]struct{}
	roomOf  map[string]string
}

func NewDirectory() *Directory {
	return &Directory{
		members: make(map[string]map[string]struct{}),
		roomOf:  make(map[string]string),
	}
}

// Join adds the connection to the room and records the reverse mapping. It
// returns a snapshot of the room's other members (excluding the joiner) taken
// at the moment of the call.
//
// On error nothing changes.
func (d *Directory) Join(connID, roomID string) ([]string, error) {
	if roomID == "" {
		return nil, ErrNoRoomID
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, joined := d.roomOf[connID]; joined {
		return nil, ErrAlreadyJoined
	}

	set, ok := d.members[roomID]
	if !ok {
		set = make(map[string]struct{})
		d.members[roomID] = set
	}

	others := memberSnapshot(set, connID)
	set[connID] = struct{}{}
	d.roomOf[connID] = roomID
	return others, nil
}

// Leave removes the connection from its room, if any. It returns the room
// identifier, a snapshot of the remaining members, and whether the room was
// deleted because it became empty. ok is false when the connection was not a
// member of any room.
//
// The remaining-member snapshot is taken under the same lock as the removal so
// callers can notify exactly the members that were present.
func (d *Directory) Leave(connID string) (roomID string, remaining []string, deleted, ok bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	roomID, ok = d.roomOf[connID]
	if !ok {
		return "", nil, false, false
	}

	delete(d.roomOf, connID)
	set := d.members[roomID]
	delete(set, connID)
	if len(set) == 0 {
		delete(d.members, roomID)
		return roomID, nil, true, true
	}
	return roomID, memberSnapshot(set, ""), false, true
}

// RoomOf returns the room the connection currently belongs to.
func (d *Directory) RoomOf(connID string) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	roomID, ok := d.roomOf[connID]
	return roomID, ok
}

// SameRoom reports whether both connections are members of the same room. It
// is the authorization check for all peer-directed forwarding.
func (d *Directory) SameRoom(a, b string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	roomA, okA := d.roomOf[a]
	roomB, okB := d.roomOf[b]
	return okA && okB && roomA == roomB
}

// Members returns a snapshot of the room's member set, or nil when the room
// does not exist.
func (d *Directory) Members(roomID string) []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	set, ok := d.members[roomID]
	if !ok {
		return nil
	}
	return memberSnapshot(set, "")
}

// Counts returns the number of live rooms and total memberships.
func (d *Directory) Counts() (roomCount, memberCount int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.members), len(d.roomOf)
}

func memberSnapshot(set map[string]struct{}, exclude string) []string {
	out := make([]string, 0, len(set))
	for id := range set {
		if id == exclude {
			continue
		}
		out = append(out, id)
	}
	return out
}

// NewRoomID returns a fresh unguessable room identifier: 128 bits of
// cryptographic randomness, hex encoded (URL-safe). Possession of the
// identifier is the sole join capability.
func NewRoomID() (string, error) {
	var buf [16]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", fmt.Errorf("generate room id: %w", err)
	}
	return hex.EncodeToString(buf[:]), nil
}
