package signaling

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestParseMessageJoinRoom(t *testing.T) {
	msg, err := ParseMessage([]byte(`{"type":"join-room","roomId":"r1"}`))
	if err != nil {
		t.Fatalf("ParseMessage: %v", err)
	}
	if msg.Type != MessageTypeJoinRoom || msg.RoomID != "r1" {
		t.Fatalf("parsed %+v", msg)
	}
}

func TestParseMessageOfferKeepsPayloadVerbatim(t *testing.T) {
	raw := `{"type":"offer","target":"connB","sdp":{"type":"offer","sdp":"v=0\r\no=- 1 1 IN IP4 0.0.0.0\r\n"}}`
	msg, err := ParseMessage([]byte(raw))
	if err != nil {
		t.Fatalf("ParseMessage: %v", err)
	}
	if msg.Target != "connB" {
		t.Fatalf("target = %q", msg.Target)
	}

	// The relay never interprets the payload; it must round-trip untouched.
	var envelope struct {
		SDP json.RawMessage `json:"sdp"`
	}
	if err := json.Unmarshal([]byte(raw), &envelope); err != nil {
		t.Fatalf("unmarshal reference: %v", err)
	}
	if string(msg.SDP) != string(envelope.SDP) {
		t.Fatalf("sdp = %s, want %s", msg.SDP, envelope.SDP)
	}
}

func TestParseMessageICECandidate(t *testing.T) {
	msg, err := ParseMessage([]byte(`{"type":"ice-candidate","target":"connB","candidate":{"candidate":"candidate:1 1 udp 2130706431 192.0.2.1 54321 typ host","sdpMid":"0"}}`))
	if err != nil {
		t.Fatalf("ParseMessage: %v", err)
	}
	if msg.Type != MessageTypeICECandidate || msg.Target != "connB" || msg.Candidate == nil {
		t.Fatalf("parsed %+v", msg)
	}
}

func TestParseMessageRejections(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty", ``},
		{"not json", `join r1`},
		{"json array", `[1,2,3]`},
		{"missing type", `{"roomId":"r1"}`},
		{"unknown type", `{"type":"hangup"}`},
		{"unknown field", `{"type":"join-room","roomId":"r1","nickname":"bob"}`},
		{"trailing data", `{"type":"join-room","roomId":"r1"}{"type":"join-room","roomId":"r2"}`},
		{"join missing room", `{"type":"join-room"}`},
		{"join with sdp", `{"type":"join-room","roomId":"r1","sdp":{}}`},
		{"offer missing target", `{"type":"offer","sdp":{}}`},
		{"offer missing sdp", `{"type":"offer","target":"connB"}`},
		{"offer with room", `{"type":"offer","target":"connB","roomId":"r1","sdp":{}}`},
		{"answer with candidate", `{"type":"answer","target":"connB","sdp":{},"candidate":{}}`},
		{"candidate missing candidate", `{"type":"ice-candidate","target":"connB"}`},
		{"candidate with sdp", `{"type":"ice-candidate","target":"connB","candidate":{},"sdp":{}}`},
		{"spoofed from", `{"type":"offer","target":"connB","sdp":{},"from":"connX"}`},
		{"spoofed users", `{"type":"join-room","roomId":"r1","users":["connX"]}`},
		{"spoofed connection id", `{"type":"join-room","roomId":"r1","connectionId":"connX"}`},
		{"server kind room-users", `{"type":"room-users","users":[]}`},
		{"server kind user-joined", `{"type":"user-joined","connectionId":"connX"}`},
		{"server kind user-left", `{"type":"user-left","connectionId":"connX"}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ParseMessage([]byte(tc.raw)); err == nil {
				t.Fatalf("ParseMessage(%s) succeeded, want error", tc.raw)
			}
		})
	}
}

func TestRoomUsersEncodesEmptySlice(t *testing.T) {
	data, err := json.Marshal(roomUsersMessage{Type: MessageTypeRoomUsers, Users: []string{}})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(data), `"users":[]`) {
		t.Fatalf("encoded %s, want a users:[] field", data)
	}
}
