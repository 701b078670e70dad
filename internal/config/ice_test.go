package config

import "testing"

func TestParseICEServersJSON(t *testing.T) {
	raw := `[
		{"urls": "stun:stun.example.com:3478"},
		{"urls": ["turn:turn.example.com:3478?transport=udp", "turns:turn.example.com:5349"], "username": "u", "credential": "c"}
	]`

	servers, err := ParseICEServersJSON(raw, false)
	if err != nil {
		t.Fatalf("ParseICEServersJSON: %v", err)
	}
	if len(servers) != 2 {
		t.Fatalf("got %d servers, want 2", len(servers))
	}
	if servers[0].URLs[0] != "stun:stun.example.com:3478" {
		t.Fatalf("stun urls = %v", servers[0].URLs)
	}
	if servers[1].Username != "u" {
		t.Fatalf("turn username = %q", servers[1].Username)
	}
	if cred, ok := servers[1].Credential.(string); !ok || cred != "c" {
		t.Fatalf("turn credential = %v", servers[1].Credential)
	}
}

func TestParseICEServersJSONRejections(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not json", `stun:stun.example.com`},
		{"missing urls", `[{"username":"u"}]`},
		{"all urls empty", `[{"urls":["", " "]}]`},
		{"bad scheme", `[{"urls":"http://example.com"}]`},
		{"turn without username", `[{"urls":"turn:turn.example.com","credential":"c"}]`},
		{"turn without credential", `[{"urls":"turn:turn.example.com","username":"u"}]`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ParseICEServersJSON(tc.raw, false); err == nil {
				t.Fatalf("ParseICEServersJSON(%s) succeeded, want error", tc.raw)
			}
		})
	}
}

func TestParseICEServersJSONTURNRESTAllowsBareTURN(t *testing.T) {
	raw := `[{"urls":"turn:turn.example.com:3478"}]`

	if _, err := ParseICEServersJSON(raw, false); err == nil {
		t.Fatalf("bare TURN accepted without REST credentials")
	}
	servers, err := ParseICEServersJSON(raw, true)
	if err != nil {
		t.Fatalf("ParseICEServersJSON with REST enabled: %v", err)
	}
	if len(servers) != 1 {
		t.Fatalf("got %d servers, want 1", len(servers))
	}
}

func TestParseICEServersFromConvenienceEnv(t *testing.T) {
	servers, err := ParseICEServersFromConvenienceEnv(
		"stun:stun1.example.com, stun:stun2.example.com",
		"turn:turn.example.com",
		"u", "c", false,
	)
	if err != nil {
		t.Fatalf("ParseICEServersFromConvenienceEnv: %v", err)
	}
	if len(servers) != 2 {
		t.Fatalf("got %d servers, want 2", len(servers))
	}
	if len(servers[0].URLs) != 2 {
		t.Fatalf("stun urls = %v", servers[0].URLs)
	}
	if servers[1].Username != "u" {
		t.Fatalf("turn username = %q", servers[1].Username)
	}
}

func TestConvenienceEnvTURNRequiresCredentials(t *testing.T) {
	if _, err := ParseICEServersFromConvenienceEnv("", "turn:turn.example.com", "", "", false); err == nil {
		t.Fatalf("TURN without credentials accepted")
	}
	if _, err := ParseICEServersFromConvenienceEnv("", "turn:turn.example.com", "", "", true); err != nil {
		t.Fatalf("TURN with REST enabled rejected: %v", err)
	}
}

func TestDefaultSTUNWhenUnconfigured(t *testing.T) {
	servers, err := parseICEServersFromValues("", "", "", "", "", false)
	if err != nil {
		t.Fatalf("parseICEServersFromValues: %v", err)
	}
	if len(servers) != 1 || servers[0].URLs[0] != DefaultSTUNURLs[0] {
		t.Fatalf("servers = %+v, want default STUN", servers)
	}
}

func TestJSONConfigBypassesConvenienceEnv(t *testing.T) {
	servers, err := parseICEServersFromValues(
		`[{"urls":"stun:json.example.com"}]`,
		"stun:ignored.example.com", "", "", "", false,
	)
	if err != nil {
		t.Fatalf("parseICEServersFromValues: %v", err)
	}
	if len(servers) != 1 || servers[0].URLs[0] != "stun:json.example.com" {
		t.Fatalf("servers = %+v", servers)
	}
}
