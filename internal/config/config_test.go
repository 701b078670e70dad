package config

import (
	"log/slog"
	"testing"
	"time"
)

func lookupMap(m map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

func noEnv(string) (string, bool) { return "", false }

func TestDefaultsDev(t *testing.T) {
	cfg, err := load(noEnv, nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Mode != ModeDev {
		t.Fatalf("mode=%q, want %q", cfg.Mode, ModeDev)
	}
	if cfg.LogFormat != LogFormatText {
		t.Fatalf("logFormat=%q, want %q", cfg.LogFormat, LogFormatText)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Fatalf("logLevel=%v, want debug", cfg.LogLevel)
	}
	if cfg.ListenAddr != DefaultListenAddr {
		t.Fatalf("listenAddr=%q, want %q", cfg.ListenAddr, DefaultListenAddr)
	}
	if cfg.ShutdownTimeout != DefaultShutdown {
		t.Fatalf("shutdownTimeout=%v, want %v", cfg.ShutdownTimeout, DefaultShutdown)
	}
	if cfg.WSIdleTimeout != DefaultWSIdleTimeout {
		t.Fatalf("wsIdleTimeout=%v, want %v", cfg.WSIdleTimeout, DefaultWSIdleTimeout)
	}
	if cfg.WSPingInterval != DefaultWSPingInterval {
		t.Fatalf("wsPingInterval=%v, want %v", cfg.WSPingInterval, DefaultWSPingInterval)
	}
	if cfg.MaxMessageBytes != DefaultMaxMessageBytes {
		t.Fatalf("maxMessageBytes=%d, want %d", cfg.MaxMessageBytes, DefaultMaxMessageBytes)
	}
	if cfg.TURNREST.Enabled() {
		t.Fatalf("TURN REST enabled without a shared secret")
	}
	if err := cfg.ICEConfigError(); err != nil {
		t.Fatalf("ICEConfigError=%v, want nil", err)
	}
	if len(cfg.ICEServers) != 1 || len(cfg.ICEServers[0].URLs) != 1 || cfg.ICEServers[0].URLs[0] != DefaultSTUNURLs[0] {
		t.Fatalf("ICEServers=%+v, want default STUN", cfg.ICEServers)
	}
}

func TestProdModeDefaultsToJSONInfo(t *testing.T) {
	cfg, err := load(lookupMap(map[string]string{"HUDDLE_MODE": "prod"}), nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Mode != ModeProd {
		t.Fatalf("mode=%q, want prod", cfg.Mode)
	}
	if cfg.LogFormat != LogFormatJSON {
		t.Fatalf("logFormat=%q, want json", cfg.LogFormat)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Fatalf("logLevel=%v, want info", cfg.LogLevel)
	}
}

func TestEnvValues(t *testing.T) {
	cfg, err := load(lookupMap(map[string]string{
		"HUDDLE_LISTEN_ADDR":          "0.0.0.0:9000",
		"ALLOWED_ORIGINS":             "https://app.example.com, http://localhost:3000",
		"HUDDLE_STATIC_DIR":           "/srv/huddle/static",
		"HUDDLE_SHUTDOWN_TIMEOUT":     "3s",
		"SIGNALING_WS_IDLE_TIMEOUT":   "90s",
		"SIGNALING_WS_PING_INTERVAL":  "30s",
		"MAX_SIGNALING_MESSAGE_BYTES": "32768",
	}), nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ListenAddr != "0.0.0.0:9000" {
		t.Fatalf("listenAddr=%q", cfg.ListenAddr)
	}
	if cfg.StaticDir != "/srv/huddle/static" {
		t.Fatalf("staticDir=%q", cfg.StaticDir)
	}
	if cfg.ShutdownTimeout != 3*time.Second {
		t.Fatalf("shutdownTimeout=%v", cfg.ShutdownTimeout)
	}
	if cfg.WSIdleTimeout != 90*time.Second || cfg.WSPingInterval != 30*time.Second {
		t.Fatalf("ws timeouts = %v/%v", cfg.WSIdleTimeout, cfg.WSPingInterval)
	}
	if cfg.MaxMessageBytes != 32768 {
		t.Fatalf("maxMessageBytes=%d", cfg.MaxMessageBytes)
	}
	want := []string{"https://app.example.com", "http://localhost:3000"}
	if len(cfg.AllowedOrigins) != len(want) {
		t.Fatalf("allowedOrigins=%v, want %v", cfg.AllowedOrigins, want)
	}
	for i := range want {
		if cfg.AllowedOrigins[i] != want[i] {
			t.Fatalf("allowedOrigins=%v, want %v", cfg.AllowedOrigins, want)
		}
	}
}

func TestFlagsOverrideEnv(t *testing.T) {
	cfg, err := load(lookupMap(map[string]string{
		"HUDDLE_LISTEN_ADDR": "0.0.0.0:9000",
		"HUDDLE_MODE":        "prod",
	}), []string{
		"--listen-addr", "127.0.0.1:7000",
		"--log-format", "text",
	})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ListenAddr != "127.0.0.1:7000" {
		t.Fatalf("listenAddr=%q, want flag value", cfg.ListenAddr)
	}
	if cfg.LogFormat != LogFormatText {
		t.Fatalf("logFormat=%q, want text from flag", cfg.LogFormat)
	}
}

func TestAllowedOriginsNormalized(t *testing.T) {
	cfg, err := load(lookupMap(map[string]string{
		"ALLOWED_ORIGINS": "https://App.Example.COM:443,*",
	}), nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	want := []string{"https://app.example.com", "*"}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[0] != want[0] || cfg.AllowedOrigins[1] != want[1] {
		t.Fatalf("allowedOrigins=%v, want %v", cfg.AllowedOrigins, want)
	}
}

func TestInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		args []string
	}{
		{"bad mode", nil, []string{"--mode", "staging"}},
		{"bad log format", nil, []string{"--log-format", "xml"}},
		{"bad log level", nil, []string{"--log-level", "verbose"}},
		{"bad shutdown timeout", map[string]string{"HUDDLE_SHUTDOWN_TIMEOUT": "soon"}, nil},
		{"zero idle timeout", nil, []string{"--ws-idle-timeout", "0s"}},
		{"ping not below idle", nil, []string{"--ws-idle-timeout", "10s", "--ws-ping-interval", "10s"}},
		{"zero max message bytes", nil, []string{"--max-signaling-message-bytes", "0"}},
		{"bad max message bytes", map[string]string{"MAX_SIGNALING_MESSAGE_BYTES": "lots"}, nil},
		{"empty listen addr", nil, []string{"--listen-addr", ""}},
		{"bad origin", map[string]string{"ALLOWED_ORIGINS": "example.com"}, nil},
		{"null origin", map[string]string{"ALLOWED_ORIGINS": "null"}, nil},
		{"turn rest zero ttl", map[string]string{"TURN_REST_SHARED_SECRET": "s", "TURN_REST_TTL_SECONDS": "0"}, nil},
		{"turn rest bad ttl", map[string]string{"TURN_REST_SHARED_SECRET": "s", "TURN_REST_TTL_SECONDS": "week"}, nil},
		{"turn rest colon prefix", map[string]string{"TURN_REST_SHARED_SECRET": "s", "TURN_REST_USERNAME_PREFIX": "a:b"}, nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := load(lookupMap(tc.env), tc.args); err == nil {
				t.Fatalf("load succeeded, want error")
			}
		})
	}
}

func TestTURNRESTEnabled(t *testing.T) {
	cfg, err := load(lookupMap(map[string]string{
		"TURN_REST_SHARED_SECRET": "north-remembers",
		"TURN_REST_TTL_SECONDS":   "600",
	}), nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !cfg.TURNREST.Enabled() {
		t.Fatalf("TURN REST not enabled")
	}
	if cfg.TURNREST.TTLSeconds != 600 {
		t.Fatalf("ttl=%d, want 600", cfg.TURNREST.TTLSeconds)
	}
	if cfg.TURNREST.UsernamePrefix != DefaultTURNRESTUsernamePrefix {
		t.Fatalf("prefix=%q, want default", cfg.TURNREST.UsernamePrefix)
	}
}

func TestInvalidICEConfigIsNotFatal(t *testing.T) {
	cfg, err := load(lookupMap(map[string]string{
		"HUDDLE_ICE_SERVERS_JSON": `not json`,
	}), nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ICEConfigError() == nil {
		t.Fatalf("expected ICE config error")
	}
}

func TestNewLogger(t *testing.T) {
	for _, format := range []LogFormat{LogFormatText, LogFormatJSON} {
		logger, err := NewLogger(Config{LogFormat: format, LogLevel: slog.LevelInfo})
		if err != nil {
			t.Fatalf("NewLogger(%q): %v", format, err)
		}
		if logger == nil {
			t.Fatalf("NewLogger(%q) returned nil", format)
		}
	}
	if _, err := NewLogger(Config{LogFormat: "xml"}); err == nil {
		t.Fatalf("NewLogger with bad format succeeded")
	}
}
