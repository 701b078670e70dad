package signaling

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/peergrid/huddle/internal/origin"
	"github.com/peergrid/huddle/internal/rooms"
)

const wsWriteWait = 1 * time.Second

// Config wires together the runtime dependencies for the signaling service.
type Config struct {
	// Directory is the authoritative membership state. Required.
	Directory *rooms.Directory

	Logger *slog.Logger

	// AllowedOrigins is applied to the WebSocket upgrade. Empty means
	// same-host only; "*" allows any origin.
	AllowedOrigins []string

	// IdleTimeout closes connections that stop answering pings.
	IdleTimeout  time.Duration
	PingInterval time.Duration

	// MaxMessageBytes bounds a single inbound signaling frame.
	MaxMessageBytes int64
}

// Server owns the WebSocket signaling endpoint. Each accepted connection gets
// a server-assigned connection ID and is driven by one reader goroutine; all
// routing decisions live in Router.
type Server struct {
	log    *slog.Logger
	router *Router

	allowedOrigins []string
	idleTimeout    time.Duration
	pingInterval   time.Duration
	maxMsgBytes    int64

	upgrader websocket.Upgrader
}

func NewServer(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		log:            logger,
		router:         NewRouter(cfg.Directory, logger),
		allowedOrigins: cfg.AllowedOrigins,
		idleTimeout:    cfg.IdleTimeout,
		pingInterval:   cfg.PingInterval,
		maxMsgBytes:    cfg.MaxMessageBytes,
	}
	s.upgrader = websocket.Upgrader{
		CheckOrigin: s.checkOrigin,
	}
	return s
}

// Router exposes the dispatch layer so the composition root (and tests) can
// drive it without a live transport.
func (s *Server) Router() *Router {
	return s.router
}

func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.Handle("GET /ws", s)
}

// Close force-closes every live signaling connection.
func (s *Server) Close() {
	s.router.CloseAll()
}

func (s *Server) idle() time.Duration {
	if s.idleTimeout <= 0 {
		return 60 * time.Second
	}
	return s.idleTimeout
}

func (s *Server) ping() time.Duration {
	if s.pingInterval <= 0 {
		return 20 * time.Second
	}
	return s.pingInterval
}

func (s *Server) maxMessageBytes() int64 {
	if s.maxMsgBytes <= 0 {
		return 64 * 1024
	}
	return s.maxMsgBytes
}

func (s *Server) checkOrigin(r *http.Request) bool {
	originHeader := r.Header.Get("Origin")
	if originHeader == "" {
		// Non-browser clients (tests, CLI tooling) send no Origin header.
		return true
	}
	normalized, host, ok := origin.NormalizeHeader(originHeader)
	return ok && origin.IsAllowed(normalized, host, r.Host, s.allowedOrigins)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	connID := uuid.NewString()
	peer := &wsPeer{conn: conn}

	s.log.Info("signaling connection opened", "connection_id", connID, "remote_addr", conn.RemoteAddr().String())
	s.router.Attach(connID, peer)

	stopPing := make(chan struct{})
	go s.pingLoop(conn, stopPing)

	defer func() {
		close(stopPing)
		s.router.Detach(connID)
		peer.Close()
		s.log.Info("signaling connection closed", "connection_id", connID)
	}()

	conn.SetReadLimit(s.maxMessageBytes())
	_ = conn.SetReadDeadline(time.Now().Add(s.idle()))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(s.idle()))
	})

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(s.idle()))

		// Protocol violations are dropped but never terminate the
		// connection; the sender gets no reply either way.
		if msgType != websocket.TextMessage {
			s.router.DropMessage(connID, errBinaryFrame)
			continue
		}

		msg, err := ParseMessage(data)
		if err != nil {
			s.router.DropMessage(connID, err)
			continue
		}

		s.router.HandleMessage(connID, msg)
	}
}

func (s *Server) pingLoop(conn *websocket.Conn, stop <-chan struct{}) {
	ticker := time.NewTicker(s.ping())
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return
			}
		case <-stop:
			return
		}
	}
}

type wsError string

func (e wsError) Error() string { return string(e) }

const errBinaryFrame = wsError("expected text message")

// wsPeer adapts one gorilla connection to the router's PeerSink. Sends can
// originate from any peer's reader goroutine, so writes are serialized.
type wsPeer struct {
	conn *websocket.Conn

	writeMu   sync.Mutex
	closeOnce sync.Once
}

func (p *wsPeer) Send(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}

	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	_ = p.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return p.conn.WriteMessage(websocket.TextMessage, data)
}

func (p *wsPeer) Close() {
	p.closeOnce.Do(func() {
		_ = p.conn.Close()
	})
}
