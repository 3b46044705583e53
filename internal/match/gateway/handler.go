package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/CS3219-AY2324S1/ay2324s1-course-assessment-g23/internal/auth"
	"github.com/CS3219-AY2324S1/ay2324s1-course-assessment-g23/internal/match"
)

// SessionValidator gates connection establishment. It is the identity
// collaborator: given the opaque credential carried alongside the
// connection, it returns the authenticated user id or rejects.
type SessionValidator interface {
	ValidateSession(ctx context.Context, token string) (string, error)
}

// Config holds per-connection transport settings.
type Config struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	CheckOrigin     func(r *http.Request) bool
}

// DefaultConfig returns default WebSocket transport configuration.
func DefaultConfig() Config {
	return Config{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  1024,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			// Allow all origins in development - restrict in production
			return true
		},
	}
}

// request is one inbound frame on a matchmaking connection.
type request struct {
	Action     string `json:"action"`
	UserID     string `json:"user_id"`
	Complexity string `json:"complexity"`
}

const (
	actionQueue  = "queue"
	actionCancel = "cancel"
)

// Handler upgrades matchmaking WebSocket connections and drives one request
// loop per connection.
type Handler struct {
	engine   *match.Engine
	sessions SessionValidator
	upgrader websocket.Upgrader
	config   Config
}

// NewHandler creates a WebSocket handler in front of the pairing engine.
func NewHandler(engine *match.Engine, sessions SessionValidator, config Config) *Handler {
	return &Handler{
		engine:   engine,
		sessions: sessions,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config: config,
	}
}

// HandleMatchConnection authenticates the request and upgrades it to a
// matchmaking WebSocket connection. Auth failure rejects the request before
// the upgrade, so no queue state is ever created for it.
func (h *Handler) HandleMatchConnection(w http.ResponseWriter, r *http.Request) {
	userID, err := h.sessions.ValidateSession(r.Context(), sessionToken(r))
	if err != nil {
		if !errors.Is(err, auth.ErrInvalidSession) {
			log.Error().Err(err).Msg("session validation failed")
			http.Error(w, "session validation failed", http.StatusInternalServerError)
			return
		}
		http.Error(w, "invalid session", http.StatusUnauthorized)
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("failed to upgrade WebSocket connection")
		return
	}

	log.Info().Str("user_id", userID).Msg("matchmaking connection established")
	h.serve(ws, userID)
}

// serve runs the per-connection request loop. On any exit (peer closed,
// transport error, engine closed the connection after resolving) it
// performs the disconnect cleanup exactly once.
func (h *Handler) serve(ws *websocket.Conn, userID string) {
	c := newConn(ws, h.config.WriteTimeout)
	participant := &match.Participant{UserID: userID, Peer: c}

	done := make(chan struct{})
	defer close(done)
	defer h.engine.OnDisconnect(participant)

	ws.SetReadLimit(h.config.MaxMessageSize)
	ws.SetReadDeadline(time.Now().Add(h.config.ReadTimeout))
	ws.SetPongHandler(func(string) error {
		ws.SetReadDeadline(time.Now().Add(h.config.ReadTimeout))
		return nil
	})
	go c.keepAlive(h.config.PingInterval, done)

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				log.Error().Err(err).Str("user_id", userID).Msg("unexpected WebSocket close error")
			}
			return
		}
		ws.SetReadDeadline(time.Now().Add(h.config.ReadTimeout))

		var req request
		if err := json.Unmarshal(data, &req); err != nil {
			log.Warn().Err(err).Str("user_id", userID).Msg("malformed matchmaking request")
			continue
		}
		if req.UserID != "" && req.UserID != userID {
			log.Warn().
				Str("user_id", userID).
				Str("claimed_user_id", req.UserID).
				Msg("request user id does not match session, using session identity")
		}

		switch req.Action {
		case actionQueue:
			tier, ok := match.ParseTier(req.Complexity)
			if !ok {
				log.Warn().
					Str("user_id", userID).
					Str("complexity", req.Complexity).
					Msg("unknown complexity in queue request")
				continue
			}
			if err := h.engine.RequestQueue(context.Background(), tier, participant); err != nil {
				log.Error().Err(err).Str("user_id", userID).Msg("queue request failed")
			}
		case actionCancel:
			h.engine.RequestCancel(participant)
		default:
			log.Warn().
				Str("user_id", userID).
				Str("action", req.Action).
				Msg("unrecognized matchmaking action")
		}
	}
}

// RegisterRoutes registers the matchmaking WebSocket route.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/matching/ws", h.HandleMatchConnection)
}

// sessionToken extracts the opaque session credential: the session_id
// cookie set by the user service, or a token query parameter for clients
// that cannot send cookies over the WebSocket handshake.
func sessionToken(r *http.Request) string {
	if cookie, err := r.Cookie("session_id"); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	return r.URL.Query().Get("token")
}
