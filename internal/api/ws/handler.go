package ws

import (
	"time"

	"chess-relay/internal/logging"
	"chess-relay/internal/metrics"
	"chess-relay/internal/shared"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
)

// Options tunes per-connection behaviour.
type Options struct {
	KeepAlive          time.Duration
	MaxKeepAliveMisses int
	SendBuffer         int
	EventRate          float64 // inbound events per second
	EventBurst         int
	AllowedOrigins     []string // nil allows any origin
}

// Handler upgrades HTTP requests to websockets and turns inbound frames into registry
// calls. Every connection gets a fresh uuid as its identity.
type Handler struct {
	hub      *Hub
	rooms    RoomManager
	clock    clockwork.Clock
	opts     Options
	upgrader websocket.Upgrader
	validate *validator.Validate
	metrics  *metrics.RelayMetrics
}

func NewHandler(hub *Hub, rooms RoomManager, clock clockwork.Clock, opts Options, m *metrics.RelayMetrics) *Handler {
	return &Handler{
		hub:   hub,
		rooms: rooms,
		clock: clock,
		opts:  opts,
		upgrader: websocket.Upgrader{
			CheckOrigin: NewCheckOrigin(opts.AllowedOrigins),
		},
		validate: validator.New(validator.WithRequiredStructEnabled()),
		metrics:  m,
	}
}

func (h *Handler) HandleWS(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logging.WithError(err).Warn("Failed to upgrade connection", "remote_addr", c.Request.RemoteAddr)
		return
	}

	cl := newClient(uuid.NewString(), conn, h.opts)
	h.hub.register(cl)
	logging.WithConn(cl.id).Debug("Client connected", "remote_addr", c.Request.RemoteAddr)

	go cl.writeLoop(h.clock, h.opts.KeepAlive, h.opts.MaxKeepAliveMisses)

	defer func() {
		h.rooms.Disconnect(cl.id)
		h.hub.unregister(cl)
		cl.stop()
		logging.WithConn(cl.id).Debug("Client disconnected")
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logging.WithConn(cl.id).Debug("Read failed", "error", err)
			}
			return
		}
		if !cl.limiter.Allow() {
			logging.WithConn(cl.id).Warn("Dropping event over rate limit")
			h.metrics.Action(metrics.ActionLimited)
			continue
		}
		h.dispatch(cl, data)
	}
}

func (h *Handler) dispatch(cl *client, data []byte) {
	log := logging.WithConn(cl.id)

	var in shared.Inbound
	if err := json.Unmarshal(data, &in); err != nil {
		log.Debug("Malformed envelope", "error", err)
		return
	}
	if err := h.validate.Struct(in); err != nil {
		log.Debug("Unknown action", "action", in.Action)
		return
	}

	switch in.Action {
	case shared.ActionCreateRoom:
		if _, err := h.rooms.Create(cl.id); err != nil {
			log.Debug("Create refused", "error", err)
		}

	case shared.ActionJoinRoom:
		// a join is always answered, so an unreadable id is reported as not found
		var req shared.RoomRequest
		if err := h.decode(in.Data, &req); err != nil {
			log.Debug("Bad join payload", "error", err)
		}
		if _, err := h.rooms.Join(req.RoomID, cl.id); err != nil {
			log.Debug("Join refused", "error", err)
		}

	case shared.ActionMove:
		var req shared.MoveRequest
		if err := h.decode(in.Data, &req); err != nil {
			// an unreadable move still goes through the turn check, so the player to move
			// hears invalidAction and anyone else is dropped as usual
			var target shared.RoomRequest
			if err := h.decode(in.Data, &target); err != nil {
				log.Debug("Bad move payload", "error", err)
				return
			}
			log.Debug("Unreadable move", "room_id", target.RoomID, "error", err)
			req = shared.MoveRequest{RoomID: target.RoomID}
		}
		h.rooms.Act(req.RoomID, cl.id, req.Move)

	case shared.ActionResign:
		var req shared.RoomRequest
		if err := h.decode(in.Data, &req); err != nil {
			log.Debug("Bad resign payload", "error", err)
			return
		}
		h.rooms.Resign(req.RoomID, cl.id)
	}
}

func (h *Handler) decode(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return err
	}
	return h.validate.Struct(v)
}

