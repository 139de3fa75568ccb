package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"pairline/internal/auth"
	"pairline/internal/domain"
	"pairline/internal/service"

	"pairline/lib/logger/sl"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
)

// SessionController is the websocket boundary: it turns inbound frames into
// room/relay calls and drains each member's event queue back onto the
// socket. All socket writes go through a single writer goroutine per
// connection.
type SessionController struct {
	rooms      service.RoomInteractor
	relay      service.RelayInteractor
	registry   *service.Registry
	authorizer auth.Authorizer
	log        *slog.Logger
	readLimit  int64
	upgrader   websocket.Upgrader
}

func NewSessionController(
	rooms service.RoomInteractor,
	relay service.RelayInteractor,
	registry *service.Registry,
	authorizer auth.Authorizer,
	log *slog.Logger,
	readLimit int64,
) *SessionController {
	if log == nil {
		log = slog.Default()
	}
	return &SessionController{
		rooms:      rooms,
		relay:      relay,
		registry:   registry,
		authorizer: authorizer,
		log:        log,
		readLimit:  readLimit,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// session wraps a websocket connection with a buffered outbound queue so
// that the read loop and the event forwarder never write to the socket
// directly.
type session struct {
	conn *websocket.Conn
	send chan domain.SignalMessage

	mu     sync.Mutex
	closed bool
	member *domain.Member
}

// swapMember records the member this session is forwarding for and reports
// whether a new forwarder is needed. An idempotent re-join returns the same
// member and must not spawn a second forwarder.
func (s *session) swapMember(m *domain.Member) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.member == m {
		return false
	}
	s.member = m
	return true
}

func (s *session) enqueue(msg domain.SignalMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.send <- msg:
	default:
	}
}

func (s *session) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.send)
}

func (c *SessionController) ServeWS(ctx *gin.Context) {
	if err := c.authorizer.Authorize(ctx.Request); err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "auth rejected"})
		return
	}

	ws, err := c.upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		c.log.Error("websocket upgrade failed", sl.Err(err))
		return
	}

	conn := domain.NewConnection()
	c.registry.Register(conn)

	sess := &session{
		conn: ws,
		send: make(chan domain.SignalMessage, 32),
	}
	go c.writePump(sess)

	log := c.log.With(slog.String("conn_id", conn.ID))
	log.Info("connection established")

	sess.enqueue(domain.SignalMessage{
		Type: domain.EventConnected,
		Payload: map[string]any{
			"connection_id": conn.ID,
		},
	})

	c.readPump(sess, conn.ID, log)
}

func (c *SessionController) readPump(sess *session, connID string, log *slog.Logger) {
	defer func() {
		if err := c.rooms.HandleDisconnect(context.Background(), connID); err != nil {
			log.Error("disconnect cleanup failed", sl.Err(err))
		}
		sess.close()
		sess.conn.Close()
		log.Info("connection closed")
	}()

	sess.conn.SetReadLimit(c.readLimit)
	sess.conn.SetReadDeadline(time.Now().Add(pongWait))
	sess.conn.SetPongHandler(func(string) error {
		sess.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg domain.SignalMessage
		if err := sess.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug("read error", sl.Err(err))
			}
			return
		}
		c.handleMessage(sess, connID, &msg, log)
	}
}

func (c *SessionController) handleMessage(sess *session, connID string, msg *domain.SignalMessage, log *slog.Logger) {
	ctx := context.Background()

	switch msg.Type {
	case domain.MsgJoinRoom:
		result, err := c.rooms.Join(ctx, msg.Room, connID)
		if err != nil {
			if errors.Is(err, service.ErrRoomFull) {
				sess.enqueue(domain.SignalMessage{
					Type: domain.EventRoomFull,
					Room: msg.Room,
					Payload: map[string]any{
						"reason": "room full",
					},
				})
				return
			}
			c.sendError(sess, err)
			return
		}

		if sess.swapMember(result.Member) {
			go c.forwardEvents(sess, result.Member)
		}

		sess.enqueue(domain.SignalMessage{
			Type: domain.EventRoomReady,
			Room: msg.Room,
			Payload: map[string]any{
				"is_offerer": result.Member.Role == domain.RoleOfferer,
				"decision":   string(result.Decision),
			},
		})

	case domain.MsgLeaveRoom:
		roomKey := c.resolveRoom(msg, connID)
		if err := c.rooms.Leave(ctx, roomKey, connID); err != nil {
			c.sendError(sess, err)
			return
		}
		sess.enqueue(domain.SignalMessage{
			Type: domain.EventLeft,
			Room: roomKey,
		})

	case domain.MsgOffer, domain.MsgAnswer, domain.MsgICECandidate, domain.MsgChat:
		roomKey := c.resolveRoom(msg, connID)
		if err := c.relay.Relay(ctx, roomKey, connID, msg); err != nil {
			c.sendError(sess, err)
		}

	default:
		log.Debug("unknown message type", slog.String("type", msg.Type))
		c.sendError(sess, service.ErrUnsupportedSignal)
	}
}

// resolveRoom prefers the room named on the frame and falls back to the
// registry's reverse index for clients that omit it after joining.
func (c *SessionController) resolveRoom(msg *domain.SignalMessage, connID string) string {
	if msg.Room != "" {
		return msg.Room
	}
	key, _ := c.registry.RoomOf(connID)
	return key
}

// forwardEvents drains a member's event queue into the session until the
// member departs and the queue is closed.
func (c *SessionController) forwardEvents(sess *session, member *domain.Member) {
	for event := range member.Events {
		sess.enqueue(event)
	}
}

func (c *SessionController) writePump(sess *session) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		sess.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-sess.send:
			sess.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				sess.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := sess.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			sess.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := sess.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *SessionController) sendError(sess *session, err error) {
	sess.enqueue(domain.SignalMessage{
		Type: domain.EventError,
		Payload: map[string]any{
			"error": err.Error(),
		},
	})
}
