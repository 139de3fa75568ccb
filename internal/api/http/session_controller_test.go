package http

import (
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pairline/internal/auth"
	"pairline/internal/config"
	"pairline/internal/domain"
	"pairline/internal/repository"
	"pairline/internal/service"
)

func newTestServer(t *testing.T, authorizer auth.Authorizer) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := config.SignalingConfig{
		RoomCapacity:       2,
		MaxRoomKeyLength:   64,
		MaxChatLength:      500,
		SweepInterval:      time.Minute,
		EmptyRoomRetention: 5 * time.Minute,
		ReadLimit:          32768,
	}

	registry := service.NewRegistry(log)
	rooms := service.NewRoomService(repository.NewInMemoryRoomRepository(), registry, log, cfg)
	relay := service.NewRelayService(rooms, log, cfg)

	sessionController := NewSessionController(rooms, relay, registry, authorizer, log, cfg.ReadLimit)
	roomController := NewRoomController(rooms, []string{"stun:stun.example.org:3478"})

	router := SetupRouter(sessionController, roomController, []string{"http://localhost:3000"})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func dialWS(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { ws.Close() })
	return ws
}

func readFrame(t *testing.T, ws *websocket.Conn) domain.SignalMessage {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg domain.SignalMessage
	require.NoError(t, ws.ReadJSON(&msg))
	return msg
}

func connect(t *testing.T, srv *httptest.Server) (*websocket.Conn, string) {
	t.Helper()
	ws := dialWS(t, srv)
	hello := readFrame(t, ws)
	require.Equal(t, domain.EventConnected, hello.Type)
	connID, _ := hello.Payload["connection_id"].(string)
	require.NotEmpty(t, connID)
	return ws, connID
}

func joinRoom(t *testing.T, ws *websocket.Conn, roomKey string) domain.SignalMessage {
	t.Helper()
	require.NoError(t, ws.WriteJSON(domain.SignalMessage{
		Type: domain.MsgJoinRoom,
		Room: roomKey,
	}))
	return readFrame(t, ws)
}

func TestSessionJoinScenario(t *testing.T) {
	srv := newTestServer(t, auth.AllowAllAuthorizer{})

	wsA, _ := connect(t, srv)
	readyA := joinRoom(t, wsA, "r1")
	assert.Equal(t, domain.EventRoomReady, readyA.Type)
	assert.Equal(t, false, readyA.Payload["is_offerer"])
	assert.Equal(t, string(service.DecisionWaiting), readyA.Payload["decision"])

	wsB, connB := connect(t, srv)
	readyB := joinRoom(t, wsB, "r1")
	assert.Equal(t, domain.EventRoomReady, readyB.Type)
	assert.Equal(t, true, readyB.Payload["is_offerer"])
	assert.Equal(t, string(service.DecisionReady), readyB.Payload["decision"])

	// A is told the room is ready and that it answers.
	notifyA := readFrame(t, wsA)
	assert.Equal(t, domain.EventRoomReady, notifyA.Type)
	assert.Equal(t, false, notifyA.Payload["is_offerer"])
	assert.Equal(t, connB, notifyA.Payload["peer_id"])

	// A third join attempt bounces without disturbing the pair.
	wsC, _ := connect(t, srv)
	full := joinRoom(t, wsC, "r1")
	assert.Equal(t, domain.EventRoomFull, full.Type)
	assert.Equal(t, "room full", full.Payload["reason"])
}

func TestSessionRelayAndDisconnect(t *testing.T) {
	srv := newTestServer(t, auth.AllowAllAuthorizer{})

	wsA, connA := connect(t, srv)
	joinRoom(t, wsA, "r1")

	wsB, _ := connect(t, srv)
	joinRoom(t, wsB, "r1")
	readFrame(t, wsA) // room-ready notification

	// Offer from B reaches only A, tagged with the sender.
	require.NoError(t, wsB.WriteJSON(domain.SignalMessage{
		Type:    domain.MsgOffer,
		Room:    "r1",
		Payload: map[string]any{"sdp": "v=0..."},
	}))
	offer := readFrame(t, wsA)
	assert.Equal(t, domain.MsgOffer, offer.Type)
	assert.NotEmpty(t, offer.SenderID)

	// Chat from A reaches B with server-side metadata attached.
	require.NoError(t, wsA.WriteJSON(domain.SignalMessage{
		Type:    domain.MsgChat,
		Room:    "r1",
		Payload: map[string]any{"text": "hi"},
	}))
	chat := readFrame(t, wsB)
	assert.Equal(t, domain.MsgChat, chat.Type)
	assert.Equal(t, "hi", chat.Payload["text"])
	assert.NotEmpty(t, chat.Payload["timestamp"])

	// A dropping the socket surfaces as peer-disconnected on B.
	wsA.Close()
	disconnected := readFrame(t, wsB)
	assert.Equal(t, domain.EventPeerDisconnected, disconnected.Type)
	assert.Equal(t, connA, disconnected.Payload["peer_id"])
}

func TestSessionOversizedChatRejected(t *testing.T) {
	srv := newTestServer(t, auth.AllowAllAuthorizer{})

	wsA, _ := connect(t, srv)
	joinRoom(t, wsA, "r1")

	require.NoError(t, wsA.WriteJSON(domain.SignalMessage{
		Type:    domain.MsgChat,
		Room:    "r1",
		Payload: map[string]any{"text": strings.Repeat("a", 501)},
	}))
	frame := readFrame(t, wsA)
	assert.Equal(t, domain.EventError, frame.Type)
}

func TestSessionAuthRejected(t *testing.T) {
	srv := newTestServer(t, auth.StaticTokenAuthorizer{Token: "s3cret"})

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 401, resp.StatusCode)

	ws, _, err := websocket.DefaultDialer.Dial(url+"?token=s3cret", nil)
	require.NoError(t, err)
	defer ws.Close()
	hello := readFrame(t, ws)
	assert.Equal(t, domain.EventConnected, hello.Type)
}
