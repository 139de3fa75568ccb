package service

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/pion/webrtc/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pairline/internal/domain"
	"pairline/internal/repository"
)

func newTestRelay(t *testing.T) (*RelayService, *RoomService, *Registry) {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	registry := NewRegistry(log)
	rooms := NewRoomService(repository.NewInMemoryRoomRepository(), registry, log, testSignalingConfig())
	relay := NewRelayService(rooms, log, testSignalingConfig())
	return relay, rooms, registry
}

func pairUp(t *testing.T, rooms *RoomService, registry *Registry, roomKey string) (*domain.Member, *domain.Member) {
	t.Helper()
	first := registerConn(t, registry)
	second := registerConn(t, registry)

	firstResult, err := rooms.Join(context.Background(), roomKey, first)
	require.NoError(t, err)
	secondResult, err := rooms.Join(context.Background(), roomKey, second)
	require.NoError(t, err)

	nextEvent(t, firstResult.Member) // consume room-ready
	return firstResult.Member, secondResult.Member
}

func TestRelayForwardsOfferToPeerOnly(t *testing.T) {
	relay, rooms, registry := newTestRelay(t)
	answerer, offerer := pairUp(t, rooms, registry, "r1")

	sdp := &webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: "v=0..."}
	err := relay.Relay(context.Background(), "r1", offerer.ConnID, &domain.SignalMessage{
		Type: domain.MsgOffer,
		SDP:  sdp,
	})
	require.NoError(t, err)

	ev := nextEvent(t, answerer)
	assert.Equal(t, domain.MsgOffer, ev.Type)
	assert.Equal(t, "r1", ev.Room)
	assert.Equal(t, offerer.ConnID, ev.SenderID)
	assert.Equal(t, sdp, ev.SDP)

	// Never echoed back to the sender.
	requireNoEvent(t, offerer)
}

func TestRelayForwardsAnswerAndCandidate(t *testing.T) {
	relay, rooms, registry := newTestRelay(t)
	answerer, offerer := pairUp(t, rooms, registry, "r1")

	err := relay.Relay(context.Background(), "r1", answerer.ConnID, &domain.SignalMessage{
		Type: domain.MsgAnswer,
		SDP:  &webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: "v=0..."},
	})
	require.NoError(t, err)

	ev := nextEvent(t, offerer)
	assert.Equal(t, domain.MsgAnswer, ev.Type)
	assert.Equal(t, answerer.ConnID, ev.SenderID)

	candidate := "candidate:0 1 UDP 2122252543 192.0.2.1 54321 typ host"
	err = relay.Relay(context.Background(), "r1", offerer.ConnID, &domain.SignalMessage{
		Type:      domain.MsgICECandidate,
		Candidate: &webrtc.ICECandidateInit{Candidate: candidate},
	})
	require.NoError(t, err)

	ev = nextEvent(t, answerer)
	assert.Equal(t, domain.MsgICECandidate, ev.Type)
	require.NotNil(t, ev.Candidate)
	assert.Equal(t, candidate, ev.Candidate.Candidate)
}

func TestRelayChatAttachesSenderAndTimestamp(t *testing.T) {
	relay, rooms, registry := newTestRelay(t)
	answerer, offerer := pairUp(t, rooms, registry, "r1")

	err := relay.Relay(context.Background(), "r1", answerer.ConnID, &domain.SignalMessage{
		Type:    domain.MsgChat,
		Payload: map[string]any{"text": "  hello  "},
	})
	require.NoError(t, err)

	ev := nextEvent(t, offerer)
	assert.Equal(t, domain.MsgChat, ev.Type)
	assert.Equal(t, answerer.ConnID, ev.SenderID)
	assert.Equal(t, "hello", ev.Payload["text"])
	assert.NotEmpty(t, ev.Payload["id"])
	assert.NotEmpty(t, ev.Payload["timestamp"])

	requireNoEvent(t, answerer)
}

func TestRelayChatValidation(t *testing.T) {
	relay, rooms, registry := newTestRelay(t)
	_, offerer := pairUp(t, rooms, registry, "r1")

	err := relay.Relay(context.Background(), "r1", offerer.ConnID, &domain.SignalMessage{
		Type:    domain.MsgChat,
		Payload: map[string]any{"text": strings.Repeat("a", 501)},
	})
	require.ErrorIs(t, err, ErrChatTooLong)

	err = relay.Relay(context.Background(), "r1", offerer.ConnID, &domain.SignalMessage{
		Type:    domain.MsgChat,
		Payload: map[string]any{"text": "   "},
	})
	require.ErrorIs(t, err, ErrChatEmpty)

	err = relay.Relay(context.Background(), "r1", offerer.ConnID, &domain.SignalMessage{
		Type: domain.MsgChat,
	})
	require.ErrorIs(t, err, ErrChatEmpty)
}

func TestRelayToUnknownRoomIsNoOp(t *testing.T) {
	relay, _, registry := newTestRelay(t)
	connID := registerConn(t, registry)

	err := relay.Relay(context.Background(), "missing", connID, &domain.SignalMessage{
		Type: domain.MsgOffer,
	})
	require.NoError(t, err)
}

func TestRelayFromNonMemberIsNoOp(t *testing.T) {
	relay, rooms, registry := newTestRelay(t)
	answerer, offerer := pairUp(t, rooms, registry, "r1")

	outsider := registerConn(t, registry)
	err := relay.Relay(context.Background(), "r1", outsider, &domain.SignalMessage{
		Type: domain.MsgOffer,
	})
	require.NoError(t, err)

	requireNoEvent(t, answerer)
	requireNoEvent(t, offerer)
}

func TestRelayUnsupportedType(t *testing.T) {
	relay, rooms, registry := newTestRelay(t)
	_, offerer := pairUp(t, rooms, registry, "r1")

	err := relay.Relay(context.Background(), "r1", offerer.ConnID, &domain.SignalMessage{
		Type: "telemetry",
	})
	require.ErrorIs(t, err, ErrUnsupportedSignal)
}
