package service

import (
	"context"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"pairline/internal/config"
	"pairline/internal/domain"
)

// RelayService forwards addressed messages to the other members of a room.
// Payloads are opaque: nothing here inspects an SDP or a candidate. Nothing
// is persisted either; a member joining late receives nothing from before
// its join.
type RelayService struct {
	rooms *RoomService
	log   *slog.Logger

	maxChatLength int
}

func NewRelayService(rooms *RoomService, log *slog.Logger, cfg config.SignalingConfig) *RelayService {
	if log == nil {
		log = slog.Default()
	}
	return &RelayService{
		rooms:         rooms,
		log:           log,
		maxChatLength: cfg.MaxChatLength,
	}
}

// Relay fans the message out to every member of the room except the sender,
// tagged with the sender identity. Chat messages additionally get a
// server-assigned id and timestamp, and a length bound. A room or sender
// that is not live is a no-op, not an error: the disconnect path may have
// won the race.
func (s *RelayService) Relay(ctx context.Context, roomKey, senderID string, msg *domain.SignalMessage) error {
	const op = "service.relay"

	if err := ctx.Err(); err != nil {
		return err
	}
	if msg == nil {
		return ErrUnsupportedSignal
	}

	log := s.log.With(
		slog.String("op", op),
		slog.String("room", roomKey),
		slog.String("sender", senderID),
		slog.String("type", msg.Type),
	)

	switch msg.Type {
	case domain.MsgOffer, domain.MsgAnswer, domain.MsgICECandidate:
		room, sender, ok := s.liveSender(roomKey, senderID)
		if !ok {
			log.Debug("relay dropped, room or sender gone")
			return nil
		}

		forward := *msg
		forward.Room = roomKey
		forward.SenderID = sender.ConnID
		s.fanOut(room, sender.ConnID, forward)
		log.Debug("negotiation message relayed")
		return nil

	case domain.MsgChat:
		text, err := s.chatText(msg.Payload)
		if err != nil {
			return err
		}

		room, sender, ok := s.liveSender(roomKey, senderID)
		if !ok {
			log.Debug("chat dropped, room or sender gone")
			return nil
		}

		event := domain.SignalMessage{
			Type:     domain.MsgChat,
			Room:     roomKey,
			SenderID: sender.ConnID,
			Payload: map[string]any{
				"id":        uuid.New().String(),
				"text":      text,
				"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
			},
		}
		s.fanOut(room, sender.ConnID, event)
		log.Debug("chat message relayed")
		return nil

	default:
		return ErrUnsupportedSignal
	}
}

func (s *RelayService) liveSender(roomKey, senderID string) (*domain.Room, *domain.Member, bool) {
	room, ok := s.rooms.ActiveRoom(roomKey)
	if !ok {
		return nil, nil, false
	}
	sender, ok := room.MemberByConn(senderID)
	if !ok {
		return nil, nil, false
	}
	return room, sender, true
}

func (s *RelayService) fanOut(room *domain.Room, senderID string, event domain.SignalMessage) {
	// Delivery is best-effort; a peer with a full queue is on its way out
	// and will surface as a disconnect.
	for _, peer := range room.OtherMembers(senderID) {
		peer.EnqueueEvent(event)
	}
}

func (s *RelayService) chatText(payload map[string]any) (string, error) {
	if payload == nil {
		return "", ErrChatEmpty
	}
	raw, ok := payload["text"].(string)
	if !ok {
		return "", ErrChatEmpty
	}
	text := strings.TrimSpace(raw)
	if text == "" {
		return "", ErrChatEmpty
	}
	if utf8.RuneCountInString(text) > s.maxChatLength {
		return "", ErrChatTooLong
	}
	return text, nil
}
