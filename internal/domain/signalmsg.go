package domain

import "github.com/pion/webrtc/v3"

// Inbound message types consumed from a connection.
const (
	MsgJoinRoom     = "join-room"
	MsgLeaveRoom    = "leave-room"
	MsgOffer        = "offer"
	MsgAnswer       = "answer"
	MsgICECandidate = "ice-candidate"
	MsgChat         = "chat-message"
)

// Outbound event types produced toward a connection.
const (
	EventConnected        = "connected"
	EventRoomReady        = "room-ready"
	EventRoomFull         = "room-full"
	EventLeft             = "left"
	EventPeerLeft         = "peer-left"
	EventPeerDisconnected = "peer-disconnected"
	EventError            = "error"
)

// SignalMessage is the single wire frame for both directions. Negotiation
// payloads (SDP, ICE) are carried as-is and never inspected by the relay;
// the typed fields exist only so the frame round-trips cleanly.
type SignalMessage struct {
	Type      string                     `json:"type"`
	Room      string                     `json:"room,omitempty"`
	SenderID  string                     `json:"sender_id,omitempty"`
	SDP       *webrtc.SessionDescription `json:"sdp,omitempty"`
	Candidate *webrtc.ICECandidateInit   `json:"candidate,omitempty"`
	Payload   map[string]any             `json:"payload,omitempty"`
}
