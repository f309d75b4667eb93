package core

import (
	"encoding/json"
	"fmt"

	"github.com/dkeye/callrelay/internal/domain"
)

// Kind is the "type" field of every frame on the signaling channel.
type Kind string

// Inbound kinds.
const (
	KindJoinRoom  Kind = "join-room"
	KindLeaveRoom Kind = "leave-room"
	KindWhoAmI    Kind = "whoami"
	KindPing      Kind = "ping"
)

// Relayed kinds travel in both directions.
const (
	KindOffer        Kind = "offer"
	KindAnswer       Kind = "answer"
	KindICECandidate Kind = "ice-candidate"
)

// Outbound kinds.
const (
	KindWelcome          Kind = "welcome"
	KindRoomRoster       Kind = "room-roster"
	KindPeerJoined       Kind = "peer-joined"
	KindPeerConnected    Kind = "peer-connected"
	KindPeerLeft         Kind = "peer-left"
	KindPeerDisconnected Kind = "peer-disconnected"
	KindLeft             Kind = "left"
	KindPong             Kind = "pong"
	KindError            Kind = "error"
)

// IsRelayKind reports whether k is routed point-to-point.
func IsRelayKind(k Kind) bool {
	switch k {
	case KindOffer, KindAnswer, KindICECandidate:
		return true
	}
	return false
}

// Envelope is the wire shape of every frame.
type Envelope struct {
	Type    Kind            `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type JoinRoomRequest struct {
	RoomID string `json:"roomId" validate:"required"`
}

// RelayRequest carries exactly one of Offer, Answer or Candidate depending on
// the envelope type. The negotiation payload is never inspected.
type RelayRequest struct {
	Offer     json.RawMessage `json:"offer,omitempty"`
	Answer    json.RawMessage `json:"answer,omitempty"`
	Candidate json.RawMessage `json:"candidate,omitempty"`
	Target    string          `json:"target" validate:"required"`
}

// Body returns the opaque negotiation payload for kind.
func (r RelayRequest) Body(kind Kind) json.RawMessage {
	switch kind {
	case KindOffer:
		return r.Offer
	case KindAnswer:
		return r.Answer
	case KindICECandidate:
		return r.Candidate
	}
	return nil
}

type RelayPayload struct {
	Offer     json.RawMessage      `json:"offer,omitempty"`
	Answer    json.RawMessage      `json:"answer,omitempty"`
	Candidate json.RawMessage      `json:"candidate,omitempty"`
	From      domain.ParticipantID `json:"fromParticipantId"`
}

func NewRelayPayload(kind Kind, from domain.ParticipantID, body json.RawMessage) RelayPayload {
	p := RelayPayload{From: from}
	switch kind {
	case KindOffer:
		p.Offer = body
	case KindAnswer:
		p.Answer = body
	case KindICECandidate:
		p.Candidate = body
	}
	return p
}

type PeerPayload struct {
	ParticipantID domain.ParticipantID `json:"participantId"`
}

type RosterPayload struct {
	RoomID       domain.RoomID          `json:"roomId"`
	Participants []domain.ParticipantID `json:"participants"`
}

type WelcomePayload struct {
	ParticipantID domain.ParticipantID `json:"participantId"`
	ConnID        domain.ConnID        `json:"connectionId"`
}

type WhoAmIPayload struct {
	ParticipantID domain.ParticipantID `json:"participantId"`
	RoomID        domain.RoomID        `json:"roomId,omitempty"`
}

type LeftPayload struct {
	RoomID domain.RoomID `json:"roomId"`
}

type ErrorPayload struct {
	Error string `json:"error"`
}

// Encode marshals payload into an envelope of the given kind.
func Encode(kind Kind, payload any) (Frame, error) {
	env := Envelope{Type: kind}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode %s payload: %w", kind, err)
		}
		env.Payload = raw
	}
	b, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("encode %s envelope: %w", kind, err)
	}
	return b, nil
}
