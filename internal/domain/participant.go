// Package domain contains identifiers without logic, just meta-data and validation
package domain

import (
	"errors"

	"github.com/google/uuid"
)

const (
	MaxParticipantIDLen = 64
	MaxRoomIDLen        = 64
)

var (
	ErrEmptyParticipantID   = errors.New("participant id empty")
	ErrParticipantIDTooLong = errors.New("participant id too long")
	ErrEmptyRoomID          = errors.New("room id empty")
	ErrRoomIDTooLong        = errors.New("room id too long")
)

type (
	ParticipantID string
	RoomID        string
	// ConnID identifies one live transport connection. A participant keeps its
	// ParticipantID across reconnects, the ConnID changes every time.
	ConnID string
)

// NewConnID is a tiny helper to avoid ad-hoc uuid calls in adapters.
func NewConnID() ConnID {
	return ConnID(uuid.NewString())
}

// ResolveParticipantID returns the externally supplied identity, falling back to
// the connection id when the auth collaborator supplied none.
func ResolveParticipantID(raw string, conn ConnID) (ParticipantID, error) {
	if raw == "" {
		return ParticipantID(conn), nil
	}
	if len(raw) > MaxParticipantIDLen {
		return "", ErrParticipantIDTooLong
	}
	return ParticipantID(raw), nil
}

// ParseParticipantID validates an id named by a client, such as a relay
// target. Lengths are in bytes, matching ResolveParticipantID.
func ParseParticipantID(raw string) (ParticipantID, error) {
	if raw == "" {
		return "", ErrEmptyParticipantID
	}
	if len(raw) > MaxParticipantIDLen {
		return "", ErrParticipantIDTooLong
	}
	return ParticipantID(raw), nil
}

func ParseRoomID(raw string) (RoomID, error) {
	if len(raw) == 0 {
		return "", ErrEmptyRoomID
	}
	if len(raw) > MaxRoomIDLen {
		return "", ErrRoomIDTooLong
	}
	return RoomID(raw), nil
}
