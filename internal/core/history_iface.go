//go:generate go run go.uber.org/mock/mockgen -source=history_iface.go -destination=../mocks/mock_history.go -package=mocks
package core

import (
	"time"

	"github.com/dkeye/callrelay/internal/domain"
)

type RoomEventKind string

const (
	RoomCreated             RoomEventKind = "room-created"
	ParticipantJoined       RoomEventKind = "participant-joined"
	ParticipantLeft         RoomEventKind = "participant-left"
	ParticipantDisconnected RoomEventKind = "participant-disconnected"
	RoomClosed              RoomEventKind = "room-closed"
)

// RoomEvent is a room lifecycle fact handed to the history collaborator.
type RoomEvent struct {
	Kind        RoomEventKind        `msgpack:"kind" json:"kind"`
	Room        domain.RoomID        `msgpack:"room" json:"room"`
	Participant domain.ParticipantID `msgpack:"participant,omitempty" json:"participant,omitempty"`
	Members     int                  `msgpack:"members" json:"members"`
	At          time.Time            `msgpack:"at" json:"at"`
	// Seq orders events that share a timestamp. It is assigned by the
	// supervisor and only grows within one process.
	Seq uint64 `msgpack:"seq" json:"seq"`
}

// HistoryNotifier receives room lifecycle events.
// Notify is called from the supervisor loop and must never block.
type HistoryNotifier interface {
	Notify(RoomEvent)
}

// NopHistory discards every event.
type NopHistory struct{}

func (NopHistory) Notify(RoomEvent) {}
