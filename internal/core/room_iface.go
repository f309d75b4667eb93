package core

import "github.com/dkeye/callrelay/internal/domain"

// RoomInfo is a read-only view for APIs.
type RoomInfo struct {
	ID          domain.RoomID `json:"id"`
	MemberCount int           `json:"member_count"`
}

// Snapshot is a consistent copy of relay state taken between two events.
type Snapshot struct {
	Participants []domain.ParticipantID                   `json:"participants"`
	Rooms        map[domain.RoomID][]domain.ParticipantID `json:"rooms"`
}
