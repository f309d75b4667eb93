package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveParticipantID_FallsBackToConnID(t *testing.T) {
	req := require.New(t)
	conn := NewConnID()

	pid, err := ResolveParticipantID("", conn)
	req.NoError(err)
	req.Equal(ParticipantID(conn), pid)

	pid, err = ResolveParticipantID("alice", conn)
	req.NoError(err)
	req.Equal(ParticipantID("alice"), pid)

	_, err = ResolveParticipantID(strings.Repeat("a", MaxParticipantIDLen+1), conn)
	req.ErrorIs(err, ErrParticipantIDTooLong)
}

func TestParseRoomID(t *testing.T) {
	req := require.New(t)

	_, err := ParseRoomID("")
	req.ErrorIs(err, ErrEmptyRoomID)

	_, err = ParseRoomID(strings.Repeat("r", MaxRoomIDLen+1))
	req.ErrorIs(err, ErrRoomIDTooLong)

	id, err := ParseRoomID("lobby")
	req.NoError(err)
	req.Equal(RoomID("lobby"), id)
}

func TestParseParticipantID_CountsBytes(t *testing.T) {
	req := require.New(t)

	_, err := ParseParticipantID("")
	req.ErrorIs(err, ErrEmptyParticipantID)

	// 40 runes, 80 bytes
	_, err = ParseParticipantID(strings.Repeat("é", 40))
	req.ErrorIs(err, ErrParticipantIDTooLong)

	// 32 runes, 64 bytes
	id, err := ParseParticipantID(strings.Repeat("é", 32))
	req.NoError(err)
	req.Equal(ParticipantID(strings.Repeat("é", 32)), id)
}
