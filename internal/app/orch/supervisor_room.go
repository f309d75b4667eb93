package orch

import (
	"github.com/dkeye/callrelay/internal/core"
	"github.com/dkeye/callrelay/internal/domain"
	"github.com/rs/zerolog/log"
)

// JoinRoom moves pid into room. A participant already in another room leaves
// it first, with peer-left sent to its former peers. Joining the current room
// again changes nothing.
func (s *Supervisor) JoinRoom(pid domain.ParticipantID, cid domain.ConnID, room domain.RoomID) error {
	return s.exec(func() {
		conn, ok := s.current(pid, cid)
		if !ok {
			log.Debug().Str("module", "app.supervisor").Str("participant", string(pid)).Msg("join from unbound connection ignored")
			return
		}
		res := s.rooms.Join(room, pid)
		if res.Already {
			log.Debug().Str("module", "app.supervisor").Str("participant", string(pid)).Str("room", string(room)).Msg("already in room")
			return
		}
		at := s.stamp()
		if res.Switched.Left {
			log.Info().Str("module", "app.supervisor").Str("participant", string(pid)).
				Str("from_room", string(res.Switched.Room)).Str("room", string(room)).Msg("switching room")
			s.router.Broadcast(res.Switched.Remaining, pid, core.KindPeerLeft, core.PeerPayload{ParticipantID: pid})
			s.recordLeave(at, pid, res.Switched, core.ParticipantLeft)
		}
		if res.Created {
			s.notify(at, core.RoomCreated, room, pid, 0)
		}
		s.notify(at, core.ParticipantJoined, room, pid, len(res.Roster)+1)

		s.router.Broadcast(res.Roster, pid, core.KindPeerJoined, core.PeerPayload{ParticipantID: pid})
		s.router.SendConn(pid, conn, core.KindRoomRoster, core.RosterPayload{RoomID: room, Participants: res.Roster})
	})
}

// LeaveRoom takes pid out of its room without closing the connection.
func (s *Supervisor) LeaveRoom(pid domain.ParticipantID, cid domain.ConnID) error {
	return s.exec(func() {
		conn, ok := s.current(pid, cid)
		if !ok {
			return
		}
		res := s.rooms.Leave(pid)
		if !res.Left {
			log.Debug().Str("module", "app.supervisor").Str("participant", string(pid)).Msg("leave without room")
			return
		}
		s.router.Broadcast(res.Remaining, pid, core.KindPeerLeft, core.PeerPayload{ParticipantID: pid})
		s.recordLeave(s.stamp(), pid, res, core.ParticipantLeft)
		s.router.SendConn(pid, conn, core.KindLeft, core.LeftPayload{RoomID: res.Room})
	})
}
