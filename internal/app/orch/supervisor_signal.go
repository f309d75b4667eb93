package orch

import (
	"encoding/json"

	"github.com/dkeye/callrelay/internal/core"
	"github.com/dkeye/callrelay/internal/domain"
	"github.com/rs/zerolog/log"
)

// Relay routes an offer, answer or ice-candidate from one participant to
// another. Unknown kinds, unbound senders and absent targets are no-ops.
func (s *Supervisor) Relay(kind core.Kind, from domain.ParticipantID, cid domain.ConnID, to domain.ParticipantID, body json.RawMessage) error {
	if !core.IsRelayKind(kind) {
		log.Warn().Str("module", "app.supervisor").Str("kind", string(kind)).Msg("not a relay kind")
		return nil
	}
	return s.exec(func() {
		if _, ok := s.current(from, cid); !ok {
			log.Debug().Str("module", "app.supervisor").Str("participant", string(from)).Msg("relay from unbound connection ignored")
			return
		}
		s.router.Relay(kind, from, to, body)
	})
}

// WhoAmI answers with the participant id and current room.
func (s *Supervisor) WhoAmI(pid domain.ParticipantID, cid domain.ConnID) error {
	return s.exec(func() {
		conn, ok := s.current(pid, cid)
		if !ok {
			return
		}
		resp := core.WhoAmIPayload{ParticipantID: pid}
		if room, ok := s.rooms.RoomOf(pid); ok {
			resp.RoomID = room
		}
		s.router.SendConn(pid, conn, core.KindWhoAmI, resp)
	})
}
