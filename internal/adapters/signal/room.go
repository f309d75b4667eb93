package signal

import (
	"encoding/json"

	"github.com/dkeye/callrelay/internal/core"
	"github.com/dkeye/callrelay/internal/domain"
	"github.com/rs/zerolog/log"
)

func (ctl *SignalWSController) handleJoin(
	pid domain.ParticipantID,
	conn *WsSignalConn,
	raw json.RawMessage,
) {
	var p core.JoinRoomRequest
	if err := ctl.decode(raw, &p); err != nil {
		log.Warn().Err(err).Str("module", "signal").Msg("bad join payload")
		ctl.sendError(conn, "bad_payload")
		return
	}
	room, err := domain.ParseRoomID(p.RoomID)
	if err != nil {
		ctl.sendError(conn, "invalid_room")
		return
	}
	if ctl.Limiter != nil && !ctl.Limiter.Allow(pid) {
		log.Warn().Str("module", "signal").Str("participant", string(pid)).Msg("join rate limited")
		ctl.sendError(conn, "rate_limited")
		return
	}

	log.Info().Str("module", "signal").Str("participant", string(pid)).Str("room", string(room)).Msg("join")
	if err := ctl.Sup.JoinRoom(pid, conn.ID(), room); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("join")
	}
}

// handleLeave leaves the current room; the connection stays open.
func (ctl *SignalWSController) handleLeave(
	pid domain.ParticipantID,
	conn *WsSignalConn,
) {
	log.Info().Str("module", "signal").Str("participant", string(pid)).Msg("leave")
	if err := ctl.Sup.LeaveRoom(pid, conn.ID()); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("leave")
	}
}
