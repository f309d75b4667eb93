package signal

import (
	"encoding/json"

	"github.com/dkeye/callrelay/internal/core"
	"github.com/dkeye/callrelay/internal/domain"
	"github.com/rs/zerolog/log"
)

// handleRelay forwards offer, answer and ice-candidate frames. Only the target
// is read; the negotiation body is passed through untouched.
func (ctl *SignalWSController) handleRelay(
	pid domain.ParticipantID,
	conn *WsSignalConn,
	kind core.Kind,
	raw json.RawMessage,
) {
	var p core.RelayRequest
	if err := ctl.decode(raw, &p); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("kind", string(kind)).Msg("bad relay payload")
		ctl.sendError(conn, "bad_payload")
		return
	}
	to, err := domain.ParseParticipantID(p.Target)
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("kind", string(kind)).Msg("bad relay target")
		ctl.sendError(conn, "bad_payload")
		return
	}
	body := p.Body(kind)
	if len(body) == 0 {
		ctl.sendError(conn, "bad_payload")
		return
	}
	if err := ctl.Sup.Relay(kind, pid, conn.ID(), to, body); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("relay")
	}
}
