package signal

import (
	"github.com/dkeye/callrelay/internal/core"
	"github.com/dkeye/callrelay/internal/domain"
	"github.com/rs/zerolog/log"
)

func (ctl *SignalWSController) handlePing(conn *WsSignalConn) {
	ctl.sendJSON(conn, core.KindPong, nil)
}

func (ctl *SignalWSController) handleWhoAmI(pid domain.ParticipantID, conn *WsSignalConn) {
	if err := ctl.Sup.WhoAmI(pid, conn.ID()); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("whoami")
	}
}
