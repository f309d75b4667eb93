package app

import (
	"slices"

	"github.com/dkeye/callrelay/internal/core"
	"github.com/dkeye/callrelay/internal/domain"
	"github.com/rs/zerolog/log"
)

// Registry maps a participant to its single live connection.
// It is not safe for concurrent use; the Supervisor loop owns it.
type Registry struct {
	bindings map[domain.ParticipantID]core.SignalConnection
}

func NewRegistry() *Registry {
	return &Registry{
		bindings: make(map[domain.ParticipantID]core.SignalConnection),
	}
}

// Register binds conn to pid, last writer wins. The superseded connection is
// returned when it differs from conn.
func (r *Registry) Register(pid domain.ParticipantID, conn core.SignalConnection) (core.SignalConnection, bool) {
	prev, ok := r.bindings[pid]
	r.bindings[pid] = conn
	if ok && prev.ID() != conn.ID() {
		log.Info().Str("module", "app.registry").Str("participant", string(pid)).
			Str("conn", string(conn.ID())).Str("superseded", string(prev.ID())).Msg("rebound participant")
		return prev, true
	}
	log.Info().Str("module", "app.registry").Str("participant", string(pid)).Str("conn", string(conn.ID())).Msg("bound participant")
	return nil, false
}

// Lookup on an unknown participant is a normal miss, not an error.
func (r *Registry) Lookup(pid domain.ParticipantID) (core.SignalConnection, bool) {
	conn, ok := r.bindings[pid]
	return conn, ok
}

// IsCurrent reports whether cid is the connection pid is bound to right now.
func (r *Registry) IsCurrent(pid domain.ParticipantID, cid domain.ConnID) bool {
	conn, ok := r.bindings[pid]
	return ok && conn.ID() == cid
}

// Unregister removes the binding only while it still refers to cid, so a late
// close of a superseded connection cannot evict its replacement.
func (r *Registry) Unregister(pid domain.ParticipantID, cid domain.ConnID) bool {
	if !r.IsCurrent(pid, cid) {
		log.Debug().Str("module", "app.registry").Str("participant", string(pid)).Str("conn", string(cid)).Msg("unbind skipped, not current")
		return false
	}
	delete(r.bindings, pid)
	log.Info().Str("module", "app.registry").Str("participant", string(pid)).Str("conn", string(cid)).Msg("unbound participant")
	return true
}

func (r *Registry) Len() int { return len(r.bindings) }

func (r *Registry) Participants() []domain.ParticipantID {
	out := make([]domain.ParticipantID, 0, len(r.bindings))
	for pid := range r.bindings {
		out = append(out, pid)
	}
	slices.Sort(out)
	return out
}
