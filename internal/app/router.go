package app

import (
	"encoding/json"
	"errors"

	"github.com/dkeye/callrelay/internal/core"
	"github.com/dkeye/callrelay/internal/domain"
	"github.com/rs/zerolog/log"
)

// PublishResult reports delivery stats of a fan-out.
type PublishResult struct {
	SendTo  int
	Dropped []domain.ParticipantID
}

// Router delivers frames by participant id, best effort: a missing target or
// a full queue loses the frame and nothing is retried.
type Router struct {
	registry *Registry
	policy   Policy
}

func NewRouter(registry *Registry, policy Policy) *Router {
	if policy == nil {
		policy = DropPolicy{}
	}
	return &Router{registry: registry, policy: policy}
}

// Relay forwards an opaque negotiation payload from one participant to another.
func (rt *Router) Relay(kind core.Kind, from, to domain.ParticipantID, body json.RawMessage) bool {
	conn, ok := rt.registry.Lookup(to)
	if !ok {
		log.Debug().Str("module", "app.router").Str("kind", string(kind)).Str("from", string(from)).Str("to", string(to)).Msg("routing miss")
		return false
	}
	frame, err := core.Encode(kind, core.NewRelayPayload(kind, from, body))
	if err != nil {
		log.Error().Err(err).Str("module", "app.router").Msg("relay encode")
		return false
	}
	return rt.deliver(to, conn, frame) == nil
}

// Send delivers a frame to pid's current connection.
func (rt *Router) Send(pid domain.ParticipantID, kind core.Kind, payload any) bool {
	conn, ok := rt.registry.Lookup(pid)
	if !ok {
		return false
	}
	return rt.SendConn(pid, conn, kind, payload)
}

// SendConn delivers a frame on a specific connection.
func (rt *Router) SendConn(pid domain.ParticipantID, conn core.SignalConnection, kind core.Kind, payload any) bool {
	frame, err := core.Encode(kind, payload)
	if err != nil {
		log.Error().Err(err).Str("module", "app.router").Msg("send encode")
		return false
	}
	return rt.deliver(pid, conn, frame) == nil
}

// Broadcast fans a frame out to members except the originator. members must be
// a snapshot, never a live set.
func (rt *Router) Broadcast(members []domain.ParticipantID, except domain.ParticipantID, kind core.Kind, payload any) PublishResult {
	res := PublishResult{}
	frame, err := core.Encode(kind, payload)
	if err != nil {
		log.Error().Err(err).Str("module", "app.router").Msg("broadcast encode")
		return res
	}
	for _, pid := range members {
		if pid == except {
			continue
		}
		conn, ok := rt.registry.Lookup(pid)
		if !ok {
			res.Dropped = append(res.Dropped, pid)
			continue
		}
		if err := rt.deliver(pid, conn, frame); err != nil {
			res.Dropped = append(res.Dropped, pid)
			continue
		}
		res.SendTo++
	}
	log.Debug().Str("module", "app.router").Str("kind", string(kind)).Str("from", string(except)).
		Int("sent_to", res.SendTo).Int("dropped", len(res.Dropped)).Msg("broadcast result")
	return res
}

func (rt *Router) deliver(pid domain.ParticipantID, conn core.SignalConnection, frame core.Frame) error {
	err := conn.TrySend(frame)
	if err == nil {
		return nil
	}
	if errors.Is(err, core.ErrBackpressure) {
		switch rt.policy.OnBackPressure(pid, conn) {
		case KickMember:
			log.Warn().Str("module", "app.router").Str("participant", string(pid)).Str("conn", string(conn.ID())).Msg("slow peer kicked")
			conn.Close()
		case DropFrame:
			log.Warn().Str("module", "app.router").Str("participant", string(pid)).Msg("frame dropped, backpressure")
		}
		return err
	}
	log.Debug().Err(err).Str("module", "app.router").Str("participant", string(pid)).Msg("deliver failed")
	return err
}
