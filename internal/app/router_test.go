package app

import (
	"encoding/json"
	"testing"

	"github.com/dkeye/callrelay/internal/core"
	"github.com/dkeye/callrelay/internal/core/coretest"
	"github.com/dkeye/callrelay/internal/domain"
	"github.com/stretchr/testify/require"
)

func TestRouter_Relay_DeliversOnceToTarget(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	a := coretest.NewConn("a", 4)
	b := coretest.NewConn("b", 4)
	registry.Register("A", a)
	registry.Register("B", b)
	router := NewRouter(registry, nil)

	// When B relays an offer to A
	offer := json.RawMessage(`{"type":"offer","sdp":"v=0"}`)
	req.True(router.Relay(core.KindOffer, "B", "A", offer))

	// Then A receives exactly one offer from B
	frames := a.Drain(t)
	req.Len(frames, 1)
	req.Equal(core.KindOffer, frames[0].Type)
	payload := coretest.Decode[core.RelayPayload](t, frames[0])
	req.Equal(domain.ParticipantID("B"), payload.From)
	req.JSONEq(string(offer), string(payload.Offer))
	req.Nil(payload.Answer)

	// And B receives nothing
	req.Empty(b.Drain(t))
}

func TestRouter_Relay_MissingTargetIsDropped(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	a := coretest.NewConn("a", 1)
	registry.Register("A", a)
	router := NewRouter(registry, nil)

	req.False(router.Relay(core.KindICECandidate, "A", "ghost", json.RawMessage(`{}`)))
	req.Empty(a.Drain(t))
}

func TestRouter_Broadcast_SkipsOriginatorAndCountsDrops(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	a := coretest.NewConn("a", 4)
	b := coretest.NewConn("b", 4)
	registry.Register("A", a)
	registry.Register("B", b)
	router := NewRouter(registry, nil)

	res := router.Broadcast([]domain.ParticipantID{"A", "B", "gone"}, "A", core.KindPeerJoined, core.PeerPayload{ParticipantID: "A"})

	req.Equal(1, res.SendTo)
	req.Equal([]domain.ParticipantID{"gone"}, res.Dropped)
	req.Empty(a.Drain(t))
	frames := b.Drain(t)
	req.Len(frames, 1)
	req.Equal(domain.ParticipantID("A"), coretest.Decode[core.PeerPayload](t, frames[0]).ParticipantID)
}

func TestRouter_Backpressure_Policies(t *testing.T) {
	req := require.New(t)

	// Given a peer whose queue holds a single frame
	registry := NewRegistry()
	slow := coretest.NewConn("slow", 1)
	registry.Register("S", slow)

	// With the drop policy the second frame is lost and the peer stays
	drop := NewRouter(registry, DropPolicy{})
	req.True(drop.Send("S", core.KindPong, nil))
	req.False(drop.Send("S", core.KindPong, nil))
	req.False(slow.Closed())

	// With the kick policy the peer is closed
	kick := NewRouter(registry, KickPolicy{})
	req.False(kick.Send("S", core.KindPong, nil))
	req.True(slow.Closed())
}

func TestPolicyFromName(t *testing.T) {
	req := require.New(t)

	p, err := PolicyFromName("")
	req.NoError(err)
	req.IsType(DropPolicy{}, p)

	p, err = PolicyFromName(PolicyClose)
	req.NoError(err)
	req.IsType(KickPolicy{}, p)

	_, err = PolicyFromName("retry")
	req.Error(err)
}
