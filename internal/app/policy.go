package app

import (
	"fmt"

	"github.com/dkeye/callrelay/internal/core"
	"github.com/dkeye/callrelay/internal/domain"
)

type BackpressureAction int

const (
	DropFrame BackpressureAction = iota
	KickMember
)

const (
	PolicyDrop  = "drop"
	PolicyClose = "close"
)

// Policy decides what happens to a peer whose outbound queue is full.
type Policy interface {
	OnBackPressure(pid domain.ParticipantID, conn core.SignalConnection) BackpressureAction
}

// DropPolicy loses the frame and keeps the peer.
type DropPolicy struct{}

func (DropPolicy) OnBackPressure(domain.ParticipantID, core.SignalConnection) BackpressureAction {
	return DropFrame
}

// KickPolicy closes the slow connection; the transport then runs the normal
// disconnect lifecycle for it.
type KickPolicy struct{}

func (KickPolicy) OnBackPressure(domain.ParticipantID, core.SignalConnection) BackpressureAction {
	return KickMember
}

func PolicyFromName(name string) (Policy, error) {
	switch name {
	case "", PolicyDrop:
		return DropPolicy{}, nil
	case PolicyClose:
		return KickPolicy{}, nil
	}
	return nil, fmt.Errorf("unknown backpressure policy %q", name)
}
