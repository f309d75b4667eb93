package core

import (
	"errors"

	"github.com/dkeye/callrelay/internal/domain"
)

var (
	ErrBackpressure     = errors.New("backpressure")
	ErrConnectionClosed = errors.New("connection closed")
)

// Frame is a raw encoded outbound message.
type Frame []byte

// SignalConnection abstracts for a system messaging transport
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	// ID is unique per physical connection, never reused across reconnects.
	ID() domain.ConnID
	// TrySend must not block. It returns ErrBackpressure when the outbound
	// queue is full and ErrConnectionClosed after Close.
	TrySend(Frame) error
	Close()
}
