// Package coretest provides an in-memory core.SignalConnection for tests.
package coretest

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/dkeye/callrelay/internal/core"
	"github.com/dkeye/callrelay/internal/domain"
	"github.com/stretchr/testify/require"
)

type Conn struct {
	id     domain.ConnID
	frames chan core.Frame

	mu     sync.Mutex
	closed bool
}

func NewConn(id string, buffer int) *Conn {
	return &Conn{id: domain.ConnID(id), frames: make(chan core.Frame, buffer)}
}

func (c *Conn) ID() domain.ConnID { return c.id }

func (c *Conn) TrySend(f core.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return core.ErrConnectionClosed
	}
	select {
	case c.frames <- f:
		return nil
	default:
		return core.ErrBackpressure
	}
}

func (c *Conn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *Conn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Drain returns every frame queued so far, decoded.
func (c *Conn) Drain(t *testing.T) []core.Envelope {
	t.Helper()
	var out []core.Envelope
	for {
		select {
		case f := <-c.frames:
			var env core.Envelope
			require.NoError(t, json.Unmarshal(f, &env))
			out = append(out, env)
		default:
			return out
		}
	}
}

// OfKind filters envelopes by type.
func OfKind(envs []core.Envelope, kind core.Kind) []core.Envelope {
	var out []core.Envelope
	for _, e := range envs {
		if e.Type == kind {
			out = append(out, e)
		}
	}
	return out
}

// Decode unmarshals an envelope payload into v.
func Decode[T any](t *testing.T, env core.Envelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(env.Payload, &v))
	return v
}
