// Package orch runs the participant lifecycle. All registry and directory
// state is owned by a single loop goroutine; public methods enqueue a closure
// and wait for it, so every transition and the fan-out it triggers happen
// atomically with respect to every other participant.
package orch

import (
	"context"
	"errors"
	"time"

	"github.com/dkeye/callrelay/internal/app"
	"github.com/dkeye/callrelay/internal/core"
	"github.com/dkeye/callrelay/internal/domain"
	"github.com/rs/zerolog/log"
)

var ErrSupervisorStopped = errors.New("supervisor stopped")

const defaultInboxSize = 256

type Supervisor struct {
	registry *app.Registry
	rooms    *app.Directory
	router   *app.Router
	history  core.HistoryNotifier
	now      func() time.Time
	seq      uint64

	inbox   chan func()
	stopped chan struct{}
}

type Option func(*Supervisor)

func WithHistory(h core.HistoryNotifier) Option {
	return func(s *Supervisor) {
		if h != nil {
			s.history = h
		}
	}
}

func WithPolicy(p app.Policy) Option {
	return func(s *Supervisor) { s.router = app.NewRouter(s.registry, p) }
}

func WithInboxSize(n int) Option {
	return func(s *Supervisor) {
		if n > 0 {
			s.inbox = make(chan func(), n)
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Supervisor) { s.now = now }
}

func NewSupervisor(opts ...Option) *Supervisor {
	reg := app.NewRegistry()
	s := &Supervisor{
		registry: reg,
		rooms:    app.NewDirectory(),
		router:   app.NewRouter(reg, app.DropPolicy{}),
		history:  core.NopHistory{},
		now:      time.Now,
		inbox:    make(chan func(), defaultInboxSize),
		stopped:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run processes events until ctx is done. It must be called exactly once.
func (s *Supervisor) Run(ctx context.Context) error {
	defer close(s.stopped)
	log.Info().Str("module", "app.supervisor").Msg("supervisor loop started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "app.supervisor").Int("participants", s.registry.Len()).Msg("supervisor loop stopped")
			return nil
		case fn := <-s.inbox:
			s.handle(fn)
		}
	}
}

func (s *Supervisor) handle(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("module", "app.supervisor").Interface("panic", r).Msg("event handler panic")
		}
	}()
	fn()
}

// exec runs fn on the loop and waits for it to finish.
func (s *Supervisor) exec(fn func()) error {
	done := make(chan struct{})
	task := func() {
		defer close(done)
		fn()
	}
	select {
	case s.inbox <- task:
	case <-s.stopped:
		return ErrSupervisorStopped
	}
	select {
	case <-done:
		return nil
	case <-s.stopped:
		return ErrSupervisorStopped
	}
}

// current returns pid's connection if it is still cid. Events from any other
// connection are stale and must be ignored.
func (s *Supervisor) current(pid domain.ParticipantID, cid domain.ConnID) (core.SignalConnection, bool) {
	conn, ok := s.registry.Lookup(pid)
	if !ok || conn.ID() != cid {
		return nil, false
	}
	return conn, true
}

// Connect registers conn as pid's live connection. A previous connection of
// the same participant is superseded and closed; room membership is kept and
// the room is told with peer-connected, since negotiation with the old
// connection is lost.
func (s *Supervisor) Connect(pid domain.ParticipantID, conn core.SignalConnection) error {
	return s.exec(func() {
		prev, replaced := s.registry.Register(pid, conn)
		if replaced {
			prev.Close()
		}
		s.router.SendConn(pid, conn, core.KindWelcome, core.WelcomePayload{ParticipantID: pid, ConnID: conn.ID()})
		room, ok := s.rooms.RoomOf(pid)
		if !ok {
			return
		}
		roster := s.withoutSelf(s.rooms.Members(room), pid)
		s.router.SendConn(pid, conn, core.KindRoomRoster, core.RosterPayload{RoomID: room, Participants: roster})
		if replaced {
			s.router.Broadcast(roster, pid, core.KindPeerConnected, core.PeerPayload{ParticipantID: pid})
		}
	})
}

// Disconnect tears pid down, but only while cid is still its binding.
func (s *Supervisor) Disconnect(pid domain.ParticipantID, cid domain.ConnID) error {
	return s.exec(func() {
		if !s.registry.IsCurrent(pid, cid) {
			log.Debug().Str("module", "app.supervisor").Str("participant", string(pid)).Str("conn", string(cid)).Msg("stale disconnect ignored")
			return
		}
		if res := s.rooms.Leave(pid); res.Left {
			s.router.Broadcast(res.Remaining, pid, core.KindPeerDisconnected, core.PeerPayload{ParticipantID: pid})
			s.recordLeave(s.stamp(), pid, res, core.ParticipantDisconnected)
		}
		s.registry.Unregister(pid, cid)
	})
}

// Snapshot returns a consistent copy of registry and directory state.
func (s *Supervisor) Snapshot() (core.Snapshot, error) {
	var snap core.Snapshot
	err := s.exec(func() {
		snap = core.Snapshot{
			Participants: s.registry.Participants(),
			Rooms:        s.rooms.Snapshot(),
		}
	})
	return snap, err
}

func (s *Supervisor) Rooms() ([]core.RoomInfo, error) {
	var out []core.RoomInfo
	err := s.exec(func() { out = s.rooms.List() })
	return out, err
}

func (s *Supervisor) RoomOf(pid domain.ParticipantID) (domain.RoomID, bool, error) {
	var (
		room domain.RoomID
		ok   bool
	)
	err := s.exec(func() { room, ok = s.rooms.RoomOf(pid) })
	return room, ok, err
}

func (s *Supervisor) withoutSelf(members []domain.ParticipantID, pid domain.ParticipantID) []domain.ParticipantID {
	out := make([]domain.ParticipantID, 0, len(members))
	for _, m := range members {
		if m != pid {
			out = append(out, m)
		}
	}
	return out
}

// stamp returns the time shared by every event of one transition.
func (s *Supervisor) stamp() time.Time {
	return s.now().UTC()
}

func (s *Supervisor) notify(at time.Time, kind core.RoomEventKind, room domain.RoomID, pid domain.ParticipantID, members int) {
	s.seq++
	s.history.Notify(core.RoomEvent{
		Kind:        kind,
		Room:        room,
		Participant: pid,
		Members:     members,
		At:          at,
		Seq:         s.seq,
	})
}

func (s *Supervisor) recordLeave(at time.Time, pid domain.ParticipantID, res app.LeaveResult, kind core.RoomEventKind) {
	s.notify(at, kind, res.Room, pid, len(res.Remaining))
	if res.Deleted {
		s.notify(at, core.RoomClosed, res.Room, "", 0)
	}
}
