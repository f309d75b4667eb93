package storage

import (
	"context"
	"testing"
	"time"

	"github.com/dkeye/callrelay/internal/core"
	"github.com/stretchr/testify/require"
)

func openTestHistory(t *testing.T, queue int) *History {
	t.Helper()
	h, err := OpenHistory(HistoryConfig{InMemory: true, QueueSize: queue})
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.Close() })
	return h
}

func TestHistory_Store_And_Get_NewestFirst(t *testing.T) {
	req := require.New(t)
	h := openTestHistory(t, 8)
	at := time.Now().UTC()
	events := []core.RoomEvent{
		{Kind: core.RoomCreated, Room: "lobby", Participant: "A", At: at},
		{Kind: core.ParticipantJoined, Room: "lobby", Participant: "A", Members: 1, At: at.Add(time.Second)},
		{Kind: core.ParticipantJoined, Room: "lobby", Participant: "B", Members: 2, At: at.Add(2 * time.Second)},
		{Kind: core.RoomCreated, Room: "lobby:2", Participant: "C", At: at.Add(3 * time.Second)},
	}
	for _, e := range events {
		req.NoError(h.Store(e))
	}

	// When fetching the lobby history
	got, err := h.Events("lobby", 0)
	req.NoError(err)

	// Then only lobby events come back, newest first
	req.Len(got, 3)
	req.Equal(core.ParticipantJoined, got[0].Kind)
	req.Equal("B", string(got[0].Participant))
	req.True(got[0].At.Equal(events[2].At))
	req.Equal(core.RoomCreated, got[2].Kind)

	// And the limit is honored
	got, err = h.Events("lobby", 2)
	req.NoError(err)
	req.Len(got, 2)

	got, err = h.Events("nowhere", 0)
	req.NoError(err)
	req.Empty(got)
}

func TestHistory_SameTimestamp_OrderedBySeq(t *testing.T) {
	req := require.New(t)
	h := openTestHistory(t, 8)
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	// Given one transition stamped once, stored out of order
	for _, e := range []core.RoomEvent{
		{Kind: core.ParticipantJoined, Room: "r", Participant: "A", Members: 1, At: at, Seq: 2},
		{Kind: core.RoomClosed, Room: "r", At: at, Seq: 10},
		{Kind: core.RoomCreated, Room: "r", Participant: "A", At: at, Seq: 1},
	} {
		req.NoError(h.Store(e))
	}

	got, err := h.Events("r", 0)
	req.NoError(err)

	// Then the sequence decides, newest first
	req.Len(got, 3)
	req.Equal([]uint64{10, 2, 1}, []uint64{got[0].Seq, got[1].Seq, got[2].Seq})
	req.Equal(core.RoomCreated, got[2].Kind)
}

func TestHistory_Notify_IsWrittenByRun(t *testing.T) {
	req := require.New(t)
	h := openTestHistory(t, 8)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = h.Run(ctx)
	}()

	h.Notify(core.RoomEvent{Kind: core.RoomCreated, Room: "r", Participant: "A", At: time.Now().UTC()})

	req.Eventually(func() bool {
		got, err := h.Events("r", 0)
		return err == nil && len(got) == 1
	}, time.Second, 10*time.Millisecond)

	cancel()
	<-done
}

func TestHistory_Notify_DropsWhenQueueFull(t *testing.T) {
	req := require.New(t)
	h := openTestHistory(t, 1)

	// Given nobody drains the queue
	h.Notify(core.RoomEvent{Kind: core.RoomCreated, Room: "r"})
	h.Notify(core.RoomEvent{Kind: core.RoomClosed, Room: "r"})

	// Then the second event is dropped without blocking
	req.Equal(uint64(1), h.Dropped())

	// And Run flushes the queued one on shutdown
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req.NoError(h.Run(ctx))
	got, err := h.Events("r", 0)
	req.NoError(err)
	req.Len(got, 1)
	req.Equal(core.RoomCreated, got[0].Kind)
}
