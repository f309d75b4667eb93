package storage

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/dgraph-io/badger/v4"
	"github.com/dkeye/callrelay/internal/core"
	"github.com/dkeye/callrelay/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/vmihailenco/msgpack/v5"
)

type HistoryConfig struct {
	Path      string
	InMemory  bool
	QueueSize int
}

// History is the badger-backed room history. Notify only enqueues; Run owns
// all writes.
type History struct {
	db      *badger.DB
	queue   chan core.RoomEvent
	dropped atomic.Uint64
}

func OpenHistory(cfg HistoryConfig) (*History, error) {
	opts := badger.DefaultOptions(cfg.Path)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts = opts.WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open history store: %w", err)
	}
	size := cfg.QueueSize
	if size <= 0 {
		size = 1024
	}
	log.Info().Str("module", "storage.history").Str("path", cfg.Path).Bool("in_memory", cfg.InMemory).Msg("history store opened")
	return &History{db: db, queue: make(chan core.RoomEvent, size)}, nil
}

// Notify never blocks: when the writer falls behind the event is dropped.
func (h *History) Notify(e core.RoomEvent) {
	select {
	case h.queue <- e:
	default:
		h.dropped.Add(1)
		log.Warn().Str("module", "storage.history").Str("room", string(e.Room)).Str("kind", string(e.Kind)).Msg("history queue full, event dropped")
	}
}

func (h *History) Dropped() uint64 { return h.dropped.Load() }

// Run writes queued events until ctx is done, then flushes what is left.
func (h *History) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			for {
				select {
				case e := <-h.queue:
					h.write(e)
				default:
					return nil
				}
			}
		case e := <-h.queue:
			h.write(e)
		}
	}
}

func (h *History) write(e core.RoomEvent) {
	if err := h.Store(e); err != nil {
		log.Error().Err(err).Str("module", "storage.history").Str("room", string(e.Room)).Msg("store event")
	}
}

// Store persists one event under "room:{len}:{room}:{ts19}:{seq20}:{uuid}".
// The padded timestamp and sequence keep a room's events in emission order,
// the uuid keeps keys unique across restarts, the length prefix keeps room ids
// containing ':' apart.
func (h *History) Store(e core.RoomEvent) error {
	key := fmt.Sprintf("%s%019d:%020d:%s", roomPrefix(e.Room), e.At.UnixNano(), e.Seq, uuid.NewString())
	b, err := msgpack.Marshal(&e)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	return h.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), b)
	})
}

// Events returns up to limit events for room, newest first.
func (h *History) Events(room domain.RoomID, limit int) ([]core.RoomEvent, error) {
	out := []core.RoomEvent{}
	prefix := []byte(roomPrefix(room))
	err := h.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		seek := append(append([]byte{}, prefix...), 0xFF)
		for it.Seek(seek); it.ValidForPrefix(prefix); it.Next() {
			if limit > 0 && len(out) == limit {
				break
			}
			var e core.RoomEvent
			if err := it.Item().Value(func(v []byte) error {
				return msgpack.Unmarshal(v, &e)
			}); err != nil {
				return fmt.Errorf("decode event: %w", err)
			}
			out = append(out, e)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (h *History) Close() error {
	return h.db.Close()
}

func roomPrefix(room domain.RoomID) string {
	return fmt.Sprintf("room:%d:%s:", len(room), room)
}
