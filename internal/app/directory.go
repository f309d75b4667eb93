package app

import (
	"cmp"
	"slices"

	"github.com/dkeye/callrelay/internal/core"
	"github.com/dkeye/callrelay/internal/domain"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

type roomEntry struct {
	// value is the join sequence, used to hand out rosters in join order
	members map[domain.ParticipantID]uint64
}

// Directory tracks room membership and the inverse participant -> room map.
// It is not safe for concurrent use; the Supervisor loop owns it.
type Directory struct {
	rooms    map[domain.RoomID]*roomEntry
	memberOf map[domain.ParticipantID]domain.RoomID
	seq      uint64
}

type LeaveResult struct {
	Left      bool
	Room      domain.RoomID
	Remaining []domain.ParticipantID
	Deleted   bool
}

type JoinResult struct {
	Room domain.RoomID
	// Roster lists members present before the join, excluding the joiner.
	Roster  []domain.ParticipantID
	Created bool
	// Already is set when the participant was in Room before the call.
	Already bool
	// Switched describes the implicit leave of the previous room, if any.
	Switched LeaveResult
}

func NewDirectory() *Directory {
	return &Directory{
		rooms:    make(map[domain.RoomID]*roomEntry),
		memberOf: make(map[domain.ParticipantID]domain.RoomID),
	}
}

func (d *Directory) Join(room domain.RoomID, pid domain.ParticipantID) JoinResult {
	res := JoinResult{Room: room}
	if cur, ok := d.memberOf[pid]; ok {
		if cur == room {
			res.Already = true
			res.Roster = lo.Without(d.ordered(d.rooms[room]), pid)
			return res
		}
		res.Switched = d.Leave(pid)
	}

	entry, ok := d.rooms[room]
	if !ok {
		entry = &roomEntry{members: make(map[domain.ParticipantID]uint64)}
		d.rooms[room] = entry
		res.Created = true
	}
	res.Roster = d.ordered(entry)

	d.seq++
	entry.members[pid] = d.seq
	d.memberOf[pid] = room
	log.Info().Str("module", "app.directory").Str("participant", string(pid)).Str("room", string(room)).
		Int("members", len(entry.members)).Msg("joined room")
	return res
}

func (d *Directory) Leave(pid domain.ParticipantID) LeaveResult {
	room, ok := d.memberOf[pid]
	if !ok {
		return LeaveResult{}
	}
	delete(d.memberOf, pid)

	res := LeaveResult{Left: true, Room: room}
	entry, ok := d.rooms[room]
	if !ok {
		// memberOf and rooms disagree; repair by treating the room as gone
		log.Warn().Str("module", "app.directory").Str("participant", string(pid)).Str("room", string(room)).Msg("room missing on leave")
		res.Remaining = []domain.ParticipantID{}
		res.Deleted = true
		return res
	}
	delete(entry.members, pid)
	res.Remaining = d.ordered(entry)
	if len(entry.members) == 0 {
		delete(d.rooms, room)
		res.Deleted = true
	}
	log.Info().Str("module", "app.directory").Str("participant", string(pid)).Str("room", string(room)).
		Int("members", len(res.Remaining)).Bool("deleted", res.Deleted).Msg("left room")
	return res
}

func (d *Directory) RoomOf(pid domain.ParticipantID) (domain.RoomID, bool) {
	room, ok := d.memberOf[pid]
	return room, ok
}

// Members returns a copy of the member list in join order, nil for unknown rooms.
func (d *Directory) Members(room domain.RoomID) []domain.ParticipantID {
	entry, ok := d.rooms[room]
	if !ok {
		return nil
	}
	return d.ordered(entry)
}

func (d *Directory) List() []core.RoomInfo {
	out := make([]core.RoomInfo, 0, len(d.rooms))
	for id, entry := range d.rooms {
		out = append(out, core.RoomInfo{ID: id, MemberCount: len(entry.members)})
	}
	slices.SortFunc(out, func(a, b core.RoomInfo) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

func (d *Directory) Snapshot() map[domain.RoomID][]domain.ParticipantID {
	out := make(map[domain.RoomID][]domain.ParticipantID, len(d.rooms))
	for id, entry := range d.rooms {
		out[id] = d.ordered(entry)
	}
	return out
}

func (d *Directory) ordered(entry *roomEntry) []domain.ParticipantID {
	if entry == nil {
		return []domain.ParticipantID{}
	}
	out := lo.Keys(entry.members)
	slices.SortFunc(out, func(a, b domain.ParticipantID) int {
		return cmp.Compare(entry.members[a], entry.members[b])
	})
	return out
}
