package mapcache

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
)

// shardCount follows the original's per-area granularity: area_cache.rs
// treats each AreaCache as its own independently-cloned unit, so
// sharding by area id (rather than one cache-wide lock) preserves that
// "two different areas never contend" property in the concurrent Go
// port. Spec.md §5 calls for "indices protected by the same store's
// per-shard locks" — sharding is the mechanism that gives that
// sentence a referent.
const shardCount = 16

// writeBackTimeout bounds how long one background write-back call may
// run before the cache gives up on it and logs a MapBackendError
// (spec.md §7); the in-memory state it already applied is unaffected.
const writeBackTimeout = 10 * time.Second

// writeBackConcurrency bounds how many write-back calls run at once,
// grounded on SPEC_FULL.md's "background write-back worker pool
// (one errgroup.Group per cache, fire-and-forget upserts with bounded
// concurrency)".
const writeBackConcurrency = 8

type shard struct {
	mu    sync.RWMutex
	areas map[AreaID]*Area
}

// Cache is the Shared Map Cache: spec.md §4.8's concurrent keyed store.
// Every write mutates a copy-on-write Area and swaps it into its shard
// under a short-held lock, then enqueues an idempotent upsert to
// Backend without waiting for it — "read your writes" reads from the
// in-memory copy regardless of whether the write-back has landed yet.
type Cache struct {
	shards  [shardCount]*shard
	backend Backend
	logger  *log.Logger

	grp  errgroup.Group
	gate chan struct{}

	titleMu    sync.RWMutex
	titleIndex map[string]map[RoomKey]struct{}

	locMu    sync.RWMutex
	location *RoomKey
}

// New constructs an empty Cache backed by backend. A nil logger falls
// back to log.Default(), matching the rest of this tree's ambient
// logging convention.
func New(backend Backend, logger *log.Logger) *Cache {
	if logger == nil {
		logger = log.Default()
	}
	c := &Cache{
		backend:    backend,
		logger:     logger,
		gate:       make(chan struct{}, writeBackConcurrency),
		titleIndex: make(map[string]map[RoomKey]struct{}),
	}
	for i := range c.shards {
		c.shards[i] = &shard{areas: make(map[AreaID]*Area)}
	}
	return c
}

func (c *Cache) shardFor(id AreaID) *shard {
	return c.shards[id.Lo()%shardCount]
}

// writeBack runs fn in the background, bounded to writeBackConcurrency
// concurrent calls; its error, if any, is logged and otherwise
// swallowed (spec.md §7: "MapBackendError — logged; cache state is
// retained; no exception propagates to scripts").
func (c *Cache) writeBack(name string, fn func(ctx context.Context) error) {
	c.grp.Go(func() error {
		c.gate <- struct{}{}
		defer func() { <-c.gate }()
		ctx, cancel := context.WithTimeout(context.Background(), writeBackTimeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			c.logger.Error("map cache write-back failed", "op", name, "err", err)
		}
		return nil
	})
}

// Close waits for any in-flight write-backs to finish, matching §5's
// "Session shutdown cancels outstanding script tasks; map write-backs
// in flight are allowed to finish."
func (c *Cache) Close() {
	_ = c.grp.Wait()
}

// ---- reads ----

// ListAreaIDs returns every area id the cache currently holds, in no
// particular order.
func (c *Cache) ListAreaIDs() []AreaID {
	var out []AreaID
	for _, s := range c.shards {
		s.mu.RLock()
		for id := range s.areas {
			out = append(out, id)
		}
		s.mu.RUnlock()
	}
	return out
}

// GetArea returns an immutable snapshot of one area.
func (c *Cache) GetArea(id AreaID) (Area, bool) {
	s := c.shardFor(id)
	s.mu.RLock()
	defer s.mu.RUnlock()
	area, ok := s.areas[id]
	if !ok {
		return Area{}, false
	}
	return *area, true
}

// GetRoom returns an immutable snapshot of one room.
func (c *Cache) GetRoom(key RoomKey) (Room, bool) {
	s := c.shardFor(key.AreaID)
	s.mu.RLock()
	defer s.mu.RUnlock()
	area, ok := s.areas[key.AreaID]
	if !ok {
		return Room{}, false
	}
	room, ok := area.Rooms[key.RoomNumber]
	return room, ok
}

// GetExit looks up one exit by id, scoped to an area (exits are not
// addressable globally, mirroring cloud.rs's /areas/{id}/exits/{id}
// path shape).
func (c *Cache) GetExit(areaID AreaID, exitID ExitID) (Exit, bool) {
	s := c.shardFor(areaID)
	s.mu.RLock()
	defer s.mu.RUnlock()
	area, ok := s.areas[areaID]
	if !ok {
		return Exit{}, false
	}
	roomNumber, ok := area.exitIndex[exitID]
	if !ok {
		return Exit{}, false
	}
	room := area.Rooms[roomNumber]
	for _, e := range room.Exits {
		if e.ID == exitID {
			return e, true
		}
	}
	return Exit{}, false
}

// ListRoomNumbers returns every room number in an area, in no
// particular order.
func (c *Cache) ListRoomNumbers(areaID AreaID) []RoomNumber {
	s := c.shardFor(areaID)
	s.mu.RLock()
	defer s.mu.RUnlock()
	area, ok := s.areas[areaID]
	if !ok {
		return nil
	}
	out := make([]RoomNumber, 0, len(area.Rooms))
	for n := range area.Rooms {
		out = append(out, n)
	}
	return out
}

// ListRoomsByTitleAndDescription returns every room sharing the exact
// (title, description) pair, across all areas — the "collapse rooms
// that look identical" query a mapper builder uses to detect a room
// already visited under a different number (spec.md §4.8's secondary
// index).
func (c *Cache) ListRoomsByTitleAndDescription(title, description string) []RoomKey {
	c.titleMu.RLock()
	defer c.titleMu.RUnlock()
	set, ok := c.titleIndex[titleDescKey(title, description)]
	if !ok {
		return nil
	}
	out := make([]RoomKey, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	return out
}

// CurrentLocation returns the room last set by SetCurrentLocation, if
// any.
func (c *Cache) CurrentLocation() (RoomKey, bool) {
	c.locMu.RLock()
	defer c.locMu.RUnlock()
	if c.location == nil {
		return RoomKey{}, false
	}
	return *c.location, true
}

// ---- writes ----

// CreateArea creates a new, empty area and returns its id.
func (c *Cache) CreateArea(name string) AreaID {
	id := NewAreaID()
	area := newArea(id, name)

	s := c.shardFor(id)
	s.mu.Lock()
	s.areas[id] = area
	s.mu.Unlock()

	snapshot := *area
	c.writeBack("UpsertArea", func(ctx context.Context) error {
		return c.backend.UpsertArea(ctx, snapshot)
	})
	return id
}

// RenameArea renames an existing area.
func (c *Cache) RenameArea(id AreaID, name string) error {
	s := c.shardFor(id)
	s.mu.Lock()
	area, ok := s.areas[id]
	if !ok {
		s.mu.Unlock()
		return ErrAreaNotFound{AreaID: id}
	}
	next := area.clone()
	next.Name = name
	next.Rev++
	s.areas[id] = next
	s.mu.Unlock()

	snapshot := *next
	c.writeBack("UpsertArea", func(ctx context.Context) error {
		return c.backend.UpsertArea(ctx, snapshot)
	})
	return nil
}

// SetAreaProperty sets a named property on an area.
func (c *Cache) SetAreaProperty(id AreaID, name, value string) error {
	s := c.shardFor(id)
	s.mu.Lock()
	area, ok := s.areas[id]
	if !ok {
		s.mu.Unlock()
		return ErrAreaNotFound{AreaID: id}
	}
	next := area.clone()
	next.Properties[name] = value
	next.Rev++
	s.areas[id] = next
	s.mu.Unlock()

	c.writeBack("SetAreaProperty", func(ctx context.Context) error {
		return c.backend.SetAreaProperty(ctx, id, name, value)
	})
	return nil
}

// CreateRoom creates a new room in an area, numbered one past the
// highest room number the area has ever assigned (numbers of deleted
// rooms are not reused), and returns its number.
func (c *Cache) CreateRoom(areaID AreaID, title, description string) (RoomNumber, error) {
	s := c.shardFor(areaID)
	s.mu.Lock()
	area, ok := s.areas[areaID]
	if !ok {
		s.mu.Unlock()
		return 0, ErrAreaNotFound{AreaID: areaID}
	}
	next := area.clone()
	number := next.maxRoomNumber + 1
	room := newRoom(number)
	room.Title = title
	room.Description = description
	next.Rooms[number] = room
	next.maxRoomNumber = number
	next.Rev++
	s.areas[areaID] = next
	s.mu.Unlock()

	c.indexRoom(areaID, room)

	c.writeBack("UpsertRoom", func(ctx context.Context) error {
		return c.backend.UpsertRoom(ctx, areaID, room)
	})
	return number, nil
}

// UpdateRoomField sets one of a room's text fields ("title" or
// "description") to value, mirroring room_cache.rs's apply_updates,
// which only ever touches those two fields by name.
func (c *Cache) UpdateRoomField(key RoomKey, field, value string) error {
	if field != "title" && field != "description" {
		return ErrInvalidField{Field: field}
	}

	s := c.shardFor(key.AreaID)
	s.mu.Lock()
	area, ok := s.areas[key.AreaID]
	if !ok {
		s.mu.Unlock()
		return ErrAreaNotFound{AreaID: key.AreaID}
	}
	room, ok := area.Rooms[key.RoomNumber]
	if !ok {
		s.mu.Unlock()
		return ErrRoomNotFound{Key: key}
	}
	c.deindexRoom(key.AreaID, room)

	next := area.clone()
	room = room.clone()
	switch field {
	case "title":
		room.Title = value
	case "description":
		room.Description = value
	}
	next.Rooms[key.RoomNumber] = room
	next.Rev++
	s.areas[key.AreaID] = next
	s.mu.Unlock()

	c.indexRoom(key.AreaID, room)

	c.writeBack("UpsertRoom", func(ctx context.Context) error {
		return c.backend.UpsertRoom(ctx, key.AreaID, room)
	})
	return nil
}

// SetRoomProperty sets a named property on a room.
func (c *Cache) SetRoomProperty(key RoomKey, name, value string) error {
	s := c.shardFor(key.AreaID)
	s.mu.Lock()
	area, ok := s.areas[key.AreaID]
	if !ok {
		s.mu.Unlock()
		return ErrAreaNotFound{AreaID: key.AreaID}
	}
	room, ok := area.Rooms[key.RoomNumber]
	if !ok {
		s.mu.Unlock()
		return ErrRoomNotFound{Key: key}
	}
	next := area.clone()
	room = room.clone()
	room.Properties[name] = value
	next.Rooms[key.RoomNumber] = room
	next.Rev++
	s.areas[key.AreaID] = next
	s.mu.Unlock()

	c.writeBack("SetRoomProperty", func(ctx context.Context) error {
		return c.backend.SetRoomProperty(ctx, key, name, value)
	})
	return nil
}

// CreateExit adds a new exit to a room and returns it.
func (c *Cache) CreateExit(key RoomKey, args ExitArgs) (Exit, error) {
	s := c.shardFor(key.AreaID)
	s.mu.Lock()
	area, ok := s.areas[key.AreaID]
	if !ok {
		s.mu.Unlock()
		return Exit{}, ErrAreaNotFound{AreaID: key.AreaID}
	}
	room, ok := area.Rooms[key.RoomNumber]
	if !ok {
		s.mu.Unlock()
		return Exit{}, ErrRoomNotFound{Key: key}
	}
	exit := Exit{
		ID:            NewExitID(),
		FromDirection: args.FromDirection,
		ToDirection:   args.ToDirection,
		ToAreaID:      args.ToAreaID,
		ToRoomNumber:  args.ToRoomNumber,
	}

	next := area.clone()
	room = room.clone()
	room.Exits = append(room.Exits, exit)
	next.Rooms[key.RoomNumber] = room
	next.exitIndex[exit.ID] = key.RoomNumber
	next.Rev++
	s.areas[key.AreaID] = next
	s.mu.Unlock()

	c.writeBack("UpsertExit", func(ctx context.Context) error {
		return c.backend.UpsertExit(ctx, key.AreaID, key.RoomNumber, exit)
	})
	return exit, nil
}

// UpdateExit applies a partial update to an existing exit, addressed
// by area and exit id alone (an exit's owning room is resolved via the
// area's exit index, mirroring cloud.rs's area-scoped update_exit path).
func (c *Cache) UpdateExit(areaID AreaID, exitID ExitID, updates ExitUpdates) error {
	s := c.shardFor(areaID)
	s.mu.Lock()
	area, ok := s.areas[areaID]
	if !ok {
		s.mu.Unlock()
		return ErrAreaNotFound{AreaID: areaID}
	}
	roomNumber, ok := area.exitIndex[exitID]
	if !ok {
		s.mu.Unlock()
		return ErrExitNotFound{AreaID: areaID, ExitID: exitID}
	}
	room := area.Rooms[roomNumber]

	next := area.clone()
	room = room.clone()
	var updated Exit
	for i, e := range room.Exits {
		if e.ID != exitID {
			continue
		}
		if updates.ToDirection != nil {
			e.ToDirection = *updates.ToDirection
		}
		if updates.ToAreaID != nil {
			e.ToAreaID = updates.ToAreaID
		}
		if updates.ToRoomNumber != nil {
			e.ToRoomNumber = updates.ToRoomNumber
		}
		room.Exits[i] = e
		updated = e
		break
	}
	next.Rooms[roomNumber] = room
	next.Rev++
	s.areas[areaID] = next
	s.mu.Unlock()

	c.writeBack("UpsertExit", func(ctx context.Context) error {
		return c.backend.UpsertExit(ctx, areaID, roomNumber, updated)
	})
	return nil
}

// DeleteRoom removes a room from its area.
func (c *Cache) DeleteRoom(key RoomKey) error {
	s := c.shardFor(key.AreaID)
	s.mu.Lock()
	area, ok := s.areas[key.AreaID]
	if !ok {
		s.mu.Unlock()
		return ErrAreaNotFound{AreaID: key.AreaID}
	}
	room, ok := area.Rooms[key.RoomNumber]
	if !ok {
		s.mu.Unlock()
		return ErrRoomNotFound{Key: key}
	}
	c.deindexRoom(key.AreaID, room)

	next := area.clone()
	delete(next.Rooms, key.RoomNumber)
	for _, e := range room.Exits {
		delete(next.exitIndex, e.ID)
	}
	next.Rev++
	s.areas[key.AreaID] = next
	s.mu.Unlock()

	c.writeBack("DeleteRoom", func(ctx context.Context) error {
		return c.backend.DeleteRoom(ctx, key)
	})
	return nil
}

// DeleteExit removes an exit from its owning room.
func (c *Cache) DeleteExit(areaID AreaID, exitID ExitID) error {
	s := c.shardFor(areaID)
	s.mu.Lock()
	area, ok := s.areas[areaID]
	if !ok {
		s.mu.Unlock()
		return ErrAreaNotFound{AreaID: areaID}
	}
	roomNumber, ok := area.exitIndex[exitID]
	if !ok {
		s.mu.Unlock()
		return ErrExitNotFound{AreaID: areaID, ExitID: exitID}
	}
	room := area.Rooms[roomNumber]

	next := area.clone()
	room = room.clone()
	kept := room.Exits[:0]
	for _, e := range room.Exits {
		if e.ID != exitID {
			kept = append(kept, e)
		}
	}
	room.Exits = kept
	next.Rooms[roomNumber] = room
	delete(next.exitIndex, exitID)
	next.Rev++
	s.areas[areaID] = next
	s.mu.Unlock()

	c.writeBack("DeleteExit", func(ctx context.Context) error {
		return c.backend.DeleteExit(ctx, areaID, exitID)
	})
	return nil
}

// SetCurrentLocation records the player's current room for the UI
// minimap, or clears it if key is nil.
func (c *Cache) SetCurrentLocation(key *RoomKey) {
	c.locMu.Lock()
	defer c.locMu.Unlock()
	c.location = key
}

func (c *Cache) indexRoom(areaID AreaID, room Room) {
	c.titleMu.Lock()
	defer c.titleMu.Unlock()
	k := titleDescKey(room.Title, room.Description)
	set, ok := c.titleIndex[k]
	if !ok {
		set = make(map[RoomKey]struct{})
		c.titleIndex[k] = set
	}
	set[RoomKey{AreaID: areaID, RoomNumber: room.Number}] = struct{}{}
}

func (c *Cache) deindexRoom(areaID AreaID, room Room) {
	c.titleMu.Lock()
	defer c.titleMu.Unlock()
	k := titleDescKey(room.Title, room.Description)
	if set, ok := c.titleIndex[k]; ok {
		delete(set, RoomKey{AreaID: areaID, RoomNumber: room.Number})
		if len(set) == 0 {
			delete(c.titleIndex, k)
		}
	}
}
