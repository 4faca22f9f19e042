package mapcache

import (
	"context"
	"sync"
)

// MemoryBackend is an in-process Backend fake: it records every
// write-through call it receives instead of shipping it anywhere, for
// use in tests that need to assert the cache actually drives its
// Backend rather than just mutating local state. SPEC_FULL.md's
// Non-goals rule out a real HTTP backend implementation in this
// module; this is the "in-memory fake for tests" it names explicitly.
type MemoryBackend struct {
	mu    sync.Mutex
	Areas map[AreaID]Area
	calls []string
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{Areas: make(map[AreaID]Area)}
}

// Calls returns the ordered list of write-through method names this
// fake has observed, for tests that assert write-back actually fired.
func (b *MemoryBackend) Calls() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.calls...)
}

func (b *MemoryBackend) record(name string) {
	b.calls = append(b.calls, name)
}

func (b *MemoryBackend) UpsertArea(_ context.Context, area Area) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.record("UpsertArea")
	b.Areas[area.ID] = area
	return nil
}

func (b *MemoryBackend) DeleteArea(_ context.Context, id AreaID) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.record("DeleteArea")
	delete(b.Areas, id)
	return nil
}

func (b *MemoryBackend) SetAreaProperty(_ context.Context, id AreaID, name, value string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.record("SetAreaProperty")
	if area, ok := b.Areas[id]; ok {
		area.Properties[name] = value
		b.Areas[id] = area
	}
	return nil
}

func (b *MemoryBackend) UpsertRoom(_ context.Context, areaID AreaID, room Room) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.record("UpsertRoom")
	if area, ok := b.Areas[areaID]; ok {
		area.Rooms[room.Number] = room
		b.Areas[areaID] = area
	}
	return nil
}

func (b *MemoryBackend) DeleteRoom(_ context.Context, key RoomKey) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.record("DeleteRoom")
	if area, ok := b.Areas[key.AreaID]; ok {
		delete(area.Rooms, key.RoomNumber)
	}
	return nil
}

func (b *MemoryBackend) SetRoomProperty(_ context.Context, key RoomKey, name, value string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.record("SetRoomProperty")
	if area, ok := b.Areas[key.AreaID]; ok {
		if room, ok := area.Rooms[key.RoomNumber]; ok {
			room.Properties[name] = value
			area.Rooms[key.RoomNumber] = room
		}
	}
	return nil
}

func (b *MemoryBackend) UpsertExit(_ context.Context, areaID AreaID, roomNumber RoomNumber, exit Exit) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.record("UpsertExit")
	return nil
}

func (b *MemoryBackend) DeleteExit(_ context.Context, areaID AreaID, exitID ExitID) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.record("DeleteExit")
	return nil
}

func (b *MemoryBackend) UpsertLabel(_ context.Context, areaID AreaID, label Label) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.record("UpsertLabel")
	return nil
}

func (b *MemoryBackend) UpsertShape(_ context.Context, areaID AreaID, shape Shape) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.record("UpsertShape")
	return nil
}
