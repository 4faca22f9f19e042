package mapcache

import "testing"

func newTestCache() (*Cache, *MemoryBackend) {
	backend := NewMemoryBackend()
	return New(backend, nil), backend
}

func TestCreateAreaIsImmediatelyReadable(t *testing.T) {
	c, _ := newTestCache()
	id := c.CreateArea("The Vault")
	area, ok := c.GetArea(id)
	if !ok {
		t.Fatalf("GetArea() ok = false, want true right after CreateArea")
	}
	if area.Name != "The Vault" || area.Rev != 1 {
		t.Fatalf("GetArea() = %+v, want Name=The Vault Rev=1", area)
	}
	c.Close()
	if len(c.shardFor(id).areas) != 1 {
		t.Fatalf("shard map size = %d, want 1", len(c.shardFor(id).areas))
	}
}

func TestCreateAreaEnqueuesWriteBack(t *testing.T) {
	c, backend := newTestCache()
	c.CreateArea("The Vault")
	c.Close()
	calls := backend.Calls()
	if len(calls) != 1 || calls[0] != "UpsertArea" {
		t.Fatalf("backend.Calls() = %v, want [UpsertArea]", calls)
	}
}

func TestGetAreaUnknownIDReturnsFalse(t *testing.T) {
	c, _ := newTestCache()
	_, ok := c.GetArea(NewAreaID())
	if ok {
		t.Fatalf("GetArea() ok = true for an id never created")
	}
}

func TestRenameAreaIncrementsRev(t *testing.T) {
	c, _ := newTestCache()
	id := c.CreateArea("Old Name")
	if err := c.RenameArea(id, "New Name"); err != nil {
		t.Fatalf("RenameArea() = %v, want nil", err)
	}
	area, _ := c.GetArea(id)
	if area.Name != "New Name" || area.Rev != 2 {
		t.Fatalf("GetArea() after rename = %+v, want Name=New Name Rev=2", area)
	}
	c.Close()
}

func TestRenameAreaUnknownIDReturnsError(t *testing.T) {
	c, _ := newTestCache()
	err := c.RenameArea(NewAreaID(), "x")
	if _, ok := err.(ErrAreaNotFound); !ok {
		t.Fatalf("RenameArea() = %v, want ErrAreaNotFound", err)
	}
}

func TestCreateRoomAssignsIncreasingNumbers(t *testing.T) {
	c, _ := newTestCache()
	id := c.CreateArea("Area")
	r1, err := c.CreateRoom(id, "Entrance", "A dusty entrance.")
	if err != nil {
		t.Fatalf("CreateRoom() = %v, want nil", err)
	}
	r2, _ := c.CreateRoom(id, "Hall", "A long hall.")
	if r1 != 1 || r2 != 2 {
		t.Fatalf("room numbers = %d, %d, want 1, 2", r1, r2)
	}
	c.Close()
}

func TestGetRoomReflectsLatestWrite(t *testing.T) {
	c, _ := newTestCache()
	id := c.CreateArea("Area")
	number, _ := c.CreateRoom(id, "Entrance", "A dusty entrance.")
	key := RoomKey{AreaID: id, RoomNumber: number}
	if err := c.UpdateRoomField(key, "title", "Grand Entrance"); err != nil {
		t.Fatalf("UpdateRoomField() = %v, want nil", err)
	}
	room, ok := c.GetRoom(key)
	if !ok || room.Title != "Grand Entrance" {
		t.Fatalf("GetRoom() = %+v, ok=%v, want title Grand Entrance", room, ok)
	}
	c.Close()
}

func TestUpdateRoomFieldRejectsUnknownField(t *testing.T) {
	c, _ := newTestCache()
	id := c.CreateArea("Area")
	number, _ := c.CreateRoom(id, "Entrance", "A dusty entrance.")
	err := c.UpdateRoomField(RoomKey{AreaID: id, RoomNumber: number}, "color", "red")
	if _, ok := err.(ErrInvalidField); !ok {
		t.Fatalf("UpdateRoomField() = %v, want ErrInvalidField", err)
	}
}

func TestSetRoomPropertyPersistsUnderKey(t *testing.T) {
	c, _ := newTestCache()
	id := c.CreateArea("Area")
	number, _ := c.CreateRoom(id, "Entrance", "A dusty entrance.")
	key := RoomKey{AreaID: id, RoomNumber: number}
	if err := c.SetRoomProperty(key, "lit", "true"); err != nil {
		t.Fatalf("SetRoomProperty() = %v, want nil", err)
	}
	room, _ := c.GetRoom(key)
	if room.Properties["lit"] != "true" {
		t.Fatalf("room.Properties[lit] = %q, want true", room.Properties["lit"])
	}
	c.Close()
}

func TestCreateExitThenGetExit(t *testing.T) {
	c, _ := newTestCache()
	id := c.CreateArea("Area")
	number, _ := c.CreateRoom(id, "Entrance", "A dusty entrance.")
	key := RoomKey{AreaID: id, RoomNumber: number}
	exit, err := c.CreateExit(key, ExitArgs{FromDirection: "north"})
	if err != nil {
		t.Fatalf("CreateExit() = %v, want nil", err)
	}
	got, ok := c.GetExit(id, exit.ID)
	if !ok || got.FromDirection != "north" {
		t.Fatalf("GetExit() = %+v, ok=%v, want FromDirection=north", got, ok)
	}
	c.Close()
}

func TestUpdateExitAppliesPartialUpdate(t *testing.T) {
	c, _ := newTestCache()
	id := c.CreateArea("Area")
	number, _ := c.CreateRoom(id, "Entrance", "A dusty entrance.")
	key := RoomKey{AreaID: id, RoomNumber: number}
	exit, _ := c.CreateExit(key, ExitArgs{FromDirection: "north"})

	toDir := "south"
	if err := c.UpdateExit(id, exit.ID, ExitUpdates{ToDirection: &toDir}); err != nil {
		t.Fatalf("UpdateExit() = %v, want nil", err)
	}
	got, _ := c.GetExit(id, exit.ID)
	if got.ToDirection != "south" || got.FromDirection != "north" {
		t.Fatalf("GetExit() after update = %+v, want ToDirection=south FromDirection=north", got)
	}
	c.Close()
}

func TestDeleteExitRemovesIt(t *testing.T) {
	c, _ := newTestCache()
	id := c.CreateArea("Area")
	number, _ := c.CreateRoom(id, "Entrance", "A dusty entrance.")
	key := RoomKey{AreaID: id, RoomNumber: number}
	exit, _ := c.CreateExit(key, ExitArgs{FromDirection: "north"})

	if err := c.DeleteExit(id, exit.ID); err != nil {
		t.Fatalf("DeleteExit() = %v, want nil", err)
	}
	if _, ok := c.GetExit(id, exit.ID); ok {
		t.Fatalf("GetExit() ok = true after DeleteExit")
	}
	c.Close()
}

func TestDeleteRoomRemovesItAndItsExits(t *testing.T) {
	c, _ := newTestCache()
	id := c.CreateArea("Area")
	number, _ := c.CreateRoom(id, "Entrance", "A dusty entrance.")
	key := RoomKey{AreaID: id, RoomNumber: number}
	exit, _ := c.CreateExit(key, ExitArgs{FromDirection: "north"})

	if err := c.DeleteRoom(key); err != nil {
		t.Fatalf("DeleteRoom() = %v, want nil", err)
	}
	if _, ok := c.GetRoom(key); ok {
		t.Fatalf("GetRoom() ok = true after DeleteRoom")
	}
	if _, ok := c.GetExit(id, exit.ID); ok {
		t.Fatalf("GetExit() ok = true for an exit whose room was deleted")
	}
	c.Close()
}

func TestListRoomsByTitleAndDescriptionFindsDuplicates(t *testing.T) {
	c, _ := newTestCache()
	id := c.CreateArea("Area")
	n1, _ := c.CreateRoom(id, "Foggy Clearing", "You see nothing but fog.")
	n2, _ := c.CreateRoom(id, "Foggy Clearing", "You see nothing but fog.")
	_, _ = c.CreateRoom(id, "Different Room", "Not fog.")

	matches := c.ListRoomsByTitleAndDescription("Foggy Clearing", "You see nothing but fog.")
	if len(matches) != 2 {
		t.Fatalf("ListRoomsByTitleAndDescription() = %v, want 2 matches", matches)
	}
	seen := map[RoomNumber]bool{}
	for _, k := range matches {
		seen[k.RoomNumber] = true
	}
	if !seen[n1] || !seen[n2] {
		t.Fatalf("ListRoomsByTitleAndDescription() = %v, want rooms %d and %d", matches, n1, n2)
	}
	c.Close()
}

func TestUpdateRoomFieldMovesTitleIndexEntry(t *testing.T) {
	c, _ := newTestCache()
	id := c.CreateArea("Area")
	number, _ := c.CreateRoom(id, "Old Title", "desc")
	key := RoomKey{AreaID: id, RoomNumber: number}

	if err := c.UpdateRoomField(key, "title", "New Title"); err != nil {
		t.Fatalf("UpdateRoomField() = %v, want nil", err)
	}
	if matches := c.ListRoomsByTitleAndDescription("Old Title", "desc"); len(matches) != 0 {
		t.Fatalf("ListRoomsByTitleAndDescription(old) = %v, want none", matches)
	}
	if matches := c.ListRoomsByTitleAndDescription("New Title", "desc"); len(matches) != 1 {
		t.Fatalf("ListRoomsByTitleAndDescription(new) = %v, want one", matches)
	}
	c.Close()
}

func TestSetCurrentLocationRoundTrips(t *testing.T) {
	c, _ := newTestCache()
	id := c.CreateArea("Area")
	number, _ := c.CreateRoom(id, "Entrance", "desc")
	key := RoomKey{AreaID: id, RoomNumber: number}

	if _, ok := c.CurrentLocation(); ok {
		t.Fatalf("CurrentLocation() ok = true before any SetCurrentLocation call")
	}
	c.SetCurrentLocation(&key)
	got, ok := c.CurrentLocation()
	if !ok || got != key {
		t.Fatalf("CurrentLocation() = %+v, ok=%v, want %+v, true", got, ok, key)
	}
	c.SetCurrentLocation(nil)
	if _, ok := c.CurrentLocation(); ok {
		t.Fatalf("CurrentLocation() ok = true after clearing")
	}
}

func TestGetRoomSnapshotIsIndependentOfLaterWrites(t *testing.T) {
	c, _ := newTestCache()
	id := c.CreateArea("Area")
	number, _ := c.CreateRoom(id, "Entrance", "desc")
	key := RoomKey{AreaID: id, RoomNumber: number}

	before, _ := c.GetRoom(key)
	if err := c.UpdateRoomField(key, "title", "Changed"); err != nil {
		t.Fatalf("UpdateRoomField() = %v, want nil", err)
	}
	if before.Title != "Entrance" {
		t.Fatalf("earlier snapshot mutated in place: Title = %q, want Entrance", before.Title)
	}
	c.Close()
}
