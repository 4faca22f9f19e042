package mapcache

import "context"

// Backend is the remote source of truth a Cache writes through to in
// the background. Grounded on backends/cloud.rs's CloudMapper's CRUD
// surface (upsert/delete of areas, rooms and exits, upsert of labels and
// shapes, and area/room property set; there is no label/shape delete and
// no property delete), stripped of its reqwest/serde_json
// transport since SPEC_FULL.md's Non-goals exclude the map backend's
// wire protocol — a real implementation of Backend (an HTTP client
// against that protocol) lives outside this module; this package only
// defines the seam and a Memory fake for tests.
//
// Every method is an idempotent upsert or idempotent delete (spec.md
// §6): calling UpsertRoom twice with the same Room, or DeleteRoom twice
// for an already-deleted room, is not an error.
type Backend interface {
	UpsertArea(ctx context.Context, area Area) error
	DeleteArea(ctx context.Context, id AreaID) error
	SetAreaProperty(ctx context.Context, id AreaID, name, value string) error

	UpsertRoom(ctx context.Context, areaID AreaID, room Room) error
	DeleteRoom(ctx context.Context, key RoomKey) error
	SetRoomProperty(ctx context.Context, key RoomKey, name, value string) error

	UpsertExit(ctx context.Context, areaID AreaID, roomNumber RoomNumber, exit Exit) error
	DeleteExit(ctx context.Context, areaID AreaID, exitID ExitID) error

	UpsertLabel(ctx context.Context, areaID AreaID, label Label) error
	UpsertShape(ctx context.Context, areaID AreaID, shape Shape) error
}
