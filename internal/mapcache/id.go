// Package mapcache implements the Session Runtime's Shared Map Cache: a
// concurrent, sharded, read-your-writes store for the area/room/exit/
// label/shape data a mapper builds up while exploring, backed by an
// injected Backend that writes changes through to a remote source of
// truth in the background. Grounded on
// original_source/map/src/mapper/area_cache.rs (the clone-and-replace
// update discipline: every mutation builds a new Area value rather than
// mutating in place, so a reader holding an older Area from a prior Get
// never observes a torn write) and
// original_source/map/src/backends/cloud.rs (the CRUD surface a
// Backend must expose, stripped of its HTTP transport).
package mapcache

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// ID is the cache's 128-bit identifier representation. The wire contract
// (spec.md §6: "the opaque 128-bit IDs represented as a pair of 64-bit
// integers") splits it into a (hi, lo uint64) pair at the JSON boundary;
// internally it is backed by a random UUID, matching the uuid::Uuid the
// original client used for AreaId/ExitId/LabelId/ShapeId.
type ID uuid.UUID

func newID() ID { return ID(uuid.New()) }

// Hi returns the high 64 bits of the identifier.
func (id ID) Hi() uint64 { return binary.BigEndian.Uint64(id[:8]) }

// Lo returns the low 64 bits of the identifier.
func (id ID) Lo() uint64 { return binary.BigEndian.Uint64(id[8:]) }

func (id ID) String() string { return uuid.UUID(id).String() }

func (id ID) IsZero() bool { return id == ID{} }

type idPair struct {
	Hi uint64 `json:"hi"`
	Lo uint64 `json:"lo"`
}

func (id ID) MarshalJSON() ([]byte, error) {
	return json.Marshal(idPair{Hi: id.Hi(), Lo: id.Lo()})
}

func (id *ID) UnmarshalJSON(data []byte) error {
	var pair idPair
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("mapcache: decode id: %w", err)
	}
	binary.BigEndian.PutUint64(id[:8], pair.Hi)
	binary.BigEndian.PutUint64(id[8:], pair.Lo)
	return nil
}

// AreaID, ExitID, LabelID and ShapeID each embed ID rather than sharing
// one bare type, mirroring the original's distinct AreaId/ExitId/
// LabelId/ShapeId newtypes: a RoomKey built from an ExitID where an
// AreaID was expected is a compile error here, same as there.
type (
	AreaID  struct{ ID }
	ExitID  struct{ ID }
	LabelID struct{ ID }
	ShapeID struct{ ID }
)

func NewAreaID() AreaID   { return AreaID{newID()} }
func NewExitID() ExitID   { return ExitID{newID()} }
func NewLabelID() LabelID { return LabelID{newID()} }
func NewShapeID() ShapeID { return ShapeID{newID()} }

// ParseAreaID and ParseExitID decode the string form IDs round-trip
// through at a script boundary: a yaegi-interpreted body cannot type-
// assert against this package's struct types (they were never
// registered with the interpreter's symbol table), so the mapper host
// operations (internal/session's host.go) cross that boundary as
// strings instead, parsing back into a typed ID on the way in.
func ParseAreaID(s string) (AreaID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return AreaID{}, fmt.Errorf("mapcache: parse area id: %w", err)
	}
	return AreaID{ID(u)}, nil
}

func ParseExitID(s string) (ExitID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return ExitID{}, fmt.Errorf("mapcache: parse exit id: %w", err)
	}
	return ExitID{ID(u)}, nil
}
