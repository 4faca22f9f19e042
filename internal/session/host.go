package session

import (
	"errors"

	"github.com/smudgy-mud/smudgy/internal/edit"
	"github.com/smudgy-mud/smudgy/internal/line"
	"github.com/smudgy-mud/smudgy/internal/mapcache"
	"github.com/smudgy-mud/smudgy/internal/registry"
	"github.com/smudgy-mud/smudgy/internal/script"
)

var errNoMapCache = errors.New("session: no map cache attached")

// styleFrom builds a line.Style from the primitives a script can
// actually pass across the yaegi interpreter boundary (fgName empty
// means "leave at the default color"). Every host operation that takes
// or returns styling, a Shared Map Cache ID, or a RoomKey crosses that
// boundary as strings/ints/bools rather than this package's own struct
// types, matching the teacher's scriptEngine payload convention
// (npc_scripts.go's payloadForNPC et al. only ever expose primitives
// and side-effecting closures, never a custom exported struct) — the
// teacher's interpreter is only i.Use(stdlib.Symbols), so nothing
// outside the standard library is assertable from interpreted code.
func styleFrom(fgName string, bold bool) line.Style {
	st := line.DefaultStyle()
	if fgName != "" {
		st.Fg = line.NamedColor(fgName)
	}
	st.Bold = bold
	return st
}

// buildHost assembles the host operation surface a script body sees
// (spec.md §4.6). q is the edit queue for the line currently being
// processed (nil outside trigger dispatch, where the line_* ops become
// no-ops); lineText/lineNumber back get_current_line/
// get_current_line_number for the duration of that one dispatch.
func (s *Session) buildHost(q *edit.Queue, lineText string, lineNumber uint64) script.Host {
	h := script.Host{
		"session_send":     func(text string) { _ = s.SubmitInput(text) },
		"session_send_raw": func(text string) { s.sendRaw(text) },
		"session_echo":     func(text string) { s.echoLocal(line.FromEchoStr(text)) },
		"session_warn":     func(text string) { s.echoLocal(line.FromWarnStr(text)) },
		"session_reload":   func() { s.Reload() },

		"set_alias_enabled":   func(name string, enabled bool) bool { return s.reg.Load().SetAliasEnabled(name, enabled) },
		"set_trigger_enabled": func(name string, enabled bool) bool { return s.reg.Load().SetTriggerEnabled(name, enabled) },
		"remove_alias":        func(name string) bool { return s.reg.Load().RemoveAlias(name) },
		"remove_trigger":      func(name string) bool { return s.reg.Load().RemoveTrigger(name) },

		"create_simple_alias": func(name string, patterns []string, body string) error {
			return s.reg.Load().AddAlias(registry.Action[script.Action]{
				Name: name, Patterns: patterns, Enabled: true,
				Payload: script.Action{Kind: script.KindSendSimple, Template: body},
			})
		},
		"create_fn_alias": func(name string, patterns []string, source, functionName string) error {
			return s.reg.Load().AddAlias(registry.Action[script.Action]{
				Name: name, Patterns: patterns, Enabled: true,
				Payload: script.Action{Kind: script.KindCallFunction, Source: source, FunctionName: functionName},
			})
		},
		"create_simple_trigger": func(name string, patterns, rawPatterns, antiPatterns []string, prompt bool, body string) error {
			return s.reg.Load().AddTrigger(registry.Action[script.Action]{
				Name: name, Patterns: patterns, RawPatterns: rawPatterns, AntiPatterns: antiPatterns,
				FirePrompt: prompt, Enabled: true,
				Payload: script.Action{Kind: script.KindSendSimple, Template: body},
			})
		},
		"create_fn_trigger": func(name string, patterns, rawPatterns, antiPatterns []string, prompt bool, source, functionName string) error {
			return s.reg.Load().AddTrigger(registry.Action[script.Action]{
				Name: name, Patterns: patterns, RawPatterns: rawPatterns, AntiPatterns: antiPatterns,
				FirePrompt: prompt, Enabled: true,
				Payload: script.Action{Kind: script.KindCallFunction, Source: source, FunctionName: functionName},
			})
		},

		"get_current_line":        func() string { t, _ := s.currentLineSnapshot(); return t },
		"get_current_line_number": func() uint64 { _, n := s.currentLineSnapshot(); return n },

		"buffer_insert": func(number uint64, text string, begin, end int, fgName string, bold bool) bool {
			return s.buffer.MutateLine(number, func(l line.StyledLine) line.StyledLine {
				out, _ := edit.Apply(l, edit.Insert(text, begin, end, styleFrom(fgName, bold)))
				return out
			})
		},
		"buffer_replace": func(number uint64, text string, begin, end int) bool {
			return s.buffer.MutateLine(number, func(l line.StyledLine) line.StyledLine {
				out, _ := edit.Apply(l, edit.Replace(text, begin, end))
				return out
			})
		},
		"buffer_highlight": func(number uint64, begin, end int, fgName string, bold bool) bool {
			return s.buffer.MutateLine(number, func(l line.StyledLine) line.StyledLine {
				out, _ := edit.Apply(l, edit.Highlight(begin, end, styleFrom(fgName, bold)))
				return out
			})
		},
		"buffer_remove": func(number uint64, begin, end int) bool {
			return s.buffer.MutateLine(number, func(l line.StyledLine) line.StyledLine {
				out, _ := edit.Apply(l, edit.Remove(begin, end))
				return out
			})
		},

		"get_current_session":   func() string { return s.cfg.id },
		"get_sessions":          func() []string { return sessionIDs(s.cfg.directory.Sessions()) },
		"get_session_character": func(id string) (string, bool) { info, ok := s.cfg.directory.Session(id); return info.Character, ok },
	}
	s.addLineEditOps(h, q)
	s.addMapperOps(h)
	return h
}

func sessionIDs(infos []Info) []string {
	out := make([]string, len(infos))
	for i, info := range infos {
		out[i] = info.ID
	}
	return out
}

// addLineEditOps installs line_insert/replace/highlight/remove/gag. q is
// nil outside trigger dispatch (alias bodies, the startup script), where
// there is no "current line" to edit, so the ops become no-ops rather
// than nil-pointer panics — a script author reasonably expects a
// function they wrote for a trigger body to not blow up if it also
// happens to be reachable from an alias.
func (s *Session) addLineEditOps(h script.Host, q *edit.Queue) {
	record := func(e edit.LineEdit) {
		if q != nil {
			q.Record(e)
		}
	}
	h["line_insert"] = func(text string, begin, end int, fgName string, bold bool) {
		record(edit.Insert(text, begin, end, styleFrom(fgName, bold)))
	}
	h["line_replace"] = func(text string, begin, end int) {
		record(edit.Replace(text, begin, end))
	}
	h["line_highlight"] = func(begin, end int, fgName string, bold bool) {
		record(edit.Highlight(begin, end, styleFrom(fgName, bold)))
	}
	h["line_remove"] = func(begin, end int) {
		record(edit.Remove(begin, end))
	}
	h["line_gag"] = func() {
		record(edit.Gag())
	}
}

// addMapperOps installs the Shared Map Cache host operations (spec.md
// §4.8), addressing areas/exits by their string ID form rather than
// this package's AreaID/ExitID/RoomKey types (see styleFrom's doc
// comment). A Session with no map cache attached still runs every
// other host operation fine; of these, the ones that return an error
// report errNoMapCache and the rest return an empty result.
func (s *Session) addMapperOps(h script.Host) {
	cache := s.cfg.mapCache
	h["map_list_areas"] = func() []string {
		if cache == nil {
			return nil
		}
		ids := cache.ListAreaIDs()
		out := make([]string, len(ids))
		for i, id := range ids {
			out[i] = id.String()
		}
		return out
	}
	h["map_get_area"] = func(areaIDStr string) (map[string]any, bool) {
		if cache == nil {
			return nil, false
		}
		id, err := mapcache.ParseAreaID(areaIDStr)
		if err != nil {
			return nil, false
		}
		a, ok := cache.GetArea(id)
		if !ok {
			return nil, false
		}
		return areaToMap(a), true
	}
	h["map_create_area"] = func(name string) (string, error) {
		if cache == nil {
			return "", errNoMapCache
		}
		return cache.CreateArea(name).String(), nil
	}
	h["map_rename_area"] = func(areaIDStr, name string) error {
		id, err := parseAreaIDFor(cache, areaIDStr)
		if err != nil {
			return err
		}
		return cache.RenameArea(id, name)
	}
	h["map_set_area_property"] = func(areaIDStr, name, value string) error {
		id, err := parseAreaIDFor(cache, areaIDStr)
		if err != nil {
			return err
		}
		return cache.SetAreaProperty(id, name, value)
	}
	h["map_list_rooms"] = func(areaIDStr string) []uint32 {
		if cache == nil {
			return nil
		}
		id, err := mapcache.ParseAreaID(areaIDStr)
		if err != nil {
			return nil
		}
		nums := cache.ListRoomNumbers(id)
		out := make([]uint32, len(nums))
		for i, n := range nums {
			out[i] = uint32(n)
		}
		return out
	}
	h["map_get_room"] = func(areaIDStr string, number uint32) (map[string]any, bool) {
		if cache == nil {
			return nil, false
		}
		id, err := mapcache.ParseAreaID(areaIDStr)
		if err != nil {
			return nil, false
		}
		r, ok := cache.GetRoom(mapcache.RoomKey{AreaID: id, RoomNumber: mapcache.RoomNumber(number)})
		if !ok {
			return nil, false
		}
		return roomToMap(r), true
	}
	h["map_create_room"] = func(areaIDStr, title, description string) (uint32, error) {
		id, err := parseAreaIDFor(cache, areaIDStr)
		if err != nil {
			return 0, err
		}
		n, err := cache.CreateRoom(id, title, description)
		return uint32(n), err
	}
	h["map_set_room_field"] = func(areaIDStr string, number uint32, field, value string) error {
		id, err := parseAreaIDFor(cache, areaIDStr)
		if err != nil {
			return err
		}
		return cache.UpdateRoomField(mapcache.RoomKey{AreaID: id, RoomNumber: mapcache.RoomNumber(number)}, field, value)
	}
	h["map_set_room_property"] = func(areaIDStr string, number uint32, name, value string) error {
		id, err := parseAreaIDFor(cache, areaIDStr)
		if err != nil {
			return err
		}
		return cache.SetRoomProperty(mapcache.RoomKey{AreaID: id, RoomNumber: mapcache.RoomNumber(number)}, name, value)
	}
	h["map_delete_room"] = func(areaIDStr string, number uint32) error {
		id, err := parseAreaIDFor(cache, areaIDStr)
		if err != nil {
			return err
		}
		return cache.DeleteRoom(mapcache.RoomKey{AreaID: id, RoomNumber: mapcache.RoomNumber(number)})
	}
	h["map_get_exit"] = func(areaIDStr, exitIDStr string) (map[string]any, bool) {
		if cache == nil {
			return nil, false
		}
		areaID, exitID, err := parseAreaAndExitID(areaIDStr, exitIDStr)
		if err != nil {
			return nil, false
		}
		e, ok := cache.GetExit(areaID, exitID)
		if !ok {
			return nil, false
		}
		return exitToMap(e), true
	}
	h["map_create_exit"] = func(areaIDStr string, number uint32, fromDir, toDir string, toAreaIDStr string, toRoomNumber uint32, hasToArea, hasToRoom bool) (string, error) {
		id, err := parseAreaIDFor(cache, areaIDStr)
		if err != nil {
			return "", err
		}
		args := mapcache.ExitArgs{FromDirection: fromDir, ToDirection: toDir}
		if hasToArea {
			toArea, err := mapcache.ParseAreaID(toAreaIDStr)
			if err != nil {
				return "", err
			}
			args.ToAreaID = &toArea
		}
		if hasToRoom {
			n := mapcache.RoomNumber(toRoomNumber)
			args.ToRoomNumber = &n
		}
		exit, err := cache.CreateExit(mapcache.RoomKey{AreaID: id, RoomNumber: mapcache.RoomNumber(number)}, args)
		if err != nil {
			return "", err
		}
		return exit.ID.String(), nil
	}
	h["map_update_exit"] = func(areaIDStr, exitIDStr string, toDir string, hasToDir bool, toAreaIDStr string, hasToArea bool, toRoomNumber uint32, hasToRoom bool) error {
		if cache == nil {
			return errNoMapCache
		}
		areaID, exitID, err := parseAreaAndExitID(areaIDStr, exitIDStr)
		if err != nil {
			return err
		}
		var updates mapcache.ExitUpdates
		if hasToDir {
			updates.ToDirection = &toDir
		}
		if hasToArea {
			toArea, err := mapcache.ParseAreaID(toAreaIDStr)
			if err != nil {
				return err
			}
			updates.ToAreaID = &toArea
		}
		if hasToRoom {
			n := mapcache.RoomNumber(toRoomNumber)
			updates.ToRoomNumber = &n
		}
		return cache.UpdateExit(areaID, exitID, updates)
	}
	h["map_delete_exit"] = func(areaIDStr, exitIDStr string) error {
		if cache == nil {
			return errNoMapCache
		}
		areaID, exitID, err := parseAreaAndExitID(areaIDStr, exitIDStr)
		if err != nil {
			return err
		}
		return cache.DeleteExit(areaID, exitID)
	}
	h["map_set_current_location"] = func(areaIDStr string, number uint32, clear bool) error {
		if cache == nil {
			return errNoMapCache
		}
		if clear {
			cache.SetCurrentLocation(nil)
			return nil
		}
		id, err := mapcache.ParseAreaID(areaIDStr)
		if err != nil {
			return err
		}
		key := mapcache.RoomKey{AreaID: id, RoomNumber: mapcache.RoomNumber(number)}
		cache.SetCurrentLocation(&key)
		return nil
	}
	h["map_current_location"] = func() (string, uint32, bool) {
		if cache == nil {
			return "", 0, false
		}
		key, ok := cache.CurrentLocation()
		if !ok {
			return "", 0, false
		}
		return key.AreaID.String(), uint32(key.RoomNumber), true
	}
	h["map_search_rooms_by_title_and_description"] = func(title, description string) []map[string]any {
		if cache == nil {
			return nil
		}
		keys := cache.ListRoomsByTitleAndDescription(title, description)
		out := make([]map[string]any, len(keys))
		for i, k := range keys {
			out[i] = map[string]any{"area_id": k.AreaID.String(), "room_number": uint32(k.RoomNumber)}
		}
		return out
	}
}

func parseAreaIDFor(cache *mapcache.Cache, areaIDStr string) (mapcache.AreaID, error) {
	if cache == nil {
		return mapcache.AreaID{}, errNoMapCache
	}
	return mapcache.ParseAreaID(areaIDStr)
}

func parseAreaAndExitID(areaIDStr, exitIDStr string) (mapcache.AreaID, mapcache.ExitID, error) {
	areaID, err := mapcache.ParseAreaID(areaIDStr)
	if err != nil {
		return mapcache.AreaID{}, mapcache.ExitID{}, err
	}
	exitID, err := mapcache.ParseExitID(exitIDStr)
	if err != nil {
		return mapcache.AreaID{}, mapcache.ExitID{}, err
	}
	return areaID, exitID, nil
}

func areaToMap(a mapcache.Area) map[string]any {
	rooms := make([]uint32, 0, len(a.Rooms))
	for n := range a.Rooms {
		rooms = append(rooms, uint32(n))
	}
	return map[string]any{
		"id":           a.ID.String(),
		"name":         a.Name,
		"rev":          a.Rev,
		"properties":   a.Properties,
		"room_numbers": rooms,
	}
}

func roomToMap(r mapcache.Room) map[string]any {
	exits := make([]map[string]any, 0, len(r.Exits))
	for _, e := range r.Exits {
		exits = append(exits, exitToMap(e))
	}
	return map[string]any{
		"number":      uint32(r.Number),
		"title":       r.Title,
		"description": r.Description,
		"level":       r.Level,
		"x":           r.X,
		"y":           r.Y,
		"color":       r.Color,
		"properties":  r.Properties,
		"exits":       exits,
	}
}

func exitToMap(e mapcache.Exit) map[string]any {
	m := map[string]any{
		"id":             e.ID.String(),
		"from_direction": e.FromDirection,
		"to_direction":   e.ToDirection,
	}
	if e.ToAreaID != nil {
		m["to_area_id"] = e.ToAreaID.String()
	}
	if e.ToRoomNumber != nil {
		m["to_room_number"] = uint32(*e.ToRoomNumber)
	}
	return m
}
