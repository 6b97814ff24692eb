package validation

import (
	"slices"

	"fieldgate_backend/internal/gates/domain"

	"github.com/google/uuid"
)

// RoomCoverage summarises the photos of one room on the Photos gate.
type RoomCoverage struct {
	// Name is the room as first written, trimmed.
	Name         string
	PhotoCount   int
	MissingTypes []string
	Documented   bool
}

// AnalyzeRooms groups the photos attributed to photosGateID by room and
// reports which rooms are documented. Rooms are compared trimmed and
// case-insensitively and keep the order they first appear in. Photos
// without a room are ignored.
func AnalyzeRooms(photos []domain.Photo, photosGateID uuid.UUID) []RoomCoverage {
	type bucket struct {
		name  string
		count int
		types map[string]bool
	}

	var order []string
	buckets := make(map[string]*bucket)
	for _, p := range photos {
		if !p.BelongsTo(photosGateID) {
			continue
		}
		key := domain.RoomKey(p.Metadata.Room)
		if key == "" {
			continue
		}
		b, ok := buckets[key]
		if !ok {
			b = &bucket{name: trimmed(p.Metadata.Room), types: make(map[string]bool, 3)}
			buckets[key] = b
			order = append(order, key)
		}
		b.count++
		b.types[p.Metadata.Type] = true
	}

	out := make([]RoomCoverage, 0, len(order))
	for _, key := range order {
		b := buckets[key]
		missing := make([]string, 0, 3)
		for _, required := range domain.RequiredRoomPhotoTypes() {
			if !b.types[required] {
				missing = append(missing, required)
			}
		}
		out = append(out, RoomCoverage{
			Name:         b.name,
			PhotoCount:   b.count,
			MissingTypes: missing,
			Documented:   b.count >= minPhotosPerRoom && len(missing) == 0,
		})
	}
	return out
}

// DocumentedRoomKeys returns the room keys of documented rooms.
func DocumentedRoomKeys(coverage []RoomCoverage) []string {
	keys := make([]string, 0, len(coverage))
	for _, room := range coverage {
		if room.Documented {
			keys = append(keys, domain.RoomKey(room.Name))
		}
	}
	return keys
}

// HasDocumentedRoom reports whether any room is documented.
func HasDocumentedRoom(coverage []RoomCoverage) bool {
	return slices.ContainsFunc(coverage, func(r RoomCoverage) bool { return r.Documented })
}
