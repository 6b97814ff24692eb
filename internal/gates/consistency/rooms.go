package consistency

import (
	"fmt"
	"slices"

	"fieldgate_backend/internal/gates/domain"
	"fieldgate_backend/internal/gates/validation"
)

// RoomConsistency requires every Scope room to be a documented room of the
// job's Photos gate. Documented rooms missing from Scope only warn.
type RoomConsistency struct{}

func (RoomConsistency) Name() string { return "room_consistency" }

func (RoomConsistency) AppliesTo(stage domain.Stage) bool { return stage == domain.StageScope }

func (RoomConsistency) Check(in Input) validation.Result {
	res := validation.Valid()

	var coverage []validation.RoomCoverage
	if photosGate := domain.FindGate(in.Gates, domain.StagePhotos); photosGate != nil {
		coverage = validation.AnalyzeRooms(in.Photos, photosGate.ID)
	}
	documented := validation.DocumentedRoomKeys(coverage)

	scopeRooms := validation.ScopeRooms(in.Gate)
	scopeKeys := make([]string, 0, len(scopeRooms))
	for _, room := range scopeRooms {
		key := domain.RoomKey(room)
		if slices.Contains(scopeKeys, key) {
			continue
		}
		scopeKeys = append(scopeKeys, key)
		if !slices.Contains(documented, key) {
			res.Errors = append(res.Errors, fmt.Sprintf("Room %s listed in Scope has no photos", room))
		}
	}

	for _, room := range coverage {
		if room.Documented && !slices.Contains(scopeKeys, domain.RoomKey(room.Name)) {
			res.Warnings = append(res.Warnings, fmt.Sprintf("Room %s has photos but is not listed in Scope", room.Name))
		}
	}

	res.IsValid = len(res.Errors) == 0
	return res
}
