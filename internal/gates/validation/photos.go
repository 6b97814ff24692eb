package validation

import (
	"fmt"
	"strings"

	"fieldgate_backend/internal/gates/domain"
)

const (
	minPhotosPerRoom = 3

	errNoDocumentedRoom = "At least one room must be documented with a wide room shot, a close-up of damage and a context/equipment photo"
	warnNoPPEPhoto      = "No PPE photo has been recorded for this job"
)

// PhotosValidator requires at least one documented room on the Photos gate.
// Rooms that are started but incomplete are reported as errors while no room
// is documented yet, and as warnings afterwards.
type PhotosValidator struct{}

func (PhotosValidator) Validate(in Input) Result {
	res := Valid()
	coverage := AnalyzeRooms(in.Photos, in.Gate.ID)
	documented := HasDocumentedRoom(coverage)

	report := res.addError
	if documented {
		report = res.addWarning
	}
	for _, room := range coverage {
		if room.Documented {
			continue
		}
		report(roomMessage(room))
	}
	if !documented && len(coverage) == 0 {
		res.addError(errNoDocumentedRoom)
	}

	if !hasPPEPhoto(in.Photos) {
		res.addWarning(warnNoPPEPhoto)
	}
	return res
}

func roomMessage(room RoomCoverage) string {
	missing := strings.Join(room.MissingTypes, ", ")
	if room.PhotoCount < minPhotosPerRoom {
		return fmt.Sprintf("%s: Minimum %d photos required (currently %d). Missing: %s", room.Name, minPhotosPerRoom, room.PhotoCount, missing)
	}
	return fmt.Sprintf("%s: Missing required photo types: %s", room.Name, missing)
}

func hasPPEPhoto(photos []domain.Photo) bool {
	for _, p := range photos {
		if p.IsPPE {
			return true
		}
	}
	return false
}

func trimmed(s string) string {
	return strings.TrimSpace(s)
}
