package domain

import (
	"encoding/json"
	"strings"
	"time"
)

// Photo types required in every documented room, in display order.
const (
	PhotoTypeWide    = "Wide room shot"
	PhotoTypeCloseUp = "Close-up of damage"
	PhotoTypeContext = "Context/equipment"
	PhotoTypeArrival = "arrival"
)

// RequiredRoomPhotoTypes lists the photo types a room needs to be documented.
func RequiredRoomPhotoTypes() []string {
	return []string{PhotoTypeWide, PhotoTypeCloseUp, PhotoTypeContext}
}

// PhotoMetadata describes what a photo shows and where it was taken.
type PhotoMetadata struct {
	Room        string                     `json:"room,omitempty"`
	Type        string                     `json:"type,omitempty"`
	ContentType string                     `json:"contentType,omitempty"`
	CapturedAt  *time.Time                 `json:"capturedAt,omitempty"`
	Latitude    *float64                   `json:"latitude,omitempty"`
	Longitude   *float64                   `json:"longitude,omitempty"`
	Extra       map[string]json.RawMessage `json:"-"`
}

// RoomKey is the comparison key for room names: trimmed and case-folded.
func RoomKey(room string) string {
	return strings.ToLower(strings.TrimSpace(room))
}

// Location returns the capture coordinates when both are known.
func (m PhotoMetadata) Location() (lat, lon float64, ok bool) {
	if m.Latitude == nil || m.Longitude == nil {
		return 0, 0, false
	}
	return *m.Latitude, *m.Longitude, true
}

func (m *PhotoMetadata) UnmarshalJSON(data []byte) error {
	type plain PhotoMetadata
	extra, err := decodeObject(data, (*plain)(m))
	m.Extra = extra
	return err
}

func (m PhotoMetadata) MarshalJSON() ([]byte, error) {
	type plain PhotoMetadata
	return encodeObject(plain(m), m.Extra)
}
