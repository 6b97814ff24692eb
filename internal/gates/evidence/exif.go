// Package evidence extracts and checks the provenance of photo evidence:
// capture time and position from EXIF, distance to the job site, and
// fingerprints of customer signatures.
package evidence

import (
	"bytes"
	"io"
	"time"

	"github.com/rwcarlsen/goexif/exif"
)

// Info is what could be read from an image's EXIF block. Fields are nil when
// the image carries no such tag.
type Info struct {
	CapturedAt *time.Time
	Latitude   *float64
	Longitude  *float64
}

// HasLocation reports whether both GPS coordinates were present.
func (i Info) HasLocation() bool {
	return i.Latitude != nil && i.Longitude != nil
}

// Extract reads EXIF capture time and GPS position from an image. ok is
// false when the image has no readable EXIF block, which is normal for PNGs,
// screenshots and stripped JPEGs.
func Extract(r io.Reader) (info Info, ok bool) {
	x, err := exif.Decode(r)
	if err != nil {
		return Info{}, false
	}

	if captured, err := x.DateTime(); err == nil {
		utc := captured.UTC()
		info.CapturedAt = &utc
	}
	if lat, lon, err := x.LatLong(); err == nil {
		info.Latitude = &lat
		info.Longitude = &lon
	}
	return info, true
}

// ExtractBytes is Extract over an in-memory image.
func ExtractBytes(data []byte) Info {
	info, _ := Extract(bytes.NewReader(data))
	return info
}
