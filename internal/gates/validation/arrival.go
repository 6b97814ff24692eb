package validation

import (
	"fmt"

	"fieldgate_backend/internal/gates/domain"
	"fieldgate_backend/internal/gates/evidence"
)

const errArrivalPhotoRequired = "An arrival photo is required"

// ArrivalValidator requires at least one photo attributed to the gate as
// proof of presence. When the job has a site position it also warns about
// arrival photos taken outside the geofence.
type ArrivalValidator struct {
	GeofenceRadiusMeters float64
}

func (v ArrivalValidator) Validate(in Input) Result {
	res := Valid()

	var arrivalPhotos []domain.Photo
	for _, p := range in.Photos {
		if p.BelongsTo(in.Gate.ID) {
			arrivalPhotos = append(arrivalPhotos, p)
		}
	}
	if len(arrivalPhotos) == 0 {
		res.addError(errArrivalPhotoRequired)
		return res
	}

	if v.GeofenceRadiusMeters <= 0 || in.Job == nil {
		return res
	}
	siteLat, siteLon, ok := in.Job.Site()
	if !ok {
		return res
	}

	fence := evidence.NewGeofence(siteLat, siteLon, v.GeofenceRadiusMeters)
	for _, p := range arrivalPhotos {
		lat, lon, ok := p.Metadata.Location()
		if !ok {
			continue
		}
		if distance, inside := fence.Check(lat, lon); !inside {
			res.addWarning(fmt.Sprintf("Arrival photo was taken %.0f m from the job site (allowed %.0f m)", distance, v.GeofenceRadiusMeters))
		}
	}
	return res
}
