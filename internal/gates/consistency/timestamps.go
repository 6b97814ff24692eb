package consistency

import (
	"fmt"
	"time"

	"fieldgate_backend/internal/gates/domain"
	"fieldgate_backend/internal/gates/validation"
)

// TimestampOrder requires departure to happen strictly after arrival. It
// only applies once the Arrival gate has been resolved. The message names
// only the stored arrival time so repeated checks read the same.
type TimestampOrder struct{}

func (TimestampOrder) Name() string { return "timestamp_order" }

func (TimestampOrder) AppliesTo(stage domain.Stage) bool { return stage == domain.StageDeparture }

func (TimestampOrder) Check(in Input) validation.Result {
	res := validation.Valid()

	arrival := domain.FindGate(in.Gates, domain.StageArrival)
	if arrival == nil || arrival.CompletedAt == nil {
		return res
	}
	if !in.Now.After(*arrival.CompletedAt) {
		res.IsValid = false
		res.Errors = append(res.Errors, fmt.Sprintf(
			"Timestamp order violation: departure must be after arrival at %s",
			arrival.CompletedAt.UTC().Format(time.RFC3339),
		))
	}
	return res
}
