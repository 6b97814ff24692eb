package domain

import "errors"

// Sentinel errors of the gate workflow. The service layer wraps them in
// apperr values so HTTP mapping stays outside the domain.
var (
	ErrJobNotFound            = errors.New("job not found")
	ErrGateNotFound           = errors.New("gate not found")
	ErrPhotoNotFound          = errors.New("photo not found")
	ErrNotAssigned            = errors.New("actor is not the job's lead technician")
	ErrGateAlreadyResolved    = errors.New("gate already resolved")
	ErrValidationFailed       = errors.New("gate validation failed")
	ErrInvalidExceptionReason = errors.New("exception reason must not be empty")
	ErrUploadFailed           = errors.New("photo upload failed")
)
