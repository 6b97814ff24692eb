// Package validation holds the per-stage gate validators. A validator only
// reads the gate, its job and the job's photos; it never touches the store.
package validation

import (
	"fieldgate_backend/internal/gates/domain"
	"fieldgate_backend/platform/phone"
)

// Input is everything a stage validator may look at. Photos holds every
// photo of the job, including uploads staged with the current request.
type Input struct {
	Gate   *domain.Gate
	Job    *domain.Job
	Photos []domain.Photo
}

// Result is the outcome of a validation. Errors block completion; warnings
// are surfaced to the technician but never block.
type Result struct {
	IsValid  bool     `json:"isValid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// Valid returns a passing result with no messages.
func Valid() Result {
	return Result{IsValid: true, Errors: []string{}, Warnings: []string{}}
}

// Merge appends other's messages. The merged result is valid only when
// neither side reported an error.
func (r Result) Merge(other Result) Result {
	out := Result{
		Errors:   append(append([]string{}, r.Errors...), other.Errors...),
		Warnings: append(append([]string{}, r.Warnings...), other.Warnings...),
	}
	out.IsValid = r.IsValid && other.IsValid && len(out.Errors) == 0
	return out
}

func (r *Result) addError(msg string) {
	r.Errors = append(r.Errors, msg)
	r.IsValid = false
}

func (r *Result) addWarning(msg string) {
	r.Warnings = append(r.Warnings, msg)
}

// Validator checks the evidentiary requirements of one stage.
type Validator interface {
	Validate(in Input) Result
}

// Func adapts a plain function to Validator.
type Func func(in Input) Result

func (f Func) Validate(in Input) Result { return f(in) }

// passThrough accepts every gate. It backs the form-driven stages, whose
// checks live in RequiredFields, and any stage this build does not know.
type passThrough struct{}

func (passThrough) Validate(Input) Result { return Valid() }

// Registry maps stages to validators. Lookups for unregistered stages return
// a permissive validator.
type Registry struct {
	validators map[domain.Stage]Validator
	fallback   Validator
	phones     phone.Numbers
}

// Options tunes the built-in validators.
type Options struct {
	// GeofenceRadiusMeters enables the arrival distance warning when > 0.
	GeofenceRadiusMeters float64
	// PhoneRegion is the region of intake phone numbers entered without a
	// country prefix. Empty means phone.DefaultRegion.
	PhoneRegion string
}

// NewRegistry returns a registry with the built-in validator of every stage.
func NewRegistry(opts Options) *Registry {
	r := &Registry{
		validators: make(map[domain.Stage]Validator, 7),
		fallback:   passThrough{},
		phones:     phone.New(opts.PhoneRegion),
	}
	r.Register(domain.StageArrival, ArrivalValidator{GeofenceRadiusMeters: opts.GeofenceRadiusMeters})
	r.Register(domain.StageIntake, passThrough{})
	r.Register(domain.StagePhotos, PhotosValidator{})
	r.Register(domain.StageMoistureEquipment, passThrough{})
	r.Register(domain.StageScope, ScopeValidator{})
	r.Register(domain.StageSignoffs, passThrough{})
	r.Register(domain.StageDeparture, passThrough{})
	return r
}

// Register installs or replaces the validator of a stage.
func (r *Registry) Register(stage domain.Stage, v Validator) {
	r.validators[stage] = v
}

// For returns the validator of a stage.
func (r *Registry) For(stage domain.Stage) Validator {
	if v, ok := r.validators[stage]; ok {
		return v
	}
	return r.fallback
}

// Phones returns the phone number rules the registry validates intake with.
func (r *Registry) Phones() phone.Numbers {
	return r.phones
}

// RequiredFields is RequiredFields with the registry's phone region.
func (r *Registry) RequiredFields(g *domain.Gate) []string {
	return RequiredFields(g, r.phones)
}

// Validate runs the stage validator of in.Gate. A gate already flagged for
// exception is accepted without running any rule.
func (r *Registry) Validate(in Input) Result {
	if in.Gate.RequiresException {
		return Valid()
	}
	res := r.For(in.Gate.Stage).Validate(in)
	if res.Errors == nil {
		res.Errors = []string{}
	}
	if res.Warnings == nil {
		res.Warnings = []string{}
	}
	return res
}
