package validation

import (
	"reflect"
	"strings"
	"testing"

	"fieldgate_backend/internal/gates/domain"
	"fieldgate_backend/platform/phone"

	"github.com/google/uuid"
)

func newGate(stage domain.Stage) *domain.Gate {
	return &domain.Gate{
		ID:       uuid.New(),
		JobID:    uuid.New(),
		Stage:    stage,
		Status:   domain.GateStatusInProgress,
		Metadata: domain.NewMetadata(stage),
	}
}

func photoOn(gate *domain.Gate, room, photoType string) domain.Photo {
	gateID := gate.ID
	return domain.Photo{
		ID:       uuid.New(),
		JobID:    gate.JobID,
		GateID:   &gateID,
		Metadata: domain.PhotoMetadata{Room: room, Type: photoType},
	}
}

func fullRoom(gate *domain.Gate, room string) []domain.Photo {
	return []domain.Photo{
		photoOn(gate, room, domain.PhotoTypeWide),
		photoOn(gate, room, domain.PhotoTypeCloseUp),
		photoOn(gate, room, domain.PhotoTypeContext),
	}
}

func TestArrivalRequiresPhotoOnGate(t *testing.T) {
	reg := NewRegistry(Options{})
	gate := newGate(domain.StageArrival)

	res := reg.Validate(Input{Gate: gate})
	if res.IsValid || len(res.Errors) != 1 {
		t.Fatalf("expected one error without photos, got %+v", res)
	}

	other := newGate(domain.StageArrival)
	res = reg.Validate(Input{Gate: gate, Photos: []domain.Photo{photoOn(other, "", domain.PhotoTypeArrival)}})
	if res.IsValid {
		t.Fatal("expected photo of another gate not to count")
	}

	res = reg.Validate(Input{Gate: gate, Photos: []domain.Photo{photoOn(gate, "", domain.PhotoTypeArrival)}})
	if !res.IsValid {
		t.Fatalf("expected valid arrival, got %+v", res)
	}
}

func TestArrivalGeofenceWarning(t *testing.T) {
	reg := NewRegistry(Options{GeofenceRadiusMeters: 250})
	gate := newGate(domain.StageArrival)
	siteLat, siteLon := 52.3791, 4.9003
	job := &domain.Job{ID: gate.JobID, SiteLatitude: &siteLat, SiteLongitude: &siteLon}

	far := photoOn(gate, "", domain.PhotoTypeArrival)
	farLat, farLon := 52.3731, 4.8926
	far.Metadata.Latitude, far.Metadata.Longitude = &farLat, &farLon

	res := reg.Validate(Input{Gate: gate, Job: job, Photos: []domain.Photo{far}})
	if !res.IsValid {
		t.Fatalf("geofence must not block, got %+v", res)
	}
	if len(res.Warnings) != 1 || !strings.Contains(res.Warnings[0], "from the job site") {
		t.Fatalf("expected geofence warning, got %v", res.Warnings)
	}
}

func TestRequiresExceptionBypassesEveryValidator(t *testing.T) {
	reg := NewRegistry(Options{})
	for _, stage := range domain.Stages() {
		gate := newGate(stage)
		gate.RequiresException = true
		if res := reg.Validate(Input{Gate: gate}); !res.IsValid {
			t.Errorf("%s: expected exception to bypass, got %+v", stage, res)
		}
		if errs := reg.RequiredFields(gate); len(errs) != 0 {
			t.Errorf("%s: expected no required fields under exception, got %v", stage, errs)
		}
	}
}

func TestUnknownStageIsPermissive(t *testing.T) {
	reg := NewRegistry(Options{})
	gate := newGate(domain.Stage("Walkthrough"))
	res := reg.Validate(Input{Gate: gate})
	if !res.IsValid || len(res.Errors) != 0 || len(res.Warnings) != 0 {
		t.Fatalf("expected permissive default, got %+v", res)
	}
}

func TestPhotosTwoPhotosInOneRoom(t *testing.T) {
	gate := newGate(domain.StagePhotos)
	photos := []domain.Photo{
		photoOn(gate, "Kitchen", domain.PhotoTypeWide),
		photoOn(gate, "Kitchen", domain.PhotoTypeCloseUp),
	}

	res := PhotosValidator{}.Validate(Input{Gate: gate, Photos: photos})
	if res.IsValid {
		t.Fatal("expected invalid result")
	}
	want := "Kitchen: Minimum 3 photos required (currently 2). Missing: Context/equipment"
	if !reflect.DeepEqual(res.Errors, []string{want}) {
		t.Fatalf("unexpected errors %v", res.Errors)
	}
	if len(res.Warnings) != 1 || res.Warnings[0] != warnNoPPEPhoto {
		t.Fatalf("expected PPE warning, got %v", res.Warnings)
	}
}

func TestPhotosDuplicateTypesDoNotDocumentRoom(t *testing.T) {
	gate := newGate(domain.StagePhotos)
	photos := []domain.Photo{
		photoOn(gate, "Kitchen", domain.PhotoTypeWide),
		photoOn(gate, "Kitchen", domain.PhotoTypeWide),
		photoOn(gate, "Kitchen", domain.PhotoTypeWide),
	}

	res := PhotosValidator{}.Validate(Input{Gate: gate, Photos: photos})
	if res.IsValid {
		t.Fatal("three wide shots must not document a room")
	}
	want := "Kitchen: Missing required photo types: Close-up of damage, Context/equipment"
	if !reflect.DeepEqual(res.Errors, []string{want}) {
		t.Fatalf("unexpected errors %v", res.Errors)
	}
}

func TestPhotosOneDocumentedRoomDowngradesOthers(t *testing.T) {
	gate := newGate(domain.StagePhotos)
	photos := fullRoom(gate, "Kitchen")
	photos = append(photos, photoOn(gate, "Attic", domain.PhotoTypeWide))
	photos[0].IsPPE = true

	res := PhotosValidator{}.Validate(Input{Gate: gate, Photos: photos})
	if !res.IsValid || len(res.Errors) != 0 {
		t.Fatalf("expected valid with documented kitchen, got %+v", res)
	}
	if len(res.Warnings) != 1 || !strings.HasPrefix(res.Warnings[0], "Attic: Minimum 3 photos required (currently 1)") {
		t.Fatalf("expected attic warning, got %v", res.Warnings)
	}
}

func TestPhotosNoPhotosAtAll(t *testing.T) {
	gate := newGate(domain.StagePhotos)
	res := PhotosValidator{}.Validate(Input{Gate: gate})
	if res.IsValid || len(res.Errors) != 1 || res.Errors[0] != errNoDocumentedRoom {
		t.Fatalf("expected no-room error, got %+v", res)
	}
}

func TestPhotosPPEAnywhereInJobCounts(t *testing.T) {
	gate := newGate(domain.StagePhotos)
	arrival := newGate(domain.StageArrival)
	ppe := photoOn(arrival, "", domain.PhotoTypeArrival)
	ppe.IsPPE = true

	photos := append(fullRoom(gate, "Kitchen"), ppe)
	res := PhotosValidator{}.Validate(Input{Gate: gate, Photos: photos})
	if !res.IsValid || len(res.Warnings) != 0 {
		t.Fatalf("expected clean result, got %+v", res)
	}
}

func TestAnalyzeRoomsNormalisesNames(t *testing.T) {
	gate := newGate(domain.StagePhotos)
	photos := []domain.Photo{
		photoOn(gate, " Kitchen", domain.PhotoTypeWide),
		photoOn(gate, "kitchen ", domain.PhotoTypeCloseUp),
		photoOn(gate, "KITCHEN", domain.PhotoTypeContext),
		photoOn(gate, "  ", domain.PhotoTypeWide),
	}

	coverage := AnalyzeRooms(photos, gate.ID)
	if len(coverage) != 1 {
		t.Fatalf("expected one room, got %+v", coverage)
	}
	if coverage[0].Name != "Kitchen" || !coverage[0].Documented || coverage[0].PhotoCount != 3 {
		t.Fatalf("unexpected coverage %+v", coverage[0])
	}
	if keys := DocumentedRoomKeys(coverage); !reflect.DeepEqual(keys, []string{"kitchen"}) {
		t.Fatalf("unexpected keys %v", keys)
	}
}

func TestScopeRequiresRoom(t *testing.T) {
	gate := newGate(domain.StageScope)
	gate.Metadata = &domain.ScopeMetadata{Rooms: []string{"  "}}
	if res := (ScopeValidator{}).Validate(Input{Gate: gate}); res.IsValid {
		t.Fatal("blank rooms must not satisfy scope")
	}

	gate.Metadata = &domain.ScopeMetadata{Rooms: []string{"Kitchen"}}
	if res := (ScopeValidator{}).Validate(Input{Gate: gate}); !res.IsValid {
		t.Fatalf("expected valid scope, got %+v", res)
	}
}

func TestRequiredFields(t *testing.T) {
	tests := []struct {
		name     string
		metadata domain.Metadata
		want     []string
	}{
		{
			name: "intake complete with phone",
			metadata: &domain.IntakeMetadata{
				CustomerName:  "Jane Doe",
				CustomerPhone: "(212) 736-5000",
				LossType:      "water",
				AffectedAreas: []domain.AffectedArea{{Name: "Kitchen", DamageTypes: []string{"drywall"}}},
			},
		},
		{
			name: "intake with email only",
			metadata: &domain.IntakeMetadata{
				CustomerName:  "Jane Doe",
				CustomerEmail: "jane@example.com",
				LossType:      "water",
				AffectedAreas: []domain.AffectedArea{{Name: "Kitchen", DamageTypes: []string{"drywall"}}},
			},
		},
		{
			name: "intake empty",
			metadata: &domain.IntakeMetadata{
				CustomerPhone: "123",
				AffectedAreas: []domain.AffectedArea{{Name: "Kitchen"}},
			},
			want: []string{errCustomerNameRequired, errCustomerContactRequired, errLossTypeRequired, errAffectedAreaRequired},
		},
		{
			name:     "moisture without equipment",
			metadata: &domain.MoistureEquipmentMetadata{Readings: []domain.MoistureReading{{Location: "wall", Value: 30}}},
			want:     []string{errEquipmentRequired},
		},
		{
			name:     "moisture with dehumidifier",
			metadata: &domain.MoistureEquipmentMetadata{Equipment: []domain.EquipmentEntry{{Type: "dehumidifier", Quantity: 1}}},
		},
		{
			name:     "signoff customer pay",
			metadata: &domain.SignoffsMetadata{CustomerPay: true, NextSteps: "estimate"},
		},
		{
			name:     "signoff nothing",
			metadata: &domain.SignoffsMetadata{},
			want:     []string{errSignoffProofRequired, errNextStepsRequired},
		},
		{
			name:     "departure bad job status",
			metadata: &domain.DepartureMetadata{EquipmentStatus: "left on site", JobStatus: "done"},
			want:     []string{errJobStatusRequired},
		},
		{
			name:     "departure ok",
			metadata: &domain.DepartureMetadata{EquipmentStatus: "removed", JobStatus: "ready_for_estimate"},
		},
		{
			name:     "scope has no field checks",
			metadata: &domain.ScopeMetadata{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gate := &domain.Gate{Stage: tt.metadata.Stage(), Metadata: tt.metadata}
			got := RequiredFields(gate, phone.New("US"))
			if len(got) == 0 && len(tt.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestRequiredFieldsWithoutMetadata(t *testing.T) {
	gate := &domain.Gate{Stage: domain.StageMoistureEquipment}
	if got := RequiredFields(gate, phone.Numbers{}); !reflect.DeepEqual(got, []string{errEquipmentRequired}) {
		t.Fatalf("expected equipment error for empty gate, got %v", got)
	}
}

func TestResultMerge(t *testing.T) {
	a := Result{IsValid: true, Errors: []string{}, Warnings: []string{"w1"}}
	b := Result{IsValid: false, Errors: []string{"e1"}, Warnings: []string{"w2"}}
	merged := a.Merge(b)
	if merged.IsValid || len(merged.Errors) != 1 || len(merged.Warnings) != 2 {
		t.Fatalf("unexpected merge %+v", merged)
	}
}

func TestRegistryRequiredFieldsUsesPhoneRegion(t *testing.T) {
	gate := newGate(domain.StageIntake)
	gate.Metadata = &domain.IntakeMetadata{
		CustomerName:  "Jane Doe",
		CustomerPhone: "212-736-5000",
		LossType:      "water",
		AffectedAreas: []domain.AffectedArea{{Name: "Kitchen", DamageTypes: []string{"drywall"}}},
	}

	if errs := NewRegistry(Options{}).RequiredFields(gate); len(errs) != 0 {
		t.Fatalf("expected domestic US number to satisfy intake, got %v", errs)
	}
	errs := NewRegistry(Options{PhoneRegion: "NL"}).RequiredFields(gate)
	if !reflect.DeepEqual(errs, []string{errCustomerContactRequired}) {
		t.Fatalf("expected contact error outside the US region, got %v", errs)
	}
}
