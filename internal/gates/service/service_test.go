package service

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"fieldgate_backend/internal/adapters/storage"
	"fieldgate_backend/internal/events"
	"fieldgate_backend/internal/gates/domain"
	"fieldgate_backend/internal/gates/validation"
	"fieldgate_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
)

func validationDetails(t *testing.T, err error) validation.Result {
	t.Helper()
	appErr, ok := apperr.As(err)
	if !ok || appErr.Kind != apperr.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if !errors.Is(err, domain.ErrValidationFailed) {
		t.Fatalf("expected ErrValidationFailed in chain, got %v", err)
	}
	res, ok := appErr.Details.(validation.Result)
	if !ok {
		t.Fatalf("expected validation.Result details, got %T", appErr.Details)
	}
	return res
}

func TestCompleteArrivalWithStagedPhoto(t *testing.T) {
	h := newHarness()
	arrival := h.gate(domain.StageArrival)

	completion, err := h.svc.CompleteGate(context.Background(), CompleteGateInput{
		GateID:  arrival.ID,
		ActorID: h.tech,
		Uploads: []Upload{jpeg("door.jpg")},
	})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}

	g := completion.Gate
	if g.Status != domain.GateStatusComplete || g.CompletedBy == nil || *g.CompletedBy != h.tech {
		t.Fatalf("unexpected gate %+v", g)
	}
	if g.CompletedAt == nil || !g.CompletedAt.Equal(h.now) {
		t.Fatalf("expected completed_at from clock, got %v", g.CompletedAt)
	}
	if len(completion.Photos) != 1 || completion.Photos[0].Metadata.Type != domain.PhotoTypeArrival {
		t.Fatalf("expected one arrival photo, got %+v", completion.Photos)
	}
	if !completion.Photos[0].BelongsTo(arrival.ID) {
		t.Fatal("expected photo attributed to the arrival gate")
	}
	if names := h.bus.names(); !reflect.DeepEqual(names, []string{"gates.gate.completed"}) {
		t.Fatalf("unexpected events %v", names)
	}
}

func TestCompleteArrivalWithoutPhotoDoesNotMutate(t *testing.T) {
	h := newHarness()
	arrival := h.gate(domain.StageArrival)

	_, err := h.svc.CompleteGate(context.Background(), CompleteGateInput{GateID: arrival.ID, ActorID: h.tech})
	res := validationDetails(t, err)
	if res.IsValid || len(res.Errors) != 1 {
		t.Fatalf("unexpected result %+v", res)
	}

	if got := h.gate(domain.StageArrival); got.Status != domain.GateStatusPending || got.CompletedAt != nil {
		t.Fatalf("gate must not change on failed validation, got %+v", got)
	}
	if len(h.bus.names()) != 0 {
		t.Fatal("no event expected on failed validation")
	}
}

func TestCompleteGatePreconditions(t *testing.T) {
	h := newHarness()
	arrival := h.gate(domain.StageArrival)

	_, err := h.svc.CompleteGate(context.Background(), CompleteGateInput{GateID: uuid.New(), ActorID: h.tech})
	if !apperr.Is(err, apperr.KindNotFound) || !errors.Is(err, domain.ErrGateNotFound) {
		t.Fatalf("expected gate not found, got %v", err)
	}

	_, err = h.svc.CompleteGate(context.Background(), CompleteGateInput{GateID: arrival.ID, ActorID: uuid.New(), Uploads: []Upload{jpeg("a.jpg")}})
	if !apperr.Is(err, apperr.KindForbidden) || !errors.Is(err, domain.ErrNotAssigned) {
		t.Fatalf("expected not assigned, got %v", err)
	}
	if len(h.objects.objects) != 0 {
		t.Fatal("unassigned actor must not upload anything")
	}

	arrival.Status = domain.GateStatusSkipped
	h.store.setGate(arrival)
	_, err = h.svc.CompleteGate(context.Background(), CompleteGateInput{GateID: arrival.ID, ActorID: h.tech, Uploads: []Upload{jpeg("a.jpg")}})
	if !apperr.Is(err, apperr.KindConflict) || !errors.Is(err, domain.ErrGateAlreadyResolved) {
		t.Fatalf("expected already resolved, got %v", err)
	}
}

func TestTerminalCheckRunsBeforeAssignment(t *testing.T) {
	h := newHarness()
	arrival := h.gate(domain.StageArrival)
	arrival.Status = domain.GateStatusComplete
	h.store.setGate(arrival)

	_, err := h.svc.CompleteGate(context.Background(), CompleteGateInput{GateID: arrival.ID, ActorID: uuid.New()})
	if !errors.Is(err, domain.ErrGateAlreadyResolved) {
		t.Fatalf("expected already resolved before assignment check, got %v", err)
	}
}

func TestCompleteGateRejectsUnsupportedUpload(t *testing.T) {
	h := newHarness()
	arrival := h.gate(domain.StageArrival)

	_, err := h.svc.CompleteGate(context.Background(), CompleteGateInput{
		GateID:  arrival.ID,
		ActorID: h.tech,
		Uploads: []Upload{{FileName: "notes.pdf", ContentType: "application/pdf", Data: []byte("%PDF")}},
	})
	if !apperr.Is(err, apperr.KindBadRequest) || !errors.Is(err, domain.ErrUploadFailed) {
		t.Fatalf("expected bad request upload error, got %v", err)
	}
}

func TestScopeCompletionRequiresPhotographedRooms(t *testing.T) {
	h := newHarness()
	scope := h.gate(domain.StageScope)
	scope.Metadata = &domain.ScopeMetadata{Rooms: []string{"Kitchen", "Attic"}}
	h.store.setGate(scope)
	h.store.documentRoom(h.jobID, "Kitchen")

	_, err := h.svc.CompleteGate(context.Background(), CompleteGateInput{GateID: scope.ID, ActorID: h.tech})
	res := validationDetails(t, err)
	if !reflect.DeepEqual(res.Errors, []string{"Room Attic listed in Scope has no photos"}) {
		t.Fatalf("unexpected errors %v", res.Errors)
	}

	h.store.documentRoom(h.jobID, "Attic")
	completion, err := h.svc.CompleteGate(context.Background(), CompleteGateInput{GateID: scope.ID, ActorID: h.tech})
	if err != nil {
		t.Fatalf("expected completion after documenting attic: %v", err)
	}
	if completion.Gate.Status != domain.GateStatusComplete {
		t.Fatalf("unexpected status %s", completion.Gate.Status)
	}
}

func TestDepartureTimestampOrder(t *testing.T) {
	h := newHarness()
	arrival := h.gate(domain.StageArrival)
	arrival.Status = domain.GateStatusComplete
	arrivedAt := h.now
	arrival.CompletedAt = &arrivedAt
	h.store.setGate(arrival)

	departure := h.gate(domain.StageDeparture)
	departure.Metadata = &domain.DepartureMetadata{EquipmentStatus: "removed", JobStatus: "ready_for_estimate"}
	h.store.setGate(departure)

	_, err := h.svc.CompleteGate(context.Background(), CompleteGateInput{GateID: departure.ID, ActorID: h.tech})
	res := validationDetails(t, err)
	if len(res.Errors) != 1 || !strings.HasPrefix(res.Errors[0], "Timestamp order violation") {
		t.Fatalf("expected timestamp violation, got %v", res.Errors)
	}
	if job, _ := h.store.GetJob(context.Background(), h.jobID); job.Status != domain.JobStatusLead {
		t.Fatalf("job status must not change on failed validation, got %s", job.Status)
	}

	h.now = h.now.Add(3 * time.Hour)
	completion, err := h.svc.CompleteGate(context.Background(), CompleteGateInput{GateID: departure.ID, ActorID: h.tech})
	if err != nil {
		t.Fatalf("complete departure: %v", err)
	}
	if completion.Job.Status != domain.JobStatusReadyForEstimate {
		t.Fatalf("expected job status from departure metadata, got %s", completion.Job.Status)
	}
}

func TestDepartureJobStatusRevertedWhenGateWriteLoses(t *testing.T) {
	h := newHarness()
	departure := h.gate(domain.StageDeparture)
	departure.Metadata = &domain.DepartureMetadata{EquipmentStatus: "removed", JobStatus: "complete"}
	h.store.setGate(departure)

	// Another request completes the gate between our check and our write.
	h.store.beforeGateWrite = func(g *domain.Gate) {
		g.Status = domain.GateStatusComplete
	}

	_, err := h.svc.CompleteGate(context.Background(), CompleteGateInput{GateID: departure.ID, ActorID: h.tech})
	if !errors.Is(err, domain.ErrGateAlreadyResolved) || !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected lost race to report already resolved, got %v", err)
	}

	job, _ := h.store.GetJob(context.Background(), h.jobID)
	if job.Status != domain.JobStatusLead {
		t.Fatalf("expected job status restored to lead, got %s", job.Status)
	}
	want := []domain.JobStatus{domain.JobStatusComplete, domain.JobStatusLead}
	if !reflect.DeepEqual(h.store.jobWrites, want) {
		t.Fatalf("expected forward write then restore, got %v", h.store.jobWrites)
	}
	if len(h.bus.names()) != 0 {
		t.Fatal("no event expected when the gate write fails")
	}
}

func TestLostGateWriteRemovesRecordedPhotos(t *testing.T) {
	h := newHarness()
	arrival := h.gate(domain.StageArrival)
	h.store.beforeGateWrite = func(g *domain.Gate) {
		g.Status = domain.GateStatusSkipped
	}

	_, err := h.svc.CompleteGate(context.Background(), CompleteGateInput{
		GateID:  arrival.ID,
		ActorID: h.tech,
		Uploads: []Upload{jpeg("door.jpg"), jpeg("van.jpg")},
	})
	if !errors.Is(err, domain.ErrGateAlreadyResolved) {
		t.Fatalf("expected lost race to report already resolved, got %v", err)
	}

	photos, _ := h.store.ListPhotos(context.Background(), h.jobID, nil)
	if len(photos) != 0 {
		t.Fatalf("expected recorded photos to be removed, got %d", len(photos))
	}
	if len(h.objects.objects) != 0 || len(h.objects.deleted) != 2 {
		t.Fatalf("expected uploaded objects to be deleted, objects=%v deleted=%v", h.objects.objects, h.objects.deleted)
	}
}

func TestUploadRetriesTransientFailures(t *testing.T) {
	h := newHarness()
	h.objects.fail = func(_ string, attempt int) error {
		if attempt < 3 {
			return errors.New("dial tcp: connection reset by peer")
		}
		return nil
	}

	arrival := h.gate(domain.StageArrival)
	if _, err := h.svc.CompleteGate(context.Background(), CompleteGateInput{GateID: arrival.ID, ActorID: h.tech, Uploads: []Upload{jpeg("door.jpg")}}); err != nil {
		t.Fatalf("expected success on third attempt: %v", err)
	}
	want := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}
	if !reflect.DeepEqual(h.sleeps, want) {
		t.Fatalf("expected linear backoff %v, got %v", want, h.sleeps)
	}
}

func TestUploadGivesUpAfterMaxAttempts(t *testing.T) {
	h := newHarness()
	h.objects.fail = func(string, int) error { return errors.New("i/o timeout") }

	arrival := h.gate(domain.StageArrival)
	_, err := h.svc.CompleteGate(context.Background(), CompleteGateInput{GateID: arrival.ID, ActorID: h.tech, Uploads: []Upload{jpeg("door.jpg")}})
	if !apperr.Is(err, apperr.KindUnavailable) {
		t.Fatalf("expected unavailable after retries, got %v", err)
	}
	if h.objects.attempts["door.jpg"] != 3 {
		t.Fatalf("expected 3 attempts, got %d", h.objects.attempts["door.jpg"])
	}
	if got := h.gate(domain.StageArrival); got.Status != domain.GateStatusPending {
		t.Fatalf("gate must stay open after upload failure, got %s", got.Status)
	}
}

func TestUploadFailureDeletesUploadedObjects(t *testing.T) {
	h := newHarness()
	var once sync.Once
	release := make(chan struct{})
	h.objects.fail = func(name string, _ int) error {
		if name == "denied.jpg" {
			// Let the other upload finish first so there is something to clean up.
			<-release
			return minio.ErrorResponse{Code: "AccessDenied", StatusCode: 403}
		}
		once.Do(func() { close(release) })
		return nil
	}

	arrival := h.gate(domain.StageArrival)
	_, err := h.svc.CompleteGate(context.Background(), CompleteGateInput{
		GateID:  arrival.ID,
		ActorID: h.tech,
		Uploads: []Upload{jpeg("ok.jpg"), jpeg("denied.jpg")},
	})
	if !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if storage.Classify(err) != storage.FailurePermission {
		t.Fatalf("expected permission failure in chain, got %v", err)
	}
	if h.objects.attempts["denied.jpg"] != 1 {
		t.Fatalf("permission failures must not be retried, got %d attempts", h.objects.attempts["denied.jpg"])
	}
	if len(h.objects.objects) != 0 || len(h.objects.deleted) != 1 {
		t.Fatalf("expected uploaded object to be deleted, objects=%v deleted=%v", h.objects.objects, h.objects.deleted)
	}
	photos, _ := h.store.ListPhotos(context.Background(), h.jobID, nil)
	if len(photos) != 0 {
		t.Fatalf("no photo rows expected, got %d", len(photos))
	}
}

func TestSignoffsCompletionStoresFingerprint(t *testing.T) {
	h := newHarness()
	signoffs := h.gate(domain.StageSignoffs)
	signoffs.Metadata = &domain.SignoffsMetadata{Signature: "data:image/png;base64,AAAA", NextSteps: "estimate"}
	h.store.setGate(signoffs)

	completion, err := h.svc.CompleteGate(context.Background(), CompleteGateInput{GateID: signoffs.ID, ActorID: h.tech})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	m := completion.Gate.Metadata.(*domain.SignoffsMetadata)
	if len(m.SignatureFingerprint) != 64 || m.SignedAt == nil || !m.SignedAt.Equal(h.now) {
		t.Fatalf("expected fingerprint and signing time, got %+v", m)
	}
}

func TestLogException(t *testing.T) {
	h := newHarness()
	photos := h.gate(domain.StagePhotos)

	_, err := h.svc.LogException(context.Background(), photos.ID, h.tech, "   ")
	if !apperr.Is(err, apperr.KindBadRequest) || !errors.Is(err, domain.ErrInvalidExceptionReason) {
		t.Fatalf("expected invalid reason, got %v", err)
	}

	_, err = h.svc.LogException(context.Background(), photos.ID, uuid.New(), "no access")
	if !errors.Is(err, domain.ErrNotAssigned) {
		t.Fatalf("expected not assigned, got %v", err)
	}

	g, err := h.svc.LogException(context.Background(), photos.ID, h.tech, "  Customer refused entry to upstairs  ")
	if err != nil {
		t.Fatalf("log exception: %v", err)
	}
	if g.Status != domain.GateStatusSkipped || !g.RequiresException {
		t.Fatalf("unexpected gate %+v", g)
	}
	if g.ExceptionReason == nil || *g.ExceptionReason != "Customer refused entry to upstairs" {
		t.Fatalf("expected trimmed reason, got %v", g.ExceptionReason)
	}
	if g.CompletedAt == nil || g.CompletedBy == nil || *g.CompletedBy != h.tech {
		t.Fatalf("expected completion stamp, got %+v", g)
	}

	_, err = h.svc.LogException(context.Background(), photos.ID, h.tech, "again")
	if !errors.Is(err, domain.ErrGateAlreadyResolved) {
		t.Fatalf("expected already resolved, got %v", err)
	}

	logged, ok := h.bus.events[0].(events.GateExceptionLogged)
	if !ok || logged.GateID != photos.ID {
		t.Fatalf("expected exception event, got %v", h.bus.events)
	}
}

func TestSaveMetadata(t *testing.T) {
	h := newHarness()
	intake := h.gate(domain.StageIntake)

	payload := json.RawMessage(`{"customerName":"<b>Jane</b>","customerPhone":"(212) 736-5000","lossType":"water","affectedAreas":[],"insurer":"Acme"}`)
	g, err := h.svc.SaveMetadata(context.Background(), intake.ID, h.tech, payload)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if g.Status != domain.GateStatusInProgress {
		t.Fatalf("expected autosave to open the gate, got %s", g.Status)
	}
	m := g.Metadata.(*domain.IntakeMetadata)
	if m.CustomerName != "Jane" || m.CustomerPhone != "+12127365000" {
		t.Fatalf("expected normalised intake, got %+v", m)
	}
	if string(m.Extra["insurer"]) != `"Acme"` {
		t.Fatalf("expected unknown key to survive, got %v", m.Extra)
	}

	if _, err := h.svc.SaveMetadata(context.Background(), intake.ID, uuid.New(), payload); !errors.Is(err, domain.ErrNotAssigned) {
		t.Fatalf("expected not assigned, got %v", err)
	}
	if _, err := h.svc.SaveMetadata(context.Background(), intake.ID, h.tech, json.RawMessage(`[1,2]`)); !apperr.Is(err, apperr.KindBadRequest) {
		t.Fatalf("expected bad request for wrong shape, got %v", err)
	}
}

func TestSaveMetadataOnCompleteGateKeepsStatus(t *testing.T) {
	h := newHarness()
	signoffs := h.gate(domain.StageSignoffs)
	signedAt := h.now
	signoffs.Status = domain.GateStatusComplete
	signoffs.Metadata = &domain.SignoffsMetadata{Signature: "sig", SignatureFingerprint: "abc", SignedAt: &signedAt}
	h.store.setGate(signoffs)

	g, err := h.svc.SaveMetadata(context.Background(), signoffs.ID, h.tech, json.RawMessage(`{"signature":"sig","nextSteps":"estimate","signatureFingerprint":"forged"}`))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if g.Status != domain.GateStatusComplete {
		t.Fatalf("autosave must not change a resolved status, got %s", g.Status)
	}
	if m := g.Metadata.(*domain.SignoffsMetadata); m.SignatureFingerprint != "abc" || m.NextSteps != "estimate" {
		t.Fatalf("expected server fields kept and client fields saved, got %+v", m)
	}
}

func TestCheckExceptionFrequency(t *testing.T) {
	h := newHarness()
	for _, stage := range []domain.Stage{domain.StageArrival, domain.StageIntake, domain.StagePhotos} {
		g := h.gate(stage)
		if _, err := h.svc.LogException(context.Background(), g.ID, h.tech, "skipped"); err != nil {
			t.Fatalf("log exception: %v", err)
		}
	}

	report, err := h.svc.CheckExceptionFrequency(context.Background(), h.jobID)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if report.ExceptionCount != 3 || !report.NeedsReview {
		t.Fatalf("expected review after 3 exceptions, got %+v", report)
	}

	if _, err := h.svc.CheckExceptionFrequency(context.Background(), uuid.New()); !errors.Is(err, domain.ErrJobNotFound) {
		t.Fatalf("expected job not found, got %v", err)
	}
}

func TestValidateGateIsReadOnly(t *testing.T) {
	h := newHarness()
	photos := h.gate(domain.StagePhotos)
	h.store.addPhoto(h.jobID, photos.ID, "Kitchen", domain.PhotoTypeWide, false)

	res, err := h.svc.ValidateGate(context.Background(), photos.ID, h.jobID)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if res.IsValid || len(res.Errors) != 1 || !strings.HasPrefix(res.Errors[0], "Kitchen: Minimum 3 photos required (currently 1)") {
		t.Fatalf("unexpected result %+v", res)
	}

	if _, err := h.svc.ValidateGate(context.Background(), photos.ID, uuid.New()); !errors.Is(err, domain.ErrGateNotFound) {
		t.Fatalf("expected gate not found for another job, got %v", err)
	}
}

func TestValidateDepartureIsRepeatable(t *testing.T) {
	h := newHarness()
	arrival := h.gate(domain.StageArrival)
	arrival.Status = domain.GateStatusComplete
	arrivedAt := h.now.Add(time.Hour)
	arrival.CompletedAt = &arrivedAt
	h.store.setGate(arrival)
	departure := h.gate(domain.StageDeparture)

	first, err := h.svc.ValidateGate(context.Background(), departure.ID, h.jobID)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	h.now = h.now.Add(time.Second)
	second, err := h.svc.ValidateGate(context.Background(), departure.ID, h.jobID)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}

	if first.IsValid || !reflect.DeepEqual(first, second) {
		t.Fatalf("expected identical blocked results, got %+v and %+v", first, second)
	}
}

func TestCompleteGateChecksRequiredFields(t *testing.T) {
	h := newHarness()
	moisture := h.gate(domain.StageMoistureEquipment)

	_, err := h.svc.CompleteGate(context.Background(), CompleteGateInput{GateID: moisture.ID, ActorID: h.tech})
	res := validationDetails(t, err)
	if len(res.Errors) != 1 {
		t.Fatalf("expected equipment error, got %v", res.Errors)
	}

	moisture.Metadata = &domain.MoistureEquipmentMetadata{Equipment: []domain.EquipmentEntry{{Type: "air mover", Quantity: 2}}}
	h.store.setGate(moisture)
	if _, err := h.svc.CompleteGate(context.Background(), CompleteGateInput{GateID: moisture.ID, ActorID: h.tech}); err != nil {
		t.Fatalf("expected completion once equipment is selected, got %v", err)
	}
}

func TestRequiredFieldsCheckedAfterTerminalAndAssignment(t *testing.T) {
	h := newHarness()
	intake := h.gate(domain.StageIntake)

	_, err := h.svc.CompleteGate(context.Background(), CompleteGateInput{GateID: intake.ID, ActorID: uuid.New()})
	if !apperr.Is(err, apperr.KindForbidden) || !errors.Is(err, domain.ErrNotAssigned) {
		t.Fatalf("expected not assigned before missing fields, got %v", err)
	}

	// Completed earlier, then emptied by autosave.
	intake.Status = domain.GateStatusComplete
	intake.Metadata = &domain.IntakeMetadata{}
	h.store.setGate(intake)
	_, err = h.svc.CompleteGate(context.Background(), CompleteGateInput{GateID: intake.ID, ActorID: h.tech})
	if !apperr.Is(err, apperr.KindConflict) || !errors.Is(err, domain.ErrGateAlreadyResolved) {
		t.Fatalf("expected already resolved before missing fields, got %v", err)
	}
}

func TestCreateJobSeedsSevenGates(t *testing.T) {
	h := newHarness()
	progress, err := h.svc.CreateJob(context.Background(), domain.NewJob{Title: " Basement flood ", LeadTechID: h.tech})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if progress.Job.Title != "Basement flood" || progress.Total != 7 || progress.Resolved != 0 {
		t.Fatalf("unexpected progress %+v", progress)
	}

	lat := 52.1
	if _, err := h.svc.CreateJob(context.Background(), domain.NewJob{Title: "x", LeadTechID: h.tech, SiteLatitude: &lat}); !apperr.Is(err, apperr.KindBadRequest) {
		t.Fatalf("expected bad request for half a coordinate, got %v", err)
	}
	if _, err := h.svc.CreateJob(context.Background(), domain.NewJob{Title: "  ", LeadTechID: h.tech}); !apperr.Is(err, apperr.KindBadRequest) {
		t.Fatalf("expected bad request for blank title, got %v", err)
	}
}

func TestReassignJobChangesWhoMayComplete(t *testing.T) {
	h := newHarness()
	newTech := uuid.New()
	if _, err := h.svc.ReassignJob(context.Background(), h.jobID, newTech); err != nil {
		t.Fatalf("reassign: %v", err)
	}

	arrival := h.gate(domain.StageArrival)
	_, err := h.svc.CompleteGate(context.Background(), CompleteGateInput{GateID: arrival.ID, ActorID: h.tech, Uploads: []Upload{jpeg("a.jpg")}})
	if !errors.Is(err, domain.ErrNotAssigned) {
		t.Fatalf("expected previous tech to be rejected, got %v", err)
	}
	if _, err := h.svc.CompleteGate(context.Background(), CompleteGateInput{GateID: arrival.ID, ActorID: newTech, Uploads: []Upload{jpeg("a.jpg")}}); err != nil {
		t.Fatalf("expected new tech to complete: %v", err)
	}
}

func TestCapturePhoto(t *testing.T) {
	h := newHarness()
	photosGate := h.gate(domain.StagePhotos)

	up := jpeg("kitchen-wide.jpg")
	up.Room = " Kitchen "
	up.Type = domain.PhotoTypeWide
	photo, err := h.svc.CapturePhoto(context.Background(), CapturePhotoInput{GateID: photosGate.ID, ActorID: h.tech, Upload: up})
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	if photo.Metadata.Room != "Kitchen" || photo.Metadata.ContentType != "image/jpeg" || photo.StoragePath == "" {
		t.Fatalf("unexpected photo %+v", photo)
	}

	photosGate.Status = domain.GateStatusComplete
	h.store.setGate(photosGate)
	if _, err := h.svc.CapturePhoto(context.Background(), CapturePhotoInput{GateID: photosGate.ID, ActorID: h.tech, Upload: up}); !errors.Is(err, domain.ErrGateAlreadyResolved) {
		t.Fatalf("expected resolved gate to reject capture, got %v", err)
	}
}

func TestListJobGatesCountsResolved(t *testing.T) {
	h := newHarness()
	g := h.gate(domain.StageIntake)
	if _, err := h.svc.LogException(context.Background(), g.ID, h.tech, "customer absent"); err != nil {
		t.Fatalf("log exception: %v", err)
	}

	progress, err := h.svc.ListJobGates(context.Background(), h.jobID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if progress.Total != 7 || progress.Resolved != 1 || progress.Gates[0].Stage != domain.StageArrival {
		t.Fatalf("unexpected progress %+v", progress)
	}
}

func TestAuthorizeJobView(t *testing.T) {
	h := newHarness()
	photos := h.gate(domain.StagePhotos)
	ctx := context.Background()

	if err := h.svc.AuthorizeJobView(ctx, h.jobID, h.tech, false); err != nil {
		t.Fatalf("lead tech must see the job: %v", err)
	}
	if err := h.svc.AuthorizeJobView(ctx, h.jobID, uuid.New(), true); err != nil {
		t.Fatalf("admins must see the job: %v", err)
	}
	err := h.svc.AuthorizeJobView(ctx, h.jobID, uuid.New(), false)
	if !apperr.Is(err, apperr.KindForbidden) || !errors.Is(err, domain.ErrNotAssigned) {
		t.Fatalf("expected not assigned, got %v", err)
	}

	if err := h.svc.AuthorizeGateView(ctx, photos.ID, uuid.New(), false); !errors.Is(err, domain.ErrNotAssigned) {
		t.Fatalf("expected not assigned for another tech's gate, got %v", err)
	}
	if err := h.svc.AuthorizeGateView(ctx, uuid.New(), h.tech, true); !errors.Is(err, domain.ErrGateNotFound) {
		t.Fatalf("expected gate not found, got %v", err)
	}
}
