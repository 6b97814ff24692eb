package service

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"fieldgate_backend/internal/events"
	"fieldgate_backend/internal/gates/consistency"
	"fieldgate_backend/internal/gates/domain"
	"fieldgate_backend/internal/gates/monitor"
	"fieldgate_backend/internal/gates/validation"
	"fieldgate_backend/platform/logger"

	"github.com/google/uuid"
)

// memoryStore is an in-memory ports.Store.
type memoryStore struct {
	mu     sync.Mutex
	jobs   map[uuid.UUID]domain.Job
	gates  map[uuid.UUID]domain.Gate
	photos []domain.Photo

	// beforeGateWrite runs inside UpdateGate before the terminal check,
	// which lets tests simulate a concurrent completer.
	beforeGateWrite func(g *domain.Gate)
	jobWrites       []domain.JobStatus
	failJobUpdate   error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		jobs:  make(map[uuid.UUID]domain.Job),
		gates: make(map[uuid.UUID]domain.Gate),
	}
}

func (m *memoryStore) GetJob(_ context.Context, id uuid.UUID) (*domain.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	return &j, nil
}

func (m *memoryStore) GetGate(_ context.Context, id uuid.UUID) (*domain.Gate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.gates[id]
	if !ok {
		return nil, domain.ErrGateNotFound
	}
	return &g, nil
}

func (m *memoryStore) ListGates(_ context.Context, jobID uuid.UUID) ([]domain.Gate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Gate, 0, 7)
	for _, g := range m.gates {
		if g.JobID == jobID {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Stage.Order() < out[j].Stage.Order() })
	return out, nil
}

func (m *memoryStore) ListPhotos(_ context.Context, jobID uuid.UUID, gateID *uuid.UUID) ([]domain.Photo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Photo, 0)
	for _, p := range m.photos {
		if p.JobID != jobID {
			continue
		}
		if gateID != nil && !p.BelongsTo(*gateID) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (m *memoryStore) GetPhoto(_ context.Context, id uuid.UUID) (*domain.Photo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.photos {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, domain.ErrPhotoNotFound
}

func (m *memoryStore) DeletePhotos(_ context.Context, ids []uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	drop := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	kept := m.photos[:0]
	for _, p := range m.photos {
		if !drop[p.ID] {
			kept = append(kept, p)
		}
	}
	m.photos = kept
	return nil
}

func (m *memoryStore) UpdateGate(_ context.Context, id uuid.UUID, patch domain.GatePatch) (*domain.Gate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.gates[id]
	if !ok {
		return nil, domain.ErrGateNotFound
	}
	if m.beforeGateWrite != nil {
		m.beforeGateWrite(&g)
		m.gates[id] = g
	}
	if patch.OnlyIfOpen && g.Status.IsTerminal() {
		return nil, domain.ErrGateAlreadyResolved
	}

	switch {
	case patch.Status != nil:
		g.Status = *patch.Status
	case patch.OpenIfPending:
		g.Status = domain.StatusAfterMetadataWrite(g.Status)
	}
	if patch.CompletedAt != nil {
		g.CompletedAt = patch.CompletedAt
	}
	if patch.CompletedBy != nil {
		g.CompletedBy = patch.CompletedBy
	}
	if patch.RequiresException != nil {
		g.RequiresException = *patch.RequiresException
	}
	if patch.ExceptionReason != nil {
		g.ExceptionReason = patch.ExceptionReason
	}
	if patch.Metadata != nil {
		g.Metadata = patch.Metadata
	}
	m.gates[id] = g
	return &g, nil
}

func (m *memoryStore) UpdateJob(_ context.Context, id uuid.UUID, patch domain.JobPatch) (*domain.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failJobUpdate != nil {
		return nil, m.failJobUpdate
	}
	j, ok := m.jobs[id]
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	if patch.Status != nil {
		j.Status = *patch.Status
		m.jobWrites = append(m.jobWrites, *patch.Status)
	}
	if patch.LeadTechID != nil {
		j.LeadTechID = *patch.LeadTechID
	}
	m.jobs[id] = j
	return &j, nil
}

func (m *memoryStore) CreatePhoto(_ context.Context, in domain.PhotoInput) (*domain.Photo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.jobs[in.JobID]; !ok {
		return nil, domain.ErrJobNotFound
	}
	p := domain.Photo{
		ID:          uuid.New(),
		JobID:       in.JobID,
		GateID:      in.GateID,
		StoragePath: in.StoragePath,
		Metadata:    in.Metadata,
		IsPPE:       in.IsPPE,
		TakenBy:     in.TakenBy,
		CreatedAt:   time.Now(),
	}
	m.photos = append(m.photos, p)
	return &p, nil
}

func (m *memoryStore) CreateJobWithGates(_ context.Context, in domain.NewJob) (*domain.Job, []domain.Gate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job := domain.Job{
		ID:            uuid.New(),
		Title:         in.Title,
		Address:       in.Address,
		Status:        domain.JobStatusLead,
		LeadTechID:    in.LeadTechID,
		SiteLatitude:  in.SiteLatitude,
		SiteLongitude: in.SiteLongitude,
	}
	m.jobs[job.ID] = job
	gates := make([]domain.Gate, 0, 7)
	for _, stage := range domain.Stages() {
		g := domain.Gate{ID: uuid.New(), JobID: job.ID, Stage: stage, Status: domain.GateStatusPending, Metadata: domain.NewMetadata(stage)}
		m.gates[g.ID] = g
		gates = append(gates, g)
	}
	return &job, gates, nil
}

func (m *memoryStore) ListJobs(_ context.Context, filter domain.JobFilter) ([]domain.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Job, 0)
	for _, j := range m.jobs {
		if filter.LeadTechID != nil && j.LeadTechID != *filter.LeadTechID {
			continue
		}
		out = append(out, j)
	}
	return out, nil
}

// seedJob creates a job with seven gates and returns the job id.
func (m *memoryStore) seedJob(leadTech uuid.UUID) uuid.UUID {
	job, _, _ := m.CreateJobWithGates(context.Background(), domain.NewJob{Title: "Water loss", LeadTechID: leadTech})
	return job.ID
}

func (m *memoryStore) gate(jobID uuid.UUID, stage domain.Stage) domain.Gate {
	gates, _ := m.ListGates(context.Background(), jobID)
	return *domain.FindGate(gates, stage)
}

func (m *memoryStore) setGate(g domain.Gate) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gates[g.ID] = g
}

func (m *memoryStore) addPhoto(jobID uuid.UUID, gateID uuid.UUID, room, photoType string, ppe bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := gateID
	m.photos = append(m.photos, domain.Photo{
		ID:          uuid.New(),
		JobID:       jobID,
		GateID:      &id,
		StoragePath: "seed/" + room,
		Metadata:    domain.PhotoMetadata{Room: room, Type: photoType},
		IsPPE:       ppe,
	})
}

func (m *memoryStore) documentRoom(jobID uuid.UUID, room string) {
	photos := m.gate(jobID, domain.StagePhotos)
	for _, t := range domain.RequiredRoomPhotoTypes() {
		m.addPhoto(jobID, photos.ID, room, t, false)
	}
}

// memoryObjects is an in-memory ports.ObjectStorage with failure injection.
type memoryObjects struct {
	mu       sync.Mutex
	objects  map[string][]byte
	deleted  []string
	attempts map[string]int
	// fail returns the error for the given file name and attempt, or nil.
	fail func(fileName string, attempt int) error
}

func newMemoryObjects() *memoryObjects {
	return &memoryObjects{objects: make(map[string][]byte), attempts: make(map[string]int)}
}

func (o *memoryObjects) UploadFile(_ context.Context, bucket, folder, fileName, _ string, reader io.Reader, _ int64) (string, error) {
	o.mu.Lock()
	o.attempts[fileName]++
	attempt := o.attempts[fileName]
	fail := o.fail
	o.mu.Unlock()

	if fail != nil {
		if err := fail(fileName, attempt); err != nil {
			return "", err
		}
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}

	key := fmt.Sprintf("%s/%s/%s", bucket, folder, fileName)
	o.mu.Lock()
	o.objects[key] = data
	o.mu.Unlock()
	return key, nil
}

func (o *memoryObjects) DeleteObject(_ context.Context, _, key string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.objects, key)
	o.deleted = append(o.deleted, key)
	return nil
}

// recordingBus captures published events.
type recordingBus struct {
	mu     sync.Mutex
	events []events.Event
}

func (b *recordingBus) Publish(_ context.Context, e events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, e)
}

func (b *recordingBus) PublishSync(ctx context.Context, e events.Event) error {
	b.Publish(ctx, e)
	return nil
}

func (b *recordingBus) Subscribe(string, events.Handler) {}

func (b *recordingBus) names() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.events))
	for i, e := range b.events {
		out[i] = e.EventName()
	}
	return out
}

type harness struct {
	svc     *Service
	store   *memoryStore
	objects *memoryObjects
	bus     *recordingBus
	now     time.Time
	sleepMu sync.Mutex
	sleeps  []time.Duration
	tech    uuid.UUID
	jobID   uuid.UUID
}

func newHarness() *harness {
	h := &harness{
		store:   newMemoryStore(),
		objects: newMemoryObjects(),
		bus:     &recordingBus{},
		now:     time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC),
		tech:    uuid.New(),
	}
	h.jobID = h.store.seedJob(h.tech)
	h.svc = New(
		h.store,
		h.objects,
		validation.NewRegistry(validation.Options{}),
		consistency.NewChecker(),
		monitor.New(monitor.DefaultThreshold),
		h.bus,
		logger.Discard(),
		Options{UploadMaxAttempts: 3, UploadRetryDelay: 100 * time.Millisecond, Now: func() time.Time { return h.now }},
	)
	h.svc.sleep = func(_ context.Context, d time.Duration) error {
		h.sleepMu.Lock()
		defer h.sleepMu.Unlock()
		h.sleeps = append(h.sleeps, d)
		return nil
	}
	return h
}

func (h *harness) gate(stage domain.Stage) domain.Gate {
	return h.store.gate(h.jobID, stage)
}

func jpeg(name string) Upload {
	return Upload{FileName: name, ContentType: "image/jpeg", Data: []byte("fake-jpeg-" + name)}
}
