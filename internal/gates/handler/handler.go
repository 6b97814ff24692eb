package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"fieldgate_backend/internal/adapters/storage"
	"fieldgate_backend/internal/gates/domain"
	"fieldgate_backend/internal/gates/monitor"
	"fieldgate_backend/internal/gates/service"
	"fieldgate_backend/internal/gates/transport"
	"fieldgate_backend/internal/gates/validation"
	"fieldgate_backend/platform/apperr"
	"fieldgate_backend/platform/httpkit"
	"fieldgate_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// statusOverrides reports blocked completions as 422 so clients can tell
// them apart from malformed requests.
var statusOverrides = map[apperr.Kind]int{
	apperr.KindValidation: http.StatusUnprocessableEntity,
}

// GateService is the part of the gate service the handler drives.
type GateService interface {
	CompleteGate(ctx context.Context, in service.CompleteGateInput) (*service.Completion, error)
	LogException(ctx context.Context, gateID, actorID uuid.UUID, reason string) (*domain.Gate, error)
	ValidateGate(ctx context.Context, gateID, jobID uuid.UUID) (validation.Result, error)
	AuthorizeJobView(ctx context.Context, jobID, actorID uuid.UUID, isAdmin bool) error
	AuthorizeGateView(ctx context.Context, gateID, actorID uuid.UUID, isAdmin bool) error
	SaveMetadata(ctx context.Context, gateID, actorID uuid.UUID, payload json.RawMessage) (*domain.Gate, error)
	CapturePhoto(ctx context.Context, in service.CapturePhotoInput) (*domain.Photo, error)
	ListGatePhotos(ctx context.Context, gateID uuid.UUID) ([]domain.Photo, error)
	PhotoDownloadURL(ctx context.Context, photoID, actorID uuid.UUID, isAdmin bool) (*storage.PresignedURL, error)
	CreateJob(ctx context.Context, input domain.NewJob) (*service.JobProgress, error)
	ReassignJob(ctx context.Context, jobID, leadTechID uuid.UUID) (*domain.Job, error)
	ListJobs(ctx context.Context, filter domain.JobFilter) ([]domain.Job, error)
	ListJobGates(ctx context.Context, jobID uuid.UUID) (*service.JobProgress, error)
	CheckExceptionFrequency(ctx context.Context, jobID uuid.UUID) (monitor.Report, error)
}

// Handler handles HTTP requests for jobs and their gates.
type Handler struct {
	svc            GateService
	val            *validator.Validator
	maxUploadBytes int64
}

// New creates a gates handler. maxUploadBytes bounds each uploaded photo.
func New(svc GateService, val *validator.Validator, maxUploadBytes int64) *Handler {
	return &Handler{svc: svc, val: val, maxUploadBytes: maxUploadBytes}
}

// RegisterRoutes mounts technician routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, mutations ...gin.HandlerFunc) {
	jobs := rg.Group("/jobs")
	jobs.GET("", h.ListJobs)
	jobs.GET("/:id/gates", h.ListJobGates)
	jobs.GET("/:id/gates/:gateId/validation", h.ValidateGate)
	jobs.GET("/:id/exceptions", h.ExceptionFrequency)

	gates := rg.Group("/gates")
	gates.GET("/:id/photos", h.ListGatePhotos)

	write := gates.Group("", mutations...)
	write.POST("/:id/photos", h.CapturePhoto)
	write.PUT("/:id/metadata", h.SaveMetadata)
	write.POST("/:id/complete", h.CompleteGate)
	write.POST("/:id/exception", h.LogException)

	rg.GET("/photos/:id/download", h.PhotoDownloadURL)
}

// RegisterAdminRoutes mounts job management routes.
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.POST("/jobs", h.CreateJob)
	rg.PUT("/jobs/:id/assign", h.ReassignJob)
}

func (h *Handler) CompleteGate(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	gateID, ok := parseParam(c, "id")
	if !ok {
		return
	}

	uploads, err := h.readUploads(c, "photos")
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	completion, err := h.svc.CompleteGate(c.Request.Context(), service.CompleteGateInput{
		GateID:  gateID,
		ActorID: identity.UserID(),
		Uploads: uploads,
	})
	if httpkit.HandleErrorWithStatus(c, err, statusOverrides) {
		return
	}

	gate, err := transport.ToGateResponse(completion.Gate)
	if httpkit.HandleError(c, err) {
		return
	}
	photos := make([]transport.PhotoResponse, 0, len(completion.Photos))
	for _, p := range completion.Photos {
		photos = append(photos, transport.ToPhotoResponse(p))
	}
	warnings := completion.Warnings
	if warnings == nil {
		warnings = []string{}
	}

	httpkit.OK(c, transport.CompletionResponse{
		Gate:     gate,
		Job:      transport.ToJobResponse(completion.Job),
		Photos:   photos,
		Warnings: warnings,
	})
}

func (h *Handler) LogException(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	gateID, ok := parseParam(c, "id")
	if !ok {
		return
	}

	var req transport.LogExceptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.FieldErrors(err))
		return
	}

	gate, err := h.svc.LogException(c.Request.Context(), gateID, identity.UserID(), req.Reason)
	if httpkit.HandleError(c, err) {
		return
	}
	h.respondGate(c, gate)
}

func (h *Handler) SaveMetadata(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	gateID, ok := parseParam(c, "id")
	if !ok {
		return
	}

	var req transport.SaveMetadataRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.FieldErrors(err))
		return
	}

	gate, err := h.svc.SaveMetadata(c.Request.Context(), gateID, identity.UserID(), req.Metadata)
	if httpkit.HandleError(c, err) {
		return
	}
	h.respondGate(c, gate)
}

func (h *Handler) ValidateGate(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	jobID, ok := parseParam(c, "id")
	if !ok {
		return
	}
	gateID, ok := parseParam(c, "gateId")
	if !ok {
		return
	}

	err := h.svc.AuthorizeJobView(c.Request.Context(), jobID, identity.UserID(), identity.HasRole(httpkit.RoleAdmin))
	if httpkit.HandleError(c, err) {
		return
	}
	res, err := h.svc.ValidateGate(c.Request.Context(), gateID, jobID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToValidationResponse(res))
}

func (h *Handler) CapturePhoto(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	gateID, ok := parseParam(c, "id")
	if !ok {
		return
	}

	uploads, err := h.readUploads(c, "file")
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	if len(uploads) != 1 {
		httpkit.Error(c, http.StatusBadRequest, "exactly one file is required", nil)
		return
	}

	photo, err := h.svc.CapturePhoto(c.Request.Context(), service.CapturePhotoInput{
		GateID:  gateID,
		ActorID: identity.UserID(),
		Upload:  uploads[0],
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, transport.ToPhotoResponse(*photo))
}

func (h *Handler) ListGatePhotos(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	gateID, ok := parseParam(c, "id")
	if !ok {
		return
	}

	err := h.svc.AuthorizeGateView(c.Request.Context(), gateID, identity.UserID(), identity.HasRole(httpkit.RoleAdmin))
	if httpkit.HandleError(c, err) {
		return
	}
	photos, err := h.svc.ListGatePhotos(c.Request.Context(), gateID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToPhotoListResponse(photos))
}

func (h *Handler) PhotoDownloadURL(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	photoID, ok := parseParam(c, "id")
	if !ok {
		return
	}

	url, err := h.svc.PhotoDownloadURL(c.Request.Context(), photoID, identity.UserID(), identity.HasRole(httpkit.RoleAdmin))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.PresignedDownloadResponse{DownloadURL: url.URL, ExpiresAt: url.ExpiresAt.Unix()})
}

func (h *Handler) ListJobs(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	var query transport.ListJobsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(query); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.FieldErrors(err))
		return
	}

	filter := domain.JobFilter{Limit: query.Limit}
	if !identity.HasRole(httpkit.RoleAdmin) {
		techID := identity.UserID()
		filter.LeadTechID = &techID
	}
	if query.Status != "" {
		status, err := domain.ParseJobStatus(query.Status)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
			return
		}
		filter.Status = &status
	}

	jobs, err := h.svc.ListJobs(c.Request.Context(), filter)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToJobListResponse(jobs))
}

func (h *Handler) ListJobGates(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	jobID, ok := parseParam(c, "id")
	if !ok {
		return
	}

	progress, err := h.svc.ListJobGates(c.Request.Context(), jobID)
	if httpkit.HandleError(c, err) {
		return
	}
	if progress.Job.LeadTechID != identity.UserID() && !identity.HasRole(httpkit.RoleAdmin) {
		httpkit.Error(c, http.StatusForbidden, "forbidden", nil)
		return
	}
	h.respondProgress(c, http.StatusOK, progress)
}

func (h *Handler) ExceptionFrequency(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	jobID, ok := parseParam(c, "id")
	if !ok {
		return
	}

	err := h.svc.AuthorizeJobView(c.Request.Context(), jobID, identity.UserID(), identity.HasRole(httpkit.RoleAdmin))
	if httpkit.HandleError(c, err) {
		return
	}
	report, err := h.svc.CheckExceptionFrequency(c.Request.Context(), jobID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToExceptionFrequencyResponse(report))
}

func (h *Handler) CreateJob(c *gin.Context) {
	var req transport.CreateJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.FieldErrors(err))
		return
	}

	progress, err := h.svc.CreateJob(c.Request.Context(), domain.NewJob{
		Title:         req.Title,
		Address:       req.Address,
		LeadTechID:    req.LeadTechID,
		SiteLatitude:  req.SiteLatitude,
		SiteLongitude: req.SiteLongitude,
	})
	if httpkit.HandleError(c, err) {
		return
	}
	h.respondProgress(c, http.StatusCreated, progress)
}

func (h *Handler) ReassignJob(c *gin.Context) {
	jobID, ok := parseParam(c, "id")
	if !ok {
		return
	}

	var req transport.ReassignJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.FieldErrors(err))
		return
	}

	job, err := h.svc.ReassignJob(c.Request.Context(), jobID, req.LeadTechID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToJobResponse(job))
}

func (h *Handler) respondGate(c *gin.Context, gate *domain.Gate) {
	resp, err := transport.ToGateResponse(gate)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, resp)
}

func (h *Handler) respondProgress(c *gin.Context, status int, progress *service.JobProgress) {
	gates, err := transport.ToGateResponses(progress.Gates)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, status, transport.JobGatesResponse{
		Job:      transport.ToJobResponse(progress.Job),
		Gates:    gates,
		Resolved: progress.Resolved,
		Total:    progress.Total,
	})
}

func parseParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return uuid.Nil, false
	}
	return id, true
}
