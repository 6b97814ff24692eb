package review

import (
	"context"
	"net/http"
	"time"

	"fieldgate_backend/platform/apperr"
	"fieldgate_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Store is the part of the queue the handler reads and acknowledges.
type Store interface {
	List(ctx context.Context) ([]Entry, error)
	Ack(ctx context.Context, jobID uuid.UUID) (bool, error)
}

// EntryResponse is the response DTO for a queued review.
type EntryResponse struct {
	JobID          uuid.UUID `json:"jobId"`
	ExceptionCount int       `json:"exceptionCount"`
	Threshold      int       `json:"threshold"`
	Stages         []string  `json:"stages"`
	FlaggedAt      time.Time `json:"flaggedAt"`
	NotifiedAt     time.Time `json:"notifiedAt"`
}

type ListResponse struct {
	Items []EntryResponse `json:"items"`
}

type Handler struct {
	store Store
}

func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

// RegisterRoutes mounts the review routes on the admin group.
func (h *Handler) RegisterRoutes(admin *gin.RouterGroup) {
	admin.GET("/reviews", h.List)
	admin.DELETE("/reviews/:jobId", h.Ack)
}

func (h *Handler) List(c *gin.Context) {
	entries, err := h.store.List(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}

	items := make([]EntryResponse, 0, len(entries))
	for _, e := range entries {
		stages := e.Stages
		if stages == nil {
			stages = []string{}
		}
		items = append(items, EntryResponse{
			JobID:          e.JobID,
			ExceptionCount: e.ExceptionCount,
			Threshold:      e.Threshold,
			Stages:         stages,
			FlaggedAt:      e.FlaggedAt,
			NotifiedAt:     e.NotifiedAt,
		})
	}
	httpkit.OK(c, ListResponse{Items: items})
}

func (h *Handler) Ack(c *gin.Context) {
	jobID, err := uuid.Parse(c.Param("jobId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request", nil)
		return
	}

	removed, err := h.store.Ack(c.Request.Context(), jobID)
	if httpkit.HandleError(c, err) {
		return
	}
	if !removed {
		httpkit.HandleError(c, apperr.NotFound("job is not queued for review"))
		return
	}
	c.Status(http.StatusNoContent)
}
