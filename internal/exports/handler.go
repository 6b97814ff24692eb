package exports

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"fieldgate_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

const (
	dateLayout     = "2006-01-02"
	defaultPeriod  = 30 * 24 * time.Hour
	maxExportRows  = 50000
	xlsxMediaType  = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	msgInvalidDate = "dates must use YYYY-MM-DD"
)

// ExceptionReader loads exception history.
type ExceptionReader interface {
	ListExceptions(ctx context.Context, from, to time.Time, limit int) ([]ExceptionRecord, error)
}

// Handler serves the exception audit export.
type Handler struct {
	reader    ExceptionReader
	threshold int
	now       func() time.Time
}

// NewHandler creates a new export handler.
func NewHandler(reader ExceptionReader, threshold int) *Handler {
	return &Handler{reader: reader, threshold: threshold, now: time.Now}
}

// ExportExceptions streams the workbook for ?from=&to= (inclusive dates,
// UTC). Without dates the last 30 days are exported.
func (h *Handler) ExportExceptions(c *gin.Context) {
	from, to, ok := h.parseRange(c)
	if !ok {
		return
	}

	records, err := h.reader.ListExceptions(c.Request.Context(), from, to, maxExportRows)
	if httpkit.HandleError(c, err) {
		return
	}

	f, err := BuildExceptionWorkbook(records, h.threshold, from, to.Add(-time.Nanosecond), h.now())
	if httpkit.HandleError(c, err) {
		return
	}
	defer func() { _ = f.Close() }()

	filename := fmt.Sprintf("gate-exceptions-%s-%s.xlsx", from.Format(dateLayout), to.Add(-time.Nanosecond).Format(dateLayout))
	c.Header("Content-Type", xlsxMediaType)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Status(http.StatusOK)
	if _, err := f.WriteTo(c.Writer); err != nil {
		_ = c.Error(err)
	}
}

// parseRange turns inclusive dates into a half-open [from, to) range.
func (h *Handler) parseRange(c *gin.Context) (time.Time, time.Time, bool) {
	fromRaw := strings.TrimSpace(c.Query("from"))
	toRaw := strings.TrimSpace(c.Query("to"))

	to := h.now().UTC().Truncate(24 * time.Hour).Add(24 * time.Hour)
	if toRaw != "" {
		parsed, err := time.Parse(dateLayout, toRaw)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, msgInvalidDate, nil)
			return time.Time{}, time.Time{}, false
		}
		to = parsed.Add(24 * time.Hour)
	}

	from := to.Add(-defaultPeriod)
	if fromRaw != "" {
		parsed, err := time.Parse(dateLayout, fromRaw)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, msgInvalidDate, nil)
			return time.Time{}, time.Time{}, false
		}
		from = parsed
	}

	if !from.Before(to) {
		httpkit.Error(c, http.StatusBadRequest, "from must not be after to", nil)
		return time.Time{}, time.Time{}, false
	}
	return from, to, true
}
