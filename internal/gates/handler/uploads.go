package handler

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"fieldgate_backend/internal/gates/service"
	"fieldgate_backend/internal/gates/transport"
	"fieldgate_backend/platform/apperr"
	"fieldgate_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

const (
	maxFilesPerRequest = 10
	// formOverheadBytes covers the non-file multipart fields and boundaries.
	formOverheadBytes = 1 << 20
)

// readUploads reads the files of a multipart field into memory. Requests
// that are not multipart carry no uploads.
func (h *Handler) readUploads(c *gin.Context, field string) ([]service.Upload, error) {
	if !strings.HasPrefix(c.ContentType(), "multipart/") {
		return nil, nil
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes*maxFilesPerRequest+formOverheadBytes)
	form, err := c.MultipartForm()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, apperr.BadRequest("upload exceeds the allowed size")
		}
		return nil, apperr.BadRequest(msgInvalidRequest)
	}

	var meta transport.UploadForm
	if err := c.ShouldBind(&meta); err != nil {
		return nil, apperr.BadRequest(msgInvalidRequest)
	}
	if err := h.val.Struct(meta); err != nil {
		return nil, apperr.BadRequest(msgValidationFailed).WithDetails(validator.FieldErrors(err))
	}

	files := form.File[field]
	if len(files) > maxFilesPerRequest {
		return nil, apperr.BadRequest(fmt.Sprintf("at most %d files can be uploaded at once", maxFilesPerRequest))
	}

	uploads := make([]service.Upload, 0, len(files))
	for _, fh := range files {
		data, err := h.readFile(fh)
		if err != nil {
			return nil, err
		}
		contentType := fh.Header.Get("Content-Type")
		if contentType == "" || contentType == "application/octet-stream" {
			contentType = http.DetectContentType(data)
		}
		uploads = append(uploads, service.Upload{
			FileName:    fh.Filename,
			ContentType: contentType,
			Data:        data,
			Room:        meta.Room,
			Type:        meta.Type,
			IsPPE:       meta.IsPPE,
		})
	}
	return uploads, nil
}

func (h *Handler) readFile(fh *multipart.FileHeader) ([]byte, error) {
	if fh.Size > h.maxUploadBytes {
		return nil, apperr.BadRequest(fmt.Sprintf("%s is larger than %d bytes", fh.Filename, h.maxUploadBytes))
	}
	f, err := fh.Open()
	if err != nil {
		return nil, apperr.BadRequest(msgInvalidRequest)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, h.maxUploadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read upload %s: %w", fh.Filename, err)
	}
	if int64(len(data)) > h.maxUploadBytes {
		return nil, apperr.BadRequest(fmt.Sprintf("%s is larger than %d bytes", fh.Filename, h.maxUploadBytes))
	}
	return data, nil
}
