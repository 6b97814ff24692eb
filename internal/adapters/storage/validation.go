package storage

import (
	"fmt"
	"strings"
)

// AllowedContentTypes defines the photo MIME types accepted for gate evidence.
var AllowedContentTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/heic": true,
	"image/heif": true,
}

// ErrContentTypeNotAllowed and ErrFileTooLarge are returned by the
// validators so callers can classify them without string matching.
var (
	ErrContentTypeNotAllowed = fmt.Errorf("content type not allowed")
	ErrFileTooLarge          = fmt.Errorf("file too large")
	ErrEmptyFile             = fmt.Errorf("file is empty")
)

// NormalizeContentType strips parameters and lowercases a MIME type.
func NormalizeContentType(contentType string) string {
	normalized, _, _ := strings.Cut(contentType, ";")
	return strings.TrimSpace(strings.ToLower(normalized))
}

// ValidateContentType checks if the content type is allowed.
func (s *MinIOService) ValidateContentType(contentType string) error {
	return ValidateContentType(contentType)
}

// ValidateFileSize checks if the file size is within limits.
func (s *MinIOService) ValidateFileSize(sizeBytes int64) error {
	return ValidateFileSize(sizeBytes, s.maxFileSize)
}

// ValidateContentType checks contentType against AllowedContentTypes.
func ValidateContentType(contentType string) error {
	if !AllowedContentTypes[NormalizeContentType(contentType)] {
		return fmt.Errorf("%w: %q", ErrContentTypeNotAllowed, contentType)
	}
	return nil
}

// ValidateFileSize checks sizeBytes against maxBytes. A non-positive
// maxBytes disables the upper bound.
func ValidateFileSize(sizeBytes, maxBytes int64) error {
	if sizeBytes <= 0 {
		return ErrEmptyFile
	}
	if maxBytes > 0 && sizeBytes > maxBytes {
		return fmt.Errorf("%w: %d bytes exceeds maximum allowed size of %d bytes", ErrFileTooLarge, sizeBytes, maxBytes)
	}
	return nil
}
