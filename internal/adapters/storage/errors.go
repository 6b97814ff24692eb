package storage

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/minio/minio-go/v7"
)

// FailureKind classifies upload failures so callers can decide whether to
// retry and what to tell the technician.
type FailureKind int

const (
	FailureUnknown FailureKind = iota
	FailurePermission
	FailureTooLarge
	FailureUnsupportedType
	FailureNetwork
)

// Retryable reports whether another attempt may succeed.
func (k FailureKind) Retryable() bool {
	return k == FailureNetwork || k == FailureUnknown
}

// Message is the user-facing explanation of a failure.
func (k FailureKind) Message() string {
	switch k {
	case FailurePermission:
		return "Photo storage rejected the upload. Please contact your supervisor."
	case FailureTooLarge:
		return "The photo is too large to upload."
	case FailureUnsupportedType:
		return "This file type is not supported. Please upload a JPEG, PNG, WebP or HEIC photo."
	case FailureNetwork:
		return "Photo storage could not be reached. Check your connection and try again."
	default:
		return "The photo could not be uploaded. Please try again."
	}
}

// Classify inspects an upload error. S3 error codes are checked first, then
// transport errors, then well-known message fragments.
func Classify(err error) FailureKind {
	if err == nil {
		return FailureUnknown
	}

	switch {
	case errors.Is(err, ErrFileTooLarge):
		return FailureTooLarge
	case errors.Is(err, ErrContentTypeNotAllowed), errors.Is(err, ErrEmptyFile):
		return FailureUnsupportedType
	}

	var s3Err minio.ErrorResponse
	if errors.As(err, &s3Err) {
		if kind := classifyS3(s3Err); kind != FailureUnknown {
			return kind
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return FailureNetwork
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return FailureNetwork
	}

	return classifyMessage(err.Error())
}

func classifyS3(resp minio.ErrorResponse) FailureKind {
	switch resp.Code {
	case "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch", "AllAccessDisabled", "AccountProblem":
		return FailurePermission
	case "EntityTooLarge", "MaxMessageLengthExceeded":
		return FailureTooLarge
	case "InvalidContentType", "UnsupportedMediaType":
		return FailureUnsupportedType
	case "SlowDown", "ServiceUnavailable", "InternalError", "RequestTimeout":
		return FailureNetwork
	}
	switch {
	case resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusUnauthorized:
		return FailurePermission
	case resp.StatusCode == http.StatusRequestEntityTooLarge:
		return FailureTooLarge
	case resp.StatusCode == http.StatusUnsupportedMediaType:
		return FailureUnsupportedType
	case resp.StatusCode >= http.StatusInternalServerError:
		return FailureNetwork
	}
	return FailureUnknown
}

var messageFragments = []struct {
	fragment string
	kind     FailureKind
}{
	{"permission", FailurePermission},
	{"access denied", FailurePermission},
	{"forbidden", FailurePermission},
	{"unauthorized", FailurePermission},
	{"too large", FailureTooLarge},
	{"exceeds maximum", FailureTooLarge},
	{"content type", FailureUnsupportedType},
	{"unsupported", FailureUnsupportedType},
	{"connection refused", FailureNetwork},
	{"connection reset", FailureNetwork},
	{"no such host", FailureNetwork},
	{"timeout", FailureNetwork},
	{"network", FailureNetwork},
	{"eof", FailureNetwork},
}

func classifyMessage(msg string) FailureKind {
	lower := strings.ToLower(msg)
	for _, f := range messageFragments {
		if strings.Contains(lower, f.fragment) {
			return f.kind
		}
	}
	return FailureUnknown
}
