package app

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jeff-is-working/wa-bill-tracker-dev/internal/export"
	"github.com/jeff-is-working/wa-bill-tracker-dev/internal/feed"
	"github.com/jeff-is-working/wa-bill-tracker-dev/internal/tracker"
)

type DomainError struct {
	Status  int
	Code    string
	Message string
	Details any
}

func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func domainError(status int, code, message string, details any) *DomainError {
	return &DomainError{
		Status:  status,
		Code:    code,
		Message: message,
		Details: details,
	}
}

func mapError(err error) (status int, code, message string, details any) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status, domainErr.Code, domainErr.Message, domainErr.Details
	}
	switch {
	case errors.Is(err, tracker.ErrBillNotFound):
		return http.StatusNotFound, "BILL_NOT_FOUND", "Bill not found", nil
	case errors.Is(err, tracker.ErrEmptyNote):
		return http.StatusBadRequest, "EMPTY_NOTE", "Note text is required", nil
	case errors.Is(err, feed.ErrNoData):
		return http.StatusServiceUnavailable, "NO_DATA", "Bill data is not available yet", nil
	case errors.Is(err, export.ErrUnsupportedFormat):
		return http.StatusBadRequest, "UNSUPPORTED_FORMAT", "Unsupported export format", nil
	case errors.Is(err, export.ErrPDFDependencyMissing), errors.Is(err, export.ErrDOCXDependencyMissing):
		return http.StatusNotImplemented, "EXPORT_UNAVAILABLE", err.Error(), nil
	}
	return http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil
}
