// Package export renders the tracked-bills report as HTML, PDF or DOCX.
package export

import (
	"errors"
	"time"
)

// Format represents the export output format
type Format string

const (
	FormatHTML Format = "html"
	FormatPDF  Format = "pdf"
	FormatDOCX Format = "docx"
)

// ParseFormat maps a query value onto a Format. Empty means HTML.
func ParseFormat(value string) (Format, error) {
	switch Format(value) {
	case "", FormatHTML:
		return FormatHTML, nil
	case FormatPDF, FormatDOCX:
		return Format(value), nil
	default:
		return "", ErrUnsupportedFormat
	}
}

// Request contains parameters for an export operation
type Request struct {
	Format Format
	Title  string
}

// Report is the content of a tracked-bills report.
type Report struct {
	Title       string
	User        string
	GeneratedAt time.Time
	Bills       []ReportBill
}

// ReportBill is one tracked bill in the report.
type ReportBill struct {
	ID          string
	Number      string
	Title       string
	Sponsor     string
	Committee   string
	Status      string
	Priority    string
	Stage       string
	NextHearing string
	Link        string
	Notes       []ReportNote
}

// ReportNote is a user note attached to a bill.
type ReportNote struct {
	Text   string
	Author string
	Date   time.Time
}

// Result contains the export output
type Result struct {
	Data     []byte
	Filename string
	MimeType string
}

var (
	// ErrUnsupportedFormat indicates an unknown export format was requested.
	ErrUnsupportedFormat = errors.New("export format unsupported")
	// ErrPDFDependencyMissing indicates PDF export runtime dependencies are unavailable.
	ErrPDFDependencyMissing = errors.New("export pdf dependency missing")
	// ErrDOCXDependencyMissing indicates DOCX export runtime dependencies are unavailable.
	ErrDOCXDependencyMissing = errors.New("export docx dependency missing")
)
