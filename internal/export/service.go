package export

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

type renderFunc func(ctx context.Context, html, title string) (*Result, error)

// Service provides report export functionality
type Service struct {
	log  *zap.Logger
	now  func() time.Time
	pdf  renderFunc
	docx renderFunc
}

// NewService creates a new export service
func NewService(log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		log:  log.Named("export"),
		now:  time.Now,
		pdf:  exportPDF,
		docx: exportDOCX,
	}
}

// Export generates the report in the requested format.
func (s *Service) Export(ctx context.Context, req Request, report Report) (*Result, error) {
	if strings.TrimSpace(req.Title) != "" {
		report.Title = req.Title
	}
	if report.Title == "" {
		report.Title = "Tracked Bills"
	}
	if report.GeneratedAt.IsZero() {
		report.GeneratedAt = s.now()
	}

	html, err := RenderReportHTML(report)
	if err != nil {
		return nil, fmt.Errorf("render template: %w", err)
	}

	var res *Result
	switch req.Format {
	case "", FormatHTML:
		res = &Result{
			Data:     []byte(html),
			Filename: sanitizeFilename(report.Title) + ".html",
			MimeType: "text/html; charset=utf-8",
		}
	case FormatPDF:
		res, err = s.pdf(ctx, html, report.Title)
	case FormatDOCX:
		res, err = s.docx(ctx, html, report.Title)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, req.Format)
	}
	if err != nil {
		s.log.Warn("export failed", zap.String("format", string(req.Format)), zap.Error(err))
		return nil, err
	}
	s.log.Debug("exported report",
		zap.String("format", string(req.Format)),
		zap.Int("bills", len(report.Bills)),
		zap.Int("bytes", len(res.Data)))
	return res, nil
}
