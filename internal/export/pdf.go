package export

import (
	"context"
	"fmt"
	"html"
	"os/exec"
	"strings"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// Bill report page: US letter, portrait, half-inch margins with room for the
// running header and footer.
const (
	paperWidthIn  = 8.5
	paperHeightIn = 11.0
	marginSideIn  = 0.5
	marginEdgeIn  = 0.7
	pdfTimeout    = 30 * time.Second
)

// percentEncodeForDataURL encodes a string for use in a data URL
// Unlike url.QueryEscape, this properly encodes spaces as %20 for data URLs
func percentEncodeForDataURL(s string) string {
	var result strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z',
			r >= 'A' && r <= 'Z',
			r >= '0' && r <= '9',
			r == '-', r == '_', r == '.', r == '~':
			// RFC 3986 unreserved
			result.WriteRune(r)
		case r == ' ':
			result.WriteString("%20")
		default:
			// UTF-8 bytes, one escape each
			for _, b := range []byte(string(r)) {
				fmt.Fprintf(&result, "%%%02X", b)
			}
		}
	}
	return result.String()
}

// printParams lays out the tracked-bill report. Chrome fills the pageNumber,
// totalPages and date spans in the header and footer templates.
func printParams(title string) *page.PrintToPDFParams {
	header := fmt.Sprintf(`<div style="font-size:8px;width:100%%;padding:0 0.5in;color:#555;">%s</div>`,
		html.EscapeString(title))
	footer := `<div style="font-size:8px;width:100%;padding:0 0.5in;color:#555;display:flex;justify-content:space-between;">` +
		`<span class="date"></span>` +
		`<span>Page <span class="pageNumber"></span> of <span class="totalPages"></span></span></div>`

	return page.PrintToPDF().
		WithPrintBackground(true).
		WithPaperWidth(paperWidthIn).
		WithPaperHeight(paperHeightIn).
		WithMarginTop(marginEdgeIn).
		WithMarginBottom(marginEdgeIn).
		WithMarginLeft(marginSideIn).
		WithMarginRight(marginSideIn).
		WithDisplayHeaderFooter(true).
		WithHeaderTemplate(header).
		WithFooterTemplate(footer)
}

// exportPDF prints the rendered report with headless Chrome.
func exportPDF(parent context.Context, reportHTML string, title string) (*Result, error) {
	if !chromeInstalled() {
		return nil, fmt.Errorf("%w: chromium not installed", ErrPDFDependencyMissing)
	}

	ctx, cancel := context.WithTimeout(parent, pdfTimeout)
	defer cancel()

	// Container-friendly headless flags
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-setuid-sandbox", true),
	)

	allocCtx, cancel := chromedp.NewExecAllocator(ctx, opts...)
	defer cancel()

	taskCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	dataURL := "data:text/html;charset=utf-8," + percentEncodeForDataURL(reportHTML)

	var pdfData []byte
	err := chromedp.Run(taskCtx,
		chromedp.Navigate(dataURL),
		chromedp.WaitReady("body"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			pdfData, _, err = printParams(title).Do(ctx)
			return err
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("chrome pdf generation failed: %w", err)
	}

	return &Result{
		Data:     pdfData,
		Filename: sanitizeFilename(title) + ".pdf",
		MimeType: "application/pdf",
	}, nil
}

func chromeInstalled() bool {
	for _, name := range []string{"chromium-browser", "chromium", "google-chrome"} {
		if _, err := exec.LookPath(name); err == nil {
			return true
		}
	}
	return false
}

// sanitizeFilename creates a safe filename from a title
func sanitizeFilename(title string) string {
	var b strings.Builder
	for _, r := range title {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteByte('-')
		}
		// anything else is dropped
	}
	result := b.String()
	if len(result) > 50 {
		result = result[:50]
	}
	if result == "" {
		result = "tracked-bills"
	}
	return result
}
