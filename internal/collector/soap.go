// Package collector pulls bill data from the Washington Legislative Web
// Services and turns it into the published bill document.
package collector

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Service endpoints below the base URL.
const (
	LegislationService      = "/LegislationService.asmx"
	CommitteeMeetingService = "/CommitteeMeetingService.asmx"
)

const (
	soapNamespace = "http://WSLWebServices.leg.wa.gov/"
	userAgent     = "wa-bill-tracker/2.0"
)

// Param is one named argument of a SOAP operation. Order is preserved.
type Param struct {
	Name  string
	Value string
}

// FaultError is a SOAP fault or a non-2xx response.
type FaultError struct {
	Action     string
	StatusCode int
	Message    string
}

func (e *FaultError) Error() string {
	return fmt.Sprintf("soap %s: HTTP %d: %s", e.Action, e.StatusCode, e.Message)
}

// Client performs SOAP 1.1 calls against the legislative web services.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	retries     int
	backoffBase time.Duration
	log         *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRetries sets how many times a failed call is retried.
func WithRetries(n int) Option {
	return func(c *Client) { c.retries = n }
}

// WithBackoff sets the first retry delay; later delays double.
func WithBackoff(base time.Duration) Option {
	return func(c *Client) { c.backoffBase = base }
}

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(c *Client) { c.log = log }
}

// NewClient creates a Client rooted at baseURL, such as
// "https://wslwebservices.leg.wa.gov".
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		httpClient:  &http.Client{Timeout: 60 * time.Second},
		retries:     3,
		backoffBase: time.Second,
		log:         zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.With(zap.String("component", "soap"))
	return c
}

// Envelope builds the SOAP 1.1 request body for action.
func Envelope(action string, params ...Param) []byte {
	var b bytes.Buffer
	b.WriteString(`<?xml version="1.0" encoding="utf-8"?>`)
	b.WriteString(`<soap:Envelope xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance" `)
	b.WriteString(`xmlns:xsd="http://www.w3.org/2001/XMLSchema" `)
	b.WriteString(`xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/"><soap:Body>`)
	fmt.Fprintf(&b, `<%s xmlns="%s">`, action, soapNamespace)
	for _, p := range params {
		fmt.Fprintf(&b, "<%s>", p.Name)
		_ = xml.EscapeText(&b, []byte(p.Value))
		fmt.Fprintf(&b, "</%s>", p.Name)
	}
	fmt.Fprintf(&b, "</%s>", action)
	b.WriteString(`</soap:Body></soap:Envelope>`)
	return b.Bytes()
}

// Call posts action to service and returns the raw response envelope.
// Network errors, 429 and 5xx responses are retried with doubling backoff.
func (c *Client) Call(ctx context.Context, service, action string, params ...Param) ([]byte, error) {
	endpoint := c.baseURL + service
	body := Envelope(action, params...)

	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			delay := c.backoffBase * time.Duration(1<<(attempt-1))
			c.log.Debug("retrying soap call",
				zap.String("action", action),
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay),
				zap.Error(lastErr))
			t := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				t.Stop()
				return nil, ctx.Err()
			case <-t.C:
			}
		}

		raw, retry, err := c.post(ctx, endpoint, action, body)
		if err == nil {
			return raw, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lastErr = err
		if !retry {
			break
		}
	}
	c.log.Warn("soap call failed", zap.String("action", action), zap.Error(lastErr))
	return nil, lastErr
}

func (c *Client) post(ctx context.Context, endpoint, action string, body []byte) ([]byte, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("SOAPAction", soapNamespace+action)
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("soap %s: %w", action, err)
	}
	raw, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, true, fmt.Errorf("soap %s: read body: %w", action, err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return raw, false, nil
	}
	ferr := &FaultError{Action: action, StatusCode: resp.StatusCode, Message: faultMessage(raw)}
	retry := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
	return nil, retry, ferr
}

func faultMessage(raw []byte) string {
	var fault struct {
		String string `xml:"Body>Fault>faultstring"`
	}
	if err := xml.Unmarshal(raw, &fault); err == nil && fault.String != "" {
		return strings.TrimSpace(fault.String)
	}
	msg := strings.TrimSpace(string(raw))
	if len(msg) > 512 {
		msg = msg[:512]
	}
	return msg
}

// IsFault reports whether err came from a SOAP fault or HTTP error status.
func IsFault(err error) bool {
	var f *FaultError
	return errors.As(err, &f)
}
