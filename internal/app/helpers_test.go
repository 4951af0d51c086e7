package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jeff-is-working/wa-bill-tracker-dev/internal/bill"
	"github.com/jeff-is-working/wa-bill-tracker-dev/internal/feed"
	"github.com/jeff-is-working/wa-bill-tracker-dev/internal/tracker"
)

type fakeFetcher struct {
	fetchFn func(context.Context) (feed.Result, error)
}

func (f *fakeFetcher) Fetch(ctx context.Context) (feed.Result, error) {
	return f.fetchFn(ctx)
}

type fakePinger struct {
	pingFn func(context.Context) error
}

func (f *fakePinger) Ping(ctx context.Context) error {
	if f.pingFn != nil {
		return f.pingFn(ctx)
	}
	return nil
}

func sampleDocument() bill.Document {
	bills := []bill.Bill{
		{ID: "HB1001", Number: "HB 1001", Title: "Concerning school meals", Sponsor: "Rep. Ortiz", Committee: "Education", Status: "introduced", Priority: "high", Topic: "Education", Hearings: []bill.Hearing{}},
		{ID: "HB1002", Number: "HB 1002", Title: "Concerning road maintenance", Sponsor: "Rep. Lee", Committee: "Transportation", Status: "committee", Priority: "medium", Topic: "Transportation", Hearings: []bill.Hearing{}},
		{ID: "SB5001", Number: "SB 5001", Title: "Concerning water rights", Sponsor: "Sen. Park", Committee: "Agriculture", Status: "passed", Priority: "low", Topic: "Environment", Hearings: []bill.Hearing{}},
	}
	return bill.Document{
		LastSync:    "2026-01-12T08:00:00",
		SessionYear: 2026,
		TotalBills:  len(bills),
		Bills:       bills,
	}
}

func staticFetcher(doc bill.Document) *fakeFetcher {
	return &fakeFetcher{fetchFn: func(context.Context) (feed.Result, error) {
		return feed.Result{Doc: doc}, nil
	}}
}

func newTestService(t *testing.T, fetcher tracker.Fetcher, stores Stores, opts ...Option) *Service {
	t.Helper()
	opts = append([]Option{WithIdleTTL(time.Minute)}, opts...)
	svc := New(tracker.Options{PageSize: 10}, stores, fetcher, nil, opts...)
	_ = svc.Bootstrap(context.Background())
	t.Cleanup(svc.Close)
	return svc
}

type client struct {
	t       *testing.T
	handler http.Handler
	cookie  *http.Cookie
}

func newClient(t *testing.T, svc *Service) *client {
	return &client{t: t, handler: NewHTTPServer(svc, "*", 0, nil).Handler()}
}

func (c *client) do(method, path string, body any) *httptest.ResponseRecorder {
	c.t.Helper()
	return c.doWithHeader(method, path, "", "", body)
}

func (c *client) doWithHeader(method, path, header, value string, body ...any) *httptest.ResponseRecorder {
	c.t.Helper()
	var reader *bytes.Reader
	if len(body) > 0 && body[0] != nil {
		raw, err := json.Marshal(body[0])
		if err != nil {
			c.t.Fatalf("encode body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if header != "" {
		req.Header.Set(header, value)
	}
	if c.cookie != nil {
		req.AddCookie(c.cookie)
	}
	rr := httptest.NewRecorder()
	c.handler.ServeHTTP(rr, req)
	for _, ck := range rr.Result().Cookies() {
		if ck.Name == ProfileCookie {
			c.cookie = ck
		}
	}
	return rr
}

func decodeJSON[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rr.Body.String(), err)
	}
	return out
}
