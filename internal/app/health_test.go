package app

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/jeff-is-working/wa-bill-tracker-dev/internal/feed"
)

func TestHealthEndpoint(t *testing.T) {
	svc := newTestService(t, staticFetcher(sampleDocument()), Stores{})
	rr := newClient(t, svc).do(http.MethodGet, "/api/health", nil)

	if rr.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rr.Code)
	}
	response := decodeJSON[map[string]any](t, rr)
	if ok, exists := response["ok"]; !exists || ok != true {
		t.Errorf("expected ok=true, got %v", ok)
	}
}

func TestReadyEndpoint_Success(t *testing.T) {
	svc := newTestService(t, staticFetcher(sampleDocument()), Stores{},
		WithHealthCheck("redis", &fakePinger{}),
		WithHealthCheck("database", &fakePinger{}))

	rr := newClient(t, svc).do(http.MethodGet, "/api/ready", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	response := decodeJSON[map[string]any](t, rr)
	if status := response["status"]; status != "ready" {
		t.Errorf("expected status=ready, got %v", status)
	}
	checks, ok := response["checks"].(map[string]any)
	if !ok {
		t.Fatalf("expected checks object, got %v", response["checks"])
	}
	for _, name := range []string{"redis", "database", "billData"} {
		check, ok := checks[name].(map[string]any)
		if !ok || check["status"] != "ok" {
			t.Errorf("expected %s status=ok, got %v", name, checks[name])
		}
	}
}

func TestReadyEndpoint_DependencyFailure(t *testing.T) {
	svc := newTestService(t, staticFetcher(sampleDocument()), Stores{},
		WithHealthCheck("database", &fakePinger{pingFn: func(context.Context) error {
			return errors.New("connection refused")
		}}))

	rr := newClient(t, svc).do(http.MethodGet, "/api/ready", nil)
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", rr.Code)
	}

	response := decodeJSON[map[string]any](t, rr)
	if ok := response["ok"]; ok != false {
		t.Errorf("expected ok=false, got %v", ok)
	}
	checks := response["checks"].(map[string]any)
	dbCheck := checks["database"].(map[string]any)
	if dbCheck["status"] != "error" || dbCheck["error"] != "connection refused" {
		t.Errorf("unexpected database check: %v", dbCheck)
	}
}

func TestReadyEndpoint_DegradedDataIsStillReady(t *testing.T) {
	fetcher := &fakeFetcher{fetchFn: func(context.Context) (feed.Result, error) {
		return feed.Result{}, feed.ErrNoData
	}}
	svc := newTestService(t, fetcher, Stores{})

	rr := newClient(t, svc).do(http.MethodGet, "/api/ready", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	checks := decodeJSON[map[string]any](t, rr)["checks"].(map[string]any)
	if checks["billData"].(map[string]any)["status"] != "degraded" {
		t.Errorf("expected degraded bill data, got %v", checks["billData"])
	}
}
