package health

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestLiveness(t *testing.T) {
	rec := httptest.NewRecorder()
	Liveness()(rec, httptest.NewRequest("GET", "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestReadiness(t *testing.T) {
	rec := httptest.NewRecorder()
	Readiness(nil)(rec, httptest.NewRequest("GET", "/readyz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("nil check status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	failing := func(context.Context) error { return errors.New("store down") }
	Readiness(failing)(rec, httptest.NewRequest("GET", "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("failing check status = %d", rec.Code)
	}
}
