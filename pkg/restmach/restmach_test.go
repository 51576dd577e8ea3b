package restmach_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/restmach/restmach/pkg/restmach"
)

func TestFacadeEndpoint(t *testing.T) {
	ep, err := restmach.New(&restmach.Resource{},
		restmach.WithProduces("text/plain"),
		restmach.WithStaticBody([]byte("ok")),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	rec := httptest.NewRecorder()
	ep.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if got := rec.Body.String(); got != "ok" {
		t.Errorf("body = %q, want %q", got, "ok")
	}
}

func TestFacadeHalt(t *testing.T) {
	res := &restmach.Resource{
		Exists: func(ctx context.Context, req *restmach.Request) (bool, error) {
			return false, nil
		},
	}

	ep, err := restmach.New(res, restmach.WithProduces("text/plain"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	rec := httptest.NewRecorder()
	ep.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}
