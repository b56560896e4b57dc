package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/spf13/cobra"
)

type stubEndpoint struct {
	method, path, use string
	init              bool
}

func (e *stubEndpoint) Route() (string, string, http.HandlerFunc) {
	return e.method, e.path, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}
}

func (e *stubEndpoint) RequiresInit() bool { return e.init }

func (e *stubEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{Use: e.use}
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&stubEndpoint{method: "GET", path: "/health", use: "health"})
	reg.Register(&stubEndpoint{method: "POST", path: "/api/leads/extract", use: "extract", init: true})

	mux := http.NewServeMux()
	reg.RegisterRoutes(mux, func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	})

	tests := []struct {
		method, path string
		want         int
	}{
		{http.MethodGet, "/health", http.StatusOK},
		{http.MethodPost, "/api/leads/extract", http.StatusServiceUnavailable},
		{http.MethodGet, "/api/leads/extract", http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}

	cmd := reg.BuildCommands(func() string { return "http://localhost:8000" })
	if len(cmd.Commands()) != 2 {
		t.Errorf("subcommands = %d, want 2", len(cmd.Commands()))
	}
	if len(reg.Endpoints()) != 2 {
		t.Errorf("endpoints = %d", len(reg.Endpoints()))
	}
}
