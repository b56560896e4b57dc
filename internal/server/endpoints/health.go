package endpoints

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/leadscan/internal/api"
	"github.com/jackzampolin/leadscan/internal/app"
	"github.com/jackzampolin/leadscan/internal/remote"
	"github.com/jackzampolin/leadscan/internal/svcctx"
	"github.com/jackzampolin/leadscan/version"
)

// readyTimeout bounds the remote probe behind /ready.
const readyTimeout = 15 * time.Second

// HealthResponse is the response for health check endpoints.
type HealthResponse struct {
	Status string `json:"status"`
	Remote string `json:"remote,omitempty"`
	Error  string `json:"error,omitempty"`
}

// HealthEndpoint handles GET /health.
type HealthEndpoint struct{}

var _ api.Endpoint = (*HealthEndpoint)(nil)

func (e *HealthEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/health", e.handler
}

func (e *HealthEndpoint) RequiresInit() bool { return false }

// handler godoc
//
//	@Summary		Liveness check
//	@Tags			health
//	@Produce		json
//	@Success		200	{object}	HealthResponse
//	@Router			/health [get]
func (e *HealthEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

func (e *HealthEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check server health",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp HealthResponse
			if err := client.Get(cmd.Context(), "/health", &resp); err != nil {
				return err
			}
			fmt.Printf("Status: %s\n", resp.Status)
			return nil
		},
	}
}

// ReadyEndpoint handles GET /ready.
type ReadyEndpoint struct{}

var _ api.Endpoint = (*ReadyEndpoint)(nil)

func (e *ReadyEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/ready", e.handler
}

func (e *ReadyEndpoint) RequiresInit() bool { return false }

// handler godoc
//
//	@Summary		Readiness check
//	@Description	Probes the remote model tier. A disabled tier is reported but does not fail readiness.
//	@Tags			health
//	@Produce		json
//	@Success		200	{object}	HealthResponse
//	@Failure		503	{object}	HealthResponse
//	@Router			/ready [get]
func (e *ReadyEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	a := svcctx.AppFrom(r.Context())
	if a == nil {
		writeJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "degraded", Remote: "not_initialized"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	err := a.Ping(ctx)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Remote: "ok"})
	case errors.Is(err, remote.ErrUnavailable):
		writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Remote: "disabled", Error: err.Error()})
	default:
		svcctx.LoggerFrom(r.Context()).Warn("remote probe failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "degraded", Remote: "unhealthy", Error: err.Error()})
	}
}

func (e *ReadyEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "ready",
		Short: "Check server readiness (includes the remote model tier)",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp HealthResponse
			err := client.Get(cmd.Context(), "/ready", &resp)
			var rerr *api.ResponseError
			if errors.As(err, &rerr) && rerr.StatusCode == http.StatusServiceUnavailable {
				_ = json.Unmarshal(rerr.Body, &resp)
			} else if err != nil {
				return err
			}
			fmt.Printf("Status: %s\n", resp.Status)
			if resp.Remote != "" {
				fmt.Printf("Remote: %s\n", resp.Remote)
			}
			if resp.Error != "" {
				fmt.Printf("Error:  %s\n", resp.Error)
			}
			if resp.Status != "ok" {
				return errors.New("server not ready")
			}
			return nil
		},
	}
}

// StatusResponse is the detailed status response.
type StatusResponse struct {
	Server  string     `json:"server"`
	Version string     `json:"version"`
	App     app.Status `json:"app"`
}

// StatusEndpoint handles GET /status.
type StatusEndpoint struct{}

var _ api.Endpoint = (*StatusEndpoint)(nil)

func (e *StatusEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/status", e.handler
}

func (e *StatusEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Detailed server status
//	@Tags			health
//	@Produce		json
//	@Success		200	{object}	StatusResponse
//	@Failure		503	{object}	ErrorResponse
//	@Router			/status [get]
func (e *StatusEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	a := svcctx.AppFrom(r.Context())
	if a == nil {
		writeError(w, http.StatusServiceUnavailable, "extraction services not initialized")
		return
	}
	writeJSON(w, http.StatusOK, StatusResponse{
		Server:  "running",
		Version: version.GitRelease,
		App:     a.Status(),
	})
}

func (e *StatusEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Get detailed server status",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp StatusResponse
			if err := client.Get(cmd.Context(), "/status", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// ErrorResponse is a standard error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}
