package endpoints

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/leadscan/internal/api"
	"github.com/jackzampolin/leadscan/internal/pipeline"
	"github.com/jackzampolin/leadscan/internal/raster"
	"github.com/jackzampolin/leadscan/internal/svcctx"
)

const (
	// RequestIDHeader carries a caller-supplied request id. It is echoed on
	// the response.
	RequestIDHeader = "X-Request-ID"

	// formOverhead is the slack allowed on top of the file cap for the
	// multipart envelope.
	formOverhead = 1 << 20
)

// ExtractEndpoint handles POST /api/leads/extract with a multipart file upload.
type ExtractEndpoint struct{}

var _ api.Endpoint = (*ExtractEndpoint)(nil)

func (e *ExtractEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/leads/extract", e.handler
}

func (e *ExtractEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Extract leads from a document
//	@Description	Upload a PDF or image and receive the scored leads found in it
//	@Tags			leads
//	@Accept			mpfd
//	@Produce		json
//	@Param			file	formData	file	true	"PDF or image"
//	@Success		200		{object}	pipeline.Result
//	@Failure		400		{object}	ErrorResponse
//	@Failure		413		{object}	ErrorResponse
//	@Failure		422		{object}	ErrorResponse
//	@Failure		500		{object}	ErrorResponse
//	@Failure		503		{object}	ErrorResponse
//	@Router			/api/leads/extract [post]
func (e *ExtractEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	a := svcctx.AppFrom(r.Context())
	if a == nil {
		writeError(w, http.StatusServiceUnavailable, "extraction services not initialized")
		return
	}
	logger := svcctx.LoggerFrom(r.Context())
	maxBytes := a.Pipeline().MaxBytes()

	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+formOverhead)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("file exceeds %d bytes", maxBytes))
			return
		}
		writeError(w, http.StatusBadRequest, fmt.Sprintf("failed to parse form: %v", err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, fh, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "no file uploaded")
		return
	}
	defer file.Close()

	// One byte past the cap is enough for the pipeline to reject it.
	data, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to read upload: %v", err))
		return
	}

	res, err := a.Run(r.Context(), pipeline.Document{
		Name:      fh.Filename,
		MIMEType:  fh.Header.Get("Content-Type"),
		Data:      data,
		RequestID: r.Header.Get(RequestIDHeader),
	})
	if err != nil {
		status := statusFor(err)
		if status >= 500 {
			logger.Error("extraction failed", "file", fh.Filename, "error", err)
		}
		writeError(w, status, err.Error())
		return
	}

	w.Header().Set(RequestIDHeader, res.RequestID)
	writeJSON(w, http.StatusOK, res)
}

// statusFor maps pipeline errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, pipeline.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, pipeline.ErrUnsupportedType), errors.Is(err, pipeline.ErrEmpty):
		return http.StatusBadRequest
	case errors.Is(err, raster.ErrRasterize):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (e *ExtractEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "extract <file>",
		Short: "Upload a PDF or image and print the extracted leads",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open file: %w", err)
			}
			defer f.Close()

			client := api.NewClient(getServerURL())
			var resp pipeline.Result
			if err := client.PostFile(cmd.Context(), "/api/leads/extract", "file", args[0], f, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}
