package api

import (
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	log "github.com/sirupsen/logrus"
)

var jsonAPI = sonic.Config{
	EscapeHTML:       false,
	SortMapKeys:      false,
	CompactMarshaler: true,
	NoNullSliceOrMap: true,
}.Froze()

const (
	statusSuccess = "success"
	statusError   = "error"
)

type errorResponse struct {
	Status    string            `json:"status"`
	Message   string            `json:"message"`
	Errors    []ValidationError `json:"errors,omitempty"`
	Timestamp string            `json:"timestamp"`
}

type rateLimitResponse struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	ResetTime int64  `json:"reset_time"`
	Timestamp string `json:"timestamp"`
}

// internalErrorBody é usado quando nem o marshal funciona.
var internalErrorBody = []byte(`{"status":"error","message":"Internal server error"}`)

func stamp(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

func writeJSON(w http.ResponseWriter, status int, v any) {
	b, err := jsonAPI.Marshal(v)
	if err != nil {
		log.WithError(err).Error("api: encode response")
		status = http.StatusInternalServerError
		b = internalErrorBody
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(b)
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{
		Status:    statusError,
		Message:   message,
		Timestamp: stamp(s.now()),
	})
}

func (s *Server) writeValidation(w http.ResponseWriter, errs []ValidationError) {
	writeJSON(w, http.StatusBadRequest, errorResponse{
		Status:    statusError,
		Message:   "Validation failed",
		Errors:    errs,
		Timestamp: stamp(s.now()),
	})
}
