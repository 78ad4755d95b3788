package api

import (
	"encoding/json"
	"net/http"

	"cryptosys/pkg/errors"
	"cryptosys/pkg/logger"
)

type errorBody struct {
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Get().Warn("Failed to encode response", "error", err)
	}
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorBody{Detail: detail})
}

// statusOf maps domain errors to HTTP status codes
func statusOf(err error) int {
	switch {
	case errors.Is(err, errors.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, errors.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// writeError answers with err's status. prefix describes the failed
// operation for server errors.
func writeError(w http.ResponseWriter, r *http.Request, prefix string, err error) {
	status := statusOf(err)
	detail := err.Error()
	if status == http.StatusInternalServerError {
		detail = prefix + ": " + errors.PublicMessage(err)
		ctx := errors.WithSymbol(r.Context(), r.PathValue("symbol"))
		logger.Get().ErrorWithContext(ctx, errors.Wrap(err, prefix), map[string]string{
			"method": r.Method,
			"path":   r.URL.Path,
		})
	}
	writeDetail(w, status, detail)
}

// decodeBody decodes a JSON request body into dst
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(dst); err != nil {
		return errors.NewValidationError("body", "must be a JSON object: "+err.Error(), nil)
	}
	return nil
}
