package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"workforce/apperror"
)

const retryAfterSeconds = 5

type errorResponse struct {
	Success bool                `json:"success"`
	Error   string              `json:"error"`
	Kind    apperror.Kind       `json:"kind"`
	Details []map[string]string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError renders err in the error envelope. Internal causes are logged
// and never sent to the client.
func writeError(w http.ResponseWriter, log *zap.Logger, err error) {
	status := apperror.HTTPStatus(err)
	kind := apperror.KindOf(err)

	if status >= http.StatusInternalServerError {
		log.Error("request failed", zap.String("kind", string(kind)), zap.Error(err))
	} else {
		log.Warn("request rejected", zap.String("kind", string(kind)), zap.Error(err))
	}

	var appErr *apperror.Error
	if errors.As(err, &appErr) && appErr.Retryable() {
		w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds))
	}

	writeJSON(w, status, errorResponse{
		Success: false,
		Error:   apperror.Message(err),
		Kind:    kind,
		Details: apperror.DetailsOf(err),
	})
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperror.Wrap(err, apperror.KindValidation, "invalid request payload")
	}
	return nil
}

// parseUintParam parses an optional id query parameter. Empty yields 0.
func parseUintParam(r *http.Request, name string) (uint, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || v == 0 {
		return 0, apperror.New(apperror.KindValidation, "invalid "+name)
	}
	return uint(v), nil
}

// parseIDParam parses a required positive id from the route.
func parseIDParam(r *http.Request, name string) (uint, error) {
	v, err := strconv.ParseUint(chi.URLParam(r, name), 10, 32)
	if err != nil || v == 0 {
		return 0, apperror.New(apperror.KindValidation, "invalid "+name)
	}
	return uint(v), nil
}
