package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"expensetracker/internal/core"
	applog "expensetracker/internal/log"
	"expensetracker/internal/services"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error  string              `json:"error"`
	Fields map[string][]string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Failed to encode response", applog.FieldError, err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, r, status, errorBody{Error: msg})
}

// writeServiceError maps a service error to its HTTP status: validation
// failures are 422, malformed bodies 400, backend failures 502.
func writeServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	ctx := r.Context()
	logger := applog.FromContext(ctx)

	if verr, ok := core.AsValidationError(err); ok {
		writeJSON(w, r, http.StatusUnprocessableEntity, errorBody{Error: "validation failed", Fields: verr.Fields})
		return
	}
	if errors.Is(err, ErrMalformedBody) {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	fields := applog.NewFields().WithOperation(op).WithError(err)
	var berr *services.BackendError
	if errors.As(err, &berr) {
		logger.ErrorContext(ctx, "Backend request failed", fields.WithErrorType(applog.ErrorTypeNetwork).ToSlice()...)
		writeError(w, r, http.StatusBadGateway, berr.Error())
		return
	}

	logger.ErrorContext(ctx, "Request failed", fields.WithErrorType(applog.ErrorTypeInternal).ToSlice()...)
	writeError(w, r, http.StatusInternalServerError, "internal error")
}
