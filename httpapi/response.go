package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"food-console/console"
	"food-console/errclass"
	"food-console/remote"
	"food-console/scope"
)

// APIError is the body of every non-2xx response.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string { return e.Code + ": " + e.Message }

func badRequest(msg string) *APIError {
	return &APIError{Status: http.StatusBadRequest, Code: "invalid_input", Message: msg}
}

// WriteJSON serializes payload with status and logs encoding failures.
func WriteJSON(log *zap.Logger, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil && log != nil {
		log.Warn("encode response", zap.Error(err))
	}
}

// toAPIError maps façade and backend errors onto HTTP statuses.
func toAPIError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	switch {
	case errors.Is(err, console.ErrInvalidInput):
		return &APIError{Status: http.StatusBadRequest, Code: "invalid_input", Message: err.Error()}
	case errors.Is(err, console.ErrInvalidTransition):
		return &APIError{Status: http.StatusConflict, Code: "invalid_transition", Message: err.Error()}
	case errors.Is(err, scope.ErrUnknownBranch):
		return &APIError{Status: http.StatusBadRequest, Code: "unknown_branch", Message: err.Error()}
	case errors.Is(err, scope.ErrAllNotAllowed):
		return &APIError{Status: http.StatusForbidden, Code: "all_not_allowed", Message: err.Error()}
	}
	switch errclass.Classify(err).Kind {
	case errclass.NotFound:
		return &APIError{Status: http.StatusNotFound, Code: "not_found", Message: err.Error()}
	case errclass.PermissionDenied:
		return &APIError{Status: http.StatusForbidden, Code: "permission_denied", Message: err.Error()}
	case errclass.UndefinedTable, errclass.UndefinedColumn:
		return &APIError{Status: http.StatusInternalServerError, Code: "schema_mismatch", Message: err.Error()}
	}
	var re *remote.Error
	if errors.As(err, &re) {
		return &APIError{Status: http.StatusBadGateway, Code: "backend_error", Message: re.Error()}
	}
	return &APIError{Status: http.StatusInternalServerError, Code: "internal", Message: "internal error"}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	apiErr := toAPIError(err)
	if apiErr.Status >= http.StatusInternalServerError {
		s.log.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
	}
	WriteJSON(s.log, w, apiErr.Status, apiErr)
}

func decodeBody(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return badRequest("malformed JSON body: " + err.Error())
	}
	return nil
}

// decodeRow reads a JSON object as a write payload.
func decodeRow(r *http.Request) (remote.Row, error) {
	var row remote.Row
	if err := decodeBody(r, &row); err != nil {
		return nil, err
	}
	if len(row) == 0 {
		return nil, badRequest("empty body")
	}
	return row, nil
}

func listParams(r *http.Request) (console.ListParams, error) {
	limit, err := intParam(r, "limit")
	if err != nil {
		return console.ListParams{}, err
	}
	offset, err := intParam(r, "offset")
	if err != nil {
		return console.ListParams{}, err
	}
	return console.ListParams{Branch: r.URL.Query().Get("branch"), Limit: limit, Offset: offset}, nil
}

func intParam(r *http.Request, name string) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, badRequest(name + " must be a non-negative integer")
	}
	return n, nil
}

func floatParam(r *http.Request, name string) (float64, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, badRequest(name + " must be a number")
	}
	return f, nil
}

// timeParam accepts RFC 3339 timestamps or plain dates.
func timeParam(r *http.Request, name string) (*time.Time, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02"} {
		if t, err := time.Parse(layout, v); err == nil {
			return &t, nil
		}
	}
	return nil, badRequest(name + " must be RFC 3339 or YYYY-MM-DD")
}

func (s *Server) insertRow(w http.ResponseWriter, r *http.Request, insert func(context.Context, remote.Row) (remote.Row, error)) {
	row, err := decodeRow(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out, err := insert(r.Context(), row)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	WriteJSON(s.log, w, http.StatusCreated, out)
}

func (s *Server) updateRow(w http.ResponseWriter, r *http.Request, update func(context.Context, string, remote.Row) (int64, error)) {
	row, err := decodeRow(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	n, err := update(r.Context(), chi.URLParam(r, "id"), row)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if n == 0 {
		WriteJSON(s.log, w, http.StatusNotFound, &APIError{Code: "not_found", Message: "no row matched"})
		return
	}
	WriteJSON(s.log, w, http.StatusOK, map[string]int64{"affected": n})
}
