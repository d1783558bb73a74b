package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"jobshop/internal/auth"
	"jobshop/internal/model"
	"jobshop/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// maxBodySize caps request bodies.
const maxBodySize = 1 << 20

// Response is the envelope of every API response. Fields are merged into the
// top-level object.
type Response struct {
	Success    bool
	Code       int
	Message    string
	Error      string
	Violations []model.Violation
	Fields     map[string]any
}

// MarshalJSON flattens Fields next to the envelope keys.
func (r Response) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Fields)+5)
	for k, v := range r.Fields {
		out[k] = v
	}

	violations := r.Violations
	if violations == nil {
		violations = []model.Violation{}
	}

	out["success"] = r.Success
	out["code"] = r.Code
	out["message"] = r.Message
	out["violations"] = violations
	if r.Error != "" {
		out["error"] = r.Error
	}
	return json.Marshal(out)
}

// statusByCode maps domain error codes to HTTP statuses. Unlisted codes are client errors.
var statusByCode = map[string]int{
	model.ErrCodeInvalidJSON:        http.StatusUnprocessableEntity,
	model.ErrCodeProductNotFound:    http.StatusNotFound,
	model.ErrCodeOrderNotFound:      http.StatusNotFound,
	model.ErrCodeInvoiceNotFound:    http.StatusNotFound,
	model.ErrCodeJobSearchNotFound:  http.StatusNotFound,
	model.ErrCodeInvalidCredentials: http.StatusUnauthorized,
	model.ErrCodeUnauthorised:       http.StatusUnauthorized,
	model.ErrCodeForbidden:          http.StatusForbidden,
	model.ErrCodeNotFound:           http.StatusNotFound,
	model.ErrCodeMethodNotAllowed:   http.StatusMethodNotAllowed,
	model.ErrCodePaymentFinalized:   http.StatusConflict,
	model.ErrCodeMaintenance:        http.StatusServiceUnavailable,
	model.ErrCodeInternalError:      http.StatusInternalServerError,
}

// WriteJSON writes a success envelope carrying fields.
func WriteJSON(w http.ResponseWriter, status int, fields map[string]any) {
	write(w, Response{
		Success: true,
		Code:    status,
		Message: http.StatusText(status),
		Fields:  fields,
	})
}

// WriteError writes the envelope matching err. Errors that are neither domain
// nor validation errors are logged and hidden behind a generic 500.
func WriteError(w http.ResponseWriter, err error, logger zerolog.Logger) {
	var verr *model.ValidationError
	if errors.As(err, &verr) {
		write(w, Response{
			Code:       http.StatusBadRequest,
			Message:    "Validation failed",
			Error:      model.ErrCodeValidation,
			Violations: verr.Violations,
		})
		return
	}

	var derr *model.DomainError
	if !errors.As(err, &derr) {
		logger.Error().Err(err).Msg("unhandled error")
		derr = model.ErrInternal
	}

	status, ok := statusByCode[derr.Code]
	if !ok {
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		derr = model.ErrInternal
	}

	write(w, Response{
		Code:    status,
		Message: derr.Message,
		Error:   derr.Code,
	})
}

func write(w http.ResponseWriter, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.Code)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		// The status is already sent.
		return
	}
}

// readBody reads a size-limited request body.
func readBody(r *http.Request) ([]byte, error) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize+1))
	if err != nil {
		return nil, model.ErrInvalidJSON
	}
	if len(raw) > maxBodySize {
		return nil, model.NewValidationError("body", "must not exceed 1MB")
	}
	return raw, nil
}

// decodeBody reads and decodes a JSON request body into dst.
func decodeBody(r *http.Request, dst any) error {
	raw, err := readBody(r)
	if err != nil {
		return err
	}
	return service.DecodeJSON(raw, dst)
}

// requestContext returns the authenticated caller or writes a 401.
func requestContext(w http.ResponseWriter, r *http.Request, logger zerolog.Logger) (model.RequestContext, bool) {
	rc, ok := auth.FromContext(r.Context())
	if !ok {
		WriteError(w, model.ErrUnauthorised, logger)
		return model.RequestContext{}, false
	}
	return rc, true
}

// intQuery parses an optional integer query parameter, returning def when absent.
func intQuery(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, model.NewValidationError(name, "must be an integer")
	}
	return v, nil
}

// int64Param parses a positive integer path parameter.
func int64Param(r *http.Request, name string) (int64, error) {
	v, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || v <= 0 {
		return 0, model.NewValidationError(name, "must be a positive integer")
	}
	return v, nil
}
