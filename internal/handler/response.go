package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/dukerupert/shopfront/internal/domain"
)

func init() {
	// Prices and totals are JSON numbers on the wire.
	decimal.MarshalJSONWithoutQuotes = true
}

// envelope is the shape of every API response body.
type envelope struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Meta    any        `json:"meta,omitempty"`
	Error   *ErrorBody `json:"error,omitempty"`
}

// ErrorBody is the error member of a failed response.
type ErrorBody struct {
	Code    string              `json:"code"`
	Message string              `json:"message"`
	Details []domain.FieldError `json:"details,omitempty"`
}

// JSON writes data inside a success envelope.
func JSON(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, envelope{Success: true, Data: data})
}

// JSONWithMeta writes data and listing metadata inside a success envelope.
func JSONWithMeta(w http.ResponseWriter, status int, data, meta any) {
	writeJSON(w, status, envelope{Success: true, Data: data, Meta: meta})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// DecodeJSON reads a single JSON object from the request body into dst.
// Failures are returned as domain errors ready for ErrorResponse.
func DecodeJSON(r *http.Request, op string, dst any) error {
	if r.Body == nil {
		return domain.Invalid(op, "Request body is required")
	}

	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		var typeErr *json.UnmarshalTypeError
		var syntaxErr *json.SyntaxError

		switch {
		case errors.Is(err, io.EOF):
			return domain.Invalid(op, "Request body is required")
		case errors.As(err, &maxErr):
			return domain.Errorf(domain.ETOOLARGE, op, "Request body too large")
		case errors.As(err, &typeErr) && typeErr.Field != "":
			return domain.NewValidationError(op, typeErr.Field, "Invalid value for "+typeErr.Field)
		case errors.As(err, &syntaxErr), errors.Is(err, io.ErrUnexpectedEOF):
			return domain.Invalid(op, "Request body is not valid JSON")
		default:
			return domain.WrapError(err, domain.EINVALID, op, "Invalid request body: "+err.Error())
		}
	}

	if dec.More() {
		return domain.Invalid(op, "Request body must contain a single JSON object")
	}
	return nil
}

// JSONFailure writes an error envelope that still carries data, for
// responses such as a failing health probe whose report is useful.
func JSONFailure(w http.ResponseWriter, status int, data any, code, message string) {
	writeJSON(w, status, envelope{
		Success: false,
		Data:    data,
		Error:   &ErrorBody{Code: code, Message: message},
	})
}
