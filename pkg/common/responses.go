package common

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	domainerrors "github.com/aokaito/annotune-sub000/pkg/errors"
)

// MaxBodyBytes caps request bodies. Lyric text is at most 20000 runes of up
// to 4 bytes each, plus envelope.
const MaxBodyBytes int64 = 128 << 10

// ListResponse wraps collections so the top-level JSON value is an object
type ListResponse struct {
	Items interface{} `json:"items"`
	Count int         `json:"count"`
}

// RespondJSON sends a JSON response
func RespondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// RespondList sends items with their count
func RespondList(w http.ResponseWriter, items interface{}, count int) {
	RespondJSON(w, http.StatusOK, ListResponse{Items: items, Count: count})
}

// RespondNoContent sends 204 with no body
func RespondNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// ParseJSONBody decodes a JSON request body with a size limit. Malformed
// bodies come back as validation errors on the "body" field.
func ParseJSONBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		var syntaxErr *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		switch {
		case errors.Is(err, io.EOF):
			return domainerrors.NewValidationError("body", "request body is required")
		case errors.As(err, &maxErr):
			return domainerrors.NewValidationError("body", fmt.Sprintf("request body exceeds %d bytes", maxErr.Limit))
		case errors.As(err, &syntaxErr):
			return domainerrors.NewValidationError("body", fmt.Sprintf("malformed JSON at offset %d", syntaxErr.Offset))
		case errors.As(err, &typeErr):
			return domainerrors.NewValidationError(typeErr.Field, fmt.Sprintf("%s has the wrong type", typeErr.Field))
		case strings.HasPrefix(err.Error(), "json: unknown field "):
			field := strings.Trim(strings.TrimPrefix(err.Error(), "json: unknown field "), `"`)
			return domainerrors.NewValidationError(field, "unknown field")
		default:
			return domainerrors.NewValidationError("body", "malformed JSON")
		}
	}

	return nil
}
