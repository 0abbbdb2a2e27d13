package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	apperrors "github.com/streamgate/gate-server-go/internal/errors"
	"github.com/streamgate/gate-server-go/internal/httputil"
	"github.com/streamgate/gate-server-go/internal/util"
)

const (
	defaultPageLimit = 50
	maxPageLimit     = 200
)

// decodeJSON decodes the request body into dest and runs struct validation.
// An empty body is allowed when allowEmpty is set; dest keeps its zero values.
func decodeJSON(r *http.Request, dest any, allowEmpty bool) error {
	if r.Body == nil || r.ContentLength == 0 {
		if allowEmpty {
			return nil
		}
		return apperrors.MissingRequired("request body")
	}

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dest); err != nil {
		return apperrors.ValidationError("Malformed JSON body").WithCause(err)
	}

	if fields := util.ValidateStruct(dest); fields != nil {
		return apperrors.ValidationError("Invalid request body").WithDetails(fields)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	httputil.WriteJSON(w, status, data)
}

func writeError(w http.ResponseWriter, err error) {
	httputil.WriteError(w, err)
}

// pagination reads limit/offset query parameters with sane bounds.
func pagination(r *http.Request) (limit, offset int) {
	limit = defaultPageLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	if raw := r.URL.Query().Get("offset"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}
