package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/debemdeboas/archive-ledger/internal/config"
	"github.com/debemdeboas/archive-ledger/internal/exception"
)

var statusByKind = map[exception.Kind]int{
	exception.KindValidation: http.StatusBadRequest,
	exception.KindNotFound:   http.StatusNotFound,
	exception.KindStorage:    http.StatusServiceUnavailable,
	exception.KindConflict:   http.StatusConflict,
	exception.KindInternal:   http.StatusInternalServerError,
}

func statusOf(err error) int {
	if status, ok := statusByKind[exception.KindOf(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}

type errorBody struct {
	Kind    exception.Kind `json:"kind"`
	Code    string         `json:"code,omitempty"`
	Message string         `json:"message"`
	Detail  string         `json:"detail,omitempty"`
}

// writeError answers with the error's kind, a message in the caller's
// language and, for validation errors, the detail of what was rejected.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	body := errorBody{
		Kind:    exception.KindOf(err),
		Message: exception.LocalizedMessage(err, r.Header.Get(config.HAcceptLanguage)),
	}

	var appErr *exception.AppError
	if errors.As(err, &appErr) {
		body.Code = appErr.Code
		if appErr.Kind == exception.KindValidation || appErr.Kind == exception.KindNotFound {
			body.Detail = appErr.Message
		}
	}

	l := zerolog.Ctx(r.Context())
	if status >= http.StatusInternalServerError {
		l.Error().Err(err).Int("status", status).Msg("Request failed")
	} else {
		l.Debug().Err(err).Int("status", status).Msg("Request rejected")
	}

	writeJSON(w, status, map[string]errorBody{"error": body})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set(config.HCType, config.CTypeJSON)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		apiLogger.Warn().Err(err).Msg("Failed to encode response")
	}
}
