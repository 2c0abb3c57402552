package api

import (
	"context"
	stderrors "errors"
	"net/http"

	"github.com/rollfed/gangrun/pkg/errors"
	"github.com/rollfed/gangrun/pkg/integrations"
)

// ErrorDTO is the JSON body of every non-2xx response.
type ErrorDTO struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// httpStatus maps a domain error to an HTTP status code.
func httpStatus(err error) int {
	switch errors.GetCode(err) {
	case errors.ErrCodeInvalidInput,
		errors.ErrCodeInvalidGeometry,
		errors.ErrCodeInvalidItems,
		errors.ErrCodeInvalidWeights,
		errors.ErrCodeInvalidPolicy:
		return http.StatusBadRequest

	case errors.ErrCodeInvalidLayout:
		// The payload parsed but describes an impossible layout.
		return http.StatusUnprocessableEntity

	case errors.ErrCodeNotFound,
		errors.ErrCodeRunNotFound,
		errors.ErrCodeLayoutNotFound:
		return http.StatusNotFound

	case errors.ErrCodeImposeBusy:
		return http.StatusConflict

	case errors.ErrCodeRateLimited:
		return http.StatusTooManyRequests

	case errors.ErrCodeNetwork, errors.ErrCodeRemoteRejected:
		return http.StatusBadGateway

	case errors.ErrCodeTimeout, errors.ErrCodePollTimeout:
		return http.StatusGatewayTimeout

	case errors.ErrCodeUnsupported:
		return http.StatusNotImplemented
	}

	switch {
	case errors.IsRateLimited(err):
		return http.StatusTooManyRequests
	case stderrors.Is(err, integrations.ErrNotFound):
		return http.StatusNotFound
	case stderrors.Is(err, integrations.ErrNetwork):
		return http.StatusBadGateway
	case stderrors.Is(err, context.Canceled):
		// 499: nginx convention for "client closed request".
		return 499
	case stderrors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}

	return http.StatusInternalServerError
}

// errorCode extracts a machine-readable code string, falling back to
// INTERNAL_ERROR for errors that carry none.
func errorCode(err error) string {
	if code := errors.GetCode(err); code != "" {
		return string(code)
	}
	if errors.IsRateLimited(err) {
		return string(errors.ErrCodeRateLimited)
	}
	return string(errors.ErrCodeInternal)
}

// WriteError writes a JSON error response with the mapped status code.
func WriteError(w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	writeJSON(w, httpStatus(err), ErrorDTO{
		Code:    errorCode(err),
		Message: errors.UserMessage(err),
	})
}
