package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/MikeSquared-Agency/PayLens/internal/reconcile"
	"github.com/MikeSquared-Agency/PayLens/internal/service"
)

// errUnsupportedMedia is answered with 415.
var errUnsupportedMedia = errors.New("unsupported content type")

func statusFor(err error) int {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, errUnsupportedMedia):
		return http.StatusUnsupportedMediaType
	case reconcile.IsInputError(err):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrPersist):
		return http.StatusInternalServerError
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}

func writeErr(w http.ResponseWriter, err error) {
	writeError(w, statusFor(err), err.Error())
}
