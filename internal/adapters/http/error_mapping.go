package httpadapter

import (
	"net/http"

	"github.com/kirillkom/legal-assistant/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	if dispatchErr, ok := domain.AsDispatchError(err); ok {
		switch dispatchErr.Kind {
		case domain.DispatchInvalidBackend:
			return http.StatusBadRequest
		case domain.DispatchModelNotFound:
			return http.StatusNotFound
		case domain.DispatchBackendUnavailable:
			return http.StatusServiceUnavailable
		}
	}
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrNotConfigured):
		return http.StatusServiceUnavailable
	case domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
