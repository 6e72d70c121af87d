package httpadapter

import (
	"net/http"

	"github.com/resper/paperless-onS/internal/core/domain"
	"github.com/resper/paperless-onS/internal/i18n"
)

type errorResponse struct {
	Error     string `json:"error"`
	Step      string `json:"step,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case domain.IsKind(err, domain.ErrDocumentNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrConflict):
		return http.StatusConflict
	case domain.IsKind(err, domain.ErrNotConfigured):
		return http.StatusPreconditionFailed
	case domain.IsKind(err, domain.ErrUpstream):
		return http.StatusBadGateway
	case domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError maps err to a status. Internal errors are logged and replaced by
// a translated generic message.
func (rt *Router) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := mapErrorToHTTPStatus(err)
	requestID := requestIDFromContext(r.Context())
	message := err.Error()
	if status == http.StatusInternalServerError {
		rt.logger.Error("http_handler_failed", "request_id", requestID, "path", r.URL.Path, "error", err)
		message = rt.translator(r).T("errors.internal")
	}
	writeJSON(w, status, errorResponse{
		Error:     message,
		Step:      domain.FailedStep(err),
		RequestID: requestID,
	})
}

func (rt *Router) translator(r *http.Request) i18n.Translator {
	return rt.catalog.For(i18n.ParseAcceptLanguage(r.Header.Get("Accept-Language")))
}
