package paperless

import (
	"net/http"

	"github.com/resper/paperless-onS/internal/core/domain"
	"github.com/resper/paperless-onS/internal/infrastructure/resilience"
)

var classifyPaperlessError = resilience.ClassifyHTTP(nil)

// mapPaperlessError gives upstream failures their domain kind.
func mapPaperlessError(operation string, err error) error {
	switch code := resilience.StatusCode(err); {
	case code == http.StatusNotFound:
		return domain.WrapError(domain.ErrDocumentNotFound, "paperless "+operation, err)
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return domain.WrapError(domain.ErrUnauthorized, "paperless "+operation, err)
	case code == http.StatusBadRequest:
		return domain.WrapError(domain.ErrInvalidInput, "paperless "+operation, err)
	}

	wrapped := resilience.WrapTemporaryIfNeeded("paperless "+operation, err, classifyPaperlessError)
	if domain.IsKind(wrapped, domain.ErrTemporary) {
		return wrapped
	}
	if resilience.StatusCode(err) != 0 {
		return domain.WrapError(domain.ErrUpstream, "paperless "+operation, err)
	}
	return wrapped
}
