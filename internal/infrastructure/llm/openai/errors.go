package openai

import (
	"errors"
	"net/http"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/resper/paperless-onS/internal/core/domain"
	"github.com/resper/paperless-onS/internal/infrastructure/resilience"
)

var classifyOpenAIError = resilience.ClassifyHTTP(statusOf)

// statusOf reads the HTTP status from go-openai error types.
func statusOf(err error) int {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}

func mapOpenAIError(operation string, err error) error {
	switch code := statusOf(err); {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return domain.WrapError(domain.ErrUnauthorized, operation, err)
	case code == http.StatusBadRequest || code == http.StatusNotFound:
		return domain.WrapError(domain.ErrUpstream, operation, err)
	}
	wrapped := resilience.WrapTemporaryIfNeeded(operation, err, classifyOpenAIError)
	if domain.IsKind(wrapped, domain.ErrTemporary) {
		return wrapped
	}
	return domain.WrapError(domain.ErrUpstream, operation, err)
}
