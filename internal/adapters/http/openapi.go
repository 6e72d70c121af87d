package httpadapter

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"

	"github.com/resper/paperless-onS/internal/core/domain"
)

//go:embed openapi.yaml
var openAPISpec []byte

// OpenAPISpec returns the embedded API description.
func OpenAPISpec() []byte {
	return openAPISpec
}

func loadOpenAPI(ctx context.Context) (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(openAPISpec)
	if err != nil {
		return nil, fmt.Errorf("load openapi spec: %w", err)
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("validate openapi spec: %w", err)
	}
	return doc, nil
}

// requestValidator checks requests against the operation registered for a
// mux pattern such as "GET /api/documents/{document_id}".
type requestValidator struct {
	doc     *openapi3.T
	options *openapi3filter.Options
}

func newRequestValidator(doc *openapi3.T) *requestValidator {
	if doc == nil {
		return nil
	}
	return &requestValidator{
		doc: doc,
		options: &openapi3filter.Options{
			AuthenticationFunc: openapi3filter.NoopAuthenticationFunc,
		},
	}
}

func (v *requestValidator) wrap(pattern string, next http.HandlerFunc) http.HandlerFunc {
	if v == nil {
		return next
	}
	method, path, ok := strings.Cut(pattern, " ")
	if !ok {
		return next
	}
	item := v.doc.Paths.Value(path)
	if item == nil {
		return next
	}
	operation := item.GetOperation(method)
	if operation == nil {
		return next
	}
	route := &routers.Route{
		Spec:      v.doc,
		Path:      path,
		PathItem:  item,
		Method:    method,
		Operation: operation,
	}
	names := pathParamNames(path)

	return func(w http.ResponseWriter, r *http.Request) {
		params := make(map[string]string, len(names))
		for _, name := range names {
			params[name] = r.PathValue(name)
		}
		err := openapi3filter.ValidateRequest(r.Context(), &openapi3filter.RequestValidationInput{
			Request:    r,
			PathParams: params,
			Route:      route,
			Options:    v.options,
		})
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{
				Error:     validationMessage(err),
				RequestID: requestIDFromContext(r.Context()),
			})
			return
		}
		next(w, r)
	}
}

func pathParamNames(path string) []string {
	var names []string
	for _, segment := range strings.Split(path, "/") {
		if strings.HasPrefix(segment, "{") && strings.HasSuffix(segment, "}") {
			names = append(names, strings.Trim(segment, "{}"))
		}
	}
	return names
}

func validationMessage(err error) string {
	var reqErr *openapi3filter.RequestError
	if errors.As(err, &reqErr) {
		reason := reqErr.Reason
		if reqErr.Err != nil {
			reason = reqErr.Err.Error()
		}
		if reqErr.Parameter != nil {
			return fmt.Sprintf("invalid parameter %q: %s", reqErr.Parameter.Name, reason)
		}
		if reqErr.RequestBody != nil {
			return "invalid request body: " + reason
		}
	}
	return domain.ErrInvalidInput.Error() + ": " + err.Error()
}
