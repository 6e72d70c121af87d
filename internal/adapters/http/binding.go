package httpadapter

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/oapi-codegen/runtime"

	"github.com/resper/paperless-onS/internal/core/domain"
)

const maxRequestBody = 1 << 20

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func readJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody))
	if err := decoder.Decode(dst); err != nil {
		return domain.WrapError(domain.ErrInvalidInput, "decode request body", err)
	}
	return nil
}

// decodeJSON reads a JSON body into the struct dst and runs its validation tags.
func decodeJSON(r *http.Request, dst any) error {
	if err := readJSON(r, dst); err != nil {
		return err
	}
	if err := validate.Struct(dst); err != nil {
		return domain.WrapError(domain.ErrInvalidInput, "validate request body", describeValidation(err))
	}
	return nil
}

func describeValidation(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err
	}
	parts := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s must satisfy %s=%s", fe.Field(), fe.Tag(), fe.Param()))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s must satisfy %s", fe.Field(), fe.Tag()))
	}
	return errors.New(strings.Join(parts, "; "))
}

// pathID binds a positive integer path parameter.
func pathID[T int | int64](r *http.Request, name string) (T, error) {
	var id T
	err := runtime.BindStyledParameterWithOptions("simple", name, r.PathValue(name), &id, runtime.BindStyledParameterOptions{
		ParamLocation: runtime.ParamLocationPath,
		Explode:       false,
		Required:      true,
	})
	if err != nil {
		return 0, domain.WrapError(domain.ErrInvalidInput, "bind path parameter", err)
	}
	if id <= 0 {
		return 0, domain.WrapError(domain.ErrInvalidInput, "bind path parameter", fmt.Errorf("%s must be positive", name))
	}
	return id, nil
}

// bindQuery binds an optional form-style query parameter into dest.
func bindQuery(r *http.Request, name string, dest any) error {
	if err := runtime.BindQueryParameter("form", true, false, name, r.URL.Query(), dest); err != nil {
		return domain.WrapError(domain.ErrInvalidInput, "bind query parameter", err)
	}
	return nil
}

// historyFilter reads limit, offset and status from the query string.
func historyFilter(r *http.Request) (domain.HistoryFilter, error) {
	var (
		filter domain.HistoryFilter
		status string
	)
	if err := bindQuery(r, "limit", &filter.Limit); err != nil {
		return filter, err
	}
	if err := bindQuery(r, "offset", &filter.Offset); err != nil {
		return filter, err
	}
	if err := bindQuery(r, "status", &status); err != nil {
		return filter, err
	}
	filter.Status = domain.ProcessingStatus(status)
	return filter, nil
}
