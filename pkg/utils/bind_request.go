package utils

import (
	"errors"
	"net/http"
	"strings"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// BindRequest decodes a JSON request body into T and validates it.
// Failing fields are listed under the "fields" meta key of the 400 error.
func BindRequest[T any](c echo.Context) (T, error) {
	var v T

	contentType := c.Request().Header.Get(echo.HeaderContentType)
	if contentType != "" && !strings.HasPrefix(contentType, echo.MIMEApplicationJSON) {
		return v, httperror.NewHTTPError(http.StatusUnsupportedMediaType, "request body must be application/json")
	}

	if err := c.Bind(&v); err != nil {
		return v, httperror.NewHTTPError(http.StatusBadRequest, "invalid request body").AddMetaValue("cause", bindCause(err))
	}

	if err := validate.Struct(v); err != nil {
		return v, httperror.NewHTTPError(http.StatusBadRequest, ValidationErrorToString(v, err).Error()).
			AddMetaValue("fields", InvalidFields(err))
	}

	return v, nil
}

// InvalidFields returns the names of the fields that failed validation
func InvalidFields(err error) []string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Field())
	}
	return fields
}

func bindCause(err error) string {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		if msg, ok := he.Message.(string); ok {
			return msg
		}
	}
	return err.Error()
}
