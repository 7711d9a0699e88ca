// Package validate wires go-playground/validator into echo.
package validate

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// Validator implements echo.Validator.
type Validator struct {
	v *validator.Validate
}

// New returns a Validator that reports field names by their json tag.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	return &Validator{v: v}
}

// Validate satisfies echo.Validator.
func (cv *Validator) Validate(i interface{}) error {
	return cv.v.Struct(i)
}

// Struct validates s and returns a readable error.
func (cv *Validator) Struct(s interface{}) error {
	if err := cv.v.Struct(s); err != nil {
		return errors.New(FormatError(err))
	}
	return nil
}

// FormatError turns validator errors into "field: rule" pairs.
func FormatError(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		if e.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s: must satisfy %s=%s", e.Field(), e.Tag(), e.Param()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s: %s", e.Field(), e.Tag()))
		}
	}
	return strings.Join(msgs, ", ")
}

// Bind binds the request into obj and validates it, returning a 400 on failure.
func Bind(c echo.Context, obj interface{}) error {
	if err := c.Bind(obj); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(obj); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "validation failed: "+FormatError(err))
	}
	return nil
}
