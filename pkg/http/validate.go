package http

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

var validate = newValidator()

// newValidator reports fields by the name clients send (query, then json
// tag) instead of the Go field name.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, tag := range []string{"query", "json"} {
			name := strings.Split(f.Tag.Get(tag), ",")[0]
			if name != "" && name != "-" {
				return name
			}
		}
		return f.Name
	})
	return v
}

// ReadAndValidateRequest binds path, query and body parameters into req,
// fills zero fields from `default` tags and validates `validate` tags.
// It returns nil when req is usable.
func ReadAndValidateRequest(c echo.Context, req interface{}) []ValidationError {
	if err := c.Bind(req); err != nil {
		return toValidationErrors(err)
	}
	if err := defaults.Set(req); err != nil {
		return toValidationErrors(err)
	}
	if err := validate.StructCtx(c.Request().Context(), req); err != nil {
		return toValidationErrors(err)
	}
	return nil
}

type ruleText struct {
	format string // field, param
	param  string // key under Params, empty for none
}

var rules = map[string]ruleText{
	"required": {format: "%s is required"},
	"gte":      {format: "%s must be at least %s", param: "min"},
	"min":      {format: "%s must be at least %s", param: "min"},
	"lte":      {format: "%s must be at most %s", param: "max"},
	"max":      {format: "%s must be at most %s", param: "max"},
	"gt":       {format: "%s must be greater than %s", param: "min"},
	"oneof":    {format: "%s must be one of: %s", param: "options"},
}

func toValidationErrors(err error) []ValidationError {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		out := make([]ValidationError, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			out = append(out, describe(fe))
		}
		return out
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		return []ValidationError{{Code: "ERR_BIND", Message: fmt.Sprint(he.Message)}}
	}
	return []ValidationError{{Code: "ERR_UNKNOWN", Message: err.Error()}}
}

func describe(fe validator.FieldError) ValidationError {
	ve := ValidationError{
		Code:  "ERR_" + strings.ToUpper(fe.Tag()),
		Field: fe.Field(),
	}
	rule, ok := rules[fe.Tag()]
	if !ok {
		ve.Message = fmt.Sprintf("%s failed validation: %s", fe.Field(), fe.Tag())
		return ve
	}

	param := fe.Param()
	if fe.Tag() == "oneof" {
		ve.Params = map[string]interface{}{rule.param: strings.Fields(param)}
		param = strings.Join(strings.Fields(param), ", ")
	} else if rule.param != "" {
		ve.Params = map[string]interface{}{rule.param: param}
	}
	if strings.Count(rule.format, "%s") == 1 {
		ve.Message = fmt.Sprintf(rule.format, fe.Field())
	} else {
		ve.Message = fmt.Sprintf(rule.format, fe.Field(), param)
	}
	return ve
}
