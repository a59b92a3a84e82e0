// Package validation plugs go-playground/validator into echo and turns
// validation failures into client-facing messages.
package validation

import (
    "errors"
    "fmt"
    "reflect"
    "strings"

    "github.com/go-playground/validator/v10"
)

// Messenger is implemented by request payloads that want their own wording
// for a failing field.  Keys are JSON field names.
type Messenger interface {
    ValidationMessages() map[string]string
}

// FieldError reports the first field that failed validation.
type FieldError struct {
    Field   string // JSON name of the field
    Tag     string // failing rule, e.g. "min"
    Message string
}

func (e *FieldError) Error() string { return e.Message }

// Validator satisfies echo.Validator.
type Validator struct {
    v *validator.Validate
}

// New returns a Validator whose field names follow the json tags of the
// validated structs.
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

// Validate checks i against its `validate` tags.  It returns a *FieldError
// for the first violation, or nil.
func (cv *Validator) Validate(i interface{}) error {
    err := cv.v.Struct(i)
    if err == nil {
        return nil
    }
    var verrs validator.ValidationErrors
    if !errors.As(err, &verrs) || len(verrs) == 0 {
        return err
    }
    fe := verrs[0]
    out := &FieldError{Field: fe.Field(), Tag: fe.Tag()}
    if m, ok := i.(Messenger); ok {
        if msg, ok := m.ValidationMessages()[fe.Field()]; ok {
            out.Message = msg
            return out
        }
    }
    out.Message = defaultMessage(fe)
    return out
}

func defaultMessage(fe validator.FieldError) string {
    switch fe.Tag() {
    case "required":
        return fmt.Sprintf("Missing %s.", fe.Field())
    case "min":
        return fmt.Sprintf("Invalid %s. Please input at least %s characters.", fe.Field(), fe.Param())
    case "max":
        return fmt.Sprintf("Invalid %s. Please input not exceed %s characters.", fe.Field(), fe.Param())
    case "email":
        return fmt.Sprintf("Invalid %s. Please input a valid email address.", fe.Field())
    }
    return fmt.Sprintf("Invalid %s.", fe.Field())
}
