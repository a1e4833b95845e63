package livebind

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Template compile errors. They are wrapped with the offending element, use errors.Is.
var (
	ErrTemplateOverlap   = errors.New("templates should not overlap, use import here")
	ErrGroupCombination  = errors.New("repeat, if and with can't be combined on the same element, wrap one in the other")
	ErrImportCombination = errors.New("repeat and if can't be combined with import on the same element, wrap one in the other")
	ErrImportChildren    = errors.New("no child elements allowed within an import")
	ErrImportText        = errors.New("no text allowed within an import")
	ErrGroupTextChild    = errors.New("a child element should be present within repeat, if or with, wrap text in an element")
	ErrGroupNoChild      = errors.New("a child element should be present within repeat, if or with")
	ErrGroupChildren     = errors.New("only a single child element allowed within repeat, if or with, wrap child elements in a container element")
)

// Render errors
var (
	ErrNotTemplate  = errors.New("element is not a template")
	ErrImportTarget = errors.New("import does not refer to a template")
)

// ExpressionError reports a template tag whose expression does not parse
type ExpressionError struct {
	// Source is the text between the tag delimiters
	Source string
	// Index is the byte offset in the attribute value or text where parsing stopped
	Index int
	// Code is the parser error code, like MISSING_FILTER_NAME
	Code string
}

func (e *ExpressionError) Error() string {
	return fmt.Sprintf("invalid expression %q: %s at index %d", e.Source, e.Code, e.Index)
}

// FieldError represents a validation error for a specific option
type FieldError struct {
	Field   string
	Message string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// MultiError is a collection of field errors (implements error interface)
type MultiError []FieldError

func (m MultiError) Error() string {
	if len(m) == 0 {
		return ""
	}
	var msgs []string
	for _, err := range m {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// ValidationToMultiError converts go-playground/validator errors to MultiError
func ValidationToMultiError(err error) MultiError {
	var fieldErrors MultiError

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return fieldErrors
	}

	for _, e := range validationErrs {
		var message string
		switch e.Tag() {
		case "required":
			message = "is required"
		case "printascii":
			message = "must contain printable ASCII characters only"
		case "lowercase":
			message = "must be lowercase, the HTML parser lowercases attribute names"
		default:
			message = fmt.Sprintf("is invalid (%s)", e.Tag())
		}

		fieldErrors = append(fieldErrors, FieldError{
			Field:   e.Field(),
			Message: message,
		})
	}

	return fieldErrors
}
