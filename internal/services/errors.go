package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrConfiguration = errors.New("configuration error")
	ErrUnknownAsset  = errors.New("unknown asset")
	ErrHostMutation  = errors.New("host mutation error")
	ErrExtraction    = errors.New("extraction error")
	ErrValidation    = errors.New("validation error")
	ErrExternalTool  = errors.New("external tool error")
	ErrNotFound      = errors.New("not found")
)

// Kind labels used in reports and structured logs.
const (
	KindConfiguration = "configuration"
	KindUnknownAsset  = "unknown_asset"
	KindHostMutation  = "host_mutation"
	KindExtraction    = "extraction"
	KindValidation    = "validation"
	KindExternalTool  = "external_tool"
	KindNotFound      = "not_found"
	KindUnexpected    = "unexpected"
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrExternalTool
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Kind returns the taxonomy label for err. Errors without a known marker are
// reported as unexpected.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrConfiguration):
		return KindConfiguration
	case errors.Is(err, ErrUnknownAsset):
		return KindUnknownAsset
	case errors.Is(err, ErrHostMutation):
		return KindHostMutation
	case errors.Is(err, ErrExtraction):
		return KindExtraction
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrExternalTool):
		return KindExternalTool
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	default:
		return KindUnexpected
	}
}

// IsWarning reports whether err leaves its instance usable. Host mutation
// failures keep the registered record, so they surface as warnings.
func IsWarning(err error) bool {
	return errors.Is(err, ErrHostMutation)
}

// ErrorDetails is the user-facing breakdown of a wrapped error.
type ErrorDetails struct {
	Kind    string
	Message string
	Cause   string
}

// Details splits a wrapped error into its kind, the full message built by
// Wrap, and the innermost cause.
func Details(err error) ErrorDetails {
	if err == nil {
		return ErrorDetails{}
	}
	details := ErrorDetails{Kind: Kind(err), Message: strings.TrimSpace(err.Error())}
	if cause := rootCause(err); cause != nil && cause != err && !isMarker(cause) {
		details.Cause = strings.TrimSpace(cause.Error())
	}
	return details
}

func rootCause(err error) error {
	for {
		switch wrapped := err.(type) {
		case interface{ Unwrap() []error }:
			errs := wrapped.Unwrap()
			if len(errs) == 0 {
				return err
			}
			err = errs[len(errs)-1]
		case interface{ Unwrap() error }:
			next := wrapped.Unwrap()
			if next == nil {
				return err
			}
			err = next
		default:
			return err
		}
	}
}

func isMarker(err error) bool {
	for _, marker := range []error{
		ErrConfiguration, ErrUnknownAsset, ErrHostMutation, ErrExtraction,
		ErrValidation, ErrExternalTool, ErrNotFound,
	} {
		if err == marker {
			return true
		}
	}
	return false
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "plugin failure"
	}
	return strings.Join(parts, ": ")
}
