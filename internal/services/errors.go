package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrExternalTool  = errors.New("external tool error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrTimeout       = errors.New("timeout")
	ErrTransient     = errors.New("transient failure")
)

// ErrorCode is the stable, machine-readable class of an error surfaced over
// the IPC and HTTP boundaries.
type ErrorCode string

const (
	CodeValidation    ErrorCode = "validation"
	CodeConfiguration ErrorCode = "configuration"
	CodeNotFound      ErrorCode = "not_found"
	CodeExternalTool  ErrorCode = "external_tool"
	CodeTimeout       ErrorCode = "timeout"
	CodeInternal      ErrorCode = "internal"
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Code maps an error to its boundary classification.
func Code(err error) ErrorCode {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return CodeValidation
	case errors.Is(err, ErrConfiguration):
		return CodeConfiguration
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrExternalTool):
		return CodeExternalTool
	case errors.Is(err, ErrTimeout):
		return CodeTimeout
	default:
		return CodeInternal
	}
}

// FromCode rebuilds a classified error from the code and message carried
// across a process boundary.
func FromCode(code ErrorCode, message string) error {
	var marker error
	switch code {
	case CodeValidation:
		marker = ErrValidation
	case CodeConfiguration:
		marker = ErrConfiguration
	case CodeNotFound:
		marker = ErrNotFound
	case CodeExternalTool:
		marker = ErrExternalTool
	case CodeTimeout:
		marker = ErrTimeout
	default:
		return errors.New(message)
	}
	return Wrap(marker, "", "", message, nil)
}

// Message strips the marker prefix so callers can show the human part of a
// wrapped error.
func Message(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	for _, marker := range []error{ErrValidation, ErrConfiguration, ErrNotFound, ErrExternalTool, ErrTimeout, ErrTransient} {
		prefix := marker.Error() + ": "
		if strings.HasPrefix(msg, prefix) {
			return strings.TrimPrefix(msg, prefix)
		}
	}
	return msg
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
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
