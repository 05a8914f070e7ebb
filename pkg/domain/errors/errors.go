package errors

import (
	stderrors "errors"
	"fmt"
)

// Error represents a structured error with code and context
type Error struct {
	Code    Code
	Domain  string
	Message string
	Cause   error
}

// New creates a new error with the given code, domain, message, and optional cause
func New(code Code, domain string, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Domain:  domain,
		Message: message,
		Cause:   cause,
	}
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Domain, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Domain, e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches the target error
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// IsCode reports whether any error in err's chain carries the given code.
// A ToolInvocationError counts as CodeToolInvocation.
func IsCode(err error, code Code) bool {
	if err == nil {
		return false
	}
	if code == CodeToolInvocation {
		var tie *ToolInvocationError
		if stderrors.As(err, &tie) {
			return true
		}
	}
	return stderrors.Is(err, &Error{Code: code})
}

// Configuration builds a CodeConfiguration error for an unset setting.
func Configuration(setting string) *Error {
	return New(CodeConfiguration, "config",
		fmt.Sprintf("%s is not set, please run command \"hb set\" to init OHOS development environment", setting), nil)
}

// UserAbort builds the error returned when the context is cancelled by an interrupt.
func UserAbort(cause error) *Error {
	return New(CodeUserAbort, "runner", "User Abort", cause)
}

// ToolInvocationError is returned when an external tool exits non-zero.
type ToolInvocationError struct {
	Command  string
	ExitCode int
	LogPath  string
	Cause    error
}

func (e *ToolInvocationError) Error() string {
	return fmt.Sprintf("%s failed, return code is %d", e.Command, e.ExitCode)
}

func (e *ToolInvocationError) Unwrap() error {
	return e.Cause
}

// AsToolInvocation returns the ToolInvocationError in err's chain, if any.
func AsToolInvocation(err error) (*ToolInvocationError, bool) {
	var tie *ToolInvocationError
	if stderrors.As(err, &tie) {
		return tie, true
	}
	return nil, false
}
