package apperr

import "errors"

// Code is a failure category shown to the user as a one-line message and
// used by callers to branch on errors.
type Code string

const (
	CodeAuthenticationRequired Code = "authentication_required"
	CodeAPICallFailed          Code = "api_call_failed"
	CodeParseFailure           Code = "parse_failure"
	CodeInputValidation        Code = "input_validation"
	CodeLoginInProgress        Code = "login_in_progress"
	CodeNotConfigured          Code = "not_configured"
	CodeInternal               Code = "internal_error"
)

// Error wraps a failure with a stable code.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Code)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error with the same code, so errors.Is(err, ErrX) works
// against the sentinels below.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// Sentinels for errors.Is.
var (
	ErrAuthenticationRequired = &Error{Code: CodeAuthenticationRequired}
	ErrAPICallFailed          = &Error{Code: CodeAPICallFailed}
	ErrParseFailure           = &Error{Code: CodeParseFailure}
	ErrInputValidation        = &Error{Code: CodeInputValidation}
	ErrLoginInProgress        = &Error{Code: CodeLoginInProgress}
	ErrNotConfigured          = &Error{Code: CodeNotConfigured}
)

func New(code Code, msg string) error {
	return &Error{Code: code, Message: msg}
}

// Wrap attaches a code and message to err. An err that already carries a
// code keeps it.
func Wrap(err error, code Code, msg string) error {
	var existing *Error
	if errors.As(err, &existing) {
		return &Error{Code: existing.Code, Message: msg, Err: err}
	}
	return &Error{Code: code, Message: msg, Err: err}
}

// HasCode reports whether err is, or wraps, an *Error with the given code.
func HasCode(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// UserMessage reduces err to the single line shown in the status bar.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return err.Error()
}
