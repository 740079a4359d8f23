package errors

import (
	"errors"
)

type Code string

// Login failure family. Callers see these as "login failed".
const (
	CodeInvalidCredentials Code = "invalid_credentials"
	CodeAccountNotFound    Code = "account_not_found"
	CodeBadSecret          Code = "bad_secret"
	CodeAccountDisabled    Code = "account_disabled"
)

// Remote failure family. Callers see these as a generic remote failure.
const (
	CodeUnknown        Code = "unknown"
	CodeTransport      Code = "transport"
	CodeReflection     Code = "reflection"
	CodeEncoding       Code = "encoding"
	CodeNotImplemented Code = "not_implemented"
)

var (
	ErrMissingAuthenticator = errors.New("accountgate: authenticator is required")
	ErrClientClosed         = errors.New("accountgate: client is closed")
)

type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}

	if e.Message != "" {
		return e.Message
	}

	if e.Err != nil {
		return e.Err.Error()
	}

	return string(e.Code)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func New(code Code, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

func Wrap(code Code, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// CodeOf returns the code of the outermost *Error in err's chain, or
// CodeUnknown when there is none.
func CodeOf(err error) Code {
	var typed *Error
	if !errors.As(err, &typed) {
		return CodeUnknown
	}
	return typed.Code
}

func IsCode(err error, code Code) bool {
	var typed *Error
	if !errors.As(err, &typed) {
		return false
	}
	return typed.Code == code
}

func IsLoginFailure(err error) bool {
	switch CodeOf(err) {
	case CodeInvalidCredentials, CodeAccountNotFound, CodeBadSecret, CodeAccountDisabled:
		return true
	}
	return false
}

func IsInternalCode(err error) bool {
	switch CodeOf(err) {
	case CodeUnknown, CodeTransport, CodeReflection, CodeEncoding, CodeNotImplemented:
		return true
	}
	return false
}
