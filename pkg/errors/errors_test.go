package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMessageFallbacks(t *testing.T) {
	cause := errors.New("socket closed")

	assert.Equal(t, "remote failure", Wrap(CodeTransport, "remote failure", cause).Error())
	assert.Equal(t, "socket closed", Wrap(CodeTransport, "", cause).Error())
	assert.Equal(t, "bad_secret", New(CodeBadSecret, "").Error())

	var nilErr *Error
	assert.Equal(t, "", nilErr.Error())
	assert.Nil(t, nilErr.Unwrap())
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := fmt.Errorf("resolve: %w", Wrap(CodeTransport, "remote failure", cause))

	assert.True(t, errors.Is(err, cause))
	assert.True(t, IsCode(err, CodeTransport))
	assert.False(t, IsCode(err, CodeBadSecret))
	assert.Equal(t, CodeTransport, CodeOf(err))
}

func TestCodeFamilies(t *testing.T) {
	loginCodes := []Code{CodeInvalidCredentials, CodeAccountNotFound, CodeBadSecret, CodeAccountDisabled}
	for _, code := range loginCodes {
		err := New(code, "login failed")
		assert.True(t, IsLoginFailure(err), code)
		assert.False(t, IsInternalCode(err), code)
	}

	internalCodes := []Code{CodeUnknown, CodeTransport, CodeReflection, CodeEncoding, CodeNotImplemented}
	for _, code := range internalCodes {
		err := New(code, "remote failure")
		assert.False(t, IsLoginFailure(err), code)
		assert.True(t, IsInternalCode(err), code)
	}

	plain := errors.New("plain")
	assert.Equal(t, CodeUnknown, CodeOf(plain))
	assert.False(t, IsLoginFailure(plain))
	assert.True(t, IsInternalCode(plain))
}
