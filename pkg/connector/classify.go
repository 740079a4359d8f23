package connector

import (
	"errors"
	"strings"

	oerrors "github.com/porthorian/accountgate/pkg/errors"
)

const (
	MessageAccountNotFound = "Account Not Found"
	MessageBadSecret       = "Incorrect Password"
	MessageAccountDisabled = "Account Disabled"
	MessageTransport       = "remote account service failure"
)

type failureMarker struct {
	marker string
	code   oerrors.Code
}

// failureMarkers is matched in order against the lowercased message of
// untyped collaborator errors.
var failureMarkers = []failureMarker{
	{marker: "no such account", code: oerrors.CodeAccountNotFound},
	{marker: "unable to find businessadministrator", code: oerrors.CodeAccountNotFound},
	{marker: "connection attempted with invalid password", code: oerrors.CodeBadSecret},
	{marker: "invalid password", code: oerrors.CodeBadSecret},
	{marker: "invalid secret", code: oerrors.CodeBadSecret},
	{marker: "account disabled", code: oerrors.CodeAccountDisabled},
	{marker: "businessadministrator disabled", code: oerrors.CodeAccountDisabled},
}

// Classify maps a collaborator failure onto the login failure family or
// CodeTransport. Typed errors win over message matching.
func Classify(err error) oerrors.Code {
	if err == nil {
		return ""
	}

	var typed *oerrors.Error
	if errors.As(err, &typed) {
		switch typed.Code {
		case oerrors.CodeAccountNotFound, oerrors.CodeBadSecret, oerrors.CodeAccountDisabled:
			return typed.Code
		}
	}

	message := strings.ToLower(err.Error())
	for _, m := range failureMarkers {
		if strings.Contains(message, m.marker) {
			return m.code
		}
	}

	return oerrors.CodeTransport
}

// Translate wraps err into the caller-facing error for its class. The
// cause stays reachable through Unwrap.
func Translate(err error) *oerrors.Error {
	if err == nil {
		return nil
	}

	code := Classify(err)
	switch code {
	case oerrors.CodeAccountNotFound:
		return oerrors.Wrap(code, MessageAccountNotFound, err)
	case oerrors.CodeBadSecret:
		return oerrors.Wrap(code, MessageBadSecret, err)
	case oerrors.CodeAccountDisabled:
		return oerrors.Wrap(code, MessageAccountDisabled, err)
	default:
		return oerrors.Wrap(oerrors.CodeTransport, MessageTransport, err)
	}
}
