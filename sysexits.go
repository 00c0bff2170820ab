package main

import (
	"github.com/pkg/errors"

	"github.com/problame/forward-as-attachment-mta/arguments"
	"github.com/problame/forward-as-attachment-mta/parser"
	"github.com/problame/forward-as-attachment-mta/relay"
)

// Exit codes from sysexits.h. Mail daemons understand these: EX_TEMPFAIL
// tells a queueing caller it may try again later, everything else is
// final.
const (
	ExOK          = 0
	ExUsage       = 64
	ExUnavailable = 69
	ExSoftware    = 70
	ExOSErr       = 71
	ExIOErr       = 74
	ExTempFail    = 75
	ExNoPerm      = 77
	ExConfig      = 78
)

// exitCode classifies an error for the invoking daemon.
func exitCode(err error) int {
	if err == nil {
		return ExOK
	}
	var usage *arguments.UsageError
	if errors.As(err, &usage) {
		return ExUsage
	}
	var input *parser.MalformedInputError
	if errors.As(err, &input) {
		return ExOSErr
	}
	var auth *relay.AuthError
	if errors.As(err, &auth) {
		return ExNoPerm
	}
	var rejected *relay.RejectedError
	if errors.As(err, &rejected) {
		if rejected.Temporary() {
			return ExTempFail
		}
		return ExUnavailable
	}
	var transport *relay.TransportError
	if errors.As(err, &transport) {
		return ExTempFail
	}
	return ExSoftware
}
