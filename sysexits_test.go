package main

import (
	"io"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/problame/forward-as-attachment-mta/arguments"
	"github.com/problame/forward-as-attachment-mta/parser"
	"github.com/problame/forward-as-attachment-mta/relay"
)

func TestExitCode(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"success", nil, ExOK},
		{"usage", &arguments.UsageError{Option: "-f"}, ExUsage},
		{"stdin read", &parser.MalformedInputError{Err: io.ErrUnexpectedEOF}, ExOSErr},
		{"auth rejected", &relay.AuthError{Err: errors.New("535 nope")}, ExNoPerm},
		{"temporary rejection", &relay.RejectedError{State: relay.StateSendingEnvelope, Code: 451, Message: "busy"}, ExTempFail},
		{"permanent rejection", &relay.RejectedError{State: relay.StateSendingData, Code: 550, Message: "denied"}, ExUnavailable},
		{"transport", &relay.TransportError{State: relay.StateConnecting, Err: errors.New("refused")}, ExTempFail},
		{"anything else", errors.New("wat"), ExSoftware},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, exitCode(tc.err))
		})
	}
}

func TestExitCodeSeesThroughWrapping(t *testing.T) {
	err := errors.Wrap(&relay.AuthError{Err: errors.New("535")}, "relay message")
	assert.Equal(t, ExNoPerm, exitCode(err))

	err = errors.Wrap(errors.Wrap(&arguments.UsageError{Option: "-C"}, "interpret argv"), "submit")
	assert.Equal(t, ExUsage, exitCode(err))
}
