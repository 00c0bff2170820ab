package relay

import (
	"fmt"
	"net/textproto"

	"github.com/pkg/errors"
)

// TransportError is connection, deadline, TLS or protocol trouble while
// talking to the relay. Trying again later may well work, but that is the
// invoking scheduler's business, not ours.
type TransportError struct {
	State State
	Err   error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("relay transport failed while %s: %s", e.State, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Timeout reports whether the underlying failure was a deadline.
func (e *TransportError) Timeout() bool {
	var t interface{ Timeout() bool }
	if errors.As(e.Err, &t) {
		return t.Timeout()
	}
	return false
}

// AuthError means the relay rejected our credentials. The transaction
// ends here: no envelope command is ever issued after a failed AUTH.
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("relay rejected authentication: %s", e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// RejectedError means the relay answered the transaction itself with an
// SMTP failure code.
type RejectedError struct {
	State   State
	Code    int
	Message string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("relay rejected message while %s: %d %s", e.State, e.Code, e.Message)
}

// Temporary reports whether the rejection was a transient 4xx. Transient
// failures are reported, never retried in-process: the tool is one-shot.
func (e *RejectedError) Temporary() bool {
	return e.Code >= 400 && e.Code < 500
}

// classify turns a client error into the typed error for the state it
// happened in. The SMTP client surfaces status responses as
// *textproto.Error; everything else is transport trouble.
func classify(state State, err error) error {
	var tpErr *textproto.Error
	switch state {
	case StateAuthenticating:
		if errors.As(err, &tpErr) {
			return &AuthError{Err: err}
		}
	case StateSendingEnvelope, StateSendingData:
		if errors.As(err, &tpErr) {
			return &RejectedError{State: state, Code: tpErr.Code, Message: tpErr.Msg}
		}
	}
	return &TransportError{State: state, Err: err}
}

// FailedState reports the transaction state an error from Send or Probe
// happened in, StateFailed for foreign errors.
func FailedState(err error) State {
	var transport *TransportError
	if errors.As(err, &transport) {
		return transport.State
	}
	var auth *AuthError
	if errors.As(err, &auth) {
		return StateAuthenticating
	}
	var rejected *RejectedError
	if errors.As(err, &rejected) {
		return rejected.State
	}
	return StateFailed
}
