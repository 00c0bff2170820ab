package relay

// State names the phases of one relay transaction. A transaction only
// ever moves forward; whatever fails records the state it failed in and
// the transaction is over.
type State int

const (
	StateConnecting State = iota
	StateTLSHandshake
	StateAuthenticating
	StateSendingEnvelope
	StateSendingData
	StateCompleted
	StateFailed
)

func (s State) String() string {
	return [...]string{
		"connecting",
		"tls-handshake",
		"authenticating",
		"sending-envelope",
		"sending-data",
		"completed",
		"failed",
	}[s]
}
