package relay

import (
	"crypto/tls"
	"net"
	"time"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
	"github.com/inconshreveable/log15"
	"github.com/pkg/errors"

	"github.com/problame/forward-as-attachment-mta/config"
	"github.com/problame/forward-as-attachment-mta/models"
)

// Client performs one SMTP submission over STARTTLS. One Client, one
// transaction: connect, upgrade, authenticate, send, quit.
type Client struct {
	Config *config.Config
	Logger log15.Logger
	// Hello is the name announced in EHLO, normally the local hostname.
	Hello string
	// TLSConfig overrides the STARTTLS client configuration. Leave nil
	// for standard certificate verification against the relay host name.
	TLSConfig *tls.Config
}

// Result describes an accepted transaction.
type Result struct {
	State    State
	Duration time.Duration
}

// Send relays msg in a single transaction. Errors are *TransportError,
// *AuthError or *RejectedError, each carrying the state it happened in.
func (c *Client) Send(msg *models.OutboundMail) (*Result, error) {
	start := time.Now()
	session, err := c.connect()
	if err != nil {
		return nil, err
	}
	defer session.close()

	state := StateSendingEnvelope
	if err := session.client.Mail(msg.EnvelopeFrom); err != nil {
		return nil, classify(state, errors.Wrap(err, "MAIL FROM"))
	}
	if err := session.client.Rcpt(msg.EnvelopeTo); err != nil {
		return nil, classify(state, errors.Wrap(err, "RCPT TO"))
	}

	state = StateSendingData
	w, err := session.client.Data()
	if err != nil {
		return nil, classify(state, errors.Wrap(err, "DATA"))
	}
	if _, err := w.Write(msg.Data); err != nil {
		_ = w.Close()
		return nil, classify(state, errors.Wrap(err, "write DATA"))
	}
	if err := w.Close(); err != nil {
		return nil, classify(state, errors.Wrap(err, "finish DATA"))
	}

	res := &Result{State: StateCompleted, Duration: time.Since(start)}
	c.Logger.Debug("Relay accepted the message", "elapsed", res.Duration)
	return res, nil
}

// Probe runs the connection, STARTTLS and AUTH phases and quits without
// sending mail. Exercised by check --probe.
func (c *Client) Probe() error {
	session, err := c.connect()
	if err != nil {
		return err
	}
	session.close()
	return nil
}

type session struct {
	conn   net.Conn
	client *smtp.Client
}

func (s *session) close() {
	_ = s.client.Quit()
	_ = s.conn.Close()
}

// connect dials the relay and walks the transaction up to the point where
// envelope commands may be issued. A failed AUTH aborts here, before any
// MAIL FROM.
func (c *Client) connect() (*session, error) {
	host, port := c.Config.HostPort()
	addr := net.JoinHostPort(host, port)
	timeout := c.Config.Timeout()

	state := StateConnecting
	c.Logger.Debug("Dialing relay", "addr", addr, "timeout", timeout)
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, classify(state, errors.Wrap(err, "dial"))
	}
	// one deadline for the entire transaction, never unbounded
	if err := conn.SetDeadline(time.Now().Add(timeout)); err != nil {
		_ = conn.Close()
		return nil, classify(state, errors.Wrap(err, "set deadline"))
	}
	client, err := smtp.NewClient(conn, host)
	if err != nil {
		_ = conn.Close()
		return nil, classify(state, errors.Wrap(err, "greeting"))
	}
	s := &session{conn: conn, client: client}

	hello := c.Hello
	if hello == "" {
		hello = "localhost"
	}
	if err := client.Hello(hello); err != nil {
		s.close()
		return nil, classify(state, errors.Wrap(err, "EHLO"))
	}

	state = StateTLSHandshake
	if ok, _ := client.Extension("STARTTLS"); !ok {
		s.close()
		return nil, &TransportError{State: state, Err: errors.New("relay does not offer STARTTLS")}
	}
	tlsConfig := c.TLSConfig
	if tlsConfig == nil {
		tlsConfig = &tls.Config{ServerName: host}
	}
	if err := client.StartTLS(tlsConfig); err != nil {
		s.close()
		return nil, classify(state, errors.Wrap(err, "STARTTLS"))
	}

	state = StateAuthenticating
	if ok, _ := client.Extension("AUTH"); !ok {
		s.close()
		return nil, &TransportError{State: state, Err: errors.New("relay does not offer AUTH")}
	}
	err = client.Auth(sasl.NewPlainClient("", c.Config.SMTPUsername, c.Config.SMTPPassword))
	if err != nil {
		s.close()
		return nil, classify(state, errors.Wrap(err, "AUTH"))
	}

	return s, nil
}
