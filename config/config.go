package config

import (
	"net"
	"net/mail"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/pkg/errors"
	"github.com/storozhukBM/verifier"
)

// DefaultPath is where the packaged configuration file lives.
const DefaultPath = "/etc/forward-as-attachment-mta.config.toml"

// Config is the relay configuration. Everything that decides where mail
// goes lives here; nothing from the sendmail invocation may override it.
type Config struct {
	SenderEmail        string `toml:"sender_email" env:"FORWARD_AS_ATTACHMENT_MTA_SENDER_EMAIL"`
	RecipientEmail     string `toml:"recipient_email" env:"FORWARD_AS_ATTACHMENT_MTA_RECIPIENT_EMAIL"`
	SMTPHost           string `toml:"smtp_host" env:"FORWARD_AS_ATTACHMENT_MTA_SMTP_HOST"`
	SMTPUsername       string `toml:"smtp_username" env:"FORWARD_AS_ATTACHMENT_MTA_SMTP_USERNAME"`
	SMTPPassword       string `toml:"smtp_password" env:"FORWARD_AS_ATTACHMENT_MTA_SMTP_PASSWORD"`
	SMTPTimeoutSeconds int    `toml:"smtp_timeout_seconds" env:"FORWARD_AS_ATTACHMENT_MTA_SMTP_TIMEOUT_SECONDS" env-default:"30"`
	MetricsGateway     string `toml:"metrics_gateway" env:"FORWARD_AS_ATTACHMENT_MTA_METRICS_GATEWAY"`
}

// Source records where the configuration was read from, so that the
// wrapper body can warn about too-lax permissions on a file that holds
// SMTP credentials.
type Source struct {
	Path      string
	Mode      os.FileMode
	ModeKnown bool
}

// TooLax reports whether anyone besides the owner may read or write the
// config file.
func (s Source) TooLax() bool {
	return s.ModeKnown && s.Mode.Perm()&0077 != 0
}

// Load reads the configuration file at path, applies environment variable
// overrides, and verifies the result. The file is required: a shim whose
// configuration is missing must fail before it reads stdin.
func Load(path string) (*Config, *Source, error) {
	cfg := new(Config)
	src := &Source{Path: path}
	if err := cleanenv.ReadConfig(path, cfg); err != nil {
		return nil, nil, errors.Wrapf(err, "read config %q", path)
	}
	if fi, err := os.Stat(path); err == nil {
		src.Mode = fi.Mode()
		src.ModeKnown = true
	}
	if err := cfg.Verify(); err != nil {
		return nil, nil, errors.Wrapf(err, "verify config %q", path)
	}
	return cfg, src, nil
}

func (c *Config) Verify() error {
	v := verifier.New()
	v.That(len(c.SenderEmail) > 0, "sender_email is empty")
	v.That(len(c.RecipientEmail) > 0, "recipient_email is empty")
	v.That(len(c.SMTPHost) > 0, "smtp_host is empty")
	v.That(len(c.SMTPUsername) > 0, "smtp_username is empty")
	v.That(len(c.SMTPPassword) > 0, "smtp_password is empty")
	v.That(c.SMTPTimeoutSeconds > 0, "smtp_timeout_seconds must be positive")
	if err := v.GetError(); err != nil {
		return err
	}
	_, err := mail.ParseAddress(c.SenderEmail)
	v.That(err == nil, "sender_email %q is not an address", c.SenderEmail)
	_, err = mail.ParseAddress(c.RecipientEmail)
	v.That(err == nil, "recipient_email %q is not an address", c.RecipientEmail)
	return v.GetError()
}

// HostPort splits smtp_host into host and port, defaulting to the mail
// submission port.
func (c *Config) HostPort() (host, port string) {
	host, port, err := net.SplitHostPort(c.SMTPHost)
	if err != nil {
		return c.SMTPHost, "587"
	}
	return host, port
}

// Timeout is the deadline for the whole relay transaction.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.SMTPTimeoutSeconds) * time.Second
}
