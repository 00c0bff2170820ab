package arguments

import (
	"fmt"
	"strings"

	"github.com/storozhukBM/verifier"
)

// UsageError reports a structurally invalid command line. This is the only
// way sendmail argv interpretation can fail: unknown options are ignored so
// that callers written for other sendmail implementations keep working.
type UsageError struct {
	Option string
}

func (e *UsageError) Error() string {
	return fmt.Sprintf("option %s requires a value", e.Option)
}

// SendmailArgs is the interpreted sendmail-style argument vector. None of
// it ever feeds delivery targeting: the outbound envelope is fixed by
// configuration. It exists so that invocations by cron, smartd and friends
// never fail on option parsing, and so the wrapper can describe how it was
// called.
type SendmailArgs struct {
	// Raw is the argument vector exactly as invoked, argv[0] included.
	Raw []string
	// Recipients are the trailing positional addresses.
	Recipients []string
	// RecipientsFromHeaders is the -t mode: the caller wants recipients
	// taken from the To/Cc/Bcc headers of the message itself.
	RecipientsFromHeaders bool
	// EnvelopeFrom is the -f (or -r) value. Like the envelope recipients
	// it is display-only. Giving -f more than once clears it again.
	EnvelopeFrom    string
	EnvelopeFromSet bool
	// FullName is the -F value, e.g. cron passes -FCronDaemon.
	FullName string
	// IgnoreDots is -i / -oi. Stdin is read to EOF regardless, the flag is
	// tracked only to keep it out of Recipients.
	IgnoreDots bool
	// Verbose is -v and raises the log level.
	Verbose bool
}

// options that take a value, attached or as the following argument. The
// value itself is irrelevant here, but it must be swallowed so that it is
// not mistaken for a recipient address. cron on Debian, for example, calls
// sendmail with "-B 8BITMIME".
var takesValue = map[byte]bool{
	'B': true,
	'C': true,
	'F': true,
	'h': true,
	'L': true,
	'N': true,
	'O': true,
	'R': true,
	'V': true,
	'X': true,
	'f': true,
	'p': true,
	'r': true,
}

// Populate interprets argv in the classic sendmail dialect: single-dash
// options with attached or separate values, everything else a recipient.
func (args *SendmailArgs) Populate(argv []string) error {
	args.Raw = argv
	rest := argv
	if len(rest) > 0 {
		rest = rest[1:]
	}
	fromCount := 0
	for i := 0; i < len(rest); i++ {
		arg := rest[i]
		if arg == "--" {
			args.Recipients = append(args.Recipients, rest[i+1:]...)
			break
		}
		if len(arg) < 2 || arg[0] != '-' {
			args.Recipients = append(args.Recipients, arg)
			continue
		}
		switch {
		case arg == "-t":
			args.RecipientsFromHeaders = true
		case arg == "-i" || arg == "-oi":
			args.IgnoreDots = true
		case arg == "-v":
			args.Verbose = true
		case arg[1] == 'f' || arg[1] == 'r':
			value, consumed, err := optionValue(arg, rest[i:])
			if err != nil {
				return err
			}
			i += consumed
			fromCount++
			args.EnvelopeFrom = value
		case arg[1] == 'F':
			value, consumed, err := optionValue(arg, rest[i:])
			if err != nil {
				return err
			}
			i += consumed
			args.FullName = value
		case takesValue[arg[1]]:
			_, consumed, err := optionValue(arg, rest[i:])
			if err != nil {
				return err
			}
			i += consumed
		default:
			// -o..., -q..., -b... and anything we have never heard of:
			// accepted and ignored
		}
	}
	args.EnvelopeFromSet = fromCount == 1
	if !args.EnvelopeFromSet {
		args.EnvelopeFrom = ""
	}
	return nil
}

// optionValue returns the value of a value-taking option: the tail of the
// token when attached, otherwise the next argument. consumed reports how
// many extra arguments were used up.
func optionValue(arg string, rest []string) (value string, consumed int, err error) {
	if len(arg) > 2 {
		return arg[2:], 0, nil
	}
	if len(rest) < 2 {
		return "", 0, &UsageError{Option: arg}
	}
	return rest[1], 1, nil
}

func (args *SendmailArgs) Verify() error {
	v := verifier.New()
	v.That(len(args.Raw) > 0, "empty argument vector")
	v.That(!strings.ContainsAny(args.EnvelopeFrom, "\r\n"), "envelope sender contains a line break")
	v.That(!strings.ContainsAny(args.FullName, "\r\n"), "full name contains a line break")
	return v.GetError()
}
