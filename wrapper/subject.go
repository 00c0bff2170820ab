package wrapper

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"

	"github.com/problame/forward-as-attachment-mta/arguments"
	"github.com/problame/forward-as-attachment-mta/models"
	"github.com/problame/forward-as-attachment-mta/parser"
)

// cron writes From headers like "root (Cron Daemon)", which address
// parsers reject
var cronFromRe = regexp.MustCompile(`(\S+) \(Cron Daemon\)`)

// Subject synthesizes the wrapper subject: who sent the original, on which
// host, and what it was about. It never fails, whatever the original
// message looks like.
func Subject(args *arguments.SendmailArgs, m *models.ParsedMail, hostname string) string {
	s := fmt.Sprintf("%s@%s: %s", senderDisplay(args, m), hostname, subjectSummary(m))
	return sanitizeHeaderText(s)
}

// senderDisplay describes the original sender from the envelope (-f) and
// the From header. The provenance markers stay visible so the operator
// can judge how trustworthy the value is; parentheses inside the values
// are escaped so they cannot fake a marker.
func senderDisplay(args *arguments.SendmailArgs, m *models.ParsedMail) string {
	var evlp, hdr string
	haveEvlp := args != nil && args.EnvelopeFromSet
	if haveEvlp {
		evlp = escapeParens(args.EnvelopeFrom)
	}
	hdr, haveHdr := headerFrom(m)
	if haveHdr {
		hdr = escapeParens(hdr)
	}
	switch {
	case haveEvlp && haveHdr && evlp == hdr:
		return fmt.Sprintf("evlp+hdr(%s)", evlp)
	case haveEvlp && haveHdr:
		return fmt.Sprintf("evlp(%s)+hdr(%s)", evlp, hdr)
	case haveEvlp:
		return fmt.Sprintf("evlp(%s)", evlp)
	case haveHdr:
		return fmt.Sprintf("hdr(%s)", hdr)
	default:
		return "???"
	}
}

// headerFrom extracts the address from an unambiguous From header.
func headerFrom(m *models.ParsedMail) (string, bool) {
	if !m.Recognized {
		return "", false
	}
	value, ok := m.SingleValue("From")
	if !ok {
		return "", false
	}
	decoded, err := parser.StringDecode(value)
	if err != nil {
		decoded = value
	}
	addr, err := mail.ParseAddress(decoded)
	if err == nil {
		return addr.Address, true
	}
	if match := cronFromRe.FindStringSubmatch(decoded); match != nil {
		return match[1], true
	}
	return "", false
}

// subjectSummary is the original Subject when there is exactly one,
// otherwise a placeholder saying why not.
func subjectSummary(m *models.ParsedMail) string {
	if !m.Recognized {
		return "(unparseable message)"
	}
	values := m.FieldValues("Subject")
	switch len(values) {
	case 0:
		return "(no subject)"
	case 1:
		decoded, err := parser.StringDecode(values[0])
		if err != nil {
			decoded = values[0]
		}
		if strings.TrimSpace(decoded) == "" {
			return "(no subject)"
		}
		return decoded
	default:
		return "(multiple Subject headers)"
	}
}

func escapeParens(s string) string {
	s = strings.ReplaceAll(s, "(", `\(`)
	return strings.ReplaceAll(s, ")", `\)`)
}

// sanitizeHeaderText keeps decoded original header content from smuggling
// line breaks into the wrapper header block.
func sanitizeHeaderText(s string) string {
	s = strings.ReplaceAll(s, "\r", "")
	return strings.ReplaceAll(s, "\n", " ")
}
