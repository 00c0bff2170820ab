package wrapper

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"time"

	"github.com/emersion/go-message"
	"github.com/emersion/go-message/mail"
	"github.com/pkg/errors"

	"github.com/problame/forward-as-attachment-mta/arguments"
	"github.com/problame/forward-as-attachment-mta/config"
	"github.com/problame/forward-as-attachment-mta/models"
	"github.com/problame/forward-as-attachment-mta/parser"
	"github.com/problame/forward-as-attachment-mta/utils"
)

// Build assembles the outbound wrapper message. The envelope and the
// header From/To come from cfg and from nowhere else; nothing extracted
// from the original message may end up in either.
func Build(m *models.ParsedMail, args *arguments.SendmailArgs, cfg *config.Config, src *config.Source, id models.LocalIdentity, now time.Time) (*models.OutboundMail, error) {
	var h mail.Header
	h.SetDate(now)
	h.SetAddressList("From", []*mail.Address{{Address: cfg.SenderEmail}})
	h.SetAddressList("To", []*mail.Address{{Address: cfg.RecipientEmail}})
	h.SetSubject(Subject(args, m, id.Hostname))
	h.Set("Message-Id", fmt.Sprintf("<%s@%s>", utils.NewULID(), id.Hostname))
	h.Set("MIME-Version", "1.0")
	h.Set("X-Mailer", "forward-as-attachment-mta")
	h.SetContentType("multipart/mixed", nil)

	var buf bytes.Buffer
	mw, err := message.CreateWriter(&buf, h.Header)
	if err != nil {
		return nil, errors.Wrap(err, "create wrapper writer")
	}
	if err := writeTextPart(mw, report(args, src, id)); err != nil {
		return nil, err
	}
	if err := writeInlinePart(mw, m); err != nil {
		return nil, err
	}
	if err := writeRawAttachment(mw, m.Raw); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, errors.Wrap(err, "close wrapper writer")
	}

	return &models.OutboundMail{
		EnvelopeFrom: cfg.SenderEmail,
		EnvelopeTo:   cfg.RecipientEmail,
		Data:         buf.Bytes(),
	}, nil
}

func writeTextPart(mw *message.Writer, text string) error {
	var h message.Header
	h.SetContentType("text/plain", map[string]string{"charset": "utf-8"})
	h.Set("Content-Transfer-Encoding", "quoted-printable")
	pw, err := mw.CreatePart(h)
	if err != nil {
		return errors.Wrap(err, "create summary part")
	}
	if _, err := io.WriteString(pw, text); err != nil {
		_ = pw.Close()
		return errors.Wrap(err, "write summary part")
	}
	return errors.Wrap(pw.Close(), "close summary part")
}

// writeInlinePart embeds a copy of the original for the operator's
// convenience of not having to open the attachment.
//
// This is trickier than it looks: message/rfc822 parts only allow the
// identity transfer encodings 7bit, 8bit and binary. Re-encoding the part
// as quoted-printable or base64 renders as a broken attachment in Gmail
// and Apple Mail. So the original goes in verbatim when its bytes satisfy
// the line limits; when they do not, a re-encoded copy is attempted for
// plain text messages; anything else has to make do with the stdin.eml
// attachment, which is always present.
func writeInlinePart(mw *message.Writer, m *models.ParsedMail) error {
	if cte, ok := identityEncoding(m.Raw); ok {
		return writeRFC822(mw, cte, m.Raw)
	}
	if reEncoded, ok := reEncodeTextPlain(m); ok {
		return writeRFC822(mw, "binary", reEncoded)
	}
	return nil
}

func writeRFC822(mw *message.Writer, cte string, raw []byte) error {
	var h message.Header
	h.SetContentType("message/rfc822", nil)
	h.SetContentDisposition("inline", map[string]string{"filename": "original.eml"})
	if cte != "" {
		h.Set("Content-Transfer-Encoding", cte)
	}
	pw, err := mw.CreatePart(h)
	if err != nil {
		return errors.Wrap(err, "create inline part")
	}
	if _, err := pw.Write(raw); err != nil {
		_ = pw.Close()
		return errors.Wrap(err, "write inline part")
	}
	return errors.Wrap(pw.Close(), "close inline part")
}

// writeRawAttachment embeds the stdin bytes exactly as read. Stdin is not
// necessarily a correct message to begin with, so octet-stream is the
// honest label, and base64 survives every input.
func writeRawAttachment(mw *message.Writer, raw []byte) error {
	var h message.Header
	h.SetContentType("application/octet-stream", nil)
	h.SetContentDisposition("attachment", map[string]string{"filename": "stdin.eml"})
	h.Set("Content-Transfer-Encoding", "base64")
	pw, err := mw.CreatePart(h)
	if err != nil {
		return errors.Wrap(err, "create attachment part")
	}
	if _, err := pw.Write(raw); err != nil {
		_ = pw.Close()
		return errors.Wrap(err, "write attachment part")
	}
	return errors.Wrap(pw.Close(), "close attachment part")
}

// identityEncoding reports whether raw can travel inside a MIME part
// without re-encoding, and under which transfer encoding label. The limits
// are the SMTP line rules: no NUL octet, no line longer than 998 octets.
//
// 7bit content gets no label at all, which means 7bit per RFC 2045. 8bit
// content is labeled binary rather than 8bit: both are legal for
// message/rfc822 parts, and binary is the one identity encoding the MIME
// writer passes through without inserting its own line breaks.
func identityEncoding(raw []byte) (string, bool) {
	cte := ""
	rest := raw
	for len(rest) > 0 {
		var line []byte
		if i := bytes.IndexByte(rest, '\n'); i >= 0 {
			line, rest = rest[:i], rest[i+1:]
		} else {
			line, rest = rest, nil
		}
		line = bytes.TrimSuffix(line, []byte{'\r'})
		if len(line) > 998 {
			return "", false
		}
		for _, c := range line {
			if c == 0 {
				return "", false
			}
			if c >= 0x80 {
				cte = "binary"
			}
		}
	}
	return cte, true
}

// reEncodeTextPlain rebuilds a plain text original with a base64 body so
// the copy fits the 8bit limits: headers carried over in order, body
// decoded and re-encoded.
func reEncodeTextPlain(m *models.ParsedMail) ([]byte, bool) {
	if !m.Recognized {
		return nil, false
	}
	ctype, params := contentType(m)
	if ctype != "text/plain" {
		return nil, false
	}
	cte, _ := m.SingleValue("Content-Transfer-Encoding")
	decoded := parser.DecodeBody(bytes.NewReader(m.Body), params["charset"], cte)

	var h message.Header
	for i := len(m.Fields) - 1; i >= 0; i-- {
		h.Add(m.Fields[i].Name, m.Fields[i].Value)
	}
	h.SetContentType("text/plain", map[string]string{"charset": "utf-8"})
	h.Set("Content-Transfer-Encoding", "base64")

	var buf bytes.Buffer
	w, err := message.CreateWriter(&buf, h)
	if err != nil {
		return nil, false
	}
	if _, err := io.WriteString(w, decoded); err != nil {
		_ = w.Close()
		return nil, false
	}
	if err := w.Close(); err != nil {
		return nil, false
	}
	return buf.Bytes(), true
}

// contentType interprets the original Content-Type. A missing header
// means plain text, an unreadable or ambiguous one means unknown.
func contentType(m *models.ParsedMail) (string, map[string]string) {
	values := m.FieldValues("Content-Type")
	switch len(values) {
	case 0:
		return "text/plain", nil
	case 1:
		t, params, err := mime.ParseMediaType(values[0])
		if err != nil {
			return "", nil
		}
		return t, params
	default:
		return "", nil
	}
}
