package parser

import (
	"bytes"

	"github.com/problame/forward-as-attachment-mta/models"
)

// Parse scans raw into a ParsedMail. It cannot fail: whatever prefix of
// raw reads as an RFC 5322 header block becomes Fields, and the rest stays
// in Body untouched. Header recognition stops at the first line that is
// neither a field, a continuation, nor the blank separator; from there on
// the remainder is body bytes and Recognized reports false. Embedding
// always works off Raw, so nothing is lost either way.
func Parse(raw []byte) *models.ParsedMail {
	m := &models.ParsedMail{Raw: raw, Recognized: true}
	rest := raw
	for len(rest) > 0 {
		line, next := cutLine(rest)
		if isBlank(line) {
			rest = next
			break
		}
		if isContinuation(line) {
			if len(m.Fields) == 0 {
				m.Recognized = false
				break
			}
			f := &m.Fields[len(m.Fields)-1]
			f.Value = f.Value + " " + string(bytes.Trim(trimEOL(line), " \t"))
			rest = next
			continue
		}
		name, value, ok := splitField(trimEOL(line))
		if !ok {
			m.Recognized = false
			break
		}
		m.Fields = append(m.Fields, models.HeaderField{Name: name, Value: value})
		rest = next
	}
	m.Body = rest
	return m
}

// cutLine splits off the first line including its terminator. Both CRLF
// and bare LF count: local producers pipe us either.
func cutLine(b []byte) (line, rest []byte) {
	i := bytes.IndexByte(b, '\n')
	if i < 0 {
		return b, nil
	}
	return b[:i+1], b[i+1:]
}

func trimEOL(line []byte) []byte {
	line = bytes.TrimSuffix(line, []byte("\n"))
	line = bytes.TrimSuffix(line, []byte("\r"))
	return line
}

func isBlank(line []byte) bool {
	return len(trimEOL(line)) == 0
}

func isContinuation(line []byte) bool {
	return len(line) > 0 && (line[0] == ' ' || line[0] == '\t')
}

// splitField splits "Name: value" at the first colon. A field name is one
// or more printable US-ASCII characters, colon excluded.
func splitField(line []byte) (name, value string, ok bool) {
	i := bytes.IndexByte(line, ':')
	if i <= 0 {
		return "", "", false
	}
	for _, c := range line[:i] {
		if c <= ' ' || c >= 127 {
			return "", "", false
		}
	}
	return string(line[:i]), string(bytes.Trim(line[i+1:], " \t")), true
}
