package models

import (
	"strings"
)

// HeaderField is one recognized header of the original message. Name keeps
// the original casing, Value is the unfolded value without the line break.
type HeaderField struct {
	Name  string
	Value string
}

// ParsedMail is the structured view of the message read from stdin.
//
// Raw always holds the stdin bytes untouched. Everything that ends up
// embedded in the wrapper message is taken from Raw, never re-serialized
// from Fields, so a half-recognized message still round-trips exactly.
type ParsedMail struct {
	// Raw is the complete original byte stream.
	Raw []byte
	// Fields are the headers recognized at the top of Raw, in order.
	Fields []HeaderField
	// Body is everything after the header block. When header recognition
	// stopped early, Body starts at the first unrecognizable line.
	Body []byte
	// Recognized reports whether the whole header block scanned cleanly
	// up to a blank separator line or EOF.
	Recognized bool
}

// FieldValues returns the values of all fields called name, in original
// order. Field names compare case-insensitively.
func (m *ParsedMail) FieldValues(name string) []string {
	var values []string
	for _, f := range m.Fields {
		if strings.EqualFold(f.Name, name) {
			values = append(values, f.Value)
		}
	}
	return values
}

// SingleValue returns the value of the field called name if it occurs
// exactly once.
func (m *ParsedMail) SingleValue(name string) (string, bool) {
	values := m.FieldValues(name)
	if len(values) != 1 {
		return "", false
	}
	return values[0], true
}

// OutboundMail is the assembled wrapper message together with its SMTP
// envelope. The envelope addresses come from the relay configuration and
// from nowhere else.
type OutboundMail struct {
	EnvelopeFrom string
	EnvelopeTo   string
	Data         []byte
}
