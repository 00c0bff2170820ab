package parser

import "fmt"

// MalformedInputError reports that stdin could not be read at all. Note
// what it does not cover: content. Any byte sequence that does arrive is
// a valid original message.
type MalformedInputError struct {
	Err error
}

func (e *MalformedInputError) Error() string {
	return fmt.Sprintf("read original message: %s", e.Err)
}

func (e *MalformedInputError) Unwrap() error { return e.Err }
