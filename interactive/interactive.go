// Package interactive provides line-oriented terminal input for the chat
// service: a prompted read loop plus a bare one-line read used by the
// continuation gate.
package interactive

import "errors"

// ErrInterrupted is returned when the user cancels the pending read.
var ErrInterrupted = errors.New("interrupted")

// Session is a line-oriented terminal. Reads are strictly sequential; a
// Session is owned by a single chat loop.
type Session interface {
	// ReadLine displays prompt and returns one line of input without the
	// trailing newline. io.EOF signals the terminal was closed.
	ReadLine(prompt string) (string, error)

	// ReadRaw reads one line without printing any prompt, for callers that
	// have already written their own.
	ReadRaw() (string, error)

	Close() error
}
