// Package input reads message text supplied on stdin.
package input

import (
	"bufio"
	"errors"
	"io"
	"os"
	"strings"
)

// StdinArg is the message argument that means "read the message from stdin"
const StdinArg = "-"

// Reader is an interface for reading user input
type Reader interface {
	ReadString(delim byte) (string, error)
}

// StdinReader wraps bufio.Reader for os.Stdin
type StdinReader struct {
	reader *bufio.Reader
}

// NewStdinReader creates a new StdinReader
func NewStdinReader() *StdinReader {
	return &StdinReader{
		reader: bufio.NewReader(os.Stdin),
	}
}

// ReadString reads until delimiter
func (r *StdinReader) ReadString(delim byte) (string, error) {
	return r.reader.ReadString(delim)
}

// StringReader is a simple reader for testing.
// Each input string should already include the delimiter that will be used
// in ReadString calls (e.g., "yes\n" for newline delimiter).
type StringReader struct {
	inputs []string
	index  int
}

// NewStringReader creates a reader from strings.
// Each input string should include the expected delimiter.
func NewStringReader(inputs ...string) *StringReader {
	return &StringReader{inputs: inputs}
}

// ReadString returns the next pre-configured string.
// Returns io.EOF when all inputs have been consumed.
// Note: The delim parameter is ignored; inputs should already include delimiters.
func (r *StringReader) ReadString(delim byte) (string, error) {
	if r.index >= len(r.inputs) {
		return "", io.EOF
	}
	result := r.inputs[r.index]
	r.index++
	return result, nil
}

// ReadAll drains r, keeping a final line without a trailing newline
func ReadAll(r Reader) (string, error) {
	var sb strings.Builder
	for {
		line, err := r.ReadString('\n')
		sb.WriteString(line)
		if errors.Is(err, io.EOF) {
			return sb.String(), nil
		}
		if err != nil {
			return sb.String(), err
		}
	}
}

// Message joins args into the message text. A single "-" argument reads
// the text from r instead. Surrounding whitespace is trimmed.
func Message(args []string, r Reader) (string, error) {
	if len(args) == 1 && args[0] == StdinArg {
		text, err := ReadAll(r)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(text), nil
	}
	return strings.TrimSpace(strings.Join(args, " ")), nil
}
