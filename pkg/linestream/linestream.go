// Package linestream exposes a forward-only "next logical line" cursor over
// text or raw byte input.
//
// Two strategies exist and are selected once, at construction:
//
//   - text input (FromString): NextLine trims each line and reports a line that
//     trims to empty as end of input, even though later lines stay reachable
//     through further calls. NextLineNoTrim removes only the line terminator and
//     keeps empty lines.
//   - byte input (FromBytes): carriage returns are dropped, empty lines are
//     returned as "", and NextLineNoTrim behaves exactly like NextLine.
//
// Callers that must see every line of text input use NextLineNoTrim.
package linestream

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupportedSource is returned by New for inputs that are neither text nor bytes.
var ErrUnsupportedSource = errors.New("unsupported line source")

// Stream is a single-pass line cursor. The boolean result is false once the
// cursor has passed the end of the input.
type Stream interface {
	NextLine() (string, bool)
	NextLineNoTrim() (string, bool)
}

// New selects the strategy for src, which must be a string or a []byte.
func New(src any) (Stream, error) {
	switch v := src.(type) {
	case string:
		return FromString(v), nil
	case []byte:
		return FromBytes(v), nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedSource, src)
	}
}

// FromString returns a Stream over text.
func FromString(s string) Stream {
	return &textStream{data: s}
}

// FromBytes returns a Stream over a byte buffer. Bytes are read as UTF-8.
func FromBytes(b []byte) Stream {
	return &byteStream{data: b}
}

// Lines drains s with NextLineNoTrim.
func Lines(s Stream) []string {
	var lines []string
	for {
		line, ok := s.NextLineNoTrim()
		if !ok {
			return lines
		}
		lines = append(lines, line)
	}
}

type textStream struct {
	data string
	pos  int
}

// advance returns the raw line at the cursor, without its '\n', and moves past it.
func (s *textStream) advance() (string, bool) {
	if s.pos >= len(s.data) {
		return "", false
	}
	rest := s.data[s.pos:]
	if i := strings.IndexByte(rest, '\n'); i >= 0 {
		s.pos += i + 1
		return rest[:i], true
	}
	s.pos = len(s.data)
	return rest, true
}

func (s *textStream) NextLine() (string, bool) {
	line, ok := s.advance()
	if !ok {
		return "", false
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return "", false
	}
	return line, true
}

func (s *textStream) NextLineNoTrim() (string, bool) {
	line, ok := s.advance()
	if !ok {
		return "", false
	}
	return strings.TrimSuffix(line, "\r"), true
}

type byteStream struct {
	data []byte
	pos  int
}

func (s *byteStream) NextLine() (string, bool) {
	if s.pos >= len(s.data) {
		return "", false
	}
	var sb strings.Builder
	for s.pos < len(s.data) {
		c := s.data[s.pos]
		s.pos++
		if c == '\n' {
			break
		}
		if c != '\r' {
			sb.WriteByte(c)
		}
	}
	return sb.String(), true
}

func (s *byteStream) NextLineNoTrim() (string, bool) {
	return s.NextLine()
}
