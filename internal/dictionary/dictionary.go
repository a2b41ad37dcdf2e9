// Package dictionary implements the insertion-ordered string dictionary used to
// encode surface material ids as dense integer codes.
//
// The dictionary file holds one string per line; line N (zero based) is code N.
// Backslash, line feed and carriage return are written as \\, \n and \r so
// that every string fits on one line and reads back unchanged.
package dictionary

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ErrClosed is returned when a code is requested after Close.
var ErrClosed = errors.New("dictionary: encoder closed")

var (
	escaper   = strings.NewReplacer(`\`, `\\`, "\n", `\n`, "\r", `\r`)
	unescaper = strings.NewReplacer(`\\`, `\`, `\n`, "\n", `\r`, "\r")
)

// Encoder assigns codes to strings in first-seen order and appends each new
// string to its backing file. It is not safe for concurrent use.
type Encoder struct {
	path   string
	f      *os.File
	w      *bufio.Writer
	codes  map[string]int32
	closed bool
}

// Create truncates (or creates) the dictionary file at path.
func Create(path string) (*Encoder, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create dictionary: %w", err)
	}
	return &Encoder{
		path:  path,
		f:     f,
		w:     bufio.NewWriterSize(f, 64*1024),
		codes: make(map[string]int32),
	}, nil
}

// CodeFor returns the code for s, assigning the next code on first sight.
func (e *Encoder) CodeFor(s string) (int32, error) {
	if e.closed {
		return 0, ErrClosed
	}
	if code, ok := e.codes[s]; ok {
		return code, nil
	}
	code := int32(len(e.codes))
	if _, err := e.w.WriteString(escaper.Replace(s)); err != nil {
		return 0, fmt.Errorf("write dictionary: %w", err)
	}
	if err := e.w.WriteByte('\n'); err != nil {
		return 0, fmt.Errorf("write dictionary: %w", err)
	}
	e.codes[s] = code
	return code, nil
}

// Len returns the number of distinct strings seen so far.
func (e *Encoder) Len() int { return len(e.codes) }

// Path returns the backing file path.
func (e *Encoder) Path() string { return e.path }

// Close flushes and syncs the backing file. Calling Close twice is a no-op.
func (e *Encoder) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true
	if err := e.w.Flush(); err != nil {
		e.f.Close()
		return fmt.Errorf("flush dictionary: %w", err)
	}
	if err := e.f.Sync(); err != nil {
		e.f.Close()
		return fmt.Errorf("sync dictionary: %w", err)
	}
	return e.f.Close()
}

// Load reads a dictionary file back into code order.
func Load(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var entries []string
	r := bufio.NewReaderSize(f, 64*1024)
	for {
		line, err := r.ReadString('\n')
		if len(line) > 0 {
			entries = append(entries, unescaper.Replace(strings.TrimSuffix(line, "\n")))
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read dictionary: %w", err)
		}
	}
	return entries, nil
}
