// Package column writes fixed-width little-endian integer columns.
//
// A column file is a plain sequence of 2 or 4 byte values with no header, so
// a reader can address cell i at byte offset i*width.
package column

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
)

// Width is the size in bytes of one value.
type Width int

const (
	Int16 Width = 2
	Int32 Width = 4
)

// DefaultBufferCells is the number of values buffered before a flush.
const DefaultBufferCells = 8192

// ErrWidth is returned when a value is written with the wrong width.
var ErrWidth = errors.New("column: value width does not match column")

// Writer appends values through a fixed-size buffer. Append-only, single pass,
// not safe for concurrent use.
type Writer struct {
	path  string
	f     *os.File
	width Width
	buf   []byte
	n     int
	count int64
}

// Create truncates (or creates) the column file at path. bufferCells <= 0
// selects DefaultBufferCells.
func Create(path string, width Width, bufferCells int) (*Writer, error) {
	if width != Int16 && width != Int32 {
		return nil, fmt.Errorf("column: unsupported width %d", width)
	}
	if bufferCells <= 0 {
		bufferCells = DefaultBufferCells
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create column: %w", err)
	}
	return &Writer{
		path:  path,
		f:     f,
		width: width,
		buf:   make([]byte, int(width)*bufferCells),
	}, nil
}

// PutInt32 appends one 32-bit value.
func (w *Writer) PutInt32(v int32) error {
	if w.width != Int32 {
		return ErrWidth
	}
	if err := w.reserve(4); err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(w.buf[w.n:], uint32(v))
	w.n += 4
	w.count++
	return nil
}

// PutInt16 appends one 16-bit value.
func (w *Writer) PutInt16(v int16) error {
	if w.width != Int16 {
		return ErrWidth
	}
	if err := w.reserve(2); err != nil {
		return err
	}
	binary.LittleEndian.PutUint16(w.buf[w.n:], uint16(v))
	w.n += 2
	w.count++
	return nil
}

// reserve flushes when the buffer cannot hold size more bytes.
func (w *Writer) reserve(size int) error {
	if w.f == nil {
		return os.ErrClosed
	}
	if len(w.buf)-w.n < size {
		return w.flush()
	}
	return nil
}

func (w *Writer) flush() error {
	if w.n == 0 {
		return nil
	}
	if _, err := w.f.Write(w.buf[:w.n]); err != nil {
		return fmt.Errorf("write column %s: %w", w.path, err)
	}
	w.n = 0
	return nil
}

// Count returns the number of values written so far.
func (w *Writer) Count() int64 { return w.count }

// Width returns the value width.
func (w *Writer) Width() Width { return w.width }

// Path returns the column file path.
func (w *Writer) Path() string { return w.path }

// Close flushes the buffer, syncs the file to stable storage and closes it.
func (w *Writer) Close() error {
	if w.f == nil {
		return nil
	}
	err := w.flush()
	f := w.f
	w.f = nil
	if err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("sync column %s: %w", w.path, err)
	}
	return f.Close()
}
