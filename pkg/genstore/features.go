package genstore

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
)

// FeatureRef locates one record of the feature file.
type FeatureRef struct {
	Line   int   // zero-based record number
	Offset int64 // byte offset of the line
}

// FeatureReader is a lazy, forward-only cursor over the feature file. Only
// the current line is decoded. A line that is not valid JSON yields an empty
// Feature instead of ending the sequence.
//
// To start over, open a new reader. A FeatureReader is not safe for
// concurrent use.
//
// Example:
//
//	r, err := store.Features()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer r.Close()
//	for r.Next() {
//	    f := r.Feature()
//	    fmt.Println(f.Key(), f.Tag("name"))
//	}
//	if err := r.Err(); err != nil {
//	    log.Fatal(err)
//	}
type FeatureReader struct {
	c    io.Closer // nil when the reader does not own its source
	r    *bufio.Reader
	cur  Feature
	ref  FeatureRef
	next int64
	line int
	err  error
	done bool
}

// OpenFeatureReader opens a feature file for sequential reading.
func OpenFeatureReader(path string) (*FeatureReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open feature file: %w", err)
	}
	r := newFeatureReader(f)
	r.c = f
	return r, nil
}

func newFeatureReader(src io.Reader) *FeatureReader {
	return &FeatureReader{
		r:    bufio.NewReaderSize(src, 64*1024),
		line: -1,
	}
}

// Next advances to the next record. It returns false at the end of the file,
// on a read error (see Err) or after Close.
func (r *FeatureReader) Next() bool {
	if r.done {
		return false
	}
	line, err := r.r.ReadBytes('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		r.err = fmt.Errorf("read feature file: %w", err)
		r.done = true
		return false
	}
	if len(line) == 0 {
		r.done = true
		return false
	}

	r.line++
	r.ref = FeatureRef{Line: r.line, Offset: r.next}
	r.next += int64(len(line))
	r.cur = decodeFeature(bytes.TrimRight(line, "\r\n"))
	return true
}

// Feature returns the current record.
func (r *FeatureReader) Feature() Feature { return r.cur }

// Ref returns the location of the current record.
func (r *FeatureReader) Ref() FeatureRef { return r.ref }

// Err returns the first read error, if any.
func (r *FeatureReader) Err() error { return r.err }

// All returns an iterator over the remaining records keyed by record number.
// Check Err after the loop.
func (r *FeatureReader) All() iter.Seq2[int, Feature] {
	return func(yield func(int, Feature) bool) {
		for r.Next() {
			if !yield(r.ref.Line, r.cur) {
				return
			}
		}
	}
}

// Close releases the file. Safe to call more than once.
func (r *FeatureReader) Close() error {
	r.done = true
	if r.c == nil {
		return nil
	}
	c := r.c
	r.c = nil
	return c.Close()
}

// readFeatureAt decodes the single line starting at off.
func readFeatureAt(f io.ReaderAt, off int64) (Feature, error) {
	br := bufio.NewReader(io.NewSectionReader(f, off, 1<<62))
	line, err := br.ReadBytes('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return Feature{}, fmt.Errorf("read feature at %d: %w", off, err)
	}
	if len(line) == 0 {
		return Feature{}, fmt.Errorf("read feature at %d: %w", off, io.ErrUnexpectedEOF)
	}
	return decodeFeature(bytes.TrimRight(line, "\r\n")), nil
}
