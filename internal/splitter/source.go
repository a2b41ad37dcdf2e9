package splitter

import (
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/klauspost/compress/zstd"
)

// openSource opens the source document, decompressing .zst files on the fly.
func openSource(path string) (io.Reader, func() error, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	if !strings.HasSuffix(strings.ToLower(path), ".zst") {
		return f, f.Close, nil
	}
	dec, err := zstd.NewReader(f)
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	return dec, func() error {
		dec.Close()
		return f.Close()
	}, nil
}

// readIntLoose reads a number leniently: numbers are rounded, numeric strings
// are parsed, anything else is skipped and read as 0.
func readIntLoose(it *jsoniter.Iterator) int64 {
	switch it.WhatIsNext() {
	case jsoniter.NumberValue:
		f := math.Round(it.ReadFloat64())
		switch {
		case math.IsNaN(f):
			return 0
		case f > math.MaxInt32:
			return math.MaxInt32
		case f < math.MinInt32:
			return math.MinInt32
		}
		return int64(f)
	case jsoniter.StringValue:
		n, err := strconv.ParseInt(strings.TrimSpace(it.ReadString()), 10, 32)
		if err != nil {
			return 0
		}
		return n
	default:
		it.Skip()
		return 0
	}
}

// readMaterial reads one material id; null and non-scalar values become "".
func readMaterial(it *jsoniter.Iterator) string {
	switch it.WhatIsNext() {
	case jsoniter.StringValue:
		return it.ReadString()
	case jsoniter.NumberValue:
		return string(it.ReadNumber())
	case jsoniter.NilValue:
		it.ReadNil()
		return ""
	default:
		it.Skip()
		return ""
	}
}
