// Package corpus loads newline-delimited corpora into memory as raw byte
// lines. Files ending in .gz, .zst/.zstd or .lz4 are decompressed on the
// fly; anything else is read as is.
package corpus

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

const readBufferSize = 1 << 20

// Open returns a reader over the decompressed content of path.
func Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening corpus %s: %w", path, err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz":
		zr, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("reading gzip header of %s: %w", path, err)
		}
		return &stackedCloser{Reader: zr, closers: []io.Closer{zr, f}}, nil
	case ".zst", ".zstd":
		zr, err := zstd.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("opening zstd stream of %s: %w", path, err)
		}
		rc := zr.IOReadCloser()
		return &stackedCloser{Reader: rc, closers: []io.Closer{rc, f}}, nil
	case ".lz4":
		return &stackedCloser{Reader: lz4.NewReader(f), closers: []io.Closer{f}}, nil
	default:
		return f, nil
	}
}

// ReadLines splits r into lines. The line terminator ("\n" or "\r\n") is
// removed, a final unterminated line is kept, and a trailing newline does not
// produce an empty last line.
func ReadLines(r io.Reader) ([][]byte, error) {
	br := bufio.NewReaderSize(r, readBufferSize)
	var lines [][]byte
	for {
		line, err := br.ReadBytes('\n')
		if len(line) > 0 {
			if line[len(line)-1] == '\n' {
				line = line[:len(line)-1]
				line = bytes.TrimSuffix(line, []byte{'\r'})
			}
			lines = append(lines, line)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return lines, nil
			}
			return nil, fmt.Errorf("reading lines: %w", err)
		}
	}
}

// Load reads every line of the file at path.
func Load(path string) ([][]byte, error) {
	rc, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	lines, err := ReadLines(rc)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return lines, nil
}

// LoadQueries reads the query corpus and folds ASCII letters to lower case.
func LoadQueries(path string) ([][]byte, error) {
	lines, err := Load(path)
	if err != nil {
		return nil, err
	}
	for _, line := range lines {
		FoldLower(line)
	}
	return lines, nil
}

// FoldLower lower-cases ASCII letters in place. Other bytes, including
// non-ASCII ones, are left untouched.
func FoldLower(b []byte) {
	for i, c := range b {
		if 'A' <= c && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
}

// stackedCloser closes a decoder chain innermost first.
type stackedCloser struct {
	io.Reader
	closers []io.Closer
}

func (s *stackedCloser) Close() error {
	var firstErr error
	for _, c := range s.closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
