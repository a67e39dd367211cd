// Package output writes the query→reference mapping as a tab-separated file.
// Rows go to a temporary file next to the destination, which is renamed into
// place only after everything is written and synced, so a failed run never
// leaves a truncated file under the final name.
//
// Fields are written as raw bytes except for tabs inside a field, which
// become spaces so every row keeps exactly two columns.
package output

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
)

// Header is the first line of every mapping file.
const Header = "query\treference\n"

// Writer stages a mapping file until Commit.
type Writer struct {
	finalPath string
	tmp       *os.File
	buf       *bufio.Writer
	done      bool
}

// Create opens the temporary file for path. Calling it before any heavy
// processing surfaces an unwritable destination early.
func Create(path string) (*Writer, error) {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return nil, fmt.Errorf("output %s is a directory", path)
	}
	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	tmp, err := os.CreateTemp(dir, "."+base+".*.tmp")
	if err != nil {
		return nil, fmt.Errorf("creating temp output for %s: %w", path, err)
	}
	w := &Writer{
		finalPath: path,
		tmp:       tmp,
		buf:       bufio.NewWriterSize(tmp, 1<<20),
	}
	if _, err := w.buf.WriteString(Header); err != nil {
		w.Abort()
		return nil, fmt.Errorf("writing header: %w", err)
	}
	return w, nil
}

// WriteRow appends one query and its reference; reference may be empty.
func (w *Writer) WriteRow(query []byte, reference string) error {
	if err := w.writeField(query); err != nil {
		return fmt.Errorf("writing row: %w", err)
	}
	if err := w.buf.WriteByte('\t'); err != nil {
		return fmt.Errorf("writing row: %w", err)
	}
	if err := w.writeField([]byte(reference)); err != nil {
		return fmt.Errorf("writing row: %w", err)
	}
	if err := w.buf.WriteByte('\n'); err != nil {
		return fmt.Errorf("writing row: %w", err)
	}
	return nil
}

func (w *Writer) writeField(field []byte) error {
	for len(field) > 0 {
		i := bytes.IndexByte(field, '\t')
		if i < 0 {
			_, err := w.buf.Write(field)
			return err
		}
		if _, err := w.buf.Write(field[:i]); err != nil {
			return err
		}
		if err := w.buf.WriteByte(' '); err != nil {
			return err
		}
		field = field[i+1:]
	}
	return nil
}

// WriteAll writes one row per query, in order.
func (w *Writer) WriteAll(queries [][]byte, references []string) error {
	if len(queries) != len(references) {
		return fmt.Errorf("writing mapping: %d queries but %d references", len(queries), len(references))
	}
	for i, q := range queries {
		if err := w.WriteRow(q, references[i]); err != nil {
			return err
		}
	}
	return nil
}

// Commit flushes, syncs and renames the staged file to its final path.
func (w *Writer) Commit() error {
	if w.done {
		return fmt.Errorf("output %s already finalised", w.finalPath)
	}
	if err := w.buf.Flush(); err != nil {
		w.Abort()
		return fmt.Errorf("flushing output: %w", err)
	}
	if err := w.tmp.Chmod(0o644); err != nil {
		w.Abort()
		return fmt.Errorf("setting output permissions: %w", err)
	}
	if err := w.tmp.Sync(); err != nil {
		w.Abort()
		return fmt.Errorf("syncing output: %w", err)
	}
	if err := w.tmp.Close(); err != nil {
		w.Abort()
		return fmt.Errorf("closing output: %w", err)
	}
	if err := os.Rename(w.tmp.Name(), w.finalPath); err != nil {
		os.Remove(w.tmp.Name())
		w.done = true
		return fmt.Errorf("renaming output into place: %w", err)
	}
	w.done = true
	return nil
}

// Abort discards the staged file. It is a no-op after Commit.
func (w *Writer) Abort() {
	if w.done {
		return
	}
	w.done = true
	w.tmp.Close()
	os.Remove(w.tmp.Name())
}
