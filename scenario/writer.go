package scenario

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/rustyeddy/simcube/dates"
)

// Header column names used by Writer and Reader.
const (
	DateColumn      = "Date"
	NumeraireColumn = "Numeraire"
)

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithSeparator sets the field separator (default ',').
func WithSeparator(sep rune) WriterOption {
	return func(w *Writer) { w.sep = sep }
}

// WithHeader controls whether the first write to an empty file emits a
// header row (default true).
func WithHeader(on bool) WriterOption {
	return func(w *Writer) { w.header = on }
}

// WithNumeraire adds a numeraire column right after the date.
func WithNumeraire(on bool) WriterOption {
	return func(w *Writer) { w.numeraire = on }
}

// WithAppend appends to an existing file instead of truncating it. Reset
// keeps earlier rows too.
func WithAppend(on bool) WriterOption {
	return func(w *Writer) { w.appendMode = on }
}

// Writer is a Generator that passes scenarios from its source through
// unchanged while appending each one as a delimited row to a file.
type Writer struct {
	src  Generator
	path string

	sep        rune
	header     bool
	numeraire  bool
	appendMode bool

	f       *os.File
	w       *csv.Writer
	keys    []Key
	started bool
}

// NewWriter opens path and wraps src.
func NewWriter(src Generator, path string, opts ...WriterOption) (*Writer, error) {
	if src == nil {
		return nil, fmt.Errorf("scenario writer: source generator is required")
	}
	w := &Writer{src: src, path: path, sep: ',', header: true}
	for _, opt := range opts {
		opt(w)
	}

	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if w.appendMode {
		flags = os.O_CREATE | os.O_WRONLY | os.O_APPEND
	}
	f, err := os.OpenFile(path, flags, 0644)
	if err != nil {
		return nil, fmt.Errorf("scenario writer: %w", err)
	}
	w.f = f
	w.w = w.newCSV(f)
	return w, nil
}

func (w *Writer) newCSV(out io.Writer) *csv.Writer {
	cw := csv.NewWriter(out)
	cw.Comma = w.sep
	return cw
}

// Next pulls the next scenario from the source, records it and returns it.
func (w *Writer) Next(d time.Time) (Scenario, error) {
	s, err := w.src.Next(d)
	if err != nil {
		return nil, err
	}

	if !w.started {
		w.keys = append([]Key(nil), s.Keys()...)
		empty, err := w.empty()
		if err != nil {
			return nil, err
		}
		if w.header && empty {
			if err := w.w.Write(w.headerRow()); err != nil {
				return nil, fmt.Errorf("scenario writer: %w", err)
			}
		}
		w.started = true
	}

	row, err := w.row(d, s)
	if err != nil {
		return nil, err
	}
	if err := w.w.Write(row); err != nil {
		return nil, fmt.Errorf("scenario writer: %w", err)
	}
	w.w.Flush()
	if err := w.w.Error(); err != nil {
		return nil, fmt.Errorf("scenario writer: %w", err)
	}
	return s, nil
}

func (w *Writer) empty() (bool, error) {
	fi, err := w.f.Stat()
	if err != nil {
		return false, fmt.Errorf("scenario writer: %w", err)
	}
	return fi.Size() == 0, nil
}

func (w *Writer) headerRow() []string {
	row := make([]string, 0, len(w.keys)+2)
	row = append(row, DateColumn)
	if w.numeraire {
		row = append(row, NumeraireColumn)
	}
	for _, k := range w.keys {
		row = append(row, k.String())
	}
	return row
}

func (w *Writer) row(d time.Time, s Scenario) ([]string, error) {
	if n := len(s.Keys()); n != len(w.keys) {
		return nil, fmt.Errorf("scenario writer: scenario for %s has %d keys, file has %d", dates.Format(d), n, len(w.keys))
	}
	row := make([]string, 0, len(w.keys)+2)
	row = append(row, dates.Format(d))
	if w.numeraire {
		row = append(row, formatValue(s.Numeraire()))
	}
	for _, k := range w.keys {
		v, err := s.Get(k)
		if err != nil {
			return nil, fmt.Errorf("scenario writer: %w", err)
		}
		row = append(row, formatValue(v))
	}
	return row, nil
}

// Reset rewinds the source and truncates the file, unless the writer
// appends, in which case later rows follow the existing ones.
func (w *Writer) Reset() error {
	if err := w.src.Reset(); err != nil {
		return err
	}
	w.w.Flush()
	if err := w.w.Error(); err != nil {
		return fmt.Errorf("scenario writer: %w", err)
	}
	if !w.appendMode {
		if err := w.f.Truncate(0); err != nil {
			return fmt.Errorf("scenario writer: %w", err)
		}
		if _, err := w.f.Seek(0, io.SeekStart); err != nil {
			return fmt.Errorf("scenario writer: %w", err)
		}
	}
	w.w = w.newCSV(w.f)
	w.started = false
	w.keys = nil
	return nil
}

// Close flushes and closes the file.
func (w *Writer) Close() error {
	if w.f == nil {
		return nil
	}
	w.w.Flush()
	if err := w.w.Error(); err != nil {
		return err
	}
	err := w.f.Close()
	w.f = nil
	return err
}

// formatValue uses the shortest representation that parses back to the same
// float64.
func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
