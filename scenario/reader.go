package scenario

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rustyeddy/simcube/dates"
)

// Reader replays a file produced by Writer as a Generator. The file must have
// a header row so the key order is known.
type Reader struct {
	f   *os.File
	r   *csv.Reader
	sep rune

	keys         []Key
	hasNumeraire bool
	row          int
}

// NewReader opens path and reads its header. sep is the field separator; 0
// means ','.
func NewReader(path string, sep rune) (*Reader, error) {
	if sep == 0 {
		sep = ','
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("scenario reader: %w", err)
	}
	rd := &Reader{f: f, sep: sep}
	if err := rd.readHeader(); err != nil {
		f.Close()
		return nil, err
	}
	return rd, nil
}

func (rd *Reader) newCSV() {
	rd.r = csv.NewReader(rd.f)
	rd.r.Comma = rd.sep
	rd.r.FieldsPerRecord = -1
	rd.row = 0
}

func (rd *Reader) readHeader() error {
	rd.newCSV()
	header, err := rd.r.Read()
	if err == io.EOF {
		return fmt.Errorf("scenario reader: empty file")
	}
	if err != nil {
		return fmt.Errorf("scenario reader: %w", err)
	}
	if len(header) == 0 || !strings.EqualFold(strings.TrimSpace(header[0]), DateColumn) {
		return fmt.Errorf("scenario reader: missing %s header", DateColumn)
	}

	cols := header[1:]
	if len(cols) > 0 && strings.EqualFold(strings.TrimSpace(cols[0]), NumeraireColumn) {
		rd.hasNumeraire = true
		cols = cols[1:]
	}

	keys := make([]Key, len(cols))
	for i, c := range cols {
		k, err := ParseKey(c)
		if err != nil {
			return fmt.Errorf("scenario reader: header column %d: %w", i+1, err)
		}
		keys[i] = k
	}
	rd.keys = keys
	return nil
}

// Keys returns the key order of the file.
func (rd *Reader) Keys() []Key { return rd.keys }

// Next reads the next row. The row date must equal d.
func (rd *Reader) Next(d time.Time) (Scenario, error) {
	row, err := rd.r.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("scenario reader: stream exhausted after %d rows", rd.row)
	}
	if err != nil {
		return nil, fmt.Errorf("scenario reader: %w", err)
	}
	rd.row++

	s, err := parseRow(row, rd.keys, rd.hasNumeraire)
	if err != nil {
		return nil, fmt.Errorf("scenario reader: row %d: %w", rd.row, err)
	}
	if !s.AsOf().Equal(d) {
		return nil, fmt.Errorf("scenario reader: row %d is for %s, requested %s", rd.row, dates.Format(s.AsOf()), dates.Format(d))
	}
	return s, nil
}

// Reset rewinds to the first data row.
func (rd *Reader) Reset() error {
	if _, err := rd.f.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("scenario reader: %w", err)
	}
	return rd.readHeader()
}

func (rd *Reader) Close() error {
	return rd.f.Close()
}

func parseRow(row []string, keys []Key, hasNumeraire bool) (*SimpleScenario, error) {
	want := 1 + len(keys)
	if hasNumeraire {
		want++
	}
	if len(row) != want {
		return nil, fmt.Errorf("expected %d fields, got %d", want, len(row))
	}

	d, err := dates.ParseDate(row[0])
	if err != nil {
		return nil, err
	}
	s := NewSimpleScenario(d)

	vals := row[1:]
	if hasNumeraire {
		n, err := strconv.ParseFloat(strings.TrimSpace(vals[0]), 64)
		if err != nil {
			return nil, fmt.Errorf("bad numeraire %q: %w", vals[0], err)
		}
		s.SetNumeraire(n)
		vals = vals[1:]
	}
	for i, k := range keys {
		v, err := strconv.ParseFloat(strings.TrimSpace(vals[i]), 64)
		if err != nil {
			return nil, fmt.Errorf("bad value %q for %s: %w", vals[i], k, err)
		}
		if err := s.Add(k, v); err != nil {
			return nil, err
		}
	}
	return s, nil
}
