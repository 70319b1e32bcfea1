package cube

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/rustyeddy/simcube/dates"
)

const (
	formatVersion  = 1
	maxHeaderBytes = 256 << 20
)

var (
	cubeMagic        = [8]byte{'S', 'I', 'M', 'C', 'U', 'B', 'E', 1}
	aggregationMagic = [8]byte{'S', 'I', 'M', 'A', 'G', 'G', 'R', 1}
)

type cubeHeader struct {
	Version   int       `msgpack:"version"`
	Precision Precision `msgpack:"precision"`
	AsOf      string    `msgpack:"asof"`
	IDs       []string  `msgpack:"ids"`
	Dates     []string  `msgpack:"dates"`
	Samples   int       `msgpack:"samples"`
	Depth     int       `msgpack:"depth"`
}

type aggregationHeader struct {
	Version   int       `msgpack:"version"`
	Precision Precision `msgpack:"precision"`
	Dates     int       `msgpack:"dates"`
	Samples   int       `msgpack:"samples"`
	Series    []Series  `msgpack:"series"`
}

// fileWriter opens path for writing, gzip compressed when it ends in .gz.
type fileWriter struct {
	f  *os.File
	gz *gzip.Writer
	*bufio.Writer
}

func createFile(path string) (*fileWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	fw := &fileWriter{f: f}
	var w io.Writer = f
	if strings.HasSuffix(path, ".gz") {
		fw.gz = gzip.NewWriter(f)
		w = fw.gz
	}
	fw.Writer = bufio.NewWriterSize(w, 1<<16)
	return fw, nil
}

func (fw *fileWriter) Close() error {
	err := fw.Flush()
	if fw.gz != nil {
		err = errors.Join(err, fw.gz.Close())
	}
	return errors.Join(err, fw.f.Close())
}

type fileReader struct {
	f  *os.File
	gz *gzip.Reader
	*bufio.Reader
}

// openFile sniffs the gzip magic so compressed files load whatever their
// name.
func openFile(path string) (*fileReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	fr := &fileReader{f: f}
	br := bufio.NewReaderSize(f, 1<<16)
	if b, err := br.Peek(2); err == nil && b[0] == 0x1f && b[1] == 0x8b {
		gz, err := gzip.NewReader(br)
		if err != nil {
			f.Close()
			return nil, err
		}
		fr.gz = gz
		br = bufio.NewReaderSize(gz, 1<<16)
	}
	fr.Reader = br
	return fr, nil
}

func (fr *fileReader) Close() error {
	var err error
	if fr.gz != nil {
		err = fr.gz.Close()
	}
	return errors.Join(err, fr.f.Close())
}

func writeHeader(w io.Writer, magic [8]byte, h any) error {
	b, err := msgpack.Marshal(h)
	if err != nil {
		return err
	}
	if _, err := w.Write(magic[:]); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(b))); err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

func readHeader(r io.Reader, magic [8]byte, h any) error {
	var m [8]byte
	if _, err := io.ReadFull(r, m[:]); err != nil {
		return fmt.Errorf("read magic: %w", err)
	}
	if m != magic {
		return fmt.Errorf("bad magic %q, expected %q", m[:7], magic[:7])
	}
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return fmt.Errorf("read header length: %w", err)
	}
	if n > maxHeaderBytes {
		return fmt.Errorf("header length %d exceeds limit", n)
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return fmt.Errorf("read header: %w", err)
	}
	return msgpack.Unmarshal(b, h)
}

// cellCodec writes and reads cells at one precision.
type cellCodec struct {
	p   Precision
	buf [8]byte
}

func (c *cellCodec) write(w io.Writer, v float64) error {
	if c.p == Single {
		binary.LittleEndian.PutUint32(c.buf[:4], math.Float32bits(float32(v)))
		_, err := w.Write(c.buf[:4])
		return err
	}
	binary.LittleEndian.PutUint64(c.buf[:], math.Float64bits(v))
	_, err := w.Write(c.buf[:])
	return err
}

func (c *cellCodec) read(r io.Reader) (float64, error) {
	if c.p == Single {
		if _, err := io.ReadFull(r, c.buf[:4]); err != nil {
			return 0, err
		}
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(c.buf[:4]))), nil
	}
	if _, err := io.ReadFull(r, c.buf[:]); err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(c.buf[:])), nil
}

// Save writes c to path. A .gz suffix compresses the file.
func Save(path string, c Cube) (err error) {
	fw, err := createFile(path)
	if err != nil {
		return fmt.Errorf("save cube: %w", err)
	}
	defer func() {
		if cerr := fw.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("save cube %s: %w", path, cerr)
		}
	}()

	h := cubeHeader{
		Version:   formatVersion,
		Precision: c.Precision(),
		AsOf:      dates.Format(c.AsOf()),
		IDs:       c.IDs(),
		Samples:   c.Samples(),
		Depth:     c.Depth(),
	}
	for _, d := range c.Dates() {
		h.Dates = append(h.Dates, dates.Format(d))
	}
	if err := writeHeader(fw, cubeMagic, h); err != nil {
		return fmt.Errorf("save cube %s: %w", path, err)
	}

	codec := &cellCodec{p: h.Precision}
	for k := 0; k < c.Depth(); k++ {
		for i := 0; i < c.NumIDs(); i++ {
			v, _ := c.T0(i, k)
			if err := codec.write(fw, v); err != nil {
				return fmt.Errorf("save cube %s: %w", path, err)
			}
		}
	}
	for k := 0; k < c.Depth(); k++ {
		for j := 0; j < c.NumDates(); j++ {
			for s := 0; s < c.Samples(); s++ {
				for i := 0; i < c.NumIDs(); i++ {
					v, _ := c.GetAt(i, j, s, k)
					if err := codec.write(fw, v); err != nil {
						return fmt.Errorf("save cube %s: %w", path, err)
					}
				}
			}
		}
	}
	return nil
}

// Load reads a cube written by Save.
func Load(path string) (Cube, error) {
	fr, err := openFile(path)
	if err != nil {
		return nil, fmt.Errorf("load cube: %w", err)
	}
	defer fr.Close()

	var h cubeHeader
	if err := readHeader(fr, cubeMagic, &h); err != nil {
		return nil, fmt.Errorf("load cube %s: %w", path, err)
	}
	if h.Version != formatVersion {
		return nil, fmt.Errorf("load cube %s: unsupported format version %d", path, h.Version)
	}
	asof, err := dates.ParseDate(h.AsOf)
	if err != nil {
		return nil, fmt.Errorf("load cube %s: %w", path, err)
	}
	ds := make([]time.Time, len(h.Dates))
	for i, s := range h.Dates {
		if ds[i], err = dates.ParseDate(s); err != nil {
			return nil, fmt.Errorf("load cube %s: %w", path, err)
		}
	}
	c, err := New(asof, h.IDs, ds, h.Samples, h.Depth, h.Precision)
	if err != nil {
		return nil, fmt.Errorf("load cube %s: %w", path, err)
	}

	codec := &cellCodec{p: h.Precision}
	for k := 0; k < h.Depth; k++ {
		for i := range h.IDs {
			v, err := codec.read(fr)
			if err != nil {
				return nil, fmt.Errorf("load cube %s: T0 block: %w", path, err)
			}
			_ = c.SetT0(v, i, k)
		}
	}
	for k := 0; k < h.Depth; k++ {
		for j := range ds {
			for s := 0; s < h.Samples; s++ {
				for i := range h.IDs {
					v, err := codec.read(fr)
					if err != nil {
						return nil, fmt.Errorf("load cube %s: payload truncated: %w", path, err)
					}
					_ = c.SetAt(v, i, j, s, k)
				}
			}
		}
	}
	return c, nil
}

// SaveAggregation writes a to path. A .gz suffix compresses the file.
func SaveAggregation(path string, a *AggregationData) (err error) {
	fw, err := createFile(path)
	if err != nil {
		return fmt.Errorf("save aggregation data: %w", err)
	}
	defer func() {
		if cerr := fw.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("save aggregation data %s: %w", path, cerr)
		}
	}()

	h := aggregationHeader{
		Version:   formatVersion,
		Precision: Double,
		Dates:     a.dates,
		Samples:   a.samples,
		Series:    a.series,
	}
	if err := writeHeader(fw, aggregationMagic, h); err != nil {
		return fmt.Errorf("save aggregation data %s: %w", path, err)
	}
	codec := &cellCodec{p: Double}
	for _, v := range a.data {
		if err := codec.write(fw, v); err != nil {
			return fmt.Errorf("save aggregation data %s: %w", path, err)
		}
	}
	return nil
}

// LoadAggregation reads data written by SaveAggregation.
func LoadAggregation(path string) (*AggregationData, error) {
	fr, err := openFile(path)
	if err != nil {
		return nil, fmt.Errorf("load aggregation data: %w", err)
	}
	defer fr.Close()

	var h aggregationHeader
	if err := readHeader(fr, aggregationMagic, &h); err != nil {
		return nil, fmt.Errorf("load aggregation data %s: %w", path, err)
	}
	if h.Version != formatVersion {
		return nil, fmt.Errorf("load aggregation data %s: unsupported format version %d", path, h.Version)
	}
	a, err := NewAggregationData(h.Dates, h.Samples, h.Series)
	if err != nil {
		return nil, fmt.Errorf("load aggregation data %s: %w", path, err)
	}
	for i, s := range h.Series {
		if i >= len(a.series) || a.series[i] != s {
			return nil, fmt.Errorf("load aggregation data %s: numeraire series must come first", path)
		}
	}
	if len(a.series) != len(h.Series) {
		return nil, fmt.Errorf("load aggregation data %s: numeraire series missing", path)
	}
	codec := &cellCodec{p: h.Precision}
	for i := range a.data {
		if a.data[i], err = codec.read(fr); err != nil {
			return nil, fmt.Errorf("load aggregation data %s: payload truncated: %w", path, err)
		}
	}
	return a, nil
}
