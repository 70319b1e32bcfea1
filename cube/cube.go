// Package cube stores valuation results per trade, simulation date, sample
// and depth, together with the auxiliary per date and sample series used by
// exposure aggregation.
package cube

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rustyeddy/simcube/dates"
)

// ErrUnknownCoordinate is wrapped when a trade id, date, sample or depth
// does not resolve.
var ErrUnknownCoordinate = errors.New("unknown cube coordinate")

// UnsupportedCubeDepthError is returned for depths outside {1, 2}.
type UnsupportedCubeDepthError struct {
	Depth int
}

func (e *UnsupportedCubeDepthError) Error() string {
	return fmt.Sprintf("unsupported cube depth %d: depth must be 1 (NPV) or 2 (NPV and one auxiliary measure)", e.Depth)
}

// Precision is the storage width of cube cells.
type Precision int

const (
	Double Precision = 8
	Single Precision = 4
)

func (p Precision) String() string {
	switch p {
	case Double:
		return "double"
	case Single:
		return "single"
	}
	return fmt.Sprintf("Precision(%d)", int(p))
}

// ParsePrecision accepts "double"/"float64" and "single"/"float32".
func ParsePrecision(s string) (Precision, error) {
	switch s {
	case "", "double", "float64":
		return Double, nil
	case "single", "float32":
		return Single, nil
	}
	return 0, fmt.Errorf("unknown cube precision %q", s)
}

// Depth slots.
const (
	NPVDepth       = 0
	AuxiliaryDepth = 1
)

// Cube is a dense trade x date x sample x depth array with a T0 value per
// trade and depth.
type Cube interface {
	AsOf() time.Time
	IDs() []string
	Dates() []time.Time
	NumIDs() int
	NumDates() int
	Samples() int
	Depth() int
	Precision() Precision

	IDIndex(id string) (int, error)
	DateIndex(d time.Time) (int, error)

	SetAt(value float64, id, date, sample, depth int) error
	GetAt(id, date, sample, depth int) (float64, error)
	Set(value float64, id string, date time.Time, sample, depth int) error
	Get(id string, date time.Time, sample, depth int) (float64, error)

	SetT0(value float64, id, depth int) error
	T0(id, depth int) (float64, error)
}

// Dense is a Cube stored in a single slice of T.
type Dense[T float32 | float64] struct {
	asof      time.Time
	ids       []string
	idIndex   map[string]int
	dates     []time.Time
	dateIndex map[string]int
	samples   int
	depth     int

	t0   []T
	data []T
}

// maxCells bounds every cube and aggregation array, so a corrupt file
// header fails instead of overflowing the allocation.
const maxCells = math.MaxInt32

// cellCount multiplies dims, failing once the product passes maxCells.
func cellCount(dims ...int) (int, error) {
	n := 1
	for _, d := range dims {
		if d < 0 {
			return 0, fmt.Errorf("negative dimension %d", d)
		}
		if d > 0 && n > maxCells/d {
			return 0, fmt.Errorf("dimensions %v exceed %d cells", dims, maxCells)
		}
		n *= d
	}
	return n, nil
}

// NewDense allocates a zeroed cube. ids must be unique and dates strictly
// increasing.
func NewDense[T float32 | float64](asof time.Time, ids []string, ds []time.Time, samples, depth int) (*Dense[T], error) {
	if depth < 1 || depth > 2 {
		return nil, &UnsupportedCubeDepthError{Depth: depth}
	}
	if samples < 1 {
		return nil, fmt.Errorf("cube needs at least one sample, got %d", samples)
	}
	cells, err := cellCount(depth, len(ds), samples, len(ids))
	if err != nil {
		return nil, err
	}
	c := &Dense[T]{
		asof:      asof,
		ids:       append([]string(nil), ids...),
		idIndex:   make(map[string]int, len(ids)),
		dates:     append([]time.Time(nil), ds...),
		dateIndex: make(map[string]int, len(ds)),
		samples:   samples,
		depth:     depth,
	}
	for i, id := range ids {
		if _, dup := c.idIndex[id]; dup {
			return nil, fmt.Errorf("duplicate trade id %q in cube", id)
		}
		c.idIndex[id] = i
	}
	for i, d := range ds {
		if i > 0 && !d.After(ds[i-1]) {
			return nil, fmt.Errorf("cube dates must be strictly increasing, %s follows %s", dates.Format(d), dates.Format(ds[i-1]))
		}
		c.dateIndex[dates.Format(d)] = i
	}
	c.t0 = make([]T, len(ids)*depth)
	c.data = make([]T, cells)
	return c, nil
}

// New allocates a cube with the given precision.
func New(asof time.Time, ids []string, ds []time.Time, samples, depth int, p Precision) (Cube, error) {
	switch p {
	case Single:
		return NewDense[float32](asof, ids, ds, samples, depth)
	case Double:
		return NewDense[float64](asof, ids, ds, samples, depth)
	}
	return nil, fmt.Errorf("unknown cube precision %d", int(p))
}

func (c *Dense[T]) AsOf() time.Time    { return c.asof }
func (c *Dense[T]) IDs() []string      { return c.ids }
func (c *Dense[T]) Dates() []time.Time { return c.dates }
func (c *Dense[T]) NumIDs() int        { return len(c.ids) }
func (c *Dense[T]) NumDates() int      { return len(c.dates) }
func (c *Dense[T]) Samples() int       { return c.samples }
func (c *Dense[T]) Depth() int         { return c.depth }

func (c *Dense[T]) Precision() Precision {
	var zero T
	if _, ok := any(zero).(float32); ok {
		return Single
	}
	return Double
}

func (c *Dense[T]) IDIndex(id string) (int, error) {
	i, ok := c.idIndex[id]
	if !ok {
		return 0, fmt.Errorf("%w: trade id %q", ErrUnknownCoordinate, id)
	}
	return i, nil
}

func (c *Dense[T]) DateIndex(d time.Time) (int, error) {
	i, ok := c.dateIndex[dates.Format(d)]
	if !ok {
		return 0, fmt.Errorf("%w: date %s", ErrUnknownCoordinate, dates.Format(d))
	}
	return i, nil
}

// pos is the payload offset: depth, then date, then sample, trade innermost.
func (c *Dense[T]) pos(id, date, sample, depth int) (int, error) {
	if id < 0 || id >= len(c.ids) || date < 0 || date >= len(c.dates) ||
		sample < 0 || sample >= c.samples || depth < 0 || depth >= c.depth {
		return 0, fmt.Errorf("%w: (id %d, date %d, sample %d, depth %d) outside (%d, %d, %d, %d)",
			ErrUnknownCoordinate, id, date, sample, depth, len(c.ids), len(c.dates), c.samples, c.depth)
	}
	return ((depth*len(c.dates)+date)*c.samples+sample)*len(c.ids) + id, nil
}

func (c *Dense[T]) SetAt(value float64, id, date, sample, depth int) error {
	p, err := c.pos(id, date, sample, depth)
	if err != nil {
		return err
	}
	c.data[p] = T(value)
	return nil
}

func (c *Dense[T]) GetAt(id, date, sample, depth int) (float64, error) {
	p, err := c.pos(id, date, sample, depth)
	if err != nil {
		return 0, err
	}
	return float64(c.data[p]), nil
}

func (c *Dense[T]) Set(value float64, id string, d time.Time, sample, depth int) error {
	i, err := c.IDIndex(id)
	if err != nil {
		return err
	}
	j, err := c.DateIndex(d)
	if err != nil {
		return err
	}
	return c.SetAt(value, i, j, sample, depth)
}

func (c *Dense[T]) Get(id string, d time.Time, sample, depth int) (float64, error) {
	i, err := c.IDIndex(id)
	if err != nil {
		return 0, err
	}
	j, err := c.DateIndex(d)
	if err != nil {
		return 0, err
	}
	return c.GetAt(i, j, sample, depth)
}

func (c *Dense[T]) t0pos(id, depth int) (int, error) {
	if id < 0 || id >= len(c.ids) || depth < 0 || depth >= c.depth {
		return 0, fmt.Errorf("%w: T0 (id %d, depth %d)", ErrUnknownCoordinate, id, depth)
	}
	return depth*len(c.ids) + id, nil
}

func (c *Dense[T]) SetT0(value float64, id, depth int) error {
	p, err := c.t0pos(id, depth)
	if err != nil {
		return err
	}
	c.t0[p] = T(value)
	return nil
}

func (c *Dense[T]) T0(id, depth int) (float64, error) {
	p, err := c.t0pos(id, depth)
	if err != nil {
		return 0, err
	}
	return float64(c.t0[p]), nil
}
