package cube

import (
	"fmt"
	"strings"
)

// SeriesType is the kind of an auxiliary aggregation series.
type SeriesType int

const (
	NumeraireSeries SeriesType = iota
	IndexFixingSeries
	FXSpotSeries
)

func (t SeriesType) String() string {
	switch t {
	case NumeraireSeries:
		return "Numeraire"
	case IndexFixingSeries:
		return "IndexFixing"
	case FXSpotSeries:
		return "FXSpot"
	}
	return fmt.Sprintf("SeriesType(%d)", int(t))
}

// Series names one auxiliary value, e.g. the fixing of an index or an FX
// spot against the base currency.
type Series struct {
	Type SeriesType `msgpack:"type"`
	Name string     `msgpack:"name"`
}

var Numeraire = Series{Type: NumeraireSeries}

func IndexFixing(index string) Series { return Series{Type: IndexFixingSeries, Name: index} }
func FXSpot(ccy string) Series        { return Series{Type: FXSpotSeries, Name: ccy} }

func (s Series) String() string {
	if s.Name == "" {
		return s.Type.String()
	}
	return s.Type.String() + ":" + s.Name
}

// ParseSeries is the inverse of Series.String.
func ParseSeries(str string) (Series, error) {
	typ, name, _ := strings.Cut(str, ":")
	for _, t := range []SeriesType{NumeraireSeries, IndexFixingSeries, FXSpotSeries} {
		if t.String() == typ {
			return Series{Type: t, Name: name}, nil
		}
	}
	return Series{}, fmt.Errorf("unknown aggregation series %q", str)
}

// AggregationData is a date x sample array of named auxiliary series. It
// keeps a cursor so a writer can record values without tracking
// coordinates: the cursor moves sample first and wraps to the next date.
type AggregationData struct {
	dates   int
	samples int
	series  []Series
	index   map[Series]int
	data    []float64

	date, sample int
}

// NewAggregationData allocates the array. The numeraire series is always
// present and comes first.
func NewAggregationData(numDates, samples int, series []Series) (*AggregationData, error) {
	if numDates < 1 || samples < 1 {
		return nil, fmt.Errorf("aggregation data needs positive dates and samples, got %d x %d", numDates, samples)
	}
	a := &AggregationData{
		dates:   numDates,
		samples: samples,
		index:   make(map[Series]int),
	}
	a.add(Numeraire)
	for _, s := range series {
		if s == Numeraire {
			continue
		}
		if _, dup := a.index[s]; dup {
			return nil, fmt.Errorf("duplicate aggregation series %s", s)
		}
		a.add(s)
	}
	cells, err := cellCount(len(a.series), numDates, samples)
	if err != nil {
		return nil, err
	}
	a.data = make([]float64, cells)
	return a, nil
}

func (a *AggregationData) add(s Series) {
	a.index[s] = len(a.series)
	a.series = append(a.series, s)
}

func (a *AggregationData) NumDates() int    { return a.dates }
func (a *AggregationData) Samples() int     { return a.samples }
func (a *AggregationData) Series() []Series { return a.series }

func (a *AggregationData) Has(s Series) bool {
	_, ok := a.index[s]
	return ok
}

func (a *AggregationData) pos(date, sample int, s Series) (int, error) {
	k, ok := a.index[s]
	if !ok {
		return 0, fmt.Errorf("%w: aggregation series %s", ErrUnknownCoordinate, s)
	}
	if date < 0 || date >= a.dates || sample < 0 || sample >= a.samples {
		return 0, fmt.Errorf("%w: aggregation (date %d, sample %d) outside (%d, %d)", ErrUnknownCoordinate, date, sample, a.dates, a.samples)
	}
	return (k*a.dates+date)*a.samples + sample, nil
}

func (a *AggregationData) Set(value float64, date, sample int, s Series) error {
	p, err := a.pos(date, sample, s)
	if err != nil {
		return err
	}
	a.data[p] = value
	return nil
}

func (a *AggregationData) Get(date, sample int, s Series) (float64, error) {
	p, err := a.pos(date, sample, s)
	if err != nil {
		return 0, err
	}
	return a.data[p], nil
}

// Cursor returns the (date, sample) the next SetCurrent writes to.
func (a *AggregationData) Cursor() (int, int) { return a.date, a.sample }

// SetCurrent writes at the cursor.
func (a *AggregationData) SetCurrent(s Series, value float64) error {
	return a.Set(value, a.date, a.sample, s)
}

// Next advances the cursor: sample first, then date.
func (a *AggregationData) Next() {
	a.sample++
	if a.sample == a.samples {
		a.sample = 0
		a.date++
	}
}

// ResetCursor moves the cursor back to (0, 0).
func (a *AggregationData) ResetCursor() { a.date, a.sample = 0, 0 }
