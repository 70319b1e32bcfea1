package marketdata

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rustyeddy/simcube/dates"
)

// VolType is the quoting convention of a rates volatility.
type VolType int

const (
	ShiftedLognormal VolType = iota
	Normal
)

func (v VolType) String() string {
	if v == Normal {
		return "Normal"
	}
	return "ShiftedLognormal"
}

func ParseVolType(s string) (VolType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "normal":
		return Normal, nil
	case "shiftedlognormal", "lognormal", "":
		return ShiftedLognormal, nil
	}
	return 0, fmt.Errorf("unknown volatility type %q", s)
}

// SwaptionVol is a swaption volatility by option expiry and underlying
// swap length, both in years.
type SwaptionVol interface {
	Clock
	DayCounter() dates.DayCounter
	VolType() VolType
	Volatility(optionTime, swapLength, strike float64) float64
	BlackVariance(optionTime, swapLength, strike float64) float64
	Shift(optionTime, swapLength float64) float64
}

// VolShape tags the structure behind a SwaptionVolSource.
type VolShape int

const (
	// ShapeMatrix is an expiry x term grid of at-the-money vols.
	ShapeMatrix VolShape = iota
	// ShapeCube has a strike dimension the simulation does not model.
	ShapeCube
)

// SwaptionVolSource is a today's-market swaption vol together with its
// shape. Matrix is set when Shape is ShapeMatrix.
type SwaptionVolSource struct {
	Shape  VolShape
	Matrix *SwaptionVolMatrix
	Vol    SwaptionVol
}

// MatrixSource wraps a matrix in a SwaptionVolSource.
func MatrixSource(m *SwaptionVolMatrix) SwaptionVolSource {
	return SwaptionVolSource{Shape: ShapeMatrix, Matrix: m, Vol: m}
}

// SwaptionVolMatrix is an at-the-money swaption vol grid. Quotes are stored
// row major: quote i*len(terms)+j is expiry i, term j. Values between
// pillars are bilinear and flat outside.
type SwaptionVolMatrix struct {
	lazy
	clock    Clock
	dc       dates.DayCounter
	volType  VolType
	expiries []float64
	terms    []float64
	quotes   []Quote
	shifts   []float64

	vals []float64
}

// NewSwaptionVolMatrix builds a matrix. shifts is either nil, a single
// value or one value per quote.
func NewSwaptionVolMatrix(clock Clock, dc dates.DayCounter, volType VolType, expiries, terms []float64, quotes []Quote, shifts []float64) (*SwaptionVolMatrix, error) {
	if err := checkGrid("swaption vol", expiries, terms, len(quotes)); err != nil {
		return nil, err
	}
	sh, err := expandShifts(shifts, len(quotes))
	if err != nil {
		return nil, fmt.Errorf("swaption vol: %w", err)
	}
	m := &SwaptionVolMatrix{
		clock:    clock,
		dc:       dc,
		volType:  volType,
		expiries: expiries,
		terms:    terms,
		quotes:   quotes,
		shifts:   sh,
	}
	m.compute = m.fill
	return m, nil
}

func checkGrid(what string, rows, cols []float64, n int) error {
	if len(rows) == 0 || len(cols) == 0 {
		return fmt.Errorf("%s: empty grid", what)
	}
	if !strictlyIncreasing(rows) || !strictlyIncreasing(cols) {
		return fmt.Errorf("%s: grid axes must be strictly increasing", what)
	}
	if n != len(rows)*len(cols) {
		return fmt.Errorf("%s: %d quotes for a %dx%d grid", what, n, len(rows), len(cols))
	}
	return nil
}

func expandShifts(shifts []float64, n int) ([]float64, error) {
	switch len(shifts) {
	case 0:
		return make([]float64, n), nil
	case 1:
		out := make([]float64, n)
		for i := range out {
			out[i] = shifts[0]
		}
		return out, nil
	case n:
		return append([]float64(nil), shifts...), nil
	}
	return nil, fmt.Errorf("%d shifts for %d quotes", len(shifts), n)
}

func (m *SwaptionVolMatrix) fill() {
	if m.vals == nil {
		m.vals = make([]float64, len(m.quotes))
	}
	for i, q := range m.quotes {
		m.vals[i] = q.Value()
	}
}

func (m *SwaptionVolMatrix) ReferenceDate() time.Time { return m.clock.ReferenceDate() }
func (m *SwaptionVolMatrix) DayCounter() dates.DayCounter { return m.dc }
func (m *SwaptionVolMatrix) VolType() VolType { return m.volType }
func (m *SwaptionVolMatrix) Expiries() []float64 { return m.expiries }
func (m *SwaptionVolMatrix) Terms() []float64 { return m.terms }
func (m *SwaptionVolMatrix) Quotes() []Quote { return m.quotes }

// Shifts returns the per-quote shifts, row major.
func (m *SwaptionVolMatrix) Shifts() []float64 { return m.shifts }

// At returns the pillar vol at expiry i, term j.
func (m *SwaptionVolMatrix) At(i, j int) float64 {
	return m.quotes[i*len(m.terms)+j].Value()
}

func (m *SwaptionVolMatrix) Volatility(optionTime, swapLength, _ float64) float64 {
	m.ensure()
	return bilinear(m.expiries, m.terms, m.vals, optionTime, swapLength)
}

func (m *SwaptionVolMatrix) BlackVariance(optionTime, swapLength, strike float64) float64 {
	return varianceFromVol(m.Volatility(optionTime, swapLength, strike), optionTime)
}

func (m *SwaptionVolMatrix) Shift(optionTime, swapLength float64) float64 {
	return bilinear(m.expiries, m.terms, m.shifts, optionTime, swapLength)
}

// DynamicSwaptionVol rolls a today's swaption vol forward with the
// simulation date according to a DecayMode.
type DynamicSwaptionVol struct {
	source SwaptionVol
	clock  Clock
	asof   time.Time
	mode   DecayMode
}

func NewDynamicSwaptionVol(source SwaptionVol, clock Clock, asof time.Time, mode DecayMode) *DynamicSwaptionVol {
	return &DynamicSwaptionVol{source: source, clock: clock, asof: asof, mode: mode}
}

func (d *DynamicSwaptionVol) ReferenceDate() time.Time { return d.clock.ReferenceDate() }
func (d *DynamicSwaptionVol) DayCounter() dates.DayCounter { return d.source.DayCounter() }
func (d *DynamicSwaptionVol) VolType() VolType { return d.source.VolType() }
func (d *DynamicSwaptionVol) Mode() DecayMode { return d.mode }

func (d *DynamicSwaptionVol) BlackVariance(optionTime, swapLength, strike float64) float64 {
	tau := d.source.DayCounter().YearFraction(d.asof, d.clock.ReferenceDate())
	w := func(x float64) float64 { return d.source.BlackVariance(x, swapLength, strike) }
	return decayedVariance(d.mode, w, tau, optionTime)
}

func (d *DynamicSwaptionVol) Volatility(optionTime, swapLength, strike float64) float64 {
	if optionTime <= 0 {
		return d.source.Volatility(0, swapLength, strike)
	}
	return math.Sqrt(d.BlackVariance(optionTime, swapLength, strike) / optionTime)
}

func (d *DynamicSwaptionVol) Shift(optionTime, swapLength float64) float64 {
	return d.source.Shift(optionTime, swapLength)
}
