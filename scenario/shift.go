package scenario

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// ShiftType says how a shift size moves a value.
type ShiftType int

const (
	// Absolute adds the size.
	Absolute ShiftType = iota
	// Relative scales by one plus the size.
	Relative
)

var shiftTypeNames = [...]string{Absolute: "Absolute", Relative: "Relative"}

func (t ShiftType) String() string {
	if t < 0 || int(t) >= len(shiftTypeNames) {
		return "?"
	}
	return shiftTypeNames[t]
}

// ParseShiftType accepts the names case-insensitively.
func ParseShiftType(s string) (ShiftType, error) {
	for i, name := range shiftTypeNames {
		if strings.EqualFold(name, s) {
			return ShiftType(i), nil
		}
	}
	return 0, fmt.Errorf("shift type %q must be Absolute or Relative", s)
}

func (t ShiftType) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

func (t *ShiftType) UnmarshalText(b []byte) error {
	v, err := ParseShiftType(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// Shift is one bump.
type Shift struct {
	Type ShiftType `json:"type" yaml:"type"`
	Size float64   `json:"size" yaml:"size"`
}

// PillarTimes reports the year fraction of a curve pillar. Keys with a
// positive time hold discount factors or survival probabilities and are
// shifted on the implied zero rate.
type PillarTimes func(k Key) (float64, bool)

// move returns v shifted by sign times the shift. With a pillar time t the
// zero rate z = -ln(v)/t moves and the result is exp(-z't).
func (s Shift) move(v, sign, t float64) float64 {
	size := sign * s.Size
	if t > 0 {
		if s.Type == Absolute {
			return v * math.Exp(-size*t)
		}
		return math.Pow(v, 1+size)
	}
	if s.Type == Absolute {
		return v + size
	}
	return v * (1 + size)
}

// DescriptionType tells what a shift scenario does to the base.
type DescriptionType int

const (
	Base DescriptionType = iota
	Up
	Down
	Cross
	Stress
)

var descriptionTypeNames = [...]string{Base: "Base", Up: "Up", Down: "Down", Cross: "Cross", Stress: "Stress"}

func (t DescriptionType) String() string {
	if t < 0 || int(t) >= len(descriptionTypeNames) {
		return "?"
	}
	return descriptionTypeNames[t]
}

// Description names one scenario of a ShiftGenerator. Key1 is set for Up,
// Down and Cross, Key2 for Cross only, Label for Stress only.
type Description struct {
	Type  DescriptionType
	Key1  Key
	Key2  Key
	Label string
}

func (d Description) String() string {
	switch d.Type {
	case Up, Down:
		return d.Type.String() + ":" + d.Key1.String()
	case Cross:
		return "Cross:" + d.Key1.String() + ":" + d.Key2.String()
	case Stress:
		return "Stress:" + d.Label
	}
	return d.Type.String()
}

// ShiftGenerator replays a fixed list of bumped copies of a base scenario,
// one per call to Next, whatever the date. Scenario 0 is the base itself.
type ShiftGenerator struct {
	base      Scenario
	scenarios []*SimpleScenario
	descs     []Description
	shifts    map[Key]Shift
	next      int
}

func newShiftGenerator(base Scenario) (*ShiftGenerator, error) {
	if base == nil {
		return nil, fmt.Errorf("shift generator: base scenario is required")
	}
	g := &ShiftGenerator{base: base, shifts: map[Key]Shift{}}
	g.add(Description{Type: Base}, nil)
	return g, nil
}

func (g *ShiftGenerator) add(d Description, values map[Key]float64) {
	s := Clone(g.base, g.base.AsOf())
	for k, v := range values {
		s.data[k] = v
	}
	g.scenarios = append(g.scenarios, s)
	g.descs = append(g.descs, d)
}

func (g *ShiftGenerator) Next(d time.Time) (Scenario, error) {
	if g.next >= len(g.scenarios) {
		return nil, fmt.Errorf("shift generator: %d scenarios exhausted", len(g.scenarios))
	}
	s := Clone(g.scenarios[g.next], d)
	g.next++
	return s, nil
}

func (g *ShiftGenerator) Reset() error {
	g.next = 0
	return nil
}

// Len is the number of scenarios, the base included.
func (g *ShiftGenerator) Len() int { return len(g.scenarios) }

func (g *ShiftGenerator) Base() Scenario { return g.base }

// Descriptions lists the scenarios in the order Next returns them.
func (g *ShiftGenerator) Descriptions() []Description {
	return append([]Description(nil), g.descs...)
}

// Shifts returns the bump applied to every key with an Up scenario.
func (g *ShiftGenerator) Shifts() map[Key]Shift {
	out := make(map[Key]Shift, len(g.shifts))
	for k, s := range g.shifts {
		out[k] = s
	}
	return out
}

func pillarTime(times PillarTimes, k Key) float64 {
	if times == nil {
		return 0
	}
	t, ok := times(k)
	if !ok {
		return 0
	}
	return t
}

// SensitivityConfig selects the keys to bump. Shifts is keyed by key type
// name; keys of other types are left alone. CrossGamma lists pairs of key
// types whose keys are bumped up together.
type SensitivityConfig struct {
	Shifts     map[string]Shift `json:"shifts,omitempty" yaml:"shifts,omitempty"`
	CrossGamma [][]string       `json:"cross_gamma,omitempty" yaml:"cross_gamma,omitempty"`
}

func (c SensitivityConfig) parse() (map[KeyType]Shift, [][2]KeyType, error) {
	shifts := make(map[KeyType]Shift, len(c.Shifts))
	for name, s := range c.Shifts {
		t, err := ParseKeyType(name)
		if err != nil {
			return nil, nil, fmt.Errorf("sensitivity shifts: %w", err)
		}
		if s.Size <= 0 {
			return nil, nil, fmt.Errorf("sensitivity shifts: %s size must be positive", name)
		}
		shifts[t] = s
	}
	var pairs [][2]KeyType
	for _, p := range c.CrossGamma {
		if len(p) != 2 {
			return nil, nil, fmt.Errorf("sensitivity cross_gamma: %v is not a pair of key types", p)
		}
		var pair [2]KeyType
		for i, name := range p {
			t, err := ParseKeyType(name)
			if err != nil {
				return nil, nil, fmt.Errorf("sensitivity cross_gamma: %w", err)
			}
			if _, ok := shifts[t]; !ok {
				return nil, nil, fmt.Errorf("sensitivity cross_gamma: %s has no shift", name)
			}
			pair[i] = t
		}
		pairs = append(pairs, pair)
	}
	return shifts, pairs, nil
}

// Validate checks names and sizes without a base scenario.
func (c SensitivityConfig) Validate() error {
	_, _, err := c.parse()
	return err
}

// NewSensitivityGenerator builds the base scenario, an up and a down bump
// per shifted key in key order, then the cross bumps.
func NewSensitivityGenerator(base Scenario, cfg SensitivityConfig, times PillarTimes) (*ShiftGenerator, error) {
	shifts, pairs, err := cfg.parse()
	if err != nil {
		return nil, err
	}
	g, err := newShiftGenerator(base)
	if err != nil {
		return nil, err
	}
	keys := append([]Key(nil), base.Keys()...)
	SortKeys(keys)

	up := map[Key]float64{}
	var bumped []Key
	for _, k := range keys {
		s, ok := shifts[k.Type]
		if !ok {
			continue
		}
		v, _ := base.Get(k)
		t := pillarTime(times, k)
		up[k] = s.move(v, 1, t)
		g.add(Description{Type: Up, Key1: k}, map[Key]float64{k: up[k]})
		g.add(Description{Type: Down, Key1: k}, map[Key]float64{k: s.move(v, -1, t)})
		g.shifts[k] = s
		bumped = append(bumped, k)
	}
	if len(bumped) == 0 {
		return nil, fmt.Errorf("sensitivity: no key of the base scenario has a configured shift")
	}

	for i, k1 := range bumped {
		for _, k2 := range bumped[i+1:] {
			if !crossed(pairs, k1.Type, k2.Type) {
				continue
			}
			g.add(Description{Type: Cross, Key1: k1, Key2: k2}, map[Key]float64{k1: up[k1], k2: up[k2]})
		}
	}
	return g, nil
}

func crossed(pairs [][2]KeyType, a, b KeyType) bool {
	for _, p := range pairs {
		if (p[0] == a && p[1] == b) || (p[0] == b && p[1] == a) {
			return true
		}
	}
	return false
}

// StressShift moves every key matching Factor: "Type", "Type/Name" or a
// full key. Sizes, for Type/Name factors, gives one size per key index;
// indices past the end use the last size.
type StressShift struct {
	Factor string    `json:"factor" yaml:"factor"`
	Type   ShiftType `json:"type" yaml:"type"`
	Size   float64   `json:"size,omitempty" yaml:"size,omitempty"`
	Sizes  []float64 `json:"sizes,omitempty" yaml:"sizes,omitempty"`
}

// StressTest is one named scenario built from several shifts.
type StressTest struct {
	Label  string        `json:"label" yaml:"label"`
	Shifts []StressShift `json:"shifts" yaml:"shifts"`
}

type factor struct {
	t     KeyType
	name  string
	index int // -1 for every index
	parts int
}

func parseFactor(s string) (factor, error) {
	parts := strings.Split(s, "/")
	if len(parts) > 3 || parts[0] == "" {
		return factor{}, fmt.Errorf("factor %q is not Type, Type/Name or Type/Name/Index", s)
	}
	t, err := ParseKeyType(parts[0])
	if err != nil {
		return factor{}, err
	}
	f := factor{t: t, index: -1, parts: len(parts)}
	if len(parts) > 1 {
		f.name = parts[1]
	}
	if len(parts) == 3 {
		k, err := ParseKey(s)
		if err != nil {
			return factor{}, err
		}
		f.index = k.Index
	}
	return f, nil
}

func (f factor) matches(k Key) bool {
	if k.Type != f.t {
		return false
	}
	if f.parts > 1 && k.Name != f.name {
		return false
	}
	return f.index < 0 || k.Index == f.index
}

func (s StressShift) size(index int) float64 {
	if len(s.Sizes) == 0 {
		return s.Size
	}
	if index >= len(s.Sizes) {
		return s.Sizes[len(s.Sizes)-1]
	}
	return s.Sizes[index]
}

// ValidateStressTests checks labels and factors without a base scenario.
func ValidateStressTests(tests []StressTest) error {
	seen := map[string]bool{}
	for _, st := range tests {
		if st.Label == "" {
			return fmt.Errorf("stress test label is required")
		}
		if seen[st.Label] {
			return fmt.Errorf("stress test %s is defined twice", st.Label)
		}
		seen[st.Label] = true
		if len(st.Shifts) == 0 {
			return fmt.Errorf("stress test %s has no shifts", st.Label)
		}
		for _, sh := range st.Shifts {
			f, err := parseFactor(sh.Factor)
			if err != nil {
				return fmt.Errorf("stress test %s: %w", st.Label, err)
			}
			if len(sh.Sizes) > 0 && f.parts != 2 {
				return fmt.Errorf("stress test %s: sizes need a Type/Name factor, got %s", st.Label, sh.Factor)
			}
		}
	}
	return nil
}

// NewStressGenerator builds the base scenario followed by one scenario per
// stress test. Shifts of one test apply in order, so two shifts on a key
// compound.
func NewStressGenerator(base Scenario, tests []StressTest, times PillarTimes) (*ShiftGenerator, error) {
	if len(tests) == 0 {
		return nil, fmt.Errorf("stress: no stress tests configured")
	}
	if err := ValidateStressTests(tests); err != nil {
		return nil, err
	}
	g, err := newShiftGenerator(base)
	if err != nil {
		return nil, err
	}
	keys := base.Keys()
	for _, st := range tests {
		values := map[Key]float64{}
		for _, sh := range st.Shifts {
			f, _ := parseFactor(sh.Factor)
			matched := 0
			for _, k := range keys {
				if !f.matches(k) {
					continue
				}
				v, ok := values[k]
				if !ok {
					v, _ = base.Get(k)
				}
				s := Shift{Type: sh.Type, Size: sh.size(k.Index)}
				values[k] = s.move(v, 1, pillarTime(times, k))
				matched++
			}
			if matched == 0 {
				return nil, fmt.Errorf("stress test %s: factor %s matches no key", st.Label, sh.Factor)
			}
		}
		g.add(Description{Type: Stress, Label: st.Label}, values)
	}
	return g, nil
}
