// Package scenario defines risk factor keys, market scenarios and the
// generators that stream them.
package scenario

import (
	"errors"
	"fmt"
	"time"
)

// ErrKeyNotFound is returned by Get when a scenario has no value for a key.
var ErrKeyNotFound = errors.New("key not found in scenario")

// Scenario is a complete assignment of values to risk factors for one
// simulation date, plus a numeraire.
type Scenario interface {
	AsOf() time.Time
	Keys() []Key
	Has(k Key) bool
	Get(k Key) (float64, error)
	Numeraire() float64
}

// SimpleScenario is a map backed Scenario that remembers insertion order.
type SimpleScenario struct {
	asof      time.Time
	keys      []Key
	data      map[Key]float64
	numeraire float64
}

// NewSimpleScenario returns an empty scenario for asof with numeraire 1.
func NewSimpleScenario(asof time.Time) *SimpleScenario {
	return &SimpleScenario{
		asof:      asof,
		data:      make(map[Key]float64),
		numeraire: 1.0,
	}
}

func (s *SimpleScenario) AsOf() time.Time { return s.asof }

// Keys returns the keys in insertion order. Callers must not modify it.
func (s *SimpleScenario) Keys() []Key { return s.keys }

func (s *SimpleScenario) Has(k Key) bool {
	_, ok := s.data[k]
	return ok
}

func (s *SimpleScenario) Get(k Key) (float64, error) {
	v, ok := s.data[k]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrKeyNotFound, k)
	}
	return v, nil
}

// Add inserts a value. Existing keys are never overwritten.
func (s *SimpleScenario) Add(k Key, v float64) error {
	if _, ok := s.data[k]; ok {
		return fmt.Errorf("key %s already used, values are not overwritten", k)
	}
	s.data[k] = v
	s.keys = append(s.keys, k)
	return nil
}

func (s *SimpleScenario) Numeraire() float64 { return s.numeraire }

func (s *SimpleScenario) SetNumeraire(n float64) { s.numeraire = n }

// Len returns the number of keys.
func (s *SimpleScenario) Len() int { return len(s.keys) }

// Clone copies the scenario with a new as-of date.
func Clone(src Scenario, asof time.Time) *SimpleScenario {
	out := NewSimpleScenario(asof)
	keys := src.Keys()
	out.keys = make([]Key, len(keys))
	copy(out.keys, keys)
	for _, k := range keys {
		v, _ := src.Get(k)
		out.data[k] = v
	}
	out.numeraire = src.Numeraire()
	return out
}
