package marketdata

import (
	"fmt"
	"strings"
)

// DecayMode says how a non-simulated volatility structure rolls forward as
// the simulation date moves.
type DecayMode int

const (
	// ForwardVariance keeps the forward variance implied today: the
	// variance to t is var(tau+t) - var(tau) where tau is elapsed time.
	ForwardVariance DecayMode = iota
	// ConstantVariance keeps today's volatility by time to expiry.
	ConstantVariance
)

func (m DecayMode) String() string {
	switch m {
	case ForwardVariance:
		return "ForwardVariance"
	case ConstantVariance:
		return "ConstantVariance"
	}
	return fmt.Sprintf("DecayMode(%d)", int(m))
}

// ParseDecayMode accepts "ForwardVariance" and "ConstantVariance".
func ParseDecayMode(s string) (DecayMode, error) {
	switch strings.TrimSpace(s) {
	case "ForwardVariance":
		return ForwardVariance, nil
	case "ConstantVariance":
		return ConstantVariance, nil
	}
	return 0, fmt.Errorf("unknown decay mode %q, expected ForwardVariance or ConstantVariance", s)
}

func (m DecayMode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

func (m *DecayMode) UnmarshalText(b []byte) error {
	v, err := ParseDecayMode(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// decayedVariance applies m to a variance function w measured from today.
// tau is the time elapsed since today and t the time to expiry from the
// current reference date.
func decayedVariance(m DecayMode, w func(float64) float64, tau, t float64) float64 {
	if t <= 0 {
		return 0
	}
	if m == ConstantVariance || tau <= 0 {
		return w(t)
	}
	v := w(tau+t) - w(tau)
	if v < 0 {
		return 0
	}
	return v
}
