package scenario

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// KeyType is the risk factor category of a Key.
type KeyType int

const (
	DiscountCurve KeyType = iota
	YieldCurve
	IndexCurve
	FXSpot
	FXVolatility
	SwaptionVolatility
	OptionletVolatility
	SurvivalProbability
	RecoveryRate
	EquitySpot
	EquityVolatility
	DividendYield
	BaseCorrelation
	Correlation
	CommodityCurve
	CommodityVolatility
	CPR
	SecuritySpread
	ZeroInflationCurve
	YoYInflationCurve
	CPIIndex
	YieldVolatility
	CDSVolatility
)

var keyTypeNames = [...]string{
	DiscountCurve:       "DiscountCurve",
	YieldCurve:          "YieldCurve",
	IndexCurve:          "IndexCurve",
	FXSpot:              "FXSpot",
	FXVolatility:        "FXVolatility",
	SwaptionVolatility:  "SwaptionVolatility",
	OptionletVolatility: "OptionletVolatility",
	SurvivalProbability: "SurvivalProbability",
	RecoveryRate:        "RecoveryRate",
	EquitySpot:          "EquitySpot",
	EquityVolatility:    "EquityVolatility",
	DividendYield:       "DividendYield",
	BaseCorrelation:     "BaseCorrelation",
	Correlation:         "Correlation",
	CommodityCurve:      "CommodityCurve",
	CommodityVolatility: "CommodityVolatility",
	CPR:                 "CPR",
	SecuritySpread:      "SecuritySpread",
	ZeroInflationCurve:  "ZeroInflationCurve",
	YoYInflationCurve:   "YoYInflationCurve",
	CPIIndex:            "CPIIndex",
	YieldVolatility:     "YieldVolatility",
	CDSVolatility:       "CDSVolatility",
}

func (t KeyType) String() string {
	if t < 0 || int(t) >= len(keyTypeNames) {
		return "?"
	}
	return keyTypeNames[t]
}

// ParseKeyType is the inverse of KeyType.String.
func ParseKeyType(s string) (KeyType, error) {
	for i, name := range keyTypeNames {
		if name == s {
			return KeyType(i), nil
		}
	}
	return 0, fmt.Errorf("risk factor key type %q does not exist", s)
}

// Key identifies one scalar market input: a pillar or point of the term
// structure named Name within category Type. Keys are comparable values and
// can be used as map keys.
type Key struct {
	Type  KeyType
	Name  string
	Index int
}

// NewKey is a convenience constructor.
func NewKey(t KeyType, name string, index int) Key {
	return Key{Type: t, Name: name, Index: index}
}

// String renders the key as Type/Name/Index.
func (k Key) String() string {
	return k.Type.String() + "/" + k.Name + "/" + strconv.Itoa(k.Index)
}

// Less orders keys by type, then name, then index.
func (k Key) Less(o Key) bool {
	if k.Type != o.Type {
		return k.Type < o.Type
	}
	if k.Name != o.Name {
		return k.Name < o.Name
	}
	return k.Index < o.Index
}

// Compare returns -1, 0 or +1 following Less.
func (k Key) Compare(o Key) int {
	switch {
	case k.Less(o):
		return -1
	case o.Less(k):
		return 1
	default:
		return 0
	}
}

// ParseKey parses the Type/Name/Index form. Names may not contain '/'.
func ParseKey(s string) (Key, error) {
	parts := strings.Split(strings.TrimSpace(s), "/")
	if len(parts) != 3 {
		return Key{}, fmt.Errorf("could not parse key %q", s)
	}
	t, err := ParseKeyType(parts[0])
	if err != nil {
		return Key{}, err
	}
	idx, err := strconv.Atoi(parts[2])
	if err != nil {
		return Key{}, fmt.Errorf("could not parse key %q: %w", s, err)
	}
	if idx < 0 {
		return Key{}, fmt.Errorf("could not parse key %q: negative index", s)
	}
	return Key{Type: t, Name: parts[1], Index: idx}, nil
}

// SortKeys sorts keys in place by the total key order.
func SortKeys(keys []Key) {
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
}
