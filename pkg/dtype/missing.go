package dtype

import (
	"fmt"
	"math"
	"sync"

	"github.com/statkit/dta/pkg/table"
)

// Sentinel construction parameters. Integer sentinels occupy the top 27
// values of each type's range. Float sentinels start from a base bit
// pattern and advance the integer view by a fixed increment.
const (
	int8MissingBase  = 101
	int16MissingBase = 32741
	int32MissingBase = 2147483621

	float32MissingBase      = uint32(0x7f000000)
	float32MissingIncrement = uint32(0x00000800)
	float64MissingBase      = uint64(0x7fe0000000000000)
	float64MissingIncrement = uint64(1) << 40
)

// symbols are ".", ".a" .. ".z" in sentinel order.
var symbols = func() []string {
	s := make([]string, 27)
	s[0] = "."
	for i := 1; i < 27; i++ {
		s[i] = "." + string(rune('a'+i-1))
	}
	return s
}()

// Symbols returns the 27 missing-value symbols in sentinel order.
func Symbols() []string {
	return symbols
}

type sentinelTable struct {
	bySymbol map[string]float64
	byValue  map[float64]string
}

var (
	sentinelOnce   sync.Once
	sentinelTables map[table.Kind]*sentinelTable
)

func buildSentinels() {
	sentinelTables = make(map[table.Kind]*sentinelTable, 5)
	add := func(k table.Kind, values []float64) {
		t := &sentinelTable{
			bySymbol: make(map[string]float64, 27),
			byValue:  make(map[float64]string, 27),
		}
		for i, v := range values {
			t.bySymbol[symbols[i]] = v
			t.byValue[v] = symbols[i]
		}
		sentinelTables[k] = t
	}

	ints := func(base int64) []float64 {
		vals := make([]float64, 27)
		for i := range vals {
			vals[i] = float64(base + int64(i))
		}
		return vals
	}
	add(table.Int8, ints(int8MissingBase))
	add(table.Int16, ints(int16MissingBase))
	add(table.Int32, ints(int32MissingBase))

	f32 := make([]float64, 27)
	for i := range f32 {
		f32[i] = float64(math.Float32frombits(Float32SentinelBits(i)))
	}
	add(table.Float32, f32)

	f64 := make([]float64, 27)
	for i := range f64 {
		f64[i] = math.Float64frombits(Float64SentinelBits(i))
	}
	add(table.Float64, f64)
}

func tableFor(k table.Kind) *sentinelTable {
	sentinelOnce.Do(buildSentinels)
	t, ok := sentinelTables[k]
	if !ok {
		panic(fmt.Sprintf("dtype: no sentinels for kind %s", k))
	}
	return t
}

// Float32SentinelBits returns the bit pattern of the i-th float32
// sentinel (0 is the generic ".").
func Float32SentinelBits(i int) uint32 {
	return float32MissingBase + uint32(i)*float32MissingIncrement
}

// Float64SentinelBits returns the bit pattern of the i-th float64
// sentinel (0 is the generic ".").
func Float64SentinelBits(i int) uint64 {
	return float64MissingBase + uint64(i)*float64MissingIncrement
}

// Sentinel returns the sentinel value for a symbol in the given kind.
func Sentinel(k table.Kind, symbol string) (float64, error) {
	v, ok := tableFor(k).bySymbol[symbol]
	if !ok {
		return 0, fmt.Errorf("dtype: no sentinel symbol %q", symbol)
	}
	return v, nil
}

// Symbol returns the missing-value symbol for a sentinel value, if the
// value is one of the kind's 27 sentinels.
func Symbol(k table.Kind, value float64) (string, bool) {
	s, ok := tableFor(k).byValue[value]
	return s, ok
}

// GenericMissing returns the generic "." sentinel for a kind. Used to
// replace nulls on write.
func GenericMissing(k table.Kind) float64 {
	v, _ := Sentinel(k, ".")
	return v
}

// IsMissing reports whether a value of the given kind lies outside the
// kind's valid range, i.e. in the sentinel region.
func IsMissing(k table.Kind, value float64) bool {
	min, max := ValidRange(k)
	return value < min || value > max
}
