package engine

import (
	"math"

	"github.com/wippyai/opcall"
)

// BandFormat is the numeric type samples are held to. Values are kept as
// float64 in memory and clamped to the format's range on write.
type BandFormat int

const (
	FormatUchar  BandFormat = 0
	FormatChar   BandFormat = 1
	FormatUshort BandFormat = 2
	FormatShort  BandFormat = 3
	FormatUint   BandFormat = 4
	FormatInt    BandFormat = 5
	FormatFloat  BandFormat = 6
	FormatDouble BandFormat = 8
)

// FormatEnum describes BandFormat to the bridge.
var FormatEnum = &opcall.EnumType{
	Name:   "BandFormat",
	Nicks:  []string{"uchar", "char", "ushort", "short", "uint", "int", "float", "double"},
	Values: []int{0, 1, 2, 3, 4, 5, 6, 8},
}

// rank orders formats for arithmetic promotion.
var rank = map[BandFormat]int{
	FormatUchar:  0,
	FormatChar:   1,
	FormatUshort: 2,
	FormatShort:  3,
	FormatUint:   4,
	FormatInt:    5,
	FormatFloat:  6,
	FormatDouble: 7,
}

func (f BandFormat) String() string {
	if nick, ok := FormatEnum.Nick(int(f)); ok {
		return nick
	}
	return "unknown"
}

func (f BandFormat) Valid() bool {
	_, ok := rank[f]
	return ok
}

func (f BandFormat) IsInt() bool {
	return f != FormatFloat && f != FormatDouble
}

// Range returns the smallest and largest representable sample.
func (f BandFormat) Range() (float64, float64) {
	switch f {
	case FormatUchar:
		return 0, math.MaxUint8
	case FormatChar:
		return math.MinInt8, math.MaxInt8
	case FormatUshort:
		return 0, math.MaxUint16
	case FormatShort:
		return math.MinInt16, math.MaxInt16
	case FormatUint:
		return 0, math.MaxUint32
	case FormatInt:
		return math.MinInt32, math.MaxInt32
	case FormatFloat:
		return -math.MaxFloat32, math.MaxFloat32
	default:
		return math.Inf(-1), math.Inf(1)
	}
}

// Clamp converts v to a sample of format f. Integer formats truncate toward
// zero and saturate.
func (f BandFormat) Clamp(v float64) float64 {
	if math.IsNaN(v) {
		if f.IsInt() {
			return 0
		}
		return v
	}
	switch f {
	case FormatDouble:
		return v
	case FormatFloat:
		return float64(float32(v))
	}
	lo, hi := f.Range()
	v = math.Trunc(v)
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Holds reports whether v is exactly representable in f.
func (f BandFormat) Holds(v float64) bool {
	return f.Clamp(v) == v
}

// widest returns the format of highest rank.
func widest(formats ...BandFormat) BandFormat {
	best := FormatUchar
	for _, f := range formats {
		if rank[f] > rank[best] {
			best = f
		}
	}
	return best
}

// arithmeticFormat is the result format of adding or multiplying samples of
// the given formats: integer inputs widen one step, floats stay floats.
func arithmeticFormat(formats ...BandFormat) BandFormat {
	w := widest(formats...)
	switch w {
	case FormatUchar:
		return FormatUshort
	case FormatChar:
		return FormatShort
	case FormatUshort:
		return FormatUint
	case FormatShort:
		return FormatInt
	case FormatUint, FormatInt:
		return FormatDouble
	default:
		return w
	}
}

// signedFormat is arithmeticFormat for subtraction, which can go negative.
func signedFormat(formats ...BandFormat) BandFormat {
	switch f := arithmeticFormat(formats...); f {
	case FormatUshort:
		return FormatShort
	case FormatUint:
		return FormatInt
	default:
		return f
	}
}

// floatFormat is the result format of division and linear transforms.
func floatFormat(formats ...BandFormat) BandFormat {
	if widest(formats...) == FormatDouble {
		return FormatDouble
	}
	return FormatFloat
}
