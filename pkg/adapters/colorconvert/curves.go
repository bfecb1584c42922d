package colorconvert

import "math"

// Linear is the identity curve.
var Linear = Curve{
	ToLinear:   func(v float64) float64 { return v },
	FromLinear: func(v float64) float64 { return v },
}

// SRGB is the IEC 61966-2-1 transfer function.
var SRGB = Curve{
	ToLinear: func(v float64) float64 {
		if v <= 0.04045 {
			return v / 12.92
		}
		return math.Pow((v+0.055)/1.055, 2.4)
	},
	FromLinear: func(v float64) float64 {
		if v <= 0.0031308 {
			return v * 12.92
		}
		return 1.055*math.Pow(v, 1/2.4) - 0.055
	},
}

// Rec709 is the ITU-R BT.709 camera transfer function.
var Rec709 = Curve{
	ToLinear: func(v float64) float64 {
		if v < 0.081 {
			return v / 4.5
		}
		return math.Pow((v+0.099)/1.099, 1/0.45)
	},
	FromLinear: func(v float64) float64 {
		if v < 0.018 {
			return v * 4.5
		}
		return 1.099*math.Pow(v, 0.45) - 0.099
	},
}

// Kodak Cineon printing density encoding: 10-bit code values, reference
// black at 95 and white at 685, 0.002 density per code value, gamma 0.6.
const (
	cineonBlackCode = 95.0
	cineonWhiteCode = 685.0
	cineonStep      = 0.002 / 0.6
)

var cineonBlack = math.Pow(10, (cineonBlackCode-cineonWhiteCode)*cineonStep)

// Cineon is the Kodak log encoding.
var Cineon = Curve{
	ToLinear: func(v float64) float64 {
		lin := math.Pow(10, (v*1023-cineonWhiteCode)*cineonStep)
		return (lin - cineonBlack) / (1 - cineonBlack)
	},
	FromLinear: func(v float64) float64 {
		x := v*(1-cineonBlack) + cineonBlack
		if x <= 0 {
			return 0
		}
		return (cineonWhiteCode + math.Log10(x)/cineonStep) / 1023
	},
}

// Gamma returns a pure power-law curve.
func Gamma(g float64) Curve {
	return Curve{
		ToLinear: func(v float64) float64 {
			if v <= 0 {
				return 0
			}
			return math.Pow(v, g)
		},
		FromLinear: func(v float64) float64 {
			if v <= 0 {
				return 0
			}
			return math.Pow(v, 1/g)
		},
	}
}
