// Package float8 converts between float32 and the 8-bit E5M2 format of DT_FLOAT8_E5M2 tensors.
package float8

import (
	"math"
)

const (
	fp32Inf     uint32 = 255 << 23
	fp32E5M2Max uint32 = 143 << 23

	// Subnormal results are rounded by adding 0.5 in this bit pattern, then subtracting it back out.
	e5m2DenormMask      uint32 = 134 << 23
	// ((15 - 127) << 23) + 0xFFFFF: rebias the exponent and round half to even in one add.
	e5m2ExponentBiasAug uint32 = 3356491775
	e5m2MinNormal       uint32 = 113 << 23
)

// E5M2 holds 1 sign bit, 5 exponent bits and 2 mantissa bits.
// See https://arxiv.org/pdf/2209.05433.pdf
type E5M2 uint8

// FromFloat32 rounds f to the nearest E5M2 value. Values beyond the largest finite E5M2 become
// infinity and NaN stays NaN.
func FromFloat32(f float32) E5M2 {
	bits := math.Float32bits(f)
	sign := bits & 0x80000000
	bits ^= sign

	var result uint8
	switch {
	case bits >= fp32E5M2Max:
		if bits > fp32Inf {
			result = 0x7F
		} else {
			result = 0x7C
		}
	case bits < e5m2MinNormal:
		bits = math.Float32bits(math.Float32frombits(bits) + math.Float32frombits(e5m2DenormMask))
		result = uint8(bits - e5m2DenormMask)
	default:
		mantissaOdd := (bits >> 21) & 1
		bits += e5m2ExponentBiasAug + mantissaOdd
		result = uint8(bits >> 21)
	}
	return E5M2(result | uint8(sign>>24))
}

func (e E5M2) Bits() uint8 { return uint8(e) }

func (e E5M2) Float32() float32 {
	sign := (e >> 7) & 0x1
	exponent := (e >> 2) & 0x1F
	mantissa := e & 0x3

	if exponent == 0x1F {
		if mantissa != 0 {
			return float32(math.NaN())
		}
		if sign == 1 {
			return float32(math.Inf(-1))
		}
		return float32(math.Inf(1))
	}

	var value float64
	if exponent == 0 {
		value = float64(mantissa) / 4 * math.Pow(2, -14)
	} else {
		value = (1 + float64(mantissa)/4) * math.Pow(2, float64(int(exponent)-15))
	}
	if sign == 1 {
		value = -value
	}
	return float32(value)
}
