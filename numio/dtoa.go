// Copyright (C) 2022 Sneller, Inc.
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package numio

import (
	"math"
	"math/big"
)

// decimal is the digit-string representation the conversion and
// format stages operate on: the value equals 0.Digits * 10^Dp (an
// implied decimal point before Digits, scaled by 10^Dp). This is the
// same normalized shape strconv's internal decimal conversion uses;
// no third-party bignum library exists in the example pack for exact
// decimal conversion, so this builds it directly on stdlib math/big
// (see DESIGN.md).
type decimal struct {
	Neg    bool
	Digits []byte // ASCII '0'-'9', no leading zero unless the value is exactly zero
	Dp     int
}

// toDecimal performs an exact base-10 conversion of a finite float64:
// every float64 is
// mantissa * 2^exp2 for some integer mantissa and exponent, and since
// 2^k always has a finite decimal expansion (1/2^k = 5^k/10^k), the
// exact decimal digits can be produced with a single big.Int
// shift or multiply-and-stringify, no iterative long division needed.
// Trailing zeros of the product are dropped from Digits.
func toDecimal(f float64) decimal {
	if f == 0 {
		neg := math.Signbit(f)
		return decimal{Neg: neg, Digits: nil, Dp: 0}
	}
	neg := f < 0
	if neg {
		f = -f
	}
	mantissa, exp2 := frexpBits(f)
	if mantissa == 0 {
		return decimal{Neg: neg}
	}

	var digits string
	var dp int
	m := new(big.Int).SetUint64(mantissa)
	if exp2 >= 0 {
		m.Lsh(m, uint(exp2))
		digits = m.String()
		dp = len(digits)
	} else {
		k := -exp2
		five := new(big.Int).Exp(big.NewInt(5), big.NewInt(int64(k)), nil)
		m.Mul(m, five)
		digits = m.String()
		dp = len(digits) - k
	}
	end := len(digits)
	for end > 0 && digits[end-1] == '0' {
		end--
	}
	return decimal{Neg: neg, Digits: []byte(digits[:end]), Dp: dp}
}

// frexpBits decomposes f (finite, positive, nonzero) into an integer
// mantissa and binary exponent such that f == mantissa * 2^exp2,
// handling the implicit leading bit and subnormals.
func frexpBits(f float64) (mantissa uint64, exp2 int) {
	bits := math.Float64bits(f)
	rawExp := int((bits >> 52) & 0x7ff)
	frac := bits & (1<<52 - 1)
	if rawExp == 0 {
		// subnormal: no implicit leading bit
		return frac, -1074
	}
	return frac | (1 << 52), rawExp - 1023 - 52
}

// roundSig rounds d's digit string to at most nsig significant
// digits using nearest-half-even rounding, returning a new decimal.
// nsig may be <= 0 (the whole value rounds
// to zero or carries up into "1" at Dp+1) or >= len(d.Digits) (no
// rounding needed, returned unchanged).
func roundSig(d decimal, nsig int) decimal {
	if nsig >= len(d.Digits) {
		return d
	}
	if nsig < 0 {
		nsig = 0
	}
	kept := append([]byte{}, d.Digits[:nsig]...)
	roundUp := false
	if nsig < len(d.Digits) {
		next := d.Digits[nsig]
		switch {
		case next > '5':
			roundUp = true
		case next == '5':
			hasMore := false
			for _, c := range d.Digits[nsig+1:] {
				if c != '0' {
					hasMore = true
					break
				}
			}
			if hasMore {
				roundUp = true
			} else {
				last := byte('0')
				if nsig > 0 {
					last = kept[nsig-1]
				}
				if (last-'0')%2 == 1 {
					roundUp = true
				}
			}
		}
	}
	dp := d.Dp
	if roundUp {
		i := len(kept) - 1
		for i >= 0 {
			if kept[i] == '9' {
				kept[i] = '0'
				i--
			} else {
				kept[i]++
				break
			}
		}
		if i < 0 {
			kept = append([]byte{'1'}, kept...)
			dp++
		}
	}
	// drop trailing zeros left in the kept digits (e.g. a carry that
	// turns "99" into "100" leaves just "1" with Dp+1); Dp is unchanged
	// by this. Leading zeros never occur since kept starts from the
	// most significant digit of a normalized decimal.
	for len(kept) > 0 && kept[len(kept)-1] == '0' {
		kept = kept[:len(kept)-1]
	}
	return decimal{Neg: d.Neg, Digits: kept, Dp: dp}
}

// zeroExtend pads d's digit string with trailing zeros so it has at
// least n digits, for the format stage's extend_to step.
func zeroExtend(d decimal, n int) decimal {
	if len(d.Digits) >= n {
		return d
	}
	out := make([]byte, n)
	copy(out, d.Digits)
	for i := len(d.Digits); i < n; i++ {
		out[i] = '0'
	}
	return decimal{Neg: d.Neg, Digits: out, Dp: d.Dp}
}

// digitAt returns the decimal digit at zero-based significant
// position i (0 = most significant), or '0' past the end.
func (d decimal) digitAt(i int) byte {
	if i < 0 || i >= len(d.Digits) {
		return '0'
	}
	return d.Digits[i]
}
