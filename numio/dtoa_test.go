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
	"testing"

	"github.com/tinfil/conc/value"
)

func TestToDecimalExact(t *testing.T) {
	cases := []struct {
		f    float64
		want string
		dp   int
	}{
		{1.0, "1", 1},
		{0.5, "5", 0},
		{15.5, "155", 2},
		{1234.0, "1234", 4},
		{0.125, "125", 0},
	}
	for _, c := range cases {
		d := toDecimal(c.f)
		if string(d.Digits) != c.want || d.Dp != c.dp {
			t.Errorf("toDecimal(%v) = (%q, dp=%d), want (%q, dp=%d)", c.f, d.Digits, d.Dp, c.want, c.dp)
		}
	}
}

func TestToDecimalZero(t *testing.T) {
	d := toDecimal(0)
	if len(d.Digits) != 0 || d.Neg {
		t.Fatalf("toDecimal(0) = %+v, want empty non-negative", d)
	}
}

func TestRoundSigHalfEven(t *testing.T) {
	// 0.125 rounded to 2 significant digits: "125" with dp=0, ties to
	// even -> "12" (last kept digit 2 is even, no round up needed since
	// dropped digit is exactly 5 with nothing after).
	d := decimal{Digits: []byte("125"), Dp: 0}
	r := roundSig(d, 2)
	if string(r.Digits) != "12" {
		t.Fatalf("roundSig(0.125, 2 sig) = %q, want %q", r.Digits, "12")
	}

	// 0.135 rounded to 2 sig digits: last kept digit 3 is odd -> rounds
	// up to "14".
	d2 := decimal{Digits: []byte("135"), Dp: 0}
	r2 := roundSig(d2, 2)
	if string(r2.Digits) != "14" {
		t.Fatalf("roundSig(0.135, 2 sig) = %q, want %q", r2.Digits, "14")
	}
}

func TestRoundSigCarryOverflow(t *testing.T) {
	d := decimal{Digits: []byte("999"), Dp: 3}
	r := roundSig(d, 2)
	if string(r.Digits) != "1" || r.Dp != 4 {
		t.Fatalf("roundSig(999e0, 2 sig) = (%q, dp=%d), want (\"1\", dp=4)", r.Digits, r.Dp)
	}
}

func TestRoundTripFiniteValues(t *testing.T) {
	// round-trip law: parse(format(n)) == n for finite values, via
	// the 'v' (shortest round-trippable) conversion.
	vals := []float64{0, 1, -1, 2, 0.5, 0.25, 10, 100, -3.5, 1e10}
	for _, f := range vals {
		s := formatValuePlain(value.FromDouble(f))
		got, err := ParseNumber([]byte(s))
		if err != nil {
			t.Fatalf("round-trip parse of %q failed: %v", s, err)
		}
		gf, ok := got.Double()
		if !ok {
			if i, ok2 := got.Int32(); ok2 {
				gf = float64(i)
			} else {
				t.Fatalf("round-trip of %q produced neither Int32 nor Double", s)
			}
		}
		if gf != f {
			t.Errorf("round-trip %v -> %q -> %v, want %v", f, s, gf, f)
		}
	}
}
