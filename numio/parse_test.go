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
	"testing"
)

func mustParse(t *testing.T, tok string) float64 {
	t.Helper()
	v, err := ParseNumber([]byte(tok))
	if err != nil {
		t.Fatalf("ParseNumber(%q): %v", tok, err)
	}
	if i, ok := v.Int32(); ok {
		return float64(i)
	}
	f, ok := v.Double()
	if !ok {
		t.Fatalf("ParseNumber(%q) produced neither Int32 nor Double", tok)
	}
	return f
}

func TestParseDecimalInt(t *testing.T) {
	cases := map[string]float64{
		"0":     0,
		"42":    42,
		"-17":   -17,
		"+5":    5,
		"2147483647": 2147483647,
	}
	for tok, want := range cases {
		got := mustParse(t, tok)
		if got != want {
			t.Errorf("ParseNumber(%q) = %v, want %v", tok, got, want)
		}
	}
}

func TestParseDecimalFloat(t *testing.T) {
	cases := map[string]float64{
		"3.14":    3.14,
		"-0.5":    -0.5,
		"1e3":     1000,
		"1.5e-2":  0.015,
		"2.5E+10": 2.5e10,
	}
	for tok, want := range cases {
		got := mustParse(t, tok)
		if got != want {
			t.Errorf("ParseNumber(%q) = %v, want %v", tok, got, want)
		}
	}
}

func TestParseIntOverflowsToDouble(t *testing.T) {
	v, err := ParseNumber([]byte("99999999999999999999"))
	if err != nil {
		t.Fatalf("ParseNumber: %v", err)
	}
	if _, ok := v.Double(); !ok {
		t.Fatalf("expected overflowed integer literal to parse as Double")
	}
}

// TestHexFloatScenario: parse("0x1.fp+3") == 15.5 exactly.
func TestHexFloatScenario(t *testing.T) {
	got := mustParse(t, "0x1.fp+3")
	if got != 15.5 {
		t.Fatalf("ParseNumber(0x1.fp+3) = %v, want 15.5", got)
	}
}

func TestParseHexInt(t *testing.T) {
	got := mustParse(t, "0xff")
	if got != 255 {
		t.Fatalf("ParseNumber(0xff) = %v, want 255", got)
	}
	got = mustParse(t, "0X10")
	if got != 16 {
		t.Fatalf("ParseNumber(0X10) = %v, want 16", got)
	}
}

func TestParseNumberRejectsGarbage(t *testing.T) {
	bad := []string{"", "+", "-", "1.2.3", "0x", "1e", "abc"}
	for _, tok := range bad {
		if _, err := ParseNumber([]byte(tok)); err == nil {
			t.Errorf("ParseNumber(%q) should have failed", tok)
		}
	}
}

func TestPow10(t *testing.T) {
	cases := map[int]float64{
		0:   1,
		1:   10,
		5:   100000,
		16:  1e16,
		20:  1e20,
		300: 1e300,
		-3:  1e-3,
	}
	for exp, want := range cases {
		got := pow10(exp)
		if math.Abs(got-want)/want > 1e-9 {
			t.Errorf("pow10(%d) = %v, want %v", exp, got, want)
		}
	}
}
