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
	"strconv"

	"github.com/tinfil/conc/value"
	"github.com/tinfil/conc/verr"
)

// Spec is one parsed printf conversion: the pieces the single format
// stage consumes to turn one numeric Value into text.
// printf.go's Sprintf is responsible for scanning a format
// string into a sequence of these; this file only implements the
// "format one value with one spec" stage itself.
type Spec struct {
	Conv      byte // one of d i o u x X f e E g G q Q a A c s v V p n m % _
	Alt       bool // '#' flag
	ZeroPad   bool // '0' flag
	LeftAlign bool // '-' flag
	Space     bool // ' ' flag
	Plus      bool // '+' flag
	Apos      bool // '\'' flag: thousands-separated digit groups
	Binary    bool // 'b' flag: binary integer output
	Width     int
	HasWidth  bool
	Prec      int
	HasPrec   bool
}

// Format renders v according to s. Non-numeric conversions (c, s, v, V, p, n, m, %) are
// handled by the printf driver directly (they don't route through the
// decimal/rounding pipeline numeric conversions share), so Format
// only accepts the numeric family.
func Format(v value.Value, s Spec) (string, error) {
	switch s.Conv {
	case 'd', 'i':
		return formatSignedInt(v, s)
	case 'u', 'o', 'x', 'X':
		return formatUnsignedInt(v, s)
	case 'f':
		return formatFixed(v, s)
	case 'e', 'E':
		return formatExp(v, s)
	case 'g', 'G':
		return formatGeneral(v, s)
	case 'q', 'Q':
		return formatExpAlt(v, s)
	case 'a', 'A':
		return formatHexFloat(v, s)
	default:
		return "", verr.New("numio.Format", verr.BadArgs)
	}
}

func intOf(v value.Value) (int64, bool) {
	if i, ok := v.Int32(); ok {
		return int64(i), true
	}
	if f, ok := v.Double(); ok && value.Finite(v) {
		return int64(f), true
	}
	return 0, false
}

func floatOf(v value.Value) (float64, bool) {
	if i, ok := v.Int32(); ok {
		return float64(i), true
	}
	return v.Double()
}

func signChar(neg bool, s Spec) string {
	switch {
	case neg:
		return "-"
	case s.Plus:
		return "+"
	case s.Space:
		return " "
	default:
		return ""
	}
}

func applyWidth(body string, sign string, s Spec) string {
	total := len(sign) + len(body)
	if !s.HasWidth || total >= s.Width {
		return sign + body
	}
	pad := s.Width - total
	if s.LeftAlign {
		return sign + body + spaces(pad)
	}
	if s.ZeroPad {
		return sign + zeros(pad) + body
	}
	return spaces(pad) + sign + body
}

func spaces(n int) string { return repeat(' ', n) }
func zeros(n int) string  { return repeat('0', n) }

func repeat(b byte, n int) string {
	if n <= 0 {
		return ""
	}
	out := make([]byte, n)
	for i := range out {
		out[i] = b
	}
	return string(out)
}

func formatSignedInt(v value.Value, s Spec) (string, error) {
	i, ok := intOf(v)
	if !ok {
		return "", verr.New("numio.formatSignedInt", verr.BadType)
	}
	neg := i < 0
	if neg {
		i = -i
	}
	digits := strconv.FormatInt(i, 10)
	if s.HasPrec && len(digits) < s.Prec {
		digits = zeros(s.Prec-len(digits)) + digits
	}
	if s.Apos {
		digits = groupDigits(digits)
	}
	return applyWidth(digits, signChar(neg, s), s), nil
}

func formatUnsignedInt(v value.Value, s Spec) (string, error) {
	i, ok := intOf(v)
	if !ok {
		return "", verr.New("numio.formatUnsignedInt", verr.BadType)
	}
	u := uint64(uint32(i))
	if s.Binary {
		digits := strconv.FormatUint(u, 2)
		if s.HasPrec && len(digits) < s.Prec {
			digits = zeros(s.Prec-len(digits)) + digits
		}
		return applyWidth(digits, "", s), nil
	}
	var digits string
	prefix := ""
	switch s.Conv {
	case 'u':
		digits = strconv.FormatUint(u, 10)
	case 'o':
		digits = strconv.FormatUint(u, 8)
		if s.Alt && (len(digits) == 0 || digits[0] != '0') {
			prefix = "0"
		}
	case 'x':
		digits = strconv.FormatUint(u, 16)
		if s.Alt && u != 0 {
			prefix = "0x"
		}
	case 'X':
		digits = upper(strconv.FormatUint(u, 16))
		if s.Alt && u != 0 {
			prefix = "0X"
		}
	}
	if s.HasPrec && len(digits) < s.Prec {
		digits = zeros(s.Prec-len(digits)) + digits
	}
	return applyWidth(prefix+digits, "", s), nil
}

func upper(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			b[i] = c - 'a' + 'A'
		}
	}
	return string(b)
}

func groupDigits(digits string) string {
	const sep = byte(',')
	n := len(digits)
	if n <= 3 {
		return digits
	}
	lead := n % 3
	if lead == 0 {
		lead = 3
	}
	out := make([]byte, 0, n+n/3)
	out = append(out, digits[:lead]...)
	for i := lead; i < n; i += 3 {
		out = append(out, sep)
		out = append(out, digits[i:i+3]...)
	}
	return string(out)
}

func nonFinite(f float64, upperCase bool) (string, bool) {
	switch {
	case math.IsNaN(f):
		if upperCase {
			return "NAN", true
		}
		return "nan", true
	case math.IsInf(f, 1):
		if upperCase {
			return "INF", true
		}
		return "inf", true
	case math.IsInf(f, -1):
		if upperCase {
			return "-INF", true
		}
		return "-inf", true
	}
	return "", false
}

func formatFixed(v value.Value, s Spec) (string, error) {
	f, ok := floatOf(v)
	if !ok {
		return "", verr.New("numio.formatFixed", verr.BadType)
	}
	prec := 6
	if s.HasPrec {
		prec = s.Prec
	}
	if str, isSpecial := nonFinite(f, s.Conv == 'F'); isSpecial {
		return applyWidth(str, "", Spec{}), nil
	}
	neg := math.Signbit(f)
	d := toDecimal(math.Abs(f))
	// fixed notation keeps prec digits after the decimal point, i.e.
	// Dp+prec significant digits from the start of Digits.
	nsig := d.Dp + prec
	d = roundSig(d, nsig)
	d = zeroExtend(d, d.Dp+prec)

	var body []byte
	if d.Dp <= 0 {
		body = append(body, '0')
	} else {
		for i := 0; i < d.Dp; i++ {
			body = append(body, d.digitAt(i))
		}
	}
	if prec > 0 || s.Alt {
		body = append(body, '.')
		for i := 0; i < prec; i++ {
			body = append(body, d.digitAt(d.Dp+i))
		}
	}
	if s.Apos {
		body = []byte(groupIntPart(string(body)))
	}
	return applyWidth(string(body), signChar(neg, s), s), nil
}

// groupIntPart inserts digit-group separators into only the integer
// portion of a formatted fixed-point string (left of any '.').
func groupIntPart(s string) string {
	dot := -1
	for i := 0; i < len(s); i++ {
		if s[i] == '.' {
			dot = i
			break
		}
	}
	if dot < 0 {
		return groupDigits(s)
	}
	return groupDigits(s[:dot]) + s[dot:]
}

func formatExp(v value.Value, s Spec) (string, error) {
	f, ok := floatOf(v)
	if !ok {
		return "", verr.New("numio.formatExp", verr.BadType)
	}
	upperCase := s.Conv == 'E'
	if str, isSpecial := nonFinite(f, upperCase); isSpecial {
		return applyWidth(str, "", Spec{}), nil
	}
	neg := math.Signbit(f)
	prec := 6
	if s.HasPrec {
		prec = s.Prec
	}
	body, err := expBody(math.Abs(f), prec, upperCase, s.Alt)
	if err != nil {
		return "", err
	}
	return applyWidth(body, signChar(neg, s), s), nil
}

// expBody renders abs(f) in scientific notation with prec digits
// after the point, e.g. "1.234500e+03".
func expBody(f float64, prec int, upperCase, alt bool) (string, error) {
	if f == 0 {
		mant := "0"
		if prec > 0 || alt {
			mant += "." + zeros(prec)
		}
		e := expTail(0, upperCase)
		return mant + e, nil
	}
	d := toDecimal(f)
	// exactly 1 leading significant digit plus prec fractional digits.
	d = roundSig(d, 1+prec)
	d = zeroExtend(d, 1+prec)
	exp10 := d.Dp - 1

	var body []byte
	body = append(body, d.digitAt(0))
	if prec > 0 || alt {
		body = append(body, '.')
		for i := 0; i < prec; i++ {
			body = append(body, d.digitAt(1+i))
		}
	}
	return string(body) + expTail(exp10, upperCase), nil
}

func expTail(exp int, upperCase bool) string {
	e := byte('e')
	if upperCase {
		e = 'E'
	}
	sign := byte('+')
	if exp < 0 {
		sign = '-'
		exp = -exp
	}
	digits := strconv.Itoa(exp)
	if len(digits) < 2 {
		digits = "0" + digits
	}
	return string(e) + string(sign) + digits
}

func formatGeneral(v value.Value, s Spec) (string, error) {
	f, ok := floatOf(v)
	if !ok {
		return "", verr.New("numio.formatGeneral", verr.BadType)
	}
	upperCase := s.Conv == 'G'
	if str, isSpecial := nonFinite(f, upperCase); isSpecial {
		return applyWidth(str, "", Spec{}), nil
	}
	prec := 6
	if s.HasPrec {
		prec = s.Prec
	}
	if prec == 0 {
		prec = 1
	}
	neg := math.Signbit(f)
	af := math.Abs(f)
	if af == 0 {
		return applyWidth("0", signChar(neg, s), s), nil
	}
	d := toDecimal(af)
	dr := roundSig(d, prec)
	exp10 := dr.Dp - 1
	var body string
	var err error
	if exp10 < -4 || exp10 >= prec {
		body, err = expBody(af, prec-1, upperCase, s.Alt)
	} else {
		fixPrec := prec - dr.Dp
		if fixPrec < 0 {
			fixPrec = 0
		}
		body, err = formatFixedDigits(af, fixPrec, s.Alt)
	}
	if err != nil {
		return "", err
	}
	if !s.Alt {
		body = trimGeneralZeros(body)
	}
	return applyWidth(body, signChar(neg, s), s), nil
}

func formatFixedDigits(af float64, prec int, alt bool) (string, error) {
	d := toDecimal(af)
	nsig := d.Dp + prec
	d = roundSig(d, nsig)
	d = zeroExtend(d, d.Dp+prec)
	var body []byte
	if d.Dp <= 0 {
		body = append(body, '0')
	} else {
		for i := 0; i < d.Dp; i++ {
			body = append(body, d.digitAt(i))
		}
	}
	if prec > 0 || alt {
		body = append(body, '.')
		for i := 0; i < prec; i++ {
			body = append(body, d.digitAt(d.Dp+i))
		}
	}
	return string(body), nil
}

// trimGeneralZeros strips trailing fractional zeros (and a bare
// trailing '.') from a %g-style body, per the conversion's "remove
// trailing zeros unless # given" rule.
func trimGeneralZeros(s string) string {
	dot := -1
	eIdx := -1
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '.':
			dot = i
		case 'e', 'E':
			eIdx = i
		}
	}
	if dot < 0 {
		return s
	}
	mantEnd := len(s)
	tail := ""
	if eIdx >= 0 {
		mantEnd = eIdx
		tail = s[eIdx:]
	}
	mant := s[:mantEnd]
	i := len(mant)
	for i > dot && mant[i-1] == '0' {
		i--
	}
	if i-1 == dot {
		i--
	}
	return mant[:i] + tail
}

// formatExpAlt implements the 'q'/'Q' engineering-notation
// conversion: like 'e'/'E' but the exponent is constrained to a
// multiple of 3 (so the leading digit group has 1-3 integer digits),
// with precision counting digits after the point, e.g.
// format(1234.0, "%.3q") == "1.234e+03".
func formatExpAlt(v value.Value, s Spec) (string, error) {
	f, ok := floatOf(v)
	if !ok {
		return "", verr.New("numio.formatExpAlt", verr.BadType)
	}
	upperCase := s.Conv == 'Q'
	if str, isSpecial := nonFinite(f, upperCase); isSpecial {
		return applyWidth(str, "", Spec{}), nil
	}
	neg := math.Signbit(f)
	prec := 6
	if s.HasPrec {
		prec = s.Prec
	}
	af := math.Abs(f)
	body, err := engineeringBody(af, prec, upperCase, s.Alt)
	if err != nil {
		return "", err
	}
	return applyWidth(body, signChar(neg, s), s), nil
}

// engineeringBody renders abs(f) with an exponent that is a multiple
// of 3 and prec digits after the decimal point.
func engineeringBody(f float64, prec int, upperCase, alt bool) (string, error) {
	if f == 0 {
		mant := "0"
		if prec > 0 || alt {
			mant += "." + zeros(prec)
		}
		return mant + expTail(0, upperCase), nil
	}
	d := toDecimal(f)
	exp10 := d.Dp - 1
	// shift the leading-digit count so exp10 becomes a multiple of 3:
	// leadDigits in [1,3] such that (exp10 - (leadDigits-1)) % 3 == 0.
	leadDigits := 1 + ((exp10 % 3) + 3) % 3
	engExp := exp10 - (leadDigits - 1)

	d = roundSig(d, leadDigits+prec)
	d = zeroExtend(d, leadDigits+prec)
	// rounding can carry the leading digit group up to the next power
	// of 10 (e.g. 999.5 -> 1000 with leadDigits=3); re-derive the
	// actual lead/exponent split from the rounded digit string's Dp.
	leadDigits = d.Dp - engExp
	for leadDigits > 3 {
		leadDigits -= 3
		engExp += 3
	}

	var body []byte
	for i := 0; i < leadDigits; i++ {
		body = append(body, d.digitAt(i))
	}
	if prec > 0 || alt {
		body = append(body, '.')
		for i := 0; i < prec; i++ {
			body = append(body, d.digitAt(leadDigits+i))
		}
	}
	return string(body) + expTail(engExp, upperCase), nil
}

// formatHexFloat implements 'a'/'A': C99 hex float notation, e.g.
// format(15.5, "%a") == "0x1.fp+3".
func formatHexFloat(v value.Value, s Spec) (string, error) {
	f, ok := floatOf(v)
	if !ok {
		return "", verr.New("numio.formatHexFloat", verr.BadType)
	}
	upperCase := s.Conv == 'A'
	if str, isSpecial := nonFinite(f, upperCase); isSpecial {
		return applyWidth(str, "", Spec{}), nil
	}
	neg := math.Signbit(f)
	af := math.Abs(f)

	prefix := "0x"
	pChar := byte('p')
	if upperCase {
		prefix = "0X"
		pChar = 'P'
	}
	if af == 0 {
		body := prefix + "0"
		if s.HasPrec && s.Prec > 0 {
			body += "." + zeros(s.Prec)
		}
		body += string(pChar) + "+0"
		return applyWidth(body, signChar(neg, s), s), nil
	}

	mantissa, exp2 := frexpBits(af)
	// normalize to have exactly one leading bit before the point: the
	// implicit/explicit bit layout already does this (bit 52 set for
	// normals), so the integer hex digit is always 1 for normals.
	intDigit := byte('1')
	frac := mantissa & (1<<52 - 1)
	binExp := exp2 + 52
	if mantissa>>52 == 0 {
		// subnormal: no implicit leading bit.
		intDigit = '0'
	}
	hexFrac := make([]byte, 13)
	for i := 12; i >= 0; i-- {
		hexFrac[i] = hexDigitChar(byte(frac&0xf), upperCase)
		frac >>= 4
	}
	// trim trailing zero hex digits unless a precision was requested.
	end := len(hexFrac)
	if !s.HasPrec {
		for end > 0 && hexFrac[end-1] == '0' {
			end--
		}
	} else if s.Prec < end {
		end = s.Prec
		hexFrac = hexFrac[:end]
	}
	body := prefix + string(intDigit)
	if end > 0 || s.Alt {
		body += "." + string(hexFrac[:end])
	}
	body += string(pChar) + expSign(binExp)
	return applyWidth(body, signChar(neg, s), s), nil
}

func expSign(e int) string {
	if e < 0 {
		return "-" + strconv.Itoa(-e)
	}
	return "+" + strconv.Itoa(e)
}

func hexDigitChar(d byte, upperCase bool) byte {
	if d < 10 {
		return '0' + d
	}
	if upperCase {
		return 'A' + d - 10
	}
	return 'a' + d - 10
}
