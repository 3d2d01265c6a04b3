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

// Package strx implements the operations defined over String/Ident:
// both are a window over a byte buffer.Buffer, and share a single
// operation surface (concat, pad, trim, find, hash, quoted-literal
// parse/format); only the Value tag distinguishes them.
//
// The escape table below generalizes the switch-over-escape-char
// shape of SnellerInc/sneller's expr.Unescape to the full escape set
// needed here (hex/unicode/octal byte escapes), since Unescape
// itself only covers a PartiQL-sized subset.
package strx

import (
	"fmt"

	"github.com/tinfil/conc/buffer"
	"github.com/tinfil/conc/verr"
)

// New copies raw bytes into a freshly allocated window.
func New(b []byte) buffer.Window[byte] {
	return buffer.Append(buffer.Empty[byte](), b)
}

// RCatChar appends a single byte to s, growing in place if s is
// uniquely owned or reallocating (copy-on-write) otherwise.
func RCatChar(s buffer.Window[byte], c byte) buffer.Window[byte] {
	return buffer.Append(s, []byte{c})
}

// Concat appends right's bytes onto left and releases right (its
// content has been copied). Callers that still
// need `right` afterward must Clone it first.
func Concat(left, right buffer.Window[byte]) buffer.Window[byte] {
	out := buffer.Append(left, right.Slice())
	right.Release()
	return out
}

// LReserve/RReserve guarantee free space on the left/right of s
// without changing its visible length.
func LReserve(s buffer.Window[byte], n int) buffer.Window[byte] { return s.ReserveLeft(n) }
func RReserve(s buffer.Window[byte], n int) buffer.Window[byte] { return s.ReserveRight(n) }

// Substr returns a view onto s[off:off+length] sharing s's buffer.
func Substr(s buffer.Window[byte], off, length int) buffer.Window[byte] {
	return s.Sub(off, length)
}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '\v', '\f':
		return true
	}
	return false
}

// Trim returns a view of s with leading/trailing whitespace removed.
func Trim(s buffer.Window[byte]) buffer.Window[byte] {
	b := s.Slice()
	start := 0
	for start < len(b) && isSpace(b[start]) {
		start++
	}
	end := len(b)
	for end > start && isSpace(b[end-1]) {
		end--
	}
	return s.Sub(start, end-start)
}

// SplitN splits s into two windows, [0,off) and [off,len), both
// sharing s's underlying buffer.
func SplitN(s buffer.Window[byte], off int) (buffer.Window[byte], buffer.Window[byte]) {
	return s.Sub(0, off), s.Sub(off, s.Len-off)
}

// Find returns the index of the first occurrence of sub within s, or
// (-1, false).
func Find(s, sub buffer.Window[byte]) (int, bool) {
	return findBytes(s.Slice(), sub.Slice())
}

// RFind returns the index of the last occurrence of sub within s, or
// (-1, false).
func RFind(s, sub buffer.Window[byte]) (int, bool) {
	return rfindBytes(s.Slice(), sub.Slice())
}

func findBytes(s, sub []byte) (int, bool) {
	if len(sub) == 0 {
		return 0, true
	}
	for i := 0; i+len(sub) <= len(s); i++ {
		if bytesEqual(s[i:i+len(sub)], sub) {
			return i, true
		}
	}
	return -1, false
}

func rfindBytes(s, sub []byte) (int, bool) {
	if len(sub) == 0 {
		return len(s), true
	}
	for i := len(s) - len(sub); i >= 0; i-- {
		if bytesEqual(s[i:i+len(sub)], sub) {
			return i, true
		}
	}
	return -1, false
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// PadLeft returns a new window of the given width with fill bytes
// inserted on the left if s is shorter than width; s is unchanged in
// content, only possibly reallocated.
func PadLeft(s buffer.Window[byte], width int, fill byte) buffer.Window[byte] {
	if s.Len >= width {
		return s
	}
	pad := make([]byte, width-s.Len)
	for i := range pad {
		pad[i] = fill
	}
	return buffer.Prepend(s, pad)
}

// PadRight is PadLeft's mirror.
func PadRight(s buffer.Window[byte], width int, fill byte) buffer.Window[byte] {
	if s.Len >= width {
		return s
	}
	pad := make([]byte, width-s.Len)
	for i := range pad {
		pad[i] = fill
	}
	return buffer.Append(s, pad)
}

// Compare is a bytewise, length-extended comparison: -1/0/+1.
func Compare(a, b buffer.Window[byte]) int {
	ab, bb := a.Slice(), b.Slice()
	n := len(ab)
	if len(bb) < n {
		n = len(bb)
	}
	for i := 0; i < n; i++ {
		if ab[i] != bb[i] {
			if ab[i] < bb[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(ab) < len(bb):
		return -1
	case len(ab) > len(bb):
		return 1
	default:
		return 0
	}
}

// FNV1a32 computes the 32-bit FNV-1a hash used for string hashing
// and the chained hash table.
func FNV1a32(b []byte) uint32 {
	const (
		offset32 = 2166136261
		prime32  = 16777619
	)
	h := uint32(offset32)
	for _, c := range b {
		h ^= uint32(c)
		h *= prime32
	}
	return h
}

// FNV1a64 is FNV1a32's 64-bit variant.
func FNV1a64(b []byte) uint64 {
	const (
		offset64 = 14695981039346656037
		prime64  = 1099511628211
	)
	h := uint64(offset64)
	for _, c := range b {
		h ^= uint64(c)
		h *= prime64
	}
	return h
}

// dehex returns the value of a hex digit and whether c is one:
// accept 0-9, a-f, A-F and reject (rather than silently defaulting
// to 9) anything else.
func dehex(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}

// ParseQuoted parses a quoted string literal token (surrounding
// quote included, as produced by the source parser's tokenizer) into
// its unescaped byte content. The opening byte ('\'' or '"') selects
// single- vs double-quoted style.
func ParseQuoted(tok []byte) (buffer.Window[byte], error) {
	if len(tok) < 2 {
		return buffer.Window[byte]{}, verr.New("strx.ParseQuoted", verr.BadParse)
	}
	quote := tok[0]
	if tok[len(tok)-1] != quote {
		return buffer.Window[byte]{}, verr.New("strx.ParseQuoted", verr.BadParse)
	}
	body := tok[1 : len(tok)-1]
	if quote == '\'' {
		return New(body), nil
	}
	if quote != '"' {
		return buffer.Window[byte]{}, verr.New("strx.ParseQuoted", verr.BadParse)
	}
	out, err := unescapeDouble(body)
	if err != nil {
		return buffer.Window[byte]{}, err
	}
	return New(out), nil
}

func unescapeDouble(body []byte) ([]byte, error) {
	out := make([]byte, 0, len(body))
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c != '\\' {
			out = append(out, c)
			continue
		}
		i++
		if i >= len(body) {
			return nil, verr.Wrap("strx.unescapeDouble", verr.BadEscape, fmt.Errorf("trailing backslash"))
		}
		c = body[i]
		switch c {
		case '\\', '"', '/':
			out = append(out, c)
		case 'b':
			out = append(out, '\b')
		case 'f':
			out = append(out, '\f')
		case 'n':
			out = append(out, '\n')
		case 'r':
			out = append(out, '\r')
		case 't':
			out = append(out, '\t')
		case '\'':
			out = append(out, '\'')
		case 'a':
			out = append(out, '\a')
		case 'v':
			out = append(out, '\v')
		case 'x':
			if i+2 >= len(body) {
				return nil, verr.New("strx.unescapeDouble", verr.BadEscape)
			}
			hi, ok1 := dehex(body[i+1])
			lo, ok2 := dehex(body[i+2])
			if !ok1 || !ok2 {
				return nil, verr.New("strx.unescapeDouble", verr.BadEscape)
			}
			out = append(out, hi<<4|lo)
			i += 2
		case 'u':
			if i+4 >= len(body) {
				return nil, verr.New("strx.unescapeDouble", verr.BadEscape)
			}
			var v uint16
			for j := 1; j <= 4; j++ {
				d, ok := dehex(body[i+j])
				if !ok {
					return nil, verr.New("strx.unescapeDouble", verr.BadEscape)
				}
				v = v<<4 | uint16(d)
			}
			out = append(out, byte(v>>8), byte(v))
			i += 4
		case 'U':
			if i+8 >= len(body) {
				return nil, verr.New("strx.unescapeDouble", verr.BadEscape)
			}
			var v uint32
			for j := 1; j <= 8; j++ {
				d, ok := dehex(body[i+j])
				if !ok {
					return nil, verr.New("strx.unescapeDouble", verr.BadEscape)
				}
				v = v<<4 | uint32(d)
			}
			out = append(out, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
			i += 8
		case '0', '1', '2', '3', '4', '5', '6', '7':
			v := int(c - '0')
			n := 1
			for n < 3 && i+1 < len(body) && body[i+1] >= '0' && body[i+1] <= '7' {
				i++
				v = v*8 + int(body[i]-'0')
				n++
			}
			out = append(out, byte(v))
		default:
			// any other escape -> literal following character
			out = append(out, c)
		}
	}
	return out, nil
}

// FormatQuoted produces the double-quoted, escaped printable form of
// s used by the 'V' conversion.
func FormatQuoted(s []byte) []byte {
	out := make([]byte, 0, len(s)+2)
	out = append(out, '"')
	for _, c := range s {
		switch c {
		case '"':
			out = append(out, '\\', '"')
		case '\\':
			out = append(out, '\\', '\\')
		case '\n':
			out = append(out, '\\', 'n')
		case '\r':
			out = append(out, '\\', 'r')
		case '\t':
			out = append(out, '\\', 't')
		case '\b':
			out = append(out, '\\', 'b')
		case '\f':
			out = append(out, '\\', 'f')
		case '\v':
			out = append(out, '\\', 'v')
		case '\a':
			out = append(out, '\\', 'a')
		case 0x1b: // \e
			out = append(out, '\\', 'e')
		default:
			if c < 32 {
				out = append(out, '\\', 'x', hexDigit(c>>4), hexDigit(c&0xf))
			} else {
				out = append(out, c)
			}
		}
	}
	out = append(out, '"')
	return out
}

func hexDigit(v byte) byte {
	if v < 10 {
		return '0' + v
	}
	return 'a' + v - 10
}

// FormatPlain is the 'v' conversion: raw bytes, no quoting.
func FormatPlain(s []byte) []byte {
	return s
}
