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
	"strconv"
	"strings"

	"github.com/tinfil/conc/strx"
	"github.com/tinfil/conc/value"
	"github.com/tinfil/conc/verr"
)

// ArgSource abstracts the two argument-stream modes the printf
// driver supports: a single variadic list of Values consumed left to right,
// or a matched pair of format-list/value-list streams where the
// format string itself is one of the list elements. Both shapes
// reduce to "give me the next argument" plus optional random access by
// explicit index (the positional "number followed by a dollar sign"
// convention).
type ArgSource interface {
	// Next returns the next value in argument order.
	Next() (value.Value, bool)
	// At returns the value at explicit 1-based index m, the
	// positional-argument convention, without advancing Next's cursor.
	At(m int) (value.Value, bool)
}

// sliceArgs is the variadic-argument-stream ArgSource: a flat []Value
// consumed in order.
type sliceArgs struct {
	vals []value.Value
	pos  int
}

// NewArgs builds the simple variadic ArgSource over vals.
func NewArgs(vals []value.Value) ArgSource { return &sliceArgs{vals: vals} }

func (a *sliceArgs) Next() (value.Value, bool) {
	if a.pos >= len(a.vals) {
		return value.Value{}, false
	}
	v := a.vals[a.pos]
	a.pos++
	return v, true
}

func (a *sliceArgs) At(m int) (value.Value, bool) {
	i := m - 1
	if i < 0 || i >= len(a.vals) {
		return value.Value{}, false
	}
	return a.vals[i], true
}

// Sprintf is the printf driver: it scans format for '%' conversions,
// consuming Values from args in order (or by explicit positional
// index), and returns the rendered string.
//
// Supported: flags '# 0 - space + \' b', an optional width (literal or
// '*'-from-args), an optional '.precision' (literal or '*'), length
// modifiers 'hh h l ll L j z t' (parsed and discarded -- every Value
// already carries its own width, so they are semantically inert:
// conversions operate on Values, not raw machine words), explicit
// positional and positional-width/precision
// arguments, and conversions 'd i o u x X f e E g G q Q a A c s v
// V p n m % _'.
func Sprintf(format string, args ArgSource) (string, error) {
	var out strings.Builder
	i := 0
	n := len(format)
	autoIndex := 0
	for i < n {
		c := format[i]
		if c != '%' {
			out.WriteByte(c)
			i++
			continue
		}
		i++
		if i >= n {
			return "", verr.New("numio.Sprintf", verr.BadParse)
		}
		if format[i] == '%' {
			out.WriteByte('%')
			i++
			continue
		}

		var explicitIndex int // 0 means "use auto-advance"
		if j, ok := scanPositional(format, i); ok {
			explicitIndex = j.index
			i = j.next
		}

		var s Spec
		for i < n {
			switch format[i] {
			case '#':
				s.Alt = true
			case '0':
				s.ZeroPad = true
			case '-':
				s.LeftAlign = true
			case ' ':
				s.Space = true
			case '+':
				s.Plus = true
			case '\'':
				s.Apos = true
			case 'b':
				s.Binary = true
			default:
				goto doneFlags
			}
			i++
		}
	doneFlags:

		if i < n && format[i] == '*' {
			i++
			widthIndex := 0
			if j, ok := scanPositional(format, i); ok {
				widthIndex = j.index
				i = j.next
			}
			wv, ok := nextArg(args, &autoIndex, widthIndex)
			if !ok {
				return "", verr.New("numio.Sprintf", verr.MissingArgs)
			}
			w, _ := intOf(wv)
			s.Width = int(w)
			s.HasWidth = true
		} else {
			w, rest, ok := scanInt(format, i)
			if ok {
				s.Width = w
				s.HasWidth = true
				i = rest
			}
		}

		if i < n && format[i] == '.' {
			i++
			if i < n && format[i] == '*' {
				i++
				precIndex := 0
				if j, ok := scanPositional(format, i); ok {
					precIndex = j.index
					i = j.next
				}
				pv, ok := nextArg(args, &autoIndex, precIndex)
				if !ok {
					return "", verr.New("numio.Sprintf", verr.MissingArgs)
				}
				p, _ := intOf(pv)
				s.Prec = int(p)
				s.HasPrec = true
			} else {
				p, rest, ok := scanInt(format, i)
				if !ok {
					p = 0
				} else {
					i = rest
				}
				s.Prec = p
				s.HasPrec = true
			}
		}

		// length modifiers: parsed and discarded (see doc comment).
		for i < n && isLengthMod(format[i]) {
			i++
		}

		if i >= n {
			return "", verr.New("numio.Sprintf", verr.BadParse)
		}
		conv := format[i]
		i++
		s.Conv = conv

		if conv == 'n' {
			// "write bytes-produced-so-far": consumes no argument.
			out.WriteString(applyWidth(strconv.Itoa(out.Len()), "", s))
			continue
		}

		arg, ok := nextArg(args, &autoIndex, explicitIndex)
		if !ok {
			return "", verr.New("numio.Sprintf", verr.MissingArgs)
		}
		if conv == '_' {
			// pops and discards the argument, producing no output.
			continue
		}

		switch conv {
		case 'c':
			str, err := formatChar(arg, s)
			if err != nil {
				return "", err
			}
			out.WriteString(str)
		case 's':
			str, err := formatString(arg, s)
			if err != nil {
				return "", err
			}
			out.WriteString(str)
		case 'v':
			out.WriteString(applyWidth(formatValuePlain(arg), "", s))
		case 'V':
			out.WriteString(applyWidth(formatValueQuoted(arg), "", s))
		case 'p':
			out.WriteString(applyWidth(formatValuePlain(arg), "", s))
		case 'm':
			code, ok := intOf(arg)
			if !ok {
				return "", verr.New("numio.Sprintf", verr.BadType)
			}
			out.WriteString(applyWidth(verr.Code(code).Message(), "", s))
		default:
			str, err := Format(arg, s)
			if err != nil {
				return "", err
			}
			out.WriteString(str)
		}
	}
	return out.String(), nil
}

func nextArg(args ArgSource, autoIndex *int, explicitIndex int) (value.Value, bool) {
	if explicitIndex > 0 {
		return args.At(explicitIndex)
	}
	*autoIndex++
	return args.At(*autoIndex)
}

type positional struct {
	index int
	next  int
}

// scanPositional recognizes a leading decimal-digits-then-dollar-sign
// explicit-argument-index prefix immediately after '%', e.g. the "2"
// in a two-then-dollar-sign prefix selects argument 2.
func scanPositional(format string, i int) (positional, bool) {
	j := i
	for j < len(format) && format[j] >= '0' && format[j] <= '9' {
		j++
	}
	if j > i && j < len(format) && format[j] == '$' {
		idx, _ := strconv.Atoi(format[i:j])
		return positional{index: idx, next: j + 1}, true
	}
	return positional{}, false
}

func scanInt(format string, i int) (int, int, bool) {
	j := i
	neg := false
	if j < len(format) && format[j] == '-' {
		neg = true
		j++
	}
	start := j
	for j < len(format) && format[j] >= '0' && format[j] <= '9' {
		j++
	}
	if j == start {
		return 0, i, false
	}
	v, _ := strconv.Atoi(format[start:j])
	if neg {
		v = -v
	}
	return v, j, true
}

func isLengthMod(c byte) bool {
	switch c {
	case 'h', 'l', 'L', 'j', 'z', 't':
		return true
	}
	return false
}

func formatChar(v value.Value, s Spec) (string, error) {
	i, ok := intOf(v)
	if !ok {
		return "", verr.New("numio.formatChar", verr.BadType)
	}
	return applyWidth(string(rune(i)), "", s), nil
}

func formatString(v value.Value, s Spec) (string, error) {
	b, ok := v.Bytes()
	if !ok {
		return "", verr.New("numio.formatString", verr.BadType)
	}
	str := string(b)
	if s.HasPrec && s.Prec < len(str) {
		str = str[:s.Prec]
	}
	return applyWidth(str, "", s), nil
}

// formatValuePlain is the 'v'/'p' conversion: an unquoted textual
// rendering of any Value, recursing into List/Code elements.
func formatValuePlain(v value.Value) string {
	switch v.Type() {
	case value.Int32Tag:
		i, _ := v.Int32()
		return strconv.FormatInt(int64(i), 10)
	case value.DoubleTag:
		f, _ := v.Double()
		return strconv.FormatFloat(f, 'g', -1, 64)
	case value.StringTag, value.IdentTag:
		b, _ := v.Bytes()
		return string(strx.FormatPlain(b))
	case value.ListTag, value.CodeTag:
		items, _ := v.Items()
		parts := make([]string, len(items))
		for i, it := range items {
			parts[i] = formatValuePlain(it)
		}
		open, shut := "(", ")"
		if v.Type() == value.CodeTag {
			open, shut = "[", "]"
		}
		return open + strings.Join(parts, " ") + shut
	case value.Null:
		return "null"
	default:
		return v.Type().String()
	}
}

// formatValueQuoted is the 'V' conversion: like formatValuePlain but
// strings are rendered with quotes and escapes (strx.FormatQuoted).
// Ident prints identically under 'v'/'V' -- no quoting -- so that
// parse(format(tree)) round-trips an Ident back to an Ident rather
// than reparsing it as a quoted String.
func formatValueQuoted(v value.Value) string {
	switch v.Type() {
	case value.StringTag:
		b, _ := v.Bytes()
		return string(strx.FormatQuoted(b))
	case value.IdentTag:
		return formatValuePlain(v)
	case value.ListTag, value.CodeTag:
		items, _ := v.Items()
		parts := make([]string, len(items))
		for i, it := range items {
			parts[i] = formatValueQuoted(it)
		}
		open, shut := "(", ")"
		if v.Type() == value.CodeTag {
			open, shut = "[", "]"
		}
		return open + strings.Join(parts, " ") + shut
	default:
		return formatValuePlain(v)
	}
}
