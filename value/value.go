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

// Package value implements the tagged Value union shared by the
// whole runtime substrate: an interpreter word consumes and produces
// Values from/to its stack. A conforming host never sees more than
// one Go type here -- Value -- whose Tag discriminates between
// Null/Int32/Double/Opcode, the String/Ident and List/Code window
// variants, and a handful of boxed opaque handles.
//
// This is a tag + union struct rather than a NaN-boxed 64-bit word:
// Go has no analogue of label-address dispatch or pointer tagging
// that is both safe and portable, so an explicit tag plus a small
// union of fields is used instead, mirroring the discriminated-union
// shape of
// SnellerInc/sneller's ion.Datum.
package value

import (
	"math"

	"github.com/tinfil/conc/buffer"
)

// Tag discriminates the variant a Value currently holds.
type Tag uint8

const (
	Null Tag = iota
	Int32Tag
	DoubleTag
	OpcodeTag
	StringTag
	IdentTag
	ListTag
	CodeTag
	DictTag
	RefTag
	FileTag
	FdTag
	VmTag
	NativeFuncTag
)

func (t Tag) String() string {
	switch t {
	case Null:
		return "null"
	case Int32Tag:
		return "int32"
	case DoubleTag:
		return "double"
	case OpcodeTag:
		return "opcode"
	case StringTag:
		return "string"
	case IdentTag:
		return "ident"
	case ListTag:
		return "list"
	case CodeTag:
		return "code"
	case DictTag:
		return "dict"
	case RefTag:
		return "ref"
	case FileTag:
		return "file"
	case FdTag:
		return "fd"
	case VmTag:
		return "vm"
	case NativeFuncTag:
		return "nativefunc"
	default:
		return "unknown"
	}
}

// Boxed is satisfied by the concrete handle types of box.Dict,
// box.Ref, box.File, box.Fd, box.Vm and box.NativeFunc. value itself
// never imports box (box imports value instead, to hold onto Values
// in, e.g., a Dict) -- this interface is the seam that lets a Value
// carry an opaque, refcounted, printable handle without a dependency
// cycle.
type Boxed interface {
	// Retain increments whatever reference count backs the handle
	// and returns the receiver (or an equivalent handle), mirroring
	// Window.Clone's "increment, never deep copy" contract.
	Retain() Boxed
	// Release decrements the reference count, freeing the
	// underlying resource when it reaches zero.
	Release()
	// Kind names the handle's variant for diagnostics; it must
	// match one of "dict", "ref", "file", "fd", "vm", "nativefunc".
	Kind() string
}

// Value is a 1-of-14 tagged union. The zero Value is Null.
type Value struct {
	tag   Tag
	i32   int32
	f64   float64
	op    uint32
	str   buffer.Window[byte]
	list  buffer.Window[Value]
	boxed Boxed
}

// NullValue returns the absent-value singleton.
func NullValue() Value { return Value{tag: Null} }

// FromInt32 wraps a signed 32-bit integer.
func FromInt32(i int32) Value { return Value{tag: Int32Tag, i32: i} }

// FromDouble wraps an IEEE-754 binary64, including ±Inf/NaN/±0.
func FromDouble(f float64) Value { return Value{tag: DoubleTag, f64: f} }

// FromOpcode wraps a small unsigned index into the host's op table.
func FromOpcode(op uint32) Value { return Value{tag: OpcodeTag, op: op} }

// FromStringWindow wraps a byte window as a String value, taking
// ownership of the window's buffer reference (it does not clone).
func FromStringWindow(w buffer.Window[byte]) Value { return Value{tag: StringTag, str: w} }

// FromIdentWindow is identical to FromStringWindow except for the
// Ident tag: same representation, a distinct variant.
func FromIdentWindow(w buffer.Window[byte]) Value { return Value{tag: IdentTag, str: w} }

// FromListWindow wraps a Value window as a List value.
func FromListWindow(w buffer.Window[Value]) Value { return Value{tag: ListTag, list: w} }

// FromCodeWindow is identical to FromListWindow except for the Code
// tag: data versus a quoted program awaiting evaluation.
func FromCodeWindow(w buffer.Window[Value]) Value { return Value{tag: CodeTag, list: w} }

// FromBoxed wraps a boxed opaque handle under the given tag, which
// must be one of Dict/Ref/File/Fd/Vm/NativeFuncTag.
func FromBoxed(tag Tag, b Boxed) Value {
	return Value{tag: tag, boxed: b}
}

// Type returns the Value's variant tag.
func (v Value) Type() Tag { return v.tag }

// IsNull reports whether v is the Null variant.
func (v Value) IsNull() bool { return v.tag == Null }

// Int32 returns v's integer payload; ok is false if v is not Int32Tag.
func (v Value) Int32() (int32, bool) {
	if v.tag != Int32Tag {
		return 0, false
	}
	return v.i32, true
}

// Double returns v's float payload; ok is false if v is not DoubleTag.
func (v Value) Double() (float64, bool) {
	if v.tag != DoubleTag {
		return 0, false
	}
	return v.f64, true
}

// Opcode returns v's opcode payload; ok is false if v is not OpcodeTag.
func (v Value) Opcode() (uint32, bool) {
	if v.tag != OpcodeTag {
		return 0, false
	}
	return v.op, true
}

// Bytes returns the raw bytes of a String or Ident value.
func (v Value) Bytes() ([]byte, bool) {
	if v.tag != StringTag && v.tag != IdentTag {
		return nil, false
	}
	return v.str.Slice(), true
}

// StringWindow exposes the underlying byte window of a String or
// Ident value, for use by strx operations that need to reserve/grow
// it in place.
func (v Value) StringWindow() (buffer.Window[byte], bool) {
	if v.tag != StringTag && v.tag != IdentTag {
		return buffer.Window[byte]{}, false
	}
	return v.str, true
}

// Items returns the elements of a List or Code value.
func (v Value) Items() ([]Value, bool) {
	if v.tag != ListTag && v.tag != CodeTag {
		return nil, false
	}
	return v.list.Slice(), true
}

// ListWindow exposes the underlying Value window of a List or Code
// value, for use by listx operations.
func (v Value) ListWindow() (buffer.Window[Value], bool) {
	if v.tag != ListTag && v.tag != CodeTag {
		return buffer.Window[Value]{}, false
	}
	return v.list, true
}

// Box returns the boxed handle carried by a Dict/Ref/File/Fd/Vm/
// NativeFunc value.
func (v Value) Box() (Boxed, bool) {
	switch v.tag {
	case DictTag, RefTag, FileTag, FdTag, VmTag, NativeFuncTag:
		return v.boxed, true
	}
	return nil, false
}

// heapBearing reports whether v owns a reference that Clone/Destroy
// must adjust. Primitives (Null, Int32, Double, Opcode) have no heap
// ownership.
func (v Value) heapBearing() bool {
	switch v.tag {
	case StringTag, IdentTag, ListTag, CodeTag, DictTag, RefTag, FileTag, FdTag, VmTag, NativeFuncTag:
		return true
	default:
		return false
	}
}

// Clone returns a Value referencing the same heap storage as v, with
// refcounts incremented for heap-bearing variants. It never deep
// copies.
func Clone(v Value) Value {
	switch v.tag {
	case StringTag, IdentTag:
		v.str = v.str.Clone()
	case ListTag, CodeTag:
		v.list = v.list.Clone()
	case DictTag, RefTag, FileTag, FdTag, VmTag, NativeFuncTag:
		if v.boxed != nil {
			v.boxed = v.boxed.Retain()
		}
	}
	return v
}

// Destroy releases any heap reference v holds. Lists/Code destroy
// their elements before releasing their own buffer.
func Destroy(v Value) {
	switch v.tag {
	case StringTag, IdentTag:
		v.str.Release()
	case ListTag, CodeTag:
		for _, item := range v.list.Slice() {
			Destroy(item)
		}
		v.list.Release()
	case DictTag, RefTag, FileTag, FdTag, VmTag, NativeFuncTag:
		if v.boxed != nil {
			v.boxed.Release()
		}
	}
}

// category groups tags for the cross-category comparison rule:
// numeric-numeric (int widened to double), string-string,
// ident-ident, list-list, code-code; everything else is "not
// comparable".
func category(t Tag) int {
	switch t {
	case Int32Tag, DoubleTag:
		return 1
	case StringTag:
		return 2
	case IdentTag:
		return 3
	case ListTag:
		return 4
	case CodeTag:
		return 5
	default:
		return 0 // opaque / not comparable
	}
}

func asDouble(v Value) float64 {
	if i, ok := v.Int32(); ok {
		return float64(i)
	}
	f, _ := v.Double()
	return f
}

// Compare returns (-1, 0, +1, true) if a and b are in the same
// comparison category, ordering them within it; the boolean is false
// ("not comparable") for cross-category or opaque operands.
func Compare(a, b Value) (int, bool) {
	ca, cb := category(a.tag), category(b.tag)
	if ca == 0 || ca != cb {
		return 0, false
	}
	switch ca {
	case 1:
		x, y := asDouble(a), asDouble(b)
		switch {
		case x < y:
			return -1, true
		case x > y:
			return 1, true
		default:
			return 0, true
		}
	case 2, 3:
		ab, _ := a.Bytes()
		bb, _ := b.Bytes()
		return bytesCompare(ab, bb), true
	case 4, 5:
		ai, _ := a.Items()
		bi, _ := b.Items()
		return lexCompare(ai, bi), true
	}
	return 0, false
}

func bytesCompare(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	default:
		return 0
	}
}

func lexCompare(a, b []Value) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if c, ok := Compare(a[i], b[i]); ok && c != 0 {
			return c
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	default:
		return 0
	}
}

// Less reports a < b; false (not true!) for incomparable operands --
// "not comparable" maps to a false predicate rather than an error.
func Less(a, b Value) bool {
	c, ok := Compare(a, b)
	return ok && c < 0
}

// Eq reports value equality within a comparison category. Cross-
// category operands (and opaque boxed values compared to anything,
// including each other) are unequal -- "not comparable" falls under
// the same false-predicate contract as Less for boxed handles.
func Eq(a, b Value) bool {
	if a.tag == Null && b.tag == Null {
		return true
	}
	c, ok := Compare(a, b)
	return ok && c == 0
}

// isFinite reports whether f is neither NaN nor ±Inf, used by numio
// when deciding which conversions apply.
func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Finite is exported for numio's formatter, which needs to special-
// case NaN/Inf before running the digit-string conversion.
func Finite(v Value) bool {
	f, ok := v.Double()
	if !ok {
		return true
	}
	return isFinite(f)
}
