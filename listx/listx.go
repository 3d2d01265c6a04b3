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

// Package listx mirrors strx's operation surface over a window of
// value.Value rather than bytes: List and Code share it, distinguished
// only by their Value tag. The one place listx
// diverges from strx is element destruction: truncating or splicing
// a Value window must release every element dropped from it, since
// a List owns references into its elements' own heap storage.
package listx

import (
	"golang.org/x/exp/slices"

	"github.com/tinfil/conc/buffer"
	"github.com/tinfil/conc/value"
)

// New copies items into a freshly allocated window, cloning each
// element so the window owns its own references.
func New(items []value.Value) buffer.Window[value.Value] {
	w := buffer.Empty[value.Value]()
	w, dst := w.ExtendRight(len(items))
	for i, it := range items {
		dst[i] = value.Clone(it)
	}
	return w
}

// Append pushes item onto the right of l, growing in place if
// uniquely owned or copy-on-write reallocating otherwise. It takes
// ownership of item (does not clone it).
//
// When l.Buf is shared, ExtendRight regrows into a brand-new buffer
// and shallow-copies the surviving elements into it: the new window
// and whatever other window(s) still hold the old buffer end up
// pointing at the same heap-bearing element storage (a String/Ident's
// bytes, a nested List's elements, a boxed Dict/Ref/...) with only one
// owner's worth of refcount between them. Append re-clones every
// surviving element in that case to register the new window as a
// second legitimate owner.
func Append(l buffer.Window[value.Value], item value.Value) buffer.Window[value.Value] {
	shared := l.Buf.Shared()
	oldLen := l.Len
	l, dst := l.ExtendRight(1)
	if shared {
		recloneRange(l, 0, oldLen)
	}
	dst[0] = item
	return l
}

// Prepend is Append's mirror on the left.
func Prepend(l buffer.Window[value.Value], item value.Value) buffer.Window[value.Value] {
	shared := l.Buf.Shared()
	oldLen := l.Len
	l, dst := l.ExtendLeft(1)
	if shared {
		recloneRange(l, l.Len-oldLen, oldLen)
	}
	dst[0] = item
	return l
}

// recloneRange replaces the n elements starting at off in l's exposed
// slice with value.Clone of themselves, registering l's (possibly
// freshly regrown) buffer as an additional owner of any heap-bearing
// element it holds. off/n describe a range of elements that already
// existed before the triggering extend call; newly-added slots must
// not be passed here, since they have no prior owner to duplicate.
func recloneRange(l buffer.Window[value.Value], off, n int) {
	s := l.Slice()
	for i := off; i < off+n; i++ {
		s[i] = value.Clone(s[i])
	}
}

// Concat appends right's elements onto left (cloning each, since
// right keeps its own ownership) and releases right's window. If
// left's buffer is shared, its own surviving elements are re-cloned
// for the same reason Append/Prepend do: regrow only copies structs,
// not the nested references they own.
func Concat(left, right buffer.Window[value.Value]) buffer.Window[value.Value] {
	shared := left.Buf.Shared()
	oldLen := left.Len
	items := right.Slice()
	left, dst := left.ExtendRight(len(items))
	if shared {
		recloneRange(left, 0, oldLen)
	}
	for i, it := range items {
		dst[i] = value.Clone(it)
	}
	right.Release()
	return left
}

// Substr returns a sub-window sharing l's buffer (elements are not
// cloned; destroying the sub-window destroys shared elements only
// when it is the last reference to l's buffer, exactly as Buffer's
// refcounting already guarantees).
func Substr(l buffer.Window[value.Value], off, length int) buffer.Window[value.Value] {
	return l.Sub(off, length)
}

// SplitN splits l into two windows sharing l's buffer.
func SplitN(l buffer.Window[value.Value], off int) (buffer.Window[value.Value], buffer.Window[value.Value]) {
	return l.Sub(0, off), l.Sub(off, l.Len-off)
}

// Truncate shrinks l to newLen, destroying the elements dropped from
// the right: a List of Values destroys its dropped elements before
// releasing the buffer on any truncation, not just final destruction.
func Truncate(l buffer.Window[value.Value], newLen int) buffer.Window[value.Value] {
	if newLen >= l.Len {
		return l
	}
	for _, v := range l.Slice()[newLen:l.Len] {
		value.Destroy(v)
	}
	l.Len = newLen
	return l
}

// Destroy releases every element and then the window's own buffer
// reference. Elements are destroyed only when l holds the last
// reference to its buffer; a window over a still-shared buffer just
// drops its buffer reference.
func Destroy(l buffer.Window[value.Value]) {
	if !l.Buf.Shared() {
		for _, v := range l.Slice() {
			value.Destroy(v)
		}
	}
	l.Release()
}

// Clone returns a window sharing l's buffer (refcount incremented),
// matching the copy-on-write contract: no element is deep copied
// here, only when a subsequent mutation observes refcount > 1.
func Clone(l buffer.Window[value.Value]) buffer.Window[value.Value] {
	return l.Clone()
}

// Equal reports whether two lists are element-wise equal using
// value.Eq: equal length and every element equal. Grounded on
// plan/pir.go's repeated slices.EqualFunc(xs, ys, X.Equals) idiom for
// comparing two node slices with a custom element predicate.
func Equal(a, b buffer.Window[value.Value]) bool {
	return slices.EqualFunc(a.Slice(), b.Slice(), value.Eq)
}
