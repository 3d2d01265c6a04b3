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

// Package buffer implements the shared, reference-counted heap
// buffer that backs strx.String/Ident and listx.List/Code: a single
// owned allocation with atomic refcounting and two-sided exponential
// growth, so that windows over it can be cloned cheaply and mutated
// in place only while uniquely owned.
package buffer

import (
	"sync/atomic"

	"golang.org/x/exp/slices"
)

// minAlloc is the minimum number of elements a grown side receives,
// regardless of how few were actually requested. Keeps small strings
// from re-allocating on every single-byte append.
const minAlloc = 8

// growFactor is the minimum multiplier applied to a grown side's
// free space on every reallocation: each regrow must leave at least
// 1.5x the previously free space on that side.
const growFactor = 1.5

// Buffer is a contiguous, reference-counted allocation of elements
// of type T. It has no notion of "used" length itself -- that lives
// in the Window that references it. A Buffer is freed (its storage
// dropped for GC) exactly when its refcount reaches zero.
type Buffer[T any] struct {
	data refcount
	storage []T
}

// refcount is split out only so its zero value is a legal,
// never-shared buffer; NewBuffer always starts refcount at 1.
type refcount struct {
	n int32
}

// NewBuffer allocates a Buffer with capacity for size elements and a
// refcount of 1.
func NewBuffer[T any](size int) *Buffer[T] {
	return &Buffer[T]{data: refcount{n: 1}, storage: make([]T, size)}
}

// Cap returns the total capacity of the buffer in elements.
func (b *Buffer[T]) Cap() int { return len(b.storage) }

// Refcount returns the current reference count. It is intended for
// tests and diagnostics; callers should not branch on an observed
// value without first reading it via Shared, which is written to be
// the single point of truth for the copy-on-write decision.
func (b *Buffer[T]) Refcount() int32 { return atomic.LoadInt32(&b.data.n) }

// Retain increments the refcount atomically and returns b, so windows
// can clone with `w.buf.Retain()`.
func (b *Buffer[T]) Retain() *Buffer[T] {
	atomic.AddInt32(&b.data.n, 1)
	return b
}

// Release decrements the refcount atomically. The zero-value backing
// array is dropped for the garbage collector to reclaim once the
// count reaches zero; calling Release again after the count has
// already reached zero is a caller bug, not something Buffer itself
// needs to guard against.
func (b *Buffer[T]) Release() {
	if atomic.AddInt32(&b.data.n, -1) == 0 {
		b.storage = nil
	}
}

// Shared reports whether more than one owner holds a reference to b.
// Mutation in place (append/truncate/splice) is only permitted when
// Shared reports false.
func (b *Buffer[T]) Shared() bool {
	return atomic.LoadInt32(&b.data.n) > 1
}

// Slice returns the backing storage for the half-open element range
// [off, off+len). The caller must already hold a valid window over
// b; Slice performs no bounds validation beyond what a normal Go
// slice expression would.
func (b *Buffer[T]) Slice(off, length int) []T {
	return b.storage[off : off+length]
}

// Window is a (buffer, offset, length) view: a strong reference to a
// Buffer plus the half-open element range it currently exposes. It
// is the common substrate for strx.String/Ident and listx.List/Code.
type Window[T any] struct {
	Buf *Buffer[T]
	Off int
	Len int
}

// Empty returns a Window over a freshly allocated zero-capacity
// buffer with refcount 1.
func Empty[T any]() Window[T] {
	return Window[T]{Buf: NewBuffer[T](0)}
}

// Over constructs a Window owning buf (taking the caller's reference;
// it does not call Retain) with the given offset/length.
func Over[T any](buf *Buffer[T], off, length int) Window[T] {
	return Window[T]{Buf: buf, Off: off, Len: length}
}

// Clone returns a new Window sharing the same Buffer (refcount
// incremented) and the same (off, len). It never deep-copies.
func (w Window[T]) Clone() Window[T] {
	return Window[T]{Buf: w.Buf.Retain(), Off: w.Off, Len: w.Len}
}

// Release drops this window's reference to its buffer.
func (w Window[T]) Release() {
	w.Buf.Release()
}

// Slice returns the live elements currently exposed by w.
func (w Window[T]) Slice() []T {
	return w.Buf.Slice(w.Off, w.Len)
}

// unique reports whether w may mutate its buffer in place.
func (w Window[T]) unique() bool {
	return !w.Buf.Shared()
}

// leftSpace/rightSpace report the free element counts on either side
// of the window within its buffer's current capacity.
func (w Window[T]) leftSpace() int  { return w.Off }
func (w Window[T]) rightSpace() int { return w.Buf.Cap() - w.Off - w.Len }

// grownSize computes a new side size that is at least `have+need`
// elements, doubling from `have` (or minAlloc if have==0) until the
// growth factor requirement above is met.
func grownSize(have, need int) int {
	if have == 0 {
		have = minAlloc
	}
	target := have
	for target-have < need || float64(target) < float64(have)*growFactor {
		target = target * 2
		if target == 0 {
			target = minAlloc
		}
	}
	if target < have+need {
		target = have + need
	}
	return target
}

// ReserveRight guarantees at least n additional elements of free
// space immediately to the right of the window's occupied range,
// using a three-branch algorithm:
//
//  1. if the buffer is shared, or total free space is insufficient,
//     allocate a new buffer that grows the right side by the
//     configured factor while preserving the left side's existing
//     free space, copy content, and adopt it;
//  2. else if there is already enough room on the right, do nothing;
//  3. else slide content left (new_off = capacity-len-n) to reclaim
//     the unused left-side space as right-side space.
//
// ReserveRight returns the (possibly replaced) window; the caller
// must use the returned value, as the old one may now be invalid.
func (w Window[T]) ReserveRight(n int) Window[T] {
	if n <= 0 {
		return w
	}
	cap := w.Buf.Cap()
	if !w.unique() || cap-w.Len < n {
		return w.regrow(w.leftSpace(), grownSize(w.rightSpace(), n))
	}
	if w.rightSpace() >= n {
		return w
	}
	newOff := cap - w.Len - n
	w.slideTo(newOff)
	w.Off = newOff
	return w
}

// ReserveLeft is the mirror of ReserveRight for the left side: slide
// content right (new_off = n) to reclaim unused right-side space as
// left-side space when the buffer is uniquely owned but the left
// side alone doesn't have room.
func (w Window[T]) ReserveLeft(n int) Window[T] {
	if n <= 0 {
		return w
	}
	cap := w.Buf.Cap()
	if !w.unique() || cap-w.Len < n {
		return w.regrow(grownSize(w.leftSpace(), n), w.rightSpace())
	}
	if w.leftSpace() >= n {
		return w
	}
	newOff := n
	w.slideTo(newOff)
	w.Off = newOff
	return w
}

// slideTo moves the window's occupied content within its own buffer
// so that it starts at newOff, using copy (which handles overlap
// correctly regardless of direction). Only valid when w.unique().
func (w Window[T]) slideTo(newOff int) {
	if newOff == w.Off {
		return
	}
	copy(w.Buf.storage[newOff:newOff+w.Len], w.Slice())
}

// regrow allocates a new buffer sized lspace+len+rspace, copies the
// current content into the middle, releases the old buffer, and
// returns a window over the new one positioned after lspace free
// elements on the left.
func (w Window[T]) regrow(lspace, rspace int) Window[T] {
	total := lspace + w.Len + rspace
	nb := NewBuffer[T](total)
	copy(nb.storage[lspace:lspace+w.Len], w.Slice())
	w.Buf.Release()
	return Window[T]{Buf: nb, Off: lspace, Len: w.Len}
}

// ExtendRight grows the window's length by n, first calling
// ReserveRight to guarantee the space exists, and returns the
// extended window plus the newly exposed slice (the caller fills it
// in).
func (w Window[T]) ExtendRight(n int) (Window[T], []T) {
	w = w.ReserveRight(n)
	newSlice := w.Buf.Slice(w.Off+w.Len, n)
	w.Len += n
	return w, newSlice
}

// ExtendLeft grows the window's length by n on the left side,
// guaranteeing space via ReserveLeft, and returns the extended
// window plus the newly exposed slice (the caller fills it in, in
// forward order).
func (w Window[T]) ExtendLeft(n int) (Window[T], []T) {
	w = w.ReserveLeft(n)
	w.Off -= n
	w.Len += n
	return w, w.Buf.Slice(w.Off, n)
}

// Clear truncates the window to length zero in place; it does not
// release the buffer. Callers of Window[Value] must destroy elements
// before calling Clear -- listx does this explicitly, since Window
// itself is element-type agnostic and cannot know how to destroy a
// Value.
func (w Window[T]) Clear() Window[T] {
	w.Len = 0
	return w
}

// Sub returns a new Window over the same buffer covering the
// sub-range [off, off+length) of w's current range (i.e. relative to
// w.Off). It shares the buffer (refcount incremented).
func (w Window[T]) Sub(off, length int) Window[T] {
	return Window[T]{Buf: w.Buf.Retain(), Off: w.Off + off, Len: length}
}

// Append copies elements from extra onto the right of w, growing as
// needed, and returns the resulting window. If w is uniquely owned
// and has enough right-side space, this mutates in place; otherwise
// it reallocates (copy-on-write).
func Append[T any](w Window[T], extra []T) Window[T] {
	w, dst := w.ExtendRight(len(extra))
	copy(dst, extra)
	return w
}

// Prepend copies elements from extra onto the left of w, growing as
// needed, and returns the resulting window.
func Prepend[T any](w Window[T], extra []T) Window[T] {
	w, dst := w.ExtendLeft(len(extra))
	copy(dst, extra)
	return w
}

// Clone2 is a convenience used by callers that want a fully
// independent copy (new buffer, refcount 1) rather than a shared
// window -- e.g. when handing a Window off to a goroutine in a host
// that chooses to violate the single-threaded assumption at its own
// risk. It is not used internally; Window.Clone and listx.Clone
// always share.
// Grounded on plan/root.go's repeated slices.Clone(lst)-for-
// independent-ownership idiom.
func Clone2[T any](w Window[T]) Window[T] {
	nb := &Buffer[T]{data: refcount{n: 1}, storage: slices.Clone(w.Slice())}
	return Window[T]{Buf: nb, Len: w.Len}
}
