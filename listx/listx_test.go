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

package listx

import (
	"testing"

	"github.com/tinfil/conc/strx"
	"github.com/tinfil/conc/value"
)

func vals(xs ...int32) []value.Value {
	out := make([]value.Value, len(xs))
	for i, x := range xs {
		out[i] = value.FromInt32(x)
	}
	return out
}

func TestAppendAndEqual(t *testing.T) {
	l := New(vals(1, 2, 3))
	l = Append(l, value.FromInt32(4))
	got := l.Slice()
	if len(got) != 4 {
		t.Fatalf("len = %d, want 4", len(got))
	}
	other := New(vals(1, 2, 3, 4))
	if !Equal(l, other) {
		t.Fatalf("expected equal lists")
	}
}

func TestCloneIsCOW(t *testing.T) {
	l1 := New(vals(1, 2, 3))
	l2 := Clone(l1)
	l1 = Append(l1, value.FromInt32(99))

	if Equal(l1, l2) {
		t.Fatalf("mutating l1 should not affect l2")
	}
	if len(l2.Slice()) != 3 {
		t.Fatalf("l2 len = %d, want 3", len(l2.Slice()))
	}
}

func TestTruncateDestroysDropped(t *testing.T) {
	l := New(vals(1, 2, 3, 4, 5))
	l = Truncate(l, 2)
	if len(l.Slice()) != 2 {
		t.Fatalf("len = %d, want 2", len(l.Slice()))
	}
	if !Equal(l, New(vals(1, 2))) {
		t.Fatalf("truncated content mismatch")
	}
}

// TestAppendCOWClonesHeapBearingElements covers Append's copy-on-write
// path for elements that themselves own heap storage (String). Clone
// only retains the outer list buffer, so l1 and l2 share the very
// same Value struct at index 0 until something mutates one of them;
// a blind struct copy during Append's regrow would then duplicate
// that Value (and its nested byte-buffer pointer) without the nested
// buffer's refcount ever learning about the new owner. l1 and l2 must
// stay independently destroyable afterward.
func TestAppendCOWClonesHeapBearingElements(t *testing.T) {
	s := value.FromStringWindow(strx.New([]byte("shared")))
	l1 := New([]value.Value{s})
	value.Destroy(s) // New cloned its own reference; drop the original

	strWin, _ := l1.Slice()[0].StringWindow()
	if got := strWin.Buf.Refcount(); got != 1 {
		t.Fatalf("refcount before clone = %d, want 1", got)
	}

	l2 := Clone(l1)
	if got := strWin.Buf.Refcount(); got != 1 {
		t.Fatalf("refcount after Clone (shares the same element) = %d, want 1", got)
	}

	l1 = Append(l1, value.FromInt32(1))

	// l2.Buf was shared at the moment Append regrew l1's buffer, so
	// l1's re-grown copy of the element must now be an independent
	// owner: the nested buffer's refcount should read 2 (l2's
	// untouched element plus l1's re-cloned one).
	l2Win, _ := l2.Slice()[0].StringWindow()
	if got := l2Win.Buf.Refcount(); got != 2 {
		t.Fatalf("refcount after Append-triggered COW = %d, want 2", got)
	}

	Destroy(l1)
	if got := l2Win.Buf.Refcount(); got != 1 {
		t.Fatalf("refcount after destroying l1 = %d, want 1", got)
	}
	if b, _ := l2.Slice()[0].Bytes(); string(b) != "shared" {
		t.Fatalf("l2's element corrupted after l1 destroyed: %q", b)
	}
	Destroy(l2)
}

func TestSplitNSharesBuffer(t *testing.T) {
	l := New(vals(1, 2, 3, 4))
	left, right := SplitN(l, 2)
	if !Equal(left, New(vals(1, 2))) || !Equal(right, New(vals(3, 4))) {
		t.Fatalf("split mismatch: %v / %v", left.Slice(), right.Slice())
	}
}
