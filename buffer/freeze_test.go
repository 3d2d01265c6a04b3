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

package buffer

import (
	"bytes"
	"strings"
	"testing"
)

func TestFreezeThawRoundTrip(t *testing.T) {
	w := Append(Empty[byte](), []byte("hello, frozen world"))
	f := Freeze(w)
	if f.Size() != w.Len {
		t.Fatalf("Size() = %d, want %d", f.Size(), w.Len)
	}
	thawed, err := Thaw(f)
	if err != nil {
		t.Fatalf("Thaw: %v", err)
	}
	if !bytes.Equal(thawed.Slice(), w.Slice()) {
		t.Fatalf("thawed = %q, want %q", thawed.Slice(), w.Slice())
	}
	if thawed.Buf.Refcount() != 1 {
		t.Fatalf("thawed buffer refcount = %d, want 1", thawed.Buf.Refcount())
	}
}

func TestFreezeThawEmpty(t *testing.T) {
	f := Freeze(Empty[byte]())
	thawed, err := Thaw(f)
	if err != nil {
		t.Fatalf("Thaw: %v", err)
	}
	if thawed.Len != 0 {
		t.Fatalf("thawed.Len = %d, want 0", thawed.Len)
	}
}

func TestFreezeThawLargeRepetitive(t *testing.T) {
	src := []byte(strings.Repeat("the quick brown fox jumps over the lazy dog ", 1000))
	w := Append(Empty[byte](), src)
	f := Freeze(w)
	if len(f.data) >= len(src) {
		t.Fatalf("compressed size %d did not shrink repetitive input of %d bytes", len(f.data), len(src))
	}
	thawed, err := Thaw(f)
	if err != nil {
		t.Fatalf("Thaw: %v", err)
	}
	if !bytes.Equal(thawed.Slice(), src) {
		t.Fatalf("thawed content mismatch")
	}
}

func TestThawRejectsCorruptData(t *testing.T) {
	f := Freeze(Append(Empty[byte](), []byte("some content")))
	f.data = append([]byte(nil), f.data...)
	f.data[len(f.data)/2] ^= 0xff
	if _, err := Thaw(f); err == nil {
		t.Fatalf("expected an error decoding corrupted zstd data")
	}
}
