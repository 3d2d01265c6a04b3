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

package srcparser

import (
	"testing"

	"github.com/tinfil/conc/value"
)

func parseAll(t *testing.T, chunks ...string) []value.Value {
	t.Helper()
	p := NewParser()
	for _, c := range chunks {
		if err := p.Feed([]byte(c)); err != nil {
			t.Fatalf("Feed(%q): %v", c, err)
		}
	}
	if err := p.Finish(); err != nil {
		t.Fatalf("Finish: %v", err)
	}
	return p.Values()
}

func wantInt32(t *testing.T, v value.Value, want int32) {
	t.Helper()
	i, ok := v.Int32()
	if !ok || i != want {
		t.Fatalf("got %+v, want int32 %d", v, want)
	}
}

func wantIdent(t *testing.T, v value.Value, want string) {
	t.Helper()
	b, ok := v.Bytes()
	if !ok || v.Type() != value.IdentTag || string(b) != want {
		t.Fatalf("got %+v, want ident %q", v, want)
	}
}

// TestResumableAcrossChunks: feeding "foo 1" then "2" produces
// Ident("foo"), Int32(12) -- the digit run spanning the chunk
// boundary merges into one token.
func TestResumableAcrossChunks(t *testing.T) {
	got := parseAll(t, "foo 1", "2")
	if len(got) != 2 {
		t.Fatalf("got %d values, want 2: %+v", len(got), got)
	}
	wantIdent(t, got[0], "foo")
	wantInt32(t, got[1], 12)
}

// TestNestedGrouping: "[ 1 ( 2 3 ) ]" parses to
// Code([Int(1), List([Int(2), Int(3)])]).
func TestNestedGrouping(t *testing.T) {
	got := parseAll(t, "[ 1 ( 2 3 ) ]")
	if len(got) != 1 {
		t.Fatalf("got %d top-level values, want 1: %+v", len(got), got)
	}
	outer := got[0]
	if outer.Type() != value.CodeTag {
		t.Fatalf("outer type = %v, want Code", outer.Type())
	}
	items, _ := outer.Items()
	if len(items) != 2 {
		t.Fatalf("outer has %d items, want 2: %+v", len(items), items)
	}
	wantInt32(t, items[0], 1)
	if items[1].Type() != value.ListTag {
		t.Fatalf("items[1] type = %v, want List", items[1].Type())
	}
	inner, _ := items[1].Items()
	if len(inner) != 2 {
		t.Fatalf("inner has %d items, want 2: %+v", len(inner), inner)
	}
	wantInt32(t, inner[0], 2)
	wantInt32(t, inner[1], 3)
}

// TestMismatchedCloser: "[ 1 )" is a bad_parse (Code opened with '['
// cannot be closed by ')', which only closes a List).
func TestMismatchedCloser(t *testing.T) {
	p := NewParser()
	err := p.Feed([]byte("[ 1 )"))
	if err == nil {
		err = p.Finish()
	}
	if err == nil {
		t.Fatalf("expected a parse error for mismatched closer")
	}
}

func TestUnbalancedGroupAtEOF(t *testing.T) {
	p := NewParser()
	if err := p.Feed([]byte("[ 1")); err != nil {
		t.Fatalf("Feed: %v", err)
	}
	if err := p.Finish(); err == nil {
		t.Fatalf("expected Finish to reject an unclosed group")
	}
}

func TestSignDigitDisambiguation(t *testing.T) {
	// "3-4" tokenizes as three tokens: Int(3), Ident("-"), Int(4).
	got := parseAll(t, "3-4")
	if len(got) != 3 {
		t.Fatalf("got %d values, want 3: %+v", len(got), got)
	}
	wantInt32(t, got[0], 3)
	wantIdent(t, got[1], "-")
	wantInt32(t, got[2], 4)
}

func TestNegativeNumber(t *testing.T) {
	got := parseAll(t, "-4")
	if len(got) != 1 {
		t.Fatalf("got %d values, want 1: %+v", len(got), got)
	}
	wantInt32(t, got[0], -4)
}

// TestNegativeNumberAcrossChunks pins the sign/digit disambiguation
// rule's interaction with resumption: a negative number that never
// gets split within a single Feed call (its only terminator is the
// Finish-forced end-of-stream byte) must still merge into one token
// rather than having its leading sign reinterpreted as an operator
// once replayed against the resumed state.
func TestNegativeNumberAcrossChunks(t *testing.T) {
	got := parseAll(t, "foo ", "-4")
	if len(got) != 2 {
		t.Fatalf("got %d values, want 2: %+v", len(got), got)
	}
	wantIdent(t, got[0], "foo")
	wantInt32(t, got[1], -4)
}

func TestHexFloatScenarioToken(t *testing.T) {
	// a single token "0x1.fp+3" must tokenize whole (the exponent
	// sign must not split off as its own operator token).
	got := parseAll(t, "0x1.fp+3")
	if len(got) != 1 {
		t.Fatalf("got %d values, want 1: %+v", len(got), got)
	}
	f, ok := got[0].Double()
	if !ok || f != 15.5 {
		t.Fatalf("got %+v, want Double(15.5)", got[0])
	}
}

func TestQuotedStringToken(t *testing.T) {
	got := parseAll(t, `"hi\n"`)
	if len(got) != 1 {
		t.Fatalf("got %d values, want 1: %+v", len(got), got)
	}
	b, ok := got[0].Bytes()
	if !ok || string(b) != "hi\n" {
		t.Fatalf("got %q, want %q", b, "hi\n")
	}
}

func TestCommentIsIgnored(t *testing.T) {
	got := parseAll(t, "1 # comment\n2")
	if len(got) != 2 {
		t.Fatalf("got %d values, want 2: %+v", len(got), got)
	}
	wantInt32(t, got[0], 1)
	wantInt32(t, got[1], 2)
}

func TestEscapedIdent(t *testing.T) {
	got := parseAll(t, `\+\- foo`)
	if len(got) != 2 {
		t.Fatalf("got %d values, want 2: %+v", len(got), got)
	}
	wantIdent(t, got[0], "+-")
	wantIdent(t, got[1], "foo")
}

// TestUnspacedCloser covers a closer immediately following an
// accumulating token with no separating space, e.g. "(2 3)": the
// formatter never writes a space before a closing paren/bracket, so
// this shape must parse cleanly for a formatted tree to round-trip.
func TestUnspacedCloser(t *testing.T) {
	got := parseAll(t, "(2 3)")
	if len(got) != 1 {
		t.Fatalf("got %d top-level values, want 1: %+v", len(got), got)
	}
	if got[0].Type() != value.ListTag {
		t.Fatalf("type = %v, want List", got[0].Type())
	}
	items, _ := got[0].Items()
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2: %+v", len(items), items)
	}
	wantInt32(t, items[0], 2)
	wantInt32(t, items[1], 3)
}

// TestUnspacedSingletonCloser pins the exact scenario traced by hand
// against the FSM: a single accumulating token immediately closed at
// end of input, e.g. "(1)", with no trailing space and nothing after
// the closer to force a further state transition.
func TestUnspacedSingletonCloser(t *testing.T) {
	got := parseAll(t, "(1)")
	if len(got) != 1 {
		t.Fatalf("got %d top-level values, want 1: %+v", len(got), got)
	}
	items, _ := got[0].Items()
	if len(items) != 1 {
		t.Fatalf("got %d items, want 1: %+v", len(items), items)
	}
	wantInt32(t, items[0], 1)
}

// TestUnspacedCodeCloser is TestUnspacedSingletonCloser's Code-bracket
// counterpart.
func TestUnspacedCodeCloser(t *testing.T) {
	got := parseAll(t, "[1]")
	if len(got) != 1 {
		t.Fatalf("got %d top-level values, want 1: %+v", len(got), got)
	}
	if got[0].Type() != value.CodeTag {
		t.Fatalf("type = %v, want Code", got[0].Type())
	}
	items, _ := got[0].Items()
	if len(items) != 1 {
		t.Fatalf("got %d items, want 1: %+v", len(items), items)
	}
	wantInt32(t, items[0], 1)
}

func TestCheckpointRestoreRoundTrip(t *testing.T) {
	p := NewParser()
	if err := p.Feed([]byte("fo")); err != nil {
		t.Fatalf("Feed: %v", err)
	}
	if len(p.pending) == 0 {
		t.Fatalf("expected a pending residual after a partial identifier")
	}
	ckpt := p.Checkpoint()
	p.pending = nil
	if err := p.Restore(ckpt); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if err := p.Feed([]byte("o 1")); err != nil {
		t.Fatalf("Feed: %v", err)
	}
	if err := p.Finish(); err != nil {
		t.Fatalf("Finish: %v", err)
	}
	got := p.Values()
	if len(got) != 2 {
		t.Fatalf("got %d values, want 2: %+v", len(got), got)
	}
	wantIdent(t, got[0], "foo")
	wantInt32(t, got[1], 1)
}
