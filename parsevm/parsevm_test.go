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

package parsevm

import (
	"reflect"
	"testing"
)

// wordsRules splits on ASCII space: class 0 = space, class 1 = other.
// State 0 is the only state the tokenizer ever enters; spaces
// SPLIT_SKIP, everything else NOSPLIT. fin is never reached by this
// table on purpose (it is not an accepting-pattern table, it's a
// continuous tokenizer), so it sets one harmless SPLIT_AFTER entry in
// an otherwise unreachable state 1 to satisfy Validate's "at least one
// entry reaches fin" rule.
func wordsClass(b byte) int {
	if b == ' ' {
		return 0
	}
	return 1
}

func wordsRules() *Rules {
	r := NewRules(2, 2, 0, 99, wordsClass)
	r.SetState(0, NoSplit, 0)
	r.SetEntry(0, 0, SplitSkip, 0)
	// state 1 exists purely to give the table a reachable Fin entry
	r.SetEntry(1, 1, SplitAfter, 99)
	return r
}

func tokenize(t *testing.T, r *Rules, data []byte) []string {
	t.Helper()
	var toks []string
	_, err := Eval(r, data, nil, func(tok []byte) int {
		toks = append(toks, string(tok))
		return 0
	}, func(tok []byte) int {
		toks = append(toks, string(tok))
		return 0
	})
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	return toks
}

func TestEvalSplitsWords(t *testing.T) {
	r := wordsRules()
	got := tokenize(t, r, []byte("foo bar baz"))
	want := []string{"foo", "bar", "baz"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestEvalEmptyTokenSuppression(t *testing.T) {
	r := wordsRules()
	got := tokenize(t, r, []byte("foo  bar")) // double space
	want := []string{"foo", "bar"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestValidateAcceptsSameLanguageAsEval(t *testing.T) {
	r := wordsRules()
	inputs := []string{"foo bar", "", "a", "a b c d"}
	for _, in := range inputs {
		_, evalErr := Eval(r, []byte(in), nil, func(tok []byte) int { return 0 }, func(tok []byte) int { return 0 })
		_, status := ValidateInput(r, []byte(in), nil)
		evalOK := evalErr == nil
		validateOK := status != ParseError
		if evalOK != validateOK {
			t.Fatalf("input %q: eval ok=%v, validate ok=%v", in, evalOK, validateOK)
		}
	}
}

func TestResumableSplitMatchesWholeInput(t *testing.T) {
	r := wordsRules()
	whole := tokenize(t, r, []byte("foo bar baz"))

	var toks []string
	handler := func(tok []byte) int {
		toks = append(toks, string(tok))
		return 0
	}
	var pending []byte
	tail := func(tok []byte) int {
		pending = append(pending, tok...)
		return 0
	}
	st, err := Eval(r, []byte("foo ba"), nil, handler, tail)
	if err != nil {
		t.Fatalf("first chunk: %v", err)
	}
	// "ba" is a pending partial token (no split reached); the caller
	// must re-feed it as a prefix of the next chunk ("r baz"), since
	// Eval does not carry partial tokens across calls on its own.
	data := append(pending, []byte("r baz")...)
	_, err = Eval(r, data, &st, handler, func(tok []byte) int {
		toks = append(toks, string(tok))
		return 0
	})
	if err != nil {
		t.Fatalf("second chunk: %v", err)
	}
	// the first chunk emitted "foo" via SPLIT_SKIP on the space; "ba"
	// was left pending and re-scanned as a prefix of "r baz", so the
	// two calls together must produce the same tokens as one call over
	// the whole input.
	if st.Resume != r.Init {
		t.Fatalf("expected resumed state to still be the tokenizing state, got %d", st.Resume)
	}
	if !reflect.DeepEqual(toks, whole) {
		t.Fatalf("split tokens %v, want %v", toks, whole)
	}
}
