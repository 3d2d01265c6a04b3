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

// Package srcparser implements the concatenative source language's
// tokenizer: a parsevm rule table plus a token handler that builds
// value.Value atoms and nested List/Code groups.
package srcparser

import (
	"github.com/tinfil/conc/buffer"
	"github.com/tinfil/conc/listx"
	"github.com/tinfil/conc/numio"
	"github.com/tinfil/conc/parsevm"
	"github.com/tinfil/conc/strx"
	"github.com/tinfil/conc/value"
	"github.com/tinfil/conc/verr"
)

// Byte classes. A sign immediately after 'e/E/p/P' inside a number
// token must merge into that number rather than splitting off as an
// operator, so "0x1.fp+3" and "1e+10" tokenize whole; that is only
// expressible if exponent markers get their own class distinct from
// ordinary identifier letters, hence clsExpMarker below (see
// DESIGN.md).
const (
	clsNull = iota
	clsBackslash
	clsHash
	clsNewline
	clsSingleQuote
	clsDoubleQuote
	clsWhitespace
	clsDigit
	clsSign
	clsIdent
	clsExpMarker
	clsOp
	clsClose
	clsOther
	nClasses
)

// FSM states. stClosePending splits the just-seen close-group byte
// off as its own token on the very next byte, so adjacent closers
// like "))" each become a one-byte token instead of merging;
// stDigitExpSign pairs with clsExpMarker above. Both are documented in
// DESIGN.md.
const (
	stInit = iota
	stSign
	stDigit
	stIdent
	stEscapedIdent
	stOp
	stCloseGroup
	stComment
	stSingleString
	stDoubleString
	stDoubleStringEscape
	stDigitExpSign
	stClosePending
	nStates
)

const finState = nStates

func isOperatorByte(b byte) bool {
	switch b {
	case '~', '!', '@', '$', '%', '^', '*', '(', '=', '{', '}', '[', '<', '>', ',', ';', '/', '&', '|':
		return true
	}
	return false
}

func classify(b byte) int {
	switch {
	case b == 0:
		return clsNull
	case b == '\\':
		return clsBackslash
	case b == '#':
		return clsHash
	case b == '\n':
		return clsNewline
	case b == '\'':
		return clsSingleQuote
	case b == '"':
		return clsDoubleQuote
	case b == ' ' || b == '\t' || b == '\r' || b == '\v' || b == '\f':
		return clsWhitespace
	case b >= '0' && b <= '9':
		return clsDigit
	case b == '+' || b == '-':
		return clsSign
	case b == 'e' || b == 'E' || b == 'p' || b == 'P':
		return clsExpMarker
	case (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || b == '_' || b == '.':
		return clsIdent
	case b == ')' || b == ']':
		return clsClose
	case isOperatorByte(b):
		return clsOp
	default:
		return clsOther
	}
}

// rules is the package-level default tokenizer table, built once.
var rules = buildRules()

func buildRules() *parsevm.Rules {
	r := parsevm.NewRules(nStates, nClasses, stInit, finState, classify)
	r.SetAll(parsevm.Err, 0)

	// init: a fresh token boundary; tokStart always equals the byte
	// currently being classified here.
	entries(r, stInit,
		row{clsNull, parsevm.SplitSkip, finState},
		row{clsBackslash, parsevm.NoSplit, stEscapedIdent},
		row{clsHash, parsevm.NoSplit, stComment},
		row{clsNewline, parsevm.SplitSkip, stInit},
		row{clsSingleQuote, parsevm.NoSplit, stSingleString},
		row{clsDoubleQuote, parsevm.NoSplit, stDoubleString},
		row{clsWhitespace, parsevm.SplitSkip, stInit},
		row{clsDigit, parsevm.NoSplit, stDigit},
		row{clsSign, parsevm.NoSplit, stSign},
		row{clsIdent, parsevm.NoSplit, stIdent},
		row{clsExpMarker, parsevm.NoSplit, stIdent},
		row{clsOp, parsevm.NoSplit, stOp},
		row{clsClose, parsevm.SplitAfter, stCloseGroup},
		row{clsOther, parsevm.NoSplit, stIdent},
	)

	// sign: one sign byte pending, tokStart at its position.
	entries(r, stSign,
		row{clsNull, parsevm.SplitBefore, finState},
		row{clsBackslash, parsevm.SplitBefore, stEscapedIdent},
		row{clsHash, parsevm.SplitBefore, stComment},
		row{clsNewline, parsevm.SplitSkip, stInit},
		row{clsSingleQuote, parsevm.SplitBefore, stSingleString},
		row{clsDoubleQuote, parsevm.SplitBefore, stDoubleString},
		row{clsWhitespace, parsevm.SplitSkip, stInit},
		row{clsDigit, parsevm.NoSplit, stDigit},
		row{clsSign, parsevm.SplitBefore, stSign},
		row{clsIdent, parsevm.SplitBefore, stIdent},
		row{clsExpMarker, parsevm.SplitBefore, stIdent},
		row{clsOp, parsevm.NoSplit, stOp},
		row{clsClose, parsevm.SplitBefore, stClosePending},
		row{clsOther, parsevm.SplitBefore, stIdent},
	)

	// digit: accumulating a number; '.', hex letters, 'x'/'X' and
	// underscore are all swallowed greedily (clsIdent) -- malformed
	// shapes are rejected later by numio.ParseNumber, not here.
	digitRow := func(state int) {
		entries(r, state,
			row{clsNull, parsevm.SplitBefore, finState},
			row{clsBackslash, parsevm.SplitBefore, stEscapedIdent},
			row{clsHash, parsevm.SplitBefore, stComment},
			row{clsNewline, parsevm.SplitSkip, stInit},
			row{clsSingleQuote, parsevm.SplitBefore, stSingleString},
			row{clsDoubleQuote, parsevm.SplitBefore, stDoubleString},
			row{clsWhitespace, parsevm.SplitSkip, stInit},
			row{clsDigit, parsevm.NoSplit, stDigit},
			row{clsIdent, parsevm.NoSplit, stDigit},
			row{clsExpMarker, parsevm.NoSplit, stDigitExpSign},
			row{clsOp, parsevm.SplitBefore, stOp},
			row{clsClose, parsevm.SplitBefore, stClosePending},
			row{clsOther, parsevm.NoSplit, stDigit},
		)
	}
	digitRow(stDigit)
	// sign after a digit becomes an operator, not a continuation of
	// the number: "3-4" tokenizes as three tokens.
	r.SetEntry(stDigit, clsSign, parsevm.SplitBefore, stOp)

	// digitExpSign: identical to digit except a sign here is part of
	// the exponent, e.g. the '+' in "0x1.fp+3" or "1e+10".
	digitRow(stDigitExpSign)
	r.SetEntry(stDigitExpSign, clsSign, parsevm.NoSplit, stDigit)

	// ident: ordinary identifier/word accumulation.
	entries(r, stIdent,
		row{clsNull, parsevm.SplitBefore, finState},
		row{clsBackslash, parsevm.SplitBefore, stEscapedIdent},
		row{clsHash, parsevm.SplitBefore, stComment},
		row{clsNewline, parsevm.SplitSkip, stInit},
		row{clsSingleQuote, parsevm.SplitBefore, stSingleString},
		row{clsDoubleQuote, parsevm.SplitBefore, stDoubleString},
		row{clsWhitespace, parsevm.SplitSkip, stInit},
		row{clsDigit, parsevm.NoSplit, stIdent},
		row{clsSign, parsevm.SplitBefore, stSign},
		row{clsIdent, parsevm.NoSplit, stIdent},
		row{clsExpMarker, parsevm.NoSplit, stIdent},
		row{clsOp, parsevm.SplitBefore, stOp},
		row{clsClose, parsevm.SplitBefore, stClosePending},
		row{clsOther, parsevm.NoSplit, stIdent},
	)

	// op: operator-character run accumulation.
	entries(r, stOp,
		row{clsNull, parsevm.SplitBefore, finState},
		row{clsBackslash, parsevm.SplitBefore, stEscapedIdent},
		row{clsHash, parsevm.SplitBefore, stComment},
		row{clsNewline, parsevm.SplitSkip, stInit},
		row{clsSingleQuote, parsevm.SplitBefore, stSingleString},
		row{clsDoubleQuote, parsevm.SplitBefore, stDoubleString},
		row{clsWhitespace, parsevm.SplitSkip, stInit},
		row{clsDigit, parsevm.SplitBefore, stDigit},
		row{clsSign, parsevm.NoSplit, stOp},
		row{clsIdent, parsevm.SplitBefore, stIdent},
		row{clsExpMarker, parsevm.SplitBefore, stIdent},
		row{clsOp, parsevm.NoSplit, stOp},
		row{clsClose, parsevm.SplitBefore, stClosePending},
		row{clsOther, parsevm.SplitBefore, stIdent},
	)

	// closeGroup: a close-group token was just fully flushed; tokStart
	// equals the current byte. Identical to init except an immediately
	// adjacent sign becomes an operator, not a number sign (the other
	// half of the digit/close-group disambiguation rule).
	entries(r, stCloseGroup,
		row{clsNull, parsevm.SplitSkip, finState},
		row{clsBackslash, parsevm.NoSplit, stEscapedIdent},
		row{clsHash, parsevm.NoSplit, stComment},
		row{clsNewline, parsevm.SplitSkip, stInit},
		row{clsSingleQuote, parsevm.NoSplit, stSingleString},
		row{clsDoubleQuote, parsevm.NoSplit, stDoubleString},
		row{clsWhitespace, parsevm.SplitSkip, stInit},
		row{clsDigit, parsevm.NoSplit, stDigit},
		row{clsSign, parsevm.NoSplit, stOp},
		row{clsIdent, parsevm.NoSplit, stIdent},
		row{clsExpMarker, parsevm.NoSplit, stIdent},
		row{clsOp, parsevm.NoSplit, stOp},
		row{clsClose, parsevm.SplitAfter, stCloseGroup},
		row{clsOther, parsevm.NoSplit, stIdent},
	)

	// closePending: a close-group byte is pending (tokStart at its
	// position, entered via SplitBefore from an accumulating state);
	// flush it alone as a one-byte token regardless of what follows.
	// End of input is a special case: it must flush the pending closer
	// and land directly on finState in the same step, rather than
	// transitioning through stCloseGroup first -- transitioning through
	// stCloseGroup would leave the terminating null byte itself
	// unconsumed (it becomes the next token's unflushed tokStart, which
	// Eval then reports back as a leftover residual instead of ever
	// reaching finState). This is what makes an unspaced closer at end
	// of input, e.g. "(1)", resolve cleanly instead of looking like an
	// unterminated token.
	r.SetState(stClosePending, parsevm.SplitBefore, stCloseGroup)
	r.SetEntry(stClosePending, clsNull, parsevm.SplitBefore, finState)

	// escapedIdent: raw capture until a true separator. Every
	// character, including quotes, hashes, and close-group bytes, is
	// literal content here -- only a leading backslash (handled by the
	// init/sign/etc. states' own clsBackslash transitions) puts us in
	// this state, and it is the handler, not the FSM, that strips the
	// escaping backslashes out of the finished token.
	r.SetState(stEscapedIdent, parsevm.NoSplit, stEscapedIdent)
	r.SetEntry(stEscapedIdent, clsNull, parsevm.SplitBefore, finState)
	r.SetEntry(stEscapedIdent, clsNewline, parsevm.SplitSkip, stInit)
	r.SetEntry(stEscapedIdent, clsWhitespace, parsevm.SplitSkip, stInit)

	// comment: discarded until newline or end of input.
	r.SetState(stComment, parsevm.NoSplit, stComment)
	r.SetEntry(stComment, clsNull, parsevm.SplitSkip, finState)
	r.SetEntry(stComment, clsNewline, parsevm.SplitSkip, stInit)

	// singleString: verbatim body, token includes both quotes.
	r.SetState(stSingleString, parsevm.NoSplit, stSingleString)
	r.SetEntry(stSingleString, clsNull, parsevm.Err, 0)
	r.SetEntry(stSingleString, clsSingleQuote, parsevm.SplitAfter, stInit)

	// doubleString: backslash enters a one-byte escape, any other
	// byte (including embedded newlines) is literal content.
	r.SetState(stDoubleString, parsevm.NoSplit, stDoubleString)
	r.SetEntry(stDoubleString, clsNull, parsevm.Err, 0)
	r.SetEntry(stDoubleString, clsBackslash, parsevm.NoSplit, stDoubleStringEscape)
	r.SetEntry(stDoubleString, clsDoubleQuote, parsevm.SplitAfter, stInit)

	// doubleStringEscape: exactly one byte consumed verbatim, then
	// back to doubleString; the byte's meaning (valid escape or not)
	// is resolved later by strx.ParseQuoted, not by the tokenizer.
	r.SetState(stDoubleStringEscape, parsevm.NoSplit, stDoubleString)
	r.SetEntry(stDoubleStringEscape, clsNull, parsevm.Err, 0)

	if err := r.Validate(); err != nil {
		panic(err)
	}
	return r
}

type row struct {
	class int
	op    parsevm.Op
	next  int
}

func entries(r *parsevm.Rules, state int, rows ...row) {
	for _, rr := range rows {
		r.SetEntry(state, rr.class, rr.op, rr.next)
	}
}

// group tracks one open List ('(') or Code ('[') quotation awaiting
// its matching closer.
type group struct {
	isCode bool
	items  []value.Value
}

// Parser is a resumable tokenizer/builder: repeated Feed calls may
// split a logical token or a quoted-string/comment body across chunk
// boundaries.
type Parser struct {
	state    parsevm.State
	pending  []byte // unconsumed residual from the previous Feed call
	groups   []group
	top      []value.Value // completed top-level values (not inside any group)
	finished bool
}

// NewParser returns a Parser ready to consume source text.
func NewParser() *Parser {
	return &Parser{state: parsevm.State{Cur: stInit}}
}

// Feed tokenizes the next chunk of source text, appending completed
// values to the parser's result set. It may be called repeatedly with
// successive chunks; an in-progress token (number, identifier,
// string, comment) spanning the chunk boundary is carried forward
// correctly.
func (p *Parser) Feed(chunk []byte) error {
	if p.finished {
		return verr.New("srcparser.Feed", verr.BadParse)
	}
	data := append(p.pending, chunk...)
	p.pending = nil
	var tokErr error
	handler := func(tok []byte) int {
		if err := p.handleToken(tok); err != nil {
			tokErr = err
			return 1
		}
		return 0
	}
	tail := func(tok []byte) int {
		p.pending = append(p.pending, tok...)
		return 0
	}
	st, err := parsevm.Eval(rules, data, &p.state, handler, tail)
	p.state = st
	if err != nil {
		if _, ok := err.(*parsevm.Abort); ok && tokErr != nil {
			return tokErr
		}
		return err
	}
	if st.Reached {
		p.finished = true
	}
	return nil
}

// Finish signals true end of input: it feeds a terminating null byte,
// so a residual partial token (e.g. a number split across Feed calls)
// is flushed as the final token, while an unterminated quoted string
// is rejected; the accumulated group stack must then be empty (every
// opened List/Code was closed).
func (p *Parser) Finish() error {
	if !p.finished {
		if err := p.Feed([]byte{0}); err != nil {
			return err
		}
	}
	if len(p.pending) > 0 {
		return verr.New("srcparser.Finish", verr.BadParse)
	}
	if len(p.groups) > 0 {
		return verr.New("srcparser.Finish", verr.BadParse)
	}
	return nil
}

// Values returns the top-level values produced so far.
func (p *Parser) Values() []value.Value { return p.top }

// Checkpoint compresses the parser's unconsumed residual bytes (the
// partial token straddling the last Feed call's chunk boundary) so a
// caller feeding a large source incrementally can spill a suspended
// parser's pending state to disk between chunks instead of holding it
// in memory. The open group stack and tokenizer state are not part of
// the checkpoint -- this only covers the one piece of state that can
// grow unboundedly (an arbitrarily long quoted string or comment).
func (p *Parser) Checkpoint() buffer.Frozen {
	w := buffer.Append(buffer.Empty[byte](), p.pending)
	f := buffer.Freeze(w)
	w.Release()
	return f
}

// Restore replaces the parser's pending residual with the bytes
// captured by a prior Checkpoint.
func (p *Parser) Restore(f buffer.Frozen) error {
	w, err := buffer.Thaw(f)
	if err != nil {
		return verr.Wrap("srcparser.Restore", verr.BadParse, err)
	}
	p.pending = append(p.pending[:0], w.Slice()...)
	w.Release()
	return nil
}

// emit appends a completed value to the innermost open group, or to
// the top-level result set if no group is open.
func (p *Parser) emit(v value.Value) {
	if n := len(p.groups); n > 0 {
		p.groups[n-1].items = append(p.groups[n-1].items, v)
		return
	}
	p.top = append(p.top, v)
}

func (p *Parser) handleToken(tok []byte) error {
	if len(tok) == 0 {
		return nil
	}
	switch tok[0] {
	case '"', '\'':
		w, err := strx.ParseQuoted(tok)
		if err != nil {
			return err
		}
		p.emit(value.FromStringWindow(w))
		return nil
	case '#':
		return nil
	case '\\':
		ident := stripEscapes(tok)
		p.emit(value.FromIdentWindow(strx.New(ident)))
		return nil
	}
	if len(tok) == 1 && (tok[0] == '(' || tok[0] == '[') {
		p.groups = append(p.groups, group{isCode: tok[0] == '['})
		return nil
	}
	if len(tok) == 1 && (tok[0] == ')' || tok[0] == ']') {
		wantCode := tok[0] == ']'
		n := len(p.groups)
		if n == 0 {
			return verr.New("srcparser.handleToken", verr.BadParse)
		}
		g := p.groups[n-1]
		if g.isCode != wantCode {
			return verr.New("srcparser.handleToken", verr.BadParse)
		}
		p.groups = p.groups[:n-1]
		w := listx.New(g.items)
		if g.isCode {
			p.emit(value.FromCodeWindow(w))
		} else {
			p.emit(value.FromListWindow(w))
		}
		return nil
	}
	if v, err := numio.ParseNumber(tok); err == nil {
		p.emit(v)
		return nil
	}
	if validIdent(tok) {
		p.emit(value.FromIdentWindow(strx.New(tok)))
		return nil
	}
	return verr.New("srcparser.handleToken", verr.BadParse)
}

// stripEscapes removes every backslash from an escaped-ident token,
// keeping the byte that followed it literally: strip the backslash,
// keep the next byte verbatim, letting any otherwise-special
// character, including digits, quotes and grouping characters, be
// named as part of an identifier.
func stripEscapes(tok []byte) []byte {
	out := make([]byte, 0, len(tok))
	for i := 0; i < len(tok); i++ {
		if tok[i] == '\\' && i+1 < len(tok) {
			i++
		}
		out = append(out, tok[i])
	}
	return out
}

// validIdent reports whether tok is entirely composed of identifier-
// legal bytes (letters, digits, underscore, dot) or operator-class
// bytes -- the tokenizer already only ever hands the handler runs of
// a single class family, so this is effectively always true for
// anything that reached this fallback; it exists to reject stray
// control bytes (clsOther) that slipped through as their own token.
func validIdent(tok []byte) bool {
	for _, b := range tok {
		c := classify(b)
		switch c {
		case clsIdent, clsExpMarker, clsDigit, clsSign, clsOp:
			continue
		default:
			return false
		}
	}
	return true
}
