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

// Package parsevm implements a packed rule-table finite-state
// machine: a byte-indexed table of (op, next_state) entries, a
// builder with broadcast setters, a validator, and two drivers (a
// handler-calling Eval and a handler-free Validate) that accept
// exactly the same language for the same table.
//
// This mirrors the "table-driven automaton with a separate builder
// and validate-only walk" shape of SnellerInc/sneller's regexp2
// package (autom.DfaMin.go, Regexp2.go), and the byte-at-a-time
// pos/from scanning idiom of expr/partiql/lex.go's scanner, without
// either package's regex-specific machinery -- this module's tables
// are hand-built or loaded from a declarative spec, never derived
// from a regular expression.
package parsevm

import (
	"fmt"

	"github.com/tinfil/conc/verr"
)

// Op is one of the five defined rule operations. The remaining 3 of
// the 8 possible 3-bit op codes are reserved; any
// value observed at runtime other than the five below is a parse
// error.
type Op uint8

const (
	NoSplit     Op = 0
	SplitBefore Op = 1
	SplitAfter  Op = 2
	SplitSkip   Op = 3
	Err         Op = 7
)

// MaxStates is the largest state count a rule table can address: the
// low 5 bits of a packed entry hold next_state.
const MaxStates = 32

// entry packs (op, next_state) into one byte: high 3 bits op, low 5
// bits next_state.
func pack(op Op, next int) byte {
	return byte(op)<<5 | byte(next&0x1f)
}

func unpack(e byte) (Op, int) {
	return Op(e >> 5), int(e & 0x1f)
}

// Rules is a contiguous, state*nclasses-indexed rule table plus the
// classifier that maps an input byte to a class index.
type Rules struct {
	NStates    int
	NClasses   int
	Init       int
	Fin        int
	Classifier func(byte) int

	table []byte
}

// NewRules allocates a zeroed (all entries NoSplit -> state 0) rule
// table. Fin is the sentinel "final" state value, conventionally
// outside [0, nstates) -- fin >= nstates is permitted.
func NewRules(nstates, nclasses, init, fin int, classifier func(byte) int) *Rules {
	return &Rules{
		NStates:    nstates,
		NClasses:   nclasses,
		Init:       init,
		Fin:        fin,
		Classifier: classifier,
		table:      make([]byte, nstates*nclasses),
	}
}

func (r *Rules) index(state, class int) int { return state*r.NClasses + class }

// Get returns the (op, next_state) pair at (state, class).
func (r *Rules) Get(state, class int) (Op, int) {
	return unpack(r.table[r.index(state, class)])
}

// --- builder: broadcast setters ---

// SetAll paints every entry in the table with (op, next).
func (r *Rules) SetAll(op Op, next int) *Rules {
	e := pack(op, next)
	for i := range r.table {
		r.table[i] = e
	}
	return r
}

// SetState paints every entry for the given state.
func (r *Rules) SetState(state int, op Op, next int) *Rules {
	e := pack(op, next)
	for c := 0; c < r.NClasses; c++ {
		r.table[r.index(state, c)] = e
	}
	return r
}

// SetClass paints every entry for the given class.
func (r *Rules) SetClass(class int, op Op, next int) *Rules {
	e := pack(op, next)
	for s := 0; s < r.NStates; s++ {
		r.table[r.index(s, class)] = e
	}
	return r
}

// Pair is a (state, class) coordinate used by SetPairs.
type Pair struct{ State, Class int }

// SetPairs paints an explicit list of (state, class) exceptions with
// (op, next), letting callers "paint the default, then paint
// exceptions".
func (r *Rules) SetPairs(op Op, next int, pairs ...Pair) *Rules {
	e := pack(op, next)
	for _, p := range pairs {
		r.table[r.index(p.State, p.Class)] = e
	}
	return r
}

// SetEntry sets a single (state, class) entry fully.
func (r *Rules) SetEntry(state, class int, op Op, next int) *Rules {
	r.table[r.index(state, class)] = pack(op, next)
	return r
}

// SetOp updates only the op bits of an existing entry, preserving
// its current next_state.
func (r *Rules) SetOp(state, class int, op Op) *Rules {
	_, next := unpack(r.table[r.index(state, class)])
	r.table[r.index(state, class)] = pack(op, next)
	return r
}

// SetNext updates only the next_state bits of an existing entry,
// preserving its current op.
func (r *Rules) SetNext(state, class int, next int) *Rules {
	op, _ := unpack(r.table[r.index(state, class)])
	r.table[r.index(state, class)] = pack(op, next)
	return r
}

// --- validation ---

// Validate checks the table's static well-formedness: init_state is
// in range, every next_state is either a valid state or the Fin
// sentinel, and at least one entry reaches Fin.
func (r *Rules) Validate() error {
	if r.Init < 0 || r.Init >= r.NStates {
		return verr.Wrap("parsevm.Validate", verr.BadArgs, fmt.Errorf("init state %d out of range [0,%d)", r.Init, r.NStates))
	}
	if r.NStates > MaxStates {
		return verr.Wrap("parsevm.Validate", verr.BadArgs, fmt.Errorf("%d states exceeds MaxStates %d", r.NStates, MaxStates))
	}
	reachesFin := false
	for s := 0; s < r.NStates; s++ {
		for c := 0; c < r.NClasses; c++ {
			op, next := r.Get(s, c)
			if op == Err {
				continue
			}
			if next != r.Fin && (next < 0 || next >= r.NStates) {
				return verr.Wrap("parsevm.Validate", verr.BadArgs,
					fmt.Errorf("state %d class %d: next_state %d is neither a valid state nor fin_state %d", s, c, next, r.Fin))
			}
			if next == r.Fin {
				reachesFin = true
			}
		}
	}
	if !reachesFin {
		return verr.Wrap("parsevm.Validate", verr.BadArgs, fmt.Errorf("no entry transitions to fin_state"))
	}
	return nil
}

// --- evaluation ---

// Handler is invoked once per emitted token. Returning a non-zero
// code aborts evaluation; that code is returned from Eval wrapped in
// an *Abort.
type Handler func(tok []byte) int

// Abort wraps a non-zero code a Handler or TailHandler returned, so
// Eval's caller can recover it without it being confused for a parse
// error.
type Abort struct{ Code int }

func (a *Abort) Error() string { return fmt.Sprintf("parsevm: handler aborted with code %d", a.Code) }

// State is the resumable checkpoint Eval produces: enough to
// continue parsing the next chunk with no loss.
type State struct {
	Cur     int  // live FSM state after the last byte Eval consumed
	Resume  int  // state to resume from when replaying the pending residual
	Reached bool // whether fin_state has been reached
}

// Eval tokenizes data starting from the Init state (or from saved, if
// non-nil and non-initial), invoking handler once per completed,
// non-empty token and tailHandler (if non-nil) on a non-empty
// residual at end-of-input. It returns the state to resume from.
//
// Eval assumes the *entire* pending token lives within data -- i.e.
// it does not itself carry partial-token bytes across calls. Callers
// that resume across chunk boundaries with a partial token pending
// must concatenate the previous chunk's unconsumed residual with the
// new chunk before calling Eval again; srcparser's Parser does this.
//
// The returned State's Resume field, not Cur, is what a caller must
// feed back in on the next call: the residual bytes get reclassified
// from scratch against whatever state they start replaying in, so the
// resume point must be the state that was in effect when the
// currently-pending token's first byte was classified, not the live
// state after consuming the rest of the (still-unflushed) token. Using
// Cur for that purpose would reclassify the residual's leading bytes
// under the wrong state whenever a table entry's behavior depends on
// the state actually in effect for that byte (e.g. a disambiguation
// rule keyed on "sign immediately following a digit or close-group").
func Eval(r *Rules, data []byte, saved *State, handler Handler, tailHandler Handler) (State, error) {
	state := r.Init
	reached := false
	if saved != nil && saved.Resume != r.Init {
		state = saved.Resume
		reached = saved.Reached
	}
	tokStart := 0
	tokStartState := state
	for i := 0; i < len(data); i++ {
		class := r.Classifier(data[i])
		if class < 0 || class >= r.NClasses {
			return State{Cur: state, Resume: tokStartState, Reached: reached}, verr.Wrap("parsevm.Eval", verr.BadParse, fmt.Errorf("byte 0x%02x at offset %d has no class", data[i], i))
		}
		op, next := r.Get(state, class)
		switch op {
		case NoSplit:
			// continue accumulating
		case SplitBefore:
			if i > tokStart {
				if code := handler(data[tokStart:i]); code != 0 {
					return State{Cur: state, Resume: tokStartState, Reached: reached}, &Abort{Code: code}
				}
			}
			tokStart = i
			// byte i itself was already classified under the
			// pre-transition state; replaying it must use that same
			// state, not next.
			tokStartState = state
		case SplitAfter:
			if code := handler(data[tokStart : i+1]); code != 0 {
				return State{Cur: state, Resume: tokStartState, Reached: reached}, &Abort{Code: code}
			}
			tokStart = i + 1
			// the new tokStart is byte i+1, never yet classified;
			// it will be read under next.
			tokStartState = next
		case SplitSkip:
			if i > tokStart {
				if code := handler(data[tokStart:i]); code != 0 {
					return State{Cur: state, Resume: tokStartState, Reached: reached}, &Abort{Code: code}
				}
			}
			tokStart = i + 1
			tokStartState = next
		default:
			return State{Cur: state, Resume: tokStartState, Reached: reached}, verr.New("parsevm.Eval", verr.BadParse)
		}
		state = next
		if state == r.Fin {
			// the transition into fin_state ends evaluation with
			// success. Only the op dispatched above emits a token for
			// this byte; a still-pending prefix (e.g. after a
			// NOSPLIT into fin_state) is not flushed to the handler.
			reached = true
			return State{Cur: state, Resume: tokStartState, Reached: reached}, nil
		}
	}
	if tokStart < len(data) {
		residual := data[tokStart:]
		if len(residual) > 0 {
			if tailHandler != nil {
				if code := tailHandler(residual); code != 0 {
					return State{Cur: state, Resume: tokStartState, Reached: reached}, &Abort{Code: code}
				}
				return State{Cur: state, Resume: tokStartState, Reached: reached}, nil
			}
			return State{Cur: state, Resume: tokStartState, Reached: reached}, verr.New("parsevm.Eval", verr.BadParse)
		}
	}
	return State{Cur: state, Resume: tokStartState, Reached: reached}, nil
}

// ValidateStatus is the result of the handler-free Validate driver.
type ValidateStatus int

const (
	ReachedFin ValidateStatus = iota
	ParseError
	EndOfInput
)

// ValidateInput runs the shorter validate-only loop: no handlers are
// called, and the only observable outcomes are
// "reached fin_state", "parse error", or "ran out of input". It
// accepts exactly the same language Eval does for the same table.
func ValidateInput(r *Rules, data []byte, saved *State) (State, ValidateStatus) {
	state := r.Init
	if saved != nil && saved.Cur != r.Init {
		state = saved.Cur
	}
	for i := 0; i < len(data); i++ {
		class := r.Classifier(data[i])
		if class < 0 || class >= r.NClasses {
			return State{Cur: state}, ParseError
		}
		op, next := r.Get(state, class)
		if op == Err {
			return State{Cur: state}, ParseError
		}
		if op != NoSplit && op != SplitBefore && op != SplitAfter && op != SplitSkip {
			return State{Cur: state}, ParseError
		}
		state = next
		if state == r.Fin {
			return State{Cur: state, Reached: true}, ReachedFin
		}
	}
	return State{Cur: state}, EndOfInput
}
