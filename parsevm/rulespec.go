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
	"fmt"

	"github.com/tinfil/conc/verr"
)

// RuleSpec is a declarative description of a rule table, driven by
// data instead of Go calls: a tokenizer rule file loaded from disk
// unmarshals directly into one of these (e.g. via sigs.k8s.io/yaml)
// and Build turns it into a *Rules the same way a hand-written
// buildRules function would.
type RuleSpec struct {
	States  int `json:"states"`
	Classes int `json:"classes"`
	Init    int `json:"init"`
	Fin     int `json:"fin"`

	// ByteClass maps each possible input byte to a class index; a
	// byte not mentioned defaults to class 0.
	ByteClass [256]int `json:"byteClass"`

	// Default is applied to every (state, class) pair before Entries
	// override specific ones, mirroring SetAll followed by SetEntry.
	Default OpSpec `json:"default"`

	Entries []EntrySpec `json:"entries"`
}

// OpSpec names one of the four splitting Op values (nosplit,
// split_before, split_after, split_skip; Err has no name here) by its
// symbolic name, for use in a declarative document where an Op
// constant has no literal spelling.
type OpSpec struct {
	Op   string `json:"op"`
	Next int    `json:"next"`
}

// EntrySpec overrides a single (state, class) pair's entry.
type EntrySpec struct {
	State int    `json:"state"`
	Class int    `json:"class"`
	Op    string `json:"op"`
	Next  int    `json:"next"`
}

func parseOp(name string) (Op, error) {
	switch name {
	case "nosplit":
		return NoSplit, nil
	case "split_before":
		return SplitBefore, nil
	case "split_after":
		return SplitAfter, nil
	case "split_skip":
		return SplitSkip, nil
	default:
		return 0, verr.Wrap("parsevm.RuleSpec.Build", verr.BadArgs, fmt.Errorf("unknown op %q", name))
	}
}

// Build constructs a validated *Rules from s. The classifier is
// derived from s.ByteClass rather than supplied by the caller, so the
// whole table -- including how bytes map to classes -- comes from the
// spec document.
func (s RuleSpec) Build() (*Rules, error) {
	classifier := func(b byte) int { return s.ByteClass[b] }
	r := NewRules(s.States, s.Classes, s.Init, s.Fin, classifier)

	defOp, err := parseOp(s.Default.Op)
	if err != nil {
		return nil, err
	}
	r.SetAll(defOp, s.Default.Next)

	for i, e := range s.Entries {
		op, err := parseOp(e.Op)
		if err != nil {
			return nil, verr.Wrap("parsevm.RuleSpec.Build", verr.BadArgs, fmt.Errorf("entry %d: %w", i, err))
		}
		r.SetEntry(e.State, e.Class, op, e.Next)
	}

	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}
