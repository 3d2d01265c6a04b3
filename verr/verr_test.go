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

package verr

import (
	"errors"
	"testing"
)

func TestCodeNameAndMessage(t *testing.T) {
	cases := []struct {
		c    Code
		name string
	}{
		{OK, "ok"},
		{BadParse, "bad_parse"},
		{BadEscape, "bad_escape"},
		{BadType, "bad_type"},
		{BadArgs, "bad_args"},
		{MissingArgs, "missing_args"},
		{Malloc, "malloc"},
		{IO, "io"},
		{EOF, "eof"},
		{NotImplemented, "not_implemented"},
		{Assert, "assert"},
		{Throw, "throw"},
		{UserThrow, "user_throw"},
		{Fatal, "fatal"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := c.c.Name(); got != c.name {
				t.Fatalf("Name() = %q, want %q", got, c.name)
			}
			if got := c.c.String(); got != c.name {
				t.Fatalf("String() = %q, want %q", got, c.name)
			}
			if got := c.c.Message(); got == "" {
				t.Fatalf("Message() returned empty string for %q", c.name)
			}
		})
	}
}

func TestCodeUnknown(t *testing.T) {
	var c Code = 1234
	if got := c.Name(); got != "unknown" {
		t.Fatalf("Name() = %q, want unknown", got)
	}
	if got := c.Message(); got != "unknown error" {
		t.Fatalf("Message() = %q, want %q", got, "unknown error")
	}
}

func TestNewError(t *testing.T) {
	err := New("pkg.Op", BadArgs)
	if err.Code != BadArgs {
		t.Fatalf("Code = %v, want %v", err.Code, BadArgs)
	}
	if err.Err != nil {
		t.Fatalf("Err = %v, want nil", err.Err)
	}
	want := "pkg.Op: invalid argument"
	if got := err.Error(); got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
}

func TestWrapCarriesCause(t *testing.T) {
	cause := errors.New("underlying failure")
	err := Wrap("pkg.Op", BadParse, cause)
	if err.Code != BadParse {
		t.Fatalf("Code = %v, want %v", err.Code, BadParse)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected errors.Is to find the wrapped cause")
	}
	want := "pkg.Op: malformed input could not be parsed: underlying failure"
	if got := err.Error(); got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
}

func TestWrapNeverDowngradesFatal(t *testing.T) {
	fatal := New("pkg.Inner", Fatal)
	err := Wrap("pkg.Outer", BadArgs, fatal)
	if err.Code != Fatal {
		t.Fatalf("Code = %v, want Fatal to survive wrapping with a lesser code", err.Code)
	}
}

func TestIsWalksWrapChain(t *testing.T) {
	inner := New("pkg.Inner", BadEscape)
	outer := Wrap("pkg.Outer", BadParse, inner)
	if !Is(outer, BadParse) {
		t.Fatalf("Is(outer, BadParse) = false, want true")
	}
	if !Is(outer, BadEscape) {
		t.Fatalf("Is(outer, BadEscape) = false, want true (should walk the Unwrap chain)")
	}
	if Is(outer, Malloc) {
		t.Fatalf("Is(outer, Malloc) = true, want false")
	}
	if Is(nil, BadParse) {
		t.Fatalf("Is(nil, ...) = true, want false")
	}
}

func TestIsStopsAtNonVerrCause(t *testing.T) {
	plain := errors.New("not a verr.Error")
	wrapped := Wrap("pkg.Op", BadParse, plain)
	if !Is(wrapped, BadParse) {
		t.Fatalf("Is(wrapped, BadParse) = false, want true")
	}
	if Is(wrapped, Fatal) {
		t.Fatalf("Is(wrapped, Fatal) = true, want false")
	}
}
