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

package numio

import (
	"testing"

	"github.com/tinfil/conc/strx"
	"github.com/tinfil/conc/value"
	"github.com/tinfil/conc/verr"
)

func mustSprintf(t *testing.T, format string, vals ...value.Value) string {
	t.Helper()
	out, err := Sprintf(format, NewArgs(vals))
	if err != nil {
		t.Fatalf("Sprintf(%q): %v", format, err)
	}
	return out
}

func TestSprintfBasicInt(t *testing.T) {
	got := mustSprintf(t, "count=%d", value.FromInt32(5))
	if got != "count=5" {
		t.Fatalf("got %q", got)
	}
}

func TestSprintfWidthFromArg(t *testing.T) {
	got := mustSprintf(t, "%*d", value.FromInt32(4), value.FromInt32(7))
	if got != "   7" {
		t.Fatalf("got %q, want %q", got, "   7")
	}
}

func TestSprintfLiteralPercent(t *testing.T) {
	got := mustSprintf(t, "100%%")
	if got != "100%" {
		t.Fatalf("got %q", got)
	}
}

func TestSprintfHexFloatScenario(t *testing.T) {
	got := mustSprintf(t, "%a", value.FromDouble(15.5))
	if got != "0x1.fp+3" {
		t.Fatalf("got %q, want %q", got, "0x1.fp+3")
	}
}

func TestSprintfEngineeringScenario(t *testing.T) {
	got := mustSprintf(t, "%.3q", value.FromDouble(1234.0))
	if got != "1.234e+03" {
		t.Fatalf("got %q, want %q", got, "1.234e+03")
	}
}

func TestSprintfPositionalArg(t *testing.T) {
	got := mustSprintf(t, "%2$d-%1$d", value.FromInt32(1), value.FromInt32(2))
	if got != "2-1" {
		t.Fatalf("got %q, want %q", got, "2-1")
	}
}

func TestSprintfSkipArgument(t *testing.T) {
	got := mustSprintf(t, "%_%d", value.FromInt32(99), value.FromInt32(42))
	if got != "42" {
		t.Fatalf("got %q, want %q", got, "42")
	}
}

func TestSprintfErrorMessageConversion(t *testing.T) {
	got := mustSprintf(t, "%m", value.FromInt32(int32(verr.BadParse)))
	if got != verr.BadParse.Message() {
		t.Fatalf("got %q, want %q", got, verr.BadParse.Message())
	}
}

func TestSprintfMissingArgs(t *testing.T) {
	_, err := Sprintf("%d %d", NewArgs([]value.Value{value.FromInt32(1)}))
	if err == nil {
		t.Fatalf("expected MissingArgs error")
	}
}

func TestSprintfStringConversion(t *testing.T) {
	w := value.FromStringWindow(strx.New([]byte("hi")))
	got := mustSprintf(t, "%s!", w)
	if got != "hi!" {
		t.Fatalf("got %q, want %q", got, "hi!")
	}
}
