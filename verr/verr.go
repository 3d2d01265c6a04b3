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

// Package verr defines the closed error taxonomy shared by the
// runtime substrate (buffer, value, strx, listx, numio, parsevm,
// srcparser, symtab) and the host interpreter that embeds it.
package verr

import "fmt"

// Code is a member of the closed error-code enumeration. Every
// fallible operation in this module returns either a non-negative
// result or a negative Code; Code(0) is success.
type Code int32

const (
	OK            Code = 0
	BadParse      Code = -1
	BadEscape     Code = -2
	BadType       Code = -3
	BadArgs       Code = -4
	MissingArgs   Code = -5
	Malloc        Code = -6
	IO            Code = -7
	EOF           Code = -8
	NotImplemented Code = -9
	Assert        Code = -10
	Throw         Code = -11
	UserThrow     Code = -12
	Fatal         Code = -13
)

var names = map[Code]string{
	OK:             "ok",
	BadParse:       "bad_parse",
	BadEscape:      "bad_escape",
	BadType:        "bad_type",
	BadArgs:        "bad_args",
	MissingArgs:    "missing_args",
	Malloc:         "malloc",
	IO:             "io",
	EOF:            "eof",
	NotImplemented: "not_implemented",
	Assert:         "assert",
	Throw:          "throw",
	UserThrow:      "user_throw",
	Fatal:          "fatal",
}

var messages = map[Code]string{
	OK:             "success",
	BadParse:       "malformed input could not be parsed",
	BadEscape:      "invalid escape sequence",
	BadType:        "operand has the wrong value type",
	BadArgs:        "invalid argument",
	MissingArgs:    "not enough arguments supplied",
	Malloc:         "allocation failed",
	IO:             "i/o error",
	EOF:            "end of input",
	NotImplemented: "operation not implemented",
	Assert:         "internal invariant violated",
	Throw:          "exception is on the caller's value stack",
	UserThrow:      "user exception is on the caller's value stack",
	Fatal:          "unrecoverable error",
}

// Name returns the stable symbolic name of c, or "unknown" if c is
// not a member of the enumeration.
func (c Code) Name() string {
	if n, ok := names[c]; ok {
		return n
	}
	return "unknown"
}

// Message returns the human-readable description of c.
func (c Code) Message() string {
	if m, ok := messages[c]; ok {
		return m
	}
	return "unknown error"
}

func (c Code) String() string {
	return c.Name()
}

// Error wraps a Code with operation context. It satisfies the error
// interface so substrate functions can be used wherever a Go error
// is expected, while callers that need the raw code can still type-
// assert or use errors.As.
type Error struct {
	Code Code
	Op   string // operation that failed, e.g. "strx.Concat"
	Err  error  // optional wrapped cause
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Code.Message(), e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Code.Message())
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an *Error for operation op failing with code c.
func New(op string, c Code) *Error {
	return &Error{Code: c, Op: op}
}

// Wrap builds an *Error for operation op failing with code c because
// of the underlying cause err. Wrap never downgrades a Fatal cause:
// if err already carries Code Fatal, the returned Error keeps Fatal
// regardless of c, matching the "MUST NOT translate one error code
// into another except to upgrade to fatal" propagation rule.
func Wrap(op string, c Code, err error) *Error {
	if ve, ok := err.(*Error); ok && ve.Code == Fatal {
		c = Fatal
	}
	return &Error{Code: c, Op: op, Err: err}
}

// Is reports whether err carries code c anywhere in its Unwrap chain.
func Is(err error, c Code) bool {
	for err != nil {
		if ve, ok := err.(*Error); ok {
			if ve.Code == c {
				return true
			}
			err = ve.Err
			continue
		}
		break
	}
	return false
}
