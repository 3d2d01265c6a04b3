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

// Package box gives the six boxed value.Value variants -- Dict, Ref,
// File, Fd, Vm, NativeFunc -- a concrete, minimal shape satisfying
// value.Boxed's "opaque handle, refcounted, type-dispatched printer"
// contract. value.Value never imports this package; box imports
// value instead, since Dict and Ref both hold onto Values.
package box

import (
	"fmt"
	"os"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/tinfil/conc/symtab"
	"github.com/tinfil/conc/value"
)

// refcount is shared plumbing for every boxed handle, the same
// atomic-int32-starting-at-1 shape buffer.Buffer uses for its own
// refcount field.
type refcount struct {
	n int32
}

func (r *refcount) retain()        { atomic.AddInt32(&r.n, 1) }
func (r *refcount) release() int32 { return atomic.AddInt32(&r.n, -1) }
func (r *refcount) count() int32   { return atomic.LoadInt32(&r.n) }

// Dict is a boxed, mutable associative collection: a nested scope is
// unneeded here (a Dict is a value, not a lexical frame), so it wraps
// a single unscoped symtab.Table rather than duplicating the chained
// hash table's bucket/chain logic.
type Dict struct {
	refcount
	table *symtab.Table
}

// NewDict returns an empty Dict with a refcount of 1.
func NewDict() *Dict {
	return &Dict{refcount: refcount{n: 1}, table: symtab.New()}
}

func (d *Dict) Retain() value.Boxed {
	d.retain()
	return d
}

func (d *Dict) Release() {
	if d.release() == 0 {
		d.table.Clear()
	}
}

func (d *Dict) Kind() string { return "dict" }

// Get, Put and Delete forward to the underlying table; Dict does not
// itself interpret keys.
func (d *Dict) Get(key []byte) (value.Value, bool) { return d.table.Get(key) }
func (d *Dict) Put(key []byte, v value.Value)      { d.table.Put(key, v) }
func (d *Dict) Delete(key []byte) bool             { return d.table.Delete(key) }
func (d *Dict) Len() int                           { return d.table.Len() }

func (d *Dict) String() string {
	return fmt.Sprintf("dict(%d entries)", d.table.Len())
}

// Ref is a boxed mutable single-value cell -- the indirection a
// concatenative language's variable bindings are built from, distinct
// from Dict's many-keyed storage.
type Ref struct {
	refcount
	val value.Value
}

// NewRef returns a Ref with a refcount of 1, owning a clone of v.
func NewRef(v value.Value) *Ref {
	return &Ref{refcount: refcount{n: 1}, val: value.Clone(v)}
}

func (r *Ref) Retain() value.Boxed {
	r.retain()
	return r
}

func (r *Ref) Release() {
	if r.release() == 0 {
		value.Destroy(r.val)
	}
}

func (r *Ref) Kind() string { return "ref" }

// Get returns the cell's current value without transferring ownership.
func (r *Ref) Get() value.Value { return r.val }

// Set replaces the cell's value, releasing the one it held.
func (r *Ref) Set(v value.Value) {
	old := r.val
	r.val = value.Clone(v)
	value.Destroy(old)
}

func (r *Ref) String() string {
	return fmt.Sprintf("ref(%s)", r.val.Type())
}

// File wraps an *os.File. The three standard streams are long-lived
// singletons with an explicit do-not-close flag -- refcount starts
// at 1 and is never allowed to reach zero through normal release;
// every other File closes its descriptor once its last reference is
// released.
type File struct {
	refcount
	f       *os.File
	name    string
	noClose bool
}

// NewFile wraps an already-open *os.File with a refcount of 1.
func NewFile(f *os.File) *File {
	return &File{refcount: refcount{n: 1}, f: f, name: f.Name()}
}

var stdStreams = [3]*File{
	0: {refcount: refcount{n: 1}, f: os.Stdin, name: "<stdin>", noClose: true},
	1: {refcount: refcount{n: 1}, f: os.Stdout, name: "<stdout>", noClose: true},
	2: {refcount: refcount{n: 1}, f: os.Stderr, name: "<stderr>", noClose: true},
}

// StdStream returns the long-lived handle for fd 0, 1 or 2, retaining
// it on the caller's behalf (so the package-level singleton's own
// baseline reference is never the one a caller releases down to
// zero). Any other n returns nil.
func StdStream(n int) *File {
	if n < 0 || n > 2 {
		return nil
	}
	f := stdStreams[n]
	f.retain()
	return f
}

func (f *File) Retain() value.Boxed {
	f.retain()
	return f
}

func (f *File) Release() {
	if f.release() == 0 && !f.noClose {
		f.f.Close()
	}
}

func (f *File) Kind() string { return "file" }

// Handle returns the wrapped *os.File for I/O.
func (f *File) Handle() *os.File { return f.f }

func (f *File) String() string {
	return fmt.Sprintf("file(%s)", f.name)
}

// Vm names one interpreter instance. Diagnostics and the printer for
// Vm values use its uuid to distinguish multiple interpreters running
// in the same process.
type Vm struct {
	refcount
	id   uuid.UUID
	name string
}

// NewVm mints a fresh Vm handle with a random instance id.
func NewVm(name string) *Vm {
	return &Vm{refcount: refcount{n: 1}, id: uuid.New(), name: name}
}

func (v *Vm) Retain() value.Boxed {
	v.retain()
	return v
}

func (v *Vm) Release() {
	v.release()
}

func (v *Vm) Kind() string  { return "vm" }
func (v *Vm) ID() uuid.UUID { return v.id }
func (v *Vm) Name() string  { return v.name }

func (v *Vm) String() string {
	if v.name == "" {
		return fmt.Sprintf("vm(%s)", v.id)
	}
	return fmt.Sprintf("vm(%s, %s)", v.name, v.id)
}

// NativeFunc wraps a host-provided builtin: a word implemented in Go
// rather than in the source language. It is listed alongside the
// other boxed handles (refcounted, type-dispatched printer) despite
// also being a "primitive" in other respects; this module follows
// value.go's existing Destroy/Clone dispatch, which already treats it
// as heap-bearing like the other boxed variants.
type NativeFunc struct {
	refcount
	name string
	fn   func(args []value.Value) ([]value.Value, error)
}

// NewNativeFunc wraps fn under name, with a refcount of 1.
func NewNativeFunc(name string, fn func(args []value.Value) ([]value.Value, error)) *NativeFunc {
	return &NativeFunc{refcount: refcount{n: 1}, name: name, fn: fn}
}

func (n *NativeFunc) Retain() value.Boxed {
	n.retain()
	return n
}

func (n *NativeFunc) Release() {
	n.release()
}

func (n *NativeFunc) Kind() string { return "nativefunc" }

// Call invokes the wrapped builtin.
func (n *NativeFunc) Call(args []value.Value) ([]value.Value, error) {
	return n.fn(args)
}

func (n *NativeFunc) String() string {
	return fmt.Sprintf("nativefunc(%s)", n.name)
}
