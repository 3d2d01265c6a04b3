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

//go:build linux || darwin

package box

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/tinfil/conc/value"
)

// Fd is a boxed raw file descriptor, distinct from File: a File owns
// an *os.File and its buffering, an Fd is the bare integer a caller
// got from a duplicate or a syscall return.
type Fd struct {
	refcount
	fd      int
	noClose bool
}

// NewFd wraps an already-open descriptor with a refcount of 1.
func NewFd(fd int) *Fd {
	return &Fd{refcount: refcount{n: 1}, fd: fd}
}

func (f *Fd) Retain() value.Boxed {
	f.retain()
	return f
}

func (f *Fd) Release() {
	if f.release() == 0 && !f.noClose {
		unix.Close(f.fd)
	}
}

func (f *Fd) Kind() string { return "fd" }

// Int returns the raw descriptor number.
func (f *Fd) Int() int { return f.fd }

// Nonblocking reports whether O_NONBLOCK is set on the descriptor.
func (f *Fd) Nonblocking() (bool, error) {
	flags, err := unix.FcntlInt(uintptr(f.fd), unix.F_GETFL, 0)
	if err != nil {
		return false, err
	}
	return flags&unix.O_NONBLOCK != 0, nil
}

func (f *Fd) String() string {
	return fmt.Sprintf("fd(%d)", f.fd)
}

// Dup duplicates f's underlying descriptor via unix.Dup and returns
// an independent Fd a caller can close (or set non-blocking) without
// affecting f -- the "wraps fd 0/1/2 via unix.Dup when a caller asks
// for a duplicate" behavior the standard-stream singletons need to
// hand out a closable copy while keeping their own descriptor open.
func (f *File) Dup() (*Fd, error) {
	nfd, err := unix.Dup(int(f.f.Fd()))
	if err != nil {
		return nil, fmt.Errorf("box: dup %s: %w", f.name, err)
	}
	return NewFd(nfd), nil
}
