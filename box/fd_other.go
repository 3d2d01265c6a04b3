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

//go:build !(linux || darwin)

package box

import (
	"errors"
	"fmt"

	"github.com/tinfil/conc/value"
)

// Fd on non-unix platforms has no fcntl/dup syscalls to back it; it
// still satisfies value.Boxed so the Value union stays complete, but
// every operation beyond the descriptor number itself fails.
type Fd struct {
	refcount
	fd int
}

func NewFd(fd int) *Fd {
	return &Fd{refcount: refcount{n: 1}, fd: fd}
}

func (f *Fd) Retain() value.Boxed {
	f.retain()
	return f
}

func (f *Fd) Release() {
	f.release()
}

func (f *Fd) Kind() string { return "fd" }
func (f *Fd) Int() int     { return f.fd }

func (f *Fd) Nonblocking() (bool, error) {
	return false, errors.New("box: Fd.Nonblocking is unsupported on this platform")
}

func (f *Fd) String() string {
	return fmt.Sprintf("fd(%d)", f.fd)
}

func (f *File) Dup() (*Fd, error) {
	return nil, fmt.Errorf("box: dup %s: unsupported on this platform", f.name)
}
