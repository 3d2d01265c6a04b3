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

package buffer

import (
	"fmt"

	"github.com/klauspost/compress/zstd"
)

var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderConcurrency(1))
	if err != nil {
		panic(err)
	}
	zstdEncoder = enc
	dec, err := zstd.NewReader(nil)
	if err != nil {
		panic(err)
	}
	zstdDecoder = dec
}

// Frozen is a zstd-compressed snapshot of a byte Window's live
// content, small enough to spill to disk between chunks of a
// suspended, incrementally-fed tokenizer.
type Frozen struct {
	data []byte
	size int
}

// Size returns the decompressed length a Thaw of f will produce.
func (f Frozen) Size() int { return f.size }

// Freeze compresses w's live bytes into a Frozen snapshot. It does
// not consume or release w -- the caller keeps its own reference.
func Freeze(w Window[byte]) Frozen {
	return Frozen{
		data: zstdEncoder.EncodeAll(w.Slice(), nil),
		size: w.Len,
	}
}

// Thaw decompresses f into a freshly allocated Window with a
// refcount of 1.
func Thaw(f Frozen) (Window[byte], error) {
	nb := NewBuffer[byte](f.size)
	out, err := zstdDecoder.DecodeAll(f.data, nb.storage[:0])
	if err != nil {
		return Window[byte]{}, fmt.Errorf("buffer: thaw: %w", err)
	}
	if len(out) != f.size {
		return Window[byte]{}, fmt.Errorf("buffer: thaw: expected %d bytes, got %d", f.size, len(out))
	}
	nb.storage = out
	return Window[byte]{Buf: nb, Len: f.size}, nil
}
