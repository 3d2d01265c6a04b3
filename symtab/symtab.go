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

// Package symtab is the chained hash table keyed by string bytes:
// FNV-1a hashed, power-of-two bucket count, chains sorted by
// (hash, key) so a miss can stop at the first entry past the target,
// and scopes chained via a parent pointer so nested lexical scopes
// shadow without copying their enclosing bindings.
package symtab

import (
	"bytes"
	"sort"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/tinfil/conc/strx"
	"github.com/tinfil/conc/value"
)

const initialBuckets = 8

// loadFactor is the average chain length (count / bucket count) that
// triggers a doubling. Not spelled out by name in the source material;
// the bucket-count-doubles-and-rehashes policy itself is, this just
// picks when.
const loadFactor = 2

type entry struct {
	hash uint32
	key  []byte
	val  value.Value
}

func (e entry) cmp(hash uint32, key []byte) int {
	if e.hash != hash {
		if e.hash < hash {
			return -1
		}
		return 1
	}
	return bytes.Compare(e.key, key)
}

// Table is one scope frame. A lookup chain (Get) walks this frame then
// every frame reachable via next; Put always writes into this frame's
// head; Delete walks the chain looking for whichever frame actually
// owns the key.
type Table struct {
	buckets [][]entry
	count   int
	next    *Table

	// scratch is reused across WalkUnique calls so dedup doesn't
	// allocate a fresh map every time; see ion/symtab.go's own reuse
	// of maps.Clear for the same reason.
	scratch map[string]struct{}
}

// New returns an empty root scope.
func New() *Table {
	return &Table{buckets: make([][]entry, initialBuckets)}
}

// Push opens a nested scope: lookups fall through to t, puts never
// touch it.
func (t *Table) Push() *Table {
	return &Table{buckets: make([][]entry, initialBuckets), next: t}
}

// Pop destroys every binding owned by this scope (releasing their
// values) and returns the enclosing scope.
func (t *Table) Pop() *Table {
	t.Clear()
	return t.next
}

func (t *Table) bucketIndex(hash uint32) int {
	return int(hash) & (len(t.buckets) - 1)
}

// locate finds key's position in a chain kept sorted by (hash, key):
// the first index whose entry is >= the target, plus whether that
// entry is an exact match. A miss stops at the first entry past the
// target instead of scanning the rest of the chain.
func locate(chain []entry, hash uint32, key []byte) (int, bool) {
	i := sort.Search(len(chain), func(i int) bool {
		return chain[i].cmp(hash, key) >= 0
	})
	return i, i < len(chain) && chain[i].cmp(hash, key) == 0
}

// Get walks this scope and every enclosing one, returning the first
// (innermost) binding for key.
func (t *Table) Get(key []byte) (value.Value, bool) {
	h := strx.FNV1a32(key)
	for s := t; s != nil; s = s.next {
		chain := s.buckets[s.bucketIndex(h)]
		if i, ok := locate(chain, h, key); ok {
			return chain[i].val, true
		}
	}
	return value.Value{}, false
}

// Put binds key to v in this scope only, never an enclosing one. An
// existing binding for key in this scope is overwritten (its old value
// released); a binding of the same name in an enclosing scope is
// shadowed, not touched.
func (t *Table) Put(key []byte, v value.Value) {
	h := strx.FNV1a32(key)
	idx := t.bucketIndex(h)
	chain := t.buckets[idx]
	i, ok := locate(chain, h, key)
	if ok {
		value.Destroy(chain[i].val)
		chain[i].val = value.Clone(v)
		return
	}
	owned := append([]byte(nil), key...)
	t.buckets[idx] = slices.Insert(chain, i, entry{hash: h, key: owned, val: value.Clone(v)})
	t.count++
	t.growIfNeeded()
}

// Delete removes key from whichever scope in the chain owns it,
// releasing its value. It reports whether a binding was found.
func (t *Table) Delete(key []byte) bool {
	h := strx.FNV1a32(key)
	for s := t; s != nil; s = s.next {
		idx := s.bucketIndex(h)
		chain := s.buckets[idx]
		i, ok := locate(chain, h, key)
		if !ok {
			continue
		}
		value.Destroy(chain[i].val)
		s.buckets[idx] = slices.Delete(chain, i, i+1)
		s.count--
		return true
	}
	return false
}

// Len reports the number of bindings owned directly by this scope
// (enclosing scopes are not counted).
func (t *Table) Len() int {
	return t.count
}

// Clear releases every binding owned by this scope and empties its
// buckets. Enclosing scopes are untouched.
func (t *Table) Clear() {
	for i, chain := range t.buckets {
		for _, e := range chain {
			value.Destroy(e.val)
		}
		t.buckets[i] = nil
	}
	t.count = 0
}

func (t *Table) growIfNeeded() {
	if t.count <= loadFactor*len(t.buckets) {
		return
	}
	old := t.buckets
	t.buckets = make([][]entry, len(old)*2)
	for _, chain := range old {
		for _, e := range chain {
			idx := t.bucketIndex(e.hash)
			i, _ := locate(t.buckets[idx], e.hash, e.key)
			t.buckets[idx] = slices.Insert(t.buckets[idx], i, e)
		}
	}
}

// WalkFunc is called once per visited binding; returning false stops
// the walk early.
type WalkFunc func(key []byte, v value.Value) bool

// WalkHead walks only this scope's own bindings, bucket by bucket,
// each bucket's chain in (hash, key) order.
func (t *Table) WalkHead(fn WalkFunc) {
	for _, chain := range t.buckets {
		for _, e := range chain {
			if !fn(e.key, e.val) {
				return
			}
		}
	}
}

// WalkAll walks this scope and every enclosing one, visiting a name
// once per scope that binds it -- an inner binding and the outer name
// it shadows are both visited.
func (t *Table) WalkAll(fn WalkFunc) {
	for s := t; s != nil; s = s.next {
		for _, chain := range s.buckets {
			for _, e := range chain {
				if !fn(e.key, e.val) {
					return
				}
			}
		}
	}
}

// WalkUnique walks this scope and every enclosing one like WalkAll,
// but suppresses shadowed names: each distinct key is visited exactly
// once, at its innermost binding.
func (t *Table) WalkUnique(fn WalkFunc) {
	if t.scratch == nil {
		t.scratch = make(map[string]struct{})
	} else {
		maps.Clear(t.scratch)
	}
	for s := t; s != nil; s = s.next {
		for _, chain := range s.buckets {
			for _, e := range chain {
				k := string(e.key)
				if _, dup := t.scratch[k]; dup {
					continue
				}
				t.scratch[k] = struct{}{}
				if !fn(e.key, e.val) {
					return
				}
			}
		}
	}
}
