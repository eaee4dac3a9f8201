package marshal

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"

	"github.com/dchest/siphash"
)

// Hashable is the subset of values usable as dict keys and set members:
// scalars, tuples of hashables, frozensets, code objects and reference
// placeholders.
type Hashable interface {
	appendKey(b []byte) []byte
}

// HashableTuple is a tuple whose members are all hashable.
type HashableTuple []Hashable

// ToHashable projects v into the hashable subset. Lists, dicts and sets fail
// with ErrUnhashable.
func ToHashable(v Value) (Hashable, error) {
	switch x := v.(type) {
	case nil:
		return nil, ErrUnexpectedNull
	case None, StopIteration, Ellipsis, Bool, Int, Float, Complex, Bytes, String,
		LoadRef, StoreRef, *FrozenSet:
		return x.(Hashable), nil
	case *Code310:
		if _, err := x.key(); err != nil {
			return nil, err
		}
		return x, nil
	case *Code311:
		if _, err := x.key(); err != nil {
			return nil, err
		}
		return x, nil
	case Tuple:
		t := make(HashableTuple, len(x))
		for i, e := range x {
			h, err := ToHashable(e)
			if err != nil {
				return nil, err
			}
			t[i] = h
		}
		return t, nil
	}
	return nil, fmt.Errorf("%w: %T", ErrUnhashable, v)
}

// FromHashable returns h as a plain Value.
func FromHashable(h Hashable) Value {
	if t, ok := h.(HashableTuple); ok {
		out := make(Tuple, len(t))
		for i, e := range t {
			out[i] = FromHashable(e)
		}
		return out
	}
	return h.(Value)
}

// hash keys
//
// Every hashable has a canonical byte encoding. Two hashables are the same
// key iff their encodings match: string kinds are ignored, -0.0 equals 0.0
// and all NaNs are one key.

func appendLen(b []byte, n int) []byte { return binary.AppendUvarint(b, uint64(n)) }

func appendFloatKey(b []byte, f float64) []byte {
	switch {
	case f == 0:
		f = 0
	case math.IsNaN(f):
		f = math.NaN()
	}
	return binary.LittleEndian.AppendUint64(b, math.Float64bits(f))
}

func (None) appendKey(b []byte) []byte          { return append(b, typeNONE) }
func (StopIteration) appendKey(b []byte) []byte { return append(b, typeSTOPITER) }
func (Ellipsis) appendKey(b []byte) []byte      { return append(b, typeELLIPSIS) }

func (x Bool) appendKey(b []byte) []byte {
	if x {
		return append(b, typeTRUE)
	}
	return append(b, typeFALSE)
}

func (x Int) appendKey(b []byte) []byte {
	n := x.value()
	b = append(b, typeLONG, byte(n.Sign()+1))
	mag := n.Bytes()
	b = appendLen(b, len(mag))
	return append(b, mag...)
}

func (x Float) appendKey(b []byte) []byte {
	return appendFloatKey(append(b, typeBINARY_FLOAT), float64(x))
}

func (x Complex) appendKey(b []byte) []byte {
	b = appendFloatKey(append(b, typeBINARY_COMPLEX), real(x))
	return appendFloatKey(b, imag(x))
}

func (x Bytes) appendKey(b []byte) []byte {
	b = appendLen(append(b, typeSTRING), len(x))
	return append(b, x...)
}

func (x String) appendKey(b []byte) []byte {
	b = appendLen(append(b, typeUNICODE), len(x.Value))
	return append(b, x.Value...)
}

func (x LoadRef) appendKey(b []byte) []byte {
	return appendLen(append(b, typeREF), int(x))
}

func (x StoreRef) appendKey(b []byte) []byte {
	return appendLen(append(b, typeREF|refFlag), int(x))
}

func (x HashableTuple) appendKey(b []byte) []byte {
	b = appendLen(append(b, typeTUPLE), len(x))
	for _, e := range x {
		b = e.appendKey(b)
	}
	return b
}

func (x *FrozenSet) appendKey(b []byte) []byte {
	keys := append([]string(nil), x.keys...)
	sort.Strings(keys)
	b = appendLen(append(b, typeFROZENSET), len(keys))
	for _, k := range keys {
		b = appendLen(b, len(k))
		b = append(b, k...)
	}
	return b
}

func (x *Code310) appendKey(b []byte) []byte {
	k, _ := x.key()
	return append(b, k...)
}

func (x *Code311) appendKey(b []byte) []byte {
	k, _ := x.key()
	return append(b, k...)
}

func hashKey(h Hashable) string { return string(h.appendKey(nil)) }

// fixed SipHash key; the index is never exposed so it need not be secret
const (
	sipK0 = 0x736f6d6570736575
	sipK1 = 0x646f72616e646f6d
)

func sum(key string) uint64 { return siphash.Hash(sipK0, sipK1, []byte(key)) }

// hashSet is an insertion ordered set of hashables.
type hashSet struct {
	elems []Hashable
	keys  []string
	index map[uint64][]int
}

func (s *hashSet) find(key string, h uint64) int {
	for _, i := range s.index[h] {
		if s.keys[i] == key {
			return i
		}
	}
	return -1
}

// insert adds e unless an equal element is present and returns its position.
func (s *hashSet) insert(e Hashable) (int, bool) {
	key := hashKey(e)
	h := sum(key)
	if i := s.find(key, h); i >= 0 {
		return i, false
	}
	if s.index == nil {
		s.index = make(map[uint64][]int)
	}
	i := len(s.elems)
	s.elems = append(s.elems, e)
	s.keys = append(s.keys, key)
	s.index[h] = append(s.index[h], i)
	return i, true
}

func (s *hashSet) lookup(e Hashable) int {
	key := hashKey(e)
	return s.find(key, sum(key))
}

func (s *hashSet) sameMembers(o *hashSet) bool {
	if len(s.elems) != len(o.elems) {
		return false
	}
	for _, k := range s.keys {
		if o.find(k, sum(k)) < 0 {
			return false
		}
	}
	return true
}

// Len returns the number of members.
func (s *hashSet) Len() int { return len(s.elems) }

// Elems returns the members in insertion order. The slice must not be modified.
func (s *hashSet) Elems() []Hashable { return s.elems }

// Contains reports whether an equal member is present.
func (s *hashSet) Contains(e Hashable) bool { return s.lookup(e) >= 0 }

// Add inserts e, keeping the position of an equal member already present.
func (s *hashSet) Add(e Hashable) { s.insert(e) }

// Set is a mutable set.
type Set struct{ hashSet }

// FrozenSet is an immutable set.
type FrozenSet struct{ hashSet }

// NewSet returns a set holding elems.
func NewSet(elems ...Hashable) *Set {
	s := &Set{}
	for _, e := range elems {
		s.Add(e)
	}
	return s
}

// NewFrozenSet returns a frozenset holding elems.
func NewFrozenSet(elems ...Hashable) *FrozenSet {
	s := &FrozenSet{}
	for _, e := range elems {
		s.Add(e)
	}
	return s
}

// Equal reports whether both sets have the same members.
func (s *Set) Equal(o *Set) bool {
	if s == nil || o == nil {
		return s == o
	}
	return s.sameMembers(&o.hashSet)
}

// Equal reports whether both sets have the same members.
func (s *FrozenSet) Equal(o *FrozenSet) bool {
	if s == nil || o == nil {
		return s == o
	}
	return s.sameMembers(&o.hashSet)
}

// Dict is an insertion ordered mapping.
type Dict struct {
	keys   hashSet
	values []Value
}

// NewDict returns an empty dict.
func NewDict() *Dict { return &Dict{} }

// Set stores v under k. An existing key keeps its position.
func (d *Dict) Set(k Hashable, v Value) {
	i, added := d.keys.insert(k)
	if added {
		d.values = append(d.values, v)
		return
	}
	d.values[i] = v
}

// Get returns the value stored under k.
func (d *Dict) Get(k Hashable) (Value, bool) {
	i := d.keys.lookup(k)
	if i < 0 {
		return nil, false
	}
	return d.values[i], true
}

// Len returns the number of entries.
func (d *Dict) Len() int { return len(d.values) }

// Keys returns the keys in insertion order. The slice must not be modified.
func (d *Dict) Keys() []Hashable { return d.keys.elems }

// Values returns the values in insertion order. The slice must not be modified.
func (d *Dict) Values() []Value { return d.values }

// Equal reports whether both dicts hold equal values under the same keys.
func (d *Dict) Equal(o *Dict) bool {
	if d == nil || o == nil {
		return d == o
	}
	if d.Len() != o.Len() {
		return false
	}
	for i, k := range d.keys.keys {
		j := o.keys.find(k, sum(k))
		if j < 0 || !Equal(d.values[i], o.values[j]) {
			return false
		}
	}
	return true
}
