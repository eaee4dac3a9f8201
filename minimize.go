package marshal

import (
	"encoding/binary"
	"math"
)

// Minimize shares repeated immutable leaves: every string, bytes, int, float
// or complex that is written more than once gets one table slot, defined by
// a StoreRef at its first occurrence and loaded everywhere after. Existing
// references are kept and renumbered in write order. Strings are only shared
// with strings of the same kind so the written tags do not change.
func Minimize(root Value, refs []Value) (Value, []Value, error) {

	m := &minimizer{
		refs:   refs,
		counts: make(map[string]int),
		seen:   make(map[int]bool),
		remap:  make(map[int]int),
		leaves: make(map[string]int),
	}
	if err := m.count(root); err != nil {
		return nil, nil, err
	}
	out, err := m.rewrite(root)
	if err != nil {
		return nil, nil, err
	}
	return out, m.out, nil
}

type minimizer struct {
	refs   []Value
	counts map[string]int
	seen   map[int]bool

	remap  map[int]int
	leaves map[string]int
	out    []Value
}

// leafKey identifies values that may share a slot. Unlike hash keys it
// keeps the string kind and the exact float bits.
func leafKey(v Value) (string, bool) {
	switch x := v.(type) {
	case Int, Bytes:
		return hashKey(x.(Hashable)), true
	case Float:
		b := []byte{typeBINARY_FLOAT}
		return string(binary.LittleEndian.AppendUint64(b, math.Float64bits(float64(x)))), true
	case Complex:
		b := []byte{typeBINARY_COMPLEX}
		b = binary.LittleEndian.AppendUint64(b, math.Float64bits(real(x)))
		return string(binary.LittleEndian.AppendUint64(b, math.Float64bits(imag(x)))), true
	case String:
		return string(x.appendKey([]byte{byte(x.Kind)})), true
	}
	return "", false
}

func (m *minimizer) count(v Value) error {
	switch x := v.(type) {
	case LoadRef:
		return m.enter(int(x))
	case StoreRef:
		return m.enter(int(x))
	}
	if k, ok := leafKey(v); ok {
		m.counts[k]++
		return nil
	}
	return eachChild(v, m.count)
}

func (m *minimizer) enter(i int) error {
	if err := checkIndex(i, m.refs); err != nil {
		return err
	}
	if m.seen[i] {
		return nil
	}
	m.seen[i] = true
	return m.count(m.refs[i])
}

func (m *minimizer) define(i int) (int, error) {
	n := len(m.out)
	m.out = append(m.out, nil)
	m.remap[i] = n
	v := m.refs[i]
	if k, ok := leafKey(v); ok {
		if _, dup := m.leaves[k]; !dup {
			m.leaves[k] = n
		}
		m.out[n] = v
		return n, nil
	}
	v, err := rewriteChildren(v, m.rewrite)
	if err != nil {
		return 0, err
	}
	m.out[n] = v
	return n, nil
}

func (m *minimizer) rewrite(v Value) (Value, error) {

	switch x := v.(type) {

	case StoreRef:
		if n, ok := m.remap[int(x)]; ok {
			return LoadRef(n), nil
		}
		n, err := m.define(int(x))
		return StoreRef(n), err

	case LoadRef:
		if n, ok := m.remap[int(x)]; ok {
			return LoadRef(n), nil
		}
		n, err := m.define(int(x))
		return LoadRef(n), err
	}

	if k, ok := leafKey(v); ok {
		if m.counts[k] < 2 {
			return v, nil
		}
		if n, ok := m.leaves[k]; ok {
			return LoadRef(n), nil
		}
		n := len(m.out)
		m.out = append(m.out, v)
		m.leaves[k] = n
		return StoreRef(n), nil
	}

	return rewriteChildren(v, m.rewrite)
}
