package marshal

import "fmt"

// Optimize drops every reference table slot that no LoadRef targets and
// renumbers the rest densely in the order they are written. A StoreRef to a
// dropped slot is replaced by the value it defined. The inputs are not
// modified.
func Optimize(root Value, refs []Value) (Value, []Value, error) {

	u := &usage{refs: refs, loaded: make(map[int]bool), seen: make(map[int]bool)}
	if err := u.walk(root); err != nil {
		return nil, nil, err
	}

	c := &compactor{
		refs:   refs,
		loaded: u.loaded,
		remap:  make(map[int]int),
		active: make(map[int]bool),
	}
	out, err := c.rewrite(root)
	if err != nil {
		return nil, nil, err
	}
	return out, c.out, nil
}

func checkIndex(i int, refs []Value) error {
	if i < 0 || i >= len(refs) {
		return fmt.Errorf("%w: %d", ErrInvalidReference, i)
	}
	return nil
}

// usage collects the slots that are the target of a LoadRef anywhere in the
// graph reachable from the root.
type usage struct {
	refs   []Value
	loaded map[int]bool
	seen   map[int]bool
}

func (u *usage) walk(v Value) error {
	switch x := v.(type) {
	case LoadRef:
		if err := checkIndex(int(x), u.refs); err != nil {
			return err
		}
		u.loaded[int(x)] = true
		return u.enter(int(x))
	case StoreRef:
		if err := checkIndex(int(x), u.refs); err != nil {
			return err
		}
		return u.enter(int(x))
	}
	return eachChild(v, u.walk)
}

func (u *usage) enter(i int) error {
	if u.seen[i] {
		return nil
	}
	u.seen[i] = true
	return u.walk(u.refs[i])
}

type compactor struct {
	refs   []Value
	loaded map[int]bool
	remap  map[int]int
	out    []Value
	// inlined definitions currently being expanded
	active map[int]bool
}

// define moves old slot i to a new slot, optimizing its value.
func (c *compactor) define(i int) (int, error) {
	n := len(c.out)
	c.out = append(c.out, nil)
	c.remap[i] = n
	v, err := c.rewrite(c.refs[i])
	if err != nil {
		return 0, err
	}
	c.out[n] = v
	return n, nil
}

func (c *compactor) rewrite(v Value) (Value, error) {
	switch x := v.(type) {

	case StoreRef:
		i := int(x)
		if n, ok := c.remap[i]; ok {
			return LoadRef(n), nil
		}
		if !c.loaded[i] {
			if c.active[i] {
				return nil, fmt.Errorf("%w: slot %d", ErrRecursiveStore, i)
			}
			c.active[i] = true
			defer delete(c.active, i)
			return c.rewrite(c.refs[i])
		}
		n, err := c.define(i)
		if err != nil {
			return nil, err
		}
		return StoreRef(n), nil

	case LoadRef:
		i := int(x)
		if n, ok := c.remap[i]; ok {
			return LoadRef(n), nil
		}
		n, err := c.define(i)
		if err != nil {
			return nil, err
		}
		return LoadRef(n), nil
	}

	return rewriteChildren(v, c.rewrite)
}
