package marshal

import "fmt"

// Resolve inlines every reference that is not part of a cycle. Slots that
// take part in a cycle stay in the returned table and are the only
// placeholders left in the tree; for an acyclic graph the table is empty.
// Each inlined LoadRef gets its own copy of the value.
func Resolve(root Value, refs []Value) (Value, []Value, error) {

	root, refs, err := Optimize(root, refs)
	if err != nil {
		return nil, nil, err
	}

	cyc, err := findCycles(root, refs)
	if err != nil {
		return nil, nil, err
	}

	x := &expander{refs: refs, cyclic: cyc}
	root, err = x.expand(root)
	if err != nil {
		return nil, nil, err
	}

	// slots that remain keep their index; optimizing again drops the rest
	table := make([]Value, len(refs))
	for i := range refs {
		if !cyc[i] {
			table[i] = None{}
			continue
		}
		if table[i], err = x.expand(refs[i]); err != nil {
			return nil, nil, err
		}
	}

	return Optimize(root, table)
}

const (
	white = iota
	grey
	black
)

// findCycles marks every slot that a LoadRef reaches while the slot's own
// value is still being walked. A StoreRef in that position is malformed.
func findCycles(root Value, refs []Value) (map[int]bool, error) {

	color := make([]uint8, len(refs))
	cyc := make(map[int]bool)

	var visit func(v Value) error
	enter := func(i int) error {
		color[i] = grey
		if err := visit(refs[i]); err != nil {
			return err
		}
		color[i] = black
		return nil
	}
	visit = func(v Value) error {
		switch x := v.(type) {
		case LoadRef:
			i := int(x)
			if err := checkIndex(i, refs); err != nil {
				return err
			}
			switch color[i] {
			case grey:
				cyc[i] = true
			case white:
				return enter(i)
			}
			return nil
		case StoreRef:
			i := int(x)
			if err := checkIndex(i, refs); err != nil {
				return err
			}
			switch color[i] {
			case grey:
				return fmt.Errorf("%w: slot %d", ErrRecursiveStore, i)
			case white:
				return enter(i)
			}
			return nil
		}
		return eachChild(v, visit)
	}

	if err := visit(root); err != nil {
		return nil, err
	}
	return cyc, nil
}

type expander struct {
	refs   []Value
	cyclic map[int]bool
}

func (x *expander) expand(v Value) (Value, error) {
	switch r := v.(type) {
	case LoadRef:
		if x.cyclic[int(r)] {
			return r, nil
		}
		return x.expand(x.refs[r])
	case StoreRef:
		if x.cyclic[int(r)] {
			return r, nil
		}
		return x.expand(x.refs[r])
	}
	return rewriteChildren(v, x.expand)
}
