package marshal

// eachChild calls f on the direct children of v in the order the encoder
// writes them. Dict keys and set members are passed as plain values.
func eachChild(v Value, f func(Value) error) error {

	switch x := v.(type) {

	case Tuple:
		return eachValue(x, f)
	case List:
		return eachValue(x, f)

	case *Dict:
		for i, k := range x.Keys() {
			if err := f(FromHashable(k)); err != nil {
				return err
			}
			if err := f(x.values[i]); err != nil {
				return err
			}
		}

	case *Set:
		return eachMember(x.elems, f)
	case *FrozenSet:
		return eachMember(x.elems, f)

	case *Code310:
		return eachField(x.objects(), f)
	case *Code311:
		return eachField(x.objects(), f)
	}

	return nil
}

func eachValue(vs []Value, f func(Value) error) error {
	for _, v := range vs {
		if err := f(v); err != nil {
			return err
		}
	}
	return nil
}

func eachMember(hs []Hashable, f func(Value) error) error {
	for _, h := range hs {
		if err := f(FromHashable(h)); err != nil {
			return err
		}
	}
	return nil
}

func eachField(fs []*Value, f func(Value) error) error {
	for _, p := range fs {
		if err := f(*p); err != nil {
			return err
		}
	}
	return nil
}

// rewriteChildren returns a copy of v whose direct children are replaced by
// f's results, visiting them in encoder order. Leaves are returned as is.
func rewriteChildren(v Value, f func(Value) (Value, error)) (Value, error) {

	switch x := v.(type) {

	case Tuple:
		out, err := rewriteValues(x, f)
		return Tuple(out), err

	case List:
		out, err := rewriteValues(x, f)
		return List(out), err

	case *Dict:
		d := NewDict()
		for i, k := range x.Keys() {
			nk, err := f(FromHashable(k))
			if err != nil {
				return nil, err
			}
			hk, err := ToHashable(nk)
			if err != nil {
				return nil, err
			}
			nv, err := f(x.values[i])
			if err != nil {
				return nil, err
			}
			d.Set(hk, nv)
		}
		return d, nil

	case *Set:
		hs, err := rewriteMembers(x.elems, f)
		if err != nil {
			return nil, err
		}
		return &Set{hs}, nil

	case *FrozenSet:
		hs, err := rewriteMembers(x.elems, f)
		if err != nil {
			return nil, err
		}
		return &FrozenSet{hs}, nil

	case *Code310:
		c := *x
		return &c, rewriteFields(c.objects(), f)

	case *Code311:
		c := *x
		return &c, rewriteFields(c.objects(), f)
	}

	return v, nil
}

func rewriteValues(vs []Value, f func(Value) (Value, error)) ([]Value, error) {
	out := make([]Value, len(vs))
	for i, v := range vs {
		nv, err := f(v)
		if err != nil {
			return nil, err
		}
		out[i] = nv
	}
	return out, nil
}

func rewriteMembers(hs []Hashable, f func(Value) (Value, error)) (hashSet, error) {
	var out hashSet
	for _, h := range hs {
		nv, err := f(FromHashable(h))
		if err != nil {
			return hashSet{}, err
		}
		nh, err := ToHashable(nv)
		if err != nil {
			return hashSet{}, err
		}
		out.Add(nh)
	}
	return out, nil
}

func rewriteFields(fs []*Value, f func(Value) (Value, error)) error {
	for _, p := range fs {
		nv, err := f(*p)
		if err != nil {
			return err
		}
		*p = nv
	}
	return nil
}
