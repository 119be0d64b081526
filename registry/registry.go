package registry

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/hashicorp/go-multierror"
)

var (
	ErrDuplicateType = errors.New("duplicate type id")
	ErrMissingType   = errors.New("reference to unknown type id")
	ErrInvalidType   = errors.New("invalid type definition")
)

// Registry owns the types of one metadata epoch. It is built once by New and
// never mutated afterwards, so it can be shared between goroutines.
type Registry struct {
	dense  []*Type
	sparse map[TypeID]*Type
	count  int
}

// New builds a registry from a complete type list. Every reference must
// resolve inside the list; all problems found are reported together.
func New(types []Type) (*Registry, error) {
	types = cloneTypes(types)
	all := make(map[TypeID]*Type, len(types))
	var result *multierror.Error
	for i := range types {
		t := &types[i]
		if _, ok := all[t.ID]; ok {
			result = multierror.Append(result, fmt.Errorf("%w: %d", ErrDuplicateType, t.ID))
			continue
		}
		all[t.ID] = t
	}

	for i := range types {
		t := &types[i]
		for _, ref := range t.refs() {
			if _, ok := all[ref]; !ok {
				result = multierror.Append(result, fmt.Errorf("%w: type %d refers to %d", ErrMissingType, t.ID, ref))
			}
		}
		if err := validate(t); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if err := result.ErrorOrNil(); err != nil {
		return nil, err
	}

	r := &Registry{count: len(all)}
	dense := true
	for id := range all {
		if int(id) >= len(all) {
			dense = false
			break
		}
	}
	if dense {
		r.dense = make([]*Type, len(all))
		for id, t := range all {
			r.dense[id] = t
		}
	} else {
		r.sparse = all
	}
	return r, nil
}

// cloneTypes copies the list and the slices it holds so that the caller's
// later writes do not reach the registry.
func cloneTypes(types []Type) []Type {
	out := make([]Type, len(types))
	for i, t := range types {
		t.Path = slices.Clone(t.Path)
		t.Params = slices.Clone(t.Params)
		t.Def.Fields = slices.Clone(t.Def.Fields)
		t.Def.Elems = slices.Clone(t.Def.Elems)
		t.Def.Variants = slices.Clone(t.Def.Variants)
		for j := range t.Def.Variants {
			t.Def.Variants[j].Fields = slices.Clone(t.Def.Variants[j].Fields)
		}
		out[i] = t
	}
	return out
}

func validate(t *Type) error {
	d := &t.Def
	switch d.Kind {
	case KindComposite:
		return checkFieldNames(t.ID, d.Fields)
	case KindVariant:
		seen := make(map[uint8]struct{}, len(d.Variants))
		for _, v := range d.Variants {
			if _, ok := seen[v.Index]; ok {
				return fmt.Errorf("%w: type %d has duplicate discriminant %d", ErrInvalidType, t.ID, v.Index)
			}
			seen[v.Index] = struct{}{}
			if err := checkFieldNames(t.ID, v.Fields); err != nil {
				return err
			}
		}
	case KindPrimitive:
		if !d.Primitive.Valid() {
			return fmt.Errorf("%w: type %d has unknown primitive %d", ErrInvalidType, t.ID, d.Primitive)
		}
	case KindSequence, KindArray, KindTuple, KindCompact, KindBitSequence:
	default:
		return fmt.Errorf("%w: type %d has unknown kind %d", ErrInvalidType, t.ID, d.Kind)
	}
	return nil
}

func checkFieldNames(id TypeID, fields []Field) error {
	named := Named(fields)
	for _, f := range fields {
		if (f.Name != "") != named {
			return fmt.Errorf("%w: type %d mixes named and unnamed fields", ErrInvalidType, id)
		}
	}
	return nil
}

// Resolve returns the type with the given id.
func (r *Registry) Resolve(id TypeID) (*Type, bool) {
	if r.dense != nil {
		if int(id) < len(r.dense) {
			return r.dense[id], true
		}
		return nil, false
	}
	t, ok := r.sparse[id]
	return t, ok
}

// Len returns the number of types.
func (r *Registry) Len() int {
	return r.count
}

// Types calls fn for every type in id order when ids are dense, in
// unspecified order otherwise.
func (r *Registry) Types(fn func(*Type) bool) {
	if r.dense != nil {
		for _, t := range r.dense {
			if !fn(t) {
				return
			}
		}
		return
	}
	for _, t := range r.sparse {
		if !fn(t) {
			return
		}
	}
}

// FindByPath returns the first type whose path equals path, e.g.
// FindByPath("frame_system", "EventRecord").
func (r *Registry) FindByPath(path ...string) (*Type, bool) {
	want := strings.Join(path, "::")
	var found *Type
	r.Types(func(t *Type) bool {
		if len(t.Path) == len(path) && strings.Join(t.Path, "::") == want {
			found = t
			return false
		}
		return true
	})
	return found, found != nil
}
