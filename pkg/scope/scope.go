package scope

import "sort"

// Scope maps variable names to values. The last write to a name wins.
// A Scope is not safe for concurrent use; a view owns exactly one and
// renders on a single goroutine.
type Scope struct {
	vars map[string]Value
}

// New returns an empty scope.
func New() *Scope {
	return &Scope{vars: map[string]Value{}}
}

// FromMap builds a scope from plain Go data, converting every entry with Of.
func FromMap(m map[string]any) (*Scope, error) {
	s := New()
	for k, x := range m {
		v, err := Of(x)
		if err != nil {
			return nil, err
		}
		s.vars[k] = v
	}
	return s, nil
}

// Set binds name to v.
func (s *Scope) Set(name string, v Value) {
	if s.vars == nil {
		s.vars = map[string]Value{}
	}
	s.vars[name] = v
}

// Get returns the value bound to name, or Null when the name is unknown.
func (s *Scope) Get(name string) Value {
	if s == nil {
		return Null()
	}
	return s.vars[name]
}

// Lookup is Get with an explicit presence flag.
func (s *Scope) Lookup(name string) (Value, bool) {
	if s == nil {
		return Null(), false
	}
	v, ok := s.vars[name]
	return v, ok
}

// Delete removes name from the scope.
func (s *Scope) Delete(name string) {
	if s != nil {
		delete(s.vars, name)
	}
}

// Len returns the number of bound names.
func (s *Scope) Len() int {
	if s == nil {
		return 0
	}
	return len(s.vars)
}

// Names returns the bound names in sorted order.
func (s *Scope) Names() []string {
	if s == nil {
		return nil
	}
	names := make([]string, 0, len(s.vars))
	for k := range s.vars {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Clone returns an independent copy of s.
func (s *Scope) Clone() *Scope {
	cp := New()
	if s == nil {
		return cp
	}
	for k, v := range s.vars {
		cp.vars[k] = v
	}
	return cp
}

// Merge returns a new scope holding every binding of s overlaid with the
// bindings of extra. Neither s nor extra is modified. A nil extra yields a
// plain copy of s.
func (s *Scope) Merge(extra *Scope) *Scope {
	merged := s.Clone()
	if extra == nil {
		return merged
	}
	for k, v := range extra.vars {
		merged.vars[k] = v
	}
	return merged
}

// Data converts the scope into the map handed to templates.
func (s *Scope) Data() map[string]any {
	out := make(map[string]any, s.Len())
	if s == nil {
		return out
	}
	for k, v := range s.vars {
		out[k] = v.Interface()
	}
	return out
}
