package rbac

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Kind distinguishes page paths from API action keys.
type Kind string

const (
	KindPage   Kind = "page"
	KindAction Kind = "action"
)

// Descriptor declares the capability required to reach a page or action.
type Descriptor struct {
	Kind        Kind
	Key         string
	Requirement Requirement
}

// Page declares a page descriptor.
func Page(path string, req Requirement) Descriptor {
	return Descriptor{Kind: KindPage, Key: path, Requirement: req}
}

// Action declares an API action descriptor.
func Action(key string, req Requirement) Descriptor {
	return Descriptor{Kind: KindAction, Key: key, Requirement: req}
}

// Table is the static resource table. It is read-only once built.
type Table struct {
	pages   map[string]Descriptor
	actions map[string]Descriptor
}

// ErrInvalidDescriptor is returned when a descriptor cannot be registered.
var ErrInvalidDescriptor = errors.New("rbac: invalid descriptor")

// NewTable validates and indexes the given descriptors.
func NewTable(descriptors ...Descriptor) (*Table, error) {
	t := &Table{
		pages:   make(map[string]Descriptor),
		actions: make(map[string]Descriptor),
	}
	for _, d := range descriptors {
		if err := validateDescriptor(d); err != nil {
			return nil, err
		}
		target := t.actions
		key := d.Key
		if d.Kind == KindPage {
			target = t.pages
			key = cleanPath(d.Key)
			d.Key = key
		}
		if _, dup := target[key]; dup {
			return nil, fmt.Errorf("%w: duplicate %s %q", ErrInvalidDescriptor, d.Kind, key)
		}
		target[key] = d
	}
	return t, nil
}

// MustTable is NewTable that panics on invalid input. Used for compiled-in tables.
func MustTable(descriptors ...Descriptor) *Table {
	t, err := NewTable(descriptors...)
	if err != nil {
		panic(err)
	}
	return t
}

func validateDescriptor(d Descriptor) error {
	switch d.Kind {
	case KindPage:
		if !strings.HasPrefix(d.Key, "/") {
			return fmt.Errorf("%w: page %q must start with /", ErrInvalidDescriptor, d.Key)
		}
	case KindAction:
		if strings.TrimSpace(d.Key) == "" {
			return fmt.Errorf("%w: empty action key", ErrInvalidDescriptor)
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidDescriptor, d.Kind)
	}
	switch d.Requirement.Level {
	case LevelAuthenticated, LevelDirector:
	case LevelAreas:
		if len(d.Requirement.Areas) == 0 {
			return fmt.Errorf("%w: %s %q requires at least one area", ErrInvalidDescriptor, d.Kind, d.Key)
		}
	default:
		return fmt.Errorf("%w: %s %q has unknown requirement %q", ErrInvalidDescriptor, d.Kind, d.Key, d.Requirement.Level)
	}
	return nil
}

// Page returns the descriptor for pathname, matching the longest registered
// prefix on path segment boundaries.
func (t *Table) Page(pathname string) (Descriptor, bool) {
	if t == nil {
		return Descriptor{}, false
	}
	p := cleanPath(pathname)
	for {
		if d, ok := t.pages[p]; ok {
			return d, true
		}
		if p == "/" {
			return Descriptor{}, false
		}
		idx := strings.LastIndex(p, "/")
		if idx <= 0 {
			p = "/"
		} else {
			p = p[:idx]
		}
	}
}

// Action returns the descriptor registered for an action key.
func (t *Table) Action(key string) (Descriptor, bool) {
	if t == nil {
		return Descriptor{}, false
	}
	d, ok := t.actions[key]
	return d, ok
}

// Descriptors returns every descriptor, pages first, each group sorted by key.
func (t *Table) Descriptors() []Descriptor {
	if t == nil {
		return nil
	}
	pages := sortedDescriptors(t.pages)
	actions := sortedDescriptors(t.actions)
	return append(pages, actions...)
}

// With returns a copy of t where the given descriptors replace or extend existing ones.
func (t *Table) With(overrides ...Descriptor) (*Table, error) {
	merged := make(map[string]Descriptor)
	for _, d := range t.Descriptors() {
		merged[string(d.Kind)+"|"+d.Key] = d
	}
	for _, d := range overrides {
		if d.Kind == KindPage {
			d.Key = cleanPath(d.Key)
		}
		merged[string(d.Kind)+"|"+d.Key] = d
	}
	all := make([]Descriptor, 0, len(merged))
	for _, d := range merged {
		all = append(all, d)
	}
	return NewTable(all...)
}

func sortedDescriptors(m map[string]Descriptor) []Descriptor {
	out := make([]Descriptor, 0, len(m))
	for _, d := range m {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

func cleanPath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	for strings.Contains(p, "//") {
		p = strings.ReplaceAll(p, "//", "/")
	}
	if len(p) > 1 {
		p = strings.TrimSuffix(p, "/")
	}
	return p
}
