package rbac

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

type tableFile struct {
	Pages   []tableEntry `yaml:"pages"`
	Actions []tableEntry `yaml:"actions"`
}

type tableEntry struct {
	Path    string   `yaml:"path"`
	Key     string   `yaml:"key"`
	Require string   `yaml:"require"`
	Areas   []string `yaml:"areas"`
}

// LoadTable reads a YAML override file and merges it over base.
//
//	pages:
//	  - path: /metas
//	    require: areas
//	    areas: [DIRETORIA, GERAL]
//	actions:
//	  - key: reports.delete
//	    require: director
func LoadTable(path string, base *Table) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("rbac: open policy file: %w", err)
	}
	defer f.Close()
	return DecodeTable(f, base)
}

// DecodeTable is LoadTable over an arbitrary reader.
func DecodeTable(r io.Reader, base *Table) (*Table, error) {
	var doc tableFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && err != io.EOF {
		return nil, fmt.Errorf("rbac: decode policy file: %w", err)
	}
	overrides := make([]Descriptor, 0, len(doc.Pages)+len(doc.Actions))
	for _, e := range doc.Pages {
		d, err := e.descriptor(KindPage, e.Path)
		if err != nil {
			return nil, err
		}
		overrides = append(overrides, d)
	}
	for _, e := range doc.Actions {
		d, err := e.descriptor(KindAction, e.Key)
		if err != nil {
			return nil, err
		}
		overrides = append(overrides, d)
	}
	if base == nil {
		return NewTable(overrides...)
	}
	return base.With(overrides...)
}

func (e tableEntry) descriptor(kind Kind, key string) (Descriptor, error) {
	level, err := ParseLevel(e.Require)
	if err != nil {
		return Descriptor{}, fmt.Errorf("%w: %s %q: %v", ErrInvalidDescriptor, kind, key, err)
	}
	req := Requirement{Level: level}
	if level == LevelAreas {
		areas := make([]Area, 0, len(e.Areas))
		for _, raw := range e.Areas {
			a, err := ParseArea(raw)
			if err != nil {
				return Descriptor{}, fmt.Errorf("%w: %s %q: %v", ErrInvalidDescriptor, kind, key, err)
			}
			areas = append(areas, a)
		}
		req.Areas = NewAreaSet(areas...)
	}
	d := Descriptor{Kind: kind, Key: key, Requirement: req}
	if err := validateDescriptor(d); err != nil {
		return Descriptor{}, err
	}
	return d, nil
}
