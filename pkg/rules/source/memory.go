package source

import "context"

// Source loads a ruleset from somewhere.
type Source interface {
	// Load reads, validates, and converts the ruleset.
	Load(ctx context.Context) (*Ruleset, error)

	// String describes the source for logs.
	String() string
}

// MemorySource serves a fixed document. Used in tests and by the validate
// command.
type MemorySource struct {
	doc       Document
	defaults  Defaults
	validator *Validator
}

// NewMemorySource creates a source around the given document. validator may
// be nil to skip schema validation.
func NewMemorySource(doc Document, defaults Defaults, validator *Validator) *MemorySource {
	return &MemorySource{
		doc:       doc,
		defaults:  defaults,
		validator: validator,
	}
}

// Load converts the held document.
func (m *MemorySource) Load(context.Context) (*Ruleset, error) {
	if m.validator != nil {
		if err := m.validator.Validate("memory", &m.doc); err != nil {
			return nil, err
		}
	} else if err := m.doc.Validate(); err != nil {
		return nil, err
	}

	name := m.doc.Name
	if name == "" {
		name = "memory"
	}

	return &Ruleset{
		Name:   name,
		Specs:  m.doc.Rules,
		Rules:  m.doc.ToRules(m.defaults),
		Origin: "memory",
	}, nil
}

// String describes the source.
func (m *MemorySource) String() string {
	return "memory"
}
