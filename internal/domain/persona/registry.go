package persona

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Registry is a read-only set of personas keyed by name. Safe for concurrent reads.
type Registry struct {
	byName map[string]Persona
}

// NewRegistry validates and indexes ps. Later entries replace earlier ones with the same name.
func NewRegistry(ps ...Persona) (*Registry, error) {
	byName := make(map[string]Persona, len(ps))
	for _, p := range ps {
		if err := p.Validate(); err != nil {
			return nil, err
		}
		byName[p.Name] = p
	}
	return &Registry{byName: byName}, nil
}

// Default returns a registry holding only the built-ins.
func Default() *Registry {
	r, err := NewRegistry(Builtins()...)
	if err != nil {
		panic(err) // built-ins are constants; failing here is a programming error
	}
	return r
}

// Get returns the persona registered under name.
func (r *Registry) Get(name string) (Persona, error) {
	p, ok := r.byName[name]
	if !ok {
		return Persona{}, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return p, nil
}

// List returns all personas sorted by name.
func (r *Registry) List() []Persona {
	out := make([]Persona, 0, len(r.byName))
	for _, p := range r.byName {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ─── YAML overlay ────────────────────────────────────────────────────────────

// personaFile is the on-disk format of PERSONAS_FILE.
type personaFile struct {
	Personas []personaOverride `yaml:"personas"`
}

// personaOverride uses pointers so absent keys keep the built-in value.
type personaOverride struct {
	Name         string   `yaml:"name"`
	Description  *string  `yaml:"description"`
	SystemPrompt *string  `yaml:"system_prompt"`
	UserPreamble *string  `yaml:"user_preamble"`
	Temperature  *float32 `yaml:"temperature"`
	MaxTokens    *int     `yaml:"max_tokens"`
	ErrorPrefix  *string  `yaml:"error_prefix"`
}

func (o personaOverride) applyTo(base Persona) Persona {
	base.Name = o.Name
	if o.Description != nil {
		base.Description = *o.Description
	}
	if o.SystemPrompt != nil {
		base.SystemPrompt = *o.SystemPrompt
	}
	if o.UserPreamble != nil {
		base.UserPreamble = *o.UserPreamble
	}
	if o.Temperature != nil {
		base.Temperature = *o.Temperature
	}
	if o.MaxTokens != nil {
		base.MaxTokens = *o.MaxTokens
	}
	if o.ErrorPrefix != nil {
		base.ErrorPrefix = *o.ErrorPrefix
	}
	return base
}

// Parse overlays the YAML document data onto the built-ins.
// Entries naming a built-in override only the keys they set; new names must be complete.
func Parse(data []byte) (*Registry, error) {
	var f personaFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("persona: parse: %w", err)
	}

	base := Default()
	merged := make([]Persona, 0, len(base.byName)+len(f.Personas))
	merged = append(merged, base.List()...)
	for _, o := range f.Personas {
		existing, _ := base.Get(o.Name) // zero value for new personas
		merged = append(merged, o.applyTo(existing))
	}
	return NewRegistry(merged...)
}

// LoadFile reads a persona overlay from path. An empty path yields the built-ins.
func LoadFile(path string) (*Registry, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("persona: read %s: %w", path, err)
	}
	return Parse(data)
}
