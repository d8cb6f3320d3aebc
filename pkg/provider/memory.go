// ABOUTME: In-memory coding system provider and YAML fixture loader
// ABOUTME: Used for tests, the CLI and small locally bundled code systems

package provider

import (
	"cmp"
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/nainya/codetree/pkg/hierarchy"
)

// Memory serves a coding system held entirely in memory
type Memory struct {
	mu       sync.RWMutex
	names    map[hierarchy.Code]string
	types    map[hierarchy.Code]string
	parents  map[hierarchy.Code][]hierarchy.Code
	children map[hierarchy.Code][]hierarchy.Code
}

// NewMemory creates an empty provider
func NewMemory() *Memory {
	return &Memory{
		names:    make(map[hierarchy.Code]string),
		types:    make(map[hierarchy.Code]string),
		parents:  make(map[hierarchy.Code][]hierarchy.Code),
		children: make(map[hierarchy.Code][]hierarchy.Code),
	}
}

// AddCode registers a code and its term
func (m *Memory) AddCode(code hierarchy.Code, name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.names[code] = name
}

// SetType assigns a concept type such as "disorder" or "finding"
func (m *Memory) SetType(code hierarchy.Code, kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.types[code] = kind
}

// AddEdge records parent is-a child. Both codes must already be registered.
func (m *Memory) AddEdge(parent, child hierarchy.Code) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.names[parent]; !ok {
		return &hierarchy.UnknownCodeError{Code: parent}
	}
	if _, ok := m.names[child]; !ok {
		return &hierarchy.UnknownCodeError{Code: child}
	}
	if slices.Contains(m.children[parent], child) {
		return nil
	}

	m.parents[child] = append(m.parents[child], parent)
	m.children[parent] = append(m.children[parent], child)
	return nil
}

// Codes returns every registered code in ascending order
func (m *Memory) Codes() []hierarchy.Code {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]hierarchy.Code, 0, len(m.names))
	for c := range m.names {
		out = append(out, c)
	}
	slices.Sort(out)
	return out
}

// Edges returns every registered edge, ordered by parent then child
func (m *Memory) Edges() []hierarchy.Edge {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []hierarchy.Edge
	for parent, cs := range m.children {
		for _, c := range cs {
			out = append(out, hierarchy.Edge{Parent: parent, Child: c})
		}
	}
	slices.SortFunc(out, func(a, b hierarchy.Edge) int {
		return cmp.Or(cmp.Compare(a.Parent, b.Parent), cmp.Compare(a.Child, b.Child))
	})
	return out
}

// ParentsOf implements hierarchy.Provider
func (m *Memory) ParentsOf(_ context.Context, code hierarchy.Code) ([]hierarchy.Code, error) {
	return m.lookup(m.parents, code)
}

// ChildrenOf implements hierarchy.Provider
func (m *Memory) ChildrenOf(_ context.Context, code hierarchy.Code) ([]hierarchy.Code, error) {
	return m.lookup(m.children, code)
}

func (m *Memory) lookup(adjacency map[hierarchy.Code][]hierarchy.Code, code hierarchy.Code) ([]hierarchy.Code, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, ok := m.names[code]; !ok {
		return nil, &hierarchy.UnknownCodeError{Code: code}
	}
	return slices.Clone(adjacency[code]), nil
}

// NamesOf implements hierarchy.Provider
func (m *Memory) NamesOf(_ context.Context, codes []hierarchy.Code) (map[hierarchy.Code]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[hierarchy.Code]string, len(codes))
	for _, c := range codes {
		if name, ok := m.names[c]; ok {
			out[c] = name
		}
	}
	return out, nil
}

// TypesOf returns the concept type of each code that has one
func (m *Memory) TypesOf(_ context.Context, codes []hierarchy.Code) (map[hierarchy.Code]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[hierarchy.Code]string, len(codes))
	for _, c := range codes {
		if kind, ok := m.types[c]; ok {
			out[c] = kind
		}
	}
	return out, nil
}

// Search returns codes whose term contains term, ignoring case, plus term
// itself when it is a known code
func (m *Memory) Search(_ context.Context, term string) ([]hierarchy.Code, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	needle := strings.ToLower(strings.TrimSpace(term))
	if needle == "" {
		return nil, nil
	}

	var out []hierarchy.Code
	for c, name := range m.names {
		if string(c) == term || strings.Contains(strings.ToLower(name), needle) {
			out = append(out, c)
		}
	}
	slices.Sort(out)
	return out, nil
}

// Fixture is the YAML layout of a bundled coding system
type Fixture struct {
	Name  string         `yaml:"name"`
	Codes []FixtureEntry `yaml:"codes"`
}

// FixtureEntry is one code with its term and immediate parents
type FixtureEntry struct {
	Code    string   `yaml:"code"`
	Name    string   `yaml:"name"`
	Type    string   `yaml:"type,omitempty"`
	Parents []string `yaml:"parents,omitempty"`
}

// LoadYAML reads a fixture. Parents must be declared somewhere in the file.
func LoadYAML(r io.Reader) (*Memory, error) {
	var fx Fixture
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&fx); err != nil {
		return nil, fmt.Errorf("provider: decode fixture: %w", err)
	}

	m := NewMemory()
	for _, e := range fx.Codes {
		if e.Code == "" {
			return nil, fmt.Errorf("provider: fixture %q has an entry without a code", fx.Name)
		}
		m.AddCode(hierarchy.Code(e.Code), e.Name)
		if e.Type != "" {
			m.SetType(hierarchy.Code(e.Code), e.Type)
		}
	}
	for _, e := range fx.Codes {
		for _, p := range e.Parents {
			if err := m.AddEdge(hierarchy.Code(p), hierarchy.Code(e.Code)); err != nil {
				return nil, fmt.Errorf("provider: fixture %q: parent of %q: %w", fx.Name, e.Code, err)
			}
		}
	}

	return m, nil
}

// LoadYAMLFile opens and reads a fixture file
func LoadYAMLFile(path string) (*Memory, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("provider: open fixture: %w", err)
	}
	defer f.Close()

	return LoadYAML(f)
}
