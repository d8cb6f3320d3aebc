// ABOUTME: LRU cache in front of any hierarchy provider
// ABOUTME: Adjacency lists and terms are cached per code; errors are not

package provider

import (
	"context"
	"errors"
	"fmt"
	"slices"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/nainya/codetree/pkg/hierarchy"
)

// ErrSearchUnsupported is returned when the wrapped provider has no term search
var ErrSearchUnsupported = errors.New("provider: term search not supported")

// Cached memoizes lookups against a slower provider
type Cached struct {
	next     hierarchy.Provider
	parents  *lru.Cache[hierarchy.Code, []hierarchy.Code]
	children *lru.Cache[hierarchy.Code, []hierarchy.Code]
	names    *lru.Cache[hierarchy.Code, string]
}

// NewCached wraps next with caches holding up to size entries each
func NewCached(next hierarchy.Provider, size int) (*Cached, error) {
	parents, err := lru.New[hierarchy.Code, []hierarchy.Code](size)
	if err != nil {
		return nil, fmt.Errorf("provider: parents cache: %w", err)
	}
	children, err := lru.New[hierarchy.Code, []hierarchy.Code](size)
	if err != nil {
		return nil, fmt.Errorf("provider: children cache: %w", err)
	}
	names, err := lru.New[hierarchy.Code, string](size)
	if err != nil {
		return nil, fmt.Errorf("provider: names cache: %w", err)
	}

	return &Cached{next: next, parents: parents, children: children, names: names}, nil
}

// ParentsOf implements hierarchy.Provider
func (c *Cached) ParentsOf(ctx context.Context, code hierarchy.Code) ([]hierarchy.Code, error) {
	return cachedLookup(ctx, c.parents, code, c.next.ParentsOf)
}

// ChildrenOf implements hierarchy.Provider
func (c *Cached) ChildrenOf(ctx context.Context, code hierarchy.Code) ([]hierarchy.Code, error) {
	return cachedLookup(ctx, c.children, code, c.next.ChildrenOf)
}

func cachedLookup(
	ctx context.Context,
	cache *lru.Cache[hierarchy.Code, []hierarchy.Code],
	code hierarchy.Code,
	fetch func(context.Context, hierarchy.Code) ([]hierarchy.Code, error),
) ([]hierarchy.Code, error) {
	if v, ok := cache.Get(code); ok {
		return slices.Clone(v), nil
	}

	v, err := fetch(ctx, code)
	if err != nil {
		return nil, err
	}
	cache.Add(code, slices.Clone(v))
	return v, nil
}

// NamesOf implements hierarchy.Provider. Only codes missing from the cache
// are sent to the wrapped provider.
func (c *Cached) NamesOf(ctx context.Context, codes []hierarchy.Code) (map[hierarchy.Code]string, error) {
	out := make(map[hierarchy.Code]string, len(codes))
	var misses []hierarchy.Code
	for _, code := range codes {
		if name, ok := c.names.Get(code); ok {
			out[code] = name
		} else {
			misses = append(misses, code)
		}
	}
	if len(misses) == 0 {
		return out, nil
	}

	fetched, err := c.next.NamesOf(ctx, misses)
	if err != nil {
		return nil, err
	}
	for code, name := range fetched {
		c.names.Add(code, name)
		out[code] = name
	}
	return out, nil
}

// Purge drops every cached entry
func (c *Cached) Purge() {
	c.parents.Purge()
	c.children.Purge()
	c.names.Purge()
}

// Len reports the number of cached adjacency lists and terms
func (c *Cached) Len() int {
	return c.parents.Len() + c.children.Len() + c.names.Len()
}

// TypesOf forwards to the wrapped provider when it reports concept types
func (c *Cached) TypesOf(ctx context.Context, codes []hierarchy.Code) (map[hierarchy.Code]string, error) {
	typer, ok := c.next.(interface {
		TypesOf(context.Context, []hierarchy.Code) (map[hierarchy.Code]string, error)
	})
	if !ok {
		return map[hierarchy.Code]string{}, nil
	}
	return typer.TypesOf(ctx, codes)
}

// Search forwards to the wrapped provider when it supports term search
func (c *Cached) Search(ctx context.Context, term string) ([]hierarchy.Code, error) {
	searcher, ok := c.next.(interface {
		Search(context.Context, string) ([]hierarchy.Code, error)
	})
	if !ok {
		return nil, ErrSearchUnsupported
	}
	return searcher.Search(ctx, term)
}
