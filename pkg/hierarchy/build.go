// ABOUTME: Two-phase hierarchy construction from a coding system provider
// ABOUTME: Frontier-driven closure, then induced parent-edge completion

package hierarchy

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"
)

// BuildOption configures Build
type BuildOption func(*buildConfig)

type buildConfig struct {
	concurrency int
	observer    BuildObserver
}

// BuildObserver is told about every finished build. nodes is zero when err
// is set.
type BuildObserver func(seeds, nodes int, elapsed time.Duration, err error)

// WithConcurrency bounds the number of provider calls in flight while a
// frontier is expanded. Values below 1 are treated as 1.
func WithConcurrency(n int) BuildOption {
	return func(cfg *buildConfig) {
		cfg.concurrency = max(n, 1)
	}
}

// WithObserver reports each build to fn once it finishes
func WithObserver(fn BuildObserver) BuildOption {
	return func(cfg *buildConfig) {
		cfg.observer = fn
	}
}

type direction int

const (
	up direction = iota
	down
)

func (d direction) String() string {
	if d == up {
		return "parents"
	}
	return "children"
}

// builder caches provider answers for the duration of a single build
type builder struct {
	provider    Provider
	concurrency int
	nodes       CodeSet
	parentsOf   map[Code][]Code
	childrenOf  map[Code][]Code
}

// Build constructs the hierarchy needed to answer ancestor and descendant
// queries for every seed code.
//
// Parent edges are followed upward and child edges downward from the seeds
// until no new codes appear. Parents are then fetched for every code found on
// the way down, so the adjacency is the full induced subgraph over the node
// set. Each code is asked for its parents and its children at most once.
func Build(ctx context.Context, p Provider, seeds []Code, opts ...BuildOption) (*Hierarchy, error) {
	cfg := buildConfig{concurrency: 1}
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.observer == nil {
		return build(ctx, p, seeds, cfg)
	}

	start := time.Now()
	h, err := build(ctx, p, seeds, cfg)
	nodes := 0
	if err == nil {
		nodes = h.Len()
	}
	cfg.observer(len(seeds), nodes, time.Since(start), err)
	return h, err
}

func build(ctx context.Context, p Provider, seeds []Code, cfg buildConfig) (*Hierarchy, error) {
	b := &builder{
		provider:    p,
		concurrency: cfg.concurrency,
		nodes:       NewCodeSet(seeds...),
		parentsOf:   make(map[Code][]Code),
		childrenOf:  make(map[Code][]Code),
	}

	seedSet := NewCodeSet(seeds...)
	if err := b.expand(ctx, seedSet, up, seedSet); err != nil {
		return nil, err
	}
	if err := b.expand(ctx, seedSet, down, seedSet); err != nil {
		return nil, err
	}

	// Codes discovered below the seeds may have parents elsewhere in the set
	var missing []Code
	for c := range b.nodes {
		if _, ok := b.parentsOf[c]; !ok {
			missing = append(missing, c)
		}
	}
	if err := b.fetchInto(ctx, missing, up, seedSet); err != nil {
		return nil, err
	}

	return b.assemble()
}

// expand runs a breadth-first closure in one direction
func (b *builder) expand(ctx context.Context, frontier CodeSet, dir direction, seeds CodeSet) error {
	cache := b.cache(dir)

	for len(frontier) > 0 {
		var pending []Code
		for c := range frontier {
			if _, ok := cache[c]; !ok {
				pending = append(pending, c)
			}
		}

		if err := b.fetchInto(ctx, pending, dir, seeds); err != nil {
			return err
		}

		// A code reached from the other direction may still need expanding here
		next := make(CodeSet)
		for _, c := range pending {
			for _, n := range cache[c] {
				b.nodes.Add(n)
				if _, ok := cache[n]; !ok {
					next.Add(n)
				}
			}
		}
		frontier = next
	}

	return nil
}

func (b *builder) cache(dir direction) map[Code][]Code {
	if dir == up {
		return b.parentsOf
	}
	return b.childrenOf
}

// fetchInto queries the provider for every code, at most b.concurrency at a
// time. When several calls fail, the error for the smallest code wins.
func (b *builder) fetchInto(ctx context.Context, codes []Code, dir direction, seeds CodeSet) error {
	if len(codes) == 0 {
		return nil
	}
	slices.Sort(codes)

	results := make([][]Code, len(codes))
	errs := make([]error, len(codes))

	g := new(errgroup.Group)
	g.SetLimit(b.concurrency)

	for i, code := range codes {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				errs[i] = err
				return nil
			}
			if dir == up {
				results[i], errs[i] = b.provider.ParentsOf(ctx, code)
			} else {
				results[i], errs[i] = b.provider.ChildrenOf(ctx, code)
			}
			return nil
		})
	}
	_ = g.Wait()

	cache := b.cache(dir)
	for i, code := range codes {
		if err := errs[i]; err != nil {
			if seeds.Has(code) {
				var unknown *UnknownCodeError
				if errors.As(err, &unknown) {
					return unknown
				}
			}
			return fmt.Errorf("hierarchy: %s of %q: %w", dir, string(code), err)
		}
		cache[code] = results[i]
	}

	return nil
}

// assemble keeps only edges whose endpoints are both in the node set
func (b *builder) assemble() (*Hierarchy, error) {
	parents := make(map[Code]CodeSet)
	children := make(map[Code]CodeSet)

	for child, ps := range b.parentsOf {
		for _, p := range ps {
			if b.nodes.Has(p) && b.nodes.Has(child) {
				link(parents, children, p, child)
			}
		}
	}
	for parent, cs := range b.childrenOf {
		for _, c := range cs {
			if b.nodes.Has(c) && b.nodes.Has(parent) {
				link(parents, children, parent, c)
			}
		}
	}

	return newHierarchy(b.nodes, parents, children)
}
