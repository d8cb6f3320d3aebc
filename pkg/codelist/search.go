// ABOUTME: Codelist workflows layered over the hierarchy engines
// ABOUTME: Search, status updates and version rendering against a provider

package codelist

import (
	"context"
	"fmt"

	"github.com/nainya/codetree/pkg/hierarchy"
)

// TermSearcher finds codes by term
type TermSearcher interface {
	Search(ctx context.Context, term string) ([]hierarchy.Code, error)
}

// Typer reports a concept type per code, used to group tree tables
type Typer interface {
	TypesOf(ctx context.Context, codes []hierarchy.Code) (map[hierarchy.Code]string, error)
}

// SearchResult is what a search shows: the matches, the ultimate ancestors
// among them and everything those ancestors cover
type SearchResult struct {
	MatchingCodes hierarchy.CodeSet
	AncestorCodes hierarchy.CodeSet
	AllCodes      hierarchy.CodeSet
	Hierarchy     *hierarchy.Hierarchy
}

// Search builds a hierarchy over matching and collects the codes a search
// result covers
func Search(ctx context.Context, p hierarchy.Provider, matching []hierarchy.Code, opts ...hierarchy.BuildOption) (*SearchResult, error) {
	h, err := hierarchy.Build(ctx, p, matching, opts...)
	if err != nil {
		return nil, err
	}

	matched := hierarchy.NewCodeSet(matching...)
	ancestors := h.FilterToUltimateAncestors(matched)

	all := ancestors.Union(h.DescendantsOfAll(ancestors))

	return &SearchResult{
		MatchingCodes: matched,
		AncestorCodes: ancestors,
		AllCodes:      all,
		Hierarchy:     h,
	}, nil
}

// SearchTerm runs a term search then Search over its matches
func SearchTerm(ctx context.Context, p hierarchy.Provider, s TermSearcher, term string, opts ...hierarchy.BuildOption) (*SearchResult, error) {
	matching, err := s.Search(ctx, term)
	if err != nil {
		return nil, fmt.Errorf("codelist: search %q: %w", term, err)
	}
	return Search(ctx, p, matching, opts...)
}
