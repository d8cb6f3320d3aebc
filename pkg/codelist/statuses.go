package codelist

import (
	"context"
	"maps"
	"slices"

	"github.com/nainya/codetree/pkg/hierarchy"
	"github.com/nainya/codetree/pkg/status"
)

// StatusChange is the outcome of applying updates to a draft codelist
type StatusChange struct {
	// Next is the full status map after the updates
	Next status.StatusMap
	// Changed holds only the entries that differ from the input
	Changed status.StatusMap
	// BySymbol groups the changed codes by stored symbol, codes ascending
	BySymbol map[string][]hierarchy.Code
}

// UpdateStatuses builds a hierarchy over the codes in current and the
// updated codes, resolves the updates, and reports what changed so the
// caller can persist one batch per symbol.
func UpdateStatuses(ctx context.Context, p hierarchy.Provider, current status.StatusMap, updates []status.Update, opts ...hierarchy.BuildOption) (*StatusChange, error) {
	seeds := hierarchy.NewCodeSet(slices.Collect(maps.Keys(current))...)
	for _, u := range updates {
		seeds.Add(u.Code)
	}

	h, err := hierarchy.Build(ctx, p, seeds.Sorted(), opts...)
	if err != nil {
		return nil, err
	}

	next, err := status.Resolve(current, updates, h)
	if err != nil {
		return nil, err
	}

	changed := status.Changed(current, next)
	bySymbol := make(map[string][]hierarchy.Code)
	for c, s := range changed {
		bySymbol[s.Symbol()] = append(bySymbol[s.Symbol()], c)
	}
	for _, codes := range bySymbol {
		slices.Sort(codes)
	}

	return &StatusChange{Next: next, Changed: changed, BySymbol: bySymbol}, nil
}
