package codelist

import (
	"context"
	"fmt"

	"github.com/nainya/codetree/pkg/definition"
	"github.com/nainya/codetree/pkg/hierarchy"
)

// DefaultGroup heads the tree table when the provider has no concept types
const DefaultGroup = "concept"

// Version is everything needed to display a codelist version
type Version struct {
	Codes         hierarchy.CodeSet
	Hierarchy     *hierarchy.Hierarchy
	AncestorCodes hierarchy.CodeSet
	Names         map[hierarchy.Code]string
	Tables        []Table
	Definition    definition.Definition
	Rows          []DefinitionRow
}

// RenderVersion builds the hierarchy for a version's codes and derives its
// tree tables, compressed definition and definition rows.
//
// Tree tables are grouped by concept type when p implements Typer.
func RenderVersion(ctx context.Context, p hierarchy.Provider, codes []hierarchy.Code, opts ...hierarchy.BuildOption) (*Version, error) {
	h, err := hierarchy.Build(ctx, p, codes, opts...)
	if err != nil {
		return nil, err
	}

	included := hierarchy.NewCodeSet(codes...)
	ancestors := h.FilterToUltimateAncestors(included)

	names, err := p.NamesOf(ctx, h.Nodes().Sorted())
	if err != nil {
		return nil, fmt.Errorf("codelist: names: %w", err)
	}

	groups, err := groupByType(ctx, p, ancestors.Sorted())
	if err != nil {
		return nil, err
	}

	def, err := definition.FromCodes(included, h)
	if err != nil {
		return nil, err
	}

	tables, err := TreeTables(h, groups, names)
	if err != nil {
		return nil, err
	}

	return &Version{
		Codes:         included,
		Hierarchy:     h,
		AncestorCodes: ancestors,
		Names:         names,
		Tables:        tables,
		Definition:    def,
		Rows:          DefinitionRows(h, def, names),
	}, nil
}

func groupByType(ctx context.Context, p hierarchy.Provider, codes []hierarchy.Code) (map[string][]hierarchy.Code, error) {
	groups := make(map[string][]hierarchy.Code)
	if len(codes) == 0 {
		return groups, nil
	}

	typer, ok := p.(Typer)
	if !ok {
		groups[DefaultGroup] = codes
		return groups, nil
	}

	types, err := typer.TypesOf(ctx, codes)
	if err != nil {
		return nil, fmt.Errorf("codelist: concept types: %w", err)
	}
	for _, c := range codes {
		kind, ok := types[c]
		if !ok || kind == "" {
			kind = DefaultGroup
		}
		groups[kind] = append(groups[kind], c)
	}
	return groups, nil
}
