package codelist

import (
	"cmp"
	"fmt"
	"maps"
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/nainya/codetree/pkg/definition"
	"github.com/nainya/codetree/pkg/hierarchy"
	"github.com/nainya/codetree/pkg/treewalk"
)

// UnknownName is shown for codes the coding system has no term for
const UnknownName = "Unknown code"

// TableRow is one line of a tree table
type TableRow struct {
	Code  hierarchy.Code `json:"code"`
	Term  string         `json:"term"`
	Depth int            `json:"depth"`
	Pipes []string       `json:"pipes"`
}

// Table is a heading and its tree-rendered rows
type Table struct {
	Heading string     `json:"heading"`
	Rows    []TableRow `json:"rows"`
}

// TreeTables renders the codes of each group as trees, one table per group
// in ascending group order. Within a group each starting code is walked in
// term order, with siblings sorted by term.
func TreeTables(h *hierarchy.Hierarchy, groups map[string][]hierarchy.Code, names map[hierarchy.Code]string) ([]Table, error) {
	key := treewalk.ByName(names)

	tables := make([]Table, 0, len(groups))
	for _, group := range slices.Sorted(maps.Keys(groups)) {
		table := Table{Heading: title(group), Rows: []TableRow{}}

		rows, err := treewalk.WalkForest(h, groups[group], key)
		if err != nil {
			return nil, fmt.Errorf("codelist: %s table: %w", group, err)
		}
		for row := range rows {
			table.Rows = append(table.Rows, TableRow{
				Code:  row.Code,
				Term:  termOf(names, row.Code),
				Depth: row.Depth,
				Pipes: row.Pipes,
			})
		}

		tables = append(tables, table)
	}

	return tables, nil
}

func termOf(names map[hierarchy.Code]string, c hierarchy.Code) string {
	if name, ok := names[c]; ok {
		return name
	}
	return UnknownName
}

// title capitalises the first letter of each word and lowercases the rest
func title(s string) string {
	return cases.Title(language.Und).String(strings.Join(strings.Fields(s), " "))
}

// DefinitionRow presents one including rule and the excluding rules that
// fall under it.
//
// AllDescendants false means the rule covers its code alone. Otherwise the
// code and its descendants are included except ExcludedDescendants.
type DefinitionRow struct {
	Code                hierarchy.Code  `json:"code"`
	Name                string          `json:"name"`
	AllDescendants      bool            `json:"all_descendants"`
	ExcludedDescendants []DefinitionRow `json:"excluded_descendants"`
}

// DefinitionRows lists every including rule of def, sorted by name, each
// with the excluding rules below it
func DefinitionRows(h *hierarchy.Hierarchy, def definition.Definition, names map[hierarchy.Code]string) []DefinitionRow {
	byName := func(a, b definition.Rule) int {
		return cmp.Or(
			cmp.Compare(termOf(names, a.Code), termOf(names, b.Code)),
			cmp.Compare(a.Code, b.Code),
		)
	}

	included := def.IncludingRules()
	slices.SortStableFunc(included, byName)
	excluded := def.ExcludingRules()
	slices.SortStableFunc(excluded, byName)

	rows := make([]DefinitionRow, 0, len(included))
	for _, r := range included {
		row := DefinitionRow{
			Code:                r.Code,
			Name:                termOf(names, r.Code),
			AllDescendants:      r.AppliesToDescendants,
			ExcludedDescendants: []DefinitionRow{},
		}

		if r.AppliesToDescendants {
			descendants := h.Descendants(r.Code)
			for _, x := range excluded {
				if !descendants.Has(x.Code) {
					continue
				}
				row.ExcludedDescendants = append(row.ExcludedDescendants, DefinitionRow{
					Code:                x.Code,
					Name:                termOf(names, x.Code),
					AllDescendants:      x.AppliesToDescendants,
					ExcludedDescendants: []DefinitionRow{},
				})
			}
		}

		rows = append(rows, row)
	}

	return rows
}
