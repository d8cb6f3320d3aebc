package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/nainya/codetree/internal/config"
	"github.com/nainya/codetree/pkg/codelist"
	"github.com/nainya/codetree/pkg/definition"
	"github.com/nainya/codetree/pkg/hierarchy"
	"github.com/nainya/codetree/pkg/treewalk"
)

// session is a loaded config plus an open provider for one command run
type session struct {
	cfg      *config.Config
	provider hierarchy.Provider
	close    func() error
}

func (o *rootOptions) open(ctx context.Context) (*session, error) {
	cfg, err := o.load()
	if err != nil {
		return nil, err
	}
	p, closeProvider, err := openProvider(ctx, cfg.Provider, o.newLogger(cfg), nil)
	if err != nil {
		return nil, err
	}
	return &session{cfg: cfg, provider: p, close: closeProvider}, nil
}

func (s *session) buildOptions() []hierarchy.BuildOption {
	return []hierarchy.BuildOption{hierarchy.WithConcurrency(s.cfg.Hierarchy.Concurrency)}
}

func sortKey(sort string, names map[hierarchy.Code]string) (treewalk.SortKey, error) {
	switch sort {
	case "name":
		return treewalk.ByName(names), nil
	case "code":
		return treewalk.ByCode, nil
	default:
		return nil, fmt.Errorf("unknown sort %q (want name or code)", sort)
	}
}

func printTree(w io.Writer, h *hierarchy.Hierarchy, starts []hierarchy.Code, names map[hierarchy.Code]string, key treewalk.SortKey, marked hierarchy.CodeSet) error {
	rows, err := treewalk.WalkForest(h, starts, key)
	if err != nil {
		return err
	}

	for row := range rows {
		name, ok := names[row.Code]
		if !ok {
			name = codelist.UnknownName
		}
		mark := ""
		if marked.Has(row.Code) {
			mark = " *"
		}
		fmt.Fprintf(w, "%s%s (%s)%s\n", row.Prefix(), row.Code, name, mark)
	}
	return nil
}

func newTreeCmd(opts *rootOptions) *cobra.Command {
	var sort string

	cmd := &cobra.Command{
		Use:   "tree CODE...",
		Short: "Print the hierarchy below the given codes",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := opts.open(ctx)
			if err != nil {
				return err
			}
			defer s.close()

			codes := hierarchy.Codes(args...)
			h, err := hierarchy.Build(ctx, s.provider, codes, s.buildOptions()...)
			if err != nil {
				return err
			}
			names, err := s.provider.NamesOf(ctx, h.Nodes().Sorted())
			if err != nil {
				return err
			}
			key, err := sortKey(sort, names)
			if err != nil {
				return err
			}

			roots := h.FilterToUltimateAncestors(hierarchy.NewCodeSet(codes...))
			return printTree(cmd.OutOrStdout(), h, roots.Sorted(), names, key, nil)
		},
	}

	cmd.Flags().StringVar(&sort, "sort", "name", "sibling order: name or code")
	return cmd
}

func newSearchCmd(opts *rootOptions) *cobra.Command {
	var term string

	cmd := &cobra.Command{
		Use:   "search [CODE...]",
		Short: "Show the codes a search covers, by term or by explicit codes",
		RunE: func(cmd *cobra.Command, args []string) error {
			if term == "" && len(args) == 0 {
				return fmt.Errorf("give --term or at least one code")
			}

			ctx := cmd.Context()
			s, err := opts.open(ctx)
			if err != nil {
				return err
			}
			defer s.close()

			var res *codelist.SearchResult
			if term != "" {
				searcher, ok := s.provider.(codelist.TermSearcher)
				if !ok {
					return fmt.Errorf("provider %q does not support term search", s.cfg.Provider.Kind)
				}
				res, err = codelist.SearchTerm(ctx, s.provider, searcher, term, s.buildOptions()...)
			} else {
				res, err = codelist.Search(ctx, s.provider, hierarchy.Codes(args...), s.buildOptions()...)
			}
			if err != nil {
				return err
			}

			names, err := s.provider.NamesOf(ctx, res.AllCodes.Sorted())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%d matching, %d total\n", res.MatchingCodes.Len(), res.AllCodes.Len())
			return printTree(out, res.Hierarchy, res.AncestorCodes.Sorted(), names, treewalk.ByName(names), res.MatchingCodes)
		},
	}

	cmd.Flags().StringVar(&term, "term", "", "case-insensitive name or exact code")
	return cmd
}

func newDefineCmd(opts *rootOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "define CODE...",
		Short: "Compress a set of included codes into definition rules",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := opts.open(ctx)
			if err != nil {
				return err
			}
			defer s.close()

			v, err := codelist.RenderVersion(ctx, s.provider, hierarchy.Codes(args...), s.buildOptions()...)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(v.Definition)
			}

			for _, row := range v.Rows {
				suffix := ""
				if row.AllDescendants {
					suffix = " and all descendants"
				}
				fmt.Fprintf(out, "%s (%s)%s\n", row.Code, row.Name, suffix)
				for _, exc := range row.ExcludedDescendants {
					fmt.Fprintf(out, "  except %s (%s)\n", exc.Code, exc.Name)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the definition as JSON")
	return cmd
}

func newExpandCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "expand FILE",
		Short: "Expand a JSON definition (\"-\" for stdin) into its included codes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			def, err := readDefinition(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			s, err := opts.open(ctx)
			if err != nil {
				return err
			}
			defer s.close()

			h, err := hierarchy.Build(ctx, s.provider, def.Codes().Sorted(), s.buildOptions()...)
			if err != nil {
				return err
			}
			if err := definition.Validate(def, h); err != nil {
				return err
			}
			included, err := definition.ToCodes(def, h)
			if err != nil {
				return err
			}

			for _, c := range included.Sorted() {
				fmt.Fprintln(cmd.OutOrStdout(), c)
			}
			return nil
		},
	}
}

func readDefinition(stdin io.Reader, path string) (definition.Definition, error) {
	var def definition.Definition

	r := stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return def, err
		}
		defer f.Close()
		r = f
	}

	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&def); err != nil {
		return def, fmt.Errorf("parse definition: %w", err)
	}
	return def, nil
}
