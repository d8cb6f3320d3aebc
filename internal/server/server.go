// Package server implements the gRPC CodeTree service
package server

import (
	"context"
	"errors"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/nainya/codetree/internal/logger"
	"github.com/nainya/codetree/internal/metrics"
	"github.com/nainya/codetree/pkg/codelist"
	"github.com/nainya/codetree/pkg/definition"
	"github.com/nainya/codetree/pkg/hierarchy"
	"github.com/nainya/codetree/pkg/provider"
	codestatus "github.com/nainya/codetree/pkg/status"
	"github.com/nainya/codetree/pkg/treewalk"
)

// Server implements CodeTreeServer. Every request builds its own hierarchy
// from the provider; nothing is shared between requests.
type Server struct {
	provider hierarchy.Provider
	metrics  *metrics.Metrics
	log      *logger.Logger
	opts     []hierarchy.BuildOption
}

// NewServer creates a server over p. Builds fan out to at most concurrency
// provider calls at a time.
func NewServer(p hierarchy.Provider, m *metrics.Metrics, log *logger.Logger, concurrency int) *Server {
	s := &Server{
		provider: p,
		metrics:  m,
		log:      log,
	}
	s.opts = []hierarchy.BuildOption{
		hierarchy.WithConcurrency(concurrency),
		hierarchy.WithObserver(s.observeBuild),
	}
	return s
}

func (s *Server) observeBuild(seeds, nodes int, elapsed time.Duration, err error) {
	s.metrics.RecordBuild(nodes, elapsed, err)
	s.log.LogBuild(seeds, nodes, elapsed, err)
}

func (s *Server) build(ctx context.Context, seeds []hierarchy.Code) (*hierarchy.Hierarchy, error) {
	return hierarchy.Build(ctx, s.provider, seeds, s.opts...)
}

// ========== Hierarchy queries ==========

func (s *Server) Search(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req SearchRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}

	var (
		res *codelist.SearchResult
		err error
	)
	switch {
	case len(req.Codes) > 0:
		res, err = codelist.Search(ctx, s.provider, req.Codes, s.opts...)
	case req.Term != "":
		searcher, ok := s.provider.(codelist.TermSearcher)
		if !ok {
			return nil, status.Error(codes.Unimplemented, "provider does not support term search")
		}
		res, err = codelist.SearchTerm(ctx, s.provider, searcher, req.Term, s.opts...)
	default:
		return nil, status.Error(codes.InvalidArgument, "codes or term is required")
	}
	if err != nil {
		return nil, toStatus(err)
	}

	return encode(SearchResponse{
		MatchingCodes: res.MatchingCodes.Sorted(),
		AncestorCodes: res.AncestorCodes.Sorted(),
		AllCodes:      res.AllCodes.Sorted(),
	})
}

func (s *Server) Descendants(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return s.closure(ctx, in, (*hierarchy.Hierarchy).Descendants)
}

func (s *Server) Ancestors(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return s.closure(ctx, in, (*hierarchy.Hierarchy).Ancestors)
}

func (s *Server) closure(ctx context.Context, in *structpb.Struct, query func(*hierarchy.Hierarchy, hierarchy.Code) hierarchy.CodeSet) (*structpb.Struct, error) {
	var req CodeRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	if req.Code == "" {
		return nil, status.Error(codes.InvalidArgument, "code is required")
	}

	h, err := s.build(ctx, []hierarchy.Code{req.Code})
	if err != nil {
		return nil, toStatus(err)
	}

	return encode(CodesMessage{Codes: query(h, req.Code).Sorted()})
}

func (s *Server) UltimateAncestors(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req CodesMessage
	if err := decode(in, &req); err != nil {
		return nil, err
	}

	h, err := s.build(ctx, req.Codes)
	if err != nil {
		return nil, toStatus(err)
	}

	roots := h.FilterToUltimateAncestors(hierarchy.NewCodeSet(req.Codes...))
	return encode(CodesMessage{Codes: roots.Sorted()})
}

func (s *Server) Walk(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req WalkRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	if req.Code == "" {
		return nil, status.Error(codes.InvalidArgument, "code is required")
	}

	h, err := s.build(ctx, []hierarchy.Code{req.Code})
	if err != nil {
		return nil, toStatus(err)
	}

	names, err := s.provider.NamesOf(ctx, h.Nodes().Sorted())
	if err != nil {
		return nil, toStatus(err)
	}

	var key treewalk.SortKey
	switch req.Sort {
	case "", "name":
		key = treewalk.ByName(names)
	case "code":
		key = treewalk.ByCode
	default:
		return nil, status.Errorf(codes.InvalidArgument, "unknown sort %q", req.Sort)
	}

	rows, err := treewalk.Rows(h, req.Code, key)
	if err != nil {
		return nil, toStatus(err)
	}

	resp := WalkResponse{Rows: make([]WalkRow, 0, len(rows))}
	for _, row := range rows {
		resp.Rows = append(resp.Rows, WalkRow{
			Code:   row.Code,
			Term:   names[row.Code],
			Depth:  row.Depth,
			Pipes:  row.Pipes,
			Prefix: row.Prefix(),
		})
	}
	return encode(resp)
}

// ========== Status resolution ==========

func (s *Server) ResolveStatuses(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req ResolveRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}

	current, err := codestatus.FromSymbols(req.Statuses)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	updates := make([]codestatus.Update, 0, len(req.Updates))
	for _, u := range req.Updates {
		v, err := codestatus.ParseValue(u.Value)
		if err != nil {
			return nil, toStatus(err)
		}
		updates = append(updates, codestatus.Update{Code: u.Code, Value: v})
	}

	change, err := codelist.UpdateStatuses(ctx, s.provider, current, updates, s.opts...)
	if err != nil {
		return nil, toStatus(err)
	}
	s.metrics.StatusUpdatesTotal.Add(float64(len(updates)))

	return encode(ResolveResponse{
		Statuses: change.Next.Symbols(),
		Changed:  change.BySymbol,
	})
}

// ========== Definitions ==========

func (s *Server) DefinitionFromCodes(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req CodesMessage
	if err := decode(in, &req); err != nil {
		return nil, err
	}

	h, err := s.build(ctx, req.Codes)
	if err != nil {
		return nil, toStatus(err)
	}

	def, err := definition.FromCodes(hierarchy.NewCodeSet(req.Codes...), h)
	if err != nil {
		return nil, toStatus(err)
	}
	s.metrics.DefinitionRulesTotal.Add(float64(def.Len()))

	return encode(DefinitionMessage{Definition: def})
}

func (s *Server) DefinitionToCodes(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req DefinitionMessage
	if err := decode(in, &req); err != nil {
		return nil, err
	}

	h, err := s.build(ctx, req.Definition.Codes().Sorted())
	if err != nil {
		return nil, toStatus(err)
	}
	if err := definition.Validate(req.Definition, h); err != nil {
		return nil, toStatus(err)
	}

	included, err := definition.ToCodes(req.Definition, h)
	if err != nil {
		return nil, toStatus(err)
	}

	return encode(CodesMessage{Codes: included.Sorted()})
}

func (s *Server) RenderVersion(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req CodesMessage
	if err := decode(in, &req); err != nil {
		return nil, err
	}

	v, err := codelist.RenderVersion(ctx, s.provider, req.Codes, s.opts...)
	if err != nil {
		return nil, toStatus(err)
	}

	return encode(VersionResponse{
		AncestorCodes: v.AncestorCodes.Sorted(),
		Tables:        v.Tables,
		Definition:    v.Definition,
		Rows:          v.Rows,
	})
}

// toStatus maps engine errors onto gRPC status codes
func toStatus(err error) error {
	if _, ok := status.FromError(err); ok {
		return err
	}

	code := codes.Internal
	switch {
	case errors.Is(err, context.Canceled):
		code = codes.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		code = codes.DeadlineExceeded
	case errors.Is(err, hierarchy.ErrUnknownCode):
		code = codes.NotFound
	case errors.Is(err, codestatus.ErrInvalidUpdate), errors.Is(err, definition.ErrInvalidDefinition):
		code = codes.InvalidArgument
	case errors.Is(err, hierarchy.ErrHierarchyCycle):
		code = codes.FailedPrecondition
	case errors.Is(err, provider.ErrSearchUnsupported), errors.Is(err, metrics.ErrUnsupported):
		code = codes.Unimplemented
	}
	return status.Error(code, err.Error())
}

var _ CodeTreeServer = (*Server)(nil)
