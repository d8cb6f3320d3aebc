package metrics

import (
	"context"
	"errors"

	"github.com/nainya/codetree/pkg/hierarchy"
)

// ErrUnsupported is returned by optional provider methods the wrapped
// provider does not implement
var ErrUnsupported = errors.New("metrics: provider does not support this call")

type instrumentedProvider struct {
	next hierarchy.Provider
	m    *Metrics
}

// InstrumentProvider counts every call made to p. Term search and concept
// types are forwarded when p supports them.
func (m *Metrics) InstrumentProvider(p hierarchy.Provider) hierarchy.Provider {
	return &instrumentedProvider{next: p, m: m}
}

func (p *instrumentedProvider) ParentsOf(ctx context.Context, code hierarchy.Code) ([]hierarchy.Code, error) {
	out, err := p.next.ParentsOf(ctx, code)
	p.m.RecordProviderRequest("parents", err)
	return out, err
}

func (p *instrumentedProvider) ChildrenOf(ctx context.Context, code hierarchy.Code) ([]hierarchy.Code, error) {
	out, err := p.next.ChildrenOf(ctx, code)
	p.m.RecordProviderRequest("children", err)
	return out, err
}

func (p *instrumentedProvider) NamesOf(ctx context.Context, codes []hierarchy.Code) (map[hierarchy.Code]string, error) {
	out, err := p.next.NamesOf(ctx, codes)
	p.m.RecordProviderRequest("names", err)
	return out, err
}

func (p *instrumentedProvider) TypesOf(ctx context.Context, codes []hierarchy.Code) (map[hierarchy.Code]string, error) {
	typer, ok := p.next.(interface {
		TypesOf(context.Context, []hierarchy.Code) (map[hierarchy.Code]string, error)
	})
	if !ok {
		return map[hierarchy.Code]string{}, nil
	}
	out, err := typer.TypesOf(ctx, codes)
	p.m.RecordProviderRequest("types", err)
	return out, err
}

func (p *instrumentedProvider) Search(ctx context.Context, term string) ([]hierarchy.Code, error) {
	searcher, ok := p.next.(interface {
		Search(context.Context, string) ([]hierarchy.Code, error)
	})
	if !ok {
		return nil, ErrUnsupported
	}
	out, err := searcher.Search(ctx, term)
	p.m.RecordProviderRequest("search", err)
	return out, err
}
