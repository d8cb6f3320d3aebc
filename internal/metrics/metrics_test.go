package metrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nainya/codetree/pkg/hierarchy"
	"github.com/nainya/codetree/pkg/provider"
)

func TestRecordGrpcRequest(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordGrpcRequest("/codetree.v1.CodeTree/Search", "OK", 10*time.Millisecond)
	m.RecordGrpcRequest("/codetree.v1.CodeTree/Search", "OK", 20*time.Millisecond)
	m.RecordGrpcRequest("/codetree.v1.CodeTree/Search", "NotFound", time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.GrpcRequestsTotal.WithLabelValues("/codetree.v1.CodeTree/Search", "OK")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.GrpcRequestsTotal.WithLabelValues("/codetree.v1.CodeTree/Search", "NotFound")))
}

func TestRecordBuild(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordBuild(12, time.Millisecond, nil)
	m.RecordBuild(0, time.Millisecond, errors.New("cycle"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.BuildsTotal.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BuildsTotal.WithLabelValues("error")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.HierarchyNodes))
}

func TestSeparateRegistries(t *testing.T) {
	// two instances must not collide on registration
	assert.NotPanics(t, func() {
		NewMetrics(prometheus.NewRegistry())
		NewMetrics(prometheus.NewRegistry())
	})
}

func TestInstrumentProvider(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	mem := provider.NewMemory()
	mem.AddCode("A", "alpha")
	mem.AddCode("B", "beta")
	mem.SetType("A", "finding")
	require.NoError(t, mem.AddEdge("A", "B"))

	p := m.InstrumentProvider(mem)
	ctx := context.Background()

	h, err := hierarchy.Build(ctx, p, hierarchy.Codes("A"))
	require.NoError(t, err)
	assert.Equal(t, 2, h.Len())

	_, err = p.ParentsOf(ctx, "Z")
	assert.ErrorIs(t, err, hierarchy.ErrUnknownCode)

	// A and B each asked for parents and children, then the failed lookup
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ProviderRequests.WithLabelValues("parents", "ok")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ProviderRequests.WithLabelValues("children", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ProviderRequests.WithLabelValues("parents", "error")))

	typer := p.(interface {
		TypesOf(context.Context, []hierarchy.Code) (map[hierarchy.Code]string, error)
	})
	types, err := typer.TypesOf(ctx, hierarchy.Codes("A", "B"))
	require.NoError(t, err)
	assert.Equal(t, map[hierarchy.Code]string{"A": "finding"}, types)
}
