package hierarchy

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProvider serves a fixed edge list and counts calls per code and direction
type fakeProvider struct {
	mu       sync.Mutex
	known    CodeSet
	parents  map[Code][]Code
	children map[Code][]Code
	calls    map[string]int
	failing  map[Code]error
}

func newFakeProvider(edges []Edge) *fakeProvider {
	p := &fakeProvider{
		known:    make(CodeSet),
		parents:  make(map[Code][]Code),
		children: make(map[Code][]Code),
		calls:    make(map[string]int),
		failing:  make(map[Code]error),
	}
	for _, e := range edges {
		p.known.Add(e.Parent)
		p.known.Add(e.Child)
		p.parents[e.Child] = append(p.parents[e.Child], e.Parent)
		p.children[e.Parent] = append(p.children[e.Parent], e.Child)
	}
	return p
}

func (p *fakeProvider) record(kind string, code Code) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls[kind+":"+string(code)]++

	if err, ok := p.failing[code]; ok {
		return err
	}
	if !p.known.Has(code) {
		return &UnknownCodeError{Code: code}
	}
	return nil
}

func (p *fakeProvider) ParentsOf(_ context.Context, code Code) ([]Code, error) {
	if err := p.record("parents", code); err != nil {
		return nil, err
	}
	return p.parents[code], nil
}

func (p *fakeProvider) ChildrenOf(_ context.Context, code Code) ([]Code, error) {
	if err := p.record("children", code); err != nil {
		return nil, err
	}
	return p.children[code], nil
}

func (p *fakeProvider) NamesOf(_ context.Context, codes []Code) (map[Code]string, error) {
	names := make(map[Code]string)
	for _, c := range codes {
		if p.known.Has(c) {
			names[c] = "term " + string(c)
		}
	}
	return names, nil
}

func TestBuildClosure(t *testing.T) {
	p := newFakeProvider(diamondEdges())

	h, err := Build(context.Background(), p, []Code{"4"})
	require.NoError(t, err)

	assert.Equal(t, NewCodeSet("0", "1", "2", "4", "8", "9"), h.Nodes())
	assert.Equal(t, NewCodeSet("8", "9"), h.Descendants("4"))
	assert.Equal(t, NewCodeSet("0", "1", "2"), h.Ancestors("4"))
}

func TestBuildSeedReachedFromBothSides(t *testing.T) {
	p := newFakeProvider(diamondEdges())

	// 4 is found above 8 and below 2; its children must still be expanded
	h, err := Build(context.Background(), p, []Code{"8", "2"})
	require.NoError(t, err)

	assert.Equal(t, NewCodeSet("4", "5", "8", "9", "10", "11"), h.Descendants("2"))
	assert.Equal(t, NewCodeSet("0", "1", "2", "4"), h.Ancestors("8"))
	assert.False(t, h.Contains("3"))
}

func TestBuildInducedEdgesBetweenSeedClosures(t *testing.T) {
	// x is an ancestor of seed s2 and a parent of d, which lies below seed s1
	edges := []Edge{{"s1", "d"}, {"x", "s2"}, {"x", "d"}}
	p := newFakeProvider(edges)

	h, err := Build(context.Background(), p, []Code{"s1", "s2"})
	require.NoError(t, err)

	assert.Equal(t, NewCodeSet("s1", "x"), h.Ancestors("d"))
	assert.Equal(t, NewCodeSet("s2", "d"), h.Descendants("x"))
}

func TestBuildFetchesEachEdgeListOnce(t *testing.T) {
	p := newFakeProvider(diamondEdges())

	_, err := Build(context.Background(), p, []Code{"1", "2", "4"}, WithConcurrency(4))
	require.NoError(t, err)

	for key, n := range p.calls {
		assert.Equal(t, 1, n, "%s fetched %d times", key, n)
	}
}

func TestBuildUnknownSeed(t *testing.T) {
	p := newFakeProvider(diamondEdges())

	_, err := Build(context.Background(), p, []Code{"1", "nope"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownCode))

	var unknown *UnknownCodeError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, Code("nope"), unknown.Code)
}

func TestBuildProviderFailureIsDeterministic(t *testing.T) {
	p := newFakeProvider(diamondEdges())
	boom := errors.New("backend unavailable")
	p.failing["8"] = boom
	p.failing["9"] = fmt.Errorf("other failure")

	for i := 0; i < 10; i++ {
		_, err := Build(context.Background(), p, []Code{"4"}, WithConcurrency(8))
		require.Error(t, err)
		assert.True(t, errors.Is(err, boom), "got %v", err)
	}
}

func TestBuildCycle(t *testing.T) {
	p := newFakeProvider([]Edge{{"a", "b"}, {"b", "c"}, {"c", "a"}})

	_, err := Build(context.Background(), p, []Code{"a"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrHierarchyCycle))
}

func TestBuildCancelledContext(t *testing.T) {
	p := newFakeProvider(diamondEdges())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Build(ctx, p, []Code{"0"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBuildEmptySeeds(t *testing.T) {
	h, err := Build(context.Background(), newFakeProvider(nil), nil)
	require.NoError(t, err)
	assert.Zero(t, h.Len())
}

func TestBuildConcurrentInstances(t *testing.T) {
	p := newFakeProvider(diamondEdges())

	var wg sync.WaitGroup
	for _, seed := range []Code{"0", "1", "2", "3", "4", "5"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h, err := Build(context.Background(), p, []Code{seed}, WithConcurrency(2))
			assert.NoError(t, err)
			assert.True(t, h.Contains(seed))
		}()
	}
	wg.Wait()
}

func TestBuildObserver(t *testing.T) {
	p := newFakeProvider(diamondEdges())

	var seeds, nodes, calls int
	var seen error
	observe := WithObserver(func(s, n int, _ time.Duration, err error) {
		calls++
		seeds, nodes, seen = s, n, err
	})

	_, err := Build(context.Background(), p, []Code{"4"}, observe)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, seeds)
	assert.Equal(t, 6, nodes)
	assert.NoError(t, seen)

	_, err = Build(context.Background(), p, []Code{"nope"}, observe)
	require.Error(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, 0, nodes)
	assert.ErrorIs(t, seen, ErrUnknownCode)
}
