package status

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nainya/codetree/pkg/hierarchy"
)

var (
	explicitIn  = Status{Value: Included, Origin: Explicit}
	inheritIn   = Status{Value: Included, Origin: Inherited}
	explicitOut = Status{Value: Excluded, Origin: Explicit}
	inheritOut  = Status{Value: Excluded, Origin: Inherited}
)

// A→B→C, A→D
func simple(t *testing.T) *hierarchy.Hierarchy {
	t.Helper()
	h, err := hierarchy.FromEdges([]hierarchy.Edge{
		{Parent: "A", Child: "B"},
		{Parent: "B", Child: "C"},
		{Parent: "A", Child: "D"},
	})
	require.NoError(t, err)
	return h
}

func TestResolveIncludeRoot(t *testing.T) {
	h := simple(t)

	got, err := Resolve(StatusMap{}, []Update{{Code: "A", Value: Included}}, h)
	require.NoError(t, err)

	assert.Equal(t, StatusMap{
		"A": explicitIn,
		"B": inheritIn,
		"C": inheritIn,
		"D": inheritIn,
	}, got)
}

func TestResolveExcludeLeafAfterInclude(t *testing.T) {
	h := simple(t)

	first, err := Resolve(StatusMap{}, []Update{{Code: "A", Value: Included}}, h)
	require.NoError(t, err)

	second, err := Resolve(first, []Update{{Code: "C", Value: Excluded}}, h)
	require.NoError(t, err)

	assert.Equal(t, StatusMap{
		"A": explicitIn,
		"B": inheritIn,
		"C": explicitOut,
		"D": inheritIn,
	}, second)

	// the input map is untouched
	assert.Equal(t, inheritIn, first["C"])
}

func TestResolveExplicitDescendantIsNotOverridden(t *testing.T) {
	h := simple(t)

	got, err := Resolve(StatusMap{}, []Update{
		{Code: "B", Value: Excluded},
		{Code: "A", Value: Included},
	}, h)
	require.NoError(t, err)

	assert.Equal(t, explicitOut, got["B"])
	assert.Equal(t, explicitIn, got["A"])
	assert.Equal(t, inheritIn, got["D"])
}

func TestResolveMostRecentUpdateWinsForSharedDescendant(t *testing.T) {
	// x has two parents, p and q
	h, err := hierarchy.FromEdges([]hierarchy.Edge{
		{Parent: "p", Child: "x"},
		{Parent: "q", Child: "x"},
	})
	require.NoError(t, err)

	got, err := Resolve(StatusMap{}, []Update{
		{Code: "p", Value: Included},
		{Code: "q", Value: Excluded},
	}, h)
	require.NoError(t, err)
	assert.Equal(t, inheritOut, got["x"])

	got, err = Resolve(StatusMap{}, []Update{
		{Code: "q", Value: Excluded},
		{Code: "p", Value: Included},
	}, h)
	require.NoError(t, err)
	assert.Equal(t, inheritIn, got["x"])
}

func TestResolveMonotonicity(t *testing.T) {
	h := simple(t)
	current := StatusMap{
		"A": inheritOut,
		"B": explicitOut,
		"C": inheritOut,
		"D": inheritOut,
	}

	got, err := Resolve(current, []Update{{Code: "A", Value: Included}}, h)
	require.NoError(t, err)

	for d := range h.Descendants("A") {
		if current[d].Origin == Explicit {
			assert.Equal(t, current[d], got[d], "explicit %s changed", d)
			continue
		}
		assert.Equal(t, inheritIn, got[d], "inherited %s not included", d)
	}
}

func TestResolveDefaultBaseline(t *testing.T) {
	h, err := hierarchy.FromEdges([]hierarchy.Edge{
		{Parent: "A", Child: "B"},
		{Parent: "X", Child: "Y"},
	})
	require.NoError(t, err)

	got, err := Resolve(Initial(h), []Update{{Code: "A", Value: Included}}, h)
	require.NoError(t, err)

	assert.Equal(t, Default(), got["X"])
	assert.Equal(t, Default(), got["Y"])
	assert.Equal(t, inheritIn, got["B"])
}

func TestResolveUnknownCode(t *testing.T) {
	h := simple(t)
	current := StatusMap{"A": explicitIn}

	got, err := Resolve(current, []Update{
		{Code: "B", Value: Excluded},
		{Code: "Z", Value: Included},
	}, h)

	require.Error(t, err)
	assert.Nil(t, got)
	assert.True(t, errors.Is(err, hierarchy.ErrUnknownCode))
	assert.Equal(t, StatusMap{"A": explicitIn}, current)
}

func TestResolveInvalidValue(t *testing.T) {
	h := simple(t)

	_, err := Resolve(StatusMap{}, []Update{
		{Code: "A", Value: Included},
		{Code: "B", Value: Value(7)},
	}, h)

	var invalid *InvalidUpdateError
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, hierarchy.Code("B"), invalid.Code)
	assert.ErrorIs(t, err, ErrInvalidUpdate)
}

func TestChanged(t *testing.T) {
	prev := StatusMap{"A": inheritOut, "B": inheritOut}
	next := StatusMap{"A": explicitIn, "B": inheritOut, "C": inheritIn}

	assert.Equal(t, StatusMap{"A": explicitIn, "C": inheritIn}, Changed(prev, next))
}

func TestSymbols(t *testing.T) {
	for _, s := range []Status{explicitIn, inheritIn, explicitOut, inheritOut} {
		parsed, err := ParseSymbol(s.Symbol())
		require.NoError(t, err)
		assert.Equal(t, s, parsed)
	}

	assert.Equal(t, "+", explicitIn.Symbol())
	assert.Equal(t, "(+)", inheritIn.Symbol())
	assert.Equal(t, "-", explicitOut.Symbol())
	assert.Equal(t, "(-)", inheritOut.Symbol())

	_, err := ParseSymbol("!")
	assert.Error(t, err)
}

func TestFromSymbolsAndCounts(t *testing.T) {
	m, err := FromSymbols(map[hierarchy.Code]string{"A": "+", "B": "(+)", "C": "-", "D": "(+)"})
	require.NoError(t, err)

	assert.Equal(t, map[string]int{"+": 1, "(+)": 2, "-": 1}, m.Counts())
	assert.Equal(t, hierarchy.NewCodeSet("A", "B", "D"), m.Included())
	assert.Equal(t, hierarchy.NewCodeSet("C"), m.Excluded())
	assert.Equal(t, hierarchy.NewCodeSet("A", "C"), m.Explicit())
	assert.Equal(t, "(+)", m.Symbols()["B"])

	_, err = FromSymbols(map[hierarchy.Code]string{"A": "?"})
	assert.Error(t, err)
}

func TestParseValue(t *testing.T) {
	v, err := ParseValue("+")
	require.NoError(t, err)
	assert.Equal(t, Included, v)

	v, err = ParseValue("excluded")
	require.NoError(t, err)
	assert.Equal(t, Excluded, v)

	_, err = ParseValue("?")
	assert.ErrorIs(t, err, ErrInvalidUpdate)
}
