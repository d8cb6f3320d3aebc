package provider

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nainya/codetree/pkg/hierarchy"
)

// openTestDB connects to the database named by CODETREE_TEST_DSN
func openTestDB(t *testing.T) *SQL {
	t.Helper()
	dsn := os.Getenv("CODETREE_TEST_DSN")
	if dsn == "" {
		t.Skip("CODETREE_TEST_DSN not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s, err := OpenSQL(ctx, dsn, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	_, err = s.db.ExecContext(ctx, `DROP TABLE IF EXISTS relationships; DROP TABLE IF EXISTS concepts;`)
	require.NoError(t, err)
	require.NoError(t, s.EnsureSchema(ctx))
	return s
}

func TestSQLProvider(t *testing.T) {
	s := openTestDB(t)
	ctx := context.Background()

	require.NoError(t, s.Import(ctx, loadElbow(t)))
	// importing twice is harmless
	require.NoError(t, s.Import(ctx, loadElbow(t)))

	parents, err := s.ParentsOf(ctx, "202855006")
	require.NoError(t, err)
	assert.Equal(t, hierarchy.Codes("439656005", "73583000"), parents)

	leaf, err := s.ChildrenOf(ctx, "202855006")
	require.NoError(t, err)
	assert.Empty(t, leaf)

	_, err = s.ChildrenOf(ctx, "999")
	assert.ErrorIs(t, err, hierarchy.ErrUnknownCode)

	names, err := s.NamesOf(ctx, hierarchy.Codes("73583000", "35185008", "999"))
	require.NoError(t, err)
	assert.Equal(t, map[hierarchy.Code]string{
		"73583000": "Epicondylitis",
		"35185008": "Enthesopathy of elbow region",
	}, names)

	h, err := hierarchy.Build(ctx, s, hierarchy.Codes("35185008"))
	require.NoError(t, err)
	assert.Equal(t, hierarchy.NewCodeSet("73583000", "202855006"), h.Descendants("35185008"))
}

func TestSQLNamesOfEmpty(t *testing.T) {
	// no query is issued for an empty request
	s := NewSQL(nil, zerolog.Nop())

	names, err := s.NamesOf(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, names)
}
