// ABOUTME: PostgreSQL-backed hierarchy provider using sqlx
// ABOUTME: Reads concepts(code, name) and relationships(parent, child) tables

package provider

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"

	"github.com/nainya/codetree/pkg/hierarchy"
)

// Schema creates the tables the SQL provider reads
const Schema = `
CREATE TABLE IF NOT EXISTS concepts (
	code TEXT PRIMARY KEY,
	name TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS relationships (
	parent TEXT NOT NULL REFERENCES concepts(code),
	child  TEXT NOT NULL REFERENCES concepts(code),
	PRIMARY KEY (parent, child)
);
CREATE INDEX IF NOT EXISTS relationships_child_idx ON relationships (child);
`

// SQL serves a coding system stored in a relational database
type SQL struct {
	db  *sqlx.DB
	log zerolog.Logger
}

// Concept is a row of the concepts table
type Concept struct {
	Code string `db:"code"`
	Name string `db:"name"`
}

// NewSQL wraps an open connection
func NewSQL(db *sqlx.DB, log zerolog.Logger) *SQL {
	return &SQL{db: db, log: log}
}

// OpenSQL connects to a PostgreSQL database
func OpenSQL(ctx context.Context, dsn string, log zerolog.Logger) (*SQL, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("provider: connect: %w", err)
	}
	return NewSQL(db, log), nil
}

// Close releases the connection pool
func (s *SQL) Close() error {
	return s.db.Close()
}

// EnsureSchema creates the tables if they are missing
func (s *SQL) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("provider: create schema: %w", err)
	}
	return nil
}

// Import copies every code and edge of m into the database in one transaction
func (s *SQL) Import(ctx context.Context, m *Memory) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("provider: begin import: %w", err)
	}
	defer tx.Rollback()

	codes := m.Codes()
	names, _ := m.NamesOf(ctx, codes)
	for _, c := range codes {
		_, err := tx.NamedExecContext(ctx,
			`INSERT INTO concepts (code, name) VALUES (:code, :name)
			 ON CONFLICT (code) DO UPDATE SET name = EXCLUDED.name`,
			Concept{Code: string(c), Name: names[c]})
		if err != nil {
			return fmt.Errorf("provider: import concept %q: %w", c, err)
		}
	}

	edges := m.Edges()
	for _, e := range edges {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO relationships (parent, child) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			string(e.Parent), string(e.Child))
		if err != nil {
			return fmt.Errorf("provider: import edge %s -> %s: %w", e.Parent, e.Child, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("provider: commit import: %w", err)
	}

	s.log.Info().
		Int("concepts", len(codes)).
		Int("relationships", len(edges)).
		Msg("Imported coding system")
	return nil
}

// ParentsOf implements hierarchy.Provider
func (s *SQL) ParentsOf(ctx context.Context, code hierarchy.Code) ([]hierarchy.Code, error) {
	return s.adjacent(ctx, `SELECT parent FROM relationships WHERE child = $1 ORDER BY parent`, code)
}

// ChildrenOf implements hierarchy.Provider
func (s *SQL) ChildrenOf(ctx context.Context, code hierarchy.Code) ([]hierarchy.Code, error) {
	return s.adjacent(ctx, `SELECT child FROM relationships WHERE parent = $1 ORDER BY child`, code)
}

func (s *SQL) adjacent(ctx context.Context, query string, code hierarchy.Code) ([]hierarchy.Code, error) {
	var rows []string
	if err := s.db.SelectContext(ctx, &rows, query, string(code)); err != nil {
		return nil, fmt.Errorf("provider: query %q: %w", code, err)
	}

	// An empty result is either a root or leaf, or a code that does not exist
	if len(rows) == 0 {
		var exists bool
		err := s.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM concepts WHERE code = $1)`, string(code))
		if err != nil {
			return nil, fmt.Errorf("provider: lookup %q: %w", code, err)
		}
		if !exists {
			return nil, &hierarchy.UnknownCodeError{Code: code}
		}
	}

	out := make([]hierarchy.Code, len(rows))
	for i, r := range rows {
		out[i] = hierarchy.Code(r)
	}
	return out, nil
}

// NamesOf implements hierarchy.Provider
func (s *SQL) NamesOf(ctx context.Context, codes []hierarchy.Code) (map[hierarchy.Code]string, error) {
	out := make(map[hierarchy.Code]string, len(codes))
	if len(codes) == 0 {
		return out, nil
	}

	query, args, err := sqlx.In(`SELECT code, name FROM concepts WHERE code IN (?)`, hierarchy.Strings(codes))
	if err != nil {
		return nil, fmt.Errorf("provider: build names query: %w", err)
	}

	var rows []Concept
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("provider: query names: %w", err)
	}

	for _, r := range rows {
		out[hierarchy.Code(r.Code)] = r.Name
	}
	s.log.Debug().Int("requested", len(codes)).Int("found", len(rows)).Msg("Fetched concept names")
	return out, nil
}
