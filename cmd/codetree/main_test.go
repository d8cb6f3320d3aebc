package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nainya/codetree/pkg/definition"
	"github.com/nainya/codetree/pkg/hierarchy"
)

const elbowFixture = "../../pkg/provider/testdata/elbow.yaml"

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append(args,
		"--fixture", elbowFixture,
		"--log-level", "error",
		"--env-file", filepath.Join(t.TempDir(), ".env"),
	))

	err := cmd.Execute()
	return out.String(), err
}

func TestTreeCommand(t *testing.T) {
	out, err := run(t, "", "tree", "35185008")
	require.NoError(t, err)

	want := "35185008 (Enthesopathy of elbow region)\n" +
		"└─ 73583000 (Epicondylitis)\n" +
		"   └─ 202855006 (Lateral epicondylitis)\n"
	assert.Equal(t, want, out)
}

func TestTreeCommandRootsOnly(t *testing.T) {
	// 73583000 is already below 35185008, so it is not printed as a second root
	out, err := run(t, "", "tree", "73583000", "35185008", "--sort", "code")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "35185008 "), out)
	assert.Len(t, strings.Split(strings.TrimSpace(out), "\n"), 3)
}

func TestTreeCommandErrors(t *testing.T) {
	_, err := run(t, "", "tree", "999")
	assert.ErrorIs(t, err, hierarchy.ErrUnknownCode)

	_, err = run(t, "", "tree", "35185008", "--sort", "size")
	assert.ErrorContains(t, err, "unknown sort")

	_, err = run(t, "", "tree")
	assert.Error(t, err)
}

func TestSearchCommand(t *testing.T) {
	out, err := run(t, "", "search", "--term", "epicondylitis")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "2 matching, 2 total", lines[0])
	assert.Equal(t, "73583000 (Epicondylitis) *", lines[1])
	assert.Equal(t, "└─ 202855006 (Lateral epicondylitis) *", lines[2])

	_, err = run(t, "", "search")
	assert.Error(t, err)
}

func TestDefineAndExpand(t *testing.T) {
	codes := []string{"128133004", "429554009", "439656005", "202855006", "35185008", "73583000"}

	out, err := run(t, "", append([]string{"define"}, codes...)...)
	require.NoError(t, err)
	assert.Equal(t,
		"128133004 (Disorder of elbow) and all descendants\n"+
			"  except 239964003 (Soft tissue lesion of elbow region)\n",
		out)

	def, err := run(t, "", append([]string{"define", "--json"}, codes...)...)
	require.NoError(t, err)

	// through a file
	path := filepath.Join(t.TempDir(), "def.json")
	require.NoError(t, os.WriteFile(path, []byte(def), 0o600))
	expanded, err := run(t, "", "expand", path)
	require.NoError(t, err)
	assert.Equal(t, "128133004\n202855006\n35185008\n429554009\n439656005\n73583000\n", expanded)

	// and through stdin
	expanded, err = run(t, def, "expand", "-")
	require.NoError(t, err)
	assert.Equal(t, "128133004\n202855006\n35185008\n429554009\n439656005\n73583000\n", expanded)
}

func TestExpandRejectsBadDefinitions(t *testing.T) {
	_, err := run(t, `{"rules": [{"code": "128133004", "polarity": "maybe"}]}`, "expand", "-")
	assert.ErrorContains(t, err, "parse definition")

	overlap := `{"rules": [
		{"code": "128133004", "polarity": "include", "applies_to_descendants": true},
		{"code": "35185008", "polarity": "include", "applies_to_descendants": true}
	]}`
	_, err = run(t, overlap, "expand", "-")
	assert.Error(t, err)

	repeated := `{"rules": [
		{"code": "35185008", "polarity": "include"},
		{"code": "35185008", "polarity": "exclude"}
	]}`
	_, err = run(t, repeated, "expand", "-")
	assert.ErrorIs(t, err, definition.ErrInvalidDefinition)
}

func TestImportNeedsDSN(t *testing.T) {
	t.Setenv("CODETREE_DSN", "")
	_, err := run(t, "", "import")
	assert.ErrorContains(t, err, "--dsn")
}
