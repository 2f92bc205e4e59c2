package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeGo(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

func TestLint(t *testing.T) {
	dir := t.TempDir()
	writeGo(t, dir, "a_ok.go", "package q\n\nconst QGood = `--sql 0d6f1c1e-5a55-4b7a-9d61-2a7f7f0f3c11\nselect 1;\n`\n\nconst Label = \"not sql\"\n")
	writeGo(t, dir, "b_bad.go", "package q\n\nconst QBare = \"select * from content_requests\"\n\nconst QDup = `--sql 0d6f1c1e-5a55-4b7a-9d61-2a7f7f0f3c11\nupdate content_requests set status = 'error';\n`\n")
	writeGo(t, dir, "c_bad_test.go", "package q\n\nconst QIgnored = \"delete from content_requests\"\n")

	violations, err := lint([]string{dir})
	require.NoError(t, err)
	require.Len(t, violations, 2)

	messages := map[string]string{}
	for _, v := range violations {
		messages[v.name] = v.message
	}
	assert.Equal(t, "missing or invalid --sql <uuid> marker", messages["QBare"])
	assert.Equal(t, "marker already used by QGood", messages["QDup"])
}

func TestLintRepositoryQueries(t *testing.T) {
	violations, err := lint([]string{filepath.Join("..", "..", "sqlinline")})
	require.NoError(t, err)
	assert.Empty(t, violations)
}

func TestFirstLine(t *testing.T) {
	assert.Equal(t, "--sql x", firstLine("\n  --sql x\nselect 1"))
	assert.Equal(t, "select 1", firstLine("select 1"))
}
