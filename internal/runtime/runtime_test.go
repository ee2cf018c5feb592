package runtime

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pipeweld/pipeweld/internal/codegen"
)

func TestForLanguage(t *testing.T) {
	for lang, name := range map[codegen.Language]string{
		codegen.LangPython: "python",
		codegen.LangSQL:    "sql",
		codegen.LangSpark:  "spark",
		"SQL":              "sql",
	} {
		rt, ok := ForLanguage(lang)
		require.True(t, ok, "language %q", lang)
		assert.Equal(t, name, rt.Name())
	}

	_, ok := ForLanguage("cobol")
	assert.False(t, ok)
}

func TestDuckDBParsesStubOutput(t *testing.T) {
	stub := filepath.Join(t.TempDir(), "duckdb")
	script := "#!/bin/sh\nprintf 'name,age\\nana,17\\nbo,22\\n'\n"
	require.NoError(t, os.WriteFile(stub, []byte(script), 0o755))

	d := &DuckDB{Bin: stub}
	out, err := d.Execute(context.Background(), "SELECT 1")
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "age"}, out.Columns)
	assert.Equal(t, [][]any{{"ana", int64(17)}, {"bo", int64(22)}}, out.Rows)
}

func TestExecuteReportsStderrOnFailure(t *testing.T) {
	stub := filepath.Join(t.TempDir(), "python3")
	script := "#!/bin/sh\necho 'NameError: boom' >&2\nexit 1\n"
	require.NoError(t, os.WriteFile(stub, []byte(script), 0o755))

	p := &Python{Bin: stub}
	_, err := p.Execute(context.Background(), "result = broken")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "python runtime")
	assert.Contains(t, err.Error(), "NameError: boom")
}

func TestExecuteReadsResultFile(t *testing.T) {
	// The stub ignores the program and writes the expected result file next
	// to it, like a real interpreter running the appended footer would.
	stub := filepath.Join(t.TempDir(), "python3")
	script := "#!/bin/sh\nprintf 'x\\n5\\n' > \"$(dirname \"$1\")/result.csv\"\n"
	require.NoError(t, os.WriteFile(stub, []byte(script), 0o755))

	p := &Python{Bin: stub}
	out, err := p.Execute(context.Background(), "result = something")
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, out.Columns)
	assert.Equal(t, [][]any{{int64(5)}}, out.Rows)
}
