package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oakwood-commons/rowpick/internal/limiter"
)

const peopleCSV = `name,city,age
Alice,Boston,30
Bob,Denver,25
Carol,Boston,41
Dave,Austin,35
`

// execute runs a fresh root command with stdin and returns what it printed.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("COLUMNS", "80")

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func names(t *testing.T, out string) []string {
	t.Helper()
	var rows []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &rows), out)
	got := make([]string, len(rows))
	for i, r := range rows {
		got[i], _ = r["name"].(string)
	}
	return got
}

func TestRootPrintsAllRowsWithoutSelection(t *testing.T) {
	path := writeFile(t, "people.csv", peopleCSV)
	out, err := execute(t, "", path, "-o", "csv")
	require.NoError(t, err)
	assert.Equal(t, peopleCSV, out)
}

func TestRootSelectScript(t *testing.T) {
	path := writeFile(t, "people.csv", peopleCSV)

	tests := []struct {
		name string
		args []string
		want []string
	}{
		{name: "ctrl adds", args: []string{"--select", "1,ctrl:3"}, want: []string{"Bob", "Dave"}},
		{name: "shift range", args: []string{"--select", "0 shift:2"}, want: []string{"Alice", "Bob", "Carol"}},
		{name: "plain replaces", args: []string{"--select", "0,2"}, want: []string{"Carol"}},
		{name: "toggle", args: []string{"--select", "toggle:0,toggle:1,toggle:0"}, want: []string{"Bob"}},
		{name: "single mode", args: []string{"--mode", "single", "--select", "0,ctrl:1"}, want: []string{"Bob"}},
		// The range spans full row-set indices, so hidden Bob is included.
		{name: "range under search", args: []string{"--search", "bos", "--select", "0,shift:1"}, want: []string{"Alice", "Bob", "Carol"}},
		{name: "all ignores selection", args: []string{"--search", "bos", "--select", "0", "--all"}, want: []string{"Alice", "Carol"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{path, "-o", "json"}, tt.args...)
			out, err := execute(t, "", args...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, names(t, out))
		})
	}
}

func TestRootEmptySelectionPrintsEmptyList(t *testing.T) {
	path := writeFile(t, "people.csv", peopleCSV)
	out, err := execute(t, "", path, "-o", "json", "--mode", "single", "--select", "1,1")
	require.NoError(t, err)
	assert.Equal(t, "[]\n", out)
}

func TestRootSortFilterAndLimit(t *testing.T) {
	path := writeFile(t, "people.csv", peopleCSV)

	out, err := execute(t, "", path, "-o", "csv", "--sort", "age:desc", "--limit", "2")
	require.NoError(t, err)
	assert.Equal(t, "name,city,age\nCarol,Boston,41\nDave,Austin,35\n", out)

	out, err = execute(t, "", path, "-o", "csv", "--filter", `_.city == "Boston"`, "--tail", "1")
	require.NoError(t, err)
	assert.Equal(t, "name,city,age\nCarol,Boston,41\n", out)

	out, err = execute(t, "", path, "-o", "json", "--sort", "city", "--sort", "name:desc")
	require.NoError(t, err)
	assert.Equal(t, []string{"Dave", "Carol", "Alice", "Bob"}, names(t, out))
}

func TestRootStdin(t *testing.T) {
	t.Run("json sniffed", func(t *testing.T) {
		out, err := execute(t, `[{"name":"x","n":1},{"name":"y","n":2}]`, "-", "-o", "csv")
		require.NoError(t, err)
		assert.Equal(t, "n,name\n1,x\n2,y\n", out)
	})
	t.Run("tsv with columns", func(t *testing.T) {
		out, err := execute(t, "a\tb\n1\t2\n", "-c", "a,b", "-o", "csv")
		require.NoError(t, err)
		assert.Equal(t, "a,b\n1,2\n", out)
	})
	t.Run("explicit format", func(t *testing.T) {
		out, err := execute(t, "- name: x\n- name: y\n", "--format", "yaml", "-o", "csv")
		require.NoError(t, err)
		assert.Equal(t, "name\nx\ny\n", out)
	})
}

func TestRootStructuredFiles(t *testing.T) {
	yamlPath := writeFile(t, "people.yaml", "- name: Alice\n  age: 30\n- name: Bob\n  age: 25\n")
	out, err := execute(t, "", yamlPath, "-o", "csv", "--sort", "age")
	require.NoError(t, err)
	assert.Equal(t, "age,name\n25,Bob\n30,Alice\n", out)

	txtPath := writeFile(t, "people.txt", `[{"name":"Alice"}]`)
	out, err = execute(t, "", txtPath, "--json", "-o", "csv")
	require.NoError(t, err)
	assert.Equal(t, "name\nAlice\n", out)
}

func TestRootEncoding(t *testing.T) {
	path := filepath.Join(t.TempDir(), "latin1.csv")
	require.NoError(t, os.WriteFile(path, []byte("name\nJos\xe9\n"), 0o600))
	out, err := execute(t, "", path, "--encoding", "ISO 8859-1", "-o", "csv")
	require.NoError(t, err)
	assert.Equal(t, "name\nJosé\n", out)
}

func TestRootTableOutputUsesTitles(t *testing.T) {
	path := writeFile(t, "people.csv", peopleCSV)
	out, err := execute(t, "", path, "--no-color", "--title", "name=Person", "--select", "0", "--row-numbers")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "#  Person  city    age", lines[0])
	assert.Equal(t, "1  Alice   Boston  30", lines[2])
}

func TestRootConfigFile(t *testing.T) {
	cfgPath := writeFile(t, "config.yaml", `columns: [name, city]
column_defs:
  city:
    title: Town
picker:
  output: json
  mode: single
`)
	data := writeFile(t, "people.tsv", "name\tcity\nAlice\tBoston\nBob\tDenver\n")
	out, err := execute(t, "", data, "--config-file", cfgPath, "--select", "0,1")
	require.NoError(t, err)
	assert.Equal(t, []string{"Bob"}, names(t, out))

	out, err = execute(t, "", "config", "--config-file", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "mode: single")
	assert.Contains(t, out, "title: Town")
}

func TestRootExitCodes(t *testing.T) {
	path := writeFile(t, "people.csv", peopleCSV)
	tests := []struct {
		name string
		args []string
		code int
	}{
		{name: "unknown flag", args: []string{path, "--nope"}, code: 2},
		{name: "too many args", args: []string{path, path}, code: 2},
		{name: "limit and tail", args: []string{path, "--limit", "1", "--tail", "1"}, code: 2},
		{name: "bad mode", args: []string{path, "--mode", "many"}, code: 2},
		{name: "bad output", args: []string{path, "-o", "xml"}, code: 2},
		{name: "bad format", args: []string{"--format", "xml"}, code: 2},
		{name: "bad click", args: []string{path, "--select", "alt:1"}, code: 2},
		{name: "click out of range", args: []string{path, "--select", "9"}, code: 2},
		{name: "bad sort column", args: []string{path, "--sort", "height"}, code: 2},
		{name: "bad filter", args: []string{path, "--filter", "_.name +"}, code: 2},
		{name: "bad title", args: []string{path, "--title", "name"}, code: 2},
		{name: "all with interactive", args: []string{path, "--all", "-i"}, code: 2},
		{name: "missing file", args: []string{filepath.Join(t.TempDir(), "none.csv")}, code: 1},
		{name: "schema mismatch", args: []string{path, "-c", "name,city"}, code: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, "", tt.args...)
			require.Error(t, err)
			assert.Equal(t, tt.code, ExitCode(err), err.Error())
		})
	}
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, ExitCode(nil))
	assert.Equal(t, 1, ExitCode(errors.New("boom")))
	assert.Equal(t, 2, ExitCode(usageError(limiter.ErrConflict)))
	assert.Equal(t, 130, ExitCode(errCancelled))
	assert.Nil(t, usageError(nil))
	assert.ErrorIs(t, usageError(limiter.ErrConflict), limiter.ErrConflict)
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "", "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "rowpick "), out)
	assert.Contains(t, out, "go")

	out, err = execute(t, "", "--version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "rowpick "), out)
}
