package loader

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memHandle struct {
	name string
	data []byte
	err  error
}

func (m memHandle) Name() string { return m.name }

func (m memHandle) ReadAllContext(context.Context) ([]byte, error) { return m.data, m.err }

type nameOnly string

func (n nameOnly) Name() string { return string(n) }

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestFileLoaderLocalFile(t *testing.T) {
	path := writeFile(t, "people.tab", "\xEF\xBB\xBFName\tAge\nAlice\t30\n")
	l := &FileLoader{}

	text, err := l.LoadText(context.Background(), Path(path))
	require.NoError(t, err)
	assert.Equal(t, "Name\tAge\nAlice\t30\n", text, "UTF-8 BOM is removed")
}

func TestFileLoaderMissingFile(t *testing.T) {
	l := &FileLoader{}
	_, err := l.LoadText(context.Background(), Path(filepath.Join(t.TempDir(), "nope.csv")))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileLoaderHandle(t *testing.T) {
	l := &FileLoader{}

	text, err := l.LoadText(context.Background(), memHandle{name: "x.csv", data: []byte("a,b")})
	require.NoError(t, err)
	assert.Equal(t, "a,b", text)

	boom := errors.New("boom")
	_, err = l.LoadText(context.Background(), memHandle{name: "x.csv", err: boom})
	assert.ErrorIs(t, err, boom)
}

func TestFileLoaderUnreadableLocator(t *testing.T) {
	l := &FileLoader{}
	_, err := l.LoadText(context.Background(), nameOnly("x.csv"))
	assert.ErrorIs(t, err, ErrUnreadable)

	_, err = l.LoadText(context.Background(), nil)
	assert.ErrorIs(t, err, ErrUnreadable)
}

func TestFileLoaderCharset(t *testing.T) {
	l := &FileLoader{Encoding: "ISO 8859-1"}
	text, err := l.LoadText(context.Background(), memHandle{name: "x.tab", data: []byte("Gr\xf6\xdfe")})
	require.NoError(t, err)
	assert.Equal(t, "Größe", text)

	l = &FileLoader{Encoding: "no-such-charset"}
	_, err = l.LoadText(context.Background(), memHandle{name: "x.tab", data: []byte("x")})
	assert.ErrorIs(t, err, ErrDecode)
}

func TestFileLoaderHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/data.json":
			_, _ = w.Write([]byte(`[{"name":"Alice"}]`))
		case "/broken.json":
			_, _ = w.Write([]byte(`[{"name":`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	l := &FileLoader{Client: srv.Client()}

	v, err := l.LoadJSON(context.Background(), Path(srv.URL+"/data.json"))
	require.NoError(t, err)
	assert.Equal(t, []any{map[string]any{"name": "Alice"}}, v)

	_, err = l.LoadJSON(context.Background(), Path(srv.URL+"/broken.json"))
	assert.ErrorIs(t, err, ErrDecode)

	_, err = l.LoadText(context.Background(), Path(srv.URL+"/missing.tab"))
	assert.ErrorIs(t, err, ErrHTTPStatus)
	assert.NotErrorIs(t, err, ErrDecode)
}

func TestIsURL(t *testing.T) {
	assert.True(t, IsURL("https://example.com/a.csv"))
	assert.True(t, IsURL("HTTP://example.com"))
	assert.False(t, IsURL("/tmp/a.csv"))
	assert.False(t, IsURL("file:///tmp/a.csv"))
}
