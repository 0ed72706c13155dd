// Package loader fetches raw table sources and decodes structured documents
// into records.
//
// A source is addressed by a Locator: either a Path (local path, file:// URI or
// http(s) URL) or any name-bearing handle that can read itself, such as a
// go-fs File. FileLoader reads the bytes, removes a UTF-8 BOM or decodes a
// configured legacy charset, and hands back text.
package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/domonda/go-types/charset"
	fs "github.com/ungerik/go-fs"
)

var (
	// ErrNotFound is returned for local paths that do not exist.
	ErrNotFound = errors.New("source not found")
	// ErrHTTPStatus is returned for HTTP responses outside 2xx.
	ErrHTTPStatus = errors.New("unexpected HTTP status")
	// ErrUnreadable is returned for locators FileLoader cannot read.
	ErrUnreadable = errors.New("locator cannot be read")
)

// Locator identifies a source. Name is used for format detection.
type Locator interface {
	Name() string
}

// Path is the string form of a Locator.
type Path string

// Name returns the path itself.
func (p Path) Name() string { return string(p) }

// ContextReader is implemented by handles that read their own content, for
// example fs.File and fs.FileReader.
type ContextReader interface {
	ReadAllContext(ctx context.Context) ([]byte, error)
}

// FileLoader loads text and JSON from local files, go-fs handles and HTTP URLs.
type FileLoader struct {
	// Encoding is the charset of loaded text. Empty means UTF-8.
	Encoding string
	// Client is used for http and https locators. nil uses http.DefaultClient.
	Client *http.Client
}

// LoadText returns the decoded text behind loc.
func (l *FileLoader) LoadText(ctx context.Context, loc Locator) (string, error) {
	data, err := l.LoadBytes(ctx, loc)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// LoadJSON returns the JSON value behind loc. Malformed content is reported
// with an error wrapping ErrDecode.
func (l *FileLoader) LoadJSON(ctx context.Context, loc Locator) (any, error) {
	text, err := l.LoadText(ctx, loc)
	if err != nil {
		return nil, err
	}
	return DecodeJSON(text)
}

// LoadBytes returns the raw content behind loc after charset handling.
func (l *FileLoader) LoadBytes(ctx context.Context, loc Locator) ([]byte, error) {
	if loc == nil {
		return nil, fmt.Errorf("%w: nil locator", ErrUnreadable)
	}
	data, err := l.read(ctx, loc)
	if err != nil {
		return nil, err
	}
	return l.decodeCharset(data)
}

func (l *FileLoader) read(ctx context.Context, loc Locator) ([]byte, error) {
	if r, ok := loc.(ContextReader); ok {
		return r.ReadAllContext(ctx)
	}
	p, ok := loc.(Path)
	if !ok {
		return nil, fmt.Errorf("%w: %T", ErrUnreadable, loc)
	}
	name := string(p)
	if IsURL(name) {
		return l.fetch(ctx, name)
	}
	f := fs.File(name)
	if !f.Exists() {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return f.ReadAllContext(ctx)
}

func (l *FileLoader) fetch(ctx context.Context, url string) ([]byte, error) {
	client := l.Client
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s returned %d", ErrHTTPStatus, url, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func (l *FileLoader) decodeCharset(data []byte) ([]byte, error) {
	if l.Encoding == "" || strings.EqualFold(l.Encoding, "UTF-8") {
		return charset.TrimBOM(data, charset.BOMUTF8), nil
	}
	enc, err := charset.GetEncoding(l.Encoding)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	decoded, err := enc.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDecode, l.Encoding, err)
	}
	return decoded, nil
}

// IsURL reports whether name is an http or https URL.
func IsURL(name string) bool {
	lower := strings.ToLower(name)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
