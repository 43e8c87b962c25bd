package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"
)

// DefaultURL is the manifest loaded when no source is given: the
// prometheus-operator bundle, which holds a dozen large CRDs.
const DefaultURL = "https://raw.githubusercontent.com/prometheus-operator/prometheus-operator/refs/heads/main/bundle.yaml"

// MaxSize bounds the bytes read from any source.
const MaxSize = 64 << 20

var (
	// ErrInvalidArgument indicates an invalid source argument or flag
	// combination.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrHTTPStatus indicates a URL source answered with a non-2xx status.
	ErrHTTPStatus = errors.New("unexpected http status")
	// ErrTooLarge indicates a source exceeded [MaxSize].
	ErrTooLarge = errors.New("source too large")
)

// Source produces the raw text of a manifest stream. Load may be called
// repeatedly to reload.
type Source interface {
	Load(ctx context.Context) ([]byte, error)
	String() string
}

// Parse returns the [Source] for a command-line argument: a [URL] for
// http(s) addresses, a [Reader] over stdin for "-", and a [File] otherwise.
func Parse(arg string, stdin io.Reader) (Source, error) {
	switch {
	case arg == "":
		return nil, fmt.Errorf("%w: empty source", ErrInvalidArgument)
	case arg == "-":
		return NewReader("stdin", stdin), nil
	case strings.HasPrefix(arg, "http://"), strings.HasPrefix(arg, "https://"):
		return NewURL(arg), nil
	}

	return NewFile(arg), nil
}

// URL loads a manifest with an HTTP GET.
type URL struct {
	client *http.Client
	url    string
}

// URLOption configures a [URL].
type URLOption func(*URL)

// WithHTTPClient sets the client used for requests.
func WithHTTPClient(c *http.Client) URLOption {
	return func(u *URL) {
		u.client = c
	}
}

// WithTimeout sets the timeout of the default client.
func WithTimeout(d time.Duration) URLOption {
	return func(u *URL) {
		u.client = &http.Client{Timeout: d}
	}
}

// NewURL creates a [URL] source.
func NewURL(url string, opts ...URLOption) *URL {
	u := &URL{
		url:    url,
		client: &http.Client{Timeout: 30 * time.Second},
	}

	for _, opt := range opts {
		opt(u)
	}

	return u
}

// Load fetches the URL.
func (u *URL) Load(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}

	req.Header.Set("Accept", "application/yaml, application/json;q=0.9, text/plain;q=0.8, */*;q=0.1")

	resp, err := u.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", u.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: get %s: %s", ErrHTTPStatus, u.url, resp.Status)
	}

	return readLimited(resp.Body)
}

func (u *URL) String() string {
	return u.url
}

// File loads a manifest from the filesystem.
type File struct {
	path string
}

// NewFile creates a [File] source.
func NewFile(path string) *File {
	return &File{path: path}
}

// Load reads the file.
func (f *File) Load(_ context.Context) ([]byte, error) {
	fh, err := os.Open(f.path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()

	return readLimited(fh)
}

// Path returns the file path, for watching.
func (f *File) Path() string {
	return f.path
}

func (f *File) String() string {
	return f.path
}

// Reader loads a manifest from an [io.Reader]. The reader is consumed on the
// first Load and later loads return the same bytes.
type Reader struct {
	r    io.Reader
	err  error
	name string
	data []byte
	once sync.Once
}

// NewReader creates a [Reader] source named name.
func NewReader(name string, r io.Reader) *Reader {
	return &Reader{name: name, r: r}
}

// Load reads the underlying reader once.
func (r *Reader) Load(_ context.Context) ([]byte, error) {
	r.once.Do(func() {
		r.data, r.err = readLimited(r.r)
	})

	return r.data, r.err
}

func (r *Reader) String() string {
	return r.name
}

// Text is a manifest already in memory, such as pasted text.
type Text struct {
	name string
	data []byte
}

// NewText creates a [Text] source named name.
func NewText(name string, data []byte) *Text {
	return &Text{name: name, data: bytes.Clone(data)}
}

// Load returns the text.
func (t *Text) Load(_ context.Context) ([]byte, error) {
	return t.data, nil
}

func (t *Text) String() string {
	return t.name
}

func readLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxSize+1))
	if err != nil {
		return nil, err
	}

	if len(data) > MaxSize {
		return nil, fmt.Errorf("%w: over %d bytes", ErrTooLarge, MaxSize)
	}

	return data, nil
}
