package routes

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freekieb7/gravel-httpd/filesystem"
	"github.com/freekieb7/gravel-httpd/http"
)

type memoryFS struct {
	files    map[string][]byte
	writeErr error
}

func (fs *memoryFS) ReadFile(name string) ([]byte, error) {
	content, ok := fs.files[name]
	if !ok {
		return nil, filesystem.ErrFileNotFound
	}
	return content, nil
}

func (fs *memoryFS) WriteFile(name string, content []byte) error {
	if fs.writeErr != nil {
		return fs.writeErr
	}
	fs.files[name] = content
	return nil
}

func dispatch(t *testing.T, files filesystem.Filesystem, raw string) *http.Response {
	t.Helper()

	router := http.NewRouter()
	Register(&router, files)

	req, err := http.ParseRequest([]byte(raw))
	require.NoError(t, err)

	ctx := &http.RequestCtx{Request: req}
	require.NoError(t, router.Handler()(ctx))
	require.NotNil(t, ctx.Response)
	return ctx.Response
}

func TestRoot(t *testing.T) {
	res := dispatch(t, &memoryFS{}, "GET / HTTP/1.1\r\n\r\n")

	assert.Equal(t, http.StatusOK, res.Status)
	assert.Equal(t, "Hello, World!", string(res.Body))
	assert.Empty(t, res.Headers)
}

func TestUserAgent(t *testing.T) {
	res := dispatch(t, &memoryFS{}, "GET /user-agent HTTP/1.1\r\nUser-Agent: foo/1.0\r\n\r\n")
	assert.Equal(t, http.StatusOK, res.Status)
	assert.Equal(t, "foo/1.0", string(res.Body))
	assert.Equal(t, http.Headers{{Name: "Content-Type", Value: "text/plain"}, {Name: "Content-Length", Value: "7"}}, res.Headers)

	res = dispatch(t, &memoryFS{}, "POST /user-agent HTTP/1.1\r\n\r\n")
	assert.Equal(t, "unknown", string(res.Body))
}

func TestEcho(t *testing.T) {
	res := dispatch(t, &memoryFS{}, "GET /echo/banana HTTP/1.1\r\n\r\n")
	assert.Equal(t, http.StatusOK, res.Status)
	assert.Equal(t, "banana", string(res.Body))

	length, _ := res.Headers.Get(http.HeaderContentLength)
	assert.Equal(t, "6", length)

	for _, raw := range []string{"GET /echo/echo HTTP/1.1\r\n\r\n", "GET /echo HTTP/1.1\r\n\r\n", "GET /echo/ HTTP/1.1\r\n\r\n"} {
		res := dispatch(t, &memoryFS{}, raw)
		assert.Equal(t, http.StatusBadRequest, res.Status, raw)
	}
}

func TestFiles(t *testing.T) {
	fs := &memoryFS{files: map[string][]byte{}}

	res := dispatch(t, fs, "POST /files/notes.txt HTTP/1.1\r\nContent-Length: 5\r\n\r\nhello")
	assert.Equal(t, http.StatusCreated, res.Status)
	assert.Empty(t, res.Body)
	assert.Equal(t, []byte("hello"), fs.files["notes.txt"])

	res = dispatch(t, fs, "GET /files/notes.txt HTTP/1.1\r\n\r\n")
	assert.Equal(t, http.StatusOK, res.Status)
	assert.Equal(t, "hello", string(res.Body))
	contentType, _ := res.Headers.Get(http.HeaderContentType)
	assert.Equal(t, "application/octet-stream", contentType)

	// The last segment names the file.
	res = dispatch(t, fs, "GET /files/nested/notes.txt HTTP/1.1\r\n\r\n")
	assert.Equal(t, http.StatusOK, res.Status)

	res = dispatch(t, fs, "GET /files/other.txt HTTP/1.1\r\n\r\n")
	assert.Equal(t, http.StatusNotFound, res.Status)
	assert.Empty(t, res.Body)

	res = dispatch(t, fs, "HEAD /files/notes.txt HTTP/1.1\r\n\r\n")
	assert.Equal(t, http.StatusMethodNotAllowed, res.Status)
	allow, _ := res.Headers.Get(http.HeaderAllow)
	assert.Equal(t, "GET, POST", allow)
}

func TestFilesWriteFailure(t *testing.T) {
	res := dispatch(t, &memoryFS{writeErr: errors.New("read-only file system")},
		"POST /files/a HTTP/1.1\r\nContent-Length: 1\r\n\r\nx")
	assert.Equal(t, http.StatusInternalServerError, res.Status)

	res = dispatch(t, &memoryFS{writeErr: filesystem.ErrInvalidPath},
		"POST /files/a HTTP/1.1\r\nContent-Length: 1\r\n\r\nx")
	assert.Equal(t, http.StatusBadRequest, res.Status)
}

func TestFilesWriteFailureLoggedPerConnection(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil)).With("conn_id", "c-1")

	router := http.NewRouter()
	Register(&router, &memoryFS{writeErr: errors.New("filesystem: close a: disk full")})

	req, err := http.ParseRequest([]byte("POST /files/a HTTP/1.1\r\nContent-Length: 1\r\n\r\nx"))
	require.NoError(t, err)

	ctx := &http.RequestCtx{Request: req, Logger: logger}
	require.NoError(t, router.Handler()(ctx))

	assert.Equal(t, http.StatusInternalServerError, ctx.Response.Status)
	assert.Contains(t, logs.String(), "conn_id=c-1")
	assert.Contains(t, logs.String(), "disk full")
}

func TestUnknownRoute(t *testing.T) {
	res := dispatch(t, &memoryFS{}, "GET /teapot HTTP/1.1\r\n\r\n")

	assert.Equal(t, http.StatusNotFound, res.Status)
	assert.Empty(t, res.Body)
}
