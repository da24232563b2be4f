package http

import "github.com/freekieb7/gravel-httpd/config"

const (
	DefaultReadBufferSize = config.DefaultReadBufferSize
	MaxRequestSize        = config.DefaultMaxRequestSize
	DefaultQueueSize      = config.DefaultQueueSize
)

const (
	HeaderAcceptEncoding  = "Accept-Encoding"
	HeaderAllow           = "Allow"
	HeaderContentEncoding = "Content-Encoding"
	HeaderContentLength   = "Content-Length"
	HeaderContentType     = "Content-Type"
	HeaderUserAgent       = "User-Agent"
)

const (
	MethodGet  = "GET"
	MethodPost = "POST"
)

var (
	protocolHttp11 = "HTTP/1.1"
	crlf           = []byte("\r\n")
	headerEnd      = []byte("\r\n\r\n")
	headerSep      = ": "
)

// Header is a single name/value pair. Order and duplicates are preserved by
// the slices that carry them.
type Header struct {
	Name  string
	Value string
}

type Headers []Header

// Get returns the first value whose name matches case-insensitively.
func (headers Headers) Get(name string) (string, bool) {
	for _, h := range headers {
		if equalFold(h.Name, name) {
			return h.Value, true
		}
	}
	return "", false
}

func (headers *Headers) Add(name, value string) {
	*headers = append(*headers, Header{Name: name, Value: value})
}

// Set replaces the value of the first matching header in place, or appends a
// new header when none matches.
func (headers *Headers) Set(name, value string) {
	for i := range *headers {
		if equalFold((*headers)[i].Name, name) {
			(*headers)[i].Value = value
			return
		}
	}
	headers.Add(name, value)
}

func equalFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		if toLower(a[i]) != toLower(b[i]) {
			return false
		}
	}
	return true
}

func toLower(c byte) byte {
	if c >= 'A' && c <= 'Z' {
		return c + 'a' - 'A'
	}
	return c
}
