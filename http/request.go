package http

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

var (
	ErrMalformedRequest = errors.New("http: malformed request line")
	ErrRequestTooLarge  = errors.New("http: request exceeds maximum size")
)

type Request struct {
	Method   string
	Path     string
	Segments []string
	Headers  Headers
	Body     []byte
}

// ParseRequest turns the raw bytes read from a connection into a Request.
//
// The header section is decoded leniently: invalid UTF-8 is replaced and blank
// lines are skipped. Bytes following the first blank line are the body, cut to
// Content-Length when the header is present. Without Content-Length, header
// lines lacking ": " are body content placed before those bytes. Trailing NUL
// padding is never part of the body.
func ParseRequest(buf []byte) (*Request, error) {
	buf = bytes.TrimLeft(buf, " \t\r\n")
	buf = bytes.TrimRight(buf, "\x00")

	head, rest, _ := bytes.Cut(buf, headerEnd)

	var lines []string
	for _, line := range strings.Split(strings.TrimSpace(strings.ToValidUTF8(string(head), "\uFFFD")), "\r\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	if len(lines) == 0 {
		return nil, ErrMalformedRequest
	}

	requestLine := strings.Split(lines[0], " ")
	if len(requestLine) < 2 {
		return nil, fmt.Errorf("%w: %q", ErrMalformedRequest, lines[0])
	}

	req := Request{
		Method:   requestLine[0],
		Path:     requestLine[1],
		Segments: splitPath(requestLine[1]),
		Headers:  make(Headers, 0, len(lines)-1),
	}

	var stray []byte
	for _, line := range lines[1:] {
		name, value, found := strings.Cut(line, headerSep)
		if !found {
			stray = append(stray, line...)
			continue
		}
		req.Headers.Add(name, value)
	}

	body := rest
	if n, ok := req.ContentLength(); ok {
		if n < len(body) {
			body = body[:n]
		}
	} else {
		body = append(stray, rest...)
	}
	req.Body = bytes.TrimRight(body, "\x00")

	return &req, nil
}

func splitPath(path string) []string {
	segments := make([]string, 0, strings.Count(path, "/"))
	for _, segment := range strings.Split(path, "/") {
		if segment == "" {
			continue
		}
		segments = append(segments, segment)
	}
	return segments
}

// Segment returns the path segment at index i, or "" when out of range.
func (req *Request) Segment(i int) string {
	if i < 0 || i >= len(req.Segments) {
		return ""
	}
	return req.Segments[i]
}

func (req *Request) HeaderValue(name string) (string, bool) {
	return req.Headers.Get(name)
}

func (req *Request) ContentLength() (int, bool) {
	v, found := req.Headers.Get(HeaderContentLength)
	if !found {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// ReadRequest reads from r in chunks of bufferSize until the header section is
// complete and the declared Content-Length has arrived, or the peer stops
// sending. More than maxSize bytes yields ErrRequestTooLarge.
func ReadRequest(r io.Reader, bufferSize, maxSize int) ([]byte, error) {
	if bufferSize <= 0 {
		bufferSize = DefaultReadBufferSize
	}
	if maxSize < bufferSize {
		maxSize = bufferSize
	}

	buf := make([]byte, 0, bufferSize)
	chunk := make([]byte, bufferSize)
	for {
		n, err := r.Read(chunk)
		buf = append(buf, chunk[:n]...)
		if len(buf) > maxSize {
			return nil, ErrRequestTooLarge
		}

		if complete, tooLarge := requestComplete(buf, maxSize); tooLarge {
			return nil, ErrRequestTooLarge
		} else if complete {
			return buf, nil
		}

		if err != nil {
			if errors.Is(err, io.EOF) && len(buf) > 0 {
				return buf, nil
			}
			return nil, err
		}
	}
}

func requestComplete(buf []byte, maxSize int) (complete bool, tooLarge bool) {
	head, body, found := bytes.Cut(bytes.TrimLeft(buf, " \t\r\n"), headerEnd)
	if !found {
		return false, false
	}

	length := 0
	for _, line := range bytes.Split(head, crlf) {
		name, value, ok := bytes.Cut(line, []byte(headerSep))
		if !ok || !equalFold(string(name), HeaderContentLength) {
			continue
		}
		n, err := strconv.Atoi(string(bytes.TrimSpace(value)))
		if err != nil || n < 0 {
			break
		}
		length = n
		break
	}

	if length > maxSize-len(head)-len(headerEnd) {
		return false, true
	}
	return len(body) >= length, false
}
