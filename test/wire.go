// Package test holds helpers for tests that speak raw HTTP/1.1 on a
// connection.
package test

import (
	"bufio"
	"bytes"
	"io"
	"net"
	nethttp "net/http"
	"strconv"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
)

// RawRequest builds a request with a Content-Length header when body is not
// empty. headers are "Name: value" lines.
func RawRequest(method, path string, body []byte, headers ...string) []byte {
	var buf bytes.Buffer
	buf.WriteString(method + " " + path + " HTTP/1.1\r\n")
	buf.WriteString("Host: localhost:4221\r\n")
	for _, h := range headers {
		buf.WriteString(h + "\r\n")
	}
	if len(body) > 0 {
		buf.WriteString("Content-Length: " + strconv.Itoa(len(body)) + "\r\n")
	}
	buf.WriteString("\r\n")
	buf.Write(body)
	return buf.Bytes()
}

// RoundTrip writes raw to a pipe served by serve and returns every byte the
// server wrote before closing its end.
func RoundTrip(t testing.TB, serve func(conn net.Conn), raw []byte) []byte {
	t.Helper()

	serverConn, clientConn := net.Pipe()
	defer clientConn.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		serve(serverConn)
	}()

	go func() {
		// The server may answer and close before reading everything.
		clientConn.Write(raw)
	}()

	out, err := io.ReadAll(clientConn)
	if err != nil && err != io.ErrClosedPipe {
		t.Fatalf("reading response: %v", err)
	}
	<-done

	return out
}

// ParseResponse reads raw as an HTTP/1.1 response and returns it together with
// its body.
func ParseResponse(t testing.TB, raw []byte) (*nethttp.Response, []byte) {
	t.Helper()

	res, err := nethttp.ReadResponse(bufio.NewReader(bytes.NewReader(raw)), nil)
	if err != nil {
		t.Fatalf("parsing response %q: %v", raw, err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("reading response body: %v", err)
	}
	return res, body
}

// HeaderLines returns the header lines of raw in wire order.
func HeaderLines(raw []byte) []string {
	head, _, _ := bytes.Cut(raw, []byte("\r\n\r\n"))
	lines := strings.Split(string(head), "\r\n")
	return lines[1:]
}

func Gunzip(t testing.TB, data []byte) []byte {
	t.Helper()

	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("gzip reader: %v", err)
	}
	defer zr.Close()

	out, err := io.ReadAll(zr)
	if err != nil {
		t.Fatalf("gunzip: %v", err)
	}
	return out
}
