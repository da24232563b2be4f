package http

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"
)

const EncodingGzip = "gzip"

// AcceptsGzip reports whether the Accept-Encoding header lists gzip with a
// non-zero quality.
func AcceptsGzip(req *Request) bool {
	v, found := req.HeaderValue(HeaderAcceptEncoding)
	if !found {
		return false
	}
	for _, token := range strings.Split(v, ",") {
		token, params, _ := strings.Cut(token, ";")
		if strings.EqualFold(strings.TrimSpace(token), EncodingGzip) {
			return !zeroQuality(params)
		}
	}
	return false
}

// zeroQuality reports whether params carries q=0, which marks a coding as
// not acceptable.
func zeroQuality(params string) bool {
	for _, param := range strings.Split(params, ";") {
		name, value, found := strings.Cut(param, "=")
		if !found || !strings.EqualFold(strings.TrimSpace(name), "q") {
			continue
		}
		q, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		return err == nil && q == 0
	}
	return false
}

// EncodeGzip replaces the body with its gzip form and fixes up the
// Content-Encoding and Content-Length headers.
func EncodeGzip(res *Response) error {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(res.Body); err != nil {
		return fmt.Errorf("http: gzip body: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("http: gzip close: %w", err)
	}

	res.Body = buf.Bytes()
	res.Headers.Add(HeaderContentEncoding, EncodingGzip)
	res.Headers.Set(HeaderContentLength, strconv.Itoa(len(res.Body)))
	return nil
}

// Negotiate applies the content encoding the request asks for, if supported.
func Negotiate(req *Request, res *Response) error {
	if !AcceptsGzip(req) {
		return nil
	}
	return EncodeGzip(res)
}
