package http

import (
	"bytes"
	"io"
	"strconv"
)

type Response struct {
	Status     uint16
	StatusText string
	Headers    Headers
	Body       []byte
}

func NewResponse(status uint16) *Response {
	return &Response{
		Status:     status,
		StatusText: StatusText(status),
		Headers:    Headers{},
	}
}

func (res *Response) WithStatus(status uint16) *Response {
	res.Status = status
	res.StatusText = StatusText(status)
	return res
}

func (res *Response) WithHeader(name, value string) *Response {
	res.Headers.Add(name, value)
	return res
}

// WithText sets a plain-text body along with its type and length headers.
func (res *Response) WithText(payload string) *Response {
	return res.WithBody("text/plain", []byte(payload))
}

func (res *Response) WithBody(contentType string, payload []byte) *Response {
	res.Headers.Set(HeaderContentType, contentType)
	res.Headers.Set(HeaderContentLength, strconv.Itoa(len(payload)))
	res.Body = payload
	return res
}

// Bytes serializes the response. The body is appended as-is.
func (res *Response) Bytes() []byte {
	var buf bytes.Buffer
	buf.Grow(64 + len(res.Body))

	buf.WriteString(protocolHttp11)
	buf.WriteByte(' ')
	buf.WriteString(strconv.Itoa(int(res.Status)))
	buf.WriteByte(' ')
	buf.WriteString(res.StatusText)
	buf.Write(crlf)

	for _, h := range res.Headers {
		buf.WriteString(h.Name)
		buf.WriteString(headerSep)
		buf.WriteString(h.Value)
		buf.Write(crlf)
	}
	buf.Write(crlf)
	buf.Write(res.Body)

	return buf.Bytes()
}

func (res *Response) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(res.Bytes())
	return int64(n), err
}
