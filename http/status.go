package http

import "fmt"

const (
	StatusOK      uint16 = 200
	StatusCreated uint16 = 201

	StatusBadRequest            uint16 = 400
	StatusNotFound              uint16 = 404
	StatusMethodNotAllowed      uint16 = 405
	StatusRequestEntityTooLarge uint16 = 413

	StatusInternalServerError uint16 = 500
	StatusServiceUnavailable  uint16 = 503
)

var statusMessages = map[uint16]string{
	StatusOK:      "OK",
	StatusCreated: "Created",

	StatusBadRequest:            "Bad Request",
	StatusNotFound:              "Not Found",
	StatusMethodNotAllowed:      "Method Not Allowed",
	StatusRequestEntityTooLarge: "Request Entity Too Large",

	StatusInternalServerError: "Internal Server Error",
	StatusServiceUnavailable:  "Service Unavailable",
}

func StatusText(status uint16) string {
	if msg, ok := statusMessages[status]; ok {
		return msg
	}
	return "Unknown Status Code"
}

// StatusError carries the status a failed handler should answer with.
type StatusError struct {
	Status uint16
	Err    error
}

func NewStatusError(status uint16, err error) *StatusError {
	return &StatusError{Status: status, Err: err}
}

func (e *StatusError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("http: %d %s", e.Status, StatusText(e.Status))
	}
	return fmt.Sprintf("http: %d %s: %v", e.Status, StatusText(e.Status), e.Err)
}

func (e *StatusError) Unwrap() error {
	return e.Err
}
