package client

import (
	"errors"
	"fmt"
)

// Error codes produced by the client itself. Failures reported by the server
// carry the server's own errorcode (see the protocol package).
const (
	CodeConnectFailed        = "connect_failed"
	CodeNotConnected         = "not_connected"
	CodeServiceRequestFailed = "service_request_failed"
	CodeDecodingFailed       = "decoding_failed"
	CodeDownloadTestFailed   = "download_test_failed"
)

var messages = map[string]string{
	CodeConnectFailed:        "Unable to connect to the server.  Try again later.",
	CodeNotConnected:         "Not connected to the server.",
	CodeServiceRequestFailed: "Failed to complete sending request to the server.",
	CodeDecodingFailed:       "Unable to decode the response from the server.",
	CodeDownloadTestFailed:   "Server disconnected.",
}

// Error is returned by every Client operation. Code is stable and matches
// the wire errorcode tokens.
type Error struct {
	Code    string
	Message string
	Err     error
}

func newError(code string, err error) *Error {
	return &Error{Code: code, Message: messages[code], Err: err}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s (%s): %v", e.Message, e.Code, e.Err)
	}
	return fmt.Sprintf("%s (%s)", e.Message, e.Code)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ErrorCode returns the code of a *Error in err's chain, or "" if there is none.
func ErrorCode(err error) string {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ""
}
