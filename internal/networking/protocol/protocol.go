// Package protocol defines the newline-delimited JSON control protocol spoken
// between the speedtest server and the client driver.
//
// Every request and every non-streaming response is exactly one JSON object
// followed by '\n'. After a successful "download" ack the server streams raw
// hex digits ended by a single bare '\n'; after a successful "upload" ack the
// client does the same in the other direction.
package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"
)

const (
	ActionStats    = "stats"
	ActionLatency  = "latency"
	ActionDownload = "download"
	ActionUpload   = "upload"
)

// Terminator ends a raw streaming run. It is also the JSON line delimiter.
const Terminator = '\n'

// Error codes sent in the "errorcode" field.
const (
	CodeInvalidRequest = "invalid_request"
	CodeUnknownAction  = "unknown_action"
	CodeMissingSecs    = "missing_secs"
	CodeInvalidSecs    = "invalid_secs"
)

var errorMessages = map[string]string{
	CodeInvalidRequest: "Invalid request.",
	CodeUnknownAction:  "Unknown 'action'.",
	CodeMissingSecs:    "Missing the number of seconds (secs).",
	CodeInvalidSecs:    "Invalid number of seconds (secs).",
}

// ErrorMessage returns the human readable text paired with code.
func ErrorMessage(code string) string {
	return errorMessages[code]
}

// Request is one decoded request line.
type Request struct {
	Action *string         `json:"action"`
	Secs   json.RawMessage `json:"secs,omitempty"`
}

// Response is one response line. Optional fields are only emitted by the
// actions that produce them.
type Response struct {
	Success   bool     `json:"success"`
	Error     string   `json:"error,omitempty"`
	ErrorCode string   `json:"errorcode,omitempty"`
	Received  *int64   `json:"received,omitempty"`
	Sent      *int64   `json:"sent,omitempty"`
	TS        *float64 `json:"ts,omitempty"`
}

var ErrMissingSuccess = errors.New("response has no 'success' field")

// Failure builds the failed response for code.
func Failure(code string) Response {
	return Response{Success: false, Error: ErrorMessage(code), ErrorCode: code}
}

// Timestamp converts t to fractional unix seconds, the wire format of "ts".
func Timestamp(t time.Time) float64 {
	return float64(t.UnixMicro()) / 1e6
}

// TimeFromTimestamp is the inverse of Timestamp, accurate to the microsecond.
func TimeFromTimestamp(ts float64) time.Time {
	return time.UnixMicro(int64(math.Round(ts * 1e6)))
}

// ParseRequest decodes line (with or without its trailing '\n').
// A line that is not a JSON object, or whose "action" is absent or null, is
// rejected with CodeInvalidRequest. A non-string action is kept as its raw
// JSON text, which matches no known action.
func ParseRequest(line []byte) (Request, string) {
	line = bytes.TrimSuffix(line, []byte{Terminator})

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(line, &raw); err != nil || raw == nil {
		return Request{}, CodeInvalidRequest
	}
	rawAction := bytes.TrimSpace(raw["action"])
	if len(rawAction) == 0 || bytes.Equal(rawAction, []byte("null")) {
		return Request{}, CodeInvalidRequest
	}
	var action string
	if err := json.Unmarshal(rawAction, &action); err != nil {
		action = string(rawAction)
	}
	return Request{Action: &action, Secs: raw["secs"]}, ""
}

// ParseSecs validates the "secs" field of a download request.
func ParseSecs(raw json.RawMessage) (int64, string) {
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, CodeMissingSecs
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0, CodeInvalidSecs
	}
	if f < 1 || f != math.Trunc(f) || f > math.MaxInt32 {
		return 0, CodeInvalidSecs
	}
	return int64(f), ""
}

// EncodeLine marshals v as a single JSON line.
func EncodeLine(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode line: %w", err)
	}
	return append(b, Terminator), nil
}

// AppendResponse appends resp as a JSON line to dst. Response always
// marshals, so the error path is unreachable in practice.
func AppendResponse(dst []byte, resp Response) []byte {
	line, err := EncodeLine(resp)
	if err != nil {
		line, _ = EncodeLine(Failure(CodeInvalidRequest))
	}
	return append(dst, line...)
}

// wireResponse is Response with "success" left undecoded, so any JSON type
// can stand in for it.
type wireResponse struct {
	Success json.RawMessage `json:"success"`
	Response
}

// DecodeResponse parses one response line. Lines that are not a JSON object
// or whose "success" is absent or null are rejected. Any other "success"
// value is read by its truthiness: false, 0, "", "0", [] and {} are false.
func DecodeResponse(line []byte) (Response, error) {
	line = bytes.TrimSuffix(line, []byte{Terminator})

	var wire wireResponse
	if err := json.Unmarshal(line, &wire); err != nil {
		return Response{}, fmt.Errorf("decode response: %w", err)
	}
	rawSuccess := bytes.TrimSpace(wire.Success)
	if len(rawSuccess) == 0 || bytes.Equal(rawSuccess, []byte("null")) {
		return Response{}, ErrMissingSuccess
	}

	resp := wire.Response
	resp.Success = truthy(rawSuccess)
	return resp, nil
}

func truthy(raw json.RawMessage) bool {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return false
	}
	switch x := v.(type) {
	case bool:
		return x
	case float64:
		return x != 0
	case string:
		return x != "" && x != "0"
	case []any:
		return len(x) > 0
	case map[string]any:
		return len(x) > 0
	default:
		return false
	}
}
