package protocol

import (
	"time"
)

//go:generate mockgen -source=engine.go -destination=mocks/session.go -package=mocks

// Session is the per-connection state the engine reads and mutates.
// It is only ever called from the goroutine that owns the connection.
type Session interface {
	// Counters returns the cumulative raw bytes received and sent.
	Counters() (received, sent int64)
	// StartDownload switches the connection into streaming until deadline.
	StartDownload(deadline time.Time)
	// StartUpload switches the connection into discarding inbound bytes up to
	// the next terminator.
	StartUpload()
}

// Engine dispatches request lines. It holds no per-connection state.
type Engine struct {
	clock Clock
}

func NewEngine(clock Clock) *Engine {
	if clock == nil {
		clock = SystemClock()
	}
	return &Engine{clock: clock}
}

// Handle processes one complete request line for s and returns the response.
// A mode switch, if any, has been applied to s when Handle returns.
func (e *Engine) Handle(line []byte, s Session) Response {
	req, code := ParseRequest(line)
	if code != "" {
		return Failure(code)
	}

	switch *req.Action {
	case ActionStats:
		received, sent := s.Counters()
		return Response{Success: true, Received: &received, Sent: &sent}

	case ActionLatency:
		ts := Timestamp(e.clock.Now())
		return Response{Success: true, TS: &ts}

	case ActionDownload:
		secs, code := ParseSecs(req.Secs)
		if code != "" {
			return Failure(code)
		}
		deadline := e.clock.Now().Add(time.Duration(secs) * time.Second)
		s.StartDownload(deadline)
		ts := Timestamp(deadline)
		return Response{Success: true, TS: &ts}

	case ActionUpload:
		s.StartUpload()
		return Response{Success: true}

	default:
		return Failure(CodeUnknownAction)
	}
}
