package server

import (
	"bytes"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	protocolMocks "github.com/cubiclesoft/network-speedtest-cli/internal/networking/protocol/mocks"
	"github.com/cubiclesoft/network-speedtest-cli/internal/speedtest/filler"
	fillerMocks "github.com/cubiclesoft/network-speedtest-cli/internal/speedtest/filler/mocks"
	"go.uber.org/mock/gomock"
)

const testHWM = 1024

func newTestConnection(t *testing.T, now *time.Time) *Connection {
	t.Helper()
	ctrl := gomock.NewController(t)
	clock := protocolMocks.NewMockClock(ctrl)
	clock.EXPECT().Now().DoAndReturn(func() time.Time { return *now }).AnyTimes()

	srv := New(nil, Options{
		HighWaterMark: testHWM,
		MaxLineLength: 512,
		FlushTimeout:  50 * time.Millisecond,
		Clock:         clock,
		Filler:        filler.Pattern(),
	})
	return newConnection(srv, nil, nil)
}

func TestTopUpNeverExceedsHighWaterMark(t *testing.T) {
	t.Parallel()

	now := time.Unix(1700000000, 0)
	c := newTestConnection(t, &now)
	c.StartDownload(now.Add(2 * time.Second))

	if err := c.topUp(); err != nil {
		t.Fatalf("topUp: %v", err)
	}
	if len(c.out) != testHWM {
		t.Fatalf("len(out) = %d, want %d", len(c.out), testHWM)
	}

	// partial drain, then top up only the difference
	c.out = append(c.out[:0], c.out[100:]...)
	if err := c.topUp(); err != nil {
		t.Fatalf("topUp: %v", err)
	}
	if len(c.out) != testHWM {
		t.Fatalf("len(out) after refill = %d, want %d", len(c.out), testHWM)
	}
	if bytes.IndexByte(c.out, '\n') >= 0 {
		t.Fatal("filler must not contain the terminator before the deadline")
	}
}

func TestTopUpTerminatorWaitsForRoom(t *testing.T) {
	t.Parallel()

	now := time.Unix(1700000000, 0)
	c := newTestConnection(t, &now)
	deadline := now.Add(time.Second)
	c.StartDownload(deadline)
	_ = c.topUp()

	now = deadline
	_ = c.topUp()
	if c.mode != ModeDownloading {
		t.Fatalf("mode = %s, want downloading while the buffer is full", c.mode)
	}
	if len(c.out) != testHWM {
		t.Fatalf("len(out) = %d, want %d", len(c.out), testHWM)
	}

	c.out = c.out[:testHWM-1]
	_ = c.topUp()
	if c.mode != ModeIdle {
		t.Fatalf("mode = %s, want idle", c.mode)
	}
	if len(c.out) != testHWM || c.out[len(c.out)-1] != '\n' {
		t.Fatalf("expected exactly one terminator at the end of the buffer")
	}
	if bytes.Count(c.out, []byte{'\n'}) != 1 {
		t.Fatal("expected a single terminator")
	}

	// idle connections are not topped up
	c.out = c.out[:0]
	_ = c.topUp()
	if len(c.out) != 0 {
		t.Fatalf("idle topUp queued %d bytes", len(c.out))
	}
}

func TestTopUpPropagatesFillerError(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	src := fillerMocks.NewMockSource(ctrl)
	src.EXPECT().AppendHex(gomock.Any(), testHWM).Return(nil, io.ErrUnexpectedEOF)

	srv := New(nil, Options{HighWaterMark: testHWM, Filler: src})
	c := newConnection(srv, nil, nil)
	c.StartDownload(time.Now().Add(time.Hour))

	if err := c.topUp(); err == nil {
		t.Fatal("expected filler error")
	}
}

func TestProcessHandlesEveryLineInOrder(t *testing.T) {
	t.Parallel()

	now := time.Unix(1700000000, 0)
	c := newTestConnection(t, &now)
	c.in = []byte(`{"action":"stats"}` + "\n" + `{"action":"bogus"}` + "\n" + `{"action":"upl`)
	c.received = int64(len(c.in))

	c.process()

	lines := strings.Split(strings.TrimSuffix(string(c.out), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d responses: %q", len(lines), c.out)
	}
	if !strings.Contains(lines[0], `"success":true`) || !strings.Contains(lines[1], `"unknown_action"`) {
		t.Fatalf("unexpected responses %q", lines)
	}
	if string(c.in) != `{"action":"upl` {
		t.Fatalf("partial line must stay buffered, got %q", c.in)
	}
}

func TestProcessUploadDiscardsUpToTerminator(t *testing.T) {
	t.Parallel()

	now := time.Unix(1700000000, 0)
	c := newTestConnection(t, &now)
	c.in = []byte(`{"action":"upload"}` + "\n" + "abcdef")
	c.process()
	if c.mode != ModeUploading {
		t.Fatalf("mode = %s, want uploading", c.mode)
	}
	if len(c.in) != 0 {
		t.Fatalf("upload bytes must be discarded, got %q", c.in)
	}

	c.out = c.out[:0]
	c.in = append(c.in, []byte("0123\n"+`{"action":"stats"}`+"\n")...)
	c.process()
	if c.mode != ModeIdle {
		t.Fatalf("mode = %s, want idle after terminator", c.mode)
	}
	if !strings.Contains(string(c.out), `"received"`) {
		t.Fatalf("trailing request not answered: %q", c.out)
	}
}

func TestProcessDefersRequestsWhileDownloading(t *testing.T) {
	t.Parallel()

	now := time.Unix(1700000000, 0)
	c := newTestConnection(t, &now)
	c.in = []byte(`{"action":"download","secs":1}` + "\n" + `{"action":"stats"}` + "\n")
	c.process()

	if c.mode != ModeDownloading {
		t.Fatalf("mode = %s, want downloading", c.mode)
	}
	if bytes.Count(c.out, []byte{'\n'}) != 1 {
		t.Fatalf("only the download ack may be queued, got %q", c.out)
	}
	if string(c.in) != `{"action":"stats"}`+"\n" {
		t.Fatalf("stats request must wait, in = %q", c.in)
	}
	if c.canRead() {
		t.Fatal("downloading connection must not read")
	}
}

func TestProcessRejectsOversizedLine(t *testing.T) {
	t.Parallel()

	now := time.Unix(1700000000, 0)
	c := newTestConnection(t, &now)
	c.in = bytes.Repeat([]byte("x"), 600)
	c.process()

	if len(c.in) != 0 {
		t.Fatalf("oversized line must be dropped")
	}
	if !strings.Contains(string(c.out), "invalid_request") {
		t.Fatalf("expected invalid_request, got %q", c.out)
	}
}

func TestProcessAnswersOversizedLineOnce(t *testing.T) {
	t.Parallel()

	now := time.Unix(1700000000, 0)
	c := newTestConnection(t, &now)

	c.in = bytes.Repeat([]byte("a"), 600)
	c.process()
	c.in = append(c.in, bytes.Repeat([]byte("b"), 700)...)
	c.process()
	c.in = append(c.in, []byte("bbbbbbbbbb\n{\"action\":\"stats\"}\n")...)
	c.process()

	lines := strings.Split(strings.TrimSuffix(string(c.out), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 responses, got %d: %q", len(lines), c.out)
	}
	if !strings.Contains(lines[0], "invalid_request") {
		t.Fatalf("first response = %q, want invalid_request", lines[0])
	}
	if !strings.Contains(lines[1], `"success":true`) || !strings.Contains(lines[1], `"received"`) {
		t.Fatalf("second response = %q, want stats", lines[1])
	}
	if c.discarding || len(c.in) != 0 {
		t.Fatalf("discarding=%v in=%q after terminator", c.discarding, c.in)
	}
}

func TestProcessStopsWhenBacklogged(t *testing.T) {
	t.Parallel()

	now := time.Unix(1700000000, 0)
	c := newTestConnection(t, &now)
	c.in = bytes.Repeat([]byte(`{"action":"latency"}`+"\n"), 200)
	c.process()

	if len(c.out) > testHWM {
		t.Fatalf("outbound buffer %d exceeds the high-water mark", len(c.out))
	}
	if len(c.in) == 0 {
		t.Fatal("expected unanswered requests to stay buffered")
	}
	if c.canRead() {
		t.Fatal("backlogged connection must not read")
	}
}

func TestFlushKeepsRemainderOnTimeout(t *testing.T) {
	t.Parallel()

	now := time.Unix(1700000000, 0)
	c := newTestConnection(t, &now)
	local, remote := net.Pipe()
	defer local.Close()
	defer remote.Close()
	c.conn = local

	c.out = append(c.out, []byte("hello\n")...)
	if err := c.flush(); err != nil {
		t.Fatalf("flush with no reader: %v", err)
	}
	if string(c.out) != "hello\n" || c.sent != 0 {
		t.Fatalf("out = %q sent = %d after timed out flush", c.out, c.sent)
	}

	got := make(chan []byte, 1)
	go func() {
		buf := make([]byte, 6)
		_, _ = io.ReadFull(remote, buf)
		got <- buf
	}()
	if err := c.flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if string(<-got) != "hello\n" || c.sent != 6 || len(c.out) != 0 {
		t.Fatalf("flush did not deliver the buffer, sent = %d", c.sent)
	}

	remote.Close()
	c.out = append(c.out, 'x')
	if err := c.flush(); err == nil {
		t.Fatal("expected error writing to a closed peer")
	}
}
