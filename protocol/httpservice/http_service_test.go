package httpservice

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Returtless/http-server/errorlog"
	"github.com/Returtless/http-server/model"
	"github.com/Returtless/http-server/routing"
	"github.com/Returtless/http-server/tcputils"
)

// fakeConn is an in-memory net.Conn that records writes, closes and deadlines.
type fakeConn struct {
	in       io.Reader
	out      bytes.Buffer
	writeErr error
	closed   int
	deadline time.Time
	mu       sync.Mutex
}

func newFakeConn(raw string) *fakeConn {
	return &fakeConn{in: strings.NewReader(raw)}
}

func (c *fakeConn) Read(p []byte) (int, error) { return c.in.Read(p) }

func (c *fakeConn) Write(p []byte) (int, error) {

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.writeErr != nil {
		return 0, c.writeErr
	}
	return c.out.Write(p)
}

func (c *fakeConn) Close() error {

	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed++
	return nil
}

func (c *fakeConn) LocalAddr() net.Addr  { return &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 9999} }
func (c *fakeConn) RemoteAddr() net.Addr { return &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 50000} }

func (c *fakeConn) SetDeadline(t time.Time) error      { c.deadline = t; return nil }
func (c *fakeConn) SetReadDeadline(t time.Time) error  { return nil }
func (c *fakeConn) SetWriteDeadline(t time.Time) error { return nil }

func defaultProperties() *model.ServerProperties {

	return &model.ServerProperties{
		PoolSize:       64,
		MaxHeaderBytes: 1 << 20,
		MaxBodyBytes:   1 << 20,
	}
}

func execute(t *testing.T, conn *fakeConn, routes *routing.Table, el *errorlog.ErrorLog) {

	t.Helper()

	httpSrv, err := New(defaultProperties(), routes, el, WithIncomingTCPConn(conn))
	if err != nil {
		t.Fatalf("could not create service: %v\n", err)
	}
	httpSrv.Execute()
}

func TestExecuteRegisteredHandler(t *testing.T) {

	var seen []*model.Request
	routes := routing.New()
	routes.Register("GET", "/hello", model.HandlerFunc(func(req *model.Request, out *bufio.Writer) error {
		seen = append(seen, req)
		_, err := out.WriteString("HTTP/1.1 200 OK\r\nContent-Length: 2\r\n\r\nhi")
		return err
	}))

	conn := newFakeConn("GET /hello HTTP/1.1\r\n\r\n")
	el := errorlog.NewNop()
	execute(t, conn, routes, el)

	if len(seen) != 1 {
		t.Fatalf("handler called %d times\n", len(seen))
	}
	if seen[0].Method() != "GET" || seen[0].Path() != "/hello" {
		t.Errorf("wrong request, method=%s path=%s\n", seen[0].Method(), seen[0].Path())
	}
	if conn.out.String() != "HTTP/1.1 200 OK\r\nContent-Length: 2\r\n\r\nhi" {
		t.Errorf("unflushed or wrong response --> %q\n", conn.out.String())
	}
	if conn.closed != 1 {
		t.Errorf("conn closed %d times\n", conn.closed)
	}
}

func TestExecuteNotFound(t *testing.T) {

	routes := routing.New()
	routes.Register("GET", "/hello", model.HandlerFunc(func(req *model.Request, out *bufio.Writer) error {
		t.Errorf("registered handler must not run for %s %s\n", req.Method(), req.Path())
		return nil
	}))

	var params = []struct {
		name string
		raw  string
	}{
		{"unknown path", "GET /unknown HTTP/1.1\r\n\r\n"},
		{"unknown method", "POST /hello HTTP/1.1\r\n\r\n"},
		{"trailing slash", "GET /hello/ HTTP/1.1\r\nHost: localhost\r\n\r\n"},
	}

	for _, prm := range params {
		conn := newFakeConn(prm.raw)
		execute(t, conn, routes, errorlog.NewNop())

		if conn.out.String() != "HTTP/1.1 404 Not Found\r\nContent-Length: 0\r\nConnection: close\r\n\r\n" {
			t.Errorf("wrong not found response, case=%s --> %q\n", prm.name, conn.out.String())
		}
		if conn.closed != 1 {
			t.Errorf("conn not closed, case=%s --> %d\n", prm.name, conn.closed)
		}
	}
}

func TestExecuteMalformedRequest(t *testing.T) {

	var params = []struct {
		name string
		raw  string
	}{
		{"two tokens", "GET /\r\n\r\n"},
		{"empty stream", ""},
		{"no blank line", "GET / HTTP/1.1\r\nHost: localhost\r\n"},
		{"header without colon", "GET / HTTP/1.1\r\nHost\r\n\r\n"},
	}

	for _, prm := range params {
		conn := newFakeConn(prm.raw)
		el := errorlog.NewNop()
		execute(t, conn, routing.New(), el)

		if conn.out.Len() != 0 {
			t.Errorf("malformed request must be closed silently, case=%s --> %q\n", prm.name, conn.out.String())
		}
		if conn.closed != 1 {
			t.Errorf("conn not closed, case=%s --> %d\n", prm.name, conn.closed)
		}
		if c := el.ErrorCount(tcputils.SERVER_MALFORMED_REQUEST_ERR); c != 1 {
			t.Errorf("malformed request not reported, case=%s --> %d\n", prm.name, c)
		}
	}
}

func TestExecuteMalformedBody(t *testing.T) {

	var got *model.Request
	routes := routing.New()
	routes.Register("POST", "/form", model.HandlerFunc(func(req *model.Request, out *bufio.Writer) error {
		got = req
		return nil
	}))

	raw := "POST /form HTTP/1.1\r\n" +
		"Content-Type: application/x-www-form-urlencoded\r\n" +
		"Content-Length: abc\r\n" +
		"\r\n" +
		"name=Ann"

	conn := newFakeConn(raw)
	el := errorlog.NewNop()
	execute(t, conn, routes, el)

	if got == nil {
		t.Fatalf("handler not invoked\n")
	}
	if len(got.PostParams()) != 0 {
		t.Errorf("post params must be empty --> %v\n", got.PostParams())
	}
	if c := el.ErrorCount(tcputils.SERVER_MALFORMED_BODY_ERR); c != 1 {
		t.Errorf("malformed body not reported --> %d\n", c)
	}
}

func TestExecuteHandlerFailures(t *testing.T) {

	var params = []struct {
		name    string
		handler model.HandlerFunc
	}{
		{"error", func(req *model.Request, out *bufio.Writer) error {
			return errors.New("database unavailable")
		}},
		{"panic", func(req *model.Request, out *bufio.Writer) error {
			panic("nil map")
		}},
	}

	for _, prm := range params {
		routes := routing.New()
		routes.Register("GET", "/boom", prm.handler)

		conn := newFakeConn("GET /boom HTTP/1.1\r\n\r\n")
		el := errorlog.NewNop()
		execute(t, conn, routes, el)

		if conn.closed != 1 {
			t.Errorf("conn not closed, case=%s --> %d\n", prm.name, conn.closed)
		}
		if c := el.ErrorCount(tcputils.SERVER_HANDLER_ERR); c != 1 {
			t.Errorf("handler failure not reported, case=%s --> %d\n", prm.name, c)
		}
	}
}

func TestExecuteWriteFailure(t *testing.T) {

	conn := newFakeConn("GET /unknown HTTP/1.1\r\n\r\n")
	conn.writeErr = io.ErrClosedPipe
	el := errorlog.NewNop()
	execute(t, conn, routing.New(), el)

	if conn.closed != 1 {
		t.Errorf("conn not closed --> %d\n", conn.closed)
	}
	if c := el.ErrorCount(tcputils.SERVER_IO_ERR); c != 1 {
		t.Errorf("write failure must be reported once --> %d\n", c)
	}
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

type errorReader struct {
	err error
}

func (r errorReader) Read(p []byte) (int, error) { return 0, r.err }

func TestExecuteReadFailure(t *testing.T) {

	var params = []struct {
		name     string
		in       io.Reader
		wantCode int
	}{
		{"timeout before request line", errorReader{timeoutErr{}}, tcputils.SERVER_TIMEOUT_ERR},
		{"timeout inside headers", io.MultiReader(strings.NewReader("GET / HTTP/1.1\r\n"), errorReader{timeoutErr{}}), tcputils.SERVER_TIMEOUT_ERR},
		{"reset before request line", errorReader{errors.New("connection reset by peer")}, tcputils.SERVER_IO_ERR},
	}

	for _, prm := range params {
		conn := &fakeConn{in: prm.in}
		el := errorlog.NewNop()
		execute(t, conn, routing.New(), el)

		if c := el.ErrorCount(prm.wantCode); c != 1 {
			t.Errorf("read failure must be reported once as %d, case=%s --> %d\n", prm.wantCode, prm.name, c)
		}
		if c := el.ErrorCount(tcputils.SERVER_MALFORMED_REQUEST_ERR); c != 0 {
			t.Errorf("read failure reported as malformed, case=%s --> %d\n", prm.name, c)
		}
		if conn.out.Len() != 0 {
			t.Errorf("nothing must be written, case=%s --> %q\n", prm.name, conn.out.String())
		}
		if conn.closed != 1 {
			t.Errorf("conn not closed, case=%s --> %d\n", prm.name, conn.closed)
		}
	}
}

func TestNotFoundHandler(t *testing.T) {

	var out bytes.Buffer
	w := bufio.NewWriter(&out)
	req := model.NewRequest("GET", "/x", "HTTP/1.1", "/x", nil, nil, nil, strings.NewReader(""))

	if err := NotFoundHandler().Handle(req, w); err != nil {
		t.Fatalf("unexpected error --> %v\n", err)
	}
	if out.String() != "HTTP/1.1 404 Not Found\r\nContent-Length: 0\r\nConnection: close\r\n\r\n" {
		t.Errorf("wrong not found response --> %q\n", out.String())
	}
}

func TestExecuteSetsDeadline(t *testing.T) {

	sp := defaultProperties()
	sp.ConnTimeout = 5 * time.Second

	conn := newFakeConn("GET / HTTP/1.1\r\n\r\n")
	httpSrv, err := New(sp, routing.New(), errorlog.NewNop(), WithIncomingTCPConn(conn))
	if err != nil {
		t.Fatalf("could not create service: %v\n", err)
	}
	httpSrv.Execute()

	if conn.deadline.IsZero() {
		t.Errorf("deadline not applied\n")
	}

	conn = newFakeConn("GET / HTTP/1.1\r\n\r\n")
	execute(t, conn, routing.New(), errorlog.NewNop())
	if !conn.deadline.IsZero() {
		t.Errorf("deadline applied without a timeout --> %v\n", conn.deadline)
	}
}

func TestNewRequiresConn(t *testing.T) {

	if _, err := New(defaultProperties(), routing.New(), errorlog.NewNop()); err == nil {
		t.Errorf("expected error without a connection\n")
	}
	if _, err := New(defaultProperties(), routing.New(), errorlog.NewNop(), WithIncomingTCPConn(nil)); err == nil {
		t.Errorf("expected error for a nil connection\n")
	}
}
