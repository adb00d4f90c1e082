package httpservice

import (
	"bufio"
	"errors"
	"fmt"
	"net"

	"github.com/Returtless/http-server/model"
	"github.com/Returtless/http-server/protocol/httprequest"
	"github.com/Returtless/http-server/routing"
	"github.com/Returtless/http-server/tcputils"
)

var _ model.NetService = &HTTPService{}

const notFoundResponse = "HTTP/1.1 404 Not Found\r\n" +
	"Content-Length: 0\r\n" +
	"Connection: close\r\n" +
	"\r\n"

var notFoundHandler model.Handler = model.HandlerFunc(func(req *model.Request, out *bufio.Writer) error {

	if _, err := out.WriteString(notFoundResponse); err != nil {
		return err
	}

	return out.Flush()
})

// NotFoundHandler returns the handler that answers every request with no
// registered route.
func NotFoundHandler() model.Handler {
	return notFoundHandler
}

// HTTPService serves exactly one request on one accepted connection.
type HTTPService struct {
	inTCPConn   net.Conn
	inTCPReader *bufio.Reader
	inTCPWriter *bufio.Writer
	parser      *httprequest.Parser
	routes      *routing.Table
	sink        model.DiagnosticSink
	properties  *model.ServerProperties
}

type HTTPServiceOption func(*HTTPService) error

// New builds the per-connection flow. Without WithParser a parser is
// derived from sp and reports malformed bodies to sink.
func New(sp *model.ServerProperties, routes *routing.Table, sink model.DiagnosticSink, httpSrvOptions ...HTTPServiceOption) (*HTTPService, error) {

	httpSrv := &HTTPService{
		routes:     routes,
		sink:       sink,
		properties: sp,
	}

	for _, httpSrvOption := range httpSrvOptions {
		if err := httpSrvOption(httpSrv); err != nil {
			return nil, err
		}
	}

	if httpSrv.inTCPConn == nil {
		return nil, errors.New("no-conn")
	}
	if httpSrv.parser == nil {
		httpSrv.parser = NewParser(sp, sink)
	}

	return httpSrv, nil
}

// NewParser returns a request parser configured from sp whose body errors
// are counted by sink.
func NewParser(sp *model.ServerProperties, sink model.DiagnosticSink) *httprequest.Parser {

	return httprequest.New(
		httprequest.WithMaxHeaderBytes(sp.MaxHeaderBytes),
		httprequest.WithMaxBodyBytes(sp.MaxBodyBytes),
		httprequest.WithBodyErrorHook(func(err error) {
			sink.IncrementErrorCount(tcputils.SERVER_MALFORMED_BODY_ERR, tcputils.REASON_MALFORMED_BODY, err)
		}),
	)
}

// WithIncomingTCPConn assigns a tcp conn and binds reader/writer to http service
func WithIncomingTCPConn(tcpConn net.Conn) HTTPServiceOption {

	return func(httpSrv *HTTPService) error {

		if tcpConn == nil {
			return errors.New("nil-conn")
		}
		httpSrv.inTCPConn = tcpConn
		httpSrv.inTCPReader = bufio.NewReader(tcpConn)
		httpSrv.inTCPWriter = bufio.NewWriter(tcpConn)

		return nil
	}
}

// WithParser shares one parser between connections.
func WithParser(parser *httprequest.Parser) HTTPServiceOption {

	return func(httpSrv *HTTPService) error {
		httpSrv.parser = parser
		return nil
	}
}

// Read parses the request waiting on the connection.
func (httpSrv *HTTPService) Read() (*model.Request, error) {
	return httpSrv.parser.Parse(httpSrv.inTCPReader)
}

// Execute reads one request, dispatches it and closes the connection.
// Every failure is reported to the sink; none is returned or re-panicked.
func (httpSrv *HTTPService) Execute() {

	healthy := true
	defer func() {
		httpSrv.forceCloseConn(healthy)
	}()

	if err := tcputils.SetTCPDeadline(httpSrv.inTCPConn, httpSrv.properties.ConnTimeout); err != nil {
		code, _ := tcputils.EvalError(err)
		httpSrv.sink.IncrementErrorCount(code, tcputils.REASON_READ_FAILED, err)
	}

	req, err := httpSrv.Read()
	if err != nil {
		healthy = false
		if errors.Is(err, httprequest.ErrMalformedRequest) {
			httpSrv.sink.IncrementErrorCount(tcputils.SERVER_MALFORMED_REQUEST_ERR, tcputils.REASON_MALFORMED_REQUEST, err)
		} else {
			code, reason := tcputils.EvalError(err)
			if code == tcputils.SERVER_IO_ERR {
				reason = tcputils.REASON_READ_FAILED
			}
			httpSrv.sink.IncrementErrorCount(code, reason, err)
		}
		return
	}

	handler, found := httpSrv.routes.Resolve(req.Method(), req.Path())
	if !found {
		if err := notFoundHandler.Handle(req, httpSrv.inTCPWriter); err != nil {
			healthy = false
			code, reason := tcputils.EvalError(err)
			httpSrv.sink.IncrementErrorCount(code, reason, err)
		}
		return
	}

	if err := httpSrv.invoke(handler, req); err != nil {
		healthy = false
		httpSrv.sink.IncrementErrorCount(tcputils.SERVER_HANDLER_ERR, tcputils.REASON_HANDLER_FAILED,
			fmt.Errorf("%s %s: %w", req.Method(), req.Path(), err))
	}
}

// invoke runs handler, turning a panic into an error.
func (httpSrv *HTTPService) invoke(handler model.Handler, req *model.Request) (err error) {

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()

	return handler.Handle(req, httpSrv.inTCPWriter)
}

// forceCloseConn flushes whatever the handler left buffered and closes the
// connection. Flush failures are only reported for otherwise healthy
// connections so one broken write is not counted twice.
func (httpSrv *HTTPService) forceCloseConn(reportFlush bool) {

	if err := httpSrv.inTCPWriter.Flush(); err != nil && reportFlush {
		code, reason := tcputils.EvalError(err)
		httpSrv.sink.IncrementErrorCount(code, reason, err)
	}

	httpSrv.inTCPConn.Close()
}
