package server

import (
	"errors"
	"net"
	"strconv"
	"sync"

	"github.com/Returtless/http-server/model"
	"github.com/Returtless/http-server/protocol/httprequest"
	"github.com/Returtless/http-server/protocol/httpservice"
	"github.com/Returtless/http-server/routing"
	"github.com/Returtless/http-server/tcputils"
)

var (
	// ErrServerClosed is returned by Serve and Listen after Close.
	ErrServerClosed = errors.New("server-closed")

	errAlreadyServing = errors.New("already-serving")
)

// Server accepts connections on one listener and hands each of them to a
// bounded worker pool. Handlers may be added before or while serving.
type Server struct {
	properties *model.ServerProperties
	routes     *routing.Table
	sink       model.DiagnosticSink
	parser     *httprequest.Parser
	pool       *WorkerPool

	mu       sync.Mutex
	listener net.Listener
	serving  bool
	closing  bool
	done     chan struct{}
}

// New creates a server using sp for limits and pool size and reporting to sink.
func New(sp *model.ServerProperties, sink model.DiagnosticSink) *Server {

	return &Server{
		properties: sp,
		routes:     routing.New(),
		sink:       sink,
		parser:     httpservice.NewParser(sp, sink),
		pool:       NewWorkerPool(sp.PoolSize),
		done:       make(chan struct{}),
	}
}

// AddHandler registers handler for the exact method and path.
func (s *Server) AddHandler(method, path string, handler model.Handler) {
	s.routes.Register(method, path, handler)
}

func (s *Server) Routes() *routing.Table {
	return s.routes
}

// Listen binds port on all interfaces and serves until Close or a fatal
// listener error.
func (s *Server) Listen(port int) error {

	listener, err := net.Listen("tcp", ":"+strconv.Itoa(port))
	if err != nil {
		s.sink.IncrementErrorCount(tcputils.SERVER_LISTENER_ERR, tcputils.REASON_LISTENER_FAILED, err)
		return err
	}

	return s.Serve(listener)
}

// Serve runs the accept loop on l. The loop only accepts and submits;
// when every worker is busy, submission blocks and no new connection is
// accepted until one finishes.
func (s *Server) Serve(l net.Listener) error {

	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		l.Close()
		return ErrServerClosed
	}
	if s.serving {
		s.mu.Unlock()
		return errAlreadyServing
	}
	s.listener = l
	s.serving = true
	s.mu.Unlock()

	defer close(s.done)
	defer l.Close()

	s.sink.LogGenericEvent("accepting connections on " + l.Addr().String())

	for {
		conn, err := l.Accept()
		if err != nil {
			if s.isClosing() {
				return ErrServerClosed
			}
			s.sink.IncrementErrorCount(tcputils.SERVER_LISTENER_ERR, tcputils.REASON_LISTENER_FAILED, err)
			return err
		}

		s.pool.Submit(func() {
			s.handleConnection(conn)
		})
	}
}

// Close stops accepting, then waits for in-flight connections to finish.
func (s *Server) Close() error {

	s.mu.Lock()
	s.closing = true
	listener := s.listener
	serving := s.serving
	s.mu.Unlock()

	var err error
	if listener != nil {
		if err = listener.Close(); errors.Is(err, net.ErrClosed) {
			err = nil
		}
	}
	if serving {
		<-s.done
	}
	s.pool.Wait()

	return err
}

func (s *Server) isClosing() bool {

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.closing
}

func (s *Server) handleConnection(conn net.Conn) {

	httpSrv, err := httpservice.New(s.properties, s.routes, s.sink,
		httpservice.WithIncomingTCPConn(conn),
		httpservice.WithParser(s.parser),
	)
	if err != nil {
		conn.Close()
		s.sink.IncrementErrorCount(tcputils.SERVER_IO_ERR, tcputils.REASON_READ_FAILED, err)
		return
	}

	httpSrv.Execute()
}
