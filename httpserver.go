package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/Returtless/http-server/errorlog"
	"github.com/Returtless/http-server/profiling"
	"github.com/Returtless/http-server/props"
	"github.com/Returtless/http-server/server"
)

// main loads hs.properties, wires the error log, profiling and sample
// handlers, and serves until SIGINT/SIGTERM.
func main() {

	confFilePath := flag.String("config", props.GetConfFileLocation(), "path to hs.properties")
	flag.Parse()

	cfg, sp, err := getProperties(*confFilePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Could not read %s -- %s\n", *confFilePath, err.Error())
		os.Exit(1)
	}

	logOut, err := getLogWriter(cfg.LogFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Could not open log file %s -- %s\n", cfg.LogFile, err.Error())
		os.Exit(1)
	}
	defer logOut.Close()

	level, _ := props.LogLevel(cfg)
	el := errorlog.New(logOut, level)
	logger := el.Logger()

	prof, err := profiling.Start(cfg.EnableProfilingFor, filepath.Join(props.HS_WD, "profiles"))
	if err != nil {
		logger.Fatal().Err(err).Msg("could not start profiling")
	}

	srv := server.New(sp, el)
	registerHandlers(srv)

	csig := make(chan os.Signal, 1)
	signal.Notify(csig, syscall.SIGINT, syscall.SIGTERM)
	go hookInterrupt(csig, srv)

	logger.Info().
		Int("port", sp.ListenerPort).
		Int("pool_size", sp.PoolSize).
		Int("routes", srv.Routes().Len()).
		Msg("starting http server")

	err = srv.Listen(sp.ListenerPort)
	prof.Stop()

	if err != nil && !errors.Is(err, server.ErrServerClosed) {
		logger.Error().Err(err).Msg("http server stopped")
		os.Exit(1)
	}
	logger.Info().Msg("http server stopped")
}

// hookInterrupt closes srv on the first termination signal, which lets
// Listen return and in-flight connections finish.
func hookInterrupt(csig chan os.Signal, srv *server.Server) {

	<-csig
	srv.Close()
}

func getLogWriter(logFile string) (io.WriteCloser, error) {

	if logFile == "" {
		return nopWriteCloser{os.Stderr}, nil
	}

	return errorlog.OpenLogFile(logFile)
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
