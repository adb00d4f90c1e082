package errorlog

import (
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"

	"github.com/Returtless/http-server/model"
)

var _ model.DiagnosticSink = &ErrorLog{}

// ErrorLog is the server's diagnostic sink. Every reported error is
// counted per code and written as a structured event.
type ErrorLog struct {
	logger     zerolog.Logger
	errorCount map[int]uint64
	ecMutex    sync.Mutex
}

// New returns an ErrorLog writing JSON events at or above level to w.
func New(w io.Writer, level zerolog.Level) *ErrorLog {

	return &ErrorLog{
		logger:     zerolog.New(w).Level(level).With().Timestamp().Str("component", "httpserver").Logger(),
		errorCount: make(map[int]uint64),
	}
}

// NewNop returns an ErrorLog that counts errors but writes nothing.
func NewNop() *ErrorLog {

	return &ErrorLog{
		logger:     zerolog.Nop(),
		errorCount: make(map[int]uint64),
	}
}

// OpenLogFile opens path for appending, creating it if needed.
func OpenLogFile(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
}

// Logger exposes the underlying logger for bootstrap messages.
func (el *ErrorLog) Logger() *zerolog.Logger {
	return &el.logger
}

func (el *ErrorLog) LogGenericEvent(msg string) {
	el.logger.Info().Msg(msg)
}

// IncrementErrorCount records one occurrence of errCode and logs it.
func (el *ErrorLog) IncrementErrorCount(errCode int, errReason string, err error) {

	el.ecMutex.Lock()
	el.errorCount[errCode]++
	el.ecMutex.Unlock()

	el.logServerError(errCode, errReason, err)
}

// ErrorCount returns how many times errCode was reported.
func (el *ErrorLog) ErrorCount(errCode int) uint64 {

	el.ecMutex.Lock()
	defer el.ecMutex.Unlock()

	return el.errorCount[errCode]
}

// ResetErrorCount zeroes the counter for errCode.
func (el *ErrorLog) ResetErrorCount(errCode int) {

	el.ecMutex.Lock()
	defer el.ecMutex.Unlock()

	el.errorCount[errCode] = 0
}

func (el *ErrorLog) logServerError(errCode int, errReason string, err error) {

	el.logger.Error().
		Int("code", errCode).
		Str("reason", errReason).
		Err(err).
		Msg("error detected")
}
