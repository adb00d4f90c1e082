package model

// DiagnosticSink receives everything the server would otherwise print.
type DiagnosticSink interface {
	LogGenericEvent(msg string)
	IncrementErrorCount(errCode int, errReason string, err error)
}
