package tcputils

import (
	"errors"
	"net"
)

const (
	SERVER_NO_ERR                = 600
	SERVER_MALFORMED_REQUEST_ERR = 601
	SERVER_MALFORMED_BODY_ERR    = 602
	SERVER_IO_ERR                = 603
	SERVER_HANDLER_ERR           = 604
	SERVER_LISTENER_ERR          = 605
	SERVER_TIMEOUT_ERR           = 606

	REASON_MALFORMED_REQUEST = "MALFORMED_REQUEST"
	REASON_MALFORMED_BODY    = "MALFORMED_BODY"
	REASON_READ_FAILED       = "READ_FAILED"
	REASON_WRITE_FAILED      = "WRITE_FAILED"
	REASON_HANDLER_FAILED    = "HANDLER_FAILED"
	REASON_LISTENER_FAILED   = "LISTENER_FAILED"
	REASON_TIMED_OUT         = "TIMED_OUT"
)

// EvalError separates deadline expiries from other connection I/O errors.
func EvalError(err error) (int, string) {

	if err == nil {
		return SERVER_NO_ERR, ""
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return SERVER_TIMEOUT_ERR, REASON_TIMED_OUT
	}

	return SERVER_IO_ERR, REASON_WRITE_FAILED
}
