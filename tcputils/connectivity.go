package tcputils

import (
	"net"
	"time"
)

// SetTCPDeadline bounds the whole lifetime of conn. A non-positive timeout
// leaves the connection without a deadline.
func SetTCPDeadline(conn net.Conn, timeout time.Duration) error {

	if timeout > 0 {
		return conn.SetDeadline(time.Now().Add(timeout))
	}

	return nil
}
