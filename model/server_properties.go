package model

import (
	"time"
)

// ServerProperties holds the resolved runtime settings shared by the
// listener and every connection worker. It is read-only once serving starts.
type ServerProperties struct {
	ListenerPort   int
	PoolSize       int
	ConnTimeout    time.Duration // <= 0 disables the per-connection deadline
	MaxHeaderBytes int64
	MaxBodyBytes   int64
}
