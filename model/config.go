package model

// Config mirrors the keys of hs.properties as read from disk.
// Zero values mean the key was absent; defaults are applied later.
type Config struct {
	ListenerPort       string
	PoolSize           int64
	ConnTimeout        int32
	MaxHeaderBytes     int64
	MaxBodyBytes       int64
	LogLevel           string
	LogFile            string
	EnableProfilingFor string
}
