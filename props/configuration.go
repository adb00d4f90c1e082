package props

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/Returtless/http-server/model"
)

const (
	HSP_K_LISTENER_PORT        = "LISTENER_PORT"
	HSP_K_POOL_SIZE            = "POOL_SIZE"
	HSP_K_CONN_TIMEOUT         = "CONN_TIMEOUT"
	HSP_K_MAX_HEADER_BYTES     = "MAX_HEADER_BYTES"
	HSP_K_MAX_BODY_BYTES       = "MAX_BODY_BYTES"
	HSP_K_LOG_LEVEL            = "LOG_LEVEL"
	HSP_K_LOG_FILE             = "LOG_FILE"
	HSP_K_ENABLE_PROFILING_FOR = "ENABLE_PROFILING_FOR"

	HS_WD = "/opt/httpserver"

	DefaultListenerPort   = 9999
	DefaultPoolSize       = 64
	DefaultMaxHeaderBytes = 1 << 20
	DefaultMaxBodyBytes   = 10 << 20
)

var profilingModes = map[string]bool{"": true, "cpu": true, "mem": true, "mutex": true, "block": true, "trace": true}

// GetConfFileLocation returns the default path to hs.properties.
func GetConfFileLocation() string {
	return HS_WD + "/config/hs.properties"
}

// GetConfiguration reads a KEY=VALUE properties file. Blank lines and lines
// starting with '#' are ignored, as are unknown keys.
func GetConfiguration(confFilePath string) (model.Config, error) {

	var cfg model.Config

	file, err := os.Open(confFilePath)
	if err != nil {
		return cfg, err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		sline := strings.TrimSpace(scanner.Text())
		if sline == "" || strings.HasPrefix(sline, "#") {
			continue
		}

		kvpart := strings.SplitN(sline, "=", 2)
		if len(kvpart) != 2 {
			return cfg, fmt.Errorf("%s:%d: expected KEY=VALUE", confFilePath, lineNo)
		}
		kvpart[0], kvpart[1] = strings.TrimSpace(kvpart[0]), strings.TrimSpace(kvpart[1])

		if cfg, err = populate(cfg, kvpart); err != nil {
			return cfg, fmt.Errorf("%s:%d: %w", confFilePath, lineNo, err)
		}
	}

	return cfg, scanner.Err()
}

// populate maps one key/value pair onto the matching config field.
func populate(cfg model.Config, kvpart []string) (model.Config, error) {

	var err error

	switch kvpart[0] {
	case HSP_K_LISTENER_PORT:
		cfg.ListenerPort = kvpart[1]
	case HSP_K_POOL_SIZE:
		cfg.PoolSize, err = strconv.ParseInt(kvpart[1], 10, 64)
	case HSP_K_CONN_TIMEOUT:
		var timeout int64
		timeout, err = strconv.ParseInt(kvpart[1], 10, 32)
		cfg.ConnTimeout = int32(timeout)
	case HSP_K_MAX_HEADER_BYTES:
		cfg.MaxHeaderBytes, err = strconv.ParseInt(kvpart[1], 10, 64)
	case HSP_K_MAX_BODY_BYTES:
		cfg.MaxBodyBytes, err = strconv.ParseInt(kvpart[1], 10, 64)
	case HSP_K_LOG_LEVEL:
		cfg.LogLevel = strings.ToLower(kvpart[1])
	case HSP_K_LOG_FILE:
		cfg.LogFile = kvpart[1]
	case HSP_K_ENABLE_PROFILING_FOR:
		cfg.EnableProfilingFor = strings.ToLower(kvpart[1])
	}

	if err != nil {
		return cfg, fmt.Errorf("invalid %s: %w", kvpart[0], err)
	}

	return cfg, nil
}

// Validate checks the values that cannot be defaulted.
func Validate(cfg model.Config) error {

	if cfg.ListenerPort != "" {
		port, err := strconv.Atoi(cfg.ListenerPort)
		if err != nil || port < 1 || port > 65535 {
			return fmt.Errorf("invalid %s %q", HSP_K_LISTENER_PORT, cfg.ListenerPort)
		}
	}
	if cfg.PoolSize < 0 {
		return fmt.Errorf("invalid %s %d", HSP_K_POOL_SIZE, cfg.PoolSize)
	}
	if cfg.MaxHeaderBytes < 0 || cfg.MaxBodyBytes < 0 {
		return fmt.Errorf("invalid %s/%s", HSP_K_MAX_HEADER_BYTES, HSP_K_MAX_BODY_BYTES)
	}
	if _, err := LogLevel(cfg); err != nil {
		return fmt.Errorf("invalid %s: %w", HSP_K_LOG_LEVEL, err)
	}
	if !profilingModes[cfg.EnableProfilingFor] {
		return fmt.Errorf("invalid %s %q", HSP_K_ENABLE_PROFILING_FOR, cfg.EnableProfilingFor)
	}

	return nil
}

// LogLevel returns the configured zerolog level, info when unset.
func LogLevel(cfg model.Config) (zerolog.Level, error) {

	if cfg.LogLevel == "" {
		return zerolog.InfoLevel, nil
	}

	return zerolog.ParseLevel(cfg.LogLevel)
}

// GetAssignedProperties returns the runtime properties for cfg with
// defaults filled in. cfg must have passed Validate.
func GetAssignedProperties(cfg model.Config) *model.ServerProperties {

	sp := &model.ServerProperties{
		ListenerPort:   DefaultListenerPort,
		PoolSize:       DefaultPoolSize,
		ConnTimeout:    time.Duration(cfg.ConnTimeout) * time.Millisecond,
		MaxHeaderBytes: DefaultMaxHeaderBytes,
		MaxBodyBytes:   DefaultMaxBodyBytes,
	}

	if port, err := strconv.Atoi(cfg.ListenerPort); err == nil {
		sp.ListenerPort = port
	}
	if cfg.PoolSize > 0 {
		sp.PoolSize = int(cfg.PoolSize)
	}
	if cfg.MaxHeaderBytes > 0 {
		sp.MaxHeaderBytes = cfg.MaxHeaderBytes
	}
	if cfg.MaxBodyBytes > 0 {
		sp.MaxBodyBytes = cfg.MaxBodyBytes
	}

	return sp
}
