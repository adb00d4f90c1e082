package profiling

import (
	"fmt"

	"github.com/pkg/profile"
)

// Stopper flushes a running profile to disk.
type Stopper interface {
	Stop()
}

type nopStopper struct{}

func (nopStopper) Stop() {}

// Mode maps an ENABLE_PROFILING_FOR value to a pkg/profile mode.
func Mode(profilingFor string) (func(*profile.Profile), error) {

	switch profilingFor {
	case "cpu":
		return profile.CPUProfile, nil
	case "mem":
		return profile.MemProfile, nil
	case "mutex":
		return profile.MutexProfile, nil
	case "block":
		return profile.BlockProfile, nil
	case "trace":
		return profile.TraceProfile, nil
	}

	return nil, fmt.Errorf("unknown profiling mode %q", profilingFor)
}

// Start begins profiling when profilingFor is set and writes the profile
// under dir. The caller stops it on shutdown; no signal hook is installed.
func Start(profilingFor string, dir string) (Stopper, error) {

	if profilingFor == "" {
		return nopStopper{}, nil
	}

	mode, err := Mode(profilingFor)
	if err != nil {
		return nil, err
	}

	return profile.Start(mode, profile.ProfilePath(dir), profile.NoShutdownHook, profile.Quiet), nil
}
