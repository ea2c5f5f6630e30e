package main

import (
	"os"
	"runtime/pprof"
	"sync"

	"github.com/rs/zerolog/log"
)

// startCPUProfile begins CPU profiling into path, if path is non-empty.  The
// returned function stops profiling and closes the file; it may be called
// more than once.
func startCPUProfile(path string) func() {
	if path == "" {
		return func() {}
	}

	f := createProfile(path, "CPU")
	if err := pprof.StartCPUProfile(f); err != nil {
		log.Logger.Fatal().
			Err(err).
			Msg("pprof.StartCPUProfile failed")
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			pprof.StopCPUProfile()
			closeProfile(f, path, "CPU")
		})
	}
}

// writeMemProfile writes the allocation profile to path, if path is
// non-empty.
func writeMemProfile(path string) {
	if path == "" {
		return
	}

	f := createProfile(path, "memory")
	if err := pprof.Lookup("allocs").WriteTo(f, 0); err != nil {
		_ = f.Close()
		log.Logger.Fatal().
			Str("filename", path).
			Err(err).
			Msg("failed to write memory profile")
	}
	closeProfile(f, path, "memory")
}

func createProfile(path string, what string) *os.File {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0666)
	if err != nil {
		log.Logger.Fatal().
			Str("filename", path).
			Str("profile", what).
			Err(err).
			Msg("os.OpenFile(O_WRONLY|O_CREATE|O_TRUNC) failed")
	}
	return f
}

func closeProfile(f *os.File, path string, what string) {
	if err := f.Close(); err != nil {
		log.Logger.Error().
			Str("filename", path).
			Str("profile", what).
			Err(err).
			Msg("failed to close profile output file")
	}
}
