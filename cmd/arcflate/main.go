package main

import (
	"context"
	"fmt"
	stdlog "log"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/chronos-tachyon/arcflate"
	"github.com/hashicorp/go-multierror"
	getopt "github.com/pborman/getopt/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

var version = "devel"

var (
	flagVersion   = false
	flagDebug     = false
	flagTrace     = false
	flagLogStderr = false

	flagStdout     = false
	flagDecompress = false
	flagTest       = false
	flagProbe      = false
	flagForce      = false
	flagKeep       = false
	flagJobs       = runtime.NumCPU()

	flagDigits [10]bool

	flagFormat       = FormatFlag{Value: arcflate.DefaultFormat}
	flagCLevel       = CompressLevelFlag{Value: arcflate.DefaultCompression}
	flagWBits        = WindowBitsFlag{Value: arcflate.DefaultWindowBits}
	flagMatchFinder  = MatchFinderFlag{Value: arcflate.DefaultMatchFinder}
	flagOSType       = OSTypeFlag{Value: arcflate.OSTypeUnknown}
	flagDeflate64    = false
	flagNSIS         = false
	flagPasses       = uint(0)
	flagFastBytes    = uint(0)
	flagMatchCycles  = uint(0)
	flagFileName     = ""
	flagLastModified = TimeFlag{time.Time{}}

	flagCPUProfile = ""
	flagMemProfile = ""
)

var digitHelp = [10]string{
	"don't compress",
	"fastest compression",
	"fast compression",
	"fast compression",
	"fast compression",
	"balanced compression",
	"balanced compression",
	"good compression",
	"good compression",
	"best compression",
}

func init() {
	getopt.SetParameters("[<input>...]")

	getopt.FlagLong(&flagVersion, "version", 'V', "print version and exit")

	getopt.FlagLong(&flagDebug, "verbose", 'v', "enable debug logging")
	getopt.FlagLong(&flagTrace, "debug", 'D', "enable debug and trace logging")
	getopt.FlagLong(&flagLogStderr, "log-stderr", 'L', "log JSON to stderr")

	getopt.FlagLong(&flagCPUProfile, "cpu-profile", 0, "CPU profile output file")
	getopt.FlagLong(&flagMemProfile, "mem-profile", 0, "memory profile output file")

	getopt.FlagLong(&flagFormat, "format", 'F', "file format; one of auto, gzip, zlib, raw, or zstd")
	getopt.FlagLong(&flagCLevel, "compress-level", 'C', "compression level; default, 0 to 9, or one of store, fastest, fast, normal, maximum, ultra").SetGroup("clevel")
	getopt.FlagLong(&flagWBits, "window-size-bits", 'W', "base-2 logarithm of window size; one of default, 8, 9, 10, 11, 12, 13, 14, 15, or 16")
	getopt.FlagLong(&flagMatchFinder, "match-finder", 'm', "match finder; one of auto, hc3, or bt3")
	getopt.FlagLong(&flagDeflate64, "deflate64", 0, "use Deflate64 (64 KiB window) for raw streams")
	getopt.FlagLong(&flagNSIS, "nsis", 0, "accept the NSIS variant of DEFLATE when decompressing raw streams")
	getopt.FlagLong(&flagPasses, "passes", 'p', "number of optimal parsing passes; 0 means the level default")
	getopt.FlagLong(&flagFastBytes, "fast-bytes", 0, "match length at which the parser stops searching; 0 means the level default")
	getopt.FlagLong(&flagMatchCycles, "match-cycles", 0, "match finder search depth; 0 means the level default")
	getopt.FlagLong(&flagFileName, "filename", 0, "filename to store in gzip header")
	getopt.FlagLong(&flagLastModified, "last-modified", 0, "last-modified time to store in gzip header")
	getopt.FlagLong(&flagOSType, "os", 0, "host OS to store in gzip header; unknown means this host")

	getopt.FlagLong(&flagStdout, "stdout", 'c', "write on standard output, keep original files unchanged")
	getopt.FlagLong(&flagDecompress, "decompress", 'd', "decompress")
	getopt.FlagLong(&flagTest, "test", 't', "test compressed file integrity")
	getopt.FlagLong(&flagProbe, "probe", 'l', "print the format and structure of compressed files")
	getopt.FlagLong(&flagForce, "force", 'f', "force overwrite of output file")
	getopt.FlagLong(&flagKeep, "keep", 'k', "keep (don't delete) input files")
	getopt.FlagLong(&flagJobs, "jobs", 'j', "number of files to process concurrently")

	for i, help := range digitHelp {
		getopt.Flag(&flagDigits[i], rune('0'+i), help).SetGroup("clevel")
	}
}

func main() {
	getopt.Parse()

	if flagVersion {
		fmt.Println(strings.TrimSpace(version))
		os.Exit(0)
	}

	setupLogging()

	for i, set := range flagDigits {
		if set {
			flagCLevel.Value = arcflate.CompressLevel(i)
		}
	}
	if flagJobs < 1 {
		flagJobs = 1
	}

	stopCPUProfile := startCPUProfile(flagCPUProfile)
	defer stopCPUProfile()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := run(ctx, getopt.Args())
	stop()

	writeMemProfile(flagMemProfile)

	if err != nil {
		log.Logger.Error().
			Err(err).
			Msg("failed")
		stopCPUProfile()
		os.Exit(1)
	}
}

// setupLogging routes zerolog, and the standard log package through it, to
// stderr: human-readable by default, JSON with --log-stderr.
func setupLogging() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.DurationFieldUnit = time.Second
	zerolog.DurationFieldInteger = false

	level := zerolog.InfoLevel
	switch {
	case flagTrace:
		level = zerolog.TraceLevel
	case flagDebug:
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	if !flagLogStderr {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	stdlog.SetFlags(0)
	stdlog.SetOutput(log.Logger)
}

func run(ctx context.Context, args []string) error {
	mode := modeCompress
	switch {
	case flagProbe:
		mode = modeProbe
	case flagTest:
		mode = modeTest
	case flagDecompress:
		mode = modeDecompress
	}

	if len(args) == 0 || (len(args) == 1 && args[0] == "-") {
		return processStream(ctx, mode, "-", os.Stdout, os.Stdin)
	}

	var mu sync.Mutex
	var errs *multierror.Error

	limit := flagJobs
	if flagStdout && (mode == modeCompress || mode == modeDecompress) {
		limit = 1
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(limit)
	for _, name := range args {
		name := name
		eg.Go(func() error {
			err := processFile(ctx, mode, name)
			if err != nil {
				log.Logger.Error().
					Str("filename", name).
					Err(err).
					Msg("failed")
				mu.Lock()
				errs = multierror.Append(errs, fmt.Errorf("%s: %w", name, err))
				mu.Unlock()
			}
			return nil
		})
	}
	_ = eg.Wait()
	return errs.ErrorOrNil()
}
