package arcflate

import (
	"github.com/chronos-tachyon/assert"
)

// Option represents a configuration option for Reader, Writer, Decoder,
// Encoder or one of the container framers.
type Option func(*options)

type options struct {
	format      Format
	clevel      CompressLevel
	wbits       WindowBits
	deflate64   bool
	nsis        bool
	finish      bool
	keepHistory bool
	matchFinder MatchFinder
	numPasses   uint
	fastBytes   uint
	matchCycles uint
	header      *Header
	progress    Progress
	tracers     []Tracer
}

func (o *options) reset() {
	*o = options{
		format:      DefaultFormat,
		clevel:      DefaultCompression,
		wbits:       DefaultWindowBits,
		matchFinder: DefaultMatchFinder,
	}
}

func (o *options) apply(opts []Option) {
	for _, opt := range opts {
		opt(o)
	}
}

func (o *options) populateWriterDefaults() {
	if o.format == DefaultFormat {
		o.format = GZIPFormat
	}
	if o.clevel == DefaultCompression {
		o.clevel = 5
	}
}

// WithFormat specifies the Format to write (Writer) or expected to be read
// (Reader).  DefaultFormat makes Reader autodetect the format.
func WithFormat(format Format) Option {
	assert.Assertf(format.IsValid(), "invalid Format %d", uint(format))
	return func(o *options) { o.format = format }
}

// WithCompressLevel specifies the CompressLevel to use (Writer, Encoder).
func WithCompressLevel(clevel CompressLevel) Option {
	assert.Assertf(clevel.IsValid(), "invalid CompressLevel %d", int(clevel))
	return func(o *options) { o.clevel = clevel }
}

// WithWindowBits specifies the LZ77 dictionary size to use (Encoder).
func WithWindowBits(wbits WindowBits) Option {
	assert.Assertf(wbits.IsValid(), "invalid WindowBits %d", uint(wbits))
	return func(o *options) { o.wbits = wbits }
}

// WithDeflate64 selects the Deflate64 variant: a 64 KiB window, a 16-bit
// top length slot and 32 distance codes.
func WithDeflate64(enabled bool) Option {
	return func(o *options) { o.deflate64 = enabled }
}

// WithNSIS makes the decoder skip the one's-complement check of stored block
// lengths, as needed for streams written by the NSIS installer.
func WithNSIS(enabled bool) Option {
	return func(o *options) { o.nsis = enabled }
}

// WithFinishMode makes the decoder insist on exact termination.
func WithFinishMode(enabled bool) Option {
	return func(o *options) { o.finish = enabled }
}

// WithKeepHistory keeps the LZ77 history across consecutive streams decoded
// by the same Decoder (solid mode).
func WithKeepHistory(enabled bool) Option {
	return func(o *options) { o.keepHistory = enabled }
}

// WithMatchFinder selects the encoder's match finder.
func WithMatchFinder(mf MatchFinder) Option {
	assert.Assertf(mf.IsValid(), "invalid MatchFinder %d", uint(mf))
	return func(o *options) { o.matchFinder = mf }
}

// WithNumPasses overrides the number of optimization passes implied by the
// compression level.  Zero restores the default.
func WithNumPasses(n uint) Option {
	assert.Assertf(n <= maxNumPasses, "number of passes %d > maximum %d", n, maxNumPasses)
	return func(o *options) { o.numPasses = n }
}

// WithFastBytes overrides the match length at which the encoder stops
// searching for longer matches.  Zero restores the default.
func WithFastBytes(n uint) Option {
	assert.Assertf(n == 0 || (n >= matchMinLen && n <= matchMaxLen32), "fast bytes %d out of range [%d, %d]", n, matchMinLen, matchMaxLen32)
	return func(o *options) { o.fastBytes = n }
}

// WithMatchCycles overrides the match finder's search depth.  Zero restores
// the default.
func WithMatchCycles(n uint) Option {
	assert.Assertf(n <= maxMatchCycles, "match cycles %d > maximum %d", n, maxMatchCycles)
	return func(o *options) { o.matchCycles = n }
}

// WithHeader specifies the gzip header fields to write (Writer).  The Header
// is copied.
func WithHeader(header Header) Option {
	return func(o *options) { o.header = &header }
}

// WithProgress specifies the Progress sink that is consulted periodically.
func WithProgress(progress Progress) Option {
	return func(o *options) { o.progress = progress }
}

// WithTracers specifies the list of Tracer instances which will receive Events
// as compression or decompression proceeds.  Completely replaces any previous
// list.
func WithTracers(tracers ...Tracer) Option {
	for _, tr := range tracers {
		assert.NotNil(&tr)
	}
	if len(tracers) == 0 {
		tracers = nil
	} else {
		tmp := make([]Tracer, len(tracers))
		copy(tmp, tracers)
		tracers = tmp
	}
	return func(o *options) { o.tracers = tracers }
}
