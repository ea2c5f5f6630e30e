package arcflate

import (
	"bytes"
	"errors"
	"io"
	"sync"

	"github.com/chronos-tachyon/assert"
)

// detectSize is how many leading bytes Reader examines to autodetect the
// format.  It covers a gzip header with a maximum-length file name.
const detectSize = 1<<12 + 64

var errReaderClosed = errors.New("arcflate: Reader is closed")

// DetectFormat guesses the Format of a stream from its first bytes.  The two
// gzip magic bytes alone select GZIPFormat, so that a damaged gzip header is
// reported by the gzip framer instead of being decoded as raw DEFLATE, which
// could never start with 0x1f anyway (that is a final block of the
// reserved type).  Streams that look like none of the framed formats are
// taken to be raw DEFLATE.
func DetectFormat(p []byte) Format {
	switch {
	case len(p) >= 2 && p[0] == gzipID1 && p[1] == gzipID2:
		return GZIPFormat
	case len(p) >= 4 && IsArcZstd(p) != ProbeNo:
		return ZstdFormat
	case isZlibHeader(p):
		return ZlibFormat
	default:
		return RawFormat
	}
}

// Reader wraps an io.Reader and decompresses the data which flows through it.
// Decompression runs in a goroutine that feeds an io.Pipe.
type Reader struct {
	mu     sync.Mutex
	r      io.Reader
	opts   []Option
	o      options
	pump   pump
	result readResult
}

// readResult is what the decode goroutine has learned about the stream.
// The fields are filled in as they become known.
type readResult struct {
	format Format
	header Header
	gzip   GzipStats
	zstd   ZstdInfo
	err    error
}

// NewReader constructs and returns a new Reader with the given io.Reader and
// options.  Relevant options are WithFormat, the Decoder options,
// WithProgress and WithTracers.
func NewReader(r io.Reader, opts ...Option) *Reader {
	assert.NotNil(&r)

	fr := &Reader{r: r}
	fr.mergeOptions(opts)
	fr.pump.init()
	return fr
}

func (fr *Reader) mergeOptions(opts []Option) {
	fr.opts = append(fr.opts[:len(fr.opts):len(fr.opts)], opts...)
	fr.o.reset()
	fr.o.apply(fr.opts)
}

func (fr *Reader) snapshot() readResult {
	fr.mu.Lock()
	defer fr.mu.Unlock()
	return fr.result
}

func (fr *Reader) publish(fn func(*readResult)) {
	fr.mu.Lock()
	fn(&fr.result)
	fr.mu.Unlock()
}

// Format returns the Format which this Reader was asked to read.
func (fr *Reader) Format() Format {
	fr.mu.Lock()
	defer fr.mu.Unlock()
	return fr.o.format
}

// ActualFormat returns the Format that is being read, once the read goroutine
// has determined it, or DefaultFormat before then.
func (fr *Reader) ActualFormat() Format { return fr.snapshot().format }

// Header returns the header of the gzip or zlib stream after it was read.
func (fr *Reader) Header() Header { return fr.snapshot().header }

// GzipStats returns the statistics of the gzip extraction, once finished.
func (fr *Reader) GzipStats() GzipStats { return fr.snapshot().gzip }

// ZstdInfo returns the structure of the Zstandard stream, once finished.
func (fr *Reader) ZstdInfo() ZstdInfo { return fr.snapshot().zstd }

// Err returns the error that ended decompression, or nil if it has not
// ended or ended cleanly.
func (fr *Reader) Err() error { return fr.snapshot().err }

// Tracers returns a copy of the Tracers which this Reader uses.
func (fr *Reader) Tracers() []Tracer {
	fr.mu.Lock()
	defer fr.mu.Unlock()
	return append([]Tracer(nil), fr.o.tracers...)
}

// UnderlyingReader returns the io.Reader which this Reader uses.
func (fr *Reader) UnderlyingReader() io.Reader {
	return fr.r
}

// Reset re-initializes this Reader with the given io.Reader and options.  Any
// options given here are merged with all previous options.  A stream still
// being decoded is abandoned.
func (fr *Reader) Reset(r io.Reader, opts ...Option) {
	assert.NotNil(&r)
	for _, opt := range opts {
		assert.NotNil(&opt)
	}

	fr.mu.Lock()
	defer fr.mu.Unlock()

	fr.stopLocked()
	fr.r = r
	fr.result = readResult{}
	fr.pump.init()
	if len(opts) != 0 {
		fr.mergeOptions(opts)
	}
}

// Read reads from the compressed stream into the provided slice of bytes.
// Conforms to the io.Reader interface.
func (fr *Reader) Read(p []byte) (int, error) {
	fr.mu.Lock()
	if !fr.pump.started {
		r, pw, format, opts := fr.r, fr.pump.pw, fr.o.format, fr.opts
		fr.pump.start(func() error {
			err := fr.decode(r, pw, format, opts)
			fr.publish(func(res *readResult) { res.err = err })
			_ = pw.CloseWithError(err)
			return err
		})
	}
	pr := fr.pump.pr
	fr.mu.Unlock()
	return pr.Read(p)
}

// Close terminates decompression and closes this Reader.
//
// The underlying io.Reader is *not* closed, even if it supports io.Closer.
//
// The only method which is guaranteed to be safe to call on a Reader after
// Close is Reset, which will return the Reader to a non-closed state.
//
func (fr *Reader) Close() error {
	fr.mu.Lock()
	defer fr.mu.Unlock()
	fr.stopLocked()
	return nil
}

// stopLocked makes the decode goroutine's next write fail and waits for it.
// Its error is left in Err.
func (fr *Reader) stopLocked() {
	_ = fr.pump.pr.CloseWithError(errReaderClosed)
	_ = fr.pump.wait(&fr.mu)
}

func (fr *Reader) decode(r io.Reader, w io.Writer, format Format, opts []Option) error {
	if format == DefaultFormat {
		head := make([]byte, detectSize)
		n, err := io.ReadFull(r, head)
		head = head[:n]
		if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
			return wrapError(KindReadError, uint64(n), err)
		}
		if n == 0 {
			return nil
		}
		format = DetectFormat(head)
		r = io.MultiReader(bytes.NewReader(head), r)
	}
	fr.publish(func(res *readResult) { res.format = format })

	var o options
	o.reset()
	o.apply(opts)

	switch format {
	case RawFormat:
		return NewDecoder(opts...).Code(r, w, nil, o.progress)

	case ZlibFormat:
		d := NewDecoder(WithTracers(o.tracers...))
		d.SetInput(r)
		h, err := extractZlib(d, w, o)
		fr.publish(func(res *readResult) { res.header = h })
		return err

	case GZIPFormat:
		d := NewDecoder(WithTracers(o.tracers...))
		d.SetInput(r)
		stats, err := extractGzip(d, w, o)
		fr.publish(func(res *readResult) {
			res.gzip = stats
			res.header = stats.Header
		})
		return err

	case ZstdFormat:
		info, err := DecodeZstd(r, w, opts...)
		fr.publish(func(res *readResult) { res.zstd = info })
		return err

	default:
		assert.Raisef("Format %#v not implemented", format)
		return nil
	}
}

var _ io.ReadCloser = (*Reader)(nil)
