package arcflate

import (
	"errors"
	"io"
	"io/fs"
	"sync"

	"github.com/chronos-tachyon/assert"
)

var errWriterStarted = errors.New("arcflate: header must be set before the first Write")

// Writer wraps an io.Writer and compresses the data which flows through it.
// Compression runs in a goroutine that drains an io.Pipe, so Writes block
// until the encoder has consumed them.
type Writer struct {
	mu     sync.Mutex
	w      io.Writer
	opts   []Option
	o      options
	pump   pump
	closed bool
}

// NewWriter constructs and returns a new Writer with the given io.Writer and
// options.  Relevant options are WithFormat (GZIPFormat by default), the
// Encoder options, WithHeader, WithProgress and WithTracers.
func NewWriter(w io.Writer, opts ...Option) *Writer {
	assert.NotNil(&w)

	fw := &Writer{w: w}
	fw.mergeOptions(opts)
	fw.pump.init()
	return fw
}

func (fw *Writer) mergeOptions(opts []Option) {
	fw.opts = append(fw.opts[:len(fw.opts):len(fw.opts)], opts...)
	fw.o.reset()
	fw.o.apply(fw.opts)
	fw.o.populateWriterDefaults()
}

// Format returns the Format which this Writer produces.
func (fw *Writer) Format() Format {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	return fw.o.format
}

// CompressLevel returns the CompressLevel which this Writer uses.
func (fw *Writer) CompressLevel() CompressLevel {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	return fw.o.clevel
}

// Tracers returns a copy of the Tracers which this Writer uses.
func (fw *Writer) Tracers() []Tracer {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	return append([]Tracer(nil), fw.o.tracers...)
}

// UnderlyingWriter returns the io.Writer which this Writer uses.
func (fw *Writer) UnderlyingWriter() io.Writer {
	return fw.w
}

// Reset re-initializes this Writer with the given io.Writer and options.  Any
// options given here are merged with all previous options.  A stream still
// in progress is abandoned.
func (fw *Writer) Reset(w io.Writer, opts ...Option) {
	assert.NotNil(&w)
	for _, opt := range opts {
		assert.NotNil(&opt)
	}

	fw.mu.Lock()
	defer fw.mu.Unlock()

	if fw.pump.started {
		_ = fw.pump.pw.CloseWithError(ErrAborted)
		_ = fw.pump.wait(&fw.mu)
	}
	fw.w = w
	fw.closed = false
	fw.pump.init()
	if len(opts) != 0 {
		fw.mergeOptions(opts)
	}
}

// SetHeader sets a custom gzip header when writing in GZIPFormat.  It must
// be called before the first Write.  Every field that cannot be stored is
// reported; several problems come back as a *multierror.Error.
func (fw *Writer) SetHeader(header Header) error {
	if err := header.check(); err != nil {
		return err
	}

	fw.mu.Lock()
	defer fw.mu.Unlock()
	if fw.pump.started {
		return errWriterStarted
	}
	fw.o.header = &header
	return nil
}

// Write writes a slice of bytes to the compressed stream.
// Conforms to the io.Writer interface.
func (fw *Writer) Write(buf []byte) (int, error) {
	fw.mu.Lock()
	if fw.closed {
		fw.mu.Unlock()
		return 0, fs.ErrClosed
	}
	fw.startLocked()
	pw := fw.pump.pw
	fw.mu.Unlock()

	return pw.Write(buf)
}

// Close finishes the compressed stream and closes this Writer.  It returns
// the encoder's error, if any.
//
// The underlying io.Writer is *not* closed, even if it supports io.Closer.
//
// The only method which is guaranteed to be safe to call on a Writer after
// Close is Reset, which will return the Writer to a non-closed state.
//
func (fw *Writer) Close() error {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	if fw.closed {
		return fs.ErrClosed
	}
	fw.closed = true

	fw.startLocked()
	_ = fw.pump.pw.Close()
	return fw.pump.wait(&fw.mu)
}

func (fw *Writer) startLocked() {
	if fw.pump.started {
		return
	}

	w, pr, format, clevel := fw.w, fw.pump.pr, fw.o.format, fw.o.clevel
	opts := fw.opts[:len(fw.opts):len(fw.opts)]
	if fw.o.header != nil {
		opts = append(opts, WithHeader(*fw.o.header))
	}

	fw.pump.start(func() error {
		err := encodeStream(w, pr, format, clevel, opts)
		if err != nil {
			_ = pr.CloseWithError(err)
			return err
		}
		_ = pr.Close()
		return nil
	})
}

// encodeStream compresses everything r yields into one stream of the given
// Format on w.
func encodeStream(w io.Writer, r io.Reader, format Format, clevel CompressLevel, opts []Option) error {
	switch format {
	case RawFormat:
		var o options
		o.reset()
		o.apply(opts)
		enc := NewEncoder(opts...)
		enc.SetLevel(clevel)
		return enc.Code(r, w, o.progress)
	case ZlibFormat:
		return WriteZlib(w, r, opts...)
	case GZIPFormat:
		return WriteGzip(w, r, opts...)
	case ZstdFormat:
		return WriteZstd(w, r, opts...)
	default:
		assert.Raisef("Format %#v not implemented", format)
		return nil
	}
}

var _ io.WriteCloser = (*Writer)(nil)
