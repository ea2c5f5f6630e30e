package arcflate

import (
	"encoding/binary"
	"io"

	"github.com/chronos-tachyon/assert"

	"github.com/chronos-tachyon/arcflate/internal/adler32"
)

// https://www.rfc-editor.org/rfc/rfc1950.html - Section 2.2

const (
	zlibMethodDeflate = 0x08
	zlibFlagDict      = 0x20
)

var zlibLevelDecodeTable = [4]CompressLevel{FastestCompression, 2, DefaultCompression, BestCompression}

// readZlibHeader reads the two-byte zlib header through d.  Streams that
// need a preset dictionary are not supported.
func readZlibHeader(d *Decoder) (Header, error) {
	var h Header
	var p [2]byte
	p[0] = d.ReadAlignedByte()
	p[1] = d.ReadAlignedByte()
	if d.InputEOFError() {
		return h, newError(KindUnexpectedEnd, d.StreamSize(), "unexpected end of zlib header")
	}

	u16 := binary.BigEndian.Uint16(p[:])
	if mod := (u16 % 31); mod != 0 {
		return h, newError(KindDataError, 0, "invalid zlib header checksum -- expected %#04x mod 31 == 0, got %d", u16, mod)
	}
	if method := (p[0] & 0x0f); method != zlibMethodDeflate {
		return h, newError(KindUnsupportedMethod, 0, "invalid zlib compression method -- expected 0x8 (DEFLATE), got %#x", method)
	}
	h.WindowBits = 8 + WindowBits(p[0]>>4)
	if h.WindowBits > MaxDeflateWindowBits {
		return h, newError(KindDataError, 0, "zlib window size 2**%d is too big", h.WindowBits)
	}
	if (p[1] & zlibFlagDict) != 0 {
		return h, newError(KindUnsupportedMethod, 2, "zlib stream requires a preset dictionary")
	}
	h.CompressLevel = zlibLevelDecodeTable[p[1]>>6]
	return h, nil
}

func makeZlibHeader(wbits WindowBits, clevel CompressLevel) [2]byte {
	if wbits > MaxDeflateWindowBits {
		wbits = MaxDeflateWindowBits
	}
	var flevel byte
	switch {
	case clevel < 2:
		flevel = 0
	case clevel < 6:
		flevel = 1
	case clevel == 6:
		flevel = 2
	default:
		flevel = 3
	}
	var p [2]byte
	p[0] = byte(wbits-8)<<4 | zlibMethodDeflate
	p[1] = flevel << 6
	u16 := binary.BigEndian.Uint16(p[:])
	if mod := u16 % 31; mod != 0 {
		p[1] |= byte(31 - mod)
	}
	return p
}

// ExtractZlib decompresses one zlib stream from r to w and checks its
// Adler-32 trailer.  Relevant options are WithProgress and WithTracers.
func ExtractZlib(r io.Reader, w io.Writer, opts ...Option) (Header, error) {
	assert.NotNil(&r)
	assert.NotNil(&w)

	var o options
	o.reset()
	o.apply(opts)

	d := NewDecoder(WithTracers(o.tracers...))
	d.SetInput(r)
	return extractZlib(d, w, o)
}

func extractZlib(d *Decoder, w io.Writer, o options) (Header, error) {
	h, err := readZlibHeader(d)
	if err != nil {
		if KindOf(err) == KindDataError {
			err = &Error{Kind: KindIsNotArchive, Problem: "not a zlib stream", Err: err}
		}
		return h, err
	}
	sendEvent(o.tracers, Event{Type: StreamHeaderEvent, InputBytes: d.InputProcessedSize(), NumStreams: 1, Format: ZlibFormat, Header: &h})

	out := adler32.Writer{W: w}
	out.Reset()
	d.SetZlibMode(true)
	err = d.CodeResume(&out, nil, o.progress)
	d.SetZlibMode(false)
	if err != nil {
		return h, err
	}
	if d.InputEOFError() {
		return h, newError(KindUnexpectedEnd, d.StreamSize(), "unexpected end of zlib trailer")
	}

	footer := d.ZlibFooter()
	expected := binary.BigEndian.Uint32(footer[:])
	if expected != out.Sum {
		return h, newError(KindCRCError, d.StreamSize(), "invalid zlib Adler-32 checksum -- footer value %#08x, computed value %#08x", expected, out.Sum)
	}
	sendEvent(o.tracers, Event{
		Type:        StreamCloseEvent,
		InputBytes:  d.InputProcessedSize(),
		OutputBytes: d.OutputProcessedSize(),
		NumStreams:  1,
		Format:      ZlibFormat,
		Footer:      &FooterEvent{Adler32: Checksum32(out.Sum)},
	})
	return h, nil
}

// WriteZlib compresses everything r yields into one zlib stream on w.
// DEFLATE's 32 KiB window is the largest a zlib header can describe, so
// Deflate64 is never used here.
func WriteZlib(w io.Writer, r io.Reader, opts ...Option) error {
	assert.NotNil(&w)
	assert.NotNil(&r)

	var o options
	o.reset()
	o.apply(opts)
	o.populateWriterDefaults()

	enc := NewEncoder(append(opts[:len(opts):len(opts)], WithDeflate64(false))...)
	enc.SetLevel(o.clevel)

	hdr := makeZlibHeader(enc.WindowBits(), o.clevel)
	if _, err := (fullWriter{w: w}).Write(hdr[:]); err != nil {
		return wrapError(KindWriteError, 0, err)
	}
	sendEvent(o.tracers, Event{Type: StreamHeaderEvent, NumStreams: 1, Format: ZlibFormat, Header: o.header})

	in := adler32.Writer{}
	in.Reset()
	if err := enc.Code(io.TeeReader(r, &in), w, o.progress); err != nil {
		return err
	}

	var trailer [4]byte
	binary.BigEndian.PutUint32(trailer[:], in.Sum)
	if _, err := (fullWriter{w: w}).Write(trailer[:]); err != nil {
		return wrapError(KindWriteError, 0, err)
	}
	sendEvent(o.tracers, Event{
		Type:       StreamCloseEvent,
		NumStreams: 1,
		Format:     ZlibFormat,
		Footer:     &FooterEvent{Adler32: Checksum32(in.Sum)},
	})
	return nil
}

// isZlibHeader reports whether p starts with a plausible zlib header.
func isZlibHeader(p []byte) bool {
	if len(p) < 2 {
		return false
	}
	u16 := binary.BigEndian.Uint16(p)
	return (p[0]&0x0f) == zlibMethodDeflate && (p[0]>>4) <= 7 && (u16%31) == 0
}
