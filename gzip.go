package arcflate

import (
	"encoding/binary"
	"io"

	"github.com/chronos-tachyon/assert"

	"github.com/chronos-tachyon/arcflate/internal/crc32"
)

// https://www.rfc-editor.org/rfc/rfc1952.html - Section 2.3

const (
	gzipID1    = 0x1f
	gzipID2    = 0x8b
	gzipMethod = 0x08

	gzipFlagText     = 1 << 0
	gzipFlagCRC      = 1 << 1
	gzipFlagExtra    = 1 << 2
	gzipFlagName     = 1 << 3
	gzipFlagComment  = 1 << 4
	gzipFlagReserved = 0xe0

	gzipExtraMaximum = 2
	gzipExtraFastest = 4

	gzipBaseHeaderSize = 10
	gzipFooterSize     = 8

	gzipNameMaxLen    = 1 << 12
	gzipCommentMaxLen = 1 << 16
)

// IsArcGz reports whether p starts like a gzip file: a well-formed base
// header, optional fields that fit their limits, and a plausible first
// DEFLATE block header.  ProbeNeedMore means that p ends too early to tell.
func IsArcGz(p []byte) ProbeResult {
	size := len(p)
	if size < gzipBaseHeaderSize {
		return ProbeNeedMore
	}
	if p[0] != gzipID1 || p[1] != gzipID2 || p[2] != gzipMethod {
		return ProbeNo
	}

	flags := p[3]
	if (flags & gzipFlagReserved) != 0 {
		return ProbeNo
	}

	extraFlags := p[8]
	if extraFlags != 0 && extraFlags != gzipExtraMaximum && extraFlags != gzipExtraFastest {
		return ProbeNo
	}

	p = p[gzipBaseHeaderSize:]

	if (flags & gzipFlagExtra) != 0 {
		if len(p) < 2 {
			return ProbeNeedMore
		}
		xlen := int(binary.LittleEndian.Uint16(p))
		p = p[2:]
		for xlen != 0 {
			if xlen < 4 {
				return ProbeNo
			}
			if len(p) < 4 {
				return ProbeNeedMore
			}
			recLen := int(binary.LittleEndian.Uint16(p[2:]))
			p = p[4:]
			xlen -= 4
			if recLen > xlen {
				return ProbeNo
			}
			if recLen > len(p) {
				return ProbeNeedMore
			}
			p = p[recLen:]
			xlen -= recLen
		}
	}

	skipString := func(maxLen int) ProbeResult {
		limit := maxLen
		if limit > len(p) {
			limit = len(p)
		}
		i := 0
		for i < limit && p[i] != 0 {
			i++
		}
		if i == len(p) {
			return ProbeNeedMore
		}
		if i == limit {
			return ProbeNo
		}
		p = p[i+1:]
		return ProbeYes
	}

	if (flags & gzipFlagName) != 0 {
		if res := skipString(gzipNameMaxLen); res != ProbeYes {
			return res
		}
	}
	if (flags & gzipFlagComment) != 0 {
		if res := skipString(gzipCommentMaxLen); res != ProbeYes {
			return res
		}
	}

	if (flags & gzipFlagCRC) != 0 {
		if len(p) < 2 {
			return ProbeNeedMore
		}
		p = p[2:]
	}

	return isDeflate(p)
}

// isDeflate checks the first block header of a DEFLATE stream for
// plausibility.
func isDeflate(p []byte) ProbeResult {
	if len(p) < 1 {
		return ProbeNeedMore
	}
	b := p[0]
	p = p[1:]
	switch (b >> 1) & 3 {
	case 3:
		return ProbeNo
	case 0:
		if (b >> 3) != 0 {
			return ProbeNo
		}
		if len(p) < 4 {
			return ProbeNeedMore
		}
		if binary.LittleEndian.Uint16(p) != ^binary.LittleEndian.Uint16(p[2:]) {
			return ProbeNo
		}
	case 2:
		if len(p) < 1 {
			return ProbeNeedMore
		}
		if int(p[0]&0x1f)+1 > distTableSize32 {
			return ProbeNo
		}
	}
	return ProbeYes
}

// GzipStats describes the outcome of ExtractGzip.
type GzipStats struct {
	// Header is the header of the first member.
	Header Header

	PackSize   uint64
	UnpackSize uint64
	NumStreams uint64
	HeaderSize uint64

	IsArc         bool
	NeedMoreInput bool
	DataAfterEnd  bool
	CRCError      bool
}

// ExtractGzip decompresses every member of a gzip file from r to w.  Bytes
// after the last complete member that do not form another member header are
// reported as KindDataAfterEnd, after everything before them was written.
// When several problems occur, the error kind follows the priority
// IsNotArchive, UnexpectedEnd, CRCError, DataAfterEnd, DataError.
//
// Relevant options are WithProgress and WithTracers.  Each member is decoded
// up to its final block, since gzip records no compressed or uncompressed
// size ahead of the data.
func ExtractGzip(r io.Reader, w io.Writer, opts ...Option) (GzipStats, error) {
	assert.NotNil(&r)
	assert.NotNil(&w)

	var o options
	o.reset()
	o.apply(opts)

	d := NewDecoder(WithTracers(o.tracers...))
	d.SetInput(r)
	return extractGzip(d, w, o)
}

func extractGzip(d *Decoder, w io.Writer, o options) (GzipStats, error) {
	var stats GzipStats
	var result error

	out := crc32.Writer{W: w}
	packSize := d.InputProcessedSize()
	firstItem := true

	for {
		if err := reportProgress(o.progress, packSize, packSize, out.Size); err != nil {
			return stats, err
		}

		var h Header
		result = h.readGzip(d)
		if result == nil && d.InputEOFError() {
			result = ErrUnexpectedEnd
		}
		if result != nil && firstItem {
			break
		}
		if packSize == d.StreamSize() {
			result = nil
			break
		}
		if result != nil {
			stats.DataAfterEnd = true
			break
		}

		if firstItem {
			stats.Header = h
			stats.IsArc = true
			stats.HeaderSize = d.InputProcessedSize()
		}
		stats.NumStreams++
		firstItem = false

		sendEvent(o.tracers, Event{
			Type:        StreamHeaderEvent,
			InputBytes:  d.InputProcessedSize(),
			OutputBytes: out.Size,
			NumStreams:  uint(stats.NumStreams),
			Format:      GZIPFormat,
			Header:      &h,
		})

		startOffset := out.Size
		out.Sum = 0

		result = d.CodeResume(&out, nil, o.progress)
		packSize = d.InputProcessedSize()
		stats.UnpackSize = out.Size

		if kind := KindOf(result); kind == KindAborted || kind == KindWriteError || kind == KindReadError || kind == KindOutOfMemory {
			stats.PackSize = packSize
			return stats, result
		}
		if d.InputEOFError() {
			packSize = d.StreamSize()
			stats.NeedMoreInput = true
			if result == nil {
				result = ErrUnexpectedEnd
			}
		}
		if result != nil {
			break
		}

		d.AlignToByte()
		var footer FooterEvent
		footer, result = readGzipFooter(d)
		packSize = d.InputProcessedSize()
		if result != nil {
			if d.InputEOFError() {
				stats.NeedMoreInput = true
				packSize = d.StreamSize()
			}
			break
		}

		if uint32(footer.CRC32) != out.Sum || footer.Size32 != uint32(out.Size-startOffset) {
			stats.CRCError = true
			result = newError(KindCRCError, packSize, "gzip member %d: footer CRC-32 %v size %d, computed CRC-32 %#08x size %d",
				stats.NumStreams, footer.CRC32, footer.Size32, out.Sum, uint32(out.Size-startOffset))
			break
		}

		sendEvent(o.tracers, Event{
			Type:        StreamCloseEvent,
			InputBytes:  packSize,
			OutputBytes: out.Size,
			NumStreams:  uint(stats.NumStreams),
			Format:      GZIPFormat,
			Footer:      &footer,
		})
	}

	if !firstItem {
		stats.PackSize = packSize
		stats.UnpackSize = out.Size
	}

	switch {
	case !stats.IsArc && KindOf(result) == KindUnsupportedMethod:
		return stats, result
	case !stats.IsArc:
		return stats, &Error{Kind: KindIsNotArchive, Offset: 0, Problem: "not a gzip file", Err: result}
	case stats.NeedMoreInput:
		return stats, &Error{Kind: KindUnexpectedEnd, Offset: packSize, Problem: "truncated gzip member", Err: result}
	case stats.CRCError:
		return stats, result
	case stats.DataAfterEnd:
		return stats, &Error{Kind: KindDataAfterEnd, Offset: packSize, Problem: "trailing data after the last gzip member"}
	case result != nil:
		return stats, &Error{Kind: KindDataError, Offset: packSize, Err: result}
	default:
		return stats, nil
	}
}

// WriteGzip compresses everything r yields into a single-member gzip file on
// w.  Relevant options are WithHeader (file name, modification time, OS,
// FEXTRA subfields), WithCompressLevel and the other Encoder options,
// WithProgress and WithTracers.
func WriteGzip(w io.Writer, r io.Reader, opts ...Option) error {
	assert.NotNil(&w)
	assert.NotNil(&r)

	var o options
	o.reset()
	o.apply(opts)
	o.populateWriterDefaults()

	var h Header
	if o.header != nil {
		h = *o.header
	}
	if err := writeAll(w, h.appendGzip(make([]byte, 0, 64), o.clevel)); err != nil {
		return err
	}
	sendEvent(o.tracers, Event{Type: StreamHeaderEvent, NumStreams: 1, Format: GZIPFormat, Header: &h})

	in := crc32.Writer{}
	enc := NewEncoder(opts...)
	enc.SetLevel(o.clevel)
	if err := enc.Code(io.TeeReader(r, &in), w, o.progress); err != nil {
		return err
	}

	footer := FooterEvent{CRC32: Checksum32(in.Sum), Size32: uint32(in.Size)}
	if err := writeAll(w, appendGzipFooter(make([]byte, 0, gzipFooterSize), footer)); err != nil {
		return err
	}
	sendEvent(o.tracers, Event{
		Type:       StreamCloseEvent,
		InputBytes: in.Size,
		NumStreams: 1,
		Format:     GZIPFormat,
		Footer:     &footer,
	})
	return nil
}

// writeAll writes p to w in full, reporting failure as KindWriteError.
func writeAll(w io.Writer, p []byte) error {
	if _, err := (fullWriter{w: w}).Write(p); err != nil {
		return wrapError(KindWriteError, 0, err)
	}
	return nil
}
