package arcflate

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"strconv"

	"github.com/chronos-tachyon/assert"
	"github.com/hashicorp/go-multierror"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/xxHash/xxHash64"
)

// https://www.rfc-editor.org/rfc/rfc8878.html - Section 3.1

const (
	zstdMagic         = 0xfd2fb528
	zstdSkipMagic     = 0x184d2a50
	zstdSkipMagicMask = 0xfffffff0

	zstdFlagChecksum = 1 << 2
	zstdFlagReserved = 1 << 3
	zstdFlagUnused   = 1 << 4
	zstdFlagSingle   = 1 << 5

	zstdBlockTypeRLE      = 1
	zstdBlockTypeReserved = 3

	zstdBlockSizeMax       = 1 << 17
	zstdFrameHeaderSizeMax = 14

	zstdMinWindowBits = 10
)

var zstdDictIDSizes = [4]int{0, 1, 2, 4}

// type zstdFrameHeader {{{

type zstdFrameHeader struct {
	descriptor       byte
	windowDescriptor byte
	dictionaryID     uint32
	contentSize      uint64
}

func (fh zstdFrameHeader) hasChecksum() bool     { return (fh.descriptor & zstdFlagChecksum) != 0 }
func (fh zstdFrameHeader) isReserved() bool      { return (fh.descriptor & zstdFlagReserved) != 0 }
func (fh zstdFrameHeader) isSingleSegment() bool { return (fh.descriptor & zstdFlagSingle) != 0 }
func (fh zstdFrameHeader) hasContentSize() bool  { return (fh.descriptor & 0xe0) != 0 }

// zstdFrameHeaderSize returns the number of header bytes that follow the
// frame descriptor.
func zstdFrameHeaderSize(descriptor byte) int {
	n := zstdDictIDSizes[descriptor&3]
	if (descriptor & zstdFlagSingle) == 0 {
		n++
	}
	if flag3 := descriptor >> 5; flag3 != 0 {
		n += 1 << (flag3 >> 1)
	}
	return n
}

// parseZstdFrameHeader decodes the fields that follow descriptor.  p holds
// exactly zstdFrameHeaderSize(descriptor) bytes.
func parseZstdFrameHeader(descriptor byte, p []byte) zstdFrameHeader {
	fh := zstdFrameHeader{descriptor: descriptor}
	if !fh.isSingleSegment() {
		fh.windowDescriptor = p[0]
		p = p[1:]
	}
	if n := zstdDictIDSizes[descriptor&3]; n != 0 {
		var tmp [4]byte
		copy(tmp[:], p[:n])
		fh.dictionaryID = binary.LittleEndian.Uint32(tmp[:])
		p = p[n:]
	}
	if flag3 := descriptor >> 5; flag3 != 0 {
		fcs := flag3 >> 1
		n := 1 << fcs
		var tmp [8]byte
		copy(tmp[:], p[:n])
		fh.contentSize = binary.LittleEndian.Uint64(tmp[:])
		if fcs == 1 {
			fh.contentSize += 256
		}
	}
	return fh
}

// windowSizes returns the frame's nominal window size and the smaller
// window a decoder actually has to allocate when the content size is known.
func (fh zstdFrameHeader) windowSizes() (window uint64, alloc uint64) {
	window = fh.contentSize
	alloc = fh.contentSize
	if !fh.isSingleSegment() {
		e := uint(fh.windowDescriptor >> 3)
		m := uint64(fh.windowDescriptor & 7)
		window = (8 + m) << (e + 7)
		if !fh.hasContentSize() || fh.dictionaryID != 0 || alloc > window {
			alloc = window
		}
	}
	return
}

// }}}

// type ZstdInfo {{{

// ZstdInfo describes the structure of a Zstandard stream: its frames, its
// blocks, and the aggregate properties of their headers.
type ZstdInfo struct {
	IsArc              bool
	NumDataFrames      uint64
	NumSkipFrames      uint64
	SkipFramesSize     uint64
	NumBlocks          uint64
	PhySize            uint64
	UnpackSize         uint64
	ContentSizeTotal   uint64
	ContentSizeMax     uint64
	ContentSizeUnknown bool

	// DictionaryID is the first non-zero dictionary ID seen.
	DictionaryID        uint32
	DictionaryIDsDiffer bool

	// DescriptorOR and DescriptorNotOR accumulate the frame descriptors
	// and their complements, so that a flag is set in some frames if it is
	// set in DescriptorOR and in all frames if it is clear in
	// DescriptorNotOR.
	DescriptorOR    byte
	DescriptorNotOR byte

	WindowDescriptorMax byte
	WindowSizeMax       uint64
	WindowSizeAllocMax  uint64

	// Checksum is the stored checksum of the last data frame, if it had one.
	Checksum        uint32
	ChecksumDefined bool

	UnsupportedBlock bool
	ReservedFrame    bool
}

// NumFrames returns the number of data and skippable frames seen.
func (info ZstdInfo) NumFrames() uint64 {
	return info.NumDataFrames + info.NumSkipFrames
}

// AllHaveChecksums returns true if every data frame carries a checksum.
func (info ZstdInfo) AllHaveChecksums() bool {
	return info.NumDataFrames != 0 && (info.DescriptorNotOR&zstdFlagChecksum) == 0
}

// SomeHaveChecksums returns true if at least one data frame carries a
// checksum.
func (info ZstdInfo) SomeHaveChecksums() bool {
	return (info.DescriptorOR & zstdFlagChecksum) != 0
}

// Method returns a one-line human-readable summary of the stream's
// properties.
func (info ZstdInfo) Method() string {
	sb := stringsBuilders.take()
	defer stringsBuilders.give(sb)

	add := func(words ...string) {
		for _, word := range words {
			if sb.Len() != 0 {
				sb.WriteByte(' ')
			}
			sb.WriteString(word)
		}
	}

	if info.DictionaryID != 0 {
		if info.DictionaryIDsDiffer {
			add("different-dictionary-IDs")
		}
		add("dictionary-ID:" + strconv.FormatUint(uint64(info.DictionaryID), 10))
	}
	if (info.DescriptorOR & zstdFlagChecksum) != 0 {
		add("XXH64")
	}
	if (info.DescriptorNotOR & zstdFlagChecksum) != 0 {
		add("NO-XXH64")
	}
	if (info.DescriptorOR & zstdFlagUnused) != 0 {
		add("unused_bit")
	}
	if (info.DescriptorOR & zstdFlagSingle) != 0 {
		add("single-segments")
	}
	if (info.DescriptorNotOR & zstdFlagSingle) != 0 {
		logSize := "wnd-desc-log-MAX:" + strconv.Itoa(int(info.WindowDescriptorMax>>3)+10)
		if m := info.WindowDescriptorMax & 7; m != 0 {
			logSize += "." + strconv.Itoa(int(m))
		}
		add(logSize)
	}
	if (info.DescriptorOR&0xe0) != 0 || (info.DescriptorNotOR&zstdFlagSingle) != 0 {
		add("wnd-MAX:" + formatZstdSize(info.WindowSizeMax))
		if info.WindowSizeMax != info.WindowSizeAllocMax {
			add("wnd-use-MAX:" + formatZstdSize(info.WindowSizeAllocMax))
		}
	}
	if info.NumDataFrames != 1 {
		add("data-frames:" + strconv.FormatUint(info.NumDataFrames, 10))
	}
	if info.NumSkipFrames != 0 {
		add("skip-frames:"+strconv.FormatUint(info.NumSkipFrames, 10),
			"skip-frames-size-total:"+strconv.FormatUint(info.SkipFramesSize, 10))
	}
	if info.ContentSizeUnknown {
		add("unknown-content-size")
	}
	if (info.DescriptorOR & 0xe0) != 0 {
		add("content-size-frame-max:"+strconv.FormatUint(info.ContentSizeMax, 10),
			"content-size-total:"+strconv.FormatUint(info.ContentSizeTotal, 10))
	}
	return sb.String()
}

// addFrame folds fh into the aggregates and returns the largest block size
// the frame allows.
func (info *ZstdInfo) addFrame(fh zstdFrameHeader) uint64 {
	info.DescriptorOR |= fh.descriptor
	info.DescriptorNotOR |= ^fh.descriptor

	if fh.dictionaryID != 0 {
		if info.DictionaryID == 0 {
			info.DictionaryID = fh.dictionaryID
		} else if info.DictionaryID != fh.dictionaryID {
			info.DictionaryIDsDiffer = true
		}
	}

	window, alloc := fh.windowSizes()
	if !fh.isSingleSegment() && info.WindowDescriptorMax < fh.windowDescriptor {
		info.WindowDescriptorMax = fh.windowDescriptor
	}
	if info.WindowSizeMax < window {
		info.WindowSizeMax = window
	}
	if info.WindowSizeAllocMax < alloc {
		info.WindowSizeAllocMax = alloc
	}

	if fh.hasContentSize() {
		info.ContentSizeTotal += fh.contentSize
		if info.ContentSizeMax < fh.contentSize {
			info.ContentSizeMax = fh.contentSize
		}
	} else {
		info.ContentSizeUnknown = true
	}

	info.ChecksumDefined = false

	blockMax := uint64(zstdBlockSizeMax)
	if blockMax > window {
		blockMax = window
	}
	return blockMax
}

func formatZstdSize(w uint64) string {
	var suffix string
	switch {
	case (w & ((1 << 30) - 1)) == 0:
		w >>= 30
		suffix = "GiB"
	case (w & ((1 << 20) - 1)) == 0:
		w >>= 20
		suffix = "MiB"
	case (w & ((1 << 10) - 1)) == 0:
		w >>= 10
		suffix = "KiB"
	}
	return strconv.FormatUint(w, 10) + suffix
}

// }}}

// type zstdScanner {{{

// zstdScanner walks frame and block headers without decoding block
// contents.  If frame is non-nil, the raw bytes of each data frame are
// collected there and handed to onFrame once the frame is complete.
type zstdScanner struct {
	in      inBuffer
	info    ZstdInfo
	tracers []Tracer
	frame   *bytes.Buffer
	onFrame func(fh zstdFrameHeader, frame []byte) error
}

func (s *zstdScanner) read(p []byte) int {
	n := s.in.readBytes(p)
	if s.frame != nil {
		s.frame.Write(p[:n])
	}
	return n
}

func (s *zstdScanner) skip(n uint64) uint64 {
	var done uint64
	if s.frame != nil {
		done, _ = s.in.copyTo(s.frame, n)
	} else {
		done, _ = s.in.copyTo(nil, n)
	}
	return done
}

func (s *zstdScanner) truncated(what string) error {
	if s.in.err != nil {
		return &Error{Kind: KindUnexpectedEnd, Offset: s.in.streamSize(), Problem: what, Err: s.in.err}
	}
	return newError(KindUnexpectedEnd, s.in.streamSize(), "%s", what)
}

func (s *zstdScanner) run() error {
	info := &s.info
	var p [4 + 1 + zstdFrameHeaderSizeMax]byte
	for {
		start := s.in.streamSize()
		if s.frame != nil {
			s.frame.Reset()
		}

		first := (info.NumFrames() == 0)
		n := s.read(p[:4])
		if n < 4 {
			if first {
				return newError(KindIsNotArchive, start, "too short for a Zstandard stream")
			}
			if s.in.err != nil {
				return s.truncated("read error after the last Zstandard frame")
			}
			if n == 0 {
				return nil
			}
			return newError(KindDataAfterEnd, start, "%d trailing bytes after the last Zstandard frame", n)
		}

		magic := binary.LittleEndian.Uint32(p[:4])
		if magic != zstdMagic {
			if (magic & zstdSkipMagicMask) != zstdSkipMagic {
				if first {
					return newError(KindIsNotArchive, start, "invalid Zstandard magic number %#08x", magic)
				}
				return newError(KindDataAfterEnd, start, "unrecognized data after the last Zstandard frame")
			}
			if err := s.skipFrame(start, magic); err != nil {
				return err
			}
			continue
		}

		info.IsArc = true
		info.NumDataFrames++
		if s.read(p[4:5]) < 1 {
			info.PhySize = s.in.streamSize() + 1
			return s.truncated("truncated Zstandard frame header")
		}
		descriptor := p[4]
		hsize := zstdFrameHeaderSize(descriptor)
		if s.read(p[5:5+hsize]) < hsize {
			info.PhySize = s.in.streamSize() + 1
			return s.truncated("truncated Zstandard frame header")
		}
		fh := parseZstdFrameHeader(descriptor, p[5:5+hsize])
		if fh.isReserved() {
			if first {
				info.IsArc = false
				return newError(KindIsNotArchive, start+4, "Zstandard frame descriptor %#02x has the reserved bit set", descriptor)
			}
			info.ReservedFrame = true
			return newError(KindDataAfterEnd, start+4, "Zstandard frame descriptor %#02x has the reserved bit set", descriptor)
		}

		blockMax := info.addFrame(fh)
		window, _ := fh.windowSizes()
		sendEvent(s.tracers, Event{
			Type:       FrameBeginEvent,
			InputBytes: start,
			NumStreams: uint(info.NumDataFrames),
			Format:     ZstdFormat,
			Frame: &FrameEvent{
				Magic:        magic,
				Size:         uint64(5 + hsize),
				ContentSize:  fh.contentSize,
				WindowSize:   window,
				DictionaryID: fh.dictionaryID,
				HasChecksum:  fh.hasChecksum(),
			},
		})

		if err := s.scanBlocks(first, blockMax); err != nil {
			return err
		}

		if fh.hasChecksum() {
			info.PhySize = s.in.streamSize() + 4
			if s.read(p[:4]) < 4 {
				return s.truncated("truncated Zstandard frame checksum")
			}
			info.ChecksumDefined = true
			info.Checksum = binary.LittleEndian.Uint32(p[:4])
		}
		info.PhySize = s.in.streamSize()

		if s.onFrame != nil {
			if err := s.onFrame(fh, s.frame.Bytes()); err != nil {
				return err
			}
		}
	}
}

func (s *zstdScanner) skipFrame(start uint64, magic uint32) error {
	info := &s.info
	info.IsArc = true
	info.NumSkipFrames++
	info.PhySize = start + 8

	var p [4]byte
	if s.in.readBytes(p[:]) < 4 {
		return s.truncated("truncated Zstandard skippable frame header")
	}
	size := uint64(binary.LittleEndian.Uint32(p[:]))
	info.SkipFramesSize += size
	info.PhySize = start + 8 + size

	sendEvent(s.tracers, Event{
		Type:       SkipFrameEvent,
		InputBytes: start,
		Format:     ZstdFormat,
		Frame:      &FrameEvent{Skippable: true, Magic: magic, Size: size},
	})

	if done, _ := s.in.copyTo(nil, size); done < size {
		return s.truncated("truncated Zstandard skippable frame")
	}
	return nil
}

// scanBlocks walks the block headers of one data frame up to and including
// its last block.
func (s *zstdScanner) scanBlocks(firstFrame bool, blockMax uint64) error {
	info := &s.info
	var p [3]byte
	for {
		info.PhySize = s.in.streamSize() + 3
		if s.read(p[:]) < 3 {
			return s.truncated("truncated Zstandard block header")
		}
		b := uint32(p[0]) | uint32(p[1])<<8 | uint32(p[2])<<16
		info.NumBlocks++
		blockType := (b >> 1) & 3
		size := uint64(b >> 3)

		if blockType == zstdBlockTypeReserved || size > blockMax {
			info.UnsupportedBlock = true
			if firstFrame && info.NumBlocks == 1 {
				info.IsArc = false
			}
			if blockType == zstdBlockTypeReserved {
				return newError(KindUnsupportedBlock, s.in.streamSize()-3, "reserved Zstandard block type")
			}
			return newError(KindUnsupportedBlock, s.in.streamSize()-3, "Zstandard block size %d exceeds the limit of %d bytes", size, blockMax)
		}
		if blockType == zstdBlockTypeRLE {
			size = 1
		}

		info.PhySize = s.in.streamSize() + size
		if s.skip(size) < size {
			return s.truncated("truncated Zstandard block")
		}
		if (b & 1) != 0 {
			return nil
		}
	}
}

// }}}

// ProbeZstd walks the frame and block headers of the Zstandard stream in r
// without decompressing anything.  The returned ZstdInfo is filled in as far
// as parsing got, even when an error is returned.
func ProbeZstd(r io.Reader) (ZstdInfo, error) {
	assert.NotNil(&r)

	var s zstdScanner
	s.in.setReader(r)
	err := s.run()
	return s.info, err
}

// IsArcZstd examines the first bytes of a stream and reports whether they
// begin a Zstandard stream.  A data frame is refused if its descriptor has
// the reserved bit set or if its first block could not be decoded.
func IsArcZstd(p []byte) ProbeResult {
	if len(p) < 4 {
		return ProbeNeedMore
	}
	magic := binary.LittleEndian.Uint32(p)
	if magic != zstdMagic {
		if (magic & zstdSkipMagicMask) == zstdSkipMagic {
			return ProbeYes
		}
		return ProbeNo
	}
	p = p[4:]

	if len(p) < 1 {
		return ProbeNeedMore
	}
	descriptor := p[0]
	if (descriptor & zstdFlagReserved) != 0 {
		return ProbeNo
	}
	hsize := zstdFrameHeaderSize(descriptor)
	if len(p) < 1+hsize+3 {
		return ProbeNeedMore
	}
	fh := parseZstdFrameHeader(descriptor, p[1:1+hsize])
	p = p[1+hsize:]

	blockMax := uint64(zstdBlockSizeMax)
	if window, _ := fh.windowSizes(); blockMax > window {
		blockMax = window
	}
	b := uint32(p[0]) | uint32(p[1])<<8 | uint32(p[2])<<16
	if (b>>1)&3 == zstdBlockTypeReserved || uint64(b>>3) > blockMax {
		return ProbeNo
	}
	return ProbeYes
}

// DecodeZstd decompresses every data frame of the Zstandard stream in r to
// w, skipping skippable frames.  Frames that carry a checksum are verified
// against the XXH64 of their content.  Relevant options are WithProgress
// and WithTracers.
func DecodeZstd(r io.Reader, w io.Writer, opts ...Option) (ZstdInfo, error) {
	assert.NotNil(&r)
	assert.NotNil(&w)

	var o options
	o.reset()
	o.apply(opts)

	dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1), zstd.IgnoreChecksum(true))
	if err != nil {
		return ZstdInfo{}, wrapError(KindOutOfMemory, 0, err)
	}
	defer dec.Close()

	var s zstdScanner
	s.in.setReader(r)
	s.tracers = o.tracers
	s.frame = bytesBuffers.take()
	defer bytesBuffers.give(s.frame)

	var out []byte
	s.onFrame = func(fh zstdFrameHeader, frame []byte) error {
		frameStart := s.in.streamSize() - uint64(len(frame))

		var err error
		out, err = dec.DecodeAll(frame, out[:0])
		if err != nil {
			return zstdDecodeError(frameStart, err)
		}

		if _, err := (fullWriter{w: w}).Write(out); err != nil {
			return wrapError(KindWriteError, frameStart, err)
		}
		s.info.UnpackSize += uint64(len(out))

		if fh.hasContentSize() && uint64(len(out)) != fh.contentSize {
			return newError(KindDataError, frameStart, "Zstandard frame content size mismatch -- header says %d, decoded %d", fh.contentSize, len(out))
		}
		if fh.hasChecksum() {
			computed := uint32(xxHash64.Checksum(out, 0))
			if computed != s.info.Checksum {
				return newError(KindCRCError, s.in.streamSize()-4, "invalid Zstandard frame checksum -- stored value %#08x, computed value %#08x", s.info.Checksum, computed)
			}
		}
		return reportProgress(o.progress, s.in.streamSize(), s.in.streamSize(), s.info.UnpackSize)
	}

	err = s.run()
	if err == nil {
		sendEvent(o.tracers, Event{
			Type:        StreamCloseEvent,
			InputBytes:  s.in.streamSize(),
			OutputBytes: s.info.UnpackSize,
			NumStreams:  uint(s.info.NumDataFrames),
			Format:      ZstdFormat,
		})
	}
	return s.info, err
}

func zstdDecodeError(offset uint64, err error) error {
	switch {
	case errors.Is(err, zstd.ErrUnknownDictionary):
		return wrapError(KindUnsupportedMethod, offset, err)
	case errors.Is(err, zstd.ErrWindowSizeExceeded), errors.Is(err, zstd.ErrDecoderSizeExceeded):
		return wrapError(KindOutOfMemory, offset, err)
	case errors.Is(err, io.ErrUnexpectedEOF):
		return wrapError(KindUnexpectedEnd, offset, err)
	default:
		return wrapError(KindDataError, offset, err)
	}
}

// WriteZstd compresses everything r yields into one Zstandard frame on w,
// with a content checksum.  The CompressLevel maps onto the
// encoder's speed levels: 1-2 fastest, 3-5 default, 6-9 better.  An
// explicit WindowBits caps the window.
func WriteZstd(w io.Writer, r io.Reader, opts ...Option) error {
	assert.NotNil(&w)
	assert.NotNil(&r)

	var o options
	o.reset()
	o.apply(opts)
	o.populateWriterDefaults()

	level := zstd.EncoderLevelFromZstd(int(o.clevel))
	if o.clevel == NoCompression {
		level = zstd.SpeedFastest
	}
	zopts := []zstd.EOption{
		zstd.WithEncoderLevel(level),
		zstd.WithEncoderConcurrency(1),
		zstd.WithEncoderCRC(true),
	}
	if o.wbits != DefaultWindowBits {
		wbits := o.wbits
		if wbits < zstdMinWindowBits {
			wbits = zstdMinWindowBits
		}
		zopts = append(zopts, zstd.WithWindowSize(1<<wbits))
	}

	enc, err := zstd.NewWriter(w, zopts...)
	if err != nil {
		return wrapError(KindUnsupportedMethod, 0, err)
	}
	sendEvent(o.tracers, Event{Type: StreamHeaderEvent, NumStreams: 1, Format: ZstdFormat})

	var errs *multierror.Error
	n, err := enc.ReadFrom(r)
	if err != nil {
		errs = multierror.Append(errs, err)
	}
	if err := enc.Close(); err != nil {
		errs = multierror.Append(errs, err)
	}
	if err := errs.ErrorOrNil(); err != nil {
		return wrapError(KindWriteError, 0, err)
	}

	sendEvent(o.tracers, Event{Type: StreamCloseEvent, InputBytes: uint64(n), NumStreams: 1, Format: ZstdFormat})
	return nil
}
