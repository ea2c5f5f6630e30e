package arcflate

import (
	"io"
)

const (
	decodeChunkSize       = 1 << 20
	inputProgressInterval = 1 << 21
)

type decodePhase byte

const (
	phaseNeedInit decodePhase = iota
	phaseActive
	phaseFinished
)

// decodeState is everything the DEFLATE decoder must remember between two
// calls in order to resume mid-block or mid-match.  The Huffman tables of
// the current block live in the Decoder itself.
type decodeState struct {
	phase         decodePhase
	finalBlock    bool
	blockType     BlockType
	needReadTable bool
	storedMode    bool
	storedSize    uint32
	numDistLevels uint32
	remainLen     uint32
	rep0          uint32
}

// Decoder is a resumable DEFLATE (and Deflate64) decoder.  A single Decoder
// may decode many consecutive streams from one input, as the gzip framer
// does for multi-member files.
type Decoder struct {
	br       lsbReader
	win      lzWindow
	mainDec  huffDecoder
	distDec  huffDecoder
	levelDec huffDecoder
	state    decodeState

	deflate64        bool
	nsis             bool
	keepHistory      bool
	needFinishInput  bool
	zlibMode         bool
	zlibFooter       [4]byte
	needInitInStream bool
	outSizeDefined   bool
	outSize          uint64
	tracers          []Tracer
}

// NewDecoder constructs a Decoder.  Relevant options are WithDeflate64,
// WithNSIS, WithFinishMode, WithKeepHistory and WithTracers.
func NewDecoder(opts ...Option) *Decoder {
	var o options
	o.reset()
	o.apply(opts)

	d := &Decoder{
		deflate64:        o.deflate64,
		nsis:             o.nsis,
		keepHistory:      o.keepHistory,
		needFinishInput:  o.finish,
		needInitInStream: true,
		tracers:          o.tracers,
	}
	d.mainDec.setMaxBits(maxHuffmanBits)
	d.distDec.setMaxBits(maxHuffmanBits)
	d.levelDec.setMaxBits(maxLevelBitLength)
	d.br.in.setReader(nil)
	d.br.init()
	return d
}

// Method returns the DEFLATE variant this Decoder reads.
func (d *Decoder) Method() Method {
	switch {
	case d.deflate64:
		return Deflate64Method
	case d.nsis:
		return NSISMethod
	default:
		return DeflateMethod
	}
}

// SetFinishMode controls whether the decoder insists on ending exactly at
// the requested output size with an end-of-block symbol.
func (d *Decoder) SetFinishMode(finish bool) {
	d.needFinishInput = finish
}

// SetZlibMode makes the decoder read the four-byte Adler-32 trailer of a
// zlib stream once the final block is done.  See ZlibFooter.
func (d *Decoder) SetZlibMode(enabled bool) {
	d.zlibMode = enabled
}

// SetInput attaches a new input source and resets all input accounting.
func (d *Decoder) SetInput(r io.Reader) {
	d.br.in.setReader(r)
	d.br.init()
	d.needInitInStream = false
	d.setOutSizeResume(nil)
}

// Code decodes one DEFLATE stream from r to w.  If outSize is non-nil, at
// most *outSize bytes are produced.  Whatever was decoded before a failure is
// still written to w.
func (d *Decoder) Code(r io.Reader, w io.Writer, outSize *uint64, progress Progress) error {
	d.SetInput(r)
	d.setOutSizeResume(outSize)
	return d.codeReal(w, progress)
}

// CodeResume continues decoding from the current input position without
// resetting input accounting.  It is used to decode consecutive streams
// that share one input.
func (d *Decoder) CodeResume(w io.Writer, outSize *uint64, progress Progress) error {
	d.setOutSizeResume(outSize)
	return d.codeReal(w, progress)
}

func (d *Decoder) setOutSizeResume(outSize *uint64) {
	d.outSizeDefined = (outSize != nil)
	d.outSize = 0
	if outSize != nil {
		d.outSize = *outSize
	}
	d.win.create(d.windowNumBits())
	d.win.init(d.keepHistory)
	d.state = decodeState{phase: phaseNeedInit}
}

func (d *Decoder) windowNumBits() uint {
	if d.deflate64 {
		return 16
	}
	return 15
}

// Finished reports whether the final block of the current stream has been
// fully decoded.
func (d *Decoder) Finished() bool {
	return d.state.phase == phaseFinished
}

// OutputProcessedSize returns the number of bytes produced for the current
// stream.
func (d *Decoder) OutputProcessedSize() uint64 {
	return d.win.total
}

// InputProcessedSize returns the bit-accurate logical input position in
// bytes.  It counts bytes synthesized past the end of the input.
func (d *Decoder) InputProcessedSize() uint64 {
	return d.br.processedSize()
}

// StreamSize returns the number of input bytes really consumed.  It differs
// from InputProcessedSize only after decoding ran past the end of the input.
func (d *Decoder) StreamSize() uint64 {
	return d.br.streamSize()
}

// InputEOFError reports whether more bits were consumed than the input held.
func (d *Decoder) InputEOFError() bool {
	return d.br.extraBitsWereRead()
}

// AlignToByte discards bits up to the next byte boundary.
func (d *Decoder) AlignToByte() {
	d.br.alignToByte()
}

// ReadAlignedByte reads one byte at a byte boundary.  Past the end of the
// input it returns 0xff and InputEOFError becomes true.
func (d *Decoder) ReadAlignedByte() byte {
	return d.br.readAlignedByte()
}

// ZlibFooter returns the four bytes read after the final block in zlib mode.
func (d *Decoder) ZlibFooter() [4]byte {
	return d.zlibFooter
}

// ReadUnusedFromInBuf copies bytes that were read from the input but not
// consumed by the decoder into p.
func (d *Decoder) ReadUnusedFromInBuf(p []byte) int {
	d.br.alignToByte()
	if d.br.extraBitsWereRead() {
		return 0
	}
	i := 0
	for i < len(p) && d.br.thereAreDataInBitsBuffer() {
		p[i] = d.br.readAlignedByte()
		i++
	}
	if i < len(p) {
		n := copy(p[i:], d.br.in.unused())
		d.br.in.skipUnused(uint(n))
		i += n
	}
	return i
}

// Read decodes into p from the input attached with SetInput.  It returns
// io.EOF once the final block has been consumed.
func (d *Decoder) Read(p []byte) (int, error) {
	outPos := d.win.total
	size := uint64(len(p))
	finish := false
	if d.outSizeDefined {
		rem := d.outSize - outPos
		if size >= rem {
			size = rem
			finish = d.zlibMode || d.needFinishInput
		}
	}
	if d.state.phase == phaseFinished || (!finish && size == 0) {
		if len(p) != 0 {
			return 0, io.EOF
		}
		return 0, nil
	}

	sink := &memSink{p: p[:size]}
	d.win.setWriter(sink)
	st, err := d.codeSpec(d.state, uint32(size), finish, 0)
	d.state = st
	if ferr := d.win.flush(); err == nil && ferr != nil {
		err = wrapError(KindWriteError, d.br.processedSize(), ferr)
	}
	d.win.setWriter(nil)
	if err == nil && sink.n == 0 && d.state.phase == phaseFinished {
		err = io.EOF
	}
	return sink.n, err
}

var _ io.Reader = (*Decoder)(nil)

func (d *Decoder) codeReal(w io.Writer, progress Progress) (err error) {
	d.win.setWriter(w)
	defer func() {
		if ferr := d.win.flush(); err == nil && ferr != nil {
			err = wrapError(KindWriteError, d.br.processedSize(), ferr)
		}
		d.win.setWriter(nil)
	}()

	inStart := uint64(0)
	if !d.needInitInStream {
		inStart = d.br.processedSize()
	}

	for {
		curSize := uint64(decodeChunkSize)
		finish := false
		if d.outSizeDefined {
			rem := d.outSize - d.win.total
			if curSize >= rem {
				curSize = rem
				finish = d.zlibMode || d.needFinishInput
			}
		}
		if !finish && curSize == 0 {
			break
		}

		var limit uint64
		if progress != nil {
			limit = inputProgressInterval
		}
		d.state, err = d.codeSpec(d.state, uint32(curSize), finish, limit)
		if err != nil {
			return err
		}
		if d.state.phase == phaseFinished {
			break
		}

		if progress != nil {
			in := d.br.processedSize() - inStart
			if err = reportProgress(progress, d.br.processedSize(), in, d.win.total); err != nil {
				return err
			}
		}
		if d.win.err != nil {
			return wrapError(KindWriteError, d.br.processedSize(), d.win.err)
		}
	}

	if d.state.phase == phaseFinished && d.zlibMode {
		d.br.alignToByte()
		for i := range d.zlibFooter {
			d.zlibFooter[i] = d.br.readAlignedByte()
		}
	}

	if d.state.phase != phaseNeedInit && d.br.extraBitsWereRead() {
		return d.failf("unexpected end of input")
	}
	if d.br.in.err != nil {
		return wrapError(KindUnexpectedEnd, d.br.processedSize(), d.br.in.err)
	}
	return nil
}

// failf reports a decode failure.  Any failure observed after reading past
// the end of the input is a truncation rather than corruption.
func (d *Decoder) failf(format string, v ...interface{}) error {
	kind := KindDataError
	if d.br.extraBitsWereRead() {
		kind = KindUnexpectedEnd
	}
	err := newError(kind, d.br.streamSize(), format, v...)
	err.Err = d.br.in.err
	return err
}

// codeSpec runs the decoder for at most curSize output bytes.  With finish
// set, the stream must reach an end-of-block symbol exactly at curSize.  A
// nonzero progressLimit makes codeSpec return early, at a block boundary,
// once that many input bytes have been consumed.
func (d *Decoder) codeSpec(st decodeState, curSize uint32, finish bool, progressLimit uint64) (decodeState, error) {
	if st.phase == phaseFinished {
		return st, nil
	}

	if st.phase == phaseNeedInit {
		if d.needInitInStream {
			d.br.init()
			d.needInitInStream = false
		}
		d.win.init(d.keepHistory)
		st = decodeState{phase: phaseActive, needReadTable: true}
		d.sendEvent(Event{Type: StreamBeginEvent})
	}

	for st.remainLen > 0 && curSize > 0 {
		st.remainLen--
		d.win.putByte(d.win.getByte(st.rep0))
		curSize--
	}

	inputStart := uint64(0)
	if progressLimit != 0 {
		inputStart = d.br.processedSize()
	}

	for curSize > 0 || finish {
		if d.br.extraBitsWereRead() {
			return st, d.failf("unexpected end of input")
		}

		if st.needReadTable {
			if st.finalBlock {
				st.phase = phaseFinished
				d.sendEvent(Event{Type: StreamEndEvent})
				break
			}
			if progressLimit != 0 && d.br.processedSize()-inputStart >= progressLimit {
				return st, nil
			}
			var err error
			if st, err = d.readTables(st); err != nil {
				return st, err
			}
			if d.br.extraBitsWereRead() {
				return st, d.failf("unexpected end of input in block header")
			}
			st.needReadTable = false
		}

		if st.storedMode {
			if finish && curSize == 0 && st.storedSize != 0 {
				return st, d.failf("stored block overruns the expected output size")
			}
			for ; st.storedSize > 0 && curSize > 0 && d.br.thereAreDataInBitsBuffer(); st.storedSize, curSize = st.storedSize-1, curSize-1 {
				d.win.putByte(d.br.readAlignedByte())
			}
			for ; st.storedSize > 0 && curSize > 0; st.storedSize, curSize = st.storedSize-1, curSize-1 {
				d.win.putByte(d.br.readDirectByte())
			}
			st.needReadTable = (st.storedSize == 0)
			if st.needReadTable {
				d.sendEvent(Event{Type: BlockEndEvent, Block: &BlockEvent{Type: StoredBlock, IsFinal: st.finalBlock}})
			}
			continue
		}

		for curSize > 0 {
			if d.br.extraBitsWereReadFast() {
				return st, d.failf("unexpected end of input")
			}

			sym := d.mainDec.decode(&d.br)
			switch {
			case sym < 0x100:
				d.win.putByte(byte(sym))
				curSize--
				continue

			case sym == symbolEndOfBlock:
				st.needReadTable = true
				d.sendEvent(Event{Type: BlockEndEvent, Block: &BlockEvent{Type: st.blockType, IsFinal: st.finalBlock}})

			case sym < mainTableSize:
				sym -= symbolMatch
				var length uint32
				if d.deflate64 {
					length = uint32(lenStart64[sym]) + matchMinLen + d.br.readBits(uint(lenDirectBits64[sym]))
				} else {
					length = uint32(lenStart32[sym]) + matchMinLen + d.br.readBits(uint(lenDirectBits32[sym]))
				}
				locLen := length
				if locLen > curSize {
					locLen = curSize
				}
				dsym := d.distDec.decode(&d.br)
				if dsym >= st.numDistLevels {
					return st, d.failf("invalid distance symbol %d", int32(dsym))
				}
				dist := distStart[dsym] + d.br.readBits(uint(distDirectBits[dsym]))
				if !d.win.copyBlock(dist, locLen) {
					return st, d.failf("distance %d exceeds the available history %d", dist+1, d.win.avail)
				}
				curSize -= locLen
				length -= locLen
				if length != 0 {
					st.remainLen = length
					st.rep0 = dist
				}

			default:
				return st, d.failf("invalid literal/length symbol %d", int32(sym))
			}
			if st.needReadTable || st.remainLen != 0 {
				break
			}
		}

		if finish && curSize == 0 {
			if d.mainDec.decode(&d.br) != symbolEndOfBlock {
				return st, d.failf("stream does not end at the expected output size")
			}
			st.needReadTable = true
		}
	}

	if d.br.extraBitsWereRead() {
		return st, d.failf("unexpected end of input")
	}
	return st, nil
}

func (d *Decoder) readTables(st decodeState) (decodeState, error) {
	st.finalBlock = (d.br.readBits(1) == 1)
	if d.br.extraBitsWereRead() {
		return st, d.failf("unexpected end of input in block header")
	}
	st.blockType = BlockType(d.br.readBits(2))
	if st.blockType == ReservedBlock {
		return st, d.failf("invalid block type %d", st.blockType)
	}
	if d.br.extraBitsWereRead() {
		return st, d.failf("unexpected end of input in block header")
	}

	if st.blockType == StoredBlock {
		st.storedMode = true
		d.br.alignToByte()
		st.storedSize = d.readAlignedUint16()
		d.sendEvent(Event{Type: BlockBeginEvent, Block: &BlockEvent{Type: StoredBlock, IsFinal: st.finalBlock}})
		if d.nsis {
			return st, nil
		}
		if nsize := d.readAlignedUint16(); st.storedSize != (^nsize & 0xffff) {
			return st, d.failf("stored block length %#04x does not match its complement %#04x", st.storedSize, nsize)
		}
		return st, nil
	}

	st.storedMode = false
	var levels tableLevels
	if st.blockType == FixedBlock {
		levels.setFixed()
		st.numDistLevels = distTableSize32
		if d.deflate64 {
			st.numDistLevels = distTableSize64
		}
		d.sendEvent(Event{Type: BlockBeginEvent, Block: &BlockEvent{Type: FixedBlock, IsFinal: st.finalBlock}})
	} else {
		numLitLenLevels := d.br.readBits(5) + numLitLenCodesMin
		st.numDistLevels = d.br.readBits(5) + numDistCodesMin
		numLevelCodes := d.br.readBits(4) + numLevelCodesMin
		d.sendEvent(Event{Type: BlockBeginEvent, Block: &BlockEvent{Type: st.blockType, IsFinal: st.finalBlock}})

		if !d.deflate64 && st.numDistLevels > distTableSize32 {
			return st, d.failf("%d distance codes exceed the maximum %d", st.numDistLevels, distTableSize32)
		}

		var levelLevels [levelTableSize]byte
		for i := uint32(0); i < levelTableSize; i++ {
			if i < numLevelCodes {
				levelLevels[codeLengthAlphabetOrder[i]] = byte(d.br.readBits(levelFieldSize))
			}
		}
		if d.br.extraBitsWereRead() {
			return st, d.failf("unexpected end of input in code length table")
		}
		if !d.levelDec.build(levelLevels[:]) {
			return st, d.failf("invalid code length Huffman table")
		}

		var tmp [fixedMainTableSize + fixedDistTableSize]byte
		if !d.decodeLevels(tmp[:numLitLenLevels+st.numDistLevels]) {
			return st, d.failf("invalid code length sequence")
		}
		if d.br.extraBitsWereRead() {
			return st, d.failf("unexpected end of input in Huffman tables")
		}
		copy(levels.litLen[:], tmp[:numLitLenLevels])
		copy(levels.dist[:], tmp[numLitLenLevels:numLitLenLevels+st.numDistLevels])

		d.sendEvent(Event{Type: BlockTreesEvent, Trees: &TreesEvent{
			CodeCount:          uint16(numLevelCodes),
			LiteralLengthCount: uint16(numLitLenLevels),
			DistanceCount:      uint16(st.numDistLevels),
			CodeSizes:          SizeList(levelLevels[:]),
			LiteralLengthSizes: SizeList(levels.litLen[:numLitLenLevels]),
			DistanceSizes:      SizeList(levels.dist[:st.numDistLevels]),
		}})
	}

	if !d.mainDec.build(levels.litLen[:]) {
		return st, d.failf("invalid literal/length Huffman table")
	}
	if !d.distDec.build(levels.dist[:]) {
		return st, d.failf("invalid distance Huffman table")
	}
	return st, nil
}

func (d *Decoder) readAlignedUint16() uint32 {
	lo := uint32(d.br.readAlignedByte())
	hi := uint32(d.br.readAlignedByte())
	return lo | (hi << 8)
}

// decodeLevels expands the run-length coded code lengths of both alphabets.
func (d *Decoder) decodeLevels(levels []byte) bool {
	numSymbols := uint32(len(levels))
	i := uint32(0)
	for i < numSymbols {
		sym := d.levelDec.decode(&d.br)
		if sym < tableDirectLevels {
			levels[i] = byte(sym)
			i++
			continue
		}
		if sym >= levelTableSize {
			return false
		}

		var num, numBits uint32
		var symbol byte
		if sym == tableLevelRepNumber {
			if i == 0 {
				return false
			}
			numBits = 2
			num = 0
			symbol = levels[i-1]
		} else {
			sym -= tableLevel0Number
			sym <<= 2
			numBits = 3 + sym
			num = sym << 1
			symbol = 0
		}

		num += i + 3 + d.br.readBits(uint(numBits))
		if num > numSymbols {
			return false
		}
		for i < num {
			levels[i] = symbol
			i++
		}
	}
	return true
}

func (d *Decoder) sendEvent(event Event) {
	if len(d.tracers) == 0 {
		return
	}
	event.InputBytes = d.br.processedSize()
	event.OutputBytes = d.win.total
	event.Format = RawFormat
	sendEvent(d.tracers, event)
}

// type memSink {{{

// memSink is the output of Decoder.Read: it fills a caller-provided slice.
type memSink struct {
	p []byte
	n int
}

func (ms *memSink) Write(p []byte) (int, error) {
	n := copy(ms.p[ms.n:], p)
	ms.n += n
	if n < len(p) {
		return n, io.ErrShortWrite
	}
	return n, nil
}

var _ io.Writer = (*memSink)(nil)

// }}}
