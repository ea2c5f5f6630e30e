package arcflate

import (
	"errors"
	"io"

	"github.com/chronos-tachyon/assert"
	"github.com/chronos-tachyon/huffman"
)

const (
	maxNumPasses   = 32
	maxMatchCycles = 1 << 30

	numDivPassesMax              = 10
	numTables                    = 1 << numDivPassesMax
	fixedHuffmanCodeBlockSizeMax = 1 << 8
	divideCodeBlockSizeMin       = 1 << 7
	divideBlockSizeMin           = 1 << 6

	matchArraySize  = maxStoredBlockSize * 10
	matchArrayLimit = matchArraySize - matchMaxLen32*4*2

	numOptsBase = 1 << 12
	numOpts     = numOptsBase + matchMaxLen32

	blockUncompressedSizeThreshold = maxStoredBlockSize - matchMaxLen32 - numOpts

	numLenSymbolsMax = 256

	noLiteralStatPrice = 11
	noLenStatPrice     = 11
	noPosStatPrice     = 6
	infinityPrice      = 0xfffffff
)

// encTables is the per-block state of the block splitter.  Table 1 covers
// the whole block; tables 2i and 2i+1 cover the two halves of table i.
type encTables struct {
	levels       tableLevels
	useSubBlocks bool
	storeMode    bool
	staticMode   bool
	blockSizeRes uint32
	pos          uint32
}

// initStructures installs the starting price model of a stream.
func (t *encTables) initStructures() {
	for i := 0; i < 256; i++ {
		t.levels.litLen[i] = 8
	}
	t.levels.litLen[symbolEndOfBlock] = 13
	for i := symbolEndOfBlock + 1; i < fixedMainTableSize; i++ {
		t.levels.litLen[i] = 5
	}
	for i := 0; i < fixedDistTableSize; i++ {
		t.levels.dist[i] = 5
	}
}

// optimal is one node of the optimal parser's lookahead: the cheapest known
// price of reaching this position, and the step that achieves it.
type optimal struct {
	price    uint32
	posPrev  uint16
	backPrev uint16
}

// Encoder is a DEFLATE (and Deflate64) compressor.  An Encoder may be used
// for many streams, one Code call at a time; its large tables are allocated
// at first use and kept.
type Encoder struct {
	level       CompressLevel
	algo        int8
	wbits       WindowBits
	deflate64   bool
	finder      MatchFinder
	numPassesIn uint32
	fastBytesIn uint32
	cyclesIn    uint32
	tracers     []Tracer

	matchMaxLen        uint32
	numLenCombinations uint32
	lenStart           *[32]byte
	lenDirectBits      *[32]byte
	numFastBytes       uint32
	matchCycles        uint32
	fastMode           bool
	btMode             bool
	storedOnly         bool
	numPasses          uint32
	numDivPasses       uint32
	historySize        uint32

	mf      matchFinder
	bw      bitWriter
	llEnc   huffman.Encoder
	dEnc    huffman.Encoder
	xEnc    huffman.Encoder
	xtokens *[]token

	values         []token
	tables         []encTables
	onePosMatches  []uint16
	distanceMemory []uint16
	md             []uint16
	matchTmp       [2*matchMaxLen32 + 3]uint32
	storedBuf      []byte

	optimum       [numOpts]optimal
	literalPrices [256]byte
	lenPrices     [numLenSymbolsMax]byte
	posPrices     [distTableSize64]byte

	mainFreqs   [fixedMainTableSize]uint32
	distFreqs   [distTableSize64]uint32
	newLevels   tableLevels
	levelLens   [levelTableSize]byte
	levelLevels [levelTableSize]byte

	numLitLenLevels uint32
	numDistLevels   uint32
	numLevelCodes   uint32

	pos                 uint32
	valueIndex          uint32
	valueBlockSize      uint32
	blockSizeRes        uint32
	additionalOffset    uint32
	optimumEndIndex     uint32
	optimumCurrentIndex uint32
	secondPass          bool
	checkStatic         bool
	isMultiPass         bool

	inPos uint64
}

// NewEncoder constructs an Encoder.  Relevant options are
// WithCompressLevel, WithWindowBits, WithDeflate64, WithMatchFinder,
// WithNumPasses, WithFastBytes, WithMatchCycles and WithTracers.
func NewEncoder(opts ...Option) *Encoder {
	var o options
	o.reset()
	o.apply(opts)

	return &Encoder{
		level:       o.clevel,
		algo:        -1,
		wbits:       o.wbits,
		deflate64:   o.deflate64,
		finder:      o.matchFinder,
		numPassesIn: uint32(o.numPasses),
		fastBytesIn: uint32(o.fastBytes),
		cyclesIn:    uint32(o.matchCycles),
		tracers:     o.tracers,
	}
}

// SetLevel selects the compression level.  DefaultCompression means level 5;
// NoCompression writes stored blocks only.
func (e *Encoder) SetLevel(level CompressLevel) {
	assert.Assertf(level.IsValid(), "invalid CompressLevel %d", int(level))
	e.level = level
}

// SetDictionarySize limits the match distance to the smallest power of two
// that is at least size, within the range the format allows.
func (e *Encoder) SetDictionarySize(size uint32) {
	wbits := MinWindowBits
	for wbits < MaxWindowBits && (uint32(1)<<wbits) < size {
		wbits++
	}
	e.wbits = wbits
}

// SetNumPasses overrides the number of optimization passes implied by the
// level.  Zero restores the default.
func (e *Encoder) SetNumPasses(n uint) {
	assert.Assertf(n <= maxNumPasses, "number of passes %d > maximum %d", n, maxNumPasses)
	e.numPassesIn = uint32(n)
}

// SetFastBytes overrides the match length that ends the search for longer
// matches.  Zero restores the default.
func (e *Encoder) SetFastBytes(n uint) {
	assert.Assertf(n == 0 || (n >= matchMinLen && n <= matchMaxLen32), "fast bytes %d out of range [%d, %d]", n, matchMinLen, matchMaxLen32)
	e.fastBytesIn = uint32(n)
}

// SetMatchCycles overrides the match finder's search depth.  Zero restores
// the default.
func (e *Encoder) SetMatchCycles(n uint) {
	assert.Assertf(n <= maxMatchCycles, "match cycles %d > maximum %d", n, maxMatchCycles)
	e.cyclesIn = uint32(n)
}

// SetMatchFinder selects the match finder.
func (e *Encoder) SetMatchFinder(mf MatchFinder) {
	assert.Assertf(mf.IsValid(), "invalid MatchFinder %d", uint(mf))
	e.finder = mf
}

// SetAlgorithm overrides the level's choice of parser: true selects the
// optimal parser, false the greedy one.
func (e *Encoder) SetAlgorithm(optimal bool) {
	e.algo = 0
	if optimal {
		e.algo = 1
	}
}

// Method returns DeflateMethod or Deflate64Method.
func (e *Encoder) Method() Method {
	if e.deflate64 {
		return Deflate64Method
	}
	return DeflateMethod
}

// WindowBits returns the base-2 logarithm of the history size that the next
// Code call will use.
func (e *Encoder) WindowBits() WindowBits {
	limit := MaxDeflateWindowBits
	if e.deflate64 {
		limit = MaxWindowBits
	}
	wbits := e.wbits
	if wbits == DefaultWindowBits || wbits > limit {
		wbits = limit
	}
	return wbits
}

func (e *Encoder) setProps() {
	level := int(e.level)
	if level < 0 {
		level = int(NormalCompression)
	}

	algo := int(e.algo)
	if algo < 0 {
		algo = 1
		if level < 5 {
			algo = 0
		}
	}

	fb := e.fastBytesIn
	if fb == 0 {
		switch {
		case level < 7:
			fb = 32
		case level < 9:
			fb = 64
		default:
			fb = 128
		}
	}

	switch e.finder {
	case HashChainMatchFinder:
		e.btMode = false
	case BinaryTreeMatchFinder:
		e.btMode = true
	default:
		e.btMode = (algo != 0)
	}

	mc := e.cyclesIn
	if mc == 0 {
		mc = 16 + (fb >> 1)
	}

	passes := e.numPassesIn
	if passes == 0 {
		switch {
		case level < 7:
			passes = 1
		case level < 9:
			passes = 3
		default:
			passes = 10
		}
	}

	e.storedOnly = (level == 0)
	e.fastMode = (algo == 0)
	e.matchCycles = mc

	if e.deflate64 {
		e.matchMaxLen = matchMaxLen64
		e.numLenCombinations = matchMaxLen64 - matchMinLen + 1
		e.lenStart = &lenStart64
		e.lenDirectBits = &lenDirectBits64
	} else {
		e.matchMaxLen = matchMaxLen32
		e.numLenCombinations = matchMaxLen32 - matchMinLen + 1
		e.lenStart = &lenStart32
		e.lenDirectBits = &lenDirectBits32
	}
	if fb < matchMinLen {
		fb = matchMinLen
	}
	if fb > e.matchMaxLen {
		fb = e.matchMaxLen
	}
	e.numFastBytes = fb

	e.numDivPasses = passes
	switch {
	case e.numDivPasses == 1:
		e.numPasses = 1
	case e.numDivPasses <= numDivPassesMax:
		e.numPasses = 2
	default:
		e.numPasses = 2 + (e.numDivPasses - numDivPassesMax)
		e.numDivPasses = numDivPassesMax
	}

	e.historySize = uint32(1) << e.WindowBits()
}

func (e *Encoder) create() {
	e.mf.create(e.historySize, numOpts+maxStoredBlockSize, e.numFastBytes, e.matchMaxLen-e.numFastBytes, e.btMode)
	e.mf.setCutValue(e.matchCycles)

	if e.values == nil {
		e.values = make([]token, maxStoredBlockSize)
	}
	if e.tables == nil {
		e.tables = make([]encTables, numTables)
	}
	if e.isMultiPass {
		if e.onePosMatches == nil {
			e.onePosMatches = make([]uint16, matchArraySize)
		}
	} else if e.distanceMemory == nil {
		e.distanceMemory = make([]uint16, (matchMaxLen32+2)*2)
	}
}

// Code compresses everything r yields into one DEFLATE stream on w.
func (e *Encoder) Code(r io.Reader, w io.Writer, progress Progress) error {
	assert.NotNil(&r)
	assert.NotNil(&w)

	e.setProps()
	e.bw.init(w)
	e.inPos = 0

	e.xtokens = tokenSlices.take()
	defer func() {
		tokenSlices.give(e.xtokens)
		e.xtokens = nil
	}()

	e.sendEvent(Event{Type: StreamBeginEvent})

	var err error
	if e.storedOnly {
		err = e.codeStored(r, progress)
	} else {
		err = e.codeReal(r, progress)
	}

	if ferr := e.bw.flush(); err == nil && ferr != nil {
		err = wrapError(KindWriteError, e.inPos, ferr)
	}
	if err == nil {
		e.sendEvent(Event{Type: StreamEndEvent})
	}
	return err
}

func (e *Encoder) codeReal(r io.Reader, progress Progress) error {
	e.checkStatic = (e.numPasses != 1 || e.numDivPasses != 1)
	e.isMultiPass = e.checkStatic
	e.create()
	e.valueBlockSize = (7 << 10) + (1<<12)*e.numDivPasses

	e.mf.init(r)
	e.optimumEndIndex = 0
	e.optimumCurrentIndex = 0

	t := &e.tables[1]
	t.pos = 0
	t.initStructures()

	e.additionalOffset = 0
	for {
		t.blockSizeRes = blockUncompressedSizeThreshold
		e.secondPass = false
		e.getBlockPrice(1, e.numDivPasses)
		e.codeBlock(1, e.mf.available() == 0)
		e.inPos += uint64(t.blockSizeRes)

		if e.bw.err != nil {
			return wrapError(KindWriteError, e.inPos, e.bw.err)
		}
		if err := reportProgress(progress, e.inPos, e.inPos, e.bw.processedSize()); err != nil {
			return err
		}
		if e.mf.available() == 0 {
			break
		}
	}

	if e.mf.err != nil {
		return wrapError(KindReadError, e.inPos, e.mf.err)
	}
	return nil
}

// codeStored writes the input as stored blocks of at most 65535 bytes.  One
// block of lookahead is kept so that the last block can carry the final
// flag.
func (e *Encoder) codeStored(r io.Reader, progress Progress) error {
	if len(e.storedBuf) != 2*maxStoredBlockSize {
		e.storedBuf = make([]byte, 2*maxStoredBlockSize)
	}
	cur := e.storedBuf[:maxStoredBlockSize]
	next := e.storedBuf[maxStoredBlockSize:]

	n, err := readStoredChunk(r, cur)
	if err != nil {
		return wrapError(KindReadError, e.inPos, err)
	}
	for {
		m := 0
		if n == len(cur) {
			m, err = readStoredChunk(r, next)
			if err != nil {
				return wrapError(KindReadError, e.inPos+uint64(n), err)
			}
		}
		final := (m == 0)
		e.writeStoredChunk(cur[:n], final)
		e.inPos += uint64(n)

		if e.bw.err != nil {
			return wrapError(KindWriteError, e.inPos, e.bw.err)
		}
		if err := reportProgress(progress, e.inPos, e.inPos, e.bw.processedSize()); err != nil {
			return err
		}
		if final {
			return nil
		}
		cur, next = next, cur
		n = m
	}
}

func readStoredChunk(r io.Reader, p []byte) (int, error) {
	n, err := io.ReadFull(r, p)
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		err = nil
	}
	return n, err
}

func (e *Encoder) sendEvent(event Event) {
	if len(e.tracers) == 0 {
		return
	}
	event.InputBytes = e.inPos
	event.OutputBytes = e.bw.processedSize()
	event.Format = RawFormat
	sendEvent(e.tracers, event)
}
