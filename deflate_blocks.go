package arcflate

import (
	"github.com/chronos-tachyon/huffman"
)

const (
	finalBlockFieldSize = 1
	blockTypeFieldSize  = 2
	numLenSymbolsBits   = 5
	numDistCodesBits    = 5
	numLevelCodesBits   = 4
	storedLenFieldSize  = 16
	maxStaticHuffLen    = 9
)

func (e *Encoder) makeTables(maxHuffLen uint) {
	huffmanGenerate(e.mainFreqs[:], e.newLevels.litLen[:], maxHuffLen)
	huffmanGenerate(e.distFreqs[:], e.newLevels.dist[:], maxHuffLen)
}

// lzBlockPrice is the size in bits of the parsed block under newLevels,
// extra bits included.
func (e *Encoder) lzBlockPrice() uint32 {
	return huffmanPrice(e.mainFreqs[:], e.newLevels.litLen[:], e.lenDirectBits[:], symbolMatch) +
		huffmanPrice(e.distFreqs[:], e.newLevels.dist[:], distDirectBits[:], 0)
}

// tryDynBlock parses table ti's span numPasses times, each time pricing
// with the code lengths built from the previous parse, and returns the size
// in bits of the resulting dynamic block.
func (e *Encoder) tryDynBlock(ti uint32, numPasses uint32) uint32 {
	t := &e.tables[ti]
	e.blockSizeRes = t.blockSizeRes
	posTemp := t.pos
	e.setPrices(&t.levels)

	for p := uint32(0); p < numPasses; p++ {
		e.pos = posTemp
		e.tryBlock()
		var numHuffBits uint
		switch {
		case e.valueIndex > 18000:
			numHuffBits = 12
		case e.valueIndex > 7000:
			numHuffBits = 11
		case e.valueIndex > 2000:
			numHuffBits = 10
		default:
			numHuffBits = 9
		}
		e.makeTables(numHuffBits)
		e.setPrices(&e.newLevels)
	}

	t.levels = e.newLevels

	e.numLitLenLevels = mainTableSize
	for e.numLitLenLevels > numLitLenCodesMin && e.newLevels.litLen[e.numLitLenLevels-1] == 0 {
		e.numLitLenLevels--
	}
	e.numDistLevels = distTableSize64
	for e.numDistLevels > numDistCodesMin && e.newLevels.dist[e.numDistLevels-1] == 0 {
		e.numDistLevels--
	}

	xtokens := (*e.xtokens)[:0]
	xtokens = encodeTreeTokens(xtokens, e.newLevels.litLen[:e.numLitLenLevels])
	xtokens = encodeTreeTokens(xtokens, e.newLevels.dist[:e.numDistLevels])
	*e.xtokens = xtokens

	var levelFreqs [levelTableSize]uint32
	studyFrequenciesX(xtokens, levelFreqs[:])
	huffmanGenerate(levelFreqs[:], e.levelLens[:], maxLevelBitLength)

	e.numLevelCodes = numLevelCodesMin
	for i := uint32(0); i < levelTableSize; i++ {
		level := e.levelLens[codeLengthAlphabetOrder[i]]
		if level > 0 && i >= e.numLevelCodes {
			e.numLevelCodes = i + 1
		}
		e.levelLevels[i] = level
	}

	return e.lzBlockPrice() +
		huffmanPrice(levelFreqs[:], e.levelLens[:], levelDirectBits[:], tableDirectLevels) +
		numLenSymbolsBits + numDistCodesBits + numLevelCodesBits +
		e.numLevelCodes*levelFieldSize + finalBlockFieldSize + blockTypeFieldSize
}

func (e *Encoder) tryFixedBlock(ti uint32) uint32 {
	t := &e.tables[ti]
	e.blockSizeRes = t.blockSizeRes
	e.pos = t.pos
	e.newLevels.setFixed()
	e.setPrices(&e.newLevels)
	e.tryBlock()
	return finalBlockFieldSize + blockTypeFieldSize + e.lzBlockPrice()
}

// storePrice is the size in bits of blockSize bytes written as stored
// blocks, starting bitPosition bits into a byte.
func storePrice(blockSize uint32, bitPosition uint32) uint32 {
	var price uint32
	for {
		nextBitPosition := (bitPosition + finalBlockFieldSize + blockTypeFieldSize) & 7
		numBitsForAlign := uint32(0)
		if nextBitPosition > 0 {
			numBitsForAlign = 8 - nextBitPosition
		}
		curBlockSize := blockSize
		if curBlockSize > maxStoredBlockSize {
			curBlockSize = maxStoredBlockSize
		}
		price += finalBlockFieldSize + blockTypeFieldSize + numBitsForAlign + 2*storedLenFieldSize + curBlockSize*8
		bitPosition = 0
		blockSize -= curBlockSize
		if blockSize == 0 {
			return price
		}
	}
}

// getBlockPrice decides how table ti's span is best written (dynamic,
// fixed, stored, or split into two halves that are decided the same way)
// and returns the size in bits of that choice.
func (e *Encoder) getBlockPrice(ti uint32, numDivPasses uint32) uint32 {
	t := &e.tables[ti]
	t.staticMode = false
	price := e.tryDynBlock(ti, e.numPasses)
	t.blockSizeRes = e.blockSizeRes
	numValues := e.valueIndex
	posTemp := e.pos
	additionalOffsetEnd := e.additionalOffset

	if e.checkStatic && e.valueIndex <= fixedHuffmanCodeBlockSizeMax {
		fixedPrice := e.tryFixedBlock(ti)
		t.staticMode = (fixedPrice < price)
		if t.staticMode {
			price = fixedPrice
		}
	}

	sp := storePrice(e.blockSizeRes, 0)
	t.storeMode = (sp <= price)
	if t.storeMode {
		price = sp
	}

	t.useSubBlocks = false

	if numDivPasses > 1 && numValues >= divideCodeBlockSizeMin {
		t0 := &e.tables[ti<<1]
		t0.levels = t.levels
		t0.blockSizeRes = t.blockSizeRes >> 1
		t0.pos = t.pos
		subPrice := e.getBlockPrice(ti<<1, numDivPasses-1)

		blockSize2 := t.blockSizeRes - t0.blockSizeRes
		if t0.blockSizeRes >= divideBlockSizeMin && blockSize2 >= divideBlockSizeMin {
			t1 := &e.tables[(ti<<1)+1]
			t1.levels = t.levels
			t1.blockSizeRes = blockSize2
			t1.pos = e.pos
			e.additionalOffset -= t0.blockSizeRes
			subPrice += e.getBlockPrice((ti<<1)+1, numDivPasses-1)
			t.useSubBlocks = (subPrice < price)
		}
	}

	e.additionalOffset = additionalOffsetEnd
	e.pos = posTemp
	return price
}

// codeBlock writes table ti's span the way getBlockPrice decided.
func (e *Encoder) codeBlock(ti uint32, finalBlock bool) {
	t := &e.tables[ti]
	if t.useSubBlocks {
		e.codeBlock(ti<<1, false)
		e.codeBlock((ti<<1)+1, finalBlock)
		return
	}

	if t.storeMode {
		e.writeStoreBlock(t.blockSizeRes, e.additionalOffset, finalBlock)
	} else {
		start := e.bw.bitCount()
		var hLL, hD *huffman.Encoder
		var blockType BlockType
		if t.staticMode {
			blockType = FixedBlock
			e.sendEvent(Event{Type: BlockBeginEvent, Block: &BlockEvent{Type: FixedBlock, IsFinal: finalBlock}})
			e.writeBlockHeader(finalBlock, FixedBlock)
			e.tryFixedBlock(ti)
			hLL, hD = getFixedHuffEncoders()
		} else {
			blockType = DynamicBlock
			if e.numDivPasses > 1 || e.checkStatic {
				e.tryDynBlock(ti, 1)
			}
			e.sendEvent(Event{Type: BlockBeginEvent, Block: &BlockEvent{Type: DynamicBlock, IsFinal: finalBlock}})
			e.writeBlockHeader(finalBlock, DynamicBlock)
			e.writeTrees()
			makeHuffEncoder(&e.llEnc, e.newLevels.litLen[:])
			makeHuffEncoder(&e.dEnc, e.newLevels.dist[:])
			hLL, hD = &e.llEnc, &e.dEnc
		}
		e.writeBlock(hLL, hD)
		e.sendEvent(Event{Type: BlockEndEvent, Block: &BlockEvent{Type: blockType, IsFinal: finalBlock, BitCount: e.bw.bitCount() - start}})
	}
	e.additionalOffset -= t.blockSizeRes
}

func (e *Encoder) writeBlockHeader(finalBlock bool, blockType BlockType) {
	var bits uint32
	if finalBlock {
		bits = 1
	}
	bits |= uint32(blockType) << 1
	e.bw.writeBits(bits, finalBlockFieldSize+blockTypeFieldSize)
}

// writeTrees writes the code lengths computed by the last tryDynBlock.
func (e *Encoder) writeTrees() {
	bw := &e.bw
	bw.writeBits(e.numLitLenLevels-numLitLenCodesMin, numLenSymbolsBits)
	bw.writeBits(e.numDistLevels-numDistCodesMin, numDistCodesBits)
	bw.writeBits(e.numLevelCodes-numLevelCodesMin, numLevelCodesBits)
	for i := uint32(0); i < e.numLevelCodes; i++ {
		bw.writeBits(uint32(e.levelLevels[i]), levelFieldSize)
	}

	makeHuffEncoder(&e.xEnc, e.levelLens[:])
	for _, t := range *e.xtokens {
		t.encodeX(bw, &e.xEnc)
	}

	if len(e.tracers) != 0 {
		e.sendEvent(Event{Type: BlockTreesEvent, Trees: &TreesEvent{
			CodeCount:          uint16(e.numLevelCodes),
			LiteralLengthCount: uint16(e.numLitLenLevels),
			DistanceCount:      uint16(e.numDistLevels),
			CodeSizes:          SizeList(append([]byte(nil), e.levelLens[:]...)),
			LiteralLengthSizes: SizeList(append([]byte(nil), e.newLevels.litLen[:e.numLitLenLevels]...)),
			DistanceSizes:      SizeList(append([]byte(nil), e.newLevels.dist[:e.numDistLevels]...)),
		}})
	}
}

func (e *Encoder) writeBlock(hLL *huffman.Encoder, hD *huffman.Encoder) {
	bw := &e.bw
	for _, t := range e.values[:e.valueIndex] {
		t.encodeLLD(bw, hLL, hD, e.lenStart, e.lenDirectBits)
	}
	bw.writeCode(hLL.Encode(symbolEndOfBlock))
}

// writeStoreBlock writes blockSize bytes, which begin additionalOffset
// bytes behind the match finder's position, as stored blocks.
func (e *Encoder) writeStoreBlock(blockSize uint32, additionalOffset uint32, finalBlock bool) {
	for {
		curBlockSize := blockSize
		if curBlockSize > maxStoredBlockSize {
			curBlockSize = maxStoredBlockSize
		}
		blockSize -= curBlockSize
		e.writeStoredChunk(e.mf.slice(-int(additionalOffset), int(curBlockSize)), finalBlock && blockSize == 0)
		additionalOffset -= curBlockSize
		if blockSize == 0 {
			return
		}
	}
}

// writeStoredChunk writes one stored block holding data, which must not
// exceed 65535 bytes.
func (e *Encoder) writeStoredChunk(data []byte, finalBlock bool) {
	start := e.bw.bitCount()
	e.sendEvent(Event{Type: BlockBeginEvent, Block: &BlockEvent{Type: StoredBlock, IsFinal: finalBlock}})
	size := uint32(len(data))
	e.writeBlockHeader(finalBlock, StoredBlock)
	e.bw.flushByte()
	e.bw.writeBits(size, storedLenFieldSize)
	e.bw.writeBits(^size, storedLenFieldSize)
	e.bw.writeBytes(data)
	e.sendEvent(Event{Type: BlockEndEvent, Block: &BlockEvent{Type: StoredBlock, IsFinal: finalBlock, BitCount: e.bw.bitCount() - start}})
}
