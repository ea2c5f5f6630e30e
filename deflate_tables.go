package arcflate

// https://www.rfc-editor.org/rfc/rfc1951.html - Section 3.2.5

const (
	matchMinLen   = 3
	matchMaxLen32 = 258
	matchMaxLen64 = 257

	numLitLenCodesMin = 257
	numDistCodesMin   = 1
	numLevelCodesMin  = 4

	fixedMainTableSize = 288
	fixedDistTableSize = 32
	mainTableSize      = 286
	distTableSize32    = 30
	distTableSize64    = 32
	levelTableSize     = 19
	numLenSlots        = 29

	symbolEndOfBlock = 256
	symbolMatch      = 257

	tableDirectLevels   = 16
	tableLevelRepNumber = 16
	tableLevel0Number   = 17
	tableLevel0Number2  = 18

	levelFieldSize    = 3
	maxLevelBitLength = 7

	historySize32 = 1 << 15
	historySize64 = 1 << 16

	maxStoredBlockSize = 0xffff
)

var lenStart32 = [32]byte{
	0, 1, 2, 3, 4, 5, 6, 7, 8, 10, 12, 14, 16, 20, 24, 28,
	32, 40, 48, 56, 64, 80, 96, 112, 128, 160, 192, 224, 255, 0, 0, 0,
}

var lenStart64 = [32]byte{
	0, 1, 2, 3, 4, 5, 6, 7, 8, 10, 12, 14, 16, 20, 24, 28,
	32, 40, 48, 56, 64, 80, 96, 112, 128, 160, 192, 224, 0, 0, 0, 0,
}

var lenDirectBits32 = [32]byte{
	0, 0, 0, 0, 0, 0, 0, 0, 1, 1, 1, 1, 2, 2, 2, 2,
	3, 3, 3, 3, 4, 4, 4, 4, 5, 5, 5, 5, 0, 0, 0, 0,
}

// The top length slot of Deflate64 carries 16 extra bits.
var lenDirectBits64 = [32]byte{
	0, 0, 0, 0, 0, 0, 0, 0, 1, 1, 1, 1, 2, 2, 2, 2,
	3, 3, 3, 3, 4, 4, 4, 4, 5, 5, 5, 5, 16, 0, 0, 0,
}

var distStart = [32]uint32{
	0, 1, 2, 3, 4, 6, 8, 12, 16, 24, 32, 48, 64, 96, 128, 192,
	256, 384, 512, 768, 1024, 1536, 2048, 3072, 4096, 6144, 8192, 12288, 16384, 24576, 32768, 49152,
}

var distDirectBits = [32]byte{
	0, 0, 0, 0, 1, 1, 2, 2, 3, 3, 4, 4, 5, 5, 6, 6,
	7, 7, 8, 8, 9, 9, 10, 10, 11, 11, 12, 12, 13, 13, 14, 14,
}

var levelDirectBits = [3]byte{2, 3, 7}

var codeLengthAlphabetOrder = [levelTableSize]byte{16, 17, 18, 0, 8, 7, 9, 6, 10, 5, 11, 4, 12, 3, 13, 2, 14, 1, 15}

// tableLevels holds the code lengths of the literal/length and distance
// alphabets of one block.
type tableLevels struct {
	litLen [fixedMainTableSize]byte
	dist   [fixedDistTableSize]byte
}

func (tl *tableLevels) setFixed() {
	for i := 0; i < 144; i++ {
		tl.litLen[i] = 8
	}
	for i := 144; i < 256; i++ {
		tl.litLen[i] = 9
	}
	for i := 256; i < 280; i++ {
		tl.litLen[i] = 7
	}
	for i := 280; i < fixedMainTableSize; i++ {
		tl.litLen[i] = 8
	}
	for i := 0; i < fixedDistTableSize; i++ {
		tl.dist[i] = 5
	}
}

// gLenSlots maps (length - matchMinLen) to its length slot.  Deflate64
// shares the table: its longest match never reaches the top slot.
var gLenSlots [matchMaxLen32 - matchMinLen + 1]byte

// gFastPos maps a distance below 512, or (distance >> 8) above that, to a
// partial distance slot.
var gFastPos [1 << 9]byte

func init() {
	for i := 0; i < numLenSlots; i++ {
		c := int(lenStart32[i])
		j := 1 << lenDirectBits32[i]
		for k := 0; k < j; k++ {
			gLenSlots[c+k] = byte(i)
		}
	}

	c := 0
	for slot := byte(0); slot < 18; slot++ {
		k := 1 << distDirectBits[slot]
		for j := 0; j < k; j++ {
			gFastPos[c] = slot
			c++
		}
	}
}

func getPosSlot(pos uint32) uint32 {
	if pos < 0x200 {
		return uint32(gFastPos[pos])
	}
	return uint32(gFastPos[pos>>8]) + 16
}
