package arcflate

import (
	"math/bits"
)

const (
	numBigValueBits = 32
	numValueBits    = 24
	valueMask       = (1 << numValueBits) - 1
)

// type lsbReader {{{

// lsbReader extracts bit fields least-significant-bit first, as DEFLATE
// does.  It keeps two accumulators: normal holds the bits in stream order
// for ReadBits, and rev holds each byte bit-reversed so that Huffman codes
// can be peeked MSB-first with GetValue.
type lsbReader struct {
	in     inBuffer
	bitPos uint
	normal uint32
	rev    uint32
}

func (br *lsbReader) init() {
	br.in.init()
	br.bitPos = numBigValueBits
	br.normal = 0
	br.rev = 0
}

func (br *lsbReader) normalize() {
	for br.bitPos >= 8 {
		b := br.in.readByte()
		br.normal |= uint32(b) << (numBigValueBits - br.bitPos)
		br.rev = (br.rev << 8) | uint32(bits.Reverse8(b))
		br.bitPos -= 8
	}
}

// getValue peeks the next n bits (n <= 24), first bit in the high position.
func (br *lsbReader) getValue(n uint) uint32 {
	br.normalize()
	return ((br.rev >> (8 - br.bitPos)) & valueMask) >> (numValueBits - n)
}

func (br *lsbReader) movePos(n uint) {
	br.bitPos += n
	br.normal >>= n
}

func (br *lsbReader) readBits(n uint) uint32 {
	if n > numValueBits {
		lo := br.readBits(16)
		hi := br.readBits(n - 16)
		return lo | (hi << 16)
	}
	br.normalize()
	res := br.normal & ((uint32(1) << n) - 1)
	br.movePos(n)
	return res
}

func (br *lsbReader) alignToByte() {
	br.movePos((numBigValueBits - br.bitPos) & 7)
}

func (br *lsbReader) readDirectByte() byte {
	return br.in.readByte()
}

func (br *lsbReader) readAlignedByte() byte {
	if br.bitPos == numBigValueBits {
		return br.in.readByte()
	}
	b := byte(br.normal)
	br.movePos(8)
	return b
}

func (br *lsbReader) thereAreDataInBitsBuffer() bool {
	return br.bitPos != numBigValueBits
}

// extraBitsWereRead reports whether the caller has consumed more bits than
// the source really held.
func (br *lsbReader) extraBitsWereRead() bool {
	extra := br.in.numExtra
	return extra > 4 || uint32(numBigValueBits-br.bitPos) < (extra<<3)
}

func (br *lsbReader) extraBitsWereReadFast() bool {
	return br.in.numExtra > 4
}

func (br *lsbReader) processedSize() uint64 {
	return br.in.processedSize() - uint64((numBigValueBits-br.bitPos)>>3)
}

func (br *lsbReader) streamSize() uint64 {
	if br.extraBitsWereRead() {
		return br.in.streamSize()
	}
	return br.processedSize()
}

// }}}

// type msbReader {{{

// msbReader extracts bit fields most-significant-bit first.
type msbReader struct {
	in     inBuffer
	bitPos uint
	value  uint32
}

func (br *msbReader) init() {
	br.in.init()
	br.bitPos = numBigValueBits
	br.value = 0
	br.normalize()
}

func (br *msbReader) normalize() {
	for br.bitPos >= 8 {
		br.value = (br.value << 8) | uint32(br.in.readByte())
		br.bitPos -= 8
	}
}

func (br *msbReader) getValue(n uint) uint32 {
	return ((br.value >> (8 - br.bitPos)) & valueMask) >> (numValueBits - n)
}

func (br *msbReader) movePos(n uint) {
	br.bitPos += n
	br.normalize()
}

func (br *msbReader) readBits(n uint) uint32 {
	if n > numValueBits {
		hi := br.readBits(n - 16)
		lo := br.readBits(16)
		return (hi << 16) | lo
	}
	res := br.getValue(n)
	br.movePos(n)
	return res
}

func (br *msbReader) alignToByte() {
	br.movePos((numBigValueBits - br.bitPos) & 7)
}

func (br *msbReader) extraBitsWereRead() bool {
	extra := br.in.numExtra
	return extra > 4 || uint32(numBigValueBits-br.bitPos) < (extra<<3)
}

func (br *msbReader) processedSize() uint64 {
	return br.in.processedSize() - uint64((numBigValueBits-br.bitPos)>>3)
}

func (br *msbReader) streamSize() uint64 {
	if br.extraBitsWereRead() {
		return br.in.streamSize()
	}
	return br.processedSize()
}

// }}}
