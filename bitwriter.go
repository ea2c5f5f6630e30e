package arcflate

import (
	"io"

	"github.com/chronos-tachyon/assert"
	"github.com/chronos-tachyon/buffer/v3"
	"github.com/chronos-tachyon/huffman"
)

const outputNumBits = 16

// bitWriter is an LSB-first bit sink over a staging buffer.  Bits are
// collected in a 64-bit accumulator and handed to the staging buffer a byte
// at a time; the staging buffer is written out whenever it fills and on
// flush.  After a sink failure all further output is discarded and err
// holds the failure.
type bitWriter struct {
	w     io.Writer
	out   buffer.Buffer
	acc   uint64
	nbits uint
	total uint64
	err   error
}

func (bw *bitWriter) init(w io.Writer) {
	if bw.out.NumBits() != outputNumBits {
		bw.out.Init(outputNumBits)
	}
	bw.out.Clear()
	bw.w = w
	bw.acc = 0
	bw.nbits = 0
	bw.total = 0
	bw.err = nil
}

func (bw *bitWriter) writeBits(value uint32, numBits uint) {
	assert.Assertf(numBits <= 32, "numBits %d > 32", numBits)
	if numBits == 0 {
		return
	}
	bw.acc |= (uint64(value) & ((uint64(1) << numBits) - 1)) << bw.nbits
	bw.nbits += numBits
	for bw.nbits >= 8 {
		bw.putByte(byte(bw.acc))
		bw.acc >>= 8
		bw.nbits -= 8
	}
}

func (bw *bitWriter) writeCode(hc huffman.Code) {
	bw.writeBits(uint32(hc.Bits), uint(hc.Size))
}

// flushByte pads the pending bits with zeroes up to the next byte boundary.
func (bw *bitWriter) flushByte() {
	if bw.nbits != 0 {
		bw.putByte(byte(bw.acc))
		bw.acc = 0
		bw.nbits = 0
	}
}

// writeByte writes one whole byte.  The writer must be byte aligned.
func (bw *bitWriter) writeByte(b byte) {
	assert.Assertf(bw.nbits == 0, "writeByte with %d pending bits", bw.nbits)
	bw.putByte(b)
}

func (bw *bitWriter) writeBytes(p []byte) {
	assert.Assertf(bw.nbits == 0, "writeBytes with %d pending bits", bw.nbits)
	for len(p) != 0 {
		if bw.out.IsFull() {
			bw.drain()
		}
		n, _ := bw.out.Write(p)
		bw.total += uint64(n)
		p = p[n:]
	}
}

func (bw *bitWriter) putByte(b byte) {
	if bw.out.IsFull() {
		bw.drain()
	}
	_ = bw.out.WriteByte(b)
	bw.total++
}

func (bw *bitWriter) drain() {
	if bw.err != nil || bw.w == nil {
		bw.out.Clear()
		return
	}
	if _, err := bw.out.WriteTo(fullWriter{w: bw.w}); err != nil {
		bw.err = err
		bw.out.Clear()
	}
}

// bitCount returns the number of bits written so far.
func (bw *bitWriter) bitCount() uint64 {
	return (bw.total << 3) + uint64(bw.nbits)
}

// processedSize returns the number of output bytes, counting a partial
// byte as whole.
func (bw *bitWriter) processedSize() uint64 {
	return (bw.bitCount() + 7) >> 3
}

// flush pads to a byte boundary and writes everything out.
func (bw *bitWriter) flush() error {
	bw.flushByte()
	if !bw.out.IsEmpty() {
		bw.drain()
	}
	return bw.err
}
