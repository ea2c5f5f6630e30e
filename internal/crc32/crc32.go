// Package crc32 computes the IEEE CRC-32 that trails every gzip member.  The
// single-byte table is also exported for the LZ match finder, which mixes it
// into its 3-byte hash.
package crc32

import (
	"encoding/binary"
	"io"
)

// poly is the reflected IEEE 802.3 polynomial.
const poly = 0xedb88320

// table[k][b] is the CRC register after feeding byte b and then k zero
// bytes, without pre- or post-inversion.
var table [4][256]uint32

// update is hardwareUpdate when the CPU can accelerate CRC-32, and
// sliceUpdate otherwise.
var update = sliceUpdate

func init() {
	for b := range table[0] {
		crc := uint32(b)
		for i := 0; i < 8; i++ {
			crc = (crc >> 1) ^ (poly & -(crc & 1))
		}
		table[0][b] = crc
	}
	for b := range table[0] {
		crc := table[0][b]
		for k := 1; k < len(table); k++ {
			crc = table[0][byte(crc)] ^ (crc >> 8)
			table[k][b] = crc
		}
	}
	if hasHardwareCRC() {
		update = hardwareUpdate
	}
}

// TableEntry returns the CRC register for the single byte b, without pre-
// or post-inversion.
func TableEntry(b byte) uint32 {
	return table[0][b]
}

// Update returns the CRC-32 of the bytes summarized by crc followed by p.
func Update(crc uint32, p []byte) uint32 {
	return update(crc, p)
}

// Checksum returns the CRC-32 of p.
func Checksum(p []byte) uint32 {
	return update(0, p)
}

// sliceUpdate consumes four bytes per table round.
func sliceUpdate(crc uint32, p []byte) uint32 {
	crc = ^crc
	for len(p) >= 4 {
		crc ^= binary.LittleEndian.Uint32(p)
		crc = table[3][byte(crc)] ^
			table[2][byte(crc>>8)] ^
			table[1][byte(crc>>16)] ^
			table[0][crc>>24]
		p = p[4:]
	}
	for _, b := range p {
		crc = table[0][byte(crc)^b] ^ (crc >> 8)
	}
	return ^crc
}

// Writer passes everything written to it on to W, accumulating the CRC-32
// and the length of the bytes that W accepted.  A nil W accepts everything.
type Writer struct {
	W    io.Writer
	Sum  uint32
	Size uint64
}

// Reset clears the accumulated checksum and length.
func (w *Writer) Reset() {
	w.Sum = 0
	w.Size = 0
}

func (w *Writer) Write(p []byte) (int, error) {
	n := len(p)
	var err error
	if w.W != nil {
		n, err = w.W.Write(p)
	}
	w.Sum = update(w.Sum, p[:n])
	w.Size += uint64(n)
	return n, err
}

var _ io.Writer = (*Writer)(nil)
