// Package adler32 computes the Adler-32 checksum that trails a zlib stream.
package adler32

import (
	"io"
)

const modulus = 65521

// nmax is the largest n such that 255n(n+1)/2 + (n+1)(modulus-1) fits in
// 32 bits.
const nmax = 5552

// Update returns sum extended over p.
func Update(sum uint32, p []byte) uint32 {
	s1, s2 := (sum & 0xffff), (sum >> 16)
	for len(p) > 0 {
		var q []byte
		if len(p) > nmax {
			p, q = p[:nmax], p[nmax:]
		}
		for len(p) >= 4 {
			s1 += uint32(p[0])
			s2 += s1
			s1 += uint32(p[1])
			s2 += s1
			s1 += uint32(p[2])
			s2 += s1
			s1 += uint32(p[3])
			s2 += s1
			p = p[4:]
		}
		for _, ch := range p {
			s1 += uint32(ch)
			s2 += s1
		}
		s1 %= modulus
		s2 %= modulus
		p = q
	}
	return (s2 << 16) | s1
}

// Checksum returns the Adler-32 of p.
func Checksum(p []byte) uint32 {
	return Update(1, p)
}

// Writer passes everything written to it on to W, accumulating the Adler-32
// of the bytes that W accepted.  The zero value must be Reset before use.
type Writer struct {
	W   io.Writer
	Sum uint32
}

func (w *Writer) Reset() {
	w.Sum = 1
}

func (w *Writer) Write(p []byte) (int, error) {
	var n int
	var err error
	if w.W == nil {
		n = len(p)
	} else {
		n, err = w.W.Write(p)
	}
	w.Sum = Update(w.Sum, p[:n])
	return n, err
}

var _ io.Writer = (*Writer)(nil)
