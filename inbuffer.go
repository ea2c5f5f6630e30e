package arcflate

import (
	"errors"
	"io"
)

const defaultInBufferSize = 1 << 16

const maxConsecutiveEmptyReads = 100

// inBuffer is a byte source over an io.Reader.  Reading past the true end of
// the source never fails: each missing byte is synthesized as 0xFF and counted
// in numExtra, so that callers can tell an exact end from an overrun.
type inBuffer struct {
	r        io.Reader
	buf      []byte
	pos      uint
	lim      uint
	consumed uint64
	numExtra uint32
	err      error
	eof      bool
}

func (in *inBuffer) setReader(r io.Reader) {
	if in.buf == nil {
		in.buf = make([]byte, defaultInBufferSize)
	}
	in.r = r
	in.init()
}

func (in *inBuffer) init() {
	in.pos = 0
	in.lim = 0
	in.consumed = 0
	in.numExtra = 0
	in.err = nil
	in.eof = (in.r == nil)
}

func (in *inBuffer) fill() bool {
	if in.eof {
		return false
	}
	in.pos = 0
	in.lim = 0
	for tries := 0; tries < maxConsecutiveEmptyReads; tries++ {
		n, err := in.r.Read(in.buf)
		in.lim = uint(n)
		if err != nil {
			in.eof = true
			if !errors.Is(err, io.EOF) {
				in.err = err
			}
		}
		if n > 0 {
			return true
		}
		if in.eof {
			return false
		}
	}
	in.eof = true
	in.err = io.ErrNoProgress
	return false
}

func (in *inBuffer) readByte() byte {
	if in.pos >= in.lim && !in.fill() {
		in.numExtra++
		return 0xff
	}
	b := in.buf[in.pos]
	in.pos++
	in.consumed++
	return b
}

// readByteOK is readByte for framers that must not synthesize fill bytes.
func (in *inBuffer) readByteOK() (byte, bool) {
	if in.pos >= in.lim && !in.fill() {
		return 0, false
	}
	b := in.buf[in.pos]
	in.pos++
	in.consumed++
	return b, true
}

// processedSize counts synthesized bytes; streamSize does not.
func (in *inBuffer) processedSize() uint64 {
	return in.consumed + uint64(in.numExtra)
}

func (in *inBuffer) streamSize() uint64 {
	return in.consumed
}

func (in *inBuffer) unused() []byte {
	return in.buf[in.pos:in.lim]
}

func (in *inBuffer) skipUnused(n uint) {
	in.pos += n
	in.consumed += uint64(n)
}

// readBytes fills as much of p as the source allows and returns the count.
func (in *inBuffer) readBytes(p []byte) int {
	var n int
	for n < len(p) {
		if in.pos >= in.lim && !in.fill() {
			break
		}
		k := copy(p[n:], in.buf[in.pos:in.lim])
		in.pos += uint(k)
		in.consumed += uint64(k)
		n += k
	}
	return n
}

// copyTo moves up to n bytes to w, or drops them if w is nil.  It returns
// the number of bytes consumed from the source.
func (in *inBuffer) copyTo(w io.Writer, n uint64) (uint64, error) {
	var done uint64
	for done < n {
		if in.pos >= in.lim && !in.fill() {
			break
		}
		chunk := in.buf[in.pos:in.lim]
		if rem := n - done; uint64(len(chunk)) > rem {
			chunk = chunk[:rem]
		}
		if w != nil {
			if _, err := w.Write(chunk); err != nil {
				return done, err
			}
		}
		in.pos += uint(len(chunk))
		in.consumed += uint64(len(chunk))
		done += uint64(len(chunk))
	}
	return done, nil
}
