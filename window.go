package arcflate

import (
	"io"

	"github.com/chronos-tachyon/buffer/v3"
)

const stagingNumBits = 16

// lzWindow is the output side of an LZ77 decoder.  Produced bytes are
// appended to the history ring and staged for the sink; the staging buffer
// is flushed whenever it fills and on every exit from the decoder.
type lzWindow struct {
	history buffer.Window
	staging buffer.Buffer
	w       io.Writer
	size    uint64
	avail   uint64
	total   uint64
	err     error
}

func (win *lzWindow) create(numBits uint) {
	if win.history.NumBits() != numBits {
		win.history.Init(numBits)
		win.avail = 0
	}
	if win.staging.NumBits() != stagingNumBits {
		win.staging.Init(stagingNumBits)
	}
	win.size = uint64(1) << numBits
}

func (win *lzWindow) setWriter(w io.Writer) {
	win.w = w
}

// init starts a new output stream.  With keepHistory (solid mode), matches
// may still reach into bytes produced before this call.
func (win *lzWindow) init(keepHistory bool) {
	if !keepHistory {
		win.history.Clear()
		win.avail = 0
	}
	win.staging.Clear()
	win.total = 0
	win.err = nil
}

func (win *lzWindow) putByte(b byte) {
	if win.staging.IsFull() {
		win.flush()
	}
	_ = win.staging.WriteByte(b)
	_ = win.history.WriteByte(b)
	win.total++
	if win.avail < win.size {
		win.avail++
	}
}

// getByte returns the byte dist+1 positions back.  The caller must already
// have validated dist against the available history.
func (win *lzWindow) getByte(dist uint32) byte {
	ch, _ := win.history.LookupByte(uint(dist) + 1)
	return ch
}

// copyBlock copies length bytes starting dist+1 bytes back, one byte at a
// time so that overlapping copies repeat correctly.  It fails if dist
// reaches before the available history.
func (win *lzWindow) copyBlock(dist uint32, length uint32) bool {
	if uint64(dist) >= win.avail {
		return false
	}
	distance := uint(dist) + 1
	for ; length != 0; length-- {
		ch, err := win.history.LookupByte(distance)
		if err != nil {
			return false
		}
		win.putByte(ch)
	}
	return true
}

// flush hands every staged byte to the sink.  After a sink failure further
// output is discarded and the failure is reported by flush.
func (win *lzWindow) flush() error {
	if win.staging.IsEmpty() {
		return win.err
	}
	if win.err != nil || win.w == nil {
		win.staging.Clear()
		return win.err
	}
	_, err := win.staging.WriteTo(fullWriter{w: win.w})
	if err != nil {
		win.err = err
		win.staging.Clear()
	}
	return win.err
}

// type fullWriter {{{

// fullWriter turns a short write into io.ErrShortWrite.
type fullWriter struct {
	w io.Writer
}

func (fw fullWriter) Write(p []byte) (int, error) {
	n, err := fw.w.Write(p)
	if err == nil && n < len(p) {
		err = io.ErrShortWrite
	}
	return n, err
}

var _ io.Writer = fullWriter{}

// }}}
