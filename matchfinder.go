package arcflate

import (
	"errors"
	"io"

	"github.com/chronos-tachyon/arcflate/internal/crc32"
)

const (
	mfHashSize     = 1 << 16
	mfHashMask     = mfHashSize - 1
	mfReadReserve  = 1 << 16
	mfMinMatchLen  = 3
	mfMaxPosValue  = 0xffffffff
	mfEmptyPosSlot = 0
)

// matchFinder finds LZ77 matches over a sliding input buffer, by hash chain
// or by binary tree.  Positions are absolute and biased by cyclicSize, so a
// zero table entry is always out of reach; they are rebased shortly before
// they would overflow.
//
// The buffer keeps keepBefore bytes behind the current position, so that
// the encoder can go back over the block it is still pricing, and keepAfter
// bytes ahead of it whenever the input still has them.
type matchFinder struct {
	r      io.Reader
	err    error
	eof    bool
	btMode bool

	data []byte
	cur  int
	end  int

	pos        uint32
	cyclicPos  uint32
	cyclicSize uint32
	cutValue   uint32
	lenMax     uint32

	keepBefore int
	keepAfter  int

	hash []uint32
	son  []uint32
}

// create sizes the finder for the given history and reservations: keepBefore
// extra bytes behind the history, lenMax bytes of match lookahead plus
// keepAfter more.
func (mf *matchFinder) create(historySize uint32, keepBefore uint32, lenMax uint32, keepAfter uint32, btMode bool) {
	mf.btMode = btMode
	mf.lenMax = lenMax
	mf.cyclicSize = historySize + 1
	mf.keepBefore = int(historySize + keepBefore + 1)
	mf.keepAfter = int(lenMax + keepAfter)

	size := mf.keepBefore + mf.keepAfter + mfReadReserve
	if len(mf.data) != size {
		mf.data = make([]byte, size)
	}
	if mf.hash == nil {
		mf.hash = make([]uint32, mfHashSize)
	}
	sonSize := int(mf.cyclicSize)
	if btMode {
		sonSize *= 2
	}
	if len(mf.son) != sonSize {
		mf.son = make([]uint32, sonSize)
	}
}

func (mf *matchFinder) setCutValue(cutValue uint32) {
	mf.cutValue = cutValue
}

func (mf *matchFinder) init(r io.Reader) {
	mf.r = r
	mf.err = nil
	mf.eof = (r == nil)
	mf.cur = 0
	mf.end = 0
	mf.pos = mf.cyclicSize
	mf.cyclicPos = 0
	for i := range mf.hash {
		mf.hash[i] = mfEmptyPosSlot
	}
	mf.fill()
}

// available returns the number of input bytes at and after the current
// position.
func (mf *matchFinder) available() uint32 {
	return uint32(mf.end - mf.cur)
}

// at returns the byte at offset off from the current position.  Negative
// offsets reach back into the retained history.
func (mf *matchFinder) at(off int) byte {
	return mf.data[mf.cur+off]
}

// slice returns n bytes starting at offset off from the current position.
func (mf *matchFinder) slice(off int, n int) []byte {
	i := mf.cur + off
	return mf.data[i : i+n]
}

func (mf *matchFinder) fill() {
	if mf.eof {
		return
	}
	if mf.cur > mf.keepBefore {
		shift := mf.cur - mf.keepBefore
		copy(mf.data, mf.data[shift:mf.end])
		mf.cur -= shift
		mf.end -= shift
	}
	empty := 0
	for mf.end < len(mf.data) && !mf.eof {
		n, err := mf.r.Read(mf.data[mf.end:])
		mf.end += n
		if err != nil {
			mf.eof = true
			if !errors.Is(err, io.EOF) {
				mf.err = err
			}
			break
		}
		if n == 0 {
			empty++
			if empty >= maxConsecutiveEmptyReads {
				mf.eof = true
				mf.err = io.ErrNoProgress
			}
			continue
		}
		empty = 0
		if mf.end-mf.cur > mf.keepAfter {
			break
		}
	}
}

func (mf *matchFinder) movePos() {
	mf.cyclicPos++
	if mf.cyclicPos == mf.cyclicSize {
		mf.cyclicPos = 0
	}
	mf.cur++
	mf.pos++
	if mf.pos == mfMaxPosValue {
		mf.normalize()
	}
	if !mf.eof && mf.end-mf.cur <= mf.keepAfter {
		mf.fill()
	}
}

// normalize rebases every stored position so that the current position
// becomes cyclicSize again.  Entries that fall out of the history become
// empty.
func (mf *matchFinder) normalize() {
	sub := mf.pos - mf.cyclicSize
	rebase := func(table []uint32) {
		for i, v := range table {
			if v <= sub {
				table[i] = mfEmptyPosSlot
			} else {
				table[i] = v - sub
			}
		}
	}
	rebase(mf.hash)
	rebase(mf.son)
	mf.pos -= sub
}

func (mf *matchFinder) lenLimit() uint32 {
	limit := mf.lenMax
	if avail := mf.available(); avail < limit {
		limit = avail
	}
	return limit
}

func (mf *matchFinder) hashValue() uint32 {
	cur := mf.cur
	b0, b1, b2 := mf.data[cur], mf.data[cur+1], mf.data[cur+2]
	return ((uint32(b2) | (uint32(b0) << 8)) ^ crc32.TableEntry(b1)) & mfHashMask
}

// getMatches records every match at the current position that is longer
// than all the ones before it, as (length, distance-1) pairs into out, and
// advances by one byte.  It returns the number of uint32 values written.
// out must hold at least 2*lenMax values.
func (mf *matchFinder) getMatches(out []uint32) int {
	limit := mf.lenLimit()
	if limit < mfMinMatchLen {
		mf.movePos()
		return 0
	}
	hv := mf.hashValue()
	curMatch := mf.hash[hv]
	mf.hash[hv] = mf.pos
	var n int
	if mf.btMode {
		n = mf.btGetMatches(limit, curMatch, out)
	} else {
		n = mf.hcGetMatches(limit, curMatch, out)
	}
	mf.movePos()
	return n
}

// skip advances num bytes, updating the search structures without
// reporting matches.
func (mf *matchFinder) skip(num uint32) {
	for ; num != 0; num-- {
		limit := mf.lenLimit()
		if limit < mfMinMatchLen {
			mf.movePos()
			continue
		}
		hv := mf.hashValue()
		curMatch := mf.hash[hv]
		mf.hash[hv] = mf.pos
		if mf.btMode {
			mf.btSkip(limit, curMatch)
		} else {
			mf.son[mf.cyclicPos] = curMatch
		}
		mf.movePos()
	}
}

func (mf *matchFinder) cyclicIndex(delta uint32) uint32 {
	idx := mf.cyclicPos - delta
	if delta > mf.cyclicPos {
		idx += mf.cyclicSize
	}
	return idx
}

func (mf *matchFinder) hcGetMatches(limit uint32, curMatch uint32, out []uint32) int {
	data := mf.data
	cur := mf.cur
	mf.son[mf.cyclicPos] = curMatch

	maxLen := uint32(mfMinMatchLen - 1)
	n := 0
	for cut := mf.cutValue; cut != 0; cut-- {
		delta := mf.pos - curMatch
		if delta >= mf.cyclicSize {
			break
		}
		pb := cur - int(delta)
		curMatch = mf.son[mf.cyclicIndex(delta)]
		if data[pb+int(maxLen)] != data[cur+int(maxLen)] || data[pb] != data[cur] {
			continue
		}
		length := uint32(1)
		for length != limit && data[pb+int(length)] == data[cur+int(length)] {
			length++
		}
		if maxLen < length {
			maxLen = length
			out[n] = length
			out[n+1] = delta - 1
			n += 2
			if length == limit {
				break
			}
		}
	}
	return n
}

func (mf *matchFinder) btGetMatches(limit uint32, curMatch uint32, out []uint32) int {
	data := mf.data
	cur := mf.cur
	son := mf.son
	ptr0 := (mf.cyclicPos << 1) + 1
	ptr1 := mf.cyclicPos << 1
	var len0, len1 uint32

	maxLen := uint32(mfMinMatchLen - 1)
	n := 0
	for cut := mf.cutValue; ; cut-- {
		delta := mf.pos - curMatch
		if cut == 0 || delta >= mf.cyclicSize {
			son[ptr0] = mfEmptyPosSlot
			son[ptr1] = mfEmptyPosSlot
			return n
		}
		pair := mf.cyclicIndex(delta) << 1
		pb := cur - int(delta)
		length := len0
		if len1 < length {
			length = len1
		}
		if data[pb+int(length)] == data[cur+int(length)] {
			length++
			for length != limit && data[pb+int(length)] == data[cur+int(length)] {
				length++
			}
			if maxLen < length {
				maxLen = length
				out[n] = length
				out[n+1] = delta - 1
				n += 2
				if length == limit {
					son[ptr1] = son[pair]
					son[ptr0] = son[pair+1]
					return n
				}
			}
		}
		if data[pb+int(length)] < data[cur+int(length)] {
			son[ptr1] = curMatch
			ptr1 = pair + 1
			curMatch = son[ptr1]
			len1 = length
		} else {
			son[ptr0] = curMatch
			ptr0 = pair
			curMatch = son[ptr0]
			len0 = length
		}
	}
}

func (mf *matchFinder) btSkip(limit uint32, curMatch uint32) {
	data := mf.data
	cur := mf.cur
	son := mf.son
	ptr0 := (mf.cyclicPos << 1) + 1
	ptr1 := mf.cyclicPos << 1
	var len0, len1 uint32

	for cut := mf.cutValue; ; cut-- {
		delta := mf.pos - curMatch
		if cut == 0 || delta >= mf.cyclicSize {
			son[ptr0] = mfEmptyPosSlot
			son[ptr1] = mfEmptyPosSlot
			return
		}
		pair := mf.cyclicIndex(delta) << 1
		pb := cur - int(delta)
		length := len0
		if len1 < length {
			length = len1
		}
		if data[pb+int(length)] == data[cur+int(length)] {
			length++
			for length != limit && data[pb+int(length)] == data[cur+int(length)] {
				length++
			}
			if length == limit {
				son[ptr1] = son[pair]
				son[ptr0] = son[pair+1]
				return
			}
		}
		if data[pb+int(length)] < data[cur+int(length)] {
			son[ptr1] = curMatch
			ptr1 = pair + 1
			curMatch = son[ptr1]
			len1 = length
		} else {
			son[ptr0] = curMatch
			ptr0 = pair
			curMatch = son[ptr0]
			len0 = length
		}
	}
}
