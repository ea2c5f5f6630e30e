package arcflate

const (
	maxHuffmanBits    = 15
	huffTableBits     = 9
	huffPairLenBits   = 4
	huffPairLenMask   = (1 << huffPairLenBits) - 1
	invalidHuffSymbol = 0xffffffff
)

// huffDecoder decodes a canonical Huffman code.  Codes of up to tableBits
// bits are resolved through a direct lookup table; longer codes are found by
// comparing the peeked value against the per-length limits.
type huffDecoder struct {
	maxBits   uint
	tableBits uint
	limits    [maxHuffmanBits + 2]uint32
	poses     [maxHuffmanBits + 1]uint32
	table     [1 << huffTableBits]uint16
	symbols   []uint16
}

func (hd *huffDecoder) setMaxBits(maxBits uint) {
	hd.maxBits = maxBits
	hd.tableBits = huffTableBits
	if maxBits < huffTableBits {
		hd.tableBits = maxBits
	}
}

// build initializes hd from a per-symbol code length array, 0 meaning unused.
// The lengths must describe a complete prefix code.  An all-zero array and a
// lone code of length 1 are also accepted; decoding the unassigned half of
// the latter yields invalidHuffSymbol.
func (hd *huffDecoder) build(lens []byte) bool {
	maxBits := hd.maxBits
	var counts [maxHuffmanBits + 1]uint32
	for _, n := range lens {
		if uint(n) > maxBits {
			return false
		}
		counts[n]++
	}

	if cap(hd.symbols) < len(lens) {
		hd.symbols = make([]uint16, len(lens))
	}
	hd.symbols = hd.symbols[:len(lens)]

	maxValue := uint32(1) << maxBits
	hd.limits[0] = 0
	startPos := uint32(0)
	sum := uint32(0)
	for i := uint(1); i <= maxBits; i++ {
		cnt := counts[i]
		startPos += cnt << (maxBits - i)
		if startPos > maxValue {
			return false
		}
		hd.limits[i] = startPos
		counts[i] = sum
		hd.poses[i] = sum
		sum += cnt
	}
	hd.limits[maxBits+1] = maxValue

	if startPos != maxValue {
		singleton := (sum == 1 && hd.poses[2] == 1)
		if sum != 0 && !singleton {
			return false
		}
	}

	tableBits := hd.tableBits
	for sym, n := range lens {
		if n == 0 {
			continue
		}
		length := uint(n)
		offset := counts[length]
		counts[length]++
		hd.symbols[offset] = uint16(sym)
		if length <= tableBits {
			offset -= hd.poses[length]
			base := (hd.limits[length-1] >> (maxBits - tableBits)) + (offset << (tableBits - length))
			val := uint16(sym<<huffPairLenBits) | uint16(length)
			for k, num := uint32(0), uint32(1)<<(tableBits-length); k < num; k++ {
				hd.table[base+k] = val
			}
		}
	}
	for i := hd.limits[tableBits] >> (maxBits - tableBits); i < (1 << tableBits); i++ {
		hd.table[i] = 0
	}
	return true
}

// decode reads one symbol, or returns invalidHuffSymbol if the peeked bits
// match no assigned code.
func (hd *huffDecoder) decode(br *lsbReader) uint32 {
	maxBits := hd.maxBits
	val := br.getValue(maxBits)
	if val < hd.limits[hd.tableBits] {
		pair := hd.table[val>>(maxBits-hd.tableBits)]
		br.movePos(uint(pair & huffPairLenMask))
		return uint32(pair >> huffPairLenBits)
	}

	numBits := hd.tableBits + 1
	for val >= hd.limits[numBits] {
		numBits++
	}
	if numBits > maxBits {
		return invalidHuffSymbol
	}

	br.movePos(numBits)
	index := hd.poses[numBits] + ((val - hd.limits[numBits-1]) >> (maxBits - numBits))
	return uint32(hd.symbols[index])
}
