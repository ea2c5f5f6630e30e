package arcflate

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/chronos-tachyon/assert"
	"github.com/chronos-tachyon/huffman"
)

var (
	gFixedHuffmanEncoderLL huffman.Encoder
	gFixedHuffmanEncoderD  huffman.Encoder
)

func init() {
	// https://www.rfc-editor.org/rfc/rfc1951.html - Section 3.2.6
	var levels tableLevels
	levels.setFixed()
	if err := gFixedHuffmanEncoderLL.InitFromSizes(levels.litLen[:]); err != nil {
		panic(fmt.Errorf("failed to initialize gFixedHuffmanEncoderLL: %w", err))
	}
	if err := gFixedHuffmanEncoderD.InitFromSizes(levels.dist[:]); err != nil {
		panic(fmt.Errorf("failed to initialize gFixedHuffmanEncoderD: %w", err))
	}
}

func getFixedHuffEncoders() (*huffman.Encoder, *huffman.Encoder) {
	return &gFixedHuffmanEncoderLL, &gFixedHuffmanEncoderD
}

// SizeList represents a list of symbol sizes in a Canonical Huffman Code.
type SizeList []byte

// MarshalJSON returns the JSON representation of this SizeList, as a JSON
// Array of JSON Numbers.
func (sizelist SizeList) MarshalJSON() ([]byte, error) {
	var arr []uint
	if sizelist != nil {
		arr = make([]uint, len(sizelist))
		for index, size := range sizelist {
			arr[index] = uint(size)
		}
	}
	return json.Marshal(arr)
}

// huffmanLeaf is a used symbol together with its frequency.
type huffmanLeaf struct {
	freq uint32
	sym  uint16
}

// huffmanGenerate computes length-limited Huffman code lengths for freqs
// into lens.  Unused symbols get length 0.  With fewer than three used
// symbols, exactly two symbols get length 1 so that the code stays
// complete.  No length exceeds maxLen.
func huffmanGenerate(freqs []uint32, lens []byte, maxLen uint) {
	assert.Assertf(len(freqs) == len(lens), "len(freqs) %d != len(lens) %d", len(freqs), len(lens))
	assert.Assertf(maxLen >= 1 && maxLen <= maxHuffmanBits, "maxLen %d out of range [1, %d]", maxLen, maxHuffmanBits)

	leaves := make([]huffmanLeaf, 0, len(freqs))
	for i := range lens {
		lens[i] = 0
		if freqs[i] != 0 {
			leaves = append(leaves, huffmanLeaf{freq: freqs[i], sym: uint16(i)})
		}
	}
	sort.Slice(leaves, func(i, j int) bool {
		a, b := leaves[i], leaves[j]
		if a.freq != b.freq {
			return a.freq < b.freq
		}
		return a.sym < b.sym
	})

	num := len(leaves)
	if num <= 2 {
		minCode, maxCode := 0, 1
		if num != 0 {
			maxCode = int(leaves[num-1].sym)
			if num == 2 {
				minCode = int(leaves[0].sym)
				if minCode > maxCode {
					minCode, maxCode = maxCode, minCode
				}
			} else if maxCode == 0 {
				maxCode++
			}
		}
		lens[minCode] = 1
		lens[maxCode] = 1
		return
	}

	// Two-queue construction.  Internal nodes are created in nondecreasing
	// order of frequency; on a tie the leaf is taken first.
	numNodes := num - 1
	nodeFreq := make([]uint32, numNodes)
	parent := make([]int, numNodes)
	li, ni := 0, 0
	pick := func(k int) uint32 {
		if li < num && (ni >= k || leaves[li].freq <= nodeFreq[ni]) {
			li++
			return leaves[li-1].freq
		}
		parent[ni] = k
		ni++
		return nodeFreq[ni-1]
	}
	for k := 0; k < numNodes; k++ {
		a := pick(k)
		b := pick(k)
		nodeFreq[k] = a + b
	}

	// Walk the internal nodes from the root down, counting leaves per depth.
	// A node that would sit at maxLen or deeper is moved up to the deepest
	// level that still holds a leaf, which keeps the code complete.  depth
	// keeps the unclamped value so that every descendant is moved as well.
	var lenCounts [maxHuffmanBits + 2]uint32
	depth := make([]uint, numNodes)
	lenCounts[1] = 2
	for e := numNodes - 2; e >= 0; e-- {
		l := depth[parent[e]] + 1
		depth[e] = l
		if l >= maxLen {
			for l = maxLen - 1; lenCounts[l] == 0; l-- {
			}
		}
		lenCounts[l]--
		lenCounts[l+1] += 2
	}

	// The rarest symbols get the longest codes.
	next := 0
	for l := maxLen; l >= 1; l-- {
		for k := lenCounts[l]; k != 0; k-- {
			lens[leaves[next].sym] = byte(l)
			next++
		}
	}
}

// huffmanPrice returns the number of bits needed to emit every symbol of
// freqs with the given code lengths, plus the fixed extra bits of each
// symbol from extraBase onward.
func huffmanPrice(freqs []uint32, lens []byte, extraBits []byte, extraBase uint) uint32 {
	var price uint32
	for i := range freqs {
		price += uint32(lens[i]) * freqs[i]
	}
	if extraBits != nil {
		for i := extraBase; i < uint(len(freqs)); i++ {
			price += uint32(extraBits[i-extraBase]) * freqs[i]
		}
	}
	return price
}

// makeHuffEncoder assigns canonical codes to lens.  The codes come out bit
// reversed, ready for an LSB-first writer.
func makeHuffEncoder(enc *huffman.Encoder, lens []byte) {
	err := enc.InitFromSizes(lens)
	assert.Assertf(err == nil, "huffman.Encoder.InitFromSizes: %v", err)
}
