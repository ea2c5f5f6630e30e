package arcflate

import (
	"fmt"

	"github.com/chronos-tachyon/assert"
	"github.com/chronos-tachyon/huffman"
)

type tokenType byte

const (
	invalidToken tokenType = iota
	copyToken
	literalToken
	treeLenToken
	treeDupToken
	treeSZRToken
	treeLZRToken
)

// token is one unit of a block's symbol stream: a literal, a match, or one
// code of the run-length coded code length sequence.  A match keeps its
// length minus 3 in value and its distance minus 1 in extra.  Tree tokens
// keep the repeat count (minus the code's bias) in extra.
type token struct {
	kind  tokenType
	value uint16
	extra uint16
}

func makeCopyToken(lenMinus3 uint32, distMinus1 uint32) token {
	assert.Assertf(lenMinus3 <= matchMaxLen32-matchMinLen, "copy length %d > maximum %d", lenMinus3+matchMinLen, matchMaxLen32)
	assert.Assertf(distMinus1 < historySize64, "copy distance %d > maximum %d", distMinus1+1, historySize64)
	return token{kind: copyToken, value: uint16(lenMinus3), extra: uint16(distMinus1)}
}

func makeLiteralToken(ch byte) token {
	return token{kind: literalToken, value: uint16(ch)}
}

func makeTreeLenToken(size byte) token {
	assert.Assertf(size < tableDirectLevels, "symbol bit length %d >= %d", size, tableDirectLevels)
	return token{kind: treeLenToken, value: uint16(size)}
}

func makeTreeDupToken(count uint) token {
	assert.Assertf(count >= 3, "symbol bit length copy count %d < minimum 3", count)
	assert.Assertf(count <= 6, "symbol bit length copy count %d > maximum 6", count)
	return token{kind: treeDupToken, value: tableLevelRepNumber, extra: uint16(count - 3)}
}

func makeTreeZeroRunToken(count uint) token {
	assert.Assertf(count >= 3, "symbol bit length zero count %d < minimum 3", count)
	assert.Assertf(count <= 138, "symbol bit length zero count %d > maximum 138", count)
	if count <= 10 {
		return token{kind: treeSZRToken, value: tableLevel0Number, extra: uint16(count - 3)}
	}
	return token{kind: treeLZRToken, value: tableLevel0Number2, extra: uint16(count - 11)}
}

func (t token) isLiteral() bool {
	return t.kind == literalToken
}

// symbolX returns the code length alphabet symbol of a tree token, and the
// size and value of its repeat count field.
func (t token) symbolX() (symbol huffman.Symbol, extraLen uint, extraBits uint32) {
	switch t.kind {
	case treeLenToken:
		return huffman.Symbol(t.value), 0, 0
	case treeDupToken, treeSZRToken, treeLZRToken:
		return huffman.Symbol(t.value), uint(levelDirectBits[t.value-tableDirectLevels]), uint32(t.extra)
	default:
		return huffman.InvalidSymbol, 0, 0
	}
}

// encodeLLD writes a literal or match token.  lenStart and lenDirectBits
// select between the DEFLATE and Deflate64 length tables.
func (t token) encodeLLD(bw *bitWriter, hLL *huffman.Encoder, hD *huffman.Encoder, lenStart *[32]byte, lenDirectBits *[32]byte) {
	switch t.kind {
	case literalToken:
		bw.writeCode(hLL.Encode(huffman.Symbol(t.value)))

	case copyToken:
		length := uint32(t.value)
		lenSlot := uint32(gLenSlots[length])
		bw.writeCode(hLL.Encode(huffman.Symbol(symbolMatch + lenSlot)))
		bw.writeBits(length-uint32(lenStart[lenSlot]), uint(lenDirectBits[lenSlot]))
		dist := uint32(t.extra)
		posSlot := getPosSlot(dist)
		bw.writeCode(hD.Encode(huffman.Symbol(posSlot)))
		bw.writeBits(dist-distStart[posSlot], uint(distDirectBits[posSlot]))

	default:
		assert.Raisef("encodeLLD called on %v", t)
	}
}

func (t token) encodeX(bw *bitWriter, hX *huffman.Encoder) {
	symX, extraLen, extraBits := t.symbolX()
	assert.Assertf(symX >= 0, "encodeX called on %v", t)
	bw.writeCode(hX.Encode(symX))
	if extraLen != 0 {
		bw.writeBits(extraBits, extraLen)
	}
}

func (t token) String() string {
	switch t.kind {
	case copyToken:
		return fmt.Sprintf("[copy token: distance=%d length=%d]", uint32(t.extra)+1, uint32(t.value)+matchMinLen)

	case literalToken:
		return fmt.Sprintf("[literal token: %#02x]", t.value)

	case treeLenToken:
		return fmt.Sprintf("[tree len token: length=%d]", t.value)

	case treeDupToken:
		return fmt.Sprintf("[tree dup token: count=%d]", t.extra+3)

	case treeSZRToken:
		return fmt.Sprintf("[tree short zero repeat token: count=%d]", t.extra+3)

	case treeLZRToken:
		return fmt.Sprintf("[tree long zero repeat token: count=%d]", t.extra+11)

	default:
		return fmt.Sprintf("[invalid token: value=%d extra=%d]", t.value, t.extra)
	}
}
