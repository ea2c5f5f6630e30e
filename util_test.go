package arcflate

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"math/rand"
	"strings"
	"testing"
)

func mustDecodeHex(str string) []byte {
	raw, err := hex.DecodeString(str)
	if err != nil {
		panic(err)
	}
	return raw
}

// makeText returns size bytes of pseudo-random text drawn from a small
// vocabulary, so that it compresses the way prose does.
func makeText(seed int64, size int) []byte {
	words := strings.Fields("lorem ipsum dolor sit amet consectetur adipiscing elit donec ultrices sphinx of black quartz judge my vow the quick brown fox jumps over lazy dog")
	rng := rand.New(rand.NewSource(seed))
	out := make([]byte, 0, size+16)
	for len(out) < size {
		out = append(out, words[rng.Intn(len(words))]...)
		switch rng.Intn(12) {
		case 0:
			out = append(out, ".\n"...)
		case 1:
			out = append(out, ", "...)
		default:
			out = append(out, ' ')
		}
	}
	return out[:size]
}

// makeNoise returns size bytes that do not compress.
func makeNoise(seed int64, size int) []byte {
	rng := rand.New(rand.NewSource(seed))
	out := make([]byte, size)
	rng.Read(out)
	return out
}

func checkBytes(t *testing.T, what string, expect []byte, actual []byte) {
	t.Helper()
	if bytes.Equal(expect, actual) {
		return
	}
	t.Errorf("%s: wrong output: expected %d bytes, got %d bytes", what, len(expect), len(actual))
	if len(expect) <= 256 && len(actual) <= 256 {
		t.Logf("diff:%s", tabify(hexDiff(expect, actual)))
	}
}

func hexDump(p []byte) []string {
	length := uint(len(p))
	lines := make([]string, 0, (length+15)>>4)
	var offset uint
	var buf strings.Builder
	for (offset + 16) <= length {
		buf.Reset()
		fmt.Fprintf(&buf, "%08x|", offset)
		for i := uint(0); i < 16; i++ {
			index := offset + i
			ch := p[index]
			fmt.Fprintf(&buf, " %02x", ch)
			if i == 7 {
				buf.WriteByte(' ')
			}
		}
		lines = append(lines, buf.String())
		offset += 16
	}
	if offset < length || offset == 0 {
		buf.Reset()
		fmt.Fprintf(&buf, "%08x|", offset)
		for i := uint(0); i < 16; i++ {
			index := offset + i
			if index < length {
				ch := p[index]
				fmt.Fprintf(&buf, " %02x", ch)
			} else {
				buf.WriteString(" --")
			}
			if i == 7 {
				buf.WriteByte(' ')
			}
		}
		lines = append(lines, buf.String())
	}
	return lines
}

func hexDiff(a, b []byte) []string {
	aLines := hexDump(a)
	bLines := hexDump(b)

	aLen := uint(len(aLines))
	bLen := uint(len(bLines))
	minLen := aLen
	if minLen > bLen {
		minLen = bLen
	}

	diffLines := make([]string, 0, aLen+bLen)
	for i := uint(0); i < minLen; i++ {
		aLine := aLines[i]
		bLine := bLines[i]
		if aLine == bLine {
			continue
		}
		diffLines = append(diffLines, "-"+aLine)
		diffLines = append(diffLines, "+"+bLine)
	}
	for i := minLen; i < aLen; i++ {
		aLine := aLines[i]
		diffLines = append(diffLines, "-"+aLine)
	}
	for i := minLen; i < bLen; i++ {
		bLine := bLines[i]
		diffLines = append(diffLines, "+"+bLine)
	}
	return diffLines
}

func tabify(lines []string) string {
	var buf strings.Builder
	for _, line := range lines {
		buf.WriteByte('\n')
		buf.WriteByte('\t')
		buf.WriteString(line)
	}
	return buf.String()
}
