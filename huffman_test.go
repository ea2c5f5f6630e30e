package arcflate

import (
	"bytes"
	"fmt"
	"testing"
)

func TestHuffDecoder_Build(t *testing.T) {
	type testRow struct {
		name   string
		lens   []byte
		expect bool
	}

	var testData = [...]testRow{
		{"complete", []byte{1, 2, 3, 3}, true},
		{"complete-with-unused", []byte{0, 2, 0, 2, 2, 2}, true},
		{"all-zero", make([]byte, 30), true},
		{"single-length-1", []byte{0, 1, 0}, true},
		{"single-length-2", []byte{0, 2}, false},
		{"incomplete", []byte{1, 2}, false},
		{"oversubscribed", []byte{1, 1, 1}, false},
		{"too-long", []byte{1, 16}, false},
	}

	for _, row := range testData {
		t.Run(row.name, func(t *testing.T) {
			var hd huffDecoder
			hd.setMaxBits(maxHuffmanBits)
			if ok := hd.build(row.lens); ok != row.expect {
				t.Errorf("build(%v): expected %v, got %v", row.lens, row.expect, ok)
			}
		})
	}
}

func TestHuffDecoder_Decode(t *testing.T) {
	t.Run("short-codes", func(t *testing.T) {
		var hd huffDecoder
		hd.setMaxBits(maxHuffmanBits)
		if !hd.build([]byte{1, 2, 3, 3}) {
			t.Fatal("build failed")
		}

		// 111 0 10 110, packed LSB first.
		var br lsbReader
		br.in.setReader(bytes.NewReader([]byte{0xd7, 0x00}))
		br.init()
		for i, expect := range []uint32{3, 0, 1, 2} {
			if sym := hd.decode(&br); sym != expect {
				t.Errorf("symbol %d: expected %d, got %d", i, expect, sym)
			}
		}
	})

	t.Run("long-codes", func(t *testing.T) {
		// Lengths 1, 2, ..., 14, 15, 15 form a complete code whose long
		// codes are resolved past the lookup table.
		lens := make([]byte, 16)
		for i := range lens {
			lens[i] = byte(i + 1)
		}
		lens[15] = 15

		var hd huffDecoder
		hd.setMaxBits(maxHuffmanBits)
		if !hd.build(lens) {
			t.Fatal("build failed")
		}

		// Symbol 14 is fourteen 1s then a 0; symbol 15 is fifteen 1s.
		var bw bitWriter
		var buf bytes.Buffer
		bw.init(&buf)
		bw.writeBits(0x3fff, 14)
		bw.writeBits(0, 1)
		bw.writeBits(0x7fff, 15)
		bw.writeBits(0, 1)
		if err := bw.flush(); err != nil {
			t.Fatalf("flush failed: %v", err)
		}

		var br lsbReader
		br.in.setReader(bytes.NewReader(buf.Bytes()))
		br.init()
		for i, expect := range []uint32{14, 15, 0} {
			if sym := hd.decode(&br); sym != expect {
				t.Errorf("symbol %d: expected %d, got %d", i, expect, sym)
			}
		}
	})

	t.Run("single-code", func(t *testing.T) {
		var hd huffDecoder
		hd.setMaxBits(maxHuffmanBits)
		if !hd.build([]byte{0, 1}) {
			t.Fatal("build failed")
		}

		var br lsbReader
		br.in.setReader(bytes.NewReader([]byte{0x02}))
		br.init()
		if sym := hd.decode(&br); sym != 1 {
			t.Errorf("expected 1, got %d", sym)
		}
		if sym := hd.decode(&br); sym != invalidHuffSymbol {
			t.Errorf("expected invalidHuffSymbol, got %d", sym)
		}
	})
}

func TestHuffmanGenerate(t *testing.T) {
	fib := make([]uint32, 30)
	fib[0], fib[1] = 1, 1
	for i := 2; i < len(fib); i++ {
		fib[i] = fib[i-1] + fib[i-2]
	}

	type testRow struct {
		name   string
		freqs  []uint32
		maxLen uint
	}

	var testData = [...]testRow{
		{"uniform", []uint32{5, 5, 5, 5, 5, 5, 5, 5}, 15},
		{"skewed", []uint32{1000, 1, 1, 1, 50, 0, 0, 3}, 15},
		{"fibonacci", fib, 15},
		{"fibonacci-level-codes", fib[:19], 7},
		{"with-gaps", []uint32{0, 7, 0, 0, 2, 9, 0, 1, 1, 0, 30}, 15},
		{"noise", noiseFreqs(286), 15},
	}

	for _, row := range testData {
		t.Run(row.name, func(t *testing.T) {
			lens := make([]byte, len(row.freqs))
			huffmanGenerate(row.freqs, lens, row.maxLen)

			var kraft uint64
			for i, n := range lens {
				if uint(n) > row.maxLen {
					t.Errorf("symbol %d: length %d > maximum %d", i, n, row.maxLen)
				}
				if (n == 0) != (row.freqs[i] == 0) {
					t.Errorf("symbol %d: frequency %d, length %d", i, row.freqs[i], n)
				}
				if n != 0 {
					kraft += uint64(1) << (row.maxLen - uint(n))
				}
			}
			if kraft != uint64(1)<<row.maxLen {
				t.Errorf("code is not complete: Kraft sum %d/%d; lengths %v", kraft, uint64(1)<<row.maxLen, lens)
			}

			var hd huffDecoder
			hd.setMaxBits(maxHuffmanBits)
			if !hd.build(lens) {
				t.Errorf("huffDecoder rejects lengths %v", lens)
			}
		})
	}
}

func TestHuffmanGenerate_FewSymbols(t *testing.T) {
	type testRow struct {
		freqs  []uint32
		expect []byte
	}

	var testData = [...]testRow{
		{[]uint32{0, 0, 0, 0}, []byte{1, 1, 0, 0}},
		{[]uint32{9, 0, 0, 0}, []byte{1, 1, 0, 0}},
		{[]uint32{0, 0, 9, 0}, []byte{1, 0, 1, 0}},
		{[]uint32{0, 3, 0, 8}, []byte{0, 1, 0, 1}},
	}

	for _, row := range testData {
		t.Run(fmt.Sprint(row.freqs), func(t *testing.T) {
			lens := make([]byte, len(row.freqs))
			huffmanGenerate(row.freqs, lens, 15)
			if !bytes.Equal(lens, row.expect) {
				t.Errorf("expected %v, got %v", row.expect, lens)
			}
		})
	}
}

func noiseFreqs(n int) []uint32 {
	freqs := make([]uint32, n)
	for i, b := range makeNoise(99, n) {
		freqs[i] = uint32(b) + 1
	}
	return freqs
}
