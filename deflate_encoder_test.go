package arcflate

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/klauspost/compress/flate"
)

func encodeAll(t *testing.T, input []byte, opts ...Option) []byte {
	t.Helper()
	var compressed bytes.Buffer
	e := NewEncoder(opts...)
	if err := e.Code(bytes.NewReader(input), &compressed, nil); err != nil {
		t.Fatalf("Encoder.Code failed: %v", err)
	}
	return compressed.Bytes()
}

func decodeAll(t *testing.T, compressed []byte, opts ...Option) []byte {
	t.Helper()
	var buf bytes.Buffer
	d := NewDecoder(opts...)
	if err := d.Code(bytes.NewReader(compressed), &buf, nil, nil); err != nil {
		t.Fatalf("Decoder.Code failed: %v", err)
	}
	return buf.Bytes()
}

func TestEncoder_RoundTrip(t *testing.T) {
	type testRow struct {
		name  string
		input []byte
	}

	var testData = [...]testRow{
		{"empty", nil},
		{"one-byte", []byte("x")},
		{"hello", []byte("hello")},
		{"repetitive", []byte(" abcd efgh abcd efgh efgh abcd abcd efgh ")},
		{"text", makeText(10, 150000)},
		{"noise", makeNoise(11, 70000)},
		{"zeros", make([]byte, 100000)},
		{"mixed", append(makeNoise(12, 20000), makeText(13, 50000)...)},
	}

	for _, row := range testData {
		for level := NoCompression; level <= BestCompression; level++ {
			t.Run(fmt.Sprintf("%s/%d", row.name, level), func(t *testing.T) {
				compressed := encodeAll(t, row.input, WithCompressLevel(level))
				checkBytes(t, "Decoder", row.input, decodeAll(t, compressed))

				output, err := io.ReadAll(flate.NewReader(bytes.NewReader(compressed)))
				if err != nil {
					t.Fatalf("flate.Reader failed: %v", err)
				}
				checkBytes(t, "flate.Reader", row.input, output)
			})
		}
	}
}

func TestEncoder_Options(t *testing.T) {
	type testRow struct {
		name string
		opts []Option
	}

	var testData = [...]testRow{
		{"hc3-level5", []Option{WithCompressLevel(5), WithMatchFinder(HashChainMatchFinder)}},
		{"bt3-level1", []Option{WithCompressLevel(1), WithMatchFinder(BinaryTreeMatchFinder)}},
		{"small-window", []Option{WithCompressLevel(7), WithWindowBits(MinWindowBits)}},
		{"fast-bytes-max", []Option{WithCompressLevel(5), WithFastBytes(matchMaxLen32)}},
		{"fast-bytes-min", []Option{WithCompressLevel(9), WithFastBytes(matchMinLen)}},
		{"two-passes", []Option{WithCompressLevel(5), WithNumPasses(2)}},
		{"many-passes", []Option{WithCompressLevel(5), WithNumPasses(maxNumPasses)}},
		{"shallow-search", []Option{WithCompressLevel(9), WithMatchCycles(1)}},
	}

	input := append(makeText(20, 120000), make([]byte, 5000)...)
	for _, row := range testData {
		t.Run(row.name, func(t *testing.T) {
			compressed := encodeAll(t, input, row.opts...)
			checkBytes(t, "Decoder", input, decodeAll(t, compressed))
			if len(compressed) >= len(input)/2 {
				t.Errorf("expected better than 2:1 compression of text, got %d -> %d bytes", len(input), len(compressed))
			}
		})
	}
}

func TestEncoder_Deflate64(t *testing.T) {
	block := makeNoise(30, 40000)
	input := append(append([]byte(nil), block...), block...)

	compressed64 := encodeAll(t, input, WithDeflate64(true))
	checkBytes(t, "Deflate64", input, decodeAll(t, compressed64, WithDeflate64(true)))

	compressed32 := encodeAll(t, input)
	checkBytes(t, "Deflate", input, decodeAll(t, compressed32))

	// Only the 64 KiB window reaches back to the first copy.
	if len(compressed64) > 3*len(input)/4 {
		t.Errorf("Deflate64: expected the repeat to be found, got %d -> %d bytes", len(input), len(compressed64))
	}
	if len(compressed32) < 3*len(input)/4 {
		t.Errorf("Deflate: expected no long-distance matches, got %d -> %d bytes", len(input), len(compressed32))
	}

	zeros := make([]byte, 70000)
	compressed := encodeAll(t, zeros, WithDeflate64(true), WithCompressLevel(9))
	checkBytes(t, "Deflate64 zeros", zeros, decodeAll(t, compressed, WithDeflate64(true)))
}

func TestEncoder_Method(t *testing.T) {
	if m := NewEncoder().Method(); m != DeflateMethod {
		t.Errorf("default: expected %v, got %v", DeflateMethod, m)
	}
	if m := NewEncoder(WithDeflate64(true)).Method(); m != Deflate64Method {
		t.Errorf("deflate64: expected %v, got %v", Deflate64Method, m)
	}
	if wbits := NewEncoder().WindowBits(); wbits != MaxDeflateWindowBits {
		t.Errorf("WindowBits: expected %v, got %v", MaxDeflateWindowBits, wbits)
	}
	if wbits := NewEncoder(WithDeflate64(true)).WindowBits(); wbits != MaxWindowBits {
		t.Errorf("WindowBits: expected %v, got %v", MaxWindowBits, wbits)
	}
}

func TestEncoder_Stored(t *testing.T) {
	compressed := encodeAll(t, []byte("hello"), WithCompressLevel(NoCompression))
	checkBytes(t, "stored", mustDecodeHex("010500faff68656c6c6f"), compressed)

	input := makeNoise(40, 3*maxStoredBlockSize+17)
	compressed = encodeAll(t, input, WithCompressLevel(NoCompression))
	if expect := len(input) + 4*5; len(compressed) != expect {
		t.Errorf("expected %d bytes of stored blocks, got %d", expect, len(compressed))
	}
	checkBytes(t, "stored", input, decodeAll(t, compressed))
}

func TestEncoder_Reuse(t *testing.T) {
	e := NewEncoder(WithCompressLevel(6))
	inputs := [][]byte{makeText(50, 40000), []byte("short"), makeNoise(51, 1000), makeText(52, 90000)}
	for i, input := range inputs {
		var compressed bytes.Buffer
		if err := e.Code(bytes.NewReader(input), &compressed, nil); err != nil {
			t.Fatalf("stream %d: Code failed: %v", i, err)
		}
		checkBytes(t, fmt.Sprintf("stream %d", i), input, decodeAll(t, compressed.Bytes()))
	}
}

func TestEncoder_Errors(t *testing.T) {
	t.Run("progress", func(t *testing.T) {
		errStop := errors.New("stop")
		e := NewEncoder(WithCompressLevel(1))
		err := e.Code(bytes.NewReader(makeText(60, 200000)), io.Discard, ProgressFunc(func(in, out uint64) error {
			return errStop
		}))
		if !errors.Is(err, ErrAborted) || !errors.Is(err, errStop) {
			t.Errorf("expected KindAborted wrapping errStop, got %v", err)
		}
	})

	t.Run("write", func(t *testing.T) {
		errSink := errors.New("sink failed")
		e := NewEncoder(WithCompressLevel(5))
		err := e.Code(bytes.NewReader(makeText(61, 200000)), writerFunc(func(p []byte) (int, error) {
			return 0, errSink
		}), nil)
		if kind := KindOf(err); kind != KindWriteError {
			t.Errorf("expected %v, got %v (%v)", KindWriteError, kind, err)
		}
	})

	for _, level := range []CompressLevel{0, 1, 9} {
		t.Run(fmt.Sprintf("read-level-%d", level), func(t *testing.T) {
			errSource := errors.New("source failed")
			e := NewEncoder(WithCompressLevel(level))
			err := e.Code(io.MultiReader(bytes.NewReader([]byte("abc")), errReader{errSource}), io.Discard, nil)
			if !errors.Is(err, errSource) {
				t.Errorf("expected errSource in chain, got %v", err)
			}
			if !errors.Is(err, ErrRead) {
				t.Errorf("expected ErrRead in chain, got %v", err)
			}
			if kind := KindOf(err); kind != KindReadError {
				t.Errorf("expected %v, got %v (%v)", KindReadError, kind, err)
			}
		})
	}
}

type errReader struct{ err error }

func (r errReader) Read([]byte) (int, error) { return 0, r.err }

func TestEncodeTreeTokens(t *testing.T) {
	type testRow struct {
		name   string
		sizes  []byte
		expect []token
	}

	var testData = [...]testRow{
		{"empty", nil, nil},
		{"two", []byte{3, 3}, []token{makeTreeLenToken(3), makeTreeLenToken(3)}},
		{"seven", []byte{5, 5, 5, 5, 5, 5, 5}, []token{makeTreeLenToken(5), makeTreeDupToken(6)}},
		{"short-zeros", make([]byte, 5), []token{makeTreeZeroRunToken(5)}},
		{"long-zeros", make([]byte, 20), []token{makeTreeZeroRunToken(20)}},
		{"two-zeros", []byte{4, 0, 0, 4}, []token{makeTreeLenToken(4), makeTreeLenToken(0), makeTreeLenToken(0), makeTreeLenToken(4)}},
	}

	for _, row := range testData {
		t.Run(row.name, func(t *testing.T) {
			actual := encodeTreeTokens(nil, row.sizes)
			if len(actual) != len(row.expect) {
				t.Fatalf("expected %d tokens, got %d: %v", len(row.expect), len(actual), actual)
			}
			for i := range actual {
				if actual[i] != row.expect[i] {
					t.Errorf("token %d: expected %v, got %v", i, row.expect[i], actual[i])
				}
			}
		})
	}
}
