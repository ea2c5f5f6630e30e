package arcflate

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/klauspost/compress/flate"
)

func TestDecoder(t *testing.T) {
	type testRow struct {
		name       string
		deflate64  bool
		nsis       bool
		compressed []byte
		expect     []byte
	}

	var testData = [...]testRow{
		{
			name:       "stored-hello",
			compressed: mustDecodeHex("010500faff68656c6c6f"),
			expect:     []byte("hello"),
		},
		{
			name:       "stored-empty",
			compressed: mustDecodeHex("010000ffff"),
			expect:     []byte{},
		},
		{
			name:       "fixed-empty",
			compressed: mustDecodeHex("0300"),
			expect:     []byte{},
		},
		{
			name:       "fixed-overlapping-match",
			compressed: mustDecodeHex("4b040200"),
			expect:     []byte("aaaa"),
		},
		{
			name:       "pangram",
			compressed: mustDecodeHex("0b2ec8c8ccab50c84f5348ca494cce56282c4d2c2aa9d251c82a4d494f55c8ad5428cb2fd70300"),
			expect:     []byte("Sphinx of black quartz, judge my vow."),
		},
		{
			name:       "repetitive",
			compressed: mustDecodeHex("53484c4a4e51484d4bcf5040b0105c841800"),
			expect:     []byte(" abcd efgh abcd efgh efgh abcd abcd efgh "),
		},
		{
			name:       "lipsum-dynamic",
			compressed: mustDecodeHex("05c1d109c0200c04d0556e80d229fad925241ee5408d2471ffbef77a70423bcf44f7e18154a14dd605f395b4629d40ebda4ad3fac0a1baf1f8a2e18c0a19f3fe01"),
			expect:     []byte("Lorem ipsum dolor sit amet, consectetur adipiscing elit. Donec ultrices."),
		},
		{
			name:       "trailing-bytes-ignored",
			compressed: mustDecodeHex("010500faff68656c6c6fdeadbeef"),
			expect:     []byte("hello"),
		},
		{
			name:       "deflate64-long-length",
			deflate64:  true,
			compressed: mustDecodeHex("4b1c2d1f0000"),
			expect:     bytes.Repeat([]byte("a"), 1001),
		},
		{
			name:       "nsis-stored",
			nsis:       true,
			compressed: mustDecodeHex("01050068656c6c6f"),
			expect:     []byte("hello"),
		},
	}

	for _, row := range testData {
		t.Run(row.name, func(t *testing.T) {
			d := NewDecoder(WithDeflate64(row.deflate64), WithNSIS(row.nsis))

			var buf bytes.Buffer
			err := d.Code(bytes.NewReader(row.compressed), &buf, nil, nil)
			if err != nil {
				t.Fatalf("Code failed: %v", err)
			}
			checkBytes(t, "Code", row.expect, buf.Bytes())
			if !d.Finished() {
				t.Errorf("Finished: expected true, got false")
			}
			if n := d.OutputProcessedSize(); n != uint64(len(row.expect)) {
				t.Errorf("OutputProcessedSize: expected %d, got %d", len(row.expect), n)
			}

			d.SetInput(bytes.NewReader(row.compressed))
			output, err := io.ReadAll(d)
			if err != nil {
				t.Fatalf("ReadAll failed: %v", err)
			}
			checkBytes(t, "Read", row.expect, output)
		})
	}
}

func TestDecoder_Errors(t *testing.T) {
	type testRow struct {
		name       string
		compressed []byte
		kind       ErrorKind
	}

	var testData = [...]testRow{
		{"empty", nil, KindUnexpectedEnd},
		{"reserved-block-type", mustDecodeHex("07"), KindDataError},
		{"distance-before-start", mustDecodeHex("030200"), KindDataError},
		{"stored-bad-complement", mustDecodeHex("010500000068656c6c6f"), KindDataError},
		{"stored-truncated", mustDecodeHex("010500faff6865"), KindUnexpectedEnd},
		{"dynamic-truncated", mustDecodeHex("05c1d109c0200c04d0556e80d229fad925241ee5408d2471ffbe"), KindUnexpectedEnd},
		{"no-final-block", mustDecodeHex("000000ffff"), KindUnexpectedEnd},
	}

	for _, row := range testData {
		t.Run(row.name, func(t *testing.T) {
			d := NewDecoder()
			err := d.Code(bytes.NewReader(row.compressed), io.Discard, nil, nil)
			if err == nil {
				t.Fatalf("Code: expected %v, got nil", row.kind)
			}
			if kind := KindOf(err); kind != row.kind {
				t.Errorf("Code: expected %v, got %v (%v)", row.kind, kind, err)
			}
			var e *Error
			if !errors.As(err, &e) {
				t.Errorf("Code: expected *Error, got %T", err)
			}
		})
	}
}

func TestDecoder_OutSize(t *testing.T) {
	compressed := mustDecodeHex("0b2ec8c8ccab50c84f5348ca494cce56282c4d2c2aa9d251c82a4d494f55c8ad5428cb2fd70300")
	expect := []byte("Sphinx of black quartz, judge my vow.")

	t.Run("partial", func(t *testing.T) {
		d := NewDecoder()
		size := uint64(6)
		var buf bytes.Buffer
		if err := d.Code(bytes.NewReader(compressed), &buf, &size, nil); err != nil {
			t.Fatalf("Code failed: %v", err)
		}
		checkBytes(t, "Code", expect[:6], buf.Bytes())
		if d.Finished() {
			t.Errorf("Finished: expected false, got true")
		}
	})

	t.Run("finish-exact", func(t *testing.T) {
		d := NewDecoder(WithFinishMode(true))
		size := uint64(len(expect))
		var buf bytes.Buffer
		if err := d.Code(bytes.NewReader(compressed), &buf, &size, nil); err != nil {
			t.Fatalf("Code failed: %v", err)
		}
		checkBytes(t, "Code", expect, buf.Bytes())
	})

	t.Run("finish-short", func(t *testing.T) {
		d := NewDecoder(WithFinishMode(true))
		size := uint64(6)
		err := d.Code(bytes.NewReader(compressed), io.Discard, &size, nil)
		if kind := KindOf(err); kind != KindDataError {
			t.Errorf("Code: expected %v, got %v (%v)", KindDataError, kind, err)
		}
	})
}

func TestDecoder_Events(t *testing.T) {
	var events []EventType
	tracer := TracerFunc(func(event Event) {
		events = append(events, event.Type)
	})

	d := NewDecoder(WithTracers(tracer))
	if err := d.Code(bytes.NewReader(mustDecodeHex("010500faff68656c6c6f")), io.Discard, nil, nil); err != nil {
		t.Fatalf("Code failed: %v", err)
	}

	expect := []EventType{StreamBeginEvent, BlockBeginEvent, BlockEndEvent, StreamEndEvent}
	if len(events) != len(expect) {
		t.Fatalf("expected events %v, got %v", expect, events)
	}
	for i := range expect {
		if events[i] != expect[i] {
			t.Errorf("event %d: expected %v, got %v", i, expect[i], events[i])
		}
	}
}

func TestDecoder_Method(t *testing.T) {
	type testRow struct {
		name   string
		opts   []Option
		expect Method
	}

	var testData = [...]testRow{
		{"default", nil, DeflateMethod},
		{"deflate64", []Option{WithDeflate64(true)}, Deflate64Method},
		{"nsis", []Option{WithNSIS(true)}, NSISMethod},
	}

	for _, row := range testData {
		t.Run(row.name, func(t *testing.T) {
			if m := NewDecoder(row.opts...).Method(); m != row.expect {
				t.Errorf("expected %v, got %v", row.expect, m)
			}
		})
	}
}

func TestDecoder_ConsecutiveStreams(t *testing.T) {
	a := mustDecodeHex("010500faff68656c6c6f")
	b := mustDecodeHex("0b2ec8c8ccab50c84f5348ca494cce56282c4d2c2aa9d251c82a4d494f55c8ad5428cb2fd70300")

	d := NewDecoder()
	d.SetInput(bytes.NewReader(append(append([]byte(nil), a...), b...)))

	var buf bytes.Buffer
	if err := d.CodeResume(&buf, nil, nil); err != nil {
		t.Fatalf("first CodeResume failed: %v", err)
	}
	if n := d.InputProcessedSize(); n != uint64(len(a)) {
		t.Errorf("InputProcessedSize: expected %d, got %d", len(a), n)
	}
	if err := d.CodeResume(&buf, nil, nil); err != nil {
		t.Fatalf("second CodeResume failed: %v", err)
	}
	checkBytes(t, "CodeResume", []byte("helloSphinx of black quartz, judge my vow."), buf.Bytes())
}

func TestDecoder_Interop(t *testing.T) {
	inputs := map[string][]byte{
		"text":  makeText(1, 300000),
		"noise": makeNoise(2, 100000),
		"zeros": make([]byte, 200000),
	}

	for name, input := range inputs {
		for _, level := range []int{flate.HuffmanOnly, flate.BestSpeed, 5, flate.BestCompression} {
			var compressed bytes.Buffer
			fw, err := flate.NewWriter(&compressed, level)
			if err != nil {
				t.Fatalf("flate.NewWriter failed: %v", err)
			}
			if _, err := fw.Write(input); err != nil {
				t.Fatalf("flate.Writer.Write failed: %v", err)
			}
			if err := fw.Close(); err != nil {
				t.Fatalf("flate.Writer.Close failed: %v", err)
			}

			var buf bytes.Buffer
			d := NewDecoder()
			if err := d.Code(bytes.NewReader(compressed.Bytes()), &buf, nil, nil); err != nil {
				t.Errorf("%s/%d: Code failed: %v", name, level, err)
				continue
			}
			checkBytes(t, name, input, buf.Bytes())
		}
	}
}

func TestDecoder_ProgressAbort(t *testing.T) {
	var compressed bytes.Buffer
	fw, _ := flate.NewWriter(&compressed, flate.BestSpeed)
	_, _ = fw.Write(makeNoise(3, 3<<20))
	_ = fw.Close()

	errStop := errors.New("stop")
	progress := ProgressFunc(func(in, out uint64) error {
		return errStop
	})

	d := NewDecoder()
	err := d.Code(bytes.NewReader(compressed.Bytes()), io.Discard, nil, progress)
	if !errors.Is(err, ErrAborted) {
		t.Errorf("expected ErrAborted, got %v", err)
	}
	if !errors.Is(err, errStop) {
		t.Errorf("expected errStop in chain, got %v", err)
	}
}

func TestDecoder_WriteError(t *testing.T) {
	errSink := errors.New("sink failed")
	sink := writerFunc(func(p []byte) (int, error) {
		return 0, errSink
	})

	d := NewDecoder()
	err := d.Code(strings.NewReader("\x01\x05\x00\xfa\xffhello"), sink, nil, nil)
	if kind := KindOf(err); kind != KindWriteError {
		t.Errorf("expected %v, got %v (%v)", KindWriteError, kind, err)
	}
	if !errors.Is(err, errSink) {
		t.Errorf("expected errSink in chain, got %v", err)
	}
}

type writerFunc func([]byte) (int, error)

func (fn writerFunc) Write(p []byte) (int, error) { return fn(p) }

func TestDecoder_KeepHistory(t *testing.T) {
	first := mustDecodeHex("010500faff68656c6c6f")
	second := mustDecodeHex("031300")

	t.Run("keep", func(t *testing.T) {
		d := NewDecoder(WithKeepHistory(true))
		var buf bytes.Buffer
		if err := d.Code(bytes.NewReader(first), &buf, nil, nil); err != nil {
			t.Fatalf("first Code failed: %v", err)
		}
		if err := d.Code(bytes.NewReader(second), &buf, nil, nil); err != nil {
			t.Fatalf("second Code failed: %v", err)
		}
		checkBytes(t, "Code", []byte("hellohello"), buf.Bytes())
	})

	t.Run("fresh", func(t *testing.T) {
		d := NewDecoder()
		if err := d.Code(bytes.NewReader(first), io.Discard, nil, nil); err != nil {
			t.Fatalf("first Code failed: %v", err)
		}
		err := d.Code(bytes.NewReader(second), io.Discard, nil, nil)
		if kind := KindOf(err); kind != KindDataError {
			t.Errorf("second Code: expected %v, got %v (%v)", KindDataError, kind, err)
		}
	})
}

func TestDecoder_ReadUnusedFromInBuf(t *testing.T) {
	input := mustDecodeHex("010500faff68656c6c6f0123456789abcdef")

	d := NewDecoder()
	d.SetInput(bytes.NewReader(input))
	var buf bytes.Buffer
	if err := d.CodeResume(&buf, nil, nil); err != nil {
		t.Fatalf("CodeResume failed: %v", err)
	}
	checkBytes(t, "CodeResume", []byte("hello"), buf.Bytes())

	var p [16]byte
	n := d.ReadUnusedFromInBuf(p[:])
	checkBytes(t, "ReadUnusedFromInBuf", mustDecodeHex("0123456789abcdef"), p[:n])
}
