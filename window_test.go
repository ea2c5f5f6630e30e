package arcflate

import (
	"bytes"
	"errors"
	"testing"
)

func TestLZWindow(t *testing.T) {
	var buf bytes.Buffer
	var win lzWindow
	win.create(15)
	win.setWriter(&buf)
	win.init(false)

	win.putByte('a')
	win.putByte('b')
	if !win.copyBlock(1, 6) {
		t.Fatal("copyBlock(1, 6) failed")
	}
	if b := win.getByte(0); b != 'b' {
		t.Errorf("getByte(0): expected 'b', got %q", b)
	}
	if win.copyBlock(8, 1) {
		t.Errorf("copyBlock(8, 1): expected failure with 8 bytes of history")
	}
	if err := win.flush(); err != nil {
		t.Fatalf("flush failed: %v", err)
	}
	if buf.String() != "abababab" {
		t.Errorf("expected \"abababab\", got %q", buf.String())
	}
	if win.total != 8 {
		t.Errorf("total: expected 8, got %d", win.total)
	}

	// A new stream starts without history unless it is kept.
	win.init(false)
	if win.copyBlock(0, 1) {
		t.Errorf("copyBlock after init(false): expected failure")
	}
	win.putByte('z')
	_ = win.flush()
	win.init(true)
	if !win.copyBlock(0, 2) {
		t.Errorf("copyBlock after init(true): expected success")
	}
	_ = win.flush()
	if buf.String() != "ababababzzz" {
		t.Errorf("expected \"ababababzzz\", got %q", buf.String())
	}
}

func TestLZWindow_SinkError(t *testing.T) {
	errSink := errors.New("sink failed")
	calls := 0
	var win lzWindow
	win.create(15)
	win.setWriter(writerFunc(func(p []byte) (int, error) {
		calls++
		return 0, errSink
	}))
	win.init(false)

	for i := 0; i < 3<<16; i++ {
		win.putByte(byte(i))
	}
	if err := win.flush(); !errors.Is(err, errSink) {
		t.Errorf("flush: expected errSink, got %v", err)
	}
	if calls == 0 || calls > 2 {
		t.Errorf("expected output to stop after the sink failed, got %d calls", calls)
	}
}
