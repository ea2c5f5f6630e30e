package arcflate

import (
	"bytes"
	"testing"
)

func TestLSBReader(t *testing.T) {
	var br lsbReader
	br.in.setReader(bytes.NewReader([]byte{0xa5, 0x0f}))
	br.init()

	if v := br.readBits(4); v != 0x5 {
		t.Errorf("readBits(4): expected 0x5, got %#x", v)
	}
	if v := br.readBits(8); v != 0xfa {
		t.Errorf("readBits(8): expected 0xfa, got %#x", v)
	}
	if v := br.readBits(4); v != 0x0 {
		t.Errorf("readBits(4): expected 0x0, got %#x", v)
	}
	if br.extraBitsWereRead() {
		t.Errorf("extraBitsWereRead: expected false at the exact end")
	}
	if n := br.processedSize(); n != 2 {
		t.Errorf("processedSize: expected 2, got %d", n)
	}

	if v := br.readBits(1); v != 1 {
		t.Errorf("readBits(1) past the end: expected 1, got %d", v)
	}
	if !br.extraBitsWereRead() {
		t.Errorf("extraBitsWereRead: expected true after the overrun")
	}
	if n := br.streamSize(); n != 2 {
		t.Errorf("streamSize: expected 2, got %d", n)
	}
}

func TestLSBReader_Aligned(t *testing.T) {
	var br lsbReader
	br.in.setReader(bytes.NewReader([]byte{0xff, 0x12, 0x34, 0x56, 0x78, 0x9a}))
	br.init()

	if v := br.readBits(3); v != 7 {
		t.Errorf("readBits(3): expected 7, got %d", v)
	}
	br.alignToByte()
	for i, expect := range []byte{0x12, 0x34, 0x56, 0x78, 0x9a} {
		if b := br.readAlignedByte(); b != expect {
			t.Errorf("readAlignedByte %d: expected %#02x, got %#02x", i, expect, b)
		}
	}
	if br.extraBitsWereRead() {
		t.Errorf("extraBitsWereRead: expected false")
	}
	if b := br.readAlignedByte(); b != 0xff || !br.extraBitsWereRead() {
		t.Errorf("readAlignedByte past the end: expected 0xff and an overrun, got %#02x", b)
	}
}

func TestLSBReader_Wide(t *testing.T) {
	var br lsbReader
	br.in.setReader(bytes.NewReader([]byte{0x01, 0x23, 0x45, 0x67}))
	br.init()
	if v := br.readBits(32); v != 0x67452301 {
		t.Errorf("readBits(32): expected 0x67452301, got %#08x", v)
	}
}

func TestMSBReader(t *testing.T) {
	var br msbReader
	br.in.setReader(bytes.NewReader([]byte{0xa5, 0x0f}))
	br.init()

	if v := br.getValue(4); v != 0xa {
		t.Errorf("getValue(4): expected 0xa, got %#x", v)
	}
	if v := br.readBits(4); v != 0xa {
		t.Errorf("readBits(4): expected 0xa, got %#x", v)
	}
	if v := br.readBits(8); v != 0x50 {
		t.Errorf("readBits(8): expected 0x50, got %#x", v)
	}
	if v := br.readBits(4); v != 0xf {
		t.Errorf("readBits(4): expected 0xf, got %#x", v)
	}
	if br.extraBitsWereRead() {
		t.Errorf("extraBitsWereRead: expected false at the exact end")
	}
	if n := br.processedSize(); n != 2 {
		t.Errorf("processedSize: expected 2, got %d", n)
	}

	if v := br.readBits(1); v != 1 {
		t.Errorf("readBits(1) past the end: expected 1, got %d", v)
	}
	if !br.extraBitsWereRead() {
		t.Errorf("extraBitsWereRead: expected true after the overrun")
	}
	if n := br.streamSize(); n != 2 {
		t.Errorf("streamSize: expected 2, got %d", n)
	}
}

func TestInBuffer(t *testing.T) {
	var in inBuffer
	in.setReader(bytes.NewReader([]byte("abcdefgh")))

	if b := in.readByte(); b != 'a' {
		t.Errorf("readByte: expected 'a', got %q", b)
	}
	p := make([]byte, 3)
	if n := in.readBytes(p); n != 3 || string(p) != "bcd" {
		t.Errorf("readBytes: expected 3 bytes \"bcd\", got %d bytes %q", n, p[:n])
	}

	var buf bytes.Buffer
	if n, err := in.copyTo(&buf, 2); n != 2 || err != nil || buf.String() != "ef" {
		t.Errorf("copyTo: expected 2 bytes \"ef\", got %d bytes %q, err %v", n, buf.String(), err)
	}
	if n, _ := in.copyTo(nil, 10); n != 2 {
		t.Errorf("copyTo(nil): expected 2, got %d", n)
	}
	if _, ok := in.readByteOK(); ok {
		t.Errorf("readByteOK: expected false at the end")
	}
	if b := in.readByte(); b != 0xff {
		t.Errorf("readByte past the end: expected 0xff, got %#02x", b)
	}
	if in.streamSize() != 8 || in.processedSize() != 9 {
		t.Errorf("expected streamSize 8 and processedSize 9, got %d and %d", in.streamSize(), in.processedSize())
	}
}
