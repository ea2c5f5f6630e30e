package crc32

import (
	stdcrc32 "hash/crc32"
	"testing"
)

func TestUpdate(t *testing.T) {
	type testRow struct {
		name  string
		input string
		sum   uint32
	}

	testData := [...]testRow{
		{"empty", "", 0},
		{"a", "a", 0xe8b7be43},
		{"check", "123456789", 0xcbf43926},
		{"fox", "The quick brown fox jumps over the lazy dog", 0x414fa339},
	}

	for _, row := range testData {
		t.Run(row.name, func(t *testing.T) {
			if got := Checksum([]byte(row.input)); got != row.sum {
				t.Errorf("Checksum: expected %#08x, got %#08x", row.sum, got)
			}
			if got := sliceUpdate(0, []byte(row.input)); got != row.sum {
				t.Errorf("sliceUpdate: expected %#08x, got %#08x", row.sum, got)
			}
		})
	}
}

func TestUpdateLong(t *testing.T) {
	buf := make([]byte, 4099)
	for i := range buf {
		buf[i] = byte(i * 7)
	}
	expect := stdcrc32.ChecksumIEEE(buf)

	var sum uint32
	for _, n := range []int{1, 15, 16, 64, 1000, 3003} {
		sum = Update(sum, buf[:n])
		buf = buf[n:]
	}
	if sum != expect {
		t.Errorf("expected %#08x, got %#08x", expect, sum)
	}
}

func TestWriter(t *testing.T) {
	var w Writer
	w.Write([]byte("1234"))
	w.Write([]byte("56789"))
	if w.Sum != 0xcbf43926 {
		t.Errorf("Sum: expected %#08x, got %#08x", 0xcbf43926, w.Sum)
	}
	if w.Size != 9 {
		t.Errorf("Size: expected 9, got %d", w.Size)
	}
	if TableEntry(1) != 0x77073096 {
		t.Errorf("TableEntry(1): expected %#08x, got %#08x", 0x77073096, TableEntry(1))
	}
}

func TestSliceUpdateTails(t *testing.T) {
	buf := make([]byte, 67)
	for i := range buf {
		buf[i] = byte(i*31 + 5)
	}
	for n := 0; n <= len(buf); n++ {
		expect := stdcrc32.ChecksumIEEE(buf[:n])
		if got := sliceUpdate(0, buf[:n]); got != expect {
			t.Errorf("length %d: expected %#08x, got %#08x", n, expect, got)
		}
	}
}
