package main

import (
	"testing"
	"time"

	"github.com/chronos-tachyon/arcflate"
)

func TestEnumFlag(t *testing.T) {
	type testRow struct {
		name   string
		input  string
		expect arcflate.OSType
		ok     bool
	}

	var testData = [...]testRow{
		{"canonical", "NTFS", arcflate.OSTypeNTFS, true},
		{"case-folded", "unix", arcflate.OSTypeUnix, true},
		{"go-name", "OSTypeOSX", arcflate.OSTypeOSX, true},
		{"slash", "cp/m", arcflate.OSTypeCPM, true},
		{"bogus", "plan9", arcflate.OSTypeUnknown, false},
	}

	for _, row := range testData {
		t.Run(row.name, func(t *testing.T) {
			var flag OSTypeFlag
			err := flag.Set(row.input, nil)
			if row.ok && err != nil {
				t.Fatalf("Set(%q) failed: %v", row.input, err)
			}
			if !row.ok {
				if err == nil {
					t.Errorf("Set(%q): expected error, got nil", row.input)
				}
				return
			}
			if flag.Value != row.expect {
				t.Errorf("Set(%q): expected %v, got %v", row.input, row.expect, flag.Value)
			}
			if str := flag.String(); str != row.expect.String() {
				t.Errorf("String: expected %q, got %q", row.expect.String(), str)
			}
		})
	}

	clevel := CompressLevelFlag{Value: arcflate.DefaultCompression}
	if err := clevel.Set("7", nil); err != nil {
		t.Fatalf("CompressLevelFlag.Set failed: %v", err)
	}
	if clevel.Value != 7 {
		t.Errorf("CompressLevelFlag: expected 7, got %v", clevel.Value)
	}
}

func TestTimeFlag(t *testing.T) {
	var flag TimeFlag
	if str := flag.String(); str != "" {
		t.Errorf("zero String: expected empty, got %q", str)
	}
	if err := flag.Set("2021-09-01T12:00:00Z", nil); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	expect := time.Date(2021, time.September, 1, 12, 0, 0, 0, time.UTC)
	if !flag.Value.Equal(expect) {
		t.Errorf("expected %v, got %v", expect, flag.Value)
	}
	if err := flag.Set("yesterday", nil); err == nil {
		t.Errorf("Set(yesterday): expected error, got nil")
	}
}
