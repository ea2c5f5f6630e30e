//go:build amd64

package crc32

import (
	stdcrc32 "hash/crc32"

	"golang.org/x/sys/cpu"
)

func hasHardwareCRC() bool {
	return cpu.X86.HasPCLMULQDQ && cpu.X86.HasSSE41
}

// hardwareUpdate leaves short inputs to the tables, where the setup cost of
// the carry-less multiply kernel does not pay off.
func hardwareUpdate(crc uint32, p []byte) uint32 {
	if len(p) < 64 {
		return sliceUpdate(crc, p)
	}
	return stdcrc32.Update(crc, stdcrc32.IEEETable, p)
}
