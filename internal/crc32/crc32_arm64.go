//go:build arm64

package crc32

import (
	stdcrc32 "hash/crc32"

	"golang.org/x/sys/cpu"
)

func hasHardwareCRC() bool {
	return cpu.ARM64.HasCRC32
}

func hardwareUpdate(crc uint32, p []byte) uint32 {
	return stdcrc32.Update(crc, stdcrc32.IEEETable, p)
}
