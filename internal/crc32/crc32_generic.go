//go:build !amd64 && !arm64

package crc32

func hasHardwareCRC() bool { return false }

func hardwareUpdate(crc uint32, p []byte) uint32 { return sliceUpdate(crc, p) }
