package arcflate

import (
	"fmt"

	"github.com/chronos-tachyon/enumhelper"
)

// Method identifies a codec variant.
type Method byte

const (
	// DeflateMethod is DEFLATE (RFC 1951) with a 32 KiB window.
	DeflateMethod Method = iota

	// Deflate64Method is the Deflate64 extension with a 64 KiB window,
	// 32 distance codes and a 16-bit extra-bit field for length code 285.
	Deflate64Method

	// NSISMethod is the DEFLATE variant written by NSIS installers, in
	// which stored blocks have no complemented length.
	NSISMethod

	// ZstdMethod is Zstandard (RFC 8878).
	ZstdMethod

	// DefaultMethod requests that the default Method be used, which is
	// currently DeflateMethod.
	DefaultMethod = DeflateMethod
)

var methodData = []enumhelper.EnumData{
	{GoName: "DeflateMethod", Name: "deflate"},
	{GoName: "Deflate64Method", Name: "deflate64"},
	{GoName: "NSISMethod", Name: "nsis"},
	{GoName: "ZstdMethod", Name: "zstd"},
}

// IsValid returns true if m is a valid Method constant.
func (m Method) IsValid() bool {
	return m <= ZstdMethod
}

// GoString returns the Go string representation of this Method constant.
func (m Method) GoString() string {
	return enumhelper.DereferenceEnumData("Method", methodData, uint(m)).GoName
}

// String returns the string representation of this Method constant.
func (m Method) String() string {
	return enumhelper.DereferenceEnumData("Method", methodData, uint(m)).Name
}

// MarshalJSON returns the JSON representation of this Method constant.
func (m Method) MarshalJSON() ([]byte, error) {
	return enumhelper.MarshalEnumToJSON("Method", methodData, uint(m))
}

var _ fmt.GoStringer = Method(0)
var _ fmt.Stringer = Method(0)
