package arcflate

import (
	"fmt"

	"github.com/chronos-tachyon/enumhelper"
)

// BlockType is the 2-bit BTYPE field of a DEFLATE block header.  The
// constant values are the wire values.
type BlockType byte

const (
	StoredBlock BlockType = iota
	FixedBlock
	DynamicBlock

	// ReservedBlock is never valid; decoders reject it as a data error.
	ReservedBlock
)

var blockTypeData = []enumhelper.EnumData{
	{GoName: "StoredBlock", Name: "stored"},
	{GoName: "FixedBlock", Name: "fixed-huffman", Aliases: []string{"fixed", "static"}},
	{GoName: "DynamicBlock", Name: "dynamic-huffman", Aliases: []string{"dynamic"}},
	{GoName: "ReservedBlock", Name: "reserved"},
}

// GoString returns the Go string representation of this BlockType constant.
func (b BlockType) GoString() string {
	return enumhelper.DereferenceEnumData("BlockType", blockTypeData, uint(b)).GoName
}

// String returns the string representation of this BlockType constant.
func (b BlockType) String() string {
	return enumhelper.DereferenceEnumData("BlockType", blockTypeData, uint(b)).Name
}

// MarshalJSON returns the JSON representation of this BlockType constant.
func (b BlockType) MarshalJSON() ([]byte, error) {
	return enumhelper.MarshalEnumToJSON("BlockType", blockTypeData, uint(b))
}

var _ fmt.GoStringer = BlockType(0)
var _ fmt.Stringer = BlockType(0)
