package arcflate

import (
	"fmt"

	"github.com/chronos-tachyon/enumhelper"
)

// ErrorKind classifies the outcome of a decode or encode operation.
type ErrorKind byte

const (
	// KindOK indicates that the operation succeeded.
	KindOK ErrorKind = iota

	// KindIsNotArchive indicates that the input does not carry the
	// signature or header layout of the expected format.
	KindIsNotArchive

	// KindUnexpectedEnd indicates that the input ended before the logical
	// end of the compressed data.
	KindUnexpectedEnd

	// KindDataError indicates that the input is structurally well-formed
	// but semantically invalid.
	KindDataError

	// KindCRCError indicates a checksum mismatch.
	KindCRCError

	// KindDataAfterEnd indicates that trailing bytes follow the last valid
	// unit of the stream.
	KindDataAfterEnd

	// KindUnsupportedMethod indicates a recognized but unimplemented
	// compression method.
	KindUnsupportedMethod

	// KindUnsupportedBlock indicates a reserved or oversized block.
	KindUnsupportedBlock

	// KindOutOfMemory indicates that an allocation could not be satisfied.
	KindOutOfMemory

	// KindAborted indicates that a Progress sink requested cancellation.
	KindAborted

	// KindWriteError indicates that the output sink failed or accepted
	// fewer bytes than were offered.
	KindWriteError

	// KindReadError indicates that the input source itself failed, as
	// opposed to ending early.
	KindReadError
)

var errorKindData = []enumhelper.EnumData{
	{GoName: "KindOK", Name: "ok"},
	{GoName: "KindIsNotArchive", Name: "is-not-archive", Aliases: []string{"not-archive"}},
	{GoName: "KindUnexpectedEnd", Name: "unexpected-end", Aliases: []string{"truncated"}},
	{GoName: "KindDataError", Name: "data-error"},
	{GoName: "KindCRCError", Name: "crc-error"},
	{GoName: "KindDataAfterEnd", Name: "data-after-end"},
	{GoName: "KindUnsupportedMethod", Name: "unsupported-method"},
	{GoName: "KindUnsupportedBlock", Name: "unsupported-block"},
	{GoName: "KindOutOfMemory", Name: "out-of-memory"},
	{GoName: "KindAborted", Name: "aborted"},
	{GoName: "KindWriteError", Name: "write-error"},
	{GoName: "KindReadError", Name: "read-error"},
}

// IsValid returns true if k is a valid ErrorKind constant.
func (k ErrorKind) IsValid() bool {
	return k <= KindReadError
}

// GoString returns the Go string representation of this ErrorKind constant.
func (k ErrorKind) GoString() string {
	return enumhelper.DereferenceEnumData("ErrorKind", errorKindData, uint(k)).GoName
}

// String returns the string representation of this ErrorKind constant.
func (k ErrorKind) String() string {
	return enumhelper.DereferenceEnumData("ErrorKind", errorKindData, uint(k)).Name
}

// MarshalJSON returns the JSON representation of this ErrorKind constant.
func (k ErrorKind) MarshalJSON() ([]byte, error) {
	return enumhelper.MarshalEnumToJSON("ErrorKind", errorKindData, uint(k))
}

// Parse parses a string representation of an ErrorKind constant.
func (k *ErrorKind) Parse(str string) error {
	value, err := enumhelper.ParseEnum("ErrorKind", errorKindData, str)
	*k = ErrorKind(value)
	return err
}

var _ fmt.GoStringer = ErrorKind(0)
var _ fmt.Stringer = ErrorKind(0)
