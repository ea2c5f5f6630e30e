package arcflate

import (
	"fmt"

	"github.com/chronos-tachyon/enumhelper"
)

// ProbeResult is the answer of a signature probe such as IsArcGz.
type ProbeResult byte

const (
	// ProbeNo indicates that the bytes cannot start a stream of the format.
	ProbeNo ProbeResult = iota

	// ProbeYes indicates that the bytes look like the start of a stream of
	// the format.  This is a heuristic, not a validation.
	ProbeYes

	// ProbeNeedMore indicates that the bytes seen so far are consistent with
	// the format but too short to decide.
	ProbeNeedMore
)

var probeResultData = []enumhelper.EnumData{
	{GoName: "ProbeNo", Name: "no"},
	{GoName: "ProbeYes", Name: "yes"},
	{GoName: "ProbeNeedMore", Name: "need-more"},
}

// IsValid returns true if pr is a valid ProbeResult constant.
func (pr ProbeResult) IsValid() bool {
	return pr <= ProbeNeedMore
}

// GoString returns the Go string representation of this ProbeResult constant.
func (pr ProbeResult) GoString() string {
	return enumhelper.DereferenceEnumData("ProbeResult", probeResultData, uint(pr)).GoName
}

// String returns the string representation of this ProbeResult constant.
func (pr ProbeResult) String() string {
	return enumhelper.DereferenceEnumData("ProbeResult", probeResultData, uint(pr)).Name
}

// MarshalJSON returns the JSON representation of this ProbeResult constant.
func (pr ProbeResult) MarshalJSON() ([]byte, error) {
	return enumhelper.MarshalEnumToJSON("ProbeResult", probeResultData, uint(pr))
}

var _ fmt.GoStringer = ProbeResult(0)
var _ fmt.Stringer = ProbeResult(0)
