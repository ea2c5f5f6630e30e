package arcflate

import (
	"fmt"

	"github.com/chronos-tachyon/enumhelper"
)

// MatchFinder selects the data structure the encoder uses to find LZ77
// matches.  Both finders hash the next 3 bytes and report every match that
// is longer than all previous candidates at the same position.
type MatchFinder byte

const (
	// DefaultMatchFinder lets the compression level decide: the hash chain
	// below level 5, the binary tree from level 5 up.
	DefaultMatchFinder MatchFinder = iota

	// HashChainMatchFinder walks a singly linked chain of earlier positions
	// sharing the same hash.  It is cheaper to update.
	HashChainMatchFinder

	// BinaryTreeMatchFinder keeps earlier positions in a binary search tree
	// ordered by content.  It finds long matches with fewer comparisons.
	BinaryTreeMatchFinder
)

var matchFinderData = []enumhelper.EnumData{
	{GoName: "DefaultMatchFinder", Name: "auto", Aliases: []string{strDefault}},
	{GoName: "HashChainMatchFinder", Name: "hc3", Aliases: []string{"hc"}},
	{GoName: "BinaryTreeMatchFinder", Name: "bt3", Aliases: []string{"bt"}},
}

// IsValid returns true if mf is a valid MatchFinder constant.
func (mf MatchFinder) IsValid() bool {
	return mf <= BinaryTreeMatchFinder
}

// GoString returns the Go string representation of this MatchFinder constant.
func (mf MatchFinder) GoString() string {
	return enumhelper.DereferenceEnumData("MatchFinder", matchFinderData, uint(mf)).GoName
}

// String returns the string representation of this MatchFinder constant.
func (mf MatchFinder) String() string {
	return enumhelper.DereferenceEnumData("MatchFinder", matchFinderData, uint(mf)).Name
}

// MarshalJSON returns the JSON representation of this MatchFinder constant.
func (mf MatchFinder) MarshalJSON() ([]byte, error) {
	return enumhelper.MarshalEnumToJSON("MatchFinder", matchFinderData, uint(mf))
}

// Parse parses a string representation of a MatchFinder constant.
func (mf *MatchFinder) Parse(str string) error {
	value, err := enumhelper.ParseEnum("MatchFinder", matchFinderData, str)
	*mf = MatchFinder(value)
	return err
}

var _ fmt.GoStringer = MatchFinder(0)
var _ fmt.Stringer = MatchFinder(0)
