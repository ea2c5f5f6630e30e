package arcflate

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// CompressLevel selects how much effort the encoder spends searching for
// matches.  Levels 1 to 4 use the greedy parser with the hash chain match
// finder; 5 and above use the optimal parser with the binary tree.
type CompressLevel int8

const (
	// DefaultCompression selects NormalCompression.
	DefaultCompression CompressLevel = -1

	// NoCompression emits stored blocks only.
	NoCompression CompressLevel = 0

	// FastestCompression is a single greedy pass with short match chains.
	FastestCompression CompressLevel = 1

	// NormalCompression is the first level that uses the optimal parser
	// and the binary tree match finder.
	NormalCompression CompressLevel = 5

	// BestCompression runs the most optimal-parse passes.
	BestCompression CompressLevel = 9
)

// clevelNames are the level names of the 7-Zip UI, which Parse also
// accepts.
var clevelNames = map[string]CompressLevel{
	"none":    NoCompression,
	"store":   NoCompression,
	"fastest": 1,
	"fast":    3,
	"normal":  NormalCompression,
	"maximum": 7,
	"ultra":   BestCompression,
}

// IsValid returns true if clevel is DefaultCompression or 0 through 9.
func (clevel CompressLevel) IsValid() bool {
	return clevel >= DefaultCompression && clevel <= BestCompression
}

// GoString returns the Go string representation of this CompressLevel.
func (clevel CompressLevel) GoString() string {
	if clevel == DefaultCompression {
		return "DefaultCompression"
	}
	return "CompressLevel(" + strconv.Itoa(int(clevel)) + ")"
}

// String returns "default", "none", or the decimal level.
func (clevel CompressLevel) String() string {
	switch {
	case clevel < 0:
		return strDefault
	case clevel == NoCompression:
		return "none"
	default:
		return strconv.Itoa(int(clevel))
	}
}

// MarshalJSON renders the level as a JSON number; DefaultCompression is -1.
func (clevel CompressLevel) MarshalJSON() ([]byte, error) {
	return json.Marshal(int(clevel))
}

// Parse accepts "default", a 7-Zip level name, or a decimal from 0 to 9.
// On error the level is reset to DefaultCompression.
func (clevel *CompressLevel) Parse(str string) error {
	*clevel = DefaultCompression
	if strings.EqualFold(str, strDefault) {
		return nil
	}
	if named, found := clevelNames[strings.ToLower(str)]; found {
		*clevel = named
		return nil
	}
	u, err := parseBounded(str, uint64(NoCompression), uint64(BestCompression))
	if err == nil {
		*clevel = CompressLevel(u)
	}
	return err
}

// WindowBits is the base-2 logarithm of the LZ77 sliding window size.
type WindowBits byte

const (
	// DefaultWindowBits selects the full window of the format in use: 15
	// for DEFLATE, 16 for Deflate64.
	DefaultWindowBits WindowBits = 0

	// MinWindowBits is the smallest window, 256 bytes.
	MinWindowBits WindowBits = 8

	// MaxWindowBits is the largest window, 64 KiB.  Values above 15 are
	// only honored by the Deflate64 encoder.
	MaxWindowBits WindowBits = 16

	// MaxDeflateWindowBits is the largest WindowBits of plain DEFLATE and
	// the largest value a zlib header can carry.
	MaxDeflateWindowBits WindowBits = 15
)

// IsValid returns true if wbits is DefaultWindowBits or 8 through 16.
func (wbits WindowBits) IsValid() bool {
	return wbits == DefaultWindowBits || (wbits >= MinWindowBits && wbits <= MaxWindowBits)
}

// GoString returns the Go string representation of this WindowBits.
func (wbits WindowBits) GoString() string {
	if wbits < MinWindowBits {
		return "DefaultWindowBits"
	}
	return "WindowBits(" + strconv.Itoa(int(wbits)) + ")"
}

// String returns "default" or the decimal value.
func (wbits WindowBits) String() string {
	if wbits < MinWindowBits {
		return strDefault
	}
	return strconv.Itoa(int(wbits))
}

// MarshalJSON renders the value as a JSON number; DefaultWindowBits is 0.
func (wbits WindowBits) MarshalJSON() ([]byte, error) {
	return json.Marshal(uint(wbits))
}

// Parse accepts "default" or a decimal from 8 to 16.  On error the value is
// reset to DefaultWindowBits.
func (wbits *WindowBits) Parse(str string) error {
	*wbits = DefaultWindowBits
	if strings.EqualFold(str, strDefault) {
		return nil
	}
	u, err := parseBounded(str, uint64(MinWindowBits), uint64(MaxWindowBits))
	if err == nil {
		*wbits = WindowBits(u)
	}
	return err
}

func parseBounded(str string, min, max uint64) (uint64, error) {
	u64, err := strconv.ParseUint(str, 10, 8)
	if err != nil {
		return 0, err
	}
	if u64 < min || u64 > max {
		return 0, fmt.Errorf("value %d is outside the range %d to %d", u64, min, max)
	}
	return u64, nil
}

var (
	_ fmt.GoStringer = CompressLevel(0)
	_ fmt.Stringer   = CompressLevel(0)
	_ fmt.GoStringer = WindowBits(0)
	_ fmt.Stringer   = WindowBits(0)
)
