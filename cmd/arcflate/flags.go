package main

import (
	"time"

	"github.com/chronos-tachyon/arcflate"
	getopt "github.com/pborman/getopt/v2"
)

// enumPtr is the method set shared by pointers to the arcflate enums.
type enumPtr[T any] interface {
	*T
	Parse(string) error
	String() string
}

// EnumFlag implements getopt.Value for any arcflate enum type T.
type EnumFlag[T any, P enumPtr[T]] struct {
	Value T
}

// Set fulfills getopt.Value.
func (flag *EnumFlag[T, P]) Set(str string, opt getopt.Option) error {
	return P(&flag.Value).Parse(str)
}

// String fulfills getopt.Value.
func (flag *EnumFlag[T, P]) String() string {
	return P(&flag.Value).String()
}

type (
	FormatFlag        = EnumFlag[arcflate.Format, *arcflate.Format]
	CompressLevelFlag = EnumFlag[arcflate.CompressLevel, *arcflate.CompressLevel]
	WindowBitsFlag    = EnumFlag[arcflate.WindowBits, *arcflate.WindowBits]
	MatchFinderFlag   = EnumFlag[arcflate.MatchFinder, *arcflate.MatchFinder]
	OSTypeFlag        = EnumFlag[arcflate.OSType, *arcflate.OSType]
)

var _ getopt.Value = (*FormatFlag)(nil)

// TimeFlag implements getopt.Value for time.Time.  Values are RFC 3339.
type TimeFlag struct {
	Value time.Time
}

// Set fulfills getopt.Value.
func (flag *TimeFlag) Set(str string, opt getopt.Option) error {
	t, err := time.Parse(time.RFC3339, str)
	if err != nil {
		return err
	}
	flag.Value = t
	return nil
}

// String fulfills getopt.Value.
func (flag *TimeFlag) String() string {
	if flag.Value.IsZero() {
		return ""
	}
	return flag.Value.Format(time.RFC3339)
}

var _ getopt.Value = (*TimeFlag)(nil)
