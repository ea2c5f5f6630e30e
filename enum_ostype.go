package arcflate

import (
	"fmt"

	"github.com/chronos-tachyon/enumhelper"
)

// OSType identifies the host that wrote a gzip member, as recorded in the OS
// byte of the member header.  Wire value n decodes to OSType(n+1); wire
// values past the end of the table decode to OSTypeUnknown.
type OSType byte

const (
	OSTypeUnknown OSType = iota
	OSTypeFAT
	OSTypeAmiga
	OSTypeVMS
	OSTypeUnix
	OSTypeVMCMS
	OSTypeAtari
	OSTypeHPFS
	OSTypeMacintosh
	OSTypeZSystem
	OSTypeCPM
	OSTypeTOPS20
	OSTypeNTFS
	OSTypeQDOS
	OSTypeAcorn
	OSTypeVFAT
	OSTypeMVS
	OSTypeBeOS
	OSTypeTandem
	OSTypeOS400
	OSTypeOSX
)

// gzipOSUnknown is the OS byte written by hosts that do not identify
// themselves.
const gzipOSUnknown = 0xff

var osTypeData = []enumhelper.EnumData{
	{GoName: "OSTypeUnknown", Name: "unknown"},
	{GoName: "OSTypeFAT", Name: "FAT"},
	{GoName: "OSTypeAmiga", Name: "AMIGA"},
	{GoName: "OSTypeVMS", Name: "VMS"},
	{GoName: "OSTypeUnix", Name: "Unix"},
	{GoName: "OSTypeVMCMS", Name: "VM/CMS"},
	{GoName: "OSTypeAtari", Name: "Atari"},
	{GoName: "OSTypeHPFS", Name: "HPFS"},
	{GoName: "OSTypeMacintosh", Name: "Macintosh"},
	{GoName: "OSTypeZSystem", Name: "Z-System"},
	{GoName: "OSTypeCPM", Name: "CP/M"},
	{GoName: "OSTypeTOPS20", Name: "TOPS-20"},
	{GoName: "OSTypeNTFS", Name: "NTFS"},
	{GoName: "OSTypeQDOS", Name: "SMS/QDOS"},
	{GoName: "OSTypeAcorn", Name: "Acorn"},
	{GoName: "OSTypeVFAT", Name: "VFAT"},
	{GoName: "OSTypeMVS", Name: "MVS"},
	{GoName: "OSTypeBeOS", Name: "BeOS"},
	{GoName: "OSTypeTandem", Name: "Tandem"},
	{GoName: "OSTypeOS400", Name: "OS/400"},
	{GoName: "OSTypeOSX", Name: "OS/X"},
}

// osTypeFromGzip decodes the OS byte of a gzip member header.
func osTypeFromGzip(b byte) OSType {
	if o := OSType(b) + 1; b < byte(OSTypeOSX) {
		return o
	}
	return OSTypeUnknown
}

// gzipByte encodes o as the OS byte of a gzip member header.
func (o OSType) gzipByte() byte {
	if o == OSTypeUnknown || !o.IsValid() {
		return gzipOSUnknown
	}
	return byte(o - 1)
}

// IsValid returns true if o is a valid OSType constant.
func (o OSType) IsValid() bool {
	return o <= OSTypeOSX
}

// GoString returns the Go string representation of this OSType constant.
func (o OSType) GoString() string {
	return enumhelper.DereferenceEnumData("OSType", osTypeData, uint(o)).GoName
}

// String returns the string representation of this OSType constant.
func (o OSType) String() string {
	return enumhelper.DereferenceEnumData("OSType", osTypeData, uint(o)).Name
}

// MarshalJSON returns the JSON representation of this OSType constant.
func (o OSType) MarshalJSON() ([]byte, error) {
	return enumhelper.MarshalEnumToJSON("OSType", osTypeData, uint(o))
}

// Parse parses a string representation of an OSType constant.
func (o *OSType) Parse(str string) error {
	value, err := enumhelper.ParseEnum("OSType", osTypeData, str)
	*o = OSType(value)
	return err
}

var _ fmt.GoStringer = OSType(0)
var _ fmt.Stringer = OSType(0)
