package arcflate

import (
	"encoding/binary"
	"fmt"
	"math"
	"runtime"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
)

// Header holds the fields of a gzip member header.  For zlib streams only
// WindowBits and CompressLevel are meaningful.
//
// When reading a gzip member, CompressLevel is derived from the extra-flags
// byte (BestCompression for 2, FastestCompression for 4) and Text and
// HeaderCRC report the FTEXT and FHCRC flags.  The header CRC-16 itself is
// never checked, because old versions of gzip gave that field a different
// meaning.
//
// When writing, only FileName, LastModified, OSType and ExtraData are
// stored.  OSTypeUnknown stands for the host's own type.
type Header struct {
	FileName      string
	Comment       string
	LastModified  time.Time
	OSType        OSType
	ExtraData     ExtraData
	WindowBits    WindowBits
	CompressLevel CompressLevel
	Text          bool
	HeaderCRC     bool
}

// ExtraData is the FEXTRA area of a gzip member header: a sequence of
// subfields, each with a two-byte ID and up to 65535 bytes of payload.
type ExtraData struct {
	Records []ExtraDataRecord
}

// ExtraDataRecord is one FEXTRA subfield.
type ExtraDataRecord struct {
	ID    [2]byte
	Bytes []byte
}

// parseExtraData splits raw into subfields.  A subfield whose length runs
// past the end of raw is cut short; fewer than 4 leftover bytes are dropped.
func parseExtraData(raw []byte) ExtraData {
	var xd ExtraData
	for len(raw) >= 4 {
		rec := ExtraDataRecord{ID: [2]byte{raw[0], raw[1]}}
		n := int(binary.LittleEndian.Uint16(raw[2:4]))
		raw = raw[4:]
		if n > len(raw) {
			n = len(raw)
		}
		rec.Bytes = raw[:n:n]
		raw = raw[n:]
		xd.Records = append(xd.Records, rec)
	}
	return xd
}

// encodedLen returns the size of the FEXTRA area, excluding XLEN.
func (xd ExtraData) encodedLen() int {
	var n int
	for _, rec := range xd.Records {
		n += 4 + len(rec.Bytes)
	}
	return n
}

func (xd ExtraData) appendTo(buf []byte) []byte {
	for _, rec := range xd.Records {
		buf = append(buf, rec.ID[0], rec.ID[1])
		buf = binary.LittleEndian.AppendUint16(buf, uint16(len(rec.Bytes)))
		buf = append(buf, rec.Bytes...)
	}
	return buf
}

// defaultOSType is what a written member claims when the Header leaves
// OSType unset.
func defaultOSType() OSType {
	if runtime.GOOS == "windows" {
		return OSTypeFAT
	}
	return OSTypeUnix
}

// check reports every field of h that the gzip writer cannot store.  A
// single problem is returned as is; several are collected in a
// *multierror.Error.
func (h Header) check() error {
	var errs *multierror.Error
	fail := func(format string, v ...interface{}) {
		errs = multierror.Append(errs, fmt.Errorf("Header."+format, v...))
	}

	if len(h.FileName) >= gzipNameMaxLen {
		fail("FileName is longer than %d bytes", gzipNameMaxLen)
	}
	for _, ch := range []byte{0x00, '/', '\\'} {
		if strings.IndexByte(h.FileName, ch) >= 0 {
			fail("FileName contains embedded %q byte", ch)
		}
	}
	if h.Comment != "" {
		fail("Comment is not written by this Writer")
	}
	for _, rec := range h.ExtraData.Records {
		if len(rec.Bytes) > math.MaxUint16 {
			fail("ExtraData record %q is longer than %d bytes", rec.ID[:], math.MaxUint16)
		}
	}
	if h.ExtraData.encodedLen() > math.MaxUint16 {
		fail("ExtraData is longer than %d bytes", math.MaxUint16)
	}
	if !h.LastModified.IsZero() {
		if s64 := h.LastModified.Unix(); s64 < 0 || s64 >= math.MaxUint32 {
			fail("LastModified is out of range for unsigned 32-bit time_t")
		}
	}
	if !h.OSType.IsValid() {
		fail("OSType is not valid")
	}

	switch {
	case errs == nil:
		return nil
	case len(errs.Errors) == 1:
		return errs.Errors[0]
	default:
		return errs
	}
}

// readGzip reads one member header through d, which must be positioned on a
// byte boundary.  Bad identification bytes, a reserved flag bit, or an
// overlong name or comment is a data error; a method other than DEFLATE is
// KindUnsupportedMethod; running out of input is KindUnexpectedEnd.
func (h *Header) readGzip(d *Decoder) error {
	*h = Header{}

	var base [gzipBaseHeaderSize]byte
	if err := readGzipBytes(d, base[:]); err != nil {
		return err
	}
	if base[0] != gzipID1 || base[1] != gzipID2 {
		return newError(KindDataError, d.StreamSize(), "invalid gzip header identification bytes")
	}
	if base[2] != gzipMethod {
		return newError(KindUnsupportedMethod, d.StreamSize(), "invalid gzip compression method %#02x -- expected 0x08 (DEFLATE)", base[2])
	}

	flags := base[3]
	if reserved := flags & gzipFlagReserved; reserved != 0 {
		return newError(KindDataError, d.StreamSize(), "invalid gzip flag bits %#02x", reserved)
	}
	h.Text = (flags & gzipFlagText) != 0
	h.HeaderCRC = (flags & gzipFlagCRC) != 0
	if mtime := binary.LittleEndian.Uint32(base[4:8]); mtime != 0 {
		h.LastModified = time.Unix(int64(mtime), 0)
	}
	switch base[8] {
	case gzipExtraMaximum:
		h.CompressLevel = BestCompression
	case gzipExtraFastest:
		h.CompressLevel = FastestCompression
	default:
		h.CompressLevel = DefaultCompression
	}
	h.OSType = osTypeFromGzip(base[9])

	if (flags & gzipFlagExtra) != 0 {
		var xlen [2]byte
		if err := readGzipBytes(d, xlen[:]); err != nil {
			return err
		}
		raw := make([]byte, binary.LittleEndian.Uint16(xlen[:]))
		if err := readGzipBytes(d, raw); err != nil {
			return err
		}
		h.ExtraData = parseExtraData(raw)
	}

	var err error
	if (flags & gzipFlagName) != 0 {
		if h.FileName, err = readGzipString(d, gzipNameMaxLen, "file name"); err != nil {
			return err
		}
	}
	if (flags & gzipFlagComment) != 0 {
		if h.Comment, err = readGzipString(d, gzipCommentMaxLen, "comment"); err != nil {
			return err
		}
	}
	if h.HeaderCRC {
		var crc16 [2]byte
		return readGzipBytes(d, crc16[:])
	}
	return nil
}

// appendGzip appends the member header for h to buf.  The extra-flags byte
// records whether clevel asked for the strongest settings.
func (h *Header) appendGzip(buf []byte, clevel CompressLevel) []byte {
	var flags byte
	name := strings.ReplaceAll(h.FileName, "\x00", "")
	if name != "" {
		flags |= gzipFlagName
	}
	if len(h.ExtraData.Records) != 0 {
		flags |= gzipFlagExtra
	}

	var mtime uint32
	if !h.LastModified.IsZero() {
		mtime = uint32(h.LastModified.Unix())
	}

	xfl := byte(gzipExtraFastest)
	if clevel >= 7 {
		xfl = gzipExtraMaximum
	}

	osType := h.OSType
	if osType == OSTypeUnknown {
		osType = defaultOSType()
	}

	buf = append(buf, gzipID1, gzipID2, gzipMethod, flags)
	buf = binary.LittleEndian.AppendUint32(buf, mtime)
	buf = append(buf, xfl, osType.gzipByte())
	if (flags & gzipFlagExtra) != 0 {
		buf = binary.LittleEndian.AppendUint16(buf, uint16(h.ExtraData.encodedLen()))
		buf = h.ExtraData.appendTo(buf)
	}
	if name != "" {
		buf = append(buf, name...)
		buf = append(buf, 0)
	}
	return buf
}

// readGzipFooter reads the CRC-32 and truncated size trailer of a member.
func readGzipFooter(d *Decoder) (FooterEvent, error) {
	var buf [gzipFooterSize]byte
	if err := readGzipBytes(d, buf[:]); err != nil {
		return FooterEvent{}, err
	}
	return FooterEvent{
		CRC32:  Checksum32(binary.LittleEndian.Uint32(buf[0:4])),
		Size32: binary.LittleEndian.Uint32(buf[4:8]),
	}, nil
}

func appendGzipFooter(buf []byte, footer FooterEvent) []byte {
	buf = binary.LittleEndian.AppendUint32(buf, uint32(footer.CRC32))
	return binary.LittleEndian.AppendUint32(buf, footer.Size32)
}

func readGzipBytes(d *Decoder, p []byte) error {
	for i := range p {
		p[i] = d.ReadAlignedByte()
	}
	if d.InputEOFError() {
		return newError(KindUnexpectedEnd, d.StreamSize(), "unexpected end of gzip header or footer")
	}
	return nil
}

// readGzipString reads a NUL-terminated string of fewer than limit bytes.
func readGzipString(d *Decoder, limit int, what string) (string, error) {
	sb := stringsBuilders.take()
	defer stringsBuilders.give(sb)

	for i := 0; i < limit; i++ {
		b := d.ReadAlignedByte()
		if d.InputEOFError() {
			return "", newError(KindUnexpectedEnd, d.StreamSize(), "unexpected end of gzip %s", what)
		}
		if b == 0 {
			return sb.String(), nil
		}
		sb.WriteByte(b)
	}
	return "", newError(KindDataError, d.StreamSize(), "gzip %s longer than %d bytes", what, limit)
}

// Checksum32 is a CRC-32 or Adler-32 value.  It prints in hexadecimal.
type Checksum32 uint32

// String returns the string representation of this Checksum32 value.
func (csum Checksum32) String() string {
	return fmt.Sprintf("%#08x", uint32(csum))
}

// MarshalJSON renders the checksum as a hexadecimal JSON string.
func (csum Checksum32) MarshalJSON() ([]byte, error) {
	return []byte(`"` + csum.String() + `"`), nil
}

var _ fmt.Stringer = Checksum32(0)
