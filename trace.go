package arcflate

import (
	"github.com/chronos-tachyon/assert"
	"github.com/rs/zerolog"
)

// Tracer is an interface which callers can implement in order to receive
// Events.  Events provide feedback on the progress of the compression or
// decompression operation.
type Tracer interface {
	OnEvent(Event)
}

// Event is a collection of fields that provide feedback on the progress of the
// operation.  InputBytes and OutputBytes are relative to the current stream.
type Event struct {
	Type        EventType
	InputBytes  uint64
	OutputBytes uint64
	NumStreams  uint
	Format      Format
	Header      *Header
	Block       *BlockEvent
	Trees       *TreesEvent
	Footer      *FooterEvent
	Frame       *FrameEvent
}

// BlockEvent is a sub-struct that is only present for BlockFooEvent.
type BlockEvent struct {
	Type     BlockType
	IsFinal  bool
	BitCount uint64
}

// TreesEvent is a sub-struct that is only present for BlockTreesEvent.
type TreesEvent struct {
	CodeCount          uint16
	LiteralLengthCount uint16
	DistanceCount      uint16

	CodeSizes          SizeList
	LiteralLengthSizes SizeList
	DistanceSizes      SizeList
}

// FooterEvent is a sub-struct that is only present for StreamCloseEvent.
type FooterEvent struct {
	Adler32 Checksum32
	CRC32   Checksum32
	Size32  uint32
}

// FrameEvent is a sub-struct that is only present for the Zstandard frame
// events.
type FrameEvent struct {
	Skippable    bool
	Magic        uint32
	Size         uint64
	ContentSize  uint64
	WindowSize   uint64
	DictionaryID uint32
	HasChecksum  bool
}

// TracerFunc is an implementation of Tracer that calls a function.
type TracerFunc func(Event)

// OnEvent fulfills Tracer.
func (tr TracerFunc) OnEvent(event Event) {
	tr(event)
}

var _ Tracer = TracerFunc(nil)

// CaptureHeader returns a Tracer which fills the pointed-to Header on each
// StreamHeaderEvent.  With multi-member gzip input the last member wins.
func CaptureHeader(ptr *Header) Tracer {
	assert.NotNil(&ptr)
	return TracerFunc(func(event Event) {
		if event.Type == StreamHeaderEvent && event.Header != nil {
			*ptr = *event.Header
		}
	})
}

// CaptureFrames returns a Tracer which appends every Zstandard frame,
// skippable or not, to the pointed-to slice.
func CaptureFrames(ptr *[]FrameEvent) Tracer {
	assert.NotNil(&ptr)
	return TracerFunc(func(event Event) {
		if event.Frame != nil {
			*ptr = append(*ptr, *event.Frame)
		}
	})
}

// Log returns a Tracer which logs each Event at Trace level.  Only the
// sub-struct that the event type carries is logged.
func Log(logger zerolog.Logger) Tracer {
	return TracerFunc(func(event Event) {
		ev := logger.Trace()
		if !ev.Enabled() {
			return
		}
		ev = ev.
			Stringer("type", event.Type).
			Stringer("format", event.Format).
			Uint64("in", event.InputBytes).
			Uint64("out", event.OutputBytes)
		if event.NumStreams != 0 {
			ev = ev.Uint("streams", event.NumStreams)
		}
		if h := event.Header; h != nil {
			ev = ev.Dict("header", zerolog.Dict().
				Str("name", h.FileName).
				Stringer("os", h.OSType).
				Stringer("level", h.CompressLevel).
				Int("extra", len(h.ExtraData.Records)))
		}
		if b := event.Block; b != nil {
			ev = ev.Dict("block", zerolog.Dict().
				Stringer("type", b.Type).
				Bool("final", b.IsFinal).
				Uint64("bits", b.BitCount))
		}
		if tr := event.Trees; tr != nil {
			ev = ev.Dict("trees", zerolog.Dict().
				Uint16("codes", tr.CodeCount).
				Uint16("lits", tr.LiteralLengthCount).
				Uint16("dists", tr.DistanceCount))
		}
		if f := event.Footer; f != nil {
			ev = ev.Dict("footer", zerolog.Dict().
				Stringer("crc32", f.CRC32).
				Stringer("adler32", f.Adler32).
				Uint32("size32", f.Size32))
		}
		if fr := event.Frame; fr != nil {
			ev = ev.Dict("frame", zerolog.Dict().
				Bool("skippable", fr.Skippable).
				Uint64("size", fr.Size).
				Uint64("content", fr.ContentSize).
				Uint64("window", fr.WindowSize))
		}
		ev.Msg("OnEvent")
	})
}

func sendEvent(tracers []Tracer, event Event) {
	for _, tr := range tracers {
		tr.OnEvent(event)
	}
}
