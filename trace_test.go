package arcflate

import (
	"bytes"
	"encoding/json"
	"io"
	"testing"

	"github.com/rs/zerolog"
)

func TestCaptureFrames(t *testing.T) {
	var frames []FrameEvent
	input := concatBytes(zstdSkipFrame, zstdHello)
	if _, err := DecodeZstd(bytes.NewReader(input), io.Discard, WithTracers(CaptureFrames(&frames))); err != nil {
		t.Fatalf("DecodeZstd failed: %v", err)
	}
	if len(frames) != 2 {
		t.Fatalf("expected 2 frames, got %d", len(frames))
	}
	if !frames[0].Skippable || frames[0].Size != 16 {
		t.Errorf("frame 0: expected skippable of 16 bytes, got %+v", frames[0])
	}
	if frames[1].Skippable || frames[1].ContentSize != 5 {
		t.Errorf("frame 1: expected data frame of 5 bytes, got %+v", frames[1])
	}
}

func TestLog(t *testing.T) {
	saved := zerolog.GlobalLevel()
	zerolog.SetGlobalLevel(zerolog.TraceLevel)
	defer zerolog.SetGlobalLevel(saved)

	type testRow struct {
		name  string
		level zerolog.Level
		lines int
	}

	var testData = [...]testRow{
		{"trace", zerolog.TraceLevel, 1},
		{"info", zerolog.InfoLevel, 0},
	}

	event := Event{
		Type:        BlockEndEvent,
		InputBytes:  3,
		OutputBytes: 10,
		Format:      RawFormat,
		Block:       &BlockEvent{Type: FixedBlock, IsFinal: true, BitCount: 42},
	}

	for _, row := range testData {
		t.Run(row.name, func(t *testing.T) {
			var buf bytes.Buffer
			Log(zerolog.New(&buf).Level(row.level)).OnEvent(event)

			lines := bytes.Count(buf.Bytes(), []byte("\n"))
			if lines != row.lines {
				t.Fatalf("expected %d log lines, got %d: %q", row.lines, lines, buf.String())
			}
			if lines == 0 {
				return
			}

			var entry struct {
				Type  string `json:"type"`
				In    uint64 `json:"in"`
				Block struct {
					Type  string `json:"type"`
					Final bool   `json:"final"`
					Bits  uint64 `json:"bits"`
				} `json:"block"`
				Header *json.RawMessage `json:"header"`
			}
			if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
				t.Fatalf("json.Unmarshal failed: %v", err)
			}
			if entry.Type != BlockEndEvent.String() || entry.In != 3 {
				t.Errorf("expected type %q at in=3, got %q at in=%d", BlockEndEvent.String(), entry.Type, entry.In)
			}
			if entry.Block.Type != "fixed-huffman" || !entry.Block.Final || entry.Block.Bits != 42 {
				t.Errorf("block: expected fixed-huffman final 42 bits, got %+v", entry.Block)
			}
			if entry.Header != nil {
				t.Errorf("expected no header field, got %s", *entry.Header)
			}
		})
	}
}
