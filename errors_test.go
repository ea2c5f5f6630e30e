package arcflate

import (
	"errors"
	"fmt"
	"io"
	"testing"
)

func TestKindOf(t *testing.T) {
	type testRow struct {
		name   string
		err    error
		expect ErrorKind
	}

	var testData = [...]testRow{
		{"nil", nil, KindOK},
		{"foreign", io.ErrClosedPipe, KindDataError},
		{"direct", newError(KindCRCError, 10, "bad"), KindCRCError},
		{"wrapped", fmt.Errorf("context: %w", newError(KindUnexpectedEnd, 3, "short")), KindUnexpectedEnd},
		{"outermost-wins", &Error{Kind: KindIsNotArchive, Err: ErrUnexpectedEnd}, KindIsNotArchive},
	}

	for _, row := range testData {
		t.Run(row.name, func(t *testing.T) {
			if actual := KindOf(row.err); actual != row.expect {
				t.Errorf("expected %v, got %v", row.expect, actual)
			}
		})
	}
}

func TestError_Is(t *testing.T) {
	err := newError(KindCRCError, 42, "checksum mismatch")
	if !errors.Is(err, ErrCRC) {
		t.Errorf("expected errors.Is(err, ErrCRC)")
	}
	if errors.Is(err, ErrData) {
		t.Errorf("expected !errors.Is(err, ErrData)")
	}
	if errors.Is(err, newError(KindCRCError, 42, "checksum mismatch")) {
		t.Errorf("expected a non-sentinel target not to match")
	}

	cause := errors.New("disk full")
	werr := wrapError(KindWriteError, 7, cause)
	if !errors.Is(werr, ErrWrite) || !errors.Is(werr, cause) {
		t.Errorf("expected both ErrWrite and cause in chain, got %v", werr)
	}
	if again := wrapError(KindDataError, 9, werr); again != werr {
		t.Errorf("wrapError: expected an existing *Error to pass through, got %v", again)
	}
}

func TestError_Error(t *testing.T) {
	type testRow struct {
		name   string
		err    *Error
		expect string
	}

	var testData = [...]testRow{
		{"kind-only", &Error{Kind: KindAborted, Offset: 5}, "aborted at/near byte offset 5: aborted"},
		{"problem", &Error{Kind: KindDataError, Offset: 1, Problem: "bad block"}, "data-error at/near byte offset 1: bad block"},
		{"cause", &Error{Kind: KindWriteError, Offset: 2, Err: io.ErrShortWrite}, "write-error at/near byte offset 2: short write"},
		{"both", &Error{Kind: KindUnexpectedEnd, Offset: 3, Problem: "truncated", Err: io.EOF}, "unexpected-end at/near byte offset 3: truncated: EOF"},
	}

	for _, row := range testData {
		t.Run(row.name, func(t *testing.T) {
			if actual := row.err.Error(); actual != row.expect {
				t.Errorf("expected %q, got %q", row.expect, actual)
			}
		})
	}
}
