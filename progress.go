package arcflate

import (
	"context"
)

// Progress receives periodic reports of the bytes consumed and produced by a
// long-running operation.  Returning a non-nil error aborts the operation;
// the aborting error is reported with KindAborted.
type Progress interface {
	ReportProgress(inBytes uint64, outBytes uint64) error
}

// ProgressFunc is an implementation of Progress that calls a function.
type ProgressFunc func(inBytes uint64, outBytes uint64) error

// ReportProgress fulfills Progress.
func (fn ProgressFunc) ReportProgress(inBytes uint64, outBytes uint64) error {
	return fn(inBytes, outBytes)
}

var _ Progress = ProgressFunc(nil)

// ContextProgress returns a Progress that aborts once ctx is done.
func ContextProgress(ctx context.Context) Progress {
	return ProgressFunc(func(uint64, uint64) error {
		return ctx.Err()
	})
}

func reportProgress(p Progress, offset uint64, inBytes uint64, outBytes uint64) error {
	if p == nil {
		return nil
	}
	if err := p.ReportProgress(inBytes, outBytes); err != nil {
		return &Error{Kind: KindAborted, Offset: offset, Err: err}
	}
	return nil
}
