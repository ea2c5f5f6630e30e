package arcflate

import (
	"io"
	"sync"

	"golang.org/x/sync/errgroup"
)

// pump couples a caller-facing io.Pipe with the one goroutine that runs the
// codec on its far side.  Reader reads the decoder's output from pr; Writer
// writes the encoder's input into pw.  Each pipe gets at most one goroutine;
// init arms a fresh pipe.
//
// pump has no lock of its own.  Every method is called with the owner's
// mutex held.
type pump struct {
	pr      *io.PipeReader
	pw      *io.PipeWriter
	group   *errgroup.Group
	started bool
}

func (p *pump) init() {
	p.pr, p.pw = io.Pipe()
	p.group = nil
	p.started = false
}

// start launches fn unless this pipe already has its goroutine.
func (p *pump) start(fn func() error) {
	if p.started {
		return
	}
	p.started = true
	p.group = new(errgroup.Group)
	p.group.Go(fn)
}

// wait blocks until the goroutine has returned and yields its error.  mu is
// released while waiting, so that the goroutine can publish its results.
func (p *pump) wait(mu *sync.Mutex) error {
	if p.group == nil {
		return nil
	}
	group := p.group
	mu.Unlock()
	err := group.Wait()
	mu.Lock()
	return err
}
