package arcflate

import (
	"io"
)

const strDefault = "default"

// type eofReader {{{

type eofReader struct{}

func (eofReader) Read([]byte) (int, error) { return 0, io.EOF }

var _ io.Reader = eofReader{}

// }}}
