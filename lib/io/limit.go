package iolib

import "io"

// LimitReader creates new [LimitedReader]
func LimitReader(r io.Reader, n uint) io.Reader { return &LimitedReader{r, n, false} }

// ExactReader is [LimitReader] reporting [io.ErrUnexpectedEOF]
// when r ends before n bytes were read.
func ExactReader(r io.Reader, n uint) io.Reader { return &LimitedReader{r, n, true} }

// LimitedReader is uint port of [io.LimitedReader]
type LimitedReader struct {
	R     io.Reader // underlying reader
	N     uint      // max bytes remaining
	Exact bool      // N bytes must be available
}

func (l *LimitedReader) Read(p []byte) (n int, err error) {
	if l.N == 0 {
		return 0, io.EOF
	}
	if uint(len(p)) > l.N {
		p = p[:l.N]
	}
	n, err = l.R.Read(p)
	l.N -= uint(n)
	if err == io.EOF && l.Exact && l.N > 0 {
		err = io.ErrUnexpectedEOF
	}
	return
}
