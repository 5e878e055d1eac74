package xio

import (
	"io"
	"sync/atomic"
)

type CaptureReader struct {
	readBytes uint64
	io.Reader
}

func NewCaptureReader(rd io.Reader) *CaptureReader {
	return &CaptureReader{
		Reader: rd,
	}
}

func (r *CaptureReader) Read(bs []byte) (int, error) {
	n, err := r.Reader.Read(bs)
	atomic.AddUint64(&r.readBytes, uint64(n))
	return n, err
}

func (r *CaptureReader) ReadBytes() uint64 {
	return atomic.LoadUint64(&r.readBytes)
}

type CaptureWriter struct {
	writtenBytes uint64
	io.Writer
}

func NewCaptureWriter(wr io.Writer) *CaptureWriter {
	return &CaptureWriter{
		Writer: wr,
	}
}

func (w *CaptureWriter) Write(bs []byte) (int, error) {
	n, err := w.Writer.Write(bs)
	atomic.AddUint64(&w.writtenBytes, uint64(n))
	return n, err
}

func (w *CaptureWriter) WrittenBytes() uint64 {
	return atomic.LoadUint64(&w.writtenBytes)
}
