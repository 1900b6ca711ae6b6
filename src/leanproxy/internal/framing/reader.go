package framing

import (
	"errors"
	"io"
	"sync"
)

const _readChunkBytes = 4 << 10

// Reader adapts a byte stream (a language server's stdout) into a blocking
// sequence of frame bodies. It is safe for concurrent use; each complete
// frame is delivered to exactly one caller.
type Reader struct {
	mu  sync.Mutex
	src io.Reader
	dec Decoder
}

// NewReader returns a Reader decoding frames from src.
func NewReader(src io.Reader) *Reader {
	return &Reader{src: src}
}

// ReadFrame blocks until one complete frame has arrived and returns its body.
// io.EOF reports a cleanly exhausted stream on a frame boundary;
// io.ErrUnexpectedEOF reports a stream that ended mid-frame. Framing
// violations surface as *MalformedFrameError.
func (r *Reader) ReadFrame() ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	chunk := make([]byte, _readChunkBytes)
	for {
		body, err := r.dec.Next()
		if err == nil {
			return body, nil
		}
		if !errors.Is(err, ErrIncompleteFrame) {
			return nil, err
		}

		n, readErr := r.src.Read(chunk)
		if n > 0 {
			r.dec.Feed(chunk[:n])
		}
		if readErr != nil {
			// Drain anything completed by the final chunk before
			// reporting the stream end.
			if body, err := r.dec.Next(); err == nil {
				return body, nil
			} else if !errors.Is(err, ErrIncompleteFrame) {
				return nil, err
			}
			if readErr == io.EOF && r.dec.Buffered() > 0 {
				return nil, io.ErrUnexpectedEOF
			}
			return nil, readErr
		}
	}
}
