// Package framing implements the Content-Length header framing used to
// exchange JSON-RPC messages with a language server over a byte stream.
//
// Each frame on the wire is a header block terminated by an empty line,
// followed by exactly Content-Length bytes of JSON body:
//
//	Content-Length: 52\r\n
//	\r\n
//	{"jsonrpc":"2.0","method":"initialized","params":{}}
//
// The decoder is incremental: bytes may arrive split at arbitrary positions
// and a frame is only produced once it is complete.
package framing

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const (
	_headerContentLength = "content-length"

	// _maxHeaderBytes bounds the header block of a single frame. A peer that
	// has sent this much without terminating its headers is not speaking LSP.
	_maxHeaderBytes = 4 << 10

	// _maxBodyBytes bounds the declared body length of a single frame.
	_maxBodyBytes = 16 << 20
)

// ErrIncompleteFrame reports that the buffered bytes do not yet contain a
// complete frame. It is a buffering state, not a protocol violation: feed
// more bytes and retry.
var ErrIncompleteFrame = errors.New("incomplete frame")

// MalformedFrameError reports an unrecoverable framing violation. A stream
// that produced one cannot be resynchronized and must be torn down.
type MalformedFrameError struct {
	Reason string
}

// Error is an implementation of the error interface.
func (e *MalformedFrameError) Error() string {
	return fmt.Sprintf("malformed frame: %s", e.Reason)
}

// Encode wraps a serialized JSON-RPC body in a Content-Length header. The
// declared length is the exact byte count of the body, not a rune count.
func Encode(body []byte) []byte {
	header := fmt.Sprintf("Content-Length: %d\r\n\r\n", len(body))
	frame := make([]byte, 0, len(header)+len(body))
	frame = append(frame, header...)
	return append(frame, body...)
}

// Write encodes body as a single frame and writes it to w in one call.
func Write(w io.Writer, body []byte) error {
	_, err := w.Write(Encode(body))
	return err
}

// Decoder accumulates stream bytes and yields complete frame bodies.
// The zero value is ready to use. Not safe for concurrent use.
type Decoder struct {
	buf []byte
}

// Feed appends raw stream bytes to the decode buffer.
func (d *Decoder) Feed(p []byte) {
	d.buf = append(d.buf, p...)
}

// Buffered returns the number of bytes awaiting decode.
func (d *Decoder) Buffered() int {
	return len(d.buf)
}

// Next consumes exactly one frame from the buffer and returns its body.
// It returns ErrIncompleteFrame while the buffer holds only a partial frame,
// and a *MalformedFrameError if the header block is unparsable, oversized,
// or declares an invalid length. On ErrIncompleteFrame the buffer is left
// untouched so the caller can Feed more bytes and retry.
func (d *Decoder) Next() ([]byte, error) {
	headerEnd, bodyStart, ok := splitHeaderBlock(d.buf)
	if !ok {
		if len(d.buf) > _maxHeaderBytes {
			return nil, &MalformedFrameError{Reason: "header block exceeds limit without terminator"}
		}
		return nil, ErrIncompleteFrame
	}

	length, err := parseContentLength(d.buf[:headerEnd])
	if err != nil {
		return nil, err
	}

	if len(d.buf)-bodyStart < length {
		return nil, ErrIncompleteFrame
	}

	body := make([]byte, length)
	copy(body, d.buf[bodyStart:bodyStart+length])
	d.buf = d.buf[:copy(d.buf, d.buf[bodyStart+length:])]
	return body, nil
}

// splitHeaderBlock locates the end of the header block. It accepts the
// canonical \r\n\r\n terminator and the bare \n\n emitted by lenient peers.
func splitHeaderBlock(buf []byte) (headerEnd, bodyStart int, ok bool) {
	crlf := bytes.Index(buf, []byte("\r\n\r\n"))
	lf := bytes.Index(buf, []byte("\n\n"))

	switch {
	case crlf >= 0 && (lf < 0 || crlf <= lf):
		return crlf, crlf + 4, true
	case lf >= 0:
		return lf, lf + 2, true
	default:
		return 0, 0, false
	}
}

func parseContentLength(block []byte) (int, error) {
	length, declared := 0, false
	for _, line := range strings.Split(string(block), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		name, value, found := strings.Cut(line, ":")
		if !found {
			return 0, &MalformedFrameError{Reason: fmt.Sprintf("header line %q has no separator", line)}
		}
		if strings.ToLower(strings.TrimSpace(name)) != _headerContentLength {
			// Unknown headers such as Content-Type are ignored.
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return 0, &MalformedFrameError{Reason: fmt.Sprintf("unparsable Content-Length %q", strings.TrimSpace(value))}
		}
		length, declared = n, true
	}

	switch {
	case !declared:
		return 0, &MalformedFrameError{Reason: "missing Content-Length header"}
	case length < 0:
		return 0, &MalformedFrameError{Reason: fmt.Sprintf("negative Content-Length %d", length)}
	case length > _maxBodyBytes:
		return 0, &MalformedFrameError{Reason: fmt.Sprintf("Content-Length %d exceeds limit", length)}
	}
	return length, nil
}
