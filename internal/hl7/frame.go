package hl7

import (
	"bytes"
	"errors"
)

const (
	// MLLP frame characters
	StartBlock     = 0x0B
	EndBlock       = 0x1C
	CarriageReturn = 0x0D
)

var endMarker = []byte{EndBlock, CarriageReturn}

// ErrFrameTooLarge is returned by Decoder.Push when an unterminated frame
// exceeds the configured size cap. The connection should be dropped.
var ErrFrameTooLarge = errors.New("hl7: unterminated MLLP frame exceeds size limit")

// ExtractFrames scans buf for complete MLLP frames and returns the enclosed
// messages in order, plus the unconsumed remainder. Bytes before the first
// start block are discarded. A start block without an end marker leaves the
// partial frame in the remainder for the next read.
func ExtractFrames(buf []byte) ([][]byte, []byte) {
	var frames [][]byte

	for {
		start := bytes.IndexByte(buf, StartBlock)
		if start < 0 {
			// No frame can begin here; drop stray bytes.
			return frames, nil
		}
		buf = buf[start:]

		end := bytes.Index(buf, endMarker)
		if end < 0 {
			// Partial frame, wait for more bytes.
			return frames, buf
		}

		msg := make([]byte, end-1)
		copy(msg, buf[1:end])
		frames = append(frames, msg)

		buf = buf[end+len(endMarker):]
	}
}

// Wrap encloses message in an MLLP frame, normalizing internal line breaks
// to carriage returns.
func Wrap(message []byte) []byte {
	message = bytes.ReplaceAll(message, []byte("\r\n"), []byte{CarriageReturn})
	message = bytes.ReplaceAll(message, []byte{'\n'}, []byte{CarriageReturn})

	framed := make([]byte, 0, len(message)+3)
	framed = append(framed, StartBlock)
	framed = append(framed, message...)
	return append(framed, endMarker...)
}

// Decoder accumulates the byte stream of a single connection and yields
// complete MLLP frames as they arrive. Each connection owns exactly one
// Decoder; it is not safe for concurrent use.
type Decoder struct {
	buf      []byte
	maxBytes int
}

// NewDecoder creates a Decoder that tolerates unterminated frames up to
// maxBytes before giving up on the stream.
func NewDecoder(maxBytes int) *Decoder {
	return &Decoder{maxBytes: maxBytes}
}

// Push appends a chunk read from the wire and returns every frame completed
// by it, in arrival order. Returns ErrFrameTooLarge when the buffered
// remainder grows past the size cap with no end marker in sight.
func (d *Decoder) Push(chunk []byte) ([][]byte, error) {
	d.buf = append(d.buf, chunk...)

	frames, rest := ExtractFrames(d.buf)
	d.buf = rest

	if len(d.buf) > d.maxBytes {
		return frames, ErrFrameTooLarge
	}
	return frames, nil
}

// Buffered reports how many bytes are waiting for frame completion.
func (d *Decoder) Buffered() int {
	return len(d.buf)
}
