// Package wire turns a byte stream into discrete, length-prefixed messages and
// back. It has no knowledge of the game.
//
// Every frame is a 4-byte big-endian payload length followed by the payload.
// A frame, prefix included, may not exceed MaxFrameSize.
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

const (
	PrefixSize   = 4
	MaxFrameSize = 1 << 20
)

var (
	ErrFrameTooLarge    = errors.New("wire: frame exceeds maximum size")
	ErrMalformedPayload = errors.New("wire: malformed payload")
	ErrClosed           = errors.New("wire: messenger closed")
	ErrQueueFull        = errors.New("wire: outbound queue full")
)

// Codec serialises one message payload.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// CBOR is the default payload codec. Encoding is deterministic, and decoding
// rejects trailing bytes inside a payload.
var CBOR Codec = newCBORCodec()

type cborCodec struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

func newCBORCodec() cborCodec {
	enc, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	dec, err := cbor.DecOptions{MaxArrayElements: 4096, MaxMapPairs: 4096}.DecMode()
	if err != nil {
		panic(err)
	}
	return cborCodec{enc: enc, dec: dec}
}

func (c cborCodec) Marshal(v any) ([]byte, error)      { return c.enc.Marshal(v) }
func (c cborCodec) Unmarshal(data []byte, v any) error { return c.dec.Unmarshal(data, v) }

// AppendFrame appends the length prefix and payload to dst.
func AppendFrame(dst, payload []byte) ([]byte, error) {
	if PrefixSize+len(payload) > MaxFrameSize {
		return dst, fmt.Errorf("%w: %d payload bytes", ErrFrameTooLarge, len(payload))
	}
	dst = binary.BigEndian.AppendUint32(dst, uint32(len(payload)))
	return append(dst, payload...), nil
}

// Encode serialises msg with c and frames it.
func Encode(c Codec, msg any) ([]byte, error) {
	payload, err := c.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("wire: marshal: %w", err)
	}
	return AppendFrame(nil, payload)
}

// Decoder accumulates stream bytes and yields complete messages. It is not
// safe for concurrent use.
type Decoder[T any] struct {
	codec Codec
	buf   []byte
}

// NewDecoder returns a Decoder that unmarshals payloads with c.
func NewDecoder[T any](c Codec) *Decoder[T] {
	return &Decoder[T]{codec: c}
}

// Feed appends p to the buffer and extracts every complete frame. Bytes of an
// incomplete trailing frame stay buffered for the next call. On error, the
// messages decoded before the failing frame are still returned.
func (d *Decoder[T]) Feed(p []byte) ([]T, error) {
	d.buf = append(d.buf, p...)
	var out []T
	for {
		if len(d.buf) < PrefixSize {
			return out, nil
		}
		size := binary.BigEndian.Uint32(d.buf)
		if uint64(size)+PrefixSize > MaxFrameSize {
			return out, fmt.Errorf("%w: declared %d payload bytes", ErrFrameTooLarge, size)
		}
		total := PrefixSize + int(size)
		if len(d.buf) < total {
			return out, nil
		}
		var msg T
		if err := d.codec.Unmarshal(d.buf[PrefixSize:total], &msg); err != nil {
			return out, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
		}
		out = append(out, msg)
		d.buf = append(d.buf[:0], d.buf[total:]...)
	}
}

// Buffered returns the number of bytes waiting for the rest of a frame.
func (d *Decoder[T]) Buffered() int { return len(d.buf) }
