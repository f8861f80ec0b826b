// Copyright 2026 The Ghostly Authors
// SPDX-License-Identifier: Apache-2.0

// Package frame implements the length-prefixed message format carried
// on every client↔daemon byte stream: a 5-byte header (1 byte type tag,
// 4 byte big-endian payload length) followed by the payload.
package frame

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Type tags for the wire protocol.
const (
	Data   byte = 0x01
	Winch  byte = 0x02
	Detach byte = 0x03
	Exit   byte = 0x04
	Hello  byte = 0x05
)

// headerLength is the fixed size of a frame header: 1 byte type + 4
// byte big-endian payload length.
const headerLength = 5

// MaxPayload is the largest payload a frame may carry. A larger
// declared length is a protocol error and fails the connection.
const MaxPayload = 1 << 20 // 1 MiB

// Frame is a single decoded message: a type tag and its payload.
type Frame struct {
	Type    byte
	Payload []byte
}

// Write sends a frame to w, blocking until the header and payload are
// fully written. Short writes are completed transparently — io.Writer
// implementations backed by a socket may only accept part of a large
// buffer per call.
func Write(w io.Writer, f Frame) error {
	var header [headerLength]byte
	header[0] = f.Type
	binary.BigEndian.PutUint32(header[1:5], uint32(len(f.Payload)))
	if err := writeFull(w, header[:]); err != nil {
		return fmt.Errorf("frame: write header: %w", err)
	}
	if len(f.Payload) > 0 {
		if err := writeFull(w, f.Payload); err != nil {
			return fmt.Errorf("frame: write payload: %w", err)
		}
	}
	return nil
}

// writeFull writes all of buf to w, retrying on short writes. A
// Write that reports zero bytes with a nil error is treated as a
// stalled connection to avoid spinning forever.
func writeFull(w io.Writer, buf []byte) error {
	for len(buf) > 0 {
		n, err := w.Write(buf)
		if err != nil {
			return err
		}
		if n == 0 {
			return io.ErrShortWrite
		}
		buf = buf[n:]
	}
	return nil
}

// Read reads one full frame from r, blocking until the header and
// payload have arrived. Returns io.EOF if the stream ended cleanly
// before any header bytes arrived, io.ErrUnexpectedEOF if it ended
// mid-frame, and a plain error if the declared payload length exceeds
// MaxPayload — all of which the caller should treat as "disconnect
// this peer", never as a session-ending fault.
func Read(r io.Reader) (Frame, error) {
	var header [headerLength]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return Frame{}, err
	}
	messageType := header[0]
	payloadLength := binary.BigEndian.Uint32(header[1:5])
	if payloadLength > MaxPayload {
		return Frame{}, fmt.Errorf("frame: payload length %d exceeds maximum %d", payloadLength, MaxPayload)
	}
	payload := make([]byte, payloadLength)
	if payloadLength > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			if err == io.EOF {
				// The header already arrived, so this is mid-frame.
				err = io.ErrUnexpectedEOF
			}
			return Frame{}, err
		}
	}
	return Frame{Type: messageType, Payload: payload}, nil
}

// NewData creates a DATA frame carrying opaque PTY bytes.
func NewData(payload []byte) Frame { return Frame{Type: Data, Payload: payload} }

// NewDetach creates an empty DETACH frame.
func NewDetach() Frame { return Frame{Type: Detach} }

// NewExit creates an EXIT frame carrying the single exit-code byte.
func NewExit(code byte) Frame { return Frame{Type: Exit, Payload: []byte{code}} }

// NewHello creates a HELLO frame with the given terminal dimensions.
func NewHello(columns, rows uint16) Frame { return Frame{Type: Hello, Payload: sizePayload(columns, rows)} }

// NewWinch creates a WINCH frame with the given terminal dimensions.
func NewWinch(columns, rows uint16) Frame { return Frame{Type: Winch, Payload: sizePayload(columns, rows)} }

func sizePayload(columns, rows uint16) []byte {
	payload := make([]byte, 4)
	binary.BigEndian.PutUint16(payload[0:2], columns)
	binary.BigEndian.PutUint16(payload[2:4], rows)
	return payload
}

// ParseSize decodes a HELLO/WINCH 4-byte payload into (columns, rows).
// Returns an error if the payload is not exactly 4 bytes.
func ParseSize(payload []byte) (columns, rows uint16, err error) {
	if len(payload) != 4 {
		return 0, 0, fmt.Errorf("frame: size payload must be 4 bytes, got %d", len(payload))
	}
	return binary.BigEndian.Uint16(payload[0:2]), binary.BigEndian.Uint16(payload[2:4]), nil
}

// IsValidHello reports whether f is a well-formed HELLO frame: type
// Hello and an exactly 4-byte payload.
func IsValidHello(f Frame) bool {
	return f.Type == Hello && len(f.Payload) == 4
}
