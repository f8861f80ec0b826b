// Copyright 2026 The Ghostly Authors
// SPDX-License-Identifier: Apache-2.0

package frame

import (
	"bytes"
	"encoding/binary"
	"io"
	"testing"
)

func TestWriteReadRoundTrip(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		f    Frame
	}{
		{name: "data", f: NewData([]byte("hello terminal"))},
		{name: "empty data", f: NewData(nil)},
		{name: "hello", f: NewHello(120, 40)},
		{name: "winch", f: NewWinch(200, 50)},
		{name: "detach", f: NewDetach()},
		{name: "exit zero", f: NewExit(0)},
		{name: "exit nonzero", f: NewExit(137)},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			var buffer bytes.Buffer
			if err := Write(&buffer, test.f); err != nil {
				t.Fatalf("Write: %v", err)
			}
			got, err := Read(&buffer)
			if err != nil {
				t.Fatalf("Read: %v", err)
			}
			if got.Type != test.f.Type {
				t.Errorf("type: got 0x%02x, want 0x%02x", got.Type, test.f.Type)
			}
			if !bytes.Equal(got.Payload, test.f.Payload) {
				t.Errorf("payload: got %q, want %q", got.Payload, test.f.Payload)
			}
		})
	}
}

func TestWriteReadMultipleFrames(t *testing.T) {
	t.Parallel()
	var buffer bytes.Buffer

	frames := []Frame{
		NewHello(80, 24),
		NewData([]byte("live data")),
		NewWinch(120, 40),
		NewData([]byte("more data")),
		NewExit(0),
	}

	for _, f := range frames {
		if err := Write(&buffer, f); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}

	for index, want := range frames {
		got, err := Read(&buffer)
		if err != nil {
			t.Fatalf("Read[%d]: %v", index, err)
		}
		if got.Type != want.Type || !bytes.Equal(got.Payload, want.Payload) {
			t.Errorf("frame[%d]: got %+v, want %+v", index, got, want)
		}
	}

	// The final EXIT frame must be the last thing on the stream.
	if _, err := Read(&buffer); err != io.EOF {
		t.Errorf("expected EOF after EXIT, got %v", err)
	}
}

func TestParseSize(t *testing.T) {
	t.Parallel()
	f := NewWinch(132, 43)
	columns, rows, err := ParseSize(f.Payload)
	if err != nil {
		t.Fatalf("ParseSize: %v", err)
	}
	if columns != 132 || rows != 43 {
		t.Errorf("got (%d,%d), want (132,43)", columns, rows)
	}
}

func TestParseSizeInvalidLength(t *testing.T) {
	t.Parallel()
	if _, _, err := ParseSize([]byte{0x00, 0x01}); err == nil {
		t.Fatal("expected error for short payload")
	}
}

func TestReadPayloadTooLarge(t *testing.T) {
	t.Parallel()
	var buffer bytes.Buffer
	var header [5]byte
	header[0] = Data
	binary.BigEndian.PutUint32(header[1:5], MaxPayload+1)
	buffer.Write(header[:])

	if _, err := Read(&buffer); err == nil {
		t.Fatal("expected error for oversized payload")
	}
}

func TestIsValidHello(t *testing.T) {
	t.Parallel()
	if !IsValidHello(NewHello(80, 24)) {
		t.Error("well-formed HELLO should be valid")
	}
	if IsValidHello(Frame{Type: Hello, Payload: []byte{1, 2}}) {
		t.Error("short payload should be invalid")
	}
	if IsValidHello(Frame{Type: Data, Payload: []byte{1, 2, 3, 4}}) {
		t.Error("wrong type should be invalid")
	}
}

func TestZeroLengthDataAccepted(t *testing.T) {
	t.Parallel()
	var buffer bytes.Buffer
	if err := Write(&buffer, NewData(nil)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := Read(&buffer)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got.Type != Data || len(got.Payload) != 0 {
		t.Errorf("got %+v, want zero-length DATA", got)
	}
}
