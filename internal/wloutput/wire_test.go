package wloutput

import (
	"bufio"
	"bytes"
	"testing"
)

func TestMessageBuilderRoundTrip(t *testing.T) {
	b := NewMessageBuilder()
	b.PutUint32(42)
	b.PutInt32(-7)
	b.PutObject(ObjectID(5))
	b.PutString("wl_output")
	msg := b.BuildMessage(ObjectID(3), Opcode(1))

	encoded := EncodeMessage(msg)
	r := bufio.NewReader(bytes.NewReader(encoded))
	decoded, err := ReadMessage(r)
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	if decoded.ObjectID != ObjectID(3) || decoded.Opcode != Opcode(1) {
		t.Fatalf("header mismatch: got object=%d opcode=%d", decoded.ObjectID, decoded.Opcode)
	}

	dec := NewDecoder(decoded.Args)
	if v, err := dec.Uint32(); err != nil || v != 42 {
		t.Fatalf("Uint32: got %d, err %v", v, err)
	}
	if v, err := dec.Int32(); err != nil || v != -7 {
		t.Fatalf("Int32: got %d, err %v", v, err)
	}
	if v, err := dec.Object(); err != nil || v != ObjectID(5) {
		t.Fatalf("Object: got %d, err %v", v, err)
	}
	if v, err := dec.String(); err != nil || v != "wl_output" {
		t.Fatalf("String: got %q, err %v", v, err)
	}
}

func TestStringPaddingIsFourByteAligned(t *testing.T) {
	b := NewMessageBuilder()
	b.PutString("ab") // length 3 (incl NUL) pads to 4
	msg := b.BuildMessage(1, 0)
	if len(msg.Args)%4 != 0 {
		t.Fatalf("expected 4-byte aligned args, got %d bytes", len(msg.Args))
	}
}

func TestReadMessageRejectsOversizedHeader(t *testing.T) {
	var header [8]byte
	header[4] = 0
	header[5] = 0
	header[6] = 0xff
	header[7] = 0xff // size = 0xffff0000 >> 16, far beyond maxMessageSize
	r := bufio.NewReader(bytes.NewReader(header[:]))
	if _, err := ReadMessage(r); err == nil {
		t.Fatalf("expected an error for an oversized declared message size")
	}
}

func TestEncodeThenReadMultipleMessages(t *testing.T) {
	var buf bytes.Buffer
	for i := 0; i < 3; i++ {
		b := NewMessageBuilder()
		b.PutUint32(uint32(i))
		buf.Write(EncodeMessage(b.BuildMessage(ObjectID(i+1), Opcode(0))))
	}

	r := bufio.NewReader(&buf)
	for i := 0; i < 3; i++ {
		msg, err := ReadMessage(r)
		if err != nil {
			t.Fatalf("ReadMessage %d: %v", i, err)
		}
		if msg.ObjectID != ObjectID(i+1) {
			t.Fatalf("message %d: object id = %d, want %d", i, msg.ObjectID, i+1)
		}
	}
}
