package wire

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

func TestConstantForce(t *testing.T) {
	pkt := ConstantForce(-10000)
	h, ok := ParseHeader(pkt)
	if !ok {
		t.Fatal("expected valid header")
	}
	if h.Class != ClassFFB || h.ID != IDConstant || h.Length != 2 {
		t.Errorf("header = %+v", h)
	}
	if !VerifyChecksum(pkt) {
		t.Error("checksum should verify")
	}
	p := Payload(pkt)
	if got := int16(uint16(p[0]) | uint16(p[1])<<8); got != -10000 {
		t.Errorf("magnitude = %d, want -10000", got)
	}
}

func TestParseAxis(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		pkt := EncodeAxis(Axis{Raw: 100, Min: -32768, Max: 32767})
		a, ok := ParseAxis(Payload(pkt))
		if !ok {
			t.Fatal("expected ok")
		}
		if a.Raw != 100 || a.Min != -32768 || a.Max != 32767 {
			t.Errorf("got %+v", a)
		}
	})
	t.Run("empty range", func(t *testing.T) {
		pkt := EncodeAxis(Axis{Raw: 1, Min: 5, Max: 5})
		if _, ok := ParseAxis(Payload(pkt)); ok {
			t.Error("expected !ok for empty range")
		}
	})
	t.Run("short payload", func(t *testing.T) {
		if _, ok := ParseAxis(make([]byte, 4)); ok {
			t.Error("expected !ok for short payload")
		}
	})
}

func TestReadPacket(t *testing.T) {
	t.Run("skips garbage before sync", func(t *testing.T) {
		var buf bytes.Buffer
		buf.Write([]byte{0x00, 0xA5, 0x11, 0x5A})
		buf.Write(Start())
		pkt, err := ReadPacket(&buf)
		if err != nil {
			t.Fatalf("ReadPacket: %v", err)
		}
		h, _ := ParseHeader(pkt)
		if h.Class != ClassFFB || h.ID != IDStart {
			t.Errorf("header = %+v", h)
		}
	})

	t.Run("checksum mismatch", func(t *testing.T) {
		pkt := Stop()
		pkt[len(pkt)-1] ^= 0xff
		_, err := ReadPacket(bytes.NewReader(pkt))
		if !errors.Is(err, ErrChecksum) {
			t.Errorf("err = %v, want ErrChecksum", err)
		}
	})

	t.Run("truncated", func(t *testing.T) {
		pkt := EncodeAxis(Axis{Raw: 1, Min: 0, Max: 10})
		_, err := ReadPacket(bytes.NewReader(pkt[:9]))
		if !errors.Is(err, io.ErrUnexpectedEOF) {
			t.Errorf("err = %v, want ErrUnexpectedEOF", err)
		}
	})

	t.Run("too long", func(t *testing.T) {
		b := []byte{Sync1, Sync2, ClassInput, IDAxis, 0xff, 0xff}
		if _, err := ReadPacket(bytes.NewReader(b)); err == nil {
			t.Error("expected error for oversized payload")
		}
	})
}
