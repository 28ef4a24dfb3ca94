package protocol

import (
	"bytes"
	"testing"
)

func encodeFrames(t *testing.T, dir uint8, payloads ...[]byte) []byte {
	t.Helper()
	out := NewScratchOutput()
	enc := NewFrameEncoder(out, dir)
	for _, p := range payloads {
		p := p
		if err := enc.Send(func(o OutputBuffer) { o.Output(p) }); err != nil {
			t.Fatalf("Send failed: %v", err)
		}
	}
	return append([]byte(nil), out.Result()...)
}

func TestFrameLayout(t *testing.T) {
	wire := encodeFrames(t, MessageToDevice, []byte{0x01, 0x02})

	if len(wire) != 7 {
		t.Fatalf("Expected 7 byte frame, got %d: %X", len(wire), wire)
	}
	if wire[MessagePositionLen] != 7 {
		t.Errorf("Expected length byte 7, got %d", wire[MessagePositionLen])
	}
	if wire[MessagePositionSeq] != MessageToDevice {
		t.Errorf("Expected seq byte 0x10, got 0x%02X", wire[MessagePositionSeq])
	}
	crc := CRC16(wire[:4])
	if wire[4] != uint8(crc>>8) || wire[5] != uint8(crc) {
		t.Errorf("Bad CRC trailer %X, expected %04X", wire[4:6], crc)
	}
	if wire[6] != MessageValueSync {
		t.Errorf("Expected sync byte, got 0x%02X", wire[6])
	}
}

func TestFrameRoundTrip(t *testing.T) {
	payloads := [][]byte{{1}, {}, {3, 4, 5}, bytes.Repeat([]byte{9}, MessageLengthMax-MessageLengthMin)}
	wire := encodeFrames(t, MessageToHost, payloads...)

	dec := NewFrameDecoder(MessageToHost)
	dec.Write(wire)
	for i, want := range payloads {
		frame, ok := dec.Next()
		if !ok {
			t.Fatalf("Frame %d missing", i)
		}
		if frame.Seq != uint8(i) {
			t.Errorf("Frame %d: expected seq %d, got %d", i, i, frame.Seq)
		}
		if !bytes.Equal(frame.Payload, want) {
			t.Errorf("Frame %d: expected payload %v, got %v", i, want, frame.Payload)
		}
	}
	if _, ok := dec.Next(); ok {
		t.Error("Unexpected extra frame")
	}
	if dec.Dropped != 0 {
		t.Errorf("Expected no dropped frames, got %d", dec.Dropped)
	}
}

func TestFrameSeqWraps(t *testing.T) {
	out := NewScratchOutput()
	enc := NewFrameEncoder(out, MessageToHost)
	for i := 0; i < 17; i++ {
		out.Reset()
		if err := enc.Send(nil); err != nil {
			t.Fatal(err)
		}
	}
	if seq := out.Result()[MessagePositionSeq]; seq != 0 {
		t.Errorf("Expected seq to wrap to 0 on frame 17, got %d", seq)
	}
}

func TestFrameTooLong(t *testing.T) {
	out := NewScratchOutput()
	enc := NewFrameEncoder(out, MessageToHost)

	err := enc.Send(func(o OutputBuffer) {
		o.Output(make([]byte, MessageLengthMax))
	})
	if err != ErrFrameTooLong {
		t.Fatalf("Expected ErrFrameTooLong, got %v", err)
	}
	if len(out.Result()) != 0 {
		t.Error("Oversized frame reached the output")
	}

	// The failed frame does not consume a sequence number
	if err := enc.Send(nil); err != nil {
		t.Fatal(err)
	}
	if seq := out.Result()[MessagePositionSeq]; seq != 0 {
		t.Errorf("Expected seq 0, got %d", seq)
	}
}

func TestFrameOutputFull(t *testing.T) {
	out := NewScratchOutput()
	out.Output(make([]byte, MessageMax-MessageLengthMin+1))
	enc := NewFrameEncoder(out, MessageToHost)

	if err := enc.Send(nil); err != ErrOutputFull {
		t.Fatalf("Expected ErrOutputFull, got %v", err)
	}

	out.Reset()
	if err := enc.Send(nil); err != nil {
		t.Fatal(err)
	}
	if seq := out.Result()[MessagePositionSeq]; seq != 0 {
		t.Errorf("Expected the truncated frame to leave seq at 0, got %d", seq)
	}
}

func TestFrameDecoderPartial(t *testing.T) {
	wire := encodeFrames(t, MessageToDevice, []byte{7, 8, 9})
	dec := NewFrameDecoder(MessageToDevice)

	dec.Write(wire[:4])
	if _, ok := dec.Next(); ok {
		t.Fatal("Frame returned before it was complete")
	}
	dec.Write(wire[4:])
	frame, ok := dec.Next()
	if !ok || !bytes.Equal(frame.Payload, []byte{7, 8, 9}) {
		t.Errorf("Expected payload [7 8 9], got %v (ok=%v)", frame.Payload, ok)
	}
}

func TestFrameDecoderResync(t *testing.T) {
	good := encodeFrames(t, MessageToDevice, []byte{1}, []byte{2})
	first := good[:6]
	second := good[6:]

	corrupt := append([]byte(nil), first...)
	corrupt[2] ^= 0xFF

	testCases := []struct {
		name string
		wire []byte
	}{
		{"bad crc", append(corrupt, second...)},
		{"leading garbage", append([]byte{0x03, 0x99, 0x42}, append(first, second...)...)},
		{"bad length", append([]byte{0xF0, 0x10, 0x00, 0x7E}, second...)},
		{"wrong direction", append(encodeFrames(t, MessageToHost, []byte{1}), second...)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			dec := NewFrameDecoder(MessageToDevice)
			dec.Write(tc.wire)

			var payloads [][]byte
			for {
				frame, ok := dec.Next()
				if !ok {
					break
				}
				payloads = append(payloads, frame.Payload)
			}
			if len(payloads) == 0 || !bytes.Equal(payloads[len(payloads)-1], []byte{2}) {
				t.Errorf("Decoder did not recover the trailing frame, got %v", payloads)
			}
			if dec.Dropped == 0 {
				t.Error("Expected a dropped frame to be counted")
			}
		})
	}
}
