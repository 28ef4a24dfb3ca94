package protocol

import (
	"testing"
)

func TestVLQEncodeDecodeInt(t *testing.T) {
	testCases := []int32{
		0,
		1,
		-1,
		95,
		96,
		-32,
		-33,
		1000,
		-1000,
		65535,
		-65535,
		1000000,
		-1000000,
		2147483647,
		-2147483648,
	}

	for _, expected := range testCases {
		output := NewScratchOutput()
		EncodeVLQInt(output, expected)
		encoded := output.Result()

		data := encoded
		decoded, err := DecodeVLQInt(&data)
		if err != nil {
			t.Errorf("Failed to decode VLQ for value %d: %v", expected, err)
			continue
		}

		if decoded != expected {
			t.Errorf("VLQ mismatch: expected %d, got %d (encoded as %v)", expected, decoded, encoded)
		}

		if len(data) != 0 {
			t.Errorf("VLQ decode didn't consume all bytes for value %d: %d bytes remaining", expected, len(data))
		}
	}
}

func TestVLQEncodeDecodeUint(t *testing.T) {
	testCases := []uint32{
		0,
		127,
		65535,
		70000,
		1000000,
		4294967295,
	}

	for _, expected := range testCases {
		output := NewScratchOutput()
		EncodeVLQUint(output, expected)
		encoded := output.Result()

		data := encoded
		decoded, err := DecodeVLQUint(&data)
		if err != nil {
			t.Errorf("Failed to decode VLQ for value %d: %v", expected, err)
			continue
		}

		if decoded != expected {
			t.Errorf("VLQ mismatch: expected %d, got %d (encoded as %v)", expected, decoded, encoded)
		}
	}
}

func TestVLQBytes(t *testing.T) {
	testCases := []struct {
		value int32
		bytes []byte
	}{
		{0, []byte{0x00}},
		{95, []byte{0x5F}},
		{96, []byte{0x80, 0x60}},
		{-32, []byte{0x60}},
		{-33, []byte{0xFF, 0x5F}},
		{1000, []byte{0x87, 0x68}},
		{65535, []byte{0x83, 0xFF, 0x7F}},
	}

	for _, tc := range testCases {
		output := NewScratchOutput()
		EncodeVLQInt(output, tc.value)
		encoded := output.Result()
		if string(encoded) != string(tc.bytes) {
			t.Errorf("EncodeVLQInt(%d) = %X, expected %X", tc.value, encoded, tc.bytes)
		}
	}
}

func TestVLQDecodeErrors(t *testing.T) {
	empty := []byte{}
	if _, err := DecodeVLQInt(&empty); err != ErrBufferTooSmall {
		t.Errorf("Expected ErrBufferTooSmall on empty input, got %v", err)
	}

	truncated := []byte{0x83, 0xFF}
	if _, err := DecodeVLQInt(&truncated); err != ErrBufferTooSmall {
		t.Errorf("Expected ErrBufferTooSmall on truncated input, got %v", err)
	}

	tooLong := []byte{0x81, 0x81, 0x81, 0x81, 0x81, 0x01}
	if _, err := DecodeVLQInt(&tooLong); err != ErrInvalidVLQ {
		t.Errorf("Expected ErrInvalidVLQ on six groups, got %v", err)
	}
}

func TestVLQSequential(t *testing.T) {
	output := NewScratchOutput()
	values := []uint32{1, 2, 300, 65535}
	for _, v := range values {
		EncodeVLQUint(output, v)
	}

	data := output.Result()
	for _, expected := range values {
		got, err := DecodeVLQUint(&data)
		if err != nil {
			t.Fatalf("Decode failed: %v", err)
		}
		if got != expected {
			t.Errorf("Expected %d, got %d", expected, got)
		}
	}
	if len(data) != 0 {
		t.Errorf("%d bytes left after decoding", len(data))
	}
}
