// Package protocol implements the framed serial link between the timer
// firmware and host tools.
//
// A frame is [len][seq][payload][crc16 hi][crc16 lo][0x7E], where len counts
// the whole frame and the payload is a sequence of VLQ-encoded fields. The
// high nibble of seq tells the direction, the low nibble counts frames.
package protocol

// Version represents the link protocol version
const Version = "0.1.0"

// Frame layout constants
const (
	MessageMax         = 1024 // Scratch output capacity, fits a full trace dump
	MessageHeaderSize  = 2    // len + seq
	MessageTrailerSize = 3    // crc16 + sync
	MessageLengthMin   = MessageHeaderSize + MessageTrailerSize
	MessageLengthMax   = 64
	MessagePositionLen = 0
	MessagePositionSeq = 1
	MessageValueSync   = 0x7E

	// Message sequence masks
	MessageSeqMask = 0x0F
	MessageDirMask = 0xF0

	// Direction nibbles
	MessageToDevice = 0x10
	MessageToHost   = 0x00
)
