package protocol

import "errors"

var (
	ErrFrameTooLong = errors.New("frame exceeds maximum length")
	ErrOutputFull   = errors.New("output buffer full")
)

// Frame is one validated frame with header and trailer stripped
type Frame struct {
	Seq     uint8
	Payload []byte
}

// FrameEncoder wraps payloads into frames for one link direction
type FrameEncoder struct {
	output  OutputBuffer
	dir     uint8
	seq     uint8
	scratch [MessageLengthMax]byte
}

// NewFrameEncoder creates an encoder writing frames tagged with dir
// (MessageToDevice or MessageToHost) to output
func NewFrameEncoder(output OutputBuffer, dir uint8) *FrameEncoder {
	return &FrameEncoder{output: output, dir: dir & MessageDirMask}
}

// frameBuilder collects one frame in the encoder's scratch space
type frameBuilder struct {
	buf      []byte
	pos      int
	overflow bool
}

func (f *frameBuilder) Output(data []byte) {
	n := copy(f.buf[f.pos:], data)
	f.pos += n
	if n < len(data) {
		f.overflow = true
	}
}

func (f *frameBuilder) CurPosition() int { return f.pos }

func (f *frameBuilder) Update(pos int, val byte) {
	if pos < f.pos {
		f.buf[pos] = val
	}
}

func (f *frameBuilder) DataSince(pos int) []byte {
	if pos > f.pos {
		return nil
	}
	return f.buf[pos:f.pos]
}

// Send encodes one frame whose payload is written by fill.
// Nothing reaches the output if the frame would be too long. If the output
// accepts only part of the frame, ErrOutputFull is returned and the receiver
// drops the partial frame when it resyncs.
func (e *FrameEncoder) Send(fill func(output OutputBuffer)) error {
	b := frameBuilder{buf: e.scratch[:MessageLengthMax-MessageTrailerSize]}
	b.Output([]byte{0, e.dir | e.seq})
	if fill != nil {
		fill(&b)
	}
	if b.overflow {
		return ErrFrameTooLong
	}

	b.buf = e.scratch[:]
	b.Update(MessagePositionLen, uint8(b.pos+MessageTrailerSize))
	crc := CRC16(b.DataSince(0))
	b.Output([]byte{uint8(crc >> 8), uint8(crc & 0xFF), MessageValueSync})

	start := e.output.CurPosition()
	e.output.Output(b.DataSince(0))
	if e.output.CurPosition()-start < b.pos {
		return ErrOutputFull
	}
	e.seq = (e.seq + 1) & MessageSeqMask
	return nil
}

// FrameDecoder reassembles frames for one link direction from a byte stream.
// After a malformed frame it drops bytes up to the next sync byte.
type FrameDecoder struct {
	fifo   *FifoBuffer
	dir    uint8
	synced bool

	// Dropped counts frames discarded for bad length, direction, sync or CRC
	Dropped uint32
}

// NewFrameDecoder creates a decoder accepting frames tagged with dir
func NewFrameDecoder(dir uint8) *FrameDecoder {
	return &FrameDecoder{
		fifo:   NewFifoBuffer(4 * MessageLengthMax),
		dir:    dir & MessageDirMask,
		synced: true,
	}
}

// Write queues received bytes and returns how many fit
func (d *FrameDecoder) Write(p []byte) int {
	return d.fifo.Write(p)
}

// Free returns how many more bytes Write accepts
func (d *FrameDecoder) Free() int {
	return d.fifo.Free()
}

func (d *FrameDecoder) desync() {
	d.synced = false
	d.Dropped++
}

// Next returns the next complete frame, or false if more bytes are needed
func (d *FrameDecoder) Next() (Frame, bool) {
	for {
		data := d.fifo.Data()
		if len(data) == 0 {
			return Frame{}, false
		}

		if !d.synced {
			pos := -1
			for i, c := range data {
				if c == MessageValueSync {
					pos = i
					break
				}
			}
			if pos < 0 {
				d.fifo.Pop(len(data))
				return Frame{}, false
			}
			d.fifo.Pop(pos + 1)
			d.synced = true
			continue
		}

		if data[0] == MessageValueSync {
			d.fifo.Pop(1)
			continue
		}
		if len(data) < MessageLengthMin {
			return Frame{}, false
		}

		msgLen := int(data[MessagePositionLen])
		if msgLen < MessageLengthMin || msgLen > MessageLengthMax {
			d.desync()
			continue
		}
		seq := data[MessagePositionSeq]
		if seq&MessageDirMask != d.dir {
			d.desync()
			continue
		}
		if len(data) < msgLen {
			return Frame{}, false
		}
		if data[msgLen-1] != MessageValueSync {
			d.desync()
			continue
		}
		crc := uint16(data[msgLen-MessageTrailerSize])<<8 | uint16(data[msgLen-MessageTrailerSize+1])
		if crc != CRC16(data[:msgLen-MessageTrailerSize]) {
			d.desync()
			continue
		}

		payload := make([]byte, msgLen-MessageLengthMin)
		copy(payload, data[MessageHeaderSize:msgLen-MessageTrailerSize])
		d.fifo.Pop(msgLen)
		return Frame{Seq: seq & MessageSeqMask, Payload: payload}, true
	}
}
