package mcu

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"hwtimer/core"
	"hwtimer/host/serial"
	"hwtimer/protocol"
)

var (
	ErrNotConnected = errors.New("not connected to MCU")
	ErrTimeout      = errors.New("timed out waiting for reply")
)

// idleBackoff paces reads while the port reports an idle line
const idleBackoff = 5 * time.Millisecond

// Reply is the device's answer to one command
type Reply struct {
	Status core.Status

	// Value is set for query commands that reached a valid timer
	Value *protocol.ValueReply
}

// MCU represents a connection to the timer firmware
type MCU struct {
	port io.ReadWriteCloser

	// writeMu serializes frame encoding and port writes
	writeMu sync.Mutex
	out     *protocol.ScratchOutput
	encoder *protocol.FrameEncoder

	replies chan interface{}
	events  chan protocol.EventReport

	stop chan struct{}
	done chan struct{}

	// dropped counts events discarded because nobody was reading Events
	dropped atomic.Uint32

	connected bool
}

// NewMCU creates a new MCU instance (not yet connected)
func NewMCU() *MCU {
	return &MCU{}
}

// Connect connects to an MCU via serial port
func (m *MCU) Connect(device string) error {
	return m.ConnectWithConfig(serial.DefaultConfig(device))
}

// ConnectWithConfig connects to an MCU with a custom serial config
func (m *MCU) ConnectWithConfig(cfg *serial.Config) error {
	port, err := serial.Open(cfg)
	if err != nil {
		return fmt.Errorf("failed to open serial port: %w", err)
	}
	m.Attach(port)
	return nil
}

// Attach starts talking to the firmware over an already open stream
func (m *MCU) Attach(port io.ReadWriteCloser) {
	m.port = port
	m.out = protocol.NewScratchOutput()
	m.encoder = protocol.NewFrameEncoder(m.out, protocol.MessageToDevice)
	m.replies = make(chan interface{}, 8)
	m.events = make(chan protocol.EventReport, 64)
	m.stop = make(chan struct{})
	m.done = make(chan struct{})
	m.connected = true

	go m.readLoop()
}

// Close closes the connection and waits for the reader to exit
func (m *MCU) Close() error {
	if !m.connected {
		return nil
	}
	m.connected = false
	close(m.stop)
	err := m.port.Close()
	<-m.done
	return err
}

// IsConnected returns whether the MCU is connected and its reader is alive
func (m *MCU) IsConnected() bool {
	if !m.connected {
		return false
	}
	select {
	case <-m.done:
		return false
	default:
		return true
	}
}

// Events delivers trace events streamed by the firmware.
// The channel is closed when the connection ends.
func (m *MCU) Events() <-chan protocol.EventReport {
	return m.events
}

// Dropped returns the number of events lost to a full Events channel
func (m *MCU) Dropped() uint32 {
	return m.dropped.Load()
}

// readLoop decodes frames from the port until it fails or is closed.
// A port with a read timeout reports an idle line as (0, io.EOF); that only
// ends the loop once Close has been called.
func (m *MCU) readLoop() {
	defer close(m.done)
	defer close(m.events)

	decoder := protocol.NewFrameDecoder(protocol.MessageToHost)
	buf := make([]byte, 64)
	for {
		n, err := m.port.Read(buf[:min(len(buf), decoder.Free())])
		if n > 0 {
			decoder.Write(buf[:n])
			m.drain(decoder)
		}
		if n == 0 && err == io.EOF {
			// Idle line, back off before polling again
			select {
			case <-m.stop:
				return
			case <-time.After(idleBackoff):
			}
			continue
		}
		if err != nil {
			return
		}
		select {
		case <-m.stop:
			return
		default:
		}
	}
}

func (m *MCU) drain(decoder *protocol.FrameDecoder) {
	for {
		frame, ok := decoder.Next()
		if !ok {
			return
		}
		msg, err := protocol.Decode(frame.Payload)
		if err != nil {
			continue
		}

		switch msg := msg.(type) {
		case protocol.EventReport:
			select {
			case m.events <- msg:
			default:
				m.dropped.Add(1)
			}
		case protocol.StatusReply, protocol.ValueReply:
			select {
			case m.replies <- msg:
			case <-m.stop:
				return
			}
		}
	}
}

// Send encodes and writes one command frame
func (m *MCU) Send(cmd protocol.Command) error {
	if !m.IsConnected() {
		return ErrNotConnected
	}

	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	m.out.Reset()
	if err := m.encoder.Send(cmd.Encode); err != nil {
		return err
	}
	if _, err := m.port.Write(m.out.Result()); err != nil {
		return fmt.Errorf("failed to send %v: %w", cmd.Op, err)
	}
	return nil
}

// Request sends a command and waits for its status reply. Replies to earlier
// commands that arrive first are discarded.
func (m *MCU) Request(cmd protocol.Command, timeout time.Duration) (Reply, error) {
	// Drop stale replies left by timed out requests
	for len(m.replies) > 0 {
		<-m.replies
	}

	if err := m.Send(cmd); err != nil {
		return Reply{}, err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var reply Reply
	for {
		select {
		case msg := <-m.replies:
			switch msg := msg.(type) {
			case protocol.ValueReply:
				if msg.ID == cmd.ID {
					v := msg
					reply.Value = &v
				}
			case protocol.StatusReply:
				if msg.Op == cmd.Op && msg.ID == cmd.ID {
					reply.Status = core.Status(msg.Status)
					return reply, nil
				}
			}
		case <-timer.C:
			return Reply{}, fmt.Errorf("%v %d: %w", cmd.Op, cmd.ID, ErrTimeout)
		case <-m.done:
			return Reply{}, ErrNotConnected
		}
	}
}
