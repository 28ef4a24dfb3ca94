package protocol

import "testing"

func TestScratchOutput(t *testing.T) {
	scratch := NewScratchOutput()

	scratch.Output([]byte{1, 2, 3})
	if scratch.CurPosition() != 3 {
		t.Errorf("Expected position 3, got %d", scratch.CurPosition())
	}

	scratch.Output([]byte{4, 5})
	if scratch.CurPosition() != 5 {
		t.Errorf("Expected position 5, got %d", scratch.CurPosition())
	}

	scratch.Update(0, 99)
	if result := scratch.Result(); result[0] != 99 {
		t.Errorf("Expected first byte to be 99, got %d", result[0])
	}

	// Updates past the write position are ignored
	scratch.Update(10, 1)
	if scratch.CurPosition() != 5 {
		t.Errorf("Update moved position to %d", scratch.CurPosition())
	}

	since := scratch.DataSince(2)
	if len(since) != 3 || since[0] != 3 {
		t.Errorf("Expected DataSince(2) to be [3 4 5], got %v", since)
	}
	if scratch.DataSince(6) != nil {
		t.Error("Expected nil DataSince past the end")
	}

	scratch.Reset()
	if scratch.CurPosition() != 0 || len(scratch.Result()) != 0 {
		t.Error("Reset did not clear the buffer")
	}
}

func TestScratchOutputOverflow(t *testing.T) {
	scratch := NewScratchOutput()
	scratch.Output(make([]byte, MessageMax-1))
	if scratch.Overflowed() {
		t.Fatal("Overflowed before the buffer was full")
	}

	scratch.Output([]byte{1, 2})
	if !scratch.Overflowed() {
		t.Error("Expected overflow after writing past capacity")
	}
	if scratch.CurPosition() != MessageMax {
		t.Errorf("Expected position %d, got %d", MessageMax, scratch.CurPosition())
	}

	scratch.Reset()
	if scratch.Overflowed() {
		t.Error("Reset did not clear the overflow flag")
	}
}

func TestFifoBuffer(t *testing.T) {
	fifo := NewFifoBuffer(8)

	if n := fifo.Write([]byte{1, 2, 3, 4, 5}); n != 5 {
		t.Fatalf("Expected 5 bytes written, got %d", n)
	}
	if fifo.Available() != 5 || fifo.Free() != 2 {
		t.Errorf("Expected 5 available and 2 free, got %d and %d", fifo.Available(), fifo.Free())
	}

	fifo.Pop(4)
	if data := fifo.Data(); len(data) != 1 || data[0] != 5 {
		t.Errorf("Expected [5] after pop, got %v", data)
	}

	// This write wraps around the end of the backing array
	if n := fifo.Write([]byte{6, 7, 8, 9, 10, 11, 12}); n != 6 {
		t.Fatalf("Expected 6 bytes written, got %d", n)
	}
	want := []byte{5, 6, 7, 8, 9, 10, 11}
	if data := fifo.Data(); string(data) != string(want) {
		t.Errorf("Expected %v, got %v", want, data)
	}
	if fifo.Free() != 0 {
		t.Errorf("Expected full buffer, %d free", fifo.Free())
	}

	fifo.Pop(100)
	if fifo.Available() != 0 {
		t.Errorf("Expected empty buffer after over-pop, got %d", fifo.Available())
	}

	fifo.Write([]byte{1})
	fifo.Reset()
	if fifo.Available() != 0 {
		t.Error("Reset did not clear the buffer")
	}
}
