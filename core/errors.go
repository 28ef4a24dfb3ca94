package core

import "errors"

var (
	ErrOutOfRange         = errors.New("timer id out of range")
	ErrNotInitialized     = errors.New("timer not initialized")
	ErrAlreadyInitialized = errors.New("timer already initialized")
	ErrUnsupported        = errors.New("unsupported timer frequency")
)

// Status is the wire form of a timer operation result
type Status uint8

const (
	StatusSuccess Status = iota
	StatusInvalidID
	StatusNotInitialized
	StatusAlreadyInitialized
	StatusUnsupported
	// StatusError covers failures outside the timer taxonomy (bad command, link errors)
	StatusError
)

// StatusOf maps an error returned by a TimerBank operation to its status code
func StatusOf(err error) Status {
	switch {
	case err == nil:
		return StatusSuccess
	case errors.Is(err, ErrOutOfRange):
		return StatusInvalidID
	case errors.Is(err, ErrNotInitialized):
		return StatusNotInitialized
	case errors.Is(err, ErrAlreadyInitialized):
		return StatusAlreadyInitialized
	case errors.Is(err, ErrUnsupported):
		return StatusUnsupported
	}
	return StatusError
}

// Err converts a status code back into the matching sentinel error
func (s Status) Err() error {
	switch s {
	case StatusSuccess:
		return nil
	case StatusInvalidID:
		return ErrOutOfRange
	case StatusNotInitialized:
		return ErrNotInitialized
	case StatusAlreadyInitialized:
		return ErrAlreadyInitialized
	case StatusUnsupported:
		return ErrUnsupported
	}
	return errors.New("timer status " + utoa(uint32(s)))
}

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "ok"
	case StatusInvalidID:
		return "invalid-id"
	case StatusNotInitialized:
		return "not-initialized"
	case StatusAlreadyInitialized:
		return "already-initialized"
	case StatusUnsupported:
		return "unsupported"
	case StatusError:
		return "error"
	}
	return "status(" + utoa(uint32(s)) + ")"
}
