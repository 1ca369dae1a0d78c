package usecase

import (
	"errors"
	"fmt"
)

var (
	// ErrAdapterStopped is returned by the reconstruction adapter once its
	// actor goroutine has exited.
	ErrAdapterStopped = errors.New("reconstruction adapter stopped")
	// ErrBufferFull is returned when the capture buffer reached its limit.
	ErrBufferFull = errors.New("capture buffer full")
)

// BindError is fatal at startup: the UDP socket could not be opened.
type BindError struct {
	Addr string
	Err  error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("bind udp %s: %v", e.Addr, e.Err)
}

func (e *BindError) Unwrap() error { return e.Err }

// CaptureFileError is fatal in capture mode: the packet dump could not be
// encoded or written.
type CaptureFileError struct {
	Path string
	Op   string
	Err  error
}

func (e *CaptureFileError) Error() string {
	return fmt.Sprintf("capture %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *CaptureFileError) Unwrap() error { return e.Err }
