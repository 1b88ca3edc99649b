//go:build linux

package socketcan

import (
	"context"
	"fmt"

	"github.com/jmcglad/socketcan-demo/internal/can"
)

// RawPipe frames a raw session for the echo engine: one bare 16-byte
// can_frame per receive and per transmit.
type RawPipe struct {
	s *Session
}

// NewRawPipe wraps a raw-mode session.
func NewRawPipe(s *Session) *RawPipe {
	return &RawPipe{s: s}
}

// Recv blocks for the next frame on the bus.
func (p *RawPipe) Recv(ctx context.Context) (can.Frame, error) {
	buf := make([]byte, can.FrameLen)
	n, err := p.s.Read(ctx, buf)
	if err != nil {
		return can.Frame{}, err
	}
	if n != can.FrameLen {
		return can.Frame{}, fmt.Errorf("socketcan: short frame read: %d bytes", n)
	}
	var f can.Frame
	if err := f.UnmarshalBinary(buf); err != nil {
		return can.Frame{}, err
	}
	return f, nil
}

// Send transmits one frame.
func (p *RawPipe) Send(ctx context.Context, f can.Frame) error {
	buf, err := f.MarshalBinary()
	if err != nil {
		return err
	}
	n, err := p.s.Write(ctx, buf)
	if err != nil {
		return err
	}
	if n != len(buf) {
		return fmt.Errorf("socketcan: short frame write: %d bytes", n)
	}
	return nil
}
