//go:build linux

package socketcan

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/jmcglad/socketcan-demo/internal/bcm"
	"github.com/jmcglad/socketcan-demo/internal/can"
)

// BCMPipe frames a broadcast-manager session for the echo engine. On
// construction it registers a receive filter with the kernel; thereafter
// every matching frame arrives wrapped in an RX_CHANGED envelope, and every
// transmit leaves as a one-shot TX_SEND envelope.
type BCMPipe struct {
	s   *Session
	log zerolog.Logger
}

// NewBCMPipe registers a receive filter for watchID on the session. The
// registration is a single atomic write; its failure is fatal at startup.
func NewBCMPipe(ctx context.Context, s *Session, watchID uint32, log zerolog.Logger) (*BCMPipe, error) {
	buf, err := bcm.FilterSubscription(watchID).Encode()
	if err != nil {
		return nil, fmt.Errorf("build filter subscription: %w", err)
	}
	n, err := s.Write(ctx, buf)
	if err != nil {
		return nil, fmt.Errorf("register filter: %w", err)
	}
	if n != len(buf) {
		return nil, fmt.Errorf("register filter: short write: %d of %d bytes", n, len(buf))
	}
	return &BCMPipe{s: s, log: log}, nil
}

// Recv blocks for the next matched frame. Envelopes that carry no frame
// (timer and status notifications) are skipped.
func (p *BCMPipe) Recv(ctx context.Context) (can.Frame, error) {
	buf := make([]byte, bcm.HeadLen+can.FrameLen)
	for {
		n, err := p.s.Read(ctx, buf)
		if err != nil {
			return can.Frame{}, err
		}
		msg, err := bcm.Decode(buf[:n])
		if err != nil {
			return can.Frame{}, fmt.Errorf("decode bcm message: %w", err)
		}
		if msg.Opcode != bcm.RxChanged || len(msg.Frames) == 0 {
			p.log.Debug().Stringer("opcode", msg.Opcode).Msg("skipping bcm notification without frame")
			continue
		}
		return msg.Frames[0], nil
	}
}

// Send transmits one frame wrapped in a TX_SEND envelope.
func (p *BCMPipe) Send(ctx context.Context, f can.Frame) error {
	buf, err := bcm.Transmit(f).Encode()
	if err != nil {
		return err
	}
	n, err := p.s.Write(ctx, buf)
	if err != nil {
		return err
	}
	if n != len(buf) {
		return fmt.Errorf("socketcan: short envelope write: %d of %d bytes", n, len(buf))
	}
	return nil
}
