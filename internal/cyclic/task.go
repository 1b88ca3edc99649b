// Package cyclic builds and registers kernel-resident cyclic transmission
// tasks. After the single registration write, the kernel retransmits the
// task's frames on a rotating schedule for as long as the owning socket
// stays open; closing the socket is the only way to cancel.
package cyclic

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmcglad/socketcan-demo/internal/bcm"
	"github.com/jmcglad/socketcan-demo/internal/can"
)

var (
	// ErrNoFrames is returned for a task with a non-positive frame count.
	ErrNoFrames = errors.New("cyclic: at least one frame required")

	// ErrInterval is returned for an interval below the wire's microsecond
	// resolution.
	ErrInterval = errors.New("cyclic: interval must be at least one microsecond")
)

// Writer is the slice of the bus session the registrar needs.
type Writer interface {
	Write(ctx context.Context, buf []byte) (int, error)
}

// Task describes one cyclic transmission: Frames frames, frame i carrying
// identifier BaseID+i and Length payload bytes all set to i, retransmitted
// every Interval. One task means one timer; frames needing distinct timing
// belong in separate tasks.
type Task struct {
	BaseID   uint32
	Frames   int
	Length   int
	Interval time.Duration
}

// Validate checks the task against the frame and envelope invariants.
func (t Task) Validate() error {
	if t.Frames < 1 {
		return ErrNoFrames
	}
	if t.Frames > bcm.MaxFrames {
		return fmt.Errorf("%w: %d", bcm.ErrTooManyFrames, t.Frames)
	}
	if t.Length < 0 || t.Length > 8 {
		return fmt.Errorf("%w: %d", can.ErrInvalidLen, t.Length)
	}
	if t.Interval < time.Microsecond {
		return fmt.Errorf("%w: %v", ErrInterval, t.Interval)
	}
	if last := uint64(t.BaseID) + uint64(t.Frames) - 1; last > can.MaxStdID {
		return fmt.Errorf("%w: last identifier 0x%X", can.ErrInvalidID, last)
	}
	return nil
}

// Message builds the TX_SETUP envelope for the task.
func (t Task) Message() bcm.Message {
	frames := make([]can.Frame, t.Frames)
	for i := range frames {
		frames[i].ID = t.BaseID + uint32(i)
		frames[i].Len = uint8(t.Length)
		for j := 0; j < t.Length; j++ {
			frames[i].Data[j] = byte(i)
		}
	}
	return bcm.CyclicTransmission(t.Interval, frames)
}

// Register validates the task and submits it to the broadcast manager in
// one atomic write. It performs no further I/O; from here on the kernel is
// the sole actor.
func Register(ctx context.Context, w Writer, t Task) error {
	if err := t.Validate(); err != nil {
		return err
	}
	buf, err := t.Message().Encode()
	if err != nil {
		return fmt.Errorf("build cyclic envelope: %w", err)
	}
	n, err := w.Write(ctx, buf)
	if err != nil {
		return fmt.Errorf("register cyclic task: %w", err)
	}
	if n != len(buf) {
		return fmt.Errorf("register cyclic task: short write: %d of %d bytes", n, len(buf))
	}
	return nil
}
