// Package echo implements the receive/transform/transmit loop shared by the
// raw and BCM demo binaries. The loop is defined against the Pipe port so
// the two binaries differ only in framing, and tests run without kernel
// sockets.
package echo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/rs/zerolog"

	"github.com/jmcglad/socketcan-demo/internal/can"
)

// Pipe is one end of the bus as the engine sees it: a blocking,
// cancellable receive and transmit of whole frames.
type Pipe interface {
	Recv(ctx context.Context) (can.Frame, error)
	Send(ctx context.Context, f can.Frame) error
}

var (
	rxTag = color.New(color.FgGreen).SprintFunc()
	txTag = color.New(color.FgCyan).SprintFunc()
)

// Engine echoes frames: every received frame is dumped, its payload bytes
// incremented, its identifier replaced by TxID, and the result transmitted
// and dumped. Output ordering mirrors input ordering one-to-one.
type Engine struct {
	Pipe Pipe
	TxID uint32 // identifier stamped on every transmitted frame
	Log  zerolog.Logger
	Out  io.Writer // frame dumps; defaults to os.Stdout
}

// Run loops until ctx is cancelled or an I/O operation fails. Cancellation
// is not an error, and a non-cancellation failure has already been logged
// when Run returns, so the caller drains and exits cleanly either way.
func (e *Engine) Run(ctx context.Context) error {
	for {
		f, err := e.Pipe.Recv(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			e.Log.Error().Err(err).Msg("receive failed, draining")
			return nil
		}
		e.dump(rxTag("RX:"), f)

		f.Increment()
		f.ID = e.TxID
		f.Extended = false
		f.RTR = false

		if err := e.Pipe.Send(ctx, f); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			e.Log.Error().Err(err).Msg("transmit failed, draining")
			return nil
		}
		e.dump(txTag("TX:"), f)
	}
}

func (e *Engine) dump(tag string, f can.Frame) {
	out := e.Out
	if out == nil {
		out = os.Stdout
	}
	fmt.Fprintf(out, "%s  %s\n", tag, f)
}
