package echo

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog"

	"github.com/jmcglad/socketcan-demo/internal/can"
)

// fakePipe scripts a sequence of received frames and records transmissions.
// Once the script is exhausted, Recv returns recvErr if set, otherwise it
// blocks until the context is done.
type fakePipe struct {
	script  []can.Frame
	recvErr error
	sendErr error
	sent    []can.Frame
}

func (p *fakePipe) Recv(ctx context.Context) (can.Frame, error) {
	if len(p.script) == 0 {
		if p.recvErr != nil {
			return can.Frame{}, p.recvErr
		}
		<-ctx.Done()
		return can.Frame{}, ctx.Err()
	}
	f := p.script[0]
	p.script = p.script[1:]
	return f, nil
}

func (p *fakePipe) Send(_ context.Context, f can.Frame) error {
	if p.sendErr != nil {
		return p.sendErr
	}
	p.sent = append(p.sent, f)
	return nil
}

func plainColor(t *testing.T) {
	t.Helper()
	old := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = old })
}

func TestEngine_TransformsAndReassignsID(t *testing.T) {
	plainColor(t)
	pipe := &fakePipe{
		script: []can.Frame{
			{ID: 0x123, Len: 3, Data: [8]byte{0x00, 0x7F, 0xFF}},
		},
		recvErr: context.Canceled,
	}
	eng := &Engine{Pipe: pipe, TxID: 0x0BC, Log: zerolog.Nop(), Out: &bytes.Buffer{}}

	if err := eng.Run(context.Background()); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if len(pipe.sent) != 1 {
		t.Fatalf("sent %d frames, want 1", len(pipe.sent))
	}
	got := pipe.sent[0]
	if got.ID != 0x0BC {
		t.Errorf("ID = %#X, want 0x0BC", got.ID)
	}
	if got.Len != 3 {
		t.Errorf("Len = %d, want 3", got.Len)
	}
	want := [8]byte{0x01, 0x80, 0x00}
	if got.Data != want {
		t.Errorf("Data = %X, want %X", got.Data, want)
	}
}

func TestEngine_DumpOrderingMirrorsInput(t *testing.T) {
	plainColor(t)
	pipe := &fakePipe{
		script: []can.Frame{
			{ID: 0x123, Len: 2, Data: [8]byte{0xAA, 0xBB}},
			{ID: 0x123, Len: 1, Data: [8]byte{0x10}},
		},
		recvErr: context.Canceled,
	}
	var out bytes.Buffer
	eng := &Engine{Pipe: pipe, TxID: 0x0CC, Log: zerolog.Nop(), Out: &out}

	if err := eng.Run(context.Background()); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	want := strings.Join([]string{
		"RX:  123  [2]  AA BB",
		"TX:  0CC  [2]  AB BC",
		"RX:  123  [1]  10",
		"TX:  0CC  [1]  11",
	}, "\n") + "\n"
	if out.String() != want {
		t.Errorf("dump output:\n%q\nwant:\n%q", out.String(), want)
	}
}

func TestEngine_CancellationDrainsCleanly(t *testing.T) {
	plainColor(t)
	pipe := &fakePipe{} // blocks until ctx is done
	eng := &Engine{Pipe: pipe, TxID: 0x0CC, Log: zerolog.Nop(), Out: &bytes.Buffer{}}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- eng.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() = %v, want nil on cancellation", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not return after cancellation")
	}
	if len(pipe.sent) != 0 {
		t.Errorf("sent %d frames, want 0", len(pipe.sent))
	}
}

func TestEngine_ReceiveFailureDrainsCleanly(t *testing.T) {
	plainColor(t)
	pipe := &fakePipe{recvErr: errors.New("device gone")}
	eng := &Engine{Pipe: pipe, TxID: 0x0CC, Log: zerolog.Nop(), Out: &bytes.Buffer{}}

	if err := eng.Run(context.Background()); err != nil {
		t.Errorf("Run() = %v, want nil on receive failure", err)
	}
}

func TestEngine_TransmitFailureDrainsCleanly(t *testing.T) {
	plainColor(t)
	pipe := &fakePipe{
		script:  []can.Frame{{ID: 0x123, Len: 1, Data: [8]byte{0x01}}},
		sendErr: errors.New("device gone"),
	}
	var out bytes.Buffer
	eng := &Engine{Pipe: pipe, TxID: 0x0CC, Log: zerolog.Nop(), Out: &out}

	if err := eng.Run(context.Background()); err != nil {
		t.Errorf("Run() = %v, want nil on transmit failure", err)
	}
	if got := out.String(); got != "RX:  123  [1]  01\n" {
		t.Errorf("dump output = %q, want the RX line only", got)
	}
}
