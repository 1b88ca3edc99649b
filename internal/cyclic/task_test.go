package cyclic

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jmcglad/socketcan-demo/internal/bcm"
	"github.com/jmcglad/socketcan-demo/internal/can"
)

func defaultTask() Task {
	return Task{BaseID: 0x0C0, Frames: 4, Length: 3, Interval: 1200 * time.Millisecond}
}

func TestTask_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Task)
		wantErr error
	}{
		{"default ok", func(*Task) {}, nil},
		{"no frames", func(tk *Task) { tk.Frames = 0 }, ErrNoFrames},
		{"too many frames", func(tk *Task) { tk.BaseID = 0; tk.Frames = bcm.MaxFrames + 1 }, bcm.ErrTooManyFrames},
		{"length too large", func(tk *Task) { tk.Length = 9 }, can.ErrInvalidLen},
		{"interval below resolution", func(tk *Task) { tk.Interval = 500 * time.Nanosecond }, ErrInterval},
		{"zero interval", func(tk *Task) { tk.Interval = 0 }, ErrInterval},
		{"last identifier out of range", func(tk *Task) { tk.BaseID = 0x7FE; tk.Frames = 4 }, can.ErrInvalidID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tk := defaultTask()
			tt.mutate(&tk)
			if err := tk.Validate(); !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestTask_Message(t *testing.T) {
	m := defaultTask().Message()

	if m.Opcode != bcm.TxSetup {
		t.Errorf("Opcode = %v, want TX_SETUP", m.Opcode)
	}
	if m.Flags != bcm.SetTimer|bcm.StartTimer {
		t.Errorf("Flags = %#X, want SetTimer|StartTimer", m.Flags)
	}
	if m.Count != 0 {
		t.Errorf("Count = %d, want 0", m.Count)
	}
	if m.Ival2 != 1200*time.Millisecond {
		t.Errorf("Ival2 = %v, want 1.2s", m.Ival2)
	}
	if len(m.Frames) != 4 {
		t.Fatalf("len(Frames) = %d, want 4", len(m.Frames))
	}
	for i, f := range m.Frames {
		if f.ID != 0x0C0+uint32(i) {
			t.Errorf("frame %d ID = %#X, want %#X", i, f.ID, 0x0C0+uint32(i))
		}
		if f.Len != 3 {
			t.Errorf("frame %d Len = %d, want 3", i, f.Len)
		}
		for j := 0; j < 3; j++ {
			if f.Data[j] != byte(i) {
				t.Errorf("frame %d Data[%d] = %d, want %d", i, j, f.Data[j], i)
			}
		}
	}
}

func TestTask_MessageWireInterval(t *testing.T) {
	buf, err := defaultTask().Message().Encode()
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}
	got, err := bcm.Decode(buf)
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	// 1.2s must cross the wire as sec=1 usec=200000, 1200000us total.
	if got.Ival2 != 1200000*time.Microsecond {
		t.Errorf("Ival2 = %v, want 1200000us", got.Ival2)
	}
}

type recordingWriter struct {
	buf      []byte
	shortBy  int
	writeErr error
}

func (w *recordingWriter) Write(_ context.Context, buf []byte) (int, error) {
	if w.writeErr != nil {
		return 0, w.writeErr
	}
	w.buf = append([]byte(nil), buf...)
	return len(buf) - w.shortBy, nil
}

func TestRegister(t *testing.T) {
	w := &recordingWriter{}
	if err := Register(context.Background(), w, defaultTask()); err != nil {
		t.Fatalf("Register() error: %v", err)
	}
	if wantLen := bcm.HeadLen + 4*can.FrameLen; len(w.buf) != wantLen {
		t.Fatalf("wrote %d bytes, want %d", len(w.buf), wantLen)
	}
	m, err := bcm.Decode(w.buf)
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if m.Opcode != bcm.TxSetup || len(m.Frames) != 4 {
		t.Errorf("registered %v with %d frames, want TX_SETUP with 4", m.Opcode, len(m.Frames))
	}
}

func TestRegister_InvalidTask(t *testing.T) {
	w := &recordingWriter{}
	tk := defaultTask()
	tk.Frames = 0
	if err := Register(context.Background(), w, tk); !errors.Is(err, ErrNoFrames) {
		t.Errorf("Register() = %v, want ErrNoFrames", err)
	}
	if w.buf != nil {
		t.Error("Register() wrote despite invalid task")
	}
}

func TestRegister_ShortWrite(t *testing.T) {
	w := &recordingWriter{shortBy: 1}
	if err := Register(context.Background(), w, defaultTask()); err == nil {
		t.Error("Register() expected error on short write")
	}
}

func TestRegister_WriteFailure(t *testing.T) {
	w := &recordingWriter{writeErr: errors.New("not connected")}
	if err := Register(context.Background(), w, defaultTask()); err == nil {
		t.Error("Register() expected error on write failure")
	}
}
