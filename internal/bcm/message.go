// Package bcm builds and parses the message envelopes exchanged with a
// SocketCAN broadcast-manager socket.
//
// Every command written to, and every notification read from, a CAN_BCM
// socket is a struct bcm_msg_head followed by zero or more can_frame
// records. The head carries the opcode, timer configuration and the declared
// frame count; the kernel rejects messages whose declared count does not
// match the bytes that follow.
package bcm

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/jmcglad/socketcan-demo/internal/can"
)

// Opcode identifies a broadcast-manager command or notification.
// Values from linux/can/bcm.h.
type Opcode uint32

const (
	// TxSetup creates or updates a cyclic transmission task.
	TxSetup Opcode = 1
	// TxDelete removes a cyclic transmission task.
	TxDelete Opcode = 2
	// TxRead requests the properties of a cyclic transmission task.
	TxRead Opcode = 3
	// TxSend transmits the embedded frames once.
	TxSend Opcode = 4
	// RxSetup creates a receive filter subscription.
	RxSetup Opcode = 5
	// RxDelete removes a receive filter subscription.
	RxDelete Opcode = 6
	// RxRead requests the properties of a receive filter subscription.
	RxRead Opcode = 7
	// TxStatus answers a TxRead.
	TxStatus Opcode = 8
	// TxExpired notifies that a bounded cyclic task finished its count.
	TxExpired Opcode = 9
	// RxStatus answers an RxRead.
	RxStatus Opcode = 10
	// RxTimeout notifies that a monitored frame stopped arriving.
	RxTimeout Opcode = 11
	// RxChanged delivers a matched frame with changed content.
	RxChanged Opcode = 12
)

var opcodeNames = map[Opcode]string{
	TxSetup:   "TX_SETUP",
	TxDelete:  "TX_DELETE",
	TxRead:    "TX_READ",
	TxSend:    "TX_SEND",
	RxSetup:   "RX_SETUP",
	RxDelete:  "RX_DELETE",
	RxRead:    "RX_READ",
	TxStatus:  "TX_STATUS",
	TxExpired: "TX_EXPIRED",
	RxStatus:  "RX_STATUS",
	RxTimeout: "RX_TIMEOUT",
	RxChanged: "RX_CHANGED",
}

func (o Opcode) String() string {
	if s, ok := opcodeNames[o]; ok {
		return s
	}
	return fmt.Sprintf("Opcode(%d)", uint32(o))
}

// Flag bits for the envelope head, from linux/can/bcm.h.
const (
	SetTimer   uint32 = 0x0001
	StartTimer uint32 = 0x0002
)

// HeadLen is the size of struct bcm_msg_head for the 64-bit kernel ABI:
// three u32 words, 4 bytes of alignment padding, two struct timeval (each
// two 64-bit words), can_id and nframes.
const HeadLen = 56

// MaxFrames is the kernel's bound on frames per envelope.
const MaxFrames = 256

var (
	// ErrShortMessage is returned when a buffer cannot hold a full head.
	ErrShortMessage = errors.New("bcm: message shorter than envelope head")

	// ErrFrameCountMismatch is returned when the declared frame count does
	// not match the bytes following the head.
	ErrFrameCountMismatch = errors.New("bcm: frame count does not match payload")

	// ErrTooManyFrames is returned when a frame count exceeds MaxFrames.
	ErrTooManyFrames = errors.New("bcm: too many frames")
)

// Message is one broadcast-manager envelope: the head fields plus the
// embedded frame sequence. The nframes wire field is derived from
// len(Frames) on encode, so a count/sequence mismatch cannot be built.
type Message struct {
	Opcode Opcode
	Flags  uint32
	Count  uint32        // transmissions at Ival1 before switching to Ival2
	Ival1  time.Duration // first-phase interval
	Ival2  time.Duration // repeat interval
	ID     uint32        // target identifier; meaningful for filter setup
	Frames []can.Frame
}

// FilterSubscription returns the RX_SETUP envelope registering a receive
// filter for watchID. The single embedded frame is zero-initialized; the
// kernel matches on the identifier only.
func FilterSubscription(watchID uint32) Message {
	return Message{
		Opcode: RxSetup,
		ID:     watchID,
		Frames: []can.Frame{{}},
	}
}

// Transmit returns the TX_SEND envelope sending frame exactly once. The
// head identifier is left zero; it is not reused from any filter setup.
func Transmit(frame can.Frame) Message {
	return Message{
		Opcode: TxSend,
		Frames: []can.Frame{frame},
	}
}

// CyclicTransmission returns the TX_SETUP envelope registering a cyclic
// transmission of frames at the given repeat interval. The kernel starts
// the timer immediately and rotates through the frames one per tick. All
// frames share this one timer; per-frame timing needs one envelope each.
func CyclicTransmission(interval time.Duration, frames []can.Frame) Message {
	return Message{
		Opcode: TxSetup,
		Flags:  SetTimer | StartTimer,
		Ival2:  interval,
		Frames: frames,
	}
}

// Encode produces the head and all embedded frames in one buffer, so the
// caller can hand the envelope to the kernel in a single write.
func (m Message) Encode() ([]byte, error) {
	if len(m.Frames) > MaxFrames {
		return nil, fmt.Errorf("%w: %d", ErrTooManyFrames, len(m.Frames))
	}
	buf := make([]byte, HeadLen+len(m.Frames)*can.FrameLen)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(m.Opcode))
	binary.LittleEndian.PutUint32(buf[4:8], m.Flags)
	binary.LittleEndian.PutUint32(buf[8:12], m.Count)
	putTimeval(buf[16:32], m.Ival1)
	putTimeval(buf[32:48], m.Ival2)
	binary.LittleEndian.PutUint32(buf[48:52], m.ID)
	binary.LittleEndian.PutUint32(buf[52:56], uint32(len(m.Frames)))
	for i, f := range m.Frames {
		fb, err := f.MarshalBinary()
		if err != nil {
			return nil, fmt.Errorf("frame %d: %w", i, err)
		}
		copy(buf[HeadLen+i*can.FrameLen:], fb)
	}
	return buf, nil
}

// Decode parses an envelope received from the kernel. The declared frame
// count is validated against the actual buffer length.
func Decode(buf []byte) (Message, error) {
	var m Message
	if len(buf) < HeadLen {
		return m, fmt.Errorf("%w: %d bytes", ErrShortMessage, len(buf))
	}
	m.Opcode = Opcode(binary.LittleEndian.Uint32(buf[0:4]))
	m.Flags = binary.LittleEndian.Uint32(buf[4:8])
	m.Count = binary.LittleEndian.Uint32(buf[8:12])
	m.Ival1 = timeval(buf[16:32])
	m.Ival2 = timeval(buf[32:48])
	m.ID = binary.LittleEndian.Uint32(buf[48:52])

	nframes := binary.LittleEndian.Uint32(buf[52:56])
	if nframes > MaxFrames {
		return m, fmt.Errorf("%w: %d", ErrTooManyFrames, nframes)
	}
	if len(buf) != HeadLen+int(nframes)*can.FrameLen {
		return m, fmt.Errorf("%w: declared %d frames, got %d payload bytes",
			ErrFrameCountMismatch, nframes, len(buf)-HeadLen)
	}
	if nframes > 0 {
		m.Frames = make([]can.Frame, nframes)
		for i := range m.Frames {
			off := HeadLen + i*can.FrameLen
			if err := m.Frames[i].UnmarshalBinary(buf[off : off+can.FrameLen]); err != nil {
				return m, fmt.Errorf("frame %d: %w", i, err)
			}
		}
	}
	return m, nil
}

// putTimeval encodes a duration as a struct timeval (two signed 64-bit
// words: seconds, then microseconds).
func putTimeval(buf []byte, d time.Duration) {
	sec := d / time.Second
	usec := (d % time.Second) / time.Microsecond
	binary.LittleEndian.PutUint64(buf[0:8], uint64(sec))
	binary.LittleEndian.PutUint64(buf[8:16], uint64(usec))
}

func timeval(buf []byte) time.Duration {
	sec := int64(binary.LittleEndian.Uint64(buf[0:8]))
	usec := int64(binary.LittleEndian.Uint64(buf[8:16]))
	return time.Duration(sec)*time.Second + time.Duration(usec)*time.Microsecond
}
