package can

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
)

// Identifier limits and can_id flag bits from linux/can.h.
const (
	MaxStdID = 0x7FF
	MaxExtID = 0x1FFFFFFF

	effFlag = 0x80000000
	rtrFlag = 0x40000000
)

// FrameLen is the size of struct can_frame on the wire (classical CAN MTU).
const FrameLen = 16

var (
	// ErrInvalidID is returned when an identifier exceeds its range.
	ErrInvalidID = errors.New("can: invalid identifier")

	// ErrInvalidLen is returned when a data length exceeds 8 bytes.
	ErrInvalidLen = errors.New("can: invalid data length")
)

// Frame represents a classical CAN (2.0A/2.0B) frame.
//
// Supported features:
//   - Standard (11-bit) and Extended (29-bit) identifiers
//   - Data frames and Remote Transmission Request (RTR)
//   - Data length 0-8 bytes
//
// CAN FD frame geometry is out of scope.
type Frame struct {
	ID       uint32 // 11-bit (std) or 29-bit (ext)
	Extended bool   // true for 29-bit identifier
	RTR      bool   // remote transmission request
	Len      uint8  // 0..8
	Data     [8]byte
}

// Validate returns an error if the frame is not valid.
func (f Frame) Validate() error {
	if f.Len > 8 {
		return ErrInvalidLen
	}
	max := uint32(MaxStdID)
	if f.Extended {
		max = MaxExtID
	}
	if f.ID > max {
		return ErrInvalidID
	}
	return nil
}

// Increment adds one, modulo 256, to each of the first Len payload bytes.
// There is no carry between bytes. Identifier, flags and length are
// unchanged.
func (f *Frame) Increment() {
	for i := uint8(0); i < f.Len && i < 8; i++ {
		f.Data[i]++
	}
}

// String renders the frame for console dumps: identifier in hex, bracketed
// length, then each significant payload byte in hex. For example:
//
//	123  [2]  AA BB
//
// Flag bits are never shown.
func (f Frame) String() string {
	var b strings.Builder
	if f.Extended {
		fmt.Fprintf(&b, "%08X  [%d]", f.ID, f.Len)
	} else {
		fmt.Fprintf(&b, "%03X  [%d]", f.ID, f.Len)
	}
	sep := "  "
	for i := uint8(0); i < f.Len && i < 8; i++ {
		fmt.Fprintf(&b, "%s%02X", sep, f.Data[i])
		sep = " "
	}
	return b.String()
}

// MarshalBinary encodes the frame to the Linux SocketCAN "struct can_frame"
// layout.
//
// Layout (little-endian; the kernel hands fields over in host byte order,
// which matches on the common Linux targets):
//
//	0..3  can_id (with EFF/RTR flag bits)
//	4     len
//	5..7  padding (zero)
//	8..15 data bytes
func (f Frame) MarshalBinary() ([]byte, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	id := f.ID
	if f.Extended {
		id |= effFlag
	}
	if f.RTR {
		id |= rtrFlag
	}
	buf := make([]byte, FrameLen)
	binary.LittleEndian.PutUint32(buf[0:4], id)
	buf[4] = f.Len
	copy(buf[8:8+f.Len], f.Data[:f.Len])
	return buf, nil
}

// UnmarshalBinary decodes a frame from the can_frame layout. The identifier
// is masked to its range, flag bits are extracted, and bytes beyond the
// declared length are zeroed.
func (f *Frame) UnmarshalBinary(data []byte) error {
	if len(data) < FrameLen {
		return fmt.Errorf("can: need %d bytes, got %d", FrameLen, len(data))
	}
	id := binary.LittleEndian.Uint32(data[0:4])
	f.Extended = id&effFlag != 0
	f.RTR = id&rtrFlag != 0
	if f.Extended {
		f.ID = id & MaxExtID
	} else {
		f.ID = id & MaxStdID
	}
	f.Len = data[4]
	if f.Len > 8 {
		return ErrInvalidLen
	}
	f.Data = [8]byte{}
	copy(f.Data[:f.Len], data[8:8+f.Len])
	return nil
}
