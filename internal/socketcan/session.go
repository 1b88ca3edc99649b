//go:build linux

package socketcan

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// Mode selects the protocol endpoint a Session speaks.
type Mode int

const (
	// Raw is a CAN_RAW socket: direct frame send/receive, no kernel
	// filtering or scheduling assistance.
	Raw Mode = iota
	// BroadcastManager is a CAN_BCM socket: commands and notifications
	// travel as bcm envelopes, and the kernel can filter and retransmit
	// autonomously.
	BroadcastManager
)

func (m Mode) String() string {
	switch m {
	case Raw:
		return "raw"
	case BroadcastManager:
		return "bcm"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

var (
	// ErrInterfaceNotFound is returned when the interface name does not
	// resolve to a kernel interface index.
	ErrInterfaceNotFound = errors.New("socketcan: interface not found")

	// ErrClosed is returned when I/O is attempted after Close.
	ErrClosed = errors.New("socketcan: session closed")
)

// pollTimeout bounds each readiness wait so context cancellation is
// observed promptly.
const pollTimeout = 100 * time.Millisecond

// Session owns one CAN socket bound (raw) or connected (BCM) to a network
// interface. It is not safe for concurrent use; the demos are strictly
// single-threaded.
type Session struct {
	fd      int
	ifindex int
	mode    Mode

	mu     sync.Mutex
	closed bool
}

// Open creates a socket of the requested mode, resolves ifaceName to an
// interface index, and binds (raw) or connects (BCM) to it. The descriptor
// is set non-blocking so Read and Write can honor context cancellation.
func Open(ifaceName string, mode Mode) (*Session, error) {
	var typ, proto int
	switch mode {
	case Raw:
		typ, proto = unix.SOCK_RAW, unix.CAN_RAW
	case BroadcastManager:
		typ, proto = unix.SOCK_DGRAM, unix.CAN_BCM
	default:
		return nil, fmt.Errorf("socketcan: unknown mode %d", int(mode))
	}

	fd, err := unix.Socket(unix.AF_CAN, typ, proto)
	if err != nil {
		return nil, fmt.Errorf("socket(AF_CAN): %w", err)
	}

	ifi, err := net.InterfaceByName(ifaceName)
	if err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("%w: %q: %v", ErrInterfaceNotFound, ifaceName, err)
	}

	sa := &unix.SockaddrCAN{Ifindex: ifi.Index}
	switch mode {
	case Raw:
		if err := unix.Bind(fd, sa); err != nil {
			_ = unix.Close(fd)
			return nil, fmt.Errorf("bind(can@%s): %w", ifaceName, err)
		}
	case BroadcastManager:
		if err := unix.Connect(fd, sa); err != nil {
			_ = unix.Close(fd)
			return nil, fmt.Errorf("connect(can@%s): %w", ifaceName, err)
		}
	}

	if err := unix.SetNonblock(fd, true); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("set nonblock: %w", err)
	}

	return &Session{fd: fd, ifindex: ifi.Index, mode: mode}, nil
}

// Ifindex returns the resolved kernel interface index.
func (s *Session) Ifindex() int { return s.ifindex }

// Mode returns the session's protocol mode.
func (s *Session) Mode() Mode { return s.mode }

// Read fills buf with one message from the socket, blocking until data is
// available or ctx is done. An interrupted wait is retried.
func (s *Session) Read(ctx context.Context, buf []byte) (int, error) {
	if s.isClosed() {
		return 0, ErrClosed
	}
	for {
		n, err := unix.Read(s.fd, buf)
		switch {
		case err == nil:
			return n, nil
		case errors.Is(err, unix.EAGAIN):
			if werr := s.wait(ctx, unix.POLLIN); werr != nil {
				return 0, werr
			}
		case errors.Is(err, unix.EINTR):
			// retry
		default:
			return 0, fmt.Errorf("read: %w", err)
		}
	}
}

// Write hands buf to the socket in one write, blocking until the socket is
// writable or ctx is done. An interrupted wait is retried.
func (s *Session) Write(ctx context.Context, buf []byte) (int, error) {
	if s.isClosed() {
		return 0, ErrClosed
	}
	for {
		n, err := unix.Write(s.fd, buf)
		switch {
		case err == nil:
			return n, nil
		case errors.Is(err, unix.EAGAIN):
			if werr := s.wait(ctx, unix.POLLOUT); werr != nil {
				return 0, werr
			}
		case errors.Is(err, unix.EINTR):
			// retry
		default:
			return 0, fmt.Errorf("write: %w", err)
		}
	}
}

// wait polls the descriptor for readiness in bounded slices, re-checking
// ctx between slices so cancellation cannot be missed.
func (s *Session) wait(ctx context.Context, events int16) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		fds := []unix.PollFd{{Fd: int32(s.fd), Events: events}}
		n, err := unix.Poll(fds, int(pollTimeout/time.Millisecond))
		switch {
		case err == nil:
			if n > 0 && fds[0].Revents != 0 {
				return nil
			}
		case errors.Is(err, unix.EINTR):
			// retry
		default:
			return fmt.Errorf("poll: %w", err)
		}
	}
}

// Close releases the socket. It is idempotent; the second and later calls
// are no-ops. Closing a BCM session cancels any cyclic task the kernel
// holds for it.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if err := unix.Close(s.fd); err != nil {
		return fmt.Errorf("close: %w", err)
	}
	return nil
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
