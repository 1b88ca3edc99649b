// Package socketcan owns the kernel-facing side of the demos: the CAN
// socket session (raw or broadcast-manager) and the framing adapters that
// turn its byte I/O into frames for the echo engine.
package socketcan
