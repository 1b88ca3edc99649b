// Package can contains the core CAN entities for the demo suite.
//
// This package represents the innermost layer of the demos. It has no
// dependencies on infrastructure concerns (sockets, logging, CLI) and
// contains only the classical CAN frame value type, its SocketCAN binary
// layout, and the demo transform applied to echoed frames.
package can
