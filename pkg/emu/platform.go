// Package emu defines the capability surface the measurement pipeline needs
// from an emulation backend, and provides a docker/OVS implementation of it.
package emu

import (
	"context"

	"github.com/aditinnerkar/ans-ss25-copy/api"
)

// Proc is a handle on a command started inside an emulated host.
type Proc interface {
	// Output blocks until the command finishes or the context is done and
	// returns everything the command wrote to stdout.
	Output(ctx context.Context) (string, error)
}

// Platform is an emulated network under construction and, after Start, in
// operation. Nodes and links are registered first, then Start brings the
// data plane up; Exec and PingAll are only meaningful after Start.
type Platform interface {
	// CreateHost materializes a host node. The node's Addr is assigned to
	// its data-plane interface when the host is linked to a switch.
	CreateHost(ctx context.Context, node api.Node) error

	// CreateSwitch materializes a switch node.
	CreateSwitch(ctx context.Context, node api.Node) error

	// CreateLink wires two registered nodes together with the link's
	// rate, latency and loss applied on both directions.
	CreateLink(ctx context.Context, link api.Link) error

	// Start brings the registered network up and connects the switches to
	// their controller.
	Start(ctx context.Context) error

	// PingAll sends one ping between every ordered host pair and returns
	// the number of pairs that did not answer.
	PingAll(ctx context.Context) (int, error)

	// Exec starts cmd inside the named host and returns a handle to
	// collect its output.
	Exec(ctx context.Context, host string, cmd string) (Proc, error)

	// ExecDetached starts cmd inside the named host without keeping a
	// handle. Used for long-running servers that are torn down by name.
	ExecDetached(ctx context.Context, host string, cmd string) error

	// Stop tears the emulated network down.
	Stop(ctx context.Context) error

	// Cleanup sweeps the machine for leftovers of earlier runs, including
	// crashed ones, and removes them. It does not require Start.
	Cleanup(ctx context.Context) error
}
