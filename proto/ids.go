// Package proto holds the data model shared by every other package: process
// and shard identifiers, dots, rifls, keys, ops, commands and vector clocks.
package proto

import "fmt"

// ProcessId identifies a replica. Small positive integer, unique per cluster.
type ProcessId uint64

// ShardId tags a shard a process belongs to.
type ShardId uint64

// Dot is the globally unique, totally ordered command identifier described
// in spec §3: a pair (ProcessId, Sequence). Sequence starts at 1 and is
// monotonically increasing per process.
type Dot struct {
	Source   ProcessId
	Sequence uint64
}

// NewDot builds a Dot. Exported mainly for tests and cross-shard replies;
// production code obtains dots from process.Process.NextDot.
func NewDot(source ProcessId, sequence uint64) Dot {
	return Dot{Source: source, Sequence: sequence}
}

// Less gives the total order over dots: by Source then Sequence.
func (d Dot) Less(o Dot) bool {
	if d.Source != o.Source {
		return d.Source < o.Source
	}
	return d.Sequence < o.Sequence
}

func (d Dot) String() string {
	return fmt.Sprintf("%d.%d", d.Source, d.Sequence)
}

// ClientId identifies a client. Generated with google/uuid by the simulation
// harness and CLI; opaque to the core.
type ClientId string

// Rifl is a client-issued command identifier: (ClientId, ClientSequence).
type Rifl struct {
	ClientId       ClientId
	ClientSequence uint64
}

func NewRifl(client ClientId, seq uint64) Rifl {
	return Rifl{ClientId: client, ClientSequence: seq}
}

func (r Rifl) String() string {
	return fmt.Sprintf("%s:%d", r.ClientId, r.ClientSequence)
}
