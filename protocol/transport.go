package protocol

import "github.com/epochdb/epochdb/proto"

// Transport is the narrow outbound sending capability the protocol state
// machine consumes; wire serialization, connections and routing are out of
// scope (spec §1, §6) and live in whatever concrete transport a deployment
// picks (the simulation harness in package sim is one such transport).
type Transport interface {
	Send(to proto.ProcessId, msg interface{})
}

// ExecutionHandoff is how a committed command crosses from the protocol
// into the dependency graph executor (spec §4.4's Add). Kept as a narrow
// interface so protocol never depends on package executor directly.
type ExecutionHandoff interface {
	Add(dot proto.Dot, cmd proto.Command, clock proto.VClock)
}

// DirectExecutionHandoff is the execute_at_commit baseline bypass of
// SPEC_FULL.md's supplemented features: it applies a command straight to
// the KV store on commit, skipping dependency tracking entirely.
type DirectExecutionHandoff interface {
	ExecuteDirect(cmd proto.Command)
}
