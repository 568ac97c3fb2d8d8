package executor

import "github.com/epochdb/epochdb/proto"

// ProtocolViolationError signals a broken safety invariant: a duplicate dot
// insert, a status regression, a double-execute. Per spec §7 this is fatal —
// callers are expected to panic or abort the process, not retry.
type ProtocolViolationError struct {
	Reason string
}

func (e *ProtocolViolationError) Error() string {
	return "protocol violation: " + e.Reason
}

// MissingDependencyError is the internal Tarjan signal of spec §4.4: not an
// error to the client, it means the traversal must abort, rewind, and either
// wait for the dot to arrive locally or issue a cross-shard Request.
type MissingDependencyError struct {
	Dot proto.Dot
}

func (e *MissingDependencyError) Error() string {
	return "missing dependency: " + e.Dot.String()
}
