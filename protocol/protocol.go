package protocol

import "github.com/epochdb/epochdb/proto"

// Protocol is the capability both variants implement, per the "closed-ended
// variant set" design note (§9): Basic and DepSet share this skeleton, each
// owning its own message set, but a caller that only needs to submit
// commands and shuttle GC traffic can stay variant-agnostic.
type Protocol interface {
	Submit(cmd proto.Command) (proto.Dot, error)
	HandleGarbageCollection(from proto.ProcessId, committed proto.VClock)
	HandleStable(stable proto.VClock)
}

var (
	_ Protocol = (*Basic)(nil)
	_ Protocol = (*DepSet)(nil)
)
