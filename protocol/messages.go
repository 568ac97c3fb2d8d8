// Package protocol implements the Protocol State Machine of spec §4.3: the
// Basic (no dependency tracking) and dependency-set ("collect with clock")
// variants sharing one skeleton, per the "closed-ended variant set" design
// note (§9). Grounded on teacher_src/consensus/{manager_prepare,
// scope_accept,scope_commit}.go's fan-out-over-channels style and
// original_source's fantoch/src/protocol/basic.rs (Store/StoreAck/Commit)
// plus src/protocol/newt/mod.rs (Collect/CollectAck/QuorumClocks fast path).
package protocol

import (
	"github.com/epochdb/epochdb/keyclock"
	"github.com/epochdb/epochdb/proto"
)

// Basic variant messages (spec §6).

type StoreMsg struct {
	Dot     proto.Dot
	Command proto.Command
}

type StoreAckMsg struct {
	Dot proto.Dot
}

type CommitMsg struct {
	Dot     proto.Dot
	Command *proto.Command // optional: absent supports no-ops
	Clock   proto.VClock   // zero value for the basic variant
	Votes   []keyclock.VoteRange
}

type CommitDotMsg struct {
	Dot proto.Dot
}

// Dependency-set variant messages (spec §6).

type CollectMsg struct {
	Dot           proto.Dot
	Command       proto.Command
	ProposedClock uint64
}

type CollectAckMsg struct {
	Dot   proto.Dot
	Clock uint64
	Votes []keyclock.VoteRange
}

type PhantomMsg struct {
	Dot   proto.Dot
	Votes []keyclock.VoteRange
}

// Shared GC messages (spec §6).

type GarbageCollectionMsg struct {
	Committed proto.VClock
}

type StableRange struct {
	Process proto.ProcessId
	Low     uint64
	High    uint64
}

type StableMsg struct {
	Stable []StableRange
}
