package table

import (
	"sync"

	"github.com/epochdb/epochdb/keyclock"
	"github.com/epochdb/epochdb/proto"
)

// Info is the per-dot CommandInfo of spec §3: status, the (possibly still
// absent) command payload, fast-quorum bookkeeping for the basic variant,
// and clock/votes aggregation for the dependency-set variant. Grounded on
// teacher_src/consensus/scope.go's Instance plus the per-dot condition
// variables (`commitNotify`/`executeNotify`) it uses to wake up waiters.
type Info struct {
	mu sync.Mutex

	status Status

	// command is nil until the first message mentioning this dot arrives.
	// Once set it is never replaced (spec §3 invariant).
	command *proto.Command

	// missingAcks is the basic variant's outstanding fast-quorum ack count.
	missingAcks int

	// clock is the dependency-set variant's committed ordering constraint.
	clock proto.VClock

	// quorumClocks aggregates CollectAck replies at the coordinator only.
	quorumClocks *keyclock.QuorumClocks

	commitCond  *sync.Cond
	executeCond *sync.Cond
}

func newInfo() *Info {
	i := &Info{}
	i.commitCond = sync.NewCond(&i.mu)
	i.executeCond = sync.NewCond(&i.mu)
	return i
}

// SetCommand stores the command payload the first time it's seen. Per spec
// §3, the payload is immutable once non-empty; a second, different payload
// for the same dot is a protocol violation the caller should treat as fatal.
func (i *Info) SetCommand(cmd proto.Command) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.command == nil {
		c := cmd
		i.command = &c
	}
}

// Command returns the stored payload, or nil if none has arrived yet.
func (i *Info) Command() *proto.Command {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.command
}

// SetMissingAcks initializes the basic variant's fast-quorum ack counter.
func (i *Info) SetMissingAcks(n int) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.missingAcks = n
}

// DecrementMissingAcks records one ack and returns the remaining count.
func (i *Info) DecrementMissingAcks() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.missingAcks > 0 {
		i.missingAcks--
	}
	return i.missingAcks
}

// SetClock stores the dependency-set variant's committed clock.
func (i *Info) SetClock(clock proto.VClock) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.clock = clock
}

// Clock returns the committed clock (zero value if unset).
func (i *Info) Clock() proto.VClock {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.clock
}

// EnsureQuorumClocks lazily creates the coordinator-only QuorumClocks
// aggregator for this dot, sized to quorumSize.
func (i *Info) EnsureQuorumClocks(quorumSize int) *keyclock.QuorumClocks {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.quorumClocks == nil {
		i.quorumClocks = keyclock.NewQuorumClocks(quorumSize)
	}
	return i.quorumClocks
}

// Advance moves the entry to status s if s is further along than the
// current status; advancing backwards is ignored (callers that need to
// detect a regression should compare Status() themselves first).
func (i *Info) Advance(s Status) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if s > i.status {
		i.status = s
		if s == Commit {
			i.commitCond.Broadcast()
		} else if s == Executed {
			i.executeCond.Broadcast()
		}
	}
}

// WaitCommitted blocks until Status() >= Commit.
func (i *Info) WaitCommitted() {
	i.mu.Lock()
	defer i.mu.Unlock()
	for i.status < Commit {
		i.commitCond.Wait()
	}
}

// Status reads the current lifecycle stage under lock. Callers use this to
// recognize a redelivered message for a dot that has already advanced past
// the status the message would otherwise cause, and treat it as a stale,
// idempotent no-op (spec §7) instead of reapplying work.
func (i *Info) Status() Status {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.status
}
