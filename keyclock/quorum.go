package keyclock

import (
	"sync"

	"github.com/epochdb/epochdb/proto"
)

// QuorumClocks tracks, per dot, the coordinator-side aggregation of
// CollectAck replies: the set of contributing processes, the maximum clock
// proposed, and how many replies proposed that maximum (spec §4.3).
type QuorumClocks struct {
	mu           sync.Mutex
	quorumSize   int
	contributors map[proto.ProcessId]struct{}
	maxClock     uint64
	maxCount     int
	votes        []VoteRange
}

func NewQuorumClocks(quorumSize int) *QuorumClocks {
	return &QuorumClocks{
		quorumSize:   quorumSize,
		contributors: make(map[proto.ProcessId]struct{}),
	}
}

// Add records pid's proposed clock and votes. Returns the running
// (maxClock, maxCount) after incorporating this reply. A duplicate
// contribution from the same pid is rejected (third return value false).
func (q *QuorumClocks) Add(pid proto.ProcessId, clock uint64, votes []VoteRange) (maxClock uint64, maxCount int, accepted bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, dup := q.contributors[pid]; dup {
		return q.maxClock, q.maxCount, false
	}
	q.contributors[pid] = struct{}{}
	q.votes = append(q.votes, votes...)

	switch {
	case clock > q.maxClock:
		q.maxClock = clock
		q.maxCount = 1
	case clock == q.maxClock:
		q.maxCount++
	}
	return q.maxClock, q.maxCount, true
}

// All reports whether every fast-quorum member has contributed.
func (q *QuorumClocks) All() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.contributors) == q.quorumSize
}

// Votes returns every vote range collected so far.
func (q *QuorumClocks) Votes() []VoteRange {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]VoteRange, len(q.votes))
	copy(out, q.votes)
	return out
}

// FastPathOK reports whether the maximum clock was proposed by at least f
// members, the fast-path condition of spec §4.3.
func (q *QuorumClocks) FastPathOK(f int) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.maxCount >= f
}
