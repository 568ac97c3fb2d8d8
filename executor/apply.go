package executor

import (
	"github.com/epochdb/epochdb/kvstore"
	"github.com/epochdb/epochdb/proto"
)

// Apply executes every SCC emitted by Graph.Add/RequestReply against store,
// in the deterministic order required by spec §4.5: dots within an SCC in
// ascending Dot order (already guaranteed by the Finder), and within each
// command, keys in ascending order. It returns one Partial per (dot, key)
// application, ready to feed a pending.Aggregator.
func Apply(sccs []SCC, store kvstore.Store) []proto.Partial {
	var partials []proto.Partial
	for _, scc := range sccs {
		for _, member := range scc {
			for _, key := range member.Command.Keys() {
				op := member.Command.Ops[key]
				prior, found := store.Execute(key, op)
				partials = append(partials, proto.Partial{
					Rifl:  member.Command.Rifl,
					Key:   key,
					Prior: prior,
					Found: found,
				})
			}
		}
	}
	return partials
}
