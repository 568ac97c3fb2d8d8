package protocol

import "errors"

// ErrNotCoordinator signals that a process is not eligible to act as
// coordinator (mirrors teacher_src's checkLocalScopeEligibility). Neither
// Basic.Submit nor DepSet.Submit returns it: both accept a submit on any
// process.
var ErrNotCoordinator = errors.New("protocol: this process is not the coordinator for this submit")

// ErrSlowPathRequired is returned by the dependency-set variant's collect
// phase when the fast-path condition fails (the max clock was not proposed
// by at least f quorum members). Per spec §9's open question, the slow path
// itself is out of scope; this sentinel lets callers detect and reject
// workloads that would otherwise need it, rather than silently
// miscommitting (DESIGN.md open-question decision 1).
var ErrSlowPathRequired = errors.New("protocol: fast path failed, slow path not implemented")

// ErrStaleMessage is returned (not panicked) for an idempotent duplicate,
// e.g. a Commit for an already-executed dot (spec §7).
var ErrStaleMessage = errors.New("protocol: stale message for already-executed dot")
