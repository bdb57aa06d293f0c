// Package channel implements ordered, per-frequency messaging between the
// two peers using nothing but the shared ledger.
//
// Each peer owns one mailbox per frequency: a queue slot and a lock slot on
// the ledger. The owner drains its queue; the other peer appends to it. The
// lock is a tri-state value (free, held by inject, held by content) and is
// purely cooperative: the medium itself would accept any write.
//
// # Protocol
//
// Startup (once per channel per peer): unless the other peer holds this
// peer's lock, claim it, dispatch every queued message in order, clear the
// queue and release it.
//
// Send: if the owner holds the target lock, or earlier messages are still
// buffered, append to the local pending outbox. Otherwise claim the target
// lock, append to the queue and release it.
//
// Reactive transition: on a lock write from held-by-other to free that
// still reads free, drain if the lock is this peer's own, or flush the
// pending outbox as one block if it is the other peer's. A peer never acts
// on its own releases.
//
// Dispatch hands each message to every receiver in registration order, or
// keeps it in the backlog when none is registered. The backlog goes to the
// first receiver ever registered and to no one else.
//
// # Concurrency
//
// All protocol steps run as tasks on the peer's loop.Loop. Ledger
// notifications are posted to the loop in write order, so a peer reacts to
// changes one at a time and never from inside another peer's write.
//
// Checking and claiming a lock are two separate writes. If both peers run
// truly in parallel, a send that reads "free" can interleave with the
// owner's drain. Callers that need delivery guarantees under parallel loops
// must not send while the other side is draining; the in-process host runs
// loops in lockstep for that reason.
package channel
