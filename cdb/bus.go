package cdb

import (
	"sort"

	"github.com/archsim/tomasulo/tag"
)

// DependencyInfo answers the questions the arbiter's priority key needs
// about a candidate producer tag: how many busy structures are waiting on
// it, and how many of those would become immediately runnable (every
// other operand already resolved) the instant this tag broadcasts.
type DependencyInfo interface {
	DependentCount(t tag.Tag) int
	ReadyDependentCount(t tag.Tag) int
}

// entry is a message waiting to be arbitrated, carrying the sequence
// number it was first submitted with. A message deferred by one cycle's
// arbitration keeps its original seq, so it outranks any message first
// submitted in a later cycle once the primary/secondary keys tie — this
// is what makes deferred-but-unchosen results "carried with priority"
// rather than silently re-ordered behind fresher arrivals (§4.6).
type entry struct {
	msg Message
	seq uint64
}

// Bus is the single-writer Common Data Bus. At most one message broadcasts
// per cycle (§4.6); everything else ready that cycle is deferred, never
// dropped.
type Bus struct {
	pending []entry
	nextSeq uint64
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{}
}

// Submit adds a freshly-ready message to the arbitration pool. Call once
// per producer that finished this cycle, before Arbitrate.
func (b *Bus) Submit(msg Message) {
	b.pending = append(b.pending, entry{msg: msg, seq: b.nextSeq})
	b.nextSeq++
}

// Pending reports how many messages (freshly submitted plus carried over
// from previous cycles) are waiting for arbitration.
func (b *Bus) Pending() int {
	return len(b.pending)
}

// Arbitrate picks the single message to broadcast this cycle, using the
// three-key priority of §4.6: most direct dependents first, then most
// ready-dependents, then first-come-first-served. It removes the winner
// from the pending pool; everything else remains pending for next cycle.
// Returns ok=false if nothing is pending.
func (b *Bus) Arbitrate(info DependencyInfo) (Message, bool) {
	if len(b.pending) == 0 {
		return Message{}, false
	}

	type scored struct {
		entry
		dependents      int
		readyDependents int
	}

	scoredEntries := make([]scored, len(b.pending))
	for i, e := range b.pending {
		scoredEntries[i] = scored{
			entry:           e,
			dependents:      info.DependentCount(e.msg.Tag),
			readyDependents: info.ReadyDependentCount(e.msg.Tag),
		}
	}

	sort.SliceStable(scoredEntries, func(i, j int) bool {
		a, c := scoredEntries[i], scoredEntries[j]
		if a.dependents != c.dependents {
			return a.dependents > c.dependents
		}
		if a.readyDependents != c.readyDependents {
			return a.readyDependents > c.readyDependents
		}
		return a.seq < c.seq
	})

	winner := scoredEntries[0]

	remaining := make([]entry, 0, len(b.pending)-1)
	for _, e := range b.pending {
		if e.seq == winner.seq {
			continue
		}
		remaining = append(remaining, e)
	}
	b.pending = remaining

	return winner.msg, true
}
