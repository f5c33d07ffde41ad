// Package snapshot defines the immutable per-cycle record the core emits
// for external observation (§6): the full machine state at the end of
// one cycle's nine phases, plus a short log of what happened during it.
package snapshot

import (
	"github.com/archsim/tomasulo/cdb"
	"github.com/archsim/tomasulo/isa"
	"github.com/archsim/tomasulo/regfile"
	"github.com/archsim/tomasulo/station"
	"github.com/archsim/tomasulo/tag"
)

// StationEntry renders one reservation station's/buffer's/handler's
// externally visible state. Not every field applies to every Kind; see
// Core.phase9Snapshot in core for which ones are populated.
type StationEntry struct {
	Tag    tag.Tag
	Kind   string // "RS", "LOAD", "STORE", "BRANCH"
	State  station.State
	Op     isa.Opcode
	Dest   int
	Qj, Qk tag.Tag
	EA     int64
}

// RegisterEntry renders one register's value and outstanding producer.
type RegisterEntry struct {
	Index    int
	Value    float64
	Producer tag.Tag
}

// Broadcast records the single CDB message that won arbitration this
// cycle, if any.
type Broadcast struct {
	Happened bool
	Message  cdb.Message
}

// CycleSnapshot is the state of the core at the end of one cycle, handed
// to a caller after every Core.Tick (§6): the PC, every register, every
// busy station/buffer/handler, the CDB broadcast and the log. Functional
// units, address units and cache lines are not included.
type CycleSnapshot struct {
	Cycle uint64
	PC    int64

	Registers []RegisterEntry
	Stations  []StationEntry
	Broadcast Broadcast

	// Log holds short, human-readable entries describing what happened
	// this cycle ("issued DADD at pc=0 into I0", "I0 broadcast value 3",
	// "B0 branch taken -> 3"), in the order phases ran.
	Log []string

	InstructionsCompleted uint64
	CyclesElapsed         uint64
}

// RegisterSnapshot builds the RegisterEntry slice for one cycle from the
// current register file.
func RegisterSnapshot(rf *regfile.RegisterFile) []RegisterEntry {
	regs := rf.Snapshot()
	entries := make([]RegisterEntry, len(regs))
	for i, r := range regs {
		entries[i] = RegisterEntry{Index: i, Value: r.Value, Producer: r.Producer}
	}
	return entries
}
