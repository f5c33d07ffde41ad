package core

import (
	"math"

	"github.com/archsim/tomasulo/cdb"
	"github.com/archsim/tomasulo/isa"
	"github.com/archsim/tomasulo/station"
	"github.com/archsim/tomasulo/tag"
)

func doubleBits(v float64) uint64 { return math.Float64bits(v) }

// phase1AdvanceTransitions is §4.1 phase 1: one-cycle ISSUED transitions,
// address unit countdown, and the re-checked-every-cycle memory ordering
// gate that moves a buffer into EXECUTING.
func (c *Core) phase1AdvanceTransitions() {
	for _, rs := range c.allRS {
		rs.AdvanceIssued()
	}
	for _, bh := range c.branchHandlers {
		bh.AdvanceIssued()
	}
	for _, au := range c.addressUnits {
		au.Tick()
	}

	for _, lb := range c.loadBuffers {
		permits := station.LoadOrderingPermits(lb, c.storeBuffers)
		lb.AdvanceMemoryOp(permits, c.loadCommitProbe(lb))
	}
	for _, sb := range c.storeBuffers {
		permits := station.StoreOrderingPermits(sb, c.storeBuffers, c.loadBuffers)
		sb.AdvanceMemoryOp(permits, c.storeCommitProbe(sb))
	}
}

// storeCommitProbe returns the closure a StoreBuffer calls exactly once,
// at the instant it transitions into EXECUTING: it performs the actual
// cache write now and returns the resulting access latency. §4.7 wants
// the hit/miss outcome determined "when the store becomes ready to
// commit"; writing the cache at that same instant (rather than only at
// the end of the commit latency) is a simplification documented as such —
// nothing else in the core observes cache contents except through a
// buffer's own busy/free lifecycle, which still spans the full latency
// either way.
func (c *Core) storeCommitProbe(sb *station.StoreBuffer) func() uint64 {
	return func() uint64 {
		if sb.Opcode() == isa.OpSW {
			res := c.cache.StoreWord(uint64(sb.EffectiveAddress()), uint32(int64(sb.Value())))
			return res.Latency
		}
		res := c.cache.StoreDouble(uint64(sb.EffectiveAddress()), sb.Value())
		return res.Latency
	}
}

// loadCommitProbe returns the closure a LoadBuffer calls exactly once, at
// the instant it transitions into EXECUTING: it reads the cache now,
// after §4.4 ordering has cleared it against every conflicting earlier
// store, and returns the value plus the resulting access latency. Doing
// this any earlier (e.g. eagerly at issue) would let a load observe a
// conflicting store's pre-commit memory state.
func (c *Core) loadCommitProbe(lb *station.LoadBuffer) func() (float64, uint64) {
	return func() (float64, uint64) {
		addr := uint64(lb.EffectiveAddress())
		if lb.Opcode() == isa.OpLW {
			word, res := c.cache.LoadWord(addr)
			return float64(int32(word)), res.Latency
		}
		d, res := c.cache.LoadDouble(addr)
		return d, res.Latency
	}
}

// phase2Execute is §4.1 phase 2: functional units and memory buffers tick
// down their remaining latency, submitting CDB messages and freeing
// themselves (stores; RS/load-buffer freeing is deferred to phase 5,
// keyed by the broadcast winner).
func (c *Core) phase2Execute() {
	for _, u := range c.allFUs {
		if !u.Busy() {
			continue
		}
		producer := u.Current()
		result, finished := u.Tick()
		if !finished {
			continue
		}
		c.bus.Submit(cdb.Message{Tag: producer.Tag(), Value: result, DestReg: producer.DestReg()})
		c.logf("%s finished execution, result %v", producer.Tag(), result)
	}

	for _, lb := range c.loadBuffers {
		if lb.State() != station.Executing {
			continue
		}
		lb.Tick()
		if lb.State() == station.ResultReady {
			c.bus.Submit(cdb.Message{Tag: lb.Tag(), Value: lb.Value(), DestReg: lb.DestReg()})
			c.logf("%s load finished, value %v", lb.Tag(), lb.Value())
		}
	}

	for _, sb := range c.storeBuffers {
		if sb.State() != station.Executing {
			continue
		}
		if sb.Tick() {
			c.logf("%s committed to cache", sb.Tag())
			sb.Free()
			c.stats.InstructionsCompleted++
		}
	}
}

// phase3Arbitrate is §4.1 phase 3: the CDB picks at most one message to
// broadcast this cycle using the dependency-informed priority of §4.6.
func (c *Core) phase3Arbitrate() (cdb.Message, bool) {
	return c.bus.Arbitrate(c)
}

// DependentCount implements cdb.DependencyInfo: how many busy structures
// currently wait on t.
func (c *Core) DependentCount(t tag.Tag) int {
	n := 0
	for _, rs := range c.allRS {
		if rs.WaitsOn(t) {
			n++
		}
	}
	for _, sb := range c.storeBuffers {
		if sb.WaitsOn(t) {
			n++
		}
	}
	for _, bh := range c.branchHandlers {
		if bh.WaitsOn(t) {
			n++
		}
	}
	return n
}

// ReadyDependentCount implements cdb.DependencyInfo: how many of those
// dependents would have every operand resolved the instant t broadcasts.
func (c *Core) ReadyDependentCount(t tag.Tag) int {
	n := 0
	for _, rs := range c.allRS {
		if rs.WouldBeReadyIfCaptured(t) {
			n++
		}
	}
	for _, sb := range c.storeBuffers {
		if sb.WouldBeReadyIfCaptured(t) {
			n++
		}
	}
	for _, bh := range c.branchHandlers {
		if bh.WouldBeReadyIfCaptured(t) {
			n++
		}
	}
	return n
}

// phase4Broadcast is §4.1 phase 4: deliver the chosen message to the
// register file (stale writes suppressed) and every waiting structure.
func (c *Core) phase4Broadcast(msg cdb.Message, ok bool) {
	if !ok {
		return
	}
	if msg.DestReg >= 0 {
		if c.rf.ClearProducerIfMatches(msg.DestReg, msg.Tag) {
			c.rf.SetValue(msg.DestReg, msg.Value)
		}
	}
	for _, rs := range c.allRS {
		rs.CaptureBroadcast(msg.Tag, msg.Value)
	}
	for _, sb := range c.storeBuffers {
		sb.CaptureBroadcast(msg.Tag, msg.Value)
	}
	for _, bh := range c.branchHandlers {
		bh.CaptureBroadcast(msg.Tag, msg.Value)
	}
	c.logf("%s broadcast value %v", msg.Tag, msg.Value)
}

// phase5FreeProducer is §4.1 phase 5: the RS or load buffer whose tag
// just broadcast returns to FREE.
func (c *Core) phase5FreeProducer(msg cdb.Message, ok bool) {
	if !ok {
		return
	}
	for _, rs := range c.allRS {
		if rs.Tag() == msg.Tag {
			rs.Free()
			c.stats.InstructionsCompleted++
			return
		}
	}
	for _, lb := range c.loadBuffers {
		if lb.Tag() == msg.Tag {
			lb.Free()
			c.stats.InstructionsCompleted++
			return
		}
	}
}

// phase6EvaluateBranches is §4.1 phase 6: resolve any READY branch,
// flushing and reloading the instruction queue on a taken outcome.
func (c *Core) phase6EvaluateBranches() {
	c.branchTakenThisCycle = false
	for _, bh := range c.branchHandlers {
		if bh.State() != station.Ready {
			continue
		}
		next := bh.Evaluate()
		if bh.Taken() {
			c.pc = next
			c.branchTakenThisCycle = true
			c.logf("%s branch taken -> %d", bh.Tag(), next)
		} else {
			c.logf("%s branch not taken", bh.Tag())
		}
		c.branchPending = false
		bh.Free()
		c.stats.InstructionsCompleted++
	}
}

