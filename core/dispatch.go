package core

import (
	"github.com/archsim/tomasulo/cdb"
	"github.com/archsim/tomasulo/fu"
	"github.com/archsim/tomasulo/isa"
	"github.com/archsim/tomasulo/snapshot"
	"github.com/archsim/tomasulo/station"
)

// phase7Dispatch is §4.1 phase 7: assign each WAITING_FOR_FU station to a
// free functional unit of its class.
func (c *Core) phase7Dispatch() {
	dispatchPool := func(rss []*station.ReservationStation, fus []*fu.Unit) {
		for _, rs := range rss {
			if rs.State() != station.WaitingForFU {
				continue
			}
			u := firstFreeFU(fus)
			if u == nil {
				continue
			}
			u.Start(rs)
			rs.OnStartExecution()
			c.logf("%s started execution", rs.Tag())
		}
	}
	dispatchPool(c.intRS, c.intALU)
	dispatchPool(c.fpAddSubRS, c.fpAddSubFU)
	dispatchPool(c.fpMulDivRS, c.fpMulDivFU)
}

func firstFreeFU(fus []*fu.Unit) *fu.Unit {
	for _, u := range fus {
		if !u.Busy() {
			return u
		}
	}
	return nil
}

func (c *Core) freeRS(pool []*station.ReservationStation) *station.ReservationStation {
	for _, rs := range pool {
		if !rs.Busy() {
			return rs
		}
	}
	return nil
}

func (c *Core) freeLoadBuffer() *station.LoadBuffer {
	for _, lb := range c.loadBuffers {
		if !lb.Busy() {
			return lb
		}
	}
	return nil
}

func (c *Core) freeStoreBuffer() *station.StoreBuffer {
	for _, sb := range c.storeBuffers {
		if !sb.Busy() {
			return sb
		}
	}
	return nil
}

func (c *Core) freeBranchHandler() *station.BranchHandler {
	for _, bh := range c.branchHandlers {
		if !bh.Busy() {
			return bh
		}
	}
	return nil
}

func (c *Core) freeAddressUnit() *station.AddressUnit {
	for _, au := range c.addressUnits {
		if !au.Busy() {
			return au
		}
	}
	return nil
}

// phase8Issue is §4.1 phase 8: fetch the instruction at the head of the
// queue and issue it into the structure its class needs, stalling the
// queue head (not advancing PC) whenever that structure, or a branch
// already pending/taken this cycle, blocks it. Per the literal wording
// of phase 8 ("if a branch is already pending or was taken this cycle,
// defer"), a pending branch blocks issue of every instruction, not only
// a second branch — this core has no speculative issue or flush path
// (§4.8).
func (c *Core) phase8Issue() {
	if c.branchPending || c.branchTakenThisCycle {
		return
	}
	if c.pc < 0 || c.pc >= int64(len(c.program)) {
		return
	}
	inst := c.program[c.pc]

	switch {
	case isa.IsBranch(inst.Op):
		bh := c.freeBranchHandler()
		if bh == nil {
			return
		}
		bh.Issue(inst, c.pc, c.rf)
		c.branchPending = true
		c.logf("issued %s at pc=%d into %s", inst.Op, c.pc, bh.Tag())

	case isa.IsLoad(inst.Op):
		lb := c.freeLoadBuffer()
		au := c.freeAddressUnit()
		if lb == nil || au == nil {
			return
		}
		baseVal := c.rf.IntValue(inst.BaseReg)
		lb.Issue(inst, c.nextSeq, c.rf)
		c.nextSeq++
		au.Start(lb, baseVal, inst.Offset, c.cfg.AddressLatency)
		c.logf("issued %s at pc=%d into %s", inst.Op, c.pc, lb.Tag())

	case isa.IsStore(inst.Op):
		sb := c.freeStoreBuffer()
		au := c.freeAddressUnit()
		if sb == nil || au == nil {
			return
		}
		baseVal := c.rf.IntValue(inst.BaseReg)
		sb.Issue(inst, c.nextSeq, c.rf)
		c.nextSeq++
		au.Start(sb, baseVal, inst.Offset, c.cfg.AddressLatency)
		c.logf("issued %s at pc=%d into %s", inst.Op, c.pc, sb.Tag())

	default:
		pool := c.rsPoolFor(inst.Op)
		rs := c.freeRS(pool)
		if rs == nil {
			return
		}
		rs.Issue(inst, c.rf)
		c.logf("issued %s at pc=%d into %s", inst.Op, c.pc, rs.Tag())
	}

	c.pc++
}

func (c *Core) rsPoolFor(op isa.Opcode) []*station.ReservationStation {
	switch isa.ClassOf(op) {
	case isa.FUFPAddSub:
		return c.fpAddSubRS
	case isa.FUFPMulDiv:
		return c.fpMulDivRS
	default:
		return c.intRS
	}
}

// tallyUtilization increments this cycle's busy counters for every
// structure kind, a supplemented metric for judging pool sizing.
func (c *Core) tallyUtilization() {
	count := func(key string, n int) {
		if n > 0 {
			c.stats.StationUtilization[key] += uint64(n)
		}
	}
	count("int_rs", busyCount(c.intRS))
	count("fp_add_sub_rs", busyCount(c.fpAddSubRS))
	count("fp_mul_div_rs", busyCount(c.fpMulDivRS))
	count("load_buffer", busyLoadCount(c.loadBuffers))
	count("store_buffer", busyStoreCount(c.storeBuffers))
	count("branch_handler", busyBranchCount(c.branchHandlers))
	count("address_unit", busyAddressCount(c.addressUnits))
	count("int_alu", busyFUCount(c.intALU))
	count("fp_add_sub_fu", busyFUCount(c.fpAddSubFU))
	count("fp_mul_div_fu", busyFUCount(c.fpMulDivFU))
}

func busyCount(rss []*station.ReservationStation) int {
	n := 0
	for _, rs := range rss {
		if rs.Busy() {
			n++
		}
	}
	return n
}

func busyLoadCount(lbs []*station.LoadBuffer) int {
	n := 0
	for _, lb := range lbs {
		if lb.Busy() {
			n++
		}
	}
	return n
}

func busyStoreCount(sbs []*station.StoreBuffer) int {
	n := 0
	for _, sb := range sbs {
		if sb.Busy() {
			n++
		}
	}
	return n
}

func busyBranchCount(bhs []*station.BranchHandler) int {
	n := 0
	for _, bh := range bhs {
		if bh.Busy() {
			n++
		}
	}
	return n
}

func busyAddressCount(aus []*station.AddressUnit) int {
	n := 0
	for _, au := range aus {
		if au.Busy() {
			n++
		}
	}
	return n
}

func busyFUCount(fus []*fu.Unit) int {
	n := 0
	for _, u := range fus {
		if u.Busy() {
			n++
		}
	}
	return n
}

// phase9Snapshot is §4.1 phase 9: render the end-of-cycle machine state.
func (c *Core) phase9Snapshot(msg cdb.Message, broadcastOK bool) *snapshot.CycleSnapshot {
	var stations []snapshot.StationEntry
	for _, rs := range c.allRS {
		if !rs.Busy() {
			continue
		}
		stations = append(stations, snapshot.StationEntry{
			Tag: rs.Tag(), Kind: "RS", State: rs.State(), Op: rs.Opcode(),
			Dest: rs.DestReg(), Qj: rs.Qj(), Qk: rs.Qk(),
		})
	}
	for _, lb := range c.loadBuffers {
		if !lb.Busy() {
			continue
		}
		stations = append(stations, snapshot.StationEntry{
			Tag: lb.Tag(), Kind: "LOAD", State: lb.State(), Op: lb.Opcode(),
			Dest: lb.DestReg(), EA: lb.EffectiveAddress(),
		})
	}
	for _, sb := range c.storeBuffers {
		if !sb.Busy() {
			continue
		}
		stations = append(stations, snapshot.StationEntry{
			Tag: sb.Tag(), Kind: "STORE", State: sb.State(), Op: sb.Opcode(),
			EA: sb.EffectiveAddress(),
		})
	}
	for _, bh := range c.branchHandlers {
		if !bh.Busy() {
			continue
		}
		stations = append(stations, snapshot.StationEntry{
			Tag: bh.Tag(), Kind: "BRANCH", State: bh.State(),
		})
	}

	return &snapshot.CycleSnapshot{
		Cycle:     c.cycle,
		PC:        c.pc,
		Registers: snapshot.RegisterSnapshot(c.rf),
		Stations:  stations,
		Broadcast: snapshot.Broadcast{Happened: broadcastOK, Message: msg},
		Log:       append([]string(nil), c.log...),

		InstructionsCompleted: c.stats.InstructionsCompleted,
		CyclesElapsed:         c.cycle,
	}
}
