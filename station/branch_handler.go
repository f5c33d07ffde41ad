package station

import (
	"github.com/archsim/tomasulo/isa"
	"github.com/archsim/tomasulo/regfile"
	"github.com/archsim/tomasulo/tag"
)

// BranchHandler holds at most one outstanding conditional branch (§3, §4.8:
// "only one branch may be outstanding; the core stalls dispatch of any
// instruction following a branch until that branch has been evaluated").
type BranchHandler struct {
	tag   tag.Tag
	state State

	op     isa.Opcode
	vj, vk float64
	qj, qk tag.Tag

	currentPC int64
	targetPC  int64

	taken  bool
	nextPC int64
}

// NewBranchHandler creates a free branch handler permanently identified by t.
func NewBranchHandler(t tag.Tag) *BranchHandler {
	return &BranchHandler{tag: t, state: Free}
}

func (bh *BranchHandler) Tag() tag.Tag    { return bh.tag }
func (bh *BranchHandler) Busy() bool      { return bh.state != Free }
func (bh *BranchHandler) State() State    { return bh.state }
func (bh *BranchHandler) Taken() bool     { return bh.taken }
func (bh *BranchHandler) NextPC() int64   { return bh.nextPC }
func (bh *BranchHandler) TargetPC() int64 { return bh.targetPC }

// Issue installs a BEQ/BNE at currentPC, whose target is currentPC plus
// the instruction's branch displacement (§4.8). Operands are renamed
// exactly as for a ReservationStation.
func (bh *BranchHandler) Issue(inst isa.Instruction, currentPC int64, rf *regfile.RegisterFile) {
	bh.state = Issued
	bh.op = inst.Op
	bh.currentPC = currentPC
	bh.targetPC = currentPC + inst.Offset

	if rf.Producer(inst.SrcReg1).IsNone() {
		bh.vj = rf.Value(inst.SrcReg1)
		bh.qj = tag.NONE
	} else {
		bh.qj = rf.Producer(inst.SrcReg1)
	}
	if rf.Producer(inst.SrcReg2).IsNone() {
		bh.vk = rf.Value(inst.SrcReg2)
		bh.qk = tag.NONE
	} else {
		bh.qk = rf.Producer(inst.SrcReg2)
	}
}

// AdvanceIssued performs the one-cycle ISSUED transition: Ready once both
// operands are resolved, else WaitingForOperands.
func (bh *BranchHandler) AdvanceIssued() {
	if bh.state != Issued {
		return
	}
	if bh.qj.IsNone() && bh.qk.IsNone() {
		bh.state = Ready
	} else {
		bh.state = WaitingForOperands
	}
}

// WaitsOn reports whether this busy handler's Qj or Qk currently equals t.
func (bh *BranchHandler) WaitsOn(t tag.Tag) bool {
	return bh.Busy() && (bh.qj == t || bh.qk == t)
}

// WouldBeReadyIfCaptured reports whether capturing tag t would leave this
// handler with no outstanding operand, for the CDB arbiter's tie-break.
func (bh *BranchHandler) WouldBeReadyIfCaptured(t tag.Tag) bool {
	if !bh.Busy() {
		return false
	}
	qj, qk := bh.qj, bh.qk
	if qj == t {
		qj = tag.NONE
	}
	if qk == t {
		qk = tag.NONE
	}
	return qj.IsNone() && qk.IsNone()
}

// CaptureBroadcast captures an operand off the CDB (§4.3).
func (bh *BranchHandler) CaptureBroadcast(t tag.Tag, value float64) {
	if bh.qj == t {
		bh.qj = tag.NONE
		bh.vj = value
	}
	if bh.qk == t {
		bh.qk = tag.NONE
		bh.vk = value
	}
	if bh.state == WaitingForOperands && bh.qj.IsNone() && bh.qk.IsNone() {
		bh.state = Ready
	}
}

// Evaluate resolves a Ready branch in the branch-evaluate phase (§4.1
// phase 6): BEQ is taken when Vj == Vk, BNE when Vj != Vk. It records the
// outcome and returns the resolved next PC; the core uses it to redirect
// fetch. Nothing younger than the branch has been issued by then, so
// there is nothing to flush.
func (bh *BranchHandler) Evaluate() int64 {
	if bh.state != Ready {
		return bh.currentPC + 1
	}
	switch bh.op {
	case isa.OpBEQ:
		bh.taken = bh.vj == bh.vk
	case isa.OpBNE:
		bh.taken = bh.vj != bh.vk
	}
	if bh.taken {
		bh.nextPC = bh.targetPC
	} else {
		bh.nextPC = bh.currentPC + 1
	}
	return bh.nextPC
}

// Free returns this handler to Free, once evaluated.
func (bh *BranchHandler) Free() {
	bh.state = Free
	bh.op = isa.OpNone
	bh.vj, bh.vk = 0, 0
	bh.qj, bh.qk = tag.NONE, tag.NONE
	bh.currentPC, bh.targetPC = 0, 0
	bh.taken = false
	bh.nextPC = 0
}
