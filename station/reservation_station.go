package station

import (
	"github.com/archsim/tomasulo/isa"
	"github.com/archsim/tomasulo/regfile"
	"github.com/archsim/tomasulo/tag"
)

// ReservationStation holds an issued arithmetic/logical instruction from
// issue until its result has been broadcast on the CDB (§3).
//
// Invariants enforced by the methods below, never by an external caller
// reaching into the fields: Busy() <=> State() != Free; when State() ==
// WaitingForFU, both Qj and Qk are tag.NONE.
type ReservationStation struct {
	tag   tag.Tag
	class isa.FUClass
	state State

	op      isa.Opcode
	vj, vk  float64
	qj, qk  tag.Tag
	destReg int
	imm     int64
}

// New creates a free reservation station of the given functional unit
// class, permanently identified by t.
func New(t tag.Tag, class isa.FUClass) *ReservationStation {
	return &ReservationStation{tag: t, class: class, state: Free}
}

// Tag returns this station's permanent identity.
func (rs *ReservationStation) Tag() tag.Tag { return rs.tag }

// Class returns the functional unit class this station issues to.
func (rs *ReservationStation) Class() isa.FUClass { return rs.class }

// Busy reports whether the station currently holds an instruction.
func (rs *ReservationStation) Busy() bool { return rs.state != Free }

// State returns the station's current FSM state.
func (rs *ReservationStation) State() State { return rs.state }

// DestReg returns the flat register index this station will write, or -1.
func (rs *ReservationStation) DestReg() int { return rs.destReg }

// Opcode implements fu.Producer.
func (rs *ReservationStation) Opcode() isa.Opcode { return rs.op }

// Operands implements fu.Producer.
func (rs *ReservationStation) Operands() (vj, vk float64) { return rs.vj, rs.vk }

// Immediate implements fu.Producer.
func (rs *ReservationStation) Immediate() int64 { return rs.imm }

// Qj, Qk expose the outstanding producer tags for snapshot rendering and
// for the CDB's dependency accounting.
func (rs *ReservationStation) Qj() tag.Tag { return rs.qj }
func (rs *ReservationStation) Qk() tag.Tag { return rs.qk }

// Issue installs inst into this station (§4.2). For each source register,
// if it has no outstanding producer the value is copied in immediately;
// otherwise the producer's tag is recorded and the value slot stays
// pending. If inst has a destination register (other than R0), that
// register's producer is set to this station's tag, overwriting whatever
// producer was there before (WAW is handled purely by this overwrite: the
// old producer's eventual broadcast will find the register's producer no
// longer matches and will be suppressed — see regfile.ClearProducerIfMatches).
func (rs *ReservationStation) Issue(inst isa.Instruction, rf *regfile.RegisterFile) {
	rs.state = Issued
	rs.op = inst.Op
	rs.imm = inst.Immediate
	rs.destReg = -1

	if rf.Producer(inst.SrcReg1).IsNone() {
		rs.vj = rf.Value(inst.SrcReg1)
		rs.qj = tag.NONE
	} else {
		rs.qj = rf.Producer(inst.SrcReg1)
	}

	if isa.UsesSecondSource(inst.Op) {
		if rf.Producer(inst.SrcReg2).IsNone() {
			rs.vk = rf.Value(inst.SrcReg2)
			rs.qk = tag.NONE
		} else {
			rs.qk = rf.Producer(inst.SrcReg2)
		}
	} else {
		rs.qk = tag.NONE
	}

	if isa.HasDest(inst.Op) && inst.DestReg != 0 {
		rs.destReg = inst.DestReg
		rf.SetProducer(inst.DestReg, rs.tag)
	}
}

// AdvanceIssued performs the one-cycle ISSUED transition of §4.1 phase 1:
// a station that already has both operands moves straight to
// WaitingForFU, otherwise to WaitingForOperands. No-op if not currently
// Issued.
func (rs *ReservationStation) AdvanceIssued() {
	if rs.state != Issued {
		return
	}
	if rs.qj.IsNone() && rs.qk.IsNone() {
		rs.state = WaitingForFU
	} else {
		rs.state = WaitingForOperands
	}
}

// OperandsReady reports whether both operand slots are resolved.
func (rs *ReservationStation) OperandsReady() bool {
	return rs.qj.IsNone() && rs.qk.IsNone()
}

// WaitsOn reports whether this busy station's Qj or Qk currently equals t.
func (rs *ReservationStation) WaitsOn(t tag.Tag) bool {
	return rs.Busy() && (rs.qj == t || rs.qk == t)
}

// WouldBeReadyIfCaptured reports whether capturing tag t (and only t)
// would leave this station with no outstanding operand — the "ready
// dependent" test used by the CDB arbiter's tie-break (§4.6).
func (rs *ReservationStation) WouldBeReadyIfCaptured(t tag.Tag) bool {
	if !rs.Busy() {
		return false
	}
	qj, qk := rs.qj, rs.qk
	if qj == t {
		qj = tag.NONE
	}
	if qk == t {
		qk = tag.NONE
	}
	return qj.IsNone() && qk.IsNone()
}

// CaptureBroadcast implements operand capture (§4.3): if Qj or Qk equals
// t, it is replaced by value and the tag cleared. If the station was
// WaitingForOperands and this clears the last outstanding operand, it
// transitions to WaitingForFU in the same call — the same cycle as the
// broadcast, per §4.3.
func (rs *ReservationStation) CaptureBroadcast(t tag.Tag, value float64) {
	if rs.qj == t {
		rs.qj = tag.NONE
		rs.vj = value
	}
	if rs.qk == t {
		rs.qk = tag.NONE
		rs.vk = value
	}
	if rs.state == WaitingForOperands && rs.OperandsReady() {
		rs.state = WaitingForFU
	}
}

// OnStartExecution is called exactly once by the functional unit that
// dispatches this station (§4.1 phase 7).
func (rs *ReservationStation) OnStartExecution() {
	if rs.state == WaitingForFU {
		rs.state = Executing
	}
}

// OnExecutionFinished implements fu.Producer: called by the functional
// unit when its latency expires (§4.1 phase 2).
func (rs *ReservationStation) OnExecutionFinished(float64) {
	if rs.state == Executing {
		rs.state = ResultReady
	}
}

// Free returns this station to the Free state, ready for reissue. Called
// once this station's CDB message has won arbitration and broadcast
// (§4.1 phase 5).
func (rs *ReservationStation) Free() {
	rs.state = Free
	rs.op = isa.OpNone
	rs.vj, rs.vk = 0, 0
	rs.qj, rs.qk = tag.NONE, tag.NONE
	rs.destReg = -1
	rs.imm = 0
}
