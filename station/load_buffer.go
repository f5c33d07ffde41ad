package station

import (
	"github.com/archsim/tomasulo/isa"
	"github.com/archsim/tomasulo/regfile"
	"github.com/archsim/tomasulo/tag"
)

// LoadBuffer holds an issued load from issue until its value has been
// read from the cache and broadcast on the CDB (§3). A load has no value
// operand to wait for, unlike a store, but it is still subject to the
// same §4.4 memory-ordering gate: it may not touch the cache until every
// conflicting earlier store has committed, so the cache probe that fixes
// its value and latency happens at the same instant a store's does — the
// cycle it transitions into EXECUTING — never earlier.
type LoadBuffer struct {
	tag   tag.Tag
	state State

	op             isa.Opcode
	destReg        int
	baseReg        int
	offset         int64
	sequenceNumber uint64

	effectiveAddress int64
	addressReady     bool

	latency     uint64
	remaining   uint64
	loadedValue float64
}

// NewLoadBuffer creates a free load buffer permanently identified by t.
func NewLoadBuffer(t tag.Tag) *LoadBuffer {
	return &LoadBuffer{tag: t, state: Free}
}

func (lb *LoadBuffer) Tag() tag.Tag            { return lb.tag }
func (lb *LoadBuffer) Busy() bool              { return lb.state != Free }
func (lb *LoadBuffer) State() State            { return lb.state }
func (lb *LoadBuffer) DestReg() int            { return lb.destReg }
func (lb *LoadBuffer) SequenceNumber() uint64  { return lb.sequenceNumber }
func (lb *LoadBuffer) EffectiveAddress() int64 { return lb.effectiveAddress }
func (lb *LoadBuffer) AddressReady() bool      { return lb.addressReady }
func (lb *LoadBuffer) Opcode() isa.Opcode      { return lb.op }

// Issue installs a load instruction, assigns its sequence number, and
// renames its destination register to this buffer's tag. The memory
// access itself has not happened yet; EA arrives later from the address
// unit and the cache probe waits for the §4.4 ordering gate.
func (lb *LoadBuffer) Issue(inst isa.Instruction, seq uint64, rf *regfile.RegisterFile) {
	lb.state = Issued
	lb.op = inst.Op
	lb.destReg = inst.DestReg
	lb.baseReg = inst.BaseReg
	lb.offset = inst.Offset
	lb.sequenceNumber = seq
	lb.addressReady = false
	lb.effectiveAddress = 0
	lb.latency = 0
	lb.loadedValue = 0

	if inst.DestReg != 0 {
		rf.SetProducer(inst.DestReg, lb.tag)
	}
}

// SetEffectiveAddress implements EATarget: called by this buffer's
// AddressUnit once base+offset is computed.
func (lb *LoadBuffer) SetEffectiveAddress(ea int64) {
	lb.effectiveAddress = ea
	lb.addressReady = true
}

// AdvanceMemoryOp performs the §4.1 phase-1 / §4.4 transition, re-checked
// every cycle while not yet executing: once the address is known and
// memory ordering permits, probe fires exactly once to fix this load's
// value and access latency, and the buffer starts counting down;
// otherwise it (re)enters WaitingForAddress.
func (lb *LoadBuffer) AdvanceMemoryOp(orderingPermits bool, probe func() (float64, uint64)) {
	if lb.state != Issued && lb.state != WaitingForAddress {
		return
	}
	if lb.addressReady && orderingPermits {
		lb.loadedValue, lb.latency = probe()
		lb.state = Executing
		lb.remaining = lb.latency
	} else {
		lb.state = WaitingForAddress
	}
}

// Tick advances the memory access by one cycle. On reaching zero it
// transitions to ResultReady (§4.1 phase 2).
func (lb *LoadBuffer) Tick() {
	if lb.state != Executing {
		return
	}
	lb.remaining--
	if lb.remaining == 0 {
		lb.state = ResultReady
	}
}

// Value returns the value fetched when this load started executing,
// ready to ride the CDB.
func (lb *LoadBuffer) Value() float64 { return lb.loadedValue }

// Free returns this buffer to Free. Called once its CDB message has won
// arbitration and broadcast (§4.1 phase 5).
func (lb *LoadBuffer) Free() {
	lb.state = Free
	lb.op = isa.OpNone
	lb.destReg = -1
	lb.baseReg = -1
	lb.offset = 0
	lb.effectiveAddress = 0
	lb.addressReady = false
	lb.latency = 0
	lb.remaining = 0
	lb.loadedValue = 0
}
