package station

import (
	"github.com/archsim/tomasulo/isa"
	"github.com/archsim/tomasulo/regfile"
	"github.com/archsim/tomasulo/tag"
)

// StoreBuffer holds an issued store from issue until it has written the
// cache (§3). A store's access latency is not known until it actually
// commits, since by then the cache's state may have changed underneath it
// (§4.7); the same holds for a load, which probes the cache at the same
// point in its own lifecycle (see LoadBuffer).
type StoreBuffer struct {
	tag   tag.Tag
	state State

	op             isa.Opcode
	baseReg        int
	offset         int64
	sequenceNumber uint64

	effectiveAddress int64
	addressReady     bool

	value      float64
	sourceTag  tag.Tag
	valueReady bool

	// captureDelay implements the one-cycle delay between a store capturing
	// its value off the CDB and becoming eligible to commit (§4.3/§12):
	// a value captured this cycle cannot also commit this cycle.
	captureDelay uint64

	remaining uint64
}

// NewStoreBuffer creates a free store buffer permanently identified by t.
func NewStoreBuffer(t tag.Tag) *StoreBuffer {
	return &StoreBuffer{tag: t, state: Free}
}

func (sb *StoreBuffer) Tag() tag.Tag            { return sb.tag }
func (sb *StoreBuffer) Busy() bool              { return sb.state != Free }
func (sb *StoreBuffer) State() State            { return sb.state }
func (sb *StoreBuffer) SequenceNumber() uint64  { return sb.sequenceNumber }
func (sb *StoreBuffer) EffectiveAddress() int64 { return sb.effectiveAddress }
func (sb *StoreBuffer) AddressReady() bool      { return sb.addressReady }
func (sb *StoreBuffer) ValueReady() bool        { return sb.valueReady }
func (sb *StoreBuffer) Opcode() isa.Opcode      { return sb.op }
func (sb *StoreBuffer) SourceTag() tag.Tag      { return sb.sourceTag }
func (sb *StoreBuffer) Value() float64          { return sb.value }

// Issue installs a store instruction (§4.2). The value to store is read
// from SrcReg2, matching isa.UsesSecondSource's convention that a store's
// "second source" is its data operand. If that register has no
// outstanding producer, its value is copied in immediately; otherwise the
// producer's tag is recorded and the value arrives later off the CDB.
func (sb *StoreBuffer) Issue(inst isa.Instruction, seq uint64, rf *regfile.RegisterFile) {
	sb.state = Issued
	sb.op = inst.Op
	sb.baseReg = inst.BaseReg
	sb.offset = inst.Offset
	sb.sequenceNumber = seq
	sb.addressReady = false
	sb.effectiveAddress = 0
	sb.captureDelay = 0

	if rf.Producer(inst.SrcReg2).IsNone() {
		sb.value = rf.Value(inst.SrcReg2)
		sb.sourceTag = tag.NONE
		sb.valueReady = true
	} else {
		sb.sourceTag = rf.Producer(inst.SrcReg2)
		sb.valueReady = false
	}
}

// SetEffectiveAddress implements EATarget.
func (sb *StoreBuffer) SetEffectiveAddress(ea int64) {
	sb.effectiveAddress = ea
	sb.addressReady = true
}

// WaitsOn reports whether this busy buffer is still waiting on t for its
// value, for the CDB arbiter's dependency counts.
func (sb *StoreBuffer) WaitsOn(t tag.Tag) bool {
	return sb.Busy() && !sb.valueReady && sb.sourceTag == t
}

// WouldBeReadyIfCaptured reports whether capturing tag t would resolve
// this buffer's only outstanding dependency (its value), for the CDB
// arbiter's tie-break.
func (sb *StoreBuffer) WouldBeReadyIfCaptured(t tag.Tag) bool {
	return sb.WaitsOn(t)
}

// CaptureBroadcast captures the stored value off the CDB (§4.3) and starts
// the one-cycle capture delay before the buffer may commit.
func (sb *StoreBuffer) CaptureBroadcast(t tag.Tag, value float64) {
	if sb.valueReady || sb.sourceTag != t {
		return
	}
	sb.value = value
	sb.valueReady = true
	sb.sourceTag = tag.NONE
	sb.captureDelay = 1
}

// AdvanceMemoryOp performs the §4.1 phase-1 / §4.4 transition: a store
// commits only once its address and value are both ready, any capture
// delay has elapsed, and memory ordering permits. probe is the caller's
// cache access, called exactly when this call causes a transition into
// Executing; it returns the access latency to charge.
func (sb *StoreBuffer) AdvanceMemoryOp(orderingPermits bool, probe func() uint64) {
	if sb.state != Issued && sb.state != WaitingForAddress {
		return
	}
	if sb.captureDelay > 0 {
		sb.captureDelay--
		sb.state = WaitingForAddress
		return
	}
	if sb.addressReady && sb.valueReady && orderingPermits {
		sb.state = Executing
		sb.remaining = probe()
	} else {
		sb.state = WaitingForAddress
	}
}

// Tick advances the commit by one cycle. On reaching zero the store has
// written the cache and is done — stores never broadcast on the CDB.
func (sb *StoreBuffer) Tick() bool {
	if sb.state != Executing {
		return false
	}
	sb.remaining--
	if sb.remaining == 0 {
		return true
	}
	return false
}

// Free returns this buffer to Free.
func (sb *StoreBuffer) Free() {
	sb.state = Free
	sb.op = isa.OpNone
	sb.baseReg = -1
	sb.offset = 0
	sb.effectiveAddress = 0
	sb.addressReady = false
	sb.value = 0
	sb.sourceTag = tag.NONE
	sb.valueReady = false
	sb.captureDelay = 0
	sb.remaining = 0
}
