// Package regfile implements the unified integer/floating-point register
// file: a flat array of registers, each holding a value and an optional
// producer tag.
package regfile

import "github.com/archsim/tomasulo/tag"

// Register holds a value and the tag of its outstanding producer, if any.
type Register struct {
	Value    float64
	Producer tag.Tag
}

// RegisterFile is flat-indexed: [0, numInt) are integer registers,
// [numInt, numInt+numFP) are floating-point registers. Integer registers
// access Value as a signed 64-bit integer via IntValue/SetIntValue; index
// 0 is hardwired to zero.
type RegisterFile struct {
	regs   []Register
	numInt int
	numFP  int
}

// New creates a register file with numInt integer and numFP floating-point
// registers, all zero-valued with no outstanding producer.
func New(numInt, numFP int) *RegisterFile {
	return &RegisterFile{
		regs:   make([]Register, numInt+numFP),
		numInt: numInt,
		numFP:  numFP,
	}
}

// NumInt returns the number of integer registers.
func (rf *RegisterFile) NumInt() int { return rf.numInt }

// NumFP returns the number of floating-point registers.
func (rf *RegisterFile) NumFP() int { return rf.numFP }

// Size returns the total number of flat-indexed registers.
func (rf *RegisterFile) Size() int { return len(rf.regs) }

// FPBase returns the flat index of FP register 0.
func (rf *RegisterFile) FPBase() int { return rf.numInt }

// Value returns the raw float64 slot content at index i.
func (rf *RegisterFile) Value(i int) float64 {
	return rf.regs[i].Value
}

// IntValue reinterprets the slot at index i as a signed 64-bit integer.
// Integers are carried as numerically-converted float64 values rather than
// bit-reinterpreted ones: a bit-pattern reinterpretation would turn most
// integers into IEEE-754 NaN payloads, and NaN != NaN under Go's == breaks
// every downstream value comparison the core relies on (BEQ/BNE condition
// evaluation, the CDB's stale-producer check, register snapshot
// equality). Values inside the exact-integer range of float64 (±2^53,
// far beyond anything the test programs in §8 exercise) round-trip
// losslessly either way.
func (rf *RegisterFile) IntValue(i int) int64 {
	return int64(rf.regs[i].Value)
}

// Producer returns the outstanding producer tag for register i, or
// tag.NONE if the register holds a committed value.
func (rf *RegisterFile) Producer(i int) tag.Tag {
	return rf.regs[i].Producer
}

// SetValue writes a float64 value directly into register i. Writes to
// register 0 are silently dropped.
func (rf *RegisterFile) SetValue(i int, v float64) {
	if i == 0 {
		return
	}
	rf.regs[i].Value = v
}

// SetIntValue writes a signed 64-bit integer into register i, converted
// numerically to float64 (see IntValue). Writes to register 0 are
// silently dropped.
func (rf *RegisterFile) SetIntValue(i int, v int64) {
	if i == 0 {
		return
	}
	rf.regs[i].Value = float64(v)
}

// SetProducer records t as the in-flight producer of register i. Writes
// to register 0's producer are silently dropped: R0 is hardwired to zero
// and never renamed.
func (rf *RegisterFile) SetProducer(i int, t tag.Tag) {
	if i == 0 {
		return
	}
	rf.regs[i].Producer = t
}

// ClearProducerIfMatches resets register i's producer to tag.NONE iff it
// currently equals t. Used by CDB broadcast to suppress stale writes from
// an overwritten WAW producer (§4.2) and to free the tag once consumed.
func (rf *RegisterFile) ClearProducerIfMatches(i int, t tag.Tag) bool {
	if rf.regs[i].Producer != t {
		return false
	}
	rf.regs[i].Producer = tag.NONE
	return true
}

// Snapshot returns a copy of every register's current state, safe for a
// caller to retain across cycles.
func (rf *RegisterFile) Snapshot() []Register {
	out := make([]Register, len(rf.regs))
	copy(out, rf.regs)
	return out
}
