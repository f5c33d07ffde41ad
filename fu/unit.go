// Package fu implements the three functional unit classes that execute
// issued reservation stations: integer ALU, FP add/sub, and FP mul/div.
package fu

import (
	"github.com/archsim/tomasulo/isa"
	"github.com/archsim/tomasulo/tag"
)

// Producer is the narrow view a functional unit needs of the reservation
// station it is executing: its identity and destination (for building the
// resulting CDB message), its operands and opcode, and a way to report
// back when execution finishes. Reservation stations implement this.
type Producer interface {
	Tag() tag.Tag
	DestReg() int
	Opcode() isa.Opcode
	Operands() (vj, vk float64)
	Immediate() int64
	OnExecutionFinished(result float64)
}

// LatencyFunc looks up the per-opcode latency in cycles. Supplied by the
// caller (config.CoreConfig in this repo) so fu has no config dependency
// of its own.
type LatencyFunc func(op isa.Opcode) uint64

// Unit models one functional unit of a given class. At most one
// reservation station occupies it at a time.
type Unit struct {
	class   isa.FUClass
	latency LatencyFunc

	busy      bool
	current   Producer
	remaining uint64
}

// New creates a free functional unit of the given class.
func New(class isa.FUClass, latency LatencyFunc) *Unit {
	return &Unit{class: class, latency: latency}
}

// Class returns the functional unit class.
func (u *Unit) Class() isa.FUClass { return u.class }

// Busy reports whether the unit is currently executing a station.
func (u *Unit) Busy() bool { return u.busy }

// Current returns the producer currently occupying this unit, or nil if
// the unit is free. The caller must read this before calling Tick, since
// a finishing Tick frees the unit and clears this.
func (u *Unit) Current() Producer { return u.current }

// Supports reports whether this unit's class can execute op.
func (u *Unit) Supports(op isa.Opcode) bool {
	return isa.ClassOf(op) == u.class
}

// Start captures p, looks up op's latency, and begins execution (§4.5).
// The caller must have already checked Busy() and Supports().
func (u *Unit) Start(p Producer) {
	u.busy = true
	u.current = p
	u.remaining = u.latency(p.Opcode())
}

// Tick decrements the remaining latency. When it reaches zero, the unit
// evaluates the instruction's semantic function, reports the result to
// the reservation station, and frees itself. Returns finished=true the cycle
// execution finishes (the caller still needs to build and submit the CDB
// message; fu does not know about the CDB).
func (u *Unit) Tick() (result float64, finished bool) {
	if !u.busy {
		return 0, false
	}

	u.remaining--
	if u.remaining > 0 {
		return 0, false
	}

	res := Evaluate(u.current.Opcode(), u.current)
	u.current.OnExecutionFinished(res)

	u.busy = false
	u.current = nil
	return res, true
}

// Evaluate computes the result of executing op against p's operands.
// Integer arithmetic converts the float64 operand slots numerically to
// signed 64-bit two's-complement integers; FP arithmetic operates on the
// operands directly as IEEE-754 doubles. Division by zero in either path
// yields a defined value rather than raising (§4.5, §7).
func Evaluate(op isa.Opcode, p Producer) float64 {
	vj, vk := p.Operands()

	switch op {
	case isa.OpDADD:
		return intResult(asInt(vj) + asInt(vk))
	case isa.OpDSUB:
		return intResult(asInt(vj) - asInt(vk))
	case isa.OpDADDI:
		return intResult(asInt(vj) + p.Immediate())
	case isa.OpDSUBI:
		return intResult(asInt(vj) - p.Immediate())
	case isa.OpAND:
		return intResult(asInt(vj) & asInt(vk))
	case isa.OpOR:
		return intResult(asInt(vj) | asInt(vk))
	case isa.OpXOR:
		return intResult(asInt(vj) ^ asInt(vk))
	case isa.OpMULT:
		return intResult(asInt(vj) * asInt(vk))
	case isa.OpDIV:
		k := asInt(vk)
		if k == 0 {
			return intResult(0)
		}
		return intResult(asInt(vj) / k)
	case isa.OpADDD:
		return vj + vk
	case isa.OpSUBD:
		return vj - vk
	case isa.OpMULD:
		return vj * vk
	case isa.OpDIVD:
		return vj / vk // IEEE-754: x/0 yields +-Inf or NaN, never panics
	default:
		return 0
	}
}

// asInt and intResult convert a float64 operand slot to/from a signed
// 64-bit integer. See regfile.RegisterFile.IntValue for why this is a
// numeric conversion rather than a bit-pattern reinterpretation.
func asInt(v float64) int64 {
	return int64(v)
}

func intResult(v int64) float64 {
	return float64(v)
}
