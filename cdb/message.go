// Package cdb implements the Common Data Bus: the single-writer broadcast
// path that carries a producer's result to the register file and every
// waiting consumer, plus the arbiter that chooses among several results
// ready in the same cycle.
package cdb

import "github.com/archsim/tomasulo/tag"

// Message is the payload a producer places on the bus: a tag identifying
// the producer, the value it computed, and the destination register the
// value should (conditionally) be written to. DestReg is -1 for producers
// with no register destination (a store's address unit never produces a
// CDB message; only loads and FU results do, and those always have a
// destination).
type Message struct {
	Tag     tag.Tag
	Value   float64
	DestReg int
}
