// Package core implements the Tomasulo scheduler: the nine-phase
// per-cycle orchestration of reservation stations, load/store buffers,
// functional units, the CDB, the cache, and branch resolution.
package core

import (
	"fmt"

	"github.com/archsim/tomasulo/cdb"
	"github.com/archsim/tomasulo/config"
	"github.com/archsim/tomasulo/fu"
	"github.com/archsim/tomasulo/isa"
	"github.com/archsim/tomasulo/memsys"
	"github.com/archsim/tomasulo/regfile"
	"github.com/archsim/tomasulo/snapshot"
	"github.com/archsim/tomasulo/station"
	"github.com/archsim/tomasulo/tag"
)

// Stats holds core-wide performance counters, mirroring the teacher's
// Statistics+CPI pattern.
type Stats struct {
	Cycles                uint64
	InstructionsCompleted uint64

	// StationUtilization counts, per structure kind, the busy cycles of
	// every structure of that kind, summed — a supplemented metric not named directly by any
	// single component's spec but useful for judging pool sizing, in the
	// spirit of the teacher's per-stage Statistics counters.
	StationUtilization map[string]uint64
}

// CPI returns cycles per completed instruction.
func (s Stats) CPI() float64 {
	if s.InstructionsCompleted == 0 {
		return 0
	}
	return float64(s.Cycles) / float64(s.InstructionsCompleted)
}

// CoreOption is a functional option for configuring initial machine
// state before the first Tick, mirroring the teacher's PipelineOption
// pattern.
type CoreOption func(*Core)

// WithInitialRegister sets integer/FP register index to a raw float64
// value before simulation starts.
func WithInitialRegister(index int, value float64) CoreOption {
	return func(c *Core) { c.rf.SetValue(index, value) }
}

// WithInitialIntRegister sets an integer register to v before simulation
// starts.
func WithInitialIntRegister(index int, v int64) CoreOption {
	return func(c *Core) { c.rf.SetIntValue(index, v) }
}

// WithInitialMemoryDouble writes an IEEE-754 double into backing memory
// at addr before simulation starts (§6 InitialState).
func WithInitialMemoryDouble(addr uint64, value float64) CoreOption {
	return func(c *Core) { c.mem.WriteDoubleBits(addr, doubleBits(value)) }
}

// WithInitialMemoryWord writes a 32-bit word into backing memory at addr
// before simulation starts.
func WithInitialMemoryWord(addr uint64, value uint32) CoreOption {
	return func(c *Core) { c.mem.WriteWord(addr, value) }
}

// Core drives one Tomasulo simulation: a fixed program, a fixed
// configuration, and every microarchitectural structure §3 names.
type Core struct {
	cfg     *config.CoreConfig
	program []isa.Instruction

	rf    *regfile.RegisterFile
	mem   *memsys.Memory
	cache *memsys.Cache
	bus   *cdb.Bus

	intRS      []*station.ReservationStation
	fpAddSubRS []*station.ReservationStation
	fpMulDivRS []*station.ReservationStation
	allRS      []*station.ReservationStation

	loadBuffers    []*station.LoadBuffer
	storeBuffers   []*station.StoreBuffer
	branchHandlers []*station.BranchHandler
	addressUnits   []*station.AddressUnit

	intALU     []*fu.Unit
	fpAddSubFU []*fu.Unit
	fpMulDivFU []*fu.Unit
	allFUs     []*fu.Unit

	pc      int64
	nextSeq uint64

	branchPending        bool
	branchTakenThisCycle bool

	cycle uint64
	log   []string
	stats Stats
}

// New constructs a Core for program under cfg, applying opts to set up
// initial register/memory state. Returns an error if cfg fails
// validation (§7: configuration errors are rejected at construction; no
// simulation proceeds).
func New(cfg *config.CoreConfig, program []isa.Instruction, opts ...CoreOption) (*Core, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid core config: %w", err)
	}

	mem := memsys.NewMemory(cfg.MemorySize)
	cache := memsys.NewCache(memsys.CacheConfig{
		Size:        cfg.CacheSize,
		BlockSize:   cfg.CacheBlockSize,
		HitLatency:  cfg.CacheHitLatency,
		MissPenalty: cfg.CacheMissPenalty,
	}, mem)

	c := &Core{
		cfg:     cfg,
		program: program,
		rf:      regfile.New(cfg.NumIntRegs, cfg.NumFPRegs),
		mem:     mem,
		cache:   cache,
		bus:     cdb.New(),
		stats:   Stats{StationUtilization: map[string]uint64{}},
	}

	for i := 0; i < cfg.NumIntRS; i++ {
		c.intRS = append(c.intRS, station.New(tag.New(fmt.Sprintf("I%d", i)), isa.FUIntALU))
	}
	for i := 0; i < cfg.NumFPAddSubRS; i++ {
		c.fpAddSubRS = append(c.fpAddSubRS, station.New(tag.New(fmt.Sprintf("A%d", i)), isa.FUFPAddSub))
	}
	for i := 0; i < cfg.NumFPMulDivRS; i++ {
		c.fpMulDivRS = append(c.fpMulDivRS, station.New(tag.New(fmt.Sprintf("M%d", i)), isa.FUFPMulDiv))
	}
	c.allRS = append(c.allRS, c.intRS...)
	c.allRS = append(c.allRS, c.fpAddSubRS...)
	c.allRS = append(c.allRS, c.fpMulDivRS...)

	for i := 0; i < cfg.NumLoadBuffers; i++ {
		c.loadBuffers = append(c.loadBuffers, station.NewLoadBuffer(tag.New(fmt.Sprintf("L%d", i))))
	}
	for i := 0; i < cfg.NumStoreBuffers; i++ {
		c.storeBuffers = append(c.storeBuffers, station.NewStoreBuffer(tag.New(fmt.Sprintf("S%d", i))))
	}
	for i := 0; i < cfg.NumBranchHandlers; i++ {
		c.branchHandlers = append(c.branchHandlers, station.NewBranchHandler(tag.New(fmt.Sprintf("B%d", i))))
	}
	for i := 0; i < cfg.NumAddressUnits; i++ {
		c.addressUnits = append(c.addressUnits, station.NewAddressUnit())
	}

	for i := 0; i < cfg.NumIntRS; i++ {
		c.intALU = append(c.intALU, fu.New(isa.FUIntALU, cfg.LatencyFor))
	}
	for i := 0; i < cfg.NumFPAddSubRS; i++ {
		c.fpAddSubFU = append(c.fpAddSubFU, fu.New(isa.FUFPAddSub, cfg.LatencyFor))
	}
	for i := 0; i < cfg.NumFPMulDivRS; i++ {
		c.fpMulDivFU = append(c.fpMulDivFU, fu.New(isa.FUFPMulDiv, cfg.LatencyFor))
	}
	c.allFUs = append(c.allFUs, c.intALU...)
	c.allFUs = append(c.allFUs, c.fpAddSubFU...)
	c.allFUs = append(c.allFUs, c.fpMulDivFU...)

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Stats returns a copy of the core's performance counters.
func (c *Core) Stats() Stats {
	return c.stats
}

// Registers returns the underlying register file, for a caller that
// wants to read terminal state directly rather than through a snapshot.
func (c *Core) Registers() *regfile.RegisterFile {
	return c.rf
}

// Memory returns the backing memory, for reading terminal state.
func (c *Core) Memory() *memsys.Memory {
	return c.mem
}

// Cache returns the data cache sitting in front of memory. A committed
// store is visible here immediately; it may not yet have been written
// back to Memory (write-back, write-allocate), so a caller inspecting
// terminal memory contents should read through here, not Memory.
func (c *Core) Cache() *memsys.Cache {
	return c.cache
}

// Done reports whether the simulation has reached the §4.9 termination
// condition: the instruction queue is empty, no station/buffer/FU/
// address unit is busy, no branch is pending, and no CDB message is
// still waiting to broadcast.
func (c *Core) Done() bool {
	if c.pc < int64(len(c.program)) {
		return false
	}
	if c.branchPending {
		return false
	}
	if c.bus.Pending() > 0 {
		return false
	}
	for _, rs := range c.allRS {
		if rs.Busy() {
			return false
		}
	}
	for _, lb := range c.loadBuffers {
		if lb.Busy() {
			return false
		}
	}
	for _, sb := range c.storeBuffers {
		if sb.Busy() {
			return false
		}
	}
	for _, bh := range c.branchHandlers {
		if bh.Busy() {
			return false
		}
	}
	for _, u := range c.allFUs {
		if u.Busy() {
			return false
		}
	}
	for _, au := range c.addressUnits {
		if au.Busy() {
			return false
		}
	}
	return true
}

// Run steps the core until Done or maxCycles is reached, returning every
// cycle's snapshot in order. maxCycles is the caller's safety cap against
// non-terminating programs (§4.9, §7).
func (c *Core) Run(maxCycles uint64) []*snapshot.CycleSnapshot {
	snaps := make([]*snapshot.CycleSnapshot, 0, maxCycles)
	for i := uint64(0); i < maxCycles && !c.Done(); i++ {
		snaps = append(snaps, c.Tick())
	}
	return snaps
}

// Tick advances the machine by exactly one cycle through the nine fixed
// phases of §4.1, in order, and returns that cycle's snapshot.
func (c *Core) Tick() *snapshot.CycleSnapshot {
	c.cycle++
	c.stats.Cycles = c.cycle
	c.log = c.log[:0]

	c.phase1AdvanceTransitions()
	c.phase2Execute()
	msg, broadcastOK := c.phase3Arbitrate()
	c.phase4Broadcast(msg, broadcastOK)
	c.phase5FreeProducer(msg, broadcastOK)
	c.phase6EvaluateBranches()
	c.phase7Dispatch()
	c.phase8Issue()
	c.tallyUtilization()

	return c.phase9Snapshot(msg, broadcastOK)
}

func (c *Core) logf(format string, args ...any) {
	c.log = append(c.log, fmt.Sprintf(format, args...))
}
