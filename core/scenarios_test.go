package core_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/archsim/tomasulo/core"
	"github.com/archsim/tomasulo/isa"
)

var _ = Describe("Scenario A: classic RAW chain", func() {
	It("computes the chained FP result and commits the final store", func() {
		program := []isa.Instruction{
			{Op: isa.OpLD, DestReg: f(6), BaseReg: 2, Offset: 0},
			{Op: isa.OpLD, DestReg: f(2), BaseReg: 2, Offset: 8},
			{Op: isa.OpMULD, DestReg: f(0), SrcReg1: f(2), SrcReg2: f(4)},
			{Op: isa.OpSUBD, DestReg: f(8), SrcReg1: f(2), SrcReg2: f(6)},
			{Op: isa.OpDIVD, DestReg: f(10), SrcReg1: f(0), SrcReg2: f(6)},
			{Op: isa.OpADDD, DestReg: f(6), SrcReg1: f(8), SrcReg2: f(2)},
			{Op: isa.OpSD, BaseReg: 2, Offset: 8, SrcReg2: f(6)},
		}

		c, err := core.New(scenarioConfig(), program,
			core.WithInitialIntRegister(2, 100),
			core.WithInitialRegister(f(1), 10),
			core.WithInitialRegister(f(2), 2),
			core.WithInitialRegister(f(3), 3),
			core.WithInitialRegister(f(4), 4),
			core.WithInitialMemoryDouble(100, 1.0),
			core.WithInitialMemoryDouble(108, 2.0),
			core.WithInitialMemoryDouble(120, 3.0),
		)
		Expect(err).NotTo(HaveOccurred())

		c.Run(200)
		Expect(c.Done()).To(BeTrue())

		Expect(c.Registers().Value(f(6))).To(Equal(3.0))
		Expect(c.Registers().Value(f(8))).To(Equal(1.0))
		Expect(c.Registers().Value(f(0))).To(Equal(8.0))
		Expect(c.Registers().Value(f(10))).To(Equal(8.0))
		Expect(c.Registers().Value(f(2))).To(Equal(2.0))

		stored, _ := c.Cache().LoadDouble(108)
		Expect(stored).To(Equal(3.0))
	})
})

var _ = Describe("Scenario B: WAW renaming", func() {
	It("lets only the second producer's broadcast reach the register", func() {
		program := []isa.Instruction{
			{Op: isa.OpADDD, DestReg: f(1), SrcReg1: f(2), SrcReg2: f(3)},
			{Op: isa.OpADDD, DestReg: f(1), SrcReg1: f(2), SrcReg2: f(4)},
		}

		c, err := core.New(scenarioConfig(), program,
			core.WithInitialRegister(f(2), 2),
			core.WithInitialRegister(f(3), 3),
			core.WithInitialRegister(f(4), 4),
		)
		Expect(err).NotTo(HaveOccurred())

		c.Run(50)
		Expect(c.Done()).To(BeTrue())
		Expect(c.Registers().Value(f(1))).To(Equal(6.0))
	})
})

var _ = Describe("Scenario D: load/store address collision", func() {
	It("holds the load until the aliasing store has committed", func() {
		program := []isa.Instruction{
			// F1's producer stays outstanding for this DIV.D's full latency,
			// so the store that follows issues well before F1 is ready.
			{Op: isa.OpDIVD, DestReg: f(1), SrcReg1: f(3), SrcReg2: f(4)},
			{Op: isa.OpSD, BaseReg: 2, Offset: 0, SrcReg2: f(1)},
			{Op: isa.OpLD, DestReg: f(2), BaseReg: 2, Offset: 0},
		}

		c, err := core.New(scenarioConfig(), program,
			core.WithInitialIntRegister(2, 100),
			core.WithInitialRegister(f(3), 8),
			core.WithInitialRegister(f(4), 2),
			core.WithInitialMemoryDouble(100, 1.0),
		)
		Expect(err).NotTo(HaveOccurred())

		c.Run(200)
		Expect(c.Done()).To(BeTrue())

		Expect(c.Registers().Value(f(1))).To(Equal(4.0))
		Expect(c.Registers().Value(f(2))).To(Equal(4.0))
	})
})

var _ = Describe("Scenario E: taken branch flush", func() {
	It("never retires the instruction between the branch and its target", func() {
		program := []isa.Instruction{
			{Op: isa.OpDADDI, DestReg: 1, SrcReg1: 0, Immediate: 1},
			{Op: isa.OpBEQ, SrcReg1: 1, SrcReg2: 1, Offset: 2},
			{Op: isa.OpADDD, DestReg: f(1), SrcReg1: f(2), SrcReg2: f(3)},
			{Op: isa.OpADDD, DestReg: f(4), SrcReg1: f(2), SrcReg2: f(3)},
		}

		c, err := core.New(scenarioConfig(), program,
			core.WithInitialRegister(f(1), 10),
			core.WithInitialRegister(f(2), 2),
			core.WithInitialRegister(f(3), 3),
		)
		Expect(err).NotTo(HaveOccurred())

		c.Run(200)
		Expect(c.Done()).To(BeTrue())

		Expect(c.Registers().Value(f(1))).To(Equal(10.0))
		Expect(c.Registers().Value(f(4))).To(Equal(5.0))
	})
})

var _ = Describe("Scenario F: cache miss latency", func() {
	It("misses the first access to a cold block and hits the second", func() {
		program := []isa.Instruction{
			{Op: isa.OpLD, DestReg: f(5), BaseReg: 3, Offset: 0},
			{Op: isa.OpLD, DestReg: f(6), BaseReg: 3, Offset: 0},
		}

		c, err := core.New(scenarioConfig(), program,
			core.WithInitialIntRegister(3, 200),
		)
		Expect(err).NotTo(HaveOccurred())

		c.Run(200)
		Expect(c.Done()).To(BeTrue())

		stats := c.Cache().Stats()
		Expect(stats.Misses).To(Equal(uint64(1)))
		Expect(stats.Hits).To(Equal(uint64(1)))
	})
})
