package station_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/archsim/tomasulo/isa"
	"github.com/archsim/tomasulo/regfile"
	"github.com/archsim/tomasulo/station"
	"github.com/archsim/tomasulo/tag"
)

var _ = Describe("LoadBuffer", func() {
	var (
		rf    *regfile.RegisterFile
		lb    *station.LoadBuffer
		t1    = tag.New("lb0")
		probe = func() (float64, uint64) { return 3.5, 11 }
	)

	BeforeEach(func() {
		rf = regfile.New(8, 8)
		lb = station.NewLoadBuffer(t1)
	})

	It("renames its destination register on issue, with no value yet", func() {
		inst := isa.Instruction{Op: isa.OpLD, DestReg: 3, BaseReg: 1, Offset: 8}
		lb.Issue(inst, 1, rf)

		Expect(rf.Producer(3)).To(Equal(t1))
		Expect(lb.State()).To(Equal(station.Issued))
	})

	It("stays WaitingForAddress until the address unit reports", func() {
		inst := isa.Instruction{Op: isa.OpLD, DestReg: 3, BaseReg: 1, Offset: 8}
		lb.Issue(inst, 1, rf)

		lb.AdvanceMemoryOp(true, probe)
		Expect(lb.State()).To(Equal(station.WaitingForAddress))

		lb.SetEffectiveAddress(108)
		lb.AdvanceMemoryOp(true, probe)
		Expect(lb.State()).To(Equal(station.Executing))
		Expect(lb.Value()).To(Equal(3.5))
	})

	It("stays WaitingForAddress when ordering does not permit, even with a known address", func() {
		inst := isa.Instruction{Op: isa.OpLD, DestReg: 3, BaseReg: 1, Offset: 8}
		lb.Issue(inst, 1, rf)
		lb.SetEffectiveAddress(108)

		lb.AdvanceMemoryOp(false, probe)
		Expect(lb.State()).To(Equal(station.WaitingForAddress))
	})

	It("does not call probe until ordering permits and the address is known", func() {
		calls := 0
		countingProbe := func() (float64, uint64) {
			calls++
			return 1.0, 1
		}
		inst := isa.Instruction{Op: isa.OpLD, DestReg: 3, BaseReg: 1, Offset: 8}
		lb.Issue(inst, 1, rf)

		lb.AdvanceMemoryOp(false, countingProbe)
		Expect(calls).To(Equal(0))

		lb.SetEffectiveAddress(108)
		lb.AdvanceMemoryOp(false, countingProbe)
		Expect(calls).To(Equal(0))

		lb.AdvanceMemoryOp(true, countingProbe)
		Expect(calls).To(Equal(1))
	})

	It("counts down the probe-fixed latency to ResultReady", func() {
		shortProbe := func() (float64, uint64) { return 3.5, 2 }
		inst := isa.Instruction{Op: isa.OpLD, DestReg: 3, BaseReg: 1, Offset: 8}
		lb.Issue(inst, 1, rf)
		lb.SetEffectiveAddress(108)
		lb.AdvanceMemoryOp(true, shortProbe)

		lb.Tick()
		Expect(lb.State()).To(Equal(station.Executing))
		lb.Tick()
		Expect(lb.State()).To(Equal(station.ResultReady))
	})

	It("returns to Free with cleared fields", func() {
		inst := isa.Instruction{Op: isa.OpLD, DestReg: 3, BaseReg: 1, Offset: 8}
		lb.Issue(inst, 1, rf)
		lb.Free()
		Expect(lb.Busy()).To(BeFalse())
		Expect(lb.AddressReady()).To(BeFalse())
	})
})
