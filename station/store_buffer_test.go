package station_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/archsim/tomasulo/isa"
	"github.com/archsim/tomasulo/regfile"
	"github.com/archsim/tomasulo/station"
	"github.com/archsim/tomasulo/tag"
)

var _ = Describe("StoreBuffer", func() {
	var (
		rf *regfile.RegisterFile
		sb *station.StoreBuffer
		t1 = tag.New("sb0")
	)

	BeforeEach(func() {
		rf = regfile.New(8, 8)
		sb = station.NewStoreBuffer(t1)
	})

	It("copies an already-ready value in at issue", func() {
		rf.SetValue(9, 2.5)
		inst := isa.Instruction{Op: isa.OpSD, BaseReg: 1, Offset: 8, SrcReg2: 9}
		sb.Issue(inst, 1, rf)

		Expect(sb.ValueReady()).To(BeTrue())
		Expect(sb.Value()).To(Equal(2.5))
	})

	It("records a source tag when the value is not yet ready", func() {
		producer := tag.New("producer")
		rf.SetProducer(9, producer)
		inst := isa.Instruction{Op: isa.OpSD, BaseReg: 1, Offset: 8, SrcReg2: 9}
		sb.Issue(inst, 1, rf)

		Expect(sb.ValueReady()).To(BeFalse())
		Expect(sb.SourceTag()).To(Equal(producer))
	})

	It("does not commit with address ready but value still pending", func() {
		producer := tag.New("producer")
		rf.SetProducer(9, producer)
		inst := isa.Instruction{Op: isa.OpSD, BaseReg: 1, Offset: 8, SrcReg2: 9}
		sb.Issue(inst, 1, rf)
		sb.SetEffectiveAddress(108)

		sb.AdvanceMemoryOp(true, func() uint64 { return 1 })
		Expect(sb.State()).To(Equal(station.WaitingForAddress))
	})

	It("delays commit for one cycle after capturing its value off the CDB", func() {
		producer := tag.New("producer")
		rf.SetProducer(9, producer)
		inst := isa.Instruction{Op: isa.OpSD, BaseReg: 1, Offset: 8, SrcReg2: 9}
		sb.Issue(inst, 1, rf)
		sb.SetEffectiveAddress(108)

		sb.CaptureBroadcast(producer, 9.0)
		Expect(sb.ValueReady()).To(BeTrue())

		sb.AdvanceMemoryOp(true, func() uint64 { return 1 })
		Expect(sb.State()).To(Equal(station.WaitingForAddress))

		sb.AdvanceMemoryOp(true, func() uint64 { return 1 })
		Expect(sb.State()).To(Equal(station.Executing))
	})

	It("commits immediately once address and value are both already ready", func() {
		rf.SetValue(9, 2.5)
		inst := isa.Instruction{Op: isa.OpSD, BaseReg: 1, Offset: 8, SrcReg2: 9}
		sb.Issue(inst, 1, rf)
		sb.SetEffectiveAddress(108)

		probed := uint64(0)
		sb.AdvanceMemoryOp(true, func() uint64 { probed = 7; return 7 })

		Expect(sb.State()).To(Equal(station.Executing))
		Expect(probed).To(Equal(uint64(7)))
	})

	It("ticks down to completion and reports true on the final cycle", func() {
		rf.SetValue(9, 2.5)
		inst := isa.Instruction{Op: isa.OpSD, BaseReg: 1, Offset: 8, SrcReg2: 9}
		sb.Issue(inst, 1, rf)
		sb.SetEffectiveAddress(108)
		sb.AdvanceMemoryOp(true, func() uint64 { return 2 })

		Expect(sb.Tick()).To(BeFalse())
		Expect(sb.Tick()).To(BeTrue())
	})
})
