package station_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/archsim/tomasulo/isa"
	"github.com/archsim/tomasulo/regfile"
	"github.com/archsim/tomasulo/station"
	"github.com/archsim/tomasulo/tag"
)

var _ = Describe("BranchHandler", func() {
	var (
		rf *regfile.RegisterFile
		bh *station.BranchHandler
		t1 = tag.New("bh0")
	)

	BeforeEach(func() {
		rf = regfile.New(8, 8)
		bh = station.NewBranchHandler(t1)
	})

	It("resolves BEQ as taken when operands are equal", func() {
		rf.SetIntValue(1, 5)
		rf.SetIntValue(2, 5)
		inst := isa.Instruction{Op: isa.OpBEQ, SrcReg1: 1, SrcReg2: 2, Offset: 4}
		bh.Issue(inst, 100, rf)
		bh.AdvanceIssued()

		Expect(bh.State()).To(Equal(station.Ready))
		next := bh.Evaluate()
		Expect(bh.Taken()).To(BeTrue())
		Expect(next).To(Equal(int64(104)))
	})

	It("resolves BEQ as not-taken when operands differ, falling through to PC+1", func() {
		rf.SetIntValue(1, 5)
		rf.SetIntValue(2, 9)
		inst := isa.Instruction{Op: isa.OpBEQ, SrcReg1: 1, SrcReg2: 2, Offset: 4}
		bh.Issue(inst, 100, rf)
		bh.AdvanceIssued()

		next := bh.Evaluate()
		Expect(bh.Taken()).To(BeFalse())
		Expect(next).To(Equal(int64(101)))
	})

	It("resolves BNE as taken when operands differ", func() {
		rf.SetIntValue(1, 5)
		rf.SetIntValue(2, 9)
		inst := isa.Instruction{Op: isa.OpBNE, SrcReg1: 1, SrcReg2: 2, Offset: -4}
		bh.Issue(inst, 100, rf)
		bh.AdvanceIssued()

		next := bh.Evaluate()
		Expect(bh.Taken()).To(BeTrue())
		Expect(next).To(Equal(int64(96)))
	})

	It("waits for an outstanding operand before becoming Ready", func() {
		producer := tag.New("producer")
		rf.SetProducer(2, producer)
		inst := isa.Instruction{Op: isa.OpBEQ, SrcReg1: 1, SrcReg2: 2, Offset: 4}
		bh.Issue(inst, 100, rf)
		bh.AdvanceIssued()
		Expect(bh.State()).To(Equal(station.WaitingForOperands))

		bh.CaptureBroadcast(producer, 0)
		Expect(bh.State()).To(Equal(station.Ready))
	})

	It("returns to Free with cleared fields", func() {
		inst := isa.Instruction{Op: isa.OpBEQ, SrcReg1: 1, SrcReg2: 2, Offset: 4}
		bh.Issue(inst, 100, rf)
		bh.Free()
		Expect(bh.Busy()).To(BeFalse())
	})
})
