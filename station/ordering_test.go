package station_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/archsim/tomasulo/isa"
	"github.com/archsim/tomasulo/regfile"
	"github.com/archsim/tomasulo/station"
	"github.com/archsim/tomasulo/tag"
)

var _ = Describe("Memory ordering", func() {
	var rf *regfile.RegisterFile

	BeforeEach(func() {
		rf = regfile.New(8, 8)
	})

	issueStore := func(t tag.Tag, seq uint64, addr int64, resolved bool) *station.StoreBuffer {
		sb := station.NewStoreBuffer(t)
		rf.SetValue(9, 1.0)
		inst := isa.Instruction{Op: isa.OpSD, BaseReg: 1, SrcReg2: 9}
		sb.Issue(inst, seq, rf)
		if resolved {
			sb.SetEffectiveAddress(addr)
		}
		return sb
	}

	issueLoad := func(t tag.Tag, seq uint64, addr int64, resolved bool) *station.LoadBuffer {
		lb := station.NewLoadBuffer(t)
		inst := isa.Instruction{Op: isa.OpLD, DestReg: 2, BaseReg: 1}
		lb.Issue(inst, seq, rf)
		if resolved {
			lb.SetEffectiveAddress(addr)
		}
		return lb
	}

	It("blocks a load behind an earlier store to the same address", func() {
		earlier := issueStore(tag.New("s0"), 1, 100, true)
		load := issueLoad(tag.New("l0"), 2, 100, true)

		Expect(station.LoadOrderingPermits(load, []*station.StoreBuffer{earlier})).To(BeFalse())
	})

	It("permits a load behind an earlier store to a different, resolved address", func() {
		earlier := issueStore(tag.New("s0"), 1, 200, true)
		load := issueLoad(tag.New("l0"), 2, 100, true)

		Expect(station.LoadOrderingPermits(load, []*station.StoreBuffer{earlier})).To(BeTrue())
	})

	It("conservatively blocks a load behind an earlier store with an unresolved address", func() {
		earlier := issueStore(tag.New("s0"), 1, 0, false)
		load := issueLoad(tag.New("l0"), 2, 100, true)

		Expect(station.LoadOrderingPermits(load, []*station.StoreBuffer{earlier})).To(BeFalse())
	})

	It("does not block a load behind a later store", func() {
		later := issueStore(tag.New("s0"), 5, 100, true)
		load := issueLoad(tag.New("l0"), 2, 100, true)

		Expect(station.LoadOrderingPermits(load, []*station.StoreBuffer{later})).To(BeTrue())
	})

	It("blocks a store behind an earlier load to the same address", func() {
		earlierLoad := issueLoad(tag.New("l0"), 1, 100, true)
		store := issueStore(tag.New("s0"), 2, 100, true)

		Expect(station.StoreOrderingPermits(store, nil, []*station.LoadBuffer{earlierLoad})).To(BeFalse())
	})

	It("blocks a store behind an earlier store to the same address", func() {
		earlier := issueStore(tag.New("s0"), 1, 100, true)
		store := issueStore(tag.New("s1"), 2, 100, true)

		Expect(station.StoreOrderingPermits(store, []*station.StoreBuffer{earlier}, nil)).To(BeFalse())
	})

	It("permits a store once all earlier aliasing operations have completed", func() {
		earlier := issueStore(tag.New("s0"), 1, 100, true)
		earlier.Free()
		store := issueStore(tag.New("s1"), 2, 100, true)

		Expect(station.StoreOrderingPermits(store, []*station.StoreBuffer{earlier}, nil)).To(BeTrue())
	})
})
