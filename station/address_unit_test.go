package station_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/archsim/tomasulo/station"
)

type fakeTarget struct {
	ea  int64
	set bool
}

func (t *fakeTarget) SetEffectiveAddress(ea int64) {
	t.ea = ea
	t.set = true
}

var _ = Describe("AddressUnit", func() {
	It("is free until started", func() {
		u := station.NewAddressUnit()
		Expect(u.Busy()).To(BeFalse())
	})

	It("writes base+offset into its target after the given latency", func() {
		u := station.NewAddressUnit()
		target := &fakeTarget{}
		u.Start(target, 100, 8, 3)

		u.Tick()
		Expect(target.set).To(BeFalse())
		u.Tick()
		Expect(target.set).To(BeFalse())
		u.Tick()

		Expect(target.set).To(BeTrue())
		Expect(target.ea).To(Equal(int64(108)))
		Expect(u.Busy()).To(BeFalse())
	})

	It("is idle when ticked while not started", func() {
		u := station.NewAddressUnit()
		Expect(func() { u.Tick() }).NotTo(Panic())
	})
})
