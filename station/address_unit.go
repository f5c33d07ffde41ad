package station

// EATarget is the narrow view an AddressUnit needs of the buffer it is
// computing an address for.
type EATarget interface {
	SetEffectiveAddress(ea int64)
}

// AddressUnit computes a load/store's effective address (base + offset)
// after a fixed latency (§4.2, §4.5 "Address Unit"). The base register's
// value is captured at issue time, not renamed through a tag — memory
// instructions in this core read their base register directly, matching
// the reference implementation this spec was distilled from
// (original_source/src/core/TomasuloSimulator.java's issueFromQueue).
type AddressUnit struct {
	busy      bool
	target    EATarget
	base      int64
	offset    int64
	remaining uint64
}

// NewAddressUnit creates a free address unit.
func NewAddressUnit() *AddressUnit {
	return &AddressUnit{}
}

// Busy reports whether this unit is currently computing an address.
func (u *AddressUnit) Busy() bool { return u.busy }

// Start begins computing baseValue+offset over latency cycles, to be
// written into target once done.
func (u *AddressUnit) Start(target EATarget, baseValue, offset int64, latency uint64) {
	u.busy = true
	u.target = target
	u.base = baseValue
	u.offset = offset
	u.remaining = latency
}

// Tick decrements the remaining latency; on reaching zero it writes the
// computed EA into its target buffer and frees itself (§4.1 phase 1:
// "Address units decrement their remaining latency and on zero write the
// computed EA into their target buffer.").
func (u *AddressUnit) Tick() {
	if !u.busy {
		return
	}
	u.remaining--
	if u.remaining > 0 {
		return
	}
	u.target.SetEffectiveAddress(u.base + u.offset)
	u.busy = false
	u.target = nil
}
