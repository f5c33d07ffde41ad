package station

// Memory ordering (§4.4): loads and stores execute in program order with
// respect to each other whenever their addresses might alias. An
// unresolved effective address is treated conservatively, as if it might
// alias anything still outstanding.

// earlierStoreMayAlias reports whether sb is still outstanding, was
// issued before seq, and either has no resolved address yet or its
// address equals addr.
func earlierStoreMayAlias(sb *StoreBuffer, seq uint64, addr int64) bool {
	if !sb.Busy() || sb.SequenceNumber() >= seq {
		return false
	}
	if !sb.AddressReady() {
		return true
	}
	return sb.EffectiveAddress() == addr
}

// earlierLoadMayAlias reports the same, for an outstanding load.
func earlierLoadMayAlias(lb *LoadBuffer, seq uint64, addr int64) bool {
	if !lb.Busy() || lb.SequenceNumber() >= seq {
		return false
	}
	if !lb.AddressReady() {
		return true
	}
	return lb.EffectiveAddress() == addr
}

// LoadOrderingPermits reports whether lb may start its memory access: no
// earlier, still-outstanding store may alias its address.
func LoadOrderingPermits(lb *LoadBuffer, stores []*StoreBuffer) bool {
	if !lb.AddressReady() {
		return false
	}
	for _, sb := range stores {
		if sb.Tag() == lb.Tag() {
			continue
		}
		if earlierStoreMayAlias(sb, lb.SequenceNumber(), lb.EffectiveAddress()) {
			return false
		}
	}
	return true
}

// StoreOrderingPermits reports whether sb may commit: no earlier,
// still-outstanding store or load may alias its address.
func StoreOrderingPermits(sb *StoreBuffer, stores []*StoreBuffer, loads []*LoadBuffer) bool {
	if !sb.AddressReady() {
		return false
	}
	for _, other := range stores {
		if other.Tag() == sb.Tag() {
			continue
		}
		if earlierStoreMayAlias(other, sb.SequenceNumber(), sb.EffectiveAddress()) {
			return false
		}
	}
	for _, lb := range loads {
		if earlierLoadMayAlias(lb, sb.SequenceNumber(), sb.EffectiveAddress()) {
			return false
		}
	}
	return true
}
