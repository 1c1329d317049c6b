package voucher

// SeedVoucher is a test helper that places a voucher directly into the
// in-memory store, bypassing issuance.
func SeedVoucher(s Store, v Voucher) {
	if mem, ok := s.(*memoryStore); ok {
		mem.mu.Lock()
		defer mem.mu.Unlock()
		mem.byID[v.ID] = v
		mem.byCode[v.Code] = v.ID
	}
}

// SetCodeGenerator is a test helper that overrides code generation on the
// in-memory store, e.g. to force collisions.
func SetCodeGenerator(s Store, gen func() (string, error)) {
	if mem, ok := s.(*memoryStore); ok {
		mem.mu.Lock()
		defer mem.mu.Unlock()
		mem.genFunc = gen
	}
}
