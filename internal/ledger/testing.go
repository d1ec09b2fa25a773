package ledger

// SeedBalance is a test helper that seeds the balance for an account when using the in-memory ledger.
func SeedBalance(l Ledger, code string, amount int64) {
	if mem, ok := l.(*inMemoryLedger); ok {
		mem.mu.Lock()
		defer mem.mu.Unlock()
		mem.balances[code] = amount
	}
}

// Snapshot copies every balance of an in-memory ledger. Other backends return nil.
func Snapshot(l Ledger) map[string]int64 {
	mem, ok := l.(*inMemoryLedger)
	if !ok {
		return nil
	}
	mem.mu.RLock()
	defer mem.mu.RUnlock()
	out := make(map[string]int64, len(mem.balances))
	for code, bal := range mem.balances {
		out[code] = bal
	}
	return out
}
