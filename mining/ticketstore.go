package mining

import "math/big"

// LedgerState is the snapshot of the global counters persisted
// alongside tickets.
type LedgerState struct {
	NextTicketID uint64
	TicketsSold  uint64
	TotalMinted  *big.Int
	EmissionCap  *big.Int
}

// TicketStore is an interface which describes an object capable of
// persisting tickets and the ledger's global counters. The in-memory
// ledger is authoritative; the store is a mirror for restart recovery
// and history queries, written after each committed mutation.
type TicketStore interface {
	// InsertTickets stores a freshly issued batch
	InsertTickets(tickets []*Ticket) error

	// MarkClaimed records a successful claim of a single ticket
	MarkClaimed(id uint64, claimedAt int64, payout *big.Int) error

	// SaveState stores the global counters
	SaveState(state LedgerState) error

	// LoadState returns every stored ticket and the saved counters
	LoadState() ([]*Ticket, *LedgerState, error)
}
