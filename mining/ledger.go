package mining

import (
	"math/big"
	"sync"
	"sync/atomic"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/golang/glog"
)

// Ledger owns every ticket and the global emission counters. All
// mutation flows through the issuance and claim engines, which run
// under the ledger's call guard: mutating calls are serialized by
// rejection rather than queueing, so a callback from the external mint
// or transfer primitive that re-enters a mutating method fails with
// ErrReentrancy instead of observing half-applied state. Read
// projections take the state lock only, so they stay concurrent with a
// mutating call's external leg while still seeing a consistent snapshot.
type Ledger struct {
	owner ethcommon.Address
	store TicketStore

	// call guard for mutating operations, held across the external call
	guard int32

	mu           sync.RWMutex
	holders      map[ethcommon.Address][]*Ticket
	byID         map[uint64]*Ticket
	nextTicketID uint64
	ticketsSold  uint64
	totalMinted  *big.Int
	emissionCap  *big.Int
}

// NewLedger creates an empty ledger. The store may be nil, in which
// case no mutation is mirrored to persistent storage. The emission cap
// starts at the hard limit, fully open.
func NewLedger(owner ethcommon.Address, store TicketStore) *Ledger {
	return &Ledger{
		owner:        owner,
		store:        store,
		holders:      make(map[ethcommon.Address][]*Ticket),
		byID:         make(map[uint64]*Ticket),
		nextTicketID: 1,
		totalMinted:  new(big.Int),
		emissionCap:  new(big.Int).Set(HardLimit),
	}
}

// Restore rebuilds the in-memory ledger from persisted tickets and
// counters, typically the result of TicketStore.LoadState on startup.
// Tickets must arrive in issuance order so per-holder sequences keep
// their insertion order.
func (l *Ledger) Restore(tickets []*Ticket, state *LedgerState) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, t := range tickets {
		l.holders[t.Holder] = append(l.holders[t.Holder], t)
		l.byID[t.ID] = t
	}
	if state != nil {
		l.nextTicketID = state.NextTicketID
		l.ticketsSold = state.TicketsSold
		l.totalMinted = new(big.Int).Set(state.TotalMinted)
		l.emissionCap = new(big.Int).Set(state.EmissionCap)
	}
	glog.Infof("Restored ledger tickets=%d ticketsSold=%d totalMinted=%v", len(tickets), l.ticketsSold, l.totalMinted)
}

// acquire takes the mutating-call guard. It never blocks: an overlap
// means either a concurrent mutator or a re-entrant callback from the
// external primitive, and both must fail fast.
func (l *Ledger) acquire() error {
	if !atomic.CompareAndSwapInt32(&l.guard, 0, 1) {
		return ErrReentrancy
	}
	return nil
}

func (l *Ledger) release() {
	atomic.StoreInt32(&l.guard, 0)
}

// activeTicketCount counts the holder's tickets that are unclaimed and
// still inside their claim window. Recomputed fresh on every call since
// it depends on wall-clock time. Caller must hold l.mu.
func (l *Ledger) activeTicketCount(holder ethcommon.Address, now int64) int {
	count := 0
	for _, t := range l.holders[holder] {
		if t.Active(now) {
			count++
		}
	}
	return count
}

// ActiveTicketCount is the exported, snapshot-consistent variant.
func (l *Ledger) ActiveTicketCount(holder ethcommon.Address, now int64) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.activeTicketCount(holder, now)
}

// TotalMinted returns a copy of the cumulative minted output.
func (l *Ledger) TotalMinted() *big.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return new(big.Int).Set(l.totalMinted)
}

// TicketsSold returns the cumulative count of tickets ever issued.
func (l *Ledger) TicketsSold() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.ticketsSold
}

// EmissionCap returns a copy of the administrative soft ceiling.
func (l *Ledger) EmissionCap() *big.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return new(big.Int).Set(l.emissionCap)
}

// SetEmissionCap adjusts the administrative soft ceiling. The cap is
// informational bookkeeping layered on top of the MiningPool ceiling
// the claim engine enforces; it gates nothing on the issuance or claim
// paths. Restricted to the ledger owner.
func (l *Ledger) SetEmissionCap(caller ethcommon.Address, newCap *big.Int) error {
	if err := l.acquire(); err != nil {
		return err
	}
	defer l.release()

	if caller != l.owner {
		return ErrNotOwner
	}

	l.mu.Lock()
	if newCap.Cmp(l.totalMinted) < 0 {
		l.mu.Unlock()
		return ErrCapBelowMinted
	}
	if newCap.Cmp(HardLimit) > 0 {
		l.mu.Unlock()
		return ErrCapAboveHardLimit
	}
	l.emissionCap = new(big.Int).Set(newCap)
	l.mu.Unlock()

	l.saveState()
	glog.Infof("Emission cap set to %v", newCap)
	return nil
}

// state returns a copy of the global counters. Caller must hold l.mu.
func (l *Ledger) state() LedgerState {
	return LedgerState{
		NextTicketID: l.nextTicketID,
		TicketsSold:  l.ticketsSold,
		TotalMinted:  new(big.Int).Set(l.totalMinted),
		EmissionCap:  new(big.Int).Set(l.emissionCap),
	}
}

// saveState mirrors the counters to the store. Persistence failures
// after a committed in-memory mutation are logged, not propagated; the
// in-memory ledger stays authoritative.
func (l *Ledger) saveState() {
	if l.store == nil {
		return
	}
	l.mu.RLock()
	state := l.state()
	l.mu.RUnlock()
	if err := l.store.SaveState(state); err != nil {
		glog.Errorf("error persisting ledger state err=%v", err)
	}
}
