package mining

import (
	"math/big"

	ethcommon "github.com/ethereum/go-ethereum/common"
)

// PlatformStatus is the read-only platform projection: emission
// progress derived from the schedule plus the global counters. It
// carries no state of its own.
type PlatformStatus struct {
	Stage         int      `json:"stage"`
	StageReward   *big.Int `json:"stageReward"`
	TotalMinted   *big.Int `json:"totalMinted"`
	RemainingPool *big.Int `json:"remainingPool"`
	TicketsSold   uint64   `json:"ticketsSold"`
	ActiveTickets int      `json:"activeTickets"`
	EmissionCap   *big.Int `json:"emissionCap"`
}

// TicketStatus is a single ticket as seen by a polling client,
// including what the ticket would pay if claimed right now.
type TicketStatus struct {
	ID            uint64   `json:"id"`
	PurchasedAt   int64    `json:"purchasedAt"`
	ExpiresAt     int64    `json:"expiresAt"`
	ClaimDeadline int64    `json:"claimDeadline"`
	Reward        *big.Int `json:"reward"`
	Claimed       bool     `json:"claimed"`
	Claimable     *big.Int `json:"claimable"`
	MaturityPerc  int64    `json:"maturityPerc"`
}

// HolderStatus is the per-holder projection over every stored ticket,
// claimed and expired ones included.
type HolderStatus struct {
	Holder        ethcommon.Address `json:"holder"`
	ActiveTickets int               `json:"activeTickets"`
	Tickets       []TicketStatus    `json:"tickets"`
}

// PlatformStatus evaluates the platform projection against a single
// consistent snapshot of the ledger.
func (l *Ledger) PlatformStatus(now int64) PlatformStatus {
	l.mu.RLock()
	defer l.mu.RUnlock()

	stage := Stage(l.totalMinted)
	active := 0
	for _, tickets := range l.holders {
		for _, t := range tickets {
			if t.Active(now) {
				active++
			}
		}
	}
	return PlatformStatus{
		Stage:         stage,
		StageReward:   RewardForStage(stage),
		TotalMinted:   new(big.Int).Set(l.totalMinted),
		RemainingPool: new(big.Int).Sub(MiningPool, l.totalMinted),
		TicketsSold:   l.ticketsSold,
		ActiveTickets: active,
		EmissionCap:   new(big.Int).Set(l.emissionCap),
	}
}

// HolderStatus evaluates the per-holder projection. Claimable uses the
// same payout formula as the claim engine without mutating anything: it
// is zero for claimed tickets and for tickets outside their window.
func (l *Ledger) HolderStatus(holder ethcommon.Address, now int64) HolderStatus {
	l.mu.RLock()
	defer l.mu.RUnlock()

	status := HolderStatus{
		Holder:  holder,
		Tickets: make([]TicketStatus, 0, len(l.holders[holder])),
	}
	for _, t := range l.holders[holder] {
		claimable := new(big.Int)
		if t.Active(now) {
			claimable = t.Payout(now)
			status.ActiveTickets++
		}
		status.Tickets = append(status.Tickets, TicketStatus{
			ID:            t.ID,
			PurchasedAt:   t.PurchasedAt,
			ExpiresAt:     t.ExpiresAt(),
			ClaimDeadline: t.ClaimDeadline(),
			Reward:        new(big.Int).Set(t.Reward),
			Claimed:       t.Claimed,
			Claimable:     claimable,
			MaturityPerc:  t.MaturityPerc(now),
		})
	}
	return status
}
