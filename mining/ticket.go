package mining

import (
	"math/big"

	ethcommon "github.com/ethereum/go-ethereum/common"
)

// Durations are wall-clock seconds, matching the resolution of the
// on-chain timestamps the payment rail settles against.
const (
	// MiningDuration is the interval after purchase during which the
	// payout ramps linearly from zero to the full locked reward.
	MiningDuration int64 = 6 * 60 * 60

	// GracePeriod is the interval after maturity during which a ticket
	// remains claimable at its full locked reward.
	GracePeriod int64 = 24 * 60 * 60

	// ClaimWindow is the entire interval after purchase during which a
	// ticket is claimable at all.
	ClaimWindow = MiningDuration + GracePeriod

	// MaxTicketsPerHolder caps the number of simultaneously active
	// (unclaimed, unexpired) tickets per holder.
	MaxTicketsPerHolder = 5

	// PercDivisor is the fixed denominator for basis-point ratios.
	PercDivisor int64 = 10000
)

var (
	// InitialOutput is the stage 0 per-ticket reward.
	InitialOutput = big.NewInt(300000)

	// StageSize is the amount of cumulative minted output that advances
	// the emission schedule by one halving stage.
	StageSize = big.NewInt(30000000)

	// MiningPool is the hard ceiling on cumulative output ever minted
	// via claims.
	MiningPool = big.NewInt(180000000)

	// HardLimit bounds the administratively adjustable emission cap.
	HardLimit = new(big.Int).Set(MiningPool)

	// TicketPrice is the fee for one ticket in stablecoin base units.
	TicketPrice = big.NewInt(1000000)
)

// Ticket is a unit of purchased mining capacity. Its reward is locked
// from the emission schedule at issuance time and never recalculated;
// the only mutation a ticket ever sees is the one-time claimed flip.
type Ticket struct {
	// ID is globally unique and monotonically increasing, never reused
	ID uint64

	// Holder is the beneficiary whose ledger owns the ticket
	Holder ethcommon.Address

	// PurchasedAt is the issuance timestamp in unix seconds
	PurchasedAt int64

	// Reward is the amount minted if claimed at or after full maturity
	Reward *big.Int

	// Claimed flips to true exactly once, on a successful claim
	Claimed bool
}

// ExpiresAt returns the instant the ticket reaches full maturity.
func (t *Ticket) ExpiresAt() int64 {
	return t.PurchasedAt + MiningDuration
}

// ClaimDeadline returns the last instant at which the ticket is claimable.
func (t *Ticket) ClaimDeadline() int64 {
	return t.PurchasedAt + ClaimWindow
}

// Active returns whether the ticket counts toward its holder's cap:
// unclaimed and still inside its claim window.
func (t *Ticket) Active(now int64) bool {
	return !t.Claimed && now <= t.ClaimDeadline()
}

// Payout returns the amount minted if the ticket is claimed at now:
// the full locked reward at or after maturity (flat through the grace
// period), otherwise reward*elapsed/MiningDuration with floor division.
// The claim window itself is not checked here.
func (t *Ticket) Payout(now int64) *big.Int {
	elapsed := now - t.PurchasedAt
	if elapsed < 0 {
		return new(big.Int)
	}
	if elapsed >= MiningDuration {
		return new(big.Int).Set(t.Reward)
	}
	payout := new(big.Int).Mul(t.Reward, big.NewInt(elapsed))
	return payout.Div(payout, big.NewInt(MiningDuration))
}

// MaturityPerc returns how far the ticket has ramped toward full
// maturity as basis points out of PercDivisor, floored at every step.
func (t *Ticket) MaturityPerc(now int64) int64 {
	elapsed := now - t.PurchasedAt
	if elapsed < 0 {
		return 0
	}
	if elapsed >= MiningDuration {
		return PercDivisor
	}
	return elapsed * PercDivisor / MiningDuration
}
