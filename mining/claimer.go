package mining

import (
	"context"
	"math/big"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/golang/glog"
	"github.com/pkg/errors"

	"github.com/minepool/go-minepool/clog"
	"github.com/minepool/go-minepool/monitor"
)

// Claimer settles claim batches: it validates every ticket in the
// batch, computes the decayed or full payout per ticket, commits the
// batch to the ledger and then requests the external mint. A batch is
// all-or-nothing; one bad id means nothing is claimed and nothing is
// minted. Delegated claims work the same way, parameterized by the
// beneficiary whose ledger and mint target are used.
type Claimer struct {
	ledger *Ledger
	broker Broker
}

// NewClaimer creates a claim engine bound to a ledger and the external
// mint primitive.
func NewClaimer(ledger *Ledger, broker Broker) *Claimer {
	return &Claimer{
		ledger: ledger,
		broker: broker,
	}
}

// Claim claims the given tickets for the beneficiary at wall-clock time
// now and returns the total amount minted. Before maturity a ticket
// pays reward*elapsed/MiningDuration with floor division; from maturity
// through the end of the grace period it pays the full locked reward.
// The batch total must fit under the MiningPool ceiling or the whole
// batch aborts; a holder hitting that must retry with a smaller batch.
func (c *Claimer) Claim(ctx context.Context, beneficiary ethcommon.Address, ticketIDs []uint64, now int64) (*big.Int, error) {
	l := c.ledger
	if err := l.acquire(); err != nil {
		return nil, err
	}
	defer l.release()

	l.mu.RLock()
	batch := make([]*Ticket, 0, len(ticketIDs))
	payouts := make([]*big.Int, 0, len(ticketIDs))
	seen := make(map[uint64]bool, len(ticketIDs))
	total := new(big.Int)
	for _, id := range ticketIDs {
		// a repeated id is the claimed check applied within the batch:
		// the first occurrence consumes the ticket, the repeat aborts
		if seen[id] {
			l.mu.RUnlock()
			if monitor.Enabled {
				monitor.ClaimError("AlreadyClaimed")
			}
			return nil, errors.Wrapf(ErrTicketClaimed, "ticketID=%d", id)
		}
		seen[id] = true
		t, ok := l.byID[id]
		if !ok || t.Holder != beneficiary {
			l.mu.RUnlock()
			if monitor.Enabled {
				monitor.ClaimError("UnknownTicket")
			}
			return nil, errors.Wrapf(ErrUnknownTicket, "ticketID=%d", id)
		}
		if t.Claimed {
			l.mu.RUnlock()
			if monitor.Enabled {
				monitor.ClaimError("AlreadyClaimed")
			}
			return nil, errors.Wrapf(ErrTicketClaimed, "ticketID=%d", id)
		}
		if now < t.PurchasedAt || now > t.ClaimDeadline() {
			l.mu.RUnlock()
			if monitor.Enabled {
				monitor.ClaimError("WindowExpired")
			}
			return nil, errors.Wrapf(ErrClaimWindowExpired, "ticketID=%d deadline=%d now=%d", id, t.ClaimDeadline(), now)
		}
		payout := t.Payout(now)
		batch = append(batch, t)
		payouts = append(payouts, payout)
		total.Add(total, payout)
	}
	if total.Sign() <= 0 {
		l.mu.RUnlock()
		if monitor.Enabled {
			monitor.ClaimError("NothingToClaim")
		}
		return nil, ErrNothingToClaim
	}
	if new(big.Int).Add(l.totalMinted, total).Cmp(MiningPool) > 0 {
		l.mu.RUnlock()
		if monitor.Enabled {
			monitor.ClaimError("PoolExhausted")
		}
		return nil, ErrPoolExhausted
	}
	l.mu.RUnlock()

	// Commit before invoking the external mint so a re-entrant callback
	// can never observe an unclaimed ticket it just got paid for.
	l.mu.Lock()
	for _, t := range batch {
		t.Claimed = true
	}
	l.totalMinted.Add(l.totalMinted, total)
	stage := Stage(l.totalMinted)
	remaining := new(big.Int).Sub(MiningPool, l.totalMinted)
	l.mu.Unlock()

	if err := c.broker.Mint(beneficiary, total); err != nil {
		// The mint primitive is assumed to succeed once reached; if it
		// does fail the whole call is fatal and the batch is rolled back
		// under the still-held guard, leaving no partial state.
		l.mu.Lock()
		for _, t := range batch {
			t.Claimed = false
		}
		l.totalMinted.Sub(l.totalMinted, total)
		l.mu.Unlock()
		if monitor.Enabled {
			monitor.ClaimError("Mint")
		}
		return nil, errors.Wrapf(err, "error minting %v to %x", total, beneficiary)
	}

	if l.store != nil {
		for i, t := range batch {
			if err := l.store.MarkClaimed(t.ID, now, payouts[i]); err != nil {
				glog.Errorf("error storing claim holder=%x ticketID=%d err=%v", beneficiary, t.ID, err)
			}
		}
	}
	l.saveState()

	for i, t := range batch {
		clog.Infof(ctx, "Claimed ticket holder=%x ticketID=%d payout=%v at=%d", beneficiary, t.ID, payouts[i], now)
	}
	if monitor.Enabled {
		monitor.TicketsClaimed(len(batch), total)
		monitor.EmissionProgress(stage, remaining)
	}

	return total, nil
}
