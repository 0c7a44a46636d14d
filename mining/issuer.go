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

// Issuer validates holder capacity and the global emission budget,
// locks in the current-stage reward for a purchased batch and appends
// the batch to the ledger. Delegated issuance (a payer buying for a
// different beneficiary) is the same path: the payer only matters to
// the payment collaborator, the beneficiary's ledger takes the tickets.
type Issuer struct {
	ledger   *Ledger
	payments PaymentSource
}

// NewIssuer creates an issuance engine bound to a ledger and the
// external payment collaborator.
func NewIssuer(ledger *Ledger, payments PaymentSource) *Issuer {
	return &Issuer{
		ledger:   ledger,
		payments: payments,
	}
}

// Issue purchases count tickets for the beneficiary, paid by the payer,
// and returns the assigned ticket ids. Preconditions are checked in
// order and the first failure aborts the call with no state change. The
// stage reward is computed once for the whole batch: every ticket in a
// single purchase locks the same reward even if the batch would
// mathematically straddle a stage boundary.
func (is *Issuer) Issue(ctx context.Context, payer, beneficiary ethcommon.Address, count int, now int64) ([]uint64, error) {
	l := is.ledger
	if err := l.acquire(); err != nil {
		return nil, err
	}
	defer l.release()

	if count < 1 {
		if monitor.Enabled {
			monitor.IssueError("ZeroCount")
		}
		return nil, ErrZeroCount
	}

	l.mu.RLock()
	if l.totalMinted.Cmp(MiningPool) >= 0 {
		l.mu.RUnlock()
		if monitor.Enabled {
			monitor.IssueError("PoolExhausted")
		}
		return nil, ErrPoolExhausted
	}
	if l.activeTicketCount(beneficiary, now)+count > MaxTicketsPerHolder {
		l.mu.RUnlock()
		if monitor.Enabled {
			monitor.IssueError("HolderCapacity")
		}
		return nil, ErrHolderCapacity
	}
	stage := Stage(l.totalMinted)
	l.mu.RUnlock()

	// The guard is held, so no other mutator can advance the counters
	// between the checks above and the commit below.
	price := new(big.Int).Mul(TicketPrice, big.NewInt(int64(count)))
	if err := is.payments.Settle(payer, price); err != nil {
		if monitor.Enabled {
			monitor.IssueError("PaymentNotSettled")
		}
		return nil, errors.Wrap(ErrPaymentNotSettled, err.Error())
	}

	reward := RewardForStage(stage)

	l.mu.Lock()
	ids := make([]uint64, 0, count)
	batch := make([]*Ticket, 0, count)
	for i := 0; i < count; i++ {
		t := &Ticket{
			ID:          l.nextTicketID,
			Holder:      beneficiary,
			PurchasedAt: now,
			Reward:      new(big.Int).Set(reward),
		}
		l.nextTicketID++
		l.holders[beneficiary] = append(l.holders[beneficiary], t)
		l.byID[t.ID] = t
		ids = append(ids, t.ID)
		batch = append(batch, t)
	}
	l.ticketsSold += uint64(count)
	l.mu.Unlock()

	if l.store != nil {
		if err := l.store.InsertTickets(batch); err != nil {
			glog.Errorf("error storing issued tickets holder=%x count=%d err=%v", beneficiary, count, err)
		}
	}
	l.saveState()

	for _, t := range batch {
		clog.Infof(ctx, "Issued ticket holder=%x ticketID=%d reward=%v stage=%d expiresAt=%d",
			beneficiary, t.ID, t.Reward, stage, t.ExpiresAt())
	}
	if monitor.Enabled {
		monitor.TicketsIssued(count, stage)
	}

	return ids, nil
}
