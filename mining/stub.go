package mining

import (
	"fmt"
	"math/big"

	ethcommon "github.com/ethereum/go-ethereum/common"
)

type stubBroker struct {
	minted     map[ethcommon.Address]*big.Int
	withdrawn  map[ethcommon.Address]*big.Int
	mintErr    error
	mintCalls  int
	onMint     func()
	onWithdraw func()
}

func newStubBroker() *stubBroker {
	return &stubBroker{
		minted:    make(map[ethcommon.Address]*big.Int),
		withdrawn: make(map[ethcommon.Address]*big.Int),
	}
}

func (b *stubBroker) Mint(beneficiary ethcommon.Address, amount *big.Int) error {
	b.mintCalls++
	if b.onMint != nil {
		b.onMint()
	}
	if b.mintErr != nil {
		return b.mintErr
	}
	cur, ok := b.minted[beneficiary]
	if !ok {
		cur = new(big.Int)
	}
	b.minted[beneficiary] = new(big.Int).Add(cur, amount)
	return nil
}

func (b *stubBroker) Withdraw(to ethcommon.Address, amount *big.Int) error {
	if b.onWithdraw != nil {
		b.onWithdraw()
	}
	cur, ok := b.withdrawn[to]
	if !ok {
		cur = new(big.Int)
	}
	b.withdrawn[to] = new(big.Int).Add(cur, amount)
	return nil
}

func (b *stubBroker) Minted(beneficiary ethcommon.Address) *big.Int {
	cur, ok := b.minted[beneficiary]
	if !ok {
		return new(big.Int)
	}
	return cur
}

type stubPaymentSource struct {
	settleErr   error
	settled     map[ethcommon.Address]*big.Int
	settleCalls int
	onSettle    func()
}

func newStubPaymentSource() *stubPaymentSource {
	return &stubPaymentSource{
		settled: make(map[ethcommon.Address]*big.Int),
	}
}

func (p *stubPaymentSource) Settle(payer ethcommon.Address, amount *big.Int) error {
	p.settleCalls++
	if p.onSettle != nil {
		p.onSettle()
	}
	if p.settleErr != nil {
		return p.settleErr
	}
	cur, ok := p.settled[payer]
	if !ok {
		cur = new(big.Int)
	}
	p.settled[payer] = new(big.Int).Add(cur, amount)
	return nil
}

type stubTicketStore struct {
	tickets    map[uint64]*Ticket
	claims     map[uint64]*big.Int
	state      *LedgerState
	insertErr  error
	claimErr   error
	saveCalls  int
	loadResult []*Ticket
}

func newStubTicketStore() *stubTicketStore {
	return &stubTicketStore{
		tickets: make(map[uint64]*Ticket),
		claims:  make(map[uint64]*big.Int),
	}
}

func (s *stubTicketStore) InsertTickets(tickets []*Ticket) error {
	if s.insertErr != nil {
		return s.insertErr
	}
	for _, t := range tickets {
		copied := *t
		copied.Reward = new(big.Int).Set(t.Reward)
		s.tickets[t.ID] = &copied
	}
	return nil
}

func (s *stubTicketStore) MarkClaimed(id uint64, claimedAt int64, payout *big.Int) error {
	if s.claimErr != nil {
		return s.claimErr
	}
	t, ok := s.tickets[id]
	if !ok {
		return fmt.Errorf("no stored ticket %d", id)
	}
	t.Claimed = true
	s.claims[id] = new(big.Int).Set(payout)
	return nil
}

func (s *stubTicketStore) SaveState(state LedgerState) error {
	s.saveCalls++
	s.state = &state
	return nil
}

func (s *stubTicketStore) LoadState() ([]*Ticket, *LedgerState, error) {
	return s.loadResult, s.state, nil
}
