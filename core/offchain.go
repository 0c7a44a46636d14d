package core

import (
	"math/big"
	"sync"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/golang/glog"

	"github.com/minepool/go-minepool/common"
)

// OffchainBroker is the Broker used when the node runs without a token
// backend. Mints and withdrawals only move numbers in memory; useful
// for development and tests of everything above the payment rail.
type OffchainBroker struct {
	mu       sync.Mutex
	balances map[ethcommon.Address]*big.Int
}

// NewOffchainBroker creates an offchain broker with empty balances.
func NewOffchainBroker() *OffchainBroker {
	return &OffchainBroker{
		balances: make(map[ethcommon.Address]*big.Int),
	}
}

// Mint credits the beneficiary's in-memory balance.
func (b *OffchainBroker) Mint(beneficiary ethcommon.Address, amount *big.Int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	cur, ok := b.balances[beneficiary]
	if !ok {
		cur = new(big.Int)
	}
	b.balances[beneficiary] = new(big.Int).Add(cur, amount)
	glog.V(common.DEBUG).Infof("offchain mint beneficiary=%x amount=%v", beneficiary, amount)
	return nil
}

// Withdraw logs the sweep; offchain custody holds nothing real.
func (b *OffchainBroker) Withdraw(to ethcommon.Address, amount *big.Int) error {
	glog.Infof("offchain withdraw to=%x amount=%v", to, amount)
	return nil
}

// Balance returns the minted balance for an address.
func (b *OffchainBroker) Balance(addr ethcommon.Address) *big.Int {
	b.mu.Lock()
	defer b.mu.Unlock()
	cur, ok := b.balances[addr]
	if !ok {
		return new(big.Int)
	}
	return new(big.Int).Set(cur)
}

// OffchainPaymentSource accepts every payment attestation. It stands in
// for the stablecoin transfer collaborator when the node runs offchain.
type OffchainPaymentSource struct {
	mu        sync.Mutex
	collected map[ethcommon.Address]*big.Int
}

// NewOffchainPaymentSource creates an accept-all payment source.
func NewOffchainPaymentSource() *OffchainPaymentSource {
	return &OffchainPaymentSource{
		collected: make(map[ethcommon.Address]*big.Int),
	}
}

// Settle records the amount as collected and reports success.
func (p *OffchainPaymentSource) Settle(payer ethcommon.Address, amount *big.Int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	cur, ok := p.collected[payer]
	if !ok {
		cur = new(big.Int)
	}
	p.collected[payer] = new(big.Int).Add(cur, amount)
	glog.V(common.DEBUG).Infof("offchain payment settled payer=%x amount=%v", payer, amount)
	return nil
}

// Collected returns the total attested payments from a payer.
func (p *OffchainPaymentSource) Collected(payer ethcommon.Address) *big.Int {
	p.mu.Lock()
	defer p.mu.Unlock()
	cur, ok := p.collected[payer]
	if !ok {
		return new(big.Int)
	}
	return new(big.Int).Set(cur)
}
