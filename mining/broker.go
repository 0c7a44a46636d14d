package mining

import (
	"math/big"

	ethcommon "github.com/ethereum/go-ethereum/common"
)

// Broker is an abstraction over the token primitives that move value in
// and out of the ledger's custody. The implementations are external and
// assumed audited; the engines only sequence their own state changes
// around these calls.
type Broker interface {
	// Mint credits the beneficiary with newly minted output. Invoked by
	// the claim engine after the ledger has committed a claim batch; an
	// error is fatal to the whole claim call.
	Mint(beneficiary ethcommon.Address, amount *big.Int) error

	// Withdraw sweeps custodied ticket payment funds to an operator
	// account. Privileged, orthogonal to ticket accounting.
	Withdraw(to ethcommon.Address, amount *big.Int) error
}

// PaymentSource attests that ticket payment funds have been received
// into the ledger's custody, whether via a direct transfer or a
// verified delegated-payment authorization. Signature and replay
// validation happen inside the implementation, never in the engines.
type PaymentSource interface {
	// Settle returns nil once amount has been collected from payer. A
	// non-nil error means the issuance precondition failed.
	Settle(payer ethcommon.Address, amount *big.Int) error
}
