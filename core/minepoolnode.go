/*
Core contains the main wiring of the minepool node.
*/
package core

import (
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/golang/glog"

	"github.com/minepool/go-minepool/common"
	"github.com/minepool/go-minepool/mining"
)

// MinepoolNode aggregates the ticket ledger, the issuance and claim
// engines and their external collaborators. Constructed once at startup
// and shared by the HTTP handlers.
type MinepoolNode struct {
	Ledger   *mining.Ledger
	Issuer   *mining.Issuer
	Claimer  *mining.Claimer
	Broker   mining.Broker
	Payments mining.PaymentSource
	Database *common.DB

	// OwnerAddr is the privileged operator allowed to adjust the
	// emission cap and sweep custodied funds
	OwnerAddr ethcommon.Address
}

// NewMinepoolNode creates a node around the given collaborators. The
// database may be nil for a purely in-memory node; when present the
// ledger is restored from it before the engines are wired.
func NewMinepoolNode(owner ethcommon.Address, broker mining.Broker, payments mining.PaymentSource, dbh *common.DB) (*MinepoolNode, error) {
	var store mining.TicketStore
	if dbh != nil {
		store = dbh
	}
	ledger := mining.NewLedger(owner, store)
	if dbh != nil {
		tickets, state, err := dbh.LoadState()
		if err != nil {
			glog.Errorf("Error loading ledger state from DB err=%v", err)
			return nil, err
		}
		ledger.Restore(tickets, state)
	}
	return &MinepoolNode{
		Ledger:    ledger,
		Issuer:    mining.NewIssuer(ledger, payments),
		Claimer:   mining.NewClaimer(ledger, broker),
		Broker:    broker,
		Payments:  payments,
		Database:  dbh,
		OwnerAddr: owner,
	}, nil
}
