package core

import (
	"context"
	"math/big"
	"testing"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minepool/go-minepool/common"
	"github.com/minepool/go-minepool/mining"
)

var (
	testOwner  = ethcommon.HexToAddress("0x0000000000000000000000000000000000000001")
	testHolder = ethcommon.HexToAddress("0x00000000000000000000000000000000000000BB")
)

func TestNodeSurvivesRestart(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	dbh, dbraw, err := common.TempDB(t)
	require.Nil(err)
	defer dbh.Close()
	defer dbraw.Close()

	node, err := NewMinepoolNode(testOwner, NewOffchainBroker(), NewOffchainPaymentSource(), dbh)
	require.Nil(err)

	now := int64(1000000000)
	ids, err := node.Issuer.Issue(context.Background(), testHolder, testHolder, 3, now)
	require.Nil(err)
	_, err = node.Claimer.Claim(context.Background(), testHolder, ids[:1], now+mining.MiningDuration)
	require.Nil(err)

	// a second node over the same database picks up where the first left off
	restarted, err := NewMinepoolNode(testOwner, NewOffchainBroker(), NewOffchainPaymentSource(), dbh)
	require.Nil(err)

	assert.Equal(uint64(3), restarted.Ledger.TicketsSold())
	assert.Equal(mining.InitialOutput, restarted.Ledger.TotalMinted())
	assert.Equal(2, restarted.Ledger.ActiveTicketCount(testHolder, now+mining.MiningDuration))

	// the surviving tickets remain claimable on the restarted node
	minted, err := restarted.Claimer.Claim(context.Background(), testHolder, ids[1:], now+mining.MiningDuration)
	require.Nil(err)
	assert.Equal(new(big.Int).Mul(mining.InitialOutput, big.NewInt(2)), minted)
}

func TestOffchainBroker(t *testing.T) {
	assert := assert.New(t)
	broker := NewOffchainBroker()

	assert.Nil(broker.Mint(testHolder, big.NewInt(100)))
	assert.Nil(broker.Mint(testHolder, big.NewInt(50)))
	assert.Equal(big.NewInt(150), broker.Balance(testHolder))
	assert.Zero(broker.Balance(testOwner).Sign())
}

func TestOffchainPaymentSource(t *testing.T) {
	assert := assert.New(t)
	payments := NewOffchainPaymentSource()

	assert.Nil(payments.Settle(testHolder, big.NewInt(1000000)))
	assert.Equal(big.NewInt(1000000), payments.Collected(testHolder))
}
