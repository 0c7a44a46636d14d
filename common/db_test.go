package common

import (
	"math/big"
	"testing"

	ethcommon "github.com/ethereum/go-ethereum/common"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minepool/go-minepool/mining"
)

var testHolder = ethcommon.HexToAddress("0x00000000000000000000000000000000000000BB")

func TestDBTicketRoundTrip(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	dbh, dbraw, err := TempDB(t)
	require.Nil(err)
	defer dbh.Close()
	defer dbraw.Close()

	tickets := []*mining.Ticket{
		{ID: 1, Holder: testHolder, PurchasedAt: 1000, Reward: big.NewInt(300000)},
		{ID: 2, Holder: testHolder, PurchasedAt: 1000, Reward: big.NewInt(300000)},
	}
	require.Nil(dbh.InsertTickets(tickets))
	require.Nil(dbh.MarkClaimed(1, 1000+mining.MiningDuration, big.NewInt(300000)))

	loaded, _, err := dbh.LoadState()
	require.Nil(err)
	require.Len(loaded, 2)

	assert.Equal(uint64(1), loaded[0].ID)
	assert.True(loaded[0].Claimed)
	assert.Equal(testHolder, loaded[0].Holder)
	assert.Equal(big.NewInt(300000), loaded[0].Reward)
	assert.False(loaded[1].Claimed)

	// payout is history only, not part of the restored ledger
	var payout string
	row := dbraw.QueryRow("SELECT payout FROM tickets WHERE id = 1")
	require.Nil(row.Scan(&payout))
	assert.Equal("300000", payout)
}

func TestDBStateRoundTrip(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	dbh, dbraw, err := TempDB(t)
	require.Nil(err)
	defer dbh.Close()
	defer dbraw.Close()

	// defaults are a fresh ledger
	_, state, err := dbh.LoadState()
	require.Nil(err)
	assert.Equal(uint64(1), state.NextTicketID)
	assert.Zero(state.TicketsSold)
	assert.Zero(state.TotalMinted.Sign())
	assert.Equal(mining.HardLimit, state.EmissionCap)

	require.Nil(dbh.SaveState(mining.LedgerState{
		NextTicketID: 7,
		TicketsSold:  6,
		TotalMinted:  big.NewInt(900000),
		EmissionCap:  big.NewInt(100000000),
	}))

	_, state, err = dbh.LoadState()
	require.Nil(err)
	assert.Equal(uint64(7), state.NextTicketID)
	assert.Equal(uint64(6), state.TicketsSold)
	assert.Equal(big.NewInt(900000), state.TotalMinted)
	assert.Equal(big.NewInt(100000000), state.EmissionCap)
}

func TestDBInsertDuplicateFails(t *testing.T) {
	require := require.New(t)
	dbh, dbraw, err := TempDB(t)
	require.Nil(err)
	defer dbh.Close()
	defer dbraw.Close()

	tickets := []*mining.Ticket{
		{ID: 1, Holder: testHolder, PurchasedAt: 1000, Reward: big.NewInt(300000)},
	}
	require.Nil(dbh.InsertTickets(tickets))
	require.NotNil(dbh.InsertTickets(tickets))
}

func TestParseTicketIDs(t *testing.T) {
	assert := assert.New(t)

	ids, err := ParseTicketIDs("1,2, 3")
	assert.Nil(err)
	assert.Equal([]uint64{1, 2, 3}, ids)

	ids, err = ParseTicketIDs("7")
	assert.Nil(err)
	assert.Equal([]uint64{7}, ids)

	_, err = ParseTicketIDs("1,x")
	assert.NotNil(err)

	ids, err = ParseTicketIDs("")
	assert.Nil(err)
	assert.Empty(ids)
}
