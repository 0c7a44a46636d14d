package mining

import (
	"context"
	"math/big"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func issueBatch(t *testing.T, issuer *Issuer, count int, now int64) []uint64 {
	ids, err := issuer.Issue(context.Background(), payerAddr, holderAddr, count, now)
	require.Nil(t, err)
	return ids
}

func TestClaim_FullRewardAtMaturity(t *testing.T) {
	assert := assert.New(t)
	ledger, issuer, claimer, _, broker := newTestEngines()
	ids := issueBatch(t, issuer, 1, t0)

	minted, err := claimer.Claim(context.Background(), holderAddr, ids, t0+MiningDuration)
	assert.Nil(err)
	assert.Equal(InitialOutput, minted)
	assert.Equal(InitialOutput, broker.Minted(holderAddr))
	assert.Equal(InitialOutput, ledger.TotalMinted())
}

func TestClaim_PayoutBoundaries(t *testing.T) {
	for _, tc := range []struct {
		name    string
		elapsed int64
		want    *big.Int
		err     error
	}{
		{
			name:    "one unit before maturity",
			elapsed: MiningDuration - 1,
			want: new(big.Int).Div(
				new(big.Int).Mul(InitialOutput, big.NewInt(MiningDuration-1)),
				big.NewInt(MiningDuration),
			),
		},
		{
			name:    "exactly at maturity",
			elapsed: MiningDuration,
			want:    new(big.Int).Set(InitialOutput),
		},
		{
			name:    "mid grace period",
			elapsed: MiningDuration + GracePeriod/2,
			want:    new(big.Int).Set(InitialOutput),
		},
		{
			name:    "end of claim window",
			elapsed: ClaimWindow,
			want:    new(big.Int).Set(InitialOutput),
		},
		{
			name:    "one unit past claim window",
			elapsed: ClaimWindow + 1,
			err:     ErrClaimWindowExpired,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)
			_, issuer, claimer, _, _ := newTestEngines()
			ids := issueBatch(t, issuer, 1, t0)

			minted, err := claimer.Claim(context.Background(), holderAddr, ids, t0+tc.elapsed)
			if tc.err != nil {
				assert.Equal(tc.err, errors.Cause(err))
				return
			}
			assert.Nil(err)
			assert.Equal(tc.want, minted)
		})
	}
}

func TestClaim_ProportionalDecay(t *testing.T) {
	assert := assert.New(t)
	_, issuer, claimer, _, _ := newTestEngines()
	ids := issueBatch(t, issuer, 1, t0)

	// halfway to maturity pays exactly half the locked reward
	minted, err := claimer.Claim(context.Background(), holderAddr, ids, t0+MiningDuration/2)
	assert.Nil(err)
	assert.Equal(new(big.Int).Div(InitialOutput, big.NewInt(2)), minted)
}

func TestClaim_AtPurchaseInstant(t *testing.T) {
	assert := assert.New(t)
	ledger, issuer, claimer, _, broker := newTestEngines()
	ids := issueBatch(t, issuer, 1, t0)

	// zero elapsed means zero payout, and a zero-total batch aborts
	_, err := claimer.Claim(context.Background(), holderAddr, ids, t0)
	assert.Equal(ErrNothingToClaim, errors.Cause(err))
	assert.Zero(broker.mintCalls)
	assert.False(ledger.byID[ids[0]].Claimed)
}

func TestClaim_EmptyBatch(t *testing.T) {
	assert := assert.New(t)
	_, _, claimer, _, _ := newTestEngines()

	_, err := claimer.Claim(context.Background(), holderAddr, nil, t0)
	assert.Equal(ErrNothingToClaim, errors.Cause(err))
}

func TestClaim_UnknownTicket(t *testing.T) {
	assert := assert.New(t)
	ledger, issuer, claimer, _, broker := newTestEngines()
	ids := issueBatch(t, issuer, 2, t0)

	// one bad id poisons the whole batch: nothing claimed, nothing minted
	batch := append([]uint64{}, ids...)
	batch = append(batch, 999)
	_, err := claimer.Claim(context.Background(), holderAddr, batch, t0+MiningDuration)
	assert.Equal(ErrUnknownTicket, errors.Cause(err))
	assert.Zero(broker.mintCalls)
	assert.Zero(ledger.TotalMinted().Sign())
	for _, id := range ids {
		assert.False(ledger.byID[id].Claimed)
	}
}

func TestClaim_WrongHolder(t *testing.T) {
	assert := assert.New(t)
	_, issuer, claimer, _, _ := newTestEngines()
	ids := issueBatch(t, issuer, 1, t0)

	// the payer does not own the beneficiary's tickets
	_, err := claimer.Claim(context.Background(), payerAddr, ids, t0+MiningDuration)
	assert.Equal(ErrUnknownTicket, errors.Cause(err))
}

func TestClaim_DoubleClaim(t *testing.T) {
	assert := assert.New(t)
	ledger, issuer, claimer, _, broker := newTestEngines()
	ids := issueBatch(t, issuer, 1, t0)

	minted, err := claimer.Claim(context.Background(), holderAddr, ids, t0+MiningDuration)
	assert.Nil(err)

	_, err = claimer.Claim(context.Background(), holderAddr, ids, t0+MiningDuration+1)
	assert.Equal(ErrTicketClaimed, errors.Cause(err))

	// no double mint, no state change
	assert.Equal(1, broker.mintCalls)
	assert.Equal(minted, ledger.TotalMinted())
}

func TestClaim_DuplicateIDInBatch(t *testing.T) {
	assert := assert.New(t)
	ledger, issuer, claimer, _, broker := newTestEngines()
	ids := issueBatch(t, issuer, 2, t0)

	// a repeated id must not pay the ticket once per occurrence: the
	// whole batch aborts with nothing claimed and nothing minted
	for _, batch := range [][]uint64{
		{ids[0], ids[0]},
		{ids[0], ids[1], ids[0]},
	} {
		_, err := claimer.Claim(context.Background(), holderAddr, batch, t0+MiningDuration)
		assert.Equal(ErrTicketClaimed, errors.Cause(err))
	}
	assert.Zero(broker.mintCalls)
	assert.Zero(broker.Minted(holderAddr).Sign())
	assert.Zero(ledger.TotalMinted().Sign())
	for _, id := range ids {
		assert.False(ledger.byID[id].Claimed)
	}

	// a clean batch over the same tickets still settles normally
	minted, err := claimer.Claim(context.Background(), holderAddr, ids, t0+MiningDuration)
	assert.Nil(err)
	assert.Equal(new(big.Int).Mul(InitialOutput, big.NewInt(2)), minted)
}

func TestClaim_ExpiredBatchAtomicity(t *testing.T) {
	assert := assert.New(t)
	ledger, issuer, claimer, _, broker := newTestEngines()

	early := issueBatch(t, issuer, 1, t0)
	late, err := issuer.Issue(context.Background(), payerAddr, holderAddr, 1, t0+GracePeriod)
	assert.Nil(err)

	// the early ticket is past its deadline; the late one alone would be
	// claimable, but it rides in the same batch
	now := t0 + ClaimWindow + 1
	_, err = claimer.Claim(context.Background(), holderAddr, append(early, late...), now)
	assert.Equal(ErrClaimWindowExpired, errors.Cause(err))
	assert.Zero(broker.mintCalls)
	assert.False(ledger.byID[late[0]].Claimed)
}

func TestClaim_PoolCap(t *testing.T) {
	assert := assert.New(t)
	ledger, issuer, claimer, _, broker := newTestEngines()
	ids := issueBatch(t, issuer, 1, t0)

	// not enough headroom left under the hard pool ceiling for the full
	// payout: the batch aborts rather than minting a clipped amount
	ledger.totalMinted = new(big.Int).Sub(MiningPool, big.NewInt(100))

	_, err := claimer.Claim(context.Background(), holderAddr, ids, t0+MiningDuration)
	assert.Equal(ErrPoolExhausted, errors.Cause(err))
	assert.Zero(broker.mintCalls)
	assert.False(ledger.byID[ids[0]].Claimed)
	assert.Equal(new(big.Int).Sub(MiningPool, big.NewInt(100)), ledger.TotalMinted())
}

func TestClaim_MintFailureRollsBack(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ledger, issuer, claimer, _, broker := newTestEngines()
	ids := issueBatch(t, issuer, 2, t0)

	broker.mintErr = errors.New("token backend unavailable")
	_, err := claimer.Claim(context.Background(), holderAddr, ids, t0+MiningDuration)
	require.NotNil(err)

	// atomic abort: the batch is fully rolled back
	assert.Zero(ledger.TotalMinted().Sign())
	for _, id := range ids {
		assert.False(ledger.byID[id].Claimed)
	}

	// and the same batch succeeds once the backend recovers
	broker.mintErr = nil
	minted, err := claimer.Claim(context.Background(), holderAddr, ids, t0+MiningDuration)
	assert.Nil(err)
	assert.Equal(new(big.Int).Mul(InitialOutput, big.NewInt(2)), minted)
}

func TestClaim_RejectsReentrantCall(t *testing.T) {
	assert := assert.New(t)
	ledger, issuer, claimer, _, broker := newTestEngines()
	ids := issueBatch(t, issuer, 2, t0)

	var reentrantErr error
	broker.onMint = func() {
		_, reentrantErr = claimer.Claim(context.Background(), holderAddr, ids[1:], t0+MiningDuration)
	}

	minted, err := claimer.Claim(context.Background(), holderAddr, ids[:1], t0+MiningDuration)
	assert.Nil(err)
	assert.Equal(InitialOutput, minted)
	assert.Equal(ErrReentrancy, errors.Cause(reentrantErr))
	assert.Equal(InitialOutput, ledger.TotalMinted())
}

func TestClaim_EndToEndScenario(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ledger, issuer, claimer, _, broker := newTestEngines()

	// three tickets at t=0 lock the stage 0 reward of 300000 each
	ids := issueBatch(t, issuer, 3, t0)
	for _, id := range ids {
		assert.Equal(big.NewInt(300000), ledger.byID[id].Reward)
	}

	// claiming all three six hours later mints 900000 and leaves the
	// holder with no active tickets
	minted, err := claimer.Claim(context.Background(), holderAddr, ids, t0+6*60*60)
	require.Nil(err)
	assert.Equal(big.NewInt(900000), minted)
	assert.Equal(big.NewInt(900000), broker.Minted(holderAddr))
	assert.Zero(ledger.ActiveTicketCount(holderAddr, t0+6*60*60))
}

func TestClaim_PoolCapInvariant(t *testing.T) {
	assert := assert.New(t)

	// shrink the pool so a handful of claims can exhaust it
	origPool := MiningPool
	MiningPool = big.NewInt(1000000)
	defer func() { MiningPool = origPool }()

	ledger, issuer, claimer, _, _ := newTestEngines()

	now := t0
	for i := 0; ; i++ {
		ids, err := issuer.Issue(context.Background(), payerAddr, holderAddr, 3, now)
		if err != nil {
			assert.Equal(ErrPoolExhausted, errors.Cause(err))
			break
		}
		_, err = claimer.Claim(context.Background(), holderAddr, ids, now+MiningDuration)
		if err != nil {
			assert.Equal(ErrPoolExhausted, errors.Cause(err))
			break
		}
		now += ClaimWindow + 1
		if i > 100 {
			t.Fatal("pool never exhausted")
		}
	}

	assert.True(ledger.TotalMinted().Cmp(MiningPool) <= 0,
		"totalMinted %v exceeds pool %v", ledger.TotalMinted(), MiningPool)
}

func TestClaim_MarksStore(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	store := newStubTicketStore()
	ledger := NewLedger(ownerAddr, store)
	issuer := NewIssuer(ledger, newStubPaymentSource())
	claimer := NewClaimer(ledger, newStubBroker())

	ids, err := issuer.Issue(context.Background(), payerAddr, holderAddr, 1, t0)
	require.Nil(err)
	_, err = claimer.Claim(context.Background(), holderAddr, ids, t0+MiningDuration)
	require.Nil(err)

	assert.True(store.tickets[ids[0]].Claimed)
	assert.Equal(InitialOutput, store.claims[ids[0]])
	require.NotNil(store.state)
	assert.Equal(InitialOutput, store.state.TotalMinted)
}
