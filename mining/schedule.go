package mining

import "math/big"

// numStages is the number of halving tiers with a non-zero reward.
const numStages = 6

// maxStage is the tier the schedule clamps to once the pool's last
// halving boundary has been crossed.
const maxStage = numStages - 1

// Stage maps cumulative minted output to the current halving tier:
// floor(totalMinted/StageSize), clamped to maxStage. Pure function of
// the value passed in; callers read totalMinted under the ledger's
// snapshot discipline.
func Stage(totalMinted *big.Int) int {
	s := new(big.Int).Div(totalMinted, StageSize)
	if s.Cmp(big.NewInt(maxStage)) >= 0 {
		return maxStage
	}
	return int(s.Int64())
}

// RewardForStage returns the per-ticket reward for a halving tier.
// Each tier is the previous tier's reward halved with floor division,
// so truncation compounds step by step rather than being computed as
// InitialOutput/2^stage directly. Tiers at or past numStages pay zero.
func RewardForStage(stage int) *big.Int {
	if stage < 0 || stage >= numStages {
		return new(big.Int)
	}
	reward := new(big.Int).Set(InitialOutput)
	for i := 0; i < stage; i++ {
		reward.Rsh(reward, 1)
	}
	return reward
}
