package rating

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/louisbranch/pcg.arena/internal/services/arena/domain/vote"
)

func TestDefault(t *testing.T) {
	r := Default()
	assert.Equal(t, 1000.0, r.Value)
	assert.Equal(t, 350.0, r.Deviation)
	assert.Equal(t, 0.06, r.Volatility)
}

func TestUpdatePairWinnerGainsLoserLoses(t *testing.T) {
	left, right := Default(), Default()

	newLeft, newRight, audit, err := UpdatePair(left, right, vote.ResultLeft)
	require.NoError(t, err)

	assert.Greater(t, newLeft.Value, left.Value)
	assert.Less(t, newRight.Value, right.Value)
	assert.Less(t, newLeft.Deviation, left.Deviation)
	assert.Less(t, newRight.Deviation, right.Deviation)

	assert.InDelta(t, newLeft.Value-left.Value, audit.DeltaLeft, 1e-9)
	assert.InDelta(t, newRight.Value-right.Value, audit.DeltaRight, 1e-9)
	assert.Equal(t, left.Deviation, audit.LeftRDBefore)
	assert.Equal(t, newLeft.Deviation, audit.LeftRDAfter)
	assert.Equal(t, right.Deviation, audit.RightRDBefore)
	assert.Equal(t, newRight.Deviation, audit.RightRDAfter)
}

func TestUpdatePairSymmetricForEqualOpponents(t *testing.T) {
	newLeft, newRight, _, err := UpdatePair(Default(), Default(), vote.ResultLeft)
	require.NoError(t, err)

	// Equal priors: the winner's gain mirrors the loser's loss.
	assert.InDelta(t, newLeft.Value-1000.0, 1000.0-newRight.Value, 1e-6)
	assert.InDelta(t, newLeft.Deviation, newRight.Deviation, 1e-6)
}

func TestUpdatePairTieLeavesEqualRatingsUnmoved(t *testing.T) {
	newLeft, newRight, _, err := UpdatePair(Default(), Default(), vote.ResultTie)
	require.NoError(t, err)

	assert.InDelta(t, 1000.0, newLeft.Value, 1e-6)
	assert.InDelta(t, 1000.0, newRight.Value, 1e-6)
	// A tie still narrows the deviation.
	assert.Less(t, newLeft.Deviation, 350.0)
	assert.Less(t, newRight.Deviation, 350.0)
}

func TestUpdatePairTiePullsUnequalRatingsTogether(t *testing.T) {
	strong := Rating{Value: 1400, Deviation: 80, Volatility: 0.06}
	weak := Rating{Value: 800, Deviation: 80, Volatility: 0.06}

	newStrong, newWeak, _, err := UpdatePair(strong, weak, vote.ResultTie)
	require.NoError(t, err)

	assert.Less(t, newStrong.Value, strong.Value)
	assert.Greater(t, newWeak.Value, weak.Value)
}

func TestUpdatePairSkipIsIdentity(t *testing.T) {
	left := Rating{Value: 1234, Deviation: 120, Volatility: 0.055}
	right := Rating{Value: 987, Deviation: 310, Volatility: 0.06}

	newLeft, newRight, audit, err := UpdatePair(left, right, vote.ResultSkip)
	require.NoError(t, err)

	assert.Equal(t, left, newLeft)
	assert.Equal(t, right, newRight)
	assert.Equal(t, Audit{}, audit)
}

func TestUpdatePairUpsetMovesMoreThanExpectedWin(t *testing.T) {
	strong := Rating{Value: 1400, Deviation: 100, Volatility: 0.06}
	weak := Rating{Value: 800, Deviation: 100, Volatility: 0.06}

	_, afterExpected, _, err := UpdatePair(strong, weak, vote.ResultLeft)
	require.NoError(t, err)
	_, afterUpset, _, err := UpdatePair(strong, weak, vote.ResultRight)
	require.NoError(t, err)

	expectedGain := afterExpected.Value - weak.Value
	upsetGain := afterUpset.Value - weak.Value
	assert.Greater(t, upsetGain, expectedGain)
	assert.Greater(t, upsetGain, 0.0)
}

func TestUpdatePairUncertainOpponentMovesLess(t *testing.T) {
	player := Rating{Value: 1000, Deviation: 100, Volatility: 0.06}
	certain := Rating{Value: 1000, Deviation: 50, Volatility: 0.06}
	uncertain := Rating{Value: 1000, Deviation: 340, Volatility: 0.06}

	vsCertain, _, _, err := UpdatePair(player, certain, vote.ResultLeft)
	require.NoError(t, err)
	vsUncertain, _, _, err := UpdatePair(player, uncertain, vote.ResultLeft)
	require.NoError(t, err)

	// Beating an uncertain opponent carries less signal.
	assert.Greater(t, vsCertain.Value-player.Value, vsUncertain.Value-player.Value)
}

func TestUpdatePairClampsBounds(t *testing.T) {
	ceiling := Rating{Value: 2995, Deviation: 340, Volatility: 0.06}
	floor := Rating{Value: 105, Deviation: 340, Volatility: 0.06}

	newHigh, newLow, _, err := UpdatePair(ceiling, floor, vote.ResultLeft)
	require.NoError(t, err)

	assert.LessOrEqual(t, newHigh.Value, MaxRating)
	assert.GreaterOrEqual(t, newLow.Value, MinRating)
	assert.GreaterOrEqual(t, newHigh.Deviation, MinDeviation)
	assert.LessOrEqual(t, newHigh.Deviation, MaxDeviation)
}

func TestUpdatePairRepeatedGamesShrinkDeviation(t *testing.T) {
	left, right := Default(), Default()
	var err error
	for i := 0; i < 30; i++ {
		result := vote.ResultLeft
		if i%2 == 1 {
			result = vote.ResultRight
		}
		left, right, _, err = UpdatePair(left, right, result)
		require.NoError(t, err)
	}

	assert.Less(t, left.Deviation, 100.0)
	assert.GreaterOrEqual(t, left.Deviation, MinDeviation)
	// Alternating outcomes keep the ratings near the start.
	assert.InDelta(t, 1000.0, left.Value, 150.0)
}

func TestVolatilityStaysNearPriorForLikelyOutcome(t *testing.T) {
	newLeft, _, _, err := UpdatePair(Default(), Default(), vote.ResultLeft)
	require.NoError(t, err)
	assert.InDelta(t, DefaultVolatility, newLeft.Volatility, 0.01)
}

func TestExpectedOutcome(t *testing.T) {
	equal := ExpectedOutcome(Default(), Default())
	assert.InDelta(t, 0.5, equal, 1e-9)

	strong := Rating{Value: 1400, Deviation: 60, Volatility: 0.06}
	weak := Rating{Value: 800, Deviation: 60, Volatility: 0.06}
	assert.Greater(t, ExpectedOutcome(strong, weak), 0.9)
	assert.Less(t, ExpectedOutcome(weak, strong), 0.1)
}

func TestInformationGain(t *testing.T) {
	fresh := Default()
	settled := Rating{Value: 1000, Deviation: MinDeviation, Volatility: 0.06}

	assert.InDelta(t, 1.0, InformationGain(fresh, fresh), 1e-9)
	assert.InDelta(t, 0.0, InformationGain(settled, settled), 1e-9)
	assert.Greater(t, InformationGain(fresh, fresh), InformationGain(fresh, settled))
}

func TestMatchQuality(t *testing.T) {
	even := MatchQuality(Default(), Default())
	assert.InDelta(t, 1.0, even, 1e-9)

	strong := Rating{Value: 1600, Deviation: 60, Volatility: 0.06}
	weak := Rating{Value: 700, Deviation: 60, Volatility: 0.06}
	lopsided := MatchQuality(strong, weak)
	assert.Less(t, lopsided, 0.1)

	close := MatchQuality(
		Rating{Value: 1020, Deviation: 100, Volatility: 0.06},
		Rating{Value: 980, Deviation: 100, Volatility: 0.06},
	)
	assert.Greater(t, close, lopsided)
}
