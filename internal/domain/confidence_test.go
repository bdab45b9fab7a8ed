package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevelFromScoreBoundaries(t *testing.T) {
	t.Parallel()

	cases := []struct {
		score float64
		want  ConfidenceLevel
	}{
		{0, ConfidenceSpeculative},
		{0.2999999, ConfidenceSpeculative},
		{0.30, ConfidenceLow},
		{0.4999999, ConfidenceLow},
		{0.50, ConfidenceMedium},
		{0.7999999, ConfidenceMedium},
		{0.80, ConfidenceHigh},
		{1, ConfidenceHigh},
		{1.5, ConfidenceHigh},
		{-0.1, ConfidenceSpeculative},
		{math.NaN(), ConfidenceSpeculative},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, LevelFromScore(tc.score), "score %v", tc.score)
	}
}

func TestEveryScoreFallsInExactlyOneBand(t *testing.T) {
	t.Parallel()

	inBand := map[ConfidenceLevel]func(float64) bool{
		ConfidenceHigh:        func(s float64) bool { return s >= 0.80 && s <= 1 },
		ConfidenceMedium:      func(s float64) bool { return s >= 0.50 && s < 0.80 },
		ConfidenceLow:         func(s float64) bool { return s >= 0.30 && s < 0.50 },
		ConfidenceSpeculative: func(s float64) bool { return s >= 0 && s < 0.30 },
	}

	for i := 0; i <= 10000; i++ {
		score := float64(i) / 10000
		matches := 0
		for _, level := range ConfidenceLevels {
			if inBand[level](score) {
				matches++
				assert.Equal(t, level, LevelFromScore(score), "score %v", score)
			}
		}
		assert.Equal(t, 1, matches, "score %v matched %d bands", score, matches)
	}
}

func TestNeedsReviewMatchesThreshold(t *testing.T) {
	t.Parallel()

	for i := 0; i <= 1000; i++ {
		score := float64(i) / 1000
		assert.Equal(t, score < 0.50, NeedsReview(score), "score %v", score)
	}
}
