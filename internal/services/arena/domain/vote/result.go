// Package vote models the vote payload: the result enum, the closed tag
// vocabulary, and the canonical form hashed for idempotency.
package vote

import (
	apperrors "github.com/louisbranch/pcg.arena/internal/platform/errors"
)

// Result is the outcome of a battle as reported by the voter.
type Result string

const (
	// ResultLeft means the left level was preferred.
	ResultLeft Result = "LEFT"
	// ResultRight means the right level was preferred.
	ResultRight Result = "RIGHT"
	// ResultTie means neither level was preferred.
	ResultTie Result = "TIE"
	// ResultSkip means the voter declined to judge; ratings are untouched.
	ResultSkip Result = "SKIP"
)

// ParseResult validates a wire result value.
func ParseResult(value string) (Result, error) {
	switch Result(value) {
	case ResultLeft, ResultRight, ResultTie, ResultSkip:
		return Result(value), nil
	default:
		return "", apperrors.WithMetadata(apperrors.CodeInvalidPayload,
			"result must be one of LEFT, RIGHT, TIE, SKIP",
			map[string]string{"reason": "invalid result " + value})
	}
}

// Counts reports whether the result contributes to games_played.
// SKIP increments only skip counters.
func (r Result) Counts() bool {
	return r != ResultSkip
}

// Scores returns the Glicko-2 scores for the left and right side.
// Only meaningful for results that count.
func (r Result) Scores() (left, right float64) {
	switch r {
	case ResultLeft:
		return 1, 0
	case ResultRight:
		return 0, 1
	default:
		return 0.5, 0.5
	}
}
