// Package battle models the battle lifecycle: issued pairs of levels
// that either collect exactly one vote or expire.
package battle

import (
	"time"

	apperrors "github.com/louisbranch/pcg.arena/internal/platform/errors"
)

// Status is the battle lifecycle state.
type Status string

const (
	// StatusIssued is the only state that accepts a vote.
	StatusIssued Status = "ISSUED"
	// StatusCompleted is terminal; reached by accepting a vote.
	StatusCompleted Status = "COMPLETED"
	// StatusExpired is terminal; reached when the TTL elapses unvoted.
	StatusExpired Status = "EXPIRED"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusIssued, StatusCompleted, StatusExpired:
		return true
	}
	return false
}

// Terminal reports whether no further transitions are allowed.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusExpired
}

// Side identifies one half of a battle.
type Side struct {
	GeneratorID string
	LevelID     string
}

// Battle is an issued matchup awaiting a vote.
type Battle struct {
	ID                string
	SessionID         string
	Status            Status
	Left              Side
	Right             Side
	MatchmakingPolicy string
	IssuedAt          time.Time
	ExpiresAt         *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// New creates a battle in ISSUED. expiresAt may be nil when no TTL is
// configured.
func New(id, sessionID string, left, right Side, policy string, now time.Time, expiresAt *time.Time) (Battle, error) {
	if left.GeneratorID == right.GeneratorID {
		return Battle{}, apperrors.New(apperrors.CodeInternal, "battle sides reference the same generator")
	}
	if left.LevelID == right.LevelID {
		return Battle{}, apperrors.New(apperrors.CodeInternal, "battle sides reference the same level")
	}
	return Battle{
		ID:                id,
		SessionID:         sessionID,
		Status:            StatusIssued,
		Left:              left,
		Right:             right,
		MatchmakingPolicy: policy,
		IssuedAt:          now,
		ExpiresAt:         expiresAt,
		CreatedAt:         now,
		UpdatedAt:         now,
	}, nil
}

// Complete transitions ISSUED → COMPLETED.
func (b *Battle) Complete(now time.Time) error {
	if b.Status != StatusIssued {
		return apperrors.WithMetadata(apperrors.CodeBattleAlreadyVoted,
			"battle is not accepting votes",
			map[string]string{"battle_id": b.ID, "status": string(b.Status)})
	}
	b.Status = StatusCompleted
	b.UpdatedAt = now
	return nil
}

// Expire transitions ISSUED → EXPIRED. A no-op error is returned for
// terminal states so sweeps can skip them.
func (b *Battle) Expire(now time.Time) error {
	if b.Status != StatusIssued {
		return apperrors.WithMetadata(apperrors.CodeBattleAlreadyVoted,
			"battle is not expirable",
			map[string]string{"battle_id": b.ID, "status": string(b.Status)})
	}
	b.Status = StatusExpired
	b.UpdatedAt = now
	return nil
}

// ExpiredBy reports whether the battle's TTL has elapsed at now. Battles
// without an expiry never expire.
func (b Battle) ExpiredBy(now time.Time) bool {
	return b.ExpiresAt != nil && !now.Before(*b.ExpiresAt)
}
