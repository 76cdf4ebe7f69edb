// Package id generates prefixed identifiers for arena entities.
//
// Identifier shapes follow the arena/v0 protocol: a short type prefix
// joined to a random UUIDv4, e.g. "btl_6f1c…". Generator and level ids
// are opaque strings owned by the builder pipeline and are not minted here.
package id

import "github.com/google/uuid"

const (
	battlePrefix = "btl_"
	votePrefix   = "v_"
	eventPrefix  = "evt_"
)

// NewBattleID returns a fresh battle identifier.
func NewBattleID() string {
	return battlePrefix + uuid.NewString()
}

// NewVoteID returns a fresh vote identifier.
func NewVoteID() string {
	return votePrefix + uuid.NewString()
}

// NewEventID returns a fresh rating event identifier.
func NewEventID() string {
	return eventPrefix + uuid.NewString()
}

// IsUUID reports whether value parses as a UUID. Session ids on the wire
// must be client-generated UUIDs.
func IsUUID(value string) bool {
	_, err := uuid.Parse(value)
	return err == nil
}
