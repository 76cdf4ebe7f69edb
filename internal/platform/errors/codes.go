// Package errors provides structured error handling for the arena core.
package errors

import "net/http"

// Code is a machine-readable error code carried on the arena/v0 wire envelope.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Matchmaking errors
	CodeNoBattleAvailable Code = "NO_BATTLE_AVAILABLE"

	// Request validation errors
	CodeInvalidPayload           Code = "INVALID_PAYLOAD"
	CodeInvalidTag               Code = "INVALID_TAG"
	CodeUnsupportedClientVersion Code = "UNSUPPORTED_CLIENT_VERSION"

	// Battle lifecycle errors
	CodeBattleNotFound        Code = "BATTLE_NOT_FOUND"
	CodeBattleAlreadyVoted    Code = "BATTLE_ALREADY_VOTED"
	CodeDuplicateVoteConflict Code = "DUPLICATE_VOTE_CONFLICT"

	// Inventory errors
	CodeGeneratorNotFound Code = "GENERATOR_NOT_FOUND"
	CodeLevelNotFound     Code = "LEVEL_NOT_FOUND"

	// Storage errors
	CodeNotFound Code = "NOT_FOUND"

	// Catch-all for unexpected failures (db integrity, solver divergence).
	CodeInternal Code = "INTERNAL_ERROR"
)

// HTTPStatus maps domain codes to HTTP status codes.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeNoBattleAvailable:
		return http.StatusServiceUnavailable

	case CodeInvalidPayload,
		CodeInvalidTag,
		CodeUnsupportedClientVersion:
		return http.StatusBadRequest

	case CodeBattleNotFound,
		CodeGeneratorNotFound,
		CodeLevelNotFound,
		CodeNotFound:
		return http.StatusNotFound

	case CodeBattleAlreadyVoted,
		CodeDuplicateVoteConflict:
		return http.StatusConflict

	default:
		return http.StatusInternalServerError
	}
}

// Retryable reports whether a client may retry the failed request unchanged.
func (c Code) Retryable() bool {
	switch c {
	case CodeNoBattleAvailable, CodeInternal, CodeUnknown:
		return true
	default:
		return false
	}
}
