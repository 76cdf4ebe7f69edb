package i18n

// Error codes must match the codes defined in internal/platform/errors/codes.go.
var enUS = map[Code]string{
	"NO_BATTLE_AVAILABLE":        "Not enough generators are available for a battle right now. Try again shortly.",
	"INVALID_PAYLOAD":            "The request payload is invalid{{if .reason}}: {{.reason}}{{end}}.",
	"INVALID_TAG":                "Tag {{.tag}} is not part of the allowed vocabulary.",
	"UNSUPPORTED_CLIENT_VERSION": "This client version is not supported.",
	"BATTLE_NOT_FOUND":           "Battle {{.battle_id}} was not found.",
	"BATTLE_ALREADY_VOTED":       "Battle {{.battle_id}} no longer accepts votes.",
	"DUPLICATE_VOTE_CONFLICT":    "A different vote was already recorded for battle {{.battle_id}}.",
	"GENERATOR_NOT_FOUND":        "Generator {{.generator_id}} was not found.",
	"LEVEL_NOT_FOUND":            "Level {{.level_id}} was not found.",
	"NOT_FOUND":                  "The requested record was not found.",
	"INTERNAL_ERROR":             "An internal error occurred.",
	"UNKNOWN":                    "An unknown error occurred.",
}
