package vote

import (
	"sort"

	apperrors "github.com/louisbranch/pcg.arena/internal/platform/errors"
)

// allowedTags is the closed vocabulary accepted on votes. Anything else
// is rejected before the ingestion transaction opens.
var allowedTags = map[string]struct{}{
	"fun":            {},
	"boring":         {},
	"good_flow":      {},
	"creative":       {},
	"unfair":         {},
	"confusing":      {},
	"too_hard":       {},
	"too_easy":       {},
	"not_mario_like": {},
}

// ValidateTags checks every tag against the closed vocabulary.
func ValidateTags(tags []string) error {
	for _, tag := range tags {
		if _, ok := allowedTags[tag]; !ok {
			return apperrors.WithMetadata(apperrors.CodeInvalidTag,
				"tag is not in the allowed vocabulary: "+tag,
				map[string]string{"tag": tag})
		}
	}
	return nil
}

// CanonicalTags returns a sorted, deduplicated copy of tags so that tag
// order and repeats never change the payload hash.
func CanonicalTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	sort.Strings(out)
	return out
}
