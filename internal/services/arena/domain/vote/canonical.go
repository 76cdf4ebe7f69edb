package vote

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
)

// Payload is the voter-supplied content that identifies a vote for
// idempotency purposes. Two requests are the same vote iff their
// canonical forms are byte-equal.
type Payload struct {
	BattleID  string
	SessionID string
	Result    Result
	LeftTags  []string
	RightTags []string
	Telemetry json.RawMessage
}

// canonicalForm is the ordered structure serialized for hashing. Field
// order is fixed by the struct; tags are sorted and deduplicated;
// telemetry is re-encoded with sorted keys and no insignificant
// whitespace.
type canonicalForm struct {
	BattleID  string          `json:"battle_id"`
	SessionID string          `json:"session_id"`
	Result    Result          `json:"result"`
	LeftTags  []string        `json:"left_tags"`
	RightTags []string        `json:"right_tags"`
	Telemetry json.RawMessage `json:"telemetry"`
}

// Canonicalize returns the canonical serialization of the payload.
func (p Payload) Canonicalize() ([]byte, error) {
	telemetry, err := CanonicalJSON(p.Telemetry)
	if err != nil {
		return nil, fmt.Errorf("canonicalize telemetry: %w", err)
	}

	form := canonicalForm{
		BattleID:  p.BattleID,
		SessionID: p.SessionID,
		Result:    p.Result,
		LeftTags:  CanonicalTags(p.LeftTags),
		RightTags: CanonicalTags(p.RightTags),
		Telemetry: telemetry,
	}
	return json.Marshal(form)
}

// Hash returns the SHA-256 of the canonical serialization, hex encoded.
func (p Payload) Hash() (string, error) {
	canonical, err := p.Canonicalize()
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// CanonicalJSON re-encodes a JSON document with object keys sorted and
// all insignificant whitespace removed. Number literals are preserved
// verbatim so canonicalization never changes numeric precision. A nil or
// empty document canonicalizes to JSON null.
func CanonicalJSON(raw json.RawMessage) (json.RawMessage, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return json.RawMessage("null"), nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var value any
	if err := dec.Decode(&value); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}

	var buf bytes.Buffer
	if err := writeCanonical(&buf, value); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeCanonical(buf *bytes.Buffer, value any) error {
	switch v := value.(type) {
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			encodedKey, err := json.Marshal(k)
			if err != nil {
				return err
			}
			buf.Write(encodedKey)
			buf.WriteByte(':')
			if err := writeCanonical(buf, v[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
		return nil

	case []any:
		buf.WriteByte('[')
		for i, item := range v {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonical(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
		return nil

	case json.Number:
		buf.WriteString(v.String())
		return nil

	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return err
		}
		buf.Write(encoded)
		return nil
	}
}
