package vote

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestHashIgnoresTagOrderAndDuplicates(t *testing.T) {
	base := Payload{
		BattleID:  "btl_1",
		SessionID: "2b39cc2c-97df-4d5c-9f34-302a0b8eb29b",
		Result:    ResultLeft,
		LeftTags:  []string{"fun", "creative"},
		RightTags: []string{"too_hard"},
	}
	reordered := base
	reordered.LeftTags = []string{"creative", "fun", "creative"}

	h1, err := base.Hash()
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	h2, err := reordered.Hash()
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if h1 != h2 {
		t.Fatalf("expected tag order and duplicates not to change the hash: %s vs %s", h1, h2)
	}
}

func TestHashIgnoresTelemetryKeyOrder(t *testing.T) {
	a := Payload{
		BattleID:  "btl_1",
		SessionID: "s",
		Result:    ResultTie,
		Telemetry: json.RawMessage(`{"left": {"deaths": 2, "completed": true}, "right": {"completed": false}}`),
	}
	b := a
	b.Telemetry = json.RawMessage(`{"right":{"completed":false},"left":{"completed":true,"deaths":2}}`)

	h1, err := a.Hash()
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	h2, err := b.Hash()
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if h1 != h2 {
		t.Fatal("expected telemetry key order not to change the hash")
	}
}

func TestHashDistinguishesResults(t *testing.T) {
	a := Payload{BattleID: "btl_1", SessionID: "s", Result: ResultLeft}
	b := Payload{BattleID: "btl_1", SessionID: "s", Result: ResultRight}

	h1, _ := a.Hash()
	h2, _ := b.Hash()
	if h1 == h2 {
		t.Fatal("expected different results to hash differently")
	}
}

func TestCanonicalJSONPreservesNumberLiterals(t *testing.T) {
	out, err := CanonicalJSON(json.RawMessage(`{"duration_seconds": 12.25, "deaths": 3, "big": 9007199254740993}`))
	if err != nil {
		t.Fatalf("canonical json: %v", err)
	}
	got := string(out)
	if got != `{"big":9007199254740993,"deaths":3,"duration_seconds":12.25}` {
		t.Fatalf("unexpected canonical form: %s", got)
	}
}

func TestCanonicalJSONEmptyIsNull(t *testing.T) {
	out, err := CanonicalJSON(nil)
	if err != nil {
		t.Fatalf("canonical json: %v", err)
	}
	if string(out) != "null" {
		t.Fatalf("expected null, got %s", out)
	}
}

func TestCanonicalJSONRejectsMalformed(t *testing.T) {
	if _, err := CanonicalJSON(json.RawMessage(`{"open":`)); err == nil {
		t.Fatal("expected malformed telemetry to be rejected")
	}
}

func TestCanonicalJSONNestedStructures(t *testing.T) {
	out, err := CanonicalJSON(json.RawMessage(`{"b":[{"y":1,"x":2},null,"s"],"a":{}}`))
	if err != nil {
		t.Fatalf("canonical json: %v", err)
	}
	if string(out) != `{"a":{},"b":[{"x":2,"y":1},null,"s"]}` {
		t.Fatalf("unexpected canonical form: %s", out)
	}
}

func TestValidateTags(t *testing.T) {
	if err := ValidateTags([]string{"fun", "boring", "not_mario_like"}); err != nil {
		t.Fatalf("expected vocabulary tags to pass: %v", err)
	}
	err := ValidateTags([]string{"fun", "amazing"})
	if err == nil {
		t.Fatal("expected unknown tag to fail")
	}
	if !strings.Contains(err.Error(), "amazing") {
		t.Fatalf("expected offending tag in message, got %q", err.Error())
	}
}

func TestCanonicalTags(t *testing.T) {
	got := CanonicalTags([]string{"too_easy", "fun", "too_easy", "boring"})
	want := []string{"boring", "fun", "too_easy"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
	if CanonicalTags(nil) != nil {
		t.Fatal("expected nil tags to stay nil")
	}
}

func TestParseResult(t *testing.T) {
	for _, ok := range []string{"LEFT", "RIGHT", "TIE", "SKIP"} {
		if _, err := ParseResult(ok); err != nil {
			t.Fatalf("expected %s to parse: %v", ok, err)
		}
	}
	if _, err := ParseResult("left"); err == nil {
		t.Fatal("expected lowercase result to be rejected")
	}
	if _, err := ParseResult(""); err == nil {
		t.Fatal("expected empty result to be rejected")
	}
}
